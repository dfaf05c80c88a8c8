package source

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/kkdai/youtube/v2"
	"github.com/ppalone/ytsearch"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/sys"
)

// YouTube reads videos and playlists through the innertube client, with
// yt-dlp as a fallback, and answers free-text searches.
type YouTube struct {
	client *youtube.Client
	search *ytsearch.Client
	limit  int
}

func NewYouTube(httpClient *http.Client) *YouTube {
	c := &youtube.Client{}
	if httpClient != nil {
		c.HTTPClient = httpClient
	}
	return &YouTube{
		client: c,
		search: ytsearch.NewClient(httpClient),
		limit:  DefaultGroupLimit,
	}
}

func watchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

func (y *YouTube) IsGroup(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	q := u.Query()
	if q.Get("list") == "" {
		return false
	}
	return q.Get("v") == "" || strings.HasPrefix(u.Path, "/playlist")
}

func (y *YouTube) FetchTrack(ctx context.Context, rawURL string) (*media.TrackInfo, error) {
	v, err := y.client.GetVideoContext(ctx, rawURL)
	if err == nil {
		return &media.TrackInfo{
			Source:   media.SourceYouTube,
			Title:    v.Title,
			Artist:   v.Author,
			Duration: v.Duration,
			URL:      watchURL(v.ID),
		}, nil
	}

	e, yerr := ytdlpTrack(ctx, rawURL)
	if yerr != nil {
		return nil, &media.ResolutionError{Op: "youtube video", Err: errors.Join(err, yerr)}
	}
	return e.track(media.SourceYouTube), nil
}

func (y *YouTube) FetchGroup(ctx context.Context, rawURL string) (*media.MediaGroup, error) {
	p, err := y.client.GetPlaylistContext(ctx, rawURL)
	if err == nil {
		g := &media.MediaGroup{Source: media.SourceYouTube, Title: p.Title}
		for _, v := range p.Videos {
			if len(g.Tracks) == y.limit {
				break
			}
			g.Tracks = append(g.Tracks, &media.TrackInfo{
				Source:   media.SourceYouTube,
				Title:    v.Title,
				Artist:   v.Author,
				Duration: v.Duration,
				URL:      watchURL(v.ID),
			})
		}
		return g, nil
	}

	sys.LogSource(sys.MsgSourcePlaylistFallbk, rawURL, err)
	entries, yerr := ytdlpPlaylist(ctx, rawURL, y.limit)
	if yerr != nil {
		return nil, &media.ResolutionError{Op: "youtube playlist", Err: errors.Join(err, yerr)}
	}
	return groupFromEntries(media.SourceYouTube, entries), nil
}

// Search returns up to limit videos for a free-text query.
func (y *YouTube) Search(ctx context.Context, query string, limit int) ([]*media.TrackInfo, error) {
	res, err := y.search.Search(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]*media.TrackInfo, 0, min(limit, len(res.Results)))
	for _, r := range res.Results {
		if len(out) == limit {
			break
		}
		if r.VideoID == "" {
			continue
		}
		out = append(out, &media.TrackInfo{
			Source:   media.SourceYouTube,
			Title:    r.Title,
			Artist:   r.Channel,
			Duration: parseClock(r.Duration),
			URL:      watchURL(r.VideoID),
		})
	}
	return out, nil
}

func groupFromEntries(src media.Source, entries []ytdlpEntry) *media.MediaGroup {
	g := &media.MediaGroup{Source: src}
	for i := range entries {
		if g.Title == "" {
			g.Title = entries[i].Extra
		}
		t := entries[i].track(src)
		t.Album = ""
		g.Tracks = append(g.Tracks, t)
	}
	return g
}

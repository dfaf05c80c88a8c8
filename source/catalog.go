package source

import (
	"context"
	"strings"
	"time"

	"github.com/raitonoberu/ytmusic"
	"golang.org/x/time/rate"

	"github.com/leeineian/cadence/match"
	"github.com/leeineian/cadence/media"
)

// Catalog searches YouTube Music for match candidates. Requests are
// throttled to stay under the service's rate limits.
type Catalog struct {
	limiter *rate.Limiter
}

// NewCatalog allows perSecond searches with a burst of the same size.
func NewCatalog(perSecond float64) *Catalog {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &Catalog{limiter: rate.NewLimiter(rate.Limit(perSecond), max(int(perSecond), 1))}
}

func (c *Catalog) Search(ctx context.Context, query string, filter match.Filter, limit int) ([]*media.TrackInfo, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var (
		res *ytmusic.SearchResult
		err error
	)
	if filter == match.FilterVideo {
		res, err = ytmusic.VideoSearch(query).Next()
	} else {
		res, err = ytmusic.TrackSearch(query).Next()
	}
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []*media.TrackInfo
	if filter == match.FilterVideo {
		out = tracksFromVideos(res.Videos)
	} else {
		out = tracksFromSongs(res.Tracks)
	}
	return out[:min(len(out), limit)], nil
}

func musicURL(id string) string {
	return "https://music.youtube.com/watch?v=" + id
}

func artistNames(artists []ytmusic.Artist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

func tracksFromSongs(items []*ytmusic.TrackItem) []*media.TrackInfo {
	out := make([]*media.TrackInfo, 0, len(items))
	for _, v := range items {
		if v == nil || v.VideoID == "" {
			continue
		}
		out = append(out, &media.TrackInfo{
			Source:   media.SourceYouTube,
			Title:    v.Title,
			Artist:   artistNames(v.Artists),
			Album:    v.Album.Name,
			Duration: time.Duration(v.Duration) * time.Second,
			URL:      musicURL(v.VideoID),
		})
	}
	return out
}

func tracksFromVideos(items []*ytmusic.VideoItem) []*media.TrackInfo {
	out := make([]*media.TrackInfo, 0, len(items))
	for _, v := range items {
		if v == nil || v.VideoID == "" {
			continue
		}
		out = append(out, &media.TrackInfo{
			Source:   media.SourceYouTube,
			Title:    v.Title,
			Artist:   artistNames(v.Artists),
			Duration: time.Duration(v.Duration) * time.Second,
			URL:      watchURL(v.VideoID),
		})
	}
	return out
}

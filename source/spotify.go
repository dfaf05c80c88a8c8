package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/sys"
)

// Spotify reads tracks, albums and playlists. With client credentials it
// uses the Web API; otherwise it reads the public pages' metadata tags.
type Spotify struct {
	api     *spotify.Client
	scraper *pageScraper
	limit   int
}

// NewSpotify returns a Spotify strategy. Empty credentials select page scraping.
func NewSpotify(ctx context.Context, clientID, clientSecret string, httpClient *http.Client) *Spotify {
	s := &Spotify{scraper: newPageScraper(httpClient), limit: DefaultGroupLimit}
	if clientID == "" || clientSecret == "" {
		sys.LogSource(sys.MsgSourceSpotifyScrape)
		return s
	}

	config := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}
	s.api = spotify.New(config.Client(ctx))
	sys.LogSource(sys.MsgSourceSpotifyAPI)
	return s
}

type spotifyLink struct {
	Kind string
	ID   string
}

// parseSpotifyURL accepts open.spotify.com links, with or without a locale
// prefix, and spotify: URIs.
func parseSpotifyURL(raw string) (spotifyLink, error) {
	raw = strings.TrimSpace(raw)
	if rest, ok := strings.CutPrefix(raw, "spotify:"); ok {
		kind, id, found := strings.Cut(rest, ":")
		if !found || id == "" {
			return spotifyLink{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
		}
		return spotifyLink{Kind: kind, ID: id}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return spotifyLink{}, err
	}
	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) > 0 && strings.HasPrefix(parts[0], "intl-") {
		parts = parts[1:]
	}
	if len(parts) < 2 || parts[1] == "" {
		return spotifyLink{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
	}
	switch parts[0] {
	case "track", "album", "playlist":
		return spotifyLink{Kind: parts[0], ID: parts[1]}, nil
	}
	return spotifyLink{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, raw)
}

func isShortLink(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && strings.EqualFold(u.Hostname(), "spotify.link")
}

func (s *Spotify) link(ctx context.Context, raw string) (spotifyLink, error) {
	if isShortLink(raw) {
		expanded, err := s.scraper.finalURL(ctx, raw)
		if err != nil {
			return spotifyLink{}, &media.ResolutionError{Op: "expand spotify link", Err: err}
		}
		raw = expanded
	}
	return parseSpotifyURL(raw)
}

func (s *Spotify) IsGroup(rawURL string) bool {
	// Short links are resolved in FetchTrack and may turn out to be groups.
	l, err := parseSpotifyURL(rawURL)
	return err == nil && (l.Kind == "album" || l.Kind == "playlist")
}

func (s *Spotify) FetchTrack(ctx context.Context, rawURL string) (*media.TrackInfo, error) {
	l, err := s.link(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if l.Kind != "track" {
		return nil, fmt.Errorf("%w: expected a track link, got %s", ErrUnsupportedURL, l.Kind)
	}

	if s.api == nil {
		return s.scrapeTrack(ctx, trackURL(l.ID))
	}
	t, err := s.api.GetTrack(ctx, spotify.ID(l.ID))
	if err != nil {
		return nil, &media.ResolutionError{Op: "spotify track", Err: err}
	}
	return trackFromSpotify(t), nil
}

func (s *Spotify) FetchGroup(ctx context.Context, rawURL string) (*media.MediaGroup, error) {
	l, err := s.link(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	if s.api == nil {
		return s.scrapeGroup(ctx, fmt.Sprintf("https://open.spotify.com/%s/%s", l.Kind, l.ID))
	}

	switch l.Kind {
	case "album":
		return s.album(ctx, spotify.ID(l.ID))
	case "playlist":
		return s.playlist(ctx, spotify.ID(l.ID))
	}
	return nil, fmt.Errorf("%w: expected an album or playlist link, got %s", ErrUnsupportedURL, l.Kind)
}

func (s *Spotify) album(ctx context.Context, id spotify.ID) (*media.MediaGroup, error) {
	album, err := s.api.GetAlbum(ctx, id)
	if err != nil {
		return nil, &media.ResolutionError{Op: "spotify album", Err: err}
	}

	var ids []spotify.ID
	for offset := 0; len(ids) < s.limit; {
		page, err := s.api.GetAlbumTracks(ctx, id, spotify.Limit(50), spotify.Offset(offset))
		if err != nil {
			return nil, &media.ResolutionError{Op: "spotify album tracks", Err: err}
		}
		for _, t := range page.Tracks {
			ids = append(ids, t.ID)
		}
		if len(page.Tracks) < 50 {
			break
		}
		offset += 50
	}
	ids = ids[:min(len(ids), s.limit)]

	// Album listings omit ISRCs; full track objects carry them.
	g := &media.MediaGroup{Source: media.SourceSpotify, Title: album.Name}
	for start := 0; start < len(ids); start += 50 {
		full, err := s.api.GetTracks(ctx, ids[start:min(start+50, len(ids))])
		if err != nil {
			return nil, &media.ResolutionError{Op: "spotify tracks", Err: err}
		}
		for _, t := range full {
			if t != nil {
				g.Tracks = append(g.Tracks, trackFromSpotify(t))
			}
		}
	}
	return g, nil
}

func (s *Spotify) playlist(ctx context.Context, id spotify.ID) (*media.MediaGroup, error) {
	pl, err := s.api.GetPlaylist(ctx, id)
	if err != nil {
		return nil, &media.ResolutionError{Op: "spotify playlist", Err: err}
	}

	g := &media.MediaGroup{Source: media.SourceSpotify, Title: pl.Name}
	for offset := 0; len(g.Tracks) < s.limit; offset += 100 {
		page, err := s.api.GetPlaylistItems(ctx, id, spotify.Limit(100), spotify.Offset(offset))
		if err != nil {
			return nil, &media.ResolutionError{Op: "spotify playlist items", Err: err}
		}
		for _, item := range page.Items {
			// Podcast episodes have no track.
			if item.Track.Track == nil || len(g.Tracks) == s.limit {
				continue
			}
			g.Tracks = append(g.Tracks, trackFromSpotify(item.Track.Track))
		}
		if len(page.Items) < 100 {
			break
		}
	}
	return g, nil
}

func trackURL(id string) string {
	return "https://open.spotify.com/track/" + id
}

func trackFromSpotify(t *spotify.FullTrack) *media.TrackInfo {
	artists := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		artists = append(artists, a.Name)
	}
	u := t.ExternalURLs["spotify"]
	if u == "" {
		u = trackURL(string(t.ID))
	}
	return &media.TrackInfo{
		Source:   media.SourceSpotify,
		Title:    t.Name,
		Artist:   strings.Join(artists, ", "),
		Album:    t.Album.Name,
		Duration: time.Duration(t.Duration) * time.Millisecond,
		URL:      u,
		ISRC:     t.ExternalIDs["isrc"],
	}
}

// --- Page scraping ---

func (s *Spotify) scrapeTrack(ctx context.Context, u string) (*media.TrackInfo, error) {
	doc, err := s.scraper.fetch(ctx, u)
	if err != nil {
		return nil, &media.ResolutionError{Op: "spotify page", Err: err}
	}
	t := trackFromSpotifyPage(doc, u)
	if t.Title == "" {
		return nil, &media.NotFoundError{URL: u}
	}
	return t, nil
}

func (s *Spotify) scrapeGroup(ctx context.Context, u string) (*media.MediaGroup, error) {
	doc, err := s.scraper.fetch(ctx, u)
	if err != nil {
		return nil, &media.ResolutionError{Op: "spotify page", Err: err}
	}

	g := &media.MediaGroup{Source: media.SourceSpotify, Title: cleanSpotifyTitle(meta(doc, "og:title"))}
	songs := metaAll(doc, "music:song")
	if len(songs) == 0 {
		return nil, errors.New("spotify page lists no tracks, set SPOTIFY_CLIENT_ID and SPOTIFY_CLIENT_SECRET")
	}
	for _, song := range songs[:min(len(songs), s.limit)] {
		t, err := s.scrapeTrack(ctx, song)
		if err != nil {
			sys.LogSource(sys.MsgSourceFetchFail, song, err)
			continue
		}
		g.Tracks = append(g.Tracks, t)
	}
	return g, nil
}

// trackFromSpotifyPage reads a track page. The description is laid out as
// "Artist · Album · Song · Year".
func trackFromSpotifyPage(doc *goquery.Document, u string) *media.TrackInfo {
	t := &media.TrackInfo{
		Source:   media.SourceSpotify,
		Title:    cleanSpotifyTitle(meta(doc, "og:title")),
		Duration: parseSeconds(meta(doc, "music:duration")),
		URL:      u,
	}
	parts := strings.Split(meta(doc, "og:description"), " · ")
	if len(parts) > 0 {
		t.Artist = strings.TrimSpace(parts[0])
	}
	if len(parts) > 2 {
		t.Album = strings.TrimSpace(parts[1])
	}
	if t.Artist == "" {
		t.Artist = meta(doc, "music:musician_description")
	}
	return t
}

func cleanSpotifyTitle(title string) string {
	for _, suffix := range []string{" - song and lyrics by", " - Album by", " - playlist by", " | Spotify"} {
		if i := strings.Index(title, suffix); i != -1 {
			title = title[:i]
		}
	}
	return strings.TrimSpace(title)
}

package media

import (
	"net/url"
	"strings"
)

// Source identifies the platform a track or group was fetched from.
type Source int

const (
	SourceYouTube Source = iota
	SourceSpotify
	SourceSoundCloud
	SourceBandcamp
)

// Sources lists every variant, in declaration order.
var Sources = []Source{SourceYouTube, SourceSpotify, SourceSoundCloud, SourceBandcamp}

func (s Source) String() string {
	switch s {
	case SourceYouTube:
		return "YouTube"
	case SourceSpotify:
		return "Spotify"
	case SourceSoundCloud:
		return "SoundCloud"
	case SourceBandcamp:
		return "Bandcamp"
	}
	return "Unknown"
}

// Playable reports whether tracks from this source can be streamed from their
// own URL. Spotify references must be matched against another catalog first.
func (s Source) Playable() bool {
	return s != SourceSpotify
}

// SourceFromURL classifies a link by its host.
func SourceFromURL(raw string) (Source, bool) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		return 0, false
	}
	host := strings.ToLower(strings.TrimPrefix(u.Hostname(), "www."))

	switch {
	case host == "youtube.com", host == "m.youtube.com", host == "music.youtube.com", host == "youtu.be":
		return SourceYouTube, true
	case host == "open.spotify.com", host == "spotify.link", host == "play.spotify.com":
		return SourceSpotify, true
	case host == "soundcloud.com", host == "m.soundcloud.com", host == "on.soundcloud.com":
		return SourceSoundCloud, true
	case host == "bandcamp.com", strings.HasSuffix(host, ".bandcamp.com"):
		return SourceBandcamp, true
	}
	return 0, false
}

// IsURL reports whether the input looks like a link rather than a search query.
func IsURL(raw string) bool {
	raw = strings.TrimSpace(raw)
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}

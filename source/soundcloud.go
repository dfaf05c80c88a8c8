package source

import (
	"context"
	"net/url"
	"strings"

	"github.com/leeineian/cadence/media"
)

// SoundCloud reads track and set metadata through yt-dlp.
type SoundCloud struct {
	limit int
}

func NewSoundCloud() *SoundCloud {
	return &SoundCloud{limit: DefaultGroupLimit}
}

func (s *SoundCloud) IsGroup(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.Contains(u.Path, "/sets/")
}

func (s *SoundCloud) FetchTrack(ctx context.Context, rawURL string) (*media.TrackInfo, error) {
	e, err := ytdlpTrack(ctx, rawURL)
	if err != nil {
		return nil, &media.ResolutionError{Op: "soundcloud track", Err: err}
	}
	return e.track(media.SourceSoundCloud), nil
}

func (s *SoundCloud) FetchGroup(ctx context.Context, rawURL string) (*media.MediaGroup, error) {
	entries, err := ytdlpPlaylist(ctx, rawURL, s.limit)
	if err != nil {
		return nil, &media.ResolutionError{Op: "soundcloud set", Err: err}
	}
	return groupFromEntries(media.SourceSoundCloud, entries), nil
}

package source

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lrstanley/go-ytdlp"

	"github.com/leeineian/cadence/media"
)

// DefaultGroupLimit caps how many entries are read from a playlist.
const DefaultGroupLimit = 200

const (
	trackTemplate = "%(webpage_url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(album)s"
	entryTemplate = "%(url)s\t%(title)s\t%(uploader)s\t%(duration)s\t%(playlist_title)s"
)

var errNoMetadata = errors.New("yt-dlp returned no metadata")

// ytdlpEntry is one line of yt-dlp print output.
type ytdlpEntry struct {
	URL      string
	Title    string
	Uploader string
	Duration time.Duration
	// Extra is the album for single tracks and the playlist title for entries.
	Extra string
}

// ytdlpTrack reads metadata of a single link without downloading it.
func ytdlpTrack(ctx context.Context, u string) (*ytdlpEntry, error) {
	res, err := ytdlp.New().
		Print(trackTemplate).
		NoPlaylist().
		NoWarnings().
		IgnoreConfig().
		Run(ctx, "--skip-download", u)
	if err != nil {
		return nil, ytdlpError(res, err)
	}
	entries := parseEntries(res.Stdout)
	if len(entries) == 0 {
		return nil, errNoMetadata
	}
	return &entries[0], nil
}

// ytdlpPlaylist lists a playlist without resolving each entry.
func ytdlpPlaylist(ctx context.Context, u string, limit int) ([]ytdlpEntry, error) {
	res, err := ytdlp.New().
		FlatPlaylist().
		Print(entryTemplate).
		PlaylistItems(fmt.Sprintf("1-%d", limit)).
		NoWarnings().
		IgnoreConfig().
		Run(ctx, u)
	if err != nil {
		return nil, ytdlpError(res, err)
	}
	entries := parseEntries(res.Stdout)
	if len(entries) == 0 {
		return nil, errNoMetadata
	}
	return entries, nil
}

func ytdlpError(res *ytdlp.Result, err error) error {
	if res != nil && strings.Contains(strings.ToLower(res.Stderr), "drm") {
		return fmt.Errorf("DRM protected: %w", err)
	}
	return err
}

// parseEntries splits tab separated print output. yt-dlp prints "NA" for
// missing fields.
func parseEntries(stdout string) []ytdlpEntry {
	var out []ytdlpEntry
	for _, line := range strings.Split(strings.TrimSpace(stdout), "\n") {
		ps := strings.Split(line, "\t")
		if len(ps) < 4 {
			continue
		}
		for i := range ps {
			if ps[i] == "NA" {
				ps[i] = ""
			}
		}
		e := ytdlpEntry{URL: ps[0], Title: ps[1], Uploader: ps[2], Duration: parseSeconds(ps[3])}
		if len(ps) > 4 {
			e.Extra = ps[4]
		}
		if e.URL == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}

// parseSeconds accepts "215" or "215.4".
func parseSeconds(s string) time.Duration {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || f < 0 {
		return 0
	}
	return time.Duration(f * float64(time.Second))
}

// parseClock parses "3:20" or "1:05:20".
func parseClock(s string) time.Duration {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0
	}
	var total int
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return 0
		}
		total = total*60 + n
	}
	return time.Duration(total) * time.Second
}

func (e *ytdlpEntry) track(src media.Source) *media.TrackInfo {
	return &media.TrackInfo{
		Source:   src,
		Title:    e.Title,
		Artist:   e.Uploader,
		Album:    e.Extra,
		Duration: e.Duration,
		URL:      e.URL,
	}
}

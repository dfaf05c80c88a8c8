package media

import (
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// TrackInfo describes a single track. Apart from the resolution cache, which
// may be written once, it is never mutated after construction.
type TrackInfo struct {
	Source   Source
	Title    string
	Artist   string
	Album    string
	Duration time.Duration
	URL      string
	ISRC     string

	resolveOnce sync.Once
	resolveMu   sync.RWMutex
	resolved    string
}

// CacheResolved records the playable URL this track was matched to. Only the
// first call has any effect; it reports whether this call stored the value.
func (t *TrackInfo) CacheResolved(url string) bool {
	stored := false
	t.resolveOnce.Do(func() {
		t.resolveMu.Lock()
		t.resolved = url
		t.resolveMu.Unlock()
		stored = true
	})
	return stored
}

// Resolved returns the cached playable URL, if any.
func (t *TrackInfo) Resolved() (string, bool) {
	t.resolveMu.RLock()
	defer t.resolveMu.RUnlock()
	return t.resolved, t.resolved != ""
}

// Display renders "Title · Artist" for status lines.
func (t *TrackInfo) Display() string {
	if t.Artist == "" {
		return t.Title
	}
	return fmt.Sprintf("%s · %s", t.Title, t.Artist)
}

// QueueItem is a queued track and the user who requested it.
type QueueItem struct {
	Track     *TrackInfo
	Requester snowflake.ID
}

// ResolvedPlayable is the item the player committed to, with its stream URL.
type ResolvedPlayable struct {
	Track     *TrackInfo
	StreamURL string
	Requester snowflake.ID
	StartedAt time.Time
}

// Timestamp renders the track duration as m:ss or h:mm:ss.
func (p *ResolvedPlayable) Timestamp() string {
	return FormatTimestamp(p.Track.Duration)
}

// FormatTimestamp renders d as m:ss, or h:mm:ss when at least an hour long.
func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d.Round(time.Second).Seconds())
	h, m, s := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

// TruncateCenter shortens s to maxLen runes keeping its start and end.
func TruncateCenter(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	k := (maxLen - 3) / 2
	return string(r[:k]) + "..." + string(r[len(r)-k:])
}

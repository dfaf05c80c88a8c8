package home

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/sys"
)

func track(title string, d time.Duration) *media.TrackInfo {
	return &media.TrackInfo{Source: media.SourceYouTube, Title: title, Artist: "Artist", Duration: d, URL: "https://youtu.be/" + title}
}

func TestRenderQueue(t *testing.T) {
	var q []media.QueueItem
	for i := range queuePageSize + 2 {
		q = append(q, media.QueueItem{Track: track(string(rune('a'+i)), time.Minute), Requester: 1})
	}
	snap := player.Snapshot{
		NowPlaying: &media.ResolvedPlayable{Track: track("now", 3*time.Minute), Requester: 42},
		Queue:      q,
		Looping:    true,
	}

	out := renderQueue(snap, 12*time.Minute)
	assert.Contains(t, out, "now · Artist")
	assert.Contains(t, out, "<@42>")
	assert.Contains(t, out, "**Queue** (12 tracks, 12:00) 🔁")
	assert.Contains(t, out, "`1.` a · Artist `1:00`")
	assert.Contains(t, out, "`10.` j · Artist")
	assert.NotContains(t, out, "`11.`")
	assert.Contains(t, out, "...and 2 more.")
}

func TestRenderQueueEmpty(t *testing.T) {
	assert.Equal(t, sys.MsgMusicQueueEmpty, renderQueue(player.Snapshot{}, 0))
}

func TestRenderNowPlaying(t *testing.T) {
	snap := player.Snapshot{
		State:      player.StatePaused,
		NowPlaying: &media.ResolvedPlayable{Track: track("song", 4*time.Minute), Requester: 5},
		Elapsed:    90 * time.Second,
	}
	out := renderNowPlaying(snap)
	assert.Contains(t, out, "`1:30 / 4:00`")
	assert.Contains(t, out, "<@5>")
	assert.Contains(t, out, "paused")
	assert.NotContains(t, out, "looping")

	snap.State = player.StatePlaying
	snap.SleepAt = time.Unix(1700000000, 0)
	out = renderNowPlaying(snap)
	assert.NotContains(t, out, "paused")
	assert.Contains(t, out, "<t:1700000000:R>")
}

func TestRenderHistory(t *testing.T) {
	out := renderHistory([]*sys.PlayRecord{
		{URL: "https://youtu.be/x", Title: "X · Y", RequesterID: 9, PlayedAt: time.Unix(1700000000, 0)},
	})
	assert.Contains(t, out, sys.MsgMusicHistoryHeader)
	assert.Contains(t, out, "<t:1700000000:R> [X · Y](https://youtu.be/x) <@9>")
}

func TestParseSleepTimeDuration(t *testing.T) {
	now := time.Date(2026, 1, 1, 20, 0, 0, 0, time.UTC)
	at, err := parseSleepTime(" 30m ", now)
	require.NoError(t, err)
	assert.Equal(t, now.Add(30*time.Minute), at)
}

func TestDescribeLookupError(t *testing.T) {
	out := describeLookupError("some song", &media.NotFoundError{URL: "some song"})
	assert.Contains(t, out, "No results for **some song**")

	out = describeLookupError("https://example.com/x", &media.NotFoundError{URL: "https://example.com/x"})
	assert.Contains(t, out, "Could not load that link")
}

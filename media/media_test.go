package media

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceFromURL(t *testing.T) {
	tests := []struct {
		url  string
		want Source
		ok   bool
	}{
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", SourceYouTube, true},
		{"https://youtu.be/dQw4w9WgXcQ", SourceYouTube, true},
		{"https://music.youtube.com/watch?v=abc", SourceYouTube, true},
		{"https://open.spotify.com/track/4uLU6hMCjMI75M1A2tKUQC", SourceSpotify, true},
		{"https://soundcloud.com/artist/song", SourceSoundCloud, true},
		{"https://artist.bandcamp.com/track/song", SourceBandcamp, true},
		{"https://example.com/song.mp3", 0, false},
		{"never gonna give you up", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, ok := SourceFromURL(tt.url)
			assert.Equal(t, tt.ok, ok)
			if tt.ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestSourcePlayable(t *testing.T) {
	assert.True(t, SourceYouTube.Playable())
	assert.True(t, SourceSoundCloud.Playable())
	assert.True(t, SourceBandcamp.Playable())
	assert.False(t, SourceSpotify.Playable())
}

func TestCacheResolvedOnce(t *testing.T) {
	track := &TrackInfo{Source: SourceSpotify, Title: "Song A"}

	_, ok := track.Resolved()
	assert.False(t, ok)

	assert.True(t, track.CacheResolved("https://www.youtube.com/watch?v=first"))
	assert.False(t, track.CacheResolved("https://www.youtube.com/watch?v=second"))

	url, ok := track.Resolved()
	assert.True(t, ok)
	assert.Equal(t, "https://www.youtube.com/watch?v=first", url)
}

func TestMediaGroup(t *testing.T) {
	g := &MediaGroup{
		Source: SourceSpotify,
		Title:  "Album Y",
		Tracks: []*TrackInfo{
			{Source: SourceSpotify, Title: "One", Duration: 3 * time.Minute},
			{Source: SourceSpotify, Title: "Two", Duration: 4*time.Minute + 30*time.Second},
		},
	}

	assert.Equal(t, 7*time.Minute+30*time.Second, g.TotalDuration())
	assert.NoError(t, g.Validate())

	g.Tracks = append(g.Tracks, &TrackInfo{Source: SourceYouTube, Title: "Three"})
	assert.Error(t, g.Validate())

	g.Mixed = true
	assert.NoError(t, g.Validate())

	items := g.Items(42)
	require.Len(t, items, 3)
	assert.EqualValues(t, 42, items[2].Requester)
	assert.Same(t, g.Tracks[0], items[0].Track)
}

func TestFormatTimestamp(t *testing.T) {
	assert.Equal(t, "0:00", FormatTimestamp(0))
	assert.Equal(t, "3:07", FormatTimestamp(3*time.Minute+7*time.Second))
	assert.Equal(t, "1:02:03", FormatTimestamp(time.Hour+2*time.Minute+3*time.Second))
}

func TestCheckDuration(t *testing.T) {
	track := &TrackInfo{Title: "Long Mix", Duration: 6 * time.Hour}

	err := CheckDuration(track, 5*time.Hour)
	var exceeded *DurationExceededError
	require.True(t, errors.As(err, &exceeded))
	assert.Equal(t, 5*time.Hour, exceeded.Limit)

	assert.NoError(t, CheckDuration(track, 0))
	assert.NoError(t, CheckDuration(&TrackInfo{Duration: time.Hour}, 5*time.Hour))
}

func TestErrorsUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	assert.ErrorIs(t, &ResolutionError{Op: "search", Err: cause}, cause)
	assert.ErrorIs(t, &UnavailableMediaError{Title: "x", Err: cause}, cause)
}

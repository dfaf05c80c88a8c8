package source

import (
	"strings"
	"testing"
	"time"

	"github.com/raitonoberu/ytmusic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/cadence/media"
)

func TestParseEntries(t *testing.T) {
	out := "https://soundcloud.com/a/one\tOne\tArtist\t215.5\tMy Set\n" +
		"garbage line\n" +
		"https://soundcloud.com/a/two\tTwo\tNA\tNA\tMy Set\n" +
		"NA\tMissing\tArtist\t10\tMy Set\n"

	entries := parseEntries(out)
	require.Len(t, entries, 2)
	assert.Equal(t, ytdlpEntry{
		URL:      "https://soundcloud.com/a/one",
		Title:    "One",
		Uploader: "Artist",
		Duration: 215*time.Second + 500*time.Millisecond,
		Extra:    "My Set",
	}, entries[0])
	assert.Empty(t, entries[1].Uploader)
	assert.Zero(t, entries[1].Duration)

	g := groupFromEntries(media.SourceSoundCloud, entries)
	assert.Equal(t, "My Set", g.Title)
	assert.Empty(t, g.Tracks[0].Album)
	assert.NoError(t, g.Validate())
}

func TestParseClock(t *testing.T) {
	tests := map[string]time.Duration{
		"3:20":    3*time.Minute + 20*time.Second,
		"1:05:20": time.Hour + 5*time.Minute + 20*time.Second,
		" 0:07 ":  7 * time.Second,
		"42":      0,
		"a:b":     0,
		"":        0,
	}
	for in, want := range tests {
		assert.Equal(t, want, parseClock(in), in)
	}
}

func TestParseSpotifyURL(t *testing.T) {
	tests := []struct {
		in   string
		want spotifyLink
	}{
		{"https://open.spotify.com/track/4cOdK2wGLETKBW3PvgPWqT?si=abc", spotifyLink{"track", "4cOdK2wGLETKBW3PvgPWqT"}},
		{"https://open.spotify.com/intl-de/album/1ATL5GLyefJaxhQzSPVrLX", spotifyLink{"album", "1ATL5GLyefJaxhQzSPVrLX"}},
		{"https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M", spotifyLink{"playlist", "37i9dQZF1DXcBWIGoYBM5M"}},
		{"spotify:track:4cOdK2wGLETKBW3PvgPWqT", spotifyLink{"track", "4cOdK2wGLETKBW3PvgPWqT"}},
	}
	for _, tt := range tests {
		got, err := parseSpotifyURL(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	for _, bad := range []string{"https://open.spotify.com/artist/0OdUWJ0sBjDrqHygGUXeCF", "https://open.spotify.com/track/", "spotify:track"} {
		_, err := parseSpotifyURL(bad)
		assert.ErrorIs(t, err, ErrUnsupportedURL, bad)
	}
}

func TestIsGroup(t *testing.T) {
	yt := &YouTube{}
	assert.True(t, yt.IsGroup("https://www.youtube.com/playlist?list=PL123"))
	assert.False(t, yt.IsGroup("https://www.youtube.com/watch?v=abc&list=RDabc"))
	assert.False(t, yt.IsGroup("https://youtu.be/abc"))

	sp := &Spotify{}
	assert.True(t, sp.IsGroup("https://open.spotify.com/album/1"))
	assert.True(t, sp.IsGroup("https://open.spotify.com/playlist/1"))
	assert.False(t, sp.IsGroup("https://open.spotify.com/track/1"))

	sc := NewSoundCloud()
	assert.True(t, sc.IsGroup("https://soundcloud.com/artist/sets/best-of"))
	assert.False(t, sc.IsGroup("https://soundcloud.com/artist/song"))

	bc := &Bandcamp{}
	assert.True(t, bc.IsGroup("https://artist.bandcamp.com/album/record"))
	assert.False(t, bc.IsGroup("https://artist.bandcamp.com/track/song"))
}

const spotifyTrackPage = `<html><head>
<meta property="og:title" content="Blinding Lights - song and lyrics by The Weeknd | Spotify">
<meta property="og:description" content="The Weeknd · After Hours · Song · 2020">
<meta name="music:duration" content="200">
</head><body></body></html>`

func TestTrackFromSpotifyPage(t *testing.T) {
	doc, err := parseDocument(strings.NewReader(spotifyTrackPage))
	require.NoError(t, err)

	tr := trackFromSpotifyPage(doc, "https://open.spotify.com/track/x")
	assert.Equal(t, media.SourceSpotify, tr.Source)
	assert.Equal(t, "Blinding Lights", tr.Title)
	assert.Equal(t, "The Weeknd", tr.Artist)
	assert.Equal(t, "After Hours", tr.Album)
	assert.Equal(t, 200*time.Second, tr.Duration)
}

const bandcampAlbumPage = `<html><head>
<meta name="title" content="Night Drive, by Neon Coast">
<meta property="og:site_name" content="Neon Coast">
</head><body>
<table id="track_table">
<tr class="track_row_view"><td><div class="title"><a href="/track/first-light"><span class="track-title">First Light</span></a><span class="time">3:05</span></div></td></tr>
<tr class="track_row_view"><td><div class="title"><span class="track-title">Hidden</span><span class="time">2:00</span></div></td></tr>
<tr class="track_row_view"><td><div class="title"><a href="/track/horizon"><span class="track-title">Horizon</span></a><span class="time">1:02:03</span></div></td></tr>
</table>
</body></html>`

func TestGroupFromBandcampPage(t *testing.T) {
	doc, err := parseDocument(strings.NewReader(bandcampAlbumPage))
	require.NoError(t, err)

	g := groupFromBandcampPage(doc, "https://neoncoast.bandcamp.com/album/night-drive")
	assert.Equal(t, "Night Drive", g.Title)
	require.Len(t, g.Tracks, 2)
	assert.Equal(t, "First Light", g.Tracks[0].Title)
	assert.Equal(t, "Neon Coast", g.Tracks[0].Artist)
	assert.Equal(t, "https://neoncoast.bandcamp.com/track/first-light", g.Tracks[0].URL)
	assert.Equal(t, 3*time.Minute+5*time.Second, g.Tracks[0].Duration)
	assert.Equal(t, time.Hour+2*time.Minute+3*time.Second, g.Tracks[1].Duration)
	assert.NoError(t, g.Validate())
}

func TestTracksFromSongs(t *testing.T) {
	items := []*ytmusic.TrackItem{
		{
			VideoID:  "abc",
			Title:    "Song",
			Artists:  []ytmusic.Artist{{Name: "A"}, {Name: "B"}},
			Album:    ytmusic.Album{Name: "Album"},
			Duration: 185,
		},
		{Title: "no id"},
		nil,
	}

	out := tracksFromSongs(items)
	require.Len(t, out, 1)
	assert.Equal(t, "Song", out[0].Title)
	assert.Equal(t, "A, B", out[0].Artist)
	assert.Equal(t, "Album", out[0].Album)
	assert.Equal(t, 185*time.Second, out[0].Duration)
	assert.Equal(t, "https://music.youtube.com/watch?v=abc", out[0].URL)
	assert.Equal(t, media.SourceYouTube, out[0].Source)
}

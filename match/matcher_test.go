package match

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/cadence/media"
)

type fakeCatalog struct {
	mu      sync.Mutex
	songs   []*media.TrackInfo
	videos  []*media.TrackInfo
	isrc    map[string]*media.TrackInfo
	err     error
	queries []string
}

// Search answers ISRC lookups (single-token queries) from the isrc map and
// text queries from the song or video list.
func (f *fakeCatalog) Search(_ context.Context, q string, filter Filter, limit int) ([]*media.TrackInfo, error) {
	f.mu.Lock()
	f.queries = append(f.queries, filter.String()+":"+q)
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	if !strings.Contains(q, " ") {
		if hit, ok := f.isrc[q]; ok {
			return []*media.TrackInfo{hit}, nil
		}
		return nil, nil
	}
	list := f.songs
	if filter == FilterVideo {
		list = f.videos
	}
	if len(list) > limit {
		list = list[:limit]
	}
	return list, nil
}

func reference() *media.TrackInfo {
	return &media.TrackInfo{
		Source:   media.SourceSpotify,
		Title:    "Song A",
		Artist:   "Artist X",
		Album:    "Album Y",
		Duration: 3 * time.Minute,
		URL:      "https://open.spotify.com/track/abc",
	}
}

func yt(title, artist, album string) *media.TrackInfo {
	return &media.TrackInfo{
		Source:   media.SourceYouTube,
		Title:    title,
		Artist:   artist,
		Album:    album,
		Duration: 3 * time.Minute,
		URL:      "https://music.youtube.com/watch?v=" + strings.ReplaceAll(title, " ", ""),
	}
}

func TestResolveExact(t *testing.T) {
	want := yt("Song A", "Artist X", "Album Y")
	m := New(&fakeCatalog{songs: []*media.TrackInfo{want}}, Options{})

	res, err := m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	assert.Equal(t, Exact, res.Kind)
	assert.Same(t, want, res.Track)
}

func TestResolveBelowThreshold(t *testing.T) {
	assert.Less(t, Ratio("Song A", "Other Tune"), DefaultThreshold)

	t.Run("ambiguous when candidates exist", func(t *testing.T) {
		cand := yt("Other Tune", "Artist X", "Album Y")
		m := New(&fakeCatalog{songs: []*media.TrackInfo{cand}}, Options{})

		res, err := m.Resolve(context.Background(), reference())
		require.NoError(t, err)
		assert.Equal(t, Ambiguous, res.Kind)
		assert.Equal(t, []*media.TrackInfo{cand}, res.Candidates)
	})

	t.Run("no match when catalog is empty", func(t *testing.T) {
		m := New(&fakeCatalog{}, Options{})

		res, err := m.Resolve(context.Background(), reference())
		require.NoError(t, err)
		assert.Equal(t, NoMatch, res.Kind)
		assert.Empty(t, res.Candidates)
	})
}

func TestResolveRemixGuard(t *testing.T) {
	remix := yt("Song A (Remix)", "Artist X", "Album Y")
	m := New(&fakeCatalog{songs: []*media.TrackInfo{remix}}, Options{})

	res, err := m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, res.Kind)

	ref := reference()
	ref.Title = "Song A (Remix)"
	res, err = m.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, Exact, res.Kind)
}

func TestResolveVideoPass(t *testing.T) {
	wrongAlbum := yt("Song A", "Artist X", "Greatest Hits Collection")
	video := yt("Song A", "Artist X - Topic", "")
	m := New(&fakeCatalog{songs: []*media.TrackInfo{wrongAlbum}, videos: []*media.TrackInfo{video}}, Options{})

	res, err := m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	assert.Equal(t, Exact, res.Kind)
	assert.Same(t, video, res.Track)
}

func TestResolveForceNoMatch(t *testing.T) {
	same := yt("Song A", "Artist X", "Album Y")
	m := New(&fakeCatalog{songs: []*media.TrackInfo{same}}, Options{ForceNoMatch: true})

	res, err := m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	assert.Equal(t, Ambiguous, res.Kind)
	assert.Equal(t, []*media.TrackInfo{same}, res.Candidates)
}

func TestResolveAmbiguousOrder(t *testing.T) {
	cat := &fakeCatalog{
		songs:  []*media.TrackInfo{yt("First Song", "", ""), yt("Second Song", "", ""), yt("Third Song", "", "")},
		videos: []*media.TrackInfo{yt("First Video", "", ""), yt("Second Video", "", ""), yt("Third Video", "", "")},
	}
	m := New(cat, Options{})

	res, err := m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	require.Equal(t, Ambiguous, res.Kind)

	var titles []string
	for _, c := range res.Candidates {
		titles = append(titles, c.Title)
	}
	assert.Equal(t, []string{"First Song", "Second Song", "First Video", "Second Video"}, titles)
}

func TestResolveISRC(t *testing.T) {
	hit := yt("Song A", "Someone Else", "")
	cat := &fakeCatalog{isrc: map[string]*media.TrackInfo{"USRC17607839": hit}}
	m := New(cat, Options{})

	ref := reference()
	ref.ISRC = "USRC17607839"
	res, err := m.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, Exact, res.Kind)
	assert.Same(t, hit, res.Track)
	assert.Equal(t, []string{"song:USRC17607839"}, cat.queries)
}

func TestResolveISRCFallsBackToText(t *testing.T) {
	want := yt("Song A", "Artist X", "Album Y")
	cat := &fakeCatalog{
		isrc:  map[string]*media.TrackInfo{"USRC17607839": yt("Unrelated Title", "", "")},
		songs: []*media.TrackInfo{want},
	}
	m := New(cat, Options{})

	ref := reference()
	ref.ISRC = "USRC17607839"
	res, err := m.Resolve(context.Background(), ref)
	require.NoError(t, err)
	assert.Equal(t, Exact, res.Kind)
	assert.Same(t, want, res.Track)
	assert.Len(t, cat.queries, 3)
}

func TestResolveDurationCeiling(t *testing.T) {
	long := yt("Song A", "Artist X", "Album Y")
	long.Duration = 6 * time.Hour
	m := New(&fakeCatalog{songs: []*media.TrackInfo{long}}, Options{})

	res, err := m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	assert.Equal(t, NoMatch, res.Kind)

	m = New(&fakeCatalog{songs: []*media.TrackInfo{long}}, Options{MaxDuration: 7 * time.Hour})
	res, err = m.Resolve(context.Background(), reference())
	require.NoError(t, err)
	assert.Equal(t, Exact, res.Kind)
}

func TestResolveCatalogError(t *testing.T) {
	m := New(&fakeCatalog{err: errors.New("dial tcp: connection refused")}, Options{})

	_, err := m.Resolve(context.Background(), reference())
	var resErr *media.ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Contains(t, err.Error(), "connection refused")
}

package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/cadence/media"
)

type fakeStrategy struct {
	src    media.Source
	group  bool
	tracks int
	err    error
	calls  []string
}

func (f *fakeStrategy) IsGroup(string) bool { return f.group }

func (f *fakeStrategy) FetchTrack(_ context.Context, u string) (*media.TrackInfo, error) {
	f.calls = append(f.calls, "track:"+u)
	if f.err != nil {
		return nil, f.err
	}
	return &media.TrackInfo{Source: f.src, Title: "t", URL: u}, nil
}

func (f *fakeStrategy) FetchGroup(_ context.Context, u string) (*media.MediaGroup, error) {
	f.calls = append(f.calls, "group:"+u)
	if f.err != nil {
		return nil, f.err
	}
	g := &media.MediaGroup{Source: f.src, Title: "g"}
	for range f.tracks {
		g.Tracks = append(g.Tracks, &media.TrackInfo{Source: f.src, Title: "t", Duration: time.Minute})
	}
	return g, nil
}

type fakeSearcher struct {
	results []*media.TrackInfo
	err     error
	queries []string
}

func (f *fakeSearcher) Search(_ context.Context, q string, limit int) ([]*media.TrackInfo, error) {
	f.queries = append(f.queries, q)
	if f.err != nil {
		return nil, f.err
	}
	return f.results[:min(limit, len(f.results))], nil
}

func fakeStrategies() map[media.Source]Strategy {
	out := map[media.Source]Strategy{}
	for _, src := range media.Sources {
		out[src] = &fakeStrategy{src: src, tracks: 2}
	}
	return out
}

func TestNewRegistryRequiresEverySource(t *testing.T) {
	strategies := fakeStrategies()
	delete(strategies, media.SourceBandcamp)

	_, err := NewRegistry(strategies, &fakeSearcher{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Bandcamp")

	_, err = NewRegistry(fakeStrategies(), nil)
	assert.Error(t, err)

	r, err := NewRegistry(fakeStrategies(), &fakeSearcher{})
	require.NoError(t, err)
	for _, src := range media.Sources {
		assert.NotNil(t, r.Strategy(src), src.String())
	}
}

func TestRegistryDispatchesByHost(t *testing.T) {
	strategies := fakeStrategies()
	r, err := NewRegistry(strategies, &fakeSearcher{})
	require.NoError(t, err)

	links := map[string]media.Source{
		"https://www.youtube.com/watch?v=abc":         media.SourceYouTube,
		"https://open.spotify.com/track/xyz":          media.SourceSpotify,
		"https://soundcloud.com/artist/song":          media.SourceSoundCloud,
		"https://artist.bandcamp.com/track/some-song": media.SourceBandcamp,
	}
	for link, src := range links {
		l, err := r.Lookup(context.Background(), "  "+link+" ")
		require.NoError(t, err, link)
		require.NotNil(t, l.Track)
		assert.Equal(t, src, l.Track.Source)
		assert.Equal(t, []string{"track:" + link}, strategies[src].(*fakeStrategy).calls)
	}
}

func TestRegistryLookupGroup(t *testing.T) {
	strategies := fakeStrategies()
	yt := strategies[media.SourceYouTube].(*fakeStrategy)
	yt.group = true
	r, err := NewRegistry(strategies, &fakeSearcher{})
	require.NoError(t, err)

	l, err := r.Lookup(context.Background(), "https://www.youtube.com/playlist?list=PL1")
	require.NoError(t, err)
	require.NotNil(t, l.Group)
	assert.Nil(t, l.Track)

	qi := l.Items(42)
	require.Len(t, qi, 2)
	assert.Equal(t, 42, int(qi[0].Requester))

	yt.tracks = 0
	_, err = r.Lookup(context.Background(), "https://www.youtube.com/playlist?list=PL2")
	var nf *media.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRegistryLookupSearch(t *testing.T) {
	hit := &media.TrackInfo{Source: media.SourceYouTube, Title: "hit"}
	search := &fakeSearcher{results: []*media.TrackInfo{hit}}
	r, err := NewRegistry(fakeStrategies(), search)
	require.NoError(t, err)

	l, err := r.Lookup(context.Background(), "never gonna give you up")
	require.NoError(t, err)
	assert.Same(t, hit, l.Track)
	assert.Equal(t, []string{"never gonna give you up"}, search.queries)

	search.results = nil
	_, err = r.Lookup(context.Background(), "nothing")
	var nf *media.NotFoundError
	assert.ErrorAs(t, err, &nf)

	search.err = errors.New("offline")
	_, err = r.Lookup(context.Background(), "anything")
	var re *media.ResolutionError
	assert.ErrorAs(t, err, &re)

	_, err = r.Lookup(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrEmptyQuery)
}

func TestRegistryRejectsUnknownHosts(t *testing.T) {
	r, err := NewRegistry(fakeStrategies(), &fakeSearcher{})
	require.NoError(t, err)

	_, err = r.Lookup(context.Background(), "https://example.com/song.mp3")
	assert.ErrorIs(t, err, ErrUnsupportedURL)
}

func TestRegistryPropagatesFetchErrors(t *testing.T) {
	strategies := fakeStrategies()
	boom := &media.ResolutionError{Op: "soundcloud track", Err: errors.New("403")}
	strategies[media.SourceSoundCloud].(*fakeStrategy).err = boom
	r, err := NewRegistry(strategies, &fakeSearcher{})
	require.NoError(t, err)

	_, err = r.Lookup(context.Background(), "https://soundcloud.com/a/b")
	assert.ErrorIs(t, err, boom)
}

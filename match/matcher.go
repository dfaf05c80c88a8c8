// Package match decides which catalog entry, if any, is the same recording
// as a reference track from another platform.
package match

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/leeineian/cadence/media"
)

// Filter selects the kind of catalog results to search.
type Filter int

const (
	FilterSong Filter = iota
	FilterVideo
)

func (f Filter) String() string {
	if f == FilterVideo {
		return "video"
	}
	return "song"
}

// Catalog is the secondary catalog candidates are drawn from.
type Catalog interface {
	Search(ctx context.Context, query string, filter Filter, limit int) ([]*media.TrackInfo, error)
}

const (
	DefaultThreshold   = 75
	DefaultMaxDuration = 5 * time.Hour

	// PassLimit is how many results each pass inspects.
	PassLimit = 5
	// MaxCandidates bounds an ambiguous result.
	MaxCandidates = 5

	ambiguousSongs  = 2
	ambiguousVideos = 2
)

// Kind is the outcome of a resolution.
type Kind int

const (
	NoMatch Kind = iota
	Exact
	Ambiguous
)

func (k Kind) String() string {
	switch k {
	case Exact:
		return "exact"
	case Ambiguous:
		return "ambiguous"
	}
	return "no match"
}

// Result holds the matched track for Exact, or the ranked candidates for Ambiguous.
type Result struct {
	Kind       Kind
	Track      *media.TrackInfo
	Candidates []*media.TrackInfo
}

// Options tunes a Matcher. Zero values fall back to the defaults.
type Options struct {
	Threshold   int
	MaxDuration time.Duration
	// ForceNoMatch rejects every candidate so the ambiguous path can be exercised.
	ForceNoMatch bool
}

type field int

const (
	fieldArtist field = 1 << iota
	fieldAlbum
)

// Matcher resolves reference tracks against a Catalog.
type Matcher struct {
	catalog Catalog
	opts    Options
}

func New(catalog Catalog, opts Options) *Matcher {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.MaxDuration <= 0 {
		opts.MaxDuration = DefaultMaxDuration
	}
	return &Matcher{catalog: catalog, opts: opts}
}

// Resolve looks for ref in the catalog. Catalog failures are returned as
// *media.ResolutionError; an empty catalog answer is NoMatch.
func (m *Matcher) Resolve(ctx context.Context, ref *media.TrackInfo) (Result, error) {
	if ref.ISRC != "" {
		hits, err := m.catalog.Search(ctx, ref.ISRC, FilterSong, 1)
		if err != nil {
			return Result{}, &media.ResolutionError{Op: "isrc lookup", Err: err}
		}
		hits = m.withinLimit(hits)
		if len(hits) > 0 && m.accept(ref, hits[0], fieldArtist|fieldAlbum) {
			return Result{Kind: Exact, Track: hits[0]}, nil
		}
	}

	songs, videos, err := m.search(ctx, query(ref))
	if err != nil {
		return Result{}, err
	}

	for _, c := range head(songs, PassLimit) {
		if m.accept(ref, c, fieldArtist) {
			return Result{Kind: Exact, Track: c}, nil
		}
	}
	for _, c := range head(videos, PassLimit) {
		if m.accept(ref, c, fieldArtist|fieldAlbum) {
			return Result{Kind: Exact, Track: c}, nil
		}
	}

	candidates := make([]*media.TrackInfo, 0, ambiguousSongs+ambiguousVideos)
	candidates = append(candidates, head(songs, ambiguousSongs)...)
	candidates = append(candidates, head(videos, ambiguousVideos)...)
	candidates = head(candidates, MaxCandidates)
	if len(candidates) == 0 {
		return Result{Kind: NoMatch}, nil
	}
	return Result{Kind: Ambiguous, Candidates: candidates}, nil
}

// search runs the song and video queries concurrently.
func (m *Matcher) search(ctx context.Context, q string) (songs, videos []*media.TrackInfo, err error) {
	var (
		wg              sync.WaitGroup
		songErr, vidErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		songs, songErr = m.catalog.Search(ctx, q, FilterSong, PassLimit)
	}()
	go func() {
		defer wg.Done()
		videos, vidErr = m.catalog.Search(ctx, q, FilterVideo, PassLimit)
	}()
	wg.Wait()

	if songErr != nil {
		return nil, nil, &media.ResolutionError{Op: "song search", Err: songErr}
	}
	if vidErr != nil {
		return nil, nil, &media.ResolutionError{Op: "video search", Err: vidErr}
	}
	return m.withinLimit(songs), m.withinLimit(videos), nil
}

func (m *Matcher) accept(ref, cand *media.TrackInfo, ignore field) bool {
	if m.opts.ForceNoMatch {
		return false
	}
	refTitle, candTitle := Normalize(ref.Title), Normalize(cand.Title)
	if !SameVersion(refTitle, candTitle) {
		return false
	}
	if Ratio(refTitle, candTitle) <= m.opts.Threshold {
		return false
	}
	if ignore&fieldArtist == 0 && !m.fieldMatches(ref.Artist, cand.Artist) {
		return false
	}
	if ignore&fieldAlbum == 0 && !m.fieldMatches(ref.Album, cand.Album) {
		return false
	}
	return true
}

// fieldMatches treats a field missing on either side as matching.
func (m *Matcher) fieldMatches(ref, cand string) bool {
	if ref == "" || cand == "" {
		return true
	}
	return Ratio(ref, cand) > m.opts.Threshold
}

func (m *Matcher) withinLimit(tracks []*media.TrackInfo) []*media.TrackInfo {
	out := tracks[:0:0]
	for _, t := range tracks {
		if t == nil || t.Duration > m.opts.MaxDuration {
			continue
		}
		out = append(out, t)
	}
	return out
}

func query(ref *media.TrackInfo) string {
	parts := make([]string, 0, 3)
	for _, p := range []string{Normalize(ref.Title), ref.Artist, ref.Album} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

func head(tracks []*media.TrackInfo, n int) []*media.TrackInfo {
	if len(tracks) > n {
		return tracks[:n]
	}
	return tracks
}

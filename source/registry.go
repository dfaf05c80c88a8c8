// Package source turns links and search queries into tracks. Each platform
// is served by one Strategy; the Registry dispatches on media.Source.
package source

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/sys"
)

var (
	ErrUnsupportedURL = errors.New("unsupported link")
	ErrEmptyQuery     = errors.New("empty query")
)

// Strategy fetches metadata from one platform.
type Strategy interface {
	// IsGroup reports whether the link points at an album or playlist.
	IsGroup(rawURL string) bool
	FetchTrack(ctx context.Context, rawURL string) (*media.TrackInfo, error)
	FetchGroup(ctx context.Context, rawURL string) (*media.MediaGroup, error)
}

// Searcher answers free-text queries.
type Searcher interface {
	Search(ctx context.Context, query string, limit int) ([]*media.TrackInfo, error)
}

// Lookup is what an input resolved to: exactly one of Track or Group is set.
type Lookup struct {
	Track *media.TrackInfo
	Group *media.MediaGroup
}

// Items returns the lookup as queue items.
func (l *Lookup) Items(requester snowflake.ID) []media.QueueItem {
	if l.Group != nil {
		return l.Group.Items(requester)
	}
	return []media.QueueItem{{Track: l.Track, Requester: requester}}
}

// Registry maps every media.Source to its Strategy.
type Registry struct {
	strategies map[media.Source]Strategy
	search     Searcher
}

// NewRegistry fails unless every source has a strategy and a searcher is set.
func NewRegistry(strategies map[media.Source]Strategy, search Searcher) (*Registry, error) {
	var missing []string
	for _, src := range media.Sources {
		if strategies[src] == nil {
			missing = append(missing, src.String())
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("no strategy for %s", strings.Join(missing, ", "))
	}
	if search == nil {
		return nil, errors.New("no search strategy")
	}
	return &Registry{strategies: strategies, search: search}, nil
}

// Strategy returns the strategy for src.
func (r *Registry) Strategy(src media.Source) Strategy {
	return r.strategies[src]
}

// Lookup resolves a link or the top search hit for free text.
func (r *Registry) Lookup(ctx context.Context, input string) (*Lookup, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return nil, ErrEmptyQuery
	}

	if !media.IsURL(input) {
		results, err := r.search.Search(ctx, input, 1)
		if err != nil {
			return nil, &media.ResolutionError{Op: "search", Err: err}
		}
		if len(results) == 0 {
			return nil, &media.NotFoundError{URL: input}
		}
		return &Lookup{Track: results[0]}, nil
	}

	src, ok := media.SourceFromURL(input)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, input)
	}
	s := r.strategies[src]

	if s.IsGroup(input) {
		g, err := s.FetchGroup(ctx, input)
		if err != nil {
			sys.LogSource(sys.MsgSourceFetchFail, input, err)
			return nil, err
		}
		if err := g.Validate(); err != nil {
			return nil, err
		}
		if len(g.Tracks) == 0 {
			return nil, &media.NotFoundError{URL: input}
		}
		return &Lookup{Group: g}, nil
	}

	t, err := s.FetchTrack(ctx, input)
	if err != nil {
		sys.LogSource(sys.MsgSourceFetchFail, input, err)
		return nil, err
	}
	return &Lookup{Track: t}, nil
}

// Search runs a free-text query, used for autocomplete.
func (r *Registry) Search(ctx context.Context, query string, limit int) ([]*media.TrackInfo, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	return r.search.Search(ctx, query, limit)
}

// Options configures the built-in strategies.
type Options struct {
	SpotifyClientID     string
	SpotifyClientSecret string
	HTTPClient          *http.Client
}

// NewDefault wires every built-in strategy, with YouTube answering searches.
func NewDefault(ctx context.Context, opts Options) (*Registry, error) {
	yt := NewYouTube(opts.HTTPClient)
	return NewRegistry(map[media.Source]Strategy{
		media.SourceYouTube:    yt,
		media.SourceSpotify:    NewSpotify(ctx, opts.SpotifyClientID, opts.SpotifyClientSecret, opts.HTTPClient),
		media.SourceSoundCloud: NewSoundCloud(),
		media.SourceBandcamp:   NewBandcamp(opts.HTTPClient),
	}, yt)
}

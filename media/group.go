package media

import (
	"fmt"
	"time"

	"github.com/disgoorg/snowflake/v2"
)

// MediaGroup is an album or playlist.
type MediaGroup struct {
	Source Source
	Title  string
	Tracks []*TrackInfo
	// Mixed marks playlist imports whose tracks may come from several sources.
	Mixed bool
}

// TotalDuration is the sum of the constituent track durations.
func (g *MediaGroup) TotalDuration() time.Duration {
	var total time.Duration
	for _, t := range g.Tracks {
		total += t.Duration
	}
	return total
}

// Validate checks that every track shares the group's source unless Mixed.
func (g *MediaGroup) Validate() error {
	if g.Mixed {
		return nil
	}
	for i, t := range g.Tracks {
		if t.Source != g.Source {
			return fmt.Errorf("group %q: track %d is from %s, expected %s", g.Title, i+1, t.Source, g.Source)
		}
	}
	return nil
}

// Items wraps each track as a QueueItem for the given requester.
func (g *MediaGroup) Items(requester snowflake.ID) []QueueItem {
	items := make([]QueueItem, 0, len(g.Tracks))
	for _, t := range g.Tracks {
		items = append(items, QueueItem{Track: t, Requester: requester})
	}
	return items
}

// Package vote counts skip votes against a member-relative threshold.
package vote

import (
	"fmt"
	"strings"
	"sync"

	"github.com/disgoorg/snowflake/v2"
)

// Mode selects how the required vote count is derived.
type Mode string

const (
	ModePercent Mode = "percent"
	ModeCount   Mode = "count"
)

// ParseMode accepts "percent" or "count", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case ModePercent, ModeCount:
		return m, nil
	}
	return "", fmt.Errorf("unknown vote mode %q", s)
}

// Policy is the configured skip threshold.
type Policy struct {
	Mode    Mode
	Percent int
	Count   int
}

// Required returns how many votes skip the current track with the given
// number of listeners. It is never less than one.
func (p Policy) Required(members int) int {
	var n int
	switch p.Mode {
	case ModeCount:
		n = p.Count
	default:
		// ceil(members * percent / 100) in integers
		n = (members*p.Percent + 99) / 100
	}
	return max(n, 1)
}

// Set is the set of users who voted to skip the current track.
type Set struct {
	mu     sync.Mutex
	voters map[snowflake.ID]struct{}
}

func NewSet() *Set {
	return &Set{voters: make(map[snowflake.ID]struct{})}
}

// Record adds a vote. A repeat vote from the same user is not counted again.
func (s *Set) Record(id snowflake.ID) (count int, added bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voters[id]; !ok {
		s.voters[id] = struct{}{}
		added = true
	}
	return len(s.voters), added
}

// Has reports whether id already voted.
func (s *Set) Has(id snowflake.ID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.voters[id]
	return ok
}

func (s *Set) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.voters)
}

func (s *Set) Reset() {
	s.mu.Lock()
	clear(s.voters)
	s.mu.Unlock()
}

// Tally is the state of a vote after a ballot was cast.
type Tally struct {
	Votes    int
	Required int
	Added    bool
	Approved bool
}

// Cast records id's vote and evaluates it against the listener count at the
// time of the vote.
func (p Policy) Cast(s *Set, id snowflake.ID, members int) Tally {
	votes, added := s.Record(id)
	required := p.Required(members)
	return Tally{Votes: votes, Required: required, Added: added, Approved: votes >= required}
}

// Package player runs the per-guild playback state machine: it pulls the next
// queued item, resolves it to a stream, hands it to the voice transport and
// reacts to track ends, skips and votes.
package player

import (
	"context"
	"errors"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/match"
	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/vote"
)

// State of a guild session.
type State int

const (
	StateIdle State = iota
	StatePlaying
	StatePaused
	StateAdvancing
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "playing"
	case StatePaused:
		return "paused"
	case StateAdvancing:
		return "advancing"
	}
	return "idle"
}

// Trigger is what asked the session to move on.
type Trigger int

const (
	TriggerEnqueue Trigger = iota
	TriggerTrackEnd
	TriggerSkip
	TriggerVote
)

func (t Trigger) String() string {
	switch t {
	case TriggerTrackEnd:
		return "track-end"
	case TriggerSkip:
		return "skip"
	case TriggerVote:
		return "vote-skip"
	}
	return "enqueue"
}

var (
	ErrNothingPlaying    = errors.New("nothing is playing")
	ErrNotPaused         = errors.New("playback is not paused")
	ErrAdvanceInProgress = errors.New("already advancing to the next track")
	ErrVotingDisabled    = errors.New("vote skipping is disabled")
)

// Transport plays one stream at a time. The returned channel yields once
// when playback ends: nil on natural completion, an error if the stream
// broke. It is closed or written to after Stop as well.
type Transport interface {
	Play(ctx context.Context, url string) (<-chan error, error)
	Stop()
	Pause()
	Resume()
	IsPlaying() bool
	IsPaused() bool
}

// StatusSetter is implemented by transports that can show the current
// track next to the voice channel. An empty text clears it.
type StatusSetter interface {
	SetStatus(text string)
}

// Notifier talks to the guild's text channel.
type Notifier interface {
	// SendChoicePrompt asks the requester which candidate matches ref. It
	// blocks until an answer or ctx is done and returns the chosen index or
	// media.ErrSelectionCancelled.
	SendChoicePrompt(ctx context.Context, requester snowflake.ID, ref *media.TrackInfo, candidates []*media.TrackInfo, timeout time.Duration) (int, error)
	SendStatus(text string)
	SendError(text string)
}

// Resolver matches a reference track from a non-playable source.
type Resolver interface {
	Resolve(ctx context.Context, ref *media.TrackInfo) (match.Result, error)
}

// History records every track the session commits to.
type History interface {
	RecordPlay(ctx context.Context, guildID snowflake.ID, p *media.ResolvedPlayable) error
}

// Config holds the per-session knobs.
type Config struct {
	MaxDuration     time.Duration
	ChoiceTimeout   time.Duration
	IdleTimeout     time.Duration
	VoteSkipEnabled bool
	Votes           vote.Policy
	LoopDefault     bool
}

// Snapshot is a consistent read of a session for display.
type Snapshot struct {
	State      State
	NowPlaying *media.ResolvedPlayable
	LastPlayed *media.ResolvedPlayable
	Elapsed    time.Duration
	Queue      []media.QueueItem
	Looping    bool
	Votes      int
	SleepAt    time.Time
}

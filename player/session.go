package player

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/match"
	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/queue"
	"github.com/leeineian/cadence/sys"
	"github.com/leeineian/cadence/vote"
)

// Deps are the collaborators a Session drives. History and OnLeave are optional.
type Deps struct {
	Transport Transport
	Notifier  Notifier
	Resolver  Resolver
	History   History
	// OnLeave is called when the idle timeout or the sleep timer fires.
	OnLeave func()
}

// Session owns one guild's queue and playback state.
type Session struct {
	GuildID snowflake.ID

	cfg       Config
	transport Transport
	notifier  Notifier
	resolver  Resolver
	history   History
	onLeave   func()

	queue *queue.MediaQueue
	votes *vote.Set

	// advanceMu is held for the whole of an advance. A trigger that cannot
	// take it is dropped.
	advanceMu sync.Mutex

	mu            sync.Mutex
	state         State
	nowPlaying    *media.ResolvedPlayable
	lastPlayed    *media.ResolvedPlayable
	current       *media.QueueItem
	generation    uint64
	cancelAdvance context.CancelFunc
	pausedAt      time.Time
	pauseDuration time.Duration
	idleTimer     *time.Timer
	sleepTimer    *time.Timer
	sleepAt       time.Time
}

func NewSession(guildID snowflake.ID, cfg Config, deps Deps) *Session {
	if cfg.ChoiceTimeout <= 0 {
		cfg.ChoiceTimeout = 30 * time.Second
	}
	return &Session{
		GuildID:   guildID,
		cfg:       cfg,
		transport: deps.Transport,
		notifier:  deps.Notifier,
		resolver:  deps.Resolver,
		history:   deps.History,
		onLeave:   deps.OnLeave,
		queue:     queue.New(cfg.LoopDefault),
		votes:     vote.NewSet(),
	}
}

// Queue exposes the guild queue for reordering commands.
func (s *Session) Queue() *queue.MediaQueue {
	return s.queue
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Enqueue appends items and starts playback if the session is idle. Items
// longer than the duration limit are left out; when nothing is left the
// first rejection is returned.
func (s *Session) Enqueue(items ...media.QueueItem) (queue.Range, error) {
	accepted := make([]media.QueueItem, 0, len(items))
	var rejected error
	for _, it := range items {
		if err := media.CheckDuration(it.Track, s.cfg.MaxDuration); err != nil {
			if rejected == nil {
				rejected = err
			}
			continue
		}
		accepted = append(accepted, it)
	}
	if len(accepted) == 0 {
		if rejected == nil {
			rejected = errors.New("nothing to enqueue")
		}
		return queue.Range{}, rejected
	}

	r := s.queue.Enqueue(accepted...)
	s.advance(TriggerEnqueue, 0)
	return r, nil
}

// Skip ends the current track and moves on.
func (s *Session) Skip() error {
	switch s.State() {
	case StatePlaying, StatePaused:
	case StateAdvancing:
		return ErrAdvanceInProgress
	default:
		return ErrNothingPlaying
	}
	if !s.advance(TriggerSkip, 0) {
		return ErrAdvanceInProgress
	}
	return nil
}

// VoteSkip casts voter's ballot against the number of listeners currently in
// the channel and skips once the threshold is reached.
func (s *Session) VoteSkip(voter snowflake.ID, listeners int) (vote.Tally, error) {
	if !s.cfg.VoteSkipEnabled {
		return vote.Tally{}, ErrVotingDisabled
	}
	switch s.State() {
	case StatePlaying, StatePaused:
	default:
		return vote.Tally{}, ErrNothingPlaying
	}

	tally := s.cfg.Votes.Cast(s.votes, voter, listeners)
	if tally.Approved && !s.advance(TriggerVote, 0) {
		return tally, ErrAdvanceInProgress
	}
	return tally, nil
}

func (s *Session) Pause() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePlaying {
		if s.state == StatePaused {
			return nil
		}
		return ErrNothingPlaying
	}
	s.transport.Pause()
	s.state = StatePaused
	s.pausedAt = time.Now()
	return nil
}

func (s *Session) Resume() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StatePaused {
		return ErrNotPaused
	}
	s.transport.Resume()
	s.pauseDuration += time.Since(s.pausedAt)
	s.pausedAt = time.Time{}
	s.state = StatePlaying
	return nil
}

// ToggleLoop flips loop mode and returns the new state.
func (s *Session) ToggleLoop() bool {
	return s.queue.ToggleLoop()
}

// Stop clears the queue, halts playback and resets all timing state. Any
// advance in flight is cancelled.
func (s *Session) Stop() {
	s.mu.Lock()
	s.queue.Clear()
	if s.cancelAdvance != nil {
		s.cancelAdvance()
	}
	if s.nowPlaying != nil {
		s.lastPlayed = s.nowPlaying
	}
	s.nowPlaying = nil
	s.current = nil
	s.generation++
	s.state = StateIdle
	s.resetTimingLocked()
	s.stopIdleTimerLocked()
	s.clearSleepLocked()
	s.mu.Unlock()

	s.votes.Reset()
	s.transport.Stop()
	s.setStatus("")
}

// Elapsed is how far into the current track playback is, excluding pauses.
func (s *Session) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.elapsedLocked()
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	snap := Snapshot{
		State:      s.state,
		NowPlaying: s.nowPlaying,
		LastPlayed: s.lastPlayed,
		Elapsed:    s.elapsedLocked(),
		SleepAt:    s.sleepAt,
	}
	s.mu.Unlock()

	snap.Queue = s.queue.Items()
	snap.Looping = s.queue.Looping()
	snap.Votes = s.votes.Len()
	return snap
}

// SetSleep stops playback and leaves after d. A previous timer is replaced.
func (s *Session) SetSleep(d time.Duration) time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clearSleepLocked()
	s.sleepAt = time.Now().Add(d)
	s.sleepTimer = time.AfterFunc(d, func() {
		sys.LogPlayer(sys.MsgPlayerSleepFired, s.GuildID)
		s.notifier.SendStatus(sys.MsgMusicSleepFired)
		s.leave()
	})
	return s.sleepAt
}

// ClearSleep cancels a pending sleep timer and reports whether one was set.
func (s *Session) ClearSleep() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clearSleepLocked()
}

// --- Advancing ---

// advance performs one transition out of the current track if the guard is
// free. It reports whether the trigger was acted on.
func (s *Session) advance(trigger Trigger, gen uint64) bool {
	if !s.wants(trigger, gen) {
		return false
	}
	if !s.advanceMu.TryLock() {
		sys.LogPlayer(sys.MsgPlayerAdvanceDropped, s.GuildID, trigger)
		return false
	}
	ran := s.runLocked(trigger, gen)
	s.advanceMu.Unlock()

	// Enqueues dropped while the guard was held left items behind an idle session.
	for s.State() == StateIdle && s.queue.Len() > 0 {
		if !s.advanceMu.TryLock() {
			break
		}
		s.runLocked(TriggerEnqueue, 0)
		s.advanceMu.Unlock()
	}
	return ran
}

func (s *Session) wants(trigger Trigger, gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wantsLocked(trigger, gen)
}

func (s *Session) wantsLocked(trigger Trigger, gen uint64) bool {
	active := s.state == StatePlaying || s.state == StatePaused
	switch trigger {
	case TriggerEnqueue:
		return s.state == StateIdle
	case TriggerTrackEnd:
		return active && gen == s.generation
	default:
		return active
	}
}

// runLocked must be called with advanceMu held.
func (s *Session) runLocked(trigger Trigger, gen uint64) bool {
	s.mu.Lock()
	if !s.wantsLocked(trigger, gen) {
		s.mu.Unlock()
		return false
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelAdvance = cancel
	prev := s.nowPlaying
	prevItem := s.current
	s.state = StateAdvancing
	s.stopIdleTimerLocked()
	s.mu.Unlock()

	defer func() {
		cancel()
		s.mu.Lock()
		s.cancelAdvance = nil
		s.mu.Unlock()
	}()

	if trigger == TriggerSkip || trigger == TriggerVote {
		s.transport.Stop()
	}

	if trigger == TriggerTrackEnd && prev != nil && s.queue.Len() == 0 && s.queue.Looping() {
		err := s.replay(ctx, prev, prevItem)
		if err == nil || ctx.Err() != nil {
			return true
		}
		s.reportSkipped(prev.Track, err)
	}

	s.playNext(ctx, prev != nil)
	return true
}

// playNext pops items until one starts playing or the queue runs dry.
func (s *Session) playNext(ctx context.Context, hadTrack bool) {
	for {
		if ctx.Err() != nil {
			return
		}
		item, ok := s.queue.DequeueNext()
		if !ok {
			s.finish(ctx, hadTrack)
			return
		}

		p, err := s.resolve(ctx, item)
		if err == nil {
			err = s.start(ctx, item, p)
		}
		if err == nil {
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.reportSkipped(item.Track, err)
	}
}

func (s *Session) resolve(ctx context.Context, item media.QueueItem) (*media.ResolvedPlayable, error) {
	t := item.Track
	if err := media.CheckDuration(t, s.cfg.MaxDuration); err != nil {
		return nil, err
	}

	url, ok := t.Resolved()
	if !ok && t.Source.Playable() && t.URL != "" {
		url, ok = t.URL, true
	}
	if !ok {
		chosen, err := s.match(ctx, item)
		if err != nil {
			return nil, err
		}
		if err := media.CheckDuration(chosen, s.cfg.MaxDuration); err != nil {
			return nil, err
		}
		t.CacheResolved(chosen.URL)
		url = chosen.URL
	}
	return &media.ResolvedPlayable{Track: t, StreamURL: url, Requester: item.Requester}, nil
}

func (s *Session) match(ctx context.Context, item media.QueueItem) (*media.TrackInfo, error) {
	if s.resolver == nil {
		return nil, &media.NotFoundError{URL: item.Track.URL}
	}
	res, err := s.resolver.Resolve(ctx, item.Track)
	if err != nil {
		return nil, err
	}

	switch res.Kind {
	case match.Exact:
		sys.LogMatch("Guild %s: %s matched %s", s.GuildID, item.Track.Display(), res.Track.URL)
		return res.Track, nil
	case match.Ambiguous:
		pctx, cancel := context.WithTimeout(ctx, s.cfg.ChoiceTimeout)
		defer cancel()
		idx, err := s.notifier.SendChoicePrompt(pctx, item.Requester, item.Track, res.Candidates, s.cfg.ChoiceTimeout)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
				return nil, media.ErrSelectionTimeout
			}
			return nil, err
		}
		if idx < 0 || idx >= len(res.Candidates) {
			return nil, media.ErrSelectionCancelled
		}
		return res.Candidates[idx], nil
	}
	return nil, &media.NotFoundError{URL: item.Track.URL}
}

func (s *Session) start(ctx context.Context, item media.QueueItem, p *media.ResolvedPlayable) error {
	done, err := s.transport.Play(ctx, p.StreamURL)
	if err != nil {
		return &media.UnavailableMediaError{Title: p.Track.Title, Err: err}
	}
	if err := s.commit(ctx, &item, p, done, false); err != nil {
		return err
	}
	s.notifier.SendStatus(fmt.Sprintf(sys.MsgMusicNowPlaying, p.Track.Title, p.Track.URL, p.Timestamp(), p.Requester))
	return nil
}

func (s *Session) replay(ctx context.Context, prev *media.ResolvedPlayable, item *media.QueueItem) error {
	done, err := s.transport.Play(ctx, prev.StreamURL)
	if err != nil {
		return &media.UnavailableMediaError{Title: prev.Track.Title, Err: err}
	}
	p := &media.ResolvedPlayable{Track: prev.Track, StreamURL: prev.StreamURL, Requester: prev.Requester}
	if err := s.commit(ctx, item, p, done, true); err != nil {
		return err
	}
	sys.LogPlayer(sys.MsgPlayerLoopReplay, s.GuildID, p.Track.Display())
	s.notifier.SendStatus(fmt.Sprintf(sys.MsgMusicLooping, p.Track.Title, p.Track.URL))
	return nil
}

// commit makes p the now-playing track once the transport accepted it.
func (s *Session) commit(ctx context.Context, item *media.QueueItem, p *media.ResolvedPlayable, done <-chan error, replay bool) error {
	s.mu.Lock()
	if err := ctx.Err(); err != nil {
		s.mu.Unlock()
		s.transport.Stop()
		return err
	}
	s.votes.Reset()
	if !replay {
		s.lastPlayed = s.nowPlaying
	}
	p.StartedAt = time.Now()
	s.nowPlaying = p
	s.current = item
	s.generation++
	gen := s.generation
	s.state = StatePlaying
	s.resetTimingLocked()
	s.mu.Unlock()

	sys.LogPlayer(sys.MsgPlayerNowPlaying, s.GuildID, p.Track.Display(), p.StreamURL)
	s.setStatus(p.Track.Display())
	sys.SafeGo(func() { s.watch(done, gen, p) })
	if s.history != nil && !replay {
		sys.SafeGo(func() { s.recordHistory(p) })
	}
	return nil
}

// watch waits for the transport to finish the stream started at gen and
// feeds the end back through advance.
func (s *Session) watch(done <-chan error, gen uint64, p *media.ResolvedPlayable) {
	err := <-done
	if err != nil && !errors.Is(err, context.Canceled) && s.isGeneration(gen) {
		sys.LogVoice(sys.MsgVoiceStreamFail, p.StreamURL, err)
		s.notifier.SendError(fmt.Sprintf(sys.MsgMusicUnavailable, p.Track.Title))
	}
	s.advance(TriggerTrackEnd, gen)
}

// finish moves to Idle after the queue ran out.
func (s *Session) finish(ctx context.Context, hadTrack bool) {
	s.mu.Lock()
	if ctx.Err() != nil {
		s.mu.Unlock()
		return
	}
	if s.nowPlaying != nil {
		s.lastPlayed = s.nowPlaying
	}
	s.nowPlaying = nil
	s.current = nil
	s.generation++
	s.state = StateIdle
	s.resetTimingLocked()
	s.scheduleIdleLocked()
	s.mu.Unlock()

	s.votes.Reset()
	s.setStatus("")
	if hadTrack {
		sys.LogPlayer(sys.MsgPlayerIdle, s.GuildID)
		s.notifier.SendStatus(sys.MsgMusicQueueEnded)
	}
}

func (s *Session) reportSkipped(t *media.TrackInfo, err error) {
	sys.LogPlayer(sys.MsgPlayerItemSkipped, s.GuildID, t.Display(), err)
	s.notifier.SendError(describeSkip(t, err))
}

func describeSkip(t *media.TrackInfo, err error) string {
	var (
		tooLong    *media.DurationExceededError
		notFound   *media.NotFoundError
		resolution *media.ResolutionError
	)
	switch {
	case errors.As(err, &tooLong):
		return fmt.Sprintf(sys.MsgMusicTooLong, tooLong)
	case errors.Is(err, media.ErrSelectionTimeout):
		return fmt.Sprintf(sys.MsgMusicChoiceTimeout, t.Title)
	case errors.Is(err, media.ErrSelectionCancelled):
		return fmt.Sprintf(sys.MsgMusicChoiceCancelled, t.Title)
	case errors.As(err, &notFound):
		return fmt.Sprintf(sys.MsgMusicNoMatch, t.Title)
	case errors.As(err, &resolution):
		return fmt.Sprintf(sys.MsgMusicResolutionFail, t.Title)
	}
	return fmt.Sprintf(sys.MsgMusicUnavailable, t.Title)
}

func (s *Session) recordHistory(p *media.ResolvedPlayable) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.history.RecordPlay(ctx, s.GuildID, p); err != nil {
		sys.LogPlayer(sys.MsgPlayerHistoryFail, s.GuildID, err)
	}
}

// --- Timers & timing ---

func (s *Session) isGeneration(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation == gen
}

func (s *Session) elapsedLocked() time.Duration {
	if s.nowPlaying == nil || s.nowPlaying.StartedAt.IsZero() {
		return 0
	}
	end := time.Now()
	if !s.pausedAt.IsZero() {
		end = s.pausedAt
	}
	return max(end.Sub(s.nowPlaying.StartedAt)-s.pauseDuration, 0)
}

func (s *Session) resetTimingLocked() {
	s.pausedAt = time.Time{}
	s.pauseDuration = 0
}

func (s *Session) scheduleIdleLocked() {
	if s.cfg.IdleTimeout <= 0 || s.onLeave == nil {
		return
	}
	gen := s.generation
	timeout := s.cfg.IdleTimeout
	s.idleTimer = time.AfterFunc(timeout, func() {
		s.mu.Lock()
		fire := s.state == StateIdle && s.generation == gen
		s.mu.Unlock()
		if fire {
			sys.LogPlayer(sys.MsgPlayerIdleTimeout, s.GuildID, timeout)
			s.onLeave()
		}
	})
}

func (s *Session) stopIdleTimerLocked() {
	if s.idleTimer != nil {
		s.idleTimer.Stop()
		s.idleTimer = nil
	}
}

func (s *Session) clearSleepLocked() bool {
	if s.sleepTimer == nil {
		return false
	}
	s.sleepTimer.Stop()
	s.sleepTimer = nil
	s.sleepAt = time.Time{}
	return true
}

func (s *Session) setStatus(text string) {
	if ss, ok := s.transport.(StatusSetter); ok {
		ss.SetStatus(text)
	}
}

func (s *Session) leave() {
	if s.onLeave != nil {
		s.onLeave()
		return
	}
	s.Stop()
}

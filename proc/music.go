package proc

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/discord"
	"github.com/disgoorg/disgo/events"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/match"
	"github.com/leeineian/cadence/media"
	"github.com/leeineian/cadence/player"
	"github.com/leeineian/cadence/source"
	"github.com/leeineian/cadence/sys"
	"github.com/leeineian/cadence/vote"
)

var (
	music     *MusicSystem
	musicOnce sync.Once
	musicErr  error
)

// MusicSystem ties the guild players to Discord: voice connections, the
// text channel each guild is controlled from and the selection prompts.
type MusicSystem struct {
	Registry *source.Registry
	Players  *player.Manager
	Choices  *ChoiceBroker

	client  *bot.Client
	cfg     *sys.Config
	matcher *match.Matcher

	mu         sync.Mutex
	transports map[snowflake.ID]*VoiceTransport
	channels   map[snowflake.ID]snowflake.ID
}

// InitMusic builds the music system once. Later calls return the same
// instance.
func InitMusic(ctx context.Context, client *bot.Client, cfg *sys.Config) (*MusicSystem, error) {
	musicOnce.Do(func() {
		music, musicErr = newMusicSystem(ctx, client, cfg)
	})
	return music, musicErr
}

// GetMusic returns the instance built by InitMusic, or nil before it ran.
func GetMusic() *MusicSystem {
	return music
}

func newMusicSystem(ctx context.Context, client *bot.Client, cfg *sys.Config) (*MusicSystem, error) {
	if cfg.Spotify.Enabled() {
		sys.LogSource(sys.MsgSourceSpotifyAPI)
	} else {
		sys.LogSource(sys.MsgSourceSpotifyScrape)
	}
	registry, err := source.NewDefault(ctx, source.Options{
		SpotifyClientID:     cfg.Spotify.ClientID,
		SpotifyClientSecret: cfg.Spotify.ClientSecret,
		HTTPClient:          sys.HttpClient,
	})
	if err != nil {
		return nil, err
	}

	m := &MusicSystem{
		Registry: registry,
		Choices:  NewChoiceBroker(),
		client:   client,
		cfg:      cfg,
		matcher: match.New(source.NewCatalog(cfg.Music.CatalogRate), match.Options{
			Threshold:    cfg.Music.MatchThreshold,
			MaxDuration:  cfg.Music.MaxDuration(),
			ForceNoMatch: cfg.Music.ForceNoMatch,
		}),
		transports: make(map[snowflake.ID]*VoiceTransport),
		channels:   make(map[snowflake.ID]snowflake.ID),
	}
	m.Players = player.NewManager(m.newSession)
	return m, nil
}

func (m *MusicSystem) newSession(guildID snowflake.ID) *player.Session {
	mc := m.cfg.Music
	mode, err := vote.ParseMode(mc.VoteSkipMode)
	if err != nil {
		mode = vote.ModePercent
	}

	loop := mc.LoopDefault
	if sys.DB != nil {
		ctx, cancel := context.WithTimeout(sys.AppContext, 5*time.Second)
		loop, err = sys.GetGuildLoopDefault(ctx, guildID, mc.LoopDefault)
		cancel()
		if err != nil {
			sys.LogDatabase("Failed to read loop default for %s: %v", guildID, err)
			loop = mc.LoopDefault
		}
	}

	cfg := player.Config{
		MaxDuration:     mc.MaxDuration(),
		ChoiceTimeout:   mc.ChoiceTimeout,
		IdleTimeout:     mc.IdleTimeout,
		VoteSkipEnabled: mc.VoteSkipEnabled,
		Votes:           vote.Policy{Mode: mode, Percent: mc.VoteSkipPercent, Count: mc.VoteSkipCount},
		LoopDefault:     loop,
	}
	deps := player.Deps{
		Transport: m.transport(guildID),
		Notifier:  &channelNotifier{system: m, guildID: guildID},
		Resolver:  m.matcher,
		OnLeave:   func() { m.Leave(guildID) },
	}
	if sys.DB != nil {
		deps.History = historyStore{}
	}
	return player.NewSession(guildID, cfg, deps)
}

func (m *MusicSystem) transport(guildID snowflake.ID) *VoiceTransport {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.transports[guildID]
	if !ok {
		t = NewVoiceTransport(m.client, guildID)
		m.transports[guildID] = t
	}
	return t
}

// Session returns guildID's player, creating it on first use.
func (m *MusicSystem) Session(guildID snowflake.ID) *player.Session {
	return m.Players.Get(guildID)
}

// Join connects guildID's player to channelID and remembers textChannelID
// for announcements.
func (m *MusicSystem) Join(ctx context.Context, guildID, channelID, textChannelID snowflake.ID) (*player.Session, error) {
	s := m.Players.Get(guildID)
	m.mu.Lock()
	m.channels[guildID] = textChannelID
	m.mu.Unlock()
	if err := m.transport(guildID).Join(ctx, channelID); err != nil {
		return nil, err
	}
	return s, nil
}

// VoiceChannel is the channel the bot is connected to in guildID, or 0.
func (m *MusicSystem) VoiceChannel(guildID snowflake.ID) snowflake.ID {
	m.mu.Lock()
	t, ok := m.transports[guildID]
	m.mu.Unlock()
	if !ok {
		return 0
	}
	return t.ChannelID()
}

// Leave stops guildID's player and disconnects from voice.
func (m *MusicSystem) Leave(guildID snowflake.ID) {
	if s, ok := m.Players.Lookup(guildID); ok {
		s.Stop()
	}
	m.mu.Lock()
	t, ok := m.transports[guildID]
	m.mu.Unlock()
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	t.Leave(ctx)
}

// Shutdown stops every player and closes every voice connection.
func (m *MusicSystem) Shutdown(ctx context.Context) {
	m.Players.Shutdown()
	m.mu.Lock()
	transports := make([]*VoiceTransport, 0, len(m.transports))
	for _, t := range m.transports {
		transports = append(transports, t)
	}
	m.mu.Unlock()
	for _, t := range transports {
		t.Leave(ctx)
	}
}

// Listeners counts the humans in channelID.
func (m *MusicSystem) Listeners(guildID, channelID snowflake.ID) int {
	n := 0
	for state := range m.client.Caches.VoiceStates(guildID) {
		if state.ChannelID == nil || *state.ChannelID != channelID || state.UserID == m.client.ID() {
			continue
		}
		if member, ok := m.client.Caches.Member(guildID, state.UserID); ok && member.User.Bot {
			continue
		}
		n++
	}
	return n
}

func (m *MusicSystem) textChannel(guildID snowflake.ID) snowflake.ID {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.channels[guildID]
}

// OnVoiceStateUpdate follows the bot being moved or kicked and leaves
// once the last listener is gone.
func (m *MusicSystem) OnVoiceStateUpdate(event *events.GuildVoiceStateUpdate) {
	guildID := event.VoiceState.GuildID
	m.mu.Lock()
	t, ok := m.transports[guildID]
	m.mu.Unlock()
	if !ok {
		return
	}

	if event.VoiceState.UserID == event.Client().ID() {
		if event.VoiceState.ChannelID == nil {
			if t.ChannelID() == 0 {
				return
			}
			sys.LogVoice("Bot disconnected by external event in guild %s", guildID)
			if s, ok := m.Players.Lookup(guildID); ok {
				s.Stop()
			}
			t.Disconnected()
			return
		}
		channelID := *event.VoiceState.ChannelID
		if previous := t.Moved(channelID); previous != 0 && previous != channelID {
			sys.LogVoice("Bot moved from %s to %s in guild %s", previous, channelID, guildID)
			t.putStatus(previous, "")
			if s, ok := m.Players.Lookup(guildID); ok {
				if np := s.Snapshot().NowPlaying; np != nil {
					t.SetStatus(np.Track.Display())
				}
			}
		}
		return
	}

	channelID := t.ChannelID()
	if channelID == 0 {
		return
	}
	if m.Listeners(guildID, channelID) == 0 {
		sys.LogVoice(sys.MsgVoiceChannelEmpty, guildID)
		m.Leave(guildID)
	}
}

// --- Notifier ---

// channelNotifier posts a guild's player messages to its control channel.
type channelNotifier struct {
	system  *MusicSystem
	guildID snowflake.ID
}

func (n *channelNotifier) send(text string) {
	channelID := n.system.textChannel(n.guildID)
	if channelID == 0 {
		return
	}
	msg := discord.NewMessageCreateBuilder().
		SetIsComponentsV2(true).
		AddComponents(discord.NewContainer(discord.NewTextDisplay(text))).
		SetAllowedMentions(&discord.AllowedMentions{}).
		Build()
	if _, err := n.system.client.Rest.CreateMessage(channelID, msg); err != nil {
		sys.LogError("Failed to send message to %s: %v", channelID, err)
	}
}

func (n *channelNotifier) SendStatus(text string) { n.send(text) }
func (n *channelNotifier) SendError(text string)  { n.send(text) }

func (n *channelNotifier) SendChoicePrompt(ctx context.Context, requester snowflake.ID, ref *media.TrackInfo, candidates []*media.TrackInfo, timeout time.Duration) (int, error) {
	channelID := n.system.textChannel(n.guildID)
	if channelID == 0 {
		return 0, &media.ResolutionError{Op: "prompt", Err: errors.New("no text channel")}
	}

	c := n.system.Choices.Open(requester, len(candidates))
	defer c.Close()
	msg, err := n.system.client.Rest.CreateMessage(channelID, BuildChoicePrompt(c, ref, candidates, timeout))
	if err != nil {
		return 0, &media.ResolutionError{Op: "prompt", Err: err}
	}

	// The session announces timeouts and cancellations itself.
	idx, err := c.Wait(ctx)
	closed := sys.MsgMusicChoiceExpired
	if err == nil {
		closed = fmt.Sprintf(sys.MsgMusicChoicePicked, candidates[idx].Display())
	}
	if _, uerr := n.system.client.Rest.UpdateMessage(channelID, msg.ID, ChoiceClosed(closed)); uerr != nil {
		sys.LogError("Failed to close selection prompt: %v", uerr)
	}
	return idx, err
}

// --- History ---

// historyStore persists committed tracks to the play_history table.
type historyStore struct{}

func (historyStore) RecordPlay(ctx context.Context, guildID snowflake.ID, p *media.ResolvedPlayable) error {
	return sys.AddPlayRecord(ctx, &sys.PlayRecord{
		GuildID:     guildID,
		URL:         p.Track.URL,
		StreamURL:   p.StreamURL,
		Title:       p.Track.Display(),
		Source:      p.Track.Source.String(),
		RequesterID: p.Requester,
		PlayedAt:    p.StartedAt,
	})
}

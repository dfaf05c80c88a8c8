package proc

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/disgoorg/disgo/bot"
	"github.com/disgoorg/disgo/rest"
	"github.com/disgoorg/disgo/voice"
	"github.com/disgoorg/snowflake/v2"

	"github.com/leeineian/cadence/sys"
)

var ErrNotConnected = errors.New("not connected to a voice channel")

const joinAttempts = 3

// VoiceTransport plays one stream at a time into a guild's voice connection.
type VoiceTransport struct {
	GuildID snowflake.ID
	client  *bot.Client

	mu        sync.Mutex
	conn      voice.Conn
	channelID snowflake.ID
	provider  *FrameProvider
	cancel    context.CancelFunc
}

func NewVoiceTransport(client *bot.Client, guildID snowflake.ID) *VoiceTransport {
	return &VoiceTransport{GuildID: guildID, client: client}
}

// ChannelID is the connected channel, or 0.
func (t *VoiceTransport) ChannelID() snowflake.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.channelID
}

// Join connects to channelID, moving if already connected elsewhere.
func (t *VoiceTransport) Join(ctx context.Context, channelID snowflake.ID) error {
	t.mu.Lock()
	if t.conn != nil && t.channelID == channelID {
		t.mu.Unlock()
		return nil
	}
	if t.conn == nil {
		t.conn = t.client.VoiceManager.CreateConn(t.GuildID)
	}
	conn := t.conn
	previous := t.channelID
	t.mu.Unlock()

	var lastErr error
	for i := range joinAttempts {
		if i > 0 {
			select {
			case <-time.After(time.Duration(i) * time.Second):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if lastErr = conn.Open(ctx, channelID, false, true); lastErr == nil {
			break
		}
	}
	if lastErr != nil {
		sys.LogVoice(sys.MsgVoiceJoinFail, channelID, lastErr)
		conn.Close(ctx)
		t.mu.Lock()
		t.conn, t.channelID = nil, 0
		t.mu.Unlock()
		return lastErr
	}

	t.mu.Lock()
	t.channelID = channelID
	t.mu.Unlock()
	if previous != 0 && previous != channelID {
		t.putStatus(previous, "")
	}
	return nil
}

// Leave stops playback and disconnects.
func (t *VoiceTransport) Leave(ctx context.Context) {
	t.mu.Lock()
	t.stopLocked()
	conn, channelID := t.conn, t.channelID
	t.conn, t.channelID = nil, 0
	t.mu.Unlock()

	if channelID != 0 {
		t.putStatus(channelID, "")
	}
	if conn != nil {
		conn.Close(ctx)
	}
}

// Disconnected forgets the connection after the bot was removed from the
// channel from outside.
func (t *VoiceTransport) Disconnected() {
	t.mu.Lock()
	t.stopLocked()
	conn := t.conn
	t.conn, t.channelID = nil, 0
	t.mu.Unlock()
	if conn != nil {
		conn.Close(context.Background())
	}
}

// Moved records that the bot was moved to channelID from outside and
// returns the channel it was in before.
func (t *VoiceTransport) Moved(channelID snowflake.ID) snowflake.ID {
	t.mu.Lock()
	defer t.mu.Unlock()
	previous := t.channelID
	if t.conn != nil {
		t.channelID = channelID
	}
	return previous
}

// Play starts streaming u. ctx bounds only the start of the stream; once
// Play returns the stream runs until it ends or Stop is called.
func (t *VoiceTransport) Play(ctx context.Context, u string) (<-chan error, error) {
	t.mu.Lock()
	conn := t.conn
	if conn == nil {
		t.mu.Unlock()
		return nil, ErrNotConnected
	}
	t.stopLocked()
	streamCtx, cancel := context.WithCancel(sys.AppContext)
	provider := NewFrameProvider(streamCtx)
	t.provider, t.cancel = provider, cancel
	t.mu.Unlock()

	pr, pw := io.Pipe()
	fetched := make(chan error, 1)
	sys.SafeGo(func() {
		err := streamAudio(streamCtx, u, pw)
		_ = pw.CloseWithError(err)
		fetched <- err
	})

	// Probing blocks until yt-dlp produces output.
	stopOpen := context.AfterFunc(ctx, func() { _ = pr.CloseWithError(ctx.Err()) })
	tc := NewTranscoder()
	err := tc.Open(pr)
	stopOpen()
	if err != nil {
		tc.Close()
		_ = pr.Close()
		t.release(provider)
		select {
		case ferr := <-fetched:
			if ferr != nil {
				err = ferr
			}
		case <-time.After(2 * time.Second):
		}
		return nil, err
	}

	setProvider(conn, provider)
	_ = conn.SetSpeaking(streamCtx, voice.SpeakingFlagMicrophone)

	done := make(chan error, 1)
	sys.SafeGo(func() {
		runErr := tc.Run(streamCtx, provider.Push)
		provider.Push(nil)
		tc.Close()
		_ = pr.Close()
		fetchErr := <-fetched

		select {
		case <-provider.Done():
		case <-streamCtx.Done():
		}
		stopped := streamCtx.Err() != nil
		t.release(provider)

		switch {
		case stopped:
			sys.LogVoice(sys.MsgVoiceStreamStopped, u)
			done <- nil
		case runErr != nil:
			done <- runErr
		case fetchErr != nil:
			done <- fetchErr
		default:
			sys.LogVoice(sys.MsgVoiceStreamDone, u)
			done <- nil
		}
	})
	return done, nil
}

// Stop ends the current stream. Its completion channel yields nil.
func (t *VoiceTransport) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

func (t *VoiceTransport) stopLocked() {
	if t.cancel != nil {
		t.cancel()
	}
	if t.provider != nil && t.conn != nil {
		setProvider(t.conn, nil)
	}
	t.provider, t.cancel = nil, nil
}

// release detaches p if it is still the current stream.
func (t *VoiceTransport) release(p *FrameProvider) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.provider != p {
		return
	}
	if t.conn != nil {
		setProvider(t.conn, nil)
		_ = t.conn.SetSpeaking(context.Background(), 0)
	}
	if t.cancel != nil {
		t.cancel()
	}
	t.provider, t.cancel = nil, nil
}

func (t *VoiceTransport) Pause() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.provider != nil {
		t.provider.Pause()
	}
}

func (t *VoiceTransport) Resume() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.provider != nil {
		t.provider.Resume()
	}
}

func (t *VoiceTransport) IsPlaying() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.provider != nil
}

func (t *VoiceTransport) IsPaused() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.provider != nil && t.provider.Paused()
}

// SetStatus shows text as the connected channel's voice status.
func (t *VoiceTransport) SetStatus(text string) {
	if channelID := t.ChannelID(); channelID != 0 {
		sys.SafeGo(func() { t.putStatus(channelID, text) })
	}
}

func (t *VoiceTransport) putStatus(channelID snowflake.ID, text string) {
	route := rest.NewEndpoint(http.MethodPut, "/channels/"+channelID.String()+"/voice-status")
	if err := t.client.Rest.Do(route.Compile(nil), map[string]string{"status": truncateStatus(text)}, nil); err != nil {
		sys.LogVoice(sys.MsgVoiceStatusFail, err)
	}
}

func truncateStatus(text string) string {
	const limit = 128
	r := []rune(text)
	if len(r) <= limit {
		return text
	}
	return string(r[:limit-1]) + "…"
}

// setProvider swaps the frame provider, tolerating a connection that is
// closing underneath it.
func setProvider(conn voice.Conn, p voice.OpusFrameProvider) {
	defer func() {
		if r := recover(); r != nil {
			sys.LogVoice("Recovered while setting frame provider: %v", r)
		}
	}()
	conn.SetOpusFrameProvider(p)
}

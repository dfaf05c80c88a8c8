package proc

import (
	"context"
	"io"
	"sync"
	"time"
)

var (
	OpusSilence = []byte{0xf8, 0xff, 0xfe}
	// SilenceTail is how much silence is sent after the last frame so the
	// client's jitter buffer plays out.
	SilenceTail = 200 * time.Millisecond
)

const frameBuffer = 100

// FrameProvider hands transcoded frames to a voice connection. A nil frame
// marks the end of input; the provider then sends a short silence tail and
// reports done.
type FrameProvider struct {
	ctx    context.Context
	frames chan []byte

	pauseMu sync.RWMutex
	resumed chan struct{}
	paused  bool

	draining bool
	silence  int
	once     sync.Once
	done     chan struct{}
}

func NewFrameProvider(ctx context.Context) *FrameProvider {
	resumed := make(chan struct{})
	close(resumed)
	return &FrameProvider{
		ctx:     ctx,
		frames:  make(chan []byte, frameBuffer),
		resumed: resumed,
		done:    make(chan struct{}),
	}
}

// Push queues a frame, blocking while the buffer is full.
func (p *FrameProvider) Push(frame []byte) {
	select {
	case p.frames <- frame:
	case <-p.ctx.Done():
	}
}

// Done is closed once all pushed frames and the silence tail were read.
func (p *FrameProvider) Done() <-chan struct{} {
	return p.done
}

func (p *FrameProvider) Pause() {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	if !p.paused {
		p.paused = true
		p.resumed = make(chan struct{})
	}
}

func (p *FrameProvider) Resume() {
	p.pauseMu.Lock()
	defer p.pauseMu.Unlock()
	if p.paused {
		p.paused = false
		close(p.resumed)
	}
}

func (p *FrameProvider) Paused() bool {
	p.pauseMu.RLock()
	defer p.pauseMu.RUnlock()
	return p.paused
}

func (p *FrameProvider) ProvideOpusFrame() ([]byte, error) {
	p.pauseMu.RLock()
	resumed := p.resumed
	p.pauseMu.RUnlock()

	select {
	case <-resumed:
	case <-p.ctx.Done():
		p.Close()
		return nil, io.EOF
	}

	if p.draining {
		if p.silence < int(SilenceTail/(20*time.Millisecond)) {
			p.silence++
			return OpusSilence, nil
		}
		p.Close()
		return nil, io.EOF
	}

	select {
	case f := <-p.frames:
		if f == nil {
			p.draining = true
			return OpusSilence, nil
		}
		return f, nil
	case <-p.ctx.Done():
		p.Close()
		return nil, io.EOF
	case <-time.After(500 * time.Millisecond):
		// Input is stalling; keep the connection alive.
		return OpusSilence, nil
	}
}

func (p *FrameProvider) Close() {
	p.once.Do(func() { close(p.done) })
}

package proc

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameProviderDrainsWithSilenceTail(t *testing.T) {
	p := NewFrameProvider(context.Background())
	p.Push([]byte{1})
	p.Push([]byte{2})
	p.Push(nil)

	f, err := p.ProvideOpusFrame()
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, f)
	f, _ = p.ProvideOpusFrame()
	assert.Equal(t, []byte{2}, f)

	tail := int(SilenceTail / (20 * time.Millisecond))
	for range tail + 1 {
		f, err = p.ProvideOpusFrame()
		require.NoError(t, err)
		assert.Equal(t, OpusSilence, f)
	}

	_, err = p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
	select {
	case <-p.Done():
	default:
		t.Fatal("provider not done after tail")
	}
}

func TestFrameProviderPause(t *testing.T) {
	p := NewFrameProvider(context.Background())
	p.Push([]byte{1})
	p.Pause()
	assert.True(t, p.Paused())

	got := make(chan []byte, 1)
	go func() {
		f, _ := p.ProvideOpusFrame()
		got <- f
	}()

	select {
	case <-got:
		t.Fatal("frame delivered while paused")
	case <-time.After(50 * time.Millisecond):
	}

	p.Resume()
	assert.False(t, p.Paused())
	select {
	case f := <-got:
		assert.Equal(t, []byte{1}, f)
	case <-time.After(time.Second):
		t.Fatal("frame not delivered after resume")
	}
}

func TestFrameProviderStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	p := NewFrameProvider(ctx)
	cancel()

	_, err := p.ProvideOpusFrame()
	assert.ErrorIs(t, err, io.EOF)
	<-p.Done()

	// Pushing after cancel must not block.
	for range frameBuffer + 1 {
		p.Push([]byte{1})
	}
}

func TestIsReaderGone(t *testing.T) {
	assert.True(t, isReaderGone(io.ErrClosedPipe, ""))
	assert.True(t, isReaderGone(errors.New("exit status 1"), "ERROR: [Errno 32] Broken pipe"))
	assert.True(t, isReaderGone(errors.New("signal: killed"), ""))
	assert.False(t, isReaderGone(errors.New("exit status 1"), "ERROR: Video unavailable"))
}

func TestLastLine(t *testing.T) {
	assert.Equal(t, "ERROR: Video unavailable", lastLine("[youtube] abc\nERROR: Video unavailable\n"))
	assert.Equal(t, "single", lastLine("single"))
	assert.Empty(t, lastLine("  \n"))
}

func TestTruncateStatus(t *testing.T) {
	assert.Equal(t, "short", truncateStatus("short"))

	long := make([]rune, 200)
	for i := range long {
		long[i] = 'é'
	}
	got := []rune(truncateStatus(string(long)))
	assert.Len(t, got, 128)
	assert.Equal(t, '…', got[127])
}

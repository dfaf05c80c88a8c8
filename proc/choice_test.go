package proc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/cadence/media"
)

func TestChoiceAnswer(t *testing.T) {
	b := NewChoiceBroker()
	c := b.Open(7, 3)
	assert.Equal(t, 1, b.Pending())

	assert.ErrorIs(t, b.Answer(c.Nonce, 8, 0), ErrNotRequester)
	assert.ErrorIs(t, b.Answer(c.Nonce, 7, 3), ErrChoiceIndex)
	require.NoError(t, b.Answer(c.Nonce, 7, 2))

	// A prompt takes one answer only.
	assert.ErrorIs(t, b.Answer(c.Nonce, 7, 1), ErrChoiceExpired)
	assert.Zero(t, b.Pending())

	idx, err := c.Wait(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, idx)
}

func TestChoiceCancel(t *testing.T) {
	b := NewChoiceBroker()
	c := b.Open(7, 2)
	require.NoError(t, b.Answer(c.Nonce, 7, CancelChoice))

	_, err := c.Wait(context.Background())
	assert.ErrorIs(t, err, media.ErrSelectionCancelled)
}

func TestChoiceWaitTimesOut(t *testing.T) {
	b := NewChoiceBroker()
	c := b.Open(7, 2)
	defer c.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := c.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	c.Close()
	assert.ErrorIs(t, b.Answer(c.Nonce, 7, 0), ErrChoiceExpired)
}

func TestChoiceNoncesAreUnique(t *testing.T) {
	b := NewChoiceBroker()
	a, c := b.Open(1, 1), b.Open(1, 1)
	assert.NotEqual(t, a.Nonce, c.Nonce)
	assert.Equal(t, 2, b.Pending())
}

func TestChoiceID(t *testing.T) {
	id := ChoiceID("abc-123", 2)
	assert.Equal(t, "music:choice:abc-123:2", id)

	nonce, idx, err := ParseChoiceID(id)
	require.NoError(t, err)
	assert.Equal(t, "abc-123", nonce)
	assert.Equal(t, 2, idx)

	_, idx, err = ParseChoiceID(ChoiceID("n", CancelChoice))
	require.NoError(t, err)
	assert.Equal(t, CancelChoice, idx)

	for _, bad := range []string{"connect4:x:1", "music:choice:", "music:choice:n", "music:choice:n:x"} {
		_, _, err := ParseChoiceID(bad)
		assert.Error(t, err, bad)
	}
}

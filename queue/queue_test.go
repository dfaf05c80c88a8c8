package queue

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leeineian/cadence/media"
)

func items(n int) []media.QueueItem {
	out := make([]media.QueueItem, n)
	for i := range out {
		out[i] = media.QueueItem{
			Track:     &media.TrackInfo{Title: fmt.Sprintf("track %d", i+1), Duration: time.Minute},
			Requester: 1,
		}
	}
	return out
}

func titles(q *MediaQueue) []string {
	var out []string
	for _, it := range q.Items() {
		out = append(out, it.Track.Title)
	}
	return out
}

func TestEnqueueDequeueFIFO(t *testing.T) {
	q := New(false)
	all := items(5)

	assert.Equal(t, Range{Start: 1, End: 1}, q.Enqueue(all[0]))
	assert.Equal(t, Range{Start: 2, End: 5}, q.Enqueue(all[1:]...))
	assert.Equal(t, Range{}, q.Enqueue())
	assert.Equal(t, 5, q.Len())
	assert.Equal(t, 5*time.Minute, q.Duration())

	for i := range all {
		got, ok := q.DequeueNext()
		require.True(t, ok)
		assert.Same(t, all[i].Track, got.Track)
	}
	_, ok := q.DequeueNext()
	assert.False(t, ok)
}

func TestMove(t *testing.T) {
	tests := []struct {
		from, to int
		want     []string
	}{
		{1, 3, []string{"track 2", "track 3", "track 1", "track 4"}},
		{4, 1, []string{"track 4", "track 1", "track 2", "track 3"}},
		{2, 2, []string{"track 1", "track 2", "track 3", "track 4"}},
		{3, 4, []string{"track 1", "track 2", "track 4", "track 3"}},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d->%d", tt.from, tt.to), func(t *testing.T) {
			q := New(false)
			q.Enqueue(items(4)...)

			require.NoError(t, q.Move(tt.from, tt.to))
			assert.Equal(t, tt.want, titles(q))
		})
	}
}

func TestMoveOutOfRange(t *testing.T) {
	q := New(false)
	q.Enqueue(items(3)...)
	before := titles(q)

	for _, pair := range [][2]int{{0, 1}, {1, 4}, {4, 1}, {-1, 2}} {
		err := q.Move(pair[0], pair[1])
		var oor *media.OutOfRangeError
		require.True(t, errors.As(err, &oor), "%v", pair)
		assert.Equal(t, 3, oor.Len)
	}
	assert.Equal(t, before, titles(q))
}

func TestRemove(t *testing.T) {
	q := New(false)
	q.Enqueue(items(3)...)

	removed, err := q.Remove(2)
	require.NoError(t, err)
	assert.Equal(t, "track 2", removed.Track.Title)
	assert.Equal(t, []string{"track 1", "track 3"}, titles(q))
}

func TestRemoveOutOfRange(t *testing.T) {
	q := New(false)
	q.Enqueue(items(2)...)

	_, err := q.Remove(3)
	var oor *media.OutOfRangeError
	require.True(t, errors.As(err, &oor))
	assert.Equal(t, 3, oor.Index)
	assert.Equal(t, []string{"track 1", "track 2"}, titles(q))

	_, err = New(false).Remove(1)
	assert.ErrorContains(t, err, "empty")
}

func TestShuffleKeepsItems(t *testing.T) {
	q := New(false)
	q.Enqueue(items(20)...)

	want := titles(q)

	q.Shuffle()
	assert.ElementsMatch(t, want, titles(q))
	assert.Equal(t, 20, q.Len())
}

func TestClearAndLoop(t *testing.T) {
	q := New(true)
	q.Enqueue(items(3)...)

	assert.Equal(t, 3, q.Clear())
	assert.Zero(t, q.Len())
	assert.True(t, q.Looping())

	assert.False(t, q.ToggleLoop())
	assert.True(t, q.ToggleLoop())
	q.SetLooping(false)
	assert.False(t, q.Looping())
}

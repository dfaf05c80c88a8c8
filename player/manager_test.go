package player

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerCreatesSessionsLazily(t *testing.T) {
	transports := map[snowflake.ID]*fakeTransport{}
	m := NewManager(func(id snowflake.ID) *Session {
		tr := &fakeTransport{}
		transports[id] = tr
		return NewSession(id, defaultConfig(), Deps{Transport: tr, Notifier: &fakeNotifier{}})
	})

	_, ok := m.Lookup(1)
	assert.False(t, ok)
	assert.Zero(t, m.Len())

	s := m.Get(1)
	assert.Same(t, s, m.Get(1))
	assert.Equal(t, snowflake.ID(1), s.GuildID)

	found, ok := m.Lookup(1)
	require.True(t, ok)
	assert.Same(t, s, found)

	m.Get(2)
	assert.Equal(t, 2, m.Len())
	assert.Len(t, m.Sessions(), 2)

	_, err := s.Enqueue(items(ytTrack("a"))...)
	require.NoError(t, err)

	// Shutdown stops sessions but keeps them registered.
	m.Shutdown()
	assert.Equal(t, StateIdle, s.State())
	assert.Equal(t, 1, transports[1].stopCount())
	assert.Equal(t, 2, m.Len())
}

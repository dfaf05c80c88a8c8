package proc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/leeineian/cadence/player"
)

func TestPresenceTexts(t *testing.T) {
	assert.Equal(t, []string{"/music play"}, presenceTexts(nil, time.Minute))

	idle := player.NewSession(1, player.Config{}, player.Deps{})
	texts := presenceTexts([]*player.Session{idle}, 2*time.Hour+5*time.Minute)
	assert.Equal(t, []string{"/music play", "for 2h 5m"}, texts)
}

func TestPlural(t *testing.T) {
	assert.Equal(t, "", plural(1))
	assert.Equal(t, "s", plural(0))
	assert.Equal(t, "s", plural(3))
}

package vote

import (
	"testing"

	"github.com/disgoorg/snowflake/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequired(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		members int
		want    int
	}{
		{"half of ten", Policy{Mode: ModePercent, Percent: 50}, 10, 5},
		{"rounds up", Policy{Mode: ModePercent, Percent: 50}, 3, 2},
		{"third of seven", Policy{Mode: ModePercent, Percent: 33}, 7, 3},
		{"alone", Policy{Mode: ModePercent, Percent: 50}, 1, 1},
		{"nobody", Policy{Mode: ModePercent, Percent: 50}, 0, 1},
		{"fixed count", Policy{Mode: ModeCount, Count: 3}, 10, 3},
		{"zero count", Policy{Mode: ModeCount}, 10, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.policy.Required(tt.members))
		})
	}
}

func TestCastApprovesOnFifthUniqueVote(t *testing.T) {
	p := Policy{Mode: ModePercent, Percent: 50}
	s := NewSet()

	for i := 1; i <= 4; i++ {
		tally := p.Cast(s, snowflake.ID(i), 10)
		require.True(t, tally.Added)
		require.False(t, tally.Approved, "vote %d", i)
	}

	repeat := p.Cast(s, snowflake.ID(4), 10)
	assert.False(t, repeat.Added)
	assert.False(t, repeat.Approved)
	assert.Equal(t, 4, repeat.Votes)

	fifth := p.Cast(s, snowflake.ID(5), 10)
	assert.True(t, fifth.Approved)
	assert.Equal(t, 5, fifth.Votes)
	assert.Equal(t, 5, fifth.Required)
}

func TestCastRecomputesRequirement(t *testing.T) {
	p := Policy{Mode: ModePercent, Percent: 50}
	s := NewSet()

	assert.False(t, p.Cast(s, 1, 6).Approved)
	assert.False(t, p.Cast(s, 2, 6).Approved)
	// listeners left; the third vote is judged against the new count
	assert.True(t, p.Cast(s, 3, 4).Approved)
}

func TestSetReset(t *testing.T) {
	s := NewSet()
	s.Record(1)
	s.Record(2)
	assert.True(t, s.Has(1))

	s.Reset()
	assert.Zero(t, s.Len())
	assert.False(t, s.Has(1))
}

func TestParseMode(t *testing.T) {
	m, err := ParseMode(" Count ")
	require.NoError(t, err)
	assert.Equal(t, ModeCount, m)

	_, err = ParseMode("majority")
	assert.Error(t, err)
}

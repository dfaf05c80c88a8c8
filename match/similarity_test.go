package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := map[string]string{
		"Song A (feat. Someone)":    "Song A",
		"Song A [ft. Someone Else]": "Song A",
		"Song A (2011 Remaster)":    "Song A",
		"Song A - Remastered 2009":  "Song A",
		"Song A (Remix)":            "Song A (Remix)",
		"  Song   A  ":              "Song A",
	}
	for in, want := range tests {
		assert.Equal(t, want, Normalize(in), in)
	}
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 100, Ratio("Song A", "song a"))
	assert.Equal(t, 100, Ratio("", ""))
	assert.Equal(t, 0, Ratio("abc", ""))
	assert.Greater(t, Ratio("Artist X", "Artist X - Topic"), 60)
	assert.Less(t, Ratio("Album Y", "Greatest Hits Collection"), DefaultThreshold)
}

func TestSameVersion(t *testing.T) {
	assert.True(t, SameVersion("Song A", "Song A"))
	assert.False(t, SameVersion("Song A", "Song A (Remix)"))
	assert.False(t, SameVersion("Song A (Remix)", "Song A"))
	assert.False(t, SameVersion("Song A", "Song A (Acoustic Version)"))
	assert.True(t, SameVersion("Song A (Cover)", "song a cover"))
}

package budget

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestEstimatorCount(t *testing.T) {
	c := Estimator()
	assert.False(t, c.Exact())
	assert.Equal(t, 0, c.Count(""))
	assert.Equal(t, 1, c.Count("abc"))
	assert.Equal(t, 2, c.Count("abcdefgh"))
	assert.Equal(t, 2, c.Count("héllo wö"))
}

func TestEstimatorTruncate(t *testing.T) {
	c := Estimator()
	text := strings.Repeat("x", 100)

	assert.Equal(t, text, c.Truncate(text, 0))
	assert.Equal(t, text, c.Truncate(text, 25))

	cut := c.Truncate(text, 10)
	assert.Equal(t, strings.Repeat("x", 40)+"...", cut)
}

func TestClipKeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "short", Clip("short", 10))
	assert.Equal(t, "abc...", Clip("abcdef", 3))
	assert.Equal(t, "whole", Clip("whole", 0))

	text := strings.Repeat("é", 10)
	cut := Clip(text, 5)
	assert.True(t, utf8.ValidString(cut))
	assert.Equal(t, strings.Repeat("é", 5)+"...", cut)

	mixed := "a" + strings.Repeat("日本", 200)
	assert.True(t, utf8.ValidString(Clip(mixed, 300)))
}

func TestNilCounterEstimates(t *testing.T) {
	var c *Counter
	assert.Equal(t, 3, c.Count("123456789"))
}

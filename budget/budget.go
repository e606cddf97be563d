// Package budget counts and trims prompt text against a token budget.
package budget

import (
	"strings"
	"unicode/utf8"

	"github.com/pkoukk/tiktoken-go"
)

// runesPerToken is the rough ratio used when no encoding is available.
const runesPerToken = 4

// Counter counts tokens with a tiktoken encoding, or estimates them from the
// rune count when none could be loaded.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter picks the encoding for model, falling back to cl100k_base and
// finally to estimation. Loading an encoding may fetch BPE ranks over the
// network the first time.
func NewCounter(model string) *Counter {
	if model != "" {
		if enc, err := tiktoken.EncodingForModel(model); err == nil {
			return &Counter{enc: enc}
		}
	}
	if enc, err := tiktoken.GetEncoding("cl100k_base"); err == nil {
		return &Counter{enc: enc}
	}
	return Estimator()
}

// Estimator returns a Counter that never loads an encoding.
func Estimator() *Counter {
	return &Counter{}
}

// Exact reports whether counts come from a real encoding.
func (c *Counter) Exact() bool {
	return c != nil && c.enc != nil
}

func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if c.Exact() {
		return len(c.enc.Encode(text, nil, nil))
	}
	runes := utf8.RuneCountInString(text)
	return (runes + runesPerToken - 1) / runesPerToken
}

// Truncate returns the longest prefix of text that fits in max tokens,
// marked with a trailing ellipsis when anything was cut. max <= 0 disables
// truncation.
func (c *Counter) Truncate(text string, max int) string {
	if max <= 0 || c.Count(text) <= max {
		return text
	}
	if c.Exact() {
		tokens := c.enc.Encode(text, nil, nil)
		return c.enc.Decode(tokens[:max]) + "..."
	}
	runes := []rune(text)
	limit := max * runesPerToken
	if limit > len(runes) {
		limit = len(runes)
	}
	return string(runes[:limit]) + "..."
}

// Clip shortens s to at most n runes, marking the cut with an ellipsis. It
// never splits a multi-byte character.
func Clip(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:n])) + "..."
}

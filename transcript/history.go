// Package transcript holds the per-query conversation history and the
// append-only event log it is recorded to.
package transcript

// Pair is one executed plan step and the observation it produced.
type Pair struct {
	Step        string `json:"step"`
	Observation string `json:"observation"`
}

// History is the ordered, append-only list of pairs for a single query.
// A History belongs to one loop; it is not safe for concurrent use.
type History struct {
	pairs []Pair
}

// Append adds a pair at the end.
func (h *History) Append(step, observation string) {
	h.pairs = append(h.pairs, Pair{Step: step, Observation: observation})
}

// Len reports the number of pairs.
func (h *History) Len() int {
	if h == nil {
		return 0
	}
	return len(h.pairs)
}

// Pairs returns a copy of the pairs.
func (h *History) Pairs() []Pair {
	if h == nil {
		return nil
	}
	out := make([]Pair, len(h.pairs))
	copy(out, h.pairs)
	return out
}

package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		in   string
		kind Kind
		text string
	}{
		{"plain step", "search person with name \"Tony Leung\"", KindStep, "search person with name \"Tony Leung\""},
		{"continue step", "Continue. search for the most popular movie directed by Martin Scorsese (1032)", KindStep, "Continue. search for the most popular movie directed by Martin Scorsese (1032)"},
		{"final with thought", "Thought: I am finished executing a plan and completed the user's instructions\nFinal Answer: I have set the volume to 20 and skipped to the next track.", KindFinal, "I have set the volume to 20 and skipped to the next track."},
		{"final lower case", "final answer: X has id 42", KindFinal, "X has id 42"},
		{"last final answer wins", "Final Answer: draft\nFinal Answer: real", KindFinal, "real"},
		{"no call needed", "No API call needed. The user id is abc123.", KindFinal, "The user id is abc123."},
		{"finished with text", "I am finished. The playlist was created.", KindFinal, "The playlist was created."},
		{"finished lower case", "i am finished: the volume is 20", KindFinal, "the volume is 20"},
		{"bare finished", "I am finished.", KindAmbiguous, "finished marker without an answer"},
		{"empty", "   ", KindAmbiguous, "empty planner output"},
		{"fabricated response", "search X\nAPI response: X is 42", KindAmbiguous, "planner output contains a fabricated API response"},
		{"marker without answer", "Thought: done\nFinal Answer:   ", KindAmbiguous, "final answer marker without an answer"},
		{"finished thought only", "Thought: I am finished executing a plan", KindAmbiguous, "finished marker without an answer"},
		{"no call only", "No API call needed.", KindAmbiguous, "finished marker without an answer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			d := Classify(tc.in)
			assert.Equal(t, tc.kind, d.Kind, d.Text)
			assert.Equal(t, tc.text, d.Text)
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "step", KindStep.String())
	assert.Equal(t, "final", KindFinal.String())
	assert.Equal(t, "ambiguous", KindAmbiguous.String())
}

package terminal

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/transcript"
)

// echoPlanner takes one step for every query, then answers with the query
// text and the background it was given.
type echoPlanner struct{}

func (echoPlanner) Plan(_ context.Context, query, background string, history []transcript.Pair) (string, error) {
	if query == "never" {
		return "look again", nil
	}
	if len(history) == 0 {
		return "look up " + query, nil
	}
	return "Final Answer: " + query + " [" + background + "]", nil
}

type okCaller struct{}

func (okCaller) Call(_ context.Context, step, _ string, _ []transcript.Pair) (string, error) {
	return "found " + step, nil
}

func newTestAgent(t *testing.T) *agent.Agent {
	t.Helper()
	a, err := agent.New(agent.Settings{MaxIterations: 2}, echoPlanner{}, okCaller{})
	if err != nil {
		t.Fatalf("Failed to create agent: %v", err)
	}
	return a
}

func TestTerminalRunReadsQueriesUntilQuit(t *testing.T) {
	in := strings.NewReader("first\n\n/background user is Ann\nsecond\n/quit\nnot read\n")
	var out bytes.Buffer

	term := New(newTestAgent(t), in, &out)
	if err := term.Run(context.Background(), "initial"); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"Answer: initial []",
		"Answer: first []",
		`Background set to "user is Ann"`,
		"Answer: second [user is Ann]",
		"Plan step 1: look up second",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}
	if strings.Contains(got, "not read") {
		t.Error("input after /quit was processed")
	}
}

func TestTerminalVerbosity(t *testing.T) {
	testCases := []struct {
		verbosity   Verbosity
		wantPlan    bool
		wantObserve bool
	}{
		{VerbosityNone, false, false},
		{VerbosityInfo, true, false},
		{VerbosityAll, true, true},
	}

	for _, tc := range testCases {
		t.Run(string(tc.verbosity), func(t *testing.T) {
			var out bytes.Buffer
			term := New(newTestAgent(t), strings.NewReader(""), &out)
			term.Verbosity = tc.verbosity

			res := term.processTurn(context.Background(), "q")
			if res.State != agent.StateDone {
				t.Fatalf("state = %s, want DONE", res.State)
			}
			if got := strings.Contains(out.String(), "Plan step 1: look up q"); got != tc.wantPlan {
				t.Errorf("plan printed = %v, want %v", got, tc.wantPlan)
			}
			if got := strings.Contains(out.String(), "API response: found look up q"); got != tc.wantObserve {
				t.Errorf("observation printed = %v, want %v", got, tc.wantObserve)
			}
		})
	}
}

func TestTerminalReportsFailureAndContinues(t *testing.T) {
	var out bytes.Buffer
	term := New(newTestAgent(t), strings.NewReader("never\nafter\n"), &out)
	term.Verbosity = VerbosityNone

	if err := term.Run(context.Background(), ""); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	got := out.String()
	if !strings.Contains(got, "Failed after 2 steps: plan did not converge") {
		t.Errorf("missing failure report:\n%s", got)
	}
	if !strings.Contains(got, "Answer: after []") {
		t.Errorf("session did not continue after a failure:\n%s", got)
	}
}

func TestParseVerbosity(t *testing.T) {
	if v, err := ParseVerbosity(""); err != nil || v != VerbosityInfo {
		t.Errorf("ParseVerbosity(\"\") = %q, %v", v, err)
	}
	if v, err := ParseVerbosity("ALL"); err != nil || v != VerbosityAll {
		t.Errorf("ParseVerbosity(\"ALL\") = %q, %v", v, err)
	}
	if _, err := ParseVerbosity("loud"); err == nil {
		t.Error("expected an error for an unknown verbosity")
	}
}

package eval

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/transcript"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// queryPlanner fails queries containing "fail" and answers the rest after
// one step.
type queryPlanner struct{}

func (queryPlanner) Plan(_ context.Context, query, _ string, history []transcript.Pair) (string, error) {
	if strings.Contains(query, "fail") {
		return "try something", nil
	}
	if len(history) == 0 {
		return "look up " + query, nil
	}
	return "Final Answer: answered " + query, nil
}

type echoCaller struct{}

func (echoCaller) Call(_ context.Context, step, _ string, _ []transcript.Pair) (string, error) {
	return "did " + step, nil
}

func TestLoadDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "d.json", []byte(`[{"query": "a"}, {"query": ""}, {"query": "b", "background": "bg"}]`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "d.yaml", []byte("- query: a\n- query: b\n  background: bg\n"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "empty.json", []byte(`[]`), 0o644))

	want := []Item{{Query: "a"}, {Query: "b", Background: "bg"}}
	for _, path := range []string{"d.json", "d.yaml"} {
		items, err := LoadDataset(fs, path)
		require.NoError(t, err, path)
		assert.Equal(t, want, items, path)
	}

	_, err := LoadDataset(fs, "empty.json")
	assert.Error(t, err)
	_, err = LoadDataset(fs, "missing.json")
	assert.Error(t, err)
}

func TestRunContinuesPastFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	a, err := agent.New(agent.Settings{MaxIterations: 2}, queryPlanner{}, echoCaller{})
	require.NoError(t, err)

	report, err := NewRunner(a, fs, "logs", nil).Run(context.Background(), []Item{
		{Query: "first"},
		{Query: "this will fail"},
		{Query: "third"},
	})
	require.NoError(t, err)

	require.Len(t, report.Outcomes, 3)
	assert.Equal(t, 2, report.Done)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, "answered third", report.Outcomes[2].Answer)
	assert.Equal(t, "FAILED", report.Outcomes[1].State)
	assert.Contains(t, report.Outcomes[1].Error, "plan did not converge")

	// Each query has its own log holding only its own events.
	for i, o := range report.Outcomes {
		data, err := afero.ReadFile(fs, o.LogPath)
		require.NoError(t, err)
		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		assert.Contains(t, lines[0], "query: "+o.Query, "log %d", i)
		for _, line := range lines {
			assert.Contains(t, line, o.QueryID)
		}

		exists, err := afero.Exists(fs, "logs/transcripts/"+o.QueryID+".json")
		require.NoError(t, err)
		assert.True(t, exists)
	}
	assert.Equal(t, "logs/0.log", report.Outcomes[0].LogPath)

	var summary bytes.Buffer
	require.NoError(t, report.WriteSummary(&summary))
	assert.Contains(t, summary.String(), "2 done, 1 failed")

	require.NoError(t, report.Save(fs, "logs/report.json"))
	data, err := afero.ReadFile(fs, "logs/report.json")
	require.NoError(t, err)
	assert.Contains(t, string(data), `"failed": 1`)
}

func TestRunStopsOnCancel(t *testing.T) {
	a, err := agent.New(agent.Settings{}, queryPlanner{}, echoCaller{})
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewRunner(a, afero.NewMemMapFs(), "logs", nil).Run(ctx, []Item{{Query: "a"}})
	require.Error(t, err)
	assert.Empty(t, report.Outcomes)
}

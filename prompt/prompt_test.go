package prompt

import (
	"strings"
	"testing"

	"github.com/m4xw311/restgpt/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExamplesKnownScenarios(t *testing.T) {
	assert.Equal(t, []string{"spotify", "tmdb"}, Scenarios())
	for _, s := range Scenarios() {
		ex, err := Examples(s)
		require.NoError(t, err)
		assert.Contains(t, ex, "Example 1:")
		assert.Contains(t, ex, "Example 2:")
		assert.Equal(t, 2, strings.Count(ex, "Final Answer:"), s)
	}
}

func TestExamplesUnknownScenario(t *testing.T) {
	_, err := Examples("netflix")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrUnknownScenario))
	assert.Contains(t, err.Error(), "netflix")
}

func TestExamplesUseTranscriptLabels(t *testing.T) {
	ex, err := Examples("spotify")
	require.NoError(t, err)
	assert.Equal(t, strings.Count(ex, StepLabel+" "), strings.Count(ex, ObservationLabel))
}

func TestPlannerRendersAllVariables(t *testing.T) {
	out, err := Planner(PlannerParams{
		Endpoints:  "GET /search: Search for an item\n",
		Examples:   "Example 1:\n...",
		Background: "user id is abc",
		Query:      "play Yellow",
		Scratchpad: "Plan step 1: search Yellow\nAPI response: id 3AJ\n",
		NextStep:   2,
	})
	require.NoError(t, err)

	assert.Contains(t, out, "GET /search: Search for an item")
	assert.Contains(t, out, "Example 1:\n...")
	assert.Contains(t, out, "Background: user id is abc\nUser query: play Yellow\nPlan step 1: search Yellow\nAPI response: id 3AJ\n")
	assert.True(t, strings.HasSuffix(out, "Plan step 2:"), out[len(out)-40:])
	assert.Contains(t, out, `"/users/{user_id}/tweets"`)
}

func TestPlannerDefaultsNextStep(t *testing.T) {
	out, err := Planner(PlannerParams{Query: "q"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(out, "User query: q\nPlan step 1:"))
}

func TestCallerAndParser(t *testing.T) {
	out, err := Caller(CallerParams{
		BaseURL:    "https://api.spotify.com/v1",
		Docs:       "== PUT /me/player/volume ==\n",
		Background: "none",
		Step:       "set the volume to 20",
	})
	require.NoError(t, err)
	assert.Contains(t, out, "Base url: https://api.spotify.com/v1")
	assert.True(t, strings.HasSuffix(out, "Plan step: set the volume to 20\nOperation:"))

	out, err = Parser(ParserParams{Response: `{"id":42}`, Description: "search a person", Instructions: "the id"})
	require.NoError(t, err)
	assert.Contains(t, out, `{"id":42}`)
	assert.True(t, strings.HasSuffix(out, "Answer:"))
}

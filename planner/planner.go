// Package planner asks the LLM for the next API step of a plan, given the
// query, background facts and the steps already executed.
package planner

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/apispec"
	"github.com/m4xw311/restgpt/budget"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/llm"
	"github.com/m4xw311/restgpt/logging"
	"github.com/m4xw311/restgpt/prompt"
	"github.com/m4xw311/restgpt/transcript"
)

// Planner proposes one action per call. It holds no per-query state.
type Planner struct {
	client    llm.Client
	endpoints string
	scenario  string
	examples  string
	gen       llm.Options

	counter       *budget.Counter
	contextWindow int
	logger        *log.Logger
}

type Option func(*Planner)

// WithBudget makes the planner warn when a rendered prompt exceeds the
// context window.
func WithBudget(counter *budget.Counter, contextWindow int) Option {
	return func(p *Planner) {
		p.counter = counter
		p.contextWindow = contextWindow
	}
}

func WithLogger(logger *log.Logger) Option {
	return func(p *Planner) { p.logger = logger }
}

// New creates a planner for scenario. An unknown scenario fails with
// ErrUnknownScenario before any prompt can be rendered.
func New(client llm.Client, catalog *apispec.Catalog, scenario string, gen llm.Options, opts ...Option) (*Planner, error) {
	examples, err := prompt.Examples(scenario)
	if err != nil {
		return nil, err
	}
	if catalog == nil {
		return nil, errors.New("planner needs an endpoint catalog")
	}
	p := &Planner{
		client:    client,
		endpoints: catalog.Render(),
		scenario:  scenario,
		examples:  examples,
		gen:       gen,
		logger:    logging.Discard(),
	}
	for _, o := range opts {
		o(p)
	}
	p.gen.Stop = StopSequences()
	return p, nil
}

// StopSequences halt generation before the model writes its own API response.
func StopSequences() []string {
	label := strings.TrimSpace(prompt.ObservationLabel)
	return []string{"\n" + label, "\n\t" + label}
}

// Scratchpad renders history as alternating "Plan step i:" and
// "API response:" lines.
func Scratchpad(history []transcript.Pair) string {
	var b strings.Builder
	for i, pair := range history {
		fmt.Fprintf(&b, "%s %d: %s\n", prompt.StepLabel, i+1, pair.Step)
		fmt.Fprintf(&b, "%s %s\n", prompt.ObservationLabel, pair.Observation)
	}
	return b.String()
}

// Render builds the full planner prompt.
func (p *Planner) Render(query, background string, history []transcript.Pair) (string, error) {
	return prompt.Planner(prompt.PlannerParams{
		Endpoints:  p.endpoints,
		Examples:   p.examples,
		Background: background,
		Query:      query,
		Scratchpad: Scratchpad(history),
		NextStep:   len(history) + 1,
	})
}

// Plan returns the next step, or a final answer, with any echoed step labels
// removed. LLM failures and empty output are returned as ErrLLMInvocation;
// nothing is retried here.
func (p *Planner) Plan(ctx context.Context, query, background string, history []transcript.Pair) (string, error) {
	text, err := p.Render(query, background, history)
	if err != nil {
		return "", err
	}
	if p.counter != nil && p.contextWindow > 0 {
		if n := p.counter.Count(text); n > p.contextWindow {
			p.logger.Warn("planner prompt exceeds context window", "tokens", n, "window", p.contextWindow)
		}
	}

	out, err := p.client.Complete(ctx, text, p.gen)
	if err != nil {
		return "", errors.MarkWrap(err, errors.ErrLLMInvocation, "planner completion")
	}
	out = StripStepLabel(out)
	if out == "" {
		return "", errors.Mark(errors.ErrLLMInvocation, "planner returned empty text")
	}
	p.logger.Debug("planner output", "step", len(history)+1, "text", out)
	return out, nil
}

// Scenario returns the scenario whose demonstrations the planner uses.
func (p *Planner) Scenario() string { return p.scenario }

// Package caller turns one natural-language plan step into a single HTTP
// request against the target API and reports the outcome as an observation.
package caller

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/apispec"
	"github.com/m4xw311/restgpt/budget"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/llm"
	"github.com/m4xw311/restgpt/logging"
	"github.com/m4xw311/restgpt/planner"
	"github.com/m4xw311/restgpt/prompt"
	"github.com/m4xw311/restgpt/tools"
	"github.com/m4xw311/restgpt/transcript"
)

// Executor performs a resolved request. *tools.ToolRegistry implements it.
type Executor interface {
	Do(ctx context.Context, req tools.Request) (*tools.Response, error)
}

// Settings control request resolution and observation rendering.
type Settings struct {
	// BaseURL is joined with relative urls. Empty means the first server
	// declared in the catalog.
	BaseURL string
	// SimpleParser reports raw (filtered) JSON instead of asking the model
	// to summarise it.
	SimpleParser      bool
	MaxResponseTokens int
}

type Caller struct {
	client   llm.Client
	catalog  *apispec.Catalog
	exec     Executor
	settings Settings
	gen      llm.Options
	docs     string
	counter  *budget.Counter
	logger   *log.Logger
}

type Option func(*Caller)

func WithCounter(counter *budget.Counter) Option {
	return func(c *Caller) { c.counter = counter }
}

func WithLogger(logger *log.Logger) Option {
	return func(c *Caller) { c.logger = logger }
}

func New(client llm.Client, catalog *apispec.Catalog, exec Executor, settings Settings, gen llm.Options, opts ...Option) (*Caller, error) {
	if catalog == nil {
		return nil, errors.New("caller needs an endpoint catalog")
	}
	if exec == nil {
		return nil, errors.New("caller needs an executor")
	}
	if settings.BaseURL == "" && len(catalog.Servers) > 0 {
		settings.BaseURL = catalog.Servers[0]
	}
	c := &Caller{
		client:   client,
		catalog:  catalog,
		exec:     exec,
		settings: settings,
		gen:      gen,
		docs:     catalog.RenderDocs(),
		counter:  budget.Estimator(),
		logger:   logging.Discard(),
	}
	for _, o := range opts {
		o(c)
	}
	c.gen.Stop = StopSequences()
	return c, nil
}

// StopSequences keep the model from inventing a response or the next step.
func StopSequences() []string {
	return []string{"\nResponse:", "\n" + prompt.StepLabel, "\n" + prompt.ObservationLabel}
}

// BaseURL returns the url relative paths are resolved against.
func (c *Caller) BaseURL() string { return c.settings.BaseURL }

// Call executes step and returns its observation. Failures of the request
// itself are ErrExecution; model failures are ErrLLMInvocation.
func (c *Caller) Call(ctx context.Context, step, background string, history []transcript.Pair) (string, error) {
	text, err := prompt.Caller(prompt.CallerParams{
		BaseURL:    c.settings.BaseURL,
		Docs:       c.docs,
		Background: background,
		History:    planner.Scratchpad(history),
		Step:       step,
	})
	if err != nil {
		return "", err
	}

	out, err := c.client.Complete(ctx, text, c.gen)
	if err != nil {
		return "", errors.MarkWrap(err, errors.ErrLLMInvocation, "caller completion")
	}
	c.logger.Debug("caller output", "text", out)

	call, note, ok, err := parseCall("Operation:" + out)
	if err != nil {
		return "", err
	}
	if !ok {
		if note == "" {
			note = step
		}
		return "No API call needed. " + note, nil
	}
	return c.execute(ctx, call)
}

func (c *Caller) execute(ctx context.Context, call Call) (string, error) {
	full, params, err := resolveURL(c.settings.BaseURL, call.URL, call.Params)
	if err != nil {
		return "", err
	}
	path := apiPath(c.settings.BaseURL, full)
	if _, ok := c.catalog.Lookup(call.Method, path); !ok {
		return "", errors.Mark(errors.ErrExecution, "%s %s is not in the API catalog", call.Method, path)
	}

	c.logger.Info("calling api", "method", call.Method, "url", full)
	resp, err := c.exec.Do(ctx, tools.Request{
		Method: call.Method,
		URL:    full,
		Params: params,
		Data:   call.Data,
	})
	if err != nil {
		return "", err
	}

	body, err := postprocess(resp.Body, call.Filter, call.Sort)
	if err != nil {
		return "", err
	}
	body = c.counter.Truncate(body, c.settings.MaxResponseTokens)

	head := fmt.Sprintf("Successfully called %s %s", call.Method, path)
	if desc := strings.TrimRight(strings.TrimSpace(call.Description), "."); desc != "" {
		head += " to " + lowerFirst(desc)
	}
	head += "."
	if body == "" {
		return head, nil
	}
	if c.settings.SimpleParser {
		return head + " Response: " + body, nil
	}

	summary, err := c.summarise(ctx, body, call)
	if err != nil {
		return "", err
	}
	return head + " " + summary, nil
}

func (c *Caller) summarise(ctx context.Context, body string, call Call) (string, error) {
	instructions := call.OutputInstructions
	if instructions == "" {
		instructions = "Summarise the response."
	}
	text, err := prompt.Parser(prompt.ParserParams{
		Response:     body,
		Description:  call.Description,
		Instructions: instructions,
	})
	if err != nil {
		return "", err
	}
	gen := c.gen
	gen.Stop = nil
	out, err := c.client.Complete(ctx, text, gen)
	if err != nil {
		return "", errors.MarkWrap(err, errors.ErrLLMInvocation, "response parser completion")
	}
	return strings.TrimSpace(out), nil
}

// lowerFirst lowercases the first letter unless the word looks like an
// acronym.
func lowerFirst(s string) string {
	r := []rune(s)
	if len(r) < 2 || !unicode.IsLower(r[1]) {
		return s
	}
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

package terminal

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/errors"
)

// Verbosity controls how much of the plan is printed while a query runs.
type Verbosity string

const (
	VerbosityNone Verbosity = "none"
	VerbosityInfo Verbosity = "info"
	VerbosityAll  Verbosity = "all"
)

// ParseVerbosity maps a flag value to a Verbosity.
func ParseVerbosity(s string) (Verbosity, error) {
	switch v := Verbosity(strings.ToLower(strings.TrimSpace(s))); v {
	case VerbosityNone, VerbosityInfo, VerbosityAll:
		return v, nil
	case "":
		return VerbosityInfo, nil
	default:
		return "", errors.New("unknown verbosity %q (want none, info or all)", s)
	}
}

// Terminal handles the interactive mode: one query per input line.
type Terminal struct {
	agent      *agent.Agent
	in         io.Reader
	out        io.Writer
	Verbosity  Verbosity
	Background string
}

func New(a *agent.Agent, in io.Reader, out io.Writer) *Terminal {
	return &Terminal{
		agent:     a,
		in:        in,
		out:       out,
		Verbosity: VerbosityInfo,
	}
}

// Run answers initialQuery, if any, then reads queries until EOF or /quit.
// Lines starting with /background replace the background for later
// queries.
func (t *Terminal) Run(ctx context.Context, initialQuery string) error {
	if initialQuery != "" {
		t.processTurn(ctx, initialQuery)
	}

	scanner := bufio.NewScanner(t.in)
	for {
		fmt.Fprint(t.out, "Query: ")
		if !scanner.Scan() {
			fmt.Fprintln(t.out)
			break
		}

		input := strings.TrimSpace(scanner.Text())
		switch {
		case input == "":
			continue
		case input == "/quit" || input == "/exit":
			return nil
		case strings.HasPrefix(input, "/background"):
			t.Background = strings.TrimSpace(strings.TrimPrefix(input, "/background"))
			fmt.Fprintf(t.out, "Background set to %q\n", t.Background)
			continue
		}

		if err := ctx.Err(); err != nil {
			return err
		}
		t.processTurn(ctx, input)
	}
	return scanner.Err()
}

// processTurn runs one query. Its failure is printed, never returned, so
// the session continues.
func (t *Terminal) processTurn(ctx context.Context, query string) *agent.Result {
	callbacks := agent.ProcessCallbacks{
		OnPlan: func(step int, text string) {
			if t.Verbosity != VerbosityNone {
				fmt.Fprintf(t.out, "Plan step %d: %s\n", step, text)
			}
		},
		OnObservation: func(step int, text string) {
			if t.Verbosity == VerbosityAll {
				fmt.Fprintf(t.out, "API response: %s\n", text)
			}
		},
		OnWarning: func(warning string) {
			fmt.Fprintf(t.out, "Warning: %s\n", warning)
		},
	}

	res, err := t.agent.Process(ctx, agent.Query{Text: query, Background: t.Background}, callbacks)
	if err != nil {
		fmt.Fprintf(t.out, "Failed after %d steps: %s\n", res.Iterations, errors.Plain(err))
		return res
	}
	fmt.Fprintf(t.out, "Answer: %s\n", res.Answer)
	return res
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/m4xw311/restgpt/tools"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

var version = "dev"

// app carries what the commands share, so tests can swap the filesystem and
// the output streams.
type app struct {
	fs     afero.Fs
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	opts   options

	// registry is the HTTP tool registry of the last agent built.
	registry *tools.ToolRegistry
}

// options are the persistent flags. A flag overrides the config file only
// when it was set on the command line.
type options struct {
	configPath    string
	specPath      string
	baseURL       string
	scenario      string
	provider      string
	model         string
	logLevel      string
	maxIterations int
	simpleParser  bool
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "restgpt",
		Short: "Answer natural-language requests with calls to a REST API",
		Long: `restgpt plans a sequence of REST calls for a request, executes them one at a
time against the API described by an OpenAPI document, and answers from the
results.

Configuration is read from ~/.restgpt/config.yaml, ./.restgpt/config.yaml and
--config, in that order; credentials come from the environment or .env.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	f := root.PersistentFlags()
	f.StringVar(&a.opts.configPath, "config", "", "Configuration file (YAML)")
	f.StringVar(&a.opts.specPath, "spec", "", "OpenAPI document (JSON or YAML)")
	f.StringVar(&a.opts.baseURL, "base-url", "", "Base URL of the API, defaults to the first server in the spec")
	f.StringVar(&a.opts.scenario, "scenario", "", "Scenario whose demonstrations are shown to the planner (spotify, tmdb)")
	f.StringVar(&a.opts.provider, "provider", "", "LLM provider: mock, openai, anthropic, gemini, bedrock or ollama")
	f.StringVar(&a.opts.model, "model", "", "LLM model name")
	f.StringVar(&a.opts.logLevel, "log-level", "", "Log level: debug, info, warn or error")
	f.IntVar(&a.opts.maxIterations, "max-iterations", 0, "Maximum number of API steps per query")
	f.BoolVar(&a.opts.simpleParser, "simple-parser", false, "Report raw API responses instead of summarising them")

	root.AddCommand(
		newRunCmd(a),
		newEvalCmd(a),
		newReplCmd(a),
		newServeCmd(a),
		newMCPCmd(a),
		newACPCmd(a),
		newCatalogCmd(a),
	)
	return root
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{fs: afero.NewOsFs(), stdin: os.Stdin, stdout: os.Stdout, stderr: os.Stderr}
	if err := newRootCmd(a).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %+v\n", err)
		os.Exit(1)
	}
}

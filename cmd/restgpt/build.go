package main

import (
	"context"
	"io"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/apispec"
	"github.com/m4xw311/restgpt/auth"
	"github.com/m4xw311/restgpt/budget"
	"github.com/m4xw311/restgpt/caller"
	"github.com/m4xw311/restgpt/config"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/llm"
	"github.com/m4xw311/restgpt/logging"
	"github.com/m4xw311/restgpt/planner"
	"github.com/m4xw311/restgpt/tools"
	"github.com/m4xw311/restgpt/transcript"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// loadConfig reads the configuration and applies the flags that were set.
func (a *app) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.LoadConfig(a.fs, a.opts.configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("spec") {
		cfg.API.SpecPath = a.opts.specPath
	}
	if flags.Changed("base-url") {
		cfg.API.BaseURL = a.opts.baseURL
	}
	if flags.Changed("scenario") {
		cfg.Agent.Scenario = a.opts.scenario
	}
	if flags.Changed("provider") {
		cfg.LLM.Provider = a.opts.provider
	}
	if flags.Changed("model") {
		cfg.LLM.Model = a.opts.model
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.logLevel
	}
	if flags.Changed("max-iterations") {
		cfg.Agent.MaxIterations = a.opts.maxIterations
	}
	if flags.Changed("simple-parser") {
		cfg.Agent.SimpleParser = a.opts.simpleParser
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (a *app) logger(cfg *config.Config, w io.Writer) *log.Logger {
	return logging.New(w, logging.Options{Level: cfg.LogLevel, Timestamp: true})
}

// loadCatalog reads and reduces the OpenAPI document named in cfg.
func (a *app) loadCatalog(cfg *config.Config) (*apispec.Catalog, []byte, error) {
	if cfg.API.SpecPath == "" {
		return nil, nil, errors.New("no OpenAPI document configured; set api.spec_path or --spec")
	}
	raw, err := afero.ReadFile(a.fs, cfg.API.SpecPath)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "could not read OpenAPI document")
	}
	cat, err := apispec.Reduce(raw, apispec.ReduceOptions{
		OnlyRequired: cfg.API.OnlyRequired,
		MergeAllOf:   cfg.API.MergeAllOf,
		Include:      cfg.API.Include,
		Exclude:      cfg.API.Exclude,
	})
	if err != nil {
		return nil, nil, err
	}
	return cat, raw, nil
}

// buildAgent wires the LLM, the catalog, the HTTP client and the loop. The
// returned cleanup releases the LLM client.
func (a *app) buildAgent(ctx context.Context, cfg *config.Config, logger *log.Logger) (*agent.Agent, func(), error) {
	cat, raw, err := a.loadCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("catalog loaded", "endpoints", cat.Len(), "skipped", cat.Skipped, "filtered", cat.Filtered)
	for _, p := range cat.Problems {
		logger.Debug("skipped spec entry", "problem", p)
	}

	if len(cfg.Auth.Scopes) == 0 {
		cfg.Auth.Scopes = apispec.ScopesFromSpec(raw)
	}
	ts, err := auth.TokenSource(ctx, cfg.Auth)
	if err != nil {
		return nil, nil, err
	}
	if ts == nil {
		logger.Warn("no API credentials configured, requests are sent unauthenticated")
	}
	registry := tools.NewToolRegistry(auth.HTTPClient(ctx, ts, cfg.API.Timeout), nil)
	a.registry = registry

	client, err := llm.NewFromConfig(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if c, ok := client.(io.Closer); ok {
			_ = c.Close()
		}
	}

	counter := budget.Estimator()
	if cfg.LLM.Provider != "mock" {
		counter = budget.NewCounter(cfg.LLM.Model)
	}
	gen := llm.OptionsFromConfig(cfg.LLM)

	p, err := planner.New(client, cat, cfg.Agent.Scenario, gen,
		planner.WithBudget(counter, cfg.LLM.ContextWindow),
		planner.WithLogger(logger))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	c, err := caller.New(client, cat, registry, caller.Settings{
		BaseURL:           cfg.API.BaseURL,
		SimpleParser:      cfg.Agent.SimpleParser,
		MaxResponseTokens: cfg.Agent.MaxResponseTokens,
	}, gen, caller.WithCounter(counter), caller.WithLogger(logger))
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	ag, err := agent.New(agent.Settings{
		MaxIterations: cfg.Agent.MaxIterations,
		Scenario:      cfg.Agent.Scenario,
	}, p, c,
		agent.WithLogger(logger),
		agent.WithSink(transcript.LoggerSink{Logger: logger}),
		agent.WithQueryLogs(a.fs, cfg.LogDir),
		agent.WithTranscripts(a.fs, filepath.Join(cfg.LogDir, "transcripts")))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return ag, cleanup, nil
}

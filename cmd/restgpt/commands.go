package main

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/agent/acp"
	"github.com/m4xw311/restgpt/agent/mcp"
	"github.com/m4xw311/restgpt/agent/terminal"
	"github.com/m4xw311/restgpt/agent/ws"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/eval"
	"github.com/spf13/cobra"
)

func newRunCmd(a *app) *cobra.Command {
	var background string
	cmd := &cobra.Command{
		Use:   "run <query>",
		Short: "Answer a single query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := a.logger(cfg, a.stderr)
			ag, cleanup, err := a.buildAgent(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := ag.Run(cmd.Context(), agent.Query{Text: strings.Join(args, " "), Background: background})
			if err != nil {
				for i, p := range res.History {
					fmt.Fprintf(a.stdout, "Plan step %d: %s\nAPI response: %s\n", i+1, p.Step, p.Observation)
				}
				return errors.Wrapf(err, "query %s failed", res.QueryID)
			}
			fmt.Fprintln(a.stdout, res.Answer)
			return nil
		},
	}
	cmd.Flags().StringVar(&background, "background", "", "Facts the planner may use, e.g. known ids")
	return cmd
}

func newEvalCmd(a *app) *cobra.Command {
	var dataset, report string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Answer every query of a dataset, one log file per query",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			items, err := eval.LoadDataset(a.fs, dataset)
			if err != nil {
				return err
			}
			logger := a.logger(cfg, a.stderr)
			ag, cleanup, err := a.buildAgent(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			logDir := filepath.Join(cfg.LogDir, time.Now().Format("2006-01-02_15-04-05"))
			rep, runErr := eval.NewRunner(ag, a.fs, logDir, logger).Run(cmd.Context(), items)
			if err := rep.WriteSummary(a.stdout); err != nil {
				return err
			}
			if report == "" {
				report = filepath.Join(logDir, "report.json")
			}
			if err := rep.Save(a.fs, report); err != nil {
				return err
			}
			return runErr
		},
	}
	cmd.Flags().StringVar(&dataset, "dataset", "", "Dataset file: a JSON or YAML list of {query, background}")
	cmd.Flags().StringVar(&report, "report", "", "Where to write the JSON report (default <log dir>/report.json)")
	_ = cmd.MarkFlagRequired("dataset")
	return cmd
}

func newReplCmd(a *app) *cobra.Command {
	var verbosity string
	cmd := &cobra.Command{
		Use:   "repl [query]",
		Short: "Answer queries interactively",
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := terminal.ParseVerbosity(verbosity)
			if err != nil {
				return err
			}
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			ag, cleanup, err := a.buildAgent(cmd.Context(), cfg, a.logger(cfg, a.stderr))
			if err != nil {
				return err
			}
			defer cleanup()

			fmt.Fprintln(a.stdout, "restgpt is ready. Type a query, /background <text> or /quit.")
			term := terminal.New(ag, a.stdin, a.stdout)
			term.Verbosity = v
			return term.Run(cmd.Context(), strings.Join(args, " "))
		},
	}
	cmd.Flags().StringVar(&verbosity, "verbosity", "info", "What to print while a query runs: none, info or all")
	return cmd
}

func newServeCmd(a *app) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve queries over WebSocket at /ws",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := a.logger(cfg, a.stderr)
			ag, cleanup, err := a.buildAgent(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()

			srv := &http.Server{
				Addr:              addr,
				Handler:           ws.NewServeMux(ws.NewHandler(ag, logger)),
				ReadHeaderTimeout: 10 * time.Second,
			}
			errc := make(chan error, 1)
			go func() { errc <- srv.ListenAndServe() }()
			logger.Info("websocket server running", "url", "ws://"+addr+"/ws")

			select {
			case err := <-errc:
				return errors.Wrapf(err, "server stopped")
			case <-cmd.Context().Done():
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "localhost:8080", "Listen address")
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	var exposeRequests bool
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the restgpt_query tool over MCP on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			// stdout carries the protocol; logs go to stderr only.
			logger := a.logger(cfg, a.stderr)
			ag, cleanup, err := a.buildAgent(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			var opts []mcp.Option
			if exposeRequests {
				opts = append(opts, mcp.WithRequestTools(a.registry))
			}
			return mcp.NewServer(ag, version, logger, opts...).Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&exposeRequests, "expose-requests", false, "Also expose the authenticated requests_* tools")
	return cmd
}

func newACPCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "acp",
		Short: "Serve editors over the Agent Client Protocol on stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			logger := a.logger(cfg, a.stderr)
			ag, cleanup, err := a.buildAgent(cmd.Context(), cfg, logger)
			if err != nil {
				return err
			}
			defer cleanup()
			return acp.Run(cmd.Context(), ag, a.stdin, a.stdout, logger)
		},
	}
}

func newCatalogCmd(a *app) *cobra.Command {
	var docs bool
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Print the reduced endpoint catalog shown to the planner",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig(cmd)
			if err != nil {
				return err
			}
			cat, _, err := a.loadCatalog(cfg)
			if err != nil {
				return err
			}
			if docs {
				fmt.Fprint(a.stdout, cat.RenderDocs())
			} else {
				fmt.Fprint(a.stdout, cat.Render())
			}
			fmt.Fprintf(a.stdout, "%d endpoints, %d skipped, %d filtered\n", cat.Len(), cat.Skipped, cat.Filtered)
			for _, p := range cat.Problems {
				fmt.Fprintf(a.stdout, "  skipped: %s\n", p)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&docs, "docs", false, "Print parameters and response fields too")
	return cmd
}

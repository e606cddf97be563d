// Package eval answers a dataset of queries in sequence, one log file and
// one transcript per query, and summarises the outcome.
package eval

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/logging"
	"github.com/m4xw311/restgpt/transcript"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"
)

// Item is one dataset entry.
type Item struct {
	Query      string `json:"query" yaml:"query"`
	Background string `json:"background,omitempty" yaml:"background,omitempty"`
}

// LoadDataset reads a JSON array of items, or YAML when the file ends in
// .yaml or .yml. Entries without a query are dropped.
func LoadDataset(fs afero.Fs, path string) ([]Item, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read dataset %s", path)
	}

	var items []Item
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &items)
	default:
		err = json.Unmarshal(data, &items)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "could not parse dataset %s", path)
	}

	out := items[:0]
	for _, it := range items {
		if strings.TrimSpace(it.Query) != "" {
			out = append(out, it)
		}
	}
	if len(out) == 0 {
		return nil, errors.New("dataset %s has no queries", path)
	}
	return out, nil
}

// Outcome is the result of one dataset entry.
type Outcome struct {
	Index    int           `json:"index"`
	Query    string        `json:"query"`
	QueryID  string        `json:"query_id"`
	State    string        `json:"state"`
	Answer   string        `json:"answer,omitempty"`
	Error    string        `json:"error,omitempty"`
	Steps    int           `json:"steps"`
	Duration time.Duration `json:"duration_ns"`
	LogPath  string        `json:"log_path"`
}

type Report struct {
	Outcomes []Outcome     `json:"outcomes"`
	Done     int           `json:"done"`
	Failed   int           `json:"failed"`
	Elapsed  time.Duration `json:"elapsed_ns"`
}

// WriteSummary prints one line per query and a total.
func (r *Report) WriteSummary(w io.Writer) error {
	for _, o := range r.Outcomes {
		result := o.Answer
		if o.State != string(agent.StateDone) {
			result = o.Error
		}
		if _, err := fmt.Fprintf(w, "%3d %-6s %2d steps %8s  %s\n    %s\n",
			o.Index, o.State, o.Steps, o.Duration.Round(time.Millisecond), o.Query, result); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d done, %d failed in %s\n", r.Done, r.Failed, r.Elapsed.Round(time.Millisecond))
	return err
}

// Save writes the report as JSON.
func (r *Report) Save(fs afero.Fs, path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "failed to serialize report")
	}
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "could not create report directory")
	}
	return afero.WriteFile(fs, path, data, 0o644)
}

// Runner answers datasets with one agent.
type Runner struct {
	agent  *agent.Agent
	fs     afero.Fs
	logDir string
	logger *log.Logger
}

func NewRunner(a *agent.Agent, fs afero.Fs, logDir string, logger *log.Logger) *Runner {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Runner{agent: a, fs: fs, logDir: logDir, logger: logger}
}

// Run answers every item in order. A failed query is recorded and the run
// continues; only cancellation of ctx or an unusable log directory stops
// it early, returning the partial report.
func (r *Runner) Run(ctx context.Context, items []Item) (*Report, error) {
	report := &Report{}
	start := time.Now()
	defer func() { report.Elapsed = time.Since(start) }()

	for i, it := range items {
		if err := ctx.Err(); err != nil {
			return report, errors.Wrapf(err, "evaluation stopped after %d of %d queries", i, len(items))
		}
		o, err := r.one(ctx, i, it)
		if err != nil {
			return report, err
		}
		report.Outcomes = append(report.Outcomes, o)
		if o.State == string(agent.StateDone) {
			report.Done++
		} else {
			report.Failed++
		}
	}
	return report, nil
}

func (r *Runner) one(ctx context.Context, i int, it Item) (Outcome, error) {
	logPath := filepath.Join(r.logDir, fmt.Sprintf("%d.log", i))
	file, err := transcript.NewFileSink(r.fs, logPath)
	if err != nil {
		return Outcome{}, err
	}
	defer file.Close()

	r.logger.Info("processing query", "n", i+1, "query", it.Query)
	a := r.agent.With(
		agent.WithSink(transcript.MultiSink{file, transcript.LoggerSink{Logger: r.logger}}),
		agent.WithTranscripts(r.fs, filepath.Join(r.logDir, "transcripts")),
		agent.WithQueryLogs(nil, ""),
	)
	res, err := a.Run(ctx, agent.Query{Text: it.Query, Background: it.Background})

	o := Outcome{
		Index:    i,
		Query:    it.Query,
		QueryID:  res.QueryID,
		State:    string(res.State),
		Answer:   res.Answer,
		Steps:    res.Iterations,
		Duration: res.Duration,
		LogPath:  logPath,
	}
	if err != nil {
		o.Error = errors.Plain(err)
		r.logger.Warn("query failed", "n", i+1, "err", o.Error)
	} else {
		r.logger.Info("query done", "n", i+1, "elapsed", res.Duration)
	}
	return o, nil
}

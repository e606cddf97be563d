package agent

import (
	"context"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/logging"
	"github.com/m4xw311/restgpt/planner"
	"github.com/m4xw311/restgpt/transcript"
	"github.com/spf13/afero"
)

// State is a state of the plan-act-observe loop.
type State string

const (
	StatePlanning  State = "PLANNING"
	StateExecuting State = "EXECUTING"
	StateDone      State = "DONE"
	StateFailed    State = "FAILED"
)

// DefaultMaxIterations bounds the loop when Settings leave it unset.
const DefaultMaxIterations = 10

// Planner proposes the next step, or a final answer, for a query.
type Planner interface {
	Plan(ctx context.Context, query, background string, history []transcript.Pair) (string, error)
}

// Caller executes one plan step and describes the outcome.
type Caller interface {
	Call(ctx context.Context, step, background string, history []transcript.Pair) (string, error)
}

type Settings struct {
	MaxIterations int
	// Scenario is recorded in transcripts.
	Scenario string
}

// Query is one user request.
type Query struct {
	Text       string
	Background string
}

// Result is the outcome of a query. On FAILED, Err holds the reason and
// History the steps executed so far.
type Result struct {
	QueryID    string
	Query      Query
	State      State
	Answer     string
	History    []transcript.Pair
	Iterations int
	Err        error
	Started    time.Time
	Duration   time.Duration

	// LogPath is the per-query event log, empty when none was written.
	LogPath string
}

// Transcript converts the result into its persisted form.
func (r *Result) Transcript(scenario string) *transcript.Transcript {
	t := &transcript.Transcript{
		QueryID:    r.QueryID,
		Query:      r.Query.Text,
		Background: r.Query.Background,
		Scenario:   scenario,
		State:      string(r.State),
		Answer:     r.Answer,
		Pairs:      r.History,
		Started:    r.Started,
		Duration:   r.Duration,
	}
	if r.Err != nil {
		t.Error = errors.Plain(r.Err)
	}
	return t
}

// ProcessCallbacks let front-ends follow a query as it runs. Nil callbacks
// are skipped.
type ProcessCallbacks struct {
	OnState       func(state State)
	OnPlan        func(step int, text string)
	OnObservation func(step int, text string)
	OnWarning     func(warning string)
}

type Agent struct {
	settings Settings
	planner  Planner
	caller   Caller
	sink     transcript.Sink
	logger   *log.Logger

	fs            afero.Fs
	transcriptDir string

	logFs  afero.Fs
	logDir string
}

type Option func(*Agent)

// WithSink sets where query events are recorded.
func WithSink(sink transcript.Sink) Option {
	return func(a *Agent) { a.sink = sink }
}

func WithLogger(logger *log.Logger) Option {
	return func(a *Agent) { a.logger = logger }
}

// WithTranscripts saves a JSON transcript of every finished query to dir.
func WithTranscripts(fs afero.Fs, dir string) Option {
	return func(a *Agent) {
		a.fs = fs
		a.transcriptDir = dir
	}
}

// WithQueryLogs writes every event of a query, as it happens, to its own
// plain-text file dir/<query id>.log in addition to the agent's sink. An
// empty dir turns it off.
func WithQueryLogs(fs afero.Fs, dir string) Option {
	return func(a *Agent) {
		a.logFs = fs
		a.logDir = dir
	}
}

func New(settings Settings, p Planner, c Caller, opts ...Option) (*Agent, error) {
	if p == nil || c == nil {
		return nil, errors.New("agent needs both a planner and a caller")
	}
	if settings.MaxIterations <= 0 {
		settings.MaxIterations = DefaultMaxIterations
	}
	a := &Agent{
		settings: settings,
		planner:  p,
		caller:   c,
		sink:     transcript.NopSink{},
		logger:   logging.Discard(),
	}
	for _, o := range opts {
		o(a)
	}
	return a, nil
}

// With returns a copy of the agent with opts applied. Batch runners use it to
// give each query its own log sink.
func (a *Agent) With(opts ...Option) *Agent {
	cp := *a
	for _, o := range opts {
		o(&cp)
	}
	return &cp
}

func (a *Agent) Settings() Settings { return a.settings }

// Run answers q without callbacks.
func (a *Agent) Run(ctx context.Context, q Query) (*Result, error) {
	return a.Process(ctx, q, ProcessCallbacks{})
}

// Process drives one query to DONE or FAILED. Every query starts from an
// empty history. The returned error is the same as Result.Err; the Result
// is never nil.
func (a *Agent) Process(ctx context.Context, q Query, cb ProcessCallbacks) (*Result, error) {
	r := &run{
		agent: a,
		cb:    cb,
		res: &Result{
			QueryID: uuid.NewString(),
			Query:   q,
			Started: time.Now(),
		},
		history: &transcript.History{},
		sink:    a.sink,
	}
	if a.logFs != nil && a.logDir != "" {
		path := filepath.Join(a.logDir, r.res.QueryID+".log")
		file, err := transcript.NewFileSink(a.logFs, path)
		if err != nil {
			r.warn("could not open query log: " + errors.Plain(err))
		} else {
			defer file.Close()
			r.sink = transcript.MultiSink{file, a.sink}
			r.res.LogPath = path
		}
	}
	r.record(transcript.EventQuery, 0, q.Text)
	if q.Background != "" {
		r.record(transcript.EventInfo, 0, "background: "+q.Background)
	}

	r.loop(ctx)

	res := r.res
	res.History = r.history.Pairs()
	res.Iterations = r.history.Len()
	res.Duration = time.Since(res.Started)
	if a.fs != nil && a.transcriptDir != "" {
		if path, err := res.Transcript(a.settings.Scenario).Save(a.fs, a.transcriptDir); err != nil {
			r.warn("could not save transcript: " + errors.Plain(err))
		} else {
			a.logger.Debug("transcript saved", "path", path)
		}
	}
	return res, res.Err
}

type run struct {
	agent   *Agent
	cb      ProcessCallbacks
	res     *Result
	history *transcript.History
	sink    transcript.Sink
}

func (r *run) loop(ctx context.Context) {
	a := r.agent
	for {
		r.setState(StatePlanning)
		if err := ctx.Err(); err != nil {
			r.fail(errors.Wrapf(err, "query cancelled"))
			return
		}
		if r.history.Len() >= a.settings.MaxIterations {
			r.fail(errors.Mark(errors.ErrPlanNotConverged, "no final answer after %d steps", r.history.Len()))
			return
		}

		step := r.history.Len() + 1
		out, err := a.planner.Plan(ctx, r.res.Query.Text, r.res.Query.Background, r.history.Pairs())
		if err != nil {
			r.fail(err)
			return
		}

		d := planner.Classify(out)
		switch d.Kind {
		case planner.KindFinal:
			r.res.Answer = d.Text
			r.record(transcript.EventAnswer, step, d.Text)
			r.setState(StateDone)
			return
		case planner.KindAmbiguous:
			r.record(transcript.EventInfo, step, "planner output: "+out)
			r.fail(errors.Mark(errors.ErrAmbiguousPlannerOutput, "%s", d.Text))
			return
		}

		r.record(transcript.EventPlan, step, d.Text)
		if r.cb.OnPlan != nil {
			r.cb.OnPlan(step, d.Text)
		}

		r.setState(StateExecuting)
		obs, err := a.caller.Call(ctx, d.Text, r.res.Query.Background, r.history.Pairs())
		if err != nil {
			if !errors.Is(err, errors.ErrExecution) {
				r.fail(err)
				return
			}
			a.logger.Warn("step failed", "query", r.res.QueryID, "step", step, "err", err)
			obs = "Error: " + errors.Plain(err)
		}
		r.history.Append(d.Text, obs)
		r.record(transcript.EventObservation, step, obs)
		if r.cb.OnObservation != nil {
			r.cb.OnObservation(step, obs)
		}
	}
}

func (r *run) setState(s State) {
	r.res.State = s
	r.record(transcript.EventState, r.history.Len(), string(s))
	if r.cb.OnState != nil {
		r.cb.OnState(s)
	}
}

func (r *run) fail(err error) {
	r.res.Err = err
	r.record(transcript.EventError, r.history.Len(), errors.Plain(err))
	r.setState(StateFailed)
}

func (r *run) record(kind transcript.EventKind, step int, text string) {
	err := r.sink.Record(transcript.Event{
		Time:    time.Now(),
		QueryID: r.res.QueryID,
		Kind:    kind,
		Step:    step,
		Text:    text,
	})
	if err != nil {
		r.warn("could not record event: " + err.Error())
	}
}

func (r *run) warn(msg string) {
	r.agent.logger.Warn(msg, "query", r.res.QueryID)
	if r.cb.OnWarning != nil {
		r.cb.OnWarning(msg)
	}
}

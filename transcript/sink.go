package transcript

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/errors"
	"github.com/spf13/afero"
)

// EventKind names the events written to a query log.
type EventKind string

const (
	EventQuery       EventKind = "query"
	EventPlan        EventKind = "plan"
	EventObservation EventKind = "observation"
	EventState       EventKind = "state"
	EventAnswer      EventKind = "answer"
	EventError       EventKind = "error"
	EventInfo        EventKind = "info"
)

// Event is one line of a query log.
type Event struct {
	Time    time.Time
	QueryID string
	Kind    EventKind
	Step    int
	Text    string
}

// Line renders the event as a single plain-text line. Newlines inside the
// text are escaped so one event is always one line.
func (e Event) Line() string {
	text := strings.ReplaceAll(e.Text, "\n", `\n`)
	return fmt.Sprintf("%s %s step=%d %s: %s", e.Time.UTC().Format(time.RFC3339), e.QueryID, e.Step, e.Kind, text)
}

// Sink receives query events.
type Sink interface {
	Record(e Event) error
}

// NopSink drops every event.
type NopSink struct{}

func (NopSink) Record(Event) error { return nil }

// FileSink appends one line per event to a file and syncs after each write.
type FileSink struct {
	mu sync.Mutex
	f  afero.File
}

// NewFileSink creates (or truncates) path on fs, creating parent directories.
func NewFileSink(fs afero.Fs, path string) (*FileSink, error) {
	if err := fs.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, errors.Wrapf(err, "could not create log directory")
	}
	f, err := fs.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open log file %s", path)
	}
	return &FileSink{f: f}, nil
}

func (s *FileSink) Record(e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.f.WriteString(e.Line() + "\n"); err != nil {
		return err
	}
	return s.f.Sync()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

// LoggerSink forwards events to a structured logger.
type LoggerSink struct {
	Logger *log.Logger
}

func (s LoggerSink) Record(e Event) error {
	kv := []interface{}{"query", e.QueryID, "step", e.Step}
	switch e.Kind {
	case EventError:
		s.Logger.Error(string(e.Kind), append(kv, "text", e.Text)...)
	case EventState:
		s.Logger.Debug(string(e.Kind), append(kv, "text", e.Text)...)
	default:
		s.Logger.Info(string(e.Kind), append(kv, "text", e.Text)...)
	}
	return nil
}

// MultiSink fans events out to every sink and returns the first error.
type MultiSink []Sink

func (m MultiSink) Record(e Event) error {
	var first error
	for _, s := range m {
		if s == nil {
			continue
		}
		if err := s.Record(e); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// MemorySink keeps events in memory.
type MemorySink struct {
	mu     sync.Mutex
	Events []Event
}

func (m *MemorySink) Record(e Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, e)
	return nil
}

// Kinds returns the kinds of the recorded events in order.
func (m *MemorySink) Kinds() []EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]EventKind, len(m.Events))
	for i, e := range m.Events {
		out[i] = e.Kind
	}
	return out
}

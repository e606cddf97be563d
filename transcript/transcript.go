package transcript

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"time"

	"github.com/m4xw311/restgpt/errors"
	"github.com/spf13/afero"
)

// Transcript is the record of one finished query, kept for offline
// inspection. It is written once and never read back by the agent.
type Transcript struct {
	QueryID    string        `json:"query_id"`
	Query      string        `json:"query"`
	Background string        `json:"background,omitempty"`
	Scenario   string        `json:"scenario"`
	State      string        `json:"state"`
	Answer     string        `json:"answer,omitempty"`
	Error      string        `json:"error,omitempty"`
	Pairs      []Pair        `json:"pairs"`
	Started    time.Time     `json:"started"`
	Duration   time.Duration `json:"duration_ns"`
}

// Save writes the transcript to dir/<query_id>.json and returns the path.
func (t *Transcript) Save(fs afero.Fs, dir string) (string, error) {
	data, err := json.MarshalIndent(t, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to serialize transcript")
	}
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return "", errors.Wrapf(err, "could not create transcript directory")
	}
	path := filepath.Join(dir, fmt.Sprintf("%s.json", t.QueryID))
	if err := afero.WriteFile(fs, path, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "could not write transcript %s", path)
	}
	return path, nil
}

package caller

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/m4xw311/restgpt/budget"
	"github.com/m4xw311/restgpt/errors"
)

// Call is the request the model derived from one plan step.
type Call struct {
	Method             string                 `json:"-"`
	URL                string                 `json:"url"`
	Params             map[string]interface{} `json:"params"`
	Data               interface{}            `json:"data"`
	Description        string                 `json:"description"`
	OutputInstructions string                 `json:"output_instructions"`
	Filter             string                 `json:"filter"`
	Sort               *SortSpec              `json:"sort"`
}

// SortSpec orders an array response by a field.
type SortSpec struct {
	Key   string `json:"key"`
	Desc  bool   `json:"desc"`
	Limit int    `json:"limit"`
}

var (
	operationRE = regexp.MustCompile(`(?i)operation:\s*(GET|POST|PUT|PATCH|DELETE)\b`)
	inputRE     = regexp.MustCompile(`(?i)input:\s*`)
	noCallRE    = regexp.MustCompile(`(?i)no api call needed\.?`)
)

// parseCall reads "Operation: METHOD\nInput: {...}". ok is false, with no
// error, when the model said no call is needed; note then holds its
// explanation.
func parseCall(text string) (call Call, note string, ok bool, err error) {
	if loc := noCallRE.FindStringIndex(text); loc != nil && !operationRE.MatchString(text[:loc[0]]) {
		return Call{}, strings.TrimSpace(text[loc[1]:]), false, nil
	}

	m := operationRE.FindStringSubmatch(text)
	if m == nil {
		return Call{}, "", false, errors.Mark(errors.ErrExecution, "no operation in caller output %q", clip(text))
	}
	method := strings.ToUpper(m[1])

	loc := inputRE.FindStringIndex(text)
	if loc == nil {
		return Call{}, "", false, errors.Mark(errors.ErrExecution, "no input in caller output %q", clip(text))
	}
	rest := text[loc[1]:]
	start := strings.Index(rest, "{")
	if start < 0 {
		return Call{}, "", false, errors.Mark(errors.ErrExecution, "caller input is not a JSON object: %q", clip(rest))
	}
	dec := json.NewDecoder(strings.NewReader(rest[start:]))
	if err := dec.Decode(&call); err != nil {
		return Call{}, "", false, errors.MarkWrap(err, errors.ErrExecution, "caller input is not valid JSON")
	}
	if call.URL == "" {
		return Call{}, "", false, errors.Mark(errors.ErrExecution, "caller input has no url")
	}
	call.Method = method
	return call, "", true, nil
}

func clip(s string) string {
	return budget.Clip(strings.TrimSpace(s), 200)
}

package errors

import (
	stderrors "errors"
	"fmt"
	"path/filepath"
	"regexp"
	"runtime"
)

// Error kinds surfaced by the planning loop. Use errors.Is to test for them.
var (
	ErrSpecMalformed          = stderrors.New("spec malformed")
	ErrUnknownScenario        = stderrors.New("unknown scenario")
	ErrLLMInvocation          = stderrors.New("llm invocation failed")
	ErrPlanNotConverged       = stderrors.New("plan did not converge")
	ErrExecution              = stderrors.New("api execution failed")
	ErrAmbiguousPlannerOutput = stderrors.New("ambiguous planner output")
)

// New creates a new error with file and line number information.
func New(format string, a ...interface{}) error {
	return fmt.Errorf("[%s] %s", caller(), fmt.Sprintf(format, a...))
}

// Wrapf adds context (including file and line number) to an existing error.
// If the provided error is nil, Wrapf returns nil.
func Wrapf(err error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("[%s] %s: %w", caller(), fmt.Sprintf(format, a...), err)
}

// Mark creates an error of the given kind with file and line number information.
// The result satisfies errors.Is(err, kind).
func Mark(kind error, format string, a ...interface{}) error {
	return &kindError{
		kind: kind,
		msg:  fmt.Sprintf("[%s] %s: %s", caller(), kind, fmt.Sprintf(format, a...)),
	}
}

// MarkWrap tags an existing error with a kind. Both the kind and the wrapped
// error are reachable through errors.Is and errors.As. Nil stays nil.
func MarkWrap(err error, kind error, format string, a ...interface{}) error {
	if err == nil {
		return nil
	}
	return &kindError{
		kind:  kind,
		cause: err,
		msg:   fmt.Sprintf("[%s] %s: %s: %v", caller(), kind, fmt.Sprintf(format, a...), err),
	}
}

var locationRE = regexp.MustCompile(`\[[^\[\]\s]+:\d+\] `)

// Plain returns the error message without the "[file:line]" locations, for
// text that is shown to a model or an end user.
func Plain(err error) string {
	if err == nil {
		return ""
	}
	return locationRE.ReplaceAllString(err.Error(), "")
}

func Is(err, target error) bool { return stderrors.Is(err, target) }

func As(err error, target any) bool { return stderrors.As(err, target) }

type kindError struct {
	kind  error
	cause error
	msg   string
}

func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() []error {
	if e.cause == nil {
		return []error{e.kind}
	}
	return []error{e.kind, e.cause}
}

func caller() string {
	_, file, line, ok := runtime.Caller(2)
	if !ok {
		return "???:0"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}

package errors

import (
	"fmt"
	"strings"
	"testing"
)

func TestNewCarriesLocation(t *testing.T) {
	err := New("boom %d", 7)
	if !strings.HasPrefix(err.Error(), "[errors_test.go:") {
		t.Errorf("expected file prefix, got %q", err.Error())
	}
	if !strings.HasSuffix(err.Error(), "boom 7") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestWrapfNil(t *testing.T) {
	if Wrapf(nil, "context") != nil {
		t.Error("Wrapf(nil) should be nil")
	}
	if MarkWrap(nil, ErrExecution, "context") != nil {
		t.Error("MarkWrap(nil) should be nil")
	}
}

func TestMarkKinds(t *testing.T) {
	err := Mark(ErrUnknownScenario, "scenario %q", "nope")
	if !Is(err, ErrUnknownScenario) {
		t.Fatalf("expected ErrUnknownScenario, got %v", err)
	}
	if Is(err, ErrExecution) {
		t.Error("kind leaked into unrelated sentinel")
	}

	cause := fmt.Errorf("dial tcp: refused")
	wrapped := Wrapf(MarkWrap(cause, ErrLLMInvocation, "planner"), "query 1")
	if !Is(wrapped, ErrLLMInvocation) {
		t.Error("expected ErrLLMInvocation through Wrapf")
	}
	if !Is(wrapped, cause) {
		t.Error("expected cause to stay reachable")
	}
	if !strings.Contains(wrapped.Error(), "dial tcp: refused") {
		t.Errorf("cause text missing from %q", wrapped.Error())
	}
}

func TestPlain(t *testing.T) {
	err := Wrapf(Mark(ErrExecution, "GET /x returned 404"), "step 2")
	got := Plain(err)
	if strings.Contains(got, ".go:") {
		t.Errorf("location left in %q", got)
	}
	if want := "step 2: api execution failed: GET /x returned 404"; got != want {
		t.Errorf("Plain() = %q, want %q", got, want)
	}
	if Plain(nil) != "" {
		t.Error("Plain(nil) should be empty")
	}
}

package planner

import (
	"regexp"
	"strings"

	"github.com/m4xw311/restgpt/prompt"
)

// Kind is the classification of one planner output.
type Kind int

const (
	KindStep Kind = iota
	KindFinal
	KindAmbiguous
)

func (k Kind) String() string {
	switch k {
	case KindStep:
		return "step"
	case KindFinal:
		return "final"
	default:
		return "ambiguous"
	}
}

// Recognized final-answer markers, matched case-insensitively.
const (
	MarkerFinalAnswer = "Final Answer:"
	MarkerFinished    = "I am finished"
	MarkerNoCall      = "No API call needed"
)

// Decision is the outcome of Classify.
type Decision struct {
	Kind Kind
	// Text is the step to execute, the answer to return, or the reason the
	// output was ambiguous.
	Text string
}

var (
	stepLabel     = regexp.MustCompile(`(?i)` + prompt.StepLabel + `\s*\d+\s*:[ \t]*`)
	finalAnswer   = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(MarkerFinalAnswer))
	thoughtLine   = regexp.MustCompile(`(?im)^\s*thought:.*$`)
	noCallPhrase  = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(MarkerNoCall) + `[.!,:;]?`)
	finishedMatch = regexp.MustCompile(`(?i)` + regexp.QuoteMeta(MarkerFinished) + `[.!,:;]?`)
)

// StripStepLabel removes every "Plan step N:" label the model echoed and
// trims the result. It is applied until nothing changes, so applying it to
// its own output is a no-op.
func StripStepLabel(text string) string {
	out := strings.TrimSpace(text)
	for {
		next := strings.TrimSpace(stepLabel.ReplaceAllString(out, ""))
		if next == out {
			return out
		}
		out = next
	}
}

// Classify decides whether planner output is a step to execute or a final
// answer. Rules, in order:
//
//  1. empty output is ambiguous;
//  2. output containing an "API response:" label is ambiguous, since the
//     model fabricated an observation;
//  3. "Final Answer:" makes it final, the answer being the text after the
//     last marker; nothing after the marker is ambiguous;
//  4. "No API call needed" or "I am finished" make it final, the answer being
//     the remaining text once Thought lines and both marker phrases are
//     removed; nothing left is ambiguous;
//  5. anything else is a step.
//
// These heuristics mirror the phrases the prompt teaches the model. They
// should be re-checked against real transcripts whenever the prompt or the
// model changes.
func Classify(text string) Decision {
	t := strings.TrimSpace(text)
	if t == "" {
		return Decision{Kind: KindAmbiguous, Text: "empty planner output"}
	}
	if strings.Contains(strings.ToLower(t), strings.ToLower(prompt.ObservationLabel)) {
		return Decision{Kind: KindAmbiguous, Text: "planner output contains a fabricated API response"}
	}
	if locs := finalAnswer.FindAllStringIndex(t, -1); len(locs) > 0 {
		answer := strings.TrimSpace(t[locs[len(locs)-1][1]:])
		if answer == "" {
			return Decision{Kind: KindAmbiguous, Text: "final answer marker without an answer"}
		}
		return Decision{Kind: KindFinal, Text: answer}
	}
	if noCallPhrase.MatchString(t) || finishedMatch.MatchString(t) {
		rest := thoughtLine.ReplaceAllString(t, "")
		rest = noCallPhrase.ReplaceAllString(rest, "")
		rest = strings.TrimSpace(finishedMatch.ReplaceAllString(rest, ""))
		if rest == "" {
			return Decision{Kind: KindAmbiguous, Text: "finished marker without an answer"}
		}
		return Decision{Kind: KindFinal, Text: rest}
	}
	return Decision{Kind: KindStep, Text: t}
}

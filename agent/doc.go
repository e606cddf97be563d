// Package agent runs the plan-act-observe loop that answers a natural
// language query with a sequence of REST calls.
//
// # Architecture
//
// The loop is built from two collaborators, both injected as interfaces:
//
//   - Planner (package planner): reads the query, the background and the
//     steps executed so far, and proposes the next step in plain language or
//     a final answer
//   - Caller (package caller): turns one step into a single HTTP request,
//     runs it and describes the result as an observation
//
// Front-ends live in subpackages: agent/terminal (interactive prompt),
// agent/ws (WebSocket streaming) and agent/mcp (Model Context Protocol tool
// server). The batch runner is package eval.
//
// # States
//
// Every query moves through
//
//	PLANNING -> EXECUTING -> PLANNING ... -> DONE | FAILED
//
// The planner output is classified with planner.Classify. A final answer
// ends the query in DONE. A step is handed to the caller; its observation,
// or the text of an ErrExecution, is appended to the history and the loop
// plans again. Model failures (ErrLLMInvocation), unclassifiable output
// (ErrAmbiguousPlannerOutput) and reaching Settings.MaxIterations steps
// (ErrPlanNotConverged) end the query in FAILED. The Result then carries
// the error and the partial history.
//
// # Usage
//
//	a, err := agent.New(agent.Settings{MaxIterations: 10, Scenario: "spotify"},
//	    plannerInstance, callerInstance,
//	    agent.WithSink(sink), agent.WithLogger(logger))
//	if err != nil {
//	    // handle error
//	}
//
//	res, err := a.Process(ctx, agent.Query{Text: "skip to the next track"}, agent.ProcessCallbacks{
//	    OnPlan: func(step int, text string) {
//	        fmt.Printf("step %d: %s\n", step, text)
//	    },
//	    OnObservation: func(step int, text string) {
//	        fmt.Printf("observation %d: %s\n", step, text)
//	    },
//	})
//
// # Isolation
//
// Each call to Run or Process owns a fresh history and a new query id; an
// Agent keeps no state between queries. Events are written to the injected
// transcript.Sink as they happen, and a JSON transcript of each finished
// query is saved when WithTranscripts is set.
package agent

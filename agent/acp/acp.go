// Package acp serves the agent over the Agent Client Protocol: JSON-RPC 2.0
// messages, one per line, on stdin and stdout. Editors that speak ACP can
// send requests to restgpt and watch each API step as a tool call.
//
// Supported methods:
//   - initialize
//   - session/new
//   - session/prompt: answers the prompt as one query and streams
//     session/update notifications (tool_call, tool_call_update,
//     agent_message_chunk)
//
// A session only remembers its background text; every prompt is a new
// query with an empty history.
package acp

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/logging"
)

const protocolVersion = 1

// JSON-RPC error codes.
const (
	codeParseError     = -32700
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
)

// Run serves until in reaches EOF. Nothing but protocol messages is written
// to out.
func Run(ctx context.Context, a *agent.Agent, in io.Reader, out io.Writer, logger *log.Logger) error {
	if logger == nil {
		logger = logging.Discard()
	}
	s := &server{
		ctx:      ctx,
		agent:    a,
		sessions: make(map[string]*acpSession),
		out:      bufio.NewWriter(out),
		logger:   logger,
	}

	reader := bufio.NewReader(in)
	for {
		line, err := reader.ReadBytes('\n')
		if len(strings.TrimSpace(string(line))) > 0 {
			s.dispatch(line)
		}
		if err != nil {
			if err == io.EOF {
				logger.Debug("acp: input closed")
				return nil
			}
			return errors.Wrapf(err, "acp: read error")
		}
	}
}

type request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type response struct {
	JSONRPC string    `json:"jsonrpc"`
	ID      any       `json:"id"`
	Result  any       `json:"result,omitempty"`
	Error   *rpcError `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type notification struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

type acpSession struct {
	id         string
	background string
}

type server struct {
	ctx      context.Context
	agent    *agent.Agent
	sessions map[string]*acpSession
	seq      int64

	mu     sync.Mutex
	out    *bufio.Writer
	logger *log.Logger
}

func (s *server) dispatch(payload []byte) {
	var req request
	if err := json.Unmarshal(payload, &req); err != nil {
		s.logger.Debug("acp: bad json", "err", err)
		s.writeError(nil, codeParseError, "Parse error", nil)
		return
	}
	s.logger.Debug("acp: request", "method", req.Method, "id", req.ID)

	switch req.Method {
	case "initialize":
		s.handleInitialize(&req)
	case "session/new":
		s.handleSessionNew(&req)
	case "session/prompt":
		s.handleSessionPrompt(&req)
	default:
		s.writeError(req.ID, codeMethodNotFound, "Method not found", req.Method)
	}
}

func (s *server) write(msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("acp: marshal failed", "err", err)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.out.Write(data)
	s.out.WriteByte('\n')
	if err := s.out.Flush(); err != nil {
		s.logger.Error("acp: write failed", "err", err)
	}
}

func (s *server) writeResult(id, result any) {
	s.write(response{JSONRPC: "2.0", ID: id, Result: result})
}

func (s *server) writeError(id any, code int, msg string, data any) {
	s.write(response{JSONRPC: "2.0", ID: id, Error: &rpcError{Code: code, Message: msg, Data: data}})
}

func (s *server) update(sessionID string, u map[string]any) {
	s.write(notification{
		JSONRPC: "2.0",
		Method:  "session/update",
		Params:  map[string]any{"sessionId": sessionID, "update": u},
	})
}

func (s *server) handleInitialize(req *request) {
	s.writeResult(req.ID, map[string]any{
		"protocolVersion": protocolVersion,
		"agentCapabilities": map[string]any{
			"loadSession": false,
			"promptCapabilities": map[string]bool{
				"audio":           false,
				"embeddedContext": false,
				"image":           false,
			},
		},
		"authMethods": []any{},
	})
}

// handleSessionNew accepts an optional "_meta.background" with facts the
// planner may use for every prompt of the session.
func (s *server) handleSessionNew(req *request) {
	var p struct {
		Meta struct {
			Background string `json:"background"`
		} `json:"_meta"`
	}
	if len(req.Params) > 0 {
		if err := json.Unmarshal(req.Params, &p); err != nil {
			s.writeError(req.ID, codeInvalidParams, "Invalid params", err.Error())
			return
		}
	}

	s.seq++
	sess := &acpSession{
		id:         fmt.Sprintf("sess_%d_%d", time.Now().UnixNano(), s.seq),
		background: p.Meta.Background,
	}
	s.sessions[sess.id] = sess
	s.writeResult(req.ID, map[string]any{"sessionId": sess.id})
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

func (s *server) handleSessionPrompt(req *request) {
	var p struct {
		SessionID string         `json:"sessionId"`
		Prompt    []contentBlock `json:"prompt"`
	}
	if err := json.Unmarshal(req.Params, &p); err != nil {
		s.writeError(req.ID, codeInvalidParams, "Invalid params", err.Error())
		return
	}
	sess, ok := s.sessions[p.SessionID]
	if !ok {
		s.writeError(req.ID, codeInvalidParams, "Invalid params", "unknown sessionId")
		return
	}
	text := extractUserText(p.Prompt)
	if text == "" {
		s.writeError(req.ID, codeInvalidParams, "Invalid params", "prompt has no text")
		return
	}

	callbacks := agent.ProcessCallbacks{
		OnPlan: func(step int, plan string) {
			s.update(sess.id, map[string]any{
				"sessionUpdate": "tool_call",
				"toolCallId":    stepID(step),
				"title":         plan,
				"kind":          "fetch",
				"status":        "in_progress",
			})
		},
		OnObservation: func(step int, obs string) {
			s.update(sess.id, map[string]any{
				"sessionUpdate": "tool_call_update",
				"toolCallId":    stepID(step),
				"status":        "completed",
				"content":       []any{map[string]any{"type": "content", "content": textContent(obs)}},
			})
		},
		OnWarning: func(w string) {
			s.logger.Warn("acp: " + w)
		},
	}

	res, err := s.agent.Process(s.ctx, agent.Query{Text: text, Background: sess.background}, callbacks)
	message := res.Answer
	if err != nil {
		message = "The request could not be completed: " + errors.Plain(err)
	}
	s.update(sess.id, map[string]any{
		"sessionUpdate": "agent_message_chunk",
		"content":       textContent(message),
	})

	stop := "end_turn"
	if s.ctx.Err() != nil {
		stop = "cancelled"
	}
	s.writeResult(req.ID, map[string]any{"stopReason": stop})
}

func stepID(step int) string {
	return fmt.Sprintf("step_%d", step)
}

func textContent(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

// extractUserText joins the text blocks of a prompt. Other block types
// carry nothing the planner can use and are ignored.
func extractUserText(blocks []contentBlock) string {
	var parts []string
	for _, b := range blocks {
		if b.Type == "text" && strings.TrimSpace(b.Text) != "" {
			parts = append(parts, strings.TrimSpace(b.Text))
		}
	}
	return strings.Join(parts, "\n")
}

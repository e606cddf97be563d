// Package ws serves the agent over WebSocket. A client sends one JSON
// request per query and receives the plan, the observations and the result
// as a stream of JSON messages.
package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"github.com/m4xw311/restgpt/agent"
	"github.com/m4xw311/restgpt/errors"
	"github.com/m4xw311/restgpt/logging"
)

// Message types sent to the client.
const (
	TypePlan        = "plan"
	TypeObservation = "observation"
	TypeFinal       = "final"
	TypeError       = "error"
)

// Request is what a client sends for each query.
type Request struct {
	Query      string `json:"query"`
	Background string `json:"background,omitempty"`
}

// Message is one streamed event.
type Message struct {
	Type    string `json:"type"`
	QueryID string `json:"query_id,omitempty"`
	Step    int    `json:"step,omitempty"`
	Data    string `json:"data"`
}

// Handler upgrades requests to WebSocket and answers queries sent on the
// connection one after the other.
type Handler struct {
	agent    *agent.Agent
	logger   *log.Logger
	upgrader websocket.Upgrader
}

func NewHandler(a *agent.Agent, logger *log.Logger) *Handler {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Handler{
		agent:  a,
		logger: logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	ctx := r.Context()
	for {
		var req Request
		if err := conn.ReadJSON(&req); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Debug("read failed", "err", err)
			}
			return
		}
		if strings.TrimSpace(req.Query) == "" {
			if err := conn.WriteJSON(Message{Type: TypeError, Data: "query is required"}); err != nil {
				return
			}
			continue
		}
		if err := h.answer(ctx, conn, req); err != nil {
			h.logger.Error("write failed", "err", err)
			return
		}
	}
}

// answer runs one query, streaming its events. Only connection failures are
// returned.
func (h *Handler) answer(ctx context.Context, conn *websocket.Conn, req Request) error {
	var writeErr error
	send := func(m Message) {
		if writeErr == nil {
			writeErr = conn.WriteJSON(m)
		}
	}

	res, err := h.agent.Process(ctx, agent.Query{Text: req.Query, Background: req.Background}, agent.ProcessCallbacks{
		OnPlan: func(step int, text string) {
			send(Message{Type: TypePlan, Step: step, Data: text})
		},
		OnObservation: func(step int, text string) {
			send(Message{Type: TypeObservation, Step: step, Data: text})
		},
	})
	if err != nil {
		send(Message{Type: TypeError, QueryID: res.QueryID, Step: res.Iterations, Data: errors.Plain(err)})
	} else {
		send(Message{Type: TypeFinal, QueryID: res.QueryID, Step: res.Iterations, Data: res.Answer})
	}
	return writeErr
}

// NewServeMux mounts the handler at /ws and a liveness probe at /healthz.
func NewServeMux(h *Handler) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", h)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

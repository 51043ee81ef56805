package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/store"
)

// timeoutContext pairs a bounded context with its cancel func so
// dispatch can defer cleanup without a named context.CancelFunc import
// collision at every call site.
type timeoutContext struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func contextWithTimeout() timeoutContext {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	return timeoutContext{ctx: ctx, cancel: cancel}
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Server upgrades incoming connections and dispatches each request
// frame against backend.
type Server struct {
	backend store.Backend
	log     *slog.Logger
}

// New builds a Server over backend.
func New(backend store.Backend, log *slog.Logger) *Server {
	return &Server{backend: backend, log: log}
}

// ServeHTTP upgrades the connection and runs its request loop until the
// client disconnects.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Error("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	for {
		var req RequestFrame
		if err := conn.ReadJSON(&req); err != nil {
			return
		}
		go s.handle(conn, req)
	}
}

func (s *Server) handle(conn *websocket.Conn, req RequestFrame) {
	resp := s.dispatch(req)
	if err := conn.WriteJSON(resp); err != nil {
		s.log.Warn("websocket write failed", "error", err)
	}
}

type receivePayload struct {
	URI   string      `json:"uri"`
	Value interface{} `json:"value"`
}

type readPayload struct {
	URI string `json:"uri"`
}

type listPayload struct {
	Prefix    string `json:"prefix"`
	Page      int    `json:"page"`
	Limit     *int   `json:"limit"`
	Pattern   string `json:"pattern"`
	SortBy    string `json:"sortBy"`
	SortOrder string `json:"sortOrder"`
}

func (s *Server) dispatch(req RequestFrame) ResponseFrame {
	ctx := contextWithTimeout()
	defer ctx.cancel()

	switch req.Type {
	case TypeReceive:
		var p receivePayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return errorFrame(req.ID, apierr.Wrap(apierr.InvalidURI, err))
		}
		res := s.backend.Receive(ctx.ctx, p.URI, p.Value)
		if res.Err != nil {
			return errorFrame(req.ID, res.Err)
		}
		return ResponseFrame{ID: req.ID, Success: true, Data: map[string]interface{}{"accepted": res.Accepted, "record": res.Record}}

	case TypeRead:
		var p readPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return errorFrame(req.ID, apierr.Wrap(apierr.InvalidURI, err))
		}
		res := s.backend.Read(ctx.ctx, p.URI)
		if !res.Success {
			return errorFrame(req.ID, res.Err)
		}
		return ResponseFrame{ID: req.ID, Success: true, Data: res.Record}

	case TypeList:
		var p listPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return errorFrame(req.ID, apierr.Wrap(apierr.InvalidURI, err))
		}
		opts := store.ListOptions{
			Page: p.Page, Pattern: p.Pattern,
			SortBy: store.SortBy(p.SortBy), SortOrder: store.SortOrder(p.SortOrder),
		}
		if p.Limit != nil {
			opts.Limit = *p.Limit
			opts.LimitSet = true
		}
		res := s.backend.List(ctx.ctx, p.Prefix, opts)
		if res.Err != nil {
			return errorFrame(req.ID, res.Err)
		}
		return ResponseFrame{ID: req.ID, Success: true, Data: map[string]interface{}{"data": res.Data, "pagination": res.Pagination}}

	case TypeDelete:
		var p readPayload
		if err := json.Unmarshal(req.Payload, &p); err != nil {
			return errorFrame(req.ID, apierr.Wrap(apierr.InvalidURI, err))
		}
		res := s.backend.Delete(ctx.ctx, p.URI)
		if !res.Success {
			return errorFrame(req.ID, res.Err)
		}
		return ResponseFrame{ID: req.ID, Success: true}

	case TypeHealth:
		return ResponseFrame{ID: req.ID, Success: true, Data: s.backend.Health(ctx.ctx)}

	case TypeSchema:
		return ResponseFrame{ID: req.ID, Success: true, Data: map[string]interface{}{"programKeys": s.backend.GetSchema()}}

	default:
		return errorFrame(req.ID, apierr.New(apierr.InvalidURI, "unknown request type: "+req.Type))
	}
}

func errorFrame(id string, err error) ResponseFrame {
	return ResponseFrame{ID: id, Success: false, Error: err.Error()}
}

// requestTimeout is the deadline of the context the server hands the
// backend for each WS request, and how long Client.Call waits for a
// response before returning RequestTimeout.
const requestTimeout = 30 * time.Second

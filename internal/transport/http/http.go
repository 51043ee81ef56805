// Package http wires the record store's HTTP surface: a plain
// net/http.ServeMux over a store.Backend, as a thin handler layer
// with no router dependency.
package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethdenver2026/uristore/internal/apierr"
	"github.com/ethdenver2026/uristore/internal/httputil"
	"github.com/ethdenver2026/uristore/internal/store"
)

// Handler serves the record-store HTTP API over a single backend
// (typically an internal/node.Node, possibly wrapped in a
// internal/compose composition).
type Handler struct {
	backend store.Backend
	log     *slog.Logger
	mux     *http.ServeMux
}

// New builds the handler and registers every route.
func New(backend store.Backend, log *slog.Logger) *Handler {
	h := &Handler{backend: backend, log: log, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /api/v1/receive", h.handleReceive)
	h.mux.HandleFunc("POST /api/v1/write/{protocol}/{domain}/{path...}", h.handleWrite)
	h.mux.HandleFunc("GET /api/v1/read/{protocol}/{domain}/{path...}", h.handleRead)
	h.mux.HandleFunc("GET /api/v1/list/{protocol}/{domain}/{path...}", h.handleList)
	h.mux.HandleFunc("DELETE /api/v1/delete/{protocol}/{domain}/{path...}", h.handleDelete)
	h.mux.HandleFunc("GET /api/v1/health", h.handleHealth)
	h.mux.HandleFunc("GET /api/v1/schema", h.handleSchema)
	return h
}

// ServeHTTP makes Handler an http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

func assembleURI(r *http.Request) string {
	protocol := r.PathValue("protocol")
	domain := r.PathValue("domain")
	path := r.PathValue("path")
	if path == "" {
		return protocol + "://" + domain
	}
	return protocol + "://" + domain + "/" + path
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	httputil.WriteJSON(w, status, body)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

type receiveRequest struct {
	Tx []interface{} `json:"tx"`
}

func (h *Handler) handleReceive(w http.ResponseWriter, r *http.Request) {
	var req receiveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.Wrap(apierr.InvalidURI, err))
		return
	}
	if len(req.Tx) != 2 {
		writeError(w, apierr.New(apierr.InvalidURI, "tx must be a [uri, value] pair"))
		return
	}
	u, ok := req.Tx[0].(string)
	if !ok {
		writeError(w, apierr.New(apierr.InvalidURI, "tx[0] must be a uri string"))
		return
	}
	res := h.backend.Receive(r.Context(), u, req.Tx[1])
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accepted": res.Accepted, "record": res.Record})
}

type writeRequest struct {
	Value interface{} `json:"value"`
}

func (h *Handler) handleWrite(w http.ResponseWriter, r *http.Request) {
	var req writeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apierr.Wrap(apierr.InvalidURI, err))
		return
	}
	res := h.backend.Receive(r.Context(), assembleURI(r), req.Value)
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"accepted": res.Accepted, "record": res.Record})
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	res := h.backend.Read(r.Context(), assembleURI(r))
	if !res.Success {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, res.Record)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := store.ListOptions{
		Pattern:   q.Get("pattern"),
		SortBy:    store.SortBy(q.Get("sortBy")),
		SortOrder: store.SortOrder(q.Get("sortOrder")),
	}
	if page, err := strconv.Atoi(q.Get("page")); err == nil {
		opts.Page = page
	}
	if limit, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = limit
		opts.LimitSet = true
	}
	res := h.backend.List(r.Context(), assembleURI(r), opts)
	if res.Err != nil {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"data": res.Data, "pagination": res.Pagination})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	res := h.backend.Delete(r.Context(), assembleURI(r))
	if !res.Success {
		writeError(w, res.Err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"success": true})
}

func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.backend.Health(r.Context()))
}

func (h *Handler) handleSchema(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{"programKeys": h.backend.GetSchema()})
}

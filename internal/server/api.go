// Package server implements the relay's HTTP API: operator messages in,
// session status and metrics out.
package server

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rsclarke/dxrelay/internal/api"
	"github.com/rsclarke/dxrelay/internal/auth"
	"github.com/rsclarke/dxrelay/internal/db"
	"github.com/rsclarke/dxrelay/internal/logging"
	"github.com/rsclarke/dxrelay/internal/metrics"
	"github.com/rsclarke/dxrelay/internal/queue"
	"go.uber.org/zap"
)

const (
	maxMessageLength   = 256
	defaultListLimit   = 50
	maxListLimit       = 500
	maxRequestBodySize = 1 << 12
)

type contextKey string

const apiKeyIDContextKey contextKey = "apiKeyID"

func getAPIKeyID(r *http.Request) int64 {
	if id, ok := r.Context().Value(apiKeyIDContextKey).(int64); ok {
		return id
	}
	return 0
}

// APIServer accepts operator text for the cluster and reports on the
// session.
type APIServer struct {
	DB      *sql.DB
	Inbox   *queue.Queue[string]
	Host    string
	State   func() string
	Metrics *metrics.Collector
	Logger  *zap.Logger
}

// AuthMiddleware validates API key authentication for protected routes.
func (s *APIServer) AuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		prefix, _, err := auth.Parse(key)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		stored, err := db.GetAPIKeyByPrefix(s.DB, prefix)
		if err != nil || stored == nil || stored.RevokedAt != nil || !auth.Verify(key, stored.Hash) {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		ctx := context.WithValue(r.Context(), apiKeyIDContextKey, stored.ID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Handler returns the HTTP handler for the API server. /metrics is served
// without authentication.
func (s *APIServer) Handler() http.Handler {
	v1 := http.NewServeMux()
	v1.HandleFunc("POST /v1/messages", s.handleSendMessage)
	v1.HandleFunc("GET /v1/messages", s.handleListMessages)
	v1.HandleFunc("GET /v1/status", s.handleStatus)

	root := http.NewServeMux()
	root.Handle("/v1/", s.AuthMiddleware(v1))
	if s.Metrics != nil {
		root.Handle("GET /metrics", s.Metrics.Handler())
	}
	return root
}

func (s *APIServer) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	var req api.SendMessageRequest
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if dec.Decode(&struct{}{}) != io.EOF {
		writeError(w, http.StatusBadRequest, "unexpected trailing data")
		return
	}

	text := strings.TrimSpace(req.Text)
	switch {
	case text == "":
		writeError(w, http.StatusBadRequest, "text required")
		return
	case strings.ContainsAny(text, "\r\n"):
		writeError(w, http.StatusBadRequest, "text must be a single line")
		return
	case len(text) > maxMessageLength:
		writeError(w, http.StatusBadRequest, "text too long")
		return
	}

	id, err := db.RecordMessage(s.DB, getAPIKeyID(r), text)
	if err != nil {
		s.Logger.Error("failed to record message", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	if err := s.Inbox.Push(text); err != nil {
		s.Logger.Warn("relay not accepting messages", logging.Line(text), zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "relay unavailable")
		return
	}

	writeJSON(w, http.StatusAccepted, api.SendMessageResponse{ID: id, Backlog: s.Inbox.Len()})
}

func (s *APIServer) handleListMessages(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = min(n, maxListLimit)
	}

	msgs, err := db.ListMessages(s.DB, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "database error")
		return
	}

	resp := api.ListMessagesResponse{Messages: make([]api.MessageInfo, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, api.MessageInfo{
			ID:        m.ID,
			Text:      m.Body,
			CreatedAt: time.Unix(m.CreatedAt, 0).UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *APIServer) handleStatus(w http.ResponseWriter, _ *http.Request) {
	resp := api.StatusResponse{Host: s.Host, Backlog: s.Inbox.Len()}
	if s.State != nil {
		resp.State = s.State()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, api.ErrorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	buf := new(bytes.Buffer)
	if err := json.NewEncoder(buf).Encode(data); err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// Package server exposes the assistant over HTTP: a WebSocket chat
// endpoint and a small REST API for conversation history.
package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/MSKravtsov/mikky/pkg/store"
)

// Core is the slice of the agent service the server needs.
type Core interface {
	Run(ctx context.Context, conversationID, message string) (string, error)
	Compact(ctx context.Context, conversationID string) (string, error)
}

// Server serves the chat and history API.
type Server struct {
	core          Core
	entries       store.ConversationStore
	allowed       map[string]bool
	maxMessageLen int
	srv           *http.Server
}

// New creates a new Server. allowedUsers is the closed set of user IDs
// permitted to connect; anyone else is rejected before upgrade.
func New(core Core, entries store.ConversationStore, allowedUsers []string, maxMessageLen int) *Server {
	allowed := make(map[string]bool, len(allowedUsers))
	for _, u := range allowedUsers {
		allowed[u] = true
	}
	return &Server{
		core:          core,
		entries:       entries,
		allowed:       allowed,
		maxMessageLen: maxMessageLen,
	}
}

// Start starts the HTTP server.
func (s *Server) Start(addr string) error {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("/api/chat", s.handleChatWebSocket)

	s.srv = &http.Server{
		Addr:    addr,
		Handler: s.corsMiddleware(mux),
	}

	slog.Info("Starting server", "addr", addr)
	return s.srv.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if !s.allowed[user] {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	entries, err := s.entries.RecentEntries(r.Context(), user, 0)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, entries)
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func (s *Server) errorResponse(w http.ResponseWriter, status int, err error) {
	slog.Error("API Error", "error", err)
	s.jsonResponse(w, status, map[string]string{"error": err.Error()})
}

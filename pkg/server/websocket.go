package server

import (
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/gorilla/websocket"
)

// errorReply is what the user sees when the core fails. Internal error
// detail stays in the logs.
const errorReply = "Sorry, something went wrong while handling that. Please try again."

// compactCommand triggers history compaction instead of a model turn.
const compactCommand = "/compact"

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func (s *Server) handleChatWebSocket(w http.ResponseWriter, r *http.Request) {
	user := r.URL.Query().Get("user")
	if user == "" {
		http.Error(w, "Missing user", http.StatusBadRequest)
		return
	}
	if !s.allowed[user] {
		slog.Warn("Rejected chat connection from unknown user", "user", user)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Error("Failed to upgrade websocket", "error", err)
		return
	}
	defer ws.Close()

	slog.Info("Chat connected", "user", user)

	for {
		var msg chatMessage
		if err := ws.ReadJSON(&msg); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				break
			}
			slog.Error("WebSocket read error", "user", user, "error", err)
			break
		}

		text := strings.TrimSpace(msg.Content)
		if text == "" {
			continue
		}

		reply := s.dispatch(r, user, text)
		for _, chunk := range splitReply(reply, s.maxMessageLen) {
			if err := ws.WriteJSON(chatMessage{Role: "assistant", Content: chunk}); err != nil {
				slog.Error("WebSocket write error", "user", user, "error", err)
				return
			}
		}
	}

	slog.Info("Chat disconnected", "user", user)
}

func (s *Server) dispatch(r *http.Request, user, text string) string {
	var reply string
	var err error
	if text == compactCommand {
		reply, err = s.core.Compact(r.Context(), user)
	} else {
		reply, err = s.core.Run(r.Context(), user, text)
	}
	if err != nil {
		slog.Error("Chat turn failed", "user", user, "error", err)
		return errorReply
	}
	return reply
}

// splitReply breaks text into chunks of at most max runes, preferring
// newline boundaries. max <= 0 disables splitting.
func splitReply(text string, max int) []string {
	if max <= 0 || utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var chunks []string
	remaining := text
	for utf8.RuneCountInString(remaining) > max {
		runes := []rune(remaining)
		cut := max
		if i := strings.LastIndex(string(runes[:max]), "\n"); i > 0 {
			cut = utf8.RuneCountInString(string(runes[:max])[:i])
		}
		chunks = append(chunks, strings.TrimRight(string(runes[:cut]), "\n"))
		remaining = strings.TrimLeft(string(runes[cut:]), "\n")
	}
	if remaining != "" {
		chunks = append(chunks, remaining)
	}
	return chunks
}

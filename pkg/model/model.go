// Package model defines the completion-provider contract and the
// transient message projection exchanged with it.
package model

import (
	"context"
	"strings"

	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// Message content block types.
const (
	ContentTypeText       = "text"
	ContentTypeToolCall   = "tool_call"
	ContentTypeToolResult = "tool_result"
)

// Message is the unit passed to the completion provider. It is a
// transient projection of conversation entries plus in-flight tool
// exchanges for a single agent loop run; it is never persisted directly.
type Message struct {
	Role    domain.Role
	Content []Content
}

// Content represents a single component of a message.
type Content struct {
	Type string

	// Text content (when Type == ContentTypeText).
	Text string `json:"text,omitempty"`

	// Tool call (when Type == ContentTypeToolCall).
	ToolCall *domain.ToolCall `json:"tool_call,omitempty"`

	// Tool result (when Type == ContentTypeToolResult).
	ToolResult *domain.ToolResult `json:"tool_result,omitempty"`
}

// TextMessage builds a single-block text message.
func TextMessage(role domain.Role, text string) Message {
	return Message{
		Role:    role,
		Content: []Content{{Type: ContentTypeText, Text: text}},
	}
}

// TextContent concatenates the message's text blocks.
func (m Message) TextContent() string {
	var b strings.Builder
	for _, c := range m.Content {
		if c.Type == ContentTypeText {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

// ToolCalls returns the tool-invocation requests carried by the message,
// in the order the model issued them.
func (m Message) ToolCalls() []domain.ToolCall {
	var calls []domain.ToolCall
	for _, c := range m.Content {
		if c.Type == ContentTypeToolCall && c.ToolCall != nil {
			calls = append(calls, *c.ToolCall)
		}
	}
	return calls
}

// Provider is a single blocking call to an LLM service. The response is
// either terminal text or one-or-more tool-invocation requests. Provider
// failures propagate as hard errors; nothing here retries.
type Provider interface {
	// Name returns the provider's identifier (e.g. "gemini").
	Name() string

	// Complete sends the system instructions, conversation messages and
	// tool declarations and returns the model's full response.
	Complete(ctx context.Context, instructions string, messages []Message, tools []tool.Descriptor) (Message, error)
}

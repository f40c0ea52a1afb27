package model

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

const summarizerInstructions = "You are a conversation summarizer."

// Client wraps a Provider and assembles the system prompt fresh on every
// call: the static base instructions merged with current profile facts
// and a bounded window of recent memories. Re-sending this context each
// turn is a small, accepted overhead that keeps the model's view of the
// user current.
type Client struct {
	provider     Provider
	profile      store.ProfileStore
	memories     store.MemoryStore
	basePrompt   string
	memoryWindow int
	timeout      time.Duration
}

// NewClient creates a completion client. memoryWindow bounds how many
// recent memories are injected per call; timeout, when positive, bounds
// every provider call.
func NewClient(provider Provider, profile store.ProfileStore, memories store.MemoryStore, basePrompt string, memoryWindow int, timeout time.Duration) *Client {
	return &Client{
		provider:     provider,
		profile:      profile,
		memories:     memories,
		basePrompt:   basePrompt,
		memoryWindow: memoryWindow,
		timeout:      timeout,
	}
}

// Complete sends messages plus tool declarations to the provider under
// the dynamically assembled system prompt.
func (c *Client) Complete(ctx context.Context, messages []Message, tools []tool.Descriptor) (Message, error) {
	instructions := c.buildInstructions(ctx)
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	return c.provider.Complete(ctx, instructions, messages, tools)
}

// Summarize sends a single user-role request with no tools and returns
// the text response. Used by context compaction.
func (c *Client) Summarize(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}
	resp, err := c.provider.Complete(ctx, summarizerInstructions,
		[]Message{TextMessage("user", prompt)}, nil)
	if err != nil {
		return "", fmt.Errorf("summarization call: %w", err)
	}
	text := strings.TrimSpace(resp.TextContent())
	if text == "" {
		return "", fmt.Errorf("provider returned empty summary")
	}
	return text, nil
}

// buildInstructions merges the base prompt with profile facts and recent
// memories. Store failures degrade to the base prompt; a missing profile
// must not block answering.
func (c *Client) buildInstructions(ctx context.Context) string {
	parts := []string{c.basePrompt}

	facts, err := c.profile.Facts(ctx)
	if err != nil {
		slog.Warn("Failed to load profile facts for system prompt", "error", err)
	} else if len(facts) > 0 {
		var b strings.Builder
		b.WriteString("## User Profile\n")
		for _, f := range facts {
			fmt.Fprintf(&b, "- %s: %s\n", f.Key, f.Value)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}

	memories, err := c.memories.RecentMemories(ctx, c.memoryWindow)
	if err != nil {
		slog.Warn("Failed to load memories for system prompt", "error", err)
	} else if len(memories) > 0 {
		var b strings.Builder
		b.WriteString("## Recent Memories\n")
		for _, m := range memories {
			fmt.Fprintf(&b, "- [%s] %s\n", m.Category, m.Content)
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}

	return strings.Join(parts, "\n\n")
}

// Package agent implements the orchestration loop: call the model,
// dispatch requested tools, feed results back, and terminate on final
// text or iteration-budget exhaustion.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/MSKravtsov/mikky/pkg/contextmgr"
	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/model"
	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// FallbackReply is returned when the loop exhausts its iteration budget
// without the model producing final text.
const FallbackReply = "I'm sorry, I wasn't able to finish working through that request. Please try asking again."

// CompletionClient is the slice of model.Client the loop needs.
type CompletionClient interface {
	Complete(ctx context.Context, messages []model.Message, tools []tool.Descriptor) (model.Message, error)
}

// Config carries the loop tunables.
type Config struct {
	// MaxIterations bounds completion calls per user turn. Tool-use
	// loops have no structural termination guarantee; the cap bounds
	// worst-case latency and cost.
	MaxIterations int
	// ToolTimeout bounds each tool execution. Zero means no limit.
	ToolTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxIterations <= 0 {
		c.MaxIterations = 10
	}
	return c
}

// Agent runs the loop for a single conversation. A mutex serializes
// Run and Compact: there is no intra-conversation parallelism.
type Agent struct {
	conversationID string
	cfg            Config
	mu             sync.Mutex
	context        *contextmgr.Manager
	client         CompletionClient
	registry       *tool.Registry
	entries        store.ConversationStore
}

// New creates an agent for one conversation.
func New(conversationID string, cfg Config, ctxmgr *contextmgr.Manager, client CompletionClient, registry *tool.Registry, entries store.ConversationStore) *Agent {
	return &Agent{
		conversationID: conversationID,
		cfg:            cfg.withDefaults(),
		context:        ctxmgr,
		client:         client,
		registry:       registry,
		entries:        entries,
	}
}

// Run processes one inbound user message and returns the assistant
// reply. Tool failures never escape: they are folded into the
// conversation as structured error text the model can react to. Only
// provider-level failures propagate as errors.
func (a *Agent) Run(ctx context.Context, userMessage string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.context.AddMessage(domain.RoleUser, userMessage)

	// Prune before building the request so the first completion call of
	// the turn stays within budget. A pruning failure is not fatal to
	// answering; the caller decided availability wins here.
	if a.context.NeedsPruning() {
		if _, err := a.context.Prune(ctx); err != nil {
			slog.Warn("Pruning failed, continuing with full history",
				"conversationID", a.conversationID, "error", err)
		}
	}

	messages := projectHistory(a.context.History())

	for i := 0; i < a.cfg.MaxIterations; i++ {
		resp, err := a.client.Complete(ctx, messages, a.registry.List())
		if err != nil {
			return "", fmt.Errorf("completion call: %w", err)
		}

		calls := resp.ToolCalls()
		if len(calls) == 0 {
			reply := resp.TextContent()
			a.context.AddMessage(domain.RoleAssistant, reply)
			a.persistEntry(ctx, domain.RoleUser, userMessage)
			a.persistEntry(ctx, domain.RoleAssistant, reply)
			return reply, nil
		}

		slog.Debug("Model requested tool calls",
			"conversationID", a.conversationID, "count", len(calls), "iteration", i+1)

		messages = append(messages, resp)
		messages = append(messages, toolResultsMessage(a.executeTools(ctx, calls)))
	}

	slog.Warn("Agent loop exhausted iteration budget",
		"conversationID", a.conversationID, "maxIterations", a.cfg.MaxIterations)
	a.persistEntry(ctx, domain.RoleUser, userMessage)
	return FallbackReply, nil
}

// Compact performs user-invoked history compaction and returns the
// status text to show the user.
func (a *Agent) Compact(ctx context.Context) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.context.Compact(ctx)
}

// executeTools runs sibling tool calls concurrently. Results are placed
// by index so the request order is preserved regardless of completion
// order.
func (a *Agent) executeTools(ctx context.Context, calls []domain.ToolCall) []domain.ToolResult {
	results := make([]domain.ToolResult, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for i, call := range calls {
		g.Go(func() error {
			results[i] = a.registry.Dispatch(gctx, call, a.cfg.ToolTimeout)
			return nil
		})
	}
	g.Wait()
	return results
}

func (a *Agent) persistEntry(ctx context.Context, role domain.Role, content string) {
	err := a.entries.AppendEntry(ctx, &domain.ConversationEntry{
		ID:             uuid.New().String(),
		ConversationID: a.conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("Failed to persist conversation entry",
			"conversationID", a.conversationID, "role", role, "error", err)
	}
}

// projectHistory converts the durable history into the transient message
// list mutated during tool round-trips.
func projectHistory(entries []domain.ConversationEntry) []model.Message {
	messages := make([]model.Message, 0, len(entries))
	for _, e := range entries {
		messages = append(messages, model.TextMessage(e.Role, e.Content))
	}
	return messages
}

// toolResultsMessage builds the synthetic user-role turn carrying tool
// results back to the model, keyed to their originating invocations.
func toolResultsMessage(results []domain.ToolResult) model.Message {
	blocks := make([]model.Content, 0, len(results))
	for i := range results {
		blocks = append(blocks, model.Content{
			Type:       model.ContentTypeToolResult,
			ToolResult: &results[i],
		})
	}
	return model.Message{Role: domain.RoleUser, Content: blocks}
}

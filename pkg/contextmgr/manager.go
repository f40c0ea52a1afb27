// Package contextmgr maintains a bounded, durable view of one
// conversation suitable for repeated inclusion in completion requests.
// When token usage crosses a threshold, older entries are replaced by a
// model-generated summary.
package contextmgr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MSKravtsov/mikky/pkg/domain"
)

// SummaryMarker prefixes summary entries so they are recognizable as
// compaction artifacts in both memory and storage.
const SummaryMarker = "[Context Summary] "

const prunePrompt = "Compress the following conversation into a single concise paragraph " +
	"of at most 500 tokens. Preserve key facts, decisions made, and any context " +
	"needed to continue the conversation naturally."

const compactPrompt = "The user asked to compact this conversation. Write a dense summary " +
	"paragraph (under 500 tokens) covering what was discussed, what was decided, " +
	"and anything the assistant promised or was asked to remember."

// Summarizer turns a transcript prompt into a summary paragraph. A
// model.Client satisfies this.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// Store is the slice of persistence the manager needs.
type Store interface {
	AppendEntry(ctx context.Context, entry *domain.ConversationEntry) error
	RecentEntries(ctx context.Context, conversationID string, n int) ([]domain.ConversationEntry, error)
}

// Config carries the tunables the reference system hard-coded.
type Config struct {
	// MaxContextTokens is the model's usable context budget.
	MaxContextTokens int
	// PruneThreshold is the fraction of MaxContextTokens at which
	// automatic pruning triggers.
	PruneThreshold float64
	// MessageOverheadTokens approximates per-message protocol framing.
	MessageOverheadTokens int
	// HistoryLoadLimit is how many rows to seed from storage at startup.
	HistoryLoadLimit int
	// KeepRecent is how many entries an explicit compact keeps verbatim.
	KeepRecent int
}

// DefaultConfig returns the reference tunables.
func DefaultConfig() Config {
	return Config{
		MaxContextTokens:      150_000,
		PruneThreshold:        0.8,
		MessageOverheadTokens: 4,
		HistoryLoadLimit:      50,
		KeepRecent:            4,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxContextTokens <= 0 {
		c.MaxContextTokens = d.MaxContextTokens
	}
	if c.PruneThreshold <= 0 {
		c.PruneThreshold = d.PruneThreshold
	}
	if c.MessageOverheadTokens <= 0 {
		c.MessageOverheadTokens = d.MessageOverheadTokens
	}
	if c.HistoryLoadLimit <= 0 {
		c.HistoryLoadLimit = d.HistoryLoadLimit
	}
	if c.KeepRecent <= 0 {
		c.KeepRecent = d.KeepRecent
	}
	return c
}

// Manager owns the in-memory history for a single conversation. It is
// mutated only by that conversation's agent loop, one message at a time,
// so it carries no locking of its own.
type Manager struct {
	conversationID string
	cfg            Config
	store          Store
	summarizer     Summarizer
	tokenizer      Tokenizer
	history        []domain.ConversationEntry
}

// New constructs a manager and seeds it with the most recent entries
// from storage, oldest-first. A load failure degrades to an empty
// history with a logged warning rather than refusing to start.
func New(ctx context.Context, conversationID string, cfg Config, st Store, summarizer Summarizer, tokenizer Tokenizer) *Manager {
	cfg = cfg.withDefaults()
	m := &Manager{
		conversationID: conversationID,
		cfg:            cfg,
		store:          st,
		summarizer:     summarizer,
		tokenizer:      tokenizer,
	}

	entries, err := st.RecentEntries(ctx, conversationID, cfg.HistoryLoadLimit)
	if err != nil {
		slog.Warn("Failed to load conversation history, starting empty",
			"conversationID", conversationID, "error", err)
		return m
	}
	m.history = entries
	return m
}

// AddMessage appends to the in-memory history only. Durable persistence
// of user/assistant turns happens after a full exchange completes, so a
// crash mid-exchange does not write a half-formed pair.
func (m *Manager) AddMessage(role domain.Role, content string) {
	m.history = append(m.history, domain.ConversationEntry{
		ID:             uuid.New().String(),
		ConversationID: m.conversationID,
		Role:           role,
		Content:        content,
		Timestamp:      time.Now().UTC(),
	})
}

// History returns a copy of the active window.
func (m *Manager) History() []domain.ConversationEntry {
	out := make([]domain.ConversationEntry, len(m.history))
	copy(out, m.history)
	return out
}

// Len returns the number of entries in the active window.
func (m *Manager) Len() int { return len(m.history) }

// TotalTokens sums tokenized content plus the per-message overhead
// constant over the active window.
func (m *Manager) TotalTokens() int {
	total := 0
	for _, e := range m.history {
		total += m.tokenizer.Count(e.Content) + m.cfg.MessageOverheadTokens
	}
	return total
}

// NeedsPruning reports whether usage exceeds the pruning threshold.
func (m *Manager) NeedsPruning() bool {
	return float64(m.TotalTokens()) > float64(m.cfg.MaxContextTokens)*m.cfg.PruneThreshold
}

// Prune summarizes the older half of the history when over threshold.
// Returns the summary text, or "" when nothing was done (under
// threshold, or too few entries to summarize meaningfully).
func (m *Manager) Prune(ctx context.Context) (string, error) {
	if !m.NeedsPruning() {
		return "", nil
	}
	if len(m.history) < 4 {
		// Midpoint below 2: summarizing a near-empty history is useless.
		return "", nil
	}

	mid := len(m.history) / 2
	head, tail := m.history[:mid], m.history[mid:]

	beforeTokens := m.TotalTokens()
	summary, err := m.replaceWithSummary(ctx, head, tail, prunePrompt)
	if err != nil {
		return "", err
	}

	slog.Info("Pruned conversation history",
		"conversationID", m.conversationID,
		"summarized", len(head),
		"kept", len(tail),
		"tokensBefore", beforeTokens,
		"tokensAfter", m.TotalTokens(),
	)
	return summary, nil
}

// Compact is the user-invoked, unconditional variant: it keeps the last
// KeepRecent entries verbatim and summarizes everything before them.
// The returned string is shown to the end user.
func (m *Manager) Compact(ctx context.Context) (string, error) {
	if len(m.history) <= m.cfg.KeepRecent {
		return "Not enough conversation history to compact.", nil
	}

	beforeMessages := len(m.history)
	beforeTokens := m.TotalTokens()

	split := len(m.history) - m.cfg.KeepRecent
	head, tail := m.history[:split], m.history[split:]

	if _, err := m.replaceWithSummary(ctx, head, tail, compactPrompt); err != nil {
		return "", err
	}

	return fmt.Sprintf("Compacted conversation history: %d messages (%d tokens) reduced to %d messages (%d tokens).",
		beforeMessages, beforeTokens, len(m.history), m.TotalTokens()), nil
}

// replaceWithSummary summarizes head and swaps the active window to
// [summary] + tail. The summary row is written to storage first; the
// in-memory swap happens only after that write succeeds, so any failure
// leaves the history untouched.
func (m *Manager) replaceWithSummary(ctx context.Context, head, tail []domain.ConversationEntry, instruction string) (string, error) {
	prompt := instruction + "\n\nCONVERSATION:\n\n" + transcript(head)

	summary, err := m.summarizer.Summarize(ctx, prompt)
	if err != nil {
		return "", fmt.Errorf("summarizing history: %w", err)
	}

	now := time.Now().UTC()
	content := SummaryMarker + summary

	row := &domain.ConversationEntry{
		ID:             uuid.New().String(),
		ConversationID: m.conversationID,
		Role:           domain.RoleSummary,
		Content:        content,
		Timestamp:      now,
	}
	if err := m.store.AppendEntry(ctx, row); err != nil {
		return "", fmt.Errorf("persisting summary: %w", err)
	}

	synthetic := domain.ConversationEntry{
		ID:             uuid.New().String(),
		ConversationID: m.conversationID,
		Role:           domain.RoleAssistant,
		Content:        content,
		Timestamp:      now,
	}
	m.history = append([]domain.ConversationEntry{synthetic}, tail...)
	return summary, nil
}

// transcript renders entries as "role: content" lines separated by blank
// lines, the shape the summarization prompt expects.
func transcript(entries []domain.ConversationEntry) string {
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, fmt.Sprintf("%s: %s", e.Role, e.Content))
	}
	return strings.Join(lines, "\n\n")
}

package contextmgr

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/MSKravtsov/mikky/pkg/domain"
)

// stubTokenizer charges explicit costs per text, defaulting to the byte
// length so arbitrary strings still get a deterministic cost.
type stubTokenizer struct {
	costs map[string]int
}

func (s stubTokenizer) Count(text string) int {
	if c, ok := s.costs[text]; ok {
		return c
	}
	return len(text)
}

type fakeStore struct {
	entries   []domain.ConversationEntry
	appended  []domain.ConversationEntry
	loadErr   error
	appendErr error
}

func (f *fakeStore) AppendEntry(ctx context.Context, e *domain.ConversationEntry) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appended = append(f.appended, *e)
	return nil
}

func (f *fakeStore) RecentEntries(ctx context.Context, conversationID string, n int) ([]domain.ConversationEntry, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.entries, nil
}

type fakeSummarizer struct {
	summary string
	err     error
	prompts []string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	if f.err != nil {
		return "", f.err
	}
	return f.summary, nil
}

func newTestManager(t *testing.T, cfg Config, st *fakeStore, sum *fakeSummarizer, tok Tokenizer) *Manager {
	t.Helper()
	if st == nil {
		st = &fakeStore{}
	}
	if sum == nil {
		sum = &fakeSummarizer{summary: "the summary"}
	}
	if tok == nil {
		tok = stubTokenizer{}
	}
	return New(context.Background(), "conv-1", cfg, st, sum, tok)
}

func addMessages(m *Manager, contents ...string) {
	role := domain.RoleUser
	for _, c := range contents {
		m.AddMessage(role, c)
		if role == domain.RoleUser {
			role = domain.RoleAssistant
		} else {
			role = domain.RoleUser
		}
	}
}

func TestNewLoadsHistory(t *testing.T) {
	st := &fakeStore{entries: []domain.ConversationEntry{
		{ID: "1", Role: domain.RoleUser, Content: "hi"},
		{ID: "2", Role: domain.RoleAssistant, Content: "hello"},
	}}
	m := newTestManager(t, Config{}, st, nil, nil)
	if m.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", m.Len())
	}
	if got := m.History()[0].Content; got != "hi" {
		t.Errorf("first entry = %q, want %q", got, "hi")
	}
}

func TestNewDegradesToEmptyOnLoadFailure(t *testing.T) {
	st := &fakeStore{loadErr: errors.New("db locked")}
	m := newTestManager(t, Config{}, st, nil, nil)
	if m.Len() != 0 {
		t.Fatalf("Len() = %d, want 0 after load failure", m.Len())
	}
	// The manager must remain usable.
	m.AddMessage(domain.RoleUser, "still works")
	if m.Len() != 1 {
		t.Fatalf("Len() = %d after AddMessage, want 1", m.Len())
	}
}

func TestTotalTokensIncludesOverhead(t *testing.T) {
	tok := stubTokenizer{costs: map[string]int{"a": 10, "b": 20}}
	m := newTestManager(t, Config{MessageOverheadTokens: 4}, nil, nil, tok)
	addMessages(m, "a", "b")
	if got := m.TotalTokens(); got != 10+4+20+4 {
		t.Fatalf("TotalTokens() = %d, want 38", got)
	}

	// One more entry raises the total by exactly its cost plus overhead.
	before := m.TotalTokens()
	m.AddMessage(domain.RoleUser, "a")
	if got := m.TotalTokens(); got != before+10+4 {
		t.Errorf("TotalTokens() after add = %d, want %d", got, before+10+4)
	}
}

func TestNeedsPruningDefaultBudget(t *testing.T) {
	// With the stock 150k budget and 0.8 threshold, 120,000 total
	// tokens is within bounds and 120,001 is not.
	tok := stubTokenizer{costs: map[string]int{"at": 119_996, "over": 119_997}}

	m := newTestManager(t, Config{}, nil, nil, tok)
	m.AddMessage(domain.RoleUser, "at")
	if m.TotalTokens() != 120_000 {
		t.Fatalf("TotalTokens() = %d, want 120000", m.TotalTokens())
	}
	if m.NeedsPruning() {
		t.Error("NeedsPruning() = true at 120000 tokens, want false")
	}

	m = newTestManager(t, Config{}, nil, nil, tok)
	m.AddMessage(domain.RoleUser, "over")
	if !m.NeedsPruning() {
		t.Error("NeedsPruning() = false at 120001 tokens, want true")
	}
}

func TestNeedsPruningBoundary(t *testing.T) {
	// Budget 100 at threshold 0.8: 80 tokens is fine, 81 is not. The
	// stub charges overhead 4 per message, so one message of cost 76
	// lands exactly on the threshold.
	cfg := Config{MaxContextTokens: 100, PruneThreshold: 0.8, MessageOverheadTokens: 4}
	tok := stubTokenizer{costs: map[string]int{"at": 76, "over": 77}}

	m := newTestManager(t, cfg, nil, nil, tok)
	m.AddMessage(domain.RoleUser, "at")
	if m.NeedsPruning() {
		t.Errorf("NeedsPruning() = true at exactly the threshold, want false")
	}

	m = newTestManager(t, cfg, nil, nil, tok)
	m.AddMessage(domain.RoleUser, "over")
	if !m.NeedsPruning() {
		t.Errorf("NeedsPruning() = false one token over the threshold, want true")
	}
}

func TestPruneUnderThresholdIsNoop(t *testing.T) {
	sum := &fakeSummarizer{summary: "unused"}
	m := newTestManager(t, Config{MaxContextTokens: 1000}, nil, sum, nil)
	addMessages(m, "one", "two", "three", "four")

	got, err := m.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if got != "" {
		t.Errorf("Prune() = %q, want empty", got)
	}
	if len(sum.prompts) != 0 {
		t.Errorf("summarizer called %d times, want 0", len(sum.prompts))
	}
}

func TestPruneTooFewEntriesIsNoop(t *testing.T) {
	// Three giant entries blow the budget but there is nothing useful
	// to split.
	cfg := Config{MaxContextTokens: 10, PruneThreshold: 0.5}
	sum := &fakeSummarizer{summary: "unused"}
	m := newTestManager(t, cfg, nil, sum, nil)
	addMessages(m, "aaaaaaaaaa", "bbbbbbbbbb", "cccccccccc")

	got, err := m.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if got != "" {
		t.Errorf("Prune() = %q, want empty", got)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3 (untouched)", m.Len())
	}
}

func TestPruneSummarizesOlderHalf(t *testing.T) {
	cfg := Config{MaxContextTokens: 10, PruneThreshold: 0.5}
	st := &fakeStore{}
	sum := &fakeSummarizer{summary: "they talked about cats"}
	tok := stubTokenizer{costs: map[string]int{SummaryMarker + "they talked about cats": 5}}
	m := newTestManager(t, cfg, st, sum, tok)
	addMessages(m, "msg-one", "msg-two", "msg-three", "msg-four", "msg-five", "msg-six")
	before := m.TotalTokens()

	got, err := m.Prune(context.Background())
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if got != "they talked about cats" {
		t.Errorf("Prune() = %q, want summary text", got)
	}

	// Older half (3) collapsed into one synthetic entry plus tail (3).
	if m.Len() != 4 {
		t.Fatalf("Len() = %d, want 4", m.Len())
	}
	first := m.History()[0]
	if first.Role != domain.RoleAssistant {
		t.Errorf("synthetic entry role = %s, want assistant", first.Role)
	}
	if !strings.HasPrefix(first.Content, SummaryMarker) {
		t.Errorf("synthetic entry content %q lacks summary marker", first.Content)
	}
	if got := m.History()[1].Content; got != "msg-four" {
		t.Errorf("first kept entry = %q, want msg-four", got)
	}
	if after := m.TotalTokens(); after >= before {
		t.Errorf("TotalTokens after prune = %d, want < %d", after, before)
	}

	// The summary row was persisted with the summary role.
	if len(st.appended) != 1 {
		t.Fatalf("appended %d rows, want 1", len(st.appended))
	}
	if st.appended[0].Role != domain.RoleSummary {
		t.Errorf("persisted role = %s, want summary", st.appended[0].Role)
	}

	// The prompt carried the older half as a transcript.
	if len(sum.prompts) != 1 {
		t.Fatalf("summarizer called %d times, want 1", len(sum.prompts))
	}
	if !strings.Contains(sum.prompts[0], "user: msg-one") {
		t.Errorf("prompt missing transcript line, got %q", sum.prompts[0])
	}
	if strings.Contains(sum.prompts[0], "msg-four") {
		t.Errorf("prompt contains kept entry msg-four")
	}
}

func TestPruneSummarizerFailureLeavesHistoryIntact(t *testing.T) {
	cfg := Config{MaxContextTokens: 10, PruneThreshold: 0.5}
	st := &fakeStore{}
	sum := &fakeSummarizer{err: errors.New("model unavailable")}
	m := newTestManager(t, cfg, st, sum, nil)
	addMessages(m, "one", "two", "three", "four", "five")

	if _, err := m.Prune(context.Background()); err == nil {
		t.Fatal("Prune() = nil error, want failure")
	}
	if m.Len() != 5 {
		t.Errorf("Len() = %d, want 5 (untouched)", m.Len())
	}
	if len(st.appended) != 0 {
		t.Errorf("appended %d rows, want 0", len(st.appended))
	}
}

func TestPruneStoreFailureLeavesHistoryIntact(t *testing.T) {
	cfg := Config{MaxContextTokens: 10, PruneThreshold: 0.5}
	st := &fakeStore{appendErr: errors.New("disk full")}
	m := newTestManager(t, cfg, st, &fakeSummarizer{summary: "s"}, nil)
	addMessages(m, "one", "two", "three", "four", "five")

	if _, err := m.Prune(context.Background()); err == nil {
		t.Fatal("Prune() = nil error, want failure")
	}
	if m.Len() != 5 {
		t.Errorf("Len() = %d, want 5 (untouched)", m.Len())
	}
	if got := m.History()[0].Content; got != "one" {
		t.Errorf("first entry = %q, want %q", got, "one")
	}
}

func TestCompactTooShort(t *testing.T) {
	sum := &fakeSummarizer{summary: "unused"}
	m := newTestManager(t, Config{}, nil, sum, nil)
	addMessages(m, "one", "two", "three")

	got, err := m.Compact(context.Background())
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if got != "Not enough conversation history to compact." {
		t.Errorf("Compact() = %q", got)
	}
	if m.Len() != 3 {
		t.Errorf("Len() = %d, want 3", m.Len())
	}
	if len(sum.prompts) != 0 {
		t.Errorf("summarizer called %d times, want 0", len(sum.prompts))
	}
}

func TestCompactKeepsRecentEntries(t *testing.T) {
	st := &fakeStore{}
	sum := &fakeSummarizer{summary: "compacted stuff"}
	m := newTestManager(t, Config{}, st, sum, nil)
	addMessages(m, "m1", "m2", "m3", "m4", "m5", "m6", "m7")

	got, err := m.Compact(context.Background())
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if !strings.HasPrefix(got, "Compacted conversation history: 7 messages") {
		t.Errorf("Compact() = %q, want status string", got)
	}

	// Summary plus the last four survive.
	if m.Len() != 5 {
		t.Fatalf("Len() = %d, want 5", m.Len())
	}
	hist := m.History()
	if !strings.HasPrefix(hist[0].Content, SummaryMarker) {
		t.Errorf("first entry %q lacks summary marker", hist[0].Content)
	}
	want := []string{"m4", "m5", "m6", "m7"}
	for i, w := range want {
		if hist[i+1].Content != w {
			t.Errorf("kept entry %d = %q, want %q", i, hist[i+1].Content, w)
		}
	}
	if len(st.appended) != 1 {
		t.Errorf("appended %d rows, want 1", len(st.appended))
	}
}

func TestCompactUnconditional(t *testing.T) {
	// Compact ignores pruning pressure entirely: a tiny history well
	// under budget still compacts when long enough.
	m := newTestManager(t, Config{MaxContextTokens: 1_000_000}, &fakeStore{}, &fakeSummarizer{summary: "s"}, nil)
	addMessages(m, "a", "b", "c", "d", "e")

	got, err := m.Compact(context.Background())
	if err != nil {
		t.Fatalf("Compact() error = %v", err)
	}
	if !strings.HasPrefix(got, "Compacted conversation history:") {
		t.Errorf("Compact() = %q", got)
	}
	if m.Len() != 5 {
		t.Errorf("Len() = %d, want 5 (summary + 4 kept)", m.Len())
	}
}

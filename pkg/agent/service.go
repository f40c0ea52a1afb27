package agent

import (
	"context"
	"sync"

	"github.com/MSKravtsov/mikky/pkg/contextmgr"
	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// Service owns one Agent per conversation, created lazily on first use.
// Distinct conversations run independently; turns within a conversation
// are serialized by the agent's own mutex.
type Service struct {
	mu     sync.Mutex
	agents map[string]*Agent

	cfg        Config
	ctxCfg     contextmgr.Config
	client     CompletionClient
	summarizer contextmgr.Summarizer
	tokenizer  contextmgr.Tokenizer
	registry   *tool.Registry
	entries    store.ConversationStore
}

// NewService wires the shared collaborators every agent will use.
func NewService(cfg Config, ctxCfg contextmgr.Config, client CompletionClient, summarizer contextmgr.Summarizer, tokenizer contextmgr.Tokenizer, registry *tool.Registry, entries store.ConversationStore) *Service {
	return &Service{
		agents:     make(map[string]*Agent),
		cfg:        cfg,
		ctxCfg:     ctxCfg,
		client:     client,
		summarizer: summarizer,
		tokenizer:  tokenizer,
		registry:   registry,
		entries:    entries,
	}
}

// Run routes a user message to the conversation's agent.
func (s *Service) Run(ctx context.Context, conversationID, message string) (string, error) {
	return s.agentFor(ctx, conversationID).Run(ctx, message)
}

// Compact routes a compaction request to the conversation's agent.
func (s *Service) Compact(ctx context.Context, conversationID string) (string, error) {
	return s.agentFor(ctx, conversationID).Compact(ctx)
}

func (s *Service) agentFor(ctx context.Context, conversationID string) *Agent {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.agents[conversationID]; ok {
		return a
	}
	mgr := contextmgr.New(ctx, conversationID, s.ctxCfg, s.entries, s.summarizer, s.tokenizer)
	a := New(conversationID, s.cfg, mgr, s.client, s.registry, s.entries)
	s.agents[conversationID] = a
	return a
}

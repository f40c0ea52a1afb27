// Package store defines the persistence contracts the core consumes.
// Implementations live in subpackages; the core only depends on these
// interfaces.
package store

import (
	"context"
	"errors"

	"github.com/MSKravtsov/mikky/pkg/domain"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// ConversationStore manages the append-only conversation log.
type ConversationStore interface {
	// AppendEntry adds one row to the conversation log. The entry's ID
	// and Timestamp should be set by the caller.
	AppendEntry(ctx context.Context, entry *domain.ConversationEntry) error

	// RecentEntries returns the last n entries for a conversation in
	// chronological (oldest-first) order. n <= 0 returns all entries.
	RecentEntries(ctx context.Context, conversationID string, n int) ([]domain.ConversationEntry, error)
}

// ProfileStore manages key/value facts about the user.
type ProfileStore interface {
	// SetFact inserts or replaces a profile fact.
	SetFact(ctx context.Context, key, value string) error

	// Facts returns all profile facts ordered by key.
	Facts(ctx context.Context) ([]domain.ProfileFact, error)
}

// MemoryStore manages free-form memories.
type MemoryStore interface {
	AddMemory(ctx context.Context, m *domain.Memory) error

	// RecentMemories returns at most n memories, newest first.
	RecentMemories(ctx context.Context, n int) ([]domain.Memory, error)

	// SearchMemories returns memories whose content or category contain
	// the query string, newest first.
	SearchMemories(ctx context.Context, query string) ([]domain.Memory, error)
}

// GraphStore manages knowledge-graph entities and relations. Traversal
// beyond direct neighbors is deliberately not offered here.
type GraphStore interface {
	// UpsertEntity creates an entity or updates kind/notes of an
	// existing one with the same name.
	UpsertEntity(ctx context.Context, e *domain.Entity) error

	// LinkEntities records a directed relation between two entity names.
	LinkEntities(ctx context.Context, rel *domain.Relation) error

	// GetEntity returns an entity by name along with relations touching
	// it. Returns ErrNotFound if no entity has that name.
	GetEntity(ctx context.Context, name string) (*domain.Entity, []domain.Relation, error)
}

// TaskStore manages scheduled tasks.
type TaskStore interface {
	CreateTask(ctx context.Context, t *domain.ScheduledTask) error
	ListTasks(ctx context.Context) ([]domain.ScheduledTask, error)

	// DeleteTask removes a task by ID. Returns ErrNotFound if absent.
	DeleteTask(ctx context.Context, id string) error
}

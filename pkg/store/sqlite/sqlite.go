package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/store"
)

// Store implements every persistence contract in pkg/store using SQLite.
type Store struct {
	db *sql.DB
}

// Verify interface compliance at compile time.
var _ store.ConversationStore = (*Store)(nil)
var _ store.ProfileStore = (*Store)(nil)
var _ store.MemoryStore = (*Store)(nil)
var _ store.GraphStore = (*Store)(nil)
var _ store.TaskStore = (*Store)(nil)

// New opens (or creates) a SQLite database at the given path and runs
// migrations.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS conversation_entries (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL,
		role TEXT NOT NULL,
		content TEXT NOT NULL DEFAULT '',
		timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		seq INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_entries_conversation_seq ON conversation_entries(conversation_id, seq);

	CREATE TABLE IF NOT EXISTS profile_facts (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL DEFAULT '',
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS memories (
		id TEXT PRIMARY KEY,
		content TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS entities (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		kind TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS relations (
		id TEXT PRIMARY KEY,
		from_entity TEXT NOT NULL,
		to_entity TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_relations_from ON relations(from_entity);
	CREATE INDEX IF NOT EXISTS idx_relations_to ON relations(to_entity);

	CREATE TABLE IF NOT EXISTS scheduled_tasks (
		id TEXT PRIMARY KEY,
		conversation_id TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		schedule TEXT NOT NULL DEFAULT '',
		next_run DATETIME,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`
	_, err := s.db.Exec(schema)
	return err
}

// --- ConversationStore ---

func (s *Store) AppendEntry(ctx context.Context, entry *domain.ConversationEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	// Next sequence number for this conversation.
	var maxSeq int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM conversation_entries WHERE conversation_id=?`,
		entry.ConversationID,
	).Scan(&maxSeq)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO conversation_entries (id, conversation_id, role, content, timestamp, seq)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.ConversationID, entry.Role, entry.Content, entry.Timestamp, maxSeq+1,
	)
	return err
}

func (s *Store) RecentEntries(ctx context.Context, conversationID string, n int) ([]domain.ConversationEntry, error) {
	query := `SELECT id, conversation_id, role, content, timestamp
		FROM conversation_entries WHERE conversation_id=? ORDER BY seq ASC`
	args := []any{conversationID}

	if n > 0 {
		// Last n entries, returned oldest-first.
		query = `SELECT id, conversation_id, role, content, timestamp FROM (
			SELECT id, conversation_id, role, content, timestamp, seq
			FROM conversation_entries WHERE conversation_id=? ORDER BY seq DESC LIMIT ?
		) sub ORDER BY seq ASC`
		args = append(args, n)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.ConversationEntry
	for rows.Next() {
		var e domain.ConversationEntry
		if err := rows.Scan(&e.ID, &e.ConversationID, &e.Role, &e.Content, &e.Timestamp); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// --- ProfileStore ---

func (s *Store) SetFact(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO profile_facts (key, value, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, updated_at=excluded.updated_at`,
		key, value, time.Now().UTC(),
	)
	return err
}

func (s *Store) Facts(ctx context.Context) ([]domain.ProfileFact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT key, value, updated_at FROM profile_facts ORDER BY key ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var facts []domain.ProfileFact
	for rows.Next() {
		var f domain.ProfileFact
		if err := rows.Scan(&f.Key, &f.Value, &f.UpdatedAt); err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, rows.Err()
}

// --- MemoryStore ---

func (s *Store) AddMemory(ctx context.Context, m *domain.Memory) error {
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO memories (id, content, category, created_at) VALUES (?, ?, ?, ?)`,
		m.ID, m.Content, m.Category, m.CreatedAt,
	)
	return err
}

func (s *Store) RecentMemories(ctx context.Context, n int) ([]domain.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, category, created_at FROM memories ORDER BY created_at DESC LIMIT ?`, n)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func (s *Store) SearchMemories(ctx context.Context, query string) ([]domain.Memory, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, content, category, created_at FROM memories
		 WHERE content LIKE '%' || ? || '%' OR category LIKE '%' || ? || '%'
		 ORDER BY created_at DESC`,
		query, query,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanMemories(rows)
}

func scanMemories(rows *sql.Rows) ([]domain.Memory, error) {
	var memories []domain.Memory
	for rows.Next() {
		var m domain.Memory
		if err := rows.Scan(&m.ID, &m.Content, &m.Category, &m.CreatedAt); err != nil {
			return nil, err
		}
		memories = append(memories, m)
	}
	return memories, rows.Err()
}

// --- GraphStore ---

func (s *Store) UpsertEntity(ctx context.Context, e *domain.Entity) error {
	now := time.Now().UTC()
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO entities (id, name, kind, notes, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET kind=excluded.kind, notes=excluded.notes, updated_at=excluded.updated_at`,
		e.ID, e.Name, e.Kind, e.Notes, e.CreatedAt, e.UpdatedAt,
	)
	return err
}

func (s *Store) LinkEntities(ctx context.Context, rel *domain.Relation) error {
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO relations (id, from_entity, to_entity, kind, created_at) VALUES (?, ?, ?, ?, ?)`,
		rel.ID, rel.FromEntity, rel.ToEntity, rel.Kind, rel.CreatedAt,
	)
	return err
}

func (s *Store) GetEntity(ctx context.Context, name string) (*domain.Entity, []domain.Relation, error) {
	e := &domain.Entity{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, kind, notes, created_at, updated_at FROM entities WHERE name=?`, name,
	).Scan(&e.ID, &e.Name, &e.Kind, &e.Notes, &e.CreatedAt, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("entity %q: %w", name, store.ErrNotFound)
	}
	if err != nil {
		return nil, nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, from_entity, to_entity, kind, created_at FROM relations
		 WHERE from_entity=? OR to_entity=? ORDER BY created_at ASC`,
		name, name,
	)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	var rels []domain.Relation
	for rows.Next() {
		var r domain.Relation
		if err := rows.Scan(&r.ID, &r.FromEntity, &r.ToEntity, &r.Kind, &r.CreatedAt); err != nil {
			return nil, nil, err
		}
		rels = append(rels, r)
	}
	return e, rels, rows.Err()
}

// --- TaskStore ---

func (s *Store) CreateTask(ctx context.Context, t *domain.ScheduledTask) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	var nextRun any
	if !t.NextRun.IsZero() {
		nextRun = t.NextRun
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO scheduled_tasks (id, conversation_id, description, schedule, next_run, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.ConversationID, t.Description, t.Schedule, nextRun, t.CreatedAt,
	)
	return err
}

func (s *Store) ListTasks(ctx context.Context) ([]domain.ScheduledTask, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, conversation_id, description, schedule, next_run, created_at
		 FROM scheduled_tasks ORDER BY created_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []domain.ScheduledTask
	for rows.Next() {
		var t domain.ScheduledTask
		var nextRun sql.NullTime
		if err := rows.Scan(&t.ID, &t.ConversationID, &t.Description, &t.Schedule, &nextRun, &t.CreatedAt); err != nil {
			return nil, err
		}
		if nextRun.Valid {
			t.NextRun = nextRun.Time
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM scheduled_tasks WHERE id=?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return fmt.Errorf("task %q: %w", id, store.ErrNotFound)
	}
	return nil
}

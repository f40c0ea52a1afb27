package domain

import "time"

// ConversationEntry is one turn in a two-party dialogue. Entries are
// append-only in temporal order; compaction replaces a contiguous prefix
// with a single summary entry in the active window while the original
// rows remain in storage.
type ConversationEntry struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           Role      `json:"role"`
	Content        string    `json:"content"`
	Timestamp      time.Time `json:"timestamp"`
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID    string         `json:"id"`
	Name  string         `json:"name"`
	Input map[string]any `json:"input"`
}

// ToolResult represents the outcome of a tool call execution. Failures
// are encoded with IsError rather than raised, so the model can see the
// error text and decide how to react.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Content    string `json:"content"`
	IsError    bool   `json:"is_error"`
}

// ProfileFact is one key/value fact about the user, injected into the
// system prompt on every completion call.
type ProfileFact struct {
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Memory is a free-form fact the assistant decided to keep.
type Memory struct {
	ID        string    `json:"id"`
	Content   string    `json:"content"`
	Category  string    `json:"category"`
	CreatedAt time.Time `json:"created_at"`
}

// Entity is a node in the knowledge graph.
type Entity struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	Notes     string    `json:"notes"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Relation is a directed edge between two knowledge-graph entities.
type Relation struct {
	ID         string    `json:"id"`
	FromEntity string    `json:"from_entity"`
	ToEntity   string    `json:"to_entity"`
	Kind       string    `json:"kind"`
	CreatedAt  time.Time `json:"created_at"`
}

// ScheduledTask is a reminder or recurring job the user asked for.
// Executing the schedule is out of scope here; tasks are stored and
// managed through tools.
type ScheduledTask struct {
	ID             string    `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Description    string    `json:"description"`
	Schedule       string    `json:"schedule"`
	NextRun        time.Time `json:"next_run,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

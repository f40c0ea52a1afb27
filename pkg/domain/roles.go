package domain

// Role defines the author of a conversation entry.
type Role string

const (
	// RoleUser indicates a message from the user.
	RoleUser Role = "user"
	// RoleAssistant indicates a message from the assistant.
	RoleAssistant Role = "assistant"
	// RoleTool indicates a tool result fed back to the model.
	RoleTool Role = "tool"
	// RoleSummary indicates a compaction artifact replacing older entries.
	// Stored distinctly so downstream consumers can tell summaries from
	// genuine turns.
	RoleSummary Role = "summary"
)

// Package sandbox defines the interface for isolated shell command
// execution.
package sandbox

import "context"

// Result holds the outcome of a sandboxed command.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Manager executes shell commands in an isolated environment. A non-zero
// exit code is reported in the Result, not as an error; errors are
// reserved for infrastructure failures.
type Manager interface {
	RunCommand(ctx context.Context, command string) (*Result, error)
	Close() error
}

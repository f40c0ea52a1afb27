// Package tool holds the process-wide tool catalog: named capabilities
// the model may invoke, each with a declared input schema and an execute
// function. Registration happens once at startup; the registry is
// read-only afterwards and safe for concurrent lookups.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MSKravtsov/mikky/pkg/domain"
)

// ErrDuplicateTool is returned when a tool name is registered twice.
// This is a configuration error: the process must not serve traffic.
var ErrDuplicateTool = errors.New("duplicate tool name")

// Descriptor declares one tool. Execute receives an input bag already
// validated against InputSchema and returns the text fed back to the
// model; returned errors are folded into structured error payloads by
// Dispatch and never propagate further.
type Descriptor struct {
	Name        string
	Description string
	InputSchema Schema
	Execute     func(ctx context.Context, input map[string]any) (string, error)
}

// Registry maps tool names to descriptors, preserving registration order
// for the declarations sent to the completion provider.
type Registry struct {
	tools map[string]Descriptor
	order []string
}

func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]Descriptor)}
}

// Register adds a tool. Registering a duplicate name fails with
// ErrDuplicateTool.
func (r *Registry) Register(d Descriptor) error {
	if _, exists := r.tools[d.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateTool, d.Name)
	}
	r.tools[d.Name] = d
	r.order = append(r.order, d.Name)
	return nil
}

// Lookup returns the descriptor for name. Absence is a normal condition:
// the model can request names that were never registered.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	d, ok := r.tools[name]
	return d, ok
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	list := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		list = append(list, r.tools[name])
	}
	return list
}

// Dispatch resolves and executes one tool call, always producing a
// result. Unknown names, validation failures, execution errors, panics
// and timeouts all come back as IsError results the model can react to.
func (r *Registry) Dispatch(ctx context.Context, call domain.ToolCall, timeout time.Duration) domain.ToolResult {
	d, ok := r.Lookup(call.Name)
	if !ok {
		slog.Warn("Unknown tool requested", "tool", call.Name)
		return errorResult(call.ID, fmt.Sprintf("Unknown tool: %s", call.Name))
	}

	if err := d.InputSchema.Validate(call.Input); err != nil {
		return errorResult(call.ID, fmt.Sprintf("Invalid arguments for %s: %v", call.Name, err))
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		content string
		err     error
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- outcome{err: fmt.Errorf("tool panicked: %v", rec)}
			}
		}()
		content, err := d.Execute(ctx, call.Input)
		done <- outcome{content: content, err: err}
	}()

	select {
	case <-ctx.Done():
		slog.Warn("Tool execution timed out", "tool", call.Name)
		return errorResult(call.ID, fmt.Sprintf("Tool %s timed out: %v", call.Name, ctx.Err()))
	case out := <-done:
		if out.err != nil {
			slog.Warn("Tool execution failed", "tool", call.Name, "error", out.err)
			return errorResult(call.ID, out.err.Error())
		}
		return domain.ToolResult{ToolCallID: call.ID, Content: out.content}
	}
}

func errorResult(callID, message string) domain.ToolResult {
	payload, _ := json.Marshal(map[string]string{"error": message})
	return domain.ToolResult{ToolCallID: callID, Content: string(payload), IsError: true}
}

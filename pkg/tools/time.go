// Package tools provides the built-in tool descriptors exposed to the
// model: time, memory, profile, knowledge graph, scheduling, and shell
// execution.
package tools

import (
	"context"
	"time"

	"github.com/MSKravtsov/mikky/pkg/tool"
)

// CurrentTime reports the server's current date and time.
func CurrentTime() tool.Descriptor {
	return tool.Descriptor{
		Name:        "get_current_time",
		Description: "Get the current date and time.",
		InputSchema: tool.Schema{},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			return time.Now().Format(time.RFC1123), nil
		},
	}
}

package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/MSKravtsov/mikky/pkg/sandbox"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// RunShell executes a shell command inside the sandbox.
func RunShell(sb sandbox.Manager) tool.Descriptor {
	return tool.Descriptor{
		Name:        "run_shell",
		Description: "Run a shell command in an isolated sandbox and return its output. The sandbox has no network access and no access to the host filesystem.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"command": {
					Type:        tool.TypeString,
					Description: "The shell command to run.",
				},
			},
			Required: []string{"command"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			command, _ := input["command"].(string)
			result, err := sb.RunCommand(ctx, command)
			if err != nil {
				return "", fmt.Errorf("running command: %w", err)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "exit code: %d", result.ExitCode)
			if out := strings.TrimRight(result.Stdout, "\n"); out != "" {
				fmt.Fprintf(&b, "\nstdout:\n%s", out)
			}
			if errOut := strings.TrimRight(result.Stderr, "\n"); errOut != "" {
				fmt.Fprintf(&b, "\nstderr:\n%s", errOut)
			}
			return b.String(), nil
		},
	}
}

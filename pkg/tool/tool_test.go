package tool

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/MSKravtsov/mikky/pkg/domain"
)

func echoTool(name string) Descriptor {
	return Descriptor{
		Name: name,
		InputSchema: Schema{
			Properties: map[string]Property{"text": {Type: TypeString}},
			Required:   []string{"text"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			return input["text"].(string), nil
		},
	}
}

func TestRegisterDuplicate(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatalf("first Register() = %v", err)
	}
	err := r.Register(echoTool("echo"))
	if !errors.Is(err, ErrDuplicateTool) {
		t.Fatalf("second Register() = %v, want ErrDuplicateTool", err)
	}
}

func TestListPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	names := []string{"zeta", "alpha", "mid"}
	for _, n := range names {
		if err := r.Register(echoTool(n)); err != nil {
			t.Fatalf("Register(%s) = %v", n, err)
		}
	}
	list := r.List()
	if len(list) != len(names) {
		t.Fatalf("List() returned %d tools, want %d", len(list), len(names))
	}
	for i, n := range names {
		if list[i].Name != n {
			t.Errorf("List()[%d] = %s, want %s", i, list[i].Name, n)
		}
	}
}

// decodeError unpacks the JSON error payload Dispatch produces.
func decodeError(t *testing.T, res domain.ToolResult) string {
	t.Helper()
	if !res.IsError {
		t.Fatalf("expected error result, got %+v", res)
	}
	var payload map[string]string
	if err := json.Unmarshal([]byte(res.Content), &payload); err != nil {
		t.Fatalf("error content is not JSON: %v (%q)", err, res.Content)
	}
	return payload["error"]
}

func TestDispatchSuccess(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatal(err)
	}
	res := r.Dispatch(context.Background(), domain.ToolCall{
		ID:    "call-1",
		Name:  "echo",
		Input: map[string]any{"text": "hello"},
	}, 0)
	if res.IsError {
		t.Fatalf("Dispatch() returned error result: %s", res.Content)
	}
	if res.ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %s, want call-1", res.ToolCallID)
	}
	if res.Content != "hello" {
		t.Errorf("Content = %q, want %q", res.Content, "hello")
	}
}

func TestDispatchUnknownTool(t *testing.T) {
	r := NewRegistry()
	res := r.Dispatch(context.Background(), domain.ToolCall{ID: "c", Name: "nope"}, 0)
	if got := decodeError(t, res); got != "Unknown tool: nope" {
		t.Errorf("error = %q, want %q", got, "Unknown tool: nope")
	}
}

func TestDispatchValidationFailure(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(echoTool("echo")); err != nil {
		t.Fatal(err)
	}
	res := r.Dispatch(context.Background(), domain.ToolCall{
		ID:    "c",
		Name:  "echo",
		Input: map[string]any{},
	}, 0)
	got := decodeError(t, res)
	if !strings.HasPrefix(got, "Invalid arguments for echo:") {
		t.Errorf("error = %q, want Invalid arguments prefix", got)
	}
}

func TestDispatchExecutionError(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Descriptor{
		Name: "fail",
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			return "", errors.New("disk on fire")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	res := r.Dispatch(context.Background(), domain.ToolCall{ID: "c", Name: "fail"}, 0)
	if got := decodeError(t, res); got != "disk on fire" {
		t.Errorf("error = %q, want %q", got, "disk on fire")
	}
}

func TestDispatchPanicRecovery(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Descriptor{
		Name: "boom",
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			panic("unexpected nil")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	res := r.Dispatch(context.Background(), domain.ToolCall{ID: "c", Name: "boom"}, 0)
	if got := decodeError(t, res); !strings.Contains(got, "tool panicked") {
		t.Errorf("error = %q, want panic message", got)
	}
}

func TestDispatchTimeout(t *testing.T) {
	r := NewRegistry()
	err := r.Register(Descriptor{
		Name: "slow",
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(5 * time.Second):
				return "done", nil
			}
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	res := r.Dispatch(context.Background(), domain.ToolCall{ID: "c", Name: "slow"}, 50*time.Millisecond)
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("Dispatch took %v, timeout did not fire", elapsed)
	}
	if got := decodeError(t, res); !strings.Contains(got, "timed out") {
		t.Errorf("error = %q, want timeout message", got)
	}
}

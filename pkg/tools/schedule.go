package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// ScheduleTask records a task the user wants done on a schedule.
func ScheduleTask(tasks store.TaskStore, conversationID string) tool.Descriptor {
	return tool.Descriptor{
		Name:        "schedule_task",
		Description: "Schedule a recurring or one-off task, e.g. a daily reminder. The schedule is a human-readable description like 'every morning at 9am'.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"description": {
					Type:        tool.TypeString,
					Description: "What the task should do.",
				},
				"schedule": {
					Type:        tool.TypeString,
					Description: "When the task should run, in plain language.",
				},
			},
			Required: []string{"description", "schedule"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			description, _ := input["description"].(string)
			schedule, _ := input["schedule"].(string)
			t := &domain.ScheduledTask{
				ID:             uuid.New().String(),
				ConversationID: conversationID,
				Description:    description,
				Schedule:       schedule,
				CreatedAt:      time.Now().UTC(),
			}
			if err := tasks.CreateTask(ctx, t); err != nil {
				return "", fmt.Errorf("creating task: %w", err)
			}
			return fmt.Sprintf("Task scheduled (id %s): %s, %s", t.ID, description, schedule), nil
		},
	}
}

// ListTasks lists all scheduled tasks.
func ListTasks(tasks store.TaskStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "list_tasks",
		Description: "List all scheduled tasks with their ids.",
		InputSchema: tool.Schema{},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			all, err := tasks.ListTasks(ctx)
			if err != nil {
				return "", fmt.Errorf("listing tasks: %w", err)
			}
			if len(all) == 0 {
				return "No tasks are scheduled.", nil
			}
			var b strings.Builder
			for _, t := range all {
				fmt.Fprintf(&b, "- %s: %s (%s)\n", t.ID, t.Description, t.Schedule)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

// CancelTask removes a scheduled task by id.
func CancelTask(tasks store.TaskStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "cancel_task",
		Description: "Cancel a scheduled task by its id.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"id": {
					Type:        tool.TypeString,
					Description: "The id of the task to cancel, as shown by list_tasks.",
				},
			},
			Required: []string{"id"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			id, _ := input["id"].(string)
			err := tasks.DeleteTask(ctx, id)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Sprintf("No task with id %q.", id), nil
			}
			if err != nil {
				return "", fmt.Errorf("cancelling task: %w", err)
			}
			return "Task cancelled.", nil
		},
	}
}

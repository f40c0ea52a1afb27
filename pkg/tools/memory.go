package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

var memoryCategories = []string{"fact", "preference", "event", "person", "other"}

// Remember stores a long-term memory about the user.
func Remember(memories store.MemoryStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "remember",
		Description: "Save a long-term memory about the user. Use this when the user shares something worth remembering across conversations.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"content": {
					Type:        tool.TypeString,
					Description: "The fact to remember, phrased as a standalone statement.",
				},
				"category": {
					Type:        tool.TypeEnum,
					Description: "What kind of memory this is.",
					Enum:        memoryCategories,
				},
			},
			Required: []string{"content", "category"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			content, _ := input["content"].(string)
			category, _ := input["category"].(string)
			mem := &domain.Memory{
				ID:        uuid.New().String(),
				Content:   content,
				Category:  category,
				CreatedAt: time.Now().UTC(),
			}
			if err := memories.AddMemory(ctx, mem); err != nil {
				return "", fmt.Errorf("saving memory: %w", err)
			}
			return "Memory saved.", nil
		},
	}
}

// RecallMemories searches stored memories by content.
func RecallMemories(memories store.MemoryStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "recall_memories",
		Description: "Search saved memories about the user. Returns memories whose content matches the query.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"query": {
					Type:        tool.TypeString,
					Description: "Text to search for within memory contents.",
				},
				"categories": {
					Type:        tool.TypeArray,
					Description: "Optional list of categories to restrict the search to.",
					Items:       &tool.Property{Type: tool.TypeString},
				},
			},
			Required: []string{"query"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			query, _ := input["query"].(string)
			found, err := memories.SearchMemories(ctx, query)
			if err != nil {
				return "", fmt.Errorf("searching memories: %w", err)
			}
			if cats, ok := input["categories"].([]any); ok && len(cats) > 0 {
				allowed := make(map[string]bool, len(cats))
				for _, c := range cats {
					if s, ok := c.(string); ok {
						allowed[s] = true
					}
				}
				filtered := found[:0]
				for _, m := range found {
					if allowed[m.Category] {
						filtered = append(filtered, m)
					}
				}
				found = filtered
			}
			if len(found) == 0 {
				return "No memories matched that query.", nil
			}
			var b strings.Builder
			for _, m := range found {
				fmt.Fprintf(&b, "- [%s] %s\n", m.Category, m.Content)
			}
			return strings.TrimRight(b.String(), "\n"), nil
		},
	}
}

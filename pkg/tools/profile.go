package tools

import (
	"context"
	"fmt"

	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// UpdateProfile sets or replaces a fact on the user's profile.
func UpdateProfile(profile store.ProfileStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "update_profile",
		Description: "Set a fact on the user's profile, such as their name, timezone, or occupation. Replaces any existing value for the same key.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"key": {
					Type:        tool.TypeString,
					Description: "Short snake_case identifier for the fact, e.g. 'name' or 'timezone'.",
				},
				"value": {
					Type:        tool.TypeString,
					Description: "The value to store for this key.",
				},
			},
			Required: []string{"key", "value"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			key, _ := input["key"].(string)
			value, _ := input["value"].(string)
			if err := profile.SetFact(ctx, key, value); err != nil {
				return "", fmt.Errorf("updating profile: %w", err)
			}
			return fmt.Sprintf("Profile updated: %s = %s", key, value), nil
		},
	}
}

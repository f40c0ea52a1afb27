package tools

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/store"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

var entityKinds = []string{"person", "place", "organization", "project", "other"}

// RememberEntity creates or updates an entity in the knowledge graph.
func RememberEntity(graph store.GraphStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "remember_entity",
		Description: "Create or update an entity in the knowledge graph, such as a person or project the user mentions.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"name": {
					Type:        tool.TypeString,
					Description: "The entity's name, used as its identifier.",
				},
				"kind": {
					Type:        tool.TypeEnum,
					Description: "What kind of entity this is.",
					Enum:        entityKinds,
				},
				"notes": {
					Type:        tool.TypeString,
					Description: "Free-form notes about the entity.",
				},
			},
			Required: []string{"name", "kind"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			name, _ := input["name"].(string)
			kind, _ := input["kind"].(string)
			notes, _ := input["notes"].(string)
			e := &domain.Entity{
				ID:    uuid.New().String(),
				Name:  name,
				Kind:  kind,
				Notes: notes,
			}
			if err := graph.UpsertEntity(ctx, e); err != nil {
				return "", fmt.Errorf("saving entity: %w", err)
			}
			return fmt.Sprintf("Entity saved: %s (%s)", name, kind), nil
		},
	}
}

// LinkEntities records a relation between two entities.
func LinkEntities(graph store.GraphStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "link_entities",
		Description: "Record a relationship between two entities in the knowledge graph, e.g. 'Alice' works_at 'Acme'.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"from": {
					Type:        tool.TypeString,
					Description: "Name of the source entity.",
				},
				"to": {
					Type:        tool.TypeString,
					Description: "Name of the target entity.",
				},
				"relation": {
					Type:        tool.TypeString,
					Description: "The relation in snake_case, e.g. 'works_at' or 'married_to'.",
				},
			},
			Required: []string{"from", "to", "relation"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			from, _ := input["from"].(string)
			to, _ := input["to"].(string)
			relation, _ := input["relation"].(string)
			rel := &domain.Relation{
				ID:         uuid.New().String(),
				FromEntity: from,
				ToEntity:   to,
				Kind:       relation,
			}
			if err := graph.LinkEntities(ctx, rel); err != nil {
				return "", fmt.Errorf("linking entities: %w", err)
			}
			return fmt.Sprintf("Linked: %s %s %s", from, relation, to), nil
		},
	}
}

// LookupEntity fetches an entity and its relations by name.
func LookupEntity(graph store.GraphStore) tool.Descriptor {
	return tool.Descriptor{
		Name:        "lookup_entity",
		Description: "Look up an entity in the knowledge graph by name, returning its details and relationships.",
		InputSchema: tool.Schema{
			Properties: map[string]tool.Property{
				"name": {
					Type:        tool.TypeString,
					Description: "Name of the entity to look up.",
				},
			},
			Required: []string{"name"},
		},
		Execute: func(ctx context.Context, input map[string]any) (string, error) {
			name, _ := input["name"].(string)
			entity, relations, err := graph.GetEntity(ctx, name)
			if errors.Is(err, store.ErrNotFound) {
				return fmt.Sprintf("No entity named %q.", name), nil
			}
			if err != nil {
				return "", fmt.Errorf("looking up entity: %w", err)
			}
			var b strings.Builder
			fmt.Fprintf(&b, "%s (%s)", entity.Name, entity.Kind)
			if entity.Notes != "" {
				fmt.Fprintf(&b, "\nNotes: %s", entity.Notes)
			}
			for _, r := range relations {
				fmt.Fprintf(&b, "\n- %s %s %s", r.FromEntity, r.Kind, r.ToEntity)
			}
			return b.String(), nil
		},
	}
}

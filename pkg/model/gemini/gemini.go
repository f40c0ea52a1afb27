// Package gemini implements model.Provider using the Google Gen AI SDK.
package gemini

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"google.golang.org/genai"

	"github.com/MSKravtsov/mikky/pkg/domain"
	"github.com/MSKravtsov/mikky/pkg/model"
	"github.com/MSKravtsov/mikky/pkg/tool"
)

// Provider talks to a single Gemini model.
type Provider struct {
	client    *genai.Client
	modelName string
}

// Verify interface compliance.
var _ model.Provider = (*Provider)(nil)

// New creates a Gemini provider bound to the given model.
func New(ctx context.Context, apiKey, modelName string) (*Provider, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}
	return &Provider{client: client, modelName: modelName}, nil
}

// Name returns the provider identifier.
func (p *Provider) Name() string { return "gemini" }

// Complete sends the conversation to Gemini and returns the full
// response as a single message.
func (p *Provider) Complete(ctx context.Context, instructions string, messages []model.Message, tools []tool.Descriptor) (model.Message, error) {
	slog.Debug("Gemini.Complete", "model", p.modelName, "messageCount", len(messages), "toolCount", len(tools))

	var systemInstruction *genai.Content
	if instructions != "" {
		systemInstruction = &genai.Content{
			Parts: []*genai.Part{{Text: instructions}},
		}
	}

	// Gemini correlates function responses by name, not ID, so track the
	// name each call ID belongs to.
	toolNameByID := make(map[string]string)

	var contents []*genai.Content
	for _, msg := range messages {
		var parts []*genai.Part
		for _, c := range msg.Content {
			switch c.Type {
			case model.ContentTypeText:
				if c.Text != "" {
					parts = append(parts, &genai.Part{Text: c.Text})
				}
			case model.ContentTypeToolCall:
				if c.ToolCall != nil {
					toolNameByID[c.ToolCall.ID] = c.ToolCall.Name
					parts = append(parts, &genai.Part{
						FunctionCall: &genai.FunctionCall{
							ID:   c.ToolCall.ID,
							Name: c.ToolCall.Name,
							Args: c.ToolCall.Input,
						},
					})
				}
			case model.ContentTypeToolResult:
				if c.ToolResult != nil {
					parts = append(parts, &genai.Part{
						FunctionResponse: &genai.FunctionResponse{
							ID:   c.ToolResult.ToolCallID,
							Name: toolNameByID[c.ToolResult.ToolCallID],
							Response: map[string]any{
								"result": c.ToolResult.Content,
							},
						},
					})
				}
			}
		}

		if len(parts) == 0 {
			continue
		}

		role := "user"
		if msg.Role == domain.RoleAssistant {
			role = "model"
		}
		contents = append(contents, &genai.Content{Role: role, Parts: parts})
	}

	config := &genai.GenerateContentConfig{
		Tools:             buildDeclarations(tools),
		SystemInstruction: systemInstruction,
	}

	resp, err := p.client.Models.GenerateContent(ctx, p.modelName, contents, config)
	if err != nil {
		return model.Message{}, fmt.Errorf("generate content: %w", err)
	}

	return parseResponse(resp), nil
}

// buildDeclarations converts registry descriptors into genai function
// declarations so the catalog stays the single source of truth for what
// the model may call.
func buildDeclarations(tools []tool.Descriptor) []*genai.Tool {
	if len(tools) == 0 {
		return nil
	}
	decls := make([]*genai.FunctionDeclaration, 0, len(tools))
	for _, t := range tools {
		decls = append(decls, &genai.FunctionDeclaration{
			Name:        t.Name,
			Description: t.Description,
			Parameters:  schemaToGenai(t.InputSchema),
		})
	}
	return []*genai.Tool{{FunctionDeclarations: decls}}
}

func schemaToGenai(s tool.Schema) *genai.Schema {
	props := make(map[string]*genai.Schema, len(s.Properties))
	for name, p := range s.Properties {
		props[name] = propertyToGenai(p)
	}
	return &genai.Schema{
		Type:       genai.TypeObject,
		Properties: props,
		Required:   s.Required,
	}
}

func propertyToGenai(p tool.Property) *genai.Schema {
	switch p.Type {
	case tool.TypeString:
		return &genai.Schema{Type: genai.TypeString, Description: p.Description}
	case tool.TypeNumber:
		return &genai.Schema{Type: genai.TypeNumber, Description: p.Description}
	case tool.TypeBoolean:
		return &genai.Schema{Type: genai.TypeBoolean, Description: p.Description}
	case tool.TypeEnum:
		return &genai.Schema{Type: genai.TypeString, Description: p.Description, Enum: p.Enum}
	case tool.TypeArray:
		var items *genai.Schema
		if p.Items != nil {
			items = propertyToGenai(*p.Items)
		}
		return &genai.Schema{Type: genai.TypeArray, Description: p.Description, Items: items}
	case tool.TypeObject:
		nested := make(map[string]*genai.Schema, len(p.Properties))
		for name, np := range p.Properties {
			nested[name] = propertyToGenai(np)
		}
		return &genai.Schema{Type: genai.TypeObject, Description: p.Description, Properties: nested, Required: p.Required}
	default:
		return &genai.Schema{Type: genai.TypeString, Description: p.Description}
	}
}

func parseResponse(resp *genai.GenerateContentResponse) model.Message {
	var fullText strings.Builder
	var toolCalls []model.Content

	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if part.Text != "" {
				fullText.WriteString(part.Text)
			}
			if part.FunctionCall != nil {
				fc := part.FunctionCall
				id := fc.ID
				if id == "" {
					id = "call-" + uuid.New().String()
				}
				toolCalls = append(toolCalls, model.Content{
					Type: model.ContentTypeToolCall,
					ToolCall: &domain.ToolCall{
						ID:    id,
						Name:  fc.Name,
						Input: fc.Args,
					},
				})
			}
		}
	}

	var content []model.Content
	if fullText.Len() > 0 {
		content = append(content, model.Content{
			Type: model.ContentTypeText,
			Text: fullText.String(),
		})
	}
	content = append(content, toolCalls...)

	return model.Message{
		Role:    domain.RoleAssistant,
		Content: content,
	}
}

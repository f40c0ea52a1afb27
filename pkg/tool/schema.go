package tool

import "fmt"

// ParamType enumerates the parameter kinds a tool schema can declare.
type ParamType string

const (
	TypeString  ParamType = "string"
	TypeNumber  ParamType = "number"
	TypeBoolean ParamType = "boolean"
	TypeEnum    ParamType = "enum"
	TypeObject  ParamType = "object"
	TypeArray   ParamType = "array"
)

// Property describes a single parameter in a tool's input schema.
type Property struct {
	Type        ParamType
	Description string
	// Enum lists the allowed values when Type == TypeEnum.
	Enum []string
	// Items describes the element type when Type == TypeArray.
	Items *Property
	// Properties describes nested fields when Type == TypeObject.
	Properties map[string]Property
	// Required lists nested required fields when Type == TypeObject.
	Required []string
}

// Schema declares a tool's input contract. Inputs are validated against
// it before the tool body runs, so malformed model-supplied arguments
// surface as a validation error rather than a type confusion inside the
// tool.
type Schema struct {
	Properties map[string]Property
	Required   []string
}

// Validate checks the input bag against the schema. Unknown keys are
// tolerated; the model sometimes sends extras and dropping them is safer
// than refusing the call.
func (s Schema) Validate(input map[string]any) error {
	for _, name := range s.Required {
		if _, ok := input[name]; !ok {
			return fmt.Errorf("missing required parameter %q", name)
		}
	}
	for name, value := range input {
		prop, ok := s.Properties[name]
		if !ok {
			continue
		}
		if err := prop.validate(name, value); err != nil {
			return err
		}
	}
	return nil
}

func (p Property) validate(name string, value any) error {
	switch p.Type {
	case TypeString:
		if _, ok := value.(string); !ok {
			return fmt.Errorf("parameter %q must be a string", name)
		}
	case TypeNumber:
		switch value.(type) {
		case float64, float32, int, int32, int64:
		default:
			return fmt.Errorf("parameter %q must be a number", name)
		}
	case TypeBoolean:
		if _, ok := value.(bool); !ok {
			return fmt.Errorf("parameter %q must be a boolean", name)
		}
	case TypeEnum:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("parameter %q must be a string", name)
		}
		for _, allowed := range p.Enum {
			if s == allowed {
				return nil
			}
		}
		return fmt.Errorf("parameter %q must be one of %v, got %q", name, p.Enum, s)
	case TypeArray:
		items, ok := value.([]any)
		if !ok {
			return fmt.Errorf("parameter %q must be an array", name)
		}
		if p.Items != nil {
			for i, item := range items {
				if err := p.Items.validate(fmt.Sprintf("%s[%d]", name, i), item); err != nil {
					return err
				}
			}
		}
	case TypeObject:
		obj, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("parameter %q must be an object", name)
		}
		nested := Schema{Properties: p.Properties, Required: p.Required}
		if err := nested.Validate(obj); err != nil {
			return fmt.Errorf("parameter %q: %w", name, err)
		}
	default:
		return fmt.Errorf("parameter %q has unknown schema type %q", name, p.Type)
	}
	return nil
}

package tool

import (
	"strings"
	"testing"
)

func TestSchemaValidate(t *testing.T) {
	schema := Schema{
		Properties: map[string]Property{
			"name":  {Type: TypeString},
			"count": {Type: TypeNumber},
			"force": {Type: TypeBoolean},
			"kind":  {Type: TypeEnum, Enum: []string{"person", "place"}},
			"tags":  {Type: TypeArray, Items: &Property{Type: TypeString}},
			"opts": {
				Type:       TypeObject,
				Properties: map[string]Property{"depth": {Type: TypeNumber}},
				Required:   []string{"depth"},
			},
		},
		Required: []string{"name"},
	}

	cases := []struct {
		desc    string
		input   map[string]any
		wantErr string
	}{
		{
			desc:  "valid full input",
			input: map[string]any{"name": "a", "count": float64(3), "force": true, "kind": "person", "tags": []any{"x"}, "opts": map[string]any{"depth": 2}},
		},
		{
			desc:    "missing required",
			input:   map[string]any{"count": float64(1)},
			wantErr: `missing required parameter "name"`,
		},
		{
			desc:    "wrong string type",
			input:   map[string]any{"name": 42},
			wantErr: `must be a string`,
		},
		{
			desc:  "int accepted as number",
			input: map[string]any{"name": "a", "count": 7},
		},
		{
			desc:    "enum rejects unknown value",
			input:   map[string]any{"name": "a", "kind": "planet"},
			wantErr: `must be one of`,
		},
		{
			desc:    "array element type checked",
			input:   map[string]any{"name": "a", "tags": []any{"ok", 5}},
			wantErr: `"tags[1]" must be a string`,
		},
		{
			desc:    "nested object required field",
			input:   map[string]any{"name": "a", "opts": map[string]any{}},
			wantErr: `missing required parameter "depth"`,
		},
		{
			desc:  "unknown keys tolerated",
			input: map[string]any{"name": "a", "extra": "whatever"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.desc, func(t *testing.T) {
			err := schema.Validate(tc.input)
			if tc.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tc.wantErr)
			}
		})
	}
}

func TestSchemaValidateEmptySchema(t *testing.T) {
	if err := (Schema{}).Validate(map[string]any{"anything": 1}); err != nil {
		t.Fatalf("empty schema should accept any input, got %v", err)
	}
}

package profile

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// documentSchema describes a profile import file: a list of parsing
// profiles, each with a key and any subset of the pattern fields.
var documentSchema = map[string]any{
	"type":                 "object",
	"required":             []string{"profiles"},
	"additionalProperties": false,
	"properties": map[string]any{
		"profiles": map[string]any{
			"type":     "array",
			"minItems": 1,
			"items": map[string]any{
				"type":                 "object",
				"required":             []string{"key"},
				"additionalProperties": false,
				"properties": map[string]any{
					"key":               map[string]any{"type": "string", "minLength": 1},
					"description":       map[string]any{"type": "string"},
					"keywords":          map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
					"seq_pattern":       map[string]any{"type": "string"},
					"date_pattern":      map[string]any{"type": "string"},
					"amount_pattern":    map[string]any{"type": "string"},
					"tributo_pattern":   map[string]any{"type": "string"},
					"anno_pattern":      map[string]any{"type": "string"},
					"debito_pattern":    map[string]any{"type": "string"},
					"interessi_pattern": map[string]any{"type": "string"},
				},
			},
		},
	},
}

var compiledSchema *jsonschema.Schema

func init() {
	b, err := json.Marshal(documentSchema)
	if err != nil {
		panic(fmt.Sprintf("marshal profile schema: %v", err))
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("profiles.json", bytes.NewReader(b)); err != nil {
		panic(fmt.Sprintf("add profile schema: %v", err))
	}
	compiledSchema, err = compiler.Compile("profiles.json")
	if err != nil {
		panic(fmt.Sprintf("compile profile schema: %v", err))
	}
}

// validateDocument checks JSON bytes against the import schema.
func validateDocument(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal document: %w", err)
	}
	if err := compiledSchema.Validate(v); err != nil {
		return fmt.Errorf("document does not match schema: %w", err)
	}
	return nil
}

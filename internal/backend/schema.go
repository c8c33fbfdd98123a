package backend

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Schema is a JSON Schema that a backend reply must satisfy before it is
// decoded.
type Schema struct {
	// Name identifies the schema in the compile cache. Kebab-case.
	Name string

	// Definition is the JSON Schema document.
	Definition map[string]any
}

// schemaCache caches compiled schemas by name.
var schemaCache sync.Map // map[string]*jsonschema.Schema

// Validate checks raw against s. A nil schema accepts anything.
func (s *Schema) Validate(op string, raw json.RawMessage) error {
	if s == nil {
		return nil
	}

	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return &ResponseError{Op: op, Content: raw, Err: fmt.Errorf("invalid JSON: %w", err)}
	}

	compiled, err := s.compile()
	if err != nil {
		return &ResponseError{Op: op, Content: raw, Err: fmt.Errorf("compile schema %q: %w", s.Name, err)}
	}

	if err := compiled.Validate(parsed); err != nil {
		return &ResponseError{Op: op, Content: raw, Err: fmt.Errorf("schema validation failed: %w", err)}
	}
	return nil
}

func (s *Schema) compile() (*jsonschema.Schema, error) {
	if cached, ok := schemaCache.Load(s.Name); ok {
		return cached.(*jsonschema.Schema), nil
	}

	defBytes, err := json.Marshal(s.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema definition: %w", err)
	}
	var defParsed any
	if err := json.Unmarshal(defBytes, &defParsed); err != nil {
		return nil, fmt.Errorf("parse schema definition: %w", err)
	}

	c := jsonschema.NewCompiler()
	url := fmt.Sprintf("schema://backend/%s.json", s.Name)
	if err := c.AddResource(url, defParsed); err != nil {
		return nil, fmt.Errorf("add resource: %w", err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile: %w", err)
	}

	schemaCache.Store(s.Name, compiled)
	return compiled, nil
}

var nullableString = map[string]any{"type": []any{"string", "null"}}
var nullableNumber = map[string]any{"type": []any{"number", "null"}}

var dialogueListSchema = &Schema{
	Name: "dialogue-list",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":           map[string]any{"type": "string"},
				"title":        map[string]any{"type": "string"},
				"description":  nullableString,
				"duration":     nullableString,
				"difficulty":   nullableString,
				"participants": nullableString,
				"language":     nullableString,
				"domain": map[string]any{
					"type": []any{"object", "null"},
					"properties": map[string]any{
						"id":    map[string]any{"type": "string"},
						"title": nullableString,
						"color": nullableString,
					},
				},
			},
			"required": []any{"id", "title"},
		},
	},
}

var segmentListSchema = &Schema{
	Name: "dialogue-segment-list",
	Definition: map[string]any{
		"type": "array",
		"items": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id":            map[string]any{"type": "string"},
				"dialogue_id":   map[string]any{"type": "string"},
				"segment_order": map[string]any{"type": "integer"},
				"text_content":  nullableString,
				"translation":   nullableString,
				"audio_url":     nullableString,
				"speaker":       nullableString,
				"start_time":    nullableNumber,
				"end_time":      nullableNumber,
			},
			"required": []any{"id", "segment_order"},
		},
	},
}

var signedURLSchema = &Schema{
	Name: "storage-signed-url",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"signedURL": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"signedURL"},
	},
}

package taskcfg

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// schemeSchema is the JSON Schema every scheme definition must satisfy.
const schemeSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["name", "type"],
  "properties": {
    "name": {"type": "string", "minLength": 1},
    "type": {
      "type": "string",
      "enum": ["radio", "multiselect", "likert", "text", "span", "pairwise", "segment"]
    },
    "description": {"type": "string"},
    "labels": {"type": "array", "items": {"type": "string", "minLength": 1}},
    "required": {"type": "boolean"},
    "min_value": {"type": "integer"},
    "max_value": {"type": "integer"}
  },
  "allOf": [
    {
      "if": {"properties": {"type": {"enum": ["radio", "multiselect", "span", "pairwise"]}}},
      "then": {"required": ["labels"], "properties": {"labels": {"minItems": 1}}}
    },
    {
      "if": {"properties": {"type": {"const": "likert"}}},
      "then": {"required": ["min_value", "max_value"]}
    }
  ]
}`

var (
	compileOnce    sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func compiled() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("scheme.json", strings.NewReader(schemeSchema)); err != nil {
			compileErr = err
			return
		}
		compiledSchema, compileErr = compiler.Compile("scheme.json")
	})
	return compiledSchema, compileErr
}

// ValidateScheme checks a scheme definition against the embedded schema.
func ValidateScheme(scheme SchemeConfig) error {
	schema, err := compiled()
	if err != nil {
		return fmt.Errorf("scheme schema unavailable: %w", err)
	}

	payload, err := json.Marshal(scheme)
	if err != nil {
		return err
	}

	var doc any
	if err := json.Unmarshal(payload, &doc); err != nil {
		return err
	}

	if err := schema.Validate(doc); err != nil {
		return err
	}

	if scheme.Type == SchemeLikert && scheme.MaxValue <= scheme.MinValue {
		return fmt.Errorf("likert max_value must exceed min_value")
	}

	return nil
}

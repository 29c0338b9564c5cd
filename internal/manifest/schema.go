// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Flogin Contributors

package manifest

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	jschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// schemaCache holds the compiled schema to avoid recompilation.
var schemaCache *jschema.Schema

// GenerateSchema generates a JSON Schema from the Manifest struct.
func GenerateSchema() ([]byte, error) {
	r := jsonschema.Reflector{
		DoNotReference: true,
	}
	schema := r.Reflect(&Manifest{})

	schema.ID = jsonschema.ID(SchemaID())
	schema.Title = "Flow Launcher Plugin Manifest"
	schema.Description = "Schema for plugin.json manifest files"

	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return data, nil
}

// ValidateSchema validates a rendered plugin.json document against the
// manifest JSON Schema.
func ValidateSchema(data []byte) error {
	if len(data) == 0 {
		return fmt.Errorf("manifest data is empty")
	}

	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}

	sch, err := getCompiledSchema()
	if err != nil {
		return fmt.Errorf("failed to compile schema: %w", err)
	}

	if err := sch.Validate(doc); err != nil {
		return fmt.Errorf("schema validation failed: %w", err)
	}

	return nil
}

// getCompiledSchema returns the cached compiled schema or compiles it.
func getCompiledSchema() (*jschema.Schema, error) {
	if schemaCache != nil {
		return schemaCache, nil
	}

	schemaBytes, err := GenerateSchema()
	if err != nil {
		return nil, err
	}

	var schemaData any
	if err := json.Unmarshal(schemaBytes, &schemaData); err != nil {
		return nil, fmt.Errorf("failed to parse schema JSON: %w", err)
	}

	c := jschema.NewCompiler()
	if err := c.AddResource("schema.json", schemaData); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}

	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	schemaCache = sch
	return sch, nil
}

// ResetSchemaCache clears the cached schema. Used for testing.
func ResetSchemaCache() {
	schemaCache = nil
}

// SchemaID returns the schema $id for use in editor integrations.
func SchemaID() string {
	return "https://flogin.dev/schemas/plugin.schema.json"
}

// FormatSchemaError formats a schema validation error for display.
func FormatSchemaError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if strings.Contains(msg, "schema validation failed:") {
		msg = strings.TrimPrefix(msg, "schema validation failed: ")
	}
	return msg
}

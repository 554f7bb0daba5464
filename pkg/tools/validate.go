package tools

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator compiles and caches each tool's InputSchema so arguments
// can be rejected as InvalidArguments (spec §4.3's dispatch state
// machine) before a ToolCall ever transitions Pending → Running.
type SchemaValidator struct {
	mu     sync.Mutex
	cached map[string]*jsonschema.Schema
}

// NewSchemaValidator creates an empty, lazily-populated validator.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{cached: make(map[string]*jsonschema.Schema)}
}

// Validate checks input against tool's schema, compiling and caching it on
// first use. A tool with a nil or empty schema always validates.
func (v *SchemaValidator) Validate(tool Tool, input map[string]any) error {
	schema := tool.InputSchema()
	if len(schema) == 0 {
		return nil
	}

	compiled, err := v.compiled(tool.Name(), schema)
	if err != nil {
		return fmt.Errorf("tool %s: compile schema: %w", tool.Name(), err)
	}

	// jsonschema validates over generic JSON values (map[string]interface{}
	// with JSON-number semantics), so round-trip input through encoding/json
	// rather than handing it the map directly.
	raw, err := json.Marshal(input)
	if err != nil {
		return fmt.Errorf("tool %s: marshal input: %w", tool.Name(), err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("tool %s: unmarshal input: %w", tool.Name(), err)
	}

	if err := compiled.Validate(doc); err != nil {
		return fmt.Errorf("tool %s: invalid arguments: %w", tool.Name(), err)
	}
	return nil
}

func (v *SchemaValidator) compiled(name string, schema map[string]any) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if c, ok := v.cached[name]; ok {
		return c, nil
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	compiled, err := jsonschema.CompileString(name+".schema.json", string(raw))
	if err != nil {
		return nil, err
	}
	v.cached[name] = compiled
	return compiled, nil
}

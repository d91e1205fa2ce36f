package ai

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// SchemaValidator checks generated documents against their request schema.
// Compiled schemas are cached by name.
type SchemaValidator struct {
	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// NewSchemaValidator constructs an empty validator cache.
func NewSchemaValidator() *SchemaValidator {
	return &SchemaValidator{compiled: make(map[string]*jsonschema.Schema)}
}

// Validate reports whether content is a JSON document accepted by schema.
func (v *SchemaValidator) Validate(schema Schema, content []byte) error {
	compiled, err := v.compile(schema)
	if err != nil {
		return err
	}

	var document interface{}
	decoder := json.NewDecoder(bytes.NewReader(content))
	decoder.UseNumber()
	if err := decoder.Decode(&document); err != nil {
		return fmt.Errorf("decode generated object: %w", err)
	}

	if err := compiled.Validate(document); err != nil {
		return fmt.Errorf("generated object violates schema %q: %w", schema.Name, err)
	}
	return nil
}

func (v *SchemaValidator) compile(schema Schema) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if compiled, ok := v.compiled[schema.Name]; ok {
		return compiled, nil
	}

	raw, err := json.Marshal(&schema.Definition)
	if err != nil {
		return nil, fmt.Errorf("marshal schema %q: %w", schema.Name, err)
	}

	url := "mem://schemas/" + schema.Name + ".json"
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("register schema %q: %w", schema.Name, err)
	}

	compiled, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema %q: %w", schema.Name, err)
	}

	v.compiled[schema.Name] = compiled
	return compiled, nil
}

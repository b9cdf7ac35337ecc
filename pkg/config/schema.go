package config

import (
	"bytes"
	_ "embed"
	"fmt"

	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

//go:embed schema.json
var schemaJSON []byte

// compileSchema compiles the embedded config schema.
func compileSchema() (*jsonschema.Schema, error) {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(schemaJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("schema.json", doc); err != nil {
		return nil, fmt.Errorf("failed to register schema: %w", err)
	}

	sch, err := c.Compile("schema.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return sch, nil
}

// ValidateFile checks a config file against the embedded JSON Schema.
// It reports unknown keys, wrong value types, and out-of-range values
// without unmarshaling into Config, so typos surface instead of being
// silently ignored.
func ValidateFile(path string) error {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}

	sch, err := compileSchema()
	if err != nil {
		return err
	}

	return sch.Validate(k.Raw())
}

package configuration

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema.json
var schemaSource string

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if schemaErr = compiler.AddResource("config.schema.json", strings.NewReader(schemaSource)); schemaErr != nil {
			return
		}
		compiledSchema, schemaErr = compiler.Compile("config.schema.json")
	})
	return compiledSchema, schemaErr
}

// Validate checks a YAML document against the configuration schema.
func Validate(content []byte) error {
	var document interface{}
	if err := yaml.Unmarshal(content, &document); err != nil {
		return fmt.Errorf("error parsing config: %w", err)
	}
	// The validator expects the value shapes produced by a JSON decoder.
	data, err := json.Marshal(document)
	if err != nil {
		return fmt.Errorf("error converting config: %w", err)
	}
	// jsonschema v5 expects values decoded with UseNumber.
	var value interface{}
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.UseNumber()
	if err := decoder.Decode(&value); err != nil {
		return fmt.Errorf("error converting config: %w", err)
	}

	s, err := schema()
	if err != nil {
		return fmt.Errorf("invalid embedded schema: %w", err)
	}
	if err := s.Validate(value); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

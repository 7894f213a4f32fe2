package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/invopop/jsonschema"
	validator "github.com/santhosh-tekuri/jsonschema/v5"
)

const schemaURL = "mem://go-empathy/config.schema.json"

var (
	compiled    *validator.Schema
	compileErr  error
	compileOnce sync.Once
)

// Schema returns the JSON Schema for configuration files, reflected from
// Config. Unknown keys are rejected.
func Schema() ([]byte, error) {
	r := &jsonschema.Reflector{
		Anonymous:                  true,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	s := r.Reflect(&Config{})
	s.Title = "go-empathy configuration"
	return json.MarshalIndent(s, "", "  ")
}

func compiledSchema() (*validator.Schema, error) {
	compileOnce.Do(func() {
		data, err := Schema()
		if err != nil {
			compileErr = fmt.Errorf("reflect schema: %w", err)
			return
		}
		c := validator.NewCompiler()
		if err := c.AddResource(schemaURL, strings.NewReader(string(data))); err != nil {
			compileErr = fmt.Errorf("add schema resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(schemaURL)
		if compileErr != nil {
			compileErr = fmt.Errorf("compile schema: %w", compileErr)
		}
	})
	return compiled, compileErr
}

// validateDocument checks a JSON document against the config schema.
func validateDocument(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return err
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

package config

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
	"gopkg.in/yaml.v3"
)

//go:embed schema/speechconfig.json
var speechConfigSchema []byte

// compiledSchema parses the embedded schema on first use.
var compiledSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewBytesLoader(speechConfigSchema))
})

// SchemaValidationError is a single schema violation. Field is the dotted
// path into the manifest, "(root)" for top-level problems.
type SchemaValidationError struct {
	Field       string
	Description string
	Value       any
}

func (e SchemaValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("%s: %s (value: %v)", e.Field, e.Description, e.Value)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Description)
}

type SchemaValidationResult struct {
	Valid  bool
	Errors []SchemaValidationError
}

// ValidateWithSchema validates YAML data against the embedded SpeechConfig
// schema.
func ValidateWithSchema(yamlData []byte) (*SchemaValidationResult, error) {
	schema, err := compiledSchema()
	if err != nil {
		return nil, fmt.Errorf("embedded schema is invalid: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(yamlData, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	// yaml.v3 decodes mappings as map[string]any, which the Go loader accepts
	// once it has round-tripped through JSON.
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to convert to JSON: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	res := &SchemaValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		res.Errors = append(res.Errors, SchemaValidationError{
			Field:       e.Field(),
			Description: e.Description(),
			Value:       e.Value(),
		})
	}
	return res, nil
}

// ValidateSpeechConfig returns an error listing every schema violation in
// yamlData.
func ValidateSpeechConfig(yamlData []byte) error {
	result, err := ValidateWithSchema(yamlData)
	if err != nil {
		return err
	}
	if result.Valid {
		return nil
	}

	var b strings.Builder
	b.WriteString("speech configuration does not match schema:")
	for _, e := range result.Errors {
		b.WriteString("\n  - ")
		b.WriteString(e.Error())
	}
	return errors.New(b.String())
}

package codec

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed schema/document.schema.json
var documentSchema []byte

const schemaURL = "document.schema.json"

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(schemaURL, bytes.NewReader(documentSchema)); err != nil {
		return nil, fmt.Errorf("add document schema: %w", err)
	}
	schema, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile document schema: %w", err)
	}
	return schema, nil
})

// ValidateJSON checks raw JSON against the document schema.
func ValidateJSON(data []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	var payload any
	if err := json.Unmarshal(data, &payload); err != nil {
		return fmt.Errorf("parse document: %w", err)
	}
	if err := schema.Validate(payload); err != nil {
		return fmt.Errorf("validate document: %w", err)
	}
	return nil
}

// EncodeJSON writes the document as indented JSON.
func EncodeJSON(d *Document) ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode document as json: %w", err)
	}
	return data, nil
}

// DecodeJSON validates, decodes and verifies a JSON document.
func DecodeJSON(data []byte) (*Document, error) {
	if err := ValidateJSON(data); err != nil {
		return nil, err
	}
	var d Document
	if err := json.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode json document: %w", err)
	}
	if err := d.verify(); err != nil {
		return nil, err
	}
	return &d, nil
}

// EncodeYAML writes the document as YAML.
func EncodeYAML(d *Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(d); err != nil {
		return nil, fmt.Errorf("encode document as yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode document as yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeYAML decodes and verifies a YAML document.
func DecodeYAML(data []byte) (*Document, error) {
	var d Document
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("decode yaml document: %w", err)
	}
	if err := d.verify(); err != nil {
		return nil, err
	}
	return &d, nil
}

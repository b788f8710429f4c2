package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed match.schema.json
var matchSchemaJSON []byte

const matchSchemaURL = "presto://match.schema.json"

var compileMatchSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(matchSchemaURL, bytes.NewReader(matchSchemaJSON)); err != nil {
		return nil, fmt.Errorf("add match schema: %w", err)
	}
	schema, err := compiler.Compile(matchSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile match schema: %w", err)
	}
	return schema, nil
})

// validateMatchDocument checks a decoded match file against the embedded
// schema and returns its canonical JSON encoding.
func validateMatchDocument(doc any) ([]byte, error) {
	if doc == nil {
		doc = map[string]any{}
	}
	encoded, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode match document: %w", err)
	}

	var instance any
	decoder := json.NewDecoder(bytes.NewReader(encoded))
	decoder.UseNumber()
	if err := decoder.Decode(&instance); err != nil {
		return nil, fmt.Errorf("decode match document: %w", err)
	}

	schema, err := compileMatchSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(instance); err != nil {
		return nil, err
	}
	return encoded, nil
}

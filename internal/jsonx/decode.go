package jsonx

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	_ "embed"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/latticedocs/lattice/internal/types"
)

//go:embed schema.json
var conceptMapSchemaRaw []byte

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func conceptMapSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("conceptmap.json", bytes.NewReader(conceptMapSchemaRaw)); err != nil {
			schemaErr = fmt.Errorf("failed to load concept map schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("conceptmap.json")
	})
	return compiledSchema, schemaErr
}

// Decode is the single validation boundary for recovered documents.
// The candidate must unmarshal, must satisfy the concept map schema,
// and has its pearl kinds normalized and its dangling links dropped.
func Decode(candidate string) (*types.ConceptMap, error) {
	var doc any
	if err := json.Unmarshal([]byte(candidate), &doc); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}

	schema, err := conceptMapSchema()
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(doc); err != nil {
		return nil, fmt.Errorf("candidate does not match concept map schema: %w", err)
	}

	var m types.ConceptMap
	if err := json.Unmarshal([]byte(candidate), &m); err != nil {
		return nil, fmt.Errorf("decode concept map: %w", err)
	}

	for i := range m.Pearls {
		m.Pearls[i].Kind = types.ParsePearlKind(string(m.Pearls[i].Kind))
	}
	m.PruneDanglingLinks()

	return &m, nil
}

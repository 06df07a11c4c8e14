// Package schema builds function-parameter declarations for local tools
// from Go types.
package schema

import (
	"reflect"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/cockroachdb/errors"
	"github.com/invopop/jsonschema"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

var (
	cache   = make(map[uint64]*Schema)
	cacheMu sync.RWMutex
)

// Schema is the JSON schema of a tool input type together with the
// function-parameters declaration derived from it.
type Schema struct {
	*jsonschema.Schema
	// Parameters is the declaration attached to the tool definition.
	Parameters *FunctionParameters
}

// FunctionParameters is the parameters member of a function declaration.
// Properties keep the declaration order of the source struct.
type FunctionParameters struct {
	Type       string                                             `json:"type"`
	Properties *orderedmap.OrderedMap[string, *jsonschema.Schema] `json:"properties"`
	Required   []string                                           `json:"required,omitempty"`
}

// New creates a schema for the given type. Schemas are cached per type.
func New(t reflect.Type) (*Schema, error) {
	key := xxhash.Sum64String(t.PkgPath() + "/" + t.String())

	cacheMu.RLock()
	s, ok := cache[key]
	cacheMu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := buildSchema(t)
	if err != nil {
		return nil, err
	}

	cacheMu.Lock()
	cache[key] = s
	cacheMu.Unlock()
	return s, nil
}

func buildSchema(t reflect.Type) (*Schema, error) {
	r := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
	}
	sch := r.ReflectFromType(t)
	if sch.Type != "object" {
		return nil, errors.Errorf("tool input must be a struct, got %s", t.String())
	}

	params := &FunctionParameters{
		Type:       "object",
		Properties: orderedmap.New[string, *jsonschema.Schema](),
		Required:   sch.Required,
	}
	for pair := sch.Properties.Oldest(); pair != nil; pair = pair.Next() {
		params.Properties.Set(pair.Key, pair.Value)
	}

	return &Schema{
		Schema:     sch,
		Parameters: params,
	}, nil
}

// Package schema reflects JSON Schemas from Go types and validates decoded
// documents against them.
package schema

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// BaseURL prefixes the $id of every generated schema.
const BaseURL = "https://github.com/ormasoftchile/cygrade/schemas/"

// Doc names a schema document.
type Doc struct {
	File        string // e.g. "feedback-v1.json"; also the $id suffix
	Title       string
	Description string
}

// Generate produces a JSON Schema Draft 2020-12 document for v's type.
func Generate(v any, doc Doc) ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.DoNotReference = false

	s := r.Reflect(v)
	s.ID = jsonschema.ID(BaseURL + doc.File)
	s.Title = doc.Title
	s.Description = doc.Description

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s schema: %w", doc.File, err)
	}
	return data, nil
}

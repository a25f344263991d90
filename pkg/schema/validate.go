package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"
)

// ValidationError represents a single validation error with location context.
type ValidationError struct {
	Phase   string `json:"phase"` // structural, semantic, domain
	Path    string `json:"path"`  // slash-joined instance location
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Phase, e.Path, e.Message)
}

// Join folds validation errors into one error, or nil when there are none.
func Join(errs []*ValidationError) error {
	if len(errs) == 0 {
		return nil
	}
	list := make([]error, len(errs))
	for i, e := range errs {
		list[i] = e
	}
	return errors.Join(list...)
}

// Compile compiles a generated schema document.
func Compile(name string, schemaJSON []byte) (*sjsonschema.Schema, error) {
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	c := sjsonschema.NewCompiler()
	if err := c.AddResource(name, schemaDoc); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	sch, err := c.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return sch, nil
}

// Validate checks v against the schema generated for its own type. v is
// round-tripped through JSON so struct tags decide the instance shape.
func Validate(v any, doc Doc) []*ValidationError {
	schemaJSON, err := Generate(v, doc)
	if err != nil {
		return semantic("", err.Error())
	}
	sch, err := Compile(doc.File, schemaJSON)
	if err != nil {
		return semantic("", err.Error())
	}

	data, err := json.Marshal(v)
	if err != nil {
		return semantic("", fmt.Sprintf("marshal for schema validation: %v", err))
	}
	var inst any
	if err := json.Unmarshal(data, &inst); err != nil {
		return semantic("", fmt.Sprintf("unmarshal document: %v", err))
	}

	return ValidateInstance(sch, inst)
}

// ValidateInstance validates an already decoded JSON value.
func ValidateInstance(sch *sjsonschema.Schema, inst any) []*ValidationError {
	err := sch.Validate(inst)
	if err == nil {
		return nil
	}
	var ve *sjsonschema.ValidationError
	if !errors.As(err, &ve) {
		return semantic("", err.Error())
	}
	var errs []*ValidationError
	for _, cause := range flattenValidationErrors(ve) {
		errs = append(errs, &ValidationError{
			Phase:   "semantic",
			Path:    strings.Join(cause.InstanceLocation, "/"),
			Message: fmt.Sprintf("%v", cause.ErrorKind),
		})
	}
	return errs
}

func semantic(path, msg string) []*ValidationError {
	return []*ValidationError{{Phase: "semantic", Path: path, Message: msg}}
}

// flattenValidationErrors recursively collects all leaf validation errors.
func flattenValidationErrors(ve *sjsonschema.ValidationError) []*sjsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*sjsonschema.ValidationError{ve}
	}
	var flat []*sjsonschema.ValidationError
	for _, cause := range ve.Causes {
		flat = append(flat, flattenValidationErrors(cause)...)
	}
	return flat
}

// Package rubric loads the catalog mapping rubric identifiers to a spec
// filter pattern and an optional pass requirement.
package rubric

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/report"
	"github.com/ormasoftchile/cygrade/pkg/schema"
)

// SchemaDoc names the catalog schema.
var SchemaDoc = schema.Doc{
	File:        "rubrics-v1.json",
	Title:       "cygrade rubric catalog v1",
	Description: "Rubric identifiers with their spec filter and pass requirement",
}

// Catalog is the rubric document.
type Catalog struct {
	Rubrics []*Rubric `yaml:"rubrics" json:"rubrics" jsonschema:"required"`
}

// Rubric selects which part of a results report is graded.
type Rubric struct {
	ID    string `yaml:"id" json:"id" jsonschema:"required,minLength=1"`
	Title string `yaml:"title,omitempty" json:"title,omitempty"`
	// Pattern filters runs by spec name, case-insensitively.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	// Require is a boolean expression over total, passed, failed, pending
	// and score, e.g. "total >= 8".
	Require        string `yaml:"require,omitempty" json:"require,omitempty"`
	RequireMessage string `yaml:"requireMessage,omitempty" json:"requireMessage,omitempty"`

	program *vm.Program
}

// LoadFile parses a catalog file with strict unknown-field rejection.
func LoadFile(path string) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rubric catalog: %w", err)
	}
	defer f.Close()
	return Load(f)
}

// Load parses a catalog from r with strict unknown-field rejection.
func Load(r io.Reader) (*Catalog, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var c Catalog
	if err := dec.Decode(&c); err != nil {
		if !errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("decode rubric catalog: %w", err)
		}
	}
	if c.Rubrics == nil {
		c.Rubrics = []*Rubric{}
	}
	return &c, nil
}

// Open loads and validates the catalog at path. A missing file yields an
// empty catalog unless the path was explicitly configured.
func Open(path string, explicit bool) (*Catalog, error) {
	c, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) && !explicit {
			return &Catalog{Rubrics: []*Rubric{}}, nil
		}
		return nil, err
	}
	if err := schema.Join(c.Validate()); err != nil {
		return nil, fmt.Errorf("invalid rubric catalog %s: %w", path, err)
	}
	return c, nil
}

// Validate runs schema validation, then the domain rules: non-null
// entries, unique ids and a compilable boolean Require. Validate compiles
// the Require programs used by Check.
func (c *Catalog) Validate() []*schema.ValidationError {
	for i, r := range c.Rubrics {
		if r == nil {
			return []*schema.ValidationError{{Phase: "structural", Path: fmt.Sprintf("rubrics/%d", i), Message: "empty rubric entry"}}
		}
	}
	if errs := schema.Validate(c, SchemaDoc); len(errs) > 0 {
		return errs
	}

	var errs []*schema.ValidationError
	seen := make(map[string]bool)
	for i, r := range c.Rubrics {
		path := fmt.Sprintf("rubrics/%d", i)
		if seen[r.ID] {
			errs = append(errs, &schema.ValidationError{Phase: "domain", Path: path + "/id", Message: fmt.Sprintf("duplicate rubric id %q", r.ID)})
		}
		seen[r.ID] = true
		if err := r.compile(); err != nil {
			errs = append(errs, &schema.ValidationError{Phase: "domain", Path: path + "/require", Message: err.Error()})
		}
	}
	return errs
}

// JSONSchema returns the reflected catalog schema.
func JSONSchema() ([]byte, error) {
	return schema.Generate(&Catalog{}, SchemaDoc)
}

// Lookup returns the rubric with id, or nil.
func (c *Catalog) Lookup(id string) *Rubric {
	if c == nil {
		return nil
	}
	for _, r := range c.Rubrics {
		if r != nil && r.ID == id {
			return r
		}
	}
	return nil
}

// Filter returns the run filter for r; nil grades every run.
func (r *Rubric) Filter() *report.Filter {
	if r == nil {
		return nil
	}
	return report.NewFilter(r.Pattern)
}

func requireEnv(s report.Summary, score float64) map[string]any {
	return map[string]any{
		"total":   s.Total,
		"passed":  s.Passed,
		"failed":  s.Failed,
		"pending": s.Pending,
		"score":   score,
	}
}

func (r *Rubric) compile() error {
	if r.program != nil || strings.TrimSpace(r.Require) == "" {
		return nil
	}
	program, err := expr.Compile(r.Require, expr.Env(requireEnv(report.Summary{}, 0)), expr.AsBool())
	if err != nil {
		return fmt.Errorf("compile require %q: %w", r.Require, err)
	}
	r.program = program
	return nil
}

// Check evaluates Require against a scored summary. An unmet requirement is
// a rubric-unmet failure carrying RequireMessage.
func (r *Rubric) Check(s report.Summary, score float64) error {
	if r == nil || strings.TrimSpace(r.Require) == "" {
		return nil
	}
	if err := r.compile(); err != nil {
		return err
	}
	output, err := expr.Run(r.program, requireEnv(s, score))
	if err != nil {
		return fmt.Errorf("eval require %q: %w", r.Require, err)
	}
	ok, isBool := output.(bool)
	if !isBool {
		return fmt.Errorf("require %q did not return bool (got %T: %v)", r.Require, output, output)
	}
	if !ok {
		return failure.Newf(failure.RubricUnmet, r.RequireMessage,
			"rubric %s: require %q not met (total=%d passed=%d failed=%d pending=%d score=%.3f)",
			r.ID, r.Require, s.Total, s.Passed, s.Failed, s.Pending, score)
	}
	return nil
}

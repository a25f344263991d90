package schema

import (
	"sort"
	"strings"
	"testing"
)

type sample struct {
	Name  string `json:"name" jsonschema:"required,minLength=1"`
	Count int    `json:"count" jsonschema:"minimum=0"`
}

var sampleDoc = Doc{File: "sample-v1.json", Title: "sample v1", Description: "test document"}

func TestGenerateSetsIdentity(t *testing.T) {
	data, err := Generate(&sample{}, sampleDoc)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	s := string(data)
	for _, want := range []string{
		`"$id": "` + BaseURL + `sample-v1.json"`,
		`"title": "sample v1"`,
		`"minLength": 1`,
	} {
		if !strings.Contains(s, want) {
			t.Errorf("schema missing %s\n%s", want, s)
		}
	}
}

func TestValidate(t *testing.T) {
	if errs := Validate(&sample{Name: "ok", Count: 2}, sampleDoc); len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}

	errs := Validate(&sample{Name: "", Count: -1}, sampleDoc)
	if len(errs) != 2 {
		t.Fatalf("expected 2 errors, got %d: %v", len(errs), errs)
	}
	var paths []string
	for _, e := range errs {
		if e.Phase != "semantic" {
			t.Errorf("phase = %q, want semantic", e.Phase)
		}
		paths = append(paths, e.Path)
	}
	sort.Strings(paths)
	if strings.Join(paths, ",") != "count,name" {
		t.Errorf("paths = %v", paths)
	}
}

func TestJoin(t *testing.T) {
	if Join(nil) != nil {
		t.Fatal("Join(nil) should be nil")
	}
	err := Join([]*ValidationError{
		{Phase: "domain", Path: "rubrics/0/id", Message: "duplicate id"},
		{Phase: "structural", Message: "bad"},
	})
	if err == nil {
		t.Fatal("expected error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "[domain] rubrics/0/id: duplicate id") || !strings.Contains(msg, "[structural] bad") {
		t.Errorf("unexpected message %q", msg)
	}
}

func TestCompileRejectsBadJSON(t *testing.T) {
	if _, err := Compile("broken.json", []byte("{")); err == nil {
		t.Fatal("expected error")
	}
}

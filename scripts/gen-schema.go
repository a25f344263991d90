//go:build ignore

package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ormasoftchile/cygrade/pkg/feedback"
	"github.com/ormasoftchile/cygrade/pkg/rubric"
)

func main() {
	if err := os.MkdirAll("schemas", 0o755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir: %v\n", err)
		os.Exit(1)
	}

	for _, s := range []struct {
		file string
		gen  func() ([]byte, error)
	}{
		{feedback.SchemaDoc.File, feedback.JSONSchema},
		{rubric.SchemaDoc.File, rubric.JSONSchema},
	} {
		data, err := s.gen()
		if err != nil {
			fmt.Fprintf(os.Stderr, "error generating %s: %v\n", s.file, err)
			os.Exit(1)
		}
		path := filepath.Join("schemas", s.file)
		if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
			fmt.Fprintf(os.Stderr, "write: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("wrote", path)
	}
}

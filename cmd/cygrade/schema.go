package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ormasoftchile/cygrade/pkg/feedback"
	"github.com/ormasoftchile/cygrade/pkg/rubric"
)

var schemaOutput string

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Work with cygrade JSON Schemas",
}

var schemaExportCmd = &cobra.Command{
	Use:       "export [feedback|rubric]",
	Short:     "Export the feedback record or rubric catalog JSON Schema",
	Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
	ValidArgs: []string{"feedback", "rubric"},
	RunE:      runSchemaExport,
}

func runSchemaExport(cmd *cobra.Command, args []string) error {
	kind := "feedback"
	if len(args) == 1 {
		kind = args[0]
	}

	data, err := exportSchema(kind)
	if err != nil {
		return err
	}

	if schemaOutput != "" {
		if err := os.WriteFile(schemaOutput, append(data, '\n'), 0o644); err != nil {
			return fmt.Errorf("write %s: %w", schemaOutput, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s\n", schemaOutput)
		return nil
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func exportSchema(kind string) ([]byte, error) {
	switch kind {
	case "feedback":
		return feedback.JSONSchema()
	case "rubric":
		return rubric.JSONSchema()
	default:
		return nil, fmt.Errorf("unknown schema %q, use 'feedback' or 'rubric'", kind)
	}
}

func init() {
	schemaExportCmd.Flags().StringVarP(&schemaOutput, "output", "o", "", "Write the schema to this file instead of stdout")
	schemaCmd.AddCommand(schemaExportCmd)
}

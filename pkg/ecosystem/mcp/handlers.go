package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/feedback"
	"github.com/ormasoftchile/cygrade/pkg/grade"
	"github.com/ormasoftchile/cygrade/pkg/grader"
	"github.com/ormasoftchile/cygrade/pkg/preview"
	"github.com/ormasoftchile/cygrade/pkg/report"
	"github.com/ormasoftchile/cygrade/pkg/rubric"
)

// envConfig loads settings from the server's environment. Invalid values
// keep their defaults, as in the CLI.
func envConfig(secret string) *config.Config {
	cfg, _ := config.FromEnv()
	if secret != "" {
		cfg.Secret = secret
	}
	return cfg
}

type gradeResponse struct {
	Score    float64         `json:"fractionalScore"`
	Feedback string          `json:"feedback"`
	Kind     string          `json:"kind,omitempty"`
	Artifact string          `json:"artifact,omitempty"`
	Summary  *report.Summary `json:"summary,omitempty"`
}

// HandleGradeFile implements the cygrade/grade-file MCP tool.
func HandleGradeFile(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	partID, _ := args["partId"].(string)
	secret, _ := args["secret"].(string)
	cfg := envConfig(secret)

	var catalog *rubric.Catalog
	if rubrics, _ := args["rubrics"].(string); rubrics != "" {
		c, err := rubric.Open(rubrics, true)
		if err != nil {
			return errorResult(err.Error()), nil
		}
		catalog = c
	}

	res := grader.New(cfg, catalog, nil, nil).GradeFile(ctx, path, partID)
	rec := feedback.NewRecord(res.Score, res.Feedback)
	data, _ := json.MarshalIndent(gradeResponse{
		Score:    rec.FractionalScore,
		Feedback: rec.Feedback,
		Kind:     string(res.Kind),
		Artifact: res.Artifact,
		Summary:  res.Summary,
	}, "", "  ")

	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.NewTextContent(string(data))},
		IsError: !res.OK(),
	}, nil
}

// HandleInspect implements the cygrade/inspect MCP tool.
func HandleInspect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	path, _ := args["path"].(string)
	if path == "" {
		return errorResult("path argument is required"), nil
	}
	pattern, _ := args["pattern"].(string)
	secret, _ := args["secret"].(string)
	format, _ := args["format"].(string)

	s, err := grader.New(envConfig(secret), nil, nil, nil).Inspect(ctx, path, "", pattern)
	if err != nil {
		return errorResult(err.Error()), nil
	}

	switch format {
	case "", "json":
		data, _ := json.MarshalIndent(s, "", "  ")
		return textResult(string(data)), nil
	case "markdown":
		score, scoreErr := grade.Score(s)
		return textResult(preview.Markdown(preview.Report{
			Source:  filepath.Base(path),
			Summary: s,
			Score:   score,
			Err:     scoreErr,
		})), nil
	default:
		return errorResult(fmt.Sprintf("unknown format %q, use 'json' or 'markdown'", format)), nil
	}
}

// HandleSchema implements the cygrade/schema MCP tool.
func HandleSchema(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	schemaType, _ := args["type"].(string)

	var data []byte
	var err error

	switch schemaType {
	case "feedback":
		data, err = feedback.JSONSchema()
	case "rubric":
		data, err = rubric.JSONSchema()
	default:
		return errorResult(fmt.Sprintf("unknown schema type %q, use 'feedback' or 'rubric'", schemaType)), nil
	}

	if err != nil {
		return errorResult(err.Error()), nil
	}
	return textResult(string(data)), nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(msg),
		},
		IsError: true,
	}
}

// Package mcp exposes grading and inspection as MCP tools for AI agents.
package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewServer creates a new MCP server with cygrade tools registered.
func NewServer(version string) *server.MCPServer {
	s := server.NewMCPServer(
		"cygrade",
		version,
		server.WithToolCapabilities(true),
	)

	s.AddTool(
		mcp.NewTool("cygrade/grade-file",
			mcp.WithDescription("Grade a Cypress results file and return the score and learner feedback. Does not write the feedback file."),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the results file (plain or encrypted)")),
			mcp.WithString("partId", mcp.Description("Rubric identifier; also the fallback decryption secret")),
			mcp.WithString("secret", mcp.Description("Decryption secret (overrides CYPRESS_RESULTS_SECRET)")),
			mcp.WithString("rubrics", mcp.Description("Path to a rubric catalog YAML file")),
		),
		HandleGradeFile,
	)

	s.AddTool(
		mcp.NewTool("cygrade/inspect",
			mcp.WithDescription("Decode a Cypress results file and list its normalized test outcomes"),
			mcp.WithString("path", mcp.Required(), mcp.Description("Path to the results file")),
			mcp.WithString("pattern", mcp.Description("Only include runs whose spec name matches this pattern")),
			mcp.WithString("secret", mcp.Description("Decryption secret for encrypted files")),
			mcp.WithString("format", mcp.Description("Output format: json (default) or markdown")),
		),
		HandleInspect,
	)

	s.AddTool(
		mcp.NewTool("cygrade/schema",
			mcp.WithDescription("Export a cygrade JSON Schema (feedback or rubric)"),
			mcp.WithString("type", mcp.Required(), mcp.Description("Schema type: 'feedback' or 'rubric'")),
		),
		HandleSchema,
	)

	return s
}

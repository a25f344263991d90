// Package main provides the cygrade-mcp binary, an MCP server that lets AI
// agents grade and inspect Cypress results.
package main

import (
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"

	"github.com/ormasoftchile/cygrade/pkg/config"
	gmcp "github.com/ormasoftchile/cygrade/pkg/ecosystem/mcp"
)

var version = "dev"

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	s := gmcp.NewServer(version)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

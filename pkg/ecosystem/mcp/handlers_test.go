package mcp

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/crypt"
)

const sampleDoc = `{"runs":[
	{"spec":{"relative":"cypress/e2e/notes.cy.js"},"tests":[{"title":"n1","state":"passed"},{"title":"n2","state":"failed","displayError":"boom"}]},
	{"spec":{"relative":"cypress/e2e/other.cy.js"},"tests":[{"title":"o1","state":"passed"}]}]}`

func call(args map[string]any) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func textOf(t *testing.T, r *mcp.CallToolResult) string {
	t.Helper()
	require.NotEmpty(t, r.Content)
	tc, ok := mcp.AsTextContent(r.Content[0])
	require.True(t, ok, "expected text content")
	return tc.Text
}

func writeTemp(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func nativeEnv(t *testing.T) {
	t.Setenv(config.EnvDecryptBackend, config.BackendNative)
	t.Setenv(config.EnvIterations, "1000")
}

func TestHandleGradeFile_MissingPath(t *testing.T) {
	result, err := HandleGradeFile(context.Background(), call(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleGradeFile(t *testing.T) {
	p := writeTemp(t, "cypress-results.json", []byte(sampleDoc))

	result, err := HandleGradeFile(context.Background(), call(map[string]any{"path": p}))
	require.NoError(t, err)
	assert.False(t, result.IsError)

	var resp gradeResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &resp))
	assert.InDelta(t, 2.0/3, resp.Score, 1e-9)
	assert.Equal(t, 3, resp.Summary.Total)
	assert.Contains(t, resp.Feedback, "boom")
}

func TestHandleGradeFile_RubricAndEncrypted(t *testing.T) {
	nativeEnv(t)
	data, err := crypt.Encrypt([]byte(sampleDoc), "A1B2", config.DefaultCipher, 1000)
	require.NoError(t, err)
	p := writeTemp(t, "cypress-results.json.enc", data)
	rubrics := writeTemp(t, "rubrics.yaml", []byte("rubrics:\n  - id: A1B2\n    pattern: notes\n"))

	result, err := HandleGradeFile(context.Background(), call(map[string]any{"path": p, "partId": "A1B2", "rubrics": rubrics}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))

	var resp gradeResponse
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &resp))
	assert.Equal(t, 0.5, resp.Score)
	assert.Equal(t, 2, resp.Summary.Total)
}

func TestHandleGradeFile_Failure(t *testing.T) {
	p := writeTemp(t, "cypress-results.json", []byte(`{}`))

	result, err := HandleGradeFile(context.Background(), call(map[string]any{"path": p}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, textOf(t, result), `"kind": "input-unrecognized"`)
}

func TestHandleGradeFile_BadCatalog(t *testing.T) {
	p := writeTemp(t, "cypress-results.json", []byte(sampleDoc))

	result, err := HandleGradeFile(context.Background(), call(map[string]any{"path": p, "rubrics": filepath.Join(t.TempDir(), "missing.yaml")}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleInspect(t *testing.T) {
	nativeEnv(t)
	data, err := crypt.Encrypt([]byte(sampleDoc), "s3cret", config.DefaultCipher, 1000)
	require.NoError(t, err)
	p := writeTemp(t, "results.enc", data)

	result, err := HandleInspect(context.Background(), call(map[string]any{"path": p, "secret": "s3cret", "pattern": "other"}))
	require.NoError(t, err)
	require.False(t, result.IsError, textOf(t, result))
	assert.Contains(t, textOf(t, result), `"title": "o1"`)
	assert.NotContains(t, textOf(t, result), `"n1"`)

	result, err = HandleInspect(context.Background(), call(map[string]any{"path": p, "secret": "s3cret", "format": "markdown"}))
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(textOf(t, result), "# Cypress results: results.enc"))

	result, err = HandleInspect(context.Background(), call(map[string]any{"path": p, "secret": "s3cret", "format": "xml"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleSchema_Feedback(t *testing.T) {
	result, err := HandleSchema(context.Background(), call(map[string]any{"type": "feedback"}))
	require.NoError(t, err)
	assert.False(t, result.IsError)
	assert.Contains(t, textOf(t, result), "fractionalScore")
}

func TestHandleSchema_UnknownType(t *testing.T) {
	result, err := HandleSchema(context.Background(), call(map[string]any{"type": "foo"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestNewServer(t *testing.T) {
	s := NewServer("test")
	require.NotNil(t, s)
	tools := s.ListTools()
	for _, name := range []string{"cygrade/grade-file", "cygrade/inspect", "cygrade/schema"} {
		assert.Contains(t, tools, name)
	}
}

package grader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/crypt"
	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/feedback"
	"github.com/ormasoftchile/cygrade/pkg/grade"
	"github.com/ormasoftchile/cygrade/pkg/rubric"
)

const testIter = 1000

type harness struct {
	root string
	cfg  *config.Config
	sink *feedback.Memory
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.SubmissionRoot = t.TempDir()
	cfg.DecryptBackend = config.BackendNative
	cfg.Iterations = testIter
	return &harness{root: cfg.SubmissionRoot, cfg: cfg, sink: &feedback.Memory{}}
}

func (h *harness) write(t *testing.T, name string, data []byte) {
	t.Helper()
	p := filepath.Join(h.root, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func (h *harness) run(t *testing.T, catalog *rubric.Catalog, partID string) Result {
	t.Helper()
	res := New(h.cfg, catalog, h.sink, zap.NewNop()).Run(context.Background(), partID)
	require.Len(t, h.sink.Records, 1, "sink must be invoked exactly once")
	assert.Equal(t, res.Score, h.sink.Records[0].FractionalScore)
	assert.Equal(t, res.Feedback, h.sink.Records[0].Feedback)
	return res
}

// Scenario A
func TestRunAllPassed(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{"runs":[{"tests":[{"title":"t1","state":"passed"}]}]}`))

	res := h.run(t, nil, "")
	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	assert.Equal(t, 1.0, res.Score)
	assert.True(t, strings.HasPrefix(res.Feedback, grade.AllPassedHeadline))
}

// Scenario B
func TestRunStatsOnly(t *testing.T) {
	h := newHarness(t)
	h.write(t, "learn/cypress-results.json", []byte(`{"stats":{"tests":5,"passes":3,"failures":2}}`))

	res := h.run(t, nil, "")
	require.True(t, res.OK())
	assert.InDelta(t, 0.6, res.Score, 1e-9)
	assert.Equal(t, 5, res.Summary.Total)
	assert.Empty(t, res.Summary.Outcomes)
	assert.NotContains(t, res.Feedback, "Details:")
}

// Scenario C
func TestRunEncryptedWithPartID(t *testing.T) {
	h := newHarness(t)
	data, err := crypt.Encrypt([]byte(`{"runs":[{"tests":[{"title":"t1","state":"passed"},{"title":"t2","state":"failed"}]}]}`), "A1B2", config.DefaultCipher, testIter)
	require.NoError(t, err)
	h.write(t, "cypress-results.json.enc", data)

	res := h.run(t, nil, "A1B2")
	require.True(t, res.OK(), "unexpected failure: %v", res.Err)
	assert.Equal(t, 0.5, res.Score)
}

// Scenario D
func TestRunUnrecognized(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{}`))

	res := h.run(t, nil, "")
	assert.Equal(t, failure.InputUnrecognized, res.Kind)
	assert.Equal(t, 0.0, res.Score)
	assert.Equal(t, failure.DefaultFeedback(failure.InputUnrecognized), res.Feedback)
}

// Scenario E
func TestRunAttemptsLastStateWins(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{"tests":[{"title":"retried","attempts":[{"state":"failed"},{"state":"passed"}]}]}`))

	res := h.run(t, nil, "")
	require.True(t, res.OK())
	assert.Equal(t, 1.0, res.Score)
}

func TestRunMissing(t *testing.T) {
	h := newHarness(t)

	res := h.run(t, nil, "")
	assert.Equal(t, failure.InputMissing, res.Kind)
	assert.Equal(t, 0.0, res.Score)
	assert.Contains(t, res.Feedback, config.DefaultResultsFile)
}

func TestRunMalformed(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte("{\"runs\": [\xff"))

	res := h.run(t, nil, "")
	assert.Equal(t, failure.InputMalformed, res.Kind)
}

func TestRunNoTests(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{"runs":[{"tests":[]}]}`))

	res := h.run(t, nil, "")
	assert.Equal(t, failure.NoTests, res.Kind)
	assert.Equal(t, 0.0, res.Score)
}

func TestRunRubricFilterAndRequire(t *testing.T) {
	doc := `{"runs":[
		{"spec":{"relative":"cypress/e2e/notes.cy.js"},"tests":[{"title":"n1","state":"passed"},{"title":"n2","state":"failed"}]},
		{"spec":{"relative":"cypress/e2e/other.cy.js"},"tests":[{"title":"o1","state":"failed"}]}]}`
	catalog := &rubric.Catalog{Rubrics: []*rubric.Rubric{
		{ID: "NOTES", Pattern: "notes"},
		{ID: "STRICT", Pattern: "notes", Require: "total >= 3", RequireMessage: "Keep all notes tests."},
	}}
	require.Empty(t, catalog.Validate())

	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(doc))
	res := h.run(t, catalog, "NOTES")
	require.True(t, res.OK())
	assert.Equal(t, 0.5, res.Score)
	assert.Equal(t, 2, res.Summary.Total)
	assert.NotContains(t, res.Feedback, "o1")

	h = newHarness(t)
	h.write(t, "cypress-results.json", []byte(doc))
	res = h.run(t, catalog, "STRICT")
	assert.Equal(t, failure.RubricUnmet, res.Kind)
	assert.Equal(t, "Keep all notes tests.", res.Feedback)
	assert.Equal(t, 0.0, res.Score)

	h = newHarness(t)
	h.write(t, "cypress-results.json", []byte(doc))
	res = h.run(t, catalog, "UNKNOWN")
	require.True(t, res.OK())
	assert.Equal(t, 3, res.Summary.Total)
}

type panicDecrypter struct{}

func (panicDecrypter) Decrypt(context.Context, string) ([]byte, error) { panic("boom") }

func TestRunRecoversPanic(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json.enc", []byte("whatever"))

	core, logs := observer.New(zap.ErrorLevel)
	g := New(h.cfg, nil, h.sink, zap.New(core))
	g.NewDecrypter = func(*crypt.SecretSource) crypt.Decrypter { return panicDecrypter{} }

	res := g.Run(context.Background(), "")
	assert.Equal(t, failure.Internal, res.Kind)
	assert.Equal(t, failure.GenericFeedback, res.Feedback)
	require.Len(t, h.sink.Records, 1)
	assert.Equal(t, 0.0, h.sink.Records[0].FractionalScore)
	assert.Equal(t, 1, logs.FilterMessage("grading panicked").Len())
}

func TestRunSinkFailureDoesNotChangeResult(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{"tests":[{"title":"t","state":"passed"}]}`))
	h.sink.Err = errors.New("disk full")

	core, logs := observer.New(zap.ErrorLevel)
	res := New(h.cfg, nil, h.sink, zap.New(core)).Run(context.Background(), "")
	assert.True(t, res.OK())
	assert.Equal(t, 1.0, res.Score)
	assert.Equal(t, 1, logs.FilterMessage("could not write feedback").Len())
}

func TestRunUnreadableSecretFile(t *testing.T) {
	h := newHarness(t)
	h.cfg.SecretFile = filepath.Join(h.root, "no-such-secret")
	h.write(t, "cypress-results.json.enc", []byte("Salted__12345678ciphertext......"))

	res := h.run(t, nil, "A1B2")
	assert.Equal(t, failure.Decryption, res.Kind)
	assert.Contains(t, res.Feedback, "course staff")
}

func TestRunWritesFeedbackFile(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{"tests":[{"title":"t","state":"failed","error":"bad"}]}`))
	out := filepath.Join(t.TempDir(), "shared", "feedback.json")

	sink := feedback.NewFileSink(out, nil)
	sink.Echo = &strings.Builder{}
	res := New(h.cfg, nil, sink, nil).Run(context.Background(), "")
	assert.Equal(t, 0.0, res.Score)

	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"fractionalScore":0`)
	assert.Contains(t, string(data), "bad")
}

func TestGradeFileSkipsDiscoveryAndSink(t *testing.T) {
	h := newHarness(t)
	p := filepath.Join(t.TempDir(), "elsewhere.json")
	require.NoError(t, os.WriteFile(p, []byte(`{"tests":[{"title":"a","state":"passed"},{"title":"b","state":"pending"}]}`), 0o644))

	g := New(h.cfg, nil, h.sink, nil)
	res := g.GradeFile(context.Background(), p, "")
	require.True(t, res.OK())
	assert.Equal(t, p, res.Artifact)
	assert.Equal(t, 1, res.Summary.Pending)
	assert.Empty(t, h.sink.Records)

	res = g.GradeFile(context.Background(), filepath.Join(t.TempDir(), "gone.json"), "")
	assert.Equal(t, failure.InputMissing, res.Kind)
}

func TestFailedRunKeepsPartialSummary(t *testing.T) {
	h := newHarness(t)
	h.write(t, "cypress-results.json", []byte(`{"runs":[{"tests":[]}]}`))

	res := h.run(t, nil, "")
	assert.Equal(t, failure.NoTests, res.Kind)
	require.NotNil(t, res.Summary)
	assert.Equal(t, filepath.Join(h.root, "cypress-results.json"), res.Artifact)
}

func TestInspect(t *testing.T) {
	h := newHarness(t)
	p := filepath.Join(t.TempDir(), "r.json.enc")
	data, err := crypt.Encrypt([]byte(`{"runs":[
		{"spec":"a.cy.js","tests":[{"title":"a","state":"passed"}]},
		{"spec":"b.cy.js","tests":[{"title":"b","state":"failed"}]}]}`), "s3cret", config.DefaultCipher, testIter)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	h.cfg.Secret = "s3cret"

	g := New(h.cfg, nil, nil, nil)
	s, err := g.Inspect(context.Background(), p, "", "B.CY")
	require.NoError(t, err)
	assert.Equal(t, 1, s.Total)
	assert.Equal(t, 1, s.Failed)

	_, err = g.Inspect(context.Background(), filepath.Join(t.TempDir(), "none.json"), "", "")
	assert.True(t, failure.Is(err, failure.InputMissing))
}

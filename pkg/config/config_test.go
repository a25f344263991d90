package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(envMap(nil))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Nil(t, cfg.Encrypted)
	assert.False(t, cfg.HasExplicitSecret())
}

func TestLoadOverrides(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		EnvPartID:         "A1B2",
		EnvSubmissionPath: "/tmp/sub",
		EnvResultsFile:    "results.json",
		EnvEncrypted:      "yes",
		EnvSecret:         " s3cret ",
		EnvCipher:         "-AES-128-CBC",
		EnvIterations:     "1000",
		EnvDecryptBackend: "Native",
		EnvDecryptTimeout: "5s",
		EnvRubrics:        "/etc/rubrics.yaml",
		EnvMaxDetails:     "3",
	}))
	require.NoError(t, err)
	assert.Equal(t, "A1B2", cfg.PartID)
	assert.Equal(t, "/tmp/sub", cfg.SubmissionRoot)
	assert.Equal(t, "results.json", cfg.ResultsFile)
	require.NotNil(t, cfg.Encrypted)
	assert.True(t, *cfg.Encrypted)
	assert.Equal(t, " s3cret ", cfg.Secret)
	assert.Equal(t, "aes-128-cbc", cfg.Cipher)
	assert.Equal(t, 1000, cfg.Iterations)
	assert.Equal(t, BackendNative, cfg.DecryptBackend)
	assert.Equal(t, 5*time.Second, cfg.DecryptTimeout)
	assert.True(t, cfg.RubricsExplicit)
	assert.Equal(t, 3, cfg.MaxDetails)
	assert.True(t, cfg.HasExplicitSecret())
}

func TestLoadInvalidValuesKeepDefaults(t *testing.T) {
	cfg, err := Load(envMap(map[string]string{
		EnvEncrypted:      "maybe",
		EnvIterations:     "-4",
		EnvDecryptBackend: "gpg",
		EnvDecryptTimeout: "soon",
		EnvMaxDetails:     "many",
	}))
	require.Error(t, err)
	assert.Contains(t, err.Error(), EnvEncrypted)
	assert.Contains(t, err.Error(), EnvIterations)
	assert.Contains(t, err.Error(), EnvDecryptBackend)
	assert.Contains(t, err.Error(), EnvDecryptTimeout)
	assert.Contains(t, err.Error(), EnvMaxDetails)

	assert.Nil(t, cfg.Encrypted)
	assert.Equal(t, DefaultIterations, cfg.Iterations)
	assert.Equal(t, BackendTool, cfg.DecryptBackend)
	assert.Equal(t, DefaultDecryptTimeout, cfg.DecryptTimeout)
	assert.Equal(t, DefaultMaxDetails, cfg.MaxDetails)
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("CYGRADE_TEST_A=from-file\nCYGRADE_TEST_B=\"quoted\"\n"), 0o644))

	t.Setenv("CYGRADE_TEST_A", "from-env")
	t.Setenv("CYGRADE_TEST_B", "")
	os.Unsetenv("CYGRADE_TEST_B")

	require.NoError(t, LoadDotEnv(path))
	assert.Equal(t, "from-env", os.Getenv("CYGRADE_TEST_A"))
	assert.Equal(t, "quoted", os.Getenv("CYGRADE_TEST_B"))
}

func TestLoadDotEnvMissingFile(t *testing.T) {
	assert.NoError(t, LoadDotEnv(filepath.Join(t.TempDir(), "nope.env")))
}

// Package config resolves grader settings from the environment.
//
// Every setting has a documented default so a bare container invocation can
// grade a submission. Values that fail to parse are reported but replaced by
// their defaults; grading must still be able to emit feedback.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvPartID         = "partId"
	EnvSubmissionPath = "SHARED_SUBMISSION_PATH"
	EnvResultsPath    = "CYPRESS_RESULTS_PATH"
	EnvResultsFile    = "CYPRESS_RESULTS_FILE"
	EnvEncrypted      = "CYPRESS_RESULTS_ENCRYPTED"
	EnvSecret         = "CYPRESS_RESULTS_SECRET"
	EnvSecretFile     = "CYPRESS_RESULTS_SECRET_FILE"
	EnvCipher         = "CYPRESS_RESULTS_CIPHER"
	EnvIterations     = "CYPRESS_RESULTS_ITER"
	EnvOpenSSL        = "CYPRESS_RESULTS_OPENSSL"
	EnvDecryptBackend = "CYPRESS_RESULTS_DECRYPT_BACKEND"
	EnvDecryptTimeout = "CYPRESS_RESULTS_DECRYPT_TIMEOUT"
	EnvRubrics        = "CYGRADE_RUBRICS"
	EnvFeedbackPath   = "CYGRADE_FEEDBACK_PATH"
	EnvMaxDetails     = "CYGRADE_MAX_DETAILS"
	EnvLogLevel       = "CYGRADE_LOG_LEVEL"
)

// Defaults.
const (
	DefaultSubmissionPath = "/shared/submission/"
	DefaultResultsFile    = "cypress-results.json"
	DefaultCipher         = "aes-256-cbc"
	DefaultIterations     = 100000
	DefaultOpenSSL        = "openssl"
	DefaultDecryptTimeout = 30 * time.Second
	DefaultRubricsPath    = "/grader/rubrics.yaml"
	DefaultFeedbackPath   = "/shared/feedback.json"
	DefaultMaxDetails     = 25
)

// Decryption backends.
const (
	BackendTool   = "tool"
	BackendNative = "native"
)

// Config holds the settings for one grading run.
type Config struct {
	PartID         string
	SubmissionRoot string

	ResultsPath string // explicit artifact override, used verbatim
	ResultsFile string // base filename for discovery

	// Encrypted is the explicit encrypted-flag override; nil means decide by suffix.
	Encrypted *bool

	Secret         string
	SecretFile     string
	Cipher         string
	Iterations     int
	OpenSSL        string
	DecryptBackend string
	DecryptTimeout time.Duration

	RubricsPath     string
	RubricsExplicit bool // RubricsPath came from the environment

	FeedbackPath string
	MaxDetails   int
	LogLevel     string
}

// Default returns a Config populated with defaults only.
func Default() *Config {
	return &Config{
		SubmissionRoot: DefaultSubmissionPath,
		ResultsFile:    DefaultResultsFile,
		Cipher:         DefaultCipher,
		Iterations:     DefaultIterations,
		OpenSSL:        DefaultOpenSSL,
		DecryptBackend: BackendTool,
		DecryptTimeout: DefaultDecryptTimeout,
		RubricsPath:    DefaultRubricsPath,
		FeedbackPath:   DefaultFeedbackPath,
		MaxDetails:     DefaultMaxDetails,
		LogLevel:       "info",
	}
}

// FromEnv loads the configuration from the process environment.
func FromEnv() (*Config, error) {
	return Load(os.Getenv)
}

// Load builds a Config using getenv for lookups. The returned Config is
// always usable; the error lists values that were ignored.
func Load(getenv func(string) string) (*Config, error) {
	cfg := Default()
	var errs []error

	get := func(key string) string { return strings.TrimSpace(getenv(key)) }

	cfg.PartID = get(EnvPartID)
	if v := get(EnvSubmissionPath); v != "" {
		cfg.SubmissionRoot = v
	}
	cfg.ResultsPath = get(EnvResultsPath)
	if v := get(EnvResultsFile); v != "" {
		cfg.ResultsFile = v
	}
	if v := get(EnvEncrypted); v != "" {
		b, err := parseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", EnvEncrypted, err))
		} else {
			cfg.Encrypted = &b
		}
	}
	// Secrets are not trimmed; the secret file is trimmed when read.
	cfg.Secret = getenv(EnvSecret)
	cfg.SecretFile = get(EnvSecretFile)
	if v := get(EnvCipher); v != "" {
		cfg.Cipher = strings.TrimPrefix(strings.ToLower(v), "-")
	}
	if v := get(EnvIterations); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid iteration count %q", EnvIterations, v))
		} else {
			cfg.Iterations = n
		}
	}
	if v := get(EnvOpenSSL); v != "" {
		cfg.OpenSSL = v
	}
	if v := get(EnvDecryptBackend); v != "" {
		switch strings.ToLower(v) {
		case BackendTool, BackendNative:
			cfg.DecryptBackend = strings.ToLower(v)
		default:
			errs = append(errs, fmt.Errorf("%s: unknown backend %q (want %q or %q)", EnvDecryptBackend, v, BackendTool, BackendNative))
		}
	}
	if v := get(EnvDecryptTimeout); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("%s: invalid duration %q", EnvDecryptTimeout, v))
		} else {
			cfg.DecryptTimeout = d
		}
	}
	if v := get(EnvRubrics); v != "" {
		cfg.RubricsPath = v
		cfg.RubricsExplicit = true
	}
	if v := get(EnvFeedbackPath); v != "" {
		cfg.FeedbackPath = v
	}
	if v := get(EnvMaxDetails); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			errs = append(errs, fmt.Errorf("%s: invalid count %q", EnvMaxDetails, v))
		} else {
			cfg.MaxDetails = n
		}
	}
	if v := get(EnvLogLevel); v != "" {
		cfg.LogLevel = strings.ToLower(v)
	}

	return cfg, errors.Join(errs...)
}

// LoadDotEnv reads KEY=VALUE pairs from path into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// HasExplicitSecret reports whether a secret was configured directly rather
// than derived from the rubric identifier or the default placeholder.
func (c *Config) HasExplicitSecret() bool {
	return c.Secret != "" || c.SecretFile != ""
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "yes", "y", "on":
		return true, nil
	case "no", "n", "off":
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q", v)
	}
	return b, nil
}

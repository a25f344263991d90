package crypt

import (
	"fmt"
	"os"
	"strings"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/failure"
)

// DefaultPassphrase keeps local and manual runs from hard-failing when no
// secret is configured. It is public knowledge and must never protect
// production artifacts.
const DefaultPassphrase = "cygrade-insecure-default-passphrase"

// Origin names where a secret came from.
type Origin string

const (
	OriginSecretFile Origin = "secret-file"
	OriginEnv        Origin = "env"
	OriginRubric     Origin = "rubric-id"
	OriginDefault    Origin = "default"
)

// Secret is a resolved decryption passphrase.
type Secret struct {
	Value  string
	Origin Origin
}

// Insecure reports whether the secret is the built-in placeholder.
func (s Secret) Insecure() bool { return s.Origin == OriginDefault }

// SecretSource resolves the passphrase for one grading run. Resolution
// happens on first use and the outcome, success or failure, is kept for the
// rest of the run.
type SecretSource struct {
	SecretFile string
	Secret     string
	PartID     string

	// ReadFile defaults to os.ReadFile.
	ReadFile func(string) ([]byte, error)

	resolved bool
	secret   Secret
	err      error
}

// NewSecretSource builds a source from the run configuration.
func NewSecretSource(cfg *config.Config, partID string) *SecretSource {
	return &SecretSource{
		SecretFile: cfg.SecretFile,
		Secret:     cfg.Secret,
		PartID:     partID,
	}
}

// Resolve returns the secret, trying in order: the secret file, the secret
// variable, the rubric identifier, and the default placeholder.
func (s *SecretSource) Resolve() (Secret, error) {
	if !s.resolved {
		s.secret, s.err = s.resolve()
		s.resolved = true
	}
	return s.secret, s.err
}

func (s *SecretSource) resolve() (Secret, error) {
	if s.SecretFile != "" {
		read := s.ReadFile
		if read == nil {
			read = os.ReadFile
		}
		data, err := read(s.SecretFile)
		if err != nil {
			return Secret{}, failure.New(failure.Decryption,
				"The grader could not load its decryption key. Please contact course staff.",
				fmt.Errorf("read secret file %s: %w", s.SecretFile, err))
		}
		if v := strings.TrimSpace(string(data)); v != "" {
			return Secret{Value: v, Origin: OriginSecretFile}, nil
		}
	}
	if s.Secret != "" {
		return Secret{Value: s.Secret, Origin: OriginEnv}, nil
	}
	if s.PartID != "" {
		return Secret{Value: s.PartID, Origin: OriginRubric}, nil
	}
	return Secret{Value: DefaultPassphrase, Origin: OriginDefault}, nil
}

package results

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/ormasoftchile/cygrade/pkg/crypt"
	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/report"
)

// Loader reads an artifact into a report document.
type Loader struct {
	Decrypter crypt.Decrypter
	Logger    *zap.Logger
}

// NewLoader returns a Loader using dec for encrypted artifacts.
func NewLoader(dec crypt.Decrypter, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{Decrypter: dec, Logger: logger}
}

// Load reads, decrypts when flagged, decodes and sniffs art.
//
// A plaintext artifact that fails to decode is decrypted and decoded once
// more, covering encrypted files with a misleading name. When that retry
// cannot decrypt, the original input-malformed error is returned.
func (l *Loader) Load(ctx context.Context, art Artifact) (any, error) {
	data, err := l.read(ctx, art)
	if err != nil {
		return nil, err
	}

	doc, err := report.Decode(data)
	if err != nil {
		malformed := failure.New(failure.InputMalformed, "", fmt.Errorf("%s: %w", art.Path, err))
		if art.Encrypted || l.Decrypter == nil {
			return nil, malformed
		}
		l.logger().Info("results did not decode as plaintext, retrying as encrypted",
			zap.String("path", art.Path), zap.Error(err))
		plain, derr := l.Decrypter.Decrypt(ctx, art.Path)
		if derr != nil {
			l.logger().Debug("decrypt retry failed", zap.Error(derr))
			return nil, malformed
		}
		if doc, err = report.Decode(plain); err != nil {
			return nil, failure.New(failure.InputMalformed, "", fmt.Errorf("%s (decrypted): %w", art.Path, err))
		}
	}

	if !report.Sniff(doc) {
		return nil, failure.Newf(failure.InputUnrecognized, "", "%s has none of runs, stats, tests or results", art.Path)
	}
	return doc, nil
}

func (l *Loader) read(ctx context.Context, art Artifact) ([]byte, error) {
	if art.Encrypted {
		if l.Decrypter == nil {
			return nil, failure.Newf(failure.Decryption, "", "no decrypter configured for %s", art.Path)
		}
		return l.Decrypter.Decrypt(ctx, art.Path)
	}
	data, err := os.ReadFile(art.Path)
	if err != nil {
		return nil, failure.New(failure.InputMissing, "", fmt.Errorf("read results: %w", err))
	}
	return data, nil
}

func (l *Loader) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

// Package crypt decrypts protected results artifacts.
//
// Two backends exist: the external cipher tool (the production path) and an
// in-process implementation of the same container format. Both resolve the
// passphrase through a per-run SecretSource.
package crypt

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/failure"
)

// Decrypter turns an encrypted artifact into plaintext bytes. Errors are
// tagged with failure.Decryption.
type Decrypter interface {
	Decrypt(ctx context.Context, path string) ([]byte, error)
}

// IsEncrypted decides whether path should be treated as encrypted. An
// explicit override wins; otherwise the suffix decides.
func IsEncrypted(path string, override *bool) bool {
	if override != nil {
		return *override
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".enc", ".encrypted":
		return true
	}
	return false
}

// New returns the decrypter selected by cfg.DecryptBackend.
func New(cfg *config.Config, secrets *SecretSource, logger *zap.Logger) Decrypter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.DecryptBackend == config.BackendNative {
		return &NativeDecrypter{
			Cipher:     cfg.Cipher,
			Iterations: cfg.Iterations,
			Secrets:    secrets,
			Logger:     logger,
		}
	}
	return &ToolDecrypter{
		Binary:     cfg.OpenSSL,
		Cipher:     cfg.Cipher,
		Iterations: cfg.Iterations,
		Timeout:    cfg.DecryptTimeout,
		Secrets:    secrets,
		Executor:   &RealExecutor{},
		Logger:     logger,
	}
}

// ToolDecrypter shells out to an openssl-compatible binary. The passphrase is
// handed over through a uniquely named environment variable, never argv.
type ToolDecrypter struct {
	Binary     string
	Cipher     string
	Iterations int
	Timeout    time.Duration
	Secrets    *SecretSource
	Executor   CommandExecutor
	Logger     *zap.Logger

	envName string
}

// PassEnvName returns the environment variable used to pass the secret. It is
// generated once per decrypter.
func (d *ToolDecrypter) PassEnvName() string {
	if d.envName == "" {
		d.envName = "CYGRADE_PASS_" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return d.envName
}

// Decrypt runs `<binary> enc -d -<cipher> -pbkdf2 -iter N -in path -pass env:VAR`.
func (d *ToolDecrypter) Decrypt(ctx context.Context, path string) ([]byte, error) {
	logger := d.logger()
	secret, err := d.Secrets.Resolve()
	if err != nil {
		return nil, err
	}
	if secret.Insecure() {
		logger.Warn("decrypting with the default placeholder secret; configure a real secret for production")
	}

	if d.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.Timeout)
		defer cancel()
	}

	envName := d.PassEnvName()
	args := []string{
		"enc", "-d", "-" + d.Cipher,
		"-pbkdf2", "-iter", strconv.Itoa(d.Iterations),
		"-in", path,
		"-pass", "env:" + envName,
	}
	env := append(os.Environ(), envName+"="+secret.Value)

	logger.Debug("invoking decryption tool",
		zap.String("binary", d.Binary),
		zap.Strings("args", args),
		zap.String("secret_origin", string(secret.Origin)))

	result, err := d.Executor.Execute(ctx, d.Binary, args, env)
	if err != nil {
		if errors.Is(err, ErrToolNotFound) {
			return nil, failure.New(failure.Decryption,
				"The grader could not run its decryption tool. Please contact course staff.", err)
		}
		return nil, failure.New(failure.Decryption, "", err)
	}
	if result.ExitCode != 0 {
		stderr := redact(string(result.Stderr), secret.Value)
		fields := []zap.Field{
			zap.Int("exit_code", result.ExitCode),
			zap.String("stderr", stderr),
			zap.Duration("duration", result.Duration),
		}
		if ctx.Err() != nil {
			fields = append(fields, zap.NamedError("context", ctx.Err()))
		}
		logger.Debug("decryption tool failed", fields...)
		return nil, failure.Newf(failure.Decryption, "", "%s exited with code %d", d.Binary, result.ExitCode)
	}
	return result.Stdout, nil
}

func (d *ToolDecrypter) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// NativeDecrypter decrypts in-process using the same container format.
type NativeDecrypter struct {
	Cipher     string
	Iterations int
	Secrets    *SecretSource
	Logger     *zap.Logger
}

// Decrypt reads path and opens it with the resolved secret.
func (d *NativeDecrypter) Decrypt(ctx context.Context, path string) ([]byte, error) {
	secret, err := d.Secrets.Resolve()
	if err != nil {
		return nil, err
	}
	if secret.Insecure() && d.Logger != nil {
		d.Logger.Warn("decrypting with the default placeholder secret; configure a real secret for production")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, failure.New(failure.Decryption, "", fmt.Errorf("read %s: %w", path, err))
	}
	plain, err := Decrypt(data, secret.Value, d.Cipher, d.Iterations)
	if err != nil {
		return nil, failure.New(failure.Decryption, "", fmt.Errorf("decrypt %s: %w", path, err))
	}
	return plain, nil
}

func redact(s, secret string) string {
	if secret == "" {
		return s
	}
	return strings.ReplaceAll(s, secret, "[REDACTED]")
}

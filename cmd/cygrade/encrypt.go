package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ormasoftchile/cygrade/pkg/crypt"
)

var (
	encryptSecret string
	encryptPartID string
	encryptCipher string
	encryptIter   int
)

var encryptCmd = &cobra.Command{
	Use:   "encrypt <in> <out>",
	Short: "Encrypt a results file the way the grader expects it",
	Long: `Writes an OpenSSL "enc -pbkdf2" compatible artifact (Salted__ header, salt,
ciphertext) so submissions can ship results learners cannot edit by hand.

The passphrase is resolved like the grader does: --secret, then the secret file
and secret variables, then --part-id.`,
	Args: cobra.ExactArgs(2),
	RunE: runEncrypt,
}

func runEncrypt(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]
	cfg := loadConfig()
	if encryptSecret != "" {
		cfg.Secret = encryptSecret
	}
	cipherName := cfg.Cipher
	if encryptCipher != "" {
		cipherName = encryptCipher
	}
	iter := cfg.Iterations
	if encryptIter > 0 {
		iter = encryptIter
	}

	secret, err := crypt.NewSecretSource(cfg, encryptPartID).Resolve()
	if err != nil {
		return err
	}
	if secret.Insecure() {
		logger.Warn("encrypting with the built-in default passphrase")
	}

	plain, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read %s: %w", in, err)
	}
	data, err := crypt.Encrypt(plain, secret.Value, cipherName, iter)
	if err != nil {
		return err
	}
	if err := os.WriteFile(out, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}

	logger.Debug("wrote encrypted results",
		zap.String("out", out),
		zap.String("cipher", cipherName),
		zap.Int("iterations", iter),
		zap.String("secret_origin", string(secret.Origin)))
	fmt.Fprintf(cmd.OutOrStdout(), "✓ wrote %s (%s, %d iterations)\n", out, cipherName, iter)
	return nil
}

func init() {
	encryptCmd.Flags().StringVar(&encryptSecret, "secret", "", "Passphrase (overrides the configured secret)")
	encryptCmd.Flags().StringVar(&encryptPartID, "part-id", "", "Rubric identifier, used when no secret is configured")
	encryptCmd.Flags().StringVar(&encryptCipher, "cipher", "", "Cipher name (default from configuration, aes-256-cbc)")
	encryptCmd.Flags().IntVar(&encryptIter, "iter", 0, "PBKDF2 iterations (default from configuration)")
}

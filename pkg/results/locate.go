// Package results finds a submission's results artifact and loads it into a
// decoded report document.
package results

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/crypt"
	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/report"
)

// NestedDir is the submission subdirectory searched before the root.
const NestedDir = "learn"

// Artifact is a located results file.
type Artifact struct {
	Path      string
	Encrypted bool
	PartID    string
}

// Locator searches a submission for its results artifact.
type Locator struct {
	Root        string
	ResultsPath string // explicit override, used verbatim
	ResultsFile string
	Encrypted   *bool
	PartID      string
	// HasSecret enables the encrypted-file scan even without a PartID.
	HasSecret bool
	Decrypter crypt.Decrypter
	Logger    *zap.Logger
}

// NewLocator builds a Locator from the run configuration.
func NewLocator(cfg *config.Config, partID string, dec crypt.Decrypter, logger *zap.Logger) *Locator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Locator{
		Root:        cfg.SubmissionRoot,
		ResultsPath: cfg.ResultsPath,
		ResultsFile: cfg.ResultsFile,
		Encrypted:   cfg.Encrypted,
		PartID:      partID,
		HasSecret:   cfg.HasExplicitSecret(),
		Decrypter:   dec,
		Logger:      logger,
	}
}

// Candidates expands a base filename into the ordered list of names tried
// in each root. Duplicates are dropped; the first occurrence keeps its place.
func Candidates(base string) []string {
	if base == "" {
		base = config.DefaultResultsFile
	}
	names := []string{base}
	if !crypt.IsEncrypted(base, nil) {
		names = append(names, base+".enc", base+".encrypted")
	}
	names = append(names, config.DefaultResultsFile, config.DefaultResultsFile+".enc")

	seen := make(map[string]bool, len(names))
	out := names[:0]
	for _, n := range names {
		if seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}

// Roots returns the directories searched, nested directory first.
func (l *Locator) Roots() []string {
	root := l.Root
	if root == "" {
		root = config.DefaultSubmissionPath
	}
	var roots []string
	nested := filepath.Join(root, NestedDir)
	if info, err := os.Stat(nested); err == nil && info.IsDir() {
		roots = append(roots, nested)
	}
	return append(roots, root)
}

// Locate returns the artifact to grade or an input-missing error.
func (l *Locator) Locate(ctx context.Context) (Artifact, error) {
	if l.ResultsPath != "" {
		if !isFile(l.ResultsPath) {
			return Artifact{}, failure.Newf(failure.InputMissing, missingFeedback(filepath.Base(l.ResultsPath)),
				"configured results path %s does not exist", l.ResultsPath)
		}
		return l.artifact(l.ResultsPath), nil
	}

	roots := l.Roots()
	candidates := Candidates(l.ResultsFile)
	for _, root := range roots {
		for _, name := range candidates {
			p := filepath.Join(root, name)
			if isFile(p) {
				l.logger().Debug("results artifact found by name", zap.String("path", p))
				return l.artifact(p), nil
			}
		}
	}

	for _, root := range roots {
		if p, ok := l.scanPlain(root); ok {
			l.logger().Info("results artifact found by content", zap.String("path", p))
			return l.artifact(p), nil
		}
	}

	if l.HasSecret || l.PartID != "" {
		for _, root := range roots {
			if p, ok := l.scanEncrypted(ctx, root); ok {
				l.logger().Info("encrypted results artifact found by content", zap.String("path", p))
				return Artifact{Path: p, Encrypted: true, PartID: l.PartID}, nil
			}
		}
	}

	name := l.ResultsFile
	if name == "" {
		name = config.DefaultResultsFile
	}
	return Artifact{}, failure.Newf(failure.InputMissing, missingFeedback(name),
		"no results artifact named %q under %s", name, strings.Join(roots, ", "))
}

func (l *Locator) artifact(path string) Artifact {
	return Artifact{
		Path:      path,
		Encrypted: crypt.IsEncrypted(path, l.Encrypted),
		PartID:    l.PartID,
	}
}

// scanPlain returns the first *.json file in dir that decodes and sniffs as
// a report. os.ReadDir lists entries sorted by name.
func (l *Locator) scanPlain(dir string) (string, bool) {
	for _, p := range filesWithExt(dir, ".json") {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}
		doc, err := report.Decode(data)
		if err != nil || !report.Sniff(doc) {
			continue
		}
		return p, true
	}
	return "", false
}

func (l *Locator) scanEncrypted(ctx context.Context, dir string) (string, bool) {
	if l.Decrypter == nil {
		return "", false
	}
	for _, p := range filesWithExt(dir, ".enc") {
		plain, err := l.Decrypter.Decrypt(ctx, p)
		if err != nil {
			l.logger().Debug("skipping undecryptable candidate", zap.String("path", p), zap.Error(err))
			continue
		}
		doc, err := report.Decode(plain)
		if err != nil || !report.Sniff(doc) {
			continue
		}
		return p, true
	}
	return "", false
}

func filesWithExt(dir, ext string) []string {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ext) {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if isFile(p) {
			out = append(out, p)
		}
	}
	return out
}

func isFile(p string) bool {
	info, err := os.Stat(p)
	return err == nil && info.Mode().IsRegular()
}

func missingFeedback(name string) string {
	return fmt.Sprintf("No Cypress results file was found in your submission (looked for %s). "+
		"Run your Cypress tests so they write %s and include it in your submission.", name, name)
}

func (l *Locator) logger() *zap.Logger {
	if l.Logger == nil {
		return zap.NewNop()
	}
	return l.Logger
}

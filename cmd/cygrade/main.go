package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/feedback"
	"github.com/ormasoftchile/cygrade/pkg/grade"
	"github.com/ormasoftchile/cygrade/pkg/grader"
	"github.com/ormasoftchile/cygrade/pkg/preview"
	"github.com/ormasoftchile/cygrade/pkg/rubric"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

var (
	verbose bool
	logger  = zap.NewNop()
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cygrade",
	Short: "Cypress end-to-end results grader",
	Long: `cygrade grades a learner submission from the JSON report written by a Cypress run.

It finds the results file (plain or encrypted), normalizes the report, scores the
executed tests and writes one feedback record for the grading platform.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		envErr := config.LoadDotEnv(".env")

		l, err := newLogger(os.Getenv(config.EnvLogLevel), verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		if envErr != nil {
			logger.Warn("ignoring .env file", zap.Error(envErr))
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

// newLogger builds the production JSON logger writing to stderr. verbose
// forces debug; otherwise level is parsed and unknown values fall back to info.
func newLogger(level string, verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	switch {
	case verbose:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case level != "":
		if lvl, err := zapcore.ParseLevel(level); err == nil {
			cfg.Level = zap.NewAtomicLevelAt(lvl)
		}
	}
	return cfg.Build()
}

// loadConfig reads the environment and logs values that were ignored.
func loadConfig() *config.Config {
	cfg, err := config.FromEnv()
	if err != nil {
		logger.Warn("ignoring invalid configuration values", zap.Error(err))
	}
	return cfg
}

// --- grade ---

var gradeStrict bool

var gradeCmd = &cobra.Command{
	Use:   "grade [partId]",
	Short: "Grade the submission and write the feedback record",
	Long: `Locates the Cypress results in the submission directory, scores them and writes
the feedback record. The rubric identifier comes from the argument or the partId
environment variable.

Exits 0 whenever feedback was emitted; with --strict a zero score exits 1.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGrade,
}

func runGrade(cmd *cobra.Command, args []string) error {
	cfg := loadConfig()
	partID := cfg.PartID
	if len(args) == 1 {
		partID = strings.TrimSpace(args[0])
	}

	sink := feedback.NewFileSink(cfg.FeedbackPath, logger)
	sink.Echo = cmd.OutOrStdout()

	catalog, err := rubric.Open(cfg.RubricsPath, cfg.RubricsExplicit)
	if err != nil {
		logger.Error("could not load rubric catalog", zap.String("path", cfg.RubricsPath), zap.Error(err))
		if sendErr := sink.Send(cmd.Context(), feedback.Record{Feedback: failure.GenericFeedback}); sendErr != nil {
			logger.Error("could not write feedback", zap.Error(sendErr))
		}
		return strictResult(0, failure.Internal)
	}

	res := grader.New(cfg, catalog, sink, logger).Run(cmd.Context(), partID)
	return strictResult(res.Score, res.Kind)
}

func strictResult(score float64, kind failure.Kind) error {
	if !gradeStrict || score > 0 {
		return nil
	}
	if kind != "" {
		return fmt.Errorf("submission scored 0 (%s)", kind)
	}
	return fmt.Errorf("submission scored 0")
}

// --- inspect ---

var (
	inspectFormat  string
	inspectPager   bool
	inspectSecret  string
	inspectPartID  string
	inspectPattern string
	inspectWidth   int
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Decode a results file and show its normalized test outcomes",
	Long: `Decrypts (when needed) and decodes a Cypress results file, then prints every
normalized outcome and the score it would receive. Nothing is written.`,
	Args: cobra.ExactArgs(1),
	RunE: runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	cfg := loadConfig()
	if inspectSecret != "" {
		cfg.Secret = inspectSecret
	}

	s, err := grader.New(cfg, nil, nil, logger).Inspect(cmd.Context(), path, inspectPartID, inspectPattern)
	if err != nil {
		if fb := failure.FeedbackOf(err); fb != "" && failure.KindOf(err) != failure.Internal {
			fmt.Fprintln(cmd.ErrOrStderr(), fb)
		}
		return fmt.Errorf("inspect %s: %w", path, err)
	}

	score, scoreErr := grade.Score(s)
	rep := preview.Report{Source: filepath.Base(path), Summary: s, Score: score, Err: scoreErr}

	var out string
	switch inspectFormat {
	case "json":
		data, err := json.MarshalIndent(s, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		out = string(data)
	case "styled":
		out = preview.Styled(rep)
	case "markdown":
		out = preview.RenderMarkdown(preview.Markdown(rep), inspectWidth)
	default:
		return fmt.Errorf("unknown format %q, use 'json', 'styled' or 'markdown'", inspectFormat)
	}

	if inspectPager {
		return preview.Page("cygrade inspect "+filepath.Base(path), out)
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

// --- version ---

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the cygrade version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "cygrade %s (commit %s)\n", version, commit)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	gradeCmd.Flags().BoolVar(&gradeStrict, "strict", false, "Exit 1 when the submission scores 0")

	inspectCmd.Flags().StringVarP(&inspectFormat, "format", "f", "styled", "Output format: json, styled, markdown")
	inspectCmd.Flags().BoolVar(&inspectPager, "pager", false, "Show the output in a scrollable pager")
	inspectCmd.Flags().StringVar(&inspectSecret, "secret", "", "Decryption secret (overrides "+config.EnvSecret+")")
	inspectCmd.Flags().StringVar(&inspectPartID, "part-id", "", "Rubric identifier, used as fallback decryption secret")
	inspectCmd.Flags().StringVar(&inspectPattern, "pattern", "", "Only include runs whose spec name matches this pattern")
	inspectCmd.Flags().IntVar(&inspectWidth, "width", 100, "Word-wrap width for markdown output (0 disables)")

	rootCmd.AddCommand(gradeCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(encryptCmd)
	rootCmd.AddCommand(schemaCmd)
	rootCmd.AddCommand(versionCmd)
}

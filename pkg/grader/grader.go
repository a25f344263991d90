// Package grader runs the grading pipeline for one submission and always
// delivers exactly one feedback record.
package grader

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ormasoftchile/cygrade/pkg/config"
	"github.com/ormasoftchile/cygrade/pkg/crypt"
	"github.com/ormasoftchile/cygrade/pkg/failure"
	"github.com/ormasoftchile/cygrade/pkg/feedback"
	"github.com/ormasoftchile/cygrade/pkg/grade"
	"github.com/ormasoftchile/cygrade/pkg/report"
	"github.com/ormasoftchile/cygrade/pkg/results"
	"github.com/ormasoftchile/cygrade/pkg/rubric"
)

// Result is the outcome of one grading run.
type Result struct {
	Score    float64
	Feedback string

	// Kind is empty for a graded run and set when the run failed.
	Kind     failure.Kind
	Err      error
	Artifact string
	Summary  *report.Summary
}

// OK reports whether the submission was graded.
func (r Result) OK() bool { return r.Kind == "" }

// Grader wires the pipeline stages together.
type Grader struct {
	Config  *config.Config
	Catalog *rubric.Catalog
	Sink    feedback.Sink
	Logger  *zap.Logger

	// NewDecrypter overrides backend selection; used by tests.
	NewDecrypter func(*crypt.SecretSource) crypt.Decrypter
}

// New returns a Grader. A nil catalog means no rubrics.
func New(cfg *config.Config, catalog *rubric.Catalog, sink feedback.Sink, logger *zap.Logger) *Grader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if catalog == nil {
		catalog = &rubric.Catalog{}
	}
	return &Grader{Config: cfg, Catalog: catalog, Sink: sink, Logger: logger}
}

// Run grades the submission selected by partID and sends the record.
func (g *Grader) Run(ctx context.Context, partID string) Result {
	res := g.grade(ctx, partID, "")
	g.emit(ctx, res)
	return res
}

// GradeFile grades the artifact at path, skipping discovery. No record is
// sent to the sink.
func (g *Grader) GradeFile(ctx context.Context, path, partID string) Result {
	return g.grade(ctx, partID, path)
}

// Inspect loads the artifact at path and summarizes it, filtering runs by
// pattern. Nothing is scored.
func (g *Grader) Inspect(ctx context.Context, path, partID, pattern string) (report.Summary, error) {
	cfg := g.Config
	if cfg == nil {
		cfg = config.Default()
	}
	dec := g.decrypter(cfg, partID)
	art := results.Artifact{Path: path, Encrypted: crypt.IsEncrypted(path, cfg.Encrypted), PartID: partID}
	doc, err := results.NewLoader(dec, g.Logger).Load(ctx, art)
	if err != nil {
		return report.Summary{}, err
	}
	return report.Summarize(doc, report.NewFilter(pattern)), nil
}

func (g *Grader) decrypter(cfg *config.Config, partID string) crypt.Decrypter {
	secrets := crypt.NewSecretSource(cfg, partID)
	if g.NewDecrypter != nil {
		return g.NewDecrypter(secrets)
	}
	return crypt.New(cfg, secrets, g.Logger)
}

func (g *Grader) emit(ctx context.Context, res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.Logger.Error("feedback sink panicked", zap.Any("panic", r))
		}
	}()
	if g.Sink == nil {
		g.Logger.Error("no feedback sink configured")
		return
	}
	if err := g.Sink.Send(ctx, feedback.Record{FractionalScore: res.Score, Feedback: res.Feedback}); err != nil {
		g.Logger.Error("could not write feedback", zap.Error(err))
	}
}

func (g *Grader) grade(ctx context.Context, partID, path string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			g.Logger.Error("grading panicked", zap.Any("panic", r), zap.Stack("stack"))
			res = failed(res, failure.New(failure.Internal, "", fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := g.pipeline(ctx, partID, path, &res); err != nil {
		g.Logger.Warn("grading failed",
			zap.String("kind", string(failure.KindOf(err))),
			zap.Error(err))
		return failed(res, err)
	}
	g.Logger.Info("grading complete",
		zap.String("artifact", res.Artifact),
		zap.Int("total", res.Summary.Total),
		zap.Int("passed", res.Summary.Passed),
		zap.Int("failed", res.Summary.Failed),
		zap.Int("pending", res.Summary.Pending),
		zap.Bool("from_stats", res.Summary.FromStats),
		zap.Float64("score", res.Score))
	return res
}

// pipeline fills res as stages complete so a failed run still reports the
// artifact and summary it got to.
func (g *Grader) pipeline(ctx context.Context, partID, path string, res *Result) error {
	cfg := g.Config
	if cfg == nil {
		cfg = config.Default()
	}
	if partID == "" {
		g.Logger.Warn("no partId supplied; grading every spec with default settings")
	}

	rub := g.Catalog.Lookup(partID)
	if rub == nil && partID != "" && len(g.Catalog.Rubrics) > 0 {
		g.Logger.Warn("unknown partId, grading unfiltered", zap.String("part_id", partID))
	}

	dec := g.decrypter(cfg, partID)

	art := results.Artifact{Path: path, Encrypted: crypt.IsEncrypted(path, cfg.Encrypted), PartID: partID}
	if path == "" {
		var err error
		if art, err = results.NewLocator(cfg, partID, dec, g.Logger).Locate(ctx); err != nil {
			return err
		}
	}
	res.Artifact = art.Path
	g.Logger.Info("grading results artifact",
		zap.String("path", art.Path),
		zap.Bool("encrypted", art.Encrypted))

	doc, err := results.NewLoader(dec, g.Logger).Load(ctx, art)
	if err != nil {
		return err
	}

	filter := rub.Filter()
	summary := report.Summarize(doc, filter)
	res.Summary = &summary
	if filter != nil {
		g.Logger.Debug("applied rubric filter", zap.String("pattern", filter.String()), zap.Int("total", summary.Total))
	}
	for _, o := range summary.Outcomes {
		if !report.Known(o.State) {
			g.Logger.Debug("unrecognized test state counted as failed", zap.String("title", o.Title), zap.String("state", o.State))
		}
	}

	graded, err := grade.Grade(summary, grade.Options{MaxDetails: cfg.MaxDetails})
	if err != nil {
		return err
	}
	if err := rub.Check(summary, graded.Score); err != nil {
		return err
	}

	res.Score = graded.Score
	res.Feedback = graded.Feedback
	return nil
}

func failed(res Result, err error) Result {
	res.Score = 0
	res.Feedback = failure.FeedbackOf(err)
	res.Kind = failure.KindOf(err)
	res.Err = err
	return res
}

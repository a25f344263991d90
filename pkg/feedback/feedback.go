// Package feedback persists the grading record read by the grading platform.
package feedback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/ormasoftchile/cygrade/pkg/schema"
)

// MaxFeedbackLength bounds the feedback text in Unicode code points. Keep it
// in sync with the maxLength tag on Record.Feedback.
const MaxFeedbackLength = 16384

// TruncationNote ends feedback cut down to MaxFeedbackLength.
const TruncationNote = "\n...(feedback truncated)"

// SchemaDoc names the feedback record schema.
var SchemaDoc = schema.Doc{
	File:        "feedback-v1.json",
	Title:       "cygrade feedback record v1",
	Description: "Score and learner feedback written once per grading run",
}

// Record is the fixed-schema grading output.
type Record struct {
	FractionalScore float64 `json:"fractionalScore" jsonschema:"required,minimum=0,maximum=1"`
	Feedback        string  `json:"feedback" jsonschema:"required,maxLength=16384"`
}

// NewRecord clamps score to [0,1] and bounds the feedback text.
func NewRecord(score float64, text string) Record {
	return Record{FractionalScore: Clamp(score), Feedback: Truncate(text, MaxFeedbackLength)}
}

// Clamp limits score to [0,1]; NaN becomes 0.
func Clamp(score float64) float64 {
	if math.IsNaN(score) {
		return 0
	}
	return math.Min(1, math.Max(0, score))
}

// Truncate shortens text to at most limit code points, ending with
// TruncationNote when cut.
func Truncate(text string, limit int) string {
	if !utf8.ValidString(text) {
		text = string([]rune(text))
	}
	if utf8.RuneCountInString(text) <= limit {
		return text
	}
	keep := limit - utf8.RuneCountInString(TruncationNote)
	if keep < 0 {
		return string([]rune(text)[:limit])
	}
	return string([]rune(text)[:keep]) + TruncationNote
}

// JSONSchema returns the reflected schema for Record.
func JSONSchema() ([]byte, error) {
	return schema.Generate(&Record{}, SchemaDoc)
}

// Validate checks rec against its schema.
func (r Record) Validate() error {
	return schema.Join(schema.Validate(&r, SchemaDoc))
}

// Sink receives the single record of a grading run.
type Sink interface {
	Send(ctx context.Context, rec Record) error
}

// FileSink writes the record as JSON to Path and echoes the same line to Echo.
type FileSink struct {
	Path   string
	Echo   io.Writer // defaults to os.Stdout
	Logger *zap.Logger
}

// NewFileSink returns a sink writing to path.
func NewFileSink(path string, logger *zap.Logger) *FileSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileSink{Path: path, Echo: os.Stdout, Logger: logger}
}

// Send validates rec against the record schema, bounds it, echoes it and
// writes the file. A record failing validation is still written once bounded.
// A missing parent directory is created once before retrying the write.
func (s *FileSink) Send(ctx context.Context, rec Record) error {
	if err := rec.Validate(); err != nil {
		s.logger().Warn("feedback record out of bounds, clamping", zap.Error(err))
	}
	rec = NewRecord(rec.FractionalScore, rec.Feedback)
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal feedback: %w", err)
	}

	echo := s.Echo
	if echo == nil {
		echo = os.Stdout
	}
	fmt.Fprintln(echo, string(data))

	err = os.WriteFile(s.Path, data, 0o644)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger().Debug("feedback directory missing, creating it", zap.String("dir", filepath.Dir(s.Path)))
		if mkErr := os.MkdirAll(filepath.Dir(s.Path), 0o755); mkErr != nil {
			return fmt.Errorf("create feedback directory: %w", mkErr)
		}
		err = os.WriteFile(s.Path, data, 0o644)
	}
	if err != nil {
		return fmt.Errorf("write feedback: %w", err)
	}
	return nil
}

func (s *FileSink) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Memory is a Sink that keeps every record it receives.
type Memory struct {
	Records []Record
	Err     error
}

// Send appends rec and returns m.Err.
func (m *Memory) Send(_ context.Context, rec Record) error {
	m.Records = append(m.Records, NewRecord(rec.FractionalScore, rec.Feedback))
	return m.Err
}

// Package ingest parses all report files of one build in parallel.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/issuetrail/internal/issues"
	"github.com/xkilldash9x/issuetrail/internal/parser"
)

// Input is one report file. When Content is nil the file at Path is read.
type Input struct {
	ToolID   string
	Path     string
	Content  []byte
	Encoding string
}

// Result is the outcome of parsing one Input. Err is attributed to this file
// only; a *parser.ParseError comes with the recovered issues in Issues.
type Result struct {
	ToolID   string
	Path     string
	Issues   issues.Set
	Err      error
	Duration time.Duration
}

// Partial reports whether the result holds issues recovered from a malformed
// report.
func (r Result) Partial() bool {
	var pe *parser.ParseError
	return errors.As(r.Err, &pe)
}

// PanicError is the result error of a parser that panicked. The panic is
// contained to the report file that triggered it.
type PanicError struct {
	ToolID string
	Path   string
	Value  any
	Stack  []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("%s parser panicked on %s: %v", e.ToolID, e.Path, e.Value)
}

// Ingester runs the parser registry over many inputs.
type Ingester struct {
	registry    *parser.Registry
	fs          afero.Fs
	concurrency int
	logger      *zap.Logger
}

// New creates an Ingester. A concurrency below one uses the number of CPUs.
func New(registry *parser.Registry, fs afero.Fs, concurrency int, logger *zap.Logger) *Ingester {
	if concurrency < 1 {
		concurrency = runtime.NumCPU()
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ingester{
		registry:    registry,
		fs:          fs,
		concurrency: concurrency,
		logger:      logger.Named("ingest"),
	}
}

// Run parses every input and returns one result per input, in input order.
// Run itself never fails; inputs not started before ctx is done carry the
// context error.
func (in *Ingester) Run(ctx context.Context, inputs []Input) []Result {
	results := make([]Result, len(inputs))

	var g errgroup.Group
	g.SetLimit(in.concurrency)
	for i, input := range inputs {
		g.Go(func() error {
			results[i] = in.parse(ctx, input)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}
	in.logger.Info("Report ingestion finished.",
		zap.Int("files", len(inputs)), zap.Int("failed", failed))
	return results
}

func (in *Ingester) parse(ctx context.Context, input Input) (res Result) {
	res = Result{ToolID: input.ToolID, Path: input.Path}
	if err := ctx.Err(); err != nil {
		res.Err = err
		return res
	}

	start := time.Now()
	defer func() { res.Duration = time.Since(start) }()
	defer func() {
		if r := recover(); r != nil {
			res.Issues = issues.Set{}
			res.Err = &PanicError{ToolID: input.ToolID, Path: input.Path, Value: r, Stack: debug.Stack()}
			in.logger.Error("Parser panicked.",
				zap.String("tool", input.ToolID),
				zap.String("path", input.Path),
				zap.Any("panic", r))
		}
	}()

	content := input.Content
	if content == nil {
		data, err := afero.ReadFile(in.fs, input.Path)
		if err != nil {
			res.Err = fmt.Errorf("failed to read report: %w", err)
			return res
		}
		content = data
	}

	res.Issues, res.Err = in.registry.Parse(input.ToolID, content, input.Encoding)
	if res.Err != nil {
		in.logger.Warn("Failed to parse report.",
			zap.String("tool", input.ToolID),
			zap.String("path", input.Path),
			zap.Int("recovered", res.Issues.Size()),
			zap.Error(res.Err))
		return res
	}
	in.logger.Debug("Parsed report.",
		zap.String("tool", input.ToolID),
		zap.String("path", input.Path),
		zap.Int("issues", res.Issues.Size()))
	return res
}

// Merge concatenates the issues of all results in input order. Results with a
// ParseError contribute their partial issues only when acceptPartial is set.
// Every result with an error is returned in failed.
func Merge(results []Result, acceptPartial bool) (merged issues.Set, failed []Result) {
	sets := make([]issues.Set, 0, len(results))
	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
			if !acceptPartial || !r.Partial() {
				continue
			}
		}
		sets = append(sets, r.Issues)
	}
	return issues.Concat(sets...), failed
}

// File: internal/results/pipeline.go
package results

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/fingerprint"
	"github.com/xkilldash9x/issuetrail/internal/ingest"
	"github.com/xkilldash9x/issuetrail/internal/issues"
	"github.com/xkilldash9x/issuetrail/internal/store"
	"github.com/xkilldash9x/issuetrail/internal/summary"
)

// Build is one analysed build: its report files and the build to compare with.
type Build struct {
	ID string
	// ReferenceID selects the reference build. When empty the latest build in
	// the store is used; when there is none every issue is new.
	ReferenceID string
	Inputs      []ingest.Input
}

// Outcome is the result of processing one build.
type Outcome struct {
	Report  *aggregator.Report
	Summary summary.Summary
	// Failed lists the report files whose partial issues were accepted.
	Failed []ingest.Result
}

// Options tune the pipeline policy.
type Options struct {
	// AcceptPartial keeps the issues recovered from malformed reports instead
	// of rejecting the build.
	AcceptPartial bool
	// StrictMatching never matches issues on weak fingerprints.
	StrictMatching bool
	// BuildConcurrency bounds ProcessBuilds. Zero uses the number of CPUs.
	BuildConcurrency int
}

// FileError attributes a failure to one report file.
type FileError struct {
	ToolID string
	Path   string
	Err    error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("%s report %s: %v", e.ToolID, e.Path, e.Err)
}

func (e *FileError) Unwrap() error { return e.Err }

// Pipeline manages the processing of report files into an aggregated build report.
type Pipeline struct {
	ingester      *ingest.Ingester
	fingerprinter *fingerprint.Fingerprinter
	store         store.Store
	opts          Options
	logger        *zap.Logger
}

// NewPipeline creates a new results processing pipeline. The store is
// optional; without one there is no history and nothing is persisted.
func NewPipeline(ingester *ingest.Ingester, fp *fingerprint.Fingerprinter, st store.Store, opts Options, logger *zap.Logger) *Pipeline {
	if opts.BuildConcurrency < 1 {
		opts.BuildConcurrency = runtime.NumCPU()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{
		ingester:      ingester,
		fingerprinter: fp,
		store:         st,
		opts:          opts,
		logger:        logger.Named("results_pipeline"),
	}
}

// ProcessBuild parses, fingerprints and aggregates one build against its
// reference, then saves the report.
//
// Files that cannot be read, decoded or attributed to a known tool always fail
// the build. Malformed reports fail it unless AcceptPartial is set. A failed
// build is not persisted.
func (p *Pipeline) ProcessBuild(ctx context.Context, build Build) (*Outcome, error) {
	logger := p.logger.With(zap.String("build_id", build.ID))
	logger.Info("Starting build processing", zap.Int("reports", len(build.Inputs)))

	// 1. Ingestion
	results := p.ingester.Run(ctx, build.Inputs)
	current, failed := ingest.Merge(results, p.opts.AcceptPartial)
	if err := CheckFailures(failed, p.opts.AcceptPartial); err != nil {
		return nil, fmt.Errorf("build %s: %w", build.ID, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// 2. Fingerprinting
	current = p.fingerprinter.Apply(ctx, current)

	// 3. Reference lookup
	referenceID, reference, err := p.loadReference(ctx, build)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", build.ID, err)
	}

	// 4. Aggregation
	opts := []aggregator.Option{
		aggregator.WithBuildID(build.ID),
		aggregator.WithReferenceBuildID(referenceID),
	}
	if p.opts.StrictMatching {
		opts = append(opts, aggregator.WithStrictMatching())
	}
	report := aggregator.Aggregate(current, reference, opts...)
	sum := summary.Build(report)

	// 5. Persistence
	if p.store != nil {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := p.store.SaveReport(ctx, report); err != nil {
			return nil, fmt.Errorf("build %s: failed to save report: %w", build.ID, err)
		}
	}

	logger.Info("Build processing complete",
		zap.String("reference_build_id", referenceID),
		zap.Int("current", sum.Totals.Current),
		zap.Int("new", sum.Totals.New),
		zap.Int("fixed", sum.Totals.Fixed),
		zap.Int("outstanding", sum.Totals.Outstanding),
		zap.Int("weak_matches", sum.WeakMatches))
	return &Outcome{Report: report, Summary: sum, Failed: failed}, nil
}

// CheckFailures applies the failure policy to the failed results of a build.
// Every failure is fatal except partial results when acceptPartial is set.
func CheckFailures(failed []ingest.Result, acceptPartial bool) error {
	var errs []error
	for _, r := range failed {
		if acceptPartial && r.Partial() {
			continue
		}
		errs = append(errs, &FileError{ToolID: r.ToolID, Path: r.Path, Err: r.Err})
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%d report(s) failed: %w", len(errs), errors.Join(errs...))
}

func (p *Pipeline) loadReference(ctx context.Context, build Build) (string, issues.Set, error) {
	if p.store == nil {
		return build.ReferenceID, issues.Set{}, nil
	}

	referenceID := build.ReferenceID
	if referenceID == "" {
		latest, err := p.store.LatestBuild(ctx)
		switch {
		case errors.Is(err, store.ErrBuildNotFound):
			return "", issues.Set{}, nil
		case err != nil:
			return "", issues.Set{}, fmt.Errorf("failed to find latest build: %w", err)
		}
		referenceID = latest
	}
	if referenceID == build.ID {
		return "", issues.Set{}, nil
	}

	reference, err := p.store.LoadIssues(ctx, referenceID)
	if errors.Is(err, store.ErrBuildNotFound) {
		p.logger.Warn("Reference build not found, treating all issues as new.",
			zap.String("build_id", build.ID), zap.String("reference_build_id", referenceID))
		return "", issues.Set{}, nil
	}
	if err != nil {
		return "", issues.Set{}, fmt.Errorf("failed to load reference build %s: %w", referenceID, err)
	}
	return referenceID, reference, nil
}

// BuildResult pairs a build with the outcome of processing it.
type BuildResult struct {
	BuildID string
	Outcome *Outcome
	Err     error
}

// ProcessBuilds processes independent builds in parallel, one worker per
// build. Results are in input order. Builds must not reference each other,
// and each should name its ReferenceID since "latest" is racy across workers.
func (p *Pipeline) ProcessBuilds(ctx context.Context, builds []Build) []BuildResult {
	out := make([]BuildResult, len(builds))

	var g errgroup.Group
	g.SetLimit(p.opts.BuildConcurrency)
	for i, b := range builds {
		g.Go(func() error {
			outcome, err := p.ProcessBuild(ctx, b)
			out[i] = BuildResult{BuildID: b.ID, Outcome: outcome, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// File: cmd/report.go
package cmd

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/internal/config"
	"github.com/xkilldash9x/issuetrail/internal/ingest"
	"github.com/xkilldash9x/issuetrail/internal/observability"
	"github.com/xkilldash9x/issuetrail/internal/parser/formats"
	"github.com/xkilldash9x/issuetrail/internal/reporting"
	"github.com/xkilldash9x/issuetrail/internal/results"
	"github.com/xkilldash9x/issuetrail/internal/store"
)

// storeProvider creates the build history. This abstraction allows tests to
// inject a store instead of a live database connection.
type storeProvider interface {
	// Create returns the store and a cleanup function to release resources.
	Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (store.Store, func(), error)
}

// defaultStoreProvider uses PostgreSQL when database.url is set and the
// history directory otherwise.
type defaultStoreProvider struct{}

// NewStoreProvider creates the production store provider.
func NewStoreProvider() storeProvider {
	return &defaultStoreProvider{}
}

func (p *defaultStoreProvider) Create(ctx context.Context, cfg config.Interface, logger *zap.Logger) (store.Store, func(), error) {
	if cfg.Database().URL == "" {
		fs, err := store.NewFileStore(afero.NewOsFs(), cfg.History().Dir, logger)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.Database().URL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	pg, err := store.NewPostgres(ctx, pool, logger)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to initialize store service: %w", err)
	}
	if err := pg.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}

	cleanup := func() {
		pool.Close()
		logger.Debug("Database connection pool closed (via report cleanup).")
	}
	return pg, cleanup, nil
}

type reportOptions struct {
	buildID     string
	referenceID string
	outputPath  string
	format      string
}

// newReportCmd creates and configures the `report` command.
func newReportCmd(provider storeProvider) *cobra.Command {
	var opts reportOptions

	reportCmd := &cobra.Command{
		Use:   "report tool=path[@charset]...",
		Short: "Compare the reports of a build with its reference build",
		Long: `Parses the reports of one build, fingerprints the issues and compares them
with the reference build from the history (the latest saved build unless
--reference is given). The build is saved to the history and the result is
written as SARIF or JSON.`,
		Example: `  issuetrail report --build-id 412 gcc=build.log semgrep=semgrep.json -o build.sarif
  issuetrail report --build-id 413 --reference 400 --format json resharperInspectCode=inspect.xml`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := getConfigFromContext(ctx)
			if err != nil {
				return err
			}
			inputs, err := parseInputArgs(args)
			if err != nil {
				return err
			}
			return runReport(ctx, observability.GetLogger(), cfg, inputs, opts, provider)
		},
	}

	reportCmd.Flags().StringVar(&opts.buildID, "build-id", "", "ID of the build (generated when unset)")
	reportCmd.Flags().StringVar(&opts.referenceID, "reference", "", "ID of the reference build (default: latest saved build)")
	reportCmd.Flags().StringVarP(&opts.outputPath, "output", "o", "", "Output file path. If unset, the report is printed to stdout.")
	reportCmd.Flags().StringVarP(&opts.format, "format", "f", reporting.FormatSARIF, "Format for the output report ('sarif' or 'json')")

	addSourceFlags(reportCmd)
	reportCmd.Flags().Bool("accept-partial", false, "Keep issues recovered from malformed reports")
	reportCmd.Flags().Bool("strict", false, "Never match issues on weak fingerprints")
	reportCmd.Flags().Int("workers", 0, "Number of reports parsed in parallel")
	reportCmd.Flags().String("history-dir", "", "Directory of the build history when no database is configured")
	bindFlag(reportCmd, "accept-partial", "aggregation.accept_partial")
	bindFlag(reportCmd, "strict", "aggregation.strict_matching")
	bindFlag(reportCmd, "workers", "engine.worker_concurrency")
	bindFlag(reportCmd, "history-dir", "history.dir")
	return reportCmd
}

// runReport contains the core, testable logic of the report command.
func runReport(
	ctx context.Context,
	logger *zap.Logger,
	cfg config.Interface,
	inputs []ingest.Input,
	opts reportOptions,
	provider storeProvider,
) error {
	// Fail on a bad format before any work is done.
	if opts.format != reporting.FormatSARIF && opts.format != reporting.FormatJSON {
		return fmt.Errorf("unsupported output format: %s", opts.format)
	}
	if opts.buildID == "" {
		opts.buildID = uuid.NewString()
	}

	st, cleanup, err := provider.Create(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	if cleanup != nil {
		defer cleanup()
	}

	fp, err := newFingerprinter(cfg, logger)
	if err != nil {
		return err
	}
	ingester := ingest.New(formats.DefaultRegistry(), afero.NewOsFs(), cfg.Engine().WorkerConcurrency, logger)
	pipeline := results.NewPipeline(ingester, fp, st, results.Options{
		AcceptPartial:    cfg.Aggregation().AcceptPartial,
		StrictMatching:   cfg.Aggregation().StrictMatching,
		BuildConcurrency: cfg.Engine().BuildConcurrency,
	}, logger)

	outcome, err := pipeline.ProcessBuild(ctx, results.Build{
		ID:          opts.buildID,
		ReferenceID: opts.referenceID,
		Inputs:      inputs,
	})
	if err != nil {
		return fmt.Errorf("failed to process build: %w", err)
	}
	for _, f := range outcome.Failed {
		logger.Warn("Report was only partially parsed.",
			zap.String("tool", f.ToolID), zap.String("path", f.Path), zap.Error(f.Err))
	}

	reporter, err := reporting.New(opts.format, opts.outputPath, logger, Version)
	if err != nil {
		return fmt.Errorf("failed to initialize reporter: %w", err)
	}
	if err := reporter.Write(outcome.Report, outcome.Summary); err != nil {
		_ = reporter.Close()
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := reporter.Close(); err != nil {
		return err
	}
	logger.Info("Report generated",
		zap.String("build_id", outcome.Report.BuildID),
		zap.String("format", opts.format),
		zap.String("output", opts.outputPath))
	return nil
}

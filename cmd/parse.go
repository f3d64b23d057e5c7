package cmd

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/ingest"
	"github.com/xkilldash9x/issuetrail/internal/observability"
	"github.com/xkilldash9x/issuetrail/internal/parser/formats"
	"github.com/xkilldash9x/issuetrail/internal/results"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// newParseCmd creates the `parse` command, which normalizes reports without
// comparing them with any history.
func newParseCmd() *cobra.Command {
	var countsOnly bool

	parseCmd := &cobra.Command{
		Use:   "parse tool=path[@charset]...",
		Short: "Parse reports into normalized, fingerprinted issues",
		Long: `Parses every given report with the parser of its tool and prints the
normalized issues as JSON. Use 'issuetrail tools' to list the tool ids.`,
		Example: `  issuetrail parse gcc=build.log checkstyle=target/checkstyle-result.xml
  issuetrail parse java=compile.log@ISO-8859-1 --counts`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := getConfigFromContext(cmd.Context())
			if err != nil {
				return err
			}
			inputs, err := parseInputArgs(args)
			if err != nil {
				return err
			}
			logger := observability.GetLogger()

			fp, err := newFingerprinter(cfg, logger)
			if err != nil {
				return err
			}
			ingester := ingest.New(formats.DefaultRegistry(), afero.NewOsFs(), cfg.Engine().WorkerConcurrency, logger)

			set, failed := ingest.Merge(ingester.Run(cmd.Context(), inputs), cfg.Aggregation().AcceptPartial)
			if err := results.CheckFailures(failed, cfg.Aggregation().AcceptPartial); err != nil {
				return err
			}
			set = fp.Apply(cmd.Context(), set)
			logger.Info("Parsed reports.", zap.Int("reports", len(inputs)), zap.Int("issues", set.Size()))

			var out interface{} = set
			if countsOnly {
				out = aggregator.CountsOf(set, len(set.Origins()) > 1)
			}
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to serialize issues: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return err
		},
	}

	parseCmd.Flags().BoolVar(&countsOnly, "counts", false, "Print issue counts instead of the issues")
	addSourceFlags(parseCmd)
	parseCmd.Flags().Bool("accept-partial", false, "Keep issues recovered from malformed reports")
	bindFlag(parseCmd, "accept-partial", "aggregation.accept_partial")
	return parseCmd
}

// addSourceFlags registers the flags that select the analysed sources.
func addSourceFlags(cmd *cobra.Command) {
	cmd.Flags().String("source-root", "", "Directory holding the analysed sources")
	cmd.Flags().String("git-repo", "", "Git repository holding the analysed sources")
	cmd.Flags().String("revision", "", "Git revision of the analysed sources")
	bindFlag(cmd, "source-root", "source.root")
	bindFlag(cmd, "git-repo", "source.git_repository")
	bindFlag(cmd, "revision", "source.git_revision")
}

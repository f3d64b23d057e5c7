// Package reporting writes aggregation reports in machine readable formats.
package reporting

import (
	"errors"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/summary"
)

// Supported output formats.
const (
	FormatSARIF = "sarif"
	FormatJSON  = "json"
)

// Reporter defines the interface for writing build reports to an output.
type Reporter interface {
	// Write adds one build report to the output.
	Write(report *aggregator.Report, sum summary.Summary) error
	// Close finalizes the output and closes any underlying resources (e.g., file handles).
	Close() error
}

// nopWriteCloser wraps an io.Writer and provides a no-op Close method.
type nopWriteCloser struct {
	io.Writer
}

func (nwc *nopWriteCloser) Close() error {
	return nil
}

// New creates a new reporter based on the specified format and output path.
// An empty path or "stdout" writes to standard output.
func New(format, outputPath string, logger *zap.Logger, toolVersion string) (Reporter, error) {
	if logger == nil {
		return nil, errors.New("reporting: logger is required")
	}
	if format != FormatSARIF && format != FormatJSON {
		return nil, fmt.Errorf("unsupported output format: %s", format)
	}

	var writer io.WriteCloser
	if outputPath == "" || outputPath == "stdout" {
		// Wrap Stdout so Close() is a no-op.
		writer = &nopWriteCloser{os.Stdout}
	} else {
		f, err := os.Create(outputPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create output file %s: %w", outputPath, err)
		}
		writer = f
	}

	// The reporters take ownership of the writer.
	if format == FormatSARIF {
		return NewSARIFReporter(writer, logger, toolVersion), nil
	}
	return NewJSONReporter(writer, logger, toolVersion), nil
}

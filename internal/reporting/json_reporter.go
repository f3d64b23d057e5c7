package reporting

import (
	"fmt"
	"io"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/issues"
	"github.com/xkilldash9x/issuetrail/internal/summary"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONDocument is the top level object written by the JSON reporter.
type JSONDocument struct {
	Tool    string      `json:"tool"`
	Version string      `json:"version"`
	Builds  []JSONBuild `json:"builds"`
}

// JSONBuild is one build: its summary and the issue partitions.
type JSONBuild struct {
	BuildID          string          `json:"build_id"`
	ReferenceBuildID string          `json:"reference_build_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	Summary          summary.Summary `json:"summary"`
	New              issues.Set      `json:"new"`
	Fixed            issues.Set      `json:"fixed"`
	Outstanding      issues.Set      `json:"outstanding"`
}

// JSONReporter buffers builds and writes them as a single JSON document on
// Close. It is thread safe.
type JSONReporter struct {
	writer io.WriteCloser
	logger *zap.Logger
	doc    JSONDocument
	mu     sync.Mutex
}

// NewJSONReporter creates a reporter that writes JSON output.
func NewJSONReporter(writer io.WriteCloser, logger *zap.Logger, toolVersion string) *JSONReporter {
	return &JSONReporter{
		writer: writer,
		logger: logger.Named("json_reporter"),
		doc:    JSONDocument{Tool: ToolName, Version: toolVersion, Builds: []JSONBuild{}},
	}
}

// Write implements Reporter.
func (r *JSONReporter) Write(report *aggregator.Report, sum summary.Summary) error {
	if report == nil {
		return fmt.Errorf("json reporter: nil report")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.doc.Builds = append(r.doc.Builds, JSONBuild{
		BuildID:          report.BuildID,
		ReferenceBuildID: report.ReferenceBuildID,
		CreatedAt:        report.CreatedAt,
		Summary:          sum,
		New:              report.New,
		Fixed:            report.Fixed,
		Outstanding:      report.Outstanding,
	})
	return nil
}

// Close implements Reporter.
func (r *JSONReporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ")
	encodeErr := encoder.Encode(r.doc)
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode JSON report", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode JSON output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}
	r.logger.Info("Successfully wrote JSON report", zap.Int("builds", len(r.doc.Builds)))
	return nil
}

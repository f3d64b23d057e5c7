// File: internal/reporting/sarif_reporter.go
package reporting

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/reporting/sarif"
	"github.com/xkilldash9x/issuetrail/internal/summary"
)

// Constants for tool identification in the SARIF report.
const (
	ToolName    = "issuetrail"
	ToolInfoURI = "https://github.com/xkilldash9x/issuetrail"

	// FingerprintKey and WeakFingerprintKey name the partial fingerprints
	// written for strong and weak issue fingerprints.
	FingerprintKey     = "issuetrail/v1"
	WeakFingerprintKey = "issuetrailWeak/v1"
)

// ruleIDSanitizer replaces characters not typically safe in SARIF rule ids.
// Consecutive sequences collapse to a single hyphen.
var ruleIDSanitizer = regexp.MustCompile(`[^a-zA-Z0-9_.-]+`)

// ruleKey identifies a rule: one per tool and issue type.
type ruleKey struct {
	origin string
	name   string
}

// SARIFReporter implements the Reporter interface for the SARIF 2.1.0 format.
// Every written build becomes one run. It is thread safe.
type SARIFReporter struct {
	writer      io.WriteCloser
	logger      *zap.Logger
	toolVersion string
	log         *sarif.Log
	// mu protects the log structure.
	mu sync.Mutex
}

// NewSARIFReporter creates a new reporter that writes SARIF output.
func NewSARIFReporter(writer io.WriteCloser, logger *zap.Logger, toolVersion string) *SARIFReporter {
	return &SARIFReporter{
		writer:      writer,
		logger:      logger.Named("sarif_reporter"),
		toolVersion: toolVersion,
		log: &sarif.Log{
			Version: sarif.Version,
			Schema:  sarif.Schema,
			// Initialize empty slices (not nil) for proper JSON marshalling.
			Runs: []*sarif.Run{},
		},
	}
}

// Write converts a report into a SARIF run. Current issues carry the baseline
// state "new" or "unchanged"; fixed issues are added as "absent".
func (r *SARIFReporter) Write(report *aggregator.Report, sum summary.Summary) error {
	if report == nil {
		return fmt.Errorf("sarif reporter: nil report")
	}
	startTime := time.Now()

	run := &sarif.Run{
		Tool: &sarif.Tool{
			Driver: &sarif.ToolComponent{
				Name:           ToolName,
				Version:        sarif.String(r.toolVersion),
				InformationURI: sarif.String(ToolInfoURI),
				Rules:          []*sarif.ReportingDescriptor{},
			},
		},
		Results: []*sarif.Result{},
		Properties: sarif.PropertyBag{
			"buildId":     report.BuildID,
			"multiTool":   report.MultiTool,
			"weakMatches": report.WeakMatches,
			"totals":      sum.Totals,
		},
	}
	if report.ReferenceBuildID != "" {
		run.Properties["referenceBuildId"] = report.ReferenceBuildID
	}

	rules := make(map[ruleKey]int)
	newIDs := make(map[string]bool, report.New.Size())
	report.New.Each(func(_ int, i schemas.Issue) { newIDs[i.ID] = true })

	report.Current.Each(func(_ int, issue schemas.Issue) {
		state := sarif.BaselineUnchanged
		if newIDs[issue.ID] {
			state = sarif.BaselineNew
		}
		run.Results = append(run.Results, r.result(run, rules, issue, state))
	})
	report.Fixed.Each(func(_ int, issue schemas.Issue) {
		run.Results = append(run.Results, r.result(run, rules, issue, sarif.BaselineAbsent))
	})

	r.mu.Lock()
	r.log.Runs = append(r.log.Runs, run)
	r.mu.Unlock()

	r.logger.Debug("Wrote build to SARIF buffer",
		zap.String("build_id", report.BuildID),
		zap.Int("results_count", len(run.Results)),
		zap.Int("rules_count", len(run.Tool.Driver.Rules)),
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

// Close finalizes the SARIF log and writes it to the output writer.
func (r *SARIFReporter) Close() error {
	startTime := time.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	var resultsCount int
	for _, run := range r.log.Runs {
		resultsCount += len(run.Results)
	}
	r.logger.Info("Finalizing SARIF report",
		zap.Int("total_runs", len(r.log.Runs)),
		zap.Int("total_results", resultsCount),
	)

	encoder := json.NewEncoder(r.writer)
	encoder.SetIndent("", "  ") // Pretty print

	encodeErr := encoder.Encode(r.log)
	// Always attempt to close the writer, regardless of encoding success.
	closeErr := r.writer.Close()

	if encodeErr != nil {
		r.logger.Error("Failed to encode SARIF log to JSON", zap.Error(encodeErr))
		return fmt.Errorf("failed to encode SARIF output: %w", encodeErr)
	}
	if closeErr != nil {
		r.logger.Error("Failed to close output writer", zap.Error(closeErr))
		return fmt.Errorf("failed to close output writer: %w", closeErr)
	}

	r.logger.Info("Successfully wrote SARIF report",
		zap.Duration("duration_ms", time.Since(startTime)),
	)
	return nil
}

func (r *SARIFReporter) result(run *sarif.Run, rules map[ruleKey]int, issue schemas.Issue, state sarif.BaselineState) *sarif.Result {
	index := ensureRule(run, rules, issue)

	fpKey := FingerprintKey
	if issue.Fingerprint.Weak {
		fpKey = WeakFingerprintKey
	}

	props := sarif.PropertyBag{
		"severity": string(issue.Severity),
		"origin":   issue.Origin,
	}
	if issue.Age > 0 {
		props["age"] = issue.Age
	}
	if issue.FirstSeen != "" {
		props["firstSeen"] = issue.FirstSeen
	}
	if issue.Category != "" {
		props["category"] = issue.Category
	}

	return &sarif.Result{
		RuleID:              run.Tool.Driver.Rules[index].ID,
		RuleIndex:           &index,
		Message:             &sarif.Message{Text: sarif.String(issue.Message)},
		Level:               levelOf(issue.Severity),
		Locations:           locationsOf(issue),
		PartialFingerprints: map[string]string{fpKey: issue.Fingerprint.Value},
		BaselineState:       state,
		Properties:          props,
	}
}

// ensureRule returns the index of the rule for the issue type, adding it to
// the run on first use.
func ensureRule(run *sarif.Run, rules map[ruleKey]int, issue schemas.Issue) int {
	name := issue.Type
	if name == "" {
		name = issue.Category
	}
	key := ruleKey{origin: issue.Origin, name: name}
	if index, ok := rules[key]; ok {
		return index
	}

	id := sanitizeRuleID(issue.Origin, "unknown-tool") + "/" + sanitizeRuleID(name, "unnamed")
	rule := &sarif.ReportingDescriptor{
		ID:                   id,
		Name:                 sarif.String(name),
		ShortDescription:     &sarif.MultiformatMessageString{Text: sarif.String(name)},
		DefaultConfiguration: &sarif.ReportingConfiguration{Level: levelOf(issue.Severity)},
		Properties:           sarif.PropertyBag{"origin": issue.Origin},
	}
	if issue.Description != "" {
		rule.FullDescription = &sarif.MultiformatMessageString{Text: sarif.String(issue.Description)}
	}
	if issue.Category != "" {
		rule.Properties["category"] = issue.Category
	}

	run.Tool.Driver.Rules = append(run.Tool.Driver.Rules, rule)
	rules[key] = len(run.Tool.Driver.Rules) - 1
	return rules[key]
}

// sanitizeRuleID collapses unsafe characters to hyphens.
func sanitizeRuleID(name, fallback string) string {
	sanitized := strings.Trim(ruleIDSanitizer.ReplaceAllString(name, "-"), "-")
	if sanitized == "" {
		return fallback
	}
	return sanitized
}

func locationsOf(issue schemas.Issue) []*sarif.Location {
	if issue.FileName == schemas.UnknownFile {
		return nil
	}
	loc := &sarif.PhysicalLocation{
		ArtifactLocation: &sarif.ArtifactLocation{URI: sarif.String(issue.FileName)},
	}
	if issue.LineStart > 0 {
		loc.Region = &sarif.Region{
			StartLine:   issue.LineStart,
			StartColumn: issue.ColumnStart,
			EndLine:     issue.LineEnd,
			EndColumn:   issue.ColumnEnd,
		}
	}
	return []*sarif.Location{{PhysicalLocation: loc}}
}

// levelOf converts a normalized severity to the SARIF standard.
func levelOf(severity schemas.Severity) sarif.Level {
	switch severity {
	case schemas.SeverityError:
		return sarif.LevelError
	case schemas.SeverityWarningHigh, schemas.SeverityWarningNormal:
		return sarif.LevelWarning
	default:
		return sarif.LevelNote
	}
}

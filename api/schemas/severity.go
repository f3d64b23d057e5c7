package schemas

import "strings"

// -- Severity --

// Severity is the normalized severity of an issue. Every tool taxonomy is
// folded into these four levels by its parser.
type Severity string

// Constants defining the supported severity levels, most severe first.
const (
	SeverityError         Severity = "ERROR"          // Build breaking problems reported as errors.
	SeverityWarningHigh   Severity = "WARNING_HIGH"   // Warnings with a high priority.
	SeverityWarningNormal Severity = "WARNING_NORMAL" // Regular warnings. The fallback for unknown values.
	SeverityWarningLow    Severity = "WARNING_LOW"    // Low priority warnings, hints and suggestions.
)

// Severities lists all severities ordered from most to least severe.
var Severities = []Severity{
	SeverityError,
	SeverityWarningHigh,
	SeverityWarningNormal,
	SeverityWarningLow,
}

// severityAliases maps lower cased tool vocabulary onto the normalized levels.
var severityAliases = map[string]Severity{
	"error":          SeverityError,
	"fatal":          SeverityError,
	"critical":       SeverityError,
	"blocker":        SeverityError,
	"high":           SeverityWarningHigh,
	"warning_high":   SeverityWarningHigh,
	"major":          SeverityWarningHigh,
	"warning":        SeverityWarningNormal,
	"warn":           SeverityWarningNormal,
	"medium":         SeverityWarningNormal,
	"moderate":       SeverityWarningNormal,
	"normal":         SeverityWarningNormal,
	"warning_normal": SeverityWarningNormal,
	"low":            SeverityWarningLow,
	"warning_low":    SeverityWarningLow,
	"minor":          SeverityWarningLow,
	"info":           SeverityWarningLow,
	"informational":  SeverityWarningLow,
	"note":           SeverityWarningLow,
	"hint":           SeverityWarningLow,
	"suggestion":     SeverityWarningLow,
}

// ParseSeverity maps a tool supplied severity onto a normalized level.
// Matching is case insensitive and ignores surrounding whitespace. Unknown or
// empty values map to SeverityWarningNormal.
func ParseSeverity(value string) Severity {
	if sev, ok := severityAliases[strings.ToLower(strings.TrimSpace(value))]; ok {
		return sev
	}
	return SeverityWarningNormal
}

// IsValid reports whether s is one of the four normalized levels.
func (s Severity) IsValid() bool {
	return s.Rank() < len(Severities)
}

// Rank returns the position of s in Severities (0 is the most severe).
// Invalid severities rank after all valid ones.
func (s Severity) Rank() int {
	for i, sev := range Severities {
		if sev == s {
			return i
		}
	}
	return len(Severities)
}

// String implements fmt.Stringer.
func (s Severity) String() string {
	return string(s)
}

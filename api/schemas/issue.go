package schemas

import (
	"path"
	"strings"

	"github.com/google/uuid"
)

// -- Issue Schemas --

// UnknownFile is the file name used when a tool does not report a location.
const UnknownFile = "-"

// Fingerprint is the stable identity of an issue across builds. Weak
// fingerprints were computed without source context and do not survive line
// shifts, so they are matched with reduced confidence.
type Fingerprint struct {
	Value string `json:"value"`
	Weak  bool   `json:"weak,omitempty"`
}

// IsZero reports whether the fingerprint has not been assigned yet.
func (f Fingerprint) IsZero() bool {
	return f.Value == ""
}

// Issue is one finding reported by a static analysis tool. Issues are values:
// every transformation (normalization, fingerprinting, aggregation) returns a
// modified copy and leaves the original untouched.
type Issue struct {
	// ID distinguishes issue instances, including duplicates emitted by a tool.
	// It is not part of the issue identity across builds.
	ID string `json:"id"`

	FileName    string `json:"file_name"`
	LineStart   int    `json:"line_start"`
	LineEnd     int    `json:"line_end"`
	ColumnStart int    `json:"column_start"`
	ColumnEnd   int    `json:"column_end"`

	Severity Severity `json:"severity"`
	Category string   `json:"category,omitempty"`
	Type     string   `json:"type,omitempty"`

	Message     string `json:"message"`
	Description string `json:"description,omitempty"`

	// Fingerprint is assigned after parsing by the fingerprinter.
	Fingerprint Fingerprint `json:"fingerprint"`

	// Origin is the id of the tool that produced the issue.
	Origin string `json:"origin"`

	// Age is the number of consecutive builds the issue has been reported in.
	// Zero until the issue went through aggregation.
	Age int `json:"age,omitempty"`
	// FirstSeen is the build that introduced the issue.
	FirstSeen string `json:"first_seen,omitempty"`
}

// Normalized returns a copy of the issue that satisfies the model invariants:
// a clean, non-empty file name, non-negative positions, ordered line and
// column ranges, a valid severity and an ID.
func (i Issue) Normalized() Issue {
	i.FileName = NormalizeFileName(i.FileName)
	i.LineStart, i.LineEnd = normalizeRange(i.LineStart, i.LineEnd)
	i.ColumnStart, i.ColumnEnd = normalizeRange(i.ColumnStart, i.ColumnEnd)
	if !i.Severity.IsValid() {
		i.Severity = ParseSeverity(string(i.Severity))
	}
	i.Category = strings.TrimSpace(i.Category)
	i.Type = strings.TrimSpace(i.Type)
	i.Message = strings.TrimSpace(i.Message)
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return i
}

// Folder returns the directory part of the file name, or UnknownFile when the
// file has no directory.
func (i Issue) Folder() string {
	dir := path.Dir(i.FileName)
	if dir == "." || i.FileName == UnknownFile {
		return UnknownFile
	}
	return dir
}

// HasFingerprint reports whether a fingerprint has been assigned.
func (i Issue) HasFingerprint() bool {
	return !i.Fingerprint.IsZero()
}

// NormalizeFileName converts a tool reported path into the canonical form used
// for grouping: forward slashes, cleaned, without a leading "./".
func NormalizeFileName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return UnknownFile
	}
	name = strings.ReplaceAll(name, "\\", "/")
	cleaned := path.Clean(name)
	cleaned = strings.TrimPrefix(cleaned, "./")
	if cleaned == "." || cleaned == "" {
		return UnknownFile
	}
	return cleaned
}

func normalizeRange(start, end int) (int, int) {
	if start < 0 {
		start = 0
	}
	if end < 0 {
		end = 0
	}
	switch {
	case end == 0:
		end = start
	case start == 0:
		start = end
	case end < start:
		start, end = end, start
	}
	return start, end
}

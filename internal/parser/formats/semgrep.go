package formats

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

type semgrepPosition struct {
	Line int `json:"line"`
	Col  int `json:"col"`
}

type semgrepResult struct {
	CheckID string          `json:"check_id"`
	Path    string          `json:"path"`
	Start   semgrepPosition `json:"start"`
	End     semgrepPosition `json:"end"`
	Extra   struct {
		Message  string                 `json:"message"`
		Severity string                 `json:"severity"`
		Metadata map[string]interface{} `json:"metadata"`
	} `json:"extra"`
}

// ParseSemgrep reads the output of semgrep --json. Like ParseSarif it decodes
// results one at a time and keeps those completed before a syntax error.
func ParseSemgrep(content []byte) ([]schemas.Issue, error) {
	iter := jsoniter.ParseBytes(json, content)

	var out []schemas.Issue
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field != "results" {
			iter.Skip()
			continue
		}
		for iter.ReadArray() {
			var r semgrepResult
			iter.ReadVal(&r)
			if iter.Error != nil {
				return out, iter.Error
			}
			out = append(out, semgrepIssue(r))
		}
	}
	return out, iter.Error
}

func semgrepIssue(r semgrepResult) schemas.Issue {
	issue := schemas.Issue{
		FileName:    r.Path,
		LineStart:   r.Start.Line,
		LineEnd:     r.End.Line,
		ColumnStart: r.Start.Col,
		ColumnEnd:   r.End.Col,
		Type:        r.CheckID,
		Message:     r.Extra.Message,
	}
	if c, ok := r.Extra.Metadata["category"].(string); ok {
		issue.Category = c
	}

	switch strings.ToUpper(r.Extra.Severity) {
	case "ERROR":
		issue.Severity = schemas.SeverityError
	case "INFO":
		issue.Severity = schemas.SeverityWarningLow
	default:
		issue.Severity = schemas.SeverityWarningNormal
	}
	return issue
}

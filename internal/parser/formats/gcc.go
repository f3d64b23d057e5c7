package formats

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// gccLine matches gcc 4+ diagnostics: file:line[:col]: level: message [-Wflag]
var gccLine = regexp.MustCompile(`^(.+?):(\d+):(?:(\d+):)?\s*(warning|error|fatal error|note):\s*(.*?)(?:\s+\[(-W[^\]]+)\])?$`)

// ParseGcc reads gcc/g++ diagnostics. Notes are attached to the description
// of the diagnostic they follow rather than reported on their own.
func ParseGcc(content []byte) ([]schemas.Issue, error) {
	var out []schemas.Issue
	for _, line := range splitLines(content) {
		m := gccLine.FindStringSubmatch(strings.TrimRight(line, " \t"))
		if m == nil {
			continue
		}

		level := m[4]
		if level == "note" {
			if len(out) > 0 {
				prev := &out[len(out)-1]
				prev.Description = strings.TrimSpace(prev.Description + "\n" + m[5])
			}
			continue
		}

		issue := schemas.Issue{
			FileName:    m[1],
			LineStart:   atoi(m[2]),
			ColumnStart: atoi(m[3]),
			Message:     m[5],
			Type:        m[6],
		}
		if level == "warning" {
			issue.Severity = schemas.SeverityWarningNormal
			issue.Category = "Warning"
		} else {
			issue.Severity = schemas.SeverityError
			issue.Category = "Error"
		}
		out = append(out, issue)
	}
	return out, nil
}

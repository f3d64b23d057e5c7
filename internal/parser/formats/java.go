package formats

import (
	"regexp"
	"strings"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

var (
	// mavenLine matches maven-compiler-plugin output, e.g.
	// [WARNING] /src/Foo.java:[12,5] [deprecation] bar() has been deprecated
	mavenLine = regexp.MustCompile(`^\[(WARNING|ERROR)\]\s+(.+?\.java):\[(\d+)(?:,(\d+))?\]\s*(.*)$`)
	// javacLine matches plain javac output, e.g. Foo.java:12: warning: [unchecked] unchecked call
	javacLine = regexp.MustCompile(`^(.+?\.java):(\d+):\s*(warning|error):\s*(.*)$`)
	// javacCategory extracts the lint category prefix of a message.
	javacCategory = regexp.MustCompile(`^\[(\w[\w-]*)\]\s*(.*)$`)
)

// ParseJava reads javac and maven compiler output. Lines that are not warnings
// or errors are skipped, so a truncated log never fails.
func ParseJava(content []byte) ([]schemas.Issue, error) {
	var out []schemas.Issue
	for _, line := range splitLines(content) {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if m := mavenLine.FindStringSubmatch(line); m != nil {
			out = append(out, javaIssue(m[2], m[3], m[4], m[1], m[5]))
			continue
		}
		if m := javacLine.FindStringSubmatch(line); m != nil {
			out = append(out, javaIssue(m[1], m[2], "", m[3], m[4]))
		}
	}
	return out, nil
}

func javaIssue(file, line, column, level, message string) schemas.Issue {
	category := ""
	if m := javacCategory.FindStringSubmatch(message); m != nil {
		category, message = m[1], m[2]
	}

	severity := schemas.SeverityWarningNormal
	if strings.EqualFold(level, "error") {
		severity = schemas.SeverityError
	}

	return schemas.Issue{
		FileName:    file,
		LineStart:   atoi(line),
		ColumnStart: atoi(column),
		Severity:    severity,
		Category:    category,
		Message:     message,
	}
}

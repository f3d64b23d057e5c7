package issues

import (
	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// Key helpers for GroupBy.

func KeyFile(i schemas.Issue) string     { return i.FileName }
func KeyFolder(i schemas.Issue) string   { return i.Folder() }
func KeySeverity(i schemas.Issue) string { return string(i.Severity) }
func KeyCategory(i schemas.Issue) string { return i.Category }
func KeyType(i schemas.Issue) string     { return i.Type }
func KeyOrigin(i schemas.Issue) string   { return i.Origin }

// Qualified prefixes the result of key with the issue origin. It is used to
// keep tool taxonomies apart when a set mixes several tools.
func Qualified(key KeyFunc) KeyFunc {
	return func(i schemas.Issue) string {
		return i.Origin + ":" + key(i)
	}
}

// BySeverity matches issues with one of the given severities.
func BySeverity(severities ...schemas.Severity) Predicate {
	return func(i schemas.Issue) bool {
		for _, s := range severities {
			if i.Severity == s {
				return true
			}
		}
		return false
	}
}

// ByOrigin matches issues produced by the given tool.
func ByOrigin(origin string) Predicate {
	return func(i schemas.Issue) bool { return i.Origin == origin }
}

// ByCategory matches issues of the given category.
func ByCategory(category string) Predicate {
	return func(i schemas.Issue) bool { return i.Category == category }
}

// ByFile matches issues reported for the given (normalized) file.
func ByFile(name string) Predicate {
	name = schemas.NormalizeFileName(name)
	return func(i schemas.Issue) bool { return i.FileName == name }
}

// BySeverityThenLocation orders issues by severity, file, line and column.
func BySeverityThenLocation(a, b schemas.Issue) bool {
	if ra, rb := a.Severity.Rank(), b.Severity.Rank(); ra != rb {
		return ra < rb
	}
	if a.FileName != b.FileName {
		return a.FileName < b.FileName
	}
	if a.LineStart != b.LineStart {
		return a.LineStart < b.LineStart
	}
	return a.ColumnStart < b.ColumnStart
}

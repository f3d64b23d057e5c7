package formats

import (
	"strings"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// ParseCheckstyle reads Checkstyle XML reports. The check class in the source
// attribute supplies the type (Check suffix removed) and its package the
// category, e.g. com.puppycrawl.tools.checkstyle.checks.javadoc.JavadocPackageCheck
// becomes category "javadoc", type "JavadocPackage".
func ParseCheckstyle(content []byte) ([]schemas.Issue, error) {
	doc, err := readXML(content)

	var out []schemas.Issue
	for _, file := range doc.FindElements("//file") {
		name := file.SelectAttrValue("name", "")
		for _, e := range file.SelectElements("error") {
			severity := e.SelectAttrValue("severity", "")
			if strings.EqualFold(severity, "ignore") {
				continue
			}
			category, typ := checkstyleSource(e.SelectAttrValue("source", ""))
			out = append(out, schemas.Issue{
				FileName:    name,
				LineStart:   atoi(e.SelectAttrValue("line", "")),
				ColumnStart: atoi(e.SelectAttrValue("column", "")),
				Severity:    schemas.ParseSeverity(severity),
				Category:    category,
				Type:        typ,
				Message:     e.SelectAttrValue("message", ""),
			})
		}
	}
	return out, err
}

func checkstyleSource(source string) (category, typ string) {
	parts := strings.Split(source, ".")
	typ = strings.TrimSuffix(parts[len(parts)-1], "Check")
	if len(parts) > 1 {
		category = parts[len(parts)-2]
	}
	return category, typ
}

package formats

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// resharperIssueType is the <IssueType> declaration an <Issue> refers to.
type resharperIssueType struct {
	category    string
	description string
	severity    schemas.Severity
}

// ParseResharper reads ReSharper InspectCode XML reports:
//
//	<Report>
//	  <IssueTypes><IssueType Id="..." Category="..." Severity="WARNING"/></IssueTypes>
//	  <Issues><Project Name="..."><Issue TypeId="..." File="..." Line="17" Message="..."/></Project></Issues>
//	</Report>
func ParseResharper(content []byte) ([]schemas.Issue, error) {
	doc, err := readXML(content)

	types := make(map[string]resharperIssueType)
	for _, t := range doc.FindElements("//IssueTypes/IssueType") {
		types[t.SelectAttrValue("Id", "")] = resharperIssueType{
			category:    t.SelectAttrValue("Category", ""),
			description: t.SelectAttrValue("Description", ""),
			severity:    resharperSeverity(t.SelectAttrValue("Severity", "")),
		}
	}

	var out []schemas.Issue
	for _, project := range doc.FindElements("//Issues/Project") {
		for _, e := range project.SelectElements("Issue") {
			out = append(out, resharperIssue(e, types))
		}
	}
	return out, err
}

func resharperIssue(e *etree.Element, types map[string]resharperIssueType) schemas.Issue {
	typeID := e.SelectAttrValue("TypeId", "")
	issue := schemas.Issue{
		FileName:  e.SelectAttrValue("File", ""),
		LineStart: atoi(e.SelectAttrValue("Line", "")),
		Type:      typeID,
		Message:   e.SelectAttrValue("Message", ""),
		// InspectCode omits the severity of issues declared with a known type.
		Severity: schemas.SeverityWarningNormal,
	}
	if t, ok := types[typeID]; ok {
		issue.Category = t.category
		issue.Description = t.description
		issue.Severity = t.severity
	}
	if s := e.SelectAttrValue("Severity", ""); s != "" {
		issue.Severity = resharperSeverity(s)
	}
	// Line is missing for file-level issues; assume the first line.
	if issue.LineStart == 0 && issue.FileName != "" {
		issue.LineStart = 1
	}
	return issue
}

func resharperSeverity(s string) schemas.Severity {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "ERROR":
		return schemas.SeverityError
	case "WARNING":
		return schemas.SeverityWarningNormal
	default:
		return schemas.SeverityWarningLow
	}
}

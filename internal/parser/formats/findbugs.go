package formats

import (
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// ParseFindBugs reads FindBugs and SpotBugs XML reports. The bug priority
// (1 high, 2 normal, 3 low) gives the severity, the bug category and pattern
// give category and type:
//
//	<BugCollection>
//	  <BugInstance type="NP_NULL_ON_SOME_PATH" priority="1" category="CORRECTNESS">
//	    <LongMessage>...</LongMessage>
//	    <SourceLine start="10" end="12" sourcepath="com/acme/Foo.java" primary="true"/>
//	  </BugInstance>
//	</BugCollection>
//
// The primary source line of the bug is preferred over the method and class
// locations.
func ParseFindBugs(content []byte) ([]schemas.Issue, error) {
	doc, err := readXML(content)

	bugs := doc.FindElements("//BugInstance")
	var out []schemas.Issue
	for i, bug := range bugs {
		line := findBugsSourceLine(bug)
		// The last instance of a truncated report may have lost its location.
		if line == nil && err != nil && i == len(bugs)-1 {
			break
		}
		issue := schemas.Issue{
			Severity: findBugsSeverity(bug.SelectAttrValue("priority", "")),
			Category: bug.SelectAttrValue("category", ""),
			Type:     bug.SelectAttrValue("type", ""),
			Message:  findBugsMessage(bug),
		}
		if line != nil {
			issue.FileName = line.SelectAttrValue("sourcepath", line.SelectAttrValue("sourcefile", ""))
			issue.LineStart = atoi(line.SelectAttrValue("start", ""))
			issue.LineEnd = atoi(line.SelectAttrValue("end", ""))
		}
		out = append(out, issue)
	}
	return out, err
}

func findBugsSourceLine(bug *etree.Element) *etree.Element {
	direct := bug.SelectElements("SourceLine")
	for _, sl := range direct {
		if sl.SelectAttrValue("primary", "") == "true" {
			return sl
		}
	}
	if len(direct) > 0 {
		return direct[0]
	}
	for _, owner := range []string{"Method", "Class"} {
		for _, e := range bug.SelectElements(owner) {
			if sl := e.SelectElement("SourceLine"); sl != nil {
				return sl
			}
		}
	}
	return nil
}

func findBugsSeverity(priority string) schemas.Severity {
	switch strings.TrimSpace(priority) {
	case "1":
		return schemas.SeverityWarningHigh
	case "2":
		return schemas.SeverityWarningNormal
	default:
		return schemas.SeverityWarningLow
	}
}

func findBugsMessage(bug *etree.Element) string {
	for _, tag := range []string{"LongMessage", "ShortMessage"} {
		if e := bug.SelectElement(tag); e != nil {
			if text := strings.TrimSpace(e.Text()); text != "" {
				return text
			}
		}
	}
	return bug.SelectAttrValue("type", "")
}

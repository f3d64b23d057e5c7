package formats

import (
	"fmt"
	"strings"

	"github.com/beevik/etree"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

// Token counts at which a duplication is rated high or normal.
const (
	cpdHighTokens   = 100
	cpdNormalTokens = 50
)

// ParseCpd reads PMD CPD duplicated code reports:
//
//	<pmd-cpd>
//	  <duplication lines="10" tokens="36">
//	    <file line="33" path="src/Foo.java"/>
//	    <file line="49" path="src/Bar.java"/>
//	    <codefragment><![CDATA[...]]></codefragment>
//	  </duplication>
//	</pmd-cpd>
//
// Every occurrence of a block becomes one issue spanning the duplicated lines.
func ParseCpd(content []byte) ([]schemas.Issue, error) {
	doc, err := readXML(content)

	var out []schemas.Issue
	for _, dup := range doc.FindElements("//duplication") {
		lines := atoi(dup.SelectAttrValue("lines", ""))
		tokens := atoi(dup.SelectAttrValue("tokens", ""))

		var fragment string
		if cf := dup.SelectElement("codefragment"); cf != nil {
			fragment = strings.TrimSpace(cf.Text())
		}

		files := dup.SelectElements("file")
		for i, f := range files {
			start := atoi(f.SelectAttrValue("line", ""))
			end := start
			if lines > 0 && start > 0 {
				end = start + lines - 1
			}
			out = append(out, schemas.Issue{
				FileName:    f.SelectAttrValue("path", ""),
				LineStart:   start,
				LineEnd:     end,
				Severity:    cpdSeverity(tokens),
				Category:    "Duplicate Code",
				Type:        "CPD",
				Message:     cpdMessage(lines, tokens, files, i),
				Description: fragment,
			})
		}
	}
	return out, err
}

func cpdSeverity(tokens int) schemas.Severity {
	switch {
	case tokens >= cpdHighTokens:
		return schemas.SeverityWarningHigh
	case tokens >= cpdNormalTokens:
		return schemas.SeverityWarningNormal
	default:
		return schemas.SeverityWarningLow
	}
}

// cpdMessage names the other occurrences of the block.
func cpdMessage(lines, tokens int, files []*etree.Element, self int) string {
	var others []string
	for i, f := range files {
		if i == self {
			continue
		}
		others = append(others, fmt.Sprintf("%s:%s", f.SelectAttrValue("path", ""), f.SelectAttrValue("line", "")))
	}
	msg := fmt.Sprintf("Duplicated code: %d lines (%d tokens)", lines, tokens)
	if len(others) > 0 {
		msg += ", also in " + strings.Join(others, ", ")
	}
	return msg
}

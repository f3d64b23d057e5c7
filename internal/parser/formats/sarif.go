package formats

import (
	"strings"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/reporting/sarif"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ParseSarif reads SARIF 2.1.0 logs. Results are decoded one at a time, so a
// truncated log yields every result completed before the cut.
func ParseSarif(content []byte) ([]schemas.Issue, error) {
	iter := jsoniter.ParseBytes(json, content)

	var out []schemas.Issue
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		if field != "runs" {
			iter.Skip()
			continue
		}
		for iter.ReadArray() {
			out = append(out, readSarifRun(iter)...)
			if iter.Error != nil {
				return out, iter.Error
			}
		}
	}
	return out, iter.Error
}

// readSarifRun decodes one run. The driver rules may follow the results in
// the document, so results are converted once the run is complete.
func readSarifRun(iter *jsoniter.Iterator) []schemas.Issue {
	var (
		driver  sarif.ToolComponent
		results []*sarif.Result
	)
	for field := iter.ReadObject(); field != ""; field = iter.ReadObject() {
		switch field {
		case "tool":
			var tool sarif.Tool
			iter.ReadVal(&tool)
			if tool.Driver != nil {
				driver = *tool.Driver
			}
		case "results":
			for iter.ReadArray() {
				var r sarif.Result
				iter.ReadVal(&r)
				if iter.Error != nil {
					break
				}
				results = append(results, &r)
			}
		default:
			iter.Skip()
		}
		if iter.Error != nil {
			break
		}
	}

	rules := make(map[string]*sarif.ReportingDescriptor, len(driver.Rules))
	for _, rule := range driver.Rules {
		if rule != nil {
			rules[rule.ID] = rule
		}
	}

	out := make([]schemas.Issue, 0, len(results))
	for _, r := range results {
		out = append(out, sarifIssue(r, rules[r.RuleID]))
	}
	return out
}

func sarifIssue(r *sarif.Result, rule *sarif.ReportingDescriptor) schemas.Issue {
	issue := schemas.Issue{
		Type:    r.RuleID,
		Message: r.Message.String(),
	}

	level := r.Level
	if rule != nil {
		if level == "" && rule.DefaultConfiguration != nil {
			level = rule.DefaultConfiguration.Level
		}
		if c, ok := rule.Properties["category"].(string); ok {
			issue.Category = c
		}
		if rule.FullDescription != nil && rule.FullDescription.Text != nil {
			issue.Description = *rule.FullDescription.Text
		}
	}
	issue.Severity = sarifSeverity(level)

	if len(r.Locations) > 0 && r.Locations[0] != nil && r.Locations[0].PhysicalLocation != nil {
		loc := r.Locations[0].PhysicalLocation
		if loc.ArtifactLocation != nil && loc.ArtifactLocation.URI != nil {
			issue.FileName = strings.TrimPrefix(*loc.ArtifactLocation.URI, "file://")
		}
		if loc.Region != nil {
			issue.LineStart = loc.Region.StartLine
			issue.LineEnd = loc.Region.EndLine
			issue.ColumnStart = loc.Region.StartColumn
			issue.ColumnEnd = loc.Region.EndColumn
		}
	}
	return issue
}

func sarifSeverity(level sarif.Level) schemas.Severity {
	switch level {
	case sarif.LevelError:
		return schemas.SeverityError
	case sarif.LevelNote, sarif.LevelNone:
		return schemas.SeverityWarningLow
	default:
		// SARIF's default level is warning.
		return schemas.SeverityWarningNormal
	}
}

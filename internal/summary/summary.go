// Package summary turns an aggregation report into the count structures
// consumed by presentation layers.
package summary

import (
	"fmt"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
)

// InvariantViolation is the panic value raised when a report breaks one of
// the totals identities. It always indicates a programming error.
type InvariantViolation struct {
	Rule   string
	Detail string
}

func (v InvariantViolation) Error() string {
	return fmt.Sprintf("summary invariant %q violated: %s", v.Rule, v.Detail)
}

// Totals are the partition sizes of a report.
type Totals struct {
	Current     int `json:"current"`
	Reference   int `json:"reference"`
	New         int `json:"new"`
	Fixed       int `json:"fixed"`
	Outstanding int `json:"outstanding"`
	// Delta is new minus fixed; negative when the build improved.
	Delta int `json:"delta"`
}

// Summary holds the breakdowns of the current issues and of each partition.
type Summary struct {
	BuildID          string            `json:"build_id"`
	ReferenceBuildID string            `json:"reference_build_id,omitempty"`
	MultiTool        bool              `json:"multi_tool"`
	WeakMatches      int               `json:"weak_matches"`
	Totals           Totals            `json:"totals"`
	Current          aggregator.Counts `json:"current"`
	New              aggregator.Counts `json:"new"`
	Fixed            aggregator.Counts `json:"fixed"`
	Outstanding      aggregator.Counts `json:"outstanding"`
}

// Build computes the summary of r. It panics with InvariantViolation when the
// partitions of r do not add up.
func Build(r *aggregator.Report) Summary {
	if r == nil {
		panic(InvariantViolation{Rule: "report", Detail: "nil report"})
	}

	s := Summary{
		BuildID:          r.BuildID,
		ReferenceBuildID: r.ReferenceBuildID,
		MultiTool:        r.MultiTool,
		WeakMatches:      r.WeakMatches,
		Totals: Totals{
			Current:     r.Current.Size(),
			Reference:   r.Reference.Size(),
			New:         r.New.Size(),
			Fixed:       r.Fixed.Size(),
			Outstanding: r.Outstanding.Size(),
			Delta:       r.New.Size() - r.Fixed.Size(),
		},
		Current:     r.Counts,
		New:         aggregator.CountsOf(r.New, r.MultiTool),
		Fixed:       aggregator.CountsOf(r.Fixed, r.MultiTool),
		Outstanding: aggregator.CountsOf(r.Outstanding, r.MultiTool),
	}

	check(s.Totals.New+s.Totals.Outstanding == s.Totals.Current, "new+outstanding=current",
		"%d new + %d outstanding != %d current", s.Totals.New, s.Totals.Outstanding, s.Totals.Current)
	check(s.Totals.Fixed+s.Totals.Outstanding == s.Totals.Reference, "fixed+outstanding=reference",
		"%d fixed + %d outstanding != %d reference", s.Totals.Fixed, s.Totals.Outstanding, s.Totals.Reference)

	checkCounts("current", s.Current, s.Totals.Current)
	checkCounts("new", s.New, s.Totals.New)
	checkCounts("fixed", s.Fixed, s.Totals.Fixed)
	checkCounts("outstanding", s.Outstanding, s.Totals.Outstanding)
	return s
}

func checkCounts(partition string, c aggregator.Counts, size int) {
	check(c.Total == size, partition+".total", "total %d != size %d", c.Total, size)
	for name, m := range map[string]map[string]int{
		"severity": c.BySeverity,
		"category": c.ByCategory,
		"type":     c.ByType,
		"file":     c.ByFile,
		"folder":   c.ByFolder,
		"origin":   c.ByOrigin,
	} {
		sum := 0
		for _, n := range m {
			sum += n
		}
		check(sum == size, partition+".by_"+name, "counts sum to %d, want %d", sum, size)
	}
}

func check(ok bool, rule, format string, args ...interface{}) {
	if !ok {
		panic(InvariantViolation{Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}
}

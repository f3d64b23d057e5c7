package summary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

func mk(id, fp string, sev schemas.Severity, origin string) schemas.Issue {
	return schemas.Issue{
		ID: id, FileName: "pkg/" + id + ".go", LineStart: 1, LineEnd: 1,
		Severity: sev, Category: "lint", Origin: origin,
		Fingerprint: schemas.Fingerprint{Value: fp},
	}
}

func TestBuild(t *testing.T) {
	reference := issues.New(
		mk("A", "fa", schemas.SeverityError, "gcc"),
		mk("B", "fb", schemas.SeverityWarningNormal, "gcc"),
	)
	current := issues.New(
		mk("A", "fa", schemas.SeverityError, "gcc"),
		mk("C", "fc", schemas.SeverityError, "java"),
		mk("D", "fd", schemas.SeverityWarningLow, "java"),
	)
	r := aggregator.Aggregate(current, reference, aggregator.WithBuildID("b2"), aggregator.WithReferenceBuildID("b1"))

	s := Build(r)

	assert.Equal(t, Totals{Current: 3, Reference: 2, New: 2, Fixed: 1, Outstanding: 1, Delta: 1}, s.Totals)
	assert.Equal(t, "b2", s.BuildID)
	assert.Equal(t, "b1", s.ReferenceBuildID)
	assert.True(t, s.MultiTool)
	assert.Equal(t, map[string]int{"ERROR": 1, "WARNING_LOW": 1}, s.New.BySeverity)
	assert.Equal(t, map[string]int{"gcc:lint": 1}, s.Fixed.ByCategory, "partitions follow the report's multi-tool mode")
	assert.Equal(t, map[string]int{"gcc": 1}, s.Outstanding.ByOrigin)
	assert.Equal(t, r.Counts, s.Current)
}

func TestBuild_EmptyReport(t *testing.T) {
	s := Build(aggregator.Aggregate(issues.Set{}, issues.Set{}))
	assert.Equal(t, Totals{}, s.Totals)
	assert.Empty(t, s.Current.BySeverity)
}

func TestBuild_PanicsOnInvariantViolation(t *testing.T) {
	good := aggregator.Aggregate(
		issues.New(mk("A", "fa", schemas.SeverityError, "gcc")),
		issues.Set{},
	)

	t.Run("partition sizes", func(t *testing.T) {
		broken := *good
		broken.New = issues.Set{}

		var violation InvariantViolation
		func() {
			defer func() {
				r := recover()
				require.NotNil(t, r)
				var ok bool
				violation, ok = r.(InvariantViolation)
				require.True(t, ok, "panic value must be an InvariantViolation")
			}()
			Build(&broken)
		}()
		assert.Equal(t, "new+outstanding=current", violation.Rule)
		assert.Contains(t, violation.Error(), "0 new + 0 outstanding != 1 current")
	})

	t.Run("count maps", func(t *testing.T) {
		broken := *good
		broken.Counts.BySeverity = map[string]int{"ERROR": 5}
		assert.PanicsWithValue(t,
			InvariantViolation{Rule: "current.by_severity", Detail: "counts sum to 5, want 1"},
			func() { Build(&broken) })
	})

	t.Run("reference side", func(t *testing.T) {
		broken := *good
		broken.Reference = issues.New(mk("Z", "fz", schemas.SeverityError, "gcc"))
		assert.Panics(t, func() { Build(&broken) })
	})

	t.Run("nil report", func(t *testing.T) {
		assert.Panics(t, func() { Build(nil) })
	})
}

// Package aggregator compares the issues of a build with those of its
// reference build.
package aggregator

import (
	"time"

	"github.com/google/uuid"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/fingerprint"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

// Report is the result of one aggregation. It is not modified after Aggregate
// returns.
type Report struct {
	BuildID          string    `json:"build_id"`
	ReferenceBuildID string    `json:"reference_build_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`

	// Current holds the issues of the build with age and first-seen set.
	Current   issues.Set `json:"current"`
	Reference issues.Set `json:"reference"`

	New         issues.Set `json:"new"`
	Fixed       issues.Set `json:"fixed"`
	Outstanding issues.Set `json:"outstanding"`

	Counts Counts `json:"counts"`

	// MultiTool is set when the current issues come from more than one tool;
	// category and type counts are then keyed by "origin:value".
	MultiTool bool `json:"multi_tool"`
	// WeakMatches is the number of outstanding issues matched on a weak fingerprint.
	WeakMatches int `json:"weak_matches"`
}

type options struct {
	buildID          string
	referenceBuildID string
	strict           bool
	now              func() time.Time
}

// Option configures Aggregate.
type Option func(*options)

// WithBuildID sets the id of the current build. Without it a random id is used.
func WithBuildID(id string) Option {
	return func(o *options) { o.buildID = id }
}

// WithReferenceBuildID sets the id of the reference build. It becomes the
// first-seen build of reference issues that do not carry one.
func WithReferenceBuildID(id string) Option {
	return func(o *options) { o.referenceBuildID = id }
}

// WithStrictMatching treats every issue with a weak fingerprint as new.
func WithStrictMatching() Option {
	return func(o *options) { o.strict = true }
}

// WithClock overrides the report creation time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// matchKey separates weak and strong fingerprints so they never match each other.
type matchKey struct {
	value string
	weak  bool
}

func keyOf(i schemas.Issue) matchKey {
	return matchKey{value: i.Fingerprint.Value, weak: i.Fingerprint.Weak}
}

// Aggregate partitions current into new and outstanding issues and reference
// into fixed and outstanding ones. It never fails; issues without a
// fingerprint get a weak one.
//
// Each reference issue is claimed by at most one current issue, in parse
// order. Duplicates beyond the number of matching reference issues are new.
func Aggregate(current, reference issues.Set, opts ...Option) *Report {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.buildID == "" {
		o.buildID = uuid.NewString()
	}

	current = ensureFingerprints(current)
	reference = ensureFingerprints(reference)

	// Queue of unclaimed reference positions per fingerprint, in parse order.
	index := make(map[matchKey][]int, reference.Size())
	reference.Each(func(pos int, i schemas.Issue) {
		k := keyOf(i)
		index[k] = append(index[k], pos)
	})
	claimed := make([]bool, reference.Size())

	var (
		updated     = make([]schemas.Issue, 0, current.Size())
		newIssues   []schemas.Issue
		outstanding []schemas.Issue
		weakMatches int
	)
	current.Each(func(_ int, issue schemas.Issue) {
		k := keyOf(issue)
		queue := index[k]
		if len(queue) == 0 || (o.strict && k.weak) {
			issue.Age = 1
			issue.FirstSeen = o.buildID
			newIssues = append(newIssues, issue)
			updated = append(updated, issue)
			return
		}

		pos := queue[0]
		index[k] = queue[1:]
		claimed[pos] = true
		ref := reference.At(pos)

		issue.Age = max(ref.Age, 1) + 1
		issue.FirstSeen = ref.FirstSeen
		if issue.FirstSeen == "" {
			issue.FirstSeen = o.referenceBuildID
		}
		if k.weak {
			weakMatches++
		}
		outstanding = append(outstanding, issue)
		updated = append(updated, issue)
	})

	var fixed []schemas.Issue
	reference.Each(func(pos int, issue schemas.Issue) {
		if !claimed[pos] {
			fixed = append(fixed, issue)
		}
	})

	result := issues.New(updated...)
	multi := len(result.Origins()) > 1
	return &Report{
		BuildID:          o.buildID,
		ReferenceBuildID: o.referenceBuildID,
		CreatedAt:        o.now().UTC(),
		Current:          result,
		Reference:        reference,
		New:              issues.New(newIssues...),
		Fixed:            issues.New(fixed...),
		Outstanding:      issues.New(outstanding...),
		Counts:           CountsOf(result, multi),
		MultiTool:        multi,
		WeakMatches:      weakMatches,
	}
}

func ensureFingerprints(set issues.Set) issues.Set {
	missing := set.Filter(func(i schemas.Issue) bool { return !i.HasFingerprint() })
	if missing.IsEmpty() {
		return set
	}
	return set.Map(func(i schemas.Issue) schemas.Issue {
		if !i.HasFingerprint() {
			i.Fingerprint = fingerprint.Weak(i)
		}
		return i
	})
}

// Package issues provides Set, the read-only ordered collection of issues
// produced by one analysis run, together with its query helpers.
package issues

import (
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/issuetrail/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Set is an immutable, ordered sequence of issues. Insertion order is the
// parse order and is never changed by any operation; views such as Filter or
// Sorted return new sets. The zero value is an empty set.
type Set struct {
	issues []schemas.Issue
}

// Predicate selects issues in Filter.
type Predicate func(schemas.Issue) bool

// KeyFunc derives a grouping key from an issue.
type KeyFunc func(schemas.Issue) string

// New creates a set holding a copy of the given issues.
func New(issues ...schemas.Issue) Set {
	if len(issues) == 0 {
		return Set{}
	}
	owned := make([]schemas.Issue, len(issues))
	copy(owned, issues)
	return Set{issues: owned}
}

// Concat returns a set with the issues of all given sets, in argument order.
func Concat(sets ...Set) Set {
	total := 0
	for _, s := range sets {
		total += s.Size()
	}
	if total == 0 {
		return Set{}
	}
	merged := make([]schemas.Issue, 0, total)
	for _, s := range sets {
		merged = append(merged, s.issues...)
	}
	return Set{issues: merged}
}

// Size returns the number of issues.
func (s Set) Size() int { return len(s.issues) }

// IsEmpty reports whether the set has no issues.
func (s Set) IsEmpty() bool { return len(s.issues) == 0 }

// At returns the issue at position i. It panics when i is out of range.
func (s Set) At(i int) schemas.Issue { return s.issues[i] }

// All returns a copy of the issues in insertion order.
func (s Set) All() []schemas.Issue {
	out := make([]schemas.Issue, len(s.issues))
	copy(out, s.issues)
	return out
}

// Each calls fn for every issue in insertion order.
func (s Set) Each(fn func(int, schemas.Issue)) {
	for i, issue := range s.issues {
		fn(i, issue)
	}
}

// Map returns a new set with fn applied to every issue, keeping the order.
func (s Set) Map(fn func(schemas.Issue) schemas.Issue) Set {
	if s.IsEmpty() {
		return Set{}
	}
	out := make([]schemas.Issue, len(s.issues))
	for i, issue := range s.issues {
		out[i] = fn(issue)
	}
	return Set{issues: out}
}

// Filter returns the issues matching pred, in insertion order.
func (s Set) Filter(pred Predicate) Set {
	var out []schemas.Issue
	for _, issue := range s.issues {
		if pred(issue) {
			out = append(out, issue)
		}
	}
	return Set{issues: out}
}

// GroupBy partitions the set by key. Each group keeps insertion order.
func (s Set) GroupBy(key KeyFunc) Groups {
	g := Groups{groups: make(map[string][]schemas.Issue)}
	for _, issue := range s.issues {
		k := key(issue)
		if _, ok := g.groups[k]; !ok {
			g.order = append(g.order, k)
		}
		g.groups[k] = append(g.groups[k], issue)
	}
	return g
}

// Sorted returns a copy ordered by less. The sort is stable, so issues that
// compare equal keep their insertion order.
func (s Set) Sorted(less func(a, b schemas.Issue) bool) Set {
	out := s.All()
	sort.SliceStable(out, func(i, j int) bool { return less(out[i], out[j]) })
	return Set{issues: out}
}

// Page returns at most limit issues starting at offset. A non-positive limit
// returns everything from offset.
func (s Set) Page(offset, limit int) Set {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(s.issues) {
		return Set{}
	}
	end := len(s.issues)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return New(s.issues[offset:end]...)
}

// Origins returns the distinct issue origins in order of first appearance.
func (s Set) Origins() []string {
	seen := make(map[string]struct{})
	var origins []string
	for _, issue := range s.issues {
		if _, ok := seen[issue.Origin]; ok {
			continue
		}
		seen[issue.Origin] = struct{}{}
		origins = append(origins, issue.Origin)
	}
	return origins
}

// MarshalJSON encodes the set as a JSON array.
func (s Set) MarshalJSON() ([]byte, error) {
	if s.issues == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.issues)
}

// UnmarshalJSON decodes a JSON array of issues.
func (s *Set) UnmarshalJSON(data []byte) error {
	var list []schemas.Issue
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*s = New(list...)
	return nil
}

// Groups is the result of Set.GroupBy.
type Groups struct {
	groups map[string][]schemas.Issue
	order  []string
}

// Len returns the number of groups.
func (g Groups) Len() int { return len(g.order) }

// Keys returns the group keys in ascending order.
func (g Groups) Keys() []string {
	keys := make([]string, len(g.order))
	copy(keys, g.order)
	sort.Strings(keys)
	return keys
}

// Get returns the group for key; missing keys yield an empty set.
func (g Groups) Get(key string) Set {
	return New(g.groups[key]...)
}

// Counts returns the size of every group.
func (g Groups) Counts() map[string]int {
	counts := make(map[string]int, len(g.groups))
	for k, v := range g.groups {
		counts[k] = len(v)
	}
	return counts
}

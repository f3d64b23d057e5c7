// Package store persists aggregation reports so later builds can use them as
// their reference.
package store

import (
	"context"
	"errors"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

// ErrBuildNotFound is returned when no report was saved for a build id.
var ErrBuildNotFound = errors.New("build not found")

// Store is a build history keyed by build id.
type Store interface {
	// SaveReport stores the current issues of r under r.BuildID, replacing
	// any earlier report for the same build.
	SaveReport(ctx context.Context, r *aggregator.Report) error
	// LoadIssues returns the issues saved for buildID, with their ages.
	LoadIssues(ctx context.Context, buildID string) (issues.Set, error)
	// LatestBuild returns the id of the most recent report.
	LatestBuild(ctx context.Context) (string, error)
}

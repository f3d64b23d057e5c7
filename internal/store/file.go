package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const latestFile = "LATEST"

// buildDocument is the on-disk form of one build.
type buildDocument struct {
	BuildID          string     `json:"build_id"`
	ReferenceBuildID string     `json:"reference_build_id,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	MultiTool        bool       `json:"multi_tool"`
	WeakMatches      int        `json:"weak_matches"`
	Issues           issues.Set `json:"issues"`
}

// FileStore keeps one JSON document per build in a directory. Writes go to a
// temporary file that is renamed into place, so readers never see a partial
// document.
type FileStore struct {
	fs  afero.Fs
	dir string
	log *zap.Logger
}

// NewFileStore creates the directory if needed.
func NewFileStore(fs afero.Fs, dir string, logger *zap.Logger) (*FileStore, error) {
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create history directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{fs: fs, dir: dir, log: logger.Named("store")}, nil
}

func validBuildID(id string) error {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) || id == latestFile {
		return fmt.Errorf("invalid build id %q", id)
	}
	return nil
}

func (s *FileStore) pathOf(buildID string) string {
	return filepath.Join(s.dir, buildID+".json")
}

// SaveReport implements Store.
func (s *FileStore) SaveReport(ctx context.Context, r *aggregator.Report) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := validBuildID(r.BuildID); err != nil {
		return err
	}

	data, err := json.MarshalIndent(buildDocument{
		BuildID:          r.BuildID,
		ReferenceBuildID: r.ReferenceBuildID,
		CreatedAt:        r.CreatedAt.UTC(),
		MultiTool:        r.MultiTool,
		WeakMatches:      r.WeakMatches,
		Issues:           r.Current,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode build %s: %w", r.BuildID, err)
	}

	if err := s.writeAtomic(s.pathOf(r.BuildID), data); err != nil {
		return err
	}
	if err := s.writeAtomic(filepath.Join(s.dir, latestFile), []byte(r.BuildID)); err != nil {
		return err
	}
	s.log.Debug("Saved build report.", zap.String("build_id", r.BuildID), zap.Int("issues", r.Current.Size()))
	return nil
}

func (s *FileStore) writeAtomic(target string, data []byte) error {
	tmp, err := afero.TempFile(s.fs, s.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := tmp.Close(); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", target, err)
	}
	if err := s.fs.Rename(tmpName, target); err != nil {
		s.fs.Remove(tmpName)
		return fmt.Errorf("failed to move %s into place: %w", target, err)
	}
	return nil
}

// LoadIssues implements Store.
func (s *FileStore) LoadIssues(ctx context.Context, buildID string) (issues.Set, error) {
	if err := ctx.Err(); err != nil {
		return issues.Set{}, err
	}
	if err := validBuildID(buildID); err != nil {
		return issues.Set{}, err
	}

	data, err := afero.ReadFile(s.fs, s.pathOf(buildID))
	if err != nil {
		if os.IsNotExist(err) {
			return issues.Set{}, fmt.Errorf("%w: %s", ErrBuildNotFound, buildID)
		}
		return issues.Set{}, fmt.Errorf("failed to read build %s: %w", buildID, err)
	}

	var doc buildDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return issues.Set{}, fmt.Errorf("failed to decode build %s: %w", buildID, err)
	}
	return doc.Issues, nil
}

// LatestBuild implements Store.
func (s *FileStore) LatestBuild(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := afero.ReadFile(s.fs, filepath.Join(s.dir, latestFile))
	if err != nil {
		if os.IsNotExist(err) {
			return "", ErrBuildNotFound
		}
		return "", fmt.Errorf("failed to read latest build: %w", err)
	}
	id := strings.TrimSpace(string(data))
	if id == "" {
		return "", ErrBuildNotFound
	}
	return id, nil
}

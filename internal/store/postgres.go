package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/xkilldash9x/issuetrail/api/schemas"
	"github.com/xkilldash9x/issuetrail/internal/aggregator"
	"github.com/xkilldash9x/issuetrail/internal/issues"
)

// DBPool is an interface that abstracts the pgxpool.Pool to allow for mocking in tests.
type DBPool interface {
	Ping(ctx context.Context) error
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const (
	sqlCreateSchema = `
        CREATE TABLE IF NOT EXISTS builds (
            id TEXT PRIMARY KEY,
            reference_id TEXT NOT NULL DEFAULT '',
            created_at TIMESTAMPTZ NOT NULL,
            multi_tool BOOLEAN NOT NULL DEFAULT FALSE,
            weak_matches INTEGER NOT NULL DEFAULT 0,
            issue_count INTEGER NOT NULL DEFAULT 0
        );
        CREATE TABLE IF NOT EXISTS issues (
            build_id TEXT NOT NULL REFERENCES builds (id) ON DELETE CASCADE,
            position INTEGER NOT NULL,
            id TEXT NOT NULL,
            file_name TEXT NOT NULL,
            line_start INTEGER NOT NULL,
            line_end INTEGER NOT NULL,
            column_start INTEGER NOT NULL,
            column_end INTEGER NOT NULL,
            severity TEXT NOT NULL,
            category TEXT NOT NULL,
            type TEXT NOT NULL,
            message TEXT NOT NULL,
            description TEXT NOT NULL,
            fingerprint TEXT NOT NULL,
            weak BOOLEAN NOT NULL,
            origin TEXT NOT NULL,
            age INTEGER NOT NULL,
            first_seen TEXT NOT NULL,
            PRIMARY KEY (build_id, position)
        );
        CREATE INDEX IF NOT EXISTS builds_created_at_idx ON builds (created_at DESC);
    `
	sqlUpsertBuild = `
        INSERT INTO builds (id, reference_id, created_at, multi_tool, weak_matches, issue_count)
        VALUES ($1, $2, $3, $4, $5, $6)
        ON CONFLICT (id) DO UPDATE SET
            reference_id = EXCLUDED.reference_id,
            created_at = EXCLUDED.created_at,
            multi_tool = EXCLUDED.multi_tool,
            weak_matches = EXCLUDED.weak_matches,
            issue_count = EXCLUDED.issue_count;
    `
	sqlDeleteIssues = `DELETE FROM issues WHERE build_id = $1;`
	sqlBuildExists  = `SELECT EXISTS (SELECT 1 FROM builds WHERE id = $1);`
	sqlSelectIssues = `
        SELECT id, file_name, line_start, line_end, column_start, column_end, severity,
               category, type, message, description, fingerprint, weak, origin, age, first_seen
        FROM issues
        WHERE build_id = $1
        ORDER BY position ASC;
    `
	sqlLatestBuild = `SELECT id FROM builds ORDER BY created_at DESC LIMIT 1;`
)

var issueColumns = []string{
	"build_id", "position", "id", "file_name", "line_start", "line_end", "column_start", "column_end",
	"severity", "category", "type", "message", "description", "fingerprint", "weak", "origin", "age", "first_seen",
}

// PostgresStore keeps the build history in PostgreSQL.
type PostgresStore struct {
	pool DBPool
	log  *zap.Logger
}

// NewPostgres creates a new store instance and verifies the connection.
func NewPostgres(ctx context.Context, pool DBPool, logger *zap.Logger) (*PostgresStore, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostgresStore{
		pool: pool,
		log:  logger.Named("store"),
	}, nil
}

// EnsureSchema creates the tables if they do not exist yet.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, sqlCreateSchema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// SaveReport implements Store. The build row and its issues are written in one
// transaction; issues are bulk loaded with COPY.
func (s *PostgresStore) SaveReport(ctx context.Context, r *aggregator.Report) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		// Rollback after a successful commit returns pgx.ErrTxClosed.
		if rollbackErr := tx.Rollback(ctx); rollbackErr != nil && !errors.Is(rollbackErr, pgx.ErrTxClosed) {
			s.log.Error("Failed to rollback transaction", zap.Error(rollbackErr))
		}
	}()

	_, err = tx.Exec(ctx, sqlUpsertBuild,
		r.BuildID, r.ReferenceBuildID, r.CreatedAt.UTC(), r.MultiTool, r.WeakMatches, r.Current.Size())
	if err != nil {
		return fmt.Errorf("failed to save build %s: %w", r.BuildID, err)
	}
	if _, err := tx.Exec(ctx, sqlDeleteIssues, r.BuildID); err != nil {
		return fmt.Errorf("failed to clear issues of build %s: %w", r.BuildID, err)
	}

	if !r.Current.IsEmpty() {
		if err := s.copyIssues(ctx, tx, r.BuildID, r.Current); err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	s.log.Debug("Saved build report.", zap.String("build_id", r.BuildID), zap.Int("issues", r.Current.Size()))
	return nil
}

func (s *PostgresStore) copyIssues(ctx context.Context, tx pgx.Tx, buildID string, set issues.Set) error {
	rows := make([][]interface{}, 0, set.Size())
	set.Each(func(pos int, i schemas.Issue) {
		rows = append(rows, []interface{}{
			buildID, pos, i.ID, i.FileName,
			i.LineStart, i.LineEnd, i.ColumnStart, i.ColumnEnd,
			string(i.Severity), i.Category, i.Type, i.Message, i.Description,
			i.Fingerprint.Value, i.Fingerprint.Weak, i.Origin, i.Age, i.FirstSeen,
		})
	})

	copyCount, err := tx.CopyFrom(ctx, pgx.Identifier{"issues"}, issueColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return fmt.Errorf("failed to copy issues: %w", err)
	}
	if int(copyCount) != len(rows) {
		return fmt.Errorf("mismatch in copied issues count: expected %d, got %d", len(rows), copyCount)
	}
	return nil
}

// LoadIssues implements Store.
func (s *PostgresStore) LoadIssues(ctx context.Context, buildID string) (issues.Set, error) {
	var exists bool
	if err := s.pool.QueryRow(ctx, sqlBuildExists, buildID).Scan(&exists); err != nil {
		return issues.Set{}, fmt.Errorf("failed to look up build %s: %w", buildID, err)
	}
	if !exists {
		return issues.Set{}, fmt.Errorf("%w: %s", ErrBuildNotFound, buildID)
	}

	rows, err := s.pool.Query(ctx, sqlSelectIssues, buildID)
	if err != nil {
		return issues.Set{}, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	var list []schemas.Issue
	for rows.Next() {
		var (
			i        schemas.Issue
			severity string
		)
		err := rows.Scan(
			&i.ID, &i.FileName, &i.LineStart, &i.LineEnd, &i.ColumnStart, &i.ColumnEnd,
			&severity, &i.Category, &i.Type, &i.Message, &i.Description,
			&i.Fingerprint.Value, &i.Fingerprint.Weak, &i.Origin, &i.Age, &i.FirstSeen,
		)
		if err != nil {
			return issues.Set{}, fmt.Errorf("failed to scan issue row: %w", err)
		}
		i.Severity = schemas.ParseSeverity(severity)
		list = append(list, i)
	}
	if err := rows.Err(); err != nil {
		return issues.Set{}, fmt.Errorf("error during row iteration: %w", err)
	}
	return issues.New(list...), nil
}

// LatestBuild implements Store.
func (s *PostgresStore) LatestBuild(ctx context.Context) (string, error) {
	var id string
	if err := s.pool.QueryRow(ctx, sqlLatestBuild).Scan(&id); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", ErrBuildNotFound
		}
		return "", fmt.Errorf("failed to query latest build: %w", err)
	}
	return id, nil
}

// Package db records training runs in SQLite. It never stores inference
// inputs.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// ErrNoRuns is returned by LatestRun on an empty log.
var ErrNoRuns = errors.New("no training runs recorded")

const schema = `
    CREATE TABLE IF NOT EXISTS training_runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        artifact_path TEXT NOT NULL,
        artifact_sha256 TEXT NOT NULL,
        row_count INTEGER NOT NULL,
        positives INTEGER NOT NULL,
        features INTEGER NOT NULL,
        cv_mean REAL,
        cv_std REAL,
        folds INTEGER,
        repeats INTEGER,
        seed INTEGER,
        trained_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_training_runs_trained_at ON training_runs (trained_at);
    `

// Run is one completed training run.
type Run struct {
	ID             int64     `json:"id"`
	ArtifactPath   string    `json:"artifact_path"`
	ArtifactSHA256 string    `json:"artifact_sha256"`
	Rows           int       `json:"rows"`
	Positives      int       `json:"positives"`
	Features       int       `json:"features"`
	CVMean         float64   `json:"cv_mean"`
	CVStd          float64   `json:"cv_std"`
	Folds          int       `json:"folds"`
	Repeats        int       `json:"repeats"`
	Seed           int64     `json:"seed"`
	TrainedAt      time.Time `json:"trained_at"`
}

// RunLog is a SQLite-backed log of training runs.
type RunLog struct {
	db *sql.DB
}

// OpenRunLog opens or creates the log at path.
func OpenRunLog(path string) (*RunLog, error) {
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := database.Exec(schema); err != nil {
		database.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &RunLog{db: database}, nil
}

// Close releases the database.
func (l *RunLog) Close() error {
	return l.db.Close()
}

// RecordRun appends a run and returns its ID.
func (l *RunLog) RecordRun(ctx context.Context, run Run) (int64, error) {
	if run.ArtifactPath == "" {
		return 0, errors.New("artifact path required")
	}
	if run.TrainedAt.IsZero() {
		run.TrainedAt = time.Now()
	}

	res, err := l.db.ExecContext(ctx, `
        INSERT INTO training_runs (
            artifact_path, artifact_sha256, row_count, positives, features,
            cv_mean, cv_std, folds, repeats, seed, trained_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.ArtifactPath,
		run.ArtifactSHA256,
		run.Rows,
		run.Positives,
		run.Features,
		run.CVMean,
		run.CVStd,
		run.Folds,
		run.Repeats,
		run.Seed,
		run.TrainedAt.UTC(),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LatestRun returns the most recently trained run.
func (l *RunLog) LatestRun(ctx context.Context) (Run, error) {
	runs, err := l.ListRuns(ctx, 1)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, ErrNoRuns
	}
	return runs[0], nil
}

// ListRuns returns up to limit runs, newest first. limit <= 0 returns all.
func (l *RunLog) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := l.db.QueryContext(ctx, `
        SELECT id, artifact_path, artifact_sha256, row_count, positives, features,
               cv_mean, cv_std, folds, repeats, seed, trained_at
        FROM training_runs
        ORDER BY trained_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		var cvMean, cvStd sql.NullFloat64
		var folds, repeats, seed sql.NullInt64
		err := rows.Scan(&run.ID, &run.ArtifactPath, &run.ArtifactSHA256, &run.Rows, &run.Positives, &run.Features,
			&cvMean, &cvStd, &folds, &repeats, &seed, &run.TrainedAt)
		if err != nil {
			return nil, err
		}
		run.CVMean = cvMean.Float64
		run.CVStd = cvStd.Float64
		run.Folds = int(folds.Int64)
		run.Repeats = int(repeats.Int64)
		run.Seed = seed.Int64
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

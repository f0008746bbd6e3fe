package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"vehicle-counter-go/internal/models"
)

// ErrRunNotFound is returned when no run matches the requested id
var ErrRunNotFound = errors.New("run not found")

// fixed width so generated_at sorts as text
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// DefaultListLimit caps ListRuns when no limit is given
const DefaultListLimit = 50

// DB is the run history database
type DB struct {
	*sql.DB
}

// NewDB opens (or creates) the run history at path
func NewDB(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	// a single connection keeps ":memory:" databases shared across calls
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id                TEXT PRIMARY KEY,
			video             TEXT NOT NULL,
			model             TEXT,
			line_y            DOUBLE,
			line_y_px         DOUBLE,
			margin_px         DOUBLE,
			invert_directions INTEGER,
			anchor            TEXT,
			frames            BIGINT,
			total             BIGINT,
			total_in          BIGINT,
			total_out         BIGINT,
			counts_json       TEXT NOT NULL,
			counted_track_ids TEXT NOT NULL,
			generated_at      TEXT NOT NULL,
			duration_ms       BIGINT
		);
		CREATE INDEX IF NOT EXISTS idx_runs_generated_at ON runs (generated_at);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db}, nil
}

// CreateRun stores a finished run
func (db *DB) CreateRun(report models.Report) error {
	if report.RunID == "" {
		return errors.New("run id is required")
	}

	countsJSON, err := json.Marshal(report.Counts)
	if err != nil {
		return fmt.Errorf("failed to encode counts: %w", err)
	}
	ids := report.CountedTrackIDs
	if ids == nil {
		ids = []int64{}
	}
	idsJSON, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("failed to encode track ids: %w", err)
	}

	_, err = db.Exec(`
		INSERT INTO runs (
			id, video, model, line_y, line_y_px, margin_px, invert_directions, anchor,
			frames, total, total_in, total_out, counts_json, counted_track_ids,
			generated_at, duration_ms
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		report.RunID,
		report.Video,
		report.Model,
		report.LineY,
		report.LineYPx,
		report.MarginPx,
		report.InvertDirections,
		string(report.AnchorMode),
		report.FramesProcessed,
		report.Counts.Total,
		report.Counts.In.Total,
		report.Counts.Out.Total,
		string(countsJSON),
		string(idsJSON),
		report.GeneratedAt.UTC().Format(timeLayout),
		report.DurationMs,
	)
	if err != nil {
		return fmt.Errorf("failed to insert run %s: %w", report.RunID, err)
	}
	return nil
}

const selectRun = `
	SELECT id, video, model, line_y, line_y_px, margin_px, invert_directions, anchor,
		frames, counts_json, counted_track_ids, generated_at, duration_ms
	FROM runs`

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRun(row rowScanner) (models.Report, error) {
	var (
		r           models.Report
		anchor      string
		invert      bool
		countsJSON  string
		idsJSON     string
		generatedAt string
	)

	err := row.Scan(
		&r.RunID, &r.Video, &r.Model, &r.LineY, &r.LineYPx, &r.MarginPx, &invert, &anchor,
		&r.FramesProcessed, &countsJSON, &idsJSON, &generatedAt, &r.DurationMs,
	)
	if err != nil {
		return r, err
	}

	r.InvertDirections = invert
	r.AnchorMode = models.AnchorMode(anchor)
	if err := json.Unmarshal([]byte(countsJSON), &r.Counts); err != nil {
		return r, fmt.Errorf("failed to decode counts of run %s: %w", r.RunID, err)
	}
	if err := json.Unmarshal([]byte(idsJSON), &r.CountedTrackIDs); err != nil {
		return r, fmt.Errorf("failed to decode track ids of run %s: %w", r.RunID, err)
	}
	if r.GeneratedAt, err = time.Parse(timeLayout, generatedAt); err != nil {
		return r, fmt.Errorf("failed to parse generated_at of run %s: %w", r.RunID, err)
	}
	return r, nil
}

// GetRun returns the run with the given id
func (db *DB) GetRun(id string) (models.Report, error) {
	r, err := scanRun(db.QueryRow(selectRun+` WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return r, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return r, err
}

// LatestRun returns the most recently generated run
func (db *DB) LatestRun() (models.Report, error) {
	r, err := scanRun(db.QueryRow(selectRun + ` ORDER BY generated_at DESC, rowid DESC LIMIT 1`))
	if errors.Is(err, sql.ErrNoRows) {
		return r, ErrRunNotFound
	}
	return r, err
}

// ListRuns returns up to limit runs, newest first
func (db *DB) ListRuns(limit int) ([]models.Report, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	rows, err := db.Query(selectRun+` ORDER BY generated_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := []models.Report{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	return runs, nil
}

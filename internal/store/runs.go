// Package store persists run manifests to SQLite so operators can audit
// partial failures after the fact.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vocallocal/robust-chunker/internal/pipeline"
	"github.com/vocallocal/robust-chunker/pkg/logger"
)

// RunRecord summarizes one persisted pipeline run.
type RunRecord struct {
	ID             int64     `json:"id"`
	Source         string    `json:"source"`
	Policy         string    `json:"policy"`
	ChunkSeconds   float64   `json:"chunk_seconds"`
	ChunkCount     int       `json:"chunk_count"`
	Succeeded      int       `json:"succeeded"`
	OverallSuccess bool      `json:"overall_success"`
	StartedAt      time.Time `json:"started_at"`
	ElapsedSeconds float64   `json:"elapsed_seconds"`
}

// RunStore handles storage of run manifests.
type RunStore struct {
	db  *sql.DB
	log *logger.Logger
}

// NewRunStore opens (creating if needed) the database at dbPath.
func NewRunStore(dbPath string, log *logger.Logger) (*RunStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", dbPath, err)
	}

	s := &RunStore{
		db:  db,
		log: log.Named("store"),
	}
	if err := s.initDB(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// initDB initializes the database tables.
func (s *RunStore) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			policy TEXT NOT NULL,
			chunk_seconds REAL NOT NULL,
			chunk_count INTEGER NOT NULL,
			succeeded INTEGER NOT NULL,
			overall_success BOOLEAN NOT NULL,
			started_at TIMESTAMP NOT NULL,
			elapsed_seconds REAL NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create runs table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS chunk_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id INTEGER NOT NULL REFERENCES runs(id),
			chunk_index INTEGER NOT NULL,
			ok BOOLEAN NOT NULL,
			text TEXT,
			error_kind TEXT,
			error_message TEXT,
			attempts INTEGER NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create chunk_results table: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_chunk_results_run_id ON chunk_results(run_id)`)
	if err != nil {
		return fmt.Errorf("create run_id index: %w", err)
	}

	_, err = s.db.Exec(`CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at)`)
	if err != nil {
		return fmt.Errorf("create started_at index: %w", err)
	}

	return nil
}

// SaveManifest stores a manifest and its per-chunk results in one
// transaction. Returns the new run's ID.
func (s *RunStore) SaveManifest(m *pipeline.Manifest) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(
		`INSERT INTO runs
		(source, policy, chunk_seconds, chunk_count, succeeded, overall_success, started_at, elapsed_seconds)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		m.Source,
		string(m.Policy),
		m.ChunkSeconds,
		m.ChunkCount,
		m.Succeeded(),
		m.OverallSuccess,
		m.StartedAt.Format(time.RFC3339),
		m.ElapsedSeconds,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}

	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get run ID: %w", err)
	}

	stmt, err := tx.Prepare(
		`INSERT INTO chunk_results
		(run_id, chunk_index, ok, text, error_kind, error_message, attempts)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("prepare chunk insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range m.Results {
		if _, err := stmt.Exec(runID, r.Index, r.OK, r.Text, r.ErrKind, r.ErrMsg, r.Attempts); err != nil {
			return 0, fmt.Errorf("insert chunk result %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit run: %w", err)
	}

	s.log.Debug("saved run manifest",
		logger.Int64("run_id", runID),
		logger.Int("chunks", m.ChunkCount))
	return runID, nil
}

// RecentRuns returns the most recent runs, newest first.
func (s *RunStore) RecentRuns(limit int) ([]RunRecord, error) {
	if limit < 1 {
		limit = 10
	}

	rows, err := s.db.Query(
		`SELECT id, source, policy, chunk_seconds, chunk_count, succeeded,
		        overall_success, started_at, elapsed_seconds
		 FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []RunRecord
	for rows.Next() {
		var (
			rec       RunRecord
			startedAt string
		)
		if err := rows.Scan(&rec.ID, &rec.Source, &rec.Policy, &rec.ChunkSeconds,
			&rec.ChunkCount, &rec.Succeeded, &rec.OverallSuccess,
			&startedAt, &rec.ElapsedSeconds); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		rec.StartedAt, _ = time.Parse(time.RFC3339, startedAt)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Close closes the underlying database.
func (s *RunStore) Close() error {
	return s.db.Close()
}

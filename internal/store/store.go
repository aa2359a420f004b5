// Package store persists pipeline runs and per-stage results in SQLite
// so an interrupted pipeline can resume from its last completed stage.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const SchemaSQL = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    source_path TEXT NOT NULL,
    created_at TEXT NOT NULL,
    completed_at TEXT
);

CREATE TABLE IF NOT EXISTS stage_results (
    run_id TEXT NOT NULL REFERENCES runs(id),
    stage TEXT NOT NULL,
    payload TEXT NOT NULL,
    recorded_at TEXT NOT NULL,
    PRIMARY KEY (run_id, stage)
);
`

// timeFormat keeps a fixed-width fraction so timestamp columns stay
// lexicographically ordered for the ORDER BY clauses below.
const timeFormat = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one pipeline invocation over one manuscript.
type Run struct {
	ID          string
	Title       string
	SourcePath  string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Store wraps the SQLite handle.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(SchemaSQL); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// CreateRun registers a new run and returns it with a fresh id.
func (s *Store) CreateRun(title, sourcePath string) (*Run, error) {
	run := &Run{
		ID:         uuid.NewString(),
		Title:      title,
		SourcePath: sourcePath,
		CreatedAt:  time.Now().UTC(),
	}
	_, err := s.db.Exec(
		`INSERT INTO runs(id, title, source_path, created_at) VALUES(?,?,?,?)`,
		run.ID, run.Title, run.SourcePath, run.CreatedAt.Format(timeFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// CompleteRun stamps the run as finished.
func (s *Store) CompleteRun(runID string) error {
	res, err := s.db.Exec(
		`UPDATE runs SET completed_at = ? WHERE id = ?`,
		time.Now().UTC().Format(timeFormat), runID,
	)
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("complete run: no run %s", runID)
	}
	return nil
}

// LatestRun returns the most recent run for a source path, or nil when
// the source has never been analyzed.
func (s *Store) LatestRun(sourcePath string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, title, source_path, created_at, completed_at
		 FROM runs WHERE source_path = ? ORDER BY created_at DESC LIMIT 1`,
		sourcePath,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return run, err
}

// GetRun fetches one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, title, source_path, created_at, completed_at FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no run %s", id)
	}
	return run, err
}

func scanRun(row *sql.Row) (*Run, error) {
	var run Run
	var created string
	var completed sql.NullString
	if err := row.Scan(&run.ID, &run.Title, &run.SourcePath, &created, &completed); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	run.CreatedAt = t
	if completed.Valid {
		t, err := time.Parse(time.RFC3339Nano, completed.String)
		if err != nil {
			return nil, fmt.Errorf("parse completed_at: %w", err)
		}
		run.CompletedAt = &t
	}
	return &run, nil
}

// SaveStage stores one stage's serialized result, replacing any earlier
// result for the same stage of the same run.
func (s *Store) SaveStage(runID, stage string, result any) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal %s result: %w", stage, err)
	}
	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO stage_results(run_id, stage, payload, recorded_at) VALUES(?,?,?,?)`,
		runID, stage, string(payload), time.Now().UTC().Format(timeFormat),
	)
	if err != nil {
		return fmt.Errorf("insert %s result: %w", stage, err)
	}
	return nil
}

// LoadStage unmarshals a stored stage result into out. It reports false
// when the stage has not been persisted for this run.
func (s *Store) LoadStage(runID, stage string, out any) (bool, error) {
	row := s.db.QueryRow(
		`SELECT payload FROM stage_results WHERE run_id = ? AND stage = ?`, runID, stage,
	)
	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("load %s result: %w", stage, err)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return false, fmt.Errorf("unmarshal %s result: %w", stage, err)
	}
	return true, nil
}

// Stages lists the stages persisted for a run in the order they were
// recorded.
func (s *Store) Stages(runID string) ([]string, error) {
	rows, err := s.db.Query(
		`SELECT stage FROM stage_results WHERE run_id = ? ORDER BY recorded_at, stage`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list stages: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var stage string
		if err := rows.Scan(&stage); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		out = append(out, stage)
	}
	return out, rows.Err()
}

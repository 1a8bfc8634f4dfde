// Package runstore persists finished runs so the dashboard can show
// history across restarts.
package runstore

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/riftlabs/healwatch/internal/domain"
	_ "modernc.org/sqlite"
)

// Record is one finished run as stored in history.
type Record struct {
	RunID      string
	Repository string
	TeamName   string
	LeaderName string
	BranchName string
	Status     domain.RunStatus
	Score      domain.ScoreBreakdown
	Results    *domain.Results
	StartedAt  *time.Time
	FinishedAt *time.Time
	RecordedAt time.Time
}

// Store provides SQLite-backed run history
type Store struct {
	db *sql.DB
}

// New creates a new Store with the given database path
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		return nil, err
	}

	// Run migrations
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// SaveRun inserts or updates a finished run
func (s *Store) SaveRun(rec Record) error {
	var resultsJSON []byte
	if rec.Results != nil {
		var err error
		resultsJSON, err = json.Marshal(rec.Results)
		if err != nil {
			return err
		}
	}

	_, err := s.db.Exec(`
		INSERT INTO runs (run_id, repository, team_name, leader_name, branch_name, status,
			score, score_base, score_time_bonus, score_commit_penalty, results,
			started_at, finished_at, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id) DO UPDATE SET
			status = excluded.status,
			score = excluded.score,
			score_base = excluded.score_base,
			score_time_bonus = excluded.score_time_bonus,
			score_commit_penalty = excluded.score_commit_penalty,
			results = excluded.results,
			finished_at = excluded.finished_at,
			recorded_at = excluded.recorded_at
	`,
		rec.RunID,
		rec.Repository,
		rec.TeamName,
		rec.LeaderName,
		rec.BranchName,
		string(rec.Status),
		rec.Score.Final,
		rec.Score.Base,
		rec.Score.TimeBonus,
		rec.Score.CommitPenalty,
		nullableString(resultsJSON),
		rec.StartedAt,
		rec.FinishedAt,
		time.Now().UTC(),
	)
	return err
}

// GetRun retrieves a stored run by ID
func (s *Store) GetRun(runID string) (*Record, error) {
	row := s.db.QueryRow(`
		SELECT run_id, repository, team_name, leader_name, branch_name, status,
			score, score_base, score_time_bonus, score_commit_penalty, results,
			started_at, finished_at, recorded_at
		FROM runs WHERE run_id = ?
	`, runID)
	return scanRecord(row.Scan)
}

// ListOptions specifies filters for listing stored runs
type ListOptions struct {
	Status domain.RunStatus
	Limit  int
}

// ListRuns returns stored runs, newest first
func (s *Store) ListRuns(opts ListOptions) ([]*Record, error) {
	query := `
		SELECT run_id, repository, team_name, leader_name, branch_name, status,
			score, score_base, score_time_bonus, score_commit_penalty, results,
			started_at, finished_at, recorded_at
		FROM runs WHERE 1=1`
	var args []interface{}

	if opts.Status != "" {
		query += " AND status = ?"
		args = append(args, string(opts.Status))
	}

	query += " ORDER BY recorded_at DESC"

	if opts.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, opts.Limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*Record
	for rows.Next() {
		rec, err := scanRecord(rows.Scan)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func scanRecord(scan func(dest ...interface{}) error) (*Record, error) {
	var rec Record
	var status string
	var branch, resultsJSON sql.NullString
	var startedAt, finishedAt sql.NullTime

	err := scan(&rec.RunID, &rec.Repository, &rec.TeamName, &rec.LeaderName, &branch, &status,
		&rec.Score.Final, &rec.Score.Base, &rec.Score.TimeBonus, &rec.Score.CommitPenalty, &resultsJSON,
		&startedAt, &finishedAt, &rec.RecordedAt)
	if err != nil {
		return nil, err
	}

	rec.Status = domain.RunStatus(status)
	if branch.Valid {
		rec.BranchName = branch.String
	}
	if startedAt.Valid {
		t := startedAt.Time
		rec.StartedAt = &t
	}
	if finishedAt.Valid {
		t := finishedAt.Time
		rec.FinishedAt = &t
	}
	if resultsJSON.Valid && resultsJSON.String != "" {
		var results domain.Results
		if err := json.Unmarshal([]byte(resultsJSON.String), &results); err != nil {
			return nil, err
		}
		rec.Results = &results
	}

	return &rec, nil
}

func nullableString(b []byte) interface{} {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}

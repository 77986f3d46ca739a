// Package store persists a reconstruction run ledger: a record of each
// reconstruction pass over a geometry/event stream and the PFOs it
// produced, backed by modernc.org/sqlite and migrated with
// golang-migrate (spec.md §2.3/§4.8). This is additive bookkeeping —
// no reconstruction algorithm reads it back — grounded on the teacher's
// AnalysisRunStore (internal/lidar/analysis_run.go): a struct wrapping
// *sql.DB, retry-on-busy writes, and nullable optional columns.
package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hep-reco/pandora/internal/pandora"
)

// Run is one reconstruction pass recorded in the ledger.
type Run struct {
	ID         int64
	Label      string
	StartedAt  time.Time
	FinishedAt time.Time
	EventCount int
	PFOCount   int
	Status     string // "running", "completed", "failed"
}

// PFORecord is one reconstructed particle flow object attributed to a run.
type PFORecord struct {
	RunID        int64
	EventNumber  int
	ParticleID   int
	Charge       int
	EnergyGeV    float64
	Momentum     pandora.CartesianVector
	ClusterCount int
	TrackCount   int
}

// RunStore persists reconstruction runs and their resulting PFOs.
type RunStore struct {
	db *sql.DB
}

// Open opens (creating if absent) the sqlite database at path and brings
// its schema up to the latest migration.
func Open(path string) (*RunStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store database: %w", err)
	}
	db.SetMaxOpenConns(1) // sqlite is single-writer; avoid SQLITE_BUSY storms
	s := &RunStore{db: db}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the underlying database connection.
func (s *RunStore) Close() error {
	return s.db.Close()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "SQLITE_BUSY")
}

// retryOnBusy retries operation with exponential backoff while it keeps
// failing on SQLITE_BUSY, the same tolerance the teacher's store applies
// for sqlite's single-writer limitation.
func retryOnBusy(operation func() error) error {
	const maxRetries = 5
	const baseDelay = 10 * time.Millisecond

	var err error
	for attempt := 0; attempt < maxRetries; attempt++ {
		err = operation()
		if err == nil {
			return nil
		}
		if !isSQLiteBusy(err) {
			return err
		}
		if attempt < maxRetries-1 {
			time.Sleep(baseDelay * (1 << uint(attempt)))
		}
	}
	return fmt.Errorf("operation failed after %d retries: %w", maxRetries, err)
}

// StartRun records the beginning of a new reconstruction run and returns
// its assigned ID.
func (s *RunStore) StartRun(label string, startedAt time.Time) (int64, error) {
	var id int64
	err := retryOnBusy(func() error {
		res, err := s.db.Exec(
			`INSERT INTO reconstruction_runs (run_label, started_at_unix_nanos, status) VALUES (?, ?, 'running')`,
			label, startedAt.UnixNano(),
		)
		if err != nil {
			return fmt.Errorf("insert run: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return id, err
}

// FinishRun marks runID complete (or failed) with its final event/PFO
// counts.
func (s *RunStore) FinishRun(runID int64, finishedAt time.Time, eventCount, pfoCount int, status string) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(
			`UPDATE reconstruction_runs
			 SET finished_at_unix_nanos = ?, event_count = ?, pfo_count = ?, status = ?
			 WHERE id = ?`,
			finishedAt.UnixNano(), eventCount, pfoCount, status, runID,
		)
		if err != nil {
			return fmt.Errorf("finish run: %w", err)
		}
		return nil
	})
}

// GetRun retrieves a run by ID.
func (s *RunStore) GetRun(runID int64) (*Run, error) {
	var run Run
	var startedAt int64
	var finishedAt sql.NullInt64
	err := s.db.QueryRow(
		`SELECT id, run_label, started_at_unix_nanos, finished_at_unix_nanos, event_count, pfo_count, status
		 FROM reconstruction_runs WHERE id = ?`, runID,
	).Scan(&run.ID, &run.Label, &startedAt, &finishedAt, &run.EventCount, &run.PFOCount, &run.Status)
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	run.StartedAt = time.Unix(0, startedAt)
	if finishedAt.Valid {
		run.FinishedAt = time.Unix(0, finishedAt.Int64)
	}
	return &run, nil
}

// ListRuns retrieves the limit most recent runs, newest first.
func (s *RunStore) ListRuns(limit int) ([]*Run, error) {
	rows, err := s.db.Query(
		`SELECT id, run_label, started_at_unix_nanos, finished_at_unix_nanos, event_count, pfo_count, status
		 FROM reconstruction_runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		var run Run
		var startedAt int64
		var finishedAt sql.NullInt64
		if err := rows.Scan(&run.ID, &run.Label, &startedAt, &finishedAt, &run.EventCount, &run.PFOCount, &run.Status); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.StartedAt = time.Unix(0, startedAt)
		if finishedAt.Valid {
			run.FinishedAt = time.Unix(0, finishedAt.Int64)
		}
		runs = append(runs, &run)
	}
	return runs, rows.Err()
}

// InsertPFO attaches a reconstructed PFO record to runID.
func (s *RunStore) InsertPFO(rec *PFORecord) error {
	return retryOnBusy(func() error {
		_, err := s.db.Exec(
			`INSERT INTO reconstructed_pfos (
				run_id, event_number, particle_id, charge, energy_gev,
				momentum_x, momentum_y, momentum_z, cluster_count, track_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			rec.RunID, rec.EventNumber, rec.ParticleID, rec.Charge, rec.EnergyGeV,
			rec.Momentum.X, rec.Momentum.Y, rec.Momentum.Z, rec.ClusterCount, rec.TrackCount,
		)
		if err != nil {
			return fmt.Errorf("insert pfo: %w", err)
		}
		return nil
	})
}

// PFOsForEvent retrieves every PFO recorded for runID's eventNumber.
func (s *RunStore) PFOsForEvent(runID int64, eventNumber int) ([]*PFORecord, error) {
	rows, err := s.db.Query(
		`SELECT run_id, event_number, particle_id, charge, energy_gev,
			momentum_x, momentum_y, momentum_z, cluster_count, track_count
		 FROM reconstructed_pfos WHERE run_id = ? AND event_number = ?`,
		runID, eventNumber,
	)
	if err != nil {
		return nil, fmt.Errorf("query pfos: %w", err)
	}
	defer rows.Close()

	var out []*PFORecord
	for rows.Next() {
		var rec PFORecord
		if err := rows.Scan(
			&rec.RunID, &rec.EventNumber, &rec.ParticleID, &rec.Charge, &rec.EnergyGeV,
			&rec.Momentum.X, &rec.Momentum.Y, &rec.Momentum.Z, &rec.ClusterCount, &rec.TrackCount,
		); err != nil {
			return nil, fmt.Errorf("scan pfo: %w", err)
		}
		out = append(out, &rec)
	}
	return out, rows.Err()
}

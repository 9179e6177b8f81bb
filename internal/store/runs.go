package store

import (
	"time"

	"github.com/google/uuid"
)

// RunInfo describes one dispatch for the runs table.
type RunInfo struct {
	Model       string
	BaseSeed    uint64
	Simulations int
	StepCutoff  int
	TimeCutoff  float64
	Solver      string
}

// RecordRun appends a row to the runs table and returns its id, so a
// state database accumulating several dispatches stays auditable.
func (d *DB) RecordRun(info RunInfo) (string, error) {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		model       TEXT NOT NULL,
		base_seed   INTEGER NOT NULL,
		simulations INTEGER NOT NULL,
		step_cutoff INTEGER NOT NULL,
		time_cutoff REAL NOT NULL,
		solver      TEXT NOT NULL,
		created_at  TEXT NOT NULL
	)`)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	_, err = d.db.Exec(
		`INSERT INTO runs (id, model, base_seed, simulations, step_cutoff, time_cutoff, solver, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, info.Model, int64(info.BaseSeed), info.Simulations,
		info.StepCutoff, info.TimeCutoff, info.Solver,
		time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return "", err
	}
	return id, nil
}

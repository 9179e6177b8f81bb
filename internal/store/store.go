// Package store is the relational layer: models and initial states are
// read from SQLite databases, and finished trajectories are written back
// to the state database.
package store

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// Batch size for trajectory inserts; large histories are committed in
// chunks so a single trajectory never holds one giant transaction.
const trajectoryBatchSize = 20000

type DB struct {
	db *sql.DB
}

// Open opens a SQLite database. SQLite allows one writer at a time, so
// the pool is pinned to a single connection.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("connect to database %s: %w", path, err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	return &DB{db: db}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// writeBatched inserts rows through stmt inside transactions of
// trajectoryBatchSize rows each.
func (d *DB) writeBatched(insert string, rows [][]any) error {
	written := 0
	for written < len(rows) {
		tx, err := d.db.Begin()
		if err != nil {
			return err
		}
		stmt, err := tx.Prepare(insert)
		if err != nil {
			tx.Rollback()
			return err
		}

		end := written + trajectoryBatchSize
		if end > len(rows) {
			end = len(rows)
		}
		for _, row := range rows[written:end] {
			if _, err := stmt.Exec(row...); err != nil {
				stmt.Close()
				tx.Rollback()
				return err
			}
		}
		stmt.Close()
		if err := tx.Commit(); err != nil {
			return err
		}
		written = end
	}
	return nil
}

// RemoveDuplicateTrajectories drops all but the first row recorded for
// each (seed, step). Re-running a dispatch into the same state database
// would otherwise leave two histories interleaved.
func (d *DB) RemoveDuplicateTrajectories() error {
	_, err := d.db.Exec(`DELETE FROM trajectories WHERE rowid NOT IN
		(SELECT MIN(rowid) FROM trajectories GROUP BY seed, step)`)
	return err
}

func (d *DB) Exec(query string, args ...any) error {
	_, err := d.db.Exec(query, args...)
	return err
}

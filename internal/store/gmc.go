package store

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/kmcsim/internal/gmc"
)

// LoadReactionNetwork reads the reaction table from the model database
// and the factors and initial state from the state database.
func LoadReactionNetwork(model, state *DB, dependencyThreshold int) (*gmc.ReactionNetwork, error) {
	var numSpecies, numReactions int
	err := model.db.QueryRow(
		`SELECT number_of_species, number_of_reactions FROM metadata`).
		Scan(&numSpecies, &numReactions)
	if err != nil {
		return nil, fmt.Errorf("no metadata row: %w", err)
	}

	var factors gmc.Factors
	err = state.db.QueryRow(
		`SELECT factor_zero, factor_two, factor_duplicate FROM factors`).
		Scan(&factors.Zero, &factors.Two, &factors.Duplicate)
	if err != nil {
		return nil, fmt.Errorf("no factors row: %w", err)
	}

	initialState := make([]int, numSpecies)
	rows, err := state.db.Query(`SELECT species_id, count FROM initial_state`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var species, count int
		if err := rows.Scan(&species, &count); err != nil {
			return nil, err
		}
		if species < 0 || species >= numSpecies {
			return nil, fmt.Errorf("initial state references species %d of %d", species, numSpecies)
		}
		initialState[species] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	reactions := make([]gmc.Reaction, numReactions)
	loaded := 0
	lastID := -1
	reactionRows, err := model.db.Query(
		`SELECT reaction_id, number_of_reactants, number_of_products,
		        reactant_1, reactant_2, product_1, product_2, rate
		 FROM reactions`)
	if err != nil {
		return nil, err
	}
	defer reactionRows.Close()
	for reactionRows.Next() {
		var id int
		var r gmc.Reaction
		err := reactionRows.Scan(&id, &r.NumberOfReactants, &r.NumberOfProducts,
			&r.Reactants[0], &r.Reactants[1], &r.Products[0], &r.Products[1], &r.Rate)
		if err != nil {
			return nil, err
		}
		if id < 0 || id >= numReactions {
			return nil, fmt.Errorf("reaction loading failed: reaction_id %d outside [0,%d)", id, numReactions)
		}
		reactions[id] = r
		loaded++
		if id > lastID {
			lastID = id
		}
	}
	if err := reactionRows.Err(); err != nil {
		return nil, err
	}
	if loaded != numReactions || lastID != numReactions-1 {
		return nil, fmt.Errorf("reaction loading failed: metadata declares %d reactions, read %d", numReactions, loaded)
	}

	return gmc.New(reactions, initialState, factors, dependencyThreshold), nil
}

// EnsureGMCTrajectories creates the trajectory table if the state
// database does not already carry one.
func (d *DB) EnsureGMCTrajectories() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS trajectories (
		seed        INTEGER NOT NULL,
		step        INTEGER NOT NULL,
		reaction_id INTEGER NOT NULL,
		time        REAL NOT NULL
	)`)
	return err
}

func (d *DB) WriteGMCTrajectory(seed uint64, history []gmc.Record) error {
	rows := make([][]any, len(history))
	for step, e := range history {
		rows[step] = []any{int64(seed), step, e.ReactionID, e.Time}
	}
	err := d.writeBatched(
		`INSERT INTO trajectories (seed, step, reaction_id, time) VALUES (?, ?, ?, ?)`, rows)
	if err != nil {
		return fmt.Errorf("write trajectory %d: %w", seed, err)
	}
	slog.Info("wrote trajectory", "seed", seed, "events", len(history))
	return nil
}

package store

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/kmcsim/internal/npmc"
)

// LoadNanoParticle reads species, sites, and interactions from the model
// database and factors plus the initial state from the state database.
func LoadNanoParticle(model, state *DB) (*npmc.NanoParticle, error) {
	var numSpecies, numSites, numInteractions int
	err := model.db.QueryRow(
		`SELECT number_of_species, number_of_sites, number_of_interactions FROM metadata`).
		Scan(&numSpecies, &numSites, &numInteractions)
	if err != nil {
		return nil, fmt.Errorf("no metadata row: %w", err)
	}

	var params npmc.Params
	var factorType string
	err = state.db.QueryRow(
		`SELECT one_site_interaction_factor, two_site_interaction_factor,
		        interaction_radius_bound, distance_factor_type
		 FROM factors`).
		Scan(&params.OneSiteFactor, &params.TwoSiteFactor, &params.RadiusBound, &factorType)
	if err != nil {
		return nil, fmt.Errorf("no factors row: %w", err)
	}
	params.DistanceFactor, err = npmc.ParseDistanceFactor(factorType)
	if err != nil {
		return nil, err
	}

	params.DegreesOfFreedom = make([]int, numSpecies)
	rows, err := model.db.Query(`SELECT species_id, degrees_of_freedom FROM species`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var species, dof int
		if err := rows.Scan(&species, &dof); err != nil {
			return nil, err
		}
		if species < 0 || species >= numSpecies {
			return nil, fmt.Errorf("species table references species %d of %d", species, numSpecies)
		}
		params.DegreesOfFreedom[species] = dof
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	params.Sites = make([]npmc.Site, numSites)
	siteRows, err := model.db.Query(`SELECT site_id, x, y, z, species_id FROM sites`)
	if err != nil {
		return nil, err
	}
	defer siteRows.Close()
	for siteRows.Next() {
		var id int
		var s npmc.Site
		if err := siteRows.Scan(&id, &s.X, &s.Y, &s.Z, &s.SpeciesID); err != nil {
			return nil, err
		}
		if id < 0 || id >= numSites {
			return nil, fmt.Errorf("site table references site %d of %d", id, numSites)
		}
		params.Sites[id] = s
	}
	if err := siteRows.Err(); err != nil {
		return nil, err
	}

	loaded := 0
	interRows, err := model.db.Query(
		`SELECT interaction_id, number_of_sites, species_id_1, species_id_2,
		        left_state_1, left_state_2, right_state_1, right_state_2, rate
		 FROM interactions ORDER BY interaction_id`)
	if err != nil {
		return nil, err
	}
	defer interRows.Close()
	for interRows.Next() {
		var inter npmc.Interaction
		err := interRows.Scan(&inter.ID, &inter.NumberOfSites,
			&inter.SpeciesID[0], &inter.SpeciesID[1],
			&inter.LeftState[0], &inter.LeftState[1],
			&inter.RightState[0], &inter.RightState[1], &inter.Rate)
		if err != nil {
			return nil, err
		}
		params.Interactions = append(params.Interactions, inter)
		loaded++
	}
	if err := interRows.Err(); err != nil {
		return nil, err
	}
	if loaded != numInteractions {
		return nil, fmt.Errorf("interaction loading failed: metadata declares %d interactions, read %d", numInteractions, loaded)
	}

	params.InitialState = make([]int, numSites)
	stateRows, err := state.db.Query(`SELECT site_id, degree_of_freedom FROM initial_state`)
	if err != nil {
		return nil, err
	}
	defer stateRows.Close()
	for stateRows.Next() {
		var site, level int
		if err := stateRows.Scan(&site, &level); err != nil {
			return nil, err
		}
		if site < 0 || site >= numSites {
			return nil, fmt.Errorf("initial state references site %d of %d", site, numSites)
		}
		params.InitialState[site] = level
	}
	if err := stateRows.Err(); err != nil {
		return nil, err
	}

	return npmc.New(params)
}

func (d *DB) EnsureNPMCTrajectories() error {
	_, err := d.db.Exec(`CREATE TABLE IF NOT EXISTS trajectories (
		seed           INTEGER NOT NULL,
		step           INTEGER NOT NULL,
		time           REAL NOT NULL,
		site_id_1      INTEGER NOT NULL,
		site_id_2      INTEGER NOT NULL,
		interaction_id INTEGER NOT NULL
	)`)
	return err
}

func (d *DB) WriteNPMCTrajectory(seed uint64, history []npmc.Record) error {
	rows := make([][]any, len(history))
	for step, e := range history {
		rows[step] = []any{int64(seed), step, e.Time, e.Sites[0], e.Sites[1], e.InteractionID}
	}
	err := d.writeBatched(
		`INSERT INTO trajectories (seed, step, time, site_id_1, site_id_2, interaction_id)
		 VALUES (?, ?, ?, ?, ?, ?)`, rows)
	if err != nil {
		return fmt.Errorf("write trajectory %d: %w", seed, err)
	}
	slog.Info("wrote trajectory", "seed", seed, "events", len(history))
	return nil
}

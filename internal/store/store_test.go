package store

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/kmcsim/internal/gmc"
	"github.com/san-kum/kmcsim/internal/npmc"
)

func openTestDB(t *testing.T, name string) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), name))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func seedGMCModel(t *testing.T, db *DB, reactions int) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE metadata (number_of_species INTEGER, number_of_reactions INTEGER)`))
	require.NoError(t, db.Exec(`CREATE TABLE reactions (
		reaction_id INTEGER, number_of_reactants INTEGER, number_of_products INTEGER,
		reactant_1 INTEGER, reactant_2 INTEGER, product_1 INTEGER, product_2 INTEGER, rate REAL)`))
	require.NoError(t, db.Exec(`INSERT INTO metadata VALUES (2, ?)`, reactions))
}

func seedGMCState(t *testing.T, db *DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE factors (factor_zero REAL, factor_two REAL, factor_duplicate REAL)`))
	require.NoError(t, db.Exec(`CREATE TABLE initial_state (species_id INTEGER, count INTEGER)`))
	require.NoError(t, db.Exec(`INSERT INTO factors VALUES (1.0, 0.5, 1.0)`))
	require.NoError(t, db.Exec(`INSERT INTO initial_state VALUES (0, 4)`))
	require.NoError(t, db.Exec(`INSERT INTO initial_state VALUES (1, 0)`))
}

func TestLoadReactionNetwork(t *testing.T) {
	model := openTestDB(t, "model.sqlite")
	state := openTestDB(t, "state.sqlite")
	seedGMCModel(t, model, 2)
	seedGMCState(t, state)

	// A + A -> B and B -> A
	require.NoError(t, model.Exec(`INSERT INTO reactions VALUES (0, 2, 1, 0, 0, 1, -1, 1.0)`))
	require.NoError(t, model.Exec(`INSERT INTO reactions VALUES (1, 1, 1, 1, -1, 0, -1, 3.0)`))

	network, err := LoadReactionNetwork(model, state, 5)
	require.NoError(t, err)

	assert.Equal(t, 2, network.SpeciesCount())
	assert.Equal(t, 2, network.ReactionCount())
	assert.Equal(t, []int{4, 0}, network.InitialState())

	propensities := network.Instance().Propensities()
	assert.Equal(t, 6.0, propensities[0]) // 0.5 * 4 * 3 * 1.0
	assert.Equal(t, 0.0, propensities[1])
}

func TestLoadReactionNetworkCountMismatch(t *testing.T) {
	model := openTestDB(t, "model.sqlite")
	state := openTestDB(t, "state.sqlite")
	seedGMCModel(t, model, 3)
	seedGMCState(t, state)

	require.NoError(t, model.Exec(`INSERT INTO reactions VALUES (0, 1, 0, 0, -1, -1, -1, 1.0)`))
	require.NoError(t, model.Exec(`INSERT INTO reactions VALUES (1, 1, 0, 1, -1, -1, -1, 1.0)`))

	_, err := LoadReactionNetwork(model, state, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "reaction loading failed")
}

func TestLoadReactionNetworkMissingMetadata(t *testing.T) {
	model := openTestDB(t, "model.sqlite")
	state := openTestDB(t, "state.sqlite")
	seedGMCModel(t, model, 1)
	seedGMCState(t, state)
	require.NoError(t, model.Exec(`DELETE FROM metadata`))

	_, err := LoadReactionNetwork(model, state, 5)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "metadata")
}

func TestGMCTrajectoryRoundTripAndDedup(t *testing.T) {
	state := openTestDB(t, "state.sqlite")
	require.NoError(t, state.EnsureGMCTrajectories())

	history := []gmc.Record{
		{ReactionID: 0, Time: 0.5},
		{ReactionID: 1, Time: 0.9},
		{ReactionID: 0, Time: 1.7},
	}
	require.NoError(t, state.WriteGMCTrajectory(7, history))
	require.NoError(t, state.WriteGMCTrajectory(7, history)) // re-run into same database
	require.NoError(t, state.RemoveDuplicateTrajectories())

	var rows int
	require.NoError(t, state.db.QueryRow(`SELECT COUNT(*) FROM trajectories`).Scan(&rows))
	assert.Equal(t, len(history), rows)

	var reaction int
	var time float64
	err := state.db.QueryRow(
		`SELECT reaction_id, time FROM trajectories WHERE seed = 7 AND step = 2`).
		Scan(&reaction, &time)
	require.NoError(t, err)
	assert.Equal(t, 0, reaction)
	assert.Equal(t, 1.7, time)
}

func seedNPMCModel(t *testing.T, db *DB) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE metadata (number_of_species INTEGER, number_of_sites INTEGER, number_of_interactions INTEGER)`))
	require.NoError(t, db.Exec(`CREATE TABLE species (species_id INTEGER, degrees_of_freedom INTEGER)`))
	require.NoError(t, db.Exec(`CREATE TABLE sites (site_id INTEGER, x REAL, y REAL, z REAL, species_id INTEGER)`))
	require.NoError(t, db.Exec(`CREATE TABLE interactions (
		interaction_id INTEGER, number_of_sites INTEGER, species_id_1 INTEGER, species_id_2 INTEGER,
		left_state_1 INTEGER, left_state_2 INTEGER, right_state_1 INTEGER, right_state_2 INTEGER, rate REAL)`))
	require.NoError(t, db.Exec(`INSERT INTO metadata VALUES (1, 2, 1)`))
	require.NoError(t, db.Exec(`INSERT INTO species VALUES (0, 2)`))
	require.NoError(t, db.Exec(`INSERT INTO sites VALUES (0, 0.0, 0.0, 0.0, 0)`))
	require.NoError(t, db.Exec(`INSERT INTO sites VALUES (1, 1.0, 0.0, 0.0, 0)`))
	require.NoError(t, db.Exec(`INSERT INTO interactions VALUES (0, 2, 0, 0, 0, 0, 1, 1, 1.0)`))
}

func seedNPMCState(t *testing.T, db *DB, factorType string) {
	t.Helper()
	require.NoError(t, db.Exec(`CREATE TABLE factors (
		one_site_interaction_factor REAL, two_site_interaction_factor REAL,
		interaction_radius_bound REAL, distance_factor_type TEXT)`))
	require.NoError(t, db.Exec(`CREATE TABLE initial_state (site_id INTEGER, degree_of_freedom INTEGER)`))
	require.NoError(t, db.Exec(`INSERT INTO factors VALUES (1.0, 1.0, 2.0, ?)`, factorType))
	require.NoError(t, db.Exec(`INSERT INTO initial_state VALUES (0, 0)`))
	require.NoError(t, db.Exec(`INSERT INTO initial_state VALUES (1, 0)`))
}

func TestLoadNanoParticle(t *testing.T) {
	model := openTestDB(t, "model.sqlite")
	state := openTestDB(t, "state.sqlite")
	seedNPMCModel(t, model)
	seedNPMCState(t, state, "linear")

	particle, err := LoadNanoParticle(model, state)
	require.NoError(t, err)
	assert.Equal(t, 2, particle.SiteCount())
	assert.Equal(t, []int{0, 0}, particle.InitialState())

	// one reaction per donor ordering, distance factor 1 - 1/2
	propensities := particle.Instance().Propensities()
	require.Len(t, propensities, 2)
	assert.Equal(t, 0.5, propensities[0])
	assert.Equal(t, 0.5, propensities[1])
}

func TestLoadNanoParticleUnknownDistanceFactor(t *testing.T) {
	model := openTestDB(t, "model.sqlite")
	state := openTestDB(t, "state.sqlite")
	seedNPMCModel(t, model)
	seedNPMCState(t, state, "quadratic")

	_, err := LoadNanoParticle(model, state)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "distance_factor_type")
}

func TestNPMCTrajectoryRoundTrip(t *testing.T) {
	state := openTestDB(t, "state.sqlite")
	require.NoError(t, state.EnsureNPMCTrajectories())

	history := []npmc.Record{
		{Sites: [2]int{0, 1}, InteractionID: 0, Time: 0.25},
		{Sites: [2]int{1, -1}, InteractionID: 2, Time: 0.75},
	}
	require.NoError(t, state.WriteNPMCTrajectory(3, history))

	var site1, site2, interaction int
	var time float64
	err := state.db.QueryRow(
		`SELECT site_id_1, site_id_2, interaction_id, time FROM trajectories WHERE seed = 3 AND step = 1`).
		Scan(&site1, &site2, &interaction, &time)
	require.NoError(t, err)
	assert.Equal(t, 1, site1)
	assert.Equal(t, -1, site2)
	assert.Equal(t, 2, interaction)
	assert.Equal(t, 0.75, time)
}

func TestRecordRun(t *testing.T) {
	state := openTestDB(t, "state.sqlite")

	id, err := state.RecordRun(RunInfo{
		Model:       "gmc",
		BaseSeed:    1000,
		Simulations: 16,
		StepCutoff:  200,
		TimeCutoff:  4.5,
		Solver:      "tree",
	})
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	require.NoError(t, err)

	var model, solverName string
	var sims int
	err = state.db.QueryRow(`SELECT model, solver, simulations FROM runs WHERE id = ?`, id).
		Scan(&model, &solverName, &sims)
	require.NoError(t, err)
	assert.Equal(t, "gmc", model)
	assert.Equal(t, "tree", solverName)
	assert.Equal(t, 16, sims)
}

func TestWriteBatchedLargeHistory(t *testing.T) {
	state := openTestDB(t, "state.sqlite")
	require.NoError(t, state.EnsureGMCTrajectories())

	history := make([]gmc.Record, trajectoryBatchSize+100)
	for i := range history {
		history[i] = gmc.Record{ReactionID: i % 3, Time: float64(i)}
	}
	require.NoError(t, state.WriteGMCTrajectory(1, history))

	var rows int
	require.NoError(t, state.db.QueryRow(`SELECT COUNT(*) FROM trajectories`).Scan(&rows))
	assert.Equal(t, len(history), rows)
}

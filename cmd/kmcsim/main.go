package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/kmcsim/internal/config"
	"github.com/san-kum/kmcsim/internal/gmc"
	"github.com/san-kum/kmcsim/internal/npmc"
	"github.com/san-kum/kmcsim/internal/sim"
	"github.com/san-kum/kmcsim/internal/solver"
	"github.com/san-kum/kmcsim/internal/stats"
	"github.com/san-kum/kmcsim/internal/store"
	"github.com/san-kum/kmcsim/internal/tui"
)

var (
	configFile          string
	modelDBPath         string
	stateDBPath         string
	simulations         int
	baseSeed            uint64
	threads             int
	stepCutoff          int
	timeCutoff          float64
	solverName          string
	dependencyThreshold int
	live                bool
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	rootCmd := &cobra.Command{
		Use:   "kmcsim",
		Short: "kinetic monte carlo simulation engine",
	}

	gmcCmd := &cobra.Command{
		Use:   "gmc",
		Short: "run gillespie mass-action trajectories",
		RunE:  runGMC,
	}
	addRunFlags(gmcCmd)
	gmcCmd.Flags().IntVar(&dependencyThreshold, "dependency-threshold",
		config.DefaultDependencyThreshold,
		"firings before a reaction's dependency node is computed")

	npmcCmd := &cobra.Command{
		Use:   "npmc",
		Short: "run nano-particle trajectories",
		RunE:  runNPMC,
	}
	addRunFlags(npmcCmd)

	rootCmd.AddCommand(gmcCmd, npmcCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&configFile, "config", "", "yaml config file")
	cmd.Flags().StringVar(&modelDBPath, "model-db", "", "model database")
	cmd.Flags().StringVar(&stateDBPath, "state-db", "", "initial state database (receives trajectories)")
	cmd.Flags().IntVar(&simulations, "simulations", config.DefaultSimulations, "number of trajectories")
	cmd.Flags().Uint64Var(&baseSeed, "base-seed", 0, "seed of the first trajectory")
	cmd.Flags().IntVar(&threads, "threads", config.DefaultThreads, "worker threads")
	cmd.Flags().IntVar(&stepCutoff, "step-cutoff", config.DefaultStepCutoff, "maximum events per trajectory")
	cmd.Flags().Float64Var(&timeCutoff, "time-cutoff", 0, "maximum simulated time per trajectory (0 = unbounded)")
	cmd.Flags().StringVar(&solverName, "solver", config.DefaultSolver, "event solver: linear or tree")
	cmd.Flags().BoolVar(&live, "live", false, "show live dispatch progress")
}

// resolveConfig layers defaults, the optional yaml file, and any flags
// the user set explicitly.
func resolveConfig(cmd *cobra.Command, model string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.Model = model

	flags := cmd.Flags()
	if flags.Changed("model-db") {
		cfg.ModelDatabase = modelDBPath
	}
	if flags.Changed("state-db") {
		cfg.StateDatabase = stateDBPath
	}
	if flags.Changed("simulations") {
		cfg.Simulations = simulations
	}
	if flags.Changed("base-seed") {
		cfg.BaseSeed = baseSeed
	}
	if flags.Changed("threads") {
		cfg.Threads = threads
	}
	if flags.Changed("step-cutoff") {
		cfg.StepCutoff = stepCutoff
	}
	if flags.Changed("time-cutoff") {
		if timeCutoff > 0 {
			cfg.TimeCutoff = timeCutoff
		} else {
			cfg.TimeCutoff = math.MaxFloat64
		}
	}
	if flags.Changed("solver") {
		cfg.Solver = solverName
	}
	if flags.Changed("dependency-threshold") {
		cfg.DependencyThreshold = dependencyThreshold
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func runGMC(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, "gmc")
	if err != nil {
		return err
	}

	modelDB, stateDB, err := openDatabases(cfg)
	if err != nil {
		return err
	}
	defer modelDB.Close()
	defer stateDB.Close()

	network, err := store.LoadReactionNetwork(modelDB, stateDB, cfg.DependencyThreshold)
	if err != nil {
		return err
	}
	slog.Info("loaded reaction network",
		"species", network.SpeciesCount(), "reactions", network.ReactionCount())

	if err := stateDB.EnsureGMCTrajectories(); err != nil {
		return err
	}

	st := stats.New()
	sink := func(p sim.HistoryPacket[gmc.Record]) error {
		finalTime := 0.0
		if len(p.History) > 0 {
			finalTime = p.History[len(p.History)-1].Time
		}
		st.Observe(finalTime, len(p.History))
		return stateDB.WriteGMCTrajectory(p.Seed, p.History)
	}

	return dispatch(cfg, stateDB,
		func() sim.Instance[gmc.Record] { return network.Instance() }, sink, st)
}

func runNPMC(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd, "npmc")
	if err != nil {
		return err
	}

	modelDB, stateDB, err := openDatabases(cfg)
	if err != nil {
		return err
	}
	defer modelDB.Close()
	defer stateDB.Close()

	particle, err := store.LoadNanoParticle(modelDB, stateDB)
	if err != nil {
		return err
	}
	slog.Info("loaded nano particle", "sites", particle.SiteCount())

	if err := stateDB.EnsureNPMCTrajectories(); err != nil {
		return err
	}

	st := stats.New()
	sink := func(p sim.HistoryPacket[npmc.Record]) error {
		finalTime := 0.0
		if len(p.History) > 0 {
			finalTime = p.History[len(p.History)-1].Time
		}
		st.Observe(finalTime, len(p.History))
		return stateDB.WriteNPMCTrajectory(p.Seed, p.History)
	}

	return dispatch(cfg, stateDB,
		func() sim.Instance[npmc.Record] { return particle.Instance() }, sink, st)
}

func dispatch[E any](cfg *config.Config, stateDB *store.DB, newInstance func() sim.Instance[E], sink func(sim.HistoryPacket[E]) error, st *stats.RunStats) error {
	factory, err := solver.NewFactory(cfg.Solver)
	if err != nil {
		return err
	}

	runID, err := stateDB.RecordRun(store.RunInfo{
		Model:       cfg.Model,
		BaseSeed:    cfg.BaseSeed,
		Simulations: cfg.Simulations,
		StepCutoff:  cfg.StepCutoff,
		TimeCutoff:  cfg.TimeCutoff,
		Solver:      cfg.Solver,
	})
	if err != nil {
		return err
	}
	slog.Info("dispatching", "run", runID,
		"simulations", cfg.Simulations, "threads", cfg.Threads)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	var done atomic.Int64
	opts := sim.DispatchOptions{
		Simulations: cfg.Simulations,
		BaseSeed:    cfg.BaseSeed,
		Threads:     cfg.Threads,
		StepCutoff:  cfg.StepCutoff,
		TimeCutoff:  cfg.TimeCutoff,
		Progress: func(d, total int) {
			done.Store(int64(d))
		},
	}

	start := time.Now()
	if live {
		errCh := make(chan error, 1)
		go func() {
			err := sim.Dispatch(ctx, newInstance, factory, opts, sink)
			done.Store(int64(cfg.Simulations))
			errCh <- err
		}()
		if viewErr := tui.RunProgress(cfg.Model, cfg.Simulations, &done); viewErr != nil {
			slog.Warn("progress view failed", "err", viewErr)
		}
		err = <-errCh
	} else {
		err = sim.Dispatch(ctx, newInstance, factory, opts, sink)
	}
	if err != nil {
		return err
	}
	wall := time.Since(start)

	if err := stateDB.RemoveDuplicateTrajectories(); err != nil {
		return err
	}
	slog.Info("removed duplicate trajectories")

	printSummary(cfg.Model, st, wall)
	return nil
}

func openDatabases(cfg *config.Config) (*store.DB, *store.DB, error) {
	modelDB, err := store.Open(cfg.ModelDatabase)
	if err != nil {
		return nil, nil, err
	}
	stateDB, err := store.Open(cfg.StateDatabase)
	if err != nil {
		modelDB.Close()
		return nil, nil, err
	}
	return modelDB, stateDB, nil
}

var summaryStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	Padding(0, 2)

func printSummary(model string, st *stats.RunStats, wall time.Duration) {
	body := fmt.Sprintf(
		"%s run\n\ntrajectories    %d\nevents          %d\nevents/sec      %.0f\nmean wait       %.6g\nfinal time      %.6g .. %.6g\nwall time       %s",
		model, st.Trajectories, st.Events,
		st.EventsPerSecond(wall), st.MeanWaitingTime(),
		st.MinFinalTime(), st.MaxFinalTime(), wall.Round(time.Millisecond))
	fmt.Println(summaryStyle.Render(body))

	if len(st.FinalTimes) >= 2 {
		times := make([]float64, len(st.FinalTimes))
		copy(times, st.FinalTimes)
		sort.Float64s(times)
		fmt.Println(asciigraph.Plot(times,
			asciigraph.Height(10),
			asciigraph.Width(60),
			asciigraph.Caption("final time per trajectory (sorted)")))
	}
}

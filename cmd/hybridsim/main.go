package main

import (
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/san-kum/hybridsim/internal/config"
	"github.com/san-kum/hybridsim/internal/logging"
	"github.com/san-kum/hybridsim/internal/metrics"
	"github.com/san-kum/hybridsim/internal/registry"
	"github.com/san-kum/hybridsim/internal/sim"
	"github.com/san-kum/hybridsim/internal/storage"
	"github.com/san-kum/hybridsim/internal/viz"
)

var (
	dbPath     string
	logLevel   string
	dt         float64
	duration   float64
	integrator string
	theta      float64
	omega      float64
	posX       float64
	posY       float64
	configFile string
	preset     string
	noStore    bool
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "hybridsim",
		Short: "trajectory-cached physics simulation",
	}

	rootCmd.PersistentFlags().StringVar(&dbPath, "db", ".hybridsim.db", "sqlite database path")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (trace|debug|info|warn|error)")

	runCmd := &cobra.Command{
		Use:   "run [body]",
		Short: "run a simulation and record it",
		Args:  cobra.ExactArgs(1),
		RunE:  runSimulation,
	}
	addBodyFlags(runCmd)
	runCmd.Flags().BoolVar(&noStore, "no-store", false, "skip recording to the database")

	liveCmd := &cobra.Command{
		Use:   "live [body]",
		Short: "run with live terminal visualization",
		Args:  cobra.ExactArgs(1),
		RunE:  runLive,
	}
	addBodyFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	presetsCmd := &cobra.Command{
		Use:   "presets [body]",
		Short: "list available presets for a body",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for body: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	bodiesCmd := &cobra.Command{
		Use:   "bodies",
		Short: "list available bodies and integrators",
		RunE: func(cmd *cobra.Command, args []string) error {
			r := registry.New()
			fmt.Println("bodies:")
			for _, name := range r.ListBodies() {
				fmt.Printf("  %s\n", name)
			}
			fmt.Println("integrators:")
			for _, name := range r.ListIntegrators() {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, plotCmd, presetsCmd, bodiesCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addBodyFlags(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&dt, "dt", config.DefaultDt, "tick size")
	cmd.Flags().Float64Var(&duration, "time", config.DefaultDuration, "duration")
	cmd.Flags().StringVar(&integrator, "integrator", "rk4", "integrator")
	cmd.Flags().Float64Var(&theta, "theta", 0.0, "initial angle")
	cmd.Flags().Float64Var(&omega, "omega", 0.0, "initial angular velocity")
	cmd.Flags().Float64Var(&posX, "x", 0.0, "initial x (drone)")
	cmd.Flags().Float64Var(&posY, "y", 5.0, "initial y (drone)")
	cmd.Flags().StringVar(&configFile, "config", "", "config file path (yaml)")
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
}

// buildConfig merges preset, config file, and CLI flags, in that
// order of increasing precedence.
func buildConfig(cmd *cobra.Command, body string) (*config.Config, error) {
	cfg := config.DefaultConfig()
	cfg.Body = body

	if preset != "" {
		p := config.GetPreset(body, preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(body))
		}
		cp := *p
		cfg = &cp
	}

	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
		cfg.Body = body
	}

	if cmd.Flags().Changed("dt") || cfg.Dt == 0 {
		cfg.Dt = dt
	}
	if cmd.Flags().Changed("time") || cfg.Duration == 0 {
		cfg.Duration = duration
	}
	if cmd.Flags().Changed("integrator") || cfg.Integrator == "" {
		cfg.Integrator = integrator
	}
	if cmd.Flags().Changed("theta") {
		cfg.InitState.Theta = theta
	}
	if cmd.Flags().Changed("omega") {
		cfg.InitState.Omega = omega
	}
	if cmd.Flags().Changed("x") {
		cfg.InitState.X = posX
	}
	if cmd.Flags().Changed("y") {
		cfg.InitState.Y = posY
	}
	// Presets and files may leave physical fields unset; fill defaults
	// before validating.
	cfg = cfg.Normalized()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setup(cfg *config.Config) (*sim.Controller, error) {
	log := logging.New(logLevel)
	ctrl := sim.NewController(log)

	body, err := registry.New().Build(cfg)
	if err != nil {
		return nil, err
	}
	if err := ctrl.Register(body); err != nil {
		return nil, err
	}
	return ctrl, nil
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctrl, err := setup(cfg)
	if err != nil {
		return err
	}

	effort := metrics.NewControlEffort()
	ctrl.AddMetric(effort)

	var drift *metrics.EnergyDrift
	b, err := ctrl.Body(cfg.Body)
	if err != nil {
		return err
	}
	if _, ok := b.System().(metrics.Hamiltonian); ok {
		drift = metrics.NewEnergyDrift(b.System())
		ctrl.AddMetric(drift)
	}

	var rec *storage.Recorder
	if !noStore {
		st, err := storage.Open(dbPath)
		if err != nil {
			return err
		}
		defer st.Close()
		run, err := st.BeginRun(cfg.Body, cfg.Integrator, cfg.Dt, cfg.Duration)
		if err != nil {
			return err
		}
		rec = storage.NewRecorder(st, run)
		ctrl.AddObserver(rec)
		fmt.Printf("run id: %d\n", run.ID)
	}

	fmt.Printf("running %s simulation...\n", cfg.Body)
	start := time.Now()

	steps := int(cfg.Duration / cfg.Dt)
	for i := 0; i < steps; i++ {
		if err := ctrl.Tick(cfg.Body, cfg.Dt); err != nil {
			return err
		}
	}

	elapsed := time.Since(start)
	if rec != nil && rec.Err() != nil {
		return rec.Err()
	}

	x, err := ctrl.Observe(cfg.Body)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("steps: %d\n\n", steps)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "METRIC\tVALUE")
	for i, v := range x {
		fmt.Fprintf(w, "final_x%d\t%.6f\n", i, v)
	}
	fmt.Fprintf(w, "%s\t%.6f\n", effort.Name(), effort.Value())
	if drift != nil {
		fmt.Fprintf(w, "%s\t%.6e\n", drift.Name(), drift.Value())
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args[0])
	if err != nil {
		return err
	}

	ctrl, err := setup(cfg)
	if err != nil {
		return err
	}

	m, err := viz.NewModel(ctrl, cfg.Body, cfg.Dt)
	if err != nil {
		return err
	}

	p := tea.NewProgram(m)
	if _, err := p.Run(); err != nil {
		return err
	}
	return nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	runs, err := st.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tBODY\tTIME\tDURATION\tDT\tINTEG")
	for _, run := range runs {
		fmt.Fprintf(w, "%d\t%s\t%s\t%.2fs\t%.4fs\t%s\n",
			run.ID,
			run.Body,
			run.CreatedAt.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Dt,
			run.Integrator,
		)
	}
	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	id, err := strconv.ParseUint(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("invalid run id: %s", args[0])
	}

	st, err := storage.Open(dbPath)
	if err != nil {
		return err
	}
	defer st.Close()

	run, err := st.RunByID(uint(id))
	if err != nil {
		return err
	}
	steps, err := st.StepsFor(run.ID)
	if err != nil {
		return err
	}
	if len(steps) == 0 {
		return fmt.Errorf("no data to plot")
	}

	states := make([][]float64, 0, len(steps))
	for _, s := range steps {
		x, _, err := s.Decode()
		if err != nil {
			return err
		}
		states = append(states, x)
	}

	fmt.Printf("run: %d\n", run.ID)
	fmt.Printf("body: %s\n", run.Body)
	fmt.Printf("samples: %d\n\n", len(states))
	fmt.Print(viz.PlotStates(run.Body, states))
	return nil
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/guptarohit/asciigraph"
	"github.com/san-kum/braketilt/internal/config"
	"github.com/san-kum/braketilt/internal/export"
	"github.com/san-kum/braketilt/internal/metrics"
	"github.com/san-kum/braketilt/internal/optim"
	"github.com/san-kum/braketilt/internal/ride"
	"github.com/san-kum/braketilt/internal/scenario"
	"github.com/san-kum/braketilt/internal/storage"
	"github.com/san-kum/braketilt/internal/telemetry"
	"github.com/san-kum/braketilt/internal/viz"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var (
	dataDir    string
	configFile string
	preset     string
	dt         float64
	seed       int64
	noise      float64
	timeout    int
	// profile parameters, see paramFlags
	strength   float64
	lingering  float64
	incline    float64
	minTarget  float64
	window     float64
	pitchDelta float64
	holdAngle  float64
	atrOn      float64
	atrOff     float64
	// telemetry
	broker string
	topic  string
	every  int

	noSave     bool
	outPath    string
	force      bool
	initPreset string
	tuneParams []string
	metricName string
	maximize   bool
)

// paramFlags maps command line flags onto tunable profile parameters.
var paramFlags = []struct {
	flag, param, usage string
	val                *float64
	def                float64
}{
	{"strength", "strength", "brake-tilt strength (0 disables)", &strength, config.DefaultStrength},
	{"lingering", "lingering", "brake-tilt release speed", &lingering, config.DefaultLingering},
	{"incline", "incline", "incline threshold (deg)", &incline, config.DefaultIncline},
	{"min-target", "min_target", "hold-tilt minimum target (deg)", &minTarget, config.DefaultMinTarget},
	{"window", "window", "hold-tilt pitch window (s)", &window, config.DefaultTimeWindow},
	{"pitch-delta", "pitch_delta", "hold-tilt pitch drop threshold (deg)", &pitchDelta, config.DefaultPitchDelta},
	{"hold-angle", "hold_angle", "hold-tilt angle (deg)", &holdAngle, config.DefaultHoldAngle},
	{"atr-on", "atr_on", "setpoint rise speed (deg/s)", &atrOn, config.DefaultATROn},
	{"atr-off", "atr_off", "setpoint fall speed (deg/s)", &atrOff, config.DefaultATROff},
}

func main() {
	rootCmd := &cobra.Command{
		Use:          "braketilt",
		Short:        "brake-tilt and hold-tilt controller simulator",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".braketilt", "data directory")

	runCmd := &cobra.Command{
		Use:   "run [scenario]",
		Short: "ride a scenario and store the result",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runScenario,
	}
	addProfileFlags(runCmd)
	runCmd.Flags().StringVar(&broker, "mqtt", "", "publish ticks to this MQTT broker (tcp://host:1883)")
	runCmd.Flags().StringVar(&topic, "topic", config.DefaultTopic, "MQTT topic")
	runCmd.Flags().IntVar(&every, "every", config.DefaultEvery, "publish every Nth tick")
	runCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store the run")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results in the terminal",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	pngCmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render run charts to PNG",
		Args:  cobra.ExactArgs(1),
		RunE:  pngRun,
	}
	pngCmd.Flags().StringVarP(&outPath, "out", "o", "", "output directory (default: the run directory)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run ticks to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}
	exportCSVCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default: stdout)")

	liveCmd := &cobra.Command{
		Use:   "live [scenario]",
		Short: "ride a scenario with live visualization and tuning",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addProfileFlags(liveCmd)

	scenariosCmd := &cobra.Command{
		Use:   "scenarios [name]",
		Short: "list built-in scenarios, or print one as YAML",
		Args:  cobra.MaximumNArgs(1),
		RunE:  listScenarios,
	}
	scenariosCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the scenario to this file instead of stdout")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list profile presets",
		RunE:  listPresets,
	}

	tuneCmd := &cobra.Command{
		Use:   "tune [scenario]",
		Short: "grid search profile parameters against a metric",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneProfile,
	}
	addProfileFlags(tuneCmd)
	tuneCmd.Flags().StringArrayVar(&tuneParams, "param", nil, "parameter range as name=lo:hi:n (repeatable)")
	tuneCmd.Flags().StringVar(&metricName, "metric", "tracking_error", "metric to optimize")
	tuneCmd.Flags().BoolVar(&maximize, "maximize", false, "maximize the metric instead of minimizing")

	compareCmd := &cobra.Command{
		Use:   "compare [scenario...]",
		Short: "ride several scenarios in parallel and compare metrics",
		RunE:  compareScenarios,
	}
	addProfileFlags(compareCmd)

	initCmd := &cobra.Command{
		Use:   "init-config [path]",
		Short: "write a profile file to start from",
		Args:  cobra.MaximumNArgs(1),
		RunE:  initConfig,
	}
	initCmd.Flags().StringVar(&initPreset, "preset", "default", "preset to write")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")

	rootCmd.AddCommand(runCmd, listCmd, plotCmd, pngCmd, exportCmd, exportCSVCmd, liveCmd,
		scenariosCmd, presetsCmd, tuneCmd, compareCmd, initCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addProfileFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "profile file path (yaml)")
	f.StringVar(&preset, "preset", "", "start from a preset profile")
	f.Float64Var(&dt, "dt", config.DefaultDt, "loop period (s)")
	f.Int64Var(&seed, "seed", 0, "pitch noise seed")
	f.Float64Var(&noise, "noise", 0, "pitch noise standard deviation (deg)")
	f.IntVar(&timeout, "timeout", config.DefaultTimeout, "hold-tilt duration (ticks)")
	for _, p := range paramFlags {
		f.Float64Var(p.val, p.flag, p.def, p.usage)
	}
}

// loadProfile builds the profile from a preset, then a config file, then
// any flags set on the command line, each overriding the last.
func loadProfile(cmd *cobra.Command) (*config.Config, error) {
	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}

	f := cmd.Flags()
	if f.Changed("dt") {
		cfg.Dt = dt
	}
	if f.Changed("seed") {
		cfg.Seed = seed
	}
	if f.Changed("noise") {
		cfg.PitchNoise = noise
	}
	if f.Changed("timeout") {
		cfg.HoldTilt.Timeout = timeout
	}
	for _, p := range paramFlags {
		if f.Changed(p.flag) {
			if err := cfg.SetParam(p.param, *p.val); err != nil {
				return nil, err
			}
		}
	}
	if f.Lookup("mqtt") != nil {
		if f.Changed("mqtt") {
			cfg.Telemetry.Broker = broker
		}
		if f.Changed("topic") {
			cfg.Telemetry.Topic = topic
		}
		if f.Changed("every") {
			cfg.Telemetry.Every = every
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func resolveScenario(cfg *config.Config, args []string) (*scenario.Scenario, error) {
	name := cfg.Scenario
	if len(args) > 0 {
		name = args[0]
	}
	if name == "" {
		name = config.DefaultScenario
	}
	return scenario.Resolve(name)
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	scn, err := resolveScenario(cfg, args)
	if err != nil {
		return err
	}

	sim := ride.New(cfg)
	for _, m := range metrics.Default() {
		sim.AddMetric(m)
	}

	var pub *telemetry.Observer
	if cfg.Telemetry.Broker != "" {
		client, err := telemetry.Connect(cfg.Telemetry)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		pub = telemetry.NewObserver(client, cfg.Telemetry.Topic, cfg.Telemetry.Every)
		sim.AddObserver(pub)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("riding %s with profile %s...\n", scn.Name, cfg.Name)
	start := time.Now()

	result, err := sim.Run(ctx, scn)
	if err != nil {
		return err
	}

	elapsed := time.Since(start)

	fmt.Printf("completed in %v\n", elapsed)
	if !noSave {
		st := storage.New(dataDir)
		if err := st.Init(); err != nil {
			return err
		}
		runID, err := st.Save(cfg, result)
		if err != nil {
			return err
		}
		fmt.Printf("run id: %s\n", runID)
	}
	fmt.Printf("ticks: %d\n", result.Ticks)
	fmt.Printf("hold-tilt activations: %d\n", result.HoldActivations)
	if pub != nil {
		fmt.Printf("published: %d (%d failed)\n", pub.Sent(), pub.Failures())
	}
	fmt.Println("\nmetrics:")
	for _, name := range sortedKeys(result.Metrics) {
		fmt.Printf("  %s: %.6f\n", name, result.Metrics[name])
	}

	return nil
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENARIO\tPROFILE\tTIME\tDURATION\tTICKS\tHOLDS")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.2fs\t%d\t%d\n",
			run.ID,
			run.Scenario,
			run.Profile,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Duration,
			run.Ticks,
			run.HoldActivations,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	meta, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}
	if len(result.Samples) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scenario: %s\n", meta.Scenario)
	fmt.Printf("samples: %d\n\n", len(result.Samples))

	setpoint := result.Series(func(s ride.Sample) float64 { return s.Setpoint })
	target := result.Series(func(s ride.Sample) float64 { return s.Target })
	fmt.Println(asciigraph.PlotMany([][]float64{setpoint, target},
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.SeriesColors(asciigraph.Green, asciigraph.Yellow),
		asciigraph.Caption("setpoint (green) / target (yellow), deg"),
	))
	fmt.Println()

	fmt.Println(asciigraph.Plot(result.Series(func(s ride.Sample) float64 { return s.Pitch }),
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("pitch (deg)"),
	))
	fmt.Println()

	fmt.Println(asciigraph.Plot(result.Series(func(s ride.Sample) float64 { return s.Erpm }),
		asciigraph.Height(8),
		asciigraph.Width(80),
		asciigraph.Caption("erpm"),
	))
	return nil
}

func pngRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDir)
	_, result, err := st.LoadResult(runID)
	if err != nil {
		return err
	}

	dir := outPath
	if dir == "" {
		dir = st.RunDir(runID)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	paths, err := export.WriteCharts(dir, result, export.DefaultCharts)
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Printf("wrote %s\n", p)
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	_, result, err := st.LoadResult(args[0])
	if err != nil {
		return err
	}

	if outPath != "" {
		if err := export.ExportJSON(outPath, result); err != nil {
			return err
		}
		fmt.Printf("exported to %s\n", outPath)
		return nil
	}
	return export.WriteJSON(os.Stdout, result)
}

func exportCSV(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDir)
	samples, err := st.LoadSamples(args[0])
	if err != nil {
		return err
	}

	if outPath == "" {
		return storage.WriteCSV(os.Stdout, samples)
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := storage.WriteCSV(f, samples); err != nil {
		return err
	}
	fmt.Printf("exported %d ticks to %s\n", len(samples), outPath)
	return nil
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	scn, err := resolveScenario(cfg, args)
	if err != nil {
		return err
	}
	r, err := ride.NewRide(cfg, scn)
	if err != nil {
		return err
	}

	p := tea.NewProgram(viz.NewModel(r, cfg), tea.WithAltScreen())
	_, err = p.Run()
	return err
}

func listScenarios(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		scn, err := scenario.Resolve(args[0])
		if err != nil {
			return err
		}
		if outPath != "" {
			if err := scenario.Save(outPath, scn); err != nil {
				return err
			}
			fmt.Printf("wrote %s to %s\n", scn.Name, outPath)
			return nil
		}
		enc := yaml.NewEncoder(os.Stdout)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(scn)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tDURATION\tSEGMENTS\tDESCRIPTION")
	for _, name := range scenario.List() {
		scn, err := scenario.Builtin(name)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s\t%.1fs\t%d\t%s\n", scn.Name, scn.Duration(), len(scn.Segments), scn.Description)
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tSTRENGTH\tLINGERING\tMIN TARGET\tHOLD ANGLE\tTIMEOUT")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%.1f\t%.1f\t%.1f\t%.1f\t%d\n",
			name,
			p.BrakeTilt.Strength,
			p.BrakeTilt.Lingering,
			p.HoldTilt.MinTarget,
			p.HoldTilt.Angle,
			p.HoldTilt.Timeout,
		)
	}
	return w.Flush()
}

// parseRange reads name=lo:hi:n into a parameter name and its grid values.
func parseRange(arg string) (string, []float64, error) {
	name, rng, ok := strings.Cut(arg, "=")
	if !ok {
		return "", nil, fmt.Errorf("bad range %q: want name=lo:hi:n", arg)
	}
	parts := strings.Split(rng, ":")
	if len(parts) != 3 {
		return "", nil, fmt.Errorf("bad range %q: want name=lo:hi:n", arg)
	}
	lo, err := strconv.ParseFloat(parts[0], 64)
	if err != nil {
		return "", nil, fmt.Errorf("bad range %q: %w", arg, err)
	}
	hi, err := strconv.ParseFloat(parts[1], 64)
	if err != nil {
		return "", nil, fmt.Errorf("bad range %q: %w", arg, err)
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 1 {
		return "", nil, fmt.Errorf("bad range %q: count must be a positive integer", arg)
	}
	return name, optim.Linspace(lo, hi, n), nil
}

func tuneProfile(cmd *cobra.Command, args []string) error {
	if len(tuneParams) == 0 {
		return fmt.Errorf("at least one --param range is required")
	}
	cfg, err := loadProfile(cmd)
	if err != nil {
		return err
	}
	scn, err := resolveScenario(cfg, args)
	if err != nil {
		return err
	}

	names := make([]string, 0, len(tuneParams))
	ranges := make([][]float64, 0, len(tuneParams))
	known := cfg.GetParams()
	for _, arg := range tuneParams {
		name, values, err := parseRange(arg)
		if err != nil {
			return err
		}
		if _, ok := known[name]; !ok {
			return fmt.Errorf("unknown parameter %q (available: %v)", name, cfg.ParamNames())
		}
		names = append(names, name)
		ranges = append(ranges, values)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	fmt.Printf("tuning %v on %s for %s...\n", names, scn.Name, metricName)
	start := time.Now()

	g := optim.NewGridSearch(names, ranges)
	best, val, err := g.Search(ctx, optim.RideObjective(cfg, scn, metricName, maximize))
	if err != nil {
		return err
	}
	if maximize {
		val = -val
	}

	fmt.Printf("evaluated %d profiles in %v\n\n", g.Evaluated(), time.Since(start))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PARAM\tVALUE")
	for _, name := range names {
		fmt.Fprintf(w, "%s\t%.4f\n", name, best[name])
	}
	fmt.Fprintf(w, "%s\t%.6f\n", metricName, val)
	return w.Flush()
}

func compareScenarios(cmd *cobra.Command, args []string) error {
	cfg, err := loadProfile(cmd)
	if err != nil {
		return err
	}

	names := args
	if len(names) == 0 {
		names = scenario.List()
	}
	scns := make([]*scenario.Scenario, 0, len(names))
	for _, name := range names {
		scn, err := scenario.Resolve(name)
		if err != nil {
			return err
		}
		scns = append(scns, scn)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	results, err := ride.NewEnsemble(cfg, metrics.Default).Run(ctx, scns)
	if err != nil {
		return err
	}

	var metricNames []string
	if len(results) > 0 {
		metricNames = sortedKeys(results[0].Metrics)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "SCENARIO\tTICKS\tHOLDS")
	for _, m := range metricNames {
		fmt.Fprintf(w, "\t%s", strings.ToUpper(m))
	}
	fmt.Fprintln(w)
	for _, r := range results {
		fmt.Fprintf(w, "%s\t%d\t%d", r.Scenario, r.Ticks, r.HoldActivations)
		for _, m := range metricNames {
			fmt.Fprintf(w, "\t%.4f", r.Metrics[m])
		}
		fmt.Fprintln(w)
	}
	return w.Flush()
}

func initConfig(cmd *cobra.Command, args []string) error {
	path := "braketilt.yaml"
	if len(args) > 0 {
		path = args[0]
	}
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := config.GetPreset(initPreset)
	if cfg == nil {
		return fmt.Errorf("unknown preset: %s (available: %v)", initPreset, config.ListPresets())
	}
	if err := config.Save(path, cfg); err != nil {
		return err
	}
	fmt.Printf("wrote %s profile to %s\n", cfg.Name, path)
	return nil
}

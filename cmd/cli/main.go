package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"

	"energy-sizing/internal/analysis"
	"energy-sizing/internal/config"
	"energy-sizing/internal/logging"
	"energy-sizing/internal/lp"
	"energy-sizing/internal/sizing"
	"energy-sizing/internal/solver"
	"energy-sizing/internal/store"
	"energy-sizing/internal/study"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "optimize":
		err = cmdOptimize(os.Args[2:])
	case "compare":
		err = cmdCompare(os.Args[2:])
	case "export-lp":
		err = cmdExportLP(os.Args[2:])
	case "tariff":
		err = cmdTariff(os.Args[2:])
	case "stats":
		err = cmdStats(os.Args[2:])
	case "env":
		err = cmdEnv()
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Println("usage:")
	fmt.Println("  sizing-cli optimize --config examples/config.yaml --out results")
	fmt.Println("  sizing-cli compare --config examples/config.yaml --scenarios examples/scenarios")
	fmt.Println("  sizing-cli export-lp --config examples/config.yaml --out results/model.lp")
	fmt.Println("  sizing-cli tariff --config examples/config.yaml --out results/tariff.csv")
	fmt.Println("  sizing-cli stats --config examples/config.yaml")
	fmt.Println("  sizing-cli env")
	fmt.Println("")
	fmt.Println("notes:")
	fmt.Println("  - optimize writes dispatch.csv (action=CHARGING/IDLE/DISCHARGING per interval), report.json and summary.txt")
	fmt.Println("  - compare runs every scenario preset on the same inputs and ranks them by system LCOE")
	fmt.Println("  - every config value can be overridden from the environment (see `sizing-cli env`)")
}

type commonFlags struct {
	config   *string
	scenario *string
	backend  *string
}

func addCommon(fs *pflag.FlagSet) commonFlags {
	return commonFlags{
		config:   fs.StringP("config", "c", "", "Path to YAML config (defaults + environment when empty)"),
		scenario: fs.StringP("scenario", "s", "", "Scenario preset to overlay on the config"),
		backend:  fs.String("backend", "", "Solver backend override: simplex, cbc or auto"),
	}
}

// load reads the config, overlays the preset and sets up logging.
func (f commonFlags) load() (*config.Config, zerolog.Logger, error) {
	cfg, err := config.LoadUnchecked(*f.config)
	if err != nil {
		return nil, zerolog.Nop(), err
	}
	if *f.scenario != "" {
		o, err := config.LoadScenario(*f.scenario)
		if err != nil {
			return nil, zerolog.Nop(), err
		}
		o.ApplyTo(cfg)
	}
	if *f.backend != "" {
		cfg.Solver.Backend = *f.backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), err
	}
	return cfg, logging.Setup(cfg.Log.Level, cfg.Log.Format), nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func runStudy(ctx context.Context, cfg *config.Config, name string, logger zerolog.Logger) (*study.Outcome, error) {
	in, err := study.LoadInput(cfg)
	if err != nil {
		return nil, err
	}
	in.Name = name
	s, err := solver.New(cfg.SolverOptions(), logger)
	if err != nil {
		return nil, err
	}
	engine := study.New(s, cfg.AnalysisOptions(), logger)
	engine.Timeout = cfg.Solver.Timeout
	return engine.Run(ctx, in)
}

func cmdOptimize(args []string) error {
	fs := pflag.NewFlagSet("optimize", pflag.ExitOnError)
	common := addCommon(fs)
	outDir := fs.StringP("out", "o", "results", "Output directory")
	name := fs.String("name", "", "Study name recorded in the report")
	archive := fs.Bool("archive", false, "Archive the study in PostgreSQL (store.dsn)")
	_ = fs.Parse(args)

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	out, err := runStudy(ctx, cfg, *name, logger)
	if err != nil {
		return err
	}

	// ensure output dir exists
	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}
	summaryPath := filepath.Join(*outDir, "summary.txt")
	f, err := os.Create(summaryPath)
	if err != nil {
		return err
	}
	if err := study.WriteSummary(f, out); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	if err := study.WriteReportJSON(filepath.Join(*outDir, "report.json"), out); err != nil {
		return err
	}
	if out.Optimal() {
		csvPath := filepath.Join(*outDir, "dispatch.csv")
		if err := study.WriteDispatchCSVFile(csvPath, out.Ledger); err != nil {
			return err
		}
		logger.Info().Int("rows", len(out.Ledger)).Str("path", csvPath).Msg("wrote dispatch")
	}

	if *archive {
		if err := archiveStudy(ctx, cfg, out, logger); err != nil {
			return err
		}
	}

	if err := study.WriteSummary(os.Stdout, out); err != nil {
		return err
	}
	if !out.Optimal() {
		return fmt.Errorf("solver finished with status %s", out.Status)
	}
	return nil
}

func archiveStudy(ctx context.Context, cfg *config.Config, out *study.Outcome, logger zerolog.Logger) error {
	if !cfg.Store.Enabled {
		return fmt.Errorf("--archive needs store.enabled and store.dsn")
	}
	st, err := store.Open(ctx, cfg.Store.DSN, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}
	return st.SaveStudy(ctx, out)
}

func cmdCompare(args []string) error {
	fs := pflag.NewFlagSet("compare", pflag.ExitOnError)
	common := addCommon(fs)
	scenarios := fs.StringSlice("scenarios", []string{filepath.Join("examples", "scenarios")}, "Scenario preset files or directories")
	_ = fs.Parse(args)

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	presets, err := collectScenarios(*scenarios)
	if err != nil {
		return err
	}
	if len(presets) == 0 {
		return fmt.Errorf("no scenario presets found in %v", *scenarios)
	}

	byName := map[string]*analysis.Report{}
	var failed []string
	for _, p := range presets {
		variant := config.Apply(*cfg, p.Overrides)
		if err := variant.Validate(); err != nil {
			return fmt.Errorf("scenario %s: %w", p.ID, err)
		}
		out, err := runStudy(ctx, &variant, p.Name, logger)
		if err != nil {
			return fmt.Errorf("scenario %s: %w", p.ID, err)
		}
		if !out.Optimal() {
			failed = append(failed, fmt.Sprintf("%s (%s)", p.Name, out.Status))
			continue
		}
		byName[p.Name] = out.Report
	}

	ranked := analysis.RankBySystemLCOE(byName)
	fmt.Printf("%-4s %-24s %-10s %-10s %-10s %-10s %-14s %-14s\n", "rank", "scenario", "pv MW", "wind MW", "batt MWh", "batt MW", "system LCOE", "self-suff.")
	for i, r := range ranked {
		c := r.Report.Capacities
		fmt.Printf(
			"%-4d %-24s %-10.2f %-10.2f %-10.2f %-10.2f %-14s %-14s\n",
			i+1,
			r.Name,
			c.PVMW,
			c.WindMW,
			c.BatteryMWh,
			c.BatteryMW,
			r.Report.SystemLCOE,
			r.Report.SelfSufficiency,
		)
	}
	for _, f := range failed {
		fmt.Printf("%-4s %s\n", "-", f)
	}
	return nil
}

func collectScenarios(paths []string) ([]config.ScenarioInfo, error) {
	var out []config.ScenarioInfo
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, err
		}
		if info.IsDir() {
			list, skipped, err := config.ListScenarios(p)
			if err != nil {
				return nil, err
			}
			if len(skipped) > 0 {
				return nil, skipped[0]
			}
			out = append(out, list...)
			continue
		}
		o, err := config.LoadScenario(p)
		if err != nil {
			return nil, err
		}
		id := strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		out = append(out, config.ScenarioInfo{ID: id, Name: o.Name, Description: o.Description, File: p, Overrides: o})
	}
	return out, nil
}

func cmdExportLP(args []string) error {
	fs := pflag.NewFlagSet("export-lp", pflag.ExitOnError)
	common := addCommon(fs)
	outPath := fs.StringP("out", "o", "results/model.lp", "Output LP file")
	_ = fs.Parse(args)

	cfg, logger, err := common.load()
	if err != nil {
		return err
	}
	in, err := study.LoadInput(cfg)
	if err != nil {
		return err
	}
	m, err := sizing.Build(in.Horizon, in.Profiles, in.Params)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(*outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	if err := lp.WriteLP(f, m.Problem); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	logger.Info().
		Int("variables", m.Problem.NumVars()).
		Int("constraints", m.Problem.NumConstraints()).
		Str("path", *outPath).
		Msg("wrote LP model")
	return nil
}

func cmdTariff(args []string) error {
	fs := pflag.NewFlagSet("tariff", pflag.ExitOnError)
	common := addCommon(fs)
	outPath := fs.StringP("out", "o", "", "Optional CSV path for the per-interval tariff")
	_ = fs.Parse(args)

	cfg, _, err := common.load()
	if err != nil {
		return err
	}
	in, err := study.LoadInput(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("policy=%s seed=%d zero-tariff intervals=%d of %d\n",
		cfg.Grid.TariffPolicy, cfg.Grid.TariffSeed, len(in.ZeroTariffSteps), in.Horizon.Steps)
	if *outPath == "" {
		return nil
	}

	f, err := os.Create(*outPath)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	_ = w.Write([]string{"index", "interval_start", "feed_in_tariff"})
	for i, v := range in.Params.FeedInTariff {
		ts := ""
		if i < len(in.Timestamps) {
			ts = in.Timestamps[i].Format("2006-01-02T15:04:05Z07:00")
		}
		_ = w.Write([]string{strconv.Itoa(i), ts, strconv.FormatFloat(v, 'f', -1, 64)})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func cmdStats(args []string) error {
	fs := pflag.NewFlagSet("stats", pflag.ExitOnError)
	common := addCommon(fs)
	_ = fs.Parse(args)

	cfg, _, err := common.load()
	if err != nil {
		return err
	}
	in, err := study.LoadInput(cfg)
	if err != nil {
		return err
	}
	s := analysis.ComputeInputStats(in.Profiles)
	fmt.Printf("%-12s %-8s %-12s %-10s %-10s %-10s %-10s %-10s\n", "series", "count", "total", "min", "mean", "p05", "p95", "max")
	for _, row := range []struct {
		name string
		st   analysis.SeriesStats
	}{
		{"demand", s.Demand},
		{"pv yield", s.PVYield},
		{"wind yield", s.WindYield},
	} {
		fmt.Printf("%-12s %-8d %-12.3f %-10.4f %-10.4f %-10.4f %-10.4f %-10.4f\n",
			row.name, row.st.Count, row.st.Total, row.st.Min, row.st.Mean, row.st.P05, row.st.P95, row.st.Max)
	}
	fmt.Printf("full-load hours: pv=%.0f wind=%.0f\n", s.PVFullLoadHours, s.WindFullLoadHours)
	for _, d := range in.Diagnostics {
		fmt.Printf("note: %s: %s\n", d.Source, d.Message)
	}
	return nil
}

func cmdEnv() error {
	usage, err := config.EnvUsage()
	if err != nil {
		return err
	}
	fmt.Println(usage)
	return nil
}

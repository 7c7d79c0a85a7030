package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"time"

	slogmulti "github.com/samber/slog-multi"

	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/game"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/scripting"
	"github.com/pthm-cable/arena/telemetry"
)

var level = new(slog.LevelVar)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	catalogPath := flag.String("catalog", "", "Path to a gene catalog (empty = built-in)")
	genomes := flag.String("genomes", "", "Comma-separated genome source files (empty = built-in seeds)")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	maxTicks := flag.Int("max-ticks", 0, "Stop after N ticks (0 = until interrupted)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs, config snapshot and dumps")
	logLevel := flag.String("log-level", "", "debug, info, warn or error (empty = use config)")
	logFile := flag.String("log-file", "", "Also write text logs to this file (empty = use config)")
	logStats := flag.Bool("log-stats", true, "Log window stats via slog")
	scriptPath := flag.String("script", "", "Starlark observer script")
	dump := flag.Bool("dump", false, "Write a compressed dump of every live genome on exit")

	flag.Parse()

	// Initialize config before anything else
	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	if *logLevel == "" {
		*logLevel = cfg.Logging.Level
	}
	if *logFile == "" {
		*logFile = cfg.Logging.File
	}
	closeLog, err := setupLogging(*logLevel, *logFile)
	if err != nil {
		slog.Error("failed to set up logging", "error", err)
		os.Exit(1)
	}
	defer closeLog()

	if err := run(cfg, runOptions{
		catalog:   *catalogPath,
		genomes:   *genomes,
		seed:      *seed,
		maxTicks:  *maxTicks,
		outputDir: *outputDir,
		logStats:  *logStats,
		script:    *scriptPath,
		dump:      *dump,
	}); err != nil {
		slog.Error("run failed", "error", err)
		closeLog()
		os.Exit(1)
	}
}

type runOptions struct {
	catalog   string
	genomes   string
	seed      int64
	maxTicks  int
	outputDir string
	logStats  bool
	script    string
	dump      bool
}

func run(cfg *config.Config, opts runOptions) error {
	cat, err := loadCatalog(opts.catalog)
	if err != nil {
		return err
	}
	programs, err := loadPrograms(opts.genomes, cat)
	if err != nil {
		return err
	}

	var observer *scripting.Observer
	if opts.script != "" {
		if observer, err = scripting.Load(opts.script, slog.Default()); err != nil {
			return err
		}
	}

	out, err := telemetry.NewOutputManager(opts.outputDir)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := out.WriteConfig(cfg); err != nil {
		slog.Error("failed to write config snapshot", "error", err)
	}

	// Set up seed
	rngSeed := opts.seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	sim, err := game.NewSimulation(cfg, cat, game.Options{
		Seed:     rngSeed,
		LogStats: opts.logStats,
		Output:   out,
		OnWindow: func(stats telemetry.WindowStats, robots []game.EntitySnapshot) {
			if err := observer.Observe(stats.WindowEndTick, robots); err != nil {
				slog.Error("script failed", "error", err)
			}
		},
	})
	if err != nil {
		return err
	}
	sim.Populate(programs)

	slog.Info("starting simulation",
		"seed", rngSeed,
		"programs", len(programs),
		"genes", cat.Len(),
		"max_ticks", opts.maxTicks,
		"output_dir", out.Dir(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	for opts.maxTicks <= 0 || sim.Tick() < int64(opts.maxTicks) {
		if ctx.Err() != nil {
			slog.Info("interrupted", "tick", sim.Tick())
			break
		}
		sim.Advance(1)
	}
	slog.Info("simulation finished", "tick", sim.Tick(), "hall_of_fame", sim.HallOfFame().Size())

	if err := out.WriteHallOfFame(sim.HallOfFame()); err != nil {
		slog.Error("failed to write hall of fame", "error", err)
	}
	if opts.dump {
		if err := out.WriteGenomeDump(sim.DumpGenomes()); err != nil {
			slog.Error("failed to write genome dump", "error", err)
		}
	}
	return nil
}

func loadCatalog(path string) (*genome.Catalog, error) {
	if path == "" {
		return genome.DefaultCatalog()
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening catalog: %w", err)
	}
	defer f.Close()
	cat, err := genome.LoadCatalog(f)
	if err != nil {
		return nil, fmt.Errorf("loading catalog %s: %w", path, err)
	}
	return cat, nil
}

func loadPrograms(list string, cat *genome.Catalog) ([]*genome.Genome, error) {
	if list == "" {
		return genome.Seeds(cat)
	}
	var programs []*genome.Genome
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		p, err := genome.CompileFile(name, cat)
		if err != nil {
			return nil, err
		}
		programs = append(programs, p)
	}
	return programs, nil
}

// setupLogging installs a JSON handler on stdout, fanned out to a text
// handler on the log file when one is given.
func setupLogging(levelName, file string) (func(), error) {
	if err := level.UnmarshalText([]byte(levelName)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", levelName, err)
	}
	opts := &slog.HandlerOptions{Level: level}

	handlers := []slog.Handler{slog.NewJSONHandler(os.Stdout, opts)}
	closeFn := func() {}
	if file != "" {
		f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("opening log file: %w", err)
		}
		handlers = append(handlers, slog.NewTextHandler(f, opts))
		closeFn = func() { f.Close() }
	}

	slog.SetDefault(slog.New(slogmulti.Fanout(handlers...)))
	return closeFn, nil
}

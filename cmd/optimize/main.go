// Command optimize searches arena parameters with CMA-ES for runs that stay
// populated and breed deep lineages.
package main

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/arena/config"
)

type searchOptions struct {
	configPath string
	outputDir  string
	maxTicks   int
	seeds      int
	maxEvals   int
	population int
}

func main() {
	var opts searchOptions
	flag.StringVar(&opts.configPath, "config", "", "Base config YAML file (empty = use defaults)")
	flag.StringVar(&opts.outputDir, "output", "", "Output directory for results")
	flag.IntVar(&opts.maxTicks, "max-ticks", 20000, "Ticks per simulated run")
	flag.IntVar(&opts.seeds, "seeds", 3, "Runs per evaluation, one seed each")
	flag.IntVar(&opts.maxEvals, "max-evals", 200, "Evaluation budget")
	flag.IntVar(&opts.population, "population", 0, "CMA-ES population size (0 = auto)")
	flag.Parse()

	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	if err := search(opts); err != nil {
		slog.Error("optimize failed", "error", err)
		os.Exit(1)
	}
}

func search(opts searchOptions) error {
	if opts.outputDir == "" {
		return errors.New("-output is required")
	}
	if err := os.MkdirAll(opts.outputDir, 0755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := config.Init(opts.configPath); err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	base := config.Cfg()

	params := NewParamVector()
	seeds := make([]int64, opts.seeds)
	for i := range seeds {
		seeds[i] = int64(i*1000 + 42)
	}
	evaluator := NewFitnessEvaluator(params, opts.maxTicks, seeds, base)

	trail, err := newSearchLog(filepath.Join(opts.outputDir, "optimize_log.csv"), params)
	if err != nil {
		return err
	}
	defer trail.close()

	popSize := opts.population
	if popSize == 0 {
		popSize = 4 + int(3*math.Log(float64(params.Dim())))
	}

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			used := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(used)
			trail.record(fitness, used)
			slog.Info("evaluation",
				"n", trail.evals,
				"of", opts.maxEvals,
				"quality", evaluator.LastQuality(),
				"best", -trail.bestFitness,
				"elapsed", time.Since(trail.start).Round(time.Second),
				"eta", trail.eta(opts.maxEvals).Round(time.Second),
			)
			return fitness
		},
	}
	method := &optimize.CmaEsChol{InitStepSize: 0.3, Population: popSize}
	settings := &optimize.Settings{FuncEvaluations: opts.maxEvals}

	slog.Info("starting search",
		"params", params.Dim(),
		"population", popSize,
		"max_evals", opts.maxEvals,
		"seeds", opts.seeds,
		"ticks", opts.maxTicks,
	)
	result, err := optimize.Minimize(problem, params.Normalize(params.DefaultVector()), settings, method)
	if err != nil {
		slog.Warn("search stopped", "error", err)
	}

	best := trail.best
	if best == nil && result != nil {
		best = params.Clamp(params.Denormalize(result.X))
	}
	if best == nil {
		return errors.New("no evaluation completed")
	}

	attrs := []any{"evals", trail.evals, "quality", -trail.bestFitness}
	for i, spec := range params.Specs {
		attrs = append(attrs, spec.Path, best[i])
	}
	slog.Info("search complete", attrs...)

	return writeResults(opts.outputDir, base, params, best, evaluator)
}

// writeResults saves the best config and the hall of fame of the best run.
func writeResults(dir string, base *config.Config, params *ParamVector, best []float64, evaluator *FitnessEvaluator) error {
	cfg := *base
	params.ApplyToConfig(&cfg, best)
	path := filepath.Join(dir, "best_config.yaml")
	if err := cfg.WriteYAML(path); err != nil {
		return fmt.Errorf("writing best config: %w", err)
	}
	slog.Info("best config saved", "path", path)

	hof := evaluator.BestHallOfFame()
	if hof == nil {
		return nil
	}
	data, err := json.MarshalIndent(hof, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding hall of fame: %w", err)
	}
	path = filepath.Join(dir, "hall_of_fame.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing hall of fame: %w", err)
	}
	slog.Info("hall of fame saved", "path", path, "entries", hof.Size())
	return nil
}

// searchLog appends one CSV row per evaluation and tracks the best point.
// Columns depend on the parameter set, so rows are built by hand.
type searchLog struct {
	f *os.File
	w *csv.Writer

	start       time.Time
	evals       int
	bestFitness float64
	best        []float64
}

func newSearchLog(path string, params *ParamVector) (*searchLog, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating search log: %w", err)
	}
	l := &searchLog{f: f, w: csv.NewWriter(f), start: time.Now(), bestFitness: math.Inf(1)}

	header := []string{"eval", "fitness"}
	for _, spec := range params.Specs {
		header = append(header, spec.Name)
	}
	if err := l.w.Write(header); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing search log header: %w", err)
	}
	return l, nil
}

func (l *searchLog) record(fitness float64, values []float64) {
	l.evals++
	if fitness < l.bestFitness {
		l.bestFitness = fitness
		l.best = slices.Clone(values)
	}

	row := []string{strconv.Itoa(l.evals), strconv.FormatFloat(fitness, 'f', 6, 64)}
	for _, v := range values {
		row = append(row, strconv.FormatFloat(v, 'f', 6, 64))
	}
	if err := l.w.Write(row); err != nil {
		slog.Error("failed to write search log", "error", err)
	}
	l.w.Flush()
}

// eta extrapolates the remaining time from the mean evaluation time so far.
func (l *searchLog) eta(budget int) time.Duration {
	if l.evals == 0 {
		return 0
	}
	per := time.Since(l.start) / time.Duration(l.evals)
	return time.Duration(max(budget-l.evals, 0)) * per
}

func (l *searchLog) close() {
	l.w.Flush()
	l.f.Close()
}

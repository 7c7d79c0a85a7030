package main

import (
	"log/slog"
	"math"
	"sync"

	"gonum.org/v1/gonum/stat"

	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/game"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/telemetry"
)

// FitnessEvaluator runs simulations and computes fitness.
type FitnessEvaluator struct {
	params     *ParamVector
	maxTicks   int
	seeds      []int64
	baseConfig *config.Config

	mu             sync.Mutex
	bestFitness    float64
	bestHallOfFame *telemetry.HallOfFame
	lastQuality    float64
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, maxTicks int, seeds []int64, baseCfg *config.Config) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:      params,
		maxTicks:    maxTicks,
		seeds:       seeds,
		baseConfig:  baseCfg,
		bestFitness: math.Inf(1),
	}
}

// BestHallOfFame returns the hall of fame from the best evaluation.
func (fe *FitnessEvaluator) BestHallOfFame() *telemetry.HallOfFame {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.bestHallOfFame
}

// LastQuality returns the quality score from the most recent evaluation.
func (fe *FitnessEvaluator) LastQuality() float64 {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.lastQuality
}

// seedRun is the outcome of one simulated run.
type seedRun struct {
	quality    float64
	hallOfFame *telemetry.HallOfFame
	err        error
}

// Evaluate runs every seed in parallel on the clamped parameter values x and
// returns the negated mean quality, so lower is better. A failed seed scores 0.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	runs := make([]seedRun, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Go(func() {
			runs[i] = fe.run(x, seed)
		})
	}
	wg.Wait()

	var sum float64
	best := -1
	for i, r := range runs {
		if r.err != nil {
			slog.Error("evaluation failed", "seed", fe.seeds[i], "error", r.err)
			continue
		}
		sum += r.quality
		if best < 0 || r.quality > runs[best].quality {
			best = i
		}
	}
	quality := sum / float64(len(runs))
	fitness := -quality

	fe.mu.Lock()
	defer fe.mu.Unlock()
	fe.lastQuality = quality
	if fitness < fe.bestFitness && best >= 0 {
		fe.bestFitness = fitness
		fe.bestHallOfFame = runs[best].hallOfFame
	}
	return fitness
}

// run simulates one seed for maxTicks. Every run gets its own catalog,
// since programs reweight it.
func (fe *FitnessEvaluator) run(x []float64, seed int64) seedRun {
	cfg := *fe.baseConfig
	fe.params.ApplyToConfig(&cfg, x)

	cat, err := genome.DefaultCatalog()
	if err != nil {
		return seedRun{err: err}
	}
	programs, err := genome.Seeds(cat)
	if err != nil {
		return seedRun{err: err}
	}

	var windows []telemetry.WindowStats
	sim, err := game.NewSimulation(&cfg, cat, game.Options{
		Seed: seed,
		OnWindow: func(stats telemetry.WindowStats, _ []game.EntitySnapshot) {
			windows = append(windows, stats)
		},
	})
	if err != nil {
		return seedRun{err: err}
	}
	sim.Populate(programs)
	sim.Advance(fe.maxTicks)

	return seedRun{
		quality:    computeQuality(windows, cfg.Registry.MaxRobots),
		hallOfFame: sim.HallOfFame(),
	}
}

// Quality component weights.
const (
	qualityWeightPopulation = 0.40
	qualityWeightStability  = 0.20
	qualityWeightDepth      = 0.25
	qualityWeightDiversity  = 0.15

	qualityWarmupWindows = 2  // skip first N windows (warmup)
	targetGeneration     = 50 // generation depth scoring full marks
)

// computeQuality scores a run in [0, 1]: a full, steady arena whose lineages
// reach deep generations without collapsing into one genome.
func computeQuality(windows []telemetry.WindowStats, maxRobots int) float64 {
	if len(windows) <= qualityWarmupWindows || maxRobots <= 0 {
		return 0
	}
	valid := windows[qualityWarmupWindows:]

	counts := make([]float64, len(valid))
	var diversitySum float64
	maxGen := 0
	for i, w := range valid {
		counts[i] = float64(w.Robots)
		if w.Robots > 0 {
			diversitySum += float64(w.Lineages) / float64(w.Robots)
		}
		maxGen = max(maxGen, w.MaxGeneration)
	}

	mean, std := stat.PopMeanStdDev(counts, nil)
	popScore := mean / float64(maxRobots)

	stabilityScore := 0.0
	if mean > 0 {
		cv := std / mean
		stabilityScore = math.Exp(-cv * cv)
	}

	depthScore := math.Min(float64(maxGen)/targetGeneration, 1)
	diversityScore := diversitySum / float64(len(valid))

	quality := qualityWeightPopulation*popScore +
		qualityWeightStability*stabilityScore +
		qualityWeightDepth*depthScore +
		qualityWeightDiversity*diversityScore

	return clamp01(quality)
}

// clamp01 clamps x to [0, 1].
func clamp01(x float64) float64 {
	return min(max(x, 0), 1)
}

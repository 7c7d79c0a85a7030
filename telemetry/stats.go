package telemetry

import (
	"log/slog"
	"slices"

	"gonum.org/v1/gonum/stat"
)

// WindowStats holds aggregated statistics for a tick window.
type WindowStats struct {
	WindowStartTick int64 `csv:"-"`
	WindowEndTick   int64 `csv:"window_end"`

	// Population at window end
	Robots  int `csv:"robots"`
	Cogs    int `csv:"cogs"`
	Bullets int `csv:"bullets"`

	// Events during window
	Births        int     `csv:"births"`
	Deaths        int     `csv:"deaths"`
	Starved       int     `csv:"starved"`
	FailedSpawns  int     `csv:"failed_spawns"`
	Shots         int     `csv:"shots"`
	Hits          int     `csv:"hits"`
	HitRate       float64 `csv:"hit_rate"`
	Pickups       int     `csv:"pickups"`
	Reproductions int     `csv:"reproductions"`

	// Purse distribution (sampled at window end)
	PurseMean float64 `csv:"purse_mean"`
	PurseStd  float64 `csv:"purse_std"`
	PurseP50  float64 `csv:"purse_p50"`

	FitnessMean float64 `csv:"fitness_mean"`
	FitnessMax  float64 `csv:"fitness_max"`

	// Lineage
	MaxGeneration int `csv:"max_generation"`
	Lineages      int `csv:"lineages"` // Distinct genome fingerprints
	TotalWeight   int `csv:"total_weight"`
}

// Summarize returns the mean, population standard deviation and median of
// values. All are 0 for an empty slice.
func Summarize(values []float64) (mean, std, p50 float64) {
	if len(values) == 0 {
		return 0, 0, 0
	}
	mean, std = stat.PopMeanStdDev(values, nil)

	sorted := slices.Clone(values)
	slices.Sort(sorted)
	p50 = stat.Quantile(0.5, stat.Empirical, sorted, nil)

	return mean, std, p50
}

// LogValue implements slog.LogValuer for structured logging.
func (s WindowStats) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("window_start", s.WindowStartTick),
		slog.Int64("window_end", s.WindowEndTick),
		slog.Int("robots", s.Robots),
		slog.Int("cogs", s.Cogs),
		slog.Int("bullets", s.Bullets),
		slog.Int("births", s.Births),
		slog.Int("deaths", s.Deaths),
		slog.Int("starved", s.Starved),
		slog.Int("failed_spawns", s.FailedSpawns),
		slog.Int("shots", s.Shots),
		slog.Int("hits", s.Hits),
		slog.Float64("hit_rate", s.HitRate),
		slog.Int("pickups", s.Pickups),
		slog.Int("reproductions", s.Reproductions),
		slog.Float64("purse_mean", s.PurseMean),
		slog.Float64("purse_std", s.PurseStd),
		slog.Float64("purse_p50", s.PurseP50),
		slog.Float64("fitness_mean", s.FitnessMean),
		slog.Float64("fitness_max", s.FitnessMax),
		slog.Int("max_generation", s.MaxGeneration),
		slog.Int("lineages", s.Lineages),
		slog.Int("total_weight", s.TotalWeight),
	)
}

// LogStats logs the window stats using slog.
func (s WindowStats) LogStats() {
	slog.Info("stats", "window", s)
}

// Package telemetry provides windowed population statistics, per-robot
// lifetime records, tick timing and CSV output.
package telemetry

// Collector accumulates events within tick windows and produces WindowStats.
type Collector struct {
	windowTicks int64

	// Current window tracking
	windowStart int64

	// Event counters for current window
	births        int
	deaths        int
	starved       int
	failedSpawns  int
	shots         int
	hits          int
	pickups       int
	reproductions int
}

// NewCollector creates a collector that flushes every windowTicks ticks.
func NewCollector(windowTicks int) *Collector {
	if windowTicks < 1 {
		windowTicks = 1
	}
	return &Collector{windowTicks: int64(windowTicks)}
}

// RecordBirth records a robot entering the arena.
func (c *Collector) RecordBirth() {
	c.births++
}

// RecordDeath records a robot leaving the arena. starved is true when it
// died with an empty purse.
func (c *Collector) RecordDeath(starved bool) {
	c.deaths++
	if starved {
		c.starved++
	}
}

// RecordFailedSpawn records a queued entity the registry refused.
func (c *Collector) RecordFailedSpawn() {
	c.failedSpawns++
}

// RecordShot records a bullet being queued.
func (c *Collector) RecordShot() {
	c.shots++
}

// RecordHit records a bullet striking a robot.
func (c *Collector) RecordHit() {
	c.hits++
}

// RecordPickup records a robot collecting a cog.
func (c *Collector) RecordPickup() {
	c.pickups++
}

// RecordReproduction records a reproduction request.
func (c *Collector) RecordReproduction() {
	c.reproductions++
}

// ShouldFlush returns true if enough ticks have passed to flush the window.
func (c *Collector) ShouldFlush(tick int64) bool {
	return tick-c.windowStart >= c.windowTicks
}

// Sample is the arena state read at the end of a window.
type Sample struct {
	Robots  int
	Cogs    int
	Bullets int

	// Per-robot values
	Purses       []float64
	Fitness      []float64
	Generations  []int
	Fingerprints []string

	TotalWeight int
}

// Flush produces a WindowStats and resets counters for the next window.
func (c *Collector) Flush(tick int64, s Sample) WindowStats {
	var hitRate float64
	if c.shots > 0 {
		hitRate = float64(c.hits) / float64(c.shots)
	}

	purseMean, purseStd, purseP50 := Summarize(s.Purses)
	fitMean, _, _ := Summarize(s.Fitness)

	stats := WindowStats{
		WindowStartTick: c.windowStart,
		WindowEndTick:   tick,

		Robots:  s.Robots,
		Cogs:    s.Cogs,
		Bullets: s.Bullets,

		Births:        c.births,
		Deaths:        c.deaths,
		Starved:       c.starved,
		FailedSpawns:  c.failedSpawns,
		Shots:         c.shots,
		Hits:          c.hits,
		HitRate:       hitRate,
		Pickups:       c.pickups,
		Reproductions: c.reproductions,

		PurseMean: purseMean,
		PurseStd:  purseStd,
		PurseP50:  purseP50,

		FitnessMean: fitMean,
		FitnessMax:  maxOf(s.Fitness),

		MaxGeneration: maxGeneration(s.Generations),
		Lineages:      distinct(s.Fingerprints),
		TotalWeight:   s.TotalWeight,
	}

	// Reset for next window
	c.windowStart = tick
	c.births = 0
	c.deaths = 0
	c.starved = 0
	c.failedSpawns = 0
	c.shots = 0
	c.hits = 0
	c.pickups = 0
	c.reproductions = 0

	return stats
}

// WindowTicks returns the number of ticks per window.
func (c *Collector) WindowTicks() int64 {
	return c.windowTicks
}

func maxOf(values []float64) float64 {
	var m float64
	for i, v := range values {
		if i == 0 || v > m {
			m = v
		}
	}
	return m
}

func maxGeneration(gens []int) int {
	m := 0
	for _, g := range gens {
		m = max(m, g)
	}
	return m
}

func distinct(keys []string) int {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		seen[k] = struct{}{}
	}
	return len(seen)
}

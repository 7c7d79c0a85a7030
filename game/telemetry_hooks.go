package game

import (
	"log/slog"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/telemetry"
)

// flushTelemetry checks if the stats window should be flushed and handles bookmarks.
func (s *Simulation) flushTelemetry() {
	if !s.collector.ShouldFlush(s.tick) {
		return
	}

	stats := s.collector.Flush(s.tick, s.sample())
	perfStats := s.perf.Stats()

	if s.logStats {
		stats.LogStats()
		slog.Info("perf", "window", perfStats)
	}

	if err := s.output.WriteTelemetry(stats); err != nil {
		slog.Error("failed to write telemetry", "error", err)
	}
	if err := s.output.WritePerf(perfStats, stats.WindowEndTick); err != nil {
		slog.Error("failed to write perf", "error", err)
	}

	for _, bm := range s.bookmarks.Check(stats) {
		if s.logStats {
			bm.LogBookmark()
		}
		if err := s.output.WriteBookmark(bm); err != nil {
			slog.Error("failed to write bookmark", "error", err)
		}
	}

	if s.onWindow != nil {
		s.onWindow(stats, s.Snapshots())
	}
}

// sample reads the population state for the window summary.
func (s *Simulation) sample() telemetry.Sample {
	smp := telemetry.Sample{
		Robots:      s.field.Count(components.KindRobot),
		Cogs:        s.field.Count(components.KindCog),
		Bullets:     s.field.Count(components.KindBullet),
		TotalWeight: s.cat.TotalWeight(),
	}
	s.field.EachRobot(func(_ *components.Body, agent *components.Agent) {
		smp.Purses = append(smp.Purses, agent.Cogs)
		smp.Fitness = append(smp.Fitness, agent.Fitness)
		smp.Generations = append(smp.Generations, agent.Generation)
		smp.Fingerprints = append(smp.Fingerprints, genome.Fingerprint(agent.Memory))
	})
	return smp
}

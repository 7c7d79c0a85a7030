package game

import (
	"log/slog"

	"github.com/pthm-cable/arena/systems"
	"github.com/pthm-cable/arena/telemetry"
)

func (s *Simulation) logBirth(ref systems.Ref) {
	slog.Debug("birth",
		"tick", s.tick,
		"id", ref.ID,
		"name", ref.Agent.Name,
		"generation", ref.Agent.Generation,
		"parent", ref.Agent.Parent,
	)
}

// logDeath logs a robot's removal with what it achieved. stats may be nil
// for robots added before tracking began.
func (s *Simulation) logDeath(ref systems.Ref, stats *telemetry.LifetimeStats) {
	attrs := []any{
		"tick", s.tick,
		"id", ref.ID,
		"name", ref.Agent.Name,
		"generation", ref.Agent.Generation,
		"fitness", ref.Agent.Fitness,
		"cogs", ref.Agent.Cogs,
	}
	if stats != nil {
		attrs = append(attrs,
			"age", s.tick-stats.BirthTick,
			"children", stats.Children,
			"shots", stats.Shots,
			"hits", stats.Hits,
			"pickups", stats.Pickups,
		)
	}
	slog.Debug("death", attrs...)
}

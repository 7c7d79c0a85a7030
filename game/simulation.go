// Package game runs the arena. A Simulation owns the entity registry, the
// interpreter and the per-tick schedule, and is the world that running
// programs observe.
package game

import (
	"fmt"
	"math/rand"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/systems"
	"github.com/pthm-cable/arena/telemetry"
	"github.com/pthm-cable/arena/vm"
)

// Options configures a Simulation beyond the arena config.
type Options struct {
	Seed     int64
	LogStats bool  // Log window stats via slog
	Namer    Namer // nil uses the syllable namer

	// Output is optional; nil disables CSV and dump output.
	Output *telemetry.OutputManager

	// OnWindow is called after every telemetry window with the stats and a
	// snapshot of the live robots.
	OnWindow func(stats telemetry.WindowStats, robots []EntitySnapshot)
}

// Simulation is the arena state and its tick driver. It is not safe for
// concurrent use.
type Simulation struct {
	cfg  *config.Config
	rng  *rand.Rand
	tick int64

	cat    *genome.Catalog
	interp *vm.Interpreter
	field  *systems.Field

	physics       systems.Physics
	bulletPhysics systems.Physics // drag-free

	// Collision broad phase, reused every tick.
	grid *systems.SpatialGrid
	byID []systems.Ref
	near []int

	namer Namer
	seeds []*genome.Genome

	// Entities queued during a tick, added in the spawn phase.
	pending []systems.Spawn

	collector  *telemetry.Collector
	lifetime   *telemetry.LifetimeTracker
	hallOfFame *telemetry.HallOfFame
	bookmarks  *telemetry.BookmarkDetector
	perf       *telemetry.PerfCollector
	output     *telemetry.OutputManager

	logStats bool
	onWindow func(telemetry.WindowStats, []EntitySnapshot)
}

var _ vm.World = (*Simulation)(nil)
var _ systems.Hooks = (*Simulation)(nil)

// NewSimulation binds the catalog to the interpreter and creates an empty
// arena. The catalog is owned by the simulation from here on: programs
// reweight it.
func NewSimulation(cfg *config.Config, cat *genome.Catalog, opts Options) (*Simulation, error) {
	interp, err := vm.New(cat, vm.OptionsFromConfig(cfg))
	if err != nil {
		return nil, fmt.Errorf("binding catalog: %w", err)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	s := &Simulation{
		cfg:        cfg,
		rng:        rng,
		cat:        cat,
		interp:     interp,
		physics:    systems.NewPhysics(cfg),
		namer:      opts.Namer,
		collector:  telemetry.NewCollector(cfg.Telemetry.WindowTicks),
		lifetime:   telemetry.NewLifetimeTracker(),
		hallOfFame: telemetry.NewHallOfFame(cfg.HallOfFame, rng),
		bookmarks:  telemetry.NewBookmarkDetector(cfg.Telemetry.BookmarkSpan),
		perf:       telemetry.NewPerfCollector(cfg.Telemetry.WindowTicks),
		output:     opts.Output,
		logStats:   opts.LogStats,
		onWindow:   opts.OnWindow,
	}
	s.bulletPhysics = s.physics
	s.bulletPhysics.Drag, s.bulletPhysics.RotDrag = 0, 0

	if s.namer == nil {
		s.namer = SyllableNamer{}
	}

	caps := map[components.Kind]int{
		components.KindRobot: cfg.Registry.MaxRobots,
		components.KindCog:   cfg.Registry.MaxCogs,
	}
	s.field = systems.NewField(cfg.Registry.Capacity, caps, s)

	reach := max(cfg.Robot.Size, cfg.Bullet.Size, cfg.Cogs.Size)
	s.grid = systems.NewSpatialGrid(cfg.Arena.Size, 2*reach)
	s.byID = make([]systems.Ref, cfg.Registry.Capacity)

	return s, nil
}

// Tick returns the number of completed ticks.
func (s *Simulation) Tick() int64 { return s.tick }

// Rand returns the simulation's random source. Every random draw in a run
// goes through it, so equal seeds replay equally.
func (s *Simulation) Rand() *rand.Rand { return s.rng }

// Catalog returns the live gene catalog.
func (s *Simulation) Catalog() *genome.Catalog { return s.cat }

// Config returns the arena config.
func (s *Simulation) Config() *config.Config { return s.cfg }

// Field returns the entity registry.
func (s *Simulation) Field() *systems.Field { return s.field }

// HallOfFame returns the genomes kept for reseeding.
func (s *Simulation) HallOfFame() *telemetry.HallOfFame { return s.hallOfFame }

// Lookup resolves an entity id.
func (s *Simulation) Lookup(id int) (systems.Ref, bool) { return s.field.Get(id) }

// WithinDistance counts entities strictly closer than radius to (x, y).
func (s *Simulation) WithinDistance(x, y, radius float64) int {
	return s.field.WithinDistance(x, y, radius)
}

// Nearest returns the closest entity within radius other than exclude.
func (s *Simulation) Nearest(x, y, radius float64, exclude int) (int, bool) {
	return s.field.Nearest(x, y, radius, exclude)
}

// Advance runs n ticks.
func (s *Simulation) Advance(n int) {
	for range n {
		s.step()
	}
}

// step runs one tick: update every entity in slot order, resolve
// collisions, then apply the deferred removals and additions.
func (s *Simulation) step() {
	s.perf.StartTick()
	s.tick++

	s.perf.StartPhase(telemetry.PhaseUpdate)
	for _, id := range s.field.IDs() {
		ref, _ := s.field.Get(id)
		switch ref.Kind {
		case components.KindRobot:
			s.physics.Integrate(ref.Body)
			s.updateRobot(ref)
		case components.KindBullet:
			s.bulletPhysics.Integrate(ref.Body)
			ref.Bullet.TTL--
			if ref.Bullet.TTL <= 0 {
				ref.Body.Health = 0
			}
		default:
			s.physics.Integrate(ref.Body)
		}
	}

	s.perf.StartPhase(telemetry.PhaseCollide)
	s.collide()

	s.perf.StartPhase(telemetry.PhaseCleanup)
	s.removeDead()

	s.perf.StartPhase(telemetry.PhaseSpawn)
	s.flushSpawns()

	s.perf.StartPhase(telemetry.PhaseDistribute)
	s.distributeCogs()
	s.respawn()

	s.perf.StartPhase(telemetry.PhaseTelemetry)
	s.flushTelemetry()

	s.perf.EndTick()
}

// updateRobot runs the robot's program and applies its upkeep.
func (s *Simulation) updateRobot(ref systems.Ref) {
	body, agent := ref.Body, ref.Agent

	m := vm.Machine{ID: ref.ID, Body: body, Agent: agent, World: s}
	res := s.interp.RunProgram(&m)
	if agent.Cogs > 0 {
		agent.Fitness += res.Spent
	}

	body.Health = min(body.Health, float64(agent.Stat(components.StatMaxHealth)))
	if agent.Cogs <= 0 {
		body.Damage(s.cfg.Robot.StarvationDamage)
	}
}

// runMeta runs meta bank 0 of a robot, for birth and death.
func (s *Simulation) runMeta(ref systems.Ref) {
	m := vm.Machine{ID: ref.ID, Body: ref.Body, Agent: ref.Agent, World: s}
	s.interp.RunMeta(&m)
}

package game

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/systems"
)

// Populate seeds the arena: cfg.Population.Initial copies of every program
// at random positions plus the initial cogs. The programs are also kept for
// respawning.
func (s *Simulation) Populate(programs []*genome.Genome) {
	s.seeds = programs

	for range s.cfg.Population.Initial {
		for _, p := range programs {
			x, y := s.randomPoint()
			s.AddProgram(p, x, y)
		}
	}
	for range s.cfg.Population.InitialCogs {
		s.addCog()
	}
}

// AddProgram places a robot running a copy of p at (x, y). It reports the
// new id, or false when the registry refused it.
func (s *Simulation) AddProgram(p *genome.Genome, x, y float64) (int, bool) {
	mem := p.Memory.Clone()
	mem.Registers = p.Memory.Registers

	name := p.Name
	if name == "" {
		name = s.namer.Name(s.rng)
	}
	return s.field.Add(s.newRobot(mem, name, x, y))
}

// newRobot builds a robot spawn with baseline stats.
func (s *Simulation) newRobot(mem *genome.MemorySet, name string, x, y float64) systems.Spawn {
	cfg := s.cfg

	body := components.NewBody(x, y, cfg.Robot.Size, cfg.Robot.InitialHealth)
	body.Mass = cfg.Robot.Mass
	body.R = s.rng.Float64() * 2 * math.Pi
	s.physics.Clamp(&body)

	agent := components.NewAgent(mem, name, cfg.Robot.DefaultStat, cfg.Robot.InitialCogs)
	agent.ViewDistance = cfg.Robot.ViewDistance

	return systems.Spawn{Kind: components.KindRobot, Body: body, Agent: agent}
}

// OnAdd runs when the registry stores an entity. Robots run their birth
// hook here.
func (s *Simulation) OnAdd(id int, kind components.Kind) {
	if kind != components.KindRobot {
		return
	}
	ref, _ := s.field.Get(id)
	agent := ref.Agent

	s.collector.RecordBirth()
	s.lifetime.Register(id, s.tick, agent.Parent, agent.Generation)
	if agent.Parent >= 0 {
		s.lifetime.RecordChild(agent.Parent)
	}
	s.logBirth(ref)

	s.runMeta(ref)
}

// OnRemove runs before the registry frees an entity. Robots run their death
// hook here, while their state is still readable.
func (s *Simulation) OnRemove(id int, kind components.Kind) {
	if kind != components.KindRobot {
		return
	}
	ref, _ := s.field.Get(id)
	s.runMeta(ref)

	agent := ref.Agent
	stats := s.lifetime.Remove(id)
	s.collector.RecordDeath(agent.Cogs <= 0)
	s.hallOfFame.Consider(agent.Memory, agent.Fitness, id, agent.Name, agent.Generation, stats)
	s.logDeath(ref, stats)
}

// Fire queues a bullet from the shooter's muzzle.
func (s *Simulation) Fire(shooter int) bool {
	ref, ok := s.field.Get(shooter)
	if !ok || ref.Agent == nil {
		return false
	}
	s.pending = append(s.pending, s.bullet(ref))
	s.collector.RecordShot()
	s.lifetime.RecordShot(shooter)
	return true
}

// bullet builds a projectile leaving the robot along its heading. Spread
// jitters the direction; the body is placed just beyond the robot's edge.
func (s *Simulation) bullet(ref systems.Ref) systems.Spawn {
	cfg := s.cfg.Bullet
	b, a := ref.Body, ref.Agent

	spread := float64(a.Stat(components.StatBulletSpread)) / cfg.SpreadScale
	heading := systems.WrapAngle(b.R + (s.rng.Float64()*2-1)*spread)
	speed := float64(a.Stat(components.StatBulletSpeed)) / cfg.SpeedScale

	muzzle := b.Width/2 + cfg.Size/2 + 1
	body := components.NewBody(b.X+math.Cos(b.R)*muzzle, b.Y-math.Sin(b.R)*muzzle, cfg.Size, 1)
	body.R = heading
	body.VelX = speed * math.Cos(heading)
	body.VelY = -speed * math.Sin(heading)

	return systems.Spawn{
		Kind: components.KindBullet,
		Body: body,
		Bullet: components.Bullet{
			Owner:  ref.ID,
			Damage: float64(a.Stat(components.StatDamage)) / cfg.DamageScale,
			TTL:    cfg.TTL,
		},
	}
}

// removeDead removes every entity with no health left. Death hooks run in
// slot order.
func (s *Simulation) removeDead() {
	var dead []int
	for _, id := range s.field.IDs() {
		if ref, _ := s.field.Get(id); !ref.Body.Alive() {
			dead = append(dead, id)
		}
	}
	for _, id := range dead {
		s.field.Remove(id)
	}
}

// flushSpawns adds the entities queued this tick. Spawns queued by birth
// hooks wait for the next tick.
func (s *Simulation) flushSpawns() {
	batch := s.pending
	s.pending = nil
	for _, sp := range batch {
		if _, ok := s.field.Add(sp); !ok {
			s.collector.RecordFailedSpawn()
		}
	}
}

// distributeCogs drops a cog at a random point with the configured chance.
func (s *Simulation) distributeCogs() {
	if s.rng.Float64() < s.cfg.Cogs.DistributeChance {
		s.addCog()
	}
}

func (s *Simulation) addCog() (int, bool) {
	cfg := s.cfg.Cogs
	value := cfg.MinValue + s.rng.Intn(cfg.MaxValue-cfg.MinValue+1)
	x, y := s.randomPoint()
	return s.field.Add(systems.Spawn{
		Kind: components.KindCog,
		Body: components.NewBody(x, y, cfg.Size, 1),
		Cog:  components.Cog{Value: value},
	})
}

// respawn refills a collapsing population from the hall of fame or the
// seed programs.
func (s *Simulation) respawn() {
	pop := s.cfg.Population
	if s.field.Count(components.KindRobot) >= pop.RespawnThreshold {
		return
	}
	if len(s.seeds) == 0 && s.hallOfFame.Size() == 0 {
		return
	}

	for range pop.RespawnCount {
		x, y := s.randomPoint()
		if len(s.seeds) == 0 || (s.hallOfFame.Size() > 0 && s.rng.Float64() < s.cfg.HallOfFame.ReseedChance) {
			entry, _ := s.hallOfFame.Sample()
			sp := s.newRobot(entry.Memory, s.namer.Name(s.rng), x, y)
			sp.Agent.Generation = entry.Generation
			s.field.Add(sp)
			continue
		}
		s.AddProgram(s.seeds[s.rng.Intn(len(s.seeds))], x, y)
	}
	slog.Debug("respawn", "tick", s.tick, "robots", s.field.Count(components.KindRobot))
}

func (s *Simulation) randomPoint() (x, y float64) {
	lo, hi := s.cfg.Derived.MinPos, s.cfg.Derived.MaxPos
	return lo + s.rng.Float64()*(hi-lo), lo + s.rng.Float64()*(hi-lo)
}

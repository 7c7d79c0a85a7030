package game

import (
	"slices"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/systems"
)

// collide tests every touching pair of live entities once, lower id first.
// An entity killed earlier in the sweep takes part in no further contacts.
// The grid is built from positions at the start of the sweep.
func (s *Simulation) collide() {
	ids := s.field.IDs()
	s.grid.Clear()
	for _, id := range ids {
		ref, _ := s.field.Get(id)
		s.byID[id] = ref
		s.grid.Insert(id, ref.Body.X, ref.Body.Y)
	}

	for _, id := range ids {
		a := s.byID[id]
		s.near = s.grid.NearInto(s.near[:0], a.Body.X, a.Body.Y)
		slices.Sort(s.near)

		for _, other := range s.near {
			if !a.Body.Alive() {
				break
			}
			if other <= id {
				continue
			}
			b := s.byID[other]
			if !b.Body.Alive() || !systems.Intersects(a.Body, b.Body) {
				continue
			}
			s.contact(a, b)
		}
	}
}

// contact resolves one touching pair.
func (s *Simulation) contact(a, b systems.Ref) {
	if a.Kind > b.Kind {
		a, b = b, a
	}
	// Kinds are ordered robot < bullet < cog.
	switch {
	case a.Kind == components.KindRobot && b.Kind == components.KindRobot:
		systems.Repel(a.Body, b.Body)
	case a.Kind == components.KindRobot && b.Kind == components.KindBullet:
		s.hit(b, a)
	case a.Kind == components.KindRobot && b.Kind == components.KindCog:
		s.pickup(a, b)
	}
}

// hit applies a bullet to a robot. Bullets pass through their owner.
func (s *Simulation) hit(bullet, robot systems.Ref) {
	if bullet.Bullet.Owner == robot.ID {
		return
	}
	robot.Body.Damage(bullet.Bullet.Damage)
	bullet.Body.Health = 0
	s.collector.RecordHit()
	s.lifetime.RecordHit(bullet.Bullet.Owner)
}

// pickup moves a cog's value into the robot's purse.
func (s *Simulation) pickup(robot, cog systems.Ref) {
	value := float64(cog.Cog.Value)
	robot.Agent.Cogs += value
	cog.Body.Health = 0
	s.collector.RecordPickup()
	s.lifetime.RecordPickup(robot.ID, value)
}

package game

import (
	"github.com/pthm-cable/arena/systems"
)

// Reproduce queues a child of parent for the end of the tick. The child's
// memory is cloned now, so later writes by the parent do not leak into it.
// A child the registry refuses is dropped.
func (s *Simulation) Reproduce(parent int) bool {
	ref, ok := s.field.Get(parent)
	if !ok || ref.Agent == nil {
		return false
	}
	s.pending = append(s.pending, s.offspring(ref))
	s.collector.RecordReproduction()
	return true
}

// offspring builds a child: banks deep-copied, registers zeroed, baseline
// stats and purse, placed within the reproduction offset of the parent on
// each axis.
func (s *Simulation) offspring(parent systems.Ref) systems.Spawn {
	off := s.cfg.Derived.MaxOffset
	x := parent.Body.X + (s.rng.Float64()*2-1)*off
	y := parent.Body.Y + (s.rng.Float64()*2-1)*off

	child := s.newRobot(parent.Agent.Memory.Clone(), s.namer.Name(s.rng), x, y)
	child.Agent.Generation = parent.Agent.Generation + 1
	child.Agent.Parent = parent.ID
	return child
}

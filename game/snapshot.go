package game

import (
	"errors"
	"fmt"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/genome"
)

var (
	// ErrNoEntity is returned for an id with no live entity.
	ErrNoEntity = errors.New("no entity with that id")
	// ErrNotRobot is returned when a memory dump is asked of a bullet or cog.
	ErrNotRobot = errors.New("entity has no memory")
)

// EntitySnapshot is a read-only copy of one entity's visible state.
type EntitySnapshot struct {
	ID     int
	Kind   components.Kind
	X, Y   float64
	R      float64
	Health float64

	// Robots only
	Flash       [3]uint8
	Name        string
	Generation  int
	Fitness     float64
	Cogs        float64
	Fingerprint string
}

// Snapshots copies every live robot in slot order.
func (s *Simulation) Snapshots() []EntitySnapshot {
	out := make([]EntitySnapshot, 0, s.field.Count(components.KindRobot))
	for _, id := range s.field.IDs() {
		if snap, ok := s.Snapshot(id); ok && snap.Kind == components.KindRobot {
			out = append(out, snap)
		}
	}
	return out
}

// Snapshot copies the entity at id.
func (s *Simulation) Snapshot(id int) (EntitySnapshot, bool) {
	ref, ok := s.field.Get(id)
	if !ok {
		return EntitySnapshot{}, false
	}
	snap := EntitySnapshot{
		ID:     id,
		Kind:   ref.Kind,
		X:      ref.Body.X,
		Y:      ref.Body.Y,
		R:      ref.Body.R,
		Health: ref.Body.Health,
	}
	if a := ref.Agent; a != nil {
		for i, c := range a.Flash {
			snap.Flash[i] = uint8(c)
		}
		snap.Name = a.Name
		snap.Generation = a.Generation
		snap.Fitness = a.Fitness
		snap.Cogs = a.Cogs
		snap.Fingerprint = genome.Fingerprint(a.Memory)
	}
	return snap, true
}

func (s *Simulation) memory(id int) (*genome.MemorySet, error) {
	ref, ok := s.field.Get(id)
	if !ok {
		return nil, fmt.Errorf("entity %d: %w", id, ErrNoEntity)
	}
	if ref.Agent == nil {
		return nil, fmt.Errorf("entity %d (%s): %w", id, ref.Kind, ErrNotRobot)
	}
	return ref.Agent.Memory, nil
}

// DumpBank formats one bank of a robot. Meta and program banks are shown
// as instructions, storage banks as raw cells.
func (s *Simulation) DumpBank(id int, fam genome.Family, bank genome.Byte) (string, error) {
	mem, err := s.memory(id)
	if err != nil {
		return "", err
	}
	if fam == genome.Storage {
		return genome.FormatPassive(mem.Bank(fam, bank)), nil
	}
	return genome.FormatActive(mem.Bank(fam, bank), s.cat, &mem.Registers), nil
}

// DumpRegisters formats a robot's working registers.
func (s *Simulation) DumpRegisters(id int) (string, error) {
	mem, err := s.memory(id)
	if err != nil {
		return "", err
	}
	return genome.FormatPassive(&mem.Registers), nil
}

// DumpGenomes formats every live robot's memory, one block per robot.
func (s *Simulation) DumpGenomes() string {
	var out []byte
	for _, id := range s.field.IDs() {
		ref, _ := s.field.Get(id)
		if ref.Agent == nil {
			continue
		}
		out = fmt.Appendf(out, "== %d %s gen=%d fitness=%.2f fp=%s\n",
			id, ref.Agent.Name, ref.Agent.Generation, ref.Agent.Fitness, genome.Fingerprint(ref.Agent.Memory))
		out = append(out, genome.Format(ref.Agent.Memory, s.cat)...)
	}
	return string(out)
}

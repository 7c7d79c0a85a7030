package components

import (
	"math"

	"github.com/pthm-cable/arena/genome"
)

// Stat indexes a robot's upgradable statistics.
type Stat uint8

const (
	StatHaste Stat = iota
	StatDamage
	StatRegen
	StatSpeed
	StatToughness
	StatRotateSpeed
	StatBulletSpeed
	StatMaxHealth
	StatBulletSpread
	NumStats
)

var statNames = [NumStats]string{
	"haste", "damage", "regen", "speed", "toughness",
	"rotate_speed", "bullet_speed", "max_health", "bullet_spread",
}

func (s Stat) String() string {
	if s < NumStats {
		return statNames[s]
	}
	return "unknown"
}

// Cursor is where execution of a bank family resumes.
type Cursor struct {
	PC     int         // Index of the next instruction
	Loaded genome.Byte // Bank currently executing
}

// Agent is the program-driven part of a robot.
type Agent struct {
	Memory *genome.MemorySet
	Stats  [NumStats]int

	Cogs       float64
	Fitness    float64
	Generation int
	Name       string
	Parent     int // Registry id of the parent at birth, -1 for seeded robots

	// Comparison flags, sticky until the next _COMP.
	Equal, Greater bool

	Cursor       Cursor // Program family; meta runs always start fresh
	LastFire     int64
	Flash        [3]genome.Byte
	ViewDistance float64
}

// NewAgent wraps a memory set with baseline stats.
func NewAgent(mem *genome.MemorySet, name string, stat int, cogs float64) Agent {
	a := Agent{
		Memory: mem,
		Cogs:   cogs,
		Name:   name,
		Parent: -1,
		Flash:  [3]genome.Byte{0, 0xBB, 0},
		// A new robot may fire at once.
		LastFire: math.MinInt32,
	}
	for i := range a.Stats {
		a.Stats[i] = stat
	}
	return a
}

// Stat returns a stat value.
func (a *Agent) Stat(s Stat) int {
	if s >= NumStats {
		return 0
	}
	return a.Stats[s]
}

// Package vm executes robot programs. Opcodes are dispatched through a fixed
// 256-entry table built once from the gene catalog; every instruction is
// four cells (opcode plus three raw arguments) and costs cogs.
package vm

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/systems"
)

// ErrUnboundGene is returned by New when a catalog entry names no known effect.
var ErrUnboundGene = errors.New("no effect bound to gene")

// Effect is the behaviour of one opcode. Arguments are the raw cells that
// follow the opcode; effects decide whether to dereference them.
type Effect func(m *Machine, a0, a1, a2 genome.Byte)

// World is what a running program can see and ask for beyond its own robot.
type World interface {
	Tick() int64
	Rand() *rand.Rand
	Lookup(id int) (systems.Ref, bool)
	WithinDistance(x, y, radius float64) int
	Nearest(x, y, radius float64, exclude int) (int, bool)
	// Fire and Reproduce queue a spawn for the end of the tick. They report
	// false when the request was refused.
	Fire(shooter int) bool
	Reproduce(parent int) bool
}

// Options holds interpreter tuning.
type Options struct {
	StepTax      float64 // Charged per executed instruction on top of its cost
	DeficitFloor float64 // A run halts once cogs drop below this
	ArenaSize    float64
	Physics      systems.Physics
	Recharge     int // Base fire cooldown in ticks
	ExistsProbes int // Probes for random-cell reads
}

// OptionsFromConfig reads interpreter options from config.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		StepTax:      cfg.VM.StepTax,
		DeficitFloor: cfg.VM.DeficitFloor,
		ArenaSize:    cfg.Arena.Size,
		Physics:      systems.NewPhysics(cfg),
		Recharge:     cfg.Bullet.Recharge,
		ExistsProbes: cfg.Random.ExistsProbes,
	}
}

// Interpreter runs programs against a catalog. It holds no per-robot state.
type Interpreter struct {
	cat      *genome.Catalog
	dispatch [genome.CatalogSize]Effect
	opts     Options
}

// New binds every catalog entry to its effect by name.
func New(cat *genome.Catalog, opts Options) (*Interpreter, error) {
	in := &Interpreter{cat: cat, opts: opts}
	for _, g := range cat.Genes() {
		fn, ok := effects[g.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %02X %s", ErrUnboundGene, g.Opcode, g.Name)
		}
		in.dispatch[g.Opcode] = fn
	}
	return in, nil
}

// Catalog returns the catalog the interpreter was built from.
func (in *Interpreter) Catalog() *genome.Catalog { return in.cat }

// Options returns the interpreter options.
func (in *Interpreter) Options() Options { return in.opts }

// Machine is the execution context of one run: the robot being driven and
// its view of the world.
type Machine struct {
	ID    int
	Body  *components.Body
	Agent *components.Agent
	World World

	in     *Interpreter
	family genome.Family
	pc     int
	loaded genome.Byte
}

// Result summarizes a run.
type Result struct {
	Executed int     // Instructions whose effect ran
	Spent    float64 // Gene costs paid, excluding step tax
	Halted   bool    // Stopped by the cogs floor rather than the bank end
}

// Run executes the family's loaded bank from the cursor until the bank ends
// or cogs fall below the floor. The cursor is updated so a halted run
// resumes at the instruction it could not pay for.
func (in *Interpreter) Run(m *Machine, fam genome.Family, cur *components.Cursor) Result {
	mem := m.Agent.Memory
	m.in = in
	m.family = fam
	m.pc, m.loaded = cur.PC, cur.Loaded

	var res Result
	for {
		bank := mem.Bank(fam, m.loaded)
		if bank == nil {
			// Loaded bank was destroyed; restart from bank 0.
			m.loaded, m.pc = 0, 0
			bank = mem.Bank(fam, 0)
		}
		if m.pc < 0 || m.pc > genome.BankSize-4 {
			m.pc = 0
			break
		}

		op := bank[m.pc]
		effect := in.dispatch[op]
		if effect == nil {
			m.pc += 4
			continue
		}

		g, _ := in.cat.Lookup(op)
		m.Agent.Cogs -= in.opts.StepTax + g.Cost
		if m.Agent.Cogs < in.opts.DeficitFloor {
			res.Halted = true
			break
		}
		res.Executed++
		res.Spent += g.Cost

		effect(m, bank[m.pc+1], bank[m.pc+2], bank[m.pc+3])
		m.pc += 4
	}

	cur.PC, cur.Loaded = m.pc, m.loaded
	return res
}

// RunMeta runs meta bank 0 from the start. Used for birth and death.
func (in *Interpreter) RunMeta(m *Machine) Result {
	var cur components.Cursor
	return in.Run(m, genome.Meta, &cur)
}

// RunProgram runs the program family from the robot's saved cursor.
func (in *Interpreter) RunProgram(m *Machine) Result {
	return in.Run(m, genome.Program, &m.Agent.Cursor)
}

func (m *Machine) regs() *genome.Bank { return &m.Agent.Memory.Registers }

func (m *Machine) reg(i genome.Byte) genome.Byte { return m.Agent.Memory.Registers[i] }

func (m *Machine) set(i, v genome.Byte) { m.Agent.Memory.Registers[i] = v }

// jump makes the next instruction start at target.
func (m *Machine) jump(target genome.Byte) { m.pc = int(target) - 4 }

// other resolves the entity whose id is held in registers lo (low byte) and
// hi (high byte).
func (m *Machine) other(lo, hi genome.Byte) (systems.Ref, bool) {
	id := int(m.reg(hi))<<8 | int(m.reg(lo))
	return m.World.Lookup(id)
}

package vm

import (
	"log/slog"
	"math"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/systems"
)

// cell is shorthand for the argument type in effect signatures.
type cell = genome.Byte

// costScale converts a gene cost into the byte _COST reports.
const costScale = 100

// effects maps catalog names to behaviour. A catalog may define any subset.
var effects = map[string]Effect{
	// development
	"_SNO":   func(*Machine, cell, cell, cell) {},
	"_PRINT": opPrint,

	// control flow
	"_GOTO":  func(m *Machine, a0, _, _ cell) { m.jump(m.reg(a0)) },
	"_GOE":   func(m *Machine, a0, _, _ cell) { m.jumpIf(m.Agent.Equal, m.reg(a0)) },
	"_GOG":   func(m *Machine, a0, _, _ cell) { m.jumpIf(m.Agent.Greater, m.reg(a0)) },
	"_IGOTO": func(m *Machine, a0, _, _ cell) { m.jump(a0) },
	"_IGOE":  func(m *Machine, a0, _, _ cell) { m.jumpIf(m.Agent.Equal, a0) },
	"_IGOG":  func(m *Machine, a0, _, _ cell) { m.jumpIf(m.Agent.Greater, a0) },
	"_COMP": func(m *Machine, a0, a1, _ cell) {
		x, y := m.reg(a0), m.reg(a1)
		m.Agent.Equal = x == y
		m.Agent.Greater = x > y
	},
	"_SWAP": func(m *Machine, a0, a1, _ cell) {
		if m.Agent.Memory.Has(m.family, a0) {
			m.loaded = a0
			m.jump(a1)
		}
	},

	// registers and banks
	"_MOV":  func(m *Machine, a0, a1, _ cell) { m.set(a0, m.reg(a1)) },
	"_IMOV": func(m *Machine, a0, a1, _ cell) { m.set(a0, a1) },
	"_SSTO": store(genome.Storage),
	"_PSTO": store(genome.Program),
	"_USTO": store(genome.Meta),
	"_SGET": load(genome.Storage),
	"_PGET": load(genome.Program),
	"_UGET": load(genome.Meta),

	"_ISSTO": storeImmediate(genome.Storage),
	"_IPSTO": storeImmediate(genome.Program),
	"_IUSTO": storeImmediate(genome.Meta),
	"_WCLR": func(m *Machine, _, a1, a2 cell) {
		clearRange(m.regs(), a1, a2)
	},
	"_SCLR": clearBank(genome.Storage),
	"_PCLR": clearBank(genome.Program),
	"_UCLR": clearBank(genome.Meta),

	"_DEFS":  func(m *Machine, a0, _, _ cell) { m.Agent.Memory.Define(genome.Storage, a0) },
	"_DEFP":  func(m *Machine, a0, _, _ cell) { m.Agent.Memory.Define(genome.Program, a0) },
	"_DEFU":  func(m *Machine, a0, _, _ cell) { m.Agent.Memory.Define(genome.Meta, a0) },
	"_SDEL":  func(m *Machine, a0, _, _ cell) { m.Agent.Memory.Destroy(genome.Storage, a0) },
	"_PDEL":  func(m *Machine, a0, _, _ cell) { m.Agent.Memory.Destroy(genome.Program, a0) },
	"_UDEL":  func(m *Machine, a0, _, _ cell) { m.Agent.Memory.Destroy(genome.Meta, a0) },
	"_SCOPY": func(m *Machine, a0, a1, _ cell) { m.Agent.Memory.Copy(genome.Storage, a0, a1) },
	"_PCOPY": func(m *Machine, a0, a1, _ cell) { m.Agent.Memory.Copy(genome.Program, a0, a1) },
	"_UCOPY": func(m *Machine, a0, a1, _ cell) { m.Agent.Memory.Copy(genome.Meta, a0, a1) },

	// self state
	"_POSX": func(m *Machine, a0, _, _ cell) { m.set(a0, m.scalePos(m.Body.X)) },
	"_POSY": func(m *Machine, a0, _, _ cell) { m.set(a0, m.scalePos(m.Body.Y)) },
	"_POSR": func(m *Machine, a0, _, _ cell) { m.set(a0, scaleAngle(m.Body.R)) },
	"_VELX": func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOfFloat(m.Body.VelX)) },
	"_VELY": func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOfFloat(m.Body.VelY)) },
	"_VELR": func(m *Machine, a0, _, _ cell) { m.set(a0, scaleAngle(m.Body.VelR)) },
	"_ACCX": func(m *Machine, a0, _, _ cell) { m.set(a0, m.scaleForce(m.Body.AccX)) },
	"_ACCY": func(m *Machine, a0, _, _ cell) { m.set(a0, m.scaleForce(m.Body.AccY)) },
	"_ACCR": func(m *Machine, a0, _, _ cell) { m.set(a0, m.scaleTorque(m.Body.AccR)) },

	"_UUIDM": func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOf(m.ID>>8)) },
	"_UUIDL": func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOf(m.ID)) },
	"_HP":    func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOfFloat(m.Body.Health)) },
	"_COG":   func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOfFloat(m.Agent.Cogs)) },
	"_PNT":   func(m *Machine, a0, _, _ cell) { m.set(a0, genome.ByteOfFloat(m.Agent.Fitness)) },
	"_STAT": func(m *Machine, a0, a1, _ cell) {
		m.set(a0, genome.ByteOf(m.Agent.Stat(components.Stat(a1>>5))))
	},
	"_UPG": opUpgrade,

	// sight
	"_VIEW": func(m *Machine, a0, _, _ cell) { m.Agent.ViewDistance = float64(m.reg(a0)) },
	"_NEAR": func(m *Machine, a0, _, _ cell) {
		n := m.World.WithinDistance(m.Body.X, m.Body.Y, m.Agent.ViewDistance)
		m.set(a0, genome.ByteOf(n))
	},
	"_NRST": func(m *Machine, a0, a1, _ cell) {
		if id, ok := m.World.Nearest(m.Body.X, m.Body.Y, m.Agent.ViewDistance, m.ID); ok {
			m.set(a0, genome.ByteOf(id))
			m.set(a1, genome.ByteOf(id>>8))
		}
	},

	// body
	"_HEAL":  func(m *Machine, _, _, _ cell) { m.Body.Heal(1) },
	"_FORWD": func(m *Machine, a0, _, _ cell) { m.forward(float64(a0)) },
	"_REVRS": func(m *Machine, a0, _, _ cell) { m.forward(-float64(a0)) },
	"_TURNL": func(m *Machine, a0, _, _ cell) { m.rotate(float64(a0)) },
	"_TURNR": func(m *Machine, a0, _, _ cell) { m.rotate(-float64(a0)) },
	"_FIRE":  opFire,
	"_LED": func(m *Machine, a0, a1, a2 cell) {
		m.Agent.Flash = [3]genome.Byte{m.reg(a0), m.reg(a1), m.reg(a2)}
	},

	// arithmetic on immediates
	"_ADD":   func(m *Machine, a0, a1, a2 cell) { m.set(a0, a1.Add(a2)) },
	"_SUB":   func(m *Machine, a0, a1, a2 cell) { m.set(a0, a1.Sub(a2)) },
	"_PROD":  func(m *Machine, a0, a1, a2 cell) { m.set(a0, a1.Mul(a2)) },
	"_BWOR":  func(m *Machine, a0, a1, a2 cell) { m.set(a0, a1.Or(a2)) },
	"_BWAND": func(m *Machine, a0, a1, a2 cell) { m.set(a0, a1.And(a2)) },
	"_BWXOR": func(m *Machine, a0, a1, a2 cell) { m.set(a0, a1.Xor(a2)) },
	"_INCR":  func(m *Machine, a0, _, _ cell) { m.set(a0, m.reg(a0).Incr()) },
	"_QUOT": func(m *Machine, a0, a1, a2 cell) {
		if a2 != 0 {
			m.set(a0, a1.Quo(a2))
		}
	},

	// other entities
	"_OTYPE": func(m *Machine, a0, a1, a2 cell) {
		if ref, ok := m.other(a1, a2); ok {
			m.set(a0, genome.Byte(ref.Kind.TypeCode()))
		}
	},
	"_OHP": func(m *Machine, a0, a1, a2 cell) {
		if ref, ok := m.other(a1, a2); ok {
			m.set(a0, genome.ByteOfFloat(ref.Body.Health))
		}
	},
	"_OCOG": func(m *Machine, a0, a1, a2 cell) {
		if ref, ok := m.other(a1, a2); ok && ref.Agent != nil {
			m.set(a0, genome.ByteOfFloat(ref.Agent.Cogs))
		}
	},
	"_OLEDR": otherFlash(0),
	"_OLEDG": otherFlash(1),
	"_OLEDB": otherFlash(2),
	"_OPOSX": otherBody(func(m *Machine, b *components.Body) cell { return m.scalePos(b.X) }),
	"_OPOSY": otherBody(func(m *Machine, b *components.Body) cell { return m.scalePos(b.Y) }),
	"_OPOSR": otherBody(func(m *Machine, b *components.Body) cell { return scaleAngle(b.R) }),
	"_OVELX": otherBody(func(m *Machine, b *components.Body) cell { return genome.ByteOfFloat(b.VelX) }),
	"_OVELY": otherBody(func(m *Machine, b *components.Body) cell { return genome.ByteOfFloat(b.VelY) }),
	"_OVELR": otherBody(func(m *Machine, b *components.Body) cell { return scaleAngle(b.VelR) }),
	"_OACCX": otherBody(func(m *Machine, b *components.Body) cell { return m.scaleForce(b.AccX) }),
	"_OACCY": otherBody(func(m *Machine, b *components.Body) cell { return m.scaleForce(b.AccY) }),
	"_OACCR": otherBody(func(m *Machine, b *components.Body) cell { return m.scaleTorque(b.AccR) }),

	// catalog and evolution
	"_KWGT": func(m *Machine, a0, a1, _ cell) {
		if g, ok := m.in.cat.Lookup(m.reg(a1)); ok {
			m.set(a0, genome.ByteOf(min(g.Weight, 255)))
		}
	},
	"_COST": func(m *Machine, a0, a1, _ cell) {
		if g, ok := m.in.cat.Lookup(m.reg(a1)); ok {
			m.set(a0, genome.ByteOfFloat(math.Min(g.Cost*costScale, 255)))
		}
	},
	"_TWK":   func(m *Machine, a0, a1, _ cell) { m.in.cat.Reweight(a0, int(m.reg(a1))) },
	"_KRAND": func(m *Machine, a0, _, _ cell) { m.set(a0, m.in.cat.Pick(m.World.Rand())) },
	"_URAND": randomCell(genome.Meta),
	"_PRAND": randomCell(genome.Program),
	"_SRAND": randomCell(genome.Storage),
	"_WRAND": func(m *Machine, a0, _, _ cell) {
		m.set(a0, genome.RandomSet(m.regs(), m.World.Rand(), m.in.opts.ExistsProbes))
	},
	"_IRAND": func(m *Machine, a0, _, _ cell) { m.set(a0, genome.Byte(m.World.Rand().Intn(256))) },
	"_REP":   func(m *Machine, _, _, _ cell) { m.World.Reproduce(m.ID) },
}

func (m *Machine) jumpIf(cond bool, target cell) {
	if cond {
		m.jump(target)
	}
}

func opPrint(m *Machine, a0, a1, a2 cell) {
	slog.Debug("robot_print",
		"id", m.ID,
		"name", m.Agent.Name,
		"values", []int{m.reg(a0).Int(), m.reg(a1).Int(), m.reg(a2).Int()},
	)
}

// opUpgrade pays W[a1] cogs to raise stat W[a0]>>5, capped at 255.
func opUpgrade(m *Machine, a0, a1, _ cell) {
	s := components.Stat(m.reg(a0) >> 5)
	amount := m.reg(a1).Int()
	m.Agent.Cogs -= float64(amount)
	m.Agent.Stats[s] = min(m.Agent.Stats[s]+amount, 255)
}

// opFire shoots once the haste-adjusted cooldown has passed since the last shot.
func opFire(m *Machine, _, _, _ cell) {
	cooldown := int64(max(m.in.opts.Recharge-m.Agent.Stat(components.StatHaste), 0))
	now := m.World.Tick()
	if now-m.Agent.LastFire < cooldown {
		return
	}
	if m.World.Fire(m.ID) {
		m.Agent.LastFire = now
	}
}

func (m *Machine) forward(force float64) {
	m.in.opts.Physics.Forward(m.Body, force, float64(m.Agent.Stat(components.StatSpeed)))
}

func (m *Machine) rotate(force float64) {
	m.in.opts.Physics.Rotate(m.Body, force, float64(m.Agent.Stat(components.StatRotateSpeed)))
}

func store(fam genome.Family) Effect {
	return func(m *Machine, a0, a1, a2 cell) {
		if b := m.Agent.Memory.Bank(fam, m.reg(a0)); b != nil {
			b[m.reg(a1)] = m.reg(a2)
		}
	}
}

func load(fam genome.Family) Effect {
	return func(m *Machine, a0, a1, a2 cell) {
		if b := m.Agent.Memory.Bank(fam, m.reg(a1)); b != nil {
			m.set(a0, b[m.reg(a2)])
		}
	}
}

func storeImmediate(fam genome.Family) Effect {
	return func(m *Machine, a0, a1, a2 cell) {
		if b := m.Agent.Memory.Bank(fam, a0); b != nil {
			b[a1] = a2
		}
	}
}

func clearBank(fam genome.Family) Effect {
	return func(m *Machine, a0, a1, a2 cell) {
		clearRange(m.Agent.Memory.Bank(fam, a0), a1, a2)
	}
}

// clearRange zeroes cells [from, to).
func clearRange(b *genome.Bank, from, to cell) {
	if b == nil {
		return
	}
	for i := int(from); i < int(to); i++ {
		b[i] = 0
	}
}

func randomCell(fam genome.Family) Effect {
	return func(m *Machine, a0, a1, _ cell) {
		b := m.Agent.Memory.Bank(fam, a1)
		if b == nil {
			return
		}
		m.set(a0, genome.RandomSet(b, m.World.Rand(), m.in.opts.ExistsProbes))
	}
}

func otherFlash(channel int) Effect {
	return func(m *Machine, a0, a1, a2 cell) {
		if ref, ok := m.other(a1, a2); ok && ref.Agent != nil {
			m.set(a0, ref.Agent.Flash[channel])
		}
	}
}

func otherBody(read func(*Machine, *components.Body) cell) Effect {
	return func(m *Machine, a0, a1, a2 cell) {
		if ref, ok := m.other(a1, a2); ok {
			m.set(a0, read(m, ref.Body))
		}
	}
}

func (m *Machine) scalePos(v float64) cell {
	return genome.ByteOfFloat(v / m.in.opts.ArenaSize * 255)
}

func (m *Machine) scaleForce(acc float64) cell {
	return genome.ByteOfFloat(acc * m.in.opts.Physics.ForceScale)
}

func (m *Machine) scaleTorque(acc float64) cell {
	return genome.ByteOfFloat(acc * m.in.opts.Physics.RotateScale)
}

func scaleAngle(r float64) cell {
	return genome.ByteOfFloat(systems.WrapAngle(r) / (2 * math.Pi) * 255)
}

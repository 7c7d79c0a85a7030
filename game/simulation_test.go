package game

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/genome"
	"github.com/pthm-cable/arena/systems"
	"github.com/pthm-cable/arena/telemetry"
)

type instr struct {
	name       string
	a0, a1, a2 genome.Byte
}

// quietConfig returns defaults with the random cog drops and respawning
// turned off, so a test sees only the entities it places.
func quietConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load error: %v", err)
	}
	cfg.Cogs.DistributeChance = 0
	cfg.Population.RespawnThreshold = 0
	return cfg
}

func newSim(t *testing.T, cfg *config.Config, opts Options) *Simulation {
	t.Helper()
	cat, err := genome.DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog error: %v", err)
	}
	s, err := NewSimulation(cfg, cat, opts)
	if err != nil {
		t.Fatalf("NewSimulation error: %v", err)
	}
	return s
}

// program assembles code into program bank 0 and optional meta bank 0
// code of a fresh memory set.
func program(t *testing.T, s *Simulation, code, meta []instr) *genome.Genome {
	t.Helper()
	mem := genome.NewMemorySet()
	for fam, list := range map[genome.Family][]instr{genome.Program: code, genome.Meta: meta} {
		b := mem.Bank(fam, 0)
		for i, c := range list {
			op, ok := s.cat.Opcode(c.name)
			if !ok {
				t.Fatalf("unknown opcode %s", c.name)
			}
			at := i * 4
			b[at], b[at+1], b[at+2], b[at+3] = op, c.a0, c.a1, c.a2
		}
	}
	return &genome.Genome{Name: "test", Memory: mem}
}

func mustAdd(t *testing.T, s *Simulation, p *genome.Genome, x, y float64) systems.Ref {
	t.Helper()
	id, ok := s.AddProgram(p, x, y)
	if !ok {
		t.Fatalf("AddProgram(%v, %v) refused", x, y)
	}
	ref, _ := s.Lookup(id)
	return ref
}

func TestReproductionOffsetBound(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 3})
	parent := mustAdd(t, s, program(t, s, nil, nil), 1024, 1024)
	off := s.cfg.Derived.MaxOffset

	for range 10000 {
		child := s.offspring(parent)
		dx := math.Abs(child.Body.X - parent.Body.X)
		dy := math.Abs(child.Body.Y - parent.Body.Y)
		if dx > off || dy > off {
			t.Fatalf("child offset (%v, %v), want within %v", dx, dy, off)
		}
	}
}

func TestOffspring(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 3})
	p := program(t, s, []instr{{"_IMOV", 1, 9, 0}}, nil)
	p.Memory.Registers[5] = 77
	p.Memory.Define(genome.Storage, 4)
	parent := mustAdd(t, s, p, 1024, 1024)
	parent.Agent.Cogs = 3
	parent.Agent.Generation = 6
	parent.Agent.Stats[components.StatDamage] = 90

	child := s.offspring(parent)
	a := child.Agent

	if a.Generation != 7 {
		t.Errorf("Generation = %d, want 7", a.Generation)
	}
	if a.Parent != parent.ID {
		t.Errorf("Parent = %d, want %d", a.Parent, parent.ID)
	}
	if a.Cogs != s.cfg.Robot.InitialCogs {
		t.Errorf("Cogs = %v, want %v", a.Cogs, s.cfg.Robot.InitialCogs)
	}
	if got := a.Stat(components.StatDamage); got != s.cfg.Robot.DefaultStat {
		t.Errorf("damage stat = %d, want baseline %d", got, s.cfg.Robot.DefaultStat)
	}
	if a.Memory.Registers != (genome.Bank{}) {
		t.Error("child registers not zeroed")
	}
	if !a.Memory.Has(genome.Storage, 4) {
		t.Error("child lost storage bank 4")
	}
	if genome.Fingerprint(a.Memory) != genome.Fingerprint(parent.Agent.Memory) {
		t.Error("child fingerprint differs from parent")
	}

	a.Memory.Bank(genome.Program, 0)[0] = 0
	if parent.Agent.Memory.Bank(genome.Program, 0)[0] == 0 {
		t.Error("child memory aliases parent memory")
	}
}

func TestDeterministicReplay(t *testing.T) {
	run := func() (int64, []EntitySnapshot, int) {
		cfg, err := config.Load("")
		if err != nil {
			t.Fatalf("config.Load error: %v", err)
		}
		s := newSim(t, cfg, Options{Seed: 42})
		seeds, err := genome.Seeds(s.cat)
		if err != nil {
			t.Fatalf("Seeds error: %v", err)
		}
		s.Populate(seeds)
		s.Advance(1500)
		return s.Tick(), s.Snapshots(), s.cat.TotalWeight()
	}

	tick1, snaps1, weight1 := run()
	tick2, snaps2, weight2 := run()

	if tick1 != 1500 || tick2 != 1500 {
		t.Fatalf("ticks = %d, %d, want 1500", tick1, tick2)
	}
	if weight1 != weight2 {
		t.Errorf("catalog weight %d vs %d", weight1, weight2)
	}
	if !reflect.DeepEqual(snaps1, snaps2) {
		t.Errorf("snapshots differ between equal-seed runs: %d vs %d robots", len(snaps1), len(snaps2))
	}
}

func TestDeferredRemoval(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})

	doomed := mustAdd(t, s, program(t, s, nil, nil), 500, 500)
	// The watcher reads the type of entity 0 into W[10].
	watch := program(t, s, []instr{{"_OTYPE", 10, 20, 21}}, nil)
	watch.Memory.Registers[10] = 99
	watcher := mustAdd(t, s, watch, 900, 900)

	if doomed.ID != 0 {
		t.Fatalf("doomed id = %d, want 0", doomed.ID)
	}
	doomed.Body.Health = 0

	s.Advance(1)

	ref, _ := s.Lookup(watcher.ID)
	if got := ref.Agent.Memory.Registers[10]; got != components.TypeRobot {
		t.Errorf("watcher saw type %d, want %d (dead robot still readable)", got, components.TypeRobot)
	}
	if _, ok := s.Lookup(doomed.ID); ok {
		t.Error("dead robot still registered after the tick")
	}
	if got := s.field.Count(components.KindRobot); got != 1 {
		t.Errorf("robots = %d, want 1", got)
	}
}

func TestStarvation(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	ref := mustAdd(t, s, program(t, s, nil, nil), 500, 500)
	ref.Agent.Cogs = 0

	s.Advance(1)
	if ref.Body.Health != 9 {
		t.Errorf("health after one starving tick = %v, want 9", ref.Body.Health)
	}

	s.Advance(8)
	if _, ok := s.Lookup(ref.ID); !ok {
		t.Fatal("robot removed before its health ran out")
	}
	s.Advance(1)
	if _, ok := s.Lookup(ref.ID); ok {
		t.Error("starved robot still registered")
	}
}

func TestCogPickup(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	robot := mustAdd(t, s, program(t, s, nil, nil), 500, 500)
	cogID, ok := s.field.Add(systems.Spawn{
		Kind: components.KindCog,
		Body: components.NewBody(510, 500, s.cfg.Cogs.Size, 1),
		Cog:  components.Cog{Value: 3},
	})
	if !ok {
		t.Fatal("cog refused")
	}

	s.Advance(1)

	ref, _ := s.Lookup(robot.ID)
	if want := s.cfg.Robot.InitialCogs + 3; ref.Agent.Cogs != want {
		t.Errorf("cogs = %v, want %v", ref.Agent.Cogs, want)
	}
	if _, ok := s.Lookup(cogID); ok {
		t.Error("collected cog still registered")
	}
	if got := s.lifetime.Get(robot.ID).Pickups; got != 1 {
		t.Errorf("lifetime pickups = %d, want 1", got)
	}
}

func TestBulletHits(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	empty := program(t, s, nil, nil)
	a := mustAdd(t, s, empty, 500, 500)
	b := mustAdd(t, s, empty, 700, 500)

	bullet := func(owner int, x, y float64) int {
		id, ok := s.field.Add(systems.Spawn{
			Kind:   components.KindBullet,
			Body:   components.NewBody(x, y, s.cfg.Bullet.Size, 1),
			Bullet: components.Bullet{Owner: owner, Damage: 2, TTL: 10},
		})
		if !ok {
			t.Fatal("bullet refused")
		}
		return id
	}
	own := bullet(a.ID, 500, 500)
	hit := bullet(a.ID, 700, 500)

	s.Advance(1)

	ra, _ := s.Lookup(a.ID)
	rb, _ := s.Lookup(b.ID)
	if ra.Body.Health != 10 {
		t.Errorf("owner health = %v, want 10", ra.Body.Health)
	}
	if rb.Body.Health != 8 {
		t.Errorf("target health = %v, want 8", rb.Body.Health)
	}
	if _, ok := s.Lookup(own); !ok {
		t.Error("bullet over its owner was consumed")
	}
	if _, ok := s.Lookup(hit); ok {
		t.Error("bullet that hit is still registered")
	}
	if got := s.lifetime.Get(a.ID).Hits; got != 1 {
		t.Errorf("owner lifetime hits = %d, want 1", got)
	}
}

func TestBulletExpires(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	id, _ := s.field.Add(systems.Spawn{
		Kind:   components.KindBullet,
		Body:   components.NewBody(500, 500, 8, 1),
		Bullet: components.Bullet{Owner: -1, TTL: 3},
	})

	s.Advance(2)
	if _, ok := s.Lookup(id); !ok {
		t.Fatal("bullet expired early")
	}
	s.Advance(1)
	if _, ok := s.Lookup(id); ok {
		t.Error("bullet outlived its TTL")
	}
}

func TestFireSpawnsAtMuzzle(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	shooter := mustAdd(t, s, program(t, s, nil, nil), 1000, 1000)
	shooter.Body.R = 0

	if !s.Fire(shooter.ID) {
		t.Fatal("Fire refused")
	}
	s.flushSpawns()

	if got := s.field.Count(components.KindBullet); got != 1 {
		t.Fatalf("bullets = %d, want 1", got)
	}
	var bullet systems.Ref
	for _, id := range s.field.IDs() {
		if ref, _ := s.Lookup(id); ref.Kind == components.KindBullet {
			bullet = ref
		}
	}
	want := shooter.Body.Width/2 + s.cfg.Bullet.Size/2 + 1
	if d := math.Hypot(bullet.Body.X-1000, bullet.Body.Y-1000); math.Abs(d-want) > 1e-9 {
		t.Errorf("muzzle distance = %v, want %v", d, want)
	}
	if bullet.Bullet.Owner != shooter.ID {
		t.Errorf("Owner = %d, want %d", bullet.Bullet.Owner, shooter.ID)
	}
	if bullet.Body.VelX <= 0 {
		t.Errorf("VelX = %v, want positive along heading 0", bullet.Body.VelX)
	}
}

func TestLifecycleHooks(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	p := program(t, s, nil, []instr{{"_IMOV", 9, 42, 0}})
	ref := mustAdd(t, s, p, 500, 500)

	if got := ref.Agent.Memory.Registers[9]; got != 42 {
		t.Errorf("W[9] after birth hook = %d, want 42", got)
	}

	ref.Agent.Fitness = 80
	ref.Body.Health = 0
	s.Advance(1)

	if got := s.HallOfFame().Size(); got != 1 {
		t.Fatalf("hall of fame size = %d, want 1", got)
	}
	if got, want := s.HallOfFame().Entries()[0].Fingerprint, genome.Fingerprint(p.Memory); got != want {
		t.Errorf("kept fingerprint = %s, want %s", got, want)
	}
}

func TestRespawn(t *testing.T) {
	cfg := quietConfig(t)
	cfg.Population.Initial = 1
	cfg.Population.InitialCogs = 0
	cfg.Population.RespawnThreshold = 2
	cfg.Population.RespawnCount = 4
	s := newSim(t, cfg, Options{Seed: 5})

	s.Populate([]*genome.Genome{program(t, s, nil, nil)})
	if got := s.field.Count(components.KindRobot); got != 1 {
		t.Fatalf("robots after populate = %d, want 1", got)
	}

	s.Advance(1)
	if got := s.field.Count(components.KindRobot); got != 5 {
		t.Errorf("robots after respawn = %d, want 5", got)
	}
}

func TestRegistryCaps(t *testing.T) {
	cfg := quietConfig(t)
	cfg.Telemetry.WindowTicks = 1
	var last telemetry.WindowStats
	s := newSim(t, cfg, Options{Seed: 1, OnWindow: func(st telemetry.WindowStats, _ []EntitySnapshot) { last = st }})

	empty := program(t, s, nil, nil)
	for i := range cfg.Registry.MaxRobots {
		mustAdd(t, s, empty, 100+float64(i%8)*200, 100+float64(i/8)*200)
	}
	if _, ok := s.AddProgram(empty, 1000, 1000); ok {
		t.Fatal("AddProgram past the robot cap succeeded")
	}

	parent, _ := s.Lookup(0)
	cogs := parent.Agent.Cogs
	if !s.Reproduce(0) {
		t.Fatal("Reproduce refused to queue")
	}
	s.Advance(1)

	if got := s.field.Count(components.KindRobot); got != cfg.Registry.MaxRobots {
		t.Errorf("robots = %d, want %d", got, cfg.Registry.MaxRobots)
	}
	if last.FailedSpawns != 1 {
		t.Errorf("FailedSpawns = %d, want 1", last.FailedSpawns)
	}
	if last.Reproductions != 1 {
		t.Errorf("Reproductions = %d, want 1", last.Reproductions)
	}
	if parent.Agent.Cogs != cogs {
		t.Errorf("parent cogs = %v, want %v", parent.Agent.Cogs, cogs)
	}
}

func TestTelemetryOutput(t *testing.T) {
	cfg := quietConfig(t)
	cfg.Telemetry.WindowTicks = 5
	dir := t.TempDir()
	out, err := telemetry.NewOutputManager(dir)
	if err != nil {
		t.Fatalf("NewOutputManager error: %v", err)
	}

	var windows int
	s := newSim(t, cfg, Options{
		Seed:     1,
		Output:   out,
		OnWindow: func(telemetry.WindowStats, []EntitySnapshot) { windows++ },
	})
	s.Populate([]*genome.Genome{program(t, s, nil, nil)})
	s.Advance(15)
	if err := out.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	if windows != 3 {
		t.Errorf("windows = %d, want 3", windows)
	}
	data, err := os.ReadFile(filepath.Join(dir, "telemetry.csv"))
	if err != nil {
		t.Fatalf("reading telemetry.csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 4 {
		t.Fatalf("telemetry.csv has %d lines, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[3], "15,") {
		t.Errorf("last row = %q, want window end 15", lines[3])
	}
}

func TestDumps(t *testing.T) {
	s := newSim(t, quietConfig(t), Options{Seed: 1})
	ref := mustAdd(t, s, program(t, s, []instr{{"_HEAL", 0, 0, 0}}, nil), 500, 500)
	cogID, _ := s.field.Add(systems.Spawn{Kind: components.KindCog, Body: components.NewBody(900, 900, 10, 1)})

	text, err := s.DumpBank(ref.ID, genome.Program, 0)
	if err != nil {
		t.Fatalf("DumpBank error: %v", err)
	}
	if !strings.Contains(text, "_HEAL") {
		t.Errorf("program dump missing _HEAL:\n%s", text)
	}
	if text, _ := s.DumpBank(ref.ID, genome.Storage, 7); !strings.Contains(text, "no memory") {
		t.Errorf("missing bank dump = %q", text)
	}
	if _, err := s.DumpRegisters(ref.ID); err != nil {
		t.Errorf("DumpRegisters error: %v", err)
	}

	if _, err := s.DumpBank(99, genome.Program, 0); !errors.Is(err, ErrNoEntity) {
		t.Errorf("DumpBank(empty slot) error = %v, want ErrNoEntity", err)
	}
	if _, err := s.DumpRegisters(cogID); !errors.Is(err, ErrNotRobot) {
		t.Errorf("DumpRegisters(cog) error = %v, want ErrNotRobot", err)
	}

	if dump := s.DumpGenomes(); !strings.Contains(dump, "== 0 test") {
		t.Errorf("genome dump header missing:\n%s", dump)
	}
	snaps := s.Snapshots()
	if len(snaps) != 1 || snaps[0].Name != "test" || snaps[0].Flash != [3]uint8{0, 0xBB, 0} {
		t.Errorf("Snapshots() = %+v", snaps)
	}
}

func TestSyllableNamer(t *testing.T) {
	a := newSim(t, quietConfig(t), Options{Seed: 9})
	b := newSim(t, quietConfig(t), Options{Seed: 9})

	for range 50 {
		na, nb := SyllableNamer{}.Name(a.Rand()), SyllableNamer{}.Name(b.Rand())
		if na != nb {
			t.Fatalf("names differ for equal seeds: %q vs %q", na, nb)
		}
		if len(na) < 4 || !unicode.IsUpper(rune(na[0])) {
			t.Errorf("name %q, want capitalized and at least 4 letters", na)
		}
	}
}

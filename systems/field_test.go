package systems

import (
	"testing"

	"github.com/pthm-cable/arena/components"
	"github.com/pthm-cable/arena/genome"
)

type hookLog struct {
	f       *Field
	added   []int
	removed []int
	seenHP  []float64
}

func (h *hookLog) OnAdd(id int, kind components.Kind) {
	h.added = append(h.added, id)
}

func (h *hookLog) OnRemove(id int, kind components.Kind) {
	h.removed = append(h.removed, id)
	// The entity is still readable while its remove hook runs.
	if ref, ok := h.f.Get(id); ok {
		h.seenHP = append(h.seenHP, ref.Body.Health)
	}
}

func robotSpawn(x, y float64) Spawn {
	return Spawn{
		Kind:  components.KindRobot,
		Body:  components.NewBody(x, y, 40, 10),
		Agent: components.NewAgent(genome.NewMemorySet(), "r", 10, 40),
	}
}

func cogSpawn(x, y float64) Spawn {
	return Spawn{
		Kind: components.KindCog,
		Body: components.NewBody(x, y, 10, 1),
		Cog:  components.Cog{Value: 3},
	}
}

func TestFieldIDReuse(t *testing.T) {
	f := NewField(8, nil, nil)

	a, ok := f.Add(robotSpawn(100, 100))
	if !ok || a != 0 {
		t.Fatalf("first Add = (%d, %v), want (0, true)", a, ok)
	}
	f.Remove(a)
	if _, ok := f.Get(a); ok {
		t.Fatal("Get after Remove succeeded")
	}

	b, ok := f.Add(robotSpawn(200, 200))
	if !ok || b != 0 {
		t.Errorf("Add after Remove = (%d, %v), want (0, true)", b, ok)
	}
	ref, _ := f.Get(b)
	if ref.Body.X != 200 {
		t.Errorf("reused slot holds X=%v, want 200", ref.Body.X)
	}

	c, _ := f.Add(robotSpawn(300, 300))
	if c != 1 {
		t.Errorf("next id = %d, want 1", c)
	}
}

func TestFieldScanWraps(t *testing.T) {
	f := NewField(3, nil, nil)
	for range 3 {
		f.Add(cogSpawn(50, 50))
	}
	if _, ok := f.Add(cogSpawn(50, 50)); ok {
		t.Fatal("Add into a full field succeeded")
	}

	f.Remove(0)
	id, ok := f.Add(cogSpawn(60, 60))
	if !ok || id != 0 {
		t.Errorf("Add after freeing slot 0 = (%d, %v), want (0, true)", id, ok)
	}
}

func TestFieldKindCaps(t *testing.T) {
	f := NewField(16, map[components.Kind]int{components.KindRobot: 2}, nil)

	for i := range 2 {
		if _, ok := f.Add(robotSpawn(float64(100*i+100), 100)); !ok {
			t.Fatalf("Add robot %d failed", i)
		}
	}
	if _, ok := f.Add(robotSpawn(500, 500)); ok {
		t.Error("Add past the robot cap succeeded")
	}
	if _, ok := f.Add(cogSpawn(500, 500)); !ok {
		t.Error("cog blocked by the robot cap")
	}
	if f.Count(components.KindRobot) != 2 || f.Count(components.KindCog) != 1 || f.Len() != 3 {
		t.Errorf("counts = %d robots, %d cogs, %d total",
			f.Count(components.KindRobot), f.Count(components.KindCog), f.Len())
	}
	if _, ok := f.Add(Spawn{Kind: components.KindProbe}); ok {
		t.Error("probes must not be registered")
	}
}

func TestFieldGet(t *testing.T) {
	f := NewField(4, nil, nil)
	id, _ := f.Add(robotSpawn(100, 100))
	cid, _ := f.Add(cogSpawn(300, 300))

	ref, ok := f.Get(id)
	if !ok || ref.Kind != components.KindRobot || ref.Agent == nil || ref.Cog != nil {
		t.Fatalf("Get(robot) = %+v, %v", ref, ok)
	}
	ref.Agent.Cogs = 7
	again, _ := f.Get(id)
	if again.Agent.Cogs != 7 {
		t.Error("Get does not return live storage")
	}

	cref, _ := f.Get(cid)
	if cref.Cog == nil || cref.Cog.Value != 3 || cref.Agent != nil {
		t.Errorf("Get(cog) = %+v", cref)
	}

	for _, bad := range []int{-1, 2, 4, 1000} {
		if _, ok := f.Get(bad); ok {
			t.Errorf("Get(%d) succeeded on an empty or out-of-range id", bad)
		}
	}
	f.Remove(1000) // ignored
	f.Remove(3)    // ignored
}

func TestFieldHooks(t *testing.T) {
	h := &hookLog{}
	f := NewField(4, nil, h)
	h.f = f

	id, _ := f.Add(robotSpawn(100, 100))
	ref, _ := f.Get(id)
	ref.Body.Health = 3
	f.Remove(id)
	f.Remove(id)

	if len(h.added) != 1 || len(h.removed) != 1 {
		t.Fatalf("hooks ran %d adds, %d removes, want 1 and 1", len(h.added), len(h.removed))
	}
	if len(h.seenHP) != 1 || h.seenHP[0] != 3 {
		t.Errorf("remove hook saw health %v, want [3]", h.seenHP)
	}
}

func TestFieldWithinDistanceIsStrict(t *testing.T) {
	f := NewField(8, nil, nil)
	f.Add(cogSpawn(100, 100))
	f.Add(cogSpawn(110, 100))
	f.Add(cogSpawn(100, 130))

	tests := []struct {
		radius float64
		want   int
	}{
		{0, 0},
		{10, 1},
		{10.001, 2},
		{30, 2},
		{31, 3},
	}

	for _, tt := range tests {
		if got := f.WithinDistance(100, 100, tt.radius); got != tt.want {
			t.Errorf("WithinDistance(r=%v) = %d, want %d", tt.radius, got, tt.want)
		}
	}
}

func TestFieldNearestAndEntityAt(t *testing.T) {
	f := NewField(8, nil, nil)
	self, _ := f.Add(robotSpawn(100, 100))
	near, _ := f.Add(cogSpawn(150, 100))
	f.Add(cogSpawn(400, 100))

	id, ok := f.Nearest(100, 100, 100, self)
	if !ok || id != near {
		t.Errorf("Nearest = (%d, %v), want (%d, true)", id, ok, near)
	}
	if _, ok := f.Nearest(100, 100, 10, self); ok {
		t.Error("Nearest found something outside the radius")
	}

	if id, ok := f.EntityAt(118, 100); !ok || id != self {
		t.Errorf("EntityAt inside robot = (%d, %v), want (%d, true)", id, ok, self)
	}
	if _, ok := f.EntityAt(1000, 1000); ok {
		t.Error("EntityAt on empty ground found an entity")
	}
}

func TestFieldEachRobot(t *testing.T) {
	f := NewField(8, nil, nil)
	f.Add(robotSpawn(100, 100))
	f.Add(cogSpawn(100, 100))
	f.Add(robotSpawn(200, 200))

	n := 0
	f.EachRobot(func(body *components.Body, agent *components.Agent) {
		n++
		agent.Fitness++
	})
	if n != 2 {
		t.Errorf("EachRobot visited %d robots, want 2", n)
	}
	if ids := f.IDs(); len(ids) != 3 || ids[0] != 0 || ids[2] != 2 {
		t.Errorf("IDs = %v, want [0 1 2]", ids)
	}
}

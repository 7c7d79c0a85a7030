package systems

import (
	"github.com/mlange-42/ark/ecs"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"

	"github.com/pthm-cable/arena/components"
)

// Hooks receives lifecycle callbacks from a Field. OnAdd runs right after an
// entity is stored and OnRemove right before its storage is released, so
// both can read and modify the entity through Get.
type Hooks interface {
	OnAdd(id int, kind components.Kind)
	OnRemove(id int, kind components.Kind)
}

// Ref gives access to one live entity. The pointers stay valid until the
// next Add or Remove on the field.
type Ref struct {
	ID     int
	Kind   components.Kind
	Body   *components.Body
	Agent  *components.Agent  // robots only
	Bullet *components.Bullet // bullets only
	Cog    *components.Cog    // cogs only
}

// Spawn describes an entity waiting to be added. Only the payload matching
// Kind is used.
type Spawn struct {
	Kind   components.Kind
	Body   components.Body
	Agent  components.Agent
	Bullet components.Bullet
	Cog    components.Cog
}

type slot struct {
	entity ecs.Entity
	kind   components.Kind
	used   bool
}

// Field is the entity registry: a fixed array of slots whose index is the
// entity id, backed by an ECS world for component storage. Ids are reused
// only after removal.
type Field struct {
	world *ecs.World

	robotMapper  *ecs.Map2[components.Body, components.Agent]
	bulletMapper *ecs.Map2[components.Body, components.Bullet]
	cogMapper    *ecs.Map2[components.Body, components.Cog]

	bodyMap   *ecs.Map1[components.Body]
	agentMap  *ecs.Map1[components.Agent]
	bulletMap *ecs.Map1[components.Bullet]
	cogMap    *ecs.Map1[components.Cog]

	robotFilter *ecs.Filter2[components.Body, components.Agent]

	slots    []slot
	lastUsed int
	counts   [components.NumKinds]int
	caps     [components.NumKinds]int // 0 = only limited by capacity
	hooks    Hooks
}

// NewField creates an empty registry with the given number of slots.
func NewField(capacity int, caps map[components.Kind]int, hooks Hooks) *Field {
	world := ecs.NewWorld()
	f := &Field{
		world:        world,
		robotMapper:  ecs.NewMap2[components.Body, components.Agent](world),
		bulletMapper: ecs.NewMap2[components.Body, components.Bullet](world),
		cogMapper:    ecs.NewMap2[components.Body, components.Cog](world),
		bodyMap:      ecs.NewMap1[components.Body](world),
		agentMap:     ecs.NewMap1[components.Agent](world),
		bulletMap:    ecs.NewMap1[components.Bullet](world),
		cogMap:       ecs.NewMap1[components.Cog](world),
		robotFilter:  ecs.NewFilter2[components.Body, components.Agent](world),
		slots:        make([]slot, capacity),
		hooks:        hooks,
	}
	for k, n := range caps {
		if k < components.NumKinds {
			f.caps[k] = n
		}
	}
	return f
}

// SetHooks replaces the lifecycle callbacks.
func (f *Field) SetHooks(h Hooks) { f.hooks = h }

// Capacity returns the number of slots.
func (f *Field) Capacity() int { return len(f.slots) }

// Count returns the number of live entities of a kind.
func (f *Field) Count(kind components.Kind) int {
	if kind >= components.NumKinds {
		return 0
	}
	return f.counts[kind]
}

// Len returns the number of live entities.
func (f *Field) Len() int {
	n := 0
	for _, c := range f.counts {
		n += c
	}
	return n
}

// Add stores a new entity and runs the add hook. It fails when the kind is
// at its cap or every slot is taken.
func (f *Field) Add(s Spawn) (int, bool) {
	if s.Kind >= components.KindProbe {
		return -1, false
	}
	if c := f.caps[s.Kind]; c > 0 && f.counts[s.Kind] >= c {
		return -1, false
	}
	id := f.nextFree()
	if id < 0 {
		return -1, false
	}

	var e ecs.Entity
	switch s.Kind {
	case components.KindRobot:
		e = f.robotMapper.NewEntity(&s.Body, &s.Agent)
	case components.KindBullet:
		e = f.bulletMapper.NewEntity(&s.Body, &s.Bullet)
	case components.KindCog:
		e = f.cogMapper.NewEntity(&s.Body, &s.Cog)
	}

	f.slots[id] = slot{entity: e, kind: s.Kind, used: true}
	f.counts[s.Kind]++
	f.lastUsed = id

	if f.hooks != nil {
		f.hooks.OnAdd(id, s.Kind)
	}
	return id, true
}

// nextFree scans from the last used slot, wrapping once.
func (f *Field) nextFree() int {
	n := len(f.slots)
	for i := range n {
		id := (f.lastUsed + i) % n
		if !f.slots[id].used {
			return id
		}
	}
	return -1
}

// Remove runs the remove hook and frees the slot. Empty or out-of-range ids
// are ignored.
func (f *Field) Remove(id int) {
	if id < 0 || id >= len(f.slots) || !f.slots[id].used {
		return
	}
	s := f.slots[id]
	if f.hooks != nil {
		f.hooks.OnRemove(id, s.kind)
	}
	switch s.kind {
	case components.KindRobot:
		f.robotMapper.Remove(s.entity)
	case components.KindBullet:
		f.bulletMapper.Remove(s.entity)
	case components.KindCog:
		f.cogMapper.Remove(s.entity)
	}
	f.slots[id] = slot{}
	f.counts[s.kind]--
}

// Get returns the live entity at id.
func (f *Field) Get(id int) (Ref, bool) {
	if id < 0 || id >= len(f.slots) || !f.slots[id].used {
		return Ref{}, false
	}
	s := f.slots[id]
	ref := Ref{ID: id, Kind: s.kind, Body: f.bodyMap.Get(s.entity)}
	switch s.kind {
	case components.KindRobot:
		ref.Agent = f.agentMap.Get(s.entity)
	case components.KindBullet:
		ref.Bullet = f.bulletMap.Get(s.entity)
	case components.KindCog:
		ref.Cog = f.cogMap.Get(s.entity)
	}
	return ref, true
}

// IDs returns the ids of all live entities in slot order.
func (f *Field) IDs() []int {
	ids := make([]int, 0, f.Len())
	for id, s := range f.slots {
		if s.used {
			ids = append(ids, id)
		}
	}
	return ids
}

// EachRobot calls fn for every live robot. fn must not add or remove
// entities.
func (f *Field) EachRobot(fn func(body *components.Body, agent *components.Agent)) {
	query := f.robotFilter.Query()
	for query.Next() {
		body, agent := query.Get()
		fn(body, agent)
	}
}

// WithinDistance counts live entities whose center lies strictly closer
// than radius to (x, y).
func (f *Field) WithinDistance(x, y, radius float64) int {
	center := orb.Point{x, y}
	r2 := radius * radius
	n := 0
	for _, s := range f.slots {
		if !s.used {
			continue
		}
		b := f.bodyMap.Get(s.entity)
		if planar.DistanceSquared(center, point(b)) < r2 {
			n++
		}
	}
	return n
}

// Nearest returns the closest live entity other than exclude whose center
// lies strictly closer than radius. Ties go to the lower id.
func (f *Field) Nearest(x, y, radius float64, exclude int) (int, bool) {
	center := orb.Point{x, y}
	best, bestD := -1, radius*radius
	for id, s := range f.slots {
		if !s.used || id == exclude {
			continue
		}
		d := planar.DistanceSquared(center, point(f.bodyMap.Get(s.entity)))
		if d < bestD {
			best, bestD = id, d
		}
	}
	return best, best >= 0
}

// EntityAt returns the lowest-id entity touching the point (x, y).
func (f *Field) EntityAt(x, y float64) (int, bool) {
	probe := components.NewBody(x, y, 1, 1)
	for id, s := range f.slots {
		if !s.used {
			continue
		}
		if Intersects(&probe, f.bodyMap.Get(s.entity)) {
			return id, true
		}
	}
	return -1, false
}

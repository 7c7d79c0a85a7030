package telemetry

// LifetimeStats tracks per-robot statistics over its lifetime.
type LifetimeStats struct {
	BirthTick  int64
	Parent     int // -1 for seeded robots
	Generation int

	Children int
	Shots    int
	Hits     int // Bullets of this robot that struck another
	Pickups  int
	Gathered float64 // Cogs gained from pickups
}

// LifetimeTracker manages per-robot lifetime statistics, keyed by entity id.
type LifetimeTracker struct {
	stats map[int]*LifetimeStats
}

// NewLifetimeTracker creates a new lifetime tracker.
func NewLifetimeTracker() *LifetimeTracker {
	return &LifetimeTracker{
		stats: make(map[int]*LifetimeStats),
	}
}

// Register creates lifetime stats for a new robot.
func (lt *LifetimeTracker) Register(id int, birthTick int64, parent, generation int) {
	lt.stats[id] = &LifetimeStats{
		BirthTick:  birthTick,
		Parent:     parent,
		Generation: generation,
	}
}

// Get returns the lifetime stats for a robot, or nil if not found.
func (lt *LifetimeTracker) Get(id int) *LifetimeStats {
	return lt.stats[id]
}

// Remove removes a robot's stats and returns them.
func (lt *LifetimeTracker) Remove(id int) *LifetimeStats {
	stats := lt.stats[id]
	delete(lt.stats, id)
	return stats
}

// RecordChild increments children count.
func (lt *LifetimeTracker) RecordChild(parent int) {
	if s := lt.stats[parent]; s != nil {
		s.Children++
	}
}

// RecordShot increments shot count.
func (lt *LifetimeTracker) RecordShot(id int) {
	if s := lt.stats[id]; s != nil {
		s.Shots++
	}
}

// RecordHit credits the shooter with a hit.
func (lt *LifetimeTracker) RecordHit(shooter int) {
	if s := lt.stats[shooter]; s != nil {
		s.Hits++
	}
}

// RecordPickup adds a collected cog.
func (lt *LifetimeTracker) RecordPickup(id int, value float64) {
	if s := lt.stats[id]; s != nil {
		s.Pickups++
		s.Gathered += value
	}
}

// Count returns the number of tracked robots.
func (lt *LifetimeTracker) Count() int {
	return len(lt.stats)
}

package telemetry

import (
	"encoding/json"
	"math/rand"
	"sort"

	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/genome"
)

// HallEntry is a dead robot whose genome is kept for reseeding.
type HallEntry struct {
	Memory      *genome.MemorySet
	Fitness     float64
	EntityID    int
	Name        string
	Generation  int
	Children    int
	Fingerprint string
}

// HallOfFame stores proven genomes for reseeding when the population crashes.
// Entries are kept sorted by fitness, best first.
type HallOfFame struct {
	entries []HallEntry
	cfg     config.HallOfFameConfig
	rng     *rand.Rand
}

// NewHallOfFame creates an empty hall.
func NewHallOfFame(cfg config.HallOfFameConfig, rng *rand.Rand) *HallOfFame {
	return &HallOfFame{
		entries: make([]HallEntry, 0, cfg.Size),
		cfg:     cfg,
		rng:     rng,
	}
}

// Consider evaluates a dead robot for entry. fitness is the robot's own
// accumulated fitness; children comes from its lifetime stats. The memory is
// cloned, so the caller may release it.
// Returns true if the robot was added.
func (hof *HallOfFame) Consider(mem *genome.MemorySet, fitness float64, id int, name string, generation int, stats *LifetimeStats) bool {
	if hof.cfg.Size <= 0 || stats == nil {
		return false
	}
	if stats.Children < hof.cfg.MinChildren && fitness < hof.cfg.MinFitness {
		return false
	}

	score := fitness + float64(stats.Children)*hof.cfg.ChildrenWeight
	idx := sort.Search(len(hof.entries), func(i int) bool {
		return hof.entries[i].Fitness < score
	})
	if idx >= hof.cfg.Size {
		return false
	}

	entry := HallEntry{
		Memory:      mem.Clone(),
		Fitness:     score,
		EntityID:    id,
		Name:        name,
		Generation:  generation,
		Children:    stats.Children,
		Fingerprint: genome.Fingerprint(mem),
	}
	hof.entries = append(hof.entries, HallEntry{})
	copy(hof.entries[idx+1:], hof.entries[idx:])
	hof.entries[idx] = entry
	if len(hof.entries) > hof.cfg.Size {
		hof.entries = hof.entries[:hof.cfg.Size]
	}
	return true
}

// Sample picks an entry by tournament selection (k=3) and returns a fresh
// copy of its memory. Returns false if the hall is empty.
func (hof *HallOfFame) Sample() (HallEntry, bool) {
	if len(hof.entries) == 0 {
		return HallEntry{}, false
	}

	const tournamentSize = 3
	best := -1
	for range tournamentSize {
		i := hof.rng.Intn(len(hof.entries))
		if best < 0 || hof.entries[i].Fitness > hof.entries[best].Fitness {
			best = i
		}
	}

	e := hof.entries[best]
	e.Memory = e.Memory.Clone()
	return e, true
}

// Size returns the number of entries.
func (hof *HallOfFame) Size() int {
	return len(hof.entries)
}

// TopFitness returns the best score in the hall, or 0 if it is empty.
func (hof *HallOfFame) TopFitness() float64 {
	if len(hof.entries) == 0 {
		return 0
	}
	return hof.entries[0].Fitness
}

type hallEntryJSON struct {
	EntityID    int     `json:"entity_id"`
	Name        string  `json:"name"`
	Fitness     float64 `json:"fitness"`
	Generation  int     `json:"generation"`
	Children    int     `json:"children"`
	Fingerprint string  `json:"fingerprint"`
}

// MarshalJSON serializes the hall without genome contents; genomes go to
// the compressed dump.
func (hof *HallOfFame) MarshalJSON() ([]byte, error) {
	export := make([]hallEntryJSON, len(hof.entries))
	for i, e := range hof.entries {
		export[i] = hallEntryJSON{
			EntityID:    e.EntityID,
			Name:        e.Name,
			Fitness:     e.Fitness,
			Generation:  e.Generation,
			Children:    e.Children,
			Fingerprint: e.Fingerprint,
		}
	}
	return json.MarshalIndent(export, "", "  ")
}

// Entries returns the entries, best first. The slice must not be modified.
func (hof *HallOfFame) Entries() []HallEntry {
	return hof.entries
}

package telemetry

import (
	"math/rand"
	"testing"

	"github.com/pthm-cable/arena/config"
	"github.com/pthm-cable/arena/genome"
)

func hasBookmark(bookmarks []Bookmark, typ BookmarkType) bool {
	for _, bm := range bookmarks {
		if bm.Type == typ {
			return true
		}
	}
	return false
}

func TestBookmarkDetector_HitBreakthrough(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := range 5 {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Shots: 100, Hits: 10, HitRate: 0.1})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Shots: 20, Hits: 8, HitRate: 0.4})
	if !hasBookmark(bookmarks, BookmarkHitBreakthrough) {
		t.Error("expected hit_breakthrough bookmark")
	}
}

func TestBookmarkDetector_PopulationCrash(t *testing.T) {
	bd := NewBookmarkDetector(10)

	for i := range 5 {
		bd.Check(WindowStats{WindowEndTick: int64(i * 600), Robots: 30, Lineages: 5})
	}

	bookmarks := bd.Check(WindowStats{WindowEndTick: 3000, Robots: 12, Lineages: 3})
	if !hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("expected population_crash bookmark")
	}

	// Peak was reset; a further small dip is not a second crash.
	bookmarks = bd.Check(WindowStats{WindowEndTick: 3600, Robots: 11, Lineages: 3})
	if hasBookmark(bookmarks, BookmarkPopulationCrash) {
		t.Error("crash reported twice")
	}
}

func TestBookmarkDetector_LineageTakeover(t *testing.T) {
	bd := NewBookmarkDetector(10)

	tests := []struct {
		robots, lineages int
		want             bool
	}{
		{8, 3, false},
		{8, 1, true},
		{9, 1, false}, // still the same takeover
		{9, 2, false},
		{9, 1, true},
		{2, 1, false}, // too few robots
	}

	for i, tt := range tests {
		got := hasBookmark(bd.Check(WindowStats{Robots: tt.robots, Lineages: tt.lineages}), BookmarkLineageTakeover)
		if got != tt.want {
			t.Errorf("window %d (%d robots, %d lineages): bookmark = %v, want %v", i, tt.robots, tt.lineages, got, tt.want)
		}
	}
}

func TestBookmarkDetector_GenerationMilestone(t *testing.T) {
	bd := NewBookmarkDetector(10)

	gens := []int{0, 4, 10, 12, 25, 25}
	want := []bool{false, false, true, false, true, false}
	for i, g := range gens {
		got := hasBookmark(bd.Check(WindowStats{MaxGeneration: g}), BookmarkGeneration)
		if got != want[i] {
			t.Errorf("generation %d: bookmark = %v, want %v", g, got, want[i])
		}
	}
}

func TestHallOfFame(t *testing.T) {
	cfg := config.HallOfFameConfig{Size: 2, MinChildren: 1, MinFitness: 50, ChildrenWeight: 10}
	hof := NewHallOfFame(cfg, rand.New(rand.NewSource(1)))
	mem := genome.NewMemorySet()
	mem.Bank(genome.Program, 0)[0] = 0x51

	if hof.Consider(mem, 10, 1, "weak", 0, &LifetimeStats{}) {
		t.Error("robot with no children and low fitness entered the hall")
	}
	if !hof.Consider(mem, 10, 2, "parent", 1, &LifetimeStats{Children: 2}) {
		t.Error("robot with children rejected")
	}
	if !hof.Consider(mem, 60, 3, "strong", 2, &LifetimeStats{}) {
		t.Error("robot with high fitness rejected")
	}
	if !hof.Consider(mem, 100, 4, "best", 3, &LifetimeStats{Children: 1}) {
		t.Error("best robot rejected")
	}
	if hof.Consider(mem, 1, 5, "late", 0, &LifetimeStats{Children: 1}) {
		t.Error("robot below a full hall entered")
	}

	if hof.Size() != 2 || hof.TopFitness() != 110 {
		t.Fatalf("Size = %d, TopFitness = %v, want 2, 110", hof.Size(), hof.TopFitness())
	}
	if names := []string{hof.Entries()[0].Name, hof.Entries()[1].Name}; names[0] != "best" || names[1] != "strong" {
		t.Errorf("entries = %v, want [best strong]", names)
	}

	e, ok := hof.Sample()
	if !ok {
		t.Fatal("Sample on a non-empty hall failed")
	}
	e.Memory.Bank(genome.Program, 0)[0] = 0
	for _, kept := range hof.Entries() {
		if kept.Memory.Bank(genome.Program, 0)[0] != 0x51 {
			t.Error("Sample returned shared memory")
		}
	}

	data, err := hof.MarshalJSON()
	if err != nil || len(data) == 0 {
		t.Errorf("MarshalJSON = %q, %v", data, err)
	}
}

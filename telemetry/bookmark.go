package telemetry

import (
	"fmt"
	"log/slog"
)

// BookmarkType identifies the type of bookmark.
type BookmarkType string

const (
	BookmarkHitBreakthrough BookmarkType = "hit_breakthrough"
	BookmarkPopulationCrash BookmarkType = "population_crash"
	BookmarkLineageTakeover BookmarkType = "lineage_takeover"
	BookmarkGeneration      BookmarkType = "generation_milestone"
)

// generationStep is the spacing of generation milestones.
const generationStep = 10

// Bookmark marks an interesting window.
type Bookmark struct {
	Type        BookmarkType `csv:"type"`
	Tick        int64        `csv:"tick"`
	Description string       `csv:"description"`
}

// LogBookmark logs the bookmark using slog.
func (b Bookmark) LogBookmark() {
	slog.Info("bookmark",
		"type", string(b.Type),
		"tick", b.Tick,
		"description", b.Description,
	)
}

// BookmarkDetector detects interesting moments from the window stats stream.
type BookmarkDetector struct {
	// Rolling history (circular buffer)
	history     []WindowStats
	historySize int
	historyIdx  int
	historyFull bool

	peakRobots    int
	lastMilestone int
	takenOver     bool // a single lineage currently holds the arena
}

// NewBookmarkDetector creates a detector with the given history size.
func NewBookmarkDetector(historySize int) *BookmarkDetector {
	if historySize < 3 {
		historySize = 3
	}
	return &BookmarkDetector{
		history:     make([]WindowStats, historySize),
		historySize: historySize,
	}
}

// Check analyzes the latest stats and returns any triggered bookmarks.
func (bd *BookmarkDetector) Check(stats WindowStats) []Bookmark {
	var bookmarks []Bookmark

	for _, check := range []func(WindowStats) *Bookmark{
		bd.checkHitBreakthrough,
		bd.checkPopulationCrash,
		bd.checkLineageTakeover,
		bd.checkGeneration,
	} {
		if b := check(stats); b != nil {
			bookmarks = append(bookmarks, *b)
		}
	}

	bd.addToHistory(stats)
	bd.peakRobots = max(bd.peakRobots, stats.Robots)

	return bookmarks
}

func (bd *BookmarkDetector) addToHistory(stats WindowStats) {
	bd.history[bd.historyIdx] = stats
	bd.historyIdx = (bd.historyIdx + 1) % bd.historySize
	if bd.historyIdx == 0 {
		bd.historyFull = true
	}
}

func (bd *BookmarkDetector) getHistory() []WindowStats {
	if bd.historyFull {
		return bd.history
	}
	return bd.history[:bd.historyIdx]
}

// checkHitBreakthrough fires when the hit rate more than doubles its
// rolling average.
func (bd *BookmarkDetector) checkHitBreakthrough(stats WindowStats) *Bookmark {
	history := bd.getHistory()
	if len(history) < 3 || stats.Hits < 3 {
		return nil
	}

	var shots, hits int
	for _, h := range history {
		shots += h.Shots
		hits += h.Hits
	}
	if shots == 0 || hits == 0 {
		return nil
	}

	avg := float64(hits) / float64(shots)
	if stats.HitRate > avg*2 {
		return &Bookmark{
			Type:        BookmarkHitBreakthrough,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Hit rate %.2f is %.1fx average (%.2f)", stats.HitRate, stats.HitRate/avg, avg),
		}
	}
	return nil
}

// checkPopulationCrash fires when robots drop more than 30% below the peak.
func (bd *BookmarkDetector) checkPopulationCrash(stats WindowStats) *Bookmark {
	if bd.peakRobots == 0 {
		return nil
	}

	drop := 1 - float64(stats.Robots)/float64(bd.peakRobots)
	if drop > 0.30 && stats.Robots <= bd.peakRobots-4 {
		oldPeak := bd.peakRobots
		// Reset the peak so one crash is reported once.
		bd.peakRobots = stats.Robots

		return &Bookmark{
			Type:        BookmarkPopulationCrash,
			Tick:        stats.WindowEndTick,
			Description: fmt.Sprintf("Robots crashed %.0f%% from peak %d to %d", drop*100, oldPeak, stats.Robots),
		}
	}
	return nil
}

// checkLineageTakeover fires when a single genome fills an arena of at least
// four robots.
func (bd *BookmarkDetector) checkLineageTakeover(stats WindowStats) *Bookmark {
	if stats.Lineages != 1 || stats.Robots < 4 {
		bd.takenOver = false
		return nil
	}
	if bd.takenOver {
		return nil
	}
	bd.takenOver = true
	return &Bookmark{
		Type:        BookmarkLineageTakeover,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("One genome holds all %d robots", stats.Robots),
	}
}

func (bd *BookmarkDetector) checkGeneration(stats WindowStats) *Bookmark {
	milestone := stats.MaxGeneration / generationStep * generationStep
	if milestone <= bd.lastMilestone {
		return nil
	}
	bd.lastMilestone = milestone
	return &Bookmark{
		Type:        BookmarkGeneration,
		Tick:        stats.WindowEndTick,
		Description: fmt.Sprintf("Generation %d reached", stats.MaxGeneration),
	}
}

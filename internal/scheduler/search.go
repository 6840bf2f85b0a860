package scheduler

import (
	"time"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// slotRun is a feasible block of consecutive slots in one room.
type slotRun struct {
	Room   int
	Pos    int
	Length int
	Start  time.Time
}

// findBestSlot scans every room (ascending) and every start position inside w
// (chronological) for runs of need free, gap-free slots. Strict comparison keeps
// the first run reaching the best score.
func (g *Grid) findBestSlot(s models.Surgery, highRisk bool, w window, need int) (slotRun, int, bool) {
	var (
		best      slotRun
		bestScore int
		found     bool
	)
	if need <= 0 || w.hi <= w.lo {
		return best, 0, false
	}
	for room := 1; room <= g.rooms; room++ {
		for pos := w.lo; pos+need <= w.hi; pos++ {
			if !g.runFree(room, pos, need) {
				continue
			}
			start := g.at(room, pos).StartTime
			score := Score(s, highRisk, start)
			if !found || score > bestScore {
				best = slotRun{Room: room, Pos: pos, Length: need, Start: start}
				bestScore = score
				found = true
			}
		}
	}
	return best, bestScore, found
}

// runFree reports whether [pos, pos+n) is available and spans exactly n
// consecutive granularity steps, which rejects runs crossing a day boundary.
func (g *Grid) runFree(room, pos, n int) bool {
	first := g.at(room, pos)
	for k := 0; k < n; k++ {
		slot := g.at(room, pos+k)
		if !slot.Available {
			return false
		}
		if !slot.StartTime.Equal(first.StartTime.Add(time.Duration(k) * g.step)) {
			return false
		}
	}
	return true
}

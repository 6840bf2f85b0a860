package scheduler

import (
	"time"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// Grid is the slot arena for one scheduling pass. Slots are stored room-major so
// that the positions of a room are contiguous and chronological.
type Grid struct {
	rooms       int
	slotsPerDay int
	perRoom     int
	step        time.Duration
	loc         *time.Location
	days        []time.Time
	slots       []models.TimeSlot
}

// window is a half-open range of positions applied to every room.
type window struct {
	lo, hi int
}

// NewGrid enumerates every bookable (room, slot) pair of the horizon. Non-operating
// days produce no slots at all.
func NewGrid(horizonStart time.Time, cfg Config) (*Grid, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	loc := cfg.location(horizonStart)
	start := horizonStart.In(loc)
	y, m, d := start.Date()

	days := make([]time.Time, 0, cfg.HorizonDays)
	for offset := 0; offset < cfg.HorizonDays; offset++ {
		day := time.Date(y, m, d+offset, 0, 0, 0, 0, loc)
		if cfg.operates(day.Weekday()) {
			days = append(days, day)
		}
	}

	g := &Grid{
		rooms:       cfg.Rooms,
		slotsPerDay: cfg.SlotsPerDay(),
		step:        cfg.step(),
		loc:         loc,
		days:        days,
	}
	g.perRoom = len(days) * g.slotsPerDay
	g.slots = make([]models.TimeSlot, g.rooms*g.perRoom)

	for room := 1; room <= g.rooms; room++ {
		for di, day := range days {
			open := time.Date(day.Year(), day.Month(), day.Day(), cfg.StartHour, 0, 0, 0, loc)
			for k := 0; k < g.slotsPerDay; k++ {
				g.slots[g.index(room, di*g.slotsPerDay+k)] = models.TimeSlot{
					StartTime: open.Add(time.Duration(k) * g.step),
					Room:      room,
					Available: true,
				}
			}
		}
	}
	return g, nil
}

func (g *Grid) index(room, pos int) int {
	return (room-1)*g.perRoom + pos
}

func (g *Grid) at(room, pos int) *models.TimeSlot {
	return &g.slots[g.index(room, pos)]
}

// Len is the total number of slots in the grid.
func (g *Grid) Len() int {
	return len(g.slots)
}

// Reserved counts slots no longer available.
func (g *Grid) Reserved() int {
	used := 0
	for i := range g.slots {
		if !g.slots[i].Available {
			used++
		}
	}
	return used
}

// Slots returns a copy of the grid ordered by day, time of day and room.
func (g *Grid) Slots() []models.TimeSlot {
	out := make([]models.TimeSlot, 0, len(g.slots))
	for di := range g.days {
		for k := 0; k < g.slotsPerDay; k++ {
			for room := 1; room <= g.rooms; room++ {
				out = append(out, *g.at(room, di*g.slotsPerDay+k))
			}
		}
	}
	return out
}

func (g *Grid) fullWindow() window {
	return window{lo: 0, hi: g.perRoom}
}

// dayWindow restricts the pool to the operating day containing t. The second
// return is false when that day is outside the horizon or not an operating day.
func (g *Grid) dayWindow(t time.Time) (window, bool) {
	y, m, d := t.In(g.loc).Date()
	for di, day := range g.days {
		dy, dm, dd := day.Date()
		if dy == y && dm == m && dd == d {
			return window{lo: di * g.slotsPerDay, hi: (di + 1) * g.slotsPerDay}, true
		}
	}
	return window{}, false
}

func (g *Grid) reserve(room, pos, n int) {
	for k := 0; k < n; k++ {
		g.at(room, pos+k).Available = false
	}
}

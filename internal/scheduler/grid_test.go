package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// 2025-03-07 is a Friday; 2025-03-10 a Monday.
var friday = time.Date(2025, time.March, 7, 0, 0, 0, 0, time.UTC)

func TestNewGridSkipsNonOperatingDays(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rooms = 2
	cfg.HorizonDays = 4 // Fri, Sat, Sun, Mon

	grid, err := NewGrid(friday, cfg)
	require.NoError(t, err)

	slots := grid.Slots()
	assert.Len(t, slots, 2*18*2)
	for _, slot := range slots {
		wd := slot.StartTime.Weekday()
		assert.True(t, wd == time.Friday || wd == time.Monday, "unexpected day %s", wd)
		assert.True(t, slot.Available)
	}
}

func TestNewGridOrderAndAlignment(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rooms = 3
	cfg.HorizonDays = 1

	grid, err := NewGrid(friday, cfg)
	require.NoError(t, err)
	slots := grid.Slots()

	first := slots[:3]
	for i, slot := range first {
		assert.Equal(t, i+1, slot.Room)
		assert.Equal(t, time.Date(2025, time.March, 7, 8, 0, 0, 0, time.UTC), slot.StartTime)
	}
	assert.Equal(t, time.Date(2025, time.March, 7, 8, 30, 0, 0, time.UTC), slots[3].StartTime)

	last := slots[len(slots)-1]
	assert.Equal(t, 3, last.Room)
	assert.Equal(t, time.Date(2025, time.March, 7, 16, 30, 0, 0, time.UTC), last.StartTime)

	for _, slot := range slots {
		assert.Contains(t, []int{0, 30}, slot.StartTime.Minute())
		assert.GreaterOrEqual(t, slot.StartTime.Hour(), cfg.StartHour)
		assert.Less(t, slot.StartTime.Hour(), cfg.EndHour)
	}
}

func TestNewGridUsesConfiguredLocation(t *testing.T) {
	loc := time.FixedZone("UTC+7", 7*3600)
	cfg := DefaultConfig()
	cfg.Location = loc
	cfg.HorizonDays = 1
	cfg.Rooms = 1

	grid, err := NewGrid(time.Date(2025, time.March, 7, 20, 0, 0, 0, time.UTC), cfg)
	require.NoError(t, err)
	slots := grid.Slots()
	// 20:00 UTC Friday is already Saturday in UTC+7, which does not operate.
	assert.Len(t, slots, 0)
}

func TestNewGridRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rooms = 0
	_, err := NewGrid(friday, cfg)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestGridDayWindow(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HorizonDays = 4
	grid, err := NewGrid(friday, cfg)
	require.NoError(t, err)

	w, ok := grid.dayWindow(time.Date(2025, time.March, 10, 13, 0, 0, 0, time.UTC))
	require.True(t, ok)
	assert.Equal(t, window{lo: 18, hi: 36}, w)

	_, ok = grid.dayWindow(time.Date(2025, time.March, 8, 9, 0, 0, 0, time.UTC))
	assert.False(t, ok, "saturday is not an operating day")

	_, ok = grid.dayWindow(time.Date(2025, time.March, 20, 9, 0, 0, 0, time.UTC))
	assert.False(t, ok, "outside the horizon")
}

func TestGridReserveMarksOnlyOneRoom(t *testing.T) {
	cfg := DefaultConfig()
	cfg.HorizonDays = 1
	grid, err := NewGrid(friday, cfg)
	require.NoError(t, err)

	grid.reserve(2, 4, 3)
	assert.Equal(t, 3, grid.Reserved())
	for pos := 4; pos < 7; pos++ {
		assert.False(t, grid.at(2, pos).Available)
		assert.True(t, grid.at(1, pos).Available)
		assert.True(t, grid.at(3, pos).Available)
	}
}

package scheduler

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/or-scheduler-api/pkg/config"
)

// ErrInvalidConfig marks a horizon, room or operating-hour configuration that cannot produce a grid.
var ErrInvalidConfig = errors.New("invalid scheduler configuration")

// Config carries the recognised scheduling options for one pass.
type Config struct {
	Weekdays       []time.Weekday
	StartHour      int
	EndHour        int
	SlotMinutes    int
	Rooms          int
	CleanupMinutes int
	HorizonDays    int
	Location       *time.Location
}

// DefaultConfig mirrors a Monday-Friday, 08:00-17:00, three-room surgical week.
func DefaultConfig() Config {
	return Config{
		Weekdays:       []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		StartHour:      8,
		EndHour:        17,
		SlotMinutes:    30,
		Rooms:          3,
		CleanupMinutes: 30,
		HorizonDays:    5,
		Location:       time.UTC,
	}
}

// FromSettings builds the default pass configuration from environment
// settings. Zero values keep the DefaultConfig value.
func FromSettings(s config.SchedulerConfig) (Config, error) {
	cfg := DefaultConfig()
	if s.Rooms != 0 {
		cfg.Rooms = s.Rooms
	}
	if s.StartHour != 0 || s.EndHour != 0 {
		cfg.StartHour = s.StartHour
		cfg.EndHour = s.EndHour
	}
	if s.SlotMinutes != 0 {
		cfg.SlotMinutes = s.SlotMinutes
	}
	if s.CleanupMinutes != 0 {
		cfg.CleanupMinutes = s.CleanupMinutes
	}
	if s.HorizonDays != 0 {
		cfg.HorizonDays = s.HorizonDays
	}
	if len(s.Weekdays) > 0 {
		days, err := ParseWeekdays(s.Weekdays)
		if err != nil {
			return Config{}, err
		}
		cfg.Weekdays = days
	}
	if tz := strings.TrimSpace(s.Timezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return Config{}, fmt.Errorf("%w: unknown timezone %q", ErrInvalidConfig, tz)
		}
		cfg.Location = loc
	}
	return cfg, cfg.Validate()
}

// Validate fails fast on configurations the grid builder cannot honour.
func (c Config) Validate() error {
	switch {
	case c.Rooms <= 0:
		return fmt.Errorf("%w: rooms must be greater than zero", ErrInvalidConfig)
	case c.StartHour < 0 || c.EndHour > 24:
		return fmt.Errorf("%w: operating hours must fall within 0-24", ErrInvalidConfig)
	case c.EndHour <= c.StartHour:
		return fmt.Errorf("%w: end hour %d must be after start hour %d", ErrInvalidConfig, c.EndHour, c.StartHour)
	case c.SlotMinutes <= 0 || 60%c.SlotMinutes != 0:
		return fmt.Errorf("%w: slot granularity must divide an hour, got %d minutes", ErrInvalidConfig, c.SlotMinutes)
	case c.CleanupMinutes < 0:
		return fmt.Errorf("%w: cleanup buffer cannot be negative", ErrInvalidConfig)
	case c.HorizonDays <= 0:
		return fmt.Errorf("%w: horizon must span at least one day", ErrInvalidConfig)
	case len(c.Weekdays) == 0:
		return fmt.Errorf("%w: at least one operating weekday is required", ErrInvalidConfig)
	}
	for _, day := range c.Weekdays {
		if day < time.Sunday || day > time.Saturday {
			return fmt.Errorf("%w: unknown weekday %d", ErrInvalidConfig, day)
		}
	}
	return nil
}

// SlotsPerDay is the number of slots each room offers on an operating day.
func (c Config) SlotsPerDay() int {
	return (c.EndHour - c.StartHour) * 60 / c.SlotMinutes
}

func (c Config) step() time.Duration {
	return time.Duration(c.SlotMinutes) * time.Minute
}

func (c Config) location(fallback time.Time) *time.Location {
	if c.Location != nil {
		return c.Location
	}
	return fallback.Location()
}

func (c Config) operates(day time.Weekday) bool {
	for _, wd := range c.Weekdays {
		if wd == day {
			return true
		}
	}
	return false
}

var weekdayNames = map[string]time.Weekday{
	"SUN": time.Sunday, "SUNDAY": time.Sunday,
	"MON": time.Monday, "MONDAY": time.Monday,
	"TUE": time.Tuesday, "TUESDAY": time.Tuesday,
	"WED": time.Wednesday, "WEDNESDAY": time.Wednesday,
	"THU": time.Thursday, "THURSDAY": time.Thursday,
	"FRI": time.Friday, "FRIDAY": time.Friday,
	"SAT": time.Saturday, "SATURDAY": time.Saturday,
}

// ParseWeekday accepts short or long English day names in any case.
func ParseWeekday(raw string) (time.Weekday, error) {
	day, ok := weekdayNames[strings.ToUpper(strings.TrimSpace(raw))]
	if !ok {
		return time.Sunday, fmt.Errorf("%w: unknown weekday %q", ErrInvalidConfig, raw)
	}
	return day, nil
}

// ParseWeekdays parses a list of day names, skipping blanks.
func ParseWeekdays(raw []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(raw))
	for _, item := range raw {
		if strings.TrimSpace(item) == "" {
			continue
		}
		day, err := ParseWeekday(item)
		if err != nil {
			return nil, err
		}
		days = append(days, day)
	}
	return days, nil
}

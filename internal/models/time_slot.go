package models

import "time"

// TimeSlot is one bookable (room, interval) unit of the operating-room grid.
type TimeSlot struct {
	StartTime time.Time `json:"start_time"`
	Room      int       `json:"room"`
	Available bool      `json:"available"`
}

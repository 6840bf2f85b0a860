package scheduler

import (
	"math"
	"time"

	"github.com/noah-isme/or-scheduler-api/internal/models"
)

// Score rates a candidate start time for a surgery. All bonuses are additive;
// the proximity and same-day bonuses stack, as do the age band and the elderly
// early-morning bonus.
func Score(s models.Surgery, highRisk bool, at time.Time) int {
	score := 0

	switch {
	case s.PatientAge > 70:
		score += 20
	case s.PatientAge > 60:
		score += 15
	}

	complexity := s.Complexity()
	if complexity > 60 {
		score += 15
	}
	if complexity > 45 && at.Hour() < 11 {
		score += 10
	}

	preferred := s.ScheduledStart.In(at.Location())
	delta := math.Abs(at.Sub(preferred).Hours())
	switch {
	case delta < 1:
		score += 50
	case delta < 2:
		score += 30
	case delta < 4:
		score += 10
	}

	if sameDate(at, preferred) {
		score += 40
	}

	if s.PatientAge > 65 && at.Hour() < 10 {
		score += 15
	}

	if highRisk {
		score -= 20
	}
	return score
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

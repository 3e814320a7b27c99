package models

import (
	"math/rand"
	"time"
)

// riderState tracks the simulated riding behavior attached to a ticket or
// pass. It never serializes; only the purchase record ships to the
// warehouse.
type riderState struct {
	exp                 time.Time
	lastRideDateChecked time.Time
	lastRideDate        time.Time
	lastLiftRidden      time.Time
	skill               float64 // 0-1, drives lift selection
}

// expired reports whether the holder's product lapsed before t.
func (r *riderState) expired(t time.Time) bool {
	return r.exp.Before(t)
}

// Skill returns the holder's rider skill level.
func (r *riderState) Skill() float64 {
	return r.skill
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

// decideRidingToday runs the once-per-simulated-day riding decision and
// returns whether the holder rides on the day containing t. chance is the
// daily riding probability for the product type.
func (r *riderState) decideRidingToday(t time.Time, chance float64, rng *rand.Rand) bool {
	if r.lastRideDateChecked.IsZero() || !sameDay(r.lastRideDateChecked, t) {
		r.lastRideDateChecked = t
		if rng.Float64() <= chance {
			r.lastRideDate = t
			return true
		}
		return false
	}
	// Already decided for today.
	return !r.lastRideDate.IsZero() && sameDay(r.lastRideDate, t)
}

// NeedsRide reports whether enough simulated time has passed for the next
// lift ride. Riders normally wait 10-30 minutes between rides, with a 10%
// chance of a longer 30-60 minute rest.
func (r *riderState) NeedsRide(t time.Time, rng *rand.Rand) bool {
	var waitMinutes int
	if rng.Float64() <= 0.1 {
		waitMinutes = RestMinInterval + rng.Intn(RestMaxInterval-RestMinInterval)
	} else {
		waitMinutes = RideMinInterval + rng.Intn(RideMaxInterval-RideMinInterval)
	}

	if r.lastLiftRidden.IsZero() || r.lastLiftRidden.Add(time.Duration(waitMinutes)*time.Minute).Before(t) {
		r.lastLiftRidden = t
		return true
	}
	return false
}

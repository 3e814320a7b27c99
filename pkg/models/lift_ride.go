package models

import (
	"fmt"
	"math/rand"
	"time"

	json "github.com/goccy/go-json"
)

// LiftRide is a single RFID gate scan at a lift. The exported fields map
// onto the LIFT_RIDE landing table columns.
type LiftRide struct {
	TXID     string `json:"TXID"`
	RFID     string `json:"RFID"`
	RideTime string `json:"RIDE_TIME"`
	Lift     string `json:"LIFT"`
	Resort   string `json:"RESORT"`
}

// GenerateLiftRide produces a ride for the given RFID at rideTime. Lift
// selection follows rider skill: beginners favor the front of the resort's
// lift list (base terrain), experts the back.
func GenerateLiftRide(rfid, resort string, rideTime time.Time, skill float64, rng *rand.Rand, counter uint64) *LiftRide {
	txid := deriveID("RIDE", fmt.Sprintf("%s-%s-%s-%d", rfid, resort, rideTime.Format(time.RFC3339Nano), counter))

	lifts := ResortLifts[resort]
	if len(lifts) == 0 {
		return &LiftRide{TXID: txid, RFID: rfid, RideTime: rideTime.Format(time.RFC3339), Resort: resort}
	}

	var liftIndex int
	switch {
	case skill < 0.3:
		maxIndex := len(lifts) / 3
		if maxIndex < 1 {
			maxIndex = 1
		}
		liftIndex = rng.Intn(maxIndex + 1)
	case skill < 0.7:
		startIndex := len(lifts) / 4
		endIndex := 3 * len(lifts) / 4
		liftIndex = startIndex + rng.Intn(endIndex-startIndex+1)
	default:
		startIndex := 2 * len(lifts) / 3
		liftIndex = startIndex + rng.Intn(len(lifts)-startIndex)
	}
	if liftIndex >= len(lifts) {
		liftIndex = len(lifts) - 1
	}

	return &LiftRide{
		TXID:     txid,
		RFID:     rfid,
		RideTime: rideTime.Format(time.RFC3339),
		Lift:     lifts[liftIndex],
		Resort:   resort,
	}
}

// JSON encodes the ride as a single NDJSON row.
func (r *LiftRide) JSON() ([]byte, error) {
	return json.Marshal(r)
}

package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	json "github.com/goccy/go-json"
)

// Season pass price tiers and their purchase weights (parallel slices).
var (
	seasonPassPrices       = []int{1051, 783, 537, 407}
	seasonPassPriceWeights = []float64{0.4, 0.5, 0.05, 0.05}
)

// SeasonPass is a season-long pass purchase valid at every resort. The
// exported fields map onto the SEASON_PASS landing table columns.
type SeasonPass struct {
	TXID             string            `json:"TXID"`
	RFID             string            `json:"RFID"`
	PurchaseTime     string            `json:"PURCHASE_TIME"`
	PriceUSD         int               `json:"PRICE_USD"`
	ExpirationTime   string            `json:"EXPIRATION_TIME"`
	Name             string            `json:"NAME"`
	Address          *Address          `json:"ADDRESS"`
	Phone            *string           `json:"PHONE"`
	Email            *string           `json:"EMAIL"`
	EmergencyContact *EmergencyContact `json:"EMERGENCY_CONTACT"`

	riderState
	lastResort string
}

// GenerateSeasonPass produces a pass purchased at worldTime, valid 365 days.
func GenerateSeasonPass(worldTime time.Time, rng *rand.Rand, faker *gofakeit.Faker, counter uint64) *SeasonPass {
	exp := worldTime.Add(365 * 24 * time.Hour)

	customer := GenerateCustomer(rng, faker)

	txid := deriveID("SP", fmt.Sprintf("%s-season-pass-%s-%d", worldTime.Format(time.RFC3339Nano), customer.Name, counter))
	rfid := deriveID("RFID-SP", fmt.Sprintf("%s-%d", txid, counter))

	price := seasonPassPrices[weightedIndex(rng, seasonPassPriceWeights)]

	return &SeasonPass{
		TXID:             txid,
		RFID:             rfid,
		PurchaseTime:     worldTime.Format(time.RFC3339),
		PriceUSD:         price,
		ExpirationTime:   exp.Format(time.RFC3339),
		Name:             customer.Name,
		Address:          customer.Address,
		Phone:            customer.Phone,
		Email:            customer.Email,
		EmergencyContact: customer.EmergencyContact,
		riderState: riderState{
			exp:   exp,
			skill: rng.Float64(),
		},
	}
}

// IsExpired reports whether the pass lapsed before t.
func (p *SeasonPass) IsExpired(at time.Time) bool {
	return p.expired(at)
}

// IsRidingToday decides once per simulated day whether the holder is on the
// mountain. Pass holders pick a resort with the popularity weights and stick
// with it for the day.
func (p *SeasonPass) IsRidingToday(at time.Time, rng *rand.Rand) (bool, string) {
	if p.lastRideDateChecked.IsZero() || !sameDay(p.lastRideDateChecked, at) {
		p.lastRideDateChecked = at
		if rng.Float64() <= SeasonPassRidingChance {
			p.lastResort = PickResort(rng)
			p.lastRideDate = at
			return true, p.lastResort
		}
		return false, ""
	}
	if !p.lastRideDate.IsZero() && sameDay(p.lastRideDate, at) {
		return true, p.lastResort
	}
	return false, ""
}

// JSON encodes the pass as a single NDJSON row.
func (p *SeasonPass) JSON() ([]byte, error) {
	return json.Marshal(p)
}

package models

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	json "github.com/goccy/go-json"
)

// ResortTicket is a multi-day lift ticket purchase. The exported fields map
// one-to-one onto the RESORT_TICKET landing table columns.
type ResortTicket struct {
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
	Days             int               `json:"DAYS"`
	Resort           string            `json:"RESORT"`

	riderState
}

// GenerateResortTicket produces a ticket purchased at worldTime. The counter
// feeds the deterministic TXID/RFID derivation and must be unique across all
// records of a run. A ticket stays usable for twice its day count.
func GenerateResortTicket(resort string, worldTime time.Time, rng *rand.Rand, faker *gofakeit.Faker, counter uint64) *ResortTicket {
	days := PickTicketDays(rng)
	exp := worldTime.Add(time.Duration(days*2) * 24 * time.Hour)

	customer := GenerateCustomer(rng, faker)

	txid := deriveID("TX", fmt.Sprintf("%s-%s-%s-%d", worldTime.Format(time.RFC3339Nano), resort, customer.Name, counter))
	rfid := deriveID("RFID", fmt.Sprintf("%s-%d", txid, counter))

	profile, ok := ResortProfiles[resort]
	if !ok {
		profile = ResortProfile{TicketBasePrice: 100, WeekendMultiplier: 1.5}
	}
	basePrice := profile.TicketBasePrice
	if wd := worldTime.Weekday(); wd == time.Saturday || wd == time.Sunday {
		basePrice *= profile.WeekendMultiplier
	}
	// 10% random price variation, multiplied by days.
	priceUSD := int(basePrice * (0.9 + rng.Float64()*0.2) * float64(days))

	return &ResortTicket{
		TXID:             txid,
		RFID:             rfid,
		PurchaseTime:     worldTime.Format(time.RFC3339),
		PriceUSD:         priceUSD,
		ExpirationTime:   exp.Format(time.RFC3339),
		Name:             customer.Name,
		Address:          customer.Address,
		Phone:            customer.Phone,
		Email:            customer.Email,
		EmergencyContact: customer.EmergencyContact,
		Days:             days,
		Resort:           resort,
		riderState: riderState{
			exp:   exp,
			skill: rng.Float64(),
		},
	}
}

// IsExpired reports whether the ticket lapsed before t.
func (t *ResortTicket) IsExpired(at time.Time) bool {
	return t.expired(at)
}

// IsRidingToday decides once per simulated day whether the holder is on the
// mountain, and returns the resort they ride at.
func (t *ResortTicket) IsRidingToday(at time.Time, rng *rand.Rand) (bool, string) {
	if t.decideRidingToday(at, DailyTicketRidingChance, rng) {
		return true, t.Resort
	}
	return false, ""
}

// JSON encodes the ticket as a single NDJSON row.
func (t *ResortTicket) JSON() ([]byte, error) {
	return json.Marshal(t)
}

package models

import (
	"math/rand"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	json "github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFixtures(seed int64) (*rand.Rand, *gofakeit.Faker) {
	return rand.New(rand.NewSource(seed)), gofakeit.New(uint64(seed))
}

var worldTime = time.Date(2024, 1, 13, 15, 0, 0, 0, time.UTC) // a Saturday

func TestGenerateResortTicket(t *testing.T) {
	rng, faker := newFixtures(42)
	ticket := GenerateResortTicket("Vail", worldTime, rng, faker, 1)

	assert.Regexp(t, `^TX-[0-9a-f]{8}-[0-9a-f]{8}$`, ticket.TXID)
	assert.Regexp(t, `^RFID-[0-9a-f]{8}-[0-9a-f]{8}$`, ticket.RFID)
	assert.Equal(t, "Vail", ticket.Resort)
	assert.GreaterOrEqual(t, ticket.Days, 1)
	assert.LessOrEqual(t, ticket.Days, 7)
	assert.Positive(t, ticket.PriceUSD)
	assert.NotEmpty(t, ticket.Name)

	purchase, err := time.Parse(time.RFC3339, ticket.PurchaseTime)
	require.NoError(t, err)
	expiration, err := time.Parse(time.RFC3339, ticket.ExpirationTime)
	require.NoError(t, err)
	assert.True(t, expiration.After(purchase))
	assert.Equal(t, time.Duration(ticket.Days*2)*24*time.Hour, expiration.Sub(purchase))
}

func TestTicketWeekendPremium(t *testing.T) {
	// Identical rng streams, one weekday and one Saturday purchase.
	saturday := time.Date(2024, 1, 13, 15, 0, 0, 0, time.UTC)
	tuesday := time.Date(2024, 1, 9, 15, 0, 0, 0, time.UTC)

	rng1, f1 := newFixtures(7)
	rng2, f2 := newFixtures(7)
	weekend := GenerateResortTicket("Breckenridge", saturday, rng1, f1, 1)
	weekday := GenerateResortTicket("Breckenridge", tuesday, rng2, f2, 1)

	require.Equal(t, weekend.Days, weekday.Days)
	assert.Greater(t, weekend.PriceUSD, weekday.PriceUSD)
}

func TestTicketDeterministicIDs(t *testing.T) {
	rng1, f1 := newFixtures(99)
	rng2, f2 := newFixtures(99)
	a := GenerateResortTicket("Keystone", worldTime, rng1, f1, 5)
	b := GenerateResortTicket("Keystone", worldTime, rng2, f2, 5)
	assert.Equal(t, a.TXID, b.TXID)
	assert.Equal(t, a.RFID, b.RFID)

	// A different counter changes the identifiers.
	rng3, f3 := newFixtures(99)
	c := GenerateResortTicket("Keystone", worldTime, rng3, f3, 6)
	assert.NotEqual(t, a.TXID, c.TXID)
}

func TestTicketJSONColumns(t *testing.T) {
	rng, faker := newFixtures(42)
	ticket := GenerateResortTicket("Heavenly", worldTime, rng, faker, 1)

	data, err := ticket.JSON()
	require.NoError(t, err)

	var row map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &row))
	for _, col := range []string{
		"TXID", "RFID", "PURCHASE_TIME", "PRICE_USD", "EXPIRATION_TIME",
		"NAME", "ADDRESS", "PHONE", "EMAIL", "EMERGENCY_CONTACT", "DAYS", "RESORT",
	} {
		_, ok := row[col]
		assert.True(t, ok, "missing column %s", col)
	}
	// Simulation state must never leak into the payload.
	assert.NotContains(t, row, "skill")
	assert.NotContains(t, row, "exp")
}

func TestGenerateSeasonPass(t *testing.T) {
	rng, faker := newFixtures(42)
	pass := GenerateSeasonPass(worldTime, rng, faker, 1)

	assert.Regexp(t, `^SP-[0-9a-f]{8}-[0-9a-f]{8}$`, pass.TXID)
	assert.Regexp(t, `^RFID-SP-[0-9a-f]{8}-[0-9a-f]{8}$`, pass.RFID)
	assert.Contains(t, []int{1051, 783, 537, 407}, pass.PriceUSD)

	purchase, err := time.Parse(time.RFC3339, pass.PurchaseTime)
	require.NoError(t, err)
	expiration, err := time.Parse(time.RFC3339, pass.ExpirationTime)
	require.NoError(t, err)
	assert.Equal(t, 365*24*time.Hour, expiration.Sub(purchase))
	assert.False(t, pass.IsExpired(worldTime))
	assert.True(t, pass.IsExpired(worldTime.Add(366*24*time.Hour)))
}

func TestSeasonPassPriceDistribution(t *testing.T) {
	rng, faker := newFixtures(1)
	counts := map[int]int{}
	for i := 0; i < 2000; i++ {
		p := GenerateSeasonPass(worldTime, rng, faker, uint64(i))
		counts[p.PriceUSD]++
	}
	// The two dominant tiers carry 90% of the weight.
	assert.Greater(t, counts[1051]+counts[783], 1600)
	assert.Greater(t, counts[783], counts[1051]) // 0.5 vs 0.4
}

func TestIsRidingTodayDecidesOncePerDay(t *testing.T) {
	rng, faker := newFixtures(42)
	ticket := GenerateResortTicket("Vail", worldTime, rng, faker, 1)

	riding, resort := ticket.IsRidingToday(worldTime, rng)
	if riding {
		assert.Equal(t, "Vail", resort)
	}
	// Repeated checks within the same day return the same decision.
	for i := 0; i < 10; i++ {
		again, _ := ticket.IsRidingToday(worldTime.Add(time.Duration(i)*30*time.Minute), rng)
		assert.Equal(t, riding, again)
	}
}

func TestNeedsRideIntervals(t *testing.T) {
	rng, faker := newFixtures(42)
	ticket := GenerateResortTicket("Vail", worldTime, rng, faker, 1)

	// First call always rides.
	assert.True(t, ticket.NeedsRide(worldTime, rng))
	// Nothing can be due within the minimum interval.
	assert.False(t, ticket.NeedsRide(worldTime.Add(5*time.Minute), rng))
	// Everything is due after the maximum rest interval.
	assert.True(t, ticket.NeedsRide(worldTime.Add(61*time.Minute), rng))
}

func TestGenerateLiftRideSkillBands(t *testing.T) {
	// Keystone's lift names are unique, so list position is recoverable.
	rng, _ := newFixtures(42)
	lifts := ResortLifts["Keystone"]

	for i := 0; i < 50; i++ {
		ride := GenerateLiftRide("RFID-x", "Keystone", worldTime, 0.1, rng, uint64(i))
		idx := indexOf(lifts, ride.Lift)
		require.GreaterOrEqual(t, idx, 0)
		assert.LessOrEqual(t, idx, len(lifts)/3, "beginner rode advanced lift %s", ride.Lift)
	}
	for i := 0; i < 50; i++ {
		ride := GenerateLiftRide("RFID-x", "Keystone", worldTime, 0.9, rng, uint64(i))
		idx := indexOf(lifts, ride.Lift)
		require.GreaterOrEqual(t, idx, 0)
		assert.GreaterOrEqual(t, idx, 2*len(lifts)/3, "expert rode beginner lift %s", ride.Lift)
	}
}

func TestGenerateLiftRideJSON(t *testing.T) {
	rng, _ := newFixtures(42)
	ride := GenerateLiftRide("RFID-abc", "Keystone", worldTime, 0.5, rng, 9)

	data, err := ride.JSON()
	require.NoError(t, err)

	var row map[string]string
	require.NoError(t, json.Unmarshal(data, &row))
	assert.Equal(t, "RFID-abc", row["RFID"])
	assert.Equal(t, "Keystone", row["RESORT"])
	assert.NotEmpty(t, row["LIFT"])
	assert.Regexp(t, `^RIDE-[0-9a-f]{8}-[0-9a-f]{8}$`, row["TXID"])
}

func TestPickResortRespectsWeights(t *testing.T) {
	rng, _ := newFixtures(3)
	counts := map[string]int{}
	for i := 0; i < 5000; i++ {
		counts[PickResort(rng)]++
	}
	for _, resort := range Resorts {
		assert.Positive(t, counts[resort], resort)
	}
	// Heavenly (0.1) should trail Vail (0.25) clearly.
	assert.Greater(t, counts["Vail"], counts["Heavenly"])
}

func TestResortLocation(t *testing.T) {
	denver := ResortLocation("Vail")
	assert.Equal(t, "America/Denver", denver.String())
	tahoe := ResortLocation("Heavenly")
	assert.Equal(t, "America/Los_Angeles", tahoe.String())
	assert.Equal(t, time.UTC, ResortLocation("Alta"))
}

func TestGenerateCustomerOptionalFields(t *testing.T) {
	rng, faker := newFixtures(11)
	var missingAddress, missingPhone bool
	for i := 0; i < 200; i++ {
		c := GenerateCustomer(rng, faker)
		assert.NotEmpty(t, c.Name)
		if c.Address == nil {
			missingAddress = true
		}
		if c.Phone == nil {
			missingPhone = true
		}
	}
	assert.True(t, missingAddress, "addresses should be missing ~20% of the time")
	assert.True(t, missingPhone, "phones should be missing ~20% of the time")
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}

package models

import (
	"math/rand"
	"time"
)

// Resorts lists the supported ski resorts. ResortWeights gives the relative
// purchase popularity used for weighted selection; the slices are parallel.
var (
	Resorts       = []string{"Vail", "Beaver Creek", "Breckenridge", "Keystone", "Heavenly"}
	ResortWeights = []float64{0.25, 0.2, 0.25, 0.2, 0.1}
)

var resortTimezones = map[string]string{
	"Vail":         "America/Denver",
	"Beaver Creek": "America/Denver",
	"Breckenridge": "America/Denver",
	"Keystone":     "America/Denver",
	"Heavenly":     "America/Los_Angeles",
}

// ResortProfile holds per-resort pricing parameters.
type ResortProfile struct {
	TicketBasePrice   float64
	WeekendMultiplier float64
}

// ResortProfiles maps each resort to its pricing profile.
var ResortProfiles = map[string]ResortProfile{
	"Vail":         {TicketBasePrice: 120, WeekendMultiplier: 1.6},
	"Beaver Creek": {TicketBasePrice: 110, WeekendMultiplier: 1.5},
	"Breckenridge": {TicketBasePrice: 100, WeekendMultiplier: 1.7},
	"Keystone":     {TicketBasePrice: 90, WeekendMultiplier: 1.6},
	"Heavenly":     {TicketBasePrice: 110, WeekendMultiplier: 1.5},
}

// Ticket duration options and weights (parallel slices).
var (
	TicketDayOptions = []int{1, 2, 3, 4, 5, 6, 7}
	TicketDayWeights = []float64{0.35, 0.35, 0.1, 0.05, 0.05, 0.05, 0.05}
)

// Ride timing constants, in simulated minutes.
const (
	RideMinInterval = 10
	RideMaxInterval = 30
	RestMinInterval = 30
	RestMaxInterval = 60
)

// Daily riding probabilities.
const (
	DailyTicketRidingChance = 0.85
	SeasonPassRidingChance  = 0.10
)

var vailLifts = []string{
	"Eagle Bahn Gondola", "Gondola One", "Game Creek Express", "Northwoods Express",
	"Avanti Express", "Mountain Top Express", "Sun Down Express", "Sun Up Express",
	"High Noon Express", "Sourdough Express", "Highline Express", "Pete's Express",
	"Tea Cup Express", "Skyline Express", "Earl's Express", "Riva Bahn Express",
	"Wildwood Express", "Pride Express", "Born Free Express", "Orient Express",
	"Cascade Village", "Golden Peak", "Little Eagle", "Golden Peak", "Wapiti",
	"Mongolia", "Black Forest", "Elvis Bahn", "Rip's Ride Carpet", "Adventure Ridge",
	"Thunder Cat Carpet", "Golden Peak Carpet", "Lightning Coyote", "Lionshead Magic Carpet",
}

var beaverCreekLifts = []string{
	"Haymeadow Express Gondola", "Riverfront Express", "Centennial Express",
	"McCoy Park Express Chairlift", "Red Buffalo Express 5", "Rose Bowl Express",
	"Larkspur Express", "Lower Beaver Creek Mountain Express",
	"Upper Beaver Creek Mountain Express", "Birds of Prey Express", "Cinch Express",
	"Bachelor Gulch Express", "Strawberry Park Express", "Grouse Mountain Express",
	"Arrow Bahn Express", "Reunion Chairlift", "Elkhorn", "Highlands",
	"Magic Carpet Beaver Creek", "Ritz Bahn", "Wagon Train", "Jitterbug",
	"Bibber Bahn", "Trail Rider", "Snowflake",
}

var breckenridgeLifts = []string{
	"BreckConnect Gondola", "Falcon SuperChair", "Colorado SuperChair",
	"Kensho SuperChair", "Independance SuperChair", "QuickSilver Super 6",
	"Five SuperChair", "Rip's Ride", "Freedom SuperChair", "Imperial Express SuperChair",
	"Peak 8 Super Connect", "Mercury SuperChair", "Rocky Mountain SuperChair",
	"Beaver Run SuperChair", "Zendo Chair", "A-Chair", "Snowflake", "C-Chair",
	"E-Chair", "6-Chair", "Horseshoe Bowl T-Bar", "Trygve's Platter", "Eldora Platter",
	"Camelback Platter", "El Dorado Tow", "Castle Carpet 2", "Village Carpet B",
	"El Dorado Carpet C", "El Dorado Carpet D", "Ski and Ride Carpet 1",
	"Ski and Ride Carpet 4", "Village Carpet A", "Ski and Ride Carpet 2",
	"Ski and Ride Carpet 3", "Castle Carpet 1",
}

var keystoneLifts = []string{
	"River Run Gondola", "Outpost Gondola", "Bergman Bowl Express", "Peru Express",
	"Montezuma Express", "Ruby Express", "Santiago Express", "Summit Express",
	"Outback Express", "Wayback", "Ranger", "Discovery", "A51 Lift",
	"Mid-Station Ski School", "Kokomo", "Double Barrel 2", "Sun Kid", "Cadillac",
	"Double Barrel 1", "Triangle", "Tubing Hill",
}

var heavenlyLifts = []string{
	"Aerial Tram", "Heavenly Gondola", "Powderbowl Express", "Tamarack Express",
	"North Bowl Express", "Olympic Express", "Canyon Express", "Stagecoach Express",
	"Gunbarrel Express", "Dipper Express", "Comet Express", "Sky Express", "Big Easy",
	"Galaxy", "First Ride", "Groove", "Boulder", "Patsy's", "World Cup", "Mott Canyon",
	"Mitey-Mite Forest", "Pioneer Mitey Mite Tow", "DMZ Carpet", "Enchanted Carpet",
	"Boulder Carpet", "Bear Cave Carpet", "Tubing Lift",
}

// ResortLifts maps each resort to its lift list, ordered roughly from
// beginner terrain to advanced terrain. Lift selection leans on that order.
var ResortLifts = map[string][]string{
	"Vail":         vailLifts,
	"Beaver Creek": beaverCreekLifts,
	"Breckenridge": breckenridgeLifts,
	"Keystone":     keystoneLifts,
	"Heavenly":     heavenlyLifts,
}

// ResortLocation returns the resort's timezone. Unknown resorts resolve to
// UTC so callers never receive a nil location.
func ResortLocation(resort string) *time.Location {
	name, ok := resortTimezones[resort]
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PickResort selects a resort with the configured popularity weights.
func PickResort(rng *rand.Rand) string {
	return Resorts[weightedIndex(rng, ResortWeights)]
}

// PickTicketDays selects a ticket duration with the configured weights.
func PickTicketDays(rng *rand.Rand) int {
	return TicketDayOptions[weightedIndex(rng, TicketDayWeights)]
}

// weightedIndex returns an index into weights chosen proportionally.
func weightedIndex(rng *rand.Rand, weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	r := rng.Float64() * total
	cumulative := 0.0
	for i, w := range weights {
		cumulative += w
		if r <= cumulative {
			return i
		}
	}
	return len(weights) - 1
}

// Package generator runs the ski-resort simulation. A world clock advances
// faster than real time by the configured speed multiplier; each tick
// purchases resort tickets and season passes, walks the active population
// through lift rides during resort hours, and appends every record to the
// durable buffer for the streamers to ship.
package generator

import (
	"context"
	"math/rand"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"go.uber.org/zap"

	"github.com/alpinedata/chairlift/pkg/buffer"
	"github.com/alpinedata/chairlift/pkg/config"
	"github.com/alpinedata/chairlift/pkg/errors"
	"github.com/alpinedata/chairlift/pkg/logger"
	"github.com/alpinedata/chairlift/pkg/metrics"
	"github.com/alpinedata/chairlift/pkg/models"
)

// Resort operating hours, local to each resort.
const (
	openHour    = 8
	openMinute  = 30
	closeHour   = 16
	closeMinute = 0
)

// maxRealDelta caps the real-time gap fed into the world clock, so a
// suspended process does not jump the simulation by months on resume.
const maxRealDelta = 10 * time.Minute

// maxAdvance caps a single world-clock step.
const maxAdvance = 30 * 24 * time.Hour

// Generator owns the simulation state: the world clock, the active ticket
// and pass populations, and the deterministic id counter.
type Generator struct {
	cfg config.SimulationConfig
	buf *buffer.Buffer
	log *zap.Logger

	rng   *rand.Rand
	faker *gofakeit.Faker

	worldTime time.Time
	prevReal  time.Time
	counter   uint64

	tickets []*models.ResortTicket
	passes  []*models.SeasonPass

	ticketsPurchased int
	passesPurchased  int

	// now is the real-time source, replaced in tests
	now func() time.Time
}

// New builds a Generator over the buffer. The random source is seeded from
// the UTC calendar date unless the config pins a seed, so two hosts started
// the same day produce the same population.
func New(cfg config.SimulationConfig, buf *buffer.Buffer) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		today := time.Now().UTC()
		seed = int64(today.Year()*10000 + int(today.Month())*100 + today.Day())
	}

	return &Generator{
		cfg:   cfg,
		buf:   buf,
		log:   logger.Get().With(zap.String("component", "generator")),
		rng:   rand.New(rand.NewSource(seed)),
		faker: gofakeit.New(uint64(seed)),
		now:   time.Now,
	}
}

// Run drives the simulation until ctx is cancelled. A failed tick is logged
// and counted; the loop keeps going.
func (g *Generator) Run(ctx context.Context) error {
	g.worldTime = g.now().UTC()
	g.prevReal = g.worldTime

	g.log.Info("starting simulation",
		zap.String("speed", g.cfg.Speed),
		zap.Float64("multiplier", g.cfg.SpeedMultiplier()),
		zap.Duration("tick_interval", g.cfg.TickInterval))

	ticker := time.NewTicker(g.cfg.TickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			g.log.Info("simulation stopped",
				zap.Int("tickets_purchased", g.ticketsPurchased),
				zap.Int("season_passes_purchased", g.passesPurchased))
			return nil
		case <-ticker.C:
			if err := g.tick(g.now().UTC()); err != nil {
				metrics.Errors.WithLabelValues("generator", string(errors.TypeOf(err))).Inc()
				g.log.Error("tick failed", zap.Error(err))
			}
		}
	}
}

// tick runs one simulation step at real time now: purchases, lift rides,
// expiry sweep, then the world-clock advance.
func (g *Generator) tick(now time.Time) error {
	if err := g.generateSeasonPasses(); err != nil {
		return err
	}
	if err := g.generateTickets(); err != nil {
		return err
	}
	if err := g.processLiftRides(); err != nil {
		return err
	}
	g.sweepExpired()
	g.advanceWorldClock(now)

	if g.ticketsPurchased > 0 && g.ticketsPurchased%100 == 0 {
		g.log.Info("simulation progress",
			zap.Int("tickets_purchased", g.ticketsPurchased),
			zap.Int("season_passes_purchased", g.passesPurchased),
			zap.Int("active_tickets", len(g.tickets)),
			zap.Int("active_passes", len(g.passes)),
			zap.Time("world_time", g.worldTime))
	}
	return nil
}

// generateTickets purchases TicketsPerTick resort tickets at weighted
// resorts and appends them to the buffer.
func (g *Generator) generateTickets() error {
	for i := 0; i < g.cfg.TicketsPerTick; i++ {
		resort := models.PickResort(g.rng)
		ticket := models.GenerateResortTicket(resort, g.worldTime, g.rng, g.faker, g.counter)
		g.counter++

		if err := g.appendRecord(buffer.StreamResortTickets, ticket); err != nil {
			return err
		}
		g.tickets = append(g.tickets, ticket)
		g.ticketsPurchased++
	}
	return nil
}

// generateSeasonPasses keeps the pass count at the configured
// ticket:season-pass ratio.
func (g *Generator) generateSeasonPasses() error {
	needed := g.ticketsPurchased / g.cfg.TicketsPerSeasonPass
	for g.passesPurchased < needed {
		pass := models.GenerateSeasonPass(g.worldTime, g.rng, g.faker, g.counter)
		g.counter++

		if err := g.appendRecord(buffer.StreamSeasonPasses, pass); err != nil {
			return err
		}
		g.passes = append(g.passes, pass)
		g.passesPurchased++
	}
	return nil
}

// processLiftRides generates rides for every active rider who is on the
// mountain today, needs a ride, and is inside resort operating hours.
func (g *Generator) processLiftRides() error {
	for _, ticket := range g.tickets {
		riding, resort := ticket.IsRidingToday(g.worldTime, g.rng)
		if !riding || !withinResortHours(g.worldTime, resort) || !ticket.NeedsRide(g.worldTime, g.rng) {
			continue
		}
		ride := models.GenerateLiftRide(ticket.RFID, resort, g.worldTime, ticket.Skill(), g.rng, g.counter)
		g.counter++
		if err := g.appendRecord(buffer.StreamLiftRides, ride); err != nil {
			return err
		}
	}

	for _, pass := range g.passes {
		riding, resort := pass.IsRidingToday(g.worldTime, g.rng)
		if !riding || !withinResortHours(g.worldTime, resort) || !pass.NeedsRide(g.worldTime, g.rng) {
			continue
		}
		ride := models.GenerateLiftRide(pass.RFID, resort, g.worldTime, pass.Skill(), g.rng, g.counter)
		g.counter++
		if err := g.appendRecord(buffer.StreamLiftRides, ride); err != nil {
			return err
		}
	}
	return nil
}

// sweepExpired drops tickets and passes that lapsed before the world clock.
func (g *Generator) sweepExpired() {
	active := g.tickets[:0]
	for _, t := range g.tickets {
		if !t.IsExpired(g.worldTime) {
			active = append(active, t)
		}
	}
	g.tickets = active

	activePasses := g.passes[:0]
	for _, p := range g.passes {
		if !p.IsExpired(g.worldTime) {
			activePasses = append(activePasses, p)
		}
	}
	g.passes = activePasses
}

// advanceWorldClock moves the world clock by the capped real-time delta
// times the speed multiplier.
func (g *Generator) advanceWorldClock(now time.Time) {
	delta := now.Sub(g.prevReal)
	if delta < 0 {
		delta = 0
	}
	if delta > maxRealDelta {
		delta = maxRealDelta
	}

	advance := time.Duration(float64(delta) * g.cfg.SpeedMultiplier())
	if advance > maxAdvance {
		advance = maxAdvance
	}

	g.worldTime = g.worldTime.Add(advance)
	g.prevReal = now
}

// appendRecord marshals the record and appends it to the stream.
func (g *Generator) appendRecord(stream buffer.Stream, record interface{ JSON() ([]byte, error) }) error {
	payload, err := record.JSON()
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to encode record").
			WithDetail("stream", string(stream))
	}
	if _, err := g.buf.Append(stream, payload); err != nil {
		return err
	}
	metrics.RowsGenerated.WithLabelValues(string(stream)).Inc()
	return nil
}

// withinResortHours reports whether t falls inside 08:30-16:00 local to
// the resort.
func withinResortHours(t time.Time, resort string) bool {
	local := t.In(models.ResortLocation(resort))
	open := time.Date(local.Year(), local.Month(), local.Day(), openHour, openMinute, 0, 0, local.Location())
	close := time.Date(local.Year(), local.Month(), local.Day(), closeHour, closeMinute, 0, 0, local.Location())
	return !local.Before(open) && local.Before(close)
}

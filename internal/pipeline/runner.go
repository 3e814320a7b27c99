package pipeline

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/alpinedata/chairlift/internal/generator"
	"github.com/alpinedata/chairlift/pkg/buffer"
	"github.com/alpinedata/chairlift/pkg/config"
	"github.com/alpinedata/chairlift/pkg/ingest"
	"github.com/alpinedata/chairlift/pkg/logger"
	"github.com/alpinedata/chairlift/pkg/metrics"
)

// Runner owns the full pipeline: the simulation generator feeding the
// buffer and one streamer per stream draining it.
type Runner struct {
	cfg *config.Config
	buf *buffer.Buffer
	log *zap.Logger

	withGenerator bool
	withStreamers bool
}

// NewRunner builds a Runner over an open buffer. The generator and the
// streamers can be toggled independently, so `generate` and `stream` can
// also run as separate processes sharing the buffer directory.
func NewRunner(cfg *config.Config, buf *buffer.Buffer, withGenerator, withStreamers bool) *Runner {
	return &Runner{
		cfg:           cfg,
		buf:           buf,
		log:           logger.Get().With(zap.String("component", "runner")),
		withGenerator: withGenerator,
		withStreamers: withStreamers,
	}
}

// pipeFor maps a stream to its configured pipe name.
func pipeFor(cfg config.SnowflakeConfig, stream buffer.Stream) string {
	switch stream {
	case buffer.StreamLiftRides:
		return cfg.Pipes.LiftRides
	case buffer.StreamResortTickets:
		return cfg.Pipes.ResortTickets
	default:
		return cfg.Pipes.SeasonPasses
	}
}

// channelName derives the ingest channel name for a stream.
func channelName(prefix string, stream buffer.Stream) string {
	return prefix + "-" + strings.ToLower(string(stream))
}

// Run starts the enabled components and blocks until ctx is cancelled or
// a component fails to start. Channels are opened before any goroutine
// launches so credential problems surface immediately.
func (r *Runner) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	if r.cfg.Observability.MetricsAddr != "" {
		addr := r.cfg.Observability.MetricsAddr
		g.Go(func() error {
			return metrics.Serve(gctx, addr)
		})
	}

	if r.withGenerator {
		gen := generator.New(r.cfg.Simulation, r.buf)
		g.Go(func() error {
			return gen.Run(gctx)
		})
	}

	if r.withStreamers {
		client, err := ingest.NewClient(ingest.Config{
			Account:       r.cfg.Snowflake.Account,
			User:          r.cfg.Snowflake.User,
			PrivateKey:    r.cfg.Snowflake.PrivateKey,
			BaseURL:       r.cfg.Snowflake.URL,
			Database:      r.cfg.Snowflake.Database,
			Schema:        r.cfg.Snowflake.Schema,
			GzipThreshold: r.cfg.Pipeline.GzipThreshold,
		})
		if err != nil {
			return err
		}
		defer client.Close()

		for _, stream := range buffer.Streams {
			channel, err := client.OpenChannel(ctx,
				pipeFor(r.cfg.Snowflake, stream),
				channelName(r.cfg.Snowflake.ChannelPrefix, stream))
			if err != nil {
				return err
			}
			streamer, err := NewStreamer(stream, r.buf, channel, r.cfg.Pipeline)
			if err != nil {
				return err
			}
			g.Go(func() error {
				return streamer.Run(gctx)
			})
		}
	}

	r.log.Info("pipeline running",
		zap.Bool("generator", r.withGenerator),
		zap.Bool("streamers", r.withStreamers))
	return g.Wait()
}

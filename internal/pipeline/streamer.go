// Package pipeline wires the simulation to the warehouse: one Streamer per
// stream polls the durable buffer, batches rows into NDJSON appends with the
// row sequence as offset token, and deletes buffered rows once the ingest
// service reports them committed. A Runner supervises the generator and the
// three streamers as one unit.
package pipeline

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/alpinedata/chairlift/pkg/buffer"
	"github.com/alpinedata/chairlift/pkg/config"
	"github.com/alpinedata/chairlift/pkg/errors"
	"github.com/alpinedata/chairlift/pkg/logger"
	"github.com/alpinedata/chairlift/pkg/metrics"
)

// Appender is the slice of the ingest channel the streamer depends on.
type Appender interface {
	// AppendRows ships an NDJSON payload under the offset token.
	AppendRows(ctx context.Context, rows []byte, offsetToken string) error
	// LatestCommittedOffsetToken returns the last token the service has
	// durably committed, empty when nothing committed yet.
	LatestCommittedOffsetToken(ctx context.Context) (string, error)
	// OpenedOffsetToken is the committed token observed at channel open.
	OpenedOffsetToken() string
}

// Streamer ships one stream from the buffer into one ingest channel.
// At-least-once: rows are deleted only after the service confirms their
// offset token, and redelivered batches are deduplicated service-side by
// that same token.
type Streamer struct {
	stream  buffer.Stream
	buf     *buffer.Buffer
	channel Appender
	cfg     config.PipelineConfig
	log     *zap.Logger

	committed uint64
}

// NewStreamer builds a Streamer over an already-open channel. The resume
// point is the channel's committed offset token; buffered rows at or below
// it are deleted immediately since the service already has them.
func NewStreamer(stream buffer.Stream, buf *buffer.Buffer, channel Appender, cfg config.PipelineConfig) (*Streamer, error) {
	committed, err := parseOffsetToken(channel.OpenedOffsetToken())
	if err != nil {
		return nil, err
	}

	s := &Streamer{
		stream:    stream,
		buf:       buf,
		channel:   channel,
		cfg:       cfg,
		log:       logger.Get().With(zap.String("component", "streamer"), zap.String("stream", string(stream))),
		committed: committed,
	}

	if committed > 0 {
		if err := buf.DeleteThrough(stream, committed); err != nil {
			return nil, err
		}
		metrics.CommittedOffset.WithLabelValues(string(stream)).Set(float64(committed))
	}
	s.log.Info("streamer resuming", zap.Uint64("committed_offset", committed))
	return s, nil
}

// Run polls the buffer until ctx is cancelled. Errors back off
// exponentially up to MaxBackoff and never stop the loop.
func (s *Streamer) Run(ctx context.Context) error {
	backoff := time.Duration(0)
	for {
		shipped, err := s.shipBatch(ctx)
		switch {
		case err != nil:
			metrics.Errors.WithLabelValues("streamer", string(errors.TypeOf(err))).Inc()
			if backoff == 0 {
				backoff = s.cfg.PollInterval
			} else {
				backoff *= 2
			}
			if backoff > s.cfg.MaxBackoff {
				backoff = s.cfg.MaxBackoff
			}
			s.log.Warn("ship failed, backing off",
				zap.Duration("backoff", backoff),
				zap.Error(err))
		case !shipped:
			// Nothing new in the buffer.
			backoff = s.cfg.PollInterval
		default:
			backoff = 0
		}

		if backoff == 0 {
			// More rows may be waiting; poll again immediately.
			select {
			case <-ctx.Done():
				return nil
			default:
				continue
			}
		}
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}
	}
}

// shipBatch sends one batch and reconciles the committed offset. It reports
// whether any rows were shipped.
func (s *Streamer) shipBatch(ctx context.Context) (bool, error) {
	rows, err := s.buf.Fetch(s.stream, s.committed, s.cfg.BatchSize)
	if err != nil {
		return false, err
	}
	if len(rows) == 0 {
		return false, nil
	}

	var payload bytes.Buffer
	for i, row := range rows {
		if i > 0 {
			payload.WriteByte('\n')
		}
		payload.Write(row.Payload)
	}
	lastSeq := rows[len(rows)-1].Seq

	if err := s.channel.AppendRows(ctx, payload.Bytes(), strconv.FormatUint(lastSeq, 10)); err != nil {
		return false, err
	}
	metrics.BatchesShipped.WithLabelValues(string(s.stream)).Inc()
	metrics.RowsShipped.WithLabelValues(string(s.stream)).Add(float64(len(rows)))
	s.log.Debug("shipped batch",
		zap.Int("rows", len(rows)),
		zap.Uint64("offset_token", lastSeq))

	if err := s.reconcile(ctx); err != nil {
		return true, err
	}
	return true, nil
}

// reconcile asks the service for its committed token and deletes buffered
// rows up to it. The committed token can trail the last append; undeleted
// rows are simply resent and deduplicated later.
func (s *Streamer) reconcile(ctx context.Context) error {
	if s.cfg.CommitPollInterval > 0 {
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(s.cfg.CommitPollInterval):
		}
	}

	token, err := s.channel.LatestCommittedOffsetToken(ctx)
	if err != nil {
		return err
	}
	committed, err := parseOffsetToken(token)
	if err != nil {
		return err
	}
	if committed <= s.committed {
		return nil
	}

	if err := s.buf.DeleteThrough(s.stream, committed); err != nil {
		return err
	}
	s.committed = committed
	metrics.CommittedOffset.WithLabelValues(string(s.stream)).Set(float64(committed))

	depth, err := s.buf.Depth(s.stream)
	if err == nil {
		metrics.BufferDepth.WithLabelValues(string(s.stream)).Set(float64(depth))
	}
	s.log.Debug("committed offset advanced", zap.Uint64("committed_offset", committed))
	return nil
}

// parseOffsetToken decodes a decimal offset token; empty means zero.
func parseOffsetToken(token string) (uint64, error) {
	if token == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(token, 10, 64)
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeData, "malformed offset token").
			WithDetail("token", token)
	}
	return n, nil
}

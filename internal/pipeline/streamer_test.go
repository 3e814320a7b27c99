package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alpinedata/chairlift/pkg/buffer"
	"github.com/alpinedata/chairlift/pkg/config"
)

type appendCall struct {
	payload     string
	offsetToken string
}

// fakeChannel stands in for an ingest channel. With commitOnAppend set it
// behaves like a healthy service that commits every batch; otherwise the
// committed token only moves when the test moves it.
type fakeChannel struct {
	opened         string
	committed      string
	commitOnAppend bool
	appendErr      error

	appends []appendCall
}

func (f *fakeChannel) AppendRows(_ context.Context, rows []byte, offsetToken string) error {
	if f.appendErr != nil {
		return f.appendErr
	}
	f.appends = append(f.appends, appendCall{payload: string(rows), offsetToken: offsetToken})
	if f.commitOnAppend {
		f.committed = offsetToken
	}
	return nil
}

func (f *fakeChannel) LatestCommittedOffsetToken(context.Context) (string, error) {
	return f.committed, nil
}

func (f *fakeChannel) OpenedOffsetToken() string { return f.opened }

func testPipelineConfig() config.PipelineConfig {
	return config.PipelineConfig{
		BatchSize:          3,
		PollInterval:       time.Millisecond,
		CommitPollInterval: 0,
		MaxBackoff:         5 * time.Millisecond,
	}
}

func newTestBuffer(t *testing.T) *buffer.Buffer {
	t.Helper()
	buf, err := buffer.Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = buf.Close() })
	return buf
}

func appendRows(t *testing.T, buf *buffer.Buffer, stream buffer.Stream, n int) {
	t.Helper()
	for i := 1; i <= n; i++ {
		_, err := buf.Append(stream, []byte(fmt.Sprintf(`{"TXID":"TX-%d"}`, i)))
		require.NoError(t, err)
	}
}

func TestShipBatchJoinsRowsAsNDJSON(t *testing.T) {
	buf := newTestBuffer(t)
	appendRows(t, buf, buffer.StreamLiftRides, 2)
	ch := &fakeChannel{commitOnAppend: true}

	s, err := NewStreamer(buffer.StreamLiftRides, buf, ch, testPipelineConfig())
	require.NoError(t, err)

	shipped, err := s.shipBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, shipped)

	require.Len(t, ch.appends, 1)
	assert.Equal(t, "{\"TXID\":\"TX-1\"}\n{\"TXID\":\"TX-2\"}", ch.appends[0].payload)
	assert.Equal(t, "2", ch.appends[0].offsetToken)
}

func TestShipBatchHonorsBatchSize(t *testing.T) {
	buf := newTestBuffer(t)
	appendRows(t, buf, buffer.StreamResortTickets, 5)
	ch := &fakeChannel{commitOnAppend: true}

	s, err := NewStreamer(buffer.StreamResortTickets, buf, ch, testPipelineConfig())
	require.NoError(t, err)

	shipped, err := s.shipBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, shipped)
	assert.Equal(t, "3", ch.appends[0].offsetToken)

	shipped, err = s.shipBatch(context.Background())
	require.NoError(t, err)
	assert.True(t, shipped)
	assert.Equal(t, "5", ch.appends[1].offsetToken)

	// Fully drained.
	shipped, err = s.shipBatch(context.Background())
	require.NoError(t, err)
	assert.False(t, shipped)
}

func TestCommitAdvanceDeletesBufferedRows(t *testing.T) {
	buf := newTestBuffer(t)
	appendRows(t, buf, buffer.StreamLiftRides, 3)
	ch := &fakeChannel{commitOnAppend: true}

	s, err := NewStreamer(buffer.StreamLiftRides, buf, ch, testPipelineConfig())
	require.NoError(t, err)

	_, err = s.shipBatch(context.Background())
	require.NoError(t, err)

	depth, err := buf.Depth(buffer.StreamLiftRides)
	require.NoError(t, err)
	assert.Zero(t, depth)
	assert.Equal(t, uint64(3), s.committed)
}

func TestUncommittedRowsAreResent(t *testing.T) {
	buf := newTestBuffer(t)
	appendRows(t, buf, buffer.StreamLiftRides, 2)
	// The service never confirms the commit.
	ch := &fakeChannel{commitOnAppend: false}

	s, err := NewStreamer(buffer.StreamLiftRides, buf, ch, testPipelineConfig())
	require.NoError(t, err)

	_, err = s.shipBatch(context.Background())
	require.NoError(t, err)
	_, err = s.shipBatch(context.Background())
	require.NoError(t, err)

	// Both attempts carry the same rows and the same offset token, which
	// is what lets the service deduplicate the replay.
	require.Len(t, ch.appends, 2)
	assert.Equal(t, ch.appends[0], ch.appends[1])

	depth, err := buf.Depth(buffer.StreamLiftRides)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)
}

func TestResumeFromOpenedOffsetToken(t *testing.T) {
	buf := newTestBuffer(t)
	appendRows(t, buf, buffer.StreamSeasonPasses, 5)
	// The service already committed through 3 in a previous run.
	ch := &fakeChannel{opened: "3", committed: "3", commitOnAppend: true}

	s, err := NewStreamer(buffer.StreamSeasonPasses, buf, ch, testPipelineConfig())
	require.NoError(t, err)
	assert.Equal(t, uint64(3), s.committed)

	// Rows 1-3 were deleted at construction.
	depth, err := buf.Depth(buffer.StreamSeasonPasses)
	require.NoError(t, err)
	assert.Equal(t, 2, depth)

	_, err = s.shipBatch(context.Background())
	require.NoError(t, err)
	require.Len(t, ch.appends, 1)
	assert.Equal(t, "{\"TXID\":\"TX-4\"}\n{\"TXID\":\"TX-5\"}", ch.appends[0].payload)
	assert.Equal(t, "5", ch.appends[0].offsetToken)
}

func TestMalformedOffsetTokenRejected(t *testing.T) {
	buf := newTestBuffer(t)
	ch := &fakeChannel{opened: "not-a-number"}

	_, err := NewStreamer(buffer.StreamLiftRides, buf, ch, testPipelineConfig())
	require.Error(t, err)
}

func TestRunDrainsBufferAndStopsOnCancel(t *testing.T) {
	buf := newTestBuffer(t)
	appendRows(t, buf, buffer.StreamLiftRides, 7)
	ch := &fakeChannel{commitOnAppend: true}

	s, err := NewStreamer(buffer.StreamLiftRides, buf, ch, testPipelineConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	require.NoError(t, s.Run(ctx))

	// 7 rows at batch size 3 take three appends.
	assert.Len(t, ch.appends, 3)
	depth, err := buf.Depth(buffer.StreamLiftRides)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestChannelNameAndPipeMapping(t *testing.T) {
	assert.Equal(t, "chairlift-lift_ride", channelName("chairlift", buffer.StreamLiftRides))

	cfg := config.Default().Snowflake
	assert.Equal(t, "LIFT_RIDE_PIPE", pipeFor(cfg, buffer.StreamLiftRides))
	assert.Equal(t, "RESORT_TICKET_PIPE", pipeFor(cfg, buffer.StreamResortTickets))
	assert.Equal(t, "SEASON_PASS_PIPE", pipeFor(cfg, buffer.StreamSeasonPasses))
}

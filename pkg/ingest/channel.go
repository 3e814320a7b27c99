package ingest

import (
	"context"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alpinedata/chairlift/pkg/errors"
	"github.com/alpinedata/chairlift/pkg/metrics"
)

// Channel is an open ingest channel on one pipe. Appends are ordered through
// a continuation token the service rotates on every call, so a Channel must
// not be shared across goroutines.
type Channel struct {
	client *Client
	pipe   string
	name   string

	continuationToken string
	lastCommitted     string
}

type openChannelResponse struct {
	NextContinuationToken string        `json:"next_continuation_token"`
	ChannelStatus         channelStatus `json:"channel_status"`
}

type channelStatus struct {
	LastCommittedOffsetToken string `json:"last_committed_offset_token"`
	RowsInserted             int64  `json:"rows_inserted"`
	RowsErrorCount           int64  `json:"rows_error_count"`
}

type appendRowsResponse struct {
	NextContinuationToken string `json:"next_continuation_token"`
}

type bulkChannelStatusRequest struct {
	ChannelNames []string `json:"channel_names"`
}

type bulkChannelStatusResponse struct {
	ChannelStatuses map[string]channelStatus `json:"channel_statuses"`
}

// OpenChannel opens (or reopens) the named channel on the pipe. Reopening
// an existing channel invalidates any previous handle and returns the last
// committed offset token, which is where the caller resumes from.
func (c *Client) OpenChannel(ctx context.Context, pipe, name string) (*Channel, error) {
	start := time.Now()
	respBody, err := c.do(ctx, http.MethodPut, c.pipeURL(pipe, "/channels/"+url.PathEscape(name)), []byte("{}"))
	if err != nil {
		return nil, err
	}
	metrics.ObserveIngest("open_channel", start)

	var resp openChannelResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to decode open channel response").
			WithDetail("pipe", pipe).
			WithDetail("channel", name)
	}
	if resp.NextContinuationToken == "" {
		return nil, errors.New(errors.ErrorTypeData, "open channel response missing continuation token").
			WithDetail("pipe", pipe).
			WithDetail("channel", name)
	}

	c.log.Info("opened ingest channel",
		zap.String("pipe", pipe),
		zap.String("channel", name),
		zap.String("last_committed_offset_token", resp.ChannelStatus.LastCommittedOffsetToken))

	return &Channel{
		client:            c,
		pipe:              pipe,
		name:              name,
		continuationToken: resp.NextContinuationToken,
		lastCommitted:     resp.ChannelStatus.LastCommittedOffsetToken,
	}, nil
}

// Name returns the channel name.
func (ch *Channel) Name() string { return ch.name }

// OpenedOffsetToken returns the last committed offset token as reported
// when the channel was opened. Empty means the channel has never committed.
func (ch *Channel) OpenedOffsetToken() string { return ch.lastCommitted }

// AppendRows appends an NDJSON payload under the given offset token. The
// service persists the token atomically with the rows; replaying a batch
// whose token is at or below the committed one is a no-op on the service
// side, which is what makes crash-redelivery safe.
func (ch *Channel) AppendRows(ctx context.Context, rows []byte, offsetToken string) error {
	query := url.Values{
		"continuationToken": {ch.continuationToken},
		"offsetToken":       {offsetToken},
		"requestId":         {uuid.NewString()},
	}

	start := time.Now()
	respBody, err := ch.client.do(ctx, http.MethodPost, ch.client.dataURL(ch.pipe, ch.name, query), rows)
	if err != nil {
		return err
	}
	metrics.ObserveIngest("append_rows", start)

	var resp appendRowsResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return errors.Wrap(err, errors.ErrorTypeData, "failed to decode append response").
			WithDetail("pipe", ch.pipe).
			WithDetail("channel", ch.name)
	}
	if resp.NextContinuationToken != "" {
		ch.continuationToken = resp.NextContinuationToken
	}
	return nil
}

// LatestCommittedOffsetToken asks the service which offset token it has
// durably committed for this channel. Empty means nothing committed yet.
func (ch *Channel) LatestCommittedOffsetToken(ctx context.Context) (string, error) {
	body, err := json.Marshal(bulkChannelStatusRequest{ChannelNames: []string{ch.name}})
	if err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeInternal, "failed to encode status request")
	}

	start := time.Now()
	respBody, err := ch.client.do(ctx, http.MethodPost, ch.client.pipeURL(ch.pipe, ":bulk-channel-status"), body)
	if err != nil {
		return "", err
	}
	metrics.ObserveIngest("channel_status", start)

	var resp bulkChannelStatusResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return "", errors.Wrap(err, errors.ErrorTypeData, "failed to decode status response").
			WithDetail("pipe", ch.pipe).
			WithDetail("channel", ch.name)
	}
	status, ok := resp.ChannelStatuses[ch.name]
	if !ok {
		return "", errors.New(errors.ErrorTypeData, "status response missing channel").
			WithDetail("pipe", ch.pipe).
			WithDetail("channel", ch.name)
	}
	return status.LastCommittedOffsetToken, nil
}

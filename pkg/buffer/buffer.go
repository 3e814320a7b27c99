// Package buffer implements the durable local event buffer between the
// generator and the streamer loops. Rows are persisted through pebble's WAL
// before Append returns, carry a strictly increasing per-stream sequence,
// and are deleted only once the ingest service confirms the corresponding
// offset token as committed.
package buffer

import (
	"encoding/binary"
	"sync"

	"github.com/cockroachdb/pebble"

	"github.com/alpinedata/chairlift/pkg/errors"
)

// Stream identifies a logical event stream. Stream names double as the
// warehouse landing table names.
type Stream string

const (
	StreamLiftRides     Stream = "LIFT_RIDE"
	StreamResortTickets Stream = "RESORT_TICKET"
	StreamSeasonPasses  Stream = "SEASON_PASS"
)

// Streams lists every stream the buffer manages.
var Streams = []Stream{StreamLiftRides, StreamResortTickets, StreamSeasonPasses}

// Row is a buffered record with its assigned sequence number.
type Row struct {
	Seq     uint64
	Payload []byte
}

// Buffer is a pebble-backed durable buffer. Keys are
// <stream> 0x00 <8-byte big-endian seq>, so rows within a stream sort by
// sequence and per-stream ranges never overlap.
type Buffer struct {
	db *pebble.DB

	mu      sync.Mutex
	lastSeq map[Stream]uint64
}

// Open opens (or creates) the buffer at dir and recovers the last assigned
// sequence of every stream from the keyspace.
func Open(dir string) (*Buffer, error) {
	opts := &pebble.Options{
		MemTableSize:          64 << 20,
		L0CompactionThreshold: 4,
		// WAL stays on: Append durability is the whole point of the buffer.
		DisableWAL: false,
	}
	db, err := pebble.Open(dir, opts)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open buffer").
			WithDetail("dir", dir)
	}

	b := &Buffer{
		db:      db,
		lastSeq: make(map[Stream]uint64, len(Streams)),
	}
	for _, stream := range Streams {
		seq, err := b.recoverLastSeq(stream)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		b.lastSeq[stream] = seq
	}
	return b, nil
}

// Close closes the underlying store.
func (b *Buffer) Close() error {
	return b.db.Close()
}

// Append persists payload under the next sequence of the stream. The write
// is synced through the WAL before Append returns, so an acknowledged row
// survives a crash.
func (b *Buffer) Append(stream Stream, payload []byte) (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	seq := b.lastSeq[stream] + 1

	// The row and the sequence high-water mark commit atomically, so a
	// sequence is never reused even after DeleteThrough empties the stream.
	batch := b.db.NewBatch()
	defer batch.Close()
	var seqBuf [8]byte
	binary.BigEndian.PutUint64(seqBuf[:], seq)
	if err := batch.Set(rowKey(stream, seq), payload, nil); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stage row").
			WithDetail("stream", string(stream))
	}
	if err := batch.Set(metaKey(stream), seqBuf[:], nil); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to stage sequence").
			WithDetail("stream", string(stream))
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to append row").
			WithDetail("stream", string(stream)).
			WithDetail("seq", seq)
	}
	b.lastSeq[stream] = seq
	return seq, nil
}

// Fetch returns up to limit rows of the stream with seq > afterSeq, in
// ascending sequence order. An empty stream returns nil.
func (b *Buffer) Fetch(stream Stream, afterSeq uint64, limit int) ([]Row, error) {
	it, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: rowKey(stream, afterSeq+1),
		UpperBound: streamEnd(stream),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open iterator").
			WithDetail("stream", string(stream))
	}
	defer it.Close()

	var rows []Row
	for it.First(); it.Valid() && len(rows) < limit; it.Next() {
		seq := seqFromKey(it.Key())
		payload := append([]byte(nil), it.Value()...)
		rows = append(rows, Row{Seq: seq, Payload: payload})
	}
	if err := it.Error(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeStorage, "iterator failed").
			WithDetail("stream", string(stream))
	}
	return rows, nil
}

// DeleteThrough removes every row of the stream with seq <= seq. Called by
// the streamer once the service reports the offset token committed.
func (b *Buffer) DeleteThrough(stream Stream, seq uint64) error {
	err := b.db.DeleteRange(rowKey(stream, 0), rowKey(stream, seq+1), pebble.Sync)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeStorage, "failed to delete rows").
			WithDetail("stream", string(stream)).
			WithDetail("through_seq", seq)
	}
	return nil
}

// Depth counts the rows currently buffered for the stream.
func (b *Buffer) Depth(stream Stream) (int, error) {
	it, err := b.db.NewIter(&pebble.IterOptions{
		LowerBound: rowKey(stream, 0),
		UpperBound: streamEnd(stream),
	})
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to open iterator").
			WithDetail("stream", string(stream))
	}
	defer it.Close()

	n := 0
	for it.First(); it.Valid(); it.Next() {
		n++
	}
	return n, it.Error()
}

// LastSeq returns the last sequence assigned to the stream, 0 when none.
func (b *Buffer) LastSeq(stream Stream) uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastSeq[stream]
}

// recoverLastSeq reads the stream's persisted sequence high-water mark.
func (b *Buffer) recoverLastSeq(stream Stream) (uint64, error) {
	v, closer, err := b.db.Get(metaKey(stream))
	if err == pebble.ErrNotFound {
		return 0, nil
	}
	if err != nil {
		return 0, errors.Wrap(err, errors.ErrorTypeStorage, "failed to read sequence").
			WithDetail("stream", string(stream))
	}
	defer closer.Close()
	if len(v) != 8 {
		return 0, errors.New(errors.ErrorTypeStorage, "corrupt sequence value").
			WithDetail("stream", string(stream))
	}
	return binary.BigEndian.Uint64(v), nil
}

// metaKey holds the last assigned sequence of a stream. The "!" prefix
// sorts outside every stream's row range.
func metaKey(stream Stream) []byte {
	return append([]byte("!seq\x00"), stream...)
}

// rowKey encodes <stream> 0x00 <seq be64>.
func rowKey(stream Stream, seq uint64) []byte {
	key := make([]byte, 0, len(stream)+9)
	key = append(key, stream...)
	key = append(key, 0)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], seq)
	return append(key, buf[:]...)
}

// streamEnd is the exclusive upper bound of a stream's key range.
func streamEnd(stream Stream) []byte {
	key := make([]byte, 0, len(stream)+1)
	key = append(key, stream...)
	return append(key, 1)
}

// seqFromKey extracts the sequence from a row key.
func seqFromKey(key []byte) uint64 {
	return binary.BigEndian.Uint64(key[len(key)-8:])
}

// Package chairlift generates synthetic ski resort event data and streams
// it into Snowflake through Snowpipe Streaming.
//
// A world-clock simulation purchases resort tickets and season passes,
// walks the active rider population through lift rides during resort
// operating hours, and appends every record to a durable on-disk buffer.
// One streamer per event stream drains the buffer, batches rows into
// NDJSON appends carrying the row sequence as the offset token, and
// deletes buffered rows once the ingest service reports the token
// committed. Redelivered batches reuse the same token, so the service
// deduplicates replays and a crash at any point never loses or
// double-lands a row.
//
// # Architecture
//
// Three event streams flow end to end:
//
//	LIFT_RIDE      - RFID gate scans at lifts
//	RESORT_TICKET  - multi-day ticket purchases
//	SEASON_PASS    - season-long pass purchases
//
// The simulation speed is configurable: TURTLE (1 day == 12 min),
// LLAMA (1 day == 3 min), or CHEETAH (1 day == 90 sec). The random
// source seeds from the UTC calendar date, so runs started the same day
// generate the same population.
//
// # Key Packages
//
//	pkg/models         - event records and rider behavior simulation
//	pkg/buffer         - pebble-backed durable buffer with per-stream sequences
//	pkg/ingest         - Snowpipe Streaming REST client with key-pair JWT auth
//	pkg/warehouse      - landing table, pipe, and dynamic table provisioning
//	internal/generator - the world-clock simulation loop
//	internal/pipeline  - streamers and the pipeline supervisor
//
// # Quick Start
//
// Provision the warehouse objects, then run the full pipeline:
//
//	chairlift setup --config config.yaml
//	chairlift run --config config.yaml
//
// The generator and the streamers can also run as separate processes
// sharing the buffer directory:
//
//	chairlift generate --config config.yaml
//	chairlift stream --config config.yaml
package chairlift

package extract

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/mkale/resttap/stream"
)

// Action is the filter's verdict on a single record.
type Action int

const (
	// Keep yields the record downstream.
	Keep Action = iota
	// Skip drops the record and keeps paginating.
	Skip
	// StopStream terminates the whole extraction: the upstream sort order is
	// ascending by replication key, so the first record past the end bound
	// guarantees everything after it is past the bound too.
	StopStream
)

// Filter decides, per record, whether it lies inside the extraction window.
type Filter struct {
	streamName     string
	replicationKey string
	end            *time.Time
}

func NewFilter(d stream.Descriptor, w Window) *Filter {
	return &Filter{
		streamName:     d.Name,
		replicationKey: d.ReplicationKey,
		end:            w.End,
	}
}

// Accept returns the verdict plus the record's parsed replication timestamp
// (zero when the record has none). An unparseable timestamp is a schema
// drift: it fails the stream invocation rather than being swallowed.
func (f *Filter) Accept(rec stream.Record) (Action, time.Time, error) {
	if rec.Empty() {
		log.Error().Str("stream", f.streamName).Msg("received empty record")
		return Skip, time.Time{}, nil
	}

	raw, ok, err := rec.ReplicationValue(f.replicationKey)
	if err != nil {
		return Keep, time.Time{}, fmt.Errorf("stream %s: %w", f.streamName, err)
	}
	if !ok {
		// Non-incremental streams and records missing the field pass through.
		return Keep, time.Time{}, nil
	}

	ts, err := stream.ParseTimestamp(raw)
	if err != nil {
		return Keep, time.Time{}, fmt.Errorf("stream %s: replication key %q: %w", f.streamName, f.replicationKey, err)
	}

	if f.end != nil && ts.After(*f.end) {
		log.Info().
			Str("stream", f.streamName).
			Time("record_date", ts).
			Time("end_date", *f.end).
			Msg("stopping data fetch, record date exceeds end date")
		return StopStream, ts, nil
	}

	return Keep, ts, nil
}

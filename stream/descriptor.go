package stream

import (
	"fmt"
	"strings"
)

// PaginationStrategy selects the envelope convention a stream's endpoint
// uses to advertise the next page.
type PaginationStrategy string

const (
	// StrategyCursor reads meta.after_cursor and replays it as page[after].
	StrategyCursor PaginationStrategy = "cursor"
	// StrategyIncrementalCursor reads after_url and end_of_stream from
	// incremental export endpoints (cursor.json).
	StrategyIncrementalCursor PaginationStrategy = "incremental-cursor"
	// StrategyIncrementalTime reads next_page and end_of_stream from
	// time-based incremental export endpoints.
	StrategyIncrementalTime PaginationStrategy = "incremental-time"
	// StrategyLink reads links.next and replays its query string.
	StrategyLink PaginationStrategy = "link"
)

func (s PaginationStrategy) Valid() bool {
	switch s {
	case StrategyCursor, StrategyIncrementalCursor, StrategyIncrementalTime, StrategyLink:
		return true
	}
	return false
}

// Incremental strategies carry a start_time parameter on the first request.
func (s PaginationStrategy) Incremental() bool {
	return s == StrategyIncrementalCursor || s == StrategyIncrementalTime
}

// Descriptor is the immutable per-stream configuration. The engine never
// mutates one; a catalog hands them out fully built.
type Descriptor struct {
	Name           string             `koanf:"name" json:"name"`
	BasePath       string             `koanf:"path" json:"path"`
	PrimaryKey     []string           `koanf:"primary_key" json:"primary_key"`
	ReplicationKey string             `koanf:"replication_key" json:"replication_key"`
	Strategy       PaginationStrategy `koanf:"strategy" json:"strategy"`
	PageSize       int                `koanf:"page_size" json:"page_size"`
	RecordsPath    string             `koanf:"records_path" json:"records_path"`
	// Params are fixed query parameters sent with every request, e.g.
	// include=metric_events or exclude_deleted=false.
	Params map[string]string `koanf:"params" json:"params"`
	// Parent names the stream whose record ids are substituted into
	// BasePath placeholders, e.g. /api/v2/tickets/{ticket_id}/audits.json.
	Parent string `koanf:"parent" json:"parent"`
	// TimeFilterParams makes the first request carry start_time/end_time
	// even when the strategy itself is not incremental.
	TimeFilterParams bool `koanf:"time_filter_params" json:"time_filter_params"`
}

// Incremental reports whether the stream tracks a bookmark at all. A stream
// without a replication key always does a full extraction.
func (d Descriptor) Incremental() bool {
	return d.ReplicationKey != ""
}

func (d Descriptor) Check() error {
	if d.Name == "" {
		return fmt.Errorf("stream has no name")
	}
	if d.BasePath == "" {
		return fmt.Errorf("stream %s has no path", d.Name)
	}
	if len(d.PrimaryKey) == 0 {
		return fmt.Errorf("stream %s has no primary key", d.Name)
	}
	if !d.Strategy.Valid() {
		return fmt.Errorf("stream %s has unknown pagination strategy %q", d.Name, d.Strategy)
	}
	if d.RecordsPath == "" {
		return fmt.Errorf("stream %s has no records path", d.Name)
	}
	if d.Parent != "" && !strings.Contains(d.BasePath, "{") {
		return fmt.Errorf("stream %s has a parent but no path placeholder", d.Name)
	}
	return nil
}

// Path renders BasePath with the partition key substituted into its
// placeholder. Streams without a parent return BasePath unchanged.
func (d Descriptor) Path(partition string) string {
	if d.Parent == "" {
		return d.BasePath
	}
	open := strings.Index(d.BasePath, "{")
	closing := strings.Index(d.BasePath, "}")
	if open < 0 || closing < open {
		return d.BasePath
	}
	return d.BasePath[:open] + partition + d.BasePath[closing+1:]
}

// Validate checks that a record carries every primary key field. This is the
// schema gate the engine runs on kept records; full schema enumeration is
// left to the caller.
func (d Descriptor) Validate(rec Record) error {
	for _, pk := range d.PrimaryKey {
		v, ok := rec[pk]
		if !ok || v == nil {
			return fmt.Errorf("stream %s: record missing primary key field %q", d.Name, pk)
		}
	}
	return nil
}

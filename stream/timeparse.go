package stream

import (
	"fmt"
	"time"
)

// Layouts accepted for replication key values. The upstream API emits
// RFC3339; values without an explicit offset are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp parses an ISO-8601 timestamp. A parse failure here is a
// schema drift the operator must see, so callers treat the error as fatal
// for the stream invocation.
func ParseTimestamp(value string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		t, err := time.Parse(layout, value)
		if err != nil {
			continue
		}
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("cannot parse timestamp %q", value)
}

package sinks

import (
	"context"
	"fmt"
)

// Row is one extracted record, already marshalled, tagged with the stream it
// came from.
type Row struct {
	Stream string
	Data   []byte
}

// Sink receives the rows a run extracts. Writes happen in upstream delivery
// order from a single goroutine; sinks do not need to be safe for
// concurrent use.
type Sink interface {
	Init(args SinkConfig) error
	Connect(ctx context.Context) error
	Write(ctx context.Context, row Row) error
	Disconnect() error
	Name() string
	Info() string
}

// New creates and initializes the sink for the configured connection type.
func New(config SinkConfig) (Sink, error) {
	var s Sink
	switch config.ConnectionType {
	case "", "stdout":
		s = &StdoutSink{}
	case "file":
		s = &FileSink{}
	case "kafka":
		s = &KafkaSink{}
	case "elasticsearch":
		s = &ElasticSink{}
	default:
		return nil, fmt.Errorf("unknown sink type: %s", config.ConnectionType)
	}
	if err := s.Init(config); err != nil {
		return nil, err
	}
	return s, nil
}

package sinks

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// StdoutSink writes one message per row to standard output, each tagged with
// its stream and extraction time, so the output can be piped into a loader.
type StdoutSink struct {
	sinkName string
	out      *bufio.Writer
	enc      *json.Encoder
}

type stdoutMessage struct {
	Type          string          `json:"type"`
	Stream        string          `json:"stream"`
	Record        json.RawMessage `json:"record"`
	TimeExtracted time.Time       `json:"time_extracted"`
}

func (s *StdoutSink) Init(args SinkConfig) error {
	s.sinkName = args.Name
	return nil
}

func (s *StdoutSink) Connect(ctx context.Context) error {
	s.out = bufio.NewWriter(os.Stdout)
	s.enc = json.NewEncoder(s.out)
	return nil
}

func (s *StdoutSink) Write(ctx context.Context, row Row) error {
	return s.enc.Encode(stdoutMessage{
		Type:          "RECORD",
		Stream:        row.Stream,
		Record:        json.RawMessage(row.Data),
		TimeExtracted: time.Now().UTC(),
	})
}

func (s *StdoutSink) Disconnect() error {
	if s.out == nil {
		return nil
	}
	return s.out.Flush()
}

func (s *StdoutSink) Name() string { return s.sinkName }

func (s *StdoutSink) Info() string {
	return fmt.Sprintf("Name:%s|Type:stdout", s.sinkName)
}

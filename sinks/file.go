package sinks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// FileSink appends rows to one JSONL file per stream under a base directory.
type FileSink struct {
	sinkName string
	dir      string

	files map[string]*os.File
}

func (f *FileSink) Init(args SinkConfig) error {
	f.sinkName = args.Name

	if args.Config["dir"] == "" {
		log.Error().Msg("Missing dir in file sink config")
		return fmt.Errorf("missing dir")
	}
	f.dir = args.Config["dir"]
	f.files = make(map[string]*os.File)
	return nil
}

func (f *FileSink) Connect(ctx context.Context) error {
	log.Trace().Str("dir", f.dir).Msg("Preparing output directory")

	if err := os.MkdirAll(f.dir, 0755); err != nil {
		log.Err(err).Str("directory", f.dir).Msg("Failed to create output directory")
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	return nil
}

func (f *FileSink) Write(ctx context.Context, row Row) error {
	file, ok := f.files[row.Stream]
	if !ok {
		path := filepath.Join(f.dir, row.Stream+".jsonl")
		if _, err := os.Stat(path); err == nil {
			log.Warn().Str("file_path", path).Msg("File already exists; appending to it")
		}
		opened, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			log.Err(err).Str("file_path", path).Msg("Failed to open file")
			return fmt.Errorf("failed to open file: %w", err)
		}
		f.files[row.Stream] = opened
		file = opened
	}

	if _, err := file.Write(append(row.Data, '\n')); err != nil {
		log.Err(err).Str("stream", row.Stream).Msg("Failed to write to file")
		return err
	}
	return nil
}

func (f *FileSink) Disconnect() error {
	log.Info().Msg("Closing file sink")
	var firstErr error
	for name, file := range f.files {
		if err := file.Close(); err != nil {
			log.Err(err).Str("stream", name).Msg("Failed to close file")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	f.files = nil
	return firstErr
}

func (f *FileSink) Name() string { return f.sinkName }

func (f *FileSink) Info() string {
	return fmt.Sprintf("Name:%s|Type:file|Dir:%s", f.sinkName, f.dir)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/knadh/koanf/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/mkale/resttap/pipeline"
	"github.com/mkale/resttap/server"
)

var (
	buildString = "unknown"
	ko          = koanf.New(".")
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	// Logs go to stderr: stdout belongs to the stdout sink.
	log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()

	initFlags(ko)

	if ko.Bool("version") {
		fmt.Println(buildString)
		os.Exit(0)
	}
	log.Info().Str("build", buildString).Msg("starting resttap")

	if ko.Bool("debug") {
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	cfg, err := pipeline.ParseConfig(ko)
	if err != nil {
		log.Fatal().Err(err).Msg("error reading config")
	}

	runner, err := pipeline.NewRunner(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("error building the pipeline")
	}
	defer runner.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go server.Run(ctx, ko.String("port"), runner.Status())

	if err := runner.Run(ctx); err != nil {
		log.Error().Err(err).Msg("run finished with errors")
		os.Exit(1)
	}
	log.Info().Msg("run finished")
}

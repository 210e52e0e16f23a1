package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

const (
	appName = "trading-bot-sub000"
	version = "v0.1.0"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})

	rootCmd := &cobra.Command{
		Use:     "engine",
		Short:   appName + " core decision engine",
		Version: version,
		Long: `Bar -> signal -> belief -> decision -> execution -> learning engine
for a single futures instrument. CLI wiring is a manual/replay operator
shim around the core packages; the supported entrypoints are:

  engine replay --fixture <path>   replay a recorded tick/quote fixture
  engine live --feed-url <url>     run against a live market data feed`,
	}

	rootCmd.AddCommand(newReplayCmd())
	rootCmd.AddCommand(newLiveCmd())

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("engine exited with error")
	}
}

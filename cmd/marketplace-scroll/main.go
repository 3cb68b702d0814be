// Package main provides the entry point for marketplace-scroll.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Rorqualx/marketplace-scroll/internal/config"
	"github.com/Rorqualx/marketplace-scroll/pkg/version"
)

func main() {
	cfg := config.Load()

	// Setup logging first so validation warnings are visible
	setupLogging(cfg.LogLevel, os.Stdout)

	cfg.Validate()

	// The dashboard owns the terminal once it starts
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.LogFile).Msg("Failed to open log file")
		}
		defer f.Close()
		setupLogging(cfg.LogLevel, f)
	}

	printBanner(cfg.TUIEnabled)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := run(ctx, cfg)

	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("marketplace-scroll stopped with error")
		stop()
		os.Exit(1)
	}
	log.Info().Msg("Shutdown complete")
}

func setupLogging(level string, out io.Writer) {
	log.Logger = log.Output(zerolog.ConsoleWriter{
		Out:        out,
		TimeFormat: time.RFC3339,
		NoColor:    out != io.Writer(os.Stdout),
	})

	switch level {
	case "trace":
		zerolog.SetGlobalLevel(zerolog.TraceLevel)
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "info":
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	case "fatal":
		zerolog.SetGlobalLevel(zerolog.FatalLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}
}

func printBanner(quiet bool) {
	if !quiet {
		fmt.Println(`
  marketplace-scroll
  infinite scroll and zoom for Second Life Marketplace listings
`)
	}
	log.Info().
		Str("version", version.Full()).
		Str("go_version", version.GoVersion()).
		Msg("Starting marketplace-scroll")
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/petems/micwatch/internal/app"
	"github.com/petems/micwatch/internal/backend"
	"github.com/petems/micwatch/internal/config"
	"github.com/petems/micwatch/internal/logging"
	"github.com/petems/micwatch/internal/monitor"
	"github.com/petems/micwatch/internal/permissions"
	"github.com/petems/micwatch/internal/tray"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
)

var (
	// Version is set via ldflags at build time
	Version = "dev"
	// Commit is set via ldflags at build time
	Commit = "unknown"
)

func main() {
	flags := pflag.NewFlagSet("micwatch", pflag.ExitOnError)
	config.Flags(flags)
	list := flags.Bool("list", false, "print the current microphones as JSON and exit")
	showVersion := flags.BoolP("version", "v", false, "print version and exit")
	_ = flags.Parse(os.Args[1:])

	if *showVersion {
		fmt.Printf("micwatch %s (%s)\n", Version, Commit)
		return
	}

	// Load config from XDG/Library/AppData, env and flags
	cfg, err := config.Load(flags)
	if err != nil {
		// Use default logger if config fails to load
		log := logging.New()
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	// Initialize logger with configured level
	log := logging.NewWithLevel(cfg.LogLevel)

	// Enumeration works without approval, but macOS may hide device details
	if status := permissions.Microphone(); status != permissions.Authorized {
		log.Warn().Stringer("status", status).Msg("Microphone permission not granted")
		if hint := status.Hint(); hint != "" {
			log.Warn().Msg(hint)
		}
		if status == permissions.NotDetermined {
			permissions.RequestMicrophone()
		}
	}

	b, err := backend.Open(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to open device backend")
	}
	defer b.Close()

	mon := monitor.New(monitor.Config{Platform: b, Logger: log, QueueSize: cfg.QueueSize})
	defer mon.Close()

	if *list {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(mon.Devices()); err != nil {
			log.Error().Err(err).Msg("Failed to write device list")
		}
		return
	}

	// Setup shutdown signal handling
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("backend", b.Name).Str("mode", cfg.Mode).Msg("micwatch starting...")

	switch cfg.Mode {
	case config.ModeTray:
		runTray(ctx, stop, mon, log)
	default:
		application := app.New(app.Config{Monitor: mon, Output: os.Stdout, Logger: log})
		if err := application.Run(ctx); err != nil {
			log.Error().Err(err).Msg("Watch ended")
		}
	}

	log.Info().Msg("Shutting down...")
}

func runTray(ctx context.Context, stop context.CancelFunc, mon *monitor.Monitor, log zerolog.Logger) {
	trayUI := tray.New(tray.Config{
		Version: Version,
		Commit:  Commit,
		Logger:  log,
		OnQuit:  stop,
	})

	application := app.New(app.Config{
		Monitor:       mon,
		Logger:        log,
		StatusUpdater: trayUI,
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := application.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error().Err(err).Msg("Watch ended")
		}
		trayUI.Quit()
	}()

	// Start tray UI - MUST run on main thread
	trayUI.Run()
	stop()
	<-done
}

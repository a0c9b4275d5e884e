package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/fueltrack/internal/app"
	"github.com/ternarybob/fueltrack/internal/common"
	"github.com/ternarybob/fueltrack/internal/server"
)

var (
	configPath  = flag.String("config", "", "Configuration file path")
	serverPort  = flag.Int("port", 0, "Server port (overrides config)")
	serverHost  = flag.String("host", "", "Server host (overrides config)")
	showVersion = flag.Bool("version", false, "Print version information")

	config *common.Config
	logger arbor.ILogger
)

func main() {
	flag.Parse()

	if *showVersion {
		fmt.Printf("FuelTrack version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Initialize logger
	// 4. Print banner
	var err error

	path := *configPath
	if path == "" {
		if _, statErr := os.Stat("fueltrack.toml"); statErr == nil {
			path = "fueltrack.toml"
		}
	}

	config, err = common.LoadFromFile(path)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Str("path", path).Msg("Failed to load configuration")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, *serverPort, *serverHost)

	logger = common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Str("config_file", path).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("timezone", config.Scheduler.Timezone).
		Msg("Application configuration loaded")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	// Pipeline validation and initial schedules. Missing scripts, an
	// unreadable spreadsheet, or a bad timezone abort startup here.
	ctx := context.Background()
	if err := application.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize scheduler and pipeline")
	}

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan
	logger.Info().Msg("Interrupt signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}

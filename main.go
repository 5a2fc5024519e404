// Package main implements a stereo audio level meter that renders
// peak/peak-hold ballistics from a real-time measurement stream and serves
// a live VU display over a web interface, with silence and overload
// alerting.
//
// Usage:
//
//	levelmeter [-config path/to/config.json]
//
// If -config is not specified, the meter looks for config.json in the same
// directory as the binary.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/oszuidwest/zwfm-levelmeter/internal/alert"
	"github.com/oszuidwest/zwfm-levelmeter/internal/config"
	"github.com/oszuidwest/zwfm-levelmeter/internal/meter"
	"github.com/oszuidwest/zwfm-levelmeter/internal/util"
)

const numChannels = 2 // stereo

func main() {
	configPath := flag.String("config", "", "Path to config file (default: config.json next to binary)")
	showVersion := flag.Bool("version", false, "Print version information and exit")
	flag.Parse()

	if *showVersion {
		slog.Info("version info", "version", Version, "commit", Commit, "build_time", BuildTime)
		return
	}

	if *configPath == "" {
		execPath, err := os.Executable()
		if err != nil {
			slog.Error("failed to get executable path", "error", err)
			os.Exit(1)
		}
		*configPath = filepath.Join(filepath.Dir(execPath), "config.json")
	}

	slog.Info("using config file", "path", *configPath)

	cfg := config.New(*configPath)
	if err := cfg.Load(); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	scale, err := meter.NewScale(cfg.ScaleFloorDB(), cfg.ScaleDivisions())
	if err != nil {
		slog.Error("invalid meter scale", "error", err)
		os.Exit(1)
	}

	meterCfg := meter.Config{}
	dispatcher := meter.NewDispatcher(meter.DefaultRefreshRateHz)
	lm := meter.NewLevelMeter(dispatcher, meterCfg)

	levels, err := NewLevelPublisher(scale, meterCfg, lm)
	if err != nil {
		slog.Error("failed to create level publisher", "error", err)
		os.Exit(1)
	}

	watcher, err := alert.NewWatcher(cfg, scale, meterCfg)
	if err != nil {
		slog.Error("failed to create alert watcher", "error", err)
		os.Exit(1)
	}

	lm.PrepareToPlay(numChannels)
	levels.Subscriber().PrepareToPlay(numChannels)
	watcher.Subscriber().PrepareToPlay(numChannels)

	levels.Subscriber().SubscribeToLevelMeter(lm)
	watcher.Subscriber().SubscribeToLevelMeter(lm)

	gen := NewSignalGenerator(lm, numChannels)

	slog.Info("starting level meter", "channels", numChannels, "refresh_rate_hz", meter.DefaultRefreshRateHz)
	gen.Start()

	// Start web server.
	srv := NewServer(cfg, levels, watcher)
	httpServer := srv.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, util.ShutdownSignals()...)
	<-sigChan

	slog.Info("shutting down")

	// Shut down HTTP server.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	gen.Stop()
	lm.Close()
	dispatcher.Close()

	slog.Info("shutdown complete")
}

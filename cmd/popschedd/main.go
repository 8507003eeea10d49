// Package main is the entry point for the popschedd popup scheduler daemon.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmylchreest/popsched/internal/config"
	"github.com/jmylchreest/popsched/internal/daemon"
)

var (
	// Build-time variables
	version = "dev"
)

func main() {
	configPath := flag.String("config", "", "Path to daemon config (default: ~/.config/popsched/popschedd.toml)")
	monitorMode := flag.Bool("monitor", false, "Observe notifications sent to another daemon instead of owning org.freedesktop.Notifications")
	serverMode := flag.Bool("notifications", false, "Own org.freedesktop.Notifications and schedule incoming notifications")
	noReload := flag.Bool("no-reload", false, "Do not watch the config file for changes")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("popschedd version", version)
		os.Exit(0)
	}

	if err := run(*configPath, *monitorMode, *serverMode, !*noReload, *logLevel); err != nil {
		slog.Error("popschedd failed", "error", err)
		os.Exit(1)
	}
}

func run(configPath string, monitor, server, hotReload bool, levelOverride string) error {
	if monitor && server {
		return errors.New("-monitor and -notifications are mutually exclusive")
	}

	cfg, err := config.LoadDaemonConfig(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if monitor {
		cfg.DBus.Monitor, cfg.DBus.Notifications = true, false
	}
	if server {
		cfg.DBus.Monitor, cfg.DBus.Notifications = false, true
	}
	if levelOverride != "" {
		cfg.Log.Level = levelOverride
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	// The level is a LevelVar so hot reload can change it.
	level := new(slog.LevelVar)
	level.Set(cfg.Log.SlogLevel())
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	// A command-line level wins over reloads.
	var reloadLevel *slog.LevelVar
	if levelOverride == "" {
		reloadLevel = level
	}

	logger.Info("starting popschedd", "version", version, "config", configPath)

	d, err := daemon.New(cfg, daemon.Options{
		ConfigPath: configPath,
		Version:    version,
		Bus:        true,
		HotReload:  hotReload,
		LogLevel:   reloadLevel,
	}, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := d.Run(ctx); err != nil {
		return err
	}
	logger.Info("popschedd stopped")
	return nil
}

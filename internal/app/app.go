package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/five82/basket/internal/config"
	"github.com/five82/basket/internal/prefs"
	"github.com/five82/basket/internal/ui"
)

// Options configure the Basket application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/basket/prefs.toml
	PollEvery  int    // seconds; zero uses the config value
	Debug      bool
}

// Run boots the Basket TUI until the context is cancelled or the user quits.
func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logFile, err := openLogFile(cfg.LogPath())
	if err != nil {
		return err
	}
	defer func() { _ = logFile.Close() }()
	logger := NewLogger(logFile, opts.Debug)

	userPrefs, _ := prefs.Load(opts.PrefsPath)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc, err := Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	interval := cfg.PollInterval
	if opts.PollEvery > 0 {
		interval = secondsToDuration(opts.PollEvery)
	}

	// Resolve the session before the poller starts so the first refresh
	// already targets the right backend.
	svc.Session.Bootstrap(ctx)
	poller := svc.StartPolling(ctx, interval)

	logger.Info("basket started", "mode", cfg.Mode, "base_url", svc.Client.BaseURL(), "storage", cfg.Storage)

	err = ui.Run(ui.Options{
		Context:   ctx,
		Mode:      cfg.Mode,
		Tracker:   svc.Tracker,
		Session:   svc.Session,
		Lists:     svc.Lists,
		Overview:  svc.Overview,
		Refresher: poller,
		ThemeName: userPrefs.Theme,
		LastEmail: userPrefs.LastEmail,
		PrefsPath: opts.PrefsPath,
		Logger:    logger,

		HidePurchased: userPrefs.HidePurchased,
	})
	cancel()
	return err
}

// NewLogger returns a text logger writing to w.
func NewLogger(w io.Writer, debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func openLogFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

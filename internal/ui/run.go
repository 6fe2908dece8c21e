package ui

import (
	"context"
	"fmt"
	"log/slog"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/five82/basket/internal/busy"
	"github.com/five82/basket/internal/session"
)

// Options configure the TUI.
type Options struct {
	Context       context.Context
	Mode          string
	Tracker       BusySource
	Session       SessionManager
	Lists         ListService
	Overview      Overview
	Refresher     Refresher
	ThemeName     string
	LastEmail     string
	HidePurchased bool
	PrefsPath     string
	Logger        *slog.Logger
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	ctx := opts.Context
	if ctx == nil {
		ctx = context.Background()
	}
	opts.Context = ctx

	signals := make(chan struct{}, 1)
	notify := func() {
		select {
		case signals <- struct{}{}:
		default:
		}
	}

	var unsubs []func()
	if opts.Tracker != nil {
		unsubs = append(unsubs, opts.Tracker.Subscribe(func(busy.State) { notify() }))
	}
	if opts.Session != nil {
		unsubs = append(unsubs, opts.Session.Subscribe(func(session.Session) { notify() }))
	}
	defer func() {
		for _, unsub := range unsubs {
			unsub()
		}
	}()

	p := tea.NewProgram(New(opts, signals), tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

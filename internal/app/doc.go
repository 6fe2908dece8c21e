// Package app provides the orchestration layer for the Basket application.
//
// # Overview
//
// This package is the composition root. Build wires the busy tracker, guest
// storage, API client, session manager and list service into one Services
// value shared by the TUI and the CLI commands. Run adds logging, the
// background poller and the UI on top.
//
// # Components
//
//   - app.go: Run, NewLogger and log file setup
//   - services.go: Build, Services and the session hooks
//   - poller.go: background overview refresh with exponential backoff
//
// # Data Flow
//
//	┌──────────────┐
//	│   Run()      │
//	└──────┬───────┘
//	       ├─────> config.Load()            Read ~/.config/basket/config.toml
//	       ├─────> openLogFile()            <log_dir>/basket.log
//	       ├─────> prefs.Load()             Theme, last email, hide purchased
//	       ├─────> Build()                  Tracker, kv, guest, api, session, lists
//	       ├─────> Session.Bootstrap()      GET /me
//	       ├─────> StartPolling()           Background overview refresh
//	       └─────> ui.Run()                 TUI (blocks)
//
//	Sign-in:
//	Session.Set(authenticated) ──> goroutine: Syncer.Sync ──> POST /list/import
//	                                           └─> Lists.Invalidate, Poller.Refresh
//
//	Any session change:
//	Session.Set(...) ──> onSessionChange ──> Lists.Invalidate
//	                                     ──> Overview.Reset
//	                                     ──> Poller.Refresh (unless loading)
//
// # Object Graph
//
//	busy.Tracker ◄──────────────┬──────────────┬─────────────┐
//	                            │              │             │
//	kv.Store ──> guest.Store ───┤         api.Client    app.Poller
//	                 │          │              │             │
//	                 └──> guest.Syncer <───────┤             │
//	                            │              │             │
//	               session.Manager <───────────┘             │
//	                            │                            │
//	                  lists.Service ◄────────────────────────┘
//	                            │
//	                      state.Store ──> ui
//
// In mock mode Build also creates a mockapi.Server and hands it to the
// client as an in-process handler. Close waits for background syncs and
// releases the kv backend.
//
// # Concurrency
//
// The sign-in sync runs on a goroutine started by the session manager and
// may fire before StartPolling has installed the poller. Services keeps the
// poller in an atomic.Pointer, so a sync that finishes first simply skips
// the refresh; the poller's own first refresh picks up the imported lists.
//
// # Polling Behavior
//
// The poller refreshes the overview through lists.Service, so guests see
// their local lists and signed-in users see the server's. Each refresh:
//
//  1. Suppresses backend hard mode so background traffic never blocks input
//  2. Purges the item cache of the lister, if it has one
//  3. Fetches the overview and writes it to state.Store
//
// Failures are logged and recorded in the store; the wait doubles per
// consecutive failure up to 30 seconds:
//
//	interval = 15s
//	failures: 0 → 15s, 1 → 30s, 2+ → 30s (cap)
//
// Refresh kicks an immediate cycle without blocking; kicks that arrive while
// one is pending are coalesced. The loop exits when the context ends.
//
// # Logging
//
// The TUI owns the terminal, so Run logs to ~/.local/state/basket/basket.log
// (log_dir in config) through slog's text handler. Options.Debug lowers the
// level to debug. `basket logs` reads the file back through package
// logtail. CLI commands log to stderr at warn level instead.
//
// # Usage Example
//
//	// TUI
//	err := app.Run(ctx, app.Options{ConfigPath: "", PollEvery: 5})
//
//	// CLI command
//	svc, err := app.Build(ctx, cfg, logger)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//	svc.Session.Bootstrap(ctx)
//	lists, err := svc.Lists.Lists(ctx)
//
// # Testing
//
// services_test.go builds the full graph in mock mode with memory storage
// and drives sign-in, sync and logout end to end. poller_test.go covers the
// backoff table and the refresh loop against scripted listers.
package app

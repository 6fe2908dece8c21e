// Package config loads Basket's TOML configuration.
//
// # Overview
//
// Config decides where Basket talks to (an in-process mock API or a live
// server), where guest lists are kept on disk, where the TUI log goes and
// how the busy indicator and poller are timed. It is read once at startup
// by app.Run and by every CLI command; nothing reloads it while running.
//
// # Configuration Discovery
//
// The Load function follows this resolution order:
//
//  1. If a path is explicitly provided, use it
//  2. Otherwise, use ~/.config/basket/config.toml (default)
//  3. If the config file doesn't exist, fall back to defaults
//  4. If the file exists but fields are missing or empty, use defaults
//  5. BASKET_MODE and BASKET_BASE_URL override whatever was loaded
//  6. The result is validated
//
// # Default Values
//
//   - mode: mock (serve the API in-process)
//   - base_url: http://127.0.0.1:8080/api
//   - storage: file, at ~/.local/share/basket/guest.toml
//     (guest.db when storage = "sqlite")
//   - log_dir: ~/.local/state/basket
//   - busy_delay_ms: 200
//   - poll_seconds: 15
//   - request_timeout_seconds: 10
//
// Zero or negative durations in the file are ignored and the default kept.
//
// # TOML Format
//
//	mode = "live"
//	base_url = "https://shop.example.com/api"
//	storage = "sqlite"
//	storage_path = "~/basket/guest.db"
//	log_dir = "~/basket/logs"
//	busy_delay_ms = 150
//	poll_seconds = 30
//	request_timeout_seconds = 5
//
// Mode and storage are case-insensitive. Tilde expansion is performed for
// the config path, storage_path and log_dir.
//
// # Modes
//
//	mode = "mock"   api.Client dispatches to mockapi.Server in-process;
//	                no network, seeded demo account, state lost on exit
//	mode = "live"   api.Client sends real HTTP requests to base_url
//
// `basket serve` runs the same mock server over HTTP so a second process
// can use mode = "live" against it.
//
// # Storage Backends
//
//	storage = "file"    kv.FileStore, a TOML file of key/value pairs
//	storage = "sqlite"  kv.SQLStore, a kv_entries table through bun
//	storage = "memory"  kv.MemStore, nothing survives the process
//
// Only guest lists are stored here. Signed-in data lives on the server.
//
// # Environment Overrides
//
//	BASKET_MODE=live BASKET_BASE_URL=http://127.0.0.1:8080/api basket
//
// Overrides apply after the file and before validation, so an invalid
// value in the environment is reported the same way as one in the file.
//
// # Related Files
//
//	~/.config/basket/config.toml    this package, read-only
//	~/.config/basket/prefs.toml     package prefs, written by the TUI
//	~/.local/share/basket/guest.*   package kv, guest lists
//	~/.local/state/basket/basket.log  TUI log, read by `basket logs`
//
// # Usage Example
//
//	cfg, err := config.Load("")        // default path
//	if err != nil {
//		return fmt.Errorf("load config: %w", err)
//	}
//	logFile := cfg.LogPath()            // <log_dir>/basket.log
//
// # Error Handling
//
// Load returns errors for:
//   - path expansion failures
//   - read errors other than os.ErrNotExist
//   - TOML parse errors
//   - unknown mode or storage values
//
// A missing config file is not an error. Preferences the TUI writes back
// (theme, last email) live in package prefs, not here, so this file is
// never rewritten by Basket.
package config

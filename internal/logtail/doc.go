// Package logtail reads the tail of Basket's log file and decodes the
// slog text records in it.
//
// # Overview
//
// The TUI owns the terminal, so app.Run sends its logs to a file
// (config.LogPath, normally ~/.local/state/basket/basket.log). The
// `basket logs` command uses this package to show the end of that file,
// filtered by level and colored by the CLI.
//
// # Reading
//
// Read returns at most maxLines from the end of the file:
//
//	lines, err := logtail.Read(cfg.LogPath(), 200)
//
// It scans the file once and keeps the last maxLines in a ring buffer, so
// memory stays bounded however large the log has grown:
//
//	ring (maxLines = 3), file has lines a b c d e
//
//	after a: [a _ _]  idx=1
//	after b: [a b _]  idx=2
//	after c: [a b c]  idx=0
//	after d: [d b c]  idx=1
//	after e: [d e c]  idx=2
//	result:  ring[idx], ring[idx+1], ... = c d e
//
// A non-positive maxLines returns every line. A missing file returns
// (nil, nil): a fresh install has not logged anything yet. Lines up to
// 1 MiB are accepted.
//
// # Parsing
//
// Parse understands the key=value format written by slog.TextHandler:
//
//	time=2026-10-17T09:30:00.000Z level=WARN msg="list refresh failed" error="dial tcp: refused" failures=2
//
// becomes
//
//	Entry{
//		Time:    2026-10-17 09:30:00 UTC,
//		Level:   slog.LevelWarn,
//		Message: "list refresh failed",
//		Attrs:   []Attr{{"error", "dial tcp: refused"}, {"failures", "2"}},
//		Raw:     <the original line>,
//	}
//
// Quoted values are unquoted with strconv, so escaped quotes and newlines in
// messages survive. A line without a level= pair, or with a value that
// cannot be split, is reported as not ok. The original text is always kept
// in Raw.
//
// # Filtering
//
//	for _, e := range logtail.Filter(lines, slog.LevelWarn) {
//		fmt.Println(e.Level, e.Message)
//	}
//
// Filter keeps records at or above min. Lines that do not parse (a panic
// trace, output from an older version) are kept only when min is debug or
// lower, and are reported as debug entries whose Message is the whole line.
// Blank lines are dropped.
//
// # Levels
//
// Levels are decoded with slog.Level.UnmarshalText, so offsets written by
// the handler round-trip:
//
//	level=DEBUG    → slog.LevelDebug  (-4)
//	level=INFO     → slog.LevelInfo   (0)
//	level=WARN     → slog.LevelWarn   (4)
//	level=ERROR    → slog.LevelError  (8)
//	level=ERROR+2  → slog.LevelError + 2
//
// # CLI Usage
//
// `basket logs` is a thin layer over Read and Filter:
//
//	basket logs                 last 200 lines, info and above
//	basket logs -n 0            the whole file
//	basket logs --level warn    warnings and errors only
//	basket logs --level debug   everything, including unparseable lines
//
// The command prints the time, a colored level badge, the message and the
// attributes as key=value pairs. The colors live in the CLI; this package
// only classifies.
//
// # Scope
//
// The package reads a finished file once. It does not follow the file as it
// grows, and it does not understand JSON handler output.
//
// # Error Handling
//
// Read wraps open and scan errors ("open log: ...", "read log: ...").
// Parse and Filter never fail; they classify instead.
package logtail

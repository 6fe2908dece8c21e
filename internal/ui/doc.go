// Package ui provides the terminal user interface for Basket.
//
// # Architecture Overview
//
// The UI is a Bubble Tea program. Model holds every piece of screen state
// and talks to the rest of the application only through small interfaces
// (SessionManager, ListService, Overview, BusySource, Refresher), so tests
// drive it with fakes.
//
// # Package Structure
//
//   - run.go: Options and Run, which wires tracker and session notifications
//   - model.go: Model, messages, Update and key handling
//   - actions.go: commands that call the list service and session manager
//   - view.go: rendering of header, panels, overlays and footer
//   - keys.go: key bindings and help
//   - theme.go: color themes and Lipgloss styles
//
// # Data Flow
//
// The list overview is read from state.Store on a short tick. Busy and
// session changes arrive as a coalesced signal; the model then reads the
// authoritative snapshots. All service calls run inside tea.Cmd functions,
// never inside Update.
//
// # Busy Indicator
//
// Soft busy work shows a spinner in the header. Hard busy work replaces the
// body with a centered overlay and swallows every key except ctrl+c.
package ui

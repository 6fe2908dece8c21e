// Package busy provides the process-wide "work in progress" signal for Basket.
//
// # Overview
//
// Many unrelated call sites start asynchronous work: the background list
// refresh, a blocking save, a guest-store write. The UI wants one coherent
// indicator, not one spinner per call. Tracker counts every operation in
// flight and derives a single State from those counters.
//
// # Core Types
//
// Tracker:
//   - Owns the backend, local and hard in-flight counters
//   - Owns the listener set and the debounce timer
//   - Constructed once with New and shared for the process lifetime
//
// State:
//   - Visible, Mode (soft/hard), Source (backend/local), Message
//   - Derived only; there is no setter
//
// # Usage
//
//	tracker := busy.New()
//
//	end := tracker.Begin(busy.Options{Source: busy.SourceBackend, Mode: busy.ModeHard})
//	defer end()
//
//	err := tracker.Wrap(ctx, busy.Options{Source: busy.SourceLocal}, func(ctx context.Context) error {
//		return store.Save(ctx)
//	})
//
// # Visibility Rules
//
//	Begin ──> counters++ ──┬─ overlay visible? ──> recompute, notify now
//	                       └─ no timer pending? ──> arm one timer (Delay)
//	                                                  │
//	                           timer fires, token ok, work running ──> notify visible
//
//	End ───> counters-- ──┬─ nothing running ──> cancel timer, notify hidden
//	                      └─ still running and visible ──> recompute, notify
//
// Source precedence: backend beats local when both are running.
// Mode precedence: hard beats soft whenever a hard operation is running,
// except backend operations while SetSuppressHardForBackend(true) is active.
//
// Each armed timer carries a token. Ending the last operation bumps the
// token, so a timer that fires late is ignored instead of flashing a stale
// overlay.
//
// # Guaranteed Release
//
// The function returned by Begin is idempotent. Wrap and Do release on every
// exit path, including errors, context cancellation and panics. A caller
// racing a cancellation against natural completion cannot double-decrement.
//
// # Concurrency Model
//
// Counters and state are guarded by one mutex. Listeners are invoked after
// the lock is released, on the goroutine that caused the change, so a
// listener may call back into the tracker. Under truly parallel callers two
// notifications can arrive out of order; Snapshot is always authoritative.
//
// # Testing
//
// The timer is behind the Scheduler interface. Tests inject a manual
// scheduler and fire timers explicitly instead of sleeping.
package busy

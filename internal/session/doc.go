// Package session owns the client's authentication state.
//
// A Manager starts in StatusLoading. Bootstrap asks the server who is signed
// in and settles on authenticated or unauthenticated; it never returns an
// error. Set is the only mutator and refuses to go back to loading.
//
// Every transition into StatusAuthenticated with a known actor starts the
// configured Syncer once, in its own goroutine. Logout ends the server
// session on a best-effort basis and always resets locally.
package session

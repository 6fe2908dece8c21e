// Package api provides the HTTP client for the Basket shopping-list server.
//
// # Overview
//
// Client resolves paths against one base URL, serializes JSON bodies, keeps
// the session cookie in a cookie jar and turns non-2xx responses into
// *HTTPError. Every call is reported to a busy.Tracker so the UI can show a
// single progress signal.
//
// # Architecture
//
//   - client.go: configuration, transport selection and the four verbs
//   - endpoints.go: typed wrappers for the server's routes
//   - errors.go: HTTPError and its classification helpers
//
// # Client Usage
//
//	client, err := api.NewClient(api.Config{
//		Mode:    api.ModeLive,
//		BaseURL: "http://127.0.0.1:8080/api",
//	}, api.WithTracker(tracker))
//	if err != nil {
//		return err
//	}
//
//	lists, err := client.Lists(ctx)
//	switch api.KindOf(err) {
//	case api.KindNone:
//	case api.KindUnauthorized:
//		// session expired
//	default:
//		return err
//	}
//
// In ModeMock the client serves requests from an in-process http.Handler
// supplied with WithHandler; nothing touches the network.
//
// # Busy Reporting
//
// GET and HEAD are tracked as backend/soft work. Every other method is
// backend/hard and blocks interaction while it runs.
//
// # Responses
//
// Do returns nil for 204 and for any empty 2xx body. A 2xx body that is not
// valid JSON is an error. Error bodies are retained on the HTTPError; use
// DecodeBody, Message or FieldErrors to inspect them.
package api

// Package mockapi is an in-memory implementation of the shopping-list REST
// API. The client runs against it in mock mode, the serve command exposes it
// over HTTP, and tests use it as a realistic server.
//
// Routes live under /api. Sessions are HS256 tokens in the basket_session
// cookie; requests without a valid token get 401 {"error":"Unauthorized"}.
// Create and update bodies are checked against JSON schemas and rejected
// with 400 and a [{field, code}] body. Unknown routes answer 418.
//
// A new Server holds one account, demo@example.com with password
// "password", owning a "Groceries" list.
package mockapi

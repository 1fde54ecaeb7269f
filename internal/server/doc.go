// Package server runs the short-lived local listener that receives the provider's redirect.
//
// # Router Infrastructure
//
// The [Router] interface defines HTTP routing with middleware support.
//
// [Middleware] wraps handlers in reverse order (last added executes first), following the standard Go pattern.
//
// The [BasicRouter] implementation uses [http.ServeMux] internally with method filtering.
//
// # Callback Handler
//
// [CallbackHandler] hands the redirect URL to the authorization flow exactly once. The success
// page replaces the address bar entry with the URL minus its code, so a reload cannot replay
// the exchange. Requests without a code render the outcome page (or 400 before any redirect arrived).
//
// # Callback Server
//
// [CallbackServer] binds the configured redirect address, waits for one [CallbackResult]
// (or a timeout) and shuts down.
package server

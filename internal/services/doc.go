// Package services wraps the Spotify Web API calls the profile builder needs.
//
// # Data Client
//
// [SpotifyClient] implements [DataClient]. Every request carries the caller's bearer
// credential; the client holds no token of its own and never refreshes one.
//
// Responses are decoded into wire structs and validated before they become
// models records, so a missing id or a wrong JSON type fails fast instead of
// leaking zero values into a profile.
//
// # Error Handling
//
// Every failure wraps one of the shared sentinels:
//   - [shared.ErrNotAuthenticated] : no credential supplied
//   - [shared.ErrAuthFailed] : 401/403, the credential is no longer accepted
//   - [shared.ErrTransient] : transport failure, 429 or 5xx; the caller may retry
//   - [shared.ErrAPIRequest] : any other non-2xx status
//   - [shared.ErrMalformedResponse] : body is not JSON or does not have the expected shape
//
// Status failures are [*APIError] values, so callers can use errors.As for the
// endpoint and status code. There is no retry policy here.
package services

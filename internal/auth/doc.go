// Package auth implements the Spotify Authorization Code flow with PKCE for a public client.
//
// # States
//
//	Idle -> AwaitingRedirect -> Exchanging -> Authorized | Failed
//
// [Flow.BeginLogin] persists a fresh verifier and sends the user to the provider.
// [Flow.CompleteRedirect] is safe to call with any URL: without a code parameter it does nothing.
// With one, it consumes the pending verifier and exchanges the code. Failures leave no pending
// state behind, so BeginLogin can always be retried.
//
// Logout and Reset both return the flow to Idle; Logout also clears the stored credential.
//
// A second BeginLogin before the first redirect resolves replaces the pending verifier,
// and the earlier authorization can no longer be exchanged.
package auth

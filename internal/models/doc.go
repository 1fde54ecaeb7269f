// Package models defines the value records shared by the session, data client and profile packages.
//
// Records fall into three groups:
//
//  1. Credentials: [Credential] (bearer token + absolute expiry) and [Challenge] (PKCE pair).
//  2. Catalogue records validated at the API boundary: [Artist], [Track], [AudioFeatures].
//  3. Derived models: [Profile] (one identity's listening summary, immutable once built)
//     and [MergedView] (the comparison of two profiles, recomputed on demand).
//
// Profiles are handed to renderers as read-only values; nothing in the core accepts a mutated profile back.
package models

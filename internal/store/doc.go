// Package store persists the session's durable state behind a small key/value port.
//
// # KV Port
//
// [KV] is the only shared mutable resource in the system: get, set and delete by key.
// Adapters:
//   - [MemoryKV] : process-local map, used by tests and the "memory" driver
//   - [SQLiteKV] : the kv table created by the shared migrations
//   - [RedisKV] : a prefixed keyspace on a redis server
//
// There is no expiry-driven eviction in any adapter; callers check validity themselves.
//
// # Layout
//
// [CredentialStore] owns the pending PKCE verifier slot and the access credential.
// [ProfileStore] owns one serialized profile per slot (self and partner).
// Each slot is independently clearable.
//
// Concurrent writers in separate processes are not coordinated: a second login
// started elsewhere overwrites the pending verifier of the first.
package store

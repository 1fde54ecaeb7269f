package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
)

const (
	KeyVerifier = "pkce_verifier"
	KeyToken    = "spotify_token"
	KeyExpiry   = "spotify_exp"
)

// ExpirySkew is subtracted from the server-reported lifetime when a credential is saved.
const ExpirySkew = 60 * time.Second

// CredentialStore persists the pending verifier and the access credential.
type CredentialStore struct {
	kv  KV
	now func() time.Time
}

// NewCredentialStore creates a [CredentialStore] over kv using the wall clock.
func NewCredentialStore(kv KV) *CredentialStore {
	return &CredentialStore{kv: kv, now: time.Now}
}

// WithClock replaces the clock, for tests.
func (s *CredentialStore) WithClock(now func() time.Time) *CredentialStore {
	s.now = now
	return s
}

// SavePendingVerifier stores v, replacing any verifier from an earlier attempt.
func (s *CredentialStore) SavePendingVerifier(ctx context.Context, v string) error {
	return s.kv.Set(ctx, KeyVerifier, v)
}

// HasPendingVerifier reports whether an authorization attempt is in flight.
func (s *CredentialStore) HasPendingVerifier(ctx context.Context) (bool, error) {
	_, ok, err := s.kv.Get(ctx, KeyVerifier)
	return ok, err
}

// TakePendingVerifier returns the pending verifier and removes it.
// ok is false when there is none.
func (s *CredentialStore) TakePendingVerifier(ctx context.Context) (string, bool, error) {
	v, ok, err := s.kv.Get(ctx, KeyVerifier)
	if err != nil || !ok {
		return "", false, err
	}
	if err := s.kv.Delete(ctx, KeyVerifier); err != nil {
		return "", false, err
	}
	return v, true, nil
}

// SaveCredential persists token with expiresAt = now + ttl - [ExpirySkew].
func (s *CredentialStore) SaveCredential(ctx context.Context, token string, ttl time.Duration) (*models.Credential, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: empty access token", shared.ErrInvalidInput)
	}

	cred := &models.Credential{
		AccessToken: token,
		ExpiresAt:   s.now().Add(ttl - ExpirySkew),
	}
	if err := s.kv.Set(ctx, KeyToken, token); err != nil {
		return nil, err
	}
	exp := strconv.FormatInt(cred.ExpiresAt.UnixMilli(), 10)
	if err := s.kv.Set(ctx, KeyExpiry, exp); err != nil {
		// A new token must never pair with an older expiry.
		_ = s.kv.Delete(ctx, KeyToken, KeyExpiry)
		return nil, err
	}
	return cred, nil
}

// StoredCredential returns the persisted credential regardless of expiry.
func (s *CredentialStore) StoredCredential(ctx context.Context) (*models.Credential, bool, error) {
	token, ok, err := s.kv.Get(ctx, KeyToken)
	if err != nil || !ok {
		return nil, false, err
	}
	raw, ok, err := s.kv.Get(ctx, KeyExpiry)
	if err != nil || !ok {
		return nil, false, err
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// An unreadable expiry cannot be trusted as valid.
		return nil, false, nil
	}
	return &models.Credential{AccessToken: token, ExpiresAt: time.UnixMilli(ms)}, true, nil
}

// GetValidCredential returns the credential only while now < expiresAt.
func (s *CredentialStore) GetValidCredential(ctx context.Context) (*models.Credential, bool, error) {
	cred, ok, err := s.StoredCredential(ctx)
	if err != nil || !ok {
		return nil, false, err
	}
	if !cred.ValidAt(s.now()) {
		return nil, false, nil
	}
	return cred, true, nil
}

// Clear erases token, expiry and pending verifier in one delete.
func (s *CredentialStore) Clear(ctx context.Context) error {
	return s.kv.Delete(ctx, KeyToken, KeyExpiry, KeyVerifier)
}

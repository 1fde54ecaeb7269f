package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
)

// DataClient is the read surface of the provider's data API used to build a profile.
type DataClient interface {
	// CurrentUser returns the identity owning cred.
	CurrentUser(ctx context.Context, cred models.Credential) (*models.User, error)

	// TopArtists returns up to limit artists ranked over timeRange.
	TopArtists(ctx context.Context, cred models.Credential, limit int, timeRange string) ([]models.Artist, error)

	// TopTracks returns up to limit tracks ranked over timeRange.
	TopTracks(ctx context.Context, cred models.Credential, limit int, timeRange string) ([]models.Track, error)

	// AudioFeatures returns one record per requested id, in request order.
	// Ids the provider has no features for come back as records with nil fields.
	AudioFeatures(ctx context.Context, cred models.Credential, ids []string) ([]models.AudioFeatures, error)
}

// Ranking windows accepted by the top items endpoints.
const (
	ShortTerm  = "short_term"
	MediumTerm = "medium_term"
	LongTerm   = "long_term"
)

// APIError is a non-2xx response from the data API.
type APIError struct {
	Endpoint   string
	StatusCode int
	Message    string
	RetryAfter time.Duration
	kind       error
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("%v: %s returned %d", e.kind, e.Endpoint, e.StatusCode)
	if e.Message != "" {
		msg += ": " + e.Message
	}
	return msg
}

// Unwrap returns the sentinel classifying the status.
func (e *APIError) Unwrap() error {
	return e.kind
}

// classify maps a response status to the error taxonomy.
func classify(status int) error {
	switch {
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return shared.ErrAuthFailed
	case status == http.StatusTooManyRequests, status >= 500:
		return shared.ErrTransient
	default:
		return shared.ErrAPIRequest
	}
}

// IsAuthFailure reports whether err means the credential must be discarded.
func IsAuthFailure(err error) bool {
	return errors.Is(err, shared.ErrAuthFailed)
}

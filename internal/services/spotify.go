// Spotify Web API implementation of [DataClient]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
)

const (
	spotifyBaseURL     = "https://api.spotify.com/v1"
	defaultHTTPTimeout = 15 * time.Second
	maxTopLimit        = 50
	maxFeatureIDs      = 100
)

// spotifyUser is the subset of GET /me we read.
type spotifyUser struct {
	ID          string `json:"id" validate:"required"`
	DisplayName string `json:"display_name"`
}

type spotifyArtist struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

type spotifyTrack struct {
	ID      string          `json:"id" validate:"required"`
	Name    string          `json:"name"`
	Artists []spotifyArtist `json:"artists" validate:"dive"`
}

// spotifyPage is a paging object. Only the items are read.
type spotifyPage[T any] struct {
	Items []T `json:"items" validate:"required,dive"`
	Total int `json:"total"`
}

type spotifyAudioFeatures struct {
	ID           string   `json:"id"`
	Valence      *float64 `json:"valence" validate:"omitnil,gte=0,lte=1"`
	Energy       *float64 `json:"energy" validate:"omitnil,gte=0,lte=1"`
	Danceability *float64 `json:"danceability" validate:"omitnil,gte=0,lte=1"`
}

type spotifyAudioFeaturesResponse struct {
	AudioFeatures []*spotifyAudioFeatures `json:"audio_features" validate:"required,dive"`
}

// spotifyErrorBody is the regular error object returned with non-2xx statuses.
type spotifyErrorBody struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// SpotifyClient issues authenticated GET requests against the Web API.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *log.Logger
}

// NewSpotifyClient creates a client for baseURL. Empty values fall back to the
// public API and a client with a request timeout.
func NewSpotifyClient(baseURL string, client *http.Client, logger *log.Logger) *SpotifyClient {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &SpotifyClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: client,
		logger:     logger,
	}
}

// Call performs GET path with cred's bearer token and returns the raw JSON body.
func (c *SpotifyClient) Call(ctx context.Context, path string, cred models.Credential) (json.RawMessage, error) {
	if cred.AccessToken == "" {
		return nil, shared.ErrNotAuthenticated
	}

	endpoint := strings.SplitN(path, "?", 2)[0]
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+cred.AccessToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", shared.ErrTransient, endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", shared.ErrTransient, endpoint, err)
	}
	c.logger.Debug("spotify request", "endpoint", endpoint, "status", resp.StatusCode, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			RetryAfter: retryAfter(resp.Header.Get("Retry-After")),
			kind:       classify(resp.StatusCode),
		}
		var eb spotifyErrorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Message = eb.Error.Message
		}
		c.logger.Warn("spotify request failed", "endpoint", endpoint, "status", resp.StatusCode, "message", apiErr.Message)
		return nil, apiErr
	}

	if !json.Valid(body) {
		c.logger.Error("spotify returned non-JSON body", "endpoint", endpoint)
		return nil, fmt.Errorf("%w: %s returned a body that is not JSON", shared.ErrMalformedResponse, endpoint)
	}
	return json.RawMessage(body), nil
}

// decode calls path and unmarshals + validates the body into out.
func (c *SpotifyClient) decode(ctx context.Context, path string, cred models.Credential, out any) error {
	raw, err := c.Call(ctx, path, cred)
	if err != nil {
		return err
	}
	endpoint := strings.SplitN(path, "?", 2)[0]
	if err := json.Unmarshal(raw, out); err != nil {
		c.logger.Error("unexpected response shape", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: %s: %v", shared.ErrMalformedResponse, endpoint, err)
	}
	if err := shared.ValidateStruct(out); err != nil {
		c.logger.Error("unexpected response shape", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: %s: %v", shared.ErrMalformedResponse, endpoint, err)
	}
	return nil
}

// CurrentUser retrieves the current authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context, cred models.Credential) (*models.User, error) {
	var u spotifyUser
	if err := c.decode(ctx, "/me", cred, &u); err != nil {
		return nil, err
	}
	return &models.User{ID: u.ID, DisplayName: u.DisplayName}, nil
}

// TopArtists retrieves the user's top artists.
func (c *SpotifyClient) TopArtists(ctx context.Context, cred models.Credential, limit int, timeRange string) ([]models.Artist, error) {
	path, err := topPath("artists", limit, timeRange)
	if err != nil {
		return nil, err
	}

	var page spotifyPage[spotifyArtist]
	if err := c.decode(ctx, path, cred, &page); err != nil {
		return nil, err
	}

	artists := make([]models.Artist, 0, len(page.Items))
	for _, a := range page.Items {
		artists = append(artists, toArtist(a))
	}
	return artists, nil
}

// TopTracks retrieves the user's top tracks.
func (c *SpotifyClient) TopTracks(ctx context.Context, cred models.Credential, limit int, timeRange string) ([]models.Track, error) {
	path, err := topPath("tracks", limit, timeRange)
	if err != nil {
		return nil, err
	}

	var page spotifyPage[spotifyTrack]
	if err := c.decode(ctx, path, cred, &page); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(page.Items))
	for _, t := range page.Items {
		track := models.Track{ID: t.ID, Name: t.Name, Artists: make([]models.Artist, 0, len(t.Artists))}
		for _, a := range t.Artists {
			track.Artists = append(track.Artists, toArtist(a))
		}
		tracks = append(tracks, track)
	}
	return tracks, nil
}

// AudioFeatures retrieves feature records for up to 100 tracks in one request.
func (c *SpotifyClient) AudioFeatures(ctx context.Context, cred models.Credential, ids []string) ([]models.AudioFeatures, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("%w: no track IDs provided", shared.ErrInvalidArgument)
	}
	if len(ids) > maxFeatureIDs {
		return nil, fmt.Errorf("%w: maximum %d track IDs allowed", shared.ErrInvalidArgument, maxFeatureIDs)
	}

	path := "/audio-features?ids=" + url.QueryEscape(strings.Join(ids, ","))

	var resp spotifyAudioFeaturesResponse
	if err := c.decode(ctx, path, cred, &resp); err != nil {
		return nil, err
	}

	features := make([]models.AudioFeatures, len(resp.AudioFeatures))
	for i, f := range resp.AudioFeatures {
		if f == nil {
			continue
		}
		features[i] = models.AudioFeatures{
			ID:           f.ID,
			Valence:      f.Valence,
			Energy:       f.Energy,
			Danceability: f.Danceability,
		}
	}
	return features, nil
}

func toArtist(a spotifyArtist) models.Artist {
	return models.Artist{ID: a.ID, Name: a.Name}
}

func topPath(kind string, limit int, timeRange string) (string, error) {
	switch timeRange {
	case ShortTerm, MediumTerm, LongTerm:
	case "":
		timeRange = MediumTerm
	default:
		return "", fmt.Errorf("%w: time range %q", shared.ErrInvalidArgument, timeRange)
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > maxTopLimit {
		limit = maxTopLimit
	}
	return fmt.Sprintf("/me/top/%s?limit=%d&time_range=%s", kind, limit, timeRange), nil
}

func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

// package models defines the data model for the listening profile service
package models

import "time"

// Challenge is a PKCE verifier and its S256 challenge.
type Challenge struct {
	Verifier  string
	Challenge string
	Method    string
}

// Credential is a bearer access token and the instant it must no longer be used.
//
// ExpiresAt already includes the store's safety margin.
type Credential struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// ValidAt reports whether the credential may be used at now.
func (c Credential) ValidAt(now time.Time) bool {
	return c.AccessToken != "" && now.Before(c.ExpiresAt)
}

// Artist is an artist reference; identity is by ID, never by name.
type Artist struct {
	ID   string `json:"id" validate:"required"`
	Name string `json:"name"`
}

// Track is a track with its credited artists in billing order.
type Track struct {
	ID      string   `json:"id" validate:"required"`
	Name    string   `json:"name"`
	Artists []Artist `json:"artists" validate:"dive"`
}

// AudioFeatures is one per-track feature record. Nil fields were absent from the response.
type AudioFeatures struct {
	ID           string
	Valence      *float64
	Energy       *float64
	Danceability *float64
}

// MoodVector is the mean valence, energy and danceability of a batch of tracks.
type MoodVector struct {
	Valence      float64 `json:"valence" validate:"gte=0,lte=1"`
	Energy       float64 `json:"energy" validate:"gte=0,lte=1"`
	Danceability float64 `json:"danceability" validate:"gte=0,lte=1"`
}

// User is the identity record of the authenticated account.
type User struct {
	ID          string
	DisplayName string
}

// Profile is one identity's aggregated listening summary.
//
// TopArtists and TopTracks are in rank order, most preferred first. Empty
// collections are valid; nil collections only appear in malformed imports.
type Profile struct {
	UserID      string     `json:"userId" validate:"required"`
	DisplayName string     `json:"displayName"`
	TopArtists  []Artist   `json:"topArtists" validate:"required,dive"`
	TopTracks   []Track    `json:"topTracks" validate:"required,dive"`
	Mood        MoodVector `json:"mood"`
}

// ArtistIDs returns artist ids in rank order.
func (p Profile) ArtistIDs() []string {
	ids := make([]string, len(p.TopArtists))
	for i, a := range p.TopArtists {
		ids[i] = a.ID
	}
	return ids
}

// TrackIDs returns track ids in rank order.
func (p Profile) TrackIDs() []string {
	ids := make([]string, len(p.TopTracks))
	for i, t := range p.TopTracks {
		ids[i] = t.ID
	}
	return ids
}

// MergedView compares two profiles. Shared id sets are sorted.
type MergedView struct {
	SharedArtistIDs  []string   `json:"sharedArtistIds"`
	SharedTrackIDs   []string   `json:"sharedTrackIds"`
	ArtistSimilarity float64    `json:"artistSimilarity"`
	TrackSimilarity  float64    `json:"trackSimilarity"`
	BlendedMood      MoodVector `json:"blendedMood"`
}

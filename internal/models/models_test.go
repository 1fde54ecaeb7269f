package models

import (
	"testing"
	"time"
)

func TestCredentialValidAt(t *testing.T) {
	now := time.Date(2026, 2, 14, 12, 0, 0, 0, time.UTC)

	tc := []struct {
		name string
		cred Credential
		want bool
	}{
		{name: "before expiry", cred: Credential{AccessToken: "T", ExpiresAt: now.Add(time.Second)}, want: true},
		{name: "at expiry", cred: Credential{AccessToken: "T", ExpiresAt: now}, want: false},
		{name: "after expiry", cred: Credential{AccessToken: "T", ExpiresAt: now.Add(-time.Second)}, want: false},
		{name: "empty token", cred: Credential{ExpiresAt: now.Add(time.Hour)}, want: false},
	}

	for _, tt := range tc {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cred.ValidAt(now); got != tt.want {
				t.Errorf("ValidAt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProfileIDs(t *testing.T) {
	p := Profile{
		TopArtists: []Artist{{ID: "a2"}, {ID: "a1"}},
		TopTracks:  []Track{{ID: "t9"}},
	}

	if got := p.ArtistIDs(); len(got) != 2 || got[0] != "a2" || got[1] != "a1" {
		t.Errorf("ArtistIDs() = %v, want rank order [a2 a1]", got)
	}
	if got := p.TrackIDs(); len(got) != 1 || got[0] != "t9" {
		t.Errorf("TrackIDs() = %v", got)
	}
}

package auth

import (
	"github.com/desertthunder/lovewrapped/internal/models"
	"golang.org/x/oauth2"
)

// MethodS256 is the only challenge method the provider accepts from us.
const MethodS256 = "S256"

// GenerateChallenge returns a verifier from 32 random bytes and its S256 challenge.
func GenerateChallenge() models.Challenge {
	verifier := oauth2.GenerateVerifier()
	return models.Challenge{
		Verifier:  verifier,
		Challenge: DeriveChallenge(verifier),
		Method:    MethodS256,
	}
}

// DeriveChallenge is base64url(sha256(verifier)) without padding.
func DeriveChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}

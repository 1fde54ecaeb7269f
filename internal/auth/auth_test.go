package auth

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
	tu "github.com/desertthunder/lovewrapped/internal/testing"
)

var verifierAlphabet = regexp.MustCompile(`^[A-Za-z0-9\-._~]{43,128}$`)

func TestPKCE(t *testing.T) {
	t.Run("GenerateChallenge", func(t *testing.T) {
		ch := GenerateChallenge()
		if !verifierAlphabet.MatchString(ch.Verifier) {
			t.Errorf("verifier %q is not a valid PKCE verifier", ch.Verifier)
		}
		if ch.Method != "S256" {
			t.Errorf("expected S256, got %s", ch.Method)
		}
		if DeriveChallenge(ch.Verifier) != ch.Challenge {
			t.Error("re-deriving the challenge should reproduce it")
		}
		if strings.Contains(ch.Challenge, "=") {
			t.Error("challenge should not be padded")
		}
	})

	t.Run("verifiers are unique", func(t *testing.T) {
		seen := make(map[string]bool)
		for range 50 {
			v := GenerateChallenge().Verifier
			if seen[v] {
				t.Fatalf("duplicate verifier %s", v)
			}
			seen[v] = true
		}
	})

	t.Run("DeriveChallenge known value", func(t *testing.T) {
		if got := DeriveChallenge("abc"); got != "ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0" {
			t.Errorf("unexpected challenge %s", got)
		}
	})
}

func TestStateString(t *testing.T) {
	tests := []struct {
		state State
		want  string
	}{
		{Idle, "idle"},
		{AwaitingRedirect, "awaiting_redirect"},
		{Exchanging, "exchanging"},
		{Authorized, "authorized"},
		{Failed, "failed"},
		{State(42), "state(42)"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("expected %s, got %s", tt.want, got)
		}
	}
}

type tokenServer struct {
	*httptest.Server
	form   url.Values
	calls  int
	status int
	body   string
}

func newTokenServer(t *testing.T, status int, body string) *tokenServer {
	t.Helper()
	ts := &tokenServer{status: status, body: body}
	ts.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ts.calls++
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		ts.form = r.PostForm
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(ts.status)
		_, _ = io.WriteString(w, ts.body)
	}))
	t.Cleanup(ts.Close)
	return ts
}

func testConfig(tokenURL string) shared.SpotifyConfig {
	return shared.SpotifyConfig{
		ClientID:    "client-123",
		RedirectURI: "http://127.0.0.1:3000/callback",
		Scopes:      []string{"user-read-private", "user-top-read"},
		AuthURL:     "https://accounts.example.com/authorize",
		TokenURL:    tokenURL,
	}
}

func newTestFlow(t *testing.T, tokenURL string) (*Flow, *store.CredentialStore, *store.MemoryKV, *tu.RecordingNavigator) {
	t.Helper()
	kv := store.NewMemoryKV()
	creds := store.NewCredentialStore(kv)
	nav := &tu.RecordingNavigator{}
	logger := log.New(io.Discard)
	return NewFlow(testConfig(tokenURL), creds, nav, logger), creds, kv, nav
}

func TestBeginLogin(t *testing.T) {
	ctx := context.Background()

	t.Run("builds authorization URL", func(t *testing.T) {
		flow, creds, kv, nav := newTestFlow(t, "http://unused")

		authURL, err := flow.BeginLogin(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if flow.State() != AwaitingRedirect {
			t.Errorf("expected AwaitingRedirect, got %s", flow.State())
		}
		if nav.Last() != authURL {
			t.Errorf("expected navigation to %s, got %s", authURL, nav.Last())
		}

		u, err := url.Parse(authURL)
		if err != nil {
			t.Fatalf("invalid URL: %v", err)
		}
		q := u.Query()
		expected := map[string]string{
			"response_type":         "code",
			"client_id":             "client-123",
			"scope":                 "user-read-private user-top-read",
			"redirect_uri":          "http://127.0.0.1:3000/callback",
			"code_challenge_method": "S256",
		}
		for k, v := range expected {
			if q.Get(k) != v {
				t.Errorf("expected %s=%s, got %s", k, v, q.Get(k))
			}
		}
		if q.Has("state") {
			t.Error("expected no state parameter")
		}

		verifier, ok, _ := kv.Get(ctx, store.KeyVerifier)
		if !ok {
			t.Fatal("expected verifier to be persisted")
		}
		if DeriveChallenge(verifier) != q.Get("code_challenge") {
			t.Error("stored verifier should reproduce the sent challenge")
		}
		if pending, _ := creds.HasPendingVerifier(ctx); !pending {
			t.Error("expected pending verifier")
		}
	})

	t.Run("second login replaces verifier", func(t *testing.T) {
		flow, _, kv, _ := newTestFlow(t, "http://unused")
		_, _ = flow.BeginLogin(ctx)
		first, _, _ := kv.Get(ctx, store.KeyVerifier)
		_, _ = flow.BeginLogin(ctx)
		second, _, _ := kv.Get(ctx, store.KeyVerifier)
		if first == second {
			t.Error("expected verifier to be replaced")
		}
	})

	t.Run("navigation failure still returns URL", func(t *testing.T) {
		flow, _, _, nav := newTestFlow(t, "http://unused")
		nav.Err = errors.New("no browser")
		authURL, err := flow.BeginLogin(ctx)
		if err != nil || authURL == "" {
			t.Errorf("expected URL despite navigation failure, got %q %v", authURL, err)
		}
	})

	t.Run("storage failure", func(t *testing.T) {
		flow := NewFlow(testConfig("http://unused"), store.NewCredentialStore(tu.FailingKV{}), nil, log.New(io.Discard))
		if _, err := flow.BeginLogin(ctx); !errors.Is(err, tu.ErrBackend) {
			t.Errorf("expected backend error, got %v", err)
		}
		if flow.State() != Idle {
			t.Errorf("expected Idle, got %s", flow.State())
		}
	})
}

func TestCompleteRedirect(t *testing.T) {
	ctx := context.Background()

	t.Run("no code is a no-op", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, `{}`)
		flow, creds, _, _ := newTestFlow(t, ts.URL)
		if _, err := creds.SaveCredential(ctx, "existing", time.Hour); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		res, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback")
		if err != nil || res != nil {
			t.Fatalf("expected (nil, nil), got (%v, %v)", res, err)
		}
		if flow.State() != Idle {
			t.Errorf("expected Idle, got %s", flow.State())
		}
		if ts.calls != 0 {
			t.Errorf("expected no token request, got %d", ts.calls)
		}
		tok, ok, _ := flow.CurrentToken(ctx)
		if !ok || tok != "existing" {
			t.Errorf("expected existing credential untouched, got %q %v", tok, ok)
		}
	})

	t.Run("successful exchange", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, `{"access_token":"T","token_type":"Bearer","expires_in":3600}`)
		flow, creds, _, _ := newTestFlow(t, ts.URL)
		if err := creds.SavePendingVerifier(ctx, "abc"); err != nil {
			t.Fatalf("failed to save verifier: %v", err)
		}

		res, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback?code=C0DE&lang=en")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Credential.AccessToken != "T" {
			t.Errorf("expected token T, got %s", res.Credential.AccessToken)
		}
		if res.CleanURL != "http://127.0.0.1:3000/callback?lang=en" {
			t.Errorf("expected code to be stripped, got %s", res.CleanURL)
		}
		if flow.State() != Authorized {
			t.Errorf("expected Authorized, got %s", flow.State())
		}

		expected := map[string]string{
			"grant_type":    "authorization_code",
			"code":          "C0DE",
			"redirect_uri":  "http://127.0.0.1:3000/callback",
			"code_verifier": "abc",
			"client_id":     "client-123",
		}
		for k, v := range expected {
			if ts.form.Get(k) != v {
				t.Errorf("expected form %s=%s, got %s", k, v, ts.form.Get(k))
			}
		}
		if ts.form.Has("client_secret") {
			t.Error("public client must not send a secret")
		}

		cred, ok, _ := creds.GetValidCredential(ctx)
		if !ok || cred.AccessToken != "T" {
			t.Errorf("expected valid credential T, got %v %v", cred, ok)
		}
		if pending, _ := creds.HasPendingVerifier(ctx); pending {
			t.Error("expected verifier to be consumed")
		}
	})

	t.Run("missing verifier", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, `{"access_token":"T","expires_in":3600}`)
		flow, _, _, _ := newTestFlow(t, ts.URL)

		res, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback?code=C0DE")
		if !errors.Is(err, shared.ErrVerifierMissing) {
			t.Errorf("expected ErrVerifierMissing, got %v", err)
		}
		if res != nil {
			t.Error("expected no credential")
		}
		if flow.State() != Failed {
			t.Errorf("expected Failed, got %s", flow.State())
		}
		if ts.calls != 0 {
			t.Error("expected no token request without verifier")
		}
	})

	failures := []struct {
		name   string
		status int
		body   string
	}{
		{"provider rejects code", http.StatusBadRequest, `{"error":"invalid_grant","error_description":"Invalid authorization code"}`},
		{"missing access token", http.StatusOK, `{"expires_in":3600}`},
		{"missing lifetime", http.StatusOK, `{"access_token":"T"}`},
		{"server error", http.StatusInternalServerError, `oops`},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTokenServer(t, tt.status, tt.body)
			flow, creds, kv, _ := newTestFlow(t, ts.URL)
			_ = creds.SavePendingVerifier(ctx, "abc")

			res, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback?code=C0DE")
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Errorf("expected ErrAuthFailed, got %v", err)
			}
			if res != nil {
				t.Error("expected no credential")
			}
			if flow.State() != Failed {
				t.Errorf("expected Failed, got %s", flow.State())
			}
			if !errors.Is(flow.LastError(), shared.ErrAuthFailed) {
				t.Errorf("expected LastError to hold the failure, got %v", flow.LastError())
			}
			if kv.Len() != 0 {
				t.Errorf("expected no stored state after failure, got %d keys", kv.Len())
			}

			if _, err := flow.BeginLogin(ctx); err != nil {
				t.Errorf("login should be retryable after failure: %v", err)
			}
		})
	}

	t.Run("provider denial", func(t *testing.T) {
		flow, creds, _, _ := newTestFlow(t, "http://unused")
		_ = creds.SavePendingVerifier(ctx, "abc")

		_, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback?error=access_denied")
		if !errors.Is(err, shared.ErrAuthFailed) {
			t.Errorf("expected ErrAuthFailed, got %v", err)
		}
		if pending, _ := creds.HasPendingVerifier(ctx); pending {
			t.Error("expected verifier to be dropped")
		}
	})

	t.Run("invalid URL", func(t *testing.T) {
		flow, _, _, _ := newTestFlow(t, "http://unused")
		if _, err := flow.CompleteRedirect(ctx, "://bad"); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("custom HTTP client", func(t *testing.T) {
		ts := newTokenServer(t, http.StatusOK, `{"access_token":"T","expires_in":60}`)
		flow, creds, _, _ := newTestFlow(t, ts.URL)
		flow.WithHTTPClient(ts.Client())
		_ = creds.SavePendingVerifier(ctx, "abc")

		if _, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback?code=C0DE"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		// 60s lifetime minus the 60s margin is already expired.
		if _, ok, _ := flow.CurrentToken(ctx); ok {
			t.Error("expected credential to be treated as expired")
		}
	})
}

func TestLogoutAndReset(t *testing.T) {
	ctx := context.Background()
	ts := newTokenServer(t, http.StatusOK, `{"access_token":"T","expires_in":3600}`)
	flow, creds, kv, _ := newTestFlow(t, ts.URL)
	_ = creds.SavePendingVerifier(ctx, "abc")

	if _, err := flow.CompleteRedirect(ctx, "http://127.0.0.1:3000/callback?code=C0DE"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	session := flow.Session()

	if err := flow.Logout(ctx); err != nil {
		t.Fatalf("failed to logout: %v", err)
	}
	if flow.State() != Idle {
		t.Errorf("expected Idle, got %s", flow.State())
	}
	if flow.Session() == session {
		t.Error("expected a new session after logout")
	}
	if kv.Len() != 0 {
		t.Errorf("expected empty store, got %d keys", kv.Len())
	}
	if _, ok, _ := flow.CurrentToken(ctx); ok {
		t.Error("expected no token after logout")
	}
}

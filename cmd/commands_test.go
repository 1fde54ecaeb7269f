package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/profile"
	"github.com/desertthunder/lovewrapped/internal/services"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
	tu "github.com/desertthunder/lovewrapped/internal/testing"
)

const tokenBody = `{"access_token":"T","token_type":"Bearer","expires_in":3600}`

type navFunc func(string) error

func (f navFunc) Navigate(u string) error { return f(u) }

type harness struct {
	runner *Runner
	kv     store.KV
	output *bytes.Buffer
}

func newHarness(t *testing.T, config *shared.Config, opts RunnerOpts) *harness {
	t.Helper()
	output := &bytes.Buffer{}
	if opts.KV == nil {
		opts.KV = store.NewMemoryKV()
	}
	if opts.Navigator == nil {
		opts.Navigator = &tu.RecordingNavigator{}
	}
	opts.Config = config
	opts.Output = output
	opts.Logger = log.New(io.Discard)
	return &harness{runner: NewRunner(opts), kv: opts.KV, output: output}
}

func (h *harness) run(args ...string) error {
	return newApp(h.runner).Run(context.Background(), append([]string{"wrapped"}, args...))
}

func testConfig() *shared.Config {
	config := shared.DefaultConfig()
	config.Credentials.Spotify.ClientID = "client-123"
	config.Storage.Driver = "memory"
	return config
}

func saveProfile(t *testing.T, kv store.KV, slot store.Slot, p models.Profile) {
	t.Helper()
	data, err := profile.Encode(p, false)
	if err != nil {
		t.Fatalf("failed to encode profile: %v", err)
	}
	if err := store.NewProfileStore(kv).Save(context.Background(), slot, data); err != nil {
		t.Fatalf("failed to save profile: %v", err)
	}
}

func authorize(t *testing.T, h *harness) {
	t.Helper()
	if _, err := h.runner.creds.SaveCredential(context.Background(), "T", time.Hour); err != nil {
		t.Fatalf("failed to save credential: %v", err)
	}
}

// newSpotifyServer fakes the four endpoints a profile build touches.
func newSpotifyServer(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer T" {
			t.Errorf("expected bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		if status != http.StatusOK {
			w.WriteHeader(status)
			io.WriteString(w, `{"error":{"status":401,"message":"The access token expired"}}`)
			return
		}
		switch r.URL.Path {
		case "/me":
			io.WriteString(w, `{"id":"u1","display_name":"Una"}`)
		case "/me/top/artists":
			io.WriteString(w, `{"items":[{"id":"a1","name":"Artist a1"},{"id":"a2","name":"Artist a2"}],"total":2}`)
		case "/me/top/tracks":
			io.WriteString(w, `{"items":[{"id":"t1","name":"Track t1","artists":[{"id":"a1","name":"Artist a1"}]}],"total":1}`)
		case "/audio-features":
			io.WriteString(w, `{"audio_features":[{"id":"t1","valence":0.5,"energy":0.25,"danceability":1}]}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("failed to parse form: %v", err)
		}
		if r.PostForm.Get("code") != "abc" {
			t.Errorf("expected code abc, got %q", r.PostForm.Get("code"))
		}
		if r.PostForm.Get("code_verifier") == "" {
			t.Error("expected code_verifier in exchange")
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, tokenBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("failed to find a free port: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func TestAuthCommands(t *testing.T) {
	t.Run("status when not authenticated", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Not authenticated") {
			t.Errorf("expected not authenticated, got %q", h.output.String())
		}
	})

	t.Run("status json when authenticated", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		authorize(t, h)

		if err := h.run("auth", "status", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var status authStatus
		if err := json.Unmarshal(h.output.Bytes(), &status); err != nil {
			t.Fatalf("failed to decode status: %v", err)
		}
		if !status.Authenticated || status.Expired || status.ExpiresAt == nil {
			t.Errorf("unexpected status %+v", status)
		}
	})

	t.Run("status reports expired credential", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		// Lifetimes inside the safety margin are stored already expired.
		if _, err := h.runner.creds.SaveCredential(context.Background(), "T", 30*time.Second); err != nil {
			t.Fatalf("failed to save credential: %v", err)
		}

		if err := h.run("auth", "status"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "expired") {
			t.Errorf("expected expired status, got %q", h.output.String())
		}
	})

	t.Run("logout clears the credential", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		authorize(t, h)

		if err := h.run("auth", "logout"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, ok, _ := h.runner.creds.StoredCredential(context.Background()); ok {
			t.Error("expected credential to be removed")
		}
	})

	t.Run("complete exchanges a pasted redirect", func(t *testing.T) {
		config := testConfig()
		config.Credentials.Spotify.TokenURL = newTokenServer(t).URL
		h := newHarness(t, config, RunnerOpts{})
		if err := h.runner.creds.SavePendingVerifier(context.Background(), "verifier-123"); err != nil {
			t.Fatalf("failed to save verifier: %v", err)
		}

		if err := h.run("auth", "complete", "http://127.0.0.1:3000/callback?code=abc"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Authorization successful") {
			t.Errorf("expected success message, got %q", h.output.String())
		}
		if token, ok, _ := h.runner.flow.CurrentToken(context.Background()); !ok || token != "T" {
			t.Errorf("expected stored token T, got %q (%v)", token, ok)
		}
	})

	t.Run("complete without code is rejected", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("auth", "complete", "http://127.0.0.1:3000/callback")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("complete without verifier fails", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("auth", "complete", "http://127.0.0.1:3000/callback?code=abc")
		if !errors.Is(err, shared.ErrVerifierMissing) {
			t.Errorf("expected ErrVerifierMissing, got %v", err)
		}
	})

	t.Run("login completes through the callback server", func(t *testing.T) {
		port := freePort(t)
		config := testConfig()
		config.Credentials.Spotify.TokenURL = newTokenServer(t).URL
		config.Server.Host = "127.0.0.1"
		config.Server.Port = port

		nav := navFunc(func(string) error {
			go func() {
				resp, err := http.Get(fmt.Sprintf("http://127.0.0.1:%d/callback?code=abc", port))
				if err == nil {
					resp.Body.Close()
				}
			}()
			return nil
		})
		h := newHarness(t, config, RunnerOpts{Navigator: nav})

		if err := h.run("auth", "login", "--timeout", "5s"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Authorization successful") {
			t.Errorf("expected success message, got %q", h.output.String())
		}
	})

	t.Run("login requires a client id", func(t *testing.T) {
		h := newHarness(t, shared.DefaultConfig(), RunnerOpts{})

		err := h.run("auth", "login")
		if !errors.Is(err, shared.ErrMissingCredentials) {
			t.Errorf("expected ErrMissingCredentials, got %v", err)
		}
	})
}

func TestProfileCommands(t *testing.T) {
	t.Run("build requires a credential", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("profile", "build")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("build stores side A", func(t *testing.T) {
		config := testConfig()
		config.Credentials.Spotify.APIURL = newSpotifyServer(t, http.StatusOK).URL
		h := newHarness(t, config, RunnerOpts{})
		authorize(t, h)

		if err := h.run("profile", "build", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}

		var p models.Profile
		if err := json.Unmarshal(h.output.Bytes(), &p); err != nil {
			t.Fatalf("failed to decode profile: %v", err)
		}
		if p.UserID != "u1" || len(p.TopArtists) != 2 || len(p.TopTracks) != 1 {
			t.Errorf("unexpected profile %+v", p)
		}
		if p.Mood.Energy != 0.25 {
			t.Errorf("expected energy 0.25, got %v", p.Mood.Energy)
		}

		stored, err := h.runner.profiles.Load(context.Background(), store.SlotSelf)
		if err != nil || stored.UserID != "u1" {
			t.Errorf("expected stored self profile, got %v (%v)", stored, err)
		}
	})

	t.Run("build logs out on rejected credential", func(t *testing.T) {
		config := testConfig()
		config.Credentials.Spotify.APIURL = newSpotifyServer(t, http.StatusUnauthorized).URL
		h := newHarness(t, config, RunnerOpts{})
		authorize(t, h)

		err := h.run("profile", "build")
		if !services.IsAuthFailure(err) {
			t.Fatalf("expected auth failure, got %v", err)
		}
		if _, ok, _ := h.runner.creds.StoredCredential(context.Background()); ok {
			t.Error("expected credential to be cleared")
		}
	})

	t.Run("build records history with a database", func(t *testing.T) {
		db, err := shared.OpenDatabase(shared.DatabaseConfig{Path: filepath.Join(t.TempDir(), "wrapped.db")})
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		t.Cleanup(func() { db.Close() })

		config := testConfig()
		config.Credentials.Spotify.APIURL = newSpotifyServer(t, http.StatusOK).URL
		h := newHarness(t, config, RunnerOpts{KV: store.NewSQLiteKV(db), DB: db})
		authorize(t, h)

		if err := h.run("profile", "build"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		h.output.Reset()

		if err := h.run("profile", "history", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var entries []store.HistoryEntry
		if err := json.Unmarshal(h.output.Bytes(), &entries); err != nil {
			t.Fatalf("failed to decode history: %v", err)
		}
		if len(entries) != 1 || entries[0].UserID != "u1" {
			t.Fatalf("expected one entry for u1, got %+v", entries)
		}

		h.output.Reset()
		if err := h.run("profile", "history", "--id", entries[0].ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "Artist a1") {
			t.Errorf("expected archived profile, got %q", h.output.String())
		}

		dir := filepath.Join(t.TempDir(), "archive")
		h.output.Reset()
		if err := h.run("profile", "history", "export", "--dir", dir, "--format", "txt"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
		if !strings.Contains(h.output.String(), "Exported 1 of 1") {
			t.Errorf("expected export summary, got %q", h.output.String())
		}

		if err := h.run("profile", "history", "delete", entries[0].ID); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if err := h.run("profile", "history", "delete", entries[0].ID); !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound on second delete, got %v", err)
		}
	})

	t.Run("history without database", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("profile", "history", "--user", "u1")
		if !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("show missing profile", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("profile", "show")
		if !errors.Is(err, shared.ErrProfileNotFound) {
			t.Errorf("expected ErrProfileNotFound, got %v", err)
		}
	})

	t.Run("show rejects unknown slot", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("profile", "show", "--slot", "ex")
		if !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export writes the requested format", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		saveProfile(t, h.kv, store.SlotSelf, tu.SampleProfile("u1", []string{"a1"}, []string{"t1"}, models.MoodVector{}))
		path := filepath.Join(t.TempDir(), "me.md")

		if err := h.run("profile", "export", "--format", "md", "-o", path); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		tu.AssertFileExists(t, path)
		if !strings.Contains(tu.MustReadFile(t, path), "Artist a1") {
			t.Error("expected artist in export")
		}
	})
}

func TestPartnerAndMerge(t *testing.T) {
	me := tu.SampleProfile("u1", []string{"a1", "a2"}, []string{"t1"}, models.MoodVector{Valence: 0.5})
	partner := tu.SampleProfile("p1", []string{"a1"}, []string{"t9"}, models.MoodVector{Valence: 1})

	writePartner := func(t *testing.T, p models.Profile) string {
		t.Helper()
		data, err := profile.Encode(p, true)
		if err != nil {
			t.Fatalf("failed to encode partner: %v", err)
		}
		path := filepath.Join(t.TempDir(), "partner.json")
		tu.MustWriteFile(t, path, string(data))
		return path
	}

	t.Run("import then merge", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		saveProfile(t, h.kv, store.SlotSelf, me)

		if err := h.run("partner", "import", writePartner(t, partner)); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "User p1") {
			t.Errorf("expected partner name, got %q", h.output.String())
		}
		h.output.Reset()

		if err := h.run("merge", "--json"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		var view models.MergedView
		if err := json.Unmarshal(h.output.Bytes(), &view); err != nil {
			t.Fatalf("failed to decode view: %v", err)
		}
		if view.ArtistSimilarity != 0.5 || len(view.SharedArtistIDs) != 1 || view.SharedArtistIDs[0] != "a1" {
			t.Errorf("unexpected view %+v", view)
		}
		if view.BlendedMood.Valence != 0.75 {
			t.Errorf("expected blended valence 0.75, got %v", view.BlendedMood.Valence)
		}
	})

	t.Run("merge markdown", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		saveProfile(t, h.kv, store.SlotSelf, me)
		saveProfile(t, h.kv, store.SlotPartner, partner)

		if err := h.run("merge", "--markdown"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !strings.Contains(h.output.String(), "50%") {
			t.Errorf("expected artist similarity, got %q", h.output.String())
		}
	})

	t.Run("merge without partner", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		saveProfile(t, h.kv, store.SlotSelf, me)

		err := h.run("merge")
		if !errors.Is(err, shared.ErrNoPartner) {
			t.Errorf("expected ErrNoPartner, got %v", err)
		}
	})

	t.Run("import rejects invalid profile", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		path := filepath.Join(t.TempDir(), "bad.json")
		tu.MustWriteFile(t, path, `{"displayName":"nobody"}`)

		err := h.run("partner", "import", path)
		if !errors.Is(err, shared.ErrValidation) {
			t.Errorf("expected ErrValidation, got %v", err)
		}
	})

	t.Run("import missing file", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})

		err := h.run("partner", "import", filepath.Join(t.TempDir(), "nope.json"))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("clear removes side B", func(t *testing.T) {
		h := newHarness(t, testConfig(), RunnerOpts{})
		saveProfile(t, h.kv, store.SlotPartner, partner)

		if err := h.run("partner", "clear"); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if _, err := h.runner.profiles.Load(context.Background(), store.SlotPartner); !errors.Is(err, shared.ErrNoPartner) {
			t.Errorf("expected ErrNoPartner after clear, got %v", err)
		}
	})
}

func TestSetup(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	h := newHarness(t, testConfig(), RunnerOpts{})

	if err := h.run("setup", "--config", filepath.Join(dir, "config.toml")); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	tu.AssertFileExists(t, filepath.Join(dir, "config.toml"))
	tu.AssertFileExists(t, filepath.Join(dir, "wrapped.db"))
	if !strings.Contains(h.output.String(), "client_id") {
		t.Errorf("expected next steps for the placeholder client id, got %q", h.output.String())
	}
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/models"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/desertthunder/lovewrapped/internal/store"
	"golang.org/x/oauth2"
)

// State is a position in the authorization state machine.
type State int

const (
	Idle State = iota
	AwaitingRedirect
	Exchanging
	Authorized
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case AwaitingRedirect:
		return "awaiting_redirect"
	case Exchanging:
		return "exchanging"
	case Authorized:
		return "authorized"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Navigator sends the user agent to an authorization URL.
type Navigator interface {
	Navigate(url string) error
}

// Redirect is the outcome of a successful exchange.
//
// CleanURL is the redirect URL with the code parameter removed; hosts show it
// in place of the original so the code is not exchanged twice.
type Redirect struct {
	Credential *models.Credential
	CleanURL   string
}

// Flow drives one session's authorization.
type Flow struct {
	mu       sync.Mutex
	state    State
	session  string
	oauth    *oauth2.Config
	creds    *store.CredentialStore
	nav      Navigator
	client   *http.Client
	baseLog  *log.Logger
	logger   *log.Logger
	lastFail error
}

// NewFlow creates an Idle [Flow] for the public client described by cfg.
func NewFlow(cfg shared.SpotifyConfig, creds *store.CredentialStore, nav Navigator, logger *log.Logger) *Flow {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	f := &Flow{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			RedirectURL: cfg.RedirectURI,
			Scopes:      cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		creds:   creds,
		nav:     nav,
		baseLog: logger,
	}
	f.Reset()
	return f
}

// WithHTTPClient sets the client used for the token exchange.
func (f *Flow) WithHTTPClient(c *http.Client) *Flow {
	f.client = c
	return f
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Session returns the id of the current in-memory session.
func (f *Flow) Session() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.session
}

// LastError returns the reason for the most recent transition to Failed.
func (f *Flow) LastError() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastFail
}

// BeginLogin moves to AwaitingRedirect and navigates to the authorization URL, which is also returned.
func (f *Flow) BeginLogin(ctx context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	pending, err := f.creds.HasPendingVerifier(ctx)
	if err != nil {
		return "", err
	}
	if pending || f.state == AwaitingRedirect {
		f.logger.Warn("replacing pending authorization; the earlier redirect can no longer be completed")
	}

	ch := GenerateChallenge()
	if err := f.creds.SavePendingVerifier(ctx, ch.Verifier); err != nil {
		return "", fmt.Errorf("failed to persist verifier: %w", err)
	}

	authURL := f.oauth.AuthCodeURL("", oauth2.S256ChallengeOption(ch.Verifier))
	f.state = AwaitingRedirect
	f.lastFail = nil
	f.logger.Info("authorization started", "state", f.state)

	if f.nav != nil {
		if err := f.nav.Navigate(authURL); err != nil {
			f.logger.Warn("could not open authorization URL", "error", err)
		}
	}
	return authURL, nil
}

// CompleteRedirect exchanges the code carried by rawURL.
//
// It returns (nil, nil) when rawURL has no code parameter, leaving all state untouched.
func (f *Flow) CompleteRedirect(ctx context.Context, rawURL string) (*Redirect, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: redirect url: %v", shared.ErrInvalidInput, err)
	}

	q := u.Query()
	code := q.Get("code")
	if code == "" {
		if denied := q.Get("error"); denied != "" {
			return nil, f.providerDenied(ctx, denied)
		}
		return nil, nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	f.state = Exchanging
	f.logger.Debug("exchanging authorization code", "state", f.state)

	verifier, ok, err := f.creds.TakePendingVerifier(ctx)
	if err != nil {
		return nil, f.fail(fmt.Errorf("failed to read verifier: %w", err))
	}
	if !ok {
		return nil, f.fail(shared.ErrVerifierMissing)
	}

	exCtx := ctx
	if f.client != nil {
		exCtx = context.WithValue(ctx, oauth2.HTTPClient, f.client)
	}

	tok, err := f.oauth.Exchange(exCtx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		var re *oauth2.RetrieveError
		if errors.As(err, &re) {
			f.logger.Error("token exchange rejected", "status", statusOf(re), "body", string(re.Body))
		} else {
			f.logger.Error("token exchange failed", "error", err)
		}
		return nil, f.fail(fmt.Errorf("%w: token exchange: %v", shared.ErrAuthFailed, err))
	}

	ttl := lifetime(tok)
	if ttl <= 0 {
		f.logger.Error("token response has no lifetime")
		return nil, f.fail(fmt.Errorf("%w: token response missing expires_in", shared.ErrAuthFailed))
	}

	cred, err := f.creds.SaveCredential(ctx, tok.AccessToken, ttl)
	if err != nil {
		return nil, f.fail(fmt.Errorf("failed to persist credential: %w", err))
	}

	q.Del("code")
	u.RawQuery = q.Encode()

	f.state = Authorized
	f.logger.Info("authorized", "expires_at", cred.ExpiresAt.Format(time.RFC3339))
	return &Redirect{Credential: cred, CleanURL: u.String()}, nil
}

// CurrentToken returns the stored access token while it is valid. It never touches the network.
func (f *Flow) CurrentToken(ctx context.Context) (string, bool, error) {
	cred, ok, err := f.creds.GetValidCredential(ctx)
	if err != nil || !ok {
		return "", false, err
	}
	return cred.AccessToken, true, nil
}

// CurrentCredential is [Flow.CurrentToken] returning the full credential.
func (f *Flow) CurrentCredential(ctx context.Context) (*models.Credential, bool, error) {
	return f.creds.GetValidCredential(ctx)
}

// Logout clears every stored secret and resets the session.
func (f *Flow) Logout(ctx context.Context) error {
	if err := f.creds.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear credentials: %w", err)
	}
	f.mu.Lock()
	f.logger.Info("logged out")
	f.mu.Unlock()
	f.Reset()
	return nil
}

// Reset discards in-memory session state and starts a new session in Idle.
func (f *Flow) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state = Idle
	f.lastFail = nil
	f.session = shared.GenerateID()
	f.logger = shared.WithLogger(f.baseLog, "session", f.session[:8])
}

func (f *Flow) providerDenied(ctx context.Context, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, _, err := f.creds.TakePendingVerifier(ctx); err != nil {
		f.logger.Warn("could not drop pending verifier", "error", err)
	}
	f.logger.Error("authorization denied by provider", "error", reason)
	return f.fail(fmt.Errorf("%w: provider returned %s", shared.ErrAuthFailed, reason))
}

// fail must be called with mu held.
func (f *Flow) fail(err error) error {
	f.state = Failed
	f.lastFail = err
	return err
}

func lifetime(tok *oauth2.Token) time.Duration {
	if tok.ExpiresIn > 0 {
		return time.Duration(tok.ExpiresIn) * time.Second
	}
	if !tok.Expiry.IsZero() {
		return time.Until(tok.Expiry)
	}
	return 0
}

func statusOf(re *oauth2.RetrieveError) int {
	if re.Response == nil {
		return 0
	}
	return re.Response.StatusCode
}

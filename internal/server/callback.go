package server

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/auth"
	"github.com/desertthunder/lovewrapped/internal/models"
)

// Completer finishes an authorization from its redirect URL. [auth.Flow] implements it.
type Completer interface {
	CompleteRedirect(ctx context.Context, rawURL string) (*auth.Redirect, error)
}

// CallbackResult contains the result of one redirect.
type CallbackResult struct {
	Credential *models.Credential
	err        error
}

func (c *CallbackResult) Error() error {
	return c.err
}

// CallbackHandler handles the provider redirect for the authorization code flow.
// Implements the Handler interface for registration with a Router.
type CallbackHandler struct {
	flow       Completer
	publicURL  string
	resultChan chan CallbackResult
	once       sync.Once
	mu         sync.Mutex
	done       bool
	result     CallbackResult
	logger     *log.Logger
}

// NewCallbackHandler creates a handler that reconstructs redirect URLs against publicURL,
// the configured redirect_uri.
func NewCallbackHandler(flow Completer, publicURL string, logger *log.Logger) *CallbackHandler {
	return &CallbackHandler{
		flow:       flow,
		publicURL:  publicURL,
		resultChan: make(chan CallbackResult, 1),
		logger:     logger,
	}
}

// Routes returns the HTTP routes this handler serves.
func (h *CallbackHandler) Routes() []string {
	return []string{"/callback"}
}

// ServeHTTP completes the authorization once and renders the outcome.
func (h *CallbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if !q.Has("code") && !q.Has("error") {
		h.renderOutcome(w, "")
		return
	}

	h.mu.Lock()
	if h.done {
		h.mu.Unlock()
		http.Error(w, "Callback already processed", http.StatusBadRequest)
		return
	}
	h.done = true
	h.mu.Unlock()

	redirect, err := h.flow.CompleteRedirect(r.Context(), h.fullURL(r))
	if err != nil {
		h.Send(CallbackResult{err: err})
		h.renderOutcome(w, "")
		return
	}
	if redirect == nil {
		h.Send(CallbackResult{err: fmt.Errorf("redirect carried no authorization code")})
		h.renderOutcome(w, "")
		return
	}

	h.Send(CallbackResult{Credential: redirect.Credential})
	h.renderOutcome(w, redirect.CleanURL)
}

// fullURL rebuilds the redirect as the provider sent it, using the configured public address.
func (h *CallbackHandler) fullURL(r *http.Request) string {
	if h.publicURL == "" {
		return "http://" + r.Host + r.URL.RequestURI()
	}
	return h.publicURL + "?" + r.URL.RawQuery
}

// renderOutcome writes the result page. A non-empty cleanURL replaces the address bar
// entry so a reload does not resubmit the code.
func (h *CallbackHandler) renderOutcome(w http.ResponseWriter, cleanURL string) {
	h.mu.Lock()
	done, result := h.done, h.result
	h.mu.Unlock()

	if !done {
		http.Error(w, "No authorization in progress", http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if result.err != nil {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprintf(w, outcomePage, "#c0392b", "✗ Authorization Failed", "Return to the terminal and run the login again.", "")
		return
	}

	script := ""
	if cleanURL != "" {
		script = fmt.Sprintf(`<script>history.replaceState(null, "", "%s");</script>`, template.JSEscapeString(cleanURL))
	}
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, outcomePage, "#1DB954", "✓ Authorization Successful", "You can close this window and return to the terminal.", script)
}

// Send sends the result through the channel (only once).
func (h *CallbackHandler) Send(result CallbackResult) {
	h.once.Do(func() {
		h.mu.Lock()
		h.result = result
		h.mu.Unlock()
		h.resultChan <- result
		close(h.resultChan)
	})
}

// Result returns the result channel for receiving flow completion.
//
// Channel will receive exactly one result and then be closed.
func (h *CallbackHandler) Result() <-chan CallbackResult {
	return h.resultChan
}

const outcomePage = `<!DOCTYPE html>
<html>
<head>
    <title>Love Wrapped</title>
    <style>
        body { font-family: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
               display: flex; align-items: center; justify-content: center; height: 100vh;
               margin: 0; background: #fdf0f3; }
        .container { text-align: center; background: white; padding: 2rem;
                     border-radius: 8px; box-shadow: 0 2px 4px rgba(0,0,0,0.1); }
        h1 { color: %s; margin: 0 0 1rem 0; }
        p { color: #666; margin: 0; }
    </style>
</head>
<body>
    <div class="container">
        <h1>%s</h1>
        <p>%s</p>
    </div>
    %s
</body>
</html>
`

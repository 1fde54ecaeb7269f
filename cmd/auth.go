package main

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/desertthunder/lovewrapped/internal/server"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"github.com/urfave/cli/v3"
)

// authStatus is the JSON form of `auth status`.
type authStatus struct {
	Authenticated bool       `json:"authenticated"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	Expired       bool       `json:"expired"`
	Pending       bool       `json:"pending_login"`
}

// AuthLogin runs the full authorization code flow.
//
// Starts a local HTTP server, opens the browser for user authorization, and waits for the
// redirect to be exchanged for a credential.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.config.Validate(); err != nil {
		return err
	}
	timeout := cmd.Duration("timeout")

	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	srv := server.NewCallbackServer(addr, r.config.Credentials.Spotify.RedirectURI, r.flow, r.logger)
	if err := srv.Start(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}

	if _, err := r.flow.BeginLogin(ctx); err != nil {
		srv.Shutdown()
		return err
	}

	r.writePlain("Waiting for authorization on %s (timeout %s)...\n", srv.Addr(), timeout)

	result, err := srv.Wait(ctx, timeout)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("Credential valid until %s\n", result.Credential.ExpiresAt.Local().Format(time.RFC1123))
	r.writePlain("You can now use: wrapped profile build\n")
	return nil
}

// AuthComplete exchanges the code in a redirect URL copied from the browser.
func (r *Runner) AuthComplete(ctx context.Context, cmd *cli.Command) error {
	rawURL := cmd.StringArg("url")
	if rawURL == "" {
		return fmt.Errorf("%w: redirect url", shared.ErrMissingArgument)
	}

	redirect, err := r.flow.CompleteRedirect(ctx, rawURL)
	if err != nil {
		return err
	}
	if redirect == nil {
		return fmt.Errorf("%w: url has no authorization code", shared.ErrInvalidArgument)
	}

	r.writePlain("✓ Authorization successful\n")
	r.writePlain("Credential valid until %s\n", redirect.Credential.ExpiresAt.Local().Format(time.RFC1123))
	return nil
}

// AuthStatus reports the stored credential without touching the network.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	var status authStatus

	stored, ok, err := r.creds.StoredCredential(ctx)
	if err != nil {
		return err
	}
	if ok {
		status.ExpiresAt = &stored.ExpiresAt
		_, status.Authenticated, err = r.flow.CurrentToken(ctx)
		if err != nil {
			return err
		}
		status.Expired = !status.Authenticated
	}
	if status.Pending, err = r.creds.HasPendingVerifier(ctx); err != nil {
		return err
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, false)
	}

	switch {
	case status.Authenticated:
		r.writePlain("Authentication: ✓ Authenticated\n")
		r.writePlain("Expires: %s\n", status.ExpiresAt.Local().Format(time.RFC1123))
	case status.Expired:
		r.writePlain("Authentication: ✗ Credential expired\n")
	default:
		r.writePlain("Authentication: ✗ Not authenticated\n")
	}
	if status.Pending {
		r.writePlain("A login is pending; finish it in the browser or with 'wrapped auth complete'\n")
	}
	return nil
}

// AuthLogout clears every stored secret.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.flow.Logout(ctx); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

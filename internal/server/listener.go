package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/lovewrapped/internal/shared"
	"golang.org/x/time/rate"
)

const (
	requestRate  = 5
	requestBurst = 10
)

// CallbackServer serves one [CallbackHandler] until a result arrives.
type CallbackServer struct {
	handler  *CallbackHandler
	srv      *http.Server
	listener net.Listener
	errs     chan error
	logger   *log.Logger
}

// NewCallbackServer builds the router for addr. publicURL is the configured redirect_uri.
func NewCallbackServer(addr, publicURL string, flow Completer, logger *log.Logger) *CallbackServer {
	handler := NewCallbackHandler(flow, publicURL, logger)

	router := NewBasicRouter()
	router.Use(Recoverer(logger), RequestLogger(logger), RateLimit(rate.NewLimiter(requestRate, requestBurst), logger))
	router.Handler(handler)

	return &CallbackServer{
		handler: handler,
		srv:     &http.Server{Addr: addr, Handler: router, ReadHeaderTimeout: 10 * time.Second},
		errs:    make(chan error, 1),
		logger:  logger,
	}
}

// Start binds the address and serves in the background.
func (s *CallbackServer) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind callback address %s: %w", s.srv.Addr, err)
	}
	s.listener = ln

	go func() {
		s.logger.Info("callback server listening", "addr", ln.Addr().String())
		if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errs <- err
		}
	}()
	return nil
}

// Addr returns the bound address, or the configured one before Start.
func (s *CallbackServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.srv.Addr
}

// Wait blocks until the redirect is handled, the server fails, ctx ends or timeout passes.
// The server is shut down before Wait returns.
func (s *CallbackServer) Wait(ctx context.Context, timeout time.Duration) (*CallbackResult, error) {
	defer s.Shutdown()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case result := <-s.handler.Result():
		if result.Error() != nil {
			return nil, result.Error()
		}
		return &result, nil
	case err := <-s.errs:
		return nil, fmt.Errorf("server error: %w", err)
	case <-timer.C:
		return nil, fmt.Errorf("%w: authorization timed out after %s", shared.ErrTimeout, timeout)
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Shutdown stops the server, waiting briefly for the redirect response to flush.
func (s *CallbackServer) Shutdown() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("error shutting down server", "error", err)
	}
}

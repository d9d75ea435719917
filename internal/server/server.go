// Package server exposes the merge engine over a JSON HTTP API. Every
// browser session gets its own engine.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"github.com/leapstack-labs/leapmerge/internal/engine"
	"github.com/leapstack-labs/leapmerge/internal/server/notifier"
	"golang.org/x/sync/errgroup"
)

// Default server settings.
const (
	DefaultSessionTTL = time.Hour
	sweepInterval     = time.Minute
	shutdownTimeout   = 5 * time.Second
)

// Config holds configuration for the HTTP server.
type Config struct {
	// Addr is the listen address, host:port.
	Addr string
	// SessionSecret signs the session cookie. A random key is generated
	// when empty, so sessions do not survive a restart.
	SessionSecret string
	// SessionTTL is how long an idle session keeps its engine.
	SessionTTL time.Duration
	// Engine configures the engine created for each session.
	Engine engine.Config
	// Logger is the structured logger (optional, uses discard if nil)
	Logger *slog.Logger
}

// Server serves the merge API.
type Server struct {
	addr         string
	sessionStore *sessions.CookieStore
	sessions     *registry
	notifier     *notifier.Notifier
	logger       *slog.Logger
}

// New creates a server instance.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = securecookie.GenerateRandomKey(32)
	}
	sessionStore := sessions.NewCookieStore(secret)
	sessionStore.MaxAge(86400) // 1 day
	sessionStore.Options.Path = "/"
	sessionStore.Options.HttpOnly = true
	sessionStore.Options.SameSite = http.SameSiteLaxMode

	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}

	engineCfg := cfg.Engine
	engineCfg.Logger = logger

	return &Server{
		addr:         cfg.Addr,
		sessionStore: sessionStore,
		sessions:     newRegistry(engineCfg, ttl),
		notifier:     notifier.New(),
		logger:       logger,
	}
}

// Handler returns the HTTP handler with middleware and routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewMux()
	r.Use(
		middleware.RequestID,
		middleware.Recoverer,
		middleware.Compress(5),
		s.requestLogger,
	)
	r.Route("/api", s.routes)
	return r
}

// Serve starts the HTTP server and blocks until ctx is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener serves on ln until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.logger.Info("starting server", slog.String("addr", "http://"+ln.Addr().String()))

	eg, egctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler: s.Handler(),
		BaseContext: func(_ net.Listener) context.Context {
			return egctx
		},
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	eg.Go(func() error {
		ticker := time.NewTicker(sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-egctx.Done():
				return nil
			case now := <-ticker.C:
				if n := s.sessions.sweep(now); n > 0 {
					s.logger.Debug("expired idle sessions", slog.Int("count", n))
				}
			}
		}
	})

	// Graceful shutdown
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		s.logger.Debug("shutting down server...")
		return srv.Shutdown(shutdownCtx)
	})

	return eg.Wait()
}

// requestLogger logs each request at debug level.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("duration", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())))
	})
}

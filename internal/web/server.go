// Package web serves the HTTP API: a versioned JSON surface under /api/v1
// plus the top-level OAuth callback relay page.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/barkadahq/spotify-mirror/internal/auth"
	"github.com/barkadahq/spotify-mirror/internal/barkada"
	"github.com/barkadahq/spotify-mirror/internal/groups"
	"github.com/barkadahq/spotify-mirror/internal/spotify"
	"github.com/barkadahq/spotify-mirror/internal/token"
)

// ServerConfig holds server wiring and settings.
type ServerConfig struct {
	Addr        string
	FrontendURL string
	SessionTTL  time.Duration

	Auth     *auth.Service
	Groups   *groups.Service
	Analyzer *barkada.Analyzer
	Spotify  *spotify.Client
	Tokens   *token.Manager
	Logger   *zap.Logger
}

// Server is the HTTP server for the API.
type Server struct {
	router chi.Router
	server *http.Server

	auth        *auth.Service
	groups      *groups.Service
	analyzer    *barkada.Analyzer
	spotify     *spotify.Client
	tokens      *token.Manager
	frontendURL string
	sessionTTL  time.Duration
	logger      *zap.Logger
}

// NewServer creates the API server.
func NewServer(cfg ServerConfig) *Server {
	s := &Server{
		router:      chi.NewRouter(),
		auth:        cfg.Auth,
		groups:      cfg.Groups,
		analyzer:    cfg.Analyzer,
		spotify:     cfg.Spotify,
		tokens:      cfg.Tokens,
		frontendURL: cfg.FrontendURL,
		sessionTTL:  cfg.SessionTTL,
		logger:      cfg.Logger,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(requestLogger(s.logger))
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	// Popup relay target; must stay top-level to match the registered
	// Spotify redirect URI.
	s.router.Get("/callback", s.handleCallbackPage)

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Get("/login", s.handleLogin)
			r.Post("/callback", s.handleCallback)
			r.Post("/refresh", s.handleRefresh)
			r.Post("/logout", s.handleLogout)
			r.Get("/barkada/users", s.handleBarkadaUsers)
			r.Post("/barkada/clear", s.handleBarkadaClear)
		})

		r.Route("/user", func(r chi.Router) {
			r.Get("/profile", s.handleProfile)
			r.Get("/top-tracks", s.handleTopTracks)
			r.Get("/top-artists", s.handleTopArtists)
			r.Get("/recently-played", s.handleRecentlyPlayed)
			r.Get("/saved-tracks", s.handleSavedTracks)
			r.Get("/following", s.handleFollowing)
		})

		r.Route("/analytics", func(r chi.Router) {
			r.Use(s.requireUser)
			r.Get("/listening-habits", s.handleListeningHabits)
			r.Post("/barkada", s.handleBarkadaAnalysis)
			r.Get("/genre-breakdown", s.handleComingSoon("Genre breakdown"))
			r.Get("/mood-analysis", s.handleComingSoon("Mood analysis"))
			r.Get("/listening-timeline", s.handleComingSoon("Listening timeline"))
			r.Get("/discovery-insights", s.handleComingSoon("Discovery insights"))
			r.Get("/artist-diversity", s.handleComingSoon("Artist diversity"))
		})

		r.Route("/playlists", func(r chi.Router) {
			r.Get("/", s.handlePlaylists)
			r.Post("/compare", s.handlePlaylistCompare)
			r.Post("/create-group", s.handleCreateGroupPlaylist)
			r.Get("/{id}", s.handlePlaylist)
			r.Get("/{id}/tracks", s.handlePlaylistTracks)
			r.Get("/{id}/analytics", s.handlePlaylistAnalytics)
		})

		r.Route("/sessions", func(r chi.Router) {
			// Shareable-code endpoints stay public so invitees can
			// preview and join before authenticating.
			r.Get("/{code}", s.handleSessionGet)
			r.Post("/{code}/join", s.handleSessionJoin)

			r.Group(func(r chi.Router) {
				r.Use(s.requireUser)
				r.Post("/", s.handleSessionCreate)
				r.Get("/", s.handleSessionList)
				r.Get("/{code}/users", s.handleSessionUsers)
				r.Post("/{code}/leave", s.handleSessionLeave)
				r.Delete("/{code}", s.handleSessionEnd)
				r.Put("/{code}/sync", s.handleSessionSync)
			})
		})
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondData(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	s.logger.Info("starting server", zap.String("addr", s.server.Addr))
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// Handler exposes the router. Used in tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run starts the server and handles graceful shutdown on interrupt signals.
func (s *Server) Run() error {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		if err := s.Start(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-stop:
		s.logger.Info("shutting down server")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	s.logger.Info("server stopped")
	return nil
}

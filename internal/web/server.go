package web

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	spotifyauth "github.com/zmb3/spotify/v2/auth"

	"github.com/moodtracks/go-spotify-mood-recommender/internal/config"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/detect"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/history"
	"github.com/moodtracks/go-spotify-mood-recommender/internal/recommend"
)

// Server is the HTTP server for the mood recommender API.
type Server struct {
	router   chi.Router
	server   *http.Server
	sessions *SessionStore
	handlers *Handlers
}

// NewServer wires the application from its configuration.
func NewServer(cfg *config.Config) (*Server, error) {
	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.Spotify.ClientID),
		spotifyauth.WithClientSecret(cfg.Spotify.ClientSecret),
		spotifyauth.WithRedirectURL(cfg.Spotify.RedirectURL),
		spotifyauth.WithScopes(
			spotifyauth.ScopeUserReadPrivate,
			spotifyauth.ScopeUserReadEmail,
			spotifyauth.ScopeUserLibraryRead,
			spotifyauth.ScopeStreaming,
		),
	)

	sessions := NewSessionStore()
	store := history.NewStore(cfg.History.Path)

	var detector detect.Detector
	switch cfg.Detector.Mode {
	case "remote":
		detector = detect.NewRemote(cfg.Detector.ModelURL, detect.NewSimulated(nil))
	default:
		detector = detect.NewSimulated(nil)
	}

	handlers := NewHandlers(auth, sessions, store, detector,
		recommend.Mode(cfg.Engine.Mode), cfg.Engine.DefaultLimit)

	router := chi.NewRouter()
	s := &Server{
		router:   router,
		sessions: sessions,
		handlers: handlers,
	}
	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))
}

func (s *Server) setupRoutes() {
	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	s.router.Get("/auth/login", s.handlers.Login)
	s.router.Get("/callback", s.handlers.Callback)
	s.router.Post("/auth/refresh", s.handlers.Refresh)
	s.router.Post("/auth/logout", s.handlers.Logout)

	s.router.Route("/api", func(r chi.Router) {
		r.Post("/recommendation/by-emotion", s.handlers.RecommendByEmotion)
		r.Post("/emotion/detect", s.handlers.DetectEmotion)
		r.Get("/emotion/supported", s.handlers.SupportedEmotions)
		r.Post("/history/save", s.handlers.SaveHistory)
		r.Get("/history/time-suggestion/{userID}", s.handlers.TimeSuggestion)
		r.Post("/preferences", s.handlers.SavePreferences)
		r.Get("/profile", s.handlers.TasteProfile)
	})
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	log.Printf("Starting server at http://%s", s.server.Addr)
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
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
		log.Println("Shutting down server...")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	log.Println("Server stopped")
	return nil
}

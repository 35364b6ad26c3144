package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
	"github.com/skillarena/backend/config"
	"github.com/skillarena/backend/database"
	"github.com/skillarena/backend/lifecycle"
	"github.com/skillarena/backend/services"
)

type Server struct {
	*http.Server
	startupTime time.Time
}

func NewServer(cfg config.Config, db database.Database, manager *lifecycle.Manager, opts ...RouterOption) (Server, error) {
	address := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	startupTime := time.Now()

	opts = append([]RouterOption{withConfig(cfg), withStartupTime(startupTime)}, opts...)
	router := newRouter(db, manager, opts...)

	server := &http.Server{
		Addr:         address,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeoutDuration(),
		WriteTimeout: cfg.WriteTimeoutDuration(),
		IdleTimeout:  cfg.IdleTimeoutDuration(),
	}

	return Server{server, startupTime}, nil
}

type router struct {
	config      config.Config
	startupTime time.Time
	search      contestSearcher
	cache       leaderboardCache
	uploads     imageUploader
}

type RouterOption func(*router)

func withConfig(c config.Config) RouterOption {
	return func(r *router) {
		r.config = c
	}
}

func withStartupTime(startupTime time.Time) RouterOption {
	return func(r *router) {
		r.startupTime = startupTime
	}
}

// WithSearch routes contest text search through Elasticsearch.
func WithSearch(s *services.ContestSearch) RouterOption {
	return func(r *router) {
		if s != nil {
			r.search = s
		}
	}
}

func WithLeaderboardCache(c *services.LeaderboardCache) RouterOption {
	return func(r *router) {
		if c != nil {
			r.cache = c
		}
	}
}

func WithImageUploads(u *services.ImageUploads) RouterOption {
	return func(r *router) {
		if u != nil {
			r.uploads = u
		}
	}
}

func newRouter(db database.Database, manager *lifecycle.Manager, opts ...RouterOption) *chi.Mux {
	var router router
	for _, opt := range opts {
		opt(&router)
	}

	chiRouter := chi.NewRouter()
	chiRouter.Use(LogInternalServerErrors)
	chiRouter.Use(HTTPLoggingMiddleware)

	tokens := newTokenIssuer(router.config.Auth.JWTSecret, router.config.Auth.JWTTTL)
	handlers := initializeHandlers(db, manager, tokens, router)
	authMiddleware := newAuthMiddleware(tokens, db.UserRepo())

	acceptedOrigins := router.config.AcceptedOrigins
	chiRouter.Use(CORSCheckMiddleware(acceptedOrigins))
	chiRouter.Use(corsMiddleware(acceptedOrigins))

	setupPublicRoutes(chiRouter, handlers, router.config.Auth.BackendPassword)
	setupAuthenticatedRoutes(chiRouter, handlers, authMiddleware)

	return chiRouter
}

func (s Server) Start(errChannel chan<- error) {
	log.Info().Msgf("Server started on: %s", s.Addr)
	errChannel <- s.ListenAndServe()
}

func (s Server) ShutdownGracefully(timeout time.Duration) {
	log.Info().Msg("Gracefully shutting down...")

	gracefullCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.Shutdown(gracefullCtx); err != nil {
		log.Error().Msgf("Error shutting down the server: %v", err)
	} else {
		log.Info().Msg("HttpServer gracefully shut down")
	}
}

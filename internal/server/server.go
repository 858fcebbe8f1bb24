package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/onairfm/apiserver/config"
	"github.com/onairfm/apiserver/internal/db"
	"github.com/onairfm/apiserver/internal/events"
	"github.com/onairfm/apiserver/internal/handlers"
	"github.com/onairfm/apiserver/internal/services"
	"github.com/onairfm/apiserver/internal/storage"
	"github.com/onairfm/apiserver/internal/store"
)

// Server wraps the HTTP server, router, and background poller.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	bus        *events.Bus
	nowPlaying *services.NowPlayingService

	pollCancel context.CancelFunc
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	bus, err := events.NewBus(ctx, cfg.Events)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	objectStore, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	var artwork *services.ArtworkCache
	if objectStore != nil {
		if err := objectStore.EnsureBucket(ctx); err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		artwork = services.NewArtworkCache(objectStore)
	}

	ratingRepo := store.NewRatingRepository(dbConn)
	userRepo := store.NewUserRepository(dbConn)

	// A nil *Bus must stay a nil interface inside the service.
	var publisher services.RatingPublisher
	if bus != nil {
		publisher = bus
	}
	ratingService := services.NewRatingService(ratingRepo, publisher)
	userService := services.NewUserService(userRepo)

	var nowPlaying *services.NowPlayingService
	if cfg.Stream.MetadataURL != "" {
		nowPlaying = services.NewNowPlayingService(cfg.Stream, artwork)
	}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/ratings", func(r chi.Router) {
		handlers.RatingRouter(r, ratingService)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.UserRouter(r, userService)
	})
	if nowPlaying != nil {
		router.Route("/nowplaying", func(r chi.Router) {
			handlers.NowPlayingRouter(r, nowPlaying, artwork)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		bus:        bus,
		nowPlaying: nowPlaying,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the metadata poller and the HTTP server.
func (s *Server) Start() error {
	if s.nowPlaying != nil {
		ctx, cancel := context.WithCancel(context.Background())
		s.pollCancel = cancel
		go s.nowPlaying.Run(ctx)
	}
	return s.httpServer.ListenAndServe()
}

// Shutdown stops the poller and releases resources.
func (s *Server) Shutdown() error {
	if s.pollCancel != nil {
		s.pollCancel()
	}
	if s.bus != nil {
		_ = s.bus.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/globaltrotters/apiserver/config"
	"github.com/globaltrotters/apiserver/internal/cache"
	"github.com/globaltrotters/apiserver/internal/db"
	"github.com/globaltrotters/apiserver/internal/handlers"
	"github.com/globaltrotters/apiserver/internal/llm"
	"github.com/globaltrotters/apiserver/internal/mq"
	"github.com/globaltrotters/apiserver/internal/places"
	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/internal/storage"
	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jmoiron/sqlx"
	"github.com/rs/cors"
)

// Server wraps the HTTP server, its router and the connections it owns.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sqlx.DB
	mq         *mq.MQ
	cache      *cache.Cache
	limiters   []*handlers.RateLimiter
}

// New connects every configured backend and registers the routes. Optional
// backends (object storage, broker, Redis, Geoapify, Gemini) are skipped when
// their settings are empty, and the features needing them answer 503.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	jwtSecret := strings.TrimSpace(cfg.JWT.Secret)
	if jwtSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	s := &Server{db: dbConn}

	deps, err := s.connect(ctx, cfg)
	if err != nil {
		_ = s.Shutdown(context.Background())
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	tripRepo := store.NewTripRepository(dbConn)
	itineraryRepo := store.NewItineraryRepository(dbConn)
	cityRepo := store.NewCityRepository(dbConn)
	budgetRepo := store.NewBudgetRepository(dbConn)
	communityRepo := store.NewCommunityRepository(dbConn)
	statsRepo := store.NewStatsRepository(dbConn)

	authService := services.NewAuthService(userRepo, deps.publisher, services.AuthConfig{
		Secret:          jwtSecret,
		TokenTTL:        cfg.JWT.TTL,
		AdminSignupCode: cfg.AdminSignupCode,
	})
	userService := services.NewUserService(userRepo)
	tripService := services.NewTripService(tripRepo, itineraryRepo, budgetRepo)
	searchService := services.NewSearchService(cityRepo, tripRepo, itineraryRepo, deps.places)
	plannerService := services.NewPlannerService(userRepo, tripRepo, itineraryRepo, tripService, deps.model, deps.geocoder, deps.publisher)
	communityService := services.NewCommunityService(communityRepo, tripRepo, userRepo, deps.publisher)
	budgetService := services.NewBudgetService(cityRepo, tripRepo, budgetRepo)
	profileService := services.NewProfileService(userRepo, tripService, deps.photos)
	adminService := services.NewAdminService(userRepo, statsRepo)

	authMiddleware := handlers.RequireAuth(authService)
	adminMiddleware := handlers.RequireAdmin(userService)

	authLimiter := handlers.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	searchLimiter := handlers.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	s.limiters = []*handlers.RateLimiter{authLimiter, searchLimiter}

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
		handlers.SecurityHeaders,
		cors.New(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Content-Type", "Authorization"},
			AllowCredentials: true,
		}).Handler,
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		r.Use(authLimiter.Limit)
		handlers.AuthRouter(r, authService, userService, authMiddleware)
	})
	router.Route("/profile", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.ProfileRouter(r, profileService)
	})
	router.Route("/users", func(r chi.Router) {
		handlers.PhotoRouter(r, profileService)
	})
	router.Route("/trips", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.TripRouter(r, tripService, plannerService)
		handlers.SearchRouter(r, searchService, searchLimiter.Limit)
		handlers.TripBudgetRouter(r, budgetService)
	})
	router.Route("/budgets", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.BudgetRouter(r, budgetService)
	})
	router.Route("/activity", func(r chi.Router) {
		r.Use(authMiddleware)
		handlers.ActivityRouter(r, budgetService)
	})
	router.Route("/community", func(r chi.Router) {
		handlers.CommunityRouter(r, communityService, authMiddleware)
	})
	router.Route("/admin", func(r chi.Router) {
		r.Use(authMiddleware, adminMiddleware)
		handlers.AdminRouter(r, adminService)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	s.router = router
	// AI planning waits on the model, so writes outlast the request timeout.
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// dependencies holds the optional collaborators as interfaces so a disabled
// backend is a true nil rather than a typed nil pointer.
type dependencies struct {
	publisher services.Publisher
	photos    services.PhotoStorage
	places    services.PlacesClient
	geocoder  services.Geocoder
	model     services.TextGenerator
}

func (s *Server) connect(ctx context.Context, cfg config.Config) (dependencies, error) {
	var deps dependencies

	photos, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		return deps, fmt.Errorf("storage: %w", err)
	}
	if photos != nil {
		deps.photos = photos
	} else {
		log.Printf("server: object storage disabled, profile photos unavailable")
	}

	broker, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		return deps, fmt.Errorf("mq: %w", err)
	}
	if broker != nil {
		s.mq = broker
		deps.publisher = broker
	}

	var geocodeCache places.Cache
	if strings.TrimSpace(cfg.Redis.Addr) != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.Redis)
		if err != nil {
			return deps, err
		}
		s.cache = redisCache
		geocodeCache = redisCache
	}

	if strings.TrimSpace(cfg.Geoapify.APIKey) != "" {
		client, err := places.NewClient(cfg.Geoapify, geocodeCache, cfg.Redis.GeocodeTTL)
		if err != nil {
			return deps, err
		}
		deps.places = client
		deps.geocoder = client
	} else {
		log.Printf("server: GEOAPIFY_API_KEY not set, live search unavailable")
	}

	if strings.TrimSpace(cfg.Gemini.APIKey) != "" {
		model, err := llm.NewGemini(ctx, cfg.Gemini)
		if err != nil {
			return deps, fmt.Errorf("gemini: %w", err)
		}
		deps.model = model
	} else {
		log.Printf("server: GEMINI_API_KEY not set, AI planning unavailable")
	}

	return deps, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases every connection the
// server owns.
func (s *Server) Shutdown(ctx context.Context) error {
	var errs []error
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	for _, limiter := range s.limiters {
		limiter.Stop()
	}
	if s.mq != nil {
		if err := s.mq.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close mq: %w", err))
		}
	}
	if s.cache != nil {
		if err := s.cache.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if s.db != nil {
		if err := s.db.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close db: %w", err))
		}
	}
	return errors.Join(errs...)
}

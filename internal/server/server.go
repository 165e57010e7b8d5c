package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/scholarhub/apiserver/config"
	"github.com/scholarhub/apiserver/internal/auth"
	"github.com/scholarhub/apiserver/internal/db"
	"github.com/scholarhub/apiserver/internal/handlers"
	"github.com/scholarhub/apiserver/internal/logging"
	"github.com/scholarhub/apiserver/internal/metrics"
	"github.com/scholarhub/apiserver/internal/mq"
	"github.com/scholarhub/apiserver/internal/payment"
	"github.com/scholarhub/apiserver/internal/services"
	"github.com/scholarhub/apiserver/internal/storage"
	"github.com/scholarhub/apiserver/internal/store"
	"go.uber.org/zap"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
	logger     *zap.Logger

	stopCleanup context.CancelFunc
}

const (
	// handlerTimeout must stay below writeTimeout.
	handlerTimeout = 20 * time.Second
	writeTimeout   = 30 * time.Second

	limiterCleanupInterval = time.Minute
)

// New constructs a Server with its dependencies. The database pool and the
// broker connection are opened here and released by Shutdown.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	location, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", cfg.TimeZone, err)
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	objects, err := storage.FromConfig(ctx, cfg.Storage)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	events, err := mq.FromConfig(ctx, cfg.MQ)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("init mq: %w", err)
	}

	var provider payment.Provider = payment.Disabled{}
	if cfg.Payment.StripeSecretKey != "" {
		stripeProvider, err := payment.NewStripeProvider(cfg.Payment.StripeSecretKey, cfg.Payment.Currency)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		provider = stripeProvider
	} else {
		logger.Warn("STRIPE_SECRET_KEY not set, payment intents are disabled")
	}

	userRepo := store.NewUserRepository(dbConn)
	applicationRepo := store.NewApplicationRepository(dbConn)
	scholarshipRepo := store.NewScholarshipRepository(dbConn)
	reviewRepo := store.NewReviewRepository(dbConn)

	applicationOpts := []services.ApplicationOption{
		services.WithLocation(location),
		services.WithLogger(logger),
	}
	if events != nil {
		applicationOpts = append(applicationOpts, services.WithEvents(events, cfg.MQ.Channel))
	}

	userService := services.NewUserService(userRepo)
	applicationService := services.NewApplicationService(applicationRepo, applicationOpts...)
	scholarshipService := services.NewScholarshipService(scholarshipRepo, objects, logger)
	reviewService := services.NewReviewService(reviewRepo)
	paymentService := services.NewPaymentService(provider)

	issuer := auth.NewIssuer(cfg.JWTSecret)
	guards := handlers.NewGuards(issuer, auth.NewRoleGuard(userRepo), logger)
	limiter := handlers.NewRateLimiter(cfg.RateLimit.PerSecond, cfg.RateLimit.Burst)
	cleanupCtx, stopCleanup := context.WithCancel(context.Background())
	limiter.StartCleanup(cleanupCtx, limiterCleanupInterval)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		logging.RequestLogger(logger),
		middleware.Recoverer,
		metrics.InstrumentHandler,
		cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			AllowCredentials: true,
			MaxAge:           300,
		}),
		middleware.Timeout(handlerTimeout),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	handlers.AuthRouter(router, issuer, limiter, logger)
	handlers.UserRouter(router, userService, guards, logger)
	handlers.ApplicationRouter(router, applicationService, guards, logger)
	handlers.ScholarshipRouter(router, scholarshipService, guards, logger)
	handlers.ReviewRouter(router, reviewService, guards, logger)
	handlers.PaymentRouter(router, paymentService, guards, logger)

	port := cfg.ServerPort
	if port == 0 {
		port = 5000
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: writeTimeout,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
		logger:     logger,

		stopCleanup: stopCleanup,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server. It returns nil after a graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("server listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown drains in-flight requests, then releases the broker connection
// and the database pool.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.stopCleanup != nil {
		s.stopCleanup()
	}
	if s.events != nil {
		if closeErr := s.events.Close(); closeErr != nil {
			s.logger.Warn("close mq", zap.Error(closeErr))
		}
	}
	if s.db != nil {
		if closeErr := s.db.Close(); closeErr != nil {
			s.logger.Warn("close database", zap.Error(closeErr))
		}
	}
	return err
}

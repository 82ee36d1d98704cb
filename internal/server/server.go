package server

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"github.com/heptatravel/apiserver/config"
	"github.com/heptatravel/apiserver/internal/db"
	"github.com/heptatravel/apiserver/internal/handlers"
	"github.com/heptatravel/apiserver/internal/mail"
	"github.com/heptatravel/apiserver/internal/media"
	"github.com/heptatravel/apiserver/internal/ratelimit"
	"github.com/heptatravel/apiserver/internal/services"
	"github.com/heptatravel/apiserver/internal/store"
	"github.com/heptatravel/apiserver/internal/token"
	"github.com/sirupsen/logrus"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	mailQueue  *mail.Queue
	log        *logrus.Logger
}

// New constructs a Server with all routes wired. Optional subsystems
// (rate limiting via Redis, mail delivery, media storage) degrade
// gracefully when unconfigured.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	log := logrus.New()
	log.SetFormatter(&logrus.JSONFormatter{})

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	codec, err := token.NewCodec(cfg.JWT)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	tourRepo := store.NewTourRepository(dbConn)
	bookingRepo := store.NewBookingRepository(dbConn)
	reviewRepo := store.NewReviewRepository(dbConn)
	blogRepo := store.NewBlogRepository(dbConn)

	userService := services.NewUserService(userRepo, cfg.JWT.BcryptCost)
	tourService := services.NewTourService(tourRepo)
	bookingService := services.NewBookingService(bookingRepo, tourRepo)
	reviewService := services.NewReviewService(reviewRepo, tourRepo)
	blogService := services.NewBlogService(blogRepo)

	limiter := newLimiter(cfg.RateLimit)
	limit := ratelimit.Middleware(limiter, log)

	mailQueue := newMailQueue(ctx, cfg.Mail, log)
	mediaStore := newMediaStore(ctx, cfg.Media, log)

	authMiddleware := handlers.NewAuthMiddleware(codec, userService)
	var mailer mail.Enqueuer
	if mailQueue != nil {
		mailer = mailQueue
	}
	authHandler := handlers.NewAuthHandler(userService, codec, mailer, mediaStore, log)
	reviewHandler := handlers.NewReviewHandler(reviewService, log)
	tourHandler := handlers.NewTourHandler(tourService, reviewService, mediaStore, log)
	bookingHandler := handlers.NewBookingHandler(bookingService, log)
	blogHandler := handlers.NewBlogHandler(blogService, log)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/api/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler, authMiddleware, limit)
	})
	router.Route("/api/tours", func(r chi.Router) {
		handlers.TourRouter(r, tourHandler, reviewHandler, authMiddleware)
	})
	router.Route("/api/bookings", func(r chi.Router) {
		handlers.BookingRouter(r, bookingHandler, authMiddleware)
	})
	router.Route("/api/blogs", func(r chi.Router) {
		handlers.BlogRouter(r, blogHandler, authMiddleware)
	})

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
		mailQueue:  mailQueue,
		log:        log,
	}, nil
}

func newLimiter(cfg config.RateLimitConfig) ratelimit.Limiter {
	limiterConfig := ratelimit.Config{Requests: cfg.Requests, Window: cfg.Window}
	if cfg.RedisAddr == "" {
		return ratelimit.NewMemoryLimiter(limiterConfig)
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	return ratelimit.NewRedisLimiter(client, limiterConfig, "auth")
}

func newMailQueue(ctx context.Context, cfg config.MailConfig, log *logrus.Logger) *mail.Queue {
	var (
		backend mail.Backend
		err     error
	)
	switch cfg.Backend {
	case "rabbitmq":
		backend, err = mail.NewRabbitMQBackend(cfg.RabbitMQ)
	case "pubsub":
		backend, err = mail.NewPubSubBackend(ctx, cfg.PubSub)
	default:
		return nil
	}
	if err != nil {
		log.WithError(err).Warn("mail backend unavailable, delivery disabled")
		return nil
	}
	return mail.NewQueue(backend, cfg.Channel, cfg.From, cfg.BaseURL)
}

func newMediaStore(ctx context.Context, cfg config.MediaConfig, log *logrus.Logger) *media.Store {
	var (
		backend media.ObjectStore
		err     error
	)
	switch cfg.Backend {
	case "minio":
		backend, err = media.NewMinioClient(cfg.Minio)
	case "gcs":
		backend, err = media.NewGCSClient(ctx, cfg.GCS)
	default:
		return nil
	}
	if err != nil {
		log.WithError(err).Warn("media backend unavailable, uploads disabled")
		return nil
	}

	store := media.NewStore(backend)
	if err := store.EnsureBucket(ctx); err != nil {
		log.WithError(err).Warn("media bucket check failed, uploads disabled")
		return nil
	}
	return store
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.mailQueue != nil {
		_ = s.mailQueue.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}

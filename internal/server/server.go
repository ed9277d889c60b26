package server

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"theraslot/internal/auth"
	"theraslot/internal/availability"
	"theraslot/internal/booking"
	"theraslot/internal/config"
	"theraslot/internal/notify"
	"theraslot/internal/therapist"
	"theraslot/internal/timezone"
)

type Server struct {
	router   *gin.Engine
	httpSrv  *http.Server
	db       *sqlx.DB
	config   *config.Config
	notifier *notify.Service
}

func New(db *sqlx.DB, cache *redis.Client, cfg *config.Config, notifier *notify.Service) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(corsMiddleware())
	router.Use(RateLimitMiddleware(cfg.RateLimitRPS, cfg.RateLimitBurst))
	router.Use(TimeoutMiddleware(cfg.RequestTimeout))

	tz := timezone.New(cfg.DefaultTimezone)

	therapistRepo := therapist.NewRepository(db)
	directory := therapist.NewDirectory(therapistRepo, cache)
	therapistHandler := therapist.NewHandler(directory)

	availRepo := availability.NewRepository(db)
	availService := availability.NewService(availRepo, directory, tz, cfg.DefaultTherapistCode)
	availHandler := availability.NewHandler(availService)

	bookingRepo := booking.NewRepository(db)
	bookingService := booking.NewService(bookingRepo, availRepo, directory, tz, notifier)
	bookingHandler := booking.NewHandler(bookingService)

	// An empty secret disables caller auth; anything non-empty requires a
	// valid scheduler-scope bearer token on every scheduling route.
	protected := router.Group("/")
	if cfg.JWTSecret != "" {
		protected.Use(auth.Middleware(cfg.JWTSecret))
	}
	therapistHandler.RegisterRoutes(protected)
	availHandler.RegisterRoutes(protected)
	bookingHandler.RegisterRoutes(protected)

	router.GET("/health", Health(db))
	router.GET("/metrics", Metrics())
	router.GET("/test-notification", TestNotification(notifier))
	SetupSwagger(router)

	return &Server{
		router:   router,
		db:       db,
		config:   cfg,
		notifier: notifier,
	}
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) Start(port string) error {
	s.httpSrv = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.httpSrv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}

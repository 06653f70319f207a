package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medishare/config"
	"medishare/internal/handler"
	"medishare/internal/middleware"
	"medishare/internal/transport/httpdto"
	medishare_errors "medishare/pkg/errors"
	"medishare/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Server struct {
	httpServer *http.Server
	engine     *gin.Engine
	config     *config.Config
	logger     *logger.Logger
}

var (
	ReleaseMode = "release"
	DebugMode   = "debug"
	TestMode    = "test"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	User     *handler.UserHandler
	Donation *handler.DonationHandler
}

// Dependencies are the cross-cutting pieces the routes need besides handlers.
type Dependencies struct {
	Resolver    middleware.ActorResolver
	RateLimiter middleware.RateLimiter
	// HealthCheck reports whether the backing store is reachable.
	HealthCheck func(ctx context.Context) error
	// MetricsHandler serves /metrics. Defaults to the prometheus default registry.
	MetricsHandler http.Handler
}

func New(cfg *config.Config, l *logger.Logger) *Server {
	if cfg.AppMode == ReleaseMode {
		gin.SetMode(gin.ReleaseMode)
	} else if cfg.AppMode == TestMode {
		gin.SetMode(gin.TestMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.MaxMultipartMemory = cfg.UploadMaxBytes

	return &Server{
		httpServer: &http.Server{
			Addr:              fmt.Sprintf(":%s", cfg.AppPort),
			Handler:           engine,
			ReadHeaderTimeout: 10 * time.Second,
		},
		engine: engine,
		config: cfg,
		logger: l,
	}
}

// Engine exposes the router, mainly for tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) SetupRoutes(handlers *Handlers, deps Dependencies) {
	s.engine.Use(middleware.RequestIDMiddleware())
	s.engine.Use(middleware.CORSMiddleware(s.config.FrontendURL))
	s.engine.Use(middleware.LoggingMiddleware(s.logger))
	s.engine.Use(middleware.ErrorHandler(s.logger))

	s.engine.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"message": "pong"}))
	})

	s.engine.GET("/health", func(c *gin.Context) {
		if deps.HealthCheck != nil {
			if err := deps.HealthCheck(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, httpdto.NewErrorResponse(medishare_errors.KindExternalService, "database unreachable", ""))
				return
			}
		}
		c.JSON(http.StatusOK, httpdto.NewSuccessResponse(gin.H{"status": "healthy"}))
	})

	metricsHandler := deps.MetricsHandler
	if metricsHandler == nil {
		metricsHandler = promhttp.Handler()
	}
	s.engine.GET("/metrics", gin.WrapH(metricsHandler))

	api := s.engine.Group("/api")
	requireAuth := middleware.AuthMiddleware(deps.Resolver)

	auth := api.Group("/auth")
	auth.Use(middleware.AuthRateLimitMiddleware(deps.RateLimiter))
	{
		auth.POST("/register", handlers.Auth.Register)
		auth.POST("/login", handlers.Auth.Login)
	}

	users := api.Group("/users", requireAuth)
	{
		users.GET("/profile", handlers.User.GetProfile)
		users.PUT("/profile", handlers.User.UpdateProfile)
		users.GET("/donors", handlers.User.ListDonors)
		users.GET("/receivers", handlers.User.ListReceivers)
	}

	donations := api.Group("/donations", requireAuth)
	{
		submit := middleware.DonationRateLimitMiddleware(deps.RateLimiter)
		donations.POST("/device", submit, handlers.Donation.CreateDevice)
		donations.POST("/medicine", submit, handlers.Donation.CreateMedicine)

		donations.GET("", handlers.Donation.List)
		donations.GET("/search", handlers.Donation.Search)
		donations.GET("/:id", handlers.Donation.Get)
		donations.PUT("/:id/status", handlers.Donation.SetStatus)
		donations.PUT("/:id/request", handlers.Donation.Request)
		donations.PUT("/:id/donor-status", handlers.Donation.DonorStatus)
		donations.DELETE("/:id", handlers.Donation.Delete)
	}
}

func (s *Server) Start() error {
	go func() {
		if s.logger != nil {
			s.logger.Infof("Starting the server on port %s...", s.config.AppPort)
		}
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if s.logger != nil {
				s.logger.Errorf("Error in starting the server: %s", err)
			}
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)

	<-quit

	if s.logger != nil {
		s.logger.Infof("Quitting signal received.. Shutting down after 5 seconds")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		if s.logger != nil {
			s.logger.Infof("Error in the graceful shutdown of the server: %s", err)
		}
		return err
	}

	if s.logger != nil {
		s.logger.Infof("Server stopped gracefully")
	}

	return nil
}

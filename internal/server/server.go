// Package server
//
// @title EnglishPod API
// @version 1.0
// @description Course delivery platform API
// @host localhost:8080
// @BasePath /
package server

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/go-playground/validator/v10"
	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/Hankatuur/englishpod/internal/access"
	"github.com/Hankatuur/englishpod/internal/auth"
	"github.com/Hankatuur/englishpod/internal/config"
	"github.com/Hankatuur/englishpod/internal/content"
	"github.com/Hankatuur/englishpod/internal/enrollments"
	"github.com/Hankatuur/englishpod/internal/mediastore"
	"github.com/Hankatuur/englishpod/internal/models"
	"github.com/Hankatuur/englishpod/internal/playback"
	"github.com/Hankatuur/englishpod/internal/validate"
)

// Server represents the HTTP server
type Server struct {
	router             *gin.Engine
	db                 *gorm.DB
	config             *config.Config
	logger             zerolog.Logger
	validator          *validator.Validate
	asynqClient        *asynq.Client
	store              *mediastore.Store
	contentService     *content.Service
	enrollmentsService *enrollments.Service
	oracle             access.Oracle
	tracker            *playback.Tracker
	version            string
}

// New creates a new server instance
func New(cfg *config.Config, zlog zerolog.Logger, version string) (*Server, error) {
	// Initialize database with production settings
	db, err := initDatabase(cfg, zlog)
	if err != nil {
		return nil, err
	}

	// Run database migrations
	if err := models.AutoMigrate(db); err != nil {
		return nil, err
	}

	// Initialize JWT authentication
	// Load JWT secret from database (auto-generated during first setup)
	var appConfig models.Config
	if err := db.First(&appConfig).Error; err == nil {
		auth.InitializeJWT(appConfig.JWTSecret)
		zlog.Debug().Msg("Loaded JWT secret from database")
	} else {
		// No config yet - first setup hasn't happened
		// JWT will be initialized during setupFirstAdmin
		zlog.Info().Msg("No config found - JWT will be initialized during first setup")
	}

	// Initialize validator with the form rules as custom tags
	validatorInstance := validator.New()
	if err := validate.RegisterValidators(validatorInstance); err != nil {
		return nil, fmt.Errorf("failed to register validators: %w", err)
	}

	// Initialize Asynq client for enqueueing tasks
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr: cfg.Redis.Address,
	})

	// Media store on the real filesystem
	store := mediastore.NewOSStore(cfg.Media.Root)

	// Create server
	server := &Server{
		db:                 db,
		config:             cfg,
		logger:             zlog,
		validator:          validatorInstance,
		asynqClient:        asynqClient,
		store:              store,
		contentService:     content.NewService(db, store, zlog),
		enrollmentsService: enrollments.NewService(db, zlog),
		oracle:             access.NewProfileOracle(db),
		tracker:            playback.NewTracker(zlog),
		version:            version,
	}

	// Setup router
	server.setupRouter()

	return server, nil
}

// initDatabase initializes the database connection with production settings
func initDatabase(cfg *config.Config, zlog zerolog.Logger) (*gorm.DB, error) {
	const (
		maxOpenConns    = 8    // Reduced for SQLite efficiency
		maxIdleConns    = 4    // Reduced proportionally
		connMaxLifetime = 300  // 5 minutes
		busyTimeout     = 5000 // 5 seconds
	)

	// Open database connection
	db, err := gorm.Open(sqlite.Open(cfg.Database.URL), &gorm.Config{
		Logger: logger.New(
			log.New(os.Stdout, "\r\n", log.LstdFlags),
			logger.Config{
				LogLevel:                  logger.Error,
				IgnoreRecordNotFoundError: true,
				SlowThreshold:             200 * time.Millisecond,
			},
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Get underlying sql.DB to configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool settings
	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Second)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Apply SQLite pragmas directly (connection string pragmas may not work with all drivers)
	// WAL mode must be set first for optimal concurrency
	pragmas := []string{
		"PRAGMA journal_mode=WAL", // Enable WAL mode for better concurrency
		"PRAGMA synchronous=NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout=%d", busyTimeout),
		"PRAGMA foreign_keys=1",
		"PRAGMA temp_store=2",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			zlog.Warn().Str("pragma", pragma).Err(err).Msg("Failed to apply pragma")
		}
	}

	return db, nil
}

// setupRouter configures the Gin router with routes and middleware
func (s *Server) setupRouter() {
	// Set Gin mode based on environment
	gin.SetMode(gin.ReleaseMode)

	s.router = gin.New()

	// Add middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// CORS middleware
	s.router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Length", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Health check endpoint (no auth required)
	s.router.GET("/health", s.healthCheck)

	// Public auth endpoints (no auth required)
	s.router.POST("/api/setup", s.setupFirstAdmin)
	s.router.POST("/api/auth/login", s.login)
	s.router.POST("/api/auth/signup", s.signup)

	// Every /api route resolves the session if a token is present; the
	// access middleware per group decides what that session may reach.
	api := s.router.Group("/api")
	api.Use(SessionMiddleware(s.db, s.logger))

	// Public catalog (id/title/type only, no media access)
	api.GET("/catalog", RequireAccess(s.oracle, access.Public, s.logger), s.listCatalog)

	// Authenticated routes
	member := api.Group("")
	member.Use(RequireAccess(s.oracle, access.Authenticated, s.logger))
	{
		member.GET("/auth/me", s.getCurrentUser)

		// Course material
		member.GET("/content", s.listContent)
		member.GET("/content/:id", s.getContent)
		member.GET("/content/:id/file", s.getContentFile)
		member.POST("/content/:id/play", s.startPlayback)
		member.GET("/play/:sid", s.playbackStatus)
		member.DELETE("/play/:sid", s.stopPlayback)
		member.POST("/exercises/:id/answer", s.submitAnswer)

		// Enrollment recording (payment provider onApprove)
		member.POST("/enrollments", s.recordEnrollment)
		member.GET("/enrollments/me", s.myEnrollments)
	}

	// Admin routes
	admin := api.Group("")
	admin.Use(RequireAccess(s.oracle, access.AdminOnly, s.logger))
	{
		admin.GET("/users", s.listUsers)
		admin.POST("/users", s.createUser)
		admin.DELETE("/users/:id", s.deleteUser)

		admin.POST("/content", s.createContent)
		admin.PUT("/content/:id", s.updateContent)
		admin.DELETE("/content/:id", s.deleteContent)
		admin.POST("/content/:id/exercises", s.addExercise)
		admin.GET("/media/:bucket", s.listMedia)
		admin.GET("/system", s.systemStatus)
	}
}

// loggingMiddleware creates a custom logging middleware using zerolog
func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)

		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", duration).
			Str("client_ip", c.ClientIP()).
			Msg("HTTP request")
	}
}

// @Router /health [get]
// @Success 200 {object} map[string]interface{}
func (s *Server) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "online",
		"timestamp": time.Now().UTC(),
		"service":   "englishpod-api",
	})
}

// GetDB returns the database connection for use by workers
func (s *Server) GetDB() *gorm.DB {
	return s.db
}

// GetMediaStore returns the media store for use by workers
func (s *Server) GetMediaStore() *mediastore.Store {
	return s.store
}

// Router returns the configured gin engine, used by handler tests
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server
func (s *Server) Start() error {
	addr := ":" + s.config.Server.Port

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Create HTTP server with production timeouts
	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
		// Timeouts sized for large media uploads
		ReadTimeout:       180 * time.Second, // 3 minutes
		WriteTimeout:      180 * time.Second, // 3 minutes
		ReadHeaderTimeout: 30 * time.Second,  // 30 seconds
		IdleTimeout:       300 * time.Second, // 5 minutes
	}

	// Start server in goroutine
	go func() {
		s.logger.Info().Str("addr", addr).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error().Err(err).Msg("HTTP server error")
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	s.logger.Info().Msg("Received shutdown signal, shutting down gracefully...")

	// Close Asynq client
	if err := s.asynqClient.Close(); err != nil {
		s.logger.Warn().Err(err).Msg("Error closing Asynq client")
	}

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	s.logger.Info().Msg("Shutting down HTTP server...")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("Error shutting down HTTP server")
		return err
	}

	s.logger.Info().Msg("Server shutdown complete")

	// Close database connection to flush WAL writes
	if sqlDB, err := s.db.DB(); err == nil {
		s.logger.Info().Msg("Closing database connection...")
		if err := sqlDB.Close(); err != nil {
			s.logger.Error().Err(err).Msg("Error closing database")
		}
	}

	return nil
}

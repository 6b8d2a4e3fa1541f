// Package server contains HTTP and WebSocket handlers for the application's API endpoints.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	_ "schoolboard/docs" // swagger docs
	"schoolboard/internal/auth"
	"schoolboard/internal/comcigan"
	"schoolboard/internal/config"
	"schoolboard/internal/events"
	"schoolboard/internal/jobs"
	"schoolboard/internal/middleware"
	"schoolboard/internal/models"
	"schoolboard/internal/neis"
	"schoolboard/internal/notifications"
	"schoolboard/internal/repository"
	"schoolboard/internal/service"
	"schoolboard/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/swagger"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	objects  storage.ObjectStorage
	localDir string
	notifier *notifications.Notifier
	hub      *notifications.BoardHub
	kafka    *events.KafkaPublisher
	jobs     *jobs.Manager

	authService      *service.AuthService
	postService      *service.PostService
	reactionService  *service.ReactionService
	commentService   *service.CommentService
	favoriteService  *service.FavoriteService
	profileService   *service.ProfileService
	mealService      *service.MealService
	timetableService *service.TimetableService
	imageService     *service.ImageService
}

// NewServerWithDeps wires repositories, services and realtime plumbing on top
// of an open database and an optional Redis client.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	sessionRepo := repository.NewSessionRepository(db)

	s := &Server{
		config:         cfg,
		db:             db,
		redis:          redisClient,
		promMiddleware: middleware.InitMetrics("schoolboard-api"),
		hub:            notifications.NewBoardHub(),
		notifier:       notifications.NewNotifier(redisClient),
		jobs:           jobs.NewManager(),
	}

	objects, err := s.newObjectStorage()
	if err != nil {
		return nil, err
	}
	s.objects = objects

	ttl := time.Duration(cfg.SessionTTLHours) * time.Hour
	var sessions auth.SessionStore
	if cfg.SessionStore == "redis" && redisClient != nil {
		sessions = auth.NewRedisSessionStore(redisClient, ttl)
	} else {
		sessions = auth.NewDBSessionStore(sessionRepo, ttl)
	}
	if err := s.jobs.Register(jobs.SessionPurgeSpec, jobs.NewSessionPurgeJob(sessionRepo)); err != nil {
		return nil, fmt.Errorf("register session purge: %w", err)
	}

	publisher := s.newPublisher()
	ranker := service.NewBestRanker(postRepo)

	s.authService = service.NewAuthService(userRepo, sessions, auth.NewTokenIssuer(cfg.JWTSecret, ttl))
	s.postService = service.NewPostService(service.PostServiceDeps{
		Posts:     postRepo,
		Comments:  commentRepo,
		Reactions: repository.NewReactionRepository(db),
		Favorites: repository.NewFavoriteRepository(db),
		Images:    repository.NewImageRepository(db),
		Objects:   objects,
		Ranker:    ranker,
		Publisher: publisher,
	})
	s.reactionService = service.NewReactionService(repository.NewReactionRepository(db), ranker, publisher)
	s.commentService = service.NewCommentService(postRepo, commentRepo, publisher)
	s.favoriteService = service.NewFavoriteService(postRepo, repository.NewFavoriteRepository(db))
	s.profileService = service.NewProfileService(userRepo, repository.NewProfileRepository(db))
	s.imageService = service.NewImageService(postRepo, repository.NewImageRepository(db), objects, cfg)
	s.mealService = service.NewMealService(repository.NewMealRepository(db), neis.NewClient(neis.Config{
		BaseURL:    cfg.NeisBaseURL,
		APIKey:     cfg.NeisAPIKey,
		OfficeCode: cfg.NeisOfficeCode,
		SchoolCode: cfg.NeisSchoolCode,
	}))
	s.timetableService = service.NewTimetableService(
		comcigan.NewClient(cfg.ComciganBaseURL, cfg.ComciganSchoolCode),
		time.Duration(cfg.TimetableCacheMinutes)*time.Minute,
	)

	return s, nil
}

func (s *Server) newObjectStorage() (storage.ObjectStorage, error) {
	if s.config.StorageDriver != "minio" {
		s.localDir = s.config.ImageUploadDir
		return storage.NewLocalStorage(s.config.ImageUploadDir), nil
	}

	ms, err := storage.NewMinioStorage(storage.MinioConfig{
		Endpoint:      s.config.MinioEndpoint,
		AccessKey:     s.config.MinioAccessKey,
		SecretKey:     s.config.MinioSecretKey,
		UseSSL:        s.config.MinioUseSSL,
		Bucket:        s.config.MinioBucket,
		PublicBaseURL: s.config.PublicBaseURL,
	})
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := ms.EnsureBucket(ctx); err != nil {
		return nil, fmt.Errorf("minio bucket: %w", err)
	}
	return ms, nil
}

// newPublisher fans board events out to live clients and, when brokers are
// configured, to Kafka. With Redis the hub receives events through the
// notifier subscription so every instance sees them.
func (s *Server) newPublisher() events.Publisher {
	sinks := []events.Sink{}
	if s.notifier.Enabled() {
		sinks = append(sinks, events.Sink{Name: "redis", Publisher: s.notifier})
	} else {
		sinks = append(sinks, events.Sink{Name: "websocket", Publisher: s.hub})
	}
	if s.config.KafkaBrokers != "" {
		s.kafka = events.NewKafkaPublisher(s.config.KafkaBrokers, s.config.KafkaTopic)
		sinks = append(sinks, events.Sink{Name: "kafka", Publisher: s.kafka})
	}
	return events.NewFanout(sinks...)
}

// SetupMiddleware configures all global middleware for the application
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New(helmet.Config{
		CrossOriginResourcePolicy: "cross-origin",
	}))
	app.Use(middleware.StructuredLogger())

	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000,http://127.0.0.1:5173"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Author-Name, X-Student-Id, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later.",
			})
		},
	}))

	if s.authService != nil {
		app.Use(middleware.AuthContext(s.authService))
	}
}

// SetupRoutes configures all application routes
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	if s.localDir != "" {
		app.Static(storage.LocalURLPrefix, s.localDir)
	}

	api := app.Group("/api")
	api.Get("/metrics/dashboard", monitor.New(monitor.Config{
		Title: "Schoolboard Metrics Dashboard",
	}))
	api.Get("/swagger/*", swagger.HandlerDefault)

	api.Post("/signup", middleware.RateLimit(s.redis, 5, 10*time.Minute, "signup"), s.Signup)
	api.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	api.Post("/logout", s.Logout)
	api.Get("/whoami", s.WhoAmI)
	api.Get("/check-id", s.CheckID)

	posts := api.Group("/posts")
	posts.Get("/", s.GetPosts)
	posts.Get("/best", s.GetBestPosts)
	posts.Post("/", middleware.RateLimit(s.redis, 5, time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id", s.GetPost)
	posts.Delete("/:id", s.DeletePost)
	posts.Post("/:id/reaction", s.ReactToPost)
	posts.Post("/:id/favorite", s.ToggleFavorite)
	posts.Post("/:id/images", middleware.RateLimit(s.redis, 10, time.Minute, "upload_image"), s.UploadPostImages)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Put("/:postId/comments/:commentId", s.UpdateComment)
	posts.Delete("/:postId/comments/:commentId", s.DeleteComment)

	// Group-level Use would prefix-match /api/meals too, so auth is per route.
	me := api.Group("/me")
	requireLogin := middleware.AuthRequired()
	me.Get("/", requireLogin, s.GetMe)
	me.Put("/", requireLogin, s.UpdateMe)
	me.Get("/posts", requireLogin, s.listActivity(service.ActivityPosts))
	me.Get("/comments", requireLogin, s.listActivity(service.ActivityComments))
	me.Get("/favorites", requireLogin, s.listActivity(service.ActivityFavorites))

	meals := api.Group("/meals")
	meals.Get("/week", s.GetMealWeek)
	meals.Get("/:date", s.GetMealDishes)
	meals.Post("/:date/feedback", middleware.AuthRequired(), s.SubmitMealFeedback)
	meals.Get("/:date/summary", s.GetMealSummary)
	meals.Get("/:date/admin/comments", middleware.AuthRequired(), s.GetMealAdminComments)

	api.Get("/timetable", s.GetTimetable)

	api.Get("/ws/board", s.BoardWebSocketHandler())
}

// LivenessCheck reports that the process is up.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck pings the database and Redis. A server running without Redis
// is still ready; Redis only fails readiness when it is configured and down.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "unavailable"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overallStatus := "healthy"
	if dbStatus == "unhealthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overallStatus = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overallStatus,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// App builds the fiber application with middleware and routes.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:     "Schoolboard API",
		JSONEncoder: json.Marshal,
		JSONDecoder: json.Unmarshal,
		BodyLimit:   (s.config.ImageMaxUploadSizeMB*service.MaxImagesPerUpload + 1) * 1024 * 1024,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			if fe, ok := err.(*fiber.Error); ok {
				return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
			}
			middleware.Logger.ErrorContext(c.UserContext(), "Unhandled error", slog.String("error", err.Error()))
			return models.RespondWithError(c, fiber.StatusInternalServerError,
				models.NewInternalError(err))
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	return app
}

// Start starts the server
func (s *Server) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	s.shutdownCtx = ctx
	s.shutdownFn = cancel

	s.app = s.App()

	if s.notifier.Enabled() {
		go func() {
			if err := s.hub.StartWiring(s.shutdownCtx, s.notifier); err != nil {
				middleware.Logger.Error("Failed to start board hub wiring", slog.String("error", err.Error()))
			}
		}()
	}
	s.jobs.Start()

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return s.app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.shutdownFn != nil {
		s.shutdownFn()
	}

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("Error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if err := s.hub.Shutdown(ctx); err != nil {
		middleware.Logger.Error("Error shutting down board hub", slog.String("error", err.Error()))
	}
	s.jobs.Stop(ctx)

	if s.kafka != nil {
		if err := s.kafka.Close(); err != nil {
			middleware.Logger.Error("Error closing kafka writer", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("Error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("Error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}

// Package server exposes group feeds over HTTP and a websocket event stream.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"groupfeed/internal/config"
	"groupfeed/internal/identity"
	"groupfeed/internal/models"
	"groupfeed/internal/notifications"
	"groupfeed/internal/observability"
	"groupfeed/internal/repository"
	"groupfeed/internal/service"
	"groupfeed/internal/storage"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the already-initialized dependencies a Server is built from.
type Deps struct {
	DB    *gorm.DB
	Redis *redis.Client
	Media *storage.MediaStore
	// Local is set when objects live on the local filesystem and are served by /media.
	Local    *storage.LocalStore
	Identity identity.Provider
	// Tokens issues session tokens on login; nil disables /api/auth/login.
	Tokens service.TokenIssuer
}

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	shutdownCtx    context.Context
	shutdownFn     context.CancelFunc

	media    *storage.MediaStore
	local    *storage.LocalStore
	identity identity.Provider
	notifier *notifications.Notifier

	postService     *service.PostService
	reactionService *service.ReactionService
	commentService  *service.CommentService
	groupService    *service.GroupService
	authService     *service.AuthService
	backend         *feedBackend
}

var (
	promOnce sync.Once
	promMW   *fiberprometheus.FiberPrometheus
)

// initMetrics registers the HTTP collectors once per process; the default registry
// rejects a second registration.
func initMetrics() *fiberprometheus.FiberPrometheus {
	promOnce.Do(func() {
		promMW = fiberprometheus.New("groupfeed-api")
	})
	return promMW
}

// NewServer wires repositories and services over deps.
func NewServer(cfg *config.Config, deps Deps) (*Server, error) {
	if deps.DB == nil {
		return nil, errors.New("server: database is required")
	}
	if deps.Media == nil {
		return nil, errors.New("server: media store is required")
	}
	if deps.Identity == nil {
		return nil, errors.New("server: identity provider is required")
	}

	userRepo := repository.NewUserRepository(deps.DB)
	postRepo := repository.NewPostRepository(deps.DB)
	reactionRepo := repository.NewReactionRepository(deps.DB)
	commentRepo := repository.NewCommentRepository(deps.DB)
	groupRepo := repository.NewGroupRepository(deps.DB)

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		config:         cfg,
		db:             deps.DB,
		redis:          deps.Redis,
		promMiddleware: initMetrics(),
		shutdownCtx:    ctx,
		shutdownFn:     cancel,
		media:          deps.Media,
		local:          deps.Local,
		identity:       deps.Identity,
		notifier:       notifications.NewNotifier(deps.Redis),
	}
	s.postService = service.NewPostService(postRepo, groupRepo, deps.Media)
	s.reactionService = service.NewReactionService(postRepo, reactionRepo)
	s.commentService = service.NewCommentService(commentRepo, postRepo)
	s.groupService = service.NewGroupService(groupRepo, deps.Media)
	if deps.Tokens != nil {
		s.authService = service.NewAuthService(userRepo, deps.Tokens)
	}
	s.backend = &feedBackend{
		posts:     s.postService,
		reactions: s.reactionService,
		comments:  s.commentService,
		groups:    s.groupService,
		notifier:  s.notifier,
	}
	return s, nil
}

// App returns the fiber application, building it on first use.
func (s *Server) App() *fiber.App {
	if s.app != nil {
		return s.app
	}
	app := fiber.New(fiber.Config{
		AppName: "groupfeed",
		// A post edit may carry several files in one multipart body.
		BodyLimit: int(s.config.MaxUploadBytes()) * 4,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			var fe *fiber.Error
			if errors.As(err, &fe) {
				return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
			}
			return respondWithError(c, err)
		},
	})
	s.SetupMiddleware(app)
	s.SetupRoutes(app)
	s.app = app
	return app
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(s.promMiddleware.Middleware)
	}

	app.Use(StructuredLogger())

	// CORS runs before the limiter so rejected requests still carry CORS headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: strings.TrimSpace(origins) != "*",
		MaxAge:           86400,
	}))

	// 100 requests per minute per IP
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: time.Minute,
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
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health", s.HealthCheck)
	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}
	app.Get("/media/*", s.ServeMedia)

	api := app.Group("/api", s.OptionalAuth())

	api.Post("/auth/login", s.Login)

	groups := api.Group("/groups")
	groups.Get("/:id/permission", s.GetGroupPermission)
	groups.Get("/:id/posts", s.GetGroupPosts)
	groups.Post("/:id/posts", s.AuthRequired(), s.CreatePost)
	groups.Post("/:id/follow", s.AuthRequired(), s.FollowGroup)
	groups.Delete("/:id/follow", s.AuthRequired(), s.UnfollowGroup)
	groups.Get("/:id", s.GetGroup)

	posts := api.Group("/posts")
	posts.Post("/:id/like", s.AuthRequired(), s.LikePost)
	posts.Get("/:id/comments", s.GetComments)
	posts.Post("/:id/comments", s.AuthRequired(), s.CreateComment)
	posts.Put("/:id", s.AuthRequired(), s.UpdatePost)
	posts.Delete("/:id", s.AuthRequired(), s.DeletePost)

	media := api.Group("/media")
	media.Post("/", s.AuthRequired(), s.UploadMedia)
	media.Get("/resolve", s.ResolveMedia)

	api.Get("/ws/groups/:id/feed", upgradeRequired, s.FeedStreamHandler())
}

// HealthCheck reports database and Redis reachability.
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	if sqlDB, err := s.db.DB(); err != nil {
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

	// Redis is optional: without it feed events fan out in-process only.
	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}
	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start listens on the configured port until Shutdown.
func (s *Server) Start() error {
	app := s.App()
	observability.GlobalLogger.Info("Server starting", slog.String("port", s.config.Port))
	if err := app.Listen(":" + s.config.Port); err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	// Ends every feed stream and its subscriptions.
	s.shutdownFn()

	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			observability.GlobalLogger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			observability.GlobalLogger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			observability.GlobalLogger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	observability.GlobalLogger.Info("Server shutdown complete")
	return nil
}

// viewerID returns the authenticated user for the request, 0 when anonymous.
func viewerID(c *fiber.Ctx) uint {
	return identity.ViewerID(c.UserContext())
}

// statusForCode maps an AppError code onto an HTTP status.
func statusForCode(code string) int {
	switch code {
	case models.CodePermissionDenied:
		return fiber.StatusForbidden
	case models.CodeUnauthorized:
		return fiber.StatusUnauthorized
	case models.CodeNotFound:
		return fiber.StatusNotFound
	case models.CodeValidation:
		return fiber.StatusBadRequest
	case models.CodeStorageWrite, models.CodeStorageRead:
		return fiber.StatusBadGateway
	case models.CodeTransient:
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}

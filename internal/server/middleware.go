package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"groupfeed/internal/identity"
	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// ContextMiddleware copies the request ID from fiber locals into the request context so
// the context-aware logger picks it up in deeper layers.
func ContextMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()
		if rid, ok := c.Locals("requestid").(string); ok {
			ctx = observability.WithRequestID(ctx, rid)
			ctx = observability.WithCorrelationID(ctx, rid)
		}
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// StructuredLogger logs every request once it has been handled.
func StructuredLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		fields := []any{
			slog.Int("status", c.Response().StatusCode()),
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.String("ip", c.IP()),
			slog.Duration("latency", time.Since(start)),
			slog.String("user_agent", c.Get("User-Agent")),
		}
		if err != nil {
			fields = append(fields, slog.String("error", err.Error()))
			observability.GlobalLogger.ErrorContext(c.UserContext(), "request failed", fields...)
		} else {
			observability.GlobalLogger.InfoContext(c.UserContext(), "request processed", fields...)
		}
		return err
	}
}

// bearerToken reads the token from the Authorization header, falling back to the
// token query parameter browsers use for websocket upgrades.
func bearerToken(c *fiber.Ctx) string {
	if header := c.Get(fiber.HeaderAuthorization); header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
		return ""
	}
	// /media/* uses token for signed URLs and never reaches this middleware.
	return c.Query("token")
}

// OptionalAuth attaches the viewer when a token is present. Requests without a token
// continue anonymously; a token that does not verify is rejected.
func (s *Server) OptionalAuth() fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := bearerToken(c)
		if raw == "" {
			return c.Next()
		}
		viewer, err := s.identity.Verify(c.UserContext(), raw)
		if err != nil {
			var appErr *models.AppError
			if !errors.As(err, &appErr) {
				err = &models.AppError{Code: models.CodeUnauthorized, Message: "Invalid or expired token", Err: err}
			}
			return respondWithError(c, err)
		}
		c.Locals("userID", viewer.ID)
		c.Locals("viewer", viewer)
		ctx := identity.WithViewer(c.UserContext(), viewer)
		ctx = observability.WithUserID(ctx, viewer.ID)
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// AuthRequired rejects anonymous requests. It must run after OptionalAuth.
func (s *Server) AuthRequired() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if viewerID(c) == 0 {
			return respondWithError(c, models.NewUnauthorizedError("Authentication required"))
		}
		return c.Next()
	}
}

func upgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

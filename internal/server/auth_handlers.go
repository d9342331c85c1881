package server

import (
	"groupfeed/internal/models"
	"groupfeed/internal/service"

	"github.com/gofiber/fiber/v2"
)

// Login handles POST /api/auth/login
func (s *Server) Login(c *fiber.Ctx) error {
	if s.authService == nil {
		return respondWithError(c, models.NewNotFoundError("Login provider", "local"))
	}
	var req service.LoginInput
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}
	res, err := s.authService.Login(c.UserContext(), req)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(res)
}

package server

import (
	"github.com/gofiber/fiber/v2"
)

// GetGroup handles GET /api/groups/:id
func (s *Server) GetGroup(c *fiber.Ctx) error {
	groupID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.groupService.GetGroupView(c.UserContext(), groupID, viewerID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(view)
}

// GetGroupPermission handles GET /api/groups/:id/permission
func (s *Server) GetGroupPermission(c *fiber.Ctx) error {
	groupID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	perm, err := s.groupService.Permission(c.UserContext(), groupID, viewerID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(perm.View())
}

// FollowGroup handles POST /api/groups/:id/follow
func (s *Server) FollowGroup(c *fiber.Ctx) error {
	return s.setFollowing(c, true)
}

// UnfollowGroup handles DELETE /api/groups/:id/follow
func (s *Server) UnfollowGroup(c *fiber.Ctx) error {
	return s.setFollowing(c, false)
}

func (s *Server) setFollowing(c *fiber.Ctx, follow bool) error {
	groupID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	userID := viewerID(c)
	if follow {
		err = s.backend.Follow(ctx, groupID, userID)
	} else {
		err = s.backend.Unfollow(ctx, groupID, userID)
	}
	if err != nil {
		return respondWithError(c, err)
	}
	count, err := s.backend.FollowerCount(ctx, groupID)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"group_id":       groupID,
		"following":      follow,
		"follower_count": count,
	})
}

package server

import (
	"errors"
	"mime"
	"path"
	"strings"

	"groupfeed/internal/models"
	"groupfeed/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// UploadMedia handles POST /api/media (multipart "file", form "kind").
func (s *Server) UploadMedia(c *fiber.Ctx) error {
	fh, err := c.FormFile("file")
	if err != nil {
		return respondWithError(c, models.NewValidationError("No file uploaded"))
	}
	kindRaw := c.FormValue("kind")
	if kindRaw == "" {
		kindRaw = string(storage.OwnerPostMedia)
	}
	kind, err := storage.ParseOwnerKind(kindRaw)
	if err != nil {
		return respondWithError(c, err)
	}
	f, err := readUpload(fh)
	if err != nil {
		return respondWithError(c, err)
	}

	stored, err := s.media.Store(c.UserContext(), f, kind)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"path":       stored,
		"url":        s.media.URLFromPath(stored),
		"media_kind": models.MediaKindOf(stored),
	})
}

// ResolveMedia handles GET /api/media/resolve?path=...&mode=public|signed.
// Signed URLs are only handed to authenticated viewers, and cover URLs only to the
// group's owner and followers.
func (s *Server) ResolveMedia(c *fiber.Ctx) error {
	ctx := c.UserContext()
	mode := storage.ResolveMode(c.Query("mode", string(storage.ResolvePublic)))
	raw := c.Query("path")
	if mode == storage.ResolveSigned {
		if key, ok := s.media.PathFromURL(raw); ok {
			if err := s.groupService.AuthorizeSigned(ctx, key, viewerID(c)); err != nil {
				return respondWithError(c, err)
			}
		} else if viewerID(c) == 0 {
			return respondWithError(c, models.NewUnauthorizedError("Sign in to access this media"))
		}
	}
	url, err := s.media.Resolve(ctx, raw, mode)
	if err != nil {
		return respondWithError(c, err)
	}
	res := fiber.Map{"url": url, "mode": mode}
	if mode == storage.ResolveSigned {
		res["expires_in"] = int(s.media.SignedURLTTL().Seconds())
	}
	return c.JSON(res)
}

// ServeMedia handles GET /media/* for the local object store. Objects in signed
// namespaces need the token carried by their signed URL.
func (s *Server) ServeMedia(c *fiber.Ctx) error {
	if s.local == nil {
		return respondWithError(c, models.NewNotFoundError("Media", c.Params("*")))
	}
	key := strings.TrimPrefix(path.Clean("/"+c.Params("*")), "/")
	if key == "" {
		return respondWithError(c, models.NewValidationError("Empty media path"))
	}
	if storage.RequiresSignature(key) {
		if err := s.local.VerifyToken(key, c.Query("token")); err != nil {
			return respondWithError(c, &models.AppError{
				Code:    models.CodePermissionDenied,
				Message: "Invalid or expired media token",
				Err:     err,
			})
		}
	}

	rc, err := s.local.Open(c.UserContext(), key)
	if errors.Is(err, storage.ErrObjectNotFound) {
		return respondWithError(c, models.NewNotFoundError("Media", key))
	}
	if err != nil {
		return respondWithError(c, models.NewStorageReadError(err))
	}
	if ct := mime.TypeByExtension(path.Ext(key)); ct != "" {
		c.Set(fiber.HeaderContentType, ct)
	}
	// Signed objects must not outlive their token in shared caches.
	if storage.RequiresSignature(key) {
		c.Set(fiber.HeaderCacheControl, "private, no-store")
	} else {
		c.Set(fiber.HeaderCacheControl, "public, max-age=86400")
	}
	return c.SendStream(rc)
}

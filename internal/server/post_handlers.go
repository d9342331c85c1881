package server

import (
	"context"
	"io"
	"mime/multipart"
	"strings"

	"groupfeed/internal/editsession"
	"groupfeed/internal/feed"
	"groupfeed/internal/models"
	"groupfeed/internal/service"
	"groupfeed/internal/storage"

	"github.com/gofiber/fiber/v2"
)

// postResponse is a rendered post with its media paths resolved to public URLs.
type postResponse struct {
	feed.PostView
	MediaURLs []string `json:"media_urls"`
}

func (s *Server) renderPost(p *models.Post, group *models.Group) postResponse {
	urls := make([]string, len(p.Media))
	for i, m := range p.Media {
		urls[i] = s.media.URLFromPath(m)
	}
	return postResponse{PostView: feed.Render(p, group), MediaURLs: urls}
}

// renderForGroup renders p with the display rule of its group. The group lookup is
// served from cache on the hot path.
func (s *Server) renderForGroup(ctx context.Context, p *models.Post) (postResponse, error) {
	group, err := s.groupService.GetGroup(ctx, p.GroupID)
	if err != nil {
		return postResponse{}, err
	}
	return s.renderPost(p, group), nil
}

type postBody struct {
	Content string   `json:"content" form:"content"`
	Media   []string `json:"media" form:"media"`
}

// GetGroupPosts handles GET /api/groups/:id/posts
func (s *Server) GetGroupPosts(c *fiber.Ctx) error {
	groupID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	posts, err := s.backend.ListByGroup(ctx, service.ListPostsInput{GroupID: groupID, ViewerID: viewerID(c)})
	if err != nil {
		return respondWithError(c, err)
	}
	group, err := s.groupService.GetGroup(ctx, groupID)
	if err != nil {
		return respondWithError(c, err)
	}
	out := make([]postResponse, len(posts))
	for i, p := range posts {
		out[i] = s.renderPost(p, group)
	}
	return c.JSON(out)
}

// CreatePost handles POST /api/groups/:id/posts. Media must already be stored through
// /api/media; the body carries the returned paths.
func (s *Server) CreatePost(c *fiber.Ctx) error {
	groupID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postBody
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}
	ctx := c.UserContext()
	post, err := s.backend.CreatePost(ctx, service.CreatePostInput{
		GroupID: groupID,
		UserID:  viewerID(c),
		Content: req.Content,
		Media:   req.Media,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	res, err := s.renderForGroup(ctx, post)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(res)
}

// UpdatePost handles PUT /api/posts/:id.
//
// A JSON body replaces content and the full media list directly. A multipart body runs
// an edit session: "remove" names existing attachments to drop, "files" are new
// uploads, and "content" (when present) replaces the text.
func (s *Server) UpdatePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		return s.updatePostMultipart(c, postID)
	}

	var req postBody
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}
	ctx := c.UserContext()
	post, err := s.backend.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  viewerID(c),
		PostID:  postID,
		Content: req.Content,
		Media:   req.Media,
	})
	if err != nil {
		return respondWithError(c, err)
	}
	res, err := s.renderForGroup(ctx, post)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(res)
}

func (s *Server) updatePostMultipart(c *fiber.Ctx, postID uint) error {
	form, err := c.MultipartForm()
	if err != nil {
		return respondWithError(c, models.NewValidationError("Invalid multipart body"))
	}
	ctx := c.UserContext()
	userID := viewerID(c)

	// Authorize before the session touches storage.
	post, err := s.postService.PostForEdit(ctx, postID, userID)
	if err != nil {
		return respondWithError(c, err)
	}

	session := editsession.Open(post, s.media, sessionUpdater{backend: s.backend, userID: userID})
	for _, raw := range form.Value["remove"] {
		if err := session.DetachExisting(raw); err != nil {
			session.Cancel()
			return respondWithError(c, err)
		}
	}
	for _, fh := range form.File["files"] {
		f, err := readUpload(fh)
		if err != nil {
			session.Cancel()
			return respondWithError(c, err)
		}
		if _, err := session.AttachNew(f); err != nil {
			session.Cancel()
			return respondWithError(c, err)
		}
	}

	content := post.Content
	if values, ok := form.Value["content"]; ok && len(values) > 0 {
		content = values[0]
	}
	updated, err := session.Commit(ctx, content)
	if err != nil {
		session.Cancel()
		return respondWithError(c, err)
	}
	res, err := s.renderForGroup(ctx, updated)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(res)
}

// DeletePost handles DELETE /api/posts/:id
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if _, err := s.backend.DeletePost(c.UserContext(), service.DeletePostInput{UserID: viewerID(c), PostID: postID}); err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Post deleted successfully"})
}

// LikePost handles POST /api/posts/:id/like. Each call flips the viewer's like.
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	res, err := s.backend.Toggle(c.UserContext(), postID, viewerID(c))
	if err != nil {
		return respondWithError(c, err)
	}
	return c.JSON(fiber.Map{
		"post_id":         res.PostID,
		"likes_count":     res.LikesCount,
		"liked_by_viewer": res.Liked,
	})
}

// CreateComment handles POST /api/posts/:id/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req struct {
		Content string `json:"content" form:"content"`
	}
	if err := c.BodyParser(&req); err != nil {
		return respondWithError(c, models.NewValidationError("Invalid request body"))
	}
	ctx := c.UserContext()
	added, err := s.backend.AddComment(ctx, service.AddCommentInput{PostID: postID, UserID: viewerID(c), Content: req.Content})
	if err != nil {
		return respondWithError(c, err)
	}
	group, err := s.groupService.GetGroup(ctx, added.GroupID)
	if err != nil {
		return respondWithError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(feed.CommentView{
		Comment: *added.Comment,
		Display: feed.DisplayAuthor(*added.Comment, group),
	})
}

// GetComments handles GET /api/posts/:id/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	ctx := c.UserContext()
	post, err := s.postService.GetPost(ctx, postID, 0)
	if err != nil {
		return respondWithError(c, err)
	}
	group, err := s.groupService.GetGroup(ctx, post.GroupID)
	if err != nil {
		return respondWithError(c, err)
	}
	comments, err := s.commentService.ListComments(ctx, postID)
	if err != nil {
		return respondWithError(c, err)
	}
	out := make([]feed.CommentView, len(comments))
	for i, cm := range comments {
		out[i] = feed.CommentView{Comment: cm, Display: feed.DisplayAuthor(cm, group)}
	}
	return c.JSON(out)
}

// readUpload loads a multipart file fully into memory for the media store.
func readUpload(fh *multipart.FileHeader) (storage.File, error) {
	src, err := fh.Open()
	if err != nil {
		return storage.File{}, models.NewValidationError("Unable to read uploaded file")
	}
	defer func() { _ = src.Close() }()
	data, err := io.ReadAll(src)
	if err != nil {
		return storage.File{}, models.NewValidationError("Unable to read uploaded file")
	}
	return storage.File{
		Name:        fh.Filename,
		ContentType: fh.Header.Get(fiber.HeaderContentType),
		Data:        data,
	}, nil
}

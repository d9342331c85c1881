package service

import (
	"context"
	"testing"

	"groupfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ownerID    uint = 1
	memberID   uint = 2
	outsiderID uint = 3
)

func astroClub(allowMembers bool) *models.Group {
	return &models.Group{ID: 10, Name: "Astro Club", OwnerID: ownerID, AllowMembersToPost: allowMembers}
}

func TestPostService_CreatePost_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
		media   []string
		wantErr string
	}{
		{name: "text only", content: "hello"},
		{name: "media only", content: "", media: []string{"post-media/a.png"}},
		{name: "whitespace with media", content: "   ", media: []string{"post-media/a.mp4"}},
		{name: "empty without media", content: "", wantErr: models.CodeValidation},
		{name: "whitespace without media", content: " \n ", wantErr: models.CodeValidation},
		{name: "blank media path", content: "x", media: []string{""}, wantErr: models.CodeValidation},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			repo := noopPostRepo()
			created := false
			repo.createFn = func(_ context.Context, p *models.Post) error {
				created = true
				p.ID = 5
				return nil
			}
			svc := NewPostService(repo, groupRepoFor(astroClub(false)), &mediaStub{})

			post, err := svc.CreatePost(context.Background(), CreatePostInput{
				GroupID: 10, UserID: ownerID, Content: tt.content, Media: tt.media,
			})
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, models.ErrorCode(err))
				assert.False(t, created)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, uint(5), post.ID)
		})
	}
}

func TestPostService_CreatePost_Permission(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		allow     bool
		userID    uint
		followers []uint
		wantErr   string
	}{
		{name: "owner", userID: ownerID},
		{name: "member allowed", allow: true, userID: memberID, followers: []uint{memberID}},
		{name: "member blocked", userID: memberID, followers: []uint{memberID}, wantErr: models.CodePermissionDenied},
		{name: "non member", allow: true, userID: outsiderID, wantErr: models.CodePermissionDenied},
		{name: "anonymous", userID: 0, wantErr: models.CodeUnauthorized},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			svc := NewPostService(noopPostRepo(), groupRepoFor(astroClub(tt.allow), tt.followers...), &mediaStub{})
			_, err := svc.CreatePost(context.Background(), CreatePostInput{GroupID: 10, UserID: tt.userID, Content: "hi"})
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				assert.Equal(t, tt.wantErr, models.ErrorCode(err))
			}
		})
	}
}

func TestPostService_CreatePost_ReturnsRefetchedPost(t *testing.T) {
	t.Parallel()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, viewerID uint) (*models.Post, error) {
		assert.Equal(t, ownerID, viewerID)
		return &models.Post{ID: id, User: models.User{ID: ownerID, Username: "rowan"}, Comments: []models.Comment{}}, nil
	}
	svc := NewPostService(repo, groupRepoFor(astroClub(false)), &mediaStub{})

	post, err := svc.CreatePost(context.Background(), CreatePostInput{GroupID: 10, UserID: ownerID, Content: "hi"})
	require.NoError(t, err)
	assert.Zero(t, post.LikesCount)
	assert.False(t, post.LikedByViewer)
	assert.Empty(t, post.Comments)
	assert.Equal(t, "rowan", post.Author().Name)
}

func TestPostService_UpdatePost_Authorization(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		userID  uint
		wantErr string
	}{
		{name: "author", userID: memberID},
		{name: "group owner", userID: ownerID},
		{name: "someone else", userID: outsiderID, wantErr: models.CodePermissionDenied},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var gotMedia []string
			repo := noopPostRepo()
			repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
				return &models.Post{ID: id, GroupID: 10, UserID: memberID, LikesCount: 4}, nil
			}
			repo.updateContentFn = func(_ context.Context, _ uint, _ string, media []string) error {
				gotMedia = media
				return nil
			}
			svc := NewPostService(repo, groupRepoFor(astroClub(true)), &mediaStub{})

			post, err := svc.UpdatePost(context.Background(), UpdatePostInput{
				UserID: tt.userID, PostID: 7, Content: "edited", Media: []string{"post-media/b.png"},
			})
			if tt.wantErr != "" {
				assert.Equal(t, tt.wantErr, models.ErrorCode(err))
				assert.Nil(t, gotMedia)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, []string{"post-media/b.png"}, gotMedia)
			assert.Equal(t, 4, post.LikesCount)
		})
	}
}

func TestPostService_DeletePost_RemovesMediaFirst(t *testing.T) {
	t.Parallel()
	var order []string
	media := &mediaStub{onRemove: func() { order = append(order, "media") }}
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, GroupID: 10, UserID: memberID, Media: []string{"post-media/a.png", "post-media/b.mp4"}}, nil
	}
	repo.deleteFn = func(context.Context, uint) error {
		order = append(order, "row")
		return nil
	}
	svc := NewPostService(repo, groupRepoFor(astroClub(true)), media)

	post, err := svc.DeletePost(context.Background(), DeletePostInput{UserID: memberID, PostID: 9})
	require.NoError(t, err)
	assert.Equal(t, uint(10), post.GroupID)
	assert.Equal(t, []string{"media", "row"}, order)
	assert.Equal(t, [][]string{{"post-media/a.png", "post-media/b.mp4"}}, media.removed)
}

func TestPostService_DeletePost_NotFound(t *testing.T) {
	t.Parallel()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return nil, models.NewNotFoundError("Post", id)
	}
	svc := NewPostService(repo, groupRepoFor(astroClub(true)), &mediaStub{})

	_, err := svc.DeletePost(context.Background(), DeletePostInput{UserID: memberID, PostID: 9})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_ListByGroup_UnknownGroup(t *testing.T) {
	t.Parallel()
	svc := NewPostService(noopPostRepo(), groupRepoFor(astroClub(true)), &mediaStub{})
	_, err := svc.ListByGroup(context.Background(), ListPostsInput{GroupID: 99})
	assert.True(t, models.IsCode(err, models.CodeNotFound))
}

func TestPostService_PostForEdit(t *testing.T) {
	t.Parallel()
	repo := noopPostRepo()
	repo.getByIDFn = func(_ context.Context, id, _ uint) (*models.Post, error) {
		return &models.Post{ID: id, GroupID: 10, UserID: memberID}, nil
	}
	svc := NewPostService(repo, groupRepoFor(astroClub(true)), &mediaStub{})
	ctx := context.Background()

	post, err := svc.PostForEdit(ctx, 9, memberID)
	require.NoError(t, err)
	assert.Equal(t, uint(9), post.ID)

	_, err = svc.PostForEdit(ctx, 9, ownerID)
	assert.NoError(t, err, "the group owner may edit any post")

	_, err = svc.PostForEdit(ctx, 9, outsiderID)
	assert.True(t, models.IsCode(err, models.CodePermissionDenied))

	_, err = svc.PostForEdit(ctx, 9, 0)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

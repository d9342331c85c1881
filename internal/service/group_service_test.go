package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"groupfeed/internal/models"
	"groupfeed/internal/permission"
	"groupfeed/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type resolverStub struct {
	calls map[string]storage.ResolveMode
	err   error
}

func (r *resolverStub) Resolve(_ context.Context, p string, mode storage.ResolveMode) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	r.calls[p] = mode
	return "https://cdn.example.com/" + p + "?mode=" + string(mode), nil
}

func TestGroupService_GetGroupView_ResolvesMedia(t *testing.T) {
	t.Parallel()
	group := astroClub(false)
	group.AvatarPath = "avatar/a.png"
	group.CoverPath = "cover/c.jpg"
	resolver := &resolverStub{calls: map[string]storage.ResolveMode{}}
	svc := NewGroupService(groupRepoFor(group, memberID), resolver)

	view, err := svc.GetGroupView(context.Background(), group.ID, memberID)
	require.NoError(t, err)
	assert.Equal(t, storage.ResolvePublic, resolver.calls["avatar/a.png"])
	assert.Equal(t, storage.ResolveSigned, resolver.calls["cover/c.jpg"])
	assert.Contains(t, view.CoverURL, "mode=signed")
	assert.True(t, view.IsFollowing)
	assert.Equal(t, int64(1), view.FollowerCount)
}

func TestGroupService_GetGroupView_SignFailure(t *testing.T) {
	t.Parallel()
	group := astroClub(false)
	group.CoverPath = "cover/c.jpg"
	svc := NewGroupService(groupRepoFor(group), &resolverStub{err: models.NewStorageReadError(errors.New("denied"))})

	_, err := svc.GetGroupView(context.Background(), group.ID, ownerID)
	assert.True(t, models.IsCode(err, models.CodeStorageRead))
}

func TestGroupService_GetGroupView_CoverOnlyForMembers(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		viewerID  uint
		wantCover bool
	}{
		{name: "anonymous", viewerID: 0, wantCover: false},
		{name: "outsider", viewerID: outsiderID, wantCover: false},
		{name: "follower", viewerID: memberID, wantCover: true},
		{name: "owner", viewerID: ownerID, wantCover: true},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			group := astroClub(false)
			group.CoverPath = "cover/c.jpg"
			resolver := &resolverStub{calls: map[string]storage.ResolveMode{}}
			svc := NewGroupService(groupRepoFor(group, memberID), resolver)

			view, err := svc.GetGroupView(context.Background(), group.ID, tt.viewerID)
			require.NoError(t, err)
			if tt.wantCover {
				assert.Contains(t, view.CoverURL, "mode=signed")
			} else {
				assert.Empty(t, view.CoverURL)
				assert.NotContains(t, resolver.calls, "cover/c.jpg")
			}
		})
	}
}

func TestGroupService_AuthorizeSigned(t *testing.T) {
	t.Parallel()
	group := astroClub(false)
	group.CoverPath = "cover/c.jpg"
	svc := NewGroupService(groupRepoFor(group, memberID), &resolverStub{})
	ctx := context.Background()

	assert.NoError(t, svc.AuthorizeSigned(ctx, "cover/c.jpg", memberID))
	assert.NoError(t, svc.AuthorizeSigned(ctx, "cover/c.jpg", ownerID))
	assert.NoError(t, svc.AuthorizeSigned(ctx, "post-media/p.png", outsiderID))

	assert.True(t, models.IsCode(svc.AuthorizeSigned(ctx, "cover/c.jpg", 0), models.CodeUnauthorized))
	assert.True(t, models.IsCode(svc.AuthorizeSigned(ctx, "cover/c.jpg", outsiderID), models.CodePermissionDenied))
	assert.True(t, models.IsCode(svc.AuthorizeSigned(ctx, "cover/other.jpg", memberID), models.CodePermissionDenied),
		"a cover that belongs to no group is never signed")
}

func TestGroupService_Permission(t *testing.T) {
	t.Parallel()
	svc := NewGroupService(groupRepoFor(astroClub(false), memberID), &resolverStub{})
	ctx := context.Background()

	got, err := svc.Permission(ctx, 10, memberID)
	require.NoError(t, err)
	assert.Equal(t, permission.MemberBlocked, got)

	got, err = svc.Permission(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, permission.Unauthenticated, got)

	got, err = svc.Permission(ctx, 10, ownerID)
	require.NoError(t, err)
	assert.Equal(t, permission.Owner, got)
}

func TestGroupService_FollowUnfollow(t *testing.T) {
	t.Parallel()
	svc := NewGroupService(groupRepoFor(astroClub(true)), &resolverStub{})
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, 10, memberID))
	ok, err := svc.IsFollowing(ctx, 10, memberID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Unfollow(ctx, 10, memberID))
	ok, err = svc.IsFollowing(ctx, 10, memberID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, models.IsCode(svc.Follow(ctx, 10, 0), models.CodeUnauthorized))
	assert.True(t, models.IsCode(svc.Follow(ctx, 99, memberID), models.CodeNotFound))
}

type issuerStub struct{}

func (issuerStub) IssueToken(u *models.User) (string, time.Time, error) {
	return "token-for-" + u.Username, time.Unix(0, 0), nil
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()
	hash, err := bcrypt.GenerateFromPassword([]byte("hunter22"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &userRepoStub{byName: map[string]*models.User{
		"ines": {ID: memberID, Username: "ines", PasswordHash: string(hash)},
	}}
	svc := NewAuthService(users, issuerStub{})
	ctx := context.Background()

	res, err := svc.Login(ctx, LoginInput{Username: "ines", Password: "hunter22"})
	require.NoError(t, err)
	assert.Equal(t, "token-for-ines", res.Token)

	_, err = svc.Login(ctx, LoginInput{Username: "ines", Password: "wrong"})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginInput{Username: "nobody", Password: "x"})
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))

	_, err = svc.Login(ctx, LoginInput{})
	assert.True(t, models.IsCode(err, models.CodeValidation))
}

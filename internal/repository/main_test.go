package repository

import (
	"testing"
	"time"

	"groupfeed/internal/database"
	"groupfeed/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	return db
}

type fixture struct {
	owner  *models.User
	member *models.User
	group  *models.Group
}

func seedFixture(t *testing.T, db *gorm.DB) fixture {
	t.Helper()
	owner := &models.User{Username: "rowan", Email: "rowan@example.com", PasswordHash: "x"}
	member := &models.User{Username: "ines", Email: "ines@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(owner).Error)
	require.NoError(t, db.Create(member).Error)

	group := &models.Group{Name: "Astro Club", Slug: "astro-club", OwnerID: owner.ID, AvatarPath: "avatar/astro.png", CoverPath: "cover/astro.jpg"}
	require.NoError(t, db.Create(group).Error)
	return fixture{owner: owner, member: member, group: group}
}

func seedPost(t *testing.T, db *gorm.DB, groupID, userID uint, content string, at time.Time) *models.Post {
	t.Helper()
	post := &models.Post{GroupID: groupID, UserID: userID, Content: content, CreatedAt: at, UpdatedAt: at}
	require.NoError(t, db.Omit("User", "Comments").Create(post).Error)
	return post
}

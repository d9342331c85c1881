package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"groupfeed/internal/models"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReactionRepository_LikeUnlike(t *testing.T) {
	db := setupTestDB(t)
	f := seedFixture(t, db)
	repo := NewReactionRepository(db)
	ctx := context.Background()
	post := seedPost(t, db, f.group.ID, f.owner.ID, "p", time.Now())

	liked, err := repo.IsLiked(ctx, f.member.ID, post.ID)
	require.NoError(t, err)
	assert.False(t, liked)

	require.NoError(t, repo.Like(ctx, f.member.ID, post.ID))
	liked, err = repo.IsLiked(ctx, f.member.ID, post.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	count, err := repo.CountForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// A second insert is rejected by the unique index rather than merged.
	err = repo.Like(ctx, f.member.ID, post.ID)
	assert.True(t, models.IsCode(err, models.CodeValidation), "got %v", err)

	require.NoError(t, repo.Unlike(ctx, f.member.ID, post.ID))
	count, err = repo.CountForPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	// Deleting a missing row is not an error.
	require.NoError(t, repo.Unlike(ctx, f.member.ID, post.ID))
}

func TestReactionRepository_Like_PostgresDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "likes"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Like(context.Background(), 1, 2)
	require.Error(t, err)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReactionRepository_Unlike_Transient(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewReactionRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "likes"`)).
		WillReturnError(context.DeadlineExceeded)
	mock.ExpectRollback()

	err := repo.Unlike(context.Background(), 1, 2)
	assert.Equal(t, models.CodeTransient, models.ErrorCode(err))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.NoError(t, mock.ExpectationsWereMet())
}

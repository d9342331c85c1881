package seed

import (
	"testing"

	"groupfeed/internal/database"
	"groupfeed/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

func newSeeder(t *testing.T) (*Seeder, *gorm.DB) {
	t.Helper()
	db, err := database.OpenInMemory()
	require.NoError(t, err)
	s, err := NewSeeder(db, 42)
	require.NoError(t, err)
	return s, db
}

func count(t *testing.T, db *gorm.DB, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}

func TestSlugify(t *testing.T) {
	t.Parallel()
	tests := map[string]string{
		"Astro Club":          "astro-club",
		"  Night & Day!! ":    "night-day",
		"Already-slugged-123": "already-slugged-123",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

func TestSeed_Random(t *testing.T) {
	t.Parallel()
	s, db := newSeeder(t)

	res, err := s.Seed(Options{NumUsers: 6, NumGroups: 2, PostsPerGroup: 5})
	require.NoError(t, err)
	assert.Len(t, res.Users, 6)
	assert.Len(t, res.Groups, 2)
	assert.Equal(t, 10, res.Posts)
	assert.EqualValues(t, 10, count(t, db, &models.Post{}))
	assert.EqualValues(t, res.Likes, count(t, db, &models.Like{}))
	assert.EqualValues(t, res.Comments, count(t, db, &models.Comment{}))

	// Posts only come from people allowed to post.
	for _, g := range res.Groups {
		var posts []models.Post
		require.NoError(t, db.Where("group_id = ?", g.ID).Find(&posts).Error)
		for _, p := range posts {
			if p.UserID == g.OwnerID {
				continue
			}
			assert.True(t, g.AllowMembersToPost)
			var follows int64
			require.NoError(t, db.Model(&models.GroupFollower{}).
				Where("group_id = ? AND user_id = ?", g.ID, p.UserID).Count(&follows).Error)
			assert.EqualValues(t, 1, follows)
		}
	}

	require.NoError(t, s.ClearAll())
	assert.Zero(t, count(t, db, &models.User{}))
	assert.Zero(t, count(t, db, &models.Post{}))
}

func TestApplyPreset(t *testing.T) {
	t.Parallel()
	s, db := newSeeder(t)

	p, err := LoadPreset("testdata/astro.yml")
	require.NoError(t, err)
	res, err := s.ApplyPreset(p)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Posts)
	assert.Equal(t, 3, res.Likes)
	assert.Equal(t, 2, res.Comments)

	var group models.Group
	require.NoError(t, db.Where("slug = ?", "astro-club").First(&group).Error)
	assert.Equal(t, "cover/astro.jpg", group.CoverPath)
	assert.False(t, group.AllowMembersToPost)

	var posts []models.Post
	require.NoError(t, db.Where("group_id = ?", group.ID).Order("created_at DESC").Find(&posts).Error)
	require.Len(t, posts, 2)
	assert.Equal(t, "Telescope night moved to Friday.", posts[0].Content)
	assert.Equal(t, []string{"post-media/perseids.jpg"}, []string(posts[1].Media))

	var kai models.User
	require.NoError(t, db.Where("username = ?", "kai").First(&kai).Error)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(kai.PasswordHash), []byte("stargazer")))
	assert.Equal(t, "kai@example.com", kai.Email)
}

func TestParsePreset_Rejects(t *testing.T) {
	t.Parallel()
	_, err := ParsePreset([]byte("users:\n  - username: a\n    nickname: b\n"))
	assert.Error(t, err, "unknown keys are rejected")

	s, _ := newSeeder(t)
	p, err := ParsePreset([]byte("groups:\n  - name: Orphans\n    owner: nobody\n"))
	require.NoError(t, err)
	_, err = s.ApplyPreset(p)
	assert.ErrorContains(t, err, `"nobody"`)
}

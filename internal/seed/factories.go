// Package seed provides helpers to create demo data for the application database.
// These helpers are intended for development and testing only.
package seed

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"groupfeed/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultPassword is the password every generated user gets.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them to the database.
type Factory struct {
	db    *gorm.DB
	faker *gofakeit.Faker
	// hash is computed once; bcrypt per user dominates seeding time otherwise.
	hash string
}

// NewFactory creates a Factory. A zero seed picks a random one.
func NewFactory(db *gorm.DB, seed int64) (*Factory, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(DefaultPassword), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash default password: %w", err)
	}
	return &Factory{db: db, faker: gofakeit.New(seed), hash: string(hash)}, nil
}

// CreateUser persists a generated user. Overrides run before saving.
func (f *Factory) CreateUser(overrides ...func(*models.User)) (*models.User, error) {
	user := &models.User{
		Username:     fmt.Sprintf("%s%d", strings.ToLower(f.faker.Username()), f.faker.Number(100, 999)),
		Email:        f.faker.Email(),
		PasswordHash: f.hash,
		AvatarPath:   fmt.Sprintf("avatar/%s.png", f.faker.UUID()),
	}
	for _, override := range overrides {
		override(user)
	}
	if err := f.db.Create(user).Error; err != nil {
		return nil, fmt.Errorf("create user %s: %w", user.Username, err)
	}
	return user, nil
}

// HashPassword hashes a preset-supplied password, reusing the default hash when possible.
func (f *Factory) HashPassword(password string) (string, error) {
	if password == "" || password == DefaultPassword {
		return f.hash, nil
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

var slugUnsafe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases name and joins its words with dashes.
func Slugify(name string) string {
	slug := strings.Trim(slugUnsafe.ReplaceAllString(strings.ToLower(name), "-"), "-")
	if len(slug) > 48 {
		slug = strings.TrimRight(slug[:48], "-")
	}
	return slug
}

// CreateGroup persists a generated group owned by owner.
func (f *Factory) CreateGroup(owner *models.User, overrides ...func(*models.Group)) (*models.Group, error) {
	name := f.faker.Company() + " " + f.faker.RandomString([]string{"Club", "Circle", "Society", "Collective", "Guild"})
	// Leave room for the numeric suffix within the slug column.
	base := Slugify(name)
	if len(base) > 43 {
		base = strings.TrimRight(base[:43], "-")
	}
	group := &models.Group{
		Name:               name,
		Slug:               fmt.Sprintf("%s-%d", base, f.faker.Number(1000, 9999)),
		Description:        f.faker.Sentence(12),
		OwnerID:            owner.ID,
		AvatarPath:         fmt.Sprintf("avatar/%s.png", f.faker.UUID()),
		CoverPath:          fmt.Sprintf("cover/%s.jpg", f.faker.UUID()),
		AllowMembersToPost: f.faker.Bool(),
	}
	for _, override := range overrides {
		override(group)
	}
	if err := f.db.Create(group).Error; err != nil {
		return nil, fmt.Errorf("create group %s: %w", group.Slug, err)
	}
	return group, nil
}

// Follow records that user follows group; repeating it is a no-op.
func (f *Factory) Follow(group *models.Group, user *models.User) error {
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.GroupFollower{GroupID: group.ID, UserID: user.ID}).Error
}

// CreatePost persists a generated post in group by author, backdated up to maxDays.
func (f *Factory) CreatePost(group *models.Group, author *models.User, maxDays int, overrides ...func(*models.Post)) (*models.Post, error) {
	if maxDays <= 0 {
		maxDays = 30
	}
	at := time.Now().Add(-time.Duration(f.faker.Number(0, maxDays*24*60)) * time.Minute)
	post := &models.Post{
		GroupID:   group.ID,
		UserID:    author.ID,
		Content:   f.faker.Paragraph(1, 3, 12, "\n"),
		Media:     f.media(),
		CreatedAt: at,
		UpdatedAt: at,
	}
	for _, override := range overrides {
		override(post)
	}
	if err := f.db.Omit("User", "Comments").Create(post).Error; err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}
	return post, nil
}

func (f *Factory) media() []string {
	n := f.faker.Number(0, 3)
	out := make([]string, 0, n)
	for i := 0; i < n; i++ {
		ext := f.faker.RandomString([]string{".jpg", ".png", ".mp4"})
		out = append(out, "post-media/"+f.faker.UUID()+ext)
	}
	return out
}

// CreateComment persists a comment by author on post.
func (f *Factory) CreateComment(post *models.Post, author *models.User, content string) (*models.Comment, error) {
	if content == "" {
		content = f.faker.Sentence(f.faker.Number(4, 16))
	}
	comment := &models.Comment{PostID: post.ID, UserID: author.ID, Content: content}
	if err := f.db.Omit("User").Create(comment).Error; err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}
	return comment, nil
}

// Like records user's like on post; repeating it is a no-op.
func (f *Factory) Like(post *models.Post, user *models.User) error {
	return f.db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Like{PostID: post.ID, UserID: user.ID}).Error
}

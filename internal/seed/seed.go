package seed

import (
	"fmt"
	"log/slog"

	"groupfeed/internal/models"
	"groupfeed/internal/observability"

	"gorm.io/gorm"
)

// Options configures a random seeding run.
type Options struct {
	NumUsers      int
	NumGroups     int
	PostsPerGroup int
	MaxDays       int
}

// Result summarizes what a run created.
type Result struct {
	Users    []*models.User
	Groups   []*models.Group
	Posts    int
	Comments int
	Likes    int
}

// Seeder populates a database through a Factory.
type Seeder struct {
	db      *gorm.DB
	factory *Factory
}

func NewSeeder(db *gorm.DB, seed int64) (*Seeder, error) {
	f, err := NewFactory(db, seed)
	if err != nil {
		return nil, err
	}
	return &Seeder{db: db, factory: f}, nil
}

// ClearAll deletes every application row, children first.
func (s *Seeder) ClearAll() error {
	tables := []interface{}{
		&models.Like{},
		&models.Comment{},
		&models.Post{},
		&models.GroupFollower{},
		&models.Group{},
		&models.User{},
	}
	for _, t := range tables {
		if err := s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(t).Error; err != nil {
			return fmt.Errorf("clear %T: %w", t, err)
		}
	}
	observability.GlobalLogger.Info("database cleared")
	return nil
}

// Seed creates users, groups with followers, and posts with likes and comments.
// Posts are authored by the owner, or by followers in groups that allow member posts.
func (s *Seeder) Seed(opts Options) (*Result, error) {
	if opts.NumUsers < 2 {
		opts.NumUsers = 2
	}
	if opts.NumGroups <= 0 {
		opts.NumGroups = 1
	}
	f := s.factory
	res := &Result{}

	for i := 0; i < opts.NumUsers; i++ {
		u, err := f.CreateUser()
		if err != nil {
			return nil, err
		}
		res.Users = append(res.Users, u)
	}

	for i := 0; i < opts.NumGroups; i++ {
		owner := res.Users[f.faker.Number(0, len(res.Users)-1)]
		group, err := f.CreateGroup(owner)
		if err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, group)

		authors := []*models.User{owner}
		var followers []*models.User
		for _, u := range res.Users {
			if u.ID == owner.ID || !f.faker.Bool() {
				continue
			}
			if err := f.Follow(group, u); err != nil {
				return nil, err
			}
			followers = append(followers, u)
		}
		if group.AllowMembersToPost {
			authors = append(authors, followers...)
		}
		audience := append([]*models.User{owner}, followers...)

		for p := 0; p < opts.PostsPerGroup; p++ {
			author := authors[f.faker.Number(0, len(authors)-1)]
			post, err := f.CreatePost(group, author, opts.MaxDays)
			if err != nil {
				return nil, err
			}
			res.Posts++

			for _, u := range audience {
				if f.faker.Number(0, 2) != 0 {
					continue
				}
				if err := f.Like(post, u); err != nil {
					return nil, err
				}
				res.Likes++
			}
			for c := f.faker.Number(0, 4); c > 0; c-- {
				commenter := audience[f.faker.Number(0, len(audience)-1)]
				if _, err := f.CreateComment(post, commenter, ""); err != nil {
					return nil, err
				}
				res.Comments++
			}
		}
	}

	observability.GlobalLogger.Info("seeding completed",
		slog.Int("users", len(res.Users)),
		slog.Int("groups", len(res.Groups)),
		slog.Int("posts", res.Posts),
		slog.Int("likes", res.Likes),
		slog.Int("comments", res.Comments),
	)
	return res, nil
}

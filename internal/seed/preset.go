package seed

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"groupfeed/internal/models"

	"gopkg.in/yaml.v3"
)

// Preset is a hand-written data set. Users are referenced by username everywhere else.
type Preset struct {
	Users  []PresetUser  `yaml:"users"`
	Groups []PresetGroup `yaml:"groups"`
}

type PresetUser struct {
	Username string `yaml:"username"`
	Email    string `yaml:"email"`
	Password string `yaml:"password"`
}

type PresetGroup struct {
	Name               string       `yaml:"name"`
	Slug               string       `yaml:"slug"`
	Owner              string       `yaml:"owner"`
	AvatarPath         string       `yaml:"avatar"`
	CoverPath          string       `yaml:"cover"`
	AllowMembersToPost bool         `yaml:"allow_members_to_post"`
	Followers          []string     `yaml:"followers"`
	Posts              []PresetPost `yaml:"posts"`
}

type PresetPost struct {
	Author   string          `yaml:"author"`
	Content  string          `yaml:"content"`
	Media    []string        `yaml:"media"`
	Likes    []string        `yaml:"likes"`
	Comments []PresetComment `yaml:"comments"`
}

type PresetComment struct {
	Author  string `yaml:"author"`
	Content string `yaml:"content"`
}

// ParsePreset decodes a YAML preset. Unknown keys are rejected so typos surface early.
func ParsePreset(data []byte) (*Preset, error) {
	var p Preset
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil {
		return nil, fmt.Errorf("parse preset: %w", err)
	}
	return &p, nil
}

// LoadPreset reads and decodes the preset at path.
func LoadPreset(path string) (*Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preset: %w", err)
	}
	return ParsePreset(data)
}

// ApplyPreset creates everything p describes. Posts are created in file order, each one
// a minute newer than the last, so the first post in the file is the oldest.
func (s *Seeder) ApplyPreset(p *Preset) (*Result, error) {
	f := s.factory
	res := &Result{}
	users := map[string]*models.User{}

	for _, pu := range p.Users {
		hash, err := f.HashPassword(pu.Password)
		if err != nil {
			return nil, err
		}
		u, err := f.CreateUser(func(u *models.User) {
			u.Username = pu.Username
			u.PasswordHash = hash
			if pu.Email != "" {
				u.Email = pu.Email
			} else {
				u.Email = pu.Username + "@example.com"
			}
		})
		if err != nil {
			return nil, err
		}
		users[pu.Username] = u
		res.Users = append(res.Users, u)
	}
	lookup := func(name, role string) (*models.User, error) {
		u, ok := users[name]
		if !ok {
			return nil, fmt.Errorf("preset %s %q is not a declared user", role, name)
		}
		return u, nil
	}

	for _, pg := range p.Groups {
		owner, err := lookup(pg.Owner, "group owner")
		if err != nil {
			return nil, err
		}
		group, err := f.CreateGroup(owner, func(g *models.Group) {
			g.Name = pg.Name
			g.Slug = pg.Slug
			if g.Slug == "" {
				g.Slug = Slugify(pg.Name)
			}
			g.AvatarPath = pg.AvatarPath
			g.CoverPath = pg.CoverPath
			g.AllowMembersToPost = pg.AllowMembersToPost
		})
		if err != nil {
			return nil, err
		}
		res.Groups = append(res.Groups, group)

		for _, name := range pg.Followers {
			u, err := lookup(name, "follower")
			if err != nil {
				return nil, err
			}
			if err := f.Follow(group, u); err != nil {
				return nil, err
			}
		}

		base := time.Now().Add(-time.Duration(len(pg.Posts)) * time.Minute)
		for i, pp := range pg.Posts {
			author, err := lookup(pp.Author, "post author")
			if err != nil {
				return nil, err
			}
			at := base.Add(time.Duration(i) * time.Minute)
			post, err := f.CreatePost(group, author, 0, func(post *models.Post) {
				post.Content = pp.Content
				post.Media = append([]string{}, pp.Media...)
				post.CreatedAt = at
				post.UpdatedAt = at
			})
			if err != nil {
				return nil, err
			}
			res.Posts++

			for _, name := range pp.Likes {
				u, err := lookup(name, "liker")
				if err != nil {
					return nil, err
				}
				if err := f.Like(post, u); err != nil {
					return nil, err
				}
				res.Likes++
			}
			for _, pc := range pp.Comments {
				u, err := lookup(pc.Author, "comment author")
				if err != nil {
					return nil, err
				}
				if _, err := f.CreateComment(post, u, pc.Content); err != nil {
					return nil, err
				}
				res.Comments++
			}
		}
	}
	return res, nil
}

package feed

import "groupfeed/internal/models"

// DisplayAuthor is the identity a comment is rendered with. Comments written by the
// group owner show the group's name and avatar; the stored author is unchanged.
func DisplayAuthor(c models.Comment, group *models.Group) models.Identity {
	if group != nil && c.UserID == group.OwnerID {
		return group.Identity()
	}
	return c.Author()
}

// CommentView is a comment with its display identity applied.
type CommentView struct {
	models.Comment
	Display models.Identity `json:"display_author"`
}

// PostView is a post ready for rendering.
type PostView struct {
	*models.Post
	Comments []CommentView `json:"comments"`
}

// Render copies p into a PostView with the display rule applied to its comments.
func Render(p *models.Post, group *models.Group) PostView {
	cp := p.Clone()
	comments := make([]CommentView, len(cp.Comments))
	for i, c := range cp.Comments {
		comments[i] = CommentView{Comment: c, Display: DisplayAuthor(c, group)}
	}
	return PostView{Post: cp, Comments: comments}
}

// Notice is a dismissible report of a failed feed action.
type Notice struct {
	ID      int    `json:"id"`
	Action  string `json:"action"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Snapshot is the full render state of a feed at one instant.
type Snapshot struct {
	GroupID       uint          `json:"group_id"`
	Group         *models.Group `json:"group,omitempty"`
	Following     bool          `json:"following"`
	FollowerCount int64         `json:"follower_count"`
	Posts         []PostView    `json:"posts"`
	Notices       []Notice      `json:"notices"`

	// FollowedGroups lists every group the viewer follows, ascending.
	FollowedGroups []uint `json:"followed_groups"`
}

// Package permission decides what posting surface a viewer gets in a group.
package permission

// Permission is the posting-permission variant for one viewer in one group.
type Permission string

const (
	Owner           Permission = "owner"
	MemberAllowed   Permission = "member_allowed"
	MemberBlocked   Permission = "member_blocked"
	NonMember       Permission = "non_member"
	Unauthenticated Permission = "unauthenticated"
)

// BlockedNotice is shown next to the disabled composer.
const BlockedNotice = "Only the group owner can post in this group."

// Inputs are the read-only facts the group chrome supplies.
type Inputs struct {
	Authenticated      bool
	IsOwner            bool
	IsFollower         bool
	AllowMembersToPost bool
}

// Evaluate is a pure function of its inputs.
func Evaluate(in Inputs) Permission {
	switch {
	case !in.Authenticated:
		return Unauthenticated
	case in.IsOwner:
		return Owner
	case !in.IsFollower:
		return NonMember
	case in.AllowMembersToPost:
		return MemberAllowed
	default:
		return MemberBlocked
	}
}

// CanPost reports whether a create call is reachable.
func (p Permission) CanPost() bool {
	return p == Owner || p == MemberAllowed
}

// ShowInput reports whether any composer is rendered, enabled or not.
func (p Permission) ShowInput() bool {
	return p.CanPost() || p == MemberBlocked
}

func (p Permission) InputDisabled() bool {
	return p == MemberBlocked
}

func (p Permission) Notice() string {
	if p == MemberBlocked {
		return BlockedNotice
	}
	return ""
}

// View is the serialized form handed to clients.
type View struct {
	Permission    Permission `json:"permission"`
	CanPost       bool       `json:"can_post"`
	ShowInput     bool       `json:"show_input"`
	InputDisabled bool       `json:"input_disabled"`
	Notice        string     `json:"notice,omitempty"`
}

func (p Permission) View() View {
	return View{
		Permission:    p,
		CanPost:       p.CanPost(),
		ShowInput:     p.ShowInput(),
		InputDisabled: p.InputDisabled(),
		Notice:        p.Notice(),
	}
}

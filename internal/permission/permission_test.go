package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		in       Inputs
		want     Permission
		canPost  bool
		show     bool
		disabled bool
	}{
		{"anonymous", Inputs{}, Unauthenticated, false, false, false},
		{"anonymous ignores other facts", Inputs{IsOwner: true, IsFollower: true, AllowMembersToPost: true}, Unauthenticated, false, false, false},
		{"owner without follow", Inputs{Authenticated: true, IsOwner: true}, Owner, true, true, false},
		{"non member", Inputs{Authenticated: true, AllowMembersToPost: true}, NonMember, false, false, false},
		{"member allowed", Inputs{Authenticated: true, IsFollower: true, AllowMembersToPost: true}, MemberAllowed, true, true, false},
		{"member blocked", Inputs{Authenticated: true, IsFollower: true}, MemberBlocked, false, true, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := Evaluate(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.canPost, got.CanPost())
			assert.Equal(t, tt.show, got.ShowInput())
			assert.Equal(t, tt.disabled, got.InputDisabled())
		})
	}
}

func TestView_MemberBlockedCarriesNotice(t *testing.T) {
	v := MemberBlocked.View()
	assert.Equal(t, BlockedNotice, v.Notice)
	assert.True(t, v.InputDisabled)
	assert.Empty(t, Owner.View().Notice)
}

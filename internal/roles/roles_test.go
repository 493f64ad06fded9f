package roles

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAllowedTags(t *testing.T) {
	tests := []struct {
		name    string
		role    Role
		want    []string
		notWant []string
	}{
		{
			name:    "president gets admin tags",
			role:    RolePresident,
			want:    []string{"president", "admin", "all", "finance"},
			notWant: []string{"treasurer", "secretary", "member"},
		},
		{
			name:    "treasurer gets finance tags",
			role:    RoleTreasurer,
			want:    []string{"treasurer", "finance", "all"},
			notWant: []string{"president", "admin", "secretary"},
		},
		{
			name:    "secretary gets own tag only",
			role:    RoleSecretary,
			want:    []string{"secretary", "all", "finance"},
			notWant: []string{"president", "admin", "treasurer"},
		},
		{
			name:    "member gets base tags",
			role:    RoleMember,
			want:    []string{"member", "all", "finance"},
			notWant: []string{"president", "admin", "treasurer", "secretary"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tags := AllowedTags(tt.role)
			for _, tag := range tt.want {
				assert.True(t, tags[tag], "expected tag %q", tag)
			}
			for _, tag := range tt.notWant {
				assert.False(t, tags[tag], "unexpected tag %q", tag)
			}
		})
	}
}

func TestAllowedTagsUnknownRole(t *testing.T) {
	assert.Empty(t, AllowedTags(RoleUnknown))
	assert.Empty(t, AllowedTags(Role(99)))
}

func TestCanViewNotifications(t *testing.T) {
	assert.True(t, CanViewNotifications(RolePresident))
	assert.True(t, CanViewNotifications(RoleTreasurer))
	assert.True(t, CanViewNotifications(RoleSecretary))
	assert.True(t, CanViewNotifications(RoleMember))
	assert.False(t, CanViewNotifications(RoleUnknown))
	assert.False(t, CanViewNotifications(Role(42)))
}

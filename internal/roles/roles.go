// Package roles maps the server's numeric role identifiers to the tag sets
// used for notification visibility.
package roles

// Role is the numeric role identifier assigned by the association server.
type Role int

const (
	RoleUnknown   Role = 0
	RolePresident Role = 1
	RoleTreasurer Role = 2
	RoleSecretary Role = 3
	RoleMember    Role = 4
)

// Name returns the role's tag name as used in recipient_role targeting.
func (r Role) Name() string {
	switch r {
	case RolePresident:
		return "president"
	case RoleTreasurer:
		return "treasurer"
	case RoleSecretary:
		return "secretary"
	case RoleMember:
		return "member"
	default:
		return ""
	}
}

// AllowedTags returns the set of recipient_role tags visible to the given
// role. Every recognized role sees its own tag, "all", and "finance";
// board roles see their additional tags on top.
func AllowedTags(r Role) map[string]bool {
	name := r.Name()
	if name == "" {
		return map[string]bool{}
	}

	tags := map[string]bool{
		name:      true,
		"all":     true,
		"finance": true,
	}

	switch r {
	case RolePresident:
		tags["president"] = true
		tags["admin"] = true
	case RoleTreasurer:
		tags["treasurer"] = true
		tags["finance"] = true
	case RoleSecretary:
		tags["secretary"] = true
	}

	return tags
}

// CanViewNotifications reports whether the role is allowed to read the
// notification feed. Unrecognized role ids cannot.
func CanViewNotifications(r Role) bool {
	return r.Name() != ""
}

package authz

const (
	RoleUnassigned = 0
	RoleEmployee   = 10
	RoleAdmin      = 50
)

// IsKnown reports whether roleID belongs to the closed role set. An account
// whose role is outside it is treated as not provisioned.
func IsKnown(roleID int) bool {
	return roleID == RoleEmployee || roleID == RoleAdmin
}

func IsElevated(roleID int) bool {
	return roleID == RoleAdmin
}

// DestinationFor maps a resolved role to the post-login route the UI shell
// should navigate to.
func DestinationFor(roleID int) string {
	switch roleID {
	case RoleAdmin:
		return "/admin"
	case RoleEmployee:
		return "/workspace"
	default:
		return ""
	}
}

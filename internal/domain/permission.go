package domain

// PermissionMode selects how a PermissionPolicy interprets its list.
type PermissionMode string

const (
	// PermissionWhitelist allows only listed IDs.
	PermissionWhitelist PermissionMode = "whitelist"
	// PermissionBlacklist allows everything except listed IDs.
	PermissionBlacklist PermissionMode = "blacklist"
)

// PermissionPolicy is a list-based allow/deny policy over user IDs.
type PermissionPolicy struct {
	Mode PermissionMode
	IDs  []string
}

// Allowed reports whether userID passes the policy. An unknown mode denies
// everything, matching the original behavior of treating a misspelled mode
// as a configuration error rather than an open door.
func (p PermissionPolicy) Allowed(userID string) bool {
	listed := false
	for _, id := range p.IDs {
		if id == userID {
			listed = true
			break
		}
	}
	switch p.Mode {
	case PermissionWhitelist:
		return listed
	case PermissionBlacklist:
		return !listed
	default:
		return false
	}
}

package rbac

// Role constants
const (
	RoleAdmin   = "admin"
	RoleSupport = "support"
	RoleReader  = "reader"
)

// Permission constants
const (
	PermViewAudit      = "view_audit"
	PermUndoAction     = "undo_action"
	PermManageBulk     = "manage_bulk"
	PermViewFeed       = "view_feed"
	PermManageBookings = "manage_bookings"
)

// RolePermissions defines what each role can do.
var RolePermissions = map[string][]string{
	RoleAdmin: {
		PermViewAudit, PermUndoAction, PermManageBulk, PermViewFeed, PermManageBookings,
	},
	RoleSupport: {
		PermViewAudit, PermViewFeed, PermManageBookings,
		// Support CANNOT: PermUndoAction, PermManageBulk
	},
	RoleReader: {
		PermViewFeed,
	},
}

// HasPermission checks if a role grants a specific permission. This is the
// actorHasPermission contract the audit core requires from the permission
// store; roles themselves live outside the core.
func HasPermission(role, permission string) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	for _, p := range perms {
		if p == permission {
			return true
		}
	}
	return false
}

// IsDestructiveOperation reports whether a permission covers an operation
// that rewrites history (undo, bulk cancel).
func IsDestructiveOperation(permission string) bool {
	return permission == PermUndoAction || permission == PermManageBulk
}

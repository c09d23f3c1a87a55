package domain

// Role groups the permissions granted to a user.
type Role string

// Supported roles.
const (
	RoleAdmin       Role = "admin"
	RoleCoordinator Role = "coordinator"
	RoleDoctor      Role = "doctor"
	RoleViewer      Role = "viewer"
)

// Permission names a guarded capability.
type Permission string

// Permissions checked by the HTTP layer.
const (
	PermRead            Permission = "read"
	PermWriteStaff      Permission = "write_staff"
	PermWriteSchedule   Permission = "write_schedule"
	PermWriteEncounters Permission = "write_encounters"
	PermManageUsers     Permission = "manage_users"
	PermReports         Permission = "reports"
)

var rolePermissions = map[Role][]Permission{
	RoleAdmin:       {PermRead, PermWriteStaff, PermWriteSchedule, PermWriteEncounters, PermManageUsers, PermReports},
	RoleCoordinator: {PermRead, PermWriteStaff, PermWriteSchedule, PermWriteEncounters, PermReports},
	RoleDoctor:      {PermRead, PermWriteEncounters, PermReports},
	RoleViewer:      {PermRead},
}

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	_, ok := rolePermissions[r]
	return ok
}

// Allows reports whether the role grants the permission.
func (r Role) Allows(p Permission) bool {
	for _, granted := range rolePermissions[r] {
		if granted == p {
			return true
		}
	}
	return false
}

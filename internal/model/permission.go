package model

// Permission represents a string code for a specific system action.
type Permission string

const (
	// PermissionAttendanceManage allows running attendance sessions the caller owns.
	PermissionAttendanceManage Permission = "attendance:manage"

	// PermissionEnrollmentsRead allows viewing enrollments and running conflict checks.
	PermissionEnrollmentsRead Permission = "enrollments:read"

	// PermissionEnrollmentsWrite allows creating and deleting enrollments.
	PermissionEnrollmentsWrite Permission = "enrollments:write"

	PermissionSubjectsRead  Permission = "subjects:read"
	PermissionSubjectsWrite Permission = "subjects:write"
	PermissionRoomsRead     Permission = "rooms:read"
	PermissionRoomsWrite    Permission = "rooms:write"
	PermissionStudentsRead  Permission = "students:read"
	PermissionStudentsWrite Permission = "students:write"

	// PermissionStudentsResetSession allows resetting a student's active login.
	PermissionStudentsResetSession Permission = "students:reset_session"

	// PermissionAIUse allows requesting AI generated text.
	PermissionAIUse Permission = "ai:use"

	// PermissionAIConfigure allows reading and changing the AI provider settings.
	PermissionAIConfigure Permission = "ai:configure"
)

// AllPermissions is a slice of all available permissions.
var AllPermissions = []Permission{
	PermissionAttendanceManage,
	PermissionEnrollmentsRead,
	PermissionEnrollmentsWrite,
	PermissionSubjectsRead,
	PermissionSubjectsWrite,
	PermissionRoomsRead,
	PermissionRoomsWrite,
	PermissionStudentsRead,
	PermissionStudentsWrite,
	PermissionStudentsResetSession,
	PermissionAIUse,
	PermissionAIConfigure,
}

var teacherPermissions = []Permission{
	PermissionAttendanceManage,
	PermissionEnrollmentsRead,
	PermissionEnrollmentsWrite,
	PermissionSubjectsRead,
	PermissionRoomsRead,
	PermissionStudentsRead,
	PermissionAIUse,
}

// RolePermissions maps each staff role to the permissions embedded in its JWT.
var RolePermissions = map[Role][]Permission{
	RoleTeacher: teacherPermissions,
	RoleDean: append(append([]Permission{}, teacherPermissions...),
		PermissionSubjectsWrite,
		PermissionRoomsWrite,
		PermissionStudentsWrite,
		PermissionStudentsResetSession,
	),
	RoleAdmin: AllPermissions,
}

// PermissionCodes returns the string codes granted to role.
func PermissionCodes(role Role) []string {
	perms := RolePermissions[role]
	codes := make([]string, 0, len(perms))
	for _, p := range perms {
		codes = append(codes, string(p))
	}
	return codes
}

package model

import "time"

// Role is a staff role. Its permissions come from RolePermissions.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleDean    Role = "dean"
	RoleAdmin   Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := RolePermissions[r]
	return ok
}

// Teacher represents a staff account (teacher, dean or administrator).
type Teacher struct {
	ID           int       `json:"id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TeacherLoginRequest is the payload for staff authentication.
type TeacherLoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6,max=128"`
}

package models

// RoleType represents a user's role in the system
type RoleType string

// User roles
const (
	RoleStudent RoleType = "student"
	RoleParent  RoleType = "parent"
	RoleTeacher RoleType = "teacher"
	RoleAdmin   RoleType = "admin"
)

// IsValid checks whether the role is one of the known roles
func (r RoleType) IsValid() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher, RoleAdmin:
		return true
	}
	return false
}

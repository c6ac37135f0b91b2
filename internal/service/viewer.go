package service

const (
	// RoleFaculty is the role of teachers who own assignments and paper checks.
	RoleFaculty = "faculty"
	// RoleStudent is the role of students who submit answer scripts.
	RoleStudent = "student"
)

// Viewer identifies the authenticated caller of a query.
type Viewer struct {
	UserID string
	Role   string
}

// IsFaculty reports whether the viewer is a teacher.
func (v Viewer) IsFaculty() bool {
	return v.Role == RoleFaculty
}

// IsStudent reports whether the viewer is a student.
func (v Viewer) IsStudent() bool {
	return v.Role == RoleStudent
}

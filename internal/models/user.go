package models

type UserRole string

const (
	RoleStudent UserRole = "student"
	RoleTeacher UserRole = "teacher"
	RoleAdmin   UserRole = "admin"
)

// Principal is the authenticated caller as resolved by the auth collaborator.
type Principal struct {
	UserID string   `json:"user_id"`
	Name   string   `json:"name"`
	Role   UserRole `json:"role"`
}

// CanReviewOthers reports whether the caller may read attempts owned by other users.
func (p Principal) CanReviewOthers() bool {
	return p.Role == RoleTeacher || p.Role == RoleAdmin
}

// CanManageQuizzes reports whether the caller may author and delete quizzes.
func (p Principal) CanManageQuizzes() bool {
	return p.Role == RoleTeacher || p.Role == RoleAdmin
}

package models

// Роли пользователей в jwt-токене.
const (
	RolePatient   = "patient"
	RoleClinician = "clinician"
	RoleAdmin     = "admin"
)

// User пользователь, извлечённый из jwt-токена запроса.
type User struct {
	UID      string `json:"uid"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// IsStaff сообщает, может ли пользователь работать с чужими записями.
func (u User) IsStaff() bool {
	return u.Role == RoleClinician || u.Role == RoleAdmin
}

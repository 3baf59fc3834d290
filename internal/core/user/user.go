package user

import "time"

// Role is the closed set of portal roles assigned at registration.
type Role string

const (
	RoleCitizen      Role = "citizen"
	RoleEmployee     Role = "government_employee"
	RoleLegalAdvisor Role = "legal_advisor"
	RoleSupervisor   Role = "supervisor"
	RoleAdmin        Role = "admin"
)

var AllRoles = []Role{RoleCitizen, RoleEmployee, RoleLegalAdvisor, RoleSupervisor, RoleAdmin}

func (r Role) Valid() bool {
	for _, known := range AllRoles {
		if r == known {
			return true
		}
	}
	return false
}

// IsStaff reports whether the role reviews transactions.
func (r Role) IsStaff() bool {
	return r == RoleEmployee || r == RoleSupervisor || r == RoleAdmin
}

type User struct {
	ID           string     `json:"id"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	FullName     string     `json:"full_name"`
	Phone        *string    `json:"phone"`
	Role         Role       `json:"role"`
	IDNumber     *string    `json:"id_number"`
	Province     *string    `json:"province"`
	City         *string    `json:"city"`
	Address      *string    `json:"address"`
	DepartmentID *int64     `json:"department_id"`
	IsActive     bool       `json:"is_active"`
	IsVerified   bool       `json:"is_verified"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login"`
}

// Actor returns the authorization view of the user.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Email: u.Email, Role: u.Role, DepartmentID: u.DepartmentID}
}

// Actor is the authenticated caller as seen by the permission gate and the workflow engine.
type Actor struct {
	ID           string
	Email        string
	Role         Role
	DepartmentID *int64
}

func (a Actor) Is(roles ...Role) bool {
	for _, r := range roles {
		if a.Role == r {
			return true
		}
	}
	return false
}

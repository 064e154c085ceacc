package staff

import (
	"time"

	"github.com/google/uuid"
)

// Staff roles. Patients are assigned at most one of each.
const (
	RoleDoctor = "Doctor"
	RoleNurse  = "Nurse"
)

// ValidRole reports whether role is a clinical staff role.
func ValidRole(role string) bool {
	return role == RoleDoctor || role == RoleNurse
}

// Department maps to the department table.
type Department struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Staff maps to the staff table.
type Staff struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	Name         string     `db:"name" json:"name"`
	Role         string     `db:"role" json:"role"`
	DepartmentID *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	Phone        *string    `db:"phone" json:"phone,omitempty"`
	Email        *string    `db:"email" json:"email,omitempty"`
	IsActive     bool       `db:"is_active" json:"is_active"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// StaffFilter narrows List results. Zero values match everything.
type StaffFilter struct {
	Role         string
	DepartmentID *uuid.UUID
	ActiveOnly   bool
}

// Admin maps to the admin_user table. Admins are the accounts that sign in
// to the ward dashboard; Role is the authorization role carried in tokens.
type Admin struct {
	ID           uuid.UUID `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

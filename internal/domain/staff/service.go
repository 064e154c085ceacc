package staff

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/auth"
	"github.com/ward/ward/internal/platform/db"
)

// ErrInvalidCredentials is returned by Authenticate for an unknown user or a
// wrong password. The two cases are not distinguished.
var ErrInvalidCredentials = errors.New("invalid username or password")

const minPasswordLen = 8

type Service struct {
	departments DepartmentRepository
	staff       StaffRepository
	admins      AdminRepository
}

func NewService(departments DepartmentRepository, staff StaffRepository, admins AdminRepository) *Service {
	return &Service{
		departments: departments,
		staff:       staff,
		admins:      admins,
	}
}

// -- Department --

func (s *Service) CreateDepartment(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apierr.Invalid("name is required")
	}
	return s.departments.Create(ctx, d)
}

func (s *Service) GetDepartment(ctx context.Context, id uuid.UUID) (*Department, error) {
	return s.departments.GetByID(ctx, id)
}

func (s *Service) UpdateDepartment(ctx context.Context, d *Department) error {
	d.Name = strings.TrimSpace(d.Name)
	if d.Name == "" {
		return apierr.Invalid("name is required")
	}
	return s.departments.Update(ctx, d)
}

func (s *Service) DeleteDepartment(ctx context.Context, id uuid.UUID) error {
	return s.departments.Delete(ctx, id)
}

func (s *Service) ListDepartments(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	return s.departments.List(ctx, limit, offset)
}

// -- Staff --

func validateStaff(st *Staff) error {
	st.Name = strings.TrimSpace(st.Name)
	if st.Name == "" {
		return apierr.Invalid("name is required")
	}
	if !ValidRole(st.Role) {
		return apierr.Invalid("role must be %q or %q", RoleDoctor, RoleNurse)
	}
	return nil
}

func (s *Service) CreateStaff(ctx context.Context, st *Staff) error {
	if err := validateStaff(st); err != nil {
		return err
	}
	return s.staff.Create(ctx, st)
}

func (s *Service) GetStaff(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return s.staff.GetByID(ctx, id)
}

func (s *Service) UpdateStaff(ctx context.Context, st *Staff) error {
	if err := validateStaff(st); err != nil {
		return err
	}
	return s.staff.Update(ctx, st)
}

func (s *Service) DeleteStaff(ctx context.Context, id uuid.UUID) error {
	return s.staff.Delete(ctx, id)
}

func (s *Service) ListStaff(ctx context.Context, f StaffFilter, limit, offset int) ([]*Staff, int, error) {
	if f.Role != "" && !ValidRole(f.Role) {
		return nil, 0, apierr.Invalid("role must be %q or %q", RoleDoctor, RoleNurse)
	}
	return s.staff.List(ctx, f, limit, offset)
}

// AllStaff returns every staff member for lookups.
func (s *Service) AllStaff(ctx context.Context) ([]*Staff, error) {
	return s.staff.ListAll(ctx)
}

// -- Admin --

// CreateAdmin hashes password and stores a new dashboard account. An empty
// role defaults to admin.
func (s *Service) CreateAdmin(ctx context.Context, username, password, fullName, role string) (*Admin, error) {
	username = strings.TrimSpace(username)
	if username == "" {
		return nil, apierr.Invalid("username is required")
	}
	if len(password) < minPasswordLen {
		return nil, apierr.Invalid("password must be at least %d characters", minPasswordLen)
	}
	if strings.TrimSpace(fullName) == "" {
		return nil, apierr.Invalid("full_name is required")
	}
	if role == "" {
		role = auth.RoleAdmin
	}
	switch role {
	case auth.RoleAdmin, auth.RoleDoctor, auth.RoleNurse:
	default:
		return nil, apierr.Invalid("unknown role %q", role)
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	a := &Admin{
		Username:     username,
		PasswordHash: hash,
		FullName:     strings.TrimSpace(fullName),
		Role:         role,
	}
	if err := s.admins.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *Service) GetAdmin(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return s.admins.GetByID(ctx, id)
}

func (s *Service) ListAdmins(ctx context.Context, limit, offset int) ([]*Admin, int, error) {
	return s.admins.List(ctx, limit, offset)
}

// Authenticate returns the admin matching username and password.
func (s *Service) Authenticate(ctx context.Context, username, password string) (*Admin, error) {
	a, err := s.admins.GetByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !auth.CheckPassword(a.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return a, nil
}

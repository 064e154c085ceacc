package staff

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ward/ward/internal/platform/db"
)

// =========== Department Repository ===========

type departmentRepoPG struct{ q db.Querier }

func NewDepartmentRepoPG(q db.Querier) DepartmentRepository {
	return &departmentRepoPG{q: q}
}

const departmentCols = `id, name, description, created_at, updated_at`

func (r *departmentRepoPG) scanDepartment(row pgx.Row) (*Department, error) {
	var d Department
	if err := row.Scan(&d.ID, &d.Name, &d.Description, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &d, nil
}

func (r *departmentRepoPG) Create(ctx context.Context, d *Department) error {
	d.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO department (id, name, description)
		VALUES ($1,$2,$3)
		RETURNING created_at, updated_at`,
		d.ID, d.Name, d.Description).Scan(&d.CreatedAt, &d.UpdatedAt)
	return db.Translate(err)
}

func (r *departmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Department, error) {
	return r.scanDepartment(r.q.QueryRow(ctx, `SELECT `+departmentCols+` FROM department WHERE id = $1`, id))
}

func (r *departmentRepoPG) Update(ctx context.Context, d *Department) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE department SET name=$2, description=$3, updated_at=NOW()
		WHERE id = $1`,
		d.ID, d.Name, d.Description))
}

func (r *departmentRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM department WHERE id = $1`, id))
}

func (r *departmentRepoPG) List(ctx context.Context, limit, offset int) ([]*Department, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM department`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+departmentCols+` FROM department ORDER BY name LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Department
	for rows.Next() {
		d, err := r.scanDepartment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, d)
	}
	return items, total, rows.Err()
}

// =========== Staff Repository ===========

type staffRepoPG struct{ q db.Querier }

func NewStaffRepoPG(q db.Querier) StaffRepository {
	return &staffRepoPG{q: q}
}

const staffCols = `id, name, role, department_id, phone, email, is_active, created_at, updated_at`

const staffFilter = `($1 = '' OR role = $1)
	AND ($2::uuid IS NULL OR department_id = $2)
	AND (NOT $3 OR is_active)`

func (r *staffRepoPG) scanStaff(row pgx.Row) (*Staff, error) {
	var s Staff
	if err := row.Scan(&s.ID, &s.Name, &s.Role, &s.DepartmentID, &s.Phone, &s.Email, &s.IsActive, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &s, nil
}

func (r *staffRepoPG) Create(ctx context.Context, s *Staff) error {
	s.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO staff (id, name, role, department_id, phone, email, is_active)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at, updated_at`,
		s.ID, s.Name, s.Role, s.DepartmentID, s.Phone, s.Email, s.IsActive).Scan(&s.CreatedAt, &s.UpdatedAt)
	return db.Translate(err)
}

func (r *staffRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Staff, error) {
	return r.scanStaff(r.q.QueryRow(ctx, `SELECT `+staffCols+` FROM staff WHERE id = $1`, id))
}

func (r *staffRepoPG) Update(ctx context.Context, s *Staff) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE staff SET name=$2, role=$3, department_id=$4, phone=$5, email=$6, is_active=$7, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.Name, s.Role, s.DepartmentID, s.Phone, s.Email, s.IsActive))
}

func (r *staffRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM staff WHERE id = $1`, id))
}

func (r *staffRepoPG) List(ctx context.Context, f StaffFilter, limit, offset int) ([]*Staff, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM staff WHERE `+staffFilter,
		f.Role, f.DepartmentID, f.ActiveOnly).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+staffCols+` FROM staff WHERE `+staffFilter+` ORDER BY name LIMIT $4 OFFSET $5`,
		f.Role, f.DepartmentID, f.ActiveOnly, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *staffRepoPG) ListAll(ctx context.Context) ([]*Staff, error) {
	rows, err := r.q.Query(ctx, `SELECT `+staffCols+` FROM staff`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *staffRepoPG) collect(rows pgx.Rows) ([]*Staff, error) {
	defer rows.Close()
	var items []*Staff
	for rows.Next() {
		s, err := r.scanStaff(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, s)
	}
	return items, rows.Err()
}

// =========== Admin Repository ===========

type adminRepoPG struct{ q db.Querier }

func NewAdminRepoPG(q db.Querier) AdminRepository {
	return &adminRepoPG{q: q}
}

const adminCols = `id, username, password_hash, full_name, role, created_at`

func (r *adminRepoPG) scanAdmin(row pgx.Row) (*Admin, error) {
	var a Admin
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.FullName, &a.Role, &a.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &a, nil
}

func (r *adminRepoPG) Create(ctx context.Context, a *Admin) error {
	a.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO admin_user (id, username, password_hash, full_name, role)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		a.ID, a.Username, a.PasswordHash, a.FullName, a.Role).Scan(&a.CreatedAt)
	return db.Translate(err)
}

func (r *adminRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Admin, error) {
	return r.scanAdmin(r.q.QueryRow(ctx, `SELECT `+adminCols+` FROM admin_user WHERE id = $1`, id))
}

func (r *adminRepoPG) GetByUsername(ctx context.Context, username string) (*Admin, error) {
	return r.scanAdmin(r.q.QueryRow(ctx, `SELECT `+adminCols+` FROM admin_user WHERE username = $1`, username))
}

func (r *adminRepoPG) List(ctx context.Context, limit, offset int) ([]*Admin, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM admin_user`).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+adminCols+` FROM admin_user ORDER BY username LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*Admin
	for rows.Next() {
		a, err := r.scanAdmin(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, a)
	}
	return items, total, rows.Err()
}

package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ward/ward/internal/platform/db"
)

// searchClause matches every row when the search term is empty.
const searchClause = `($1 = '' OR name ILIKE '%' || $1 || '%')`

// =========== Medication Repository ===========

type medicationRepoPG struct{ q db.Querier }

func NewMedicationRepoPG(q db.Querier) MedicationRepository {
	return &medicationRepoPG{q: q}
}

const medicationCols = `id, name, generic_name, form, strength, route, description, created_at`

func (r *medicationRepoPG) scanMedication(row pgx.Row) (*Medication, error) {
	var m Medication
	if err := row.Scan(&m.ID, &m.Name, &m.GenericName, &m.Form, &m.Strength, &m.Route, &m.Description, &m.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &m, nil
}

func (r *medicationRepoPG) Create(ctx context.Context, m *Medication) error {
	m.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO medication (id, name, generic_name, form, strength, route, description)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		m.ID, m.Name, m.GenericName, m.Form, m.Strength, m.Route, m.Description).Scan(&m.CreatedAt)
	return db.Translate(err)
}

func (r *medicationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return r.scanMedication(r.q.QueryRow(ctx, `SELECT `+medicationCols+` FROM medication WHERE id = $1`, id))
}

func (r *medicationRepoPG) Update(ctx context.Context, m *Medication) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE medication SET name=$2, generic_name=$3, form=$4, strength=$5, route=$6, description=$7
		WHERE id = $1`,
		m.ID, m.Name, m.GenericName, m.Form, m.Strength, m.Route, m.Description))
}

func (r *medicationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM medication WHERE id = $1`, id))
}

func (r *medicationRepoPG) List(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM medication WHERE `+searchClause, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+medicationCols+` FROM medication WHERE `+searchClause+` ORDER BY name LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *medicationRepoPG) ListAll(ctx context.Context) ([]*Medication, error) {
	rows, err := r.q.Query(ctx, `SELECT `+medicationCols+` FROM medication`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *medicationRepoPG) collect(rows pgx.Rows) ([]*Medication, error) {
	defer rows.Close()
	var items []*Medication
	for rows.Next() {
		m, err := r.scanMedication(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// =========== Procedure Repository ===========

type procedureRepoPG struct{ q db.Querier }

func NewProcedureRepoPG(q db.Querier) ProcedureRepository {
	return &procedureRepoPG{q: q}
}

const procedureCols = `id, name, category, duration_minutes, description, created_at`

func (r *procedureRepoPG) scanProcedure(row pgx.Row) (*Procedure, error) {
	var p Procedure
	if err := row.Scan(&p.ID, &p.Name, &p.Category, &p.DurationMinutes, &p.Description, &p.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *procedureRepoPG) Create(ctx context.Context, p *Procedure) error {
	p.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO procedure (id, name, category, duration_minutes, description)
		VALUES ($1,$2,$3,$4,$5)
		RETURNING created_at`,
		p.ID, p.Name, p.Category, p.DurationMinutes, p.Description).Scan(&p.CreatedAt)
	return db.Translate(err)
}

func (r *procedureRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Procedure, error) {
	return r.scanProcedure(r.q.QueryRow(ctx, `SELECT `+procedureCols+` FROM procedure WHERE id = $1`, id))
}

func (r *procedureRepoPG) Update(ctx context.Context, p *Procedure) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE procedure SET name=$2, category=$3, duration_minutes=$4, description=$5
		WHERE id = $1`,
		p.ID, p.Name, p.Category, p.DurationMinutes, p.Description))
}

func (r *procedureRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM procedure WHERE id = $1`, id))
}

func (r *procedureRepoPG) List(ctx context.Context, search string, limit, offset int) ([]*Procedure, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM procedure WHERE `+searchClause, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+procedureCols+` FROM procedure WHERE `+searchClause+` ORDER BY name LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *procedureRepoPG) ListAll(ctx context.Context) ([]*Procedure, error) {
	rows, err := r.q.Query(ctx, `SELECT `+procedureCols+` FROM procedure`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *procedureRepoPG) collect(rows pgx.Rows) ([]*Procedure, error) {
	defer rows.Close()
	var items []*Procedure
	for rows.Next() {
		p, err := r.scanProcedure(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Investigation Repository ===========

type investigationRepoPG struct{ q db.Querier }

func NewInvestigationRepoPG(q db.Querier) InvestigationRepository {
	return &investigationRepoPG{q: q}
}

const investigationCols = `id, name, category, normal_range, unit, description, created_at`

func (r *investigationRepoPG) scanInvestigation(row pgx.Row) (*Investigation, error) {
	var i Investigation
	if err := row.Scan(&i.ID, &i.Name, &i.Category, &i.NormalRange, &i.Unit, &i.Description, &i.CreatedAt); err != nil {
		return nil, db.Translate(err)
	}
	return &i, nil
}

func (r *investigationRepoPG) Create(ctx context.Context, i *Investigation) error {
	i.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO investigation (id, name, category, normal_range, unit, description)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		i.ID, i.Name, i.Category, i.NormalRange, i.Unit, i.Description).Scan(&i.CreatedAt)
	return db.Translate(err)
}

func (r *investigationRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Investigation, error) {
	return r.scanInvestigation(r.q.QueryRow(ctx, `SELECT `+investigationCols+` FROM investigation WHERE id = $1`, id))
}

func (r *investigationRepoPG) Update(ctx context.Context, i *Investigation) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE investigation SET name=$2, category=$3, normal_range=$4, unit=$5, description=$6
		WHERE id = $1`,
		i.ID, i.Name, i.Category, i.NormalRange, i.Unit, i.Description))
}

func (r *investigationRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM investigation WHERE id = $1`, id))
}

func (r *investigationRepoPG) List(ctx context.Context, search string, limit, offset int) ([]*Investigation, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM investigation WHERE `+searchClause, search).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+investigationCols+` FROM investigation WHERE `+searchClause+` ORDER BY name LIMIT $2 OFFSET $3`, search, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *investigationRepoPG) ListAll(ctx context.Context) ([]*Investigation, error) {
	rows, err := r.q.Query(ctx, `SELECT `+investigationCols+` FROM investigation`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *investigationRepoPG) collect(rows pgx.Rows) ([]*Investigation, error) {
	defer rows.Close()
	var items []*Investigation
	for rows.Next() {
		i, err := r.scanInvestigation(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

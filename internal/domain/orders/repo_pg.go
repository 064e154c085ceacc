package orders

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ward/ward/internal/platform/db"
)

// dayArg renders the filter day as a DATE literal for medication orders.
func dayArg(f Filter) *string {
	if f.Day == nil {
		return nil
	}
	s := f.Day.Format("2006-01-02")
	return &s
}

// windowArgs returns the [from, to) bounds for timed orders.
func windowArgs(f Filter) (*time.Time, *time.Time) {
	if f.Day == nil {
		return nil, nil
	}
	from := *f.Day
	to := from.AddDate(0, 0, 1)
	return &from, &to
}

// =========== Medication Order Repository ===========

type medicationOrderRepoPG struct{ q db.Querier }

func NewMedicationOrderRepoPG(q db.Querier) MedicationOrderRepository {
	return &medicationOrderRepoPG{q: q}
}

const medicationOrderCols = `id, patient_id, medication_id, dosage, scheduled_time,
	to_char(start_date, 'YYYY-MM-DD'), to_char(end_date, 'YYYY-MM-DD'), priority,
	is_completed, completed_at, completed_by, notes, created_at`

const medicationOrderFilter = `($1::uuid IS NULL OR patient_id = $1)
	AND ($2::text IS NULL OR start_date = $2::text::date)
	AND (NOT $3 OR NOT is_completed)`

func medicationOrderArgs(f Filter) []interface{} {
	return []interface{}{f.PatientID, dayArg(f), f.PendingOnly}
}

func (r *medicationOrderRepoPG) scanOrder(row pgx.Row) (*MedicationOrder, error) {
	var o MedicationOrder
	err := row.Scan(&o.ID, &o.PatientID, &o.MedicationID, &o.Dosage, &o.ScheduledTime,
		&o.StartDate, &o.EndDate, &o.Priority,
		&o.IsCompleted, &o.CompletedAt, &o.CompletedBy, &o.Notes, &o.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &o, nil
}

func (r *medicationOrderRepoPG) Create(ctx context.Context, o *MedicationOrder) error {
	o.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO medication_order (id, patient_id, medication_id, dosage, scheduled_time,
			start_date, end_date, priority, notes)
		VALUES ($1,$2,$3,$4,$5,$6::text::date,$7::text::date,$8,$9)
		RETURNING created_at`,
		o.ID, o.PatientID, o.MedicationID, o.Dosage, o.ScheduledTime,
		o.StartDate, o.EndDate, o.Priority, o.Notes).Scan(&o.CreatedAt)
	return db.Translate(err)
}

func (r *medicationOrderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*MedicationOrder, error) {
	return r.scanOrder(r.q.QueryRow(ctx, `SELECT `+medicationOrderCols+` FROM medication_order WHERE id = $1`, id))
}

func (r *medicationOrderRepoPG) Update(ctx context.Context, o *MedicationOrder) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE medication_order SET medication_id=$2, dosage=$3, scheduled_time=$4,
			start_date=$5::text::date, end_date=$6::text::date, priority=$7, notes=$8
		WHERE id = $1`,
		o.ID, o.MedicationID, o.Dosage, o.ScheduledTime, o.StartDate, o.EndDate, o.Priority, o.Notes))
}

func (r *medicationOrderRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM medication_order WHERE id = $1`, id))
}

func (r *medicationOrderRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*MedicationOrder, int, error) {
	args := medicationOrderArgs(f)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM medication_order WHERE `+medicationOrderFilter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+medicationOrderCols+` FROM medication_order WHERE `+medicationOrderFilter+`
		ORDER BY scheduled_time, created_at LIMIT $4 OFFSET $5`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *medicationOrderRepoPG) ListAll(ctx context.Context, f Filter) ([]*MedicationOrder, error) {
	rows, err := r.q.Query(ctx, `SELECT `+medicationOrderCols+` FROM medication_order WHERE `+medicationOrderFilter+`
		ORDER BY scheduled_time, created_at`, medicationOrderArgs(f)...)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *medicationOrderRepoPG) Complete(ctx context.Context, id uuid.UUID, c Completion) (*MedicationOrder, error) {
	return r.scanOrder(r.q.QueryRow(ctx, `
		UPDATE medication_order SET is_completed = TRUE,
			completed_at = COALESCE(completed_at, $2),
			completed_by = COALESCE(completed_by, $3)
		WHERE id = $1
		RETURNING `+medicationOrderCols, id, c.At, c.By))
}

func (r *medicationOrderRepoPG) collect(rows pgx.Rows) ([]*MedicationOrder, error) {
	defer rows.Close()
	var items []*MedicationOrder
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// =========== Procedure Order Repository ===========

type procedureOrderRepoPG struct{ q db.Querier }

func NewProcedureOrderRepoPG(q db.Querier) ProcedureOrderRepository {
	return &procedureOrderRepoPG{q: q}
}

const procedureOrderCols = `id, patient_id, procedure_id, scheduled_at, priority,
	is_completed, completed_at, completed_by, notes, created_at`

const timedOrderFilter = `($1::uuid IS NULL OR patient_id = $1)
	AND ($2::timestamptz IS NULL OR (scheduled_at >= $2 AND scheduled_at < $3))
	AND (NOT $4 OR NOT is_completed)`

func timedOrderArgs(f Filter) []interface{} {
	from, to := windowArgs(f)
	return []interface{}{f.PatientID, from, to, f.PendingOnly}
}

func (r *procedureOrderRepoPG) scanOrder(row pgx.Row) (*ProcedureOrder, error) {
	var o ProcedureOrder
	err := row.Scan(&o.ID, &o.PatientID, &o.ProcedureID, &o.ScheduledAt, &o.Priority,
		&o.IsCompleted, &o.CompletedAt, &o.CompletedBy, &o.Notes, &o.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &o, nil
}

func (r *procedureOrderRepoPG) Create(ctx context.Context, o *ProcedureOrder) error {
	o.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO procedure_order (id, patient_id, procedure_id, scheduled_at, priority, notes)
		VALUES ($1,$2,$3,$4,$5,$6)
		RETURNING created_at`,
		o.ID, o.PatientID, o.ProcedureID, o.ScheduledAt, o.Priority, o.Notes).Scan(&o.CreatedAt)
	return db.Translate(err)
}

func (r *procedureOrderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*ProcedureOrder, error) {
	return r.scanOrder(r.q.QueryRow(ctx, `SELECT `+procedureOrderCols+` FROM procedure_order WHERE id = $1`, id))
}

func (r *procedureOrderRepoPG) Update(ctx context.Context, o *ProcedureOrder) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE procedure_order SET procedure_id=$2, scheduled_at=$3, priority=$4, notes=$5
		WHERE id = $1`,
		o.ID, o.ProcedureID, o.ScheduledAt, o.Priority, o.Notes))
}

func (r *procedureOrderRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM procedure_order WHERE id = $1`, id))
}

func (r *procedureOrderRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*ProcedureOrder, int, error) {
	args := timedOrderArgs(f)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM procedure_order WHERE `+timedOrderFilter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+procedureOrderCols+` FROM procedure_order WHERE `+timedOrderFilter+`
		ORDER BY scheduled_at LIMIT $5 OFFSET $6`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *procedureOrderRepoPG) ListAll(ctx context.Context, f Filter) ([]*ProcedureOrder, error) {
	rows, err := r.q.Query(ctx, `SELECT `+procedureOrderCols+` FROM procedure_order WHERE `+timedOrderFilter+`
		ORDER BY scheduled_at`, timedOrderArgs(f)...)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *procedureOrderRepoPG) Complete(ctx context.Context, id uuid.UUID, c Completion) (*ProcedureOrder, error) {
	return r.scanOrder(r.q.QueryRow(ctx, `
		UPDATE procedure_order SET is_completed = TRUE,
			completed_at = COALESCE(completed_at, $2),
			completed_by = COALESCE(completed_by, $3)
		WHERE id = $1
		RETURNING `+procedureOrderCols, id, c.At, c.By))
}

func (r *procedureOrderRepoPG) collect(rows pgx.Rows) ([]*ProcedureOrder, error) {
	defer rows.Close()
	var items []*ProcedureOrder
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

// =========== Investigation Order Repository ===========

type investigationOrderRepoPG struct{ q db.Querier }

func NewInvestigationOrderRepoPG(q db.Querier) InvestigationOrderRepository {
	return &investigationOrderRepoPG{q: q}
}

const investigationOrderCols = `id, patient_id, investigation_id, scheduled_at, priority, result_value,
	is_completed, completed_at, completed_by, notes, created_at`

func (r *investigationOrderRepoPG) scanOrder(row pgx.Row) (*InvestigationOrder, error) {
	var o InvestigationOrder
	err := row.Scan(&o.ID, &o.PatientID, &o.InvestigationID, &o.ScheduledAt, &o.Priority, &o.ResultValue,
		&o.IsCompleted, &o.CompletedAt, &o.CompletedBy, &o.Notes, &o.CreatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &o, nil
}

func (r *investigationOrderRepoPG) Create(ctx context.Context, o *InvestigationOrder) error {
	o.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO investigation_order (id, patient_id, investigation_id, scheduled_at, priority, result_value, notes)
		VALUES ($1,$2,$3,$4,$5,$6,$7)
		RETURNING created_at`,
		o.ID, o.PatientID, o.InvestigationID, o.ScheduledAt, o.Priority, o.ResultValue, o.Notes).Scan(&o.CreatedAt)
	return db.Translate(err)
}

func (r *investigationOrderRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*InvestigationOrder, error) {
	return r.scanOrder(r.q.QueryRow(ctx, `SELECT `+investigationOrderCols+` FROM investigation_order WHERE id = $1`, id))
}

func (r *investigationOrderRepoPG) Update(ctx context.Context, o *InvestigationOrder) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE investigation_order SET investigation_id=$2, scheduled_at=$3, priority=$4, result_value=$5, notes=$6
		WHERE id = $1`,
		o.ID, o.InvestigationID, o.ScheduledAt, o.Priority, o.ResultValue, o.Notes))
}

func (r *investigationOrderRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM investigation_order WHERE id = $1`, id))
}

func (r *investigationOrderRepoPG) List(ctx context.Context, f Filter, limit, offset int) ([]*InvestigationOrder, int, error) {
	args := timedOrderArgs(f)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM investigation_order WHERE `+timedOrderFilter, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+investigationOrderCols+` FROM investigation_order WHERE `+timedOrderFilter+`
		ORDER BY scheduled_at LIMIT $5 OFFSET $6`, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *investigationOrderRepoPG) ListAll(ctx context.Context, f Filter) ([]*InvestigationOrder, error) {
	rows, err := r.q.Query(ctx, `SELECT `+investigationOrderCols+` FROM investigation_order WHERE `+timedOrderFilter+`
		ORDER BY scheduled_at`, timedOrderArgs(f)...)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// Complete also records the result value when one is supplied; an existing
// result is kept otherwise.
func (r *investigationOrderRepoPG) Complete(ctx context.Context, id uuid.UUID, c Completion) (*InvestigationOrder, error) {
	return r.scanOrder(r.q.QueryRow(ctx, `
		UPDATE investigation_order SET is_completed = TRUE,
			completed_at = COALESCE(completed_at, $2),
			completed_by = COALESCE(completed_by, $3),
			result_value = COALESCE($4, result_value)
		WHERE id = $1
		RETURNING `+investigationOrderCols, id, c.At, c.By, c.Result))
}

func (r *investigationOrderRepoPG) collect(rows pgx.Rows) ([]*InvestigationOrder, error) {
	defer rows.Close()
	var items []*InvestigationOrder
	for rows.Next() {
		o, err := r.scanOrder(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, o)
	}
	return items, rows.Err()
}

package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/ward/ward/internal/platform/db"
)

// =========== Patient Repository ===========

type patientRepoPG struct{ q db.Querier }

func NewPatientRepoPG(q db.Querier) PatientRepository {
	return &patientRepoPG{q: q}
}

const patientCols = `id, ipd_number, name, age, gender, bed_number, ward, diagnosis, department_id,
	admission_date, is_discharged, discharge_date, created_at, updated_at`

const patientFilter = `($1 = '' OR name ILIKE '%' || $1 || '%' OR ipd_number ILIKE '%' || $1 || '%')
	AND ($2 OR NOT is_discharged)`

func (r *patientRepoPG) scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.IPDNumber, &p.Name, &p.Age, &p.Gender, &p.BedNumber, &p.Ward, &p.Diagnosis,
		&p.DepartmentID, &p.AdmissionDate, &p.IsDischarged, &p.DischargeDate, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, db.Translate(err)
	}
	return &p, nil
}

func (r *patientRepoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.AdmissionDate.IsZero() {
		p.AdmissionDate = time.Now()
	}
	err := r.q.QueryRow(ctx, `
		INSERT INTO patient (id, ipd_number, name, age, gender, bed_number, ward, diagnosis, department_id, admission_date)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
		RETURNING created_at, updated_at`,
		p.ID, p.IPDNumber, p.Name, p.Age, p.Gender, p.BedNumber, p.Ward, p.Diagnosis, p.DepartmentID, p.AdmissionDate,
	).Scan(&p.CreatedAt, &p.UpdatedAt)
	return db.Translate(err)
}

func (r *patientRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return r.scanPatient(r.q.QueryRow(ctx, `SELECT `+patientCols+` FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) Update(ctx context.Context, p *Patient) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE patient SET ipd_number=$2, name=$3, age=$4, gender=$5, bed_number=$6, ward=$7,
			diagnosis=$8, department_id=$9, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.IPDNumber, p.Name, p.Age, p.Gender, p.BedNumber, p.Ward, p.Diagnosis, p.DepartmentID))
}

func (r *patientRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM patient WHERE id = $1`, id))
}

func (r *patientRepoPG) List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM patient WHERE `+patientFilter,
		f.Search, f.IncludeDischarged).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `SELECT `+patientCols+` FROM patient WHERE `+patientFilter+`
		ORDER BY admission_date DESC LIMIT $3 OFFSET $4`,
		f.Search, f.IncludeDischarged, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	items, err := r.collect(rows)
	return items, total, err
}

func (r *patientRepoPG) ListActive(ctx context.Context) ([]*Patient, error) {
	rows, err := r.q.Query(ctx, `SELECT `+patientCols+` FROM patient WHERE NOT is_discharged`)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *patientRepoPG) Discharge(ctx context.Context, id uuid.UUID, at time.Time) error {
	return db.ExpectOne(r.q.Exec(ctx, `
		UPDATE patient SET is_discharged = TRUE, discharge_date = $2, updated_at = NOW()
		WHERE id = $1 AND NOT is_discharged`, id, at))
}

func (r *patientRepoPG) collect(rows pgx.Rows) ([]*Patient, error) {
	defer rows.Close()
	var items []*Patient
	for rows.Next() {
		p, err := r.scanPatient(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}

// =========== Assignment Repository ===========

type assignmentRepoPG struct{ q db.Querier }

func NewAssignmentRepoPG(q db.Querier) AssignmentRepository {
	return &assignmentRepoPG{q: q}
}

const assignmentSelect = `SELECT ps.id, ps.patient_id, ps.staff_id, ps.role, ps.assigned_at, COALESCE(s.name, '')
	FROM patient_staff ps LEFT JOIN staff s ON s.id = ps.staff_id`

func (r *assignmentRepoPG) scanAssignment(row pgx.Row) (*StaffAssignment, error) {
	var a StaffAssignment
	if err := row.Scan(&a.ID, &a.PatientID, &a.StaffID, &a.Role, &a.AssignedAt, &a.StaffName); err != nil {
		return nil, db.Translate(err)
	}
	return &a, nil
}

// Assign upserts on (patient_id, role), so a new Doctor assignment replaces
// the previous Doctor in one statement.
func (r *assignmentRepoPG) Assign(ctx context.Context, a *StaffAssignment) error {
	err := r.q.QueryRow(ctx, `
		INSERT INTO patient_staff (id, patient_id, staff_id, role)
		VALUES ($1,$2,$3,$4)
		ON CONFLICT (patient_id, role) DO UPDATE
			SET staff_id = EXCLUDED.staff_id, assigned_at = NOW()
		RETURNING id, assigned_at`,
		uuid.New(), a.PatientID, a.StaffID, a.Role).Scan(&a.ID, &a.AssignedAt)
	return db.Translate(err)
}

func (r *assignmentRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*StaffAssignment, error) {
	rows, err := r.q.Query(ctx, assignmentSelect+` WHERE ps.patient_id = $1 ORDER BY ps.role`, patientID)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *assignmentRepoPG) ListAll(ctx context.Context) ([]*StaffAssignment, error) {
	rows, err := r.q.Query(ctx, assignmentSelect)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *assignmentRepoPG) Remove(ctx context.Context, patientID uuid.UUID, role string) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM patient_staff WHERE patient_id = $1 AND role = $2`, patientID, role))
}

func (r *assignmentRepoPG) collect(rows pgx.Rows) ([]*StaffAssignment, error) {
	defer rows.Close()
	var items []*StaffAssignment
	for rows.Next() {
		a, err := r.scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

// =========== Nursing Note Repository ===========

type nursingNoteRepoPG struct{ q db.Querier }

func NewNursingNoteRepoPG(q db.Querier) NursingNoteRepository {
	return &nursingNoteRepoPG{q: q}
}

func (r *nursingNoteRepoPG) Create(ctx context.Context, n *NursingNote) error {
	n.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO nursing_note (id, patient_id, note, recorded_by)
		VALUES ($1,$2,$3,$4)
		RETURNING recorded_at`,
		n.ID, n.PatientID, n.Note, n.RecordedBy).Scan(&n.RecordedAt)
	return db.Translate(err)
}

func (r *nursingNoteRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NursingNote, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM nursing_note WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, patient_id, note, recorded_by, recorded_at
		FROM nursing_note WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*NursingNote
	for rows.Next() {
		var n NursingNote
		if err := rows.Scan(&n.ID, &n.PatientID, &n.Note, &n.RecordedBy, &n.RecordedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &n)
	}
	return items, total, rows.Err()
}

func (r *nursingNoteRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	return db.ExpectOne(r.q.Exec(ctx, `DELETE FROM nursing_note WHERE id = $1`, id))
}

// =========== Vital Sign Repository ===========

type vitalSignRepoPG struct{ q db.Querier }

func NewVitalSignRepoPG(q db.Querier) VitalSignRepository {
	return &vitalSignRepoPG{q: q}
}

func (r *vitalSignRepoPG) Create(ctx context.Context, v *VitalSign) error {
	v.ID = uuid.New()
	err := r.q.QueryRow(ctx, `
		INSERT INTO vital_sign (id, patient_id, temperature, pulse, systolic_bp, diastolic_bp,
			respiratory_rate, spo2, recorded_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		RETURNING recorded_at`,
		v.ID, v.PatientID, v.Temperature, v.Pulse, v.SystolicBP, v.DiastolicBP,
		v.RespiratoryRate, v.SpO2, v.RecordedBy).Scan(&v.RecordedAt)
	return db.Translate(err)
}

func (r *vitalSignRepoPG) ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSign, int, error) {
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM vital_sign WHERE patient_id = $1`, patientID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.q.Query(ctx, `
		SELECT id, patient_id, temperature, pulse, systolic_bp, diastolic_bp, respiratory_rate, spo2,
			recorded_by, recorded_at
		FROM vital_sign WHERE patient_id = $1 ORDER BY recorded_at DESC LIMIT $2 OFFSET $3`,
		patientID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var items []*VitalSign
	for rows.Next() {
		var v VitalSign
		if err := rows.Scan(&v.ID, &v.PatientID, &v.Temperature, &v.Pulse, &v.SystolicBP, &v.DiastolicBP,
			&v.RespiratoryRate, &v.SpO2, &v.RecordedBy, &v.RecordedAt); err != nil {
			return nil, 0, err
		}
		items = append(items, &v)
	}
	return items, total, rows.Err()
}

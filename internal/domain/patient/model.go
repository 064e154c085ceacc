package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient maps to the patient table.
type Patient struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	IPDNumber     string     `db:"ipd_number" json:"ipd_number"`
	Name          string     `db:"name" json:"name"`
	Age           *int       `db:"age" json:"age,omitempty"`
	Gender        *string    `db:"gender" json:"gender,omitempty"`
	BedNumber     *string    `db:"bed_number" json:"bed_number,omitempty"`
	Ward          *string    `db:"ward" json:"ward,omitempty"`
	Diagnosis     *string    `db:"diagnosis" json:"diagnosis,omitempty"`
	DepartmentID  *uuid.UUID `db:"department_id" json:"department_id,omitempty"`
	AdmissionDate time.Time  `db:"admission_date" json:"admission_date"`
	IsDischarged  bool       `db:"is_discharged" json:"is_discharged"`
	DischargeDate *time.Time `db:"discharge_date" json:"discharge_date,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`
}

// PatientFilter narrows List results.
type PatientFilter struct {
	// Search matches name or IPD number, case-insensitively.
	Search            string
	IncludeDischarged bool
}

// StaffAssignment maps to the patient_staff table. A patient has at most
// one assignment per role.
type StaffAssignment struct {
	ID         uuid.UUID `db:"id" json:"id"`
	PatientID  uuid.UUID `db:"patient_id" json:"patient_id"`
	StaffID    uuid.UUID `db:"staff_id" json:"staff_id"`
	Role       string    `db:"role" json:"role"`
	AssignedAt time.Time `db:"assigned_at" json:"assigned_at"`
	// StaffName is joined from staff on reads.
	StaffName string `db:"staff_name" json:"staff_name,omitempty"`
}

// NursingNote maps to the nursing_note table.
type NursingNote struct {
	ID         uuid.UUID  `db:"id" json:"id"`
	PatientID  uuid.UUID  `db:"patient_id" json:"patient_id"`
	Note       string     `db:"note" json:"note"`
	RecordedBy *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt time.Time  `db:"recorded_at" json:"recorded_at"`
}

// VitalSign maps to the vital_sign table.
type VitalSign struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	Temperature     *float64   `db:"temperature" json:"temperature,omitempty"`
	Pulse           *int       `db:"pulse" json:"pulse,omitempty"`
	SystolicBP      *int       `db:"systolic_bp" json:"systolic_bp,omitempty"`
	DiastolicBP     *int       `db:"diastolic_bp" json:"diastolic_bp,omitempty"`
	RespiratoryRate *int       `db:"respiratory_rate" json:"respiratory_rate,omitempty"`
	SpO2            *int       `db:"spo2" json:"spo2,omitempty"`
	RecordedBy      *uuid.UUID `db:"recorded_by" json:"recorded_by,omitempty"`
	RecordedAt      time.Time  `db:"recorded_at" json:"recorded_at"`
}

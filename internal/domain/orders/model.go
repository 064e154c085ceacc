package orders

import (
	"time"

	"github.com/google/uuid"
)

// Order kinds, as used in routes, events and metrics.
const (
	KindMedication    = "medication"
	KindProcedure     = "procedure"
	KindInvestigation = "investigation"
)

// Priorities, most urgent first.
const (
	PriorityHigh   = "High"
	PriorityMedium = "Medium"
	PriorityLow    = "Low"
)

// PriorityRank orders priorities for sorting: High < Medium < Low. Unknown
// values rank with Medium.
func PriorityRank(p string) int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityLow:
		return 2
	default:
		return 1
	}
}

func validPriority(p string) bool {
	return p == PriorityHigh || p == PriorityMedium || p == PriorityLow
}

// MedicationOrder maps to the medication_order table. ScheduledTime is a
// daily wall-clock time ("HH:MM") in the ward's time zone; StartDate and
// EndDate are calendar dates ("YYYY-MM-DD").
type MedicationOrder struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	PatientID     uuid.UUID  `db:"patient_id" json:"patient_id"`
	MedicationID  uuid.UUID  `db:"medication_id" json:"medication_id"`
	Dosage        string     `db:"dosage" json:"dosage"`
	ScheduledTime string     `db:"scheduled_time" json:"scheduled_time"`
	StartDate     string     `db:"start_date" json:"start_date"`
	EndDate       *string    `db:"end_date" json:"end_date,omitempty"`
	Priority      string     `db:"priority" json:"priority"`
	IsCompleted   bool       `db:"is_completed" json:"is_completed"`
	CompletedAt   *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy   *uuid.UUID `db:"completed_by" json:"completed_by,omitempty"`
	Notes         *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
}

// ProcedureOrder maps to the procedure_order table.
type ProcedureOrder struct {
	ID          uuid.UUID  `db:"id" json:"id"`
	PatientID   uuid.UUID  `db:"patient_id" json:"patient_id"`
	ProcedureID uuid.UUID  `db:"procedure_id" json:"procedure_id"`
	ScheduledAt time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Priority    string     `db:"priority" json:"priority"`
	IsCompleted bool       `db:"is_completed" json:"is_completed"`
	CompletedAt *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy *uuid.UUID `db:"completed_by" json:"completed_by,omitempty"`
	Notes       *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
}

// InvestigationOrder maps to the investigation_order table.
type InvestigationOrder struct {
	ID              uuid.UUID  `db:"id" json:"id"`
	PatientID       uuid.UUID  `db:"patient_id" json:"patient_id"`
	InvestigationID uuid.UUID  `db:"investigation_id" json:"investigation_id"`
	ScheduledAt     time.Time  `db:"scheduled_at" json:"scheduled_at"`
	Priority        string     `db:"priority" json:"priority"`
	ResultValue     *string    `db:"result_value" json:"result_value,omitempty"`
	IsCompleted     bool       `db:"is_completed" json:"is_completed"`
	CompletedAt     *time.Time `db:"completed_at" json:"completed_at,omitempty"`
	CompletedBy     *uuid.UUID `db:"completed_by" json:"completed_by,omitempty"`
	Notes           *string    `db:"notes" json:"notes,omitempty"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
}

// Filter narrows order queries. Zero values match everything.
type Filter struct {
	PatientID *uuid.UUID
	// Day is midnight of a calendar day in the ward time zone. Medication
	// orders match on start_date; timed orders match scheduled_at within
	// [Day, Day+24h).
	Day         *time.Time
	PendingOnly bool
}

// Completion describes who completed an order and when. Result applies to
// investigation orders only.
type Completion struct {
	By     *uuid.UUID
	At     time.Time
	Result *string
}

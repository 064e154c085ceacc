package timeline

import (
	"time"

	"github.com/google/uuid"
)

// PatientSummary is the patient block of a timeline row, enriched with the
// names of the assigned doctor and nurse.
type PatientSummary struct {
	ID        uuid.UUID `json:"id"`
	IPDNumber string    `json:"ipdNumber"`
	Name      string    `json:"name"`
	BedNumber string    `json:"bedNumber"`
	Ward      string    `json:"ward"`
	Diagnosis string    `json:"diagnosis"`
	Doctor    string    `json:"doctor"`
	Nurse     string    `json:"nurse"`
}

// Treatment is a single pending order within a timeline row. Details holds
// the dosage for medication orders and the result value for investigation
// orders.
type Treatment struct {
	ID          uuid.UUID `json:"id"`
	Type        string    `json:"type"`
	Name        string    `json:"name"`
	Details     string    `json:"details"`
	IsCompleted bool      `json:"isCompleted"`
	Priority    string    `json:"priority"`
}

// Row groups the treatments due for one patient at one HH:MM time.
type Row struct {
	Time       string         `json:"time"`
	Patient    PatientSummary `json:"patient"`
	Treatments []Treatment    `json:"treatments"`
}

// Filter narrows the timeline. Date is midnight of a calendar day in the
// ward time zone.
type Filter struct {
	PatientID *uuid.UUID
	Date      *time.Time
}

// Notification is a due or overdue pending order.
type Notification struct {
	ID            uuid.UUID `json:"id"`
	Type          string    `json:"type"`
	Message       string    `json:"message"`
	PatientName   string    `json:"patientName"`
	IPDNumber     string    `json:"ipdNumber"`
	BedNumber     string    `json:"bedNumber"`
	ScheduledTime string    `json:"scheduledTime"`
	Priority      string    `json:"priority"`
	IsOverdue     bool      `json:"isOverdue"`
	TreatmentName string    `json:"treatmentName"`
	Details       string    `json:"details"`

	scheduledAt time.Time
}

package patient

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type PatientRepository interface {
	Create(ctx context.Context, p *Patient) error
	GetByID(ctx context.Context, id uuid.UUID) (*Patient, error)
	Update(ctx context.Context, p *Patient) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error)
	// ListActive returns every patient that has not been discharged.
	ListActive(ctx context.Context) ([]*Patient, error)
	Discharge(ctx context.Context, id uuid.UUID, at time.Time) error
}

type AssignmentRepository interface {
	// Assign replaces any existing assignment for the same patient and role.
	Assign(ctx context.Context, a *StaffAssignment) error
	ListByPatient(ctx context.Context, patientID uuid.UUID) ([]*StaffAssignment, error)
	ListAll(ctx context.Context) ([]*StaffAssignment, error)
	Remove(ctx context.Context, patientID uuid.UUID, role string) error
}

type NursingNoteRepository interface {
	Create(ctx context.Context, n *NursingNote) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NursingNote, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type VitalSignRepository interface {
	Create(ctx context.Context, v *VitalSign) error
	ListByPatient(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSign, int, error)
}

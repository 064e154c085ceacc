package patient

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ward/ward/internal/domain/staff"
	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/db"
)

// StaffLookup resolves staff members for assignment checks.
type StaffLookup interface {
	GetStaff(ctx context.Context, id uuid.UUID) (*staff.Staff, error)
}

type Service struct {
	patients    PatientRepository
	assignments AssignmentRepository
	notes       NursingNoteRepository
	vitals      VitalSignRepository
	staff       StaffLookup
	now         func() time.Time
}

func NewService(
	patients PatientRepository,
	assignments AssignmentRepository,
	notes NursingNoteRepository,
	vitals VitalSignRepository,
	staffLookup StaffLookup,
) *Service {
	return &Service{
		patients:    patients,
		assignments: assignments,
		notes:       notes,
		vitals:      vitals,
		staff:       staffLookup,
		now:         time.Now,
	}
}

// -- Patient --

func validatePatient(p *Patient) error {
	p.IPDNumber = strings.TrimSpace(p.IPDNumber)
	p.Name = strings.TrimSpace(p.Name)
	if p.IPDNumber == "" {
		return apierr.Invalid("ipd_number is required")
	}
	if p.Name == "" {
		return apierr.Invalid("name is required")
	}
	if p.Age != nil && (*p.Age < 0 || *p.Age > 150) {
		return apierr.Invalid("age must be between 0 and 150")
	}
	return nil
}

func (s *Service) CreatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	p.IsDischarged = false
	p.DischargeDate = nil
	return s.patients.Create(ctx, p)
}

func (s *Service) GetPatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return s.patients.GetByID(ctx, id)
}

func (s *Service) UpdatePatient(ctx context.Context, p *Patient) error {
	if err := validatePatient(p); err != nil {
		return err
	}
	return s.patients.Update(ctx, p)
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	return s.patients.Delete(ctx, id)
}

func (s *Service) ListPatients(ctx context.Context, f PatientFilter, limit, offset int) ([]*Patient, int, error) {
	return s.patients.List(ctx, f, limit, offset)
}

// ActivePatients returns all admitted, non-discharged patients.
func (s *Service) ActivePatients(ctx context.Context) ([]*Patient, error) {
	return s.patients.ListActive(ctx)
}

// DischargePatient marks an admitted patient as discharged. Discharged
// patients drop out of the timeline and notifications.
func (s *Service) DischargePatient(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, err := s.patients.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsDischarged {
		return nil, apierr.Invalid("patient is already discharged")
	}
	at := s.now()
	if err := s.patients.Discharge(ctx, id, at); err != nil {
		return nil, err
	}
	p.IsDischarged = true
	p.DischargeDate = &at
	return p, nil
}

// -- Staff Assignment --

// AssignStaff assigns a doctor or nurse to a patient, replacing whoever
// held that role before. The staff member's own role must match.
func (s *Service) AssignStaff(ctx context.Context, patientID, staffID uuid.UUID, role string) (*StaffAssignment, error) {
	if !staff.ValidRole(role) {
		return nil, apierr.Invalid("role must be %q or %q", staff.RoleDoctor, staff.RoleNurse)
	}
	if staffID == uuid.Nil {
		return nil, apierr.Invalid("staff_id is required")
	}
	if _, err := s.patients.GetByID(ctx, patientID); err != nil {
		return nil, err
	}
	member, err := s.staff.GetStaff(ctx, staffID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, apierr.Invalid("staff member %s does not exist", staffID)
	}
	if err != nil {
		return nil, fmt.Errorf("lookup staff %s: %w", staffID, err)
	}
	if member.Role != role {
		return nil, apierr.Invalid("staff member %s is a %s, not a %s", member.Name, member.Role, role)
	}
	if !member.IsActive {
		return nil, apierr.Invalid("staff member %s is inactive", member.Name)
	}

	a := &StaffAssignment{PatientID: patientID, StaffID: staffID, Role: role}
	if err := s.assignments.Assign(ctx, a); err != nil {
		return nil, err
	}
	a.StaffName = member.Name
	return a, nil
}

func (s *Service) ListAssignments(ctx context.Context, patientID uuid.UUID) ([]*StaffAssignment, error) {
	return s.assignments.ListByPatient(ctx, patientID)
}

// AllAssignments returns every assignment on the ward.
func (s *Service) AllAssignments(ctx context.Context) ([]*StaffAssignment, error) {
	return s.assignments.ListAll(ctx)
}

func (s *Service) RemoveAssignment(ctx context.Context, patientID uuid.UUID, role string) error {
	if !staff.ValidRole(role) {
		return apierr.Invalid("role must be %q or %q", staff.RoleDoctor, staff.RoleNurse)
	}
	return s.assignments.Remove(ctx, patientID, role)
}

// -- Nursing Notes --

func (s *Service) AddNursingNote(ctx context.Context, n *NursingNote) error {
	n.Note = strings.TrimSpace(n.Note)
	if n.PatientID == uuid.Nil {
		return apierr.Invalid("patient_id is required")
	}
	if n.Note == "" {
		return apierr.Invalid("note is required")
	}
	return s.notes.Create(ctx, n)
}

func (s *Service) ListNursingNotes(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*NursingNote, int, error) {
	return s.notes.ListByPatient(ctx, patientID, limit, offset)
}

func (s *Service) DeleteNursingNote(ctx context.Context, id uuid.UUID) error {
	return s.notes.Delete(ctx, id)
}

// -- Vital Signs --

func intInRange(v *int, name string, lo, hi int) error {
	if v != nil && (*v < lo || *v > hi) {
		return apierr.Invalid("%s must be between %d and %d", name, lo, hi)
	}
	return nil
}

func validateVitals(v *VitalSign) error {
	if v.PatientID == uuid.Nil {
		return apierr.Invalid("patient_id is required")
	}
	if v.Temperature == nil && v.Pulse == nil && v.SystolicBP == nil && v.DiastolicBP == nil &&
		v.RespiratoryRate == nil && v.SpO2 == nil {
		return apierr.Invalid("at least one measurement is required")
	}
	if v.Temperature != nil && (*v.Temperature < 25 || *v.Temperature > 45) {
		return apierr.Invalid("temperature must be between 25 and 45")
	}
	if err := intInRange(v.Pulse, "pulse", 0, 300); err != nil {
		return err
	}
	if err := intInRange(v.SystolicBP, "systolic_bp", 0, 300); err != nil {
		return err
	}
	if err := intInRange(v.DiastolicBP, "diastolic_bp", 0, 200); err != nil {
		return err
	}
	if err := intInRange(v.RespiratoryRate, "respiratory_rate", 0, 100); err != nil {
		return err
	}
	return intInRange(v.SpO2, "spo2", 0, 100)
}

func (s *Service) RecordVitals(ctx context.Context, v *VitalSign) error {
	if err := validateVitals(v); err != nil {
		return err
	}
	return s.vitals.Create(ctx, v)
}

func (s *Service) ListVitals(ctx context.Context, patientID uuid.UUID, limit, offset int) ([]*VitalSign, int, error) {
	return s.vitals.ListByPatient(ctx, patientID, limit, offset)
}

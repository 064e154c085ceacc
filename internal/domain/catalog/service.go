package catalog

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/ward/ward/internal/platform/apierr"
)

type Service struct {
	medications    MedicationRepository
	procedures     ProcedureRepository
	investigations InvestigationRepository
}

func NewService(medications MedicationRepository, procedures ProcedureRepository, investigations InvestigationRepository) *Service {
	return &Service{
		medications:    medications,
		procedures:     procedures,
		investigations: investigations,
	}
}

func requireName(name *string) error {
	*name = strings.TrimSpace(*name)
	if *name == "" {
		return apierr.Invalid("name is required")
	}
	return nil
}

// -- Medication --

func (s *Service) CreateMedication(ctx context.Context, m *Medication) error {
	if err := requireName(&m.Name); err != nil {
		return err
	}
	return s.medications.Create(ctx, m)
}

func (s *Service) GetMedication(ctx context.Context, id uuid.UUID) (*Medication, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedication(ctx context.Context, m *Medication) error {
	if err := requireName(&m.Name); err != nil {
		return err
	}
	return s.medications.Update(ctx, m)
}

func (s *Service) DeleteMedication(ctx context.Context, id uuid.UUID) error {
	return s.medications.Delete(ctx, id)
}

func (s *Service) ListMedications(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error) {
	return s.medications.List(ctx, search, limit, offset)
}

// AllMedications returns the full catalog for lookups.
func (s *Service) AllMedications(ctx context.Context) ([]*Medication, error) {
	return s.medications.ListAll(ctx)
}

// -- Procedure --

func (s *Service) CreateProcedure(ctx context.Context, p *Procedure) error {
	if err := requireName(&p.Name); err != nil {
		return err
	}
	if p.DurationMinutes != nil && *p.DurationMinutes < 0 {
		return apierr.Invalid("duration_minutes must not be negative")
	}
	return s.procedures.Create(ctx, p)
}

func (s *Service) GetProcedure(ctx context.Context, id uuid.UUID) (*Procedure, error) {
	return s.procedures.GetByID(ctx, id)
}

func (s *Service) UpdateProcedure(ctx context.Context, p *Procedure) error {
	if err := requireName(&p.Name); err != nil {
		return err
	}
	if p.DurationMinutes != nil && *p.DurationMinutes < 0 {
		return apierr.Invalid("duration_minutes must not be negative")
	}
	return s.procedures.Update(ctx, p)
}

func (s *Service) DeleteProcedure(ctx context.Context, id uuid.UUID) error {
	return s.procedures.Delete(ctx, id)
}

func (s *Service) ListProcedures(ctx context.Context, search string, limit, offset int) ([]*Procedure, int, error) {
	return s.procedures.List(ctx, search, limit, offset)
}

func (s *Service) AllProcedures(ctx context.Context) ([]*Procedure, error) {
	return s.procedures.ListAll(ctx)
}

// -- Investigation --

func (s *Service) CreateInvestigation(ctx context.Context, i *Investigation) error {
	if err := requireName(&i.Name); err != nil {
		return err
	}
	return s.investigations.Create(ctx, i)
}

func (s *Service) GetInvestigation(ctx context.Context, id uuid.UUID) (*Investigation, error) {
	return s.investigations.GetByID(ctx, id)
}

func (s *Service) UpdateInvestigation(ctx context.Context, i *Investigation) error {
	if err := requireName(&i.Name); err != nil {
		return err
	}
	return s.investigations.Update(ctx, i)
}

func (s *Service) DeleteInvestigation(ctx context.Context, id uuid.UUID) error {
	return s.investigations.Delete(ctx, id)
}

func (s *Service) ListInvestigations(ctx context.Context, search string, limit, offset int) ([]*Investigation, int, error) {
	return s.investigations.List(ctx, search, limit, offset)
}

func (s *Service) AllInvestigations(ctx context.Context) ([]*Investigation, error) {
	return s.investigations.ListAll(ctx)
}

package catalog

import (
	"context"

	"github.com/google/uuid"
)

type MedicationRepository interface {
	Create(ctx context.Context, m *Medication) error
	GetByID(ctx context.Context, id uuid.UUID) (*Medication, error)
	Update(ctx context.Context, m *Medication) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, search string, limit, offset int) ([]*Medication, int, error)
	ListAll(ctx context.Context) ([]*Medication, error)
}

type ProcedureRepository interface {
	Create(ctx context.Context, p *Procedure) error
	GetByID(ctx context.Context, id uuid.UUID) (*Procedure, error)
	Update(ctx context.Context, p *Procedure) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, search string, limit, offset int) ([]*Procedure, int, error)
	ListAll(ctx context.Context) ([]*Procedure, error)
}

type InvestigationRepository interface {
	Create(ctx context.Context, i *Investigation) error
	GetByID(ctx context.Context, id uuid.UUID) (*Investigation, error)
	Update(ctx context.Context, i *Investigation) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, search string, limit, offset int) ([]*Investigation, int, error)
	ListAll(ctx context.Context) ([]*Investigation, error)
}

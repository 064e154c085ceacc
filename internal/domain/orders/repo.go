package orders

import (
	"context"

	"github.com/google/uuid"
)

type MedicationOrderRepository interface {
	Create(ctx context.Context, o *MedicationOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*MedicationOrder, error)
	Update(ctx context.Context, o *MedicationOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*MedicationOrder, int, error)
	// ListAll returns every order matching f without paging.
	ListAll(ctx context.Context, f Filter) ([]*MedicationOrder, error)
	// Complete marks the order done. A repeated call keeps the first
	// completion time and actor.
	Complete(ctx context.Context, id uuid.UUID, c Completion) (*MedicationOrder, error)
}

type ProcedureOrderRepository interface {
	Create(ctx context.Context, o *ProcedureOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*ProcedureOrder, error)
	Update(ctx context.Context, o *ProcedureOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*ProcedureOrder, int, error)
	ListAll(ctx context.Context, f Filter) ([]*ProcedureOrder, error)
	Complete(ctx context.Context, id uuid.UUID, c Completion) (*ProcedureOrder, error)
}

type InvestigationOrderRepository interface {
	Create(ctx context.Context, o *InvestigationOrder) error
	GetByID(ctx context.Context, id uuid.UUID) (*InvestigationOrder, error)
	Update(ctx context.Context, o *InvestigationOrder) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, f Filter, limit, offset int) ([]*InvestigationOrder, int, error)
	ListAll(ctx context.Context, f Filter) ([]*InvestigationOrder, error)
	Complete(ctx context.Context, id uuid.UUID, c Completion) (*InvestigationOrder, error)
}

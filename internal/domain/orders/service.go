package orders

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/events"
)

const dateLayout = "2006-01-02"

var scheduledTimePattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

type Service struct {
	medications    MedicationOrderRepository
	procedures     ProcedureOrderRepository
	investigations InvestigationOrderRepository
	publisher      events.Publisher
	metrics        *Metrics
	logger         zerolog.Logger
	now            func() time.Time
}

func NewService(
	medications MedicationOrderRepository,
	procedures ProcedureOrderRepository,
	investigations InvestigationOrderRepository,
	publisher events.Publisher,
	logger zerolog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &Service{
		medications:    medications,
		procedures:     procedures,
		investigations: investigations,
		publisher:      publisher,
		logger:         logger.With().Str("component", "orders").Logger(),
		now:            time.Now,
	}
}

// SetMetrics attaches optional counters to the service.
func (s *Service) SetMetrics(m *Metrics) {
	s.metrics = m
}

// publish emits an order event. Failures are logged and never fail the
// mutation that already committed.
func (s *Service) publish(ctx context.Context, eventType, kind string, id uuid.UUID, data map[string]interface{}) {
	if data == nil {
		data = make(map[string]interface{})
	}
	data["order_id"] = id.String()
	data["order_type"] = kind
	if err := s.publisher.Publish(ctx, eventType, data); err != nil {
		s.logger.Error().Err(err).
			Str("event_type", eventType).
			Str("order_type", kind).
			Str("order_id", id.String()).
			Msg("failed to publish order event")
	}
}

func (s *Service) completed(ctx context.Context, kind string, id uuid.UUID, c Completion) {
	s.metrics.orderCompleted(kind)
	data := map[string]interface{}{"completed_at": c.At.UTC().Format(time.RFC3339)}
	if c.By != nil {
		data["completed_by"] = c.By.String()
	}
	s.publish(ctx, events.OrderCompleted, kind, id, data)
}

func (s *Service) deleted(ctx context.Context, kind string, id uuid.UUID) {
	s.metrics.orderDeleted(kind)
	s.publish(ctx, events.OrderDeleted, kind, id, nil)
}

func normalizePriority(p *string) error {
	*p = strings.TrimSpace(*p)
	if *p == "" {
		*p = PriorityMedium
		return nil
	}
	if !validPriority(*p) {
		return apierr.Invalid("priority must be one of %s, %s, %s", PriorityHigh, PriorityMedium, PriorityLow)
	}
	return nil
}

// -- Medication Orders --

func (s *Service) validateMedicationOrder(o *MedicationOrder) error {
	if o.PatientID == uuid.Nil {
		return apierr.Invalid("patient_id is required")
	}
	if o.MedicationID == uuid.Nil {
		return apierr.Invalid("medication_id is required")
	}
	o.ScheduledTime = strings.TrimSpace(o.ScheduledTime)
	if !scheduledTimePattern.MatchString(o.ScheduledTime) {
		return apierr.Invalid("scheduled_time must be HH:MM (24-hour)")
	}
	o.Dosage = strings.TrimSpace(o.Dosage)
	if o.StartDate == "" {
		o.StartDate = s.now().Format(dateLayout)
	}
	start, err := time.Parse(dateLayout, o.StartDate)
	if err != nil {
		return apierr.Invalid("start_date must be YYYY-MM-DD")
	}
	if o.EndDate != nil {
		end, err := time.Parse(dateLayout, *o.EndDate)
		if err != nil {
			return apierr.Invalid("end_date must be YYYY-MM-DD")
		}
		if end.Before(start) {
			return apierr.Invalid("end_date must not be before start_date")
		}
	}
	return normalizePriority(&o.Priority)
}

func (s *Service) CreateMedicationOrder(ctx context.Context, o *MedicationOrder) error {
	if err := s.validateMedicationOrder(o); err != nil {
		return err
	}
	o.IsCompleted = false
	o.CompletedAt = nil
	o.CompletedBy = nil
	return s.medications.Create(ctx, o)
}

func (s *Service) GetMedicationOrder(ctx context.Context, id uuid.UUID) (*MedicationOrder, error) {
	return s.medications.GetByID(ctx, id)
}

func (s *Service) UpdateMedicationOrder(ctx context.Context, o *MedicationOrder) error {
	if err := s.validateMedicationOrder(o); err != nil {
		return err
	}
	return s.medications.Update(ctx, o)
}

func (s *Service) ListMedicationOrders(ctx context.Context, f Filter, limit, offset int) ([]*MedicationOrder, int, error) {
	return s.medications.List(ctx, f, limit, offset)
}

// PendingMedicationOrders returns every incomplete medication order
// matching f.
func (s *Service) PendingMedicationOrders(ctx context.Context, f Filter) ([]*MedicationOrder, error) {
	f.PendingOnly = true
	return s.medications.ListAll(ctx, f)
}

func (s *Service) CompleteMedicationOrder(ctx context.Context, id uuid.UUID, by *uuid.UUID) (*MedicationOrder, error) {
	c := Completion{By: by, At: s.now()}
	o, err := s.medications.Complete(ctx, id, c)
	if err != nil {
		return nil, err
	}
	s.completed(ctx, KindMedication, id, c)
	return o, nil
}

func (s *Service) DeleteMedicationOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.medications.Delete(ctx, id); err != nil {
		return err
	}
	s.deleted(ctx, KindMedication, id)
	return nil
}

// -- Procedure Orders --

func validateProcedureOrder(o *ProcedureOrder) error {
	if o.PatientID == uuid.Nil {
		return apierr.Invalid("patient_id is required")
	}
	if o.ProcedureID == uuid.Nil {
		return apierr.Invalid("procedure_id is required")
	}
	if o.ScheduledAt.IsZero() {
		return apierr.Invalid("scheduled_at is required")
	}
	return normalizePriority(&o.Priority)
}

func (s *Service) CreateProcedureOrder(ctx context.Context, o *ProcedureOrder) error {
	if err := validateProcedureOrder(o); err != nil {
		return err
	}
	o.IsCompleted = false
	o.CompletedAt = nil
	o.CompletedBy = nil
	return s.procedures.Create(ctx, o)
}

func (s *Service) GetProcedureOrder(ctx context.Context, id uuid.UUID) (*ProcedureOrder, error) {
	return s.procedures.GetByID(ctx, id)
}

func (s *Service) UpdateProcedureOrder(ctx context.Context, o *ProcedureOrder) error {
	if err := validateProcedureOrder(o); err != nil {
		return err
	}
	return s.procedures.Update(ctx, o)
}

func (s *Service) ListProcedureOrders(ctx context.Context, f Filter, limit, offset int) ([]*ProcedureOrder, int, error) {
	return s.procedures.List(ctx, f, limit, offset)
}

func (s *Service) PendingProcedureOrders(ctx context.Context, f Filter) ([]*ProcedureOrder, error) {
	f.PendingOnly = true
	return s.procedures.ListAll(ctx, f)
}

func (s *Service) CompleteProcedureOrder(ctx context.Context, id uuid.UUID, by *uuid.UUID) (*ProcedureOrder, error) {
	c := Completion{By: by, At: s.now()}
	o, err := s.procedures.Complete(ctx, id, c)
	if err != nil {
		return nil, err
	}
	s.completed(ctx, KindProcedure, id, c)
	return o, nil
}

func (s *Service) DeleteProcedureOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.procedures.Delete(ctx, id); err != nil {
		return err
	}
	s.deleted(ctx, KindProcedure, id)
	return nil
}

// -- Investigation Orders --

func validateInvestigationOrder(o *InvestigationOrder) error {
	if o.PatientID == uuid.Nil {
		return apierr.Invalid("patient_id is required")
	}
	if o.InvestigationID == uuid.Nil {
		return apierr.Invalid("investigation_id is required")
	}
	if o.ScheduledAt.IsZero() {
		return apierr.Invalid("scheduled_at is required")
	}
	return normalizePriority(&o.Priority)
}

func (s *Service) CreateInvestigationOrder(ctx context.Context, o *InvestigationOrder) error {
	if err := validateInvestigationOrder(o); err != nil {
		return err
	}
	o.IsCompleted = false
	o.CompletedAt = nil
	o.CompletedBy = nil
	return s.investigations.Create(ctx, o)
}

func (s *Service) GetInvestigationOrder(ctx context.Context, id uuid.UUID) (*InvestigationOrder, error) {
	return s.investigations.GetByID(ctx, id)
}

func (s *Service) UpdateInvestigationOrder(ctx context.Context, o *InvestigationOrder) error {
	if err := validateInvestigationOrder(o); err != nil {
		return err
	}
	return s.investigations.Update(ctx, o)
}

func (s *Service) ListInvestigationOrders(ctx context.Context, f Filter, limit, offset int) ([]*InvestigationOrder, int, error) {
	return s.investigations.List(ctx, f, limit, offset)
}

func (s *Service) PendingInvestigationOrders(ctx context.Context, f Filter) ([]*InvestigationOrder, error) {
	f.PendingOnly = true
	return s.investigations.ListAll(ctx, f)
}

// CompleteInvestigationOrder completes the order, storing result when it is
// non-empty.
func (s *Service) CompleteInvestigationOrder(ctx context.Context, id uuid.UUID, by *uuid.UUID, result *string) (*InvestigationOrder, error) {
	if result != nil {
		trimmed := strings.TrimSpace(*result)
		if trimmed == "" {
			result = nil
		} else {
			result = &trimmed
		}
	}
	c := Completion{By: by, At: s.now(), Result: result}
	o, err := s.investigations.Complete(ctx, id, c)
	if err != nil {
		return nil, err
	}
	s.completed(ctx, KindInvestigation, id, c)
	return o, nil
}

func (s *Service) DeleteInvestigationOrder(ctx context.Context, id uuid.UUID) error {
	if err := s.investigations.Delete(ctx, id); err != nil {
		return err
	}
	s.deleted(ctx, KindInvestigation, id)
	return nil
}

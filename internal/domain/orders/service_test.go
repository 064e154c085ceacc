package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ward/ward/internal/platform/apierr"
	"github.com/ward/ward/internal/platform/db"
	"github.com/ward/ward/internal/platform/events"
)

// -- Mock Repositories --

type mockMedicationRepo struct {
	records map[uuid.UUID]*MedicationOrder
}

func newMockMedicationRepo() *mockMedicationRepo {
	return &mockMedicationRepo{records: make(map[uuid.UUID]*MedicationOrder)}
}

func (m *mockMedicationRepo) Create(_ context.Context, o *MedicationOrder) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	cp := *o
	m.records[o.ID] = &cp
	return nil
}

func (m *mockMedicationRepo) GetByID(_ context.Context, id uuid.UUID) (*MedicationOrder, error) {
	o, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockMedicationRepo) Update(_ context.Context, o *MedicationOrder) error {
	if _, ok := m.records[o.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *o
	m.records[o.ID] = &cp
	return nil
}

func (m *mockMedicationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockMedicationRepo) matches(o *MedicationOrder, f Filter) bool {
	if f.PatientID != nil && o.PatientID != *f.PatientID {
		return false
	}
	if f.Day != nil && o.StartDate != f.Day.Format(dateLayout) {
		return false
	}
	return !(f.PendingOnly && o.IsCompleted)
}

func (m *mockMedicationRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*MedicationOrder, int, error) {
	all, _ := m.ListAll(ctx, f)
	return all, len(all), nil
}

func (m *mockMedicationRepo) ListAll(_ context.Context, f Filter) ([]*MedicationOrder, error) {
	var result []*MedicationOrder
	for _, o := range m.records {
		if m.matches(o, f) {
			cp := *o
			result = append(result, &cp)
		}
	}
	return result, nil
}

func (m *mockMedicationRepo) Complete(_ context.Context, id uuid.UUID, c Completion) (*MedicationOrder, error) {
	o, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	o.IsCompleted = true
	if o.CompletedAt == nil {
		at := c.At
		o.CompletedAt = &at
	}
	if o.CompletedBy == nil {
		o.CompletedBy = c.By
	}
	cp := *o
	return &cp, nil
}

type mockProcedureRepo struct {
	records map[uuid.UUID]*ProcedureOrder
}

func newMockProcedureRepo() *mockProcedureRepo {
	return &mockProcedureRepo{records: make(map[uuid.UUID]*ProcedureOrder)}
}

func (m *mockProcedureRepo) Create(_ context.Context, o *ProcedureOrder) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	cp := *o
	m.records[o.ID] = &cp
	return nil
}

func (m *mockProcedureRepo) GetByID(_ context.Context, id uuid.UUID) (*ProcedureOrder, error) {
	o, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockProcedureRepo) Update(_ context.Context, o *ProcedureOrder) error {
	if _, ok := m.records[o.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *o
	m.records[o.ID] = &cp
	return nil
}

func (m *mockProcedureRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockProcedureRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*ProcedureOrder, int, error) {
	all, _ := m.ListAll(ctx, f)
	return all, len(all), nil
}

func (m *mockProcedureRepo) ListAll(_ context.Context, f Filter) ([]*ProcedureOrder, error) {
	var result []*ProcedureOrder
	for _, o := range m.records {
		if f.PatientID != nil && o.PatientID != *f.PatientID {
			continue
		}
		if f.Day != nil && (o.ScheduledAt.Before(*f.Day) || !o.ScheduledAt.Before(f.Day.AddDate(0, 0, 1))) {
			continue
		}
		if f.PendingOnly && o.IsCompleted {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockProcedureRepo) Complete(_ context.Context, id uuid.UUID, c Completion) (*ProcedureOrder, error) {
	o, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	o.IsCompleted = true
	if o.CompletedAt == nil {
		at := c.At
		o.CompletedAt = &at
	}
	if o.CompletedBy == nil {
		o.CompletedBy = c.By
	}
	cp := *o
	return &cp, nil
}

type mockInvestigationRepo struct {
	records map[uuid.UUID]*InvestigationOrder
}

func newMockInvestigationRepo() *mockInvestigationRepo {
	return &mockInvestigationRepo{records: make(map[uuid.UUID]*InvestigationOrder)}
}

func (m *mockInvestigationRepo) Create(_ context.Context, o *InvestigationOrder) error {
	o.ID = uuid.New()
	o.CreatedAt = time.Now()
	cp := *o
	m.records[o.ID] = &cp
	return nil
}

func (m *mockInvestigationRepo) GetByID(_ context.Context, id uuid.UUID) (*InvestigationOrder, error) {
	o, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *mockInvestigationRepo) Update(_ context.Context, o *InvestigationOrder) error {
	if _, ok := m.records[o.ID]; !ok {
		return db.ErrNotFound
	}
	cp := *o
	m.records[o.ID] = &cp
	return nil
}

func (m *mockInvestigationRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.records[id]; !ok {
		return db.ErrNotFound
	}
	delete(m.records, id)
	return nil
}

func (m *mockInvestigationRepo) List(ctx context.Context, f Filter, limit, offset int) ([]*InvestigationOrder, int, error) {
	all, _ := m.ListAll(ctx, f)
	return all, len(all), nil
}

func (m *mockInvestigationRepo) ListAll(_ context.Context, f Filter) ([]*InvestigationOrder, error) {
	var result []*InvestigationOrder
	for _, o := range m.records {
		if f.PatientID != nil && o.PatientID != *f.PatientID {
			continue
		}
		if f.PendingOnly && o.IsCompleted {
			continue
		}
		cp := *o
		result = append(result, &cp)
	}
	return result, nil
}

func (m *mockInvestigationRepo) Complete(_ context.Context, id uuid.UUID, c Completion) (*InvestigationOrder, error) {
	o, ok := m.records[id]
	if !ok {
		return nil, db.ErrNotFound
	}
	o.IsCompleted = true
	if o.CompletedAt == nil {
		at := c.At
		o.CompletedAt = &at
	}
	if o.CompletedBy == nil {
		o.CompletedBy = c.By
	}
	if c.Result != nil {
		o.ResultValue = c.Result
	}
	cp := *o
	return &cp, nil
}

// -- Fake Publisher --

type publishedEvent struct {
	Type string
	Data map[string]interface{}
}

type fakePublisher struct {
	events []publishedEvent
	err    error
}

func (p *fakePublisher) Publish(_ context.Context, eventType string, data map[string]interface{}) error {
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return nil
}

func (p *fakePublisher) Close() error { return nil }

type testService struct {
	*Service
	medications    *mockMedicationRepo
	procedures     *mockProcedureRepo
	investigations *mockInvestigationRepo
	publisher      *fakePublisher
	registry       *prometheus.Registry
}

var fixedNow = time.Date(2026, 3, 1, 5, 50, 0, 0, time.UTC)

func newTestService() *testService {
	ts := &testService{
		medications:    newMockMedicationRepo(),
		procedures:     newMockProcedureRepo(),
		investigations: newMockInvestigationRepo(),
		publisher:      &fakePublisher{},
		registry:       prometheus.NewRegistry(),
	}
	ts.Service = NewService(ts.medications, ts.procedures, ts.investigations, ts.publisher, zerolog.Nop())
	ts.Service.SetMetrics(NewMetrics(ts.registry))
	ts.Service.now = func() time.Time { return fixedNow }
	return ts
}

func counterValue(t *testing.T, reg *prometheus.Registry, name, kind string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "type" && l.GetValue() == kind {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func newMedicationOrder() *MedicationOrder {
	return &MedicationOrder{
		PatientID:     uuid.New(),
		MedicationID:  uuid.New(),
		Dosage:        "500mg",
		ScheduledTime: "06:00",
		StartDate:     "2026-03-01",
		Priority:      PriorityHigh,
	}
}

// -- Medication Order Tests --

func TestService_CreateMedicationOrder(t *testing.T) {
	ts := newTestService()
	o := newMedicationOrder()
	o.Priority = ""

	require.NoError(t, ts.CreateMedicationOrder(context.Background(), o))
	assert.NotEqual(t, uuid.Nil, o.ID)
	assert.Equal(t, PriorityMedium, o.Priority)
	assert.False(t, o.IsCompleted)
}

func TestService_CreateMedicationOrder_DefaultsStartDate(t *testing.T) {
	ts := newTestService()
	o := newMedicationOrder()
	o.StartDate = ""

	require.NoError(t, ts.CreateMedicationOrder(context.Background(), o))
	assert.Equal(t, "2026-03-01", o.StartDate)
}

func TestService_CreateMedicationOrder_Validation(t *testing.T) {
	endBefore := "2026-02-27"
	badEnd := "tomorrow"
	tests := []struct {
		name   string
		mutate func(o *MedicationOrder)
	}{
		{"missing patient", func(o *MedicationOrder) { o.PatientID = uuid.Nil }},
		{"missing medication", func(o *MedicationOrder) { o.MedicationID = uuid.Nil }},
		{"hour out of range", func(o *MedicationOrder) { o.ScheduledTime = "24:00" }},
		{"seconds included", func(o *MedicationOrder) { o.ScheduledTime = "06:00:00" }},
		{"single digit hour", func(o *MedicationOrder) { o.ScheduledTime = "6:00" }},
		{"bad start date", func(o *MedicationOrder) { o.StartDate = "01/03/2026" }},
		{"bad end date", func(o *MedicationOrder) { o.EndDate = &badEnd }},
		{"end before start", func(o *MedicationOrder) { o.EndDate = &endBefore }},
		{"unknown priority", func(o *MedicationOrder) { o.Priority = "Urgent" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestService()
			o := newMedicationOrder()
			tt.mutate(o)
			err := ts.CreateMedicationOrder(context.Background(), o)
			assert.True(t, errors.Is(err, apierr.ErrInvalid), "expected invalid, got %v", err)
			assert.Empty(t, ts.medications.records)
		})
	}
}

func TestService_CompleteMedicationOrder(t *testing.T) {
	ts := newTestService()
	o := newMedicationOrder()
	require.NoError(t, ts.CreateMedicationOrder(context.Background(), o))
	nurse := uuid.New()

	done, err := ts.CompleteMedicationOrder(context.Background(), o.ID, &nurse)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	require.NotNil(t, done.CompletedAt)
	assert.Equal(t, fixedNow, *done.CompletedAt)
	assert.Equal(t, nurse, *done.CompletedBy)

	require.Len(t, ts.publisher.events, 1)
	ev := ts.publisher.events[0]
	assert.Equal(t, events.OrderCompleted, ev.Type)
	assert.Equal(t, o.ID.String(), ev.Data["order_id"])
	assert.Equal(t, KindMedication, ev.Data["order_type"])
	assert.Equal(t, nurse.String(), ev.Data["completed_by"])
	assert.Equal(t, 1.0, counterValue(t, ts.registry, "ward_orders_completed_total", KindMedication))
}

func TestService_CompleteMedicationOrder_KeepsFirstCompletion(t *testing.T) {
	ts := newTestService()
	o := newMedicationOrder()
	require.NoError(t, ts.CreateMedicationOrder(context.Background(), o))
	first, second := uuid.New(), uuid.New()

	_, err := ts.CompleteMedicationOrder(context.Background(), o.ID, &first)
	require.NoError(t, err)
	ts.now = func() time.Time { return fixedNow.Add(time.Hour) }
	again, err := ts.CompleteMedicationOrder(context.Background(), o.ID, &second)
	require.NoError(t, err)

	assert.True(t, again.IsCompleted)
	assert.Equal(t, fixedNow, *again.CompletedAt)
	assert.Equal(t, first, *again.CompletedBy)
}

func TestService_CompleteMedicationOrder_NotFound(t *testing.T) {
	ts := newTestService()
	_, err := ts.CompleteMedicationOrder(context.Background(), uuid.New(), nil)

	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, ts.publisher.events)
	assert.Equal(t, 0.0, counterValue(t, ts.registry, "ward_orders_completed_total", KindMedication))
}

func TestService_CompleteMedicationOrder_PublishFailureIsNotReturned(t *testing.T) {
	ts := newTestService()
	ts.publisher.err = errors.New("broker unavailable")
	o := newMedicationOrder()
	require.NoError(t, ts.CreateMedicationOrder(context.Background(), o))

	done, err := ts.CompleteMedicationOrder(context.Background(), o.ID, nil)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
}

func TestService_DeleteMedicationOrder(t *testing.T) {
	ts := newTestService()
	o := newMedicationOrder()
	require.NoError(t, ts.CreateMedicationOrder(context.Background(), o))

	require.NoError(t, ts.DeleteMedicationOrder(context.Background(), o.ID))
	_, err := ts.GetMedicationOrder(context.Background(), o.ID)
	assert.ErrorIs(t, err, db.ErrNotFound)

	// a second delete reports the row as missing
	assert.ErrorIs(t, ts.DeleteMedicationOrder(context.Background(), o.ID), db.ErrNotFound)

	require.Len(t, ts.publisher.events, 1)
	assert.Equal(t, events.OrderDeleted, ts.publisher.events[0].Type)
	assert.Equal(t, 1.0, counterValue(t, ts.registry, "ward_orders_deleted_total", KindMedication))
}

func TestService_PendingMedicationOrders(t *testing.T) {
	ts := newTestService()
	pending := newMedicationOrder()
	done := newMedicationOrder()
	require.NoError(t, ts.CreateMedicationOrder(context.Background(), pending))
	require.NoError(t, ts.CreateMedicationOrder(context.Background(), done))
	_, err := ts.CompleteMedicationOrder(context.Background(), done.ID, nil)
	require.NoError(t, err)

	got, err := ts.PendingMedicationOrders(context.Background(), Filter{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, pending.ID, got[0].ID)
}

// -- Procedure Order Tests --

func TestService_CreateProcedureOrder_RequiresSchedule(t *testing.T) {
	ts := newTestService()
	o := &ProcedureOrder{PatientID: uuid.New(), ProcedureID: uuid.New()}

	err := ts.CreateProcedureOrder(context.Background(), o)
	assert.ErrorIs(t, err, apierr.ErrInvalid)
}

func TestService_CompleteProcedureOrder(t *testing.T) {
	ts := newTestService()
	o := &ProcedureOrder{PatientID: uuid.New(), ProcedureID: uuid.New(), ScheduledAt: fixedNow.Add(2 * time.Hour)}
	require.NoError(t, ts.CreateProcedureOrder(context.Background(), o))
	assert.Equal(t, PriorityMedium, o.Priority)

	done, err := ts.CompleteProcedureOrder(context.Background(), o.ID, nil)
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)
	assert.Nil(t, done.CompletedBy)
	assert.Equal(t, 1.0, counterValue(t, ts.registry, "ward_orders_completed_total", KindProcedure))
}

// -- Investigation Order Tests --

func TestService_CompleteInvestigationOrder_StoresResult(t *testing.T) {
	ts := newTestService()
	o := &InvestigationOrder{PatientID: uuid.New(), InvestigationID: uuid.New(), ScheduledAt: fixedNow}
	require.NoError(t, ts.CreateInvestigationOrder(context.Background(), o))
	result := "  12.5 g/dL "

	done, err := ts.CompleteInvestigationOrder(context.Background(), o.ID, nil, &result)
	require.NoError(t, err)
	require.NotNil(t, done.ResultValue)
	assert.Equal(t, "12.5 g/dL", *done.ResultValue)
}

func TestService_CompleteInvestigationOrder_BlankResultIgnored(t *testing.T) {
	ts := newTestService()
	o := &InvestigationOrder{PatientID: uuid.New(), InvestigationID: uuid.New(), ScheduledAt: fixedNow}
	require.NoError(t, ts.CreateInvestigationOrder(context.Background(), o))
	blank := "   "

	done, err := ts.CompleteInvestigationOrder(context.Background(), o.ID, nil, &blank)
	require.NoError(t, err)
	assert.Nil(t, done.ResultValue)
}

func TestService_DeleteInvestigationOrder_NotFound(t *testing.T) {
	ts := newTestService()
	err := ts.DeleteInvestigationOrder(context.Background(), uuid.New())

	assert.ErrorIs(t, err, db.ErrNotFound)
	assert.Empty(t, ts.publisher.events)
}

func TestPriorityRank(t *testing.T) {
	assert.Less(t, PriorityRank(PriorityHigh), PriorityRank(PriorityMedium))
	assert.Less(t, PriorityRank(PriorityMedium), PriorityRank(PriorityLow))
	assert.Equal(t, PriorityRank(PriorityMedium), PriorityRank("whatever"))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.orderCompleted(KindMedication)
	m.orderDeleted(KindMedication)
}

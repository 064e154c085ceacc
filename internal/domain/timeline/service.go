// Package timeline aggregates pending orders into the ward timeline and the
// due/overdue notification feed.
package timeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/ward/ward/internal/domain/catalog"
	"github.com/ward/ward/internal/domain/orders"
	"github.com/ward/ward/internal/domain/patient"
	"github.com/ward/ward/internal/domain/staff"
	"github.com/ward/ward/internal/platform/apierr"
)

const (
	// LookAheadWindow is how far ahead of now a pending order counts as due.
	LookAheadWindow = 15 * time.Minute
	// RolloverThreshold moves a daily medication time to tomorrow once
	// today's instance is further than this in the past.
	RolloverThreshold = 12 * time.Hour

	clockLayout = "15:04"
)

type OrderSource interface {
	PendingMedicationOrders(ctx context.Context, f orders.Filter) ([]*orders.MedicationOrder, error)
	PendingProcedureOrders(ctx context.Context, f orders.Filter) ([]*orders.ProcedureOrder, error)
	PendingInvestigationOrders(ctx context.Context, f orders.Filter) ([]*orders.InvestigationOrder, error)
}

type PatientSource interface {
	ActivePatients(ctx context.Context) ([]*patient.Patient, error)
	ListAssignments(ctx context.Context, patientID uuid.UUID) ([]*patient.StaffAssignment, error)
	AllAssignments(ctx context.Context) ([]*patient.StaffAssignment, error)
}

type CatalogSource interface {
	AllMedications(ctx context.Context) ([]*catalog.Medication, error)
	AllProcedures(ctx context.Context) ([]*catalog.Procedure, error)
	AllInvestigations(ctx context.Context) ([]*catalog.Investigation, error)
}

type StaffSource interface {
	AllStaff(ctx context.Context) ([]*staff.Staff, error)
}

type Service struct {
	orders   OrderSource
	patients PatientSource
	catalog  CatalogSource
	staff    StaffSource
	loc      *time.Location
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService builds the aggregator. Scheduled times are rendered and
// interpreted in loc.
func NewService(o OrderSource, p PatientSource, c CatalogSource, st StaffSource, loc *time.Location, logger zerolog.Logger) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		orders:   o,
		patients: p,
		catalog:  c,
		staff:    st,
		loc:      loc,
		logger:   logger.With().Str("component", "timeline").Logger(),
		now:      time.Now,
	}
}

// ValidKind reports whether kind selects an order type. The empty string
// selects all of them.
func ValidKind(kind string) bool {
	switch kind {
	case "", orders.KindMedication, orders.KindProcedure, orders.KindInvestigation:
		return true
	}
	return false
}

// pendingSet is one request's snapshot of pending orders and the active
// patients they may refer to.
type pendingSet struct {
	medications    []*orders.MedicationOrder
	procedures     []*orders.ProcedureOrder
	investigations []*orders.InvestigationOrder
	patients       map[uuid.UUID]*patient.Patient
}

func (s *Service) loadPending(ctx context.Context, f orders.Filter, kind string) (*pendingSet, error) {
	set := &pendingSet{}
	var active []*patient.Patient

	g, gctx := errgroup.WithContext(ctx)
	if kind == "" || kind == orders.KindMedication {
		g.Go(func() (err error) {
			if set.medications, err = s.orders.PendingMedicationOrders(gctx, f); err != nil {
				return fmt.Errorf("load medication orders: %w", err)
			}
			return nil
		})
	}
	if kind == "" || kind == orders.KindProcedure {
		g.Go(func() (err error) {
			if set.procedures, err = s.orders.PendingProcedureOrders(gctx, f); err != nil {
				return fmt.Errorf("load procedure orders: %w", err)
			}
			return nil
		})
	}
	if kind == "" || kind == orders.KindInvestigation {
		g.Go(func() (err error) {
			if set.investigations, err = s.orders.PendingInvestigationOrders(gctx, f); err != nil {
				return fmt.Errorf("load investigation orders: %w", err)
			}
			return nil
		})
	}
	g.Go(func() (err error) {
		if active, err = s.patients.ActivePatients(gctx); err != nil {
			return fmt.Errorf("load active patients: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	set.patients = make(map[uuid.UUID]*patient.Patient, len(active))
	for _, p := range active {
		set.patients[p.ID] = p
	}
	return set, nil
}

// lookups holds id-keyed catalog and staff records for one request.
type lookups struct {
	medications    map[uuid.UUID]*catalog.Medication
	procedures     map[uuid.UUID]*catalog.Procedure
	investigations map[uuid.UUID]*catalog.Investigation
	staff          map[uuid.UUID]*staff.Staff
}

func (s *Service) loadLookups(ctx context.Context, withStaff bool) (*lookups, error) {
	var (
		meds   []*catalog.Medication
		procs  []*catalog.Procedure
		invs   []*catalog.Investigation
		people []*staff.Staff
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		if meds, err = s.catalog.AllMedications(gctx); err != nil {
			return fmt.Errorf("load medications: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if procs, err = s.catalog.AllProcedures(gctx); err != nil {
			return fmt.Errorf("load procedures: %w", err)
		}
		return nil
	})
	g.Go(func() (err error) {
		if invs, err = s.catalog.AllInvestigations(gctx); err != nil {
			return fmt.Errorf("load investigations: %w", err)
		}
		return nil
	})
	if withStaff {
		g.Go(func() (err error) {
			if people, err = s.staff.AllStaff(gctx); err != nil {
				return fmt.Errorf("load staff: %w", err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	lk := &lookups{
		medications:    make(map[uuid.UUID]*catalog.Medication, len(meds)),
		procedures:     make(map[uuid.UUID]*catalog.Procedure, len(procs)),
		investigations: make(map[uuid.UUID]*catalog.Investigation, len(invs)),
		staff:          make(map[uuid.UUID]*staff.Staff, len(people)),
	}
	for _, m := range meds {
		lk.medications[m.ID] = m
	}
	for _, p := range procs {
		lk.procedures[p.ID] = p
	}
	for _, i := range invs {
		lk.investigations[i.ID] = i
	}
	for _, st := range people {
		lk.staff[st.ID] = st
	}
	return lk, nil
}

type careTeam struct {
	doctor string
	nurse  string
}

// careTeams maps patient id to the names of the assigned doctor and nurse.
// The first assignment seen for a role wins.
func (s *Service) careTeams(ctx context.Context, patientID *uuid.UUID, people map[uuid.UUID]*staff.Staff) (map[uuid.UUID]careTeam, error) {
	var (
		assignments []*patient.StaffAssignment
		err         error
	)
	if patientID != nil {
		assignments, err = s.patients.ListAssignments(ctx, *patientID)
	} else {
		assignments, err = s.patients.AllAssignments(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("load staff assignments: %w", err)
	}

	teams := make(map[uuid.UUID]careTeam)
	for _, a := range assignments {
		name := a.StaffName
		if st, ok := people[a.StaffID]; ok {
			name = st.Name
		}
		team := teams[a.PatientID]
		switch a.Role {
		case staff.RoleDoctor:
			if team.doctor == "" {
				team.doctor = name
			}
		case staff.RoleNurse:
			if team.nurse == "" {
				team.nurse = name
			}
		}
		teams[a.PatientID] = team
	}
	return teams, nil
}

func (s *Service) dropOrphan(kind string, id uuid.UUID, missing string) {
	s.logger.Warn().
		Str("order_type", kind).
		Str("order_id", id.String()).
		Str("missing", missing).
		Msg("skipping order with unresolved reference")
}

func deref(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// -- Timeline --

type rowBuilder struct {
	rows  []*Row
	index map[string]*Row
}

func (b *rowBuilder) add(at string, p PatientSummary, t Treatment) {
	key := at + "-" + p.IPDNumber
	row, ok := b.index[key]
	if !ok {
		row = &Row{Time: at, Patient: p}
		b.index[key] = row
		b.rows = append(b.rows, row)
	}
	row.Treatments = append(row.Treatments, t)
}

// Timeline returns pending orders grouped by HH:MM time and patient,
// ordered by time then patient name. Treatments within a row keep the
// order medication, procedure, investigation.
func (s *Service) Timeline(ctx context.Context, f Filter) ([]Row, error) {
	set, err := s.loadPending(ctx, orders.Filter{PatientID: f.PatientID, Day: f.Date}, "")
	if err != nil {
		return nil, err
	}
	lk, err := s.loadLookups(ctx, true)
	if err != nil {
		return nil, err
	}
	teams, err := s.careTeams(ctx, f.PatientID, lk.staff)
	if err != nil {
		return nil, err
	}

	summary := func(p *patient.Patient) PatientSummary {
		team := teams[p.ID]
		return PatientSummary{
			ID:        p.ID,
			IPDNumber: p.IPDNumber,
			Name:      p.Name,
			BedNumber: deref(p.BedNumber),
			Ward:      deref(p.Ward),
			Diagnosis: deref(p.Diagnosis),
			Doctor:    team.doctor,
			Nurse:     team.nurse,
		}
	}

	b := &rowBuilder{index: make(map[string]*Row)}

	for _, o := range set.medications {
		p, ok := set.patients[o.PatientID]
		if !ok {
			s.dropOrphan(orders.KindMedication, o.ID, "patient")
			continue
		}
		m, ok := lk.medications[o.MedicationID]
		if !ok {
			s.dropOrphan(orders.KindMedication, o.ID, "medication")
			continue
		}
		b.add(strings.TrimSpace(o.ScheduledTime), summary(p), Treatment{
			ID:          o.ID,
			Type:        orders.KindMedication,
			Name:        m.Name,
			Details:     o.Dosage,
			IsCompleted: o.IsCompleted,
			Priority:    o.Priority,
		})
	}

	for _, o := range set.procedures {
		p, ok := set.patients[o.PatientID]
		if !ok {
			s.dropOrphan(orders.KindProcedure, o.ID, "patient")
			continue
		}
		pr, ok := lk.procedures[o.ProcedureID]
		if !ok {
			s.dropOrphan(orders.KindProcedure, o.ID, "procedure")
			continue
		}
		b.add(o.ScheduledAt.In(s.loc).Format(clockLayout), summary(p), Treatment{
			ID:          o.ID,
			Type:        orders.KindProcedure,
			Name:        pr.Name,
			IsCompleted: o.IsCompleted,
			Priority:    o.Priority,
		})
	}

	for _, o := range set.investigations {
		p, ok := set.patients[o.PatientID]
		if !ok {
			s.dropOrphan(orders.KindInvestigation, o.ID, "patient")
			continue
		}
		inv, ok := lk.investigations[o.InvestigationID]
		if !ok {
			s.dropOrphan(orders.KindInvestigation, o.ID, "investigation")
			continue
		}
		b.add(o.ScheduledAt.In(s.loc).Format(clockLayout), summary(p), Treatment{
			ID:          o.ID,
			Type:        orders.KindInvestigation,
			Name:        inv.Name,
			Details:     deref(o.ResultValue),
			IsCompleted: o.IsCompleted,
			Priority:    o.Priority,
		})
	}

	sort.SliceStable(b.rows, func(i, j int) bool {
		if b.rows[i].Time != b.rows[j].Time {
			return b.rows[i].Time < b.rows[j].Time
		}
		return b.rows[i].Patient.Name < b.rows[j].Patient.Name
	})

	rows := make([]Row, 0, len(b.rows))
	for _, r := range b.rows {
		rows = append(rows, *r)
	}
	return rows, nil
}

// -- Notifications --

// medicationInstant resolves a daily HH:MM schedule to today's instance in
// the ward zone, or tomorrow's when today's is more than RolloverThreshold
// in the past.
func (s *Service) medicationInstant(hhmm string, now time.Time) (time.Time, bool) {
	clock, err := time.Parse(clockLayout, strings.TrimSpace(hhmm))
	if err != nil {
		return time.Time{}, false
	}
	local := now.In(s.loc)
	at := time.Date(local.Year(), local.Month(), local.Day(), clock.Hour(), clock.Minute(), 0, 0, s.loc)
	if now.Sub(at) > RolloverThreshold {
		at = at.AddDate(0, 0, 1)
	}
	return at, true
}

func message(name, dosage string, overdue bool, patientName string) string {
	var b strings.Builder
	b.WriteString(name)
	if dosage != "" {
		b.WriteString(" - ")
		b.WriteString(dosage)
	}
	if overdue {
		b.WriteString(" overdue for ")
	} else {
		b.WriteString(" due for ")
	}
	b.WriteString(patientName)
	return b.String()
}

// PendingNotifications returns pending orders that are overdue or due within
// LookAheadWindow, optionally restricted to one order kind. Overdue items
// come first, then earlier schedules, then higher priority.
func (s *Service) PendingNotifications(ctx context.Context, kind string) ([]Notification, error) {
	if !ValidKind(kind) {
		return nil, apierr.Invalid("type must be one of %s, %s, %s", orders.KindMedication, orders.KindProcedure, orders.KindInvestigation)
	}

	set, err := s.loadPending(ctx, orders.Filter{}, kind)
	if err != nil {
		return nil, err
	}
	lk, err := s.loadLookups(ctx, false)
	if err != nil {
		return nil, err
	}

	now := s.now()
	lookAhead := now.Add(LookAheadWindow)
	var out []Notification

	emit := func(id uuid.UUID, orderKind string, p *patient.Patient, name, details, dosage, scheduled string, at time.Time, priority string) {
		if !(at.Before(now) || !at.After(lookAhead)) {
			return
		}
		overdue := at.Before(now)
		out = append(out, Notification{
			ID:            id,
			Type:          orderKind,
			Message:       message(name, dosage, overdue, p.Name),
			PatientName:   p.Name,
			IPDNumber:     p.IPDNumber,
			BedNumber:     deref(p.BedNumber),
			ScheduledTime: scheduled,
			Priority:      priority,
			IsOverdue:     overdue,
			TreatmentName: name,
			Details:       details,
			scheduledAt:   at,
		})
	}

	for _, o := range set.medications {
		p, ok := set.patients[o.PatientID]
		if !ok {
			s.dropOrphan(orders.KindMedication, o.ID, "patient")
			continue
		}
		m, ok := lk.medications[o.MedicationID]
		if !ok {
			s.dropOrphan(orders.KindMedication, o.ID, "medication")
			continue
		}
		at, ok := s.medicationInstant(o.ScheduledTime, now)
		if !ok {
			s.logger.Warn().Str("order_id", o.ID.String()).Str("scheduled_time", o.ScheduledTime).
				Msg("skipping medication order with unparseable time")
			continue
		}
		emit(o.ID, orders.KindMedication, p, m.Name, o.Dosage, o.Dosage, strings.TrimSpace(o.ScheduledTime), at, o.Priority)
	}

	for _, o := range set.procedures {
		p, ok := set.patients[o.PatientID]
		if !ok {
			s.dropOrphan(orders.KindProcedure, o.ID, "patient")
			continue
		}
		pr, ok := lk.procedures[o.ProcedureID]
		if !ok {
			s.dropOrphan(orders.KindProcedure, o.ID, "procedure")
			continue
		}
		at := o.ScheduledAt.In(s.loc)
		emit(o.ID, orders.KindProcedure, p, pr.Name, "", "", at.Format(time.RFC3339), at, o.Priority)
	}

	for _, o := range set.investigations {
		p, ok := set.patients[o.PatientID]
		if !ok {
			s.dropOrphan(orders.KindInvestigation, o.ID, "patient")
			continue
		}
		inv, ok := lk.investigations[o.InvestigationID]
		if !ok {
			s.dropOrphan(orders.KindInvestigation, o.ID, "investigation")
			continue
		}
		at := o.ScheduledAt.In(s.loc)
		emit(o.ID, orders.KindInvestigation, p, inv.Name, deref(o.ResultValue), "", at.Format(time.RFC3339), at, o.Priority)
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.IsOverdue != b.IsOverdue {
			return a.IsOverdue
		}
		if !a.scheduledAt.Equal(b.scheduledAt) {
			return a.scheduledAt.Before(b.scheduledAt)
		}
		return orders.PriorityRank(a.Priority) < orders.PriorityRank(b.Priority)
	})

	if out == nil {
		out = []Notification{}
	}
	return out, nil
}

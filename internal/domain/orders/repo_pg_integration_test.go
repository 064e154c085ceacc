//go:build integration

package orders

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ward/ward/internal/platform/db"
	"github.com/ward/ward/migrations"
)

var testPool *pgxpool.Pool

func TestMain(m *testing.M) {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_DB":       "ward_test",
				"POSTGRES_USER":     "test",
				"POSTGRES_PASSWORD": "testpass",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start postgres container: %v\n", err)
		os.Exit(1)
	}

	host, err := container.Host(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "container host: %v\n", err)
		os.Exit(1)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		fmt.Fprintf(os.Stderr, "container port: %v\n", err)
		os.Exit(1)
	}

	url := fmt.Sprintf("postgres://test:testpass@%s:%s/ward_test?sslmode=disable", host, port.Port())
	testPool, err = db.NewPool(ctx, url, 4, 1)
	if err != nil {
		fmt.Fprintf(os.Stderr, "connect: %v\n", err)
		os.Exit(1)
	}
	if _, err := db.NewMigrator(testPool, migrations.FS).Up(ctx, "public"); err != nil {
		fmt.Fprintf(os.Stderr, "migrate: %v\n", err)
		os.Exit(1)
	}

	code := m.Run()
	testPool.Close()
	container.Terminate(ctx)
	os.Exit(code)
}

type fixture struct {
	patientID       uuid.UUID
	medicationID    uuid.UUID
	procedureID     uuid.UUID
	investigationID uuid.UUID
}

func seed(t *testing.T, ctx context.Context) fixture {
	t.Helper()
	f := fixture{
		patientID:       uuid.New(),
		medicationID:    uuid.New(),
		procedureID:     uuid.New(),
		investigationID: uuid.New(),
	}
	stmts := []struct {
		sql  string
		args []interface{}
	}{
		{`INSERT INTO patient (id, ipd_number, name) VALUES ($1, $2, 'John Doe')`, []interface{}{f.patientID, "IPD-" + f.patientID.String()[:8]}},
		{`INSERT INTO medication (id, name) VALUES ($1, 'Paracetamol')`, []interface{}{f.medicationID}},
		{`INSERT INTO procedure (id, name) VALUES ($1, 'Wound dressing')`, []interface{}{f.procedureID}},
		{`INSERT INTO investigation (id, name) VALUES ($1, 'CBC')`, []interface{}{f.investigationID}},
	}
	for _, s := range stmts {
		_, err := testPool.Exec(ctx, s.sql, s.args...)
		require.NoError(t, err)
	}
	return f
}

func TestMedicationOrderRepoPG_Lifecycle(t *testing.T) {
	ctx := context.Background()
	f := seed(t, ctx)
	repo := NewMedicationOrderRepoPG(testPool)

	end := "2026-03-05"
	o := &MedicationOrder{
		PatientID:     f.patientID,
		MedicationID:  f.medicationID,
		Dosage:        "500mg",
		ScheduledTime: "06:00",
		StartDate:     "2026-03-01",
		EndDate:       &end,
		Priority:      PriorityHigh,
	}
	require.NoError(t, repo.Create(ctx, o))

	got, err := repo.GetByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "06:00", got.ScheduledTime)
	assert.Equal(t, "2026-03-01", got.StartDate)
	require.NotNil(t, got.EndDate)
	assert.Equal(t, end, *got.EndDate)

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	items, err := repo.ListAll(ctx, Filter{PatientID: &f.patientID, Day: &day, PendingOnly: true})
	require.NoError(t, err)
	require.Len(t, items, 1)

	other := day.AddDate(0, 0, 1)
	items, err = repo.ListAll(ctx, Filter{PatientID: &f.patientID, Day: &other})
	require.NoError(t, err)
	assert.Empty(t, items)

	nurse := uuid.New()
	first := time.Date(2026, 3, 1, 6, 2, 0, 0, time.UTC)
	done, err := repo.Complete(ctx, o.ID, Completion{By: &nurse, At: first})
	require.NoError(t, err)
	assert.True(t, done.IsCompleted)

	again, err := repo.Complete(ctx, o.ID, Completion{At: first.Add(time.Hour)})
	require.NoError(t, err)
	assert.True(t, again.CompletedAt.Equal(first))
	assert.Equal(t, nurse, *again.CompletedBy)

	items, total, err := repo.List(ctx, Filter{PatientID: &f.patientID, PendingOnly: true}, 10, 0)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, items)

	require.NoError(t, repo.Delete(ctx, o.ID))
	assert.ErrorIs(t, repo.Delete(ctx, o.ID), db.ErrNotFound)
	_, err = repo.Complete(ctx, o.ID, Completion{At: first})
	assert.ErrorIs(t, err, db.ErrNotFound)
}

func TestProcedureOrderRepoPG_DayWindow(t *testing.T) {
	ctx := context.Background()
	f := seed(t, ctx)
	repo := NewProcedureOrderRepoPG(testPool)

	loc := time.FixedZone("IST", 5*3600+1800)
	inside := &ProcedureOrder{PatientID: f.patientID, ProcedureID: f.procedureID, ScheduledAt: time.Date(2026, 3, 1, 23, 30, 0, 0, loc), Priority: PriorityMedium}
	outside := &ProcedureOrder{PatientID: f.patientID, ProcedureID: f.procedureID, ScheduledAt: time.Date(2026, 3, 2, 0, 0, 0, 0, loc), Priority: PriorityMedium}
	require.NoError(t, repo.Create(ctx, inside))
	require.NoError(t, repo.Create(ctx, outside))

	day := time.Date(2026, 3, 1, 0, 0, 0, 0, loc)
	items, err := repo.ListAll(ctx, Filter{PatientID: &f.patientID, Day: &day})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, inside.ID, items[0].ID)
}

func TestInvestigationOrderRepoPG_CompleteWithResult(t *testing.T) {
	ctx := context.Background()
	f := seed(t, ctx)
	repo := NewInvestigationOrderRepoPG(testPool)

	o := &InvestigationOrder{PatientID: f.patientID, InvestigationID: f.investigationID, ScheduledAt: time.Now(), Priority: PriorityLow}
	require.NoError(t, repo.Create(ctx, o))

	result := "Hb 12.5 g/dL"
	done, err := repo.Complete(ctx, o.ID, Completion{At: time.Now(), Result: &result})
	require.NoError(t, err)
	require.NotNil(t, done.ResultValue)
	assert.Equal(t, result, *done.ResultValue)

	// a later completion without a result keeps the stored value
	again, err := repo.Complete(ctx, o.ID, Completion{At: time.Now()})
	require.NoError(t, err)
	assert.Equal(t, result, *again.ResultValue)
}

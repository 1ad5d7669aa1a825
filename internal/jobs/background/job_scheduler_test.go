package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"fleetledger/internal/models"
	"fleetledger/internal/repositories/memory"
	"fleetledger/internal/services"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockReportStore struct {
	mock.Mock
}

func (m *MockReportStore) EnsureBucket(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func (m *MockReportStore) PutReport(ctx context.Context, report *models.ReconciliationReport) (string, error) {
	args := m.Called(ctx, report)
	return args.String(0), args.Error(1)
}

func (m *MockReportStore) PresignedURL(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *MockReportStore) Ping(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

// seed puts two tracked items in the store: one consistent, one with more
// bulk stock than units.
func seed(t *testing.T, store *memory.Store) (consistent, drifted uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	repos := store.Repositories()

	loc := &models.Location{ID: uuid.New(), Name: "Depot", Active: true}
	require.NoError(t, repos.Locations.Create(ctx, loc))

	consistent, drifted = uuid.New(), uuid.New()
	for _, item := range []uuid.UUID{consistent, drifted} {
		unit := &models.IndividualUnit{
			ID:                uuid.New(),
			ItemID:            item,
			CodeCategory:      "asset",
			Code:              item.String(),
			Status:            models.UnitStatusAvailable,
			CurrentLocationID: loc.ID,
		}
		require.NoError(t, repos.Units.CreateBatch(ctx, []*models.IndividualUnit{unit}))
	}
	_, err := repos.Stock.Set(ctx, consistent, loc.ID, 1)
	require.NoError(t, err)
	_, err = repos.Stock.Set(ctx, drifted, loc.ID, 4)
	require.NoError(t, err)
	return consistent, drifted
}

func newScheduler(t *testing.T, store *memory.Store, reports services.ReportStore) *JobScheduler {
	t.Helper()
	repos := store.Repositories()
	recon := services.NewReconciliationService(repos.Stock, repos.Units, time.Second, zerolog.Nop())
	js, err := NewJobScheduler(recon, reports, time.Hour, zerolog.Nop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = js.Stop() })
	return js
}

func TestRunOnceArchivesEveryReport(t *testing.T) {
	store := memory.NewStore()
	consistent, drifted := seed(t, store)

	reports := new(MockReportStore)
	reports.On("PutReport", mock.Anything, mock.MatchedBy(func(r *models.ReconciliationReport) bool {
		return r.ItemID == consistent
	})).Return("reports/reconciliation/a.json", nil).Once()
	reports.On("PutReport", mock.Anything, mock.MatchedBy(func(r *models.ReconciliationReport) bool {
		return r.ItemID == drifted
	})).Return("", errors.New("bucket gone")).Once()

	res, err := newScheduler(t, store, reports).RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 1, res.Discrepancies)
	assert.Equal(t, 1, res.Archived)
	assert.Equal(t, 1, res.Failed)
	reports.AssertExpectations(t)
}

func TestRunOnceWithoutStorage(t *testing.T) {
	store := memory.NewStore()
	seed(t, store)

	res, err := newScheduler(t, store, nil).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, res.Items)
	assert.Equal(t, 0, res.Archived)
}

func TestReconciliationJobRegistered(t *testing.T) {
	js := newScheduler(t, memory.NewStore(), nil)
	js.Start()

	next, err := js.NextRun(reconcileJobName)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(time.Hour), next, time.Minute)

	_, err = js.NextRun("missing")
	assert.Error(t, err)
}

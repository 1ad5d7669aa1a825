package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"fleetledger/internal/caching"
	"fleetledger/internal/middleware"
	"fleetledger/internal/models"
	"fleetledger/internal/repositories/memory"
	"fleetledger/internal/services"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
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

type HandlersTestSuite struct {
	suite.Suite
	e       *echo.Echo
	store   *memory.Store
	reports *MockReportStore
	item    uuid.UUID
}

func (s *HandlersTestSuite) SetupTest() {
	s.store = memory.NewStore()
	s.reports = new(MockReportStore)
	s.item = uuid.New()

	repos := s.store.Repositories()
	cache := caching.NewNoopCacheService()
	logger := zerolog.Nop()
	timeout := time.Second

	locations := services.NewLocationService(repos.Locations, cache, time.Minute, logger)
	ledger := services.NewLedgerService(repos.Stock, locations, cache, services.LedgerOptions{OpTimeout: timeout}, logger)
	transfers := services.NewTransferService(repos, nil, locations, cache, timeout, logger)
	allocations := services.NewAllocationService(ledger, locations, repos, nil, cache, timeout, logger)
	units := services.NewUnitService(repos, nil, locations, transfers, cache, timeout, logger)
	recon := services.NewReconciliationService(repos.Stock, repos.Units, timeout, logger)

	s.e = echo.New()
	RegisterRoutes(s.e, middleware.NewVersionMiddleware("fleetledger"), Handlers{
		Health:         NewHealthHandlers(nil, cache, s.reports, "test"),
		Locations:      NewLocationHandlers(locations),
		Stock:          NewStockHandlers(ledger),
		Transfers:      NewTransferHandlers(transfers),
		Allocations:    NewAllocationHandlers(allocations),
		Units:          NewUnitHandlers(units),
		Reconciliation: NewReconciliationHandlers(recon, s.reports, logger),
	})
}

func (s *HandlersTestSuite) do(method, path string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func (s *HandlersTestSuite) decode(rec *httptest.ResponseRecorder, v interface{}) {
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), v))
}

func (s *HandlersTestSuite) createLocation(name string) uuid.UUID {
	rec := s.do(http.MethodPost, "/v1/locations", map[string]interface{}{"name": name})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var loc models.Location
	s.decode(rec, &loc)
	return loc.ID
}

func (s *HandlersTestSuite) stockPath(loc uuid.UUID) string {
	return fmt.Sprintf("/v1/items/%s/stock/%s", s.item, loc)
}

func (s *HandlersTestSuite) errorCode(rec *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	s.decode(rec, &body)
	return body.Error.Code
}

func (s *HandlersTestSuite) TestLocationLifecycle() {
	id := s.createLocation("Depot")

	rec := s.do(http.MethodPut, "/v1/locations/"+id.String()+"/active", map[string]interface{}{"active": false})
	s.Equal(http.StatusOK, rec.Code)
	var loc models.Location
	s.decode(rec, &loc)
	s.False(loc.Active)

	rec = s.do(http.MethodGet, "/v1/locations?active_only=true", nil)
	s.Equal(http.StatusOK, rec.Code)
	var list struct {
		Locations []models.Location `json:"locations"`
	}
	s.decode(rec, &list)
	s.Empty(list.Locations)

	rec = s.do(http.MethodGet, "/v1/locations/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodGet, "/v1/locations/not-a-uuid", nil)
	s.Equal(http.StatusBadRequest, rec.Code)
	s.Equal("VALIDATION_ERROR", s.errorCode(rec))

	rec = s.do(http.MethodPost, "/v1/locations", map[string]interface{}{"name": " "})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersTestSuite) TestStockETag() {
	loc := s.createLocation("Depot")

	rec := s.do(http.MethodPost, s.stockPath(loc)+"/adjust", map[string]interface{}{"delta": 5})
	s.Require().Equal(http.StatusOK, rec.Code)
	etag := rec.Header().Get("ETag")
	s.Equal(`"1"`, etag)

	rec = s.do(http.MethodGet, s.stockPath(loc), nil, "If-None-Match", etag)
	s.Equal(http.StatusNotModified, rec.Code)

	rec = s.do(http.MethodPut, s.stockPath(loc), map[string]interface{}{"quantity": 9})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, s.stockPath(loc), nil, "If-None-Match", etag)
	s.Equal(http.StatusOK, rec.Code)
	var entry models.StockEntry
	s.decode(rec, &entry)
	s.Equal(9, entry.Quantity)

	rec = s.do(http.MethodPost, s.stockPath(loc)+"/adjust", map[string]interface{}{"delta": -10})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("INSUFFICIENT_STOCK", s.errorCode(rec))

	rec = s.do(http.MethodPut, s.stockPath(loc), map[string]interface{}{})
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *HandlersTestSuite) TestItemStockAndBulkAdjust() {
	a, b := s.createLocation("A"), s.createLocation("B")

	rec := s.do(http.MethodPost, "/v1/stock/bulk-adjust", map[string]interface{}{
		"validation_mode": "skip_invalid",
		"adjustments": []map[string]interface{}{
			{"item_id": s.item, "location_id": a, "delta": 3},
			{"item_id": s.item, "location_id": b, "delta": -1},
			{"item_id": s.item, "location_id": b, "delta": 4},
		},
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	var result models.BulkOperationResult
	s.decode(rec, &result)
	s.Equal(2, result.ProcessedItems)
	s.Equal(1, result.FailedItems)

	rec = s.do(http.MethodGet, fmt.Sprintf("/v1/items/%s/stock", s.item), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var stock models.ItemStock
	s.decode(rec, &stock)
	s.Equal(7, stock.Total)
	s.Len(stock.Locations, 2)
}

func (s *HandlersTestSuite) TestTransfer() {
	a, b := s.createLocation("A"), s.createLocation("B")
	s.do(http.MethodPut, s.stockPath(a), map[string]interface{}{"quantity": 10})

	rec := s.do(http.MethodPost, "/v1/transfers", map[string]interface{}{
		"item_id": s.item, "from_location_id": a, "to_location_id": b, "quantity": 4,
	}, middleware.ActorHeader, "dispatcher")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Record   models.TransferRecord `json:"record"`
		Degraded bool                  `json:"degraded"`
	}
	s.decode(rec, &resp)
	s.False(resp.Degraded)
	s.Equal("dispatcher", *resp.Record.Actor)

	rec = s.do(http.MethodPost, "/v1/transfers", map[string]interface{}{
		"item_id": s.item, "from_location_id": a, "to_location_id": b, "quantity": 50,
	})
	s.Equal(http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/v1/transfers", map[string]interface{}{
		"item_id": s.item, "from_location_id": a, "to_location_id": a, "quantity": 1,
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/v1/items/%s/transfers", s.item), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var list struct {
		Transfers []models.TransferRecord `json:"transfers"`
	}
	s.decode(rec, &list)
	s.Len(list.Transfers, 1)
}

func (s *HandlersTestSuite) TestTransferDegraded() {
	a, b := s.createLocation("A"), s.createLocation("B")
	s.do(http.MethodPut, s.stockPath(a), map[string]interface{}{"quantity": 10})
	s.store.SetFault(func(op string, _ ...uuid.UUID) error {
		if op == memory.OpTransferCreate {
			return errors.New("audit down")
		}
		return nil
	})

	rec := s.do(http.MethodPost, "/v1/transfers", map[string]interface{}{
		"item_id": s.item, "from_location_id": a, "to_location_id": b, "quantity": 4,
	})
	s.Require().Equal(http.StatusCreated, rec.Code)
	s.NotEmpty(rec.Header().Get("Warning"))
	var resp struct {
		Degraded bool   `json:"degraded"`
		Warning  string `json:"warning"`
	}
	s.decode(rec, &resp)
	s.True(resp.Degraded)
	s.NotEmpty(resp.Warning)
}

func (s *HandlersTestSuite) TestAllocations() {
	a, b := s.createLocation("A"), s.createLocation("B")
	s.do(http.MethodPut, s.stockPath(a), map[string]interface{}{"quantity": 7})
	s.do(http.MethodPut, s.stockPath(b), map[string]interface{}{"quantity": 5})

	rec := s.do(http.MethodPost, "/v1/allocations/plan", map[string]interface{}{
		"item_id": s.item, "total_quantity_needed": 10,
	})
	s.Require().Equal(http.StatusOK, rec.Code)
	var plan models.AllocationPlan
	s.decode(rec, &plan)
	s.Equal([]models.Allocation{{LocationID: a, Quantity: 7}, {LocationID: b, Quantity: 3}}, plan.Allocations)

	rec = s.do(http.MethodPost, "/v1/allocations/commit", map[string]interface{}{
		"item_id": s.item, "total_quantity_needed": 10, "mode": "consumption",
		"allocations": []models.Allocation{{LocationID: a, Quantity: 7}},
	})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/allocations/commit", map[string]interface{}{
		"item_id": s.item, "total_quantity_needed": 10, "mode": "consumption",
		"allocations": plan.Allocations,
	})
	s.Equal(http.StatusCreated, rec.Code)
}

func (s *HandlersTestSuite) TestUnitsAndReconciliation() {
	a, b := s.createLocation("A"), s.createLocation("B")

	rec := s.do(http.MethodPost, fmt.Sprintf("/v1/items/%s/units", s.item), map[string]interface{}{
		"location_id": a, "code_category": "asset", "codes": []string{"1001", "1002", "1003"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var created struct {
		Units []models.IndividualUnit `json:"units"`
	}
	s.decode(rec, &created)
	s.Require().Len(created.Units, 3)

	rec = s.do(http.MethodPost, fmt.Sprintf("/v1/items/%s/units", s.item), map[string]interface{}{
		"location_id": a, "code_category": "asset", "codes": []string{"1001"},
	})
	s.Equal(http.StatusConflict, rec.Code)
	s.Equal("DUPLICATE_CODE", s.errorCode(rec))

	unitID := created.Units[0].ID
	rec = s.do(http.MethodPut, "/v1/units/"+unitID.String()+"/status", map[string]interface{}{"status": "maintenance"})
	s.Equal(http.StatusOK, rec.Code)
	rec = s.do(http.MethodPut, "/v1/units/"+unitID.String()+"/status", map[string]interface{}{"status": "scrapped"})
	s.Equal(http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/v1/units/bulk-transfer", map[string]interface{}{
		"unit_ids": []uuid.UUID{created.Units[1].ID}, "to_location_id": b, "sync_bulk": true,
	})
	s.Require().Equal(http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/v1/items/%s/units?location_id=%s", s.item, b), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var listed struct {
		Units []models.IndividualUnit `json:"units"`
	}
	s.decode(rec, &listed)
	s.Len(listed.Units, 1)

	rec = s.do(http.MethodGet, fmt.Sprintf("/v1/items/%s/reconciliation", s.item), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var report models.ReconciliationReport
	s.decode(rec, &report)
	s.Equal(3, report.BulkTotal)
	s.Equal(0, report.Discrepancies)

	s.reports.On("PutReport", mock.Anything, mock.AnythingOfType("*models.ReconciliationReport")).Return("reports/reconciliation/x.json", nil)
	s.reports.On("PresignedURL", mock.Anything, "reports/reconciliation/x.json").Return("https://minio.local/x.json", nil)
	rec = s.do(http.MethodGet, fmt.Sprintf("/v1/items/%s/reconciliation?archive=true", s.item), nil)
	s.Require().Equal(http.StatusOK, rec.Code)
	var archived struct {
		ArchiveKey  string `json:"archive_key"`
		DownloadURL string `json:"download_url"`
	}
	s.decode(rec, &archived)
	s.Equal("reports/reconciliation/x.json", archived.ArchiveKey)
	s.Equal("https://minio.local/x.json", archived.DownloadURL)
}

func (s *HandlersTestSuite) TestCreateUnitsWithoutBulkCredit() {
	a := s.createLocation("A")
	s.store.SetFault(func(op string, _ ...uuid.UUID) error {
		if op == memory.OpStockAdjust {
			return errors.New("stock store down")
		}
		return nil
	})

	rec := s.do(http.MethodPost, fmt.Sprintf("/v1/items/%s/units", s.item), map[string]interface{}{
		"location_id": a, "codes": []string{"Z-1"},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	s.NotEmpty(rec.Header().Get("Warning"))
	var resp struct {
		Units   []models.IndividualUnit `json:"units"`
		Warning string                  `json:"warning"`
	}
	s.decode(rec, &resp)
	s.Len(resp.Units, 1)
	s.Contains(resp.Warning, "bulk stock not credited")
}

func (s *HandlersTestSuite) TestHealth() {
	s.reports.On("Ping", mock.Anything).Return(errors.New("minio down"))

	rec := s.do(http.MethodGet, "/health", nil)
	s.Equal(http.StatusPartialContent, rec.Code)
	var health HealthStatus
	s.decode(rec, &health)
	s.Equal("memory", health.Services["database"])
	s.Equal("unhealthy", health.Services["storage"])

	rec = s.do(http.MethodGet, "/health/ready", nil)
	s.Equal(http.StatusOK, rec.Code)
}

func TestHandlersTestSuite(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("db down") }

func TestReadinessFailsWithoutDatabase(t *testing.T) {
	e := echo.New()
	h := NewHealthHandlers(failingPinger{}, nil, nil, "test")
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/health/ready", nil), rec)

	require.NoError(t, h.ReadinessCheck(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestArchiveWithoutStorage(t *testing.T) {
	e := echo.New()
	store := memory.NewStore()
	repos := store.Repositories()
	recon := services.NewReconciliationService(repos.Stock, repos.Units, time.Second, zerolog.Nop())
	h := NewReconciliationHandlers(recon, nil, zerolog.Nop())

	item := uuid.New()
	req := httptest.NewRequest(http.MethodGet, "/v1/items/"+item.String()+"/reconciliation?archive=true", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("itemId")
	c.SetParamValues(item.String())

	require.NoError(t, h.GetReport(c))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestArchivePresignFailureIsLogged(t *testing.T) {
	e := echo.New()
	store := memory.NewStore()
	repos := store.Repositories()
	recon := services.NewReconciliationService(repos.Stock, repos.Units, time.Second, zerolog.Nop())

	reports := new(MockReportStore)
	reports.On("PutReport", mock.Anything, mock.Anything).Return("reports/reconciliation/y.json", nil)
	reports.On("PresignedURL", mock.Anything, "reports/reconciliation/y.json").Return("", errors.New("sign failed"))

	var buf bytes.Buffer
	h := NewReconciliationHandlers(recon, reports, zerolog.New(&buf))

	item := uuid.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/v1/items/"+item.String()+"/reconciliation?archive=true", nil), rec)
	c.SetParamNames("itemId")
	c.SetParamValues(item.String())

	require.NoError(t, h.GetReport(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"archive_key":"reports/reconciliation/y.json"`)
	assert.Contains(t, buf.String(), `"level":"warn"`)
	assert.Contains(t, buf.String(), "sign failed")
}

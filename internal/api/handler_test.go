package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"material-service/internal/broker"
	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/redisclient"
	"material-service/internal/sequence"
	"material-service/internal/service"
	"material-service/internal/store/memory"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryIdempotency struct {
	mu        sync.Mutex
	locks     map[string]string
	responses map[string]*redisclient.CachedResponse
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{
		locks:     make(map[string]string),
		responses: make(map[string]*redisclient.CachedResponse),
	}
}

func (m *memoryIdempotency) AcquireLock(_ context.Context, key, token string, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, held := m.locks[key]; held {
		return false, nil
	}
	m.locks[key] = token
	return true, nil
}

func (m *memoryIdempotency) ReleaseLock(_ context.Context, key, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.locks[key] == token {
		delete(m.locks, key)
	}
	return nil
}

func (m *memoryIdempotency) SaveResponse(_ context.Context, key string, resp *redisclient.CachedResponse, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	body := append([]byte(nil), resp.Body...)
	m.responses[key] = &redisclient.CachedResponse{Status: resp.Status, ContentType: resp.ContentType, Body: body}
	return nil
}

func (m *memoryIdempotency) GetResponse(_ context.Context, key string) (*redisclient.CachedResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.responses[key], nil
}

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type errorBody struct {
	Error struct {
		Kind    string `json:"kind"`
		Message string `json:"message"`
	} `json:"error"`
}

func setupRouter(t *testing.T, pinger Pinger, idem IdempotencyStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.NewStore()
	require.NoError(t, st.AddPart(models.Part{
		Code: "X", Name: "Bracket", LeadTimeDays: 3, SafetyStock: 20, UnitPrice: decimal.NewFromInt(5),
	}))
	for _, product := range []string{"P-A", "P-B"} {
		_, err := st.AddBomItem(models.BomItem{ProductCode: product, StationCode: "S1", PartCode: "X", QuantityPerUnit: 1, Active: true})
		require.NoError(t, err)
	}
	_, err := st.AddPlan(models.ProductionPlan{ProductCode: "P-A", PlannedQuantity: 60, StartDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	_, err = st.AddPlan(models.ProductionPlan{ProductCode: "P-B", PlannedQuantity: 70, StartDate: time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC)})
	require.NoError(t, err)
	require.NoError(t, st.SetStock("X", 100))

	if pinger == nil {
		pinger = st
	}
	clock := service.Clock{Now: func() time.Time { return time.Date(2025, 1, 5, 9, 0, 0, 0, time.UTC) }, Location: time.UTC}
	eng := engine.New(engine.DefaultConfig())
	pub := broker.NewEventPublisher(broker.NopSink{})

	h := NewHandler(Services{
		Requirements: service.NewRequirementService(st, eng, clock),
		Inventory:    service.NewInventoryService(st, pub),
		Receipts:     service.NewReceiptService(st, pub, sequence.New("PO"), clock),
		Plans:        service.NewPlanService(st, eng, pub),
		Alerts:       service.NewAlertService(st, eng, clock),
	}, pinger, idem, time.Hour)

	router := gin.New()
	h.SetupRoutes(router)
	return router
}

func do(router *gin.Engine, method, path, role string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		payload, _ := json.Marshal(body)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if role != "" {
		req.Header.Set(HeaderUserID, "user-1")
		req.Header.Set(HeaderUserRole, role)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v), w.Body.String())
}

func assertErrorKind(t *testing.T, w *httptest.ResponseRecorder, status int, kind string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var body errorBody
	decode(t, w, &body)
	assert.Equal(t, kind, body.Error.Kind)
	assert.NotEmpty(t, body.Error.Message)
}

func TestHealthAndReadiness(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))

	w = do(router, http.MethodGet, "/ready", "", nil, HeaderRequestID, "req-42")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-42", w.Header().Get(HeaderRequestID))

	down := setupRouter(t, failingPinger{}, nil)
	w = do(down, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	w = do(router, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestIdentityAndRoles(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodGet, "/api/v1/parts/X", "", nil)
	assertErrorKind(t, w, http.StatusUnauthorized, kindUnauthorized)

	w = do(router, http.MethodGet, "/api/v1/parts/X", "viewer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/api/v1/parts/X/receive", "viewer", gin.H{"quantity": 5})
	assertErrorKind(t, w, http.StatusForbidden, kindForbidden)

	w = do(router, http.MethodPost, "/api/v1/parts/X/receive", "Manager", gin.H{"quantity": 5})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestPlanRequirementsEndpoint(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodGet, "/api/v1/plans/1/requirements", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp service.PlanRequirements
	decode(t, w, &resp)
	require.Len(t, resp.Requirements, 1)
	assert.Equal(t, int64(30), resp.Requirements[0].AvailableStock)
	assert.Equal(t, int64(30), resp.Requirements[0].ShortageQuantity)

	w = do(router, http.MethodGet, "/api/v1/plans/abc/requirements", "viewer", nil)
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodGet, "/api/v1/plans/99/requirements", "viewer", nil)
	assertErrorKind(t, w, http.StatusNotFound, "NOT_FOUND")

	w = do(router, http.MethodGet, "/api/v1/products/P-A/bom", "viewer", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = do(router, http.MethodGet, "/api/v1/products/NONE/bom", "viewer", nil)
	assertErrorKind(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestStockEndpoints(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodPost, "/api/v1/parts/X/issue", "material", gin.H{"quantity": 1000})
	assertErrorKind(t, w, http.StatusConflict, "INSUFFICIENT_STOCK")

	w = do(router, http.MethodPost, "/api/v1/parts/X/issue", "material", gin.H{})
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodPost, "/api/v1/parts/X/adjust", "material", gin.H{"quantity": -4, "reason_code": "LOSS"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var change models.StockChange
	decode(t, w, &change)
	assert.Equal(t, int64(96), change.Inventory.CurrentStock)

	w = do(router, http.MethodPost, "/api/v1/parts/X/stocktake", "material", gin.H{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/parts/X/ledger?limit=1", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var ledger struct {
		Entries []models.StockTransaction `json:"entries"`
	}
	decode(t, w, &ledger)
	require.Len(t, ledger.Entries, 1)
	assert.Equal(t, models.TransactionStocktake, ledger.Entries[0].Type)

	w = do(router, http.MethodGet, "/api/v1/parts/X/ledger?limit=many", "viewer", nil)
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodGet, "/api/v1/parts/X/ledger/verify", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var replay service.LedgerReplay
	decode(t, w, &replay)
	assert.True(t, replay.Consistent)
	assert.Equal(t, int64(0), replay.CurrentStock)
}

func TestReceiptEndpoints(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodPost, "/api/v1/receipts", "material", gin.H{"part_code": "X", "order_quantity": 50})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var receipt models.ScheduledReceipt
	decode(t, w, &receipt)
	assert.Equal(t, "PO-20250105-0001", receipt.OrderNo)
	assert.Equal(t, "user-1", receipt.CreatedBy)

	w = do(router, http.MethodPost, "/api/v1/receipts/1/transition", "material", gin.H{"status": "RECEIVED"})
	assertErrorKind(t, w, http.StatusConflict, "INVALID_STATE_TRANSITION")

	w = do(router, http.MethodPost, "/api/v1/receipts/1/transition", "material",
		gin.H{"status": "SCHEDULED", "scheduled_quantity": 40, "scheduled_date": "08/01/2025"})
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodPost, "/api/v1/receipts/1/transition", "material",
		gin.H{"status": "SCHEDULED", "scheduled_quantity": 40, "scheduled_date": "2025-01-08"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodPost, "/api/v1/receipts/1/transition", "material", gin.H{"status": "RECEIVED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var transition service.ReceiptTransition
	decode(t, w, &transition)
	require.NotNil(t, transition.StockChange)
	assert.Equal(t, int64(140), transition.StockChange.Inventory.CurrentStock)

	w = do(router, http.MethodGet, "/api/v1/receipts?status=RECEIVED", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Receipts []models.ScheduledReceipt `json:"receipts"`
	}
	decode(t, w, &list)
	assert.Len(t, list.Receipts, 1)

	w = do(router, http.MethodGet, "/api/v1/receipts?status=LOST", "viewer", nil)
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodGet, "/api/v1/receipts/7", "viewer", nil)
	assertErrorKind(t, w, http.StatusNotFound, "NOT_FOUND")
}

func TestPlanEndpoints(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodPost, "/api/v1/plans/2/reservations", "material", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = do(router, http.MethodGet, "/api/v1/parts/X", "viewer", nil)
	var part service.PartStock
	decode(t, w, &part)
	assert.Equal(t, int64(70), part.Inventory.ReservedStock)

	w = do(router, http.MethodPost, "/api/v1/plans/2/status", "material", gin.H{"status": "COMPLETED"})
	assertErrorKind(t, w, http.StatusConflict, "INVALID_STATE_TRANSITION")

	w = do(router, http.MethodPost, "/api/v1/plans/2/status", "material", gin.H{"status": "CANCELLED"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var transition service.PlanTransition
	decode(t, w, &transition)
	assert.Equal(t, models.PlanStatusCancelled, transition.Plan.Status)
	assert.Len(t, transition.Released, 1)

	w = do(router, http.MethodGet, "/api/v1/plans/2/reservations", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestQueryEndpoints(t *testing.T) {
	router := setupRouter(t, nil, nil)

	w := do(router, http.MethodGet, "/api/v1/parts/X/availability?as_of=2025-01-10", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var avail engine.PartAvailability
	decode(t, w, &avail)
	assert.Equal(t, int64(-30), avail.AvailableStock)

	w = do(router, http.MethodGet, "/api/v1/parts/X/availability?as_of=tomorrow", "viewer", nil)
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodGet, "/api/v1/parts/X/allocation", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var alloc engine.PartAllocation
	decode(t, w, &alloc)
	assert.Equal(t, int64(100), alloc.TotalGranted)

	w = do(router, http.MethodGet, "/api/v1/parts/X/requirements", "viewer", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(router, http.MethodPost, "/api/v1/sufficiency", "viewer",
		gin.H{"required_date": "2025-01-04", "parts": []gin.H{{"part_code": "X", "required_quantity": 100}}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var suff service.SufficiencyResponse
	decode(t, w, &suff)
	assert.True(t, suff.AllSufficient)

	w = do(router, http.MethodGet, "/api/v1/alerts?category=bogus", "viewer", nil)
	assertErrorKind(t, w, http.StatusBadRequest, "INVALID_INPUT")

	w = do(router, http.MethodGet, "/api/v1/alerts", "viewer", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var report service.AlertReport
	decode(t, w, &report)
	assert.Equal(t, 1, report.Summary.Total)
}

func TestIdempotencyReplay(t *testing.T) {
	idem := newMemoryIdempotency()
	router := setupRouter(t, nil, idem)

	first := do(router, http.MethodPost, "/api/v1/parts/X/receive", "material", gin.H{"quantity": 5}, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())

	second := do(router, http.MethodPost, "/api/v1/parts/X/receive", "material", gin.H{"quantity": 5}, HeaderIdempotencyKey, "k1")
	require.Equal(t, http.StatusOK, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderIdempotentReplay))
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := do(router, http.MethodGet, "/api/v1/parts/X", "viewer", nil)
	var part service.PartStock
	decode(t, w, &part)
	assert.Equal(t, int64(105), part.Inventory.CurrentStock)

	// rejected requests are not cached
	bad := do(router, http.MethodPost, "/api/v1/parts/X/issue", "material", gin.H{"quantity": 1000}, HeaderIdempotencyKey, "k2")
	assert.Equal(t, http.StatusConflict, bad.Code)
	again := do(router, http.MethodPost, "/api/v1/parts/X/issue", "material", gin.H{"quantity": 1000}, HeaderIdempotencyKey, "k2")
	assert.Empty(t, again.Header().Get(HeaderIdempotentReplay))

	idem.locks["user-1:POST:/api/v1/parts/X/receive:k3"] = "other"
	busy := do(router, http.MethodPost, "/api/v1/parts/X/receive", "material", gin.H{"quantity": 5}, HeaderIdempotencyKey, "k3")
	assertErrorKind(t, busy, http.StatusConflict, "CONFLICT")
}

func TestParseRole(t *testing.T) {
	assert.Equal(t, RoleAdmin, ParseRole(" ADMIN "))
	assert.Equal(t, RoleMaterial, ParseRole("material"))
	assert.Equal(t, Role(0), ParseRole("guest"))
	assert.True(t, RoleViewer < RoleMaterial && RoleMaterial < RoleManager)
}

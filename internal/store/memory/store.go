// Package memory is an in-process store with the same transactional behaviour
// as the Postgres store. Every mutation works on copies and commits only when
// it succeeds.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"material-service/internal/apperr"
	"material-service/internal/engine"
	"material-service/internal/models"
	"material-service/internal/sequence"
	"material-service/internal/stock"
)

type reservationKey struct {
	planID   int64
	partCode string
}

// Store holds all rows in maps guarded by one lock
type Store struct {
	mu sync.RWMutex

	parts        map[string]models.Part
	bomItems     []models.BomItem
	plans        map[int64]models.ProductionPlan
	reservations map[reservationKey]models.Reservation
	inventory    map[string]models.Inventory
	ledger       []models.StockTransaction
	receipts     map[int64]models.ScheduledReceipt
	counter      *sequence.MemoryCounter

	nextBomID     int64
	nextPlanID    int64
	nextReceiptID int64
	nextLedgerID  int64

	now func() time.Time
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		parts:        make(map[string]models.Part),
		plans:        make(map[int64]models.ProductionPlan),
		reservations: make(map[reservationKey]models.Reservation),
		inventory:    make(map[string]models.Inventory),
		receipts:     make(map[int64]models.ScheduledReceipt),
		counter:      sequence.NewMemoryCounter(),
		now:          time.Now,
	}
}

// Ping always succeeds
func (s *Store) Ping(_ context.Context) error {
	return nil
}

// Close is a no-op
func (s *Store) Close() error {
	return nil
}

// AddPart registers a part
func (s *Store) AddPart(p models.Part) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[p.Code]; ok {
		return apperr.Conflict("part %s already exists", p.Code)
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	s.parts[p.Code] = p
	return nil
}

// AddBomItem registers a BOM row and returns its id
func (s *Store) AddBomItem(item models.BomItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[item.PartCode]; !ok {
		return 0, apperr.NotFound("part %s not found", item.PartCode)
	}
	if item.QuantityPerUnit <= 0 {
		return 0, apperr.InvalidInput("quantity per unit must be positive, got %d", item.QuantityPerUnit)
	}
	for _, b := range s.bomItems {
		if b.ProductCode == item.ProductCode && b.StationCode == item.StationCode && b.PartCode == item.PartCode {
			return 0, apperr.Conflict("bom item %s/%s/%s already exists", item.ProductCode, item.StationCode, item.PartCode)
		}
	}
	s.nextBomID++
	item.ID = s.nextBomID
	s.bomItems = append(s.bomItems, item)
	return item.ID, nil
}

// AddPlan registers a production plan and returns its id
func (s *Store) AddPlan(p models.ProductionPlan) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.PlannedQuantity <= 0 {
		return 0, apperr.InvalidInput("planned quantity must be positive, got %d", p.PlannedQuantity)
	}
	if p.Status == "" {
		p.Status = models.PlanStatusPlanned
	}
	s.nextPlanID++
	p.ID = s.nextPlanID
	p.StartDate = engine.Day(p.StartDate)
	p.CreatedAt = s.now()
	p.UpdatedAt = p.CreatedAt
	s.plans[p.ID] = p
	return p.ID, nil
}

// SetStock sets a part's opening on-hand quantity without a ledger entry
func (s *Store) SetStock(partCode string, current int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parts[partCode]; !ok {
		return apperr.NotFound("part %s not found", partCode)
	}
	inv := s.inventory[partCode]
	inv.PartCode = partCode
	inv.CurrentStock = current
	inv.UpdatedAt = s.now()
	s.inventory[partCode] = inv
	return nil
}

// LoadSnapshot copies the active state for the engine
func (s *Store) LoadSnapshot(_ context.Context, planID int64) (*engine.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	parts := make([]models.Part, 0, len(s.parts))
	for _, p := range s.parts {
		parts = append(parts, p)
	}
	inventory := make([]models.Inventory, 0, len(s.inventory))
	for _, inv := range s.inventory {
		inventory = append(inventory, inv)
	}

	plans := []models.ProductionPlan{}
	for _, p := range s.plans {
		if p.IsActive() || p.ID == planID {
			plans = append(plans, p)
		}
	}
	sort.Slice(plans, func(i, j int) bool {
		if !plans[i].StartDate.Equal(plans[j].StartDate) {
			return plans[i].StartDate.Before(plans[j].StartDate)
		}
		return plans[i].ID < plans[j].ID
	})

	bomItems := []models.BomItem{}
	for _, b := range s.bomItems {
		if b.Active {
			bomItems = append(bomItems, b)
		}
	}

	receipts := []models.ScheduledReceipt{}
	for _, r := range s.receipts {
		if r.Status == models.ReceiptStatusScheduled {
			receipts = append(receipts, r)
		}
	}
	sort.Slice(receipts, func(i, j int) bool { return receipts[i].ID < receipts[j].ID })

	return engine.NewSnapshot(parts, inventory, plans, bomItems, receipts), nil
}

// GetPart retrieves a part by code
func (s *Store) GetPart(_ context.Context, code string) (*models.Part, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.parts[code]
	if !ok {
		return nil, apperr.NotFound("part %s not found", code)
	}
	return &p, nil
}

// GetInventory retrieves the stock head of a part
func (s *Store) GetInventory(_ context.Context, code string) (*models.Inventory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.parts[code]; !ok {
		return nil, apperr.NotFound("part %s not found", code)
	}
	inv := s.inventory[code]
	inv.PartCode = code
	return &inv, nil
}

// ListLedger returns a part's ledger entries oldest first
func (s *Store) ListLedger(_ context.Context, code string, limit int) ([]models.StockTransaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.parts[code]; !ok {
		return nil, apperr.NotFound("part %s not found", code)
	}
	entries := []models.StockTransaction{}
	for _, e := range s.ledger {
		if e.PartCode == code {
			entries = append(entries, e)
		}
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// ListBomItems retrieves the active BOM rows of a product
func (s *Store) ListBomItems(_ context.Context, productCode string) ([]models.BomItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := []models.BomItem{}
	for _, b := range s.bomItems {
		if b.ProductCode == productCode && b.Active {
			items = append(items, b)
		}
	}
	return items, nil
}

// inventoryLocked returns a copy of the part's stock head; s.mu must be held
func (s *Store) inventoryLocked(partCode string) (models.Inventory, error) {
	if _, ok := s.parts[partCode]; !ok {
		return models.Inventory{}, apperr.NotFound("part %s not found", partCode)
	}
	inv := s.inventory[partCode]
	inv.PartCode = partCode
	return inv, nil
}

func (s *Store) appendLedgerLocked(entry *models.StockTransaction) {
	s.nextLedgerID++
	entry.ID = s.nextLedgerID
	entry.CreatedAt = s.now()
	s.ledger = append(s.ledger, *entry)
}

// stageStock runs fn against a copy of the part's stock head
func (s *Store) stageStock(partCode string, fn models.StockMutation) (models.Inventory, *models.StockTransaction, error) {
	inv, err := s.inventoryLocked(partCode)
	if err != nil {
		return models.Inventory{}, nil, err
	}
	entry, err := fn(&inv)
	if err != nil {
		return models.Inventory{}, nil, err
	}
	if inv.CurrentStock < 0 || inv.CurrentStock < inv.ReservedStock {
		return models.Inventory{}, nil, apperr.InsufficientStock("part %s: stock %d below reserved %d",
			partCode, inv.CurrentStock, inv.ReservedStock)
	}
	entry.PartCode = partCode
	inv.UpdatedAt = s.now()
	return inv, entry, nil
}

// MutateStock changes a part's stock atomically
func (s *Store) MutateStock(_ context.Context, partCode string, fn models.StockMutation) (*models.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, entry, err := s.stageStock(partCode, fn)
	if err != nil {
		return nil, err
	}
	s.inventory[partCode] = inv
	s.appendLedgerLocked(entry)
	return &models.StockChange{Inventory: inv, Transaction: *entry}, nil
}

// MutatePlanStock changes a part's stock on behalf of a plan
func (s *Store) MutatePlanStock(_ context.Context, planID int64, partCode string, fn models.PlanStockMutation) (*models.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[planID]; !ok {
		return nil, apperr.NotFound("production plan %d not found", planID)
	}
	inv, err := s.inventoryLocked(partCode)
	if err != nil {
		return nil, err
	}
	key := reservationKey{planID: planID, partCode: partCode}
	res := s.reservations[key]
	res.PlanID, res.PartCode = planID, partCode

	entry, err := fn(&inv, &res)
	if err != nil {
		return nil, err
	}
	if inv.CurrentStock < 0 || inv.CurrentStock < inv.ReservedStock {
		return nil, apperr.InsufficientStock("part %s: stock %d below reserved %d",
			partCode, inv.CurrentStock, inv.ReservedStock)
	}
	entry.PartCode = partCode
	inv.UpdatedAt = s.now()

	s.inventory[partCode] = inv
	s.saveReservationLocked(res)
	s.appendLedgerLocked(entry)
	return &models.StockChange{Inventory: inv, Transaction: *entry}, nil
}

func (s *Store) saveReservationLocked(res models.Reservation) {
	key := reservationKey{planID: res.PlanID, partCode: res.PartCode}
	if res.ReservedQuantity <= 0 {
		delete(s.reservations, key)
		return
	}
	if res.CreatedAt.IsZero() {
		res.CreatedAt = s.now()
	}
	s.reservations[key] = res
}

// CreateReceipt inserts a receipt with the next order number
func (s *Store) CreateReceipt(ctx context.Context, r *models.ScheduledReceipt, gen *sequence.Generator, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parts[r.PartCode]; !ok {
		return apperr.NotFound("part %s not found", r.PartCode)
	}
	orderNo, err := gen.Next(ctx, s.counter, at)
	if err != nil {
		return err
	}
	for _, existing := range s.receipts {
		if existing.OrderNo == orderNo {
			return apperr.Conflict("order number %s already exists", orderNo)
		}
	}

	s.nextReceiptID++
	r.ID = s.nextReceiptID
	r.OrderNo = orderNo
	r.CreatedAt = s.now()
	r.UpdatedAt = r.CreatedAt
	s.receipts[r.ID] = *r
	return nil
}

// GetReceipt retrieves a receipt by ID
func (s *Store) GetReceipt(_ context.Context, id int64) (*models.ScheduledReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.receipts[id]
	if !ok {
		return nil, apperr.NotFound("scheduled receipt %d not found", id)
	}
	return &r, nil
}

// ListReceipts retrieves receipts matching f, newest first
func (s *Store) ListReceipts(_ context.Context, f models.ReceiptFilter) ([]models.ScheduledReceipt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	receipts := []models.ScheduledReceipt{}
	for _, r := range s.receipts {
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if f.PartCode != "" && r.PartCode != f.PartCode {
			continue
		}
		receipts = append(receipts, r)
	}
	sort.Slice(receipts, func(i, j int) bool { return receipts[i].ID > receipts[j].ID })
	return receipts, nil
}

// MutateReceipt applies fn and any stock mutation it returns atomically
func (s *Store) MutateReceipt(_ context.Context, id int64, fn models.ReceiptMutation) (*models.ScheduledReceipt, *models.StockChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.receipts[id]
	if !ok {
		return nil, nil, apperr.NotFound("scheduled receipt %d not found", id)
	}
	mutation, err := fn(&r)
	if err != nil {
		return nil, nil, err
	}
	r.UpdatedAt = s.now()

	var change *models.StockChange
	if mutation != nil {
		inv, entry, err := s.stageStock(r.PartCode, mutation)
		if err != nil {
			return nil, nil, err
		}
		s.inventory[r.PartCode] = inv
		s.appendLedgerLocked(entry)
		change = &models.StockChange{Inventory: inv, Transaction: *entry}
	}

	s.receipts[id] = r
	return &r, change, nil
}

// GetPlan retrieves a production plan by ID
func (s *Store) GetPlan(_ context.Context, id int64) (*models.ProductionPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.plans[id]
	if !ok {
		return nil, apperr.NotFound("production plan %d not found", id)
	}
	return &p, nil
}

// ListReservations retrieves the reservations held by a plan
func (s *Store) ListReservations(_ context.Context, planID int64) ([]models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.reservationsLocked(planID), nil
}

func (s *Store) reservationsLocked(planID int64) []models.Reservation {
	list := []models.Reservation{}
	for key, res := range s.reservations {
		if key.planID == planID {
			list = append(list, res)
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].PartCode < list[j].PartCode })
	return list
}

// ReplacePlanReservations sets a plan's reservations to targets, capped by free stock
func (s *Store) ReplacePlanReservations(_ context.Context, planID int64, targets map[string]int64) ([]models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok {
		return nil, apperr.NotFound("production plan %d not found", planID)
	}
	if !plan.IsActive() {
		return nil, apperr.InvalidStateTransition("plan %d is %s and cannot reserve stock", plan.ID, plan.Status)
	}

	parts := make(map[string]bool, len(targets))
	for code := range targets {
		parts[code] = true
	}
	for _, res := range s.reservationsLocked(planID) {
		parts[res.PartCode] = true
	}
	codes := make([]string, 0, len(parts))
	for code := range parts {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	stagedInv := make(map[string]models.Inventory, len(codes))
	stagedRes := make([]models.Reservation, 0, len(codes))
	for _, code := range codes {
		inv, err := s.inventoryLocked(code)
		if err != nil {
			return nil, err
		}
		res := s.reservations[reservationKey{planID: planID, partCode: code}]
		res.PlanID, res.PartCode = planID, code
		stock.Reserve(&inv, &res, targets[code])
		inv.UpdatedAt = s.now()
		stagedInv[code] = inv
		stagedRes = append(stagedRes, res)
	}

	result := []models.Reservation{}
	for code, inv := range stagedInv {
		s.inventory[code] = inv
	}
	for _, res := range stagedRes {
		s.saveReservationLocked(res)
		if res.ReservedQuantity > 0 {
			result = append(result, s.reservations[reservationKey{planID: planID, partCode: res.PartCode}])
		}
	}
	return result, nil
}

// TransitionPlanStatus applies fn to a copy of the plan and releases
// reservations when the plan becomes terminal.
func (s *Store) TransitionPlanStatus(_ context.Context, planID int64, fn func(p *models.ProductionPlan) error) (*models.ProductionPlan, []models.Reservation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	plan, ok := s.plans[planID]
	if !ok {
		return nil, nil, apperr.NotFound("production plan %d not found", planID)
	}
	if err := fn(&plan); err != nil {
		return nil, nil, err
	}
	if !plan.Status.Valid() {
		return nil, nil, fmt.Errorf("invalid plan status %q", plan.Status)
	}
	plan.UpdatedAt = s.now()

	released := []models.Reservation{}
	if plan.Status.IsTerminal() {
		for _, res := range s.reservationsLocked(planID) {
			inv, err := s.inventoryLocked(res.PartCode)
			if err != nil {
				return nil, nil, err
			}
			freed := res
			stock.Release(&inv, &res)
			inv.UpdatedAt = s.now()
			s.inventory[res.PartCode] = inv
			s.saveReservationLocked(res)
			released = append(released, freed)
		}
	}

	s.plans[planID] = plan
	return &plan, released, nil
}

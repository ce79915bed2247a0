package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"material-service/internal/apperr"
	"material-service/internal/models"
	"material-service/internal/stock"

	"github.com/jmoiron/sqlx"
)

// lockPlan reads a plan with the given row lock clause
func lockPlan(ctx context.Context, tx *sqlx.Tx, planID int64, lock string) (*models.ProductionPlan, error) {
	var plan models.ProductionPlan
	err := tx.GetContext(ctx, &plan, "SELECT * FROM production_plans WHERE id = $1 "+lock, planID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("production plan %d not found", planID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock plan: %w", err)
	}
	return &plan, nil
}

// lockReservation reads a plan's reservation on a part, zero when there is none
func lockReservation(ctx context.Context, tx *sqlx.Tx, planID int64, partCode string) (*models.Reservation, error) {
	var res models.Reservation
	err := tx.GetContext(ctx, &res,
		"SELECT * FROM plan_reservations WHERE plan_id = $1 AND part_code = $2 FOR UPDATE", planID, partCode)
	if errors.Is(err, sql.ErrNoRows) {
		return &models.Reservation{PlanID: planID, PartCode: partCode}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock reservation: %w", err)
	}
	return &res, nil
}

// saveReservation writes a reservation, deleting it when it reaches zero
func saveReservation(ctx context.Context, tx *sqlx.Tx, res *models.Reservation) error {
	if res.ReservedQuantity <= 0 {
		_, err := tx.ExecContext(ctx,
			"DELETE FROM plan_reservations WHERE plan_id = $1 AND part_code = $2", res.PlanID, res.PartCode)
		if err != nil {
			return fmt.Errorf("failed to delete reservation: %w", err)
		}
		return nil
	}

	err := tx.GetContext(ctx, &res.CreatedAt, `
		INSERT INTO plan_reservations (plan_id, part_code, reserved_quantity)
		VALUES ($1, $2, $3)
		ON CONFLICT (plan_id, part_code) DO UPDATE SET reserved_quantity = EXCLUDED.reserved_quantity
		RETURNING created_at`,
		res.PlanID, res.PartCode, res.ReservedQuantity)
	if err != nil {
		return fmt.Errorf("failed to save reservation: %w", err)
	}
	return nil
}

// GetPlan retrieves a production plan by ID
func (s *Store) GetPlan(ctx context.Context, id int64) (*models.ProductionPlan, error) {
	var plan models.ProductionPlan
	err := s.db.GetContext(ctx, &plan, "SELECT * FROM production_plans WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("production plan %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get plan: %w", err)
	}
	return &plan, nil
}

// ListReservations retrieves the reservations held by a plan
func (s *Store) ListReservations(ctx context.Context, planID int64) ([]models.Reservation, error) {
	reservations := []models.Reservation{}
	err := s.db.SelectContext(ctx, &reservations,
		"SELECT * FROM plan_reservations WHERE plan_id = $1 ORDER BY part_code", planID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reservations: %w", err)
	}
	return reservations, nil
}

func reservationParts(ctx context.Context, tx *sqlx.Tx, planID int64, extra map[string]int64) ([]string, error) {
	var held []string
	if err := tx.SelectContext(ctx, &held,
		"SELECT part_code FROM plan_reservations WHERE plan_id = $1", planID); err != nil {
		return nil, fmt.Errorf("failed to list reserved parts: %w", err)
	}

	seen := make(map[string]bool, len(held)+len(extra))
	parts := make([]string, 0, len(held)+len(extra))
	for _, p := range held {
		if !seen[p] {
			seen[p] = true
			parts = append(parts, p)
		}
	}
	for p := range extra {
		if !seen[p] {
			seen[p] = true
			parts = append(parts, p)
		}
	}
	// fixed lock order across transactions
	sort.Strings(parts)
	return parts, nil
}

// ReplacePlanReservations sets a plan's reservations to targets, capping each at
// the stock other plans leave free. Parts missing from targets are released.
func (s *Store) ReplacePlanReservations(ctx context.Context, planID int64, targets map[string]int64) ([]models.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	plan, err := lockPlan(ctx, tx, planID, "FOR UPDATE")
	if err != nil {
		return nil, err
	}
	if !plan.IsActive() {
		return nil, apperr.InvalidStateTransition("plan %d is %s and cannot reserve stock", plan.ID, plan.Status)
	}

	parts, err := reservationParts(ctx, tx, planID, targets)
	if err != nil {
		return nil, err
	}

	result := []models.Reservation{}
	for _, partCode := range parts {
		inv, err := lockInventory(ctx, tx, partCode)
		if err != nil {
			return nil, err
		}
		res, err := lockReservation(ctx, tx, planID, partCode)
		if err != nil {
			return nil, err
		}

		stock.Reserve(inv, res, targets[partCode])

		if err := saveInventory(ctx, tx, inv); err != nil {
			return nil, err
		}
		if err := saveReservation(ctx, tx, res); err != nil {
			return nil, err
		}
		if res.ReservedQuantity > 0 {
			result = append(result, *res)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit reservations: %w", err)
	}
	return result, nil
}

// TransitionPlanStatus applies fn to the locked plan and saves it. Moving into a
// terminal status releases every reservation the plan holds in the same
// transaction.
func (s *Store) TransitionPlanStatus(ctx context.Context, planID int64, fn func(p *models.ProductionPlan) error) (*models.ProductionPlan, []models.Reservation, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, err
	}
	defer tx.Rollback()

	plan, err := lockPlan(ctx, tx, planID, "FOR UPDATE")
	if err != nil {
		return nil, nil, err
	}
	if err := fn(plan); err != nil {
		return nil, nil, err
	}

	err = tx.GetContext(ctx, &plan.UpdatedAt,
		"UPDATE production_plans SET status = $1, updated_at = NOW() WHERE id = $2 RETURNING updated_at",
		plan.Status, plan.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to update plan status: %w", err)
	}

	released := []models.Reservation{}
	if plan.Status.IsTerminal() {
		parts, err := reservationParts(ctx, tx, planID, nil)
		if err != nil {
			return nil, nil, err
		}
		for _, partCode := range parts {
			inv, err := lockInventory(ctx, tx, partCode)
			if err != nil {
				return nil, nil, err
			}
			res, err := lockReservation(ctx, tx, planID, partCode)
			if err != nil {
				return nil, nil, err
			}
			freed := *res
			stock.Release(inv, res)
			if err := saveInventory(ctx, tx, inv); err != nil {
				return nil, nil, err
			}
			if err := saveReservation(ctx, tx, res); err != nil {
				return nil, nil, err
			}
			released = append(released, freed)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit plan status: %w", err)
	}
	return plan, released, nil
}

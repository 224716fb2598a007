package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/globaltrotters/apiserver/types"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const budgetColumns = `id, trip_id, amount, category, description, created_at, updated_at`

// BudgetRepository handles persistence for trip budgets and suggestions.
type BudgetRepository struct {
	db *sqlx.DB
}

func NewBudgetRepository(db *sqlx.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// BudgetsByTrips returns budgets keyed by trip id.
func (r *BudgetRepository) BudgetsByTrips(ctx context.Context, tripIDs []int) (map[int][]types.Budget, error) {
	result := make(map[int][]types.Budget, len(tripIDs))
	if len(tripIDs) == 0 {
		return result, nil
	}
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE trip_id = ANY($1) ORDER BY trip_id, id`
	var budgets []types.Budget
	if err := r.db.SelectContext(ctx, &budgets, query, pq.Array(tripIDs)); err != nil {
		return nil, fmt.Errorf("load budgets: %w", err)
	}
	for _, budget := range budgets {
		result[budget.TripID] = append(result[budget.TripID], budget)
	}
	return result, nil
}

// SuggestionsByTrips returns suggestions keyed by trip id.
func (r *BudgetRepository) SuggestionsByTrips(ctx context.Context, tripIDs []int) (map[int][]types.Suggestion, error) {
	result := make(map[int][]types.Suggestion, len(tripIDs))
	if len(tripIDs) == 0 {
		return result, nil
	}
	const query = `SELECT id, trip_id, content, type, created_at FROM suggestions WHERE trip_id = ANY($1) ORDER BY trip_id, id`
	var suggestions []types.Suggestion
	if err := r.db.SelectContext(ctx, &suggestions, query, pq.Array(tripIDs)); err != nil {
		return nil, fmt.Errorf("load suggestions: %w", err)
	}
	for _, suggestion := range suggestions {
		result[suggestion.TripID] = append(result[suggestion.TripID], suggestion)
	}
	return result, nil
}

// GetForUser returns a budget whose trip belongs to userID.
func (r *BudgetRepository) GetForUser(ctx context.Context, id, userID int) (types.Budget, error) {
	const query = `
		SELECT b.id, b.trip_id, b.amount, b.category, b.description, b.created_at, b.updated_at
		FROM budgets b
		JOIN trips t ON t.id = b.trip_id
		WHERE b.id = $1 AND t.user_id = $2`
	var budget types.Budget
	if err := r.db.GetContext(ctx, &budget, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return types.Budget{}, ErrNotFound
		}
		return types.Budget{}, fmt.Errorf("get budget %d: %w", id, err)
	}
	return budget, nil
}

func (r *BudgetRepository) Create(ctx context.Context, budget types.Budget) (types.Budget, error) {
	now := time.Now().UTC()
	budget.CreatedAt = now
	budget.UpdatedAt = now

	const query = `
		INSERT INTO budgets (trip_id, amount, category, description, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`
	if err := r.db.QueryRowxContext(ctx, query,
		budget.TripID, budget.Amount, budget.Category, budget.Description, budget.CreatedAt, budget.UpdatedAt,
	).Scan(&budget.ID); err != nil {
		return types.Budget{}, fmt.Errorf("create budget: %w", err)
	}
	return budget, nil
}

func (r *BudgetRepository) Update(ctx context.Context, budget types.Budget) (types.Budget, error) {
	budget.UpdatedAt = time.Now().UTC()

	const query = `
		UPDATE budgets
		SET amount = $1, category = $2, description = $3, updated_at = $4
		WHERE id = $5`
	result, err := r.db.ExecContext(ctx, query,
		budget.Amount, budget.Category, budget.Description, budget.UpdatedAt, budget.ID,
	)
	if err != nil {
		return types.Budget{}, fmt.Errorf("update budget %d: %w", budget.ID, err)
	}
	if err := expectAffected(result); err != nil {
		return types.Budget{}, err
	}
	return budget, nil
}

func (r *BudgetRepository) Delete(ctx context.Context, id int) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return expectAffected(result)
}

package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
)

type BudgetInput struct {
	Amount      float64
	Category    string
	Description string
}

// BudgetService manages money on a trip: activity costs and the trip's
// budget lines.
type BudgetService struct {
	cities  CityRepository
	trips   TripRepository
	budgets BudgetRepository
}

func NewBudgetService(cities CityRepository, trips TripRepository, budgets BudgetRepository) *BudgetService {
	return &BudgetService{cities: cities, trips: trips, budgets: budgets}
}

// UpdateActivityCost overwrites an activity's cost. The activity must be on
// one of the caller's trips.
func (s *BudgetService) UpdateActivityCost(ctx context.Context, callerID, activityID int, cost float64) (types.Activity, error) {
	if activityID < 1 {
		return types.Activity{}, validationError("activityId is required")
	}
	if err := validAmount("cost", cost); err != nil {
		return types.Activity{}, err
	}

	if _, err := s.cities.GetActivity(ctx, activityID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Activity{}, notFound("activity not found")
		}
		return types.Activity{}, err
	}
	linked, err := s.cities.ActivityLinkedToUser(ctx, activityID, callerID)
	if err != nil {
		return types.Activity{}, err
	}
	if !linked {
		return types.Activity{}, forbidden("activity not found on any of your trips")
	}

	activity, err := s.cities.UpdateActivityCost(ctx, activityID, cost)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Activity{}, notFound("activity not found")
		}
		return types.Activity{}, err
	}
	return activity, nil
}

func (s *BudgetService) ListBudgets(ctx context.Context, ownerID, tripID int) ([]types.Budget, error) {
	if _, err := s.trips.GetForUser(ctx, tripID, ownerID); err != nil {
		return nil, ownershipError(err)
	}
	byTrip, err := s.budgets.BudgetsByTrips(ctx, []int{tripID})
	if err != nil {
		return nil, err
	}
	return orEmpty(byTrip[tripID]), nil
}

func (s *BudgetService) CreateBudget(ctx context.Context, ownerID, tripID int, in BudgetInput) (types.Budget, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return types.Budget{}, validationError("category is required")
	}
	if err := validAmount("amount", in.Amount); err != nil {
		return types.Budget{}, err
	}
	if _, err := s.trips.GetForUser(ctx, tripID, ownerID); err != nil {
		return types.Budget{}, ownershipError(err)
	}
	return s.budgets.Create(ctx, types.Budget{
		TripID:      tripID,
		Amount:      in.Amount,
		Category:    category,
		Description: strings.TrimSpace(in.Description),
	})
}

func (s *BudgetService) UpdateBudget(ctx context.Context, ownerID, budgetID int, in BudgetInput) (types.Budget, error) {
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return types.Budget{}, validationError("category is required")
	}
	if err := validAmount("amount", in.Amount); err != nil {
		return types.Budget{}, err
	}

	budget, err := s.ownedBudget(ctx, ownerID, budgetID)
	if err != nil {
		return types.Budget{}, err
	}
	budget.Amount = in.Amount
	budget.Category = category
	budget.Description = strings.TrimSpace(in.Description)

	updated, err := s.budgets.Update(ctx, budget)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Budget{}, notFound("budget not found")
		}
		return types.Budget{}, err
	}
	return updated, nil
}

func (s *BudgetService) DeleteBudget(ctx context.Context, ownerID, budgetID int) error {
	if _, err := s.ownedBudget(ctx, ownerID, budgetID); err != nil {
		return err
	}
	if err := s.budgets.Delete(ctx, budgetID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return notFound("budget not found")
		}
		return err
	}
	return nil
}

func (s *BudgetService) ownedBudget(ctx context.Context, ownerID, budgetID int) (types.Budget, error) {
	budget, err := s.budgets.GetForUser(ctx, budgetID, ownerID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Budget{}, notFound("budget not found")
		}
		return types.Budget{}, err
	}
	return budget, nil
}

func validAmount(field string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
		return validationError("%s must be a non-negative number", field)
	}
	return nil
}

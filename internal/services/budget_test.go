package services

import (
	"context"
	"math"
	"testing"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBudgetFixture() (*BudgetService, *fakeCities, *fakeBudgets) {
	trips := newFakeTrips(types.Trip{ID: 3, UserID: 1}, types.Trip{ID: 4, UserID: 2})
	cities := &fakeCities{
		activities: map[int]types.Activity{
			5: {ID: 5, Name: "Colosseum", Cost: 18},
			6: {ID: 6, Name: "Louvre", Cost: 22},
		},
		linked: map[int][]int{5: {1}, 6: {2}},
	}
	budgets := newFakeBudgets(trips)
	return NewBudgetService(cities, trips, budgets), cities, budgets
}

func TestUpdateActivityCost(t *testing.T) {
	service, cities, _ := newBudgetFixture()

	activity, err := service.UpdateActivityCost(context.Background(), 1, 5, 25.5)
	require.NoError(t, err)
	assert.Equal(t, 25.5, activity.Cost)
	assert.Equal(t, 25.5, cities.activities[5].Cost)
}

func TestUpdateActivityCostRejects(t *testing.T) {
	service, cities, _ := newBudgetFixture()
	ctx := context.Background()

	for _, cost := range []float64{-1, math.NaN(), math.Inf(1)} {
		_, err := service.UpdateActivityCost(ctx, 1, 5, cost)
		assert.ErrorIs(t, err, ErrValidation)
	}

	_, err := service.UpdateActivityCost(ctx, 1, 0, 10)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.UpdateActivityCost(ctx, 1, 77, 10)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = service.UpdateActivityCost(ctx, 1, 6, 10)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.Equal(t, 22.0, cities.activities[6].Cost)
}

func TestBudgetLifecycle(t *testing.T) {
	service, _, budgets := newBudgetFixture()
	ctx := context.Background()

	created, err := service.CreateBudget(ctx, 1, 3, BudgetInput{Amount: 500, Category: " lodging "})
	require.NoError(t, err)
	assert.Equal(t, "lodging", created.Category)

	listed, err := service.ListBudgets(ctx, 1, 3)
	require.NoError(t, err)
	assert.Len(t, listed, 1)

	updated, err := service.UpdateBudget(ctx, 1, created.ID, BudgetInput{Amount: 450, Category: "lodging", Description: "hostel"})
	require.NoError(t, err)
	assert.Equal(t, 450.0, updated.Amount)
	assert.Equal(t, "hostel", budgets.byID[created.ID].Description)

	require.NoError(t, service.DeleteBudget(ctx, 1, created.ID))
	assert.Empty(t, budgets.byID)
}

func TestBudgetsAreOwnerScoped(t *testing.T) {
	service, _, budgets := newBudgetFixture()
	ctx := context.Background()
	budgets.byID[9] = types.Budget{ID: 9, TripID: 4, Amount: 100, Category: "food"}

	_, err := service.CreateBudget(ctx, 1, 4, BudgetInput{Amount: 1, Category: "food"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = service.ListBudgets(ctx, 1, 4)
	assert.ErrorIs(t, err, store.ErrNotFound)

	_, err = service.UpdateBudget(ctx, 1, 9, BudgetInput{Amount: 1, Category: "food"})
	assert.ErrorIs(t, err, store.ErrNotFound)

	assert.ErrorIs(t, service.DeleteBudget(ctx, 1, 9), store.ErrNotFound)
	assert.Contains(t, budgets.byID, 9)
}

func TestBudgetValidation(t *testing.T) {
	service, _, _ := newBudgetFixture()
	ctx := context.Background()

	_, err := service.CreateBudget(ctx, 1, 3, BudgetInput{Amount: 10})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = service.CreateBudget(ctx, 1, 3, BudgetInput{Amount: -10, Category: "food"})
	assert.ErrorIs(t, err, ErrValidation)
}

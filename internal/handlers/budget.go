package handlers

import (
	"context"
	"net/http"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// BudgetService is the money API: activity costs and trip budget lines.
type BudgetService interface {
	UpdateActivityCost(ctx context.Context, callerID, activityID int, cost float64) (types.Activity, error)
	ListBudgets(ctx context.Context, ownerID, tripID int) ([]types.Budget, error)
	CreateBudget(ctx context.Context, ownerID, tripID int, in services.BudgetInput) (types.Budget, error)
	UpdateBudget(ctx context.Context, ownerID, budgetID int, in services.BudgetInput) (types.Budget, error)
	DeleteBudget(ctx context.Context, ownerID, budgetID int) error
}

type BudgetHandler struct {
	budgets BudgetService
}

func NewBudgetHandler(budgets BudgetService) *BudgetHandler {
	return &BudgetHandler{budgets: budgets}
}

// TripBudgetRouter registers the budget routes nested under /trips.
func TripBudgetRouter(r chi.Router, budgets BudgetService) {
	handler := NewBudgetHandler(budgets)

	r.Get("/{tripID}/budgets", handler.ListBudgets)
	r.Post("/{tripID}/budgets", handler.CreateBudget)
}

// ActivityRouter registers the activity cost route.
func ActivityRouter(r chi.Router, budgets BudgetService) {
	handler := NewBudgetHandler(budgets)

	r.Post("/cost", handler.UpdateActivityCost)
}

// BudgetRouter registers the routes addressing a budget line directly.
func BudgetRouter(r chi.Router, budgets BudgetService) {
	handler := NewBudgetHandler(budgets)

	r.Put("/{budgetID}", handler.UpdateBudget)
	r.Delete("/{budgetID}", handler.DeleteBudget)
}

func (h *BudgetHandler) UpdateActivityCost(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req ActivityCostRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	activity, err := h.budgets.UpdateActivityCost(r.Context(), userID, req.ActivityID, *req.Cost)
	if err != nil {
		writeServiceError(w, err, "failed to update activity cost")
		return
	}

	writeJSON(w, http.StatusOK, ActivityCostResponse{
		Success:  true,
		Message:  "activity cost updated",
		Activity: activity,
	})
}

func (h *BudgetHandler) ListBudgets(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	budgets, err := h.budgets.ListBudgets(r.Context(), userID, tripID)
	if err != nil {
		writeServiceError(w, err, "failed to list budgets")
		return
	}

	writeJSON(w, http.StatusOK, BudgetListResponse{Success: true, Budgets: budgets})
}

func (h *BudgetHandler) CreateBudget(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	var req BudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := h.budgets.CreateBudget(r.Context(), userID, tripID, req.input())
	if err != nil {
		writeServiceError(w, err, "failed to create budget")
		return
	}

	writeJSON(w, http.StatusCreated, BudgetResponse{Success: true, Budget: budget})
}

func (h *BudgetHandler) UpdateBudget(w http.ResponseWriter, r *http.Request) {
	userID, budgetID, ok := budgetRequest(w, r)
	if !ok {
		return
	}

	var req BudgetRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	budget, err := h.budgets.UpdateBudget(r.Context(), userID, budgetID, req.input())
	if err != nil {
		writeServiceError(w, err, "failed to update budget")
		return
	}

	writeJSON(w, http.StatusOK, BudgetResponse{Success: true, Budget: budget})
}

func (h *BudgetHandler) DeleteBudget(w http.ResponseWriter, r *http.Request) {
	userID, budgetID, ok := budgetRequest(w, r)
	if !ok {
		return
	}

	if err := h.budgets.DeleteBudget(r.Context(), userID, budgetID); err != nil {
		writeServiceError(w, err, "failed to delete budget")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "budget deleted"})
}

func budgetRequest(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}
	budgetID, err := parseIDParam(r, "budgetID", "budget id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return userID, budgetID, true
}

// ActivityCostRequest keeps Cost as a pointer so a missing cost is told apart
// from an explicit zero.
type ActivityCostRequest struct {
	ActivityID int      `json:"activityId" validate:"required,gt=0"`
	Cost       *float64 `json:"cost" validate:"required"`
}

type BudgetRequest struct {
	Amount      *float64 `json:"amount" validate:"required"`
	Category    string   `json:"category" validate:"required"`
	Description string   `json:"description"`
}

func (r BudgetRequest) input() services.BudgetInput {
	return services.BudgetInput{
		Amount:      *r.Amount,
		Category:    r.Category,
		Description: r.Description,
	}
}

type ActivityCostResponse struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Activity types.Activity `json:"activity"`
}

type BudgetResponse struct {
	Success bool         `json:"success"`
	Budget  types.Budget `json:"budget"`
}

type BudgetListResponse struct {
	Success bool           `json:"success"`
	Budgets []types.Budget `json:"budgets"`
}

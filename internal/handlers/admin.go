package handlers

import (
	"context"
	"net/http"

	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

type AdminService interface {
	ListUsers(ctx context.Context, offset, limit int) ([]types.User, int, error)
	Stats(ctx context.Context) (types.AdminStats, error)
}

type AdminHandler struct {
	admin AdminService
}

func NewAdminHandler(admin AdminService) *AdminHandler {
	return &AdminHandler{admin: admin}
}

// AdminRouter registers the dashboard routes. The caller installs the auth
// and admin middleware on r.
func AdminRouter(r chi.Router, admin AdminService) {
	handler := NewAdminHandler(admin)

	r.Get("/users", handler.ListUsers)
	r.Get("/stats", handler.Stats)
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	page, limit, offset, err := parsePagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, total, err := h.admin.ListUsers(r.Context(), offset, limit)
	if err != nil {
		writeServiceError(w, err, "failed to list users")
		return
	}

	writeJSON(w, http.StatusOK, UserListResponse{
		Success: true,
		Items:   items,
		Page:    page,
		Limit:   limit,
		Total:   total,
	})
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeServiceError(w, err, "failed to load stats")
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{Success: true, Stats: stats})
}

// UserListResponse is the paginated list response payload.
type UserListResponse struct {
	Success bool         `json:"success"`
	Items   []types.User `json:"items"`
	Page    int          `json:"page"`
	Limit   int          `json:"limit"`
	Total   int          `json:"total"`
}

type StatsResponse struct {
	Success bool             `json:"success"`
	Stats   types.AdminStats `json:"stats"`
}

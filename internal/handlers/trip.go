package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// TripService is the trip API used by the trip routes.
type TripService interface {
	Create(ctx context.Context, ownerID int, in services.TripInput) (types.Trip, error)
	List(ctx context.Context, ownerID int) ([]types.Trip, error)
	Get(ctx context.Context, ownerID, tripID int) (types.Trip, error)
	Update(ctx context.Context, ownerID, tripID int, in services.TripUpdate) (types.Trip, error)
	Delete(ctx context.Context, ownerID, tripID int) error
	Itinerary(ctx context.Context, ownerID, tripID int) ([]types.StopActivity, error)
	DeleteItineraryItem(ctx context.Context, ownerID, tripID int, ref services.ItemRef) (types.StopActivity, error)
}

// Planner generates itineraries.
type Planner interface {
	PlanWithAI(ctx context.Context, ownerID, tripID int, userPrompt string) (types.Trip, error)
}

// TripHandler provides HTTP handlers for trips and their itineraries.
type TripHandler struct {
	trips   TripService
	planner Planner
}

func NewTripHandler(trips TripService, planner Planner) *TripHandler {
	return &TripHandler{trips: trips, planner: planner}
}

// TripRouter registers trip routes. Every route requires authentication,
// which the caller installs on r.
func TripRouter(r chi.Router, trips TripService, planner Planner) {
	handler := NewTripHandler(trips, planner)

	r.Post("/create", handler.CreateTrip)
	r.Get("/view", handler.ListTrips)
	r.Post("/planai/{tripID}", handler.PlanTrip)
	r.Get("/{tripID}", handler.GetTrip)
	r.Put("/{tripID}", handler.UpdateTrip)
	r.Delete("/{tripID}", handler.DeleteTrip)
	r.Get("/{tripID}/itinerary", handler.GetItinerary)
	r.Delete("/{tripID}/itinerary", handler.DeleteItineraryItem)
	r.Delete("/{tripID}/itinerary/{itemID}", handler.DeleteItineraryItem)
}

func (h *TripHandler) CreateTrip(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req CreateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.trips.Create(r.Context(), userID, services.TripInput{
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Description: req.Description,
		CoverPhoto:  req.CoverPhoto,
	})
	if err != nil {
		writeServiceError(w, err, "failed to create trip")
		return
	}

	writeJSON(w, http.StatusCreated, CreateTripResponse{
		Success: true,
		Message: "trip created",
		TripID:  trip.ID,
		Trip:    trip,
	})
}

func (h *TripHandler) ListTrips(w http.ResponseWriter, r *http.Request) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	trips, err := h.trips.List(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err, "failed to list trips")
		return
	}

	writeJSON(w, http.StatusOK, TripListResponse{Success: true, Trips: trips})
}

func (h *TripHandler) GetTrip(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	trip, err := h.trips.Get(r.Context(), userID, tripID)
	if err != nil {
		writeServiceError(w, err, "failed to fetch trip")
		return
	}

	writeJSON(w, http.StatusOK, TripResponse{Success: true, Trip: trip})
}

func (h *TripHandler) UpdateTrip(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	var req UpdateTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.trips.Update(r.Context(), userID, tripID, services.TripUpdate{
		Name:        req.Name,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Description: req.Description,
		CoverPhoto:  req.CoverPhoto,
	})
	if err != nil {
		writeServiceError(w, err, "failed to update trip")
		return
	}

	writeJSON(w, http.StatusOK, TripResponse{Success: true, Trip: trip})
}

func (h *TripHandler) DeleteTrip(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	if err := h.trips.Delete(r.Context(), userID, tripID); err != nil {
		writeServiceError(w, err, "failed to delete trip")
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Success: true, Message: "trip deleted"})
}

func (h *TripHandler) PlanTrip(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	var req PlanTripRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	trip, err := h.planner.PlanWithAI(r.Context(), userID, tripID, req.UserPrompt)
	if err != nil {
		writeServiceError(w, err, "failed to plan trip")
		return
	}

	writeJSON(w, http.StatusOK, PlanTripResponse{
		Success: true,
		Message: "trip planned",
		Trip:    trip,
	})
}

func (h *TripHandler) GetItinerary(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	items, err := h.trips.Itinerary(r.Context(), userID, tripID)
	if err != nil {
		writeServiceError(w, err, "failed to load itinerary")
		return
	}

	writeJSON(w, http.StatusOK, ItineraryResponse{Success: true, Items: items})
}

// DeleteItineraryItem removes one entry addressed by the itemID path
// parameter, or by exactly one of the itemId, activityId or index query
// parameters.
func (h *TripHandler) DeleteItineraryItem(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	query := r.URL.Query()
	rawItemID := chi.URLParam(r, "itemID")
	if rawItemID == "" {
		rawItemID = query.Get("itemId")
	}

	var ref services.ItemRef
	for _, param := range []struct {
		raw  string
		dest **int
		name string
	}{
		{rawItemID, &ref.ItemID, "item id"},
		{query.Get("activityId"), &ref.ActivityID, "activity id"},
		{query.Get("index"), &ref.Index, "index"},
	} {
		raw := strings.TrimSpace(param.raw)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid "+param.name)
			return
		}
		*param.dest = &value
	}

	removed, err := h.trips.DeleteItineraryItem(r.Context(), userID, tripID, ref)
	if err != nil {
		writeServiceError(w, err, "failed to delete itinerary item")
		return
	}

	writeJSON(w, http.StatusOK, RemovedItemResponse{Success: true, Removed: removed})
}

// tripRequest resolves the caller and the tripID path parameter, writing the
// error response itself when either is missing.
func tripRequest(w http.ResponseWriter, r *http.Request) (int, int, bool) {
	userID, err := userIDFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return 0, 0, false
	}
	tripID, err := parseIDParam(r, "tripID", "trip id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return 0, 0, false
	}
	return userID, tripID, true
}

type CreateTripRequest struct {
	Name        string `json:"name" validate:"required"`
	StartDate   string `json:"startDate" validate:"required"`
	EndDate     string `json:"endDate" validate:"required"`
	Description string `json:"description"`
	CoverPhoto  string `json:"coverPhoto"`
}

type UpdateTripRequest struct {
	Name        *string `json:"name"`
	StartDate   *string `json:"startDate"`
	EndDate     *string `json:"endDate"`
	Description *string `json:"description"`
	CoverPhoto  *string `json:"coverPhoto"`
}

type PlanTripRequest struct {
	UserPrompt string `json:"userPrompt" validate:"required"`
}

type CreateTripResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	TripID  int        `json:"tripId"`
	Trip    types.Trip `json:"trip"`
}

type TripResponse struct {
	Success bool       `json:"success"`
	Trip    types.Trip `json:"trip"`
}

type PlanTripResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Trip    types.Trip `json:"trip"`
}

type TripListResponse struct {
	Success bool         `json:"success"`
	Trips   []types.Trip `json:"trips"`
}

type ItineraryResponse struct {
	Success bool                 `json:"success"`
	Items   []types.StopActivity `json:"items"`
}

type RemovedItemResponse struct {
	Success bool               `json:"success"`
	Removed types.StopActivity `json:"removed"`
}

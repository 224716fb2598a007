package handlers

import (
	"context"
	"net/http"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/types"
	"github.com/go-chi/chi/v5"
)

// Searcher is the city and activity search API.
type Searcher interface {
	SearchCities(ctx context.Context, query string) ([]types.City, error)
	SearchActivities(ctx context.Context, query string) ([]types.Activity, error)
	FetchLiveActivities(ctx context.Context, cityName string, categories []string) (services.LiveActivities, error)
	SaveSelectedActivities(ctx context.Context, ownerID, tripID int, in services.SaveSelectionInput) (types.City, []types.Activity, error)
}

type SearchHandler struct {
	search Searcher
}

func NewSearchHandler(search Searcher) *SearchHandler {
	return &SearchHandler{search: search}
}

// SearchRouter registers the search routes under /{tripID}. limit, when not
// nil, guards the routes that call the external places provider.
func SearchRouter(r chi.Router, search Searcher, limit func(http.Handler) http.Handler) {
	handler := NewSearchHandler(search)
	external := r
	if limit != nil {
		external = r.With(limit)
	}

	r.Get("/{tripID}/search/cities", handler.SearchCities)
	r.Get("/{tripID}/search/activities", handler.SearchActivities)
	external.Post("/{tripID}/search/api", handler.LiveActivities)
	r.Post("/{tripID}/add-city-with-activities", handler.AddCityWithActivities)
}

func (h *SearchHandler) SearchCities(w http.ResponseWriter, r *http.Request) {
	_, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	results, err := h.search.SearchCities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "failed to search cities")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse[types.City]{Success: true, TripID: tripID, Results: results})
}

func (h *SearchHandler) SearchActivities(w http.ResponseWriter, r *http.Request) {
	_, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	results, err := h.search.SearchActivities(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err, "failed to search activities")
		return
	}

	writeJSON(w, http.StatusOK, SearchResponse[types.Activity]{Success: true, TripID: tripID, Results: results})
}

func (h *SearchHandler) LiveActivities(w http.ResponseWriter, r *http.Request) {
	if _, _, ok := tripRequest(w, r); !ok {
		return
	}

	var req LiveActivitiesRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	live, err := h.search.FetchLiveActivities(r.Context(), req.City, req.Categories)
	if err != nil {
		writeServiceError(w, err, "failed to fetch activities")
		return
	}

	writeJSON(w, http.StatusOK, LiveActivitiesResponse{Success: true, LiveActivities: live})
}

func (h *SearchHandler) AddCityWithActivities(w http.ResponseWriter, r *http.Request) {
	userID, tripID, ok := tripRequest(w, r)
	if !ok {
		return
	}

	var req AddCityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	selected := make([]services.SelectedActivity, 0, len(req.SelectedActivities))
	for _, activity := range req.SelectedActivities {
		selected = append(selected, services.SelectedActivity{
			Name:     activity.Name,
			Category: activity.Category,
			Address:  activity.Address,
			Image:    activity.Image,
		})
	}

	city, activities, err := h.search.SaveSelectedActivities(r.Context(), userID, tripID, services.SaveSelectionInput{
		City: types.CityRef{
			Name:    req.City,
			State:   req.State,
			Country: req.Country,
		},
		Selected: selected,
	})
	if err != nil {
		writeServiceError(w, err, "failed to save activities")
		return
	}

	writeJSON(w, http.StatusCreated, AddCityResponse{
		Success:    true,
		Message:    "city and activities added to trip",
		City:       city,
		Activities: activities,
	})
}

type LiveActivitiesRequest struct {
	City       string   `json:"city" validate:"required"`
	Categories []string `json:"categories"`
}

type SelectedActivityRequest struct {
	Name     string   `json:"name" validate:"required"`
	Category []string `json:"category"`
	Address  string   `json:"address"`
	Image    string   `json:"image"`
}

type AddCityRequest struct {
	City               string                    `json:"city" validate:"required"`
	State              string                    `json:"state"`
	Country            string                    `json:"country"`
	SelectedActivities []SelectedActivityRequest `json:"selectedActivities" validate:"required,min=1,dive"`
}

type SearchResponse[T any] struct {
	Success bool `json:"success"`
	TripID  int  `json:"tripId"`
	Results []T  `json:"results"`
}

type LiveActivitiesResponse struct {
	Success bool `json:"success"`
	services.LiveActivities
}

type AddCityResponse struct {
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	City       types.City       `json:"city"`
	Activities []types.Activity `json:"activities"`
}

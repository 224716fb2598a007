package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
)

const tripNotFoundMessage = "trip not found or access denied"

// TripRepository defines persistence operations for trips.
type TripRepository interface {
	Create(ctx context.Context, trip types.Trip) (types.Trip, error)
	GetForUser(ctx context.Context, id, userID int) (types.Trip, error)
	ListByUser(ctx context.Context, userID int) ([]types.Trip, error)
	ListRecentByUser(ctx context.Context, userID, excludeID, limit int) ([]types.Trip, error)
	Update(ctx context.Context, trip types.Trip) (types.Trip, error)
	Delete(ctx context.Context, id, userID int) error
}

// ItineraryRepository defines persistence operations for stops and the
// activities linked to trips.
type ItineraryRepository interface {
	StopsByTrips(ctx context.Context, tripIDs []int) (map[int][]types.Stop, error)
	StopActivitiesByTrips(ctx context.Context, tripIDs []int) (map[int][]types.StopActivity, error)
	DeleteStopActivity(ctx context.Context, tripID, id int) error
	AddCityWithActivities(ctx context.Context, tripID int, city types.City, activities []types.Activity) (types.City, []types.Activity, error)
	ReplacePlan(ctx context.Context, trip types.Trip, plan []types.PlannedStop) error
}

// BudgetRepository defines persistence operations for budgets and suggestions.
type BudgetRepository interface {
	BudgetsByTrips(ctx context.Context, tripIDs []int) (map[int][]types.Budget, error)
	SuggestionsByTrips(ctx context.Context, tripIDs []int) (map[int][]types.Suggestion, error)
	GetForUser(ctx context.Context, id, userID int) (types.Budget, error)
	Create(ctx context.Context, budget types.Budget) (types.Budget, error)
	Update(ctx context.Context, budget types.Budget) (types.Budget, error)
	Delete(ctx context.Context, id int) error
}

// TripInput is the payload of a manual trip creation.
type TripInput struct {
	Name        string
	StartDate   string
	EndDate     string
	Description string
	CoverPhoto  string
}

// TripUpdate carries the fields to change; nil fields are left untouched.
type TripUpdate struct {
	Name        *string
	StartDate   *string
	EndDate     *string
	Description *string
	CoverPhoto  *string
}

// ItemRef addresses one itinerary entry by exactly one of its entry id, the
// id of the activity it schedules, or its position in the itinerary.
type ItemRef struct {
	ItemID     *int
	ActivityID *int
	Index      *int
}

func (r ItemRef) count() int {
	n := 0
	for _, set := range []bool{r.ItemID != nil, r.ActivityID != nil, r.Index != nil} {
		if set {
			n++
		}
	}
	return n
}

// TripService encapsulates trip use-cases. Every operation is scoped to the
// calling user.
type TripService struct {
	trips     TripRepository
	itinerary ItineraryRepository
	budgets   BudgetRepository
	now       func() time.Time
}

func NewTripService(trips TripRepository, itinerary ItineraryRepository, budgets BudgetRepository) *TripService {
	return &TripService{
		trips:     trips,
		itinerary: itinerary,
		budgets:   budgets,
		now:       time.Now,
	}
}

// Create validates and stores a new trip owned by ownerID.
func (s *TripService) Create(ctx context.Context, ownerID int, in TripInput) (types.Trip, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" || strings.TrimSpace(in.StartDate) == "" || strings.TrimSpace(in.EndDate) == "" {
		return types.Trip{}, validationError("name, startDate and endDate are required")
	}
	start, err := types.ParseDate(in.StartDate)
	if err != nil {
		return types.Trip{}, validationError("startDate must be YYYY-MM-DD")
	}
	end, err := types.ParseDate(in.EndDate)
	if err != nil {
		return types.Trip{}, validationError("endDate must be YYYY-MM-DD")
	}
	if start.Before(types.NewDate(s.now())) {
		return types.Trip{}, validationError("startDate cannot be in the past")
	}
	if end.Before(start) {
		return types.Trip{}, validationError("endDate cannot be before startDate")
	}

	trip, err := s.trips.Create(ctx, types.Trip{
		UserID:      ownerID,
		Name:        name,
		StartDate:   start,
		EndDate:     end,
		Description: strings.TrimSpace(in.Description),
		CoverPhoto:  strings.TrimSpace(in.CoverPhoto),
	})
	if err != nil {
		return types.Trip{}, err
	}
	trip.Status = types.DeriveStatus(s.now(), trip.StartDate, trip.EndDate)
	trip.Stops = []types.Stop{}
	trip.StopActivities = []types.StopActivity{}
	trip.Budgets = []types.Budget{}
	trip.Suggestions = []types.Suggestion{}
	return trip, nil
}

// List returns the owner's trips, newest first, fully hydrated.
func (s *TripService) List(ctx context.Context, ownerID int) ([]types.Trip, error) {
	trips, err := s.trips.ListByUser(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return s.hydrate(ctx, trips)
}

// Get returns one hydrated trip. Absent and foreign trips are
// indistinguishable.
func (s *TripService) Get(ctx context.Context, ownerID, tripID int) (types.Trip, error) {
	trip, err := s.owned(ctx, ownerID, tripID)
	if err != nil {
		return types.Trip{}, err
	}
	hydrated, err := s.hydrate(ctx, []types.Trip{trip})
	if err != nil {
		return types.Trip{}, err
	}
	return hydrated[0], nil
}

func (s *TripService) Update(ctx context.Context, ownerID, tripID int, in TripUpdate) (types.Trip, error) {
	trip, err := s.owned(ctx, ownerID, tripID)
	if err != nil {
		return types.Trip{}, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return types.Trip{}, validationError("name cannot be empty")
		}
		trip.Name = name
	}
	if in.StartDate != nil {
		start, err := types.ParseDate(*in.StartDate)
		if err != nil {
			return types.Trip{}, validationError("startDate must be YYYY-MM-DD")
		}
		trip.StartDate = start
	}
	if in.EndDate != nil {
		end, err := types.ParseDate(*in.EndDate)
		if err != nil {
			return types.Trip{}, validationError("endDate must be YYYY-MM-DD")
		}
		trip.EndDate = end
	}
	if trip.EndDate.Before(trip.StartDate) {
		return types.Trip{}, validationError("endDate cannot be before startDate")
	}
	if in.Description != nil {
		trip.Description = strings.TrimSpace(*in.Description)
	}
	if in.CoverPhoto != nil {
		trip.CoverPhoto = strings.TrimSpace(*in.CoverPhoto)
	}

	if _, err := s.trips.Update(ctx, trip); err != nil {
		return types.Trip{}, ownershipError(err)
	}
	return s.Get(ctx, ownerID, tripID)
}

func (s *TripService) Delete(ctx context.Context, ownerID, tripID int) error {
	if err := s.trips.Delete(ctx, tripID, ownerID); err != nil {
		return ownershipError(err)
	}
	return nil
}

// Itinerary returns the trip's stop activities in itinerary order.
func (s *TripService) Itinerary(ctx context.Context, ownerID, tripID int) ([]types.StopActivity, error) {
	if _, err := s.owned(ctx, ownerID, tripID); err != nil {
		return nil, err
	}
	byTrip, err := s.itinerary.StopActivitiesByTrips(ctx, []int{tripID})
	if err != nil {
		return nil, err
	}
	items := byTrip[tripID]
	if items == nil {
		items = []types.StopActivity{}
	}
	return items, nil
}

// DeleteItineraryItem removes exactly one itinerary entry and returns it.
func (s *TripService) DeleteItineraryItem(ctx context.Context, ownerID, tripID int, ref ItemRef) (types.StopActivity, error) {
	if n := ref.count(); n == 0 {
		return types.StopActivity{}, validationError("itemId, activityId or index is required")
	} else if n > 1 {
		return types.StopActivity{}, validationError("only one of itemId, activityId or index may be given")
	}

	items, err := s.Itinerary(ctx, ownerID, tripID)
	if err != nil {
		return types.StopActivity{}, err
	}

	target, ok := resolveItineraryItem(items, ref)
	if !ok {
		return types.StopActivity{}, notFound("itinerary item not found")
	}

	if err := s.itinerary.DeleteStopActivity(ctx, tripID, target.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.StopActivity{}, notFound("itinerary item not found")
		}
		return types.StopActivity{}, err
	}
	return target, nil
}

// resolveItineraryItem finds the entry addressed by ref. Entry ids and
// activity ids come from different sequences and are never compared with
// each other, so repeating a delete by entry id cannot hit another entry.
func resolveItineraryItem(items []types.StopActivity, ref ItemRef) (types.StopActivity, bool) {
	switch {
	case ref.Index != nil:
		index := *ref.Index
		if index < 0 || index >= len(items) {
			return types.StopActivity{}, false
		}
		return items[index], true
	case ref.ItemID != nil:
		for _, item := range items {
			if item.ID == *ref.ItemID {
				return item, true
			}
		}
	case ref.ActivityID != nil:
		for _, item := range items {
			if item.ActivityID == *ref.ActivityID {
				return item, true
			}
		}
	}
	return types.StopActivity{}, false
}

func (s *TripService) owned(ctx context.Context, ownerID, tripID int) (types.Trip, error) {
	trip, err := s.trips.GetForUser(ctx, tripID, ownerID)
	if err != nil {
		return types.Trip{}, ownershipError(err)
	}
	return trip, nil
}

// ownershipError turns a failed owner-scoped trip lookup into the not found
// error shared by every trip route.
func ownershipError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound(tripNotFoundMessage)
	}
	return err
}

// hydrate attaches stops, stop activities, budgets, suggestions and the
// derived status to each trip using one query per relation.
func (s *TripService) hydrate(ctx context.Context, trips []types.Trip) ([]types.Trip, error) {
	if len(trips) == 0 {
		return []types.Trip{}, nil
	}
	ids := make([]int, len(trips))
	for i, trip := range trips {
		ids[i] = trip.ID
	}

	stops, err := s.itinerary.StopsByTrips(ctx, ids)
	if err != nil {
		return nil, err
	}
	stopActivities, err := s.itinerary.StopActivitiesByTrips(ctx, ids)
	if err != nil {
		return nil, err
	}
	budgets, err := s.budgets.BudgetsByTrips(ctx, ids)
	if err != nil {
		return nil, err
	}
	suggestions, err := s.budgets.SuggestionsByTrips(ctx, ids)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range trips {
		trip := &trips[i]
		trip.Status = types.DeriveStatus(now, trip.StartDate, trip.EndDate)
		trip.Stops = orEmpty(stops[trip.ID])
		trip.StopActivities = orEmpty(stopActivities[trip.ID])
		trip.Budgets = orEmpty(budgets[trip.ID])
		trip.Suggestions = orEmpty(suggestions[trip.ID])
	}
	return trips, nil
}

func orEmpty[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

package services

import (
	"context"
	"errors"
	"strings"

	"github.com/globaltrotters/apiserver/internal/places"
	"github.com/globaltrotters/apiserver/types"
)

const (
	searchResultLimit   = 10
	defaultActivityType = "tourism"
	defaultDuration     = 60
)

// CityRepository defines lookups over cities and activities.
type CityRepository interface {
	SearchCities(ctx context.Context, prefix string, limit int) ([]types.City, error)
	SearchActivities(ctx context.Context, prefix string, limit int) ([]types.Activity, error)
	GetActivity(ctx context.Context, id int) (types.Activity, error)
	ActivityLinkedToUser(ctx context.Context, activityID, userID int) (bool, error)
	UpdateActivityCost(ctx context.Context, id int, cost float64) (types.Activity, error)
}

// PlacesClient resolves cities to coordinates and finds points of interest
// around them.
type PlacesClient interface {
	Geocode(ctx context.Context, text string) (types.Coordinates, error)
	Places(ctx context.Context, center types.Coordinates, categories []string) ([]types.Place, error)
}

// LiveActivities is the result of a live places lookup.
type LiveActivities struct {
	City       string        `json:"city"`
	Activities []types.Place `json:"activities"`
	Count      int           `json:"count"`
}

// SelectedActivity is a live place the user chose to keep.
type SelectedActivity struct {
	Name     string
	Category []string
	Address  string
	Image    string
}

type SaveSelectionInput struct {
	City     types.CityRef
	Selected []SelectedActivity
}

// SearchService covers local prefix search, live lookups through the places
// provider, and saving chosen places onto a trip.
type SearchService struct {
	cities    CityRepository
	trips     TripRepository
	itinerary ItineraryRepository
	places    PlacesClient
}

func NewSearchService(cities CityRepository, trips TripRepository, itinerary ItineraryRepository, placesClient PlacesClient) *SearchService {
	return &SearchService{
		cities:    cities,
		trips:     trips,
		itinerary: itinerary,
		places:    placesClient,
	}
}

// SearchCities returns up to 10 cities whose name starts with query. An empty
// query yields an empty result.
func (s *SearchService) SearchCities(ctx context.Context, query string) ([]types.City, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.City{}, nil
	}
	return s.cities.SearchCities(ctx, query, searchResultLimit)
}

// SearchActivities returns up to 10 activities whose name starts with query.
func (s *SearchService) SearchActivities(ctx context.Context, query string) ([]types.Activity, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []types.Activity{}, nil
	}
	return s.cities.SearchActivities(ctx, query, searchResultLimit)
}

// FetchLiveActivities geocodes cityName and lists points of interest around it.
func (s *SearchService) FetchLiveActivities(ctx context.Context, cityName string, categories []string) (LiveActivities, error) {
	cityName = strings.TrimSpace(cityName)
	if cityName == "" {
		return LiveActivities{}, validationError("city is required")
	}
	if s.places == nil {
		return LiveActivities{}, &Error{Kind: ErrUnavailable, Message: "places lookup is not configured"}
	}

	center, err := s.places.Geocode(ctx, cityName)
	if err != nil {
		if errors.Is(err, places.ErrNoMatch) {
			return LiveActivities{}, notFound("city not found")
		}
		return LiveActivities{}, upstream("failed to geocode city", err)
	}

	found, err := s.places.Places(ctx, center, categories)
	if err != nil {
		return LiveActivities{}, upstream("failed to fetch activities", err)
	}
	if len(found) == 0 {
		return LiveActivities{}, notFound("no activities found for this city")
	}

	return LiveActivities{
		City:       cityName,
		Activities: found,
		Count:      len(found),
	}, nil
}

// SaveSelectedActivities stores the chosen places as activities of the city
// and links them to the trip. Repeating the call does not create duplicates.
func (s *SearchService) SaveSelectedActivities(ctx context.Context, ownerID, tripID int, in SaveSelectionInput) (types.City, []types.Activity, error) {
	ref := types.CityRef{
		Name:    strings.TrimSpace(in.City.Name),
		State:   strings.TrimSpace(in.City.State),
		Country: strings.TrimSpace(in.City.Country),
	}
	if ref.Name == "" {
		return types.City{}, nil, validationError("city is required")
	}
	if len(in.Selected) == 0 {
		return types.City{}, nil, validationError("select at least one activity")
	}

	activities := make([]types.Activity, 0, len(in.Selected))
	for _, selected := range in.Selected {
		name := strings.TrimSpace(selected.Name)
		if name == "" {
			return types.City{}, nil, validationError("every selected activity needs a name")
		}
		activityType := defaultActivityType
		if len(selected.Category) > 0 && strings.TrimSpace(selected.Category[0]) != "" {
			activityType = strings.TrimSpace(selected.Category[0])
		}
		activities = append(activities, types.Activity{
			Name:            name,
			Type:            activityType,
			Cost:            0,
			DurationMinutes: defaultDuration,
			Description:     strings.TrimSpace(selected.Address),
			ImageURL:        strings.TrimSpace(selected.Image),
		})
	}

	if _, err := s.trips.GetForUser(ctx, tripID, ownerID); err != nil {
		return types.City{}, nil, ownershipError(err)
	}

	city, saved, err := s.itinerary.AddCityWithActivities(ctx, tripID, types.City{
		Name:    ref.Name,
		State:   ref.State,
		Country: ref.Country,
	}, activities)
	if err != nil {
		return types.City{}, nil, ownershipError(err)
	}
	return city, saved, nil
}

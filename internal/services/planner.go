package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
)

const pastTripsInPrompt = 5

// TextGenerator produces a completion for a prompt.
type TextGenerator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Geocoder resolves free text to coordinates.
type Geocoder interface {
	Geocode(ctx context.Context, text string) (types.Coordinates, error)
}

// PlannerService replaces a trip's itinerary with one produced by a
// generative model.
type PlannerService struct {
	users     UserRepository
	trips     TripRepository
	itinerary ItineraryRepository
	loader    *TripService
	model     TextGenerator
	geocoder  Geocoder
	publisher Publisher
	now       func() time.Time
}

func NewPlannerService(
	users UserRepository,
	trips TripRepository,
	itinerary ItineraryRepository,
	loader *TripService,
	model TextGenerator,
	geocoder Geocoder,
	publisher Publisher,
) *PlannerService {
	return &PlannerService{
		users:     users,
		trips:     trips,
		itinerary: itinerary,
		loader:    loader,
		model:     model,
		geocoder:  geocoder,
		publisher: publisher,
		now:       time.Now,
	}
}

// PlanWithAI asks the model for an itinerary matching userPrompt and
// atomically replaces the trip's stops and activities with it. Nothing is
// merged: itinerary content missing from the model output is discarded.
func (s *PlannerService) PlanWithAI(ctx context.Context, ownerID, tripID int, userPrompt string) (types.Trip, error) {
	userPrompt = strings.TrimSpace(userPrompt)
	if userPrompt == "" {
		return types.Trip{}, validationError("userPrompt is required")
	}
	if s.model == nil {
		return types.Trip{}, &Error{Kind: ErrUnavailable, Message: "AI planning is not configured"}
	}

	trip, err := s.trips.GetForUser(ctx, tripID, ownerID)
	if err != nil {
		return types.Trip{}, ownershipError(err)
	}
	user, err := s.users.GetByID(ctx, ownerID)
	if err != nil {
		return types.Trip{}, err
	}
	pastTrips, err := s.trips.ListRecentByUser(ctx, ownerID, tripID, pastTripsInPrompt)
	if err != nil {
		return types.Trip{}, err
	}

	raw, err := s.model.Generate(ctx, buildPlanPrompt(user, pastTrips, trip, userPrompt))
	if err != nil {
		return types.Trip{}, upstream("failed to generate trip plan", err)
	}
	plan, err := parsePlanResponse(raw)
	if err != nil {
		return types.Trip{}, upstream("AI returned an invalid trip plan", err)
	}

	stops := s.plannedStops(ctx, plan.Trip.Stops)
	if len(stops) == 0 {
		return types.Trip{}, upstream("AI returned an invalid trip plan", errors.New("no usable stops"))
	}

	updated := mergePlannedFields(trip, *plan.Trip)
	if err := s.itinerary.ReplacePlan(ctx, updated, stops); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return types.Trip{}, notFound(tripNotFoundMessage)
		}
		return types.Trip{}, err
	}

	result, err := s.loader.Get(ctx, ownerID, tripID)
	if err != nil {
		return types.Trip{}, err
	}

	cities := make([]string, 0, len(stops))
	for _, stop := range stops {
		cities = append(cities, stop.City.Name)
	}
	publishEvent(ctx, s.publisher, types.ChannelTripPlanned, types.TripPlannedEvent{
		TripID:     result.ID,
		UserID:     ownerID,
		Email:      user.Email,
		FirstName:  user.FirstName,
		TripName:   result.Name,
		StartDate:  result.StartDate.String(),
		EndDate:    result.EndDate.String(),
		Cities:     cities,
		OccurredAt: s.now().UTC(),
	})
	return result, nil
}

// plannedStops converts the model's stops, geocoding each city. A failed
// lookup leaves the stop at (0, 0) instead of aborting the plan.
func (s *PlannerService) plannedStops(ctx context.Context, proposed []planStop) []types.PlannedStop {
	stops := make([]types.PlannedStop, 0, len(proposed))
	for _, p := range proposed {
		ref := types.CityRef{
			Name:    strings.TrimSpace(p.CityName),
			State:   strings.TrimSpace(p.StateName),
			Country: strings.TrimSpace(p.CountryName),
		}
		if ref.Name == "" {
			continue
		}

		var coords types.Coordinates
		if s.geocoder != nil {
			found, err := s.geocoder.Geocode(ctx, joinNonEmpty(", ", ref.Name, ref.State, ref.Country))
			if err != nil {
				log.Printf("planner: geocode %q failed, using 0,0: %v", ref.Name, err)
			} else {
				coords = found
			}
		}

		activities := make([]types.PlannedActivity, 0, len(p.Activities))
		for _, a := range p.Activities {
			name := strings.TrimSpace(a.Name)
			if name == "" {
				continue
			}
			activityType := strings.TrimSpace(a.Type)
			if activityType == "" {
				activityType = defaultActivityType
			}
			cost := float64(a.Cost)
			if cost < 0 {
				cost = 0
			}
			duration := int(a.DurationMinutes)
			if duration <= 0 {
				duration = defaultDuration
			}
			activities = append(activities, types.PlannedActivity{
				Name:            name,
				Type:            activityType,
				Cost:            cost,
				DurationMinutes: duration,
				Description:     strings.TrimSpace(a.Description),
			})
		}

		stops = append(stops, types.PlannedStop{
			City:        ref,
			Coordinates: coords,
			Activities:  activities,
		})
	}
	return stops
}

// mergePlannedFields applies the model's top-level trip fields, keeping the
// existing value wherever the model's is absent or unusable.
func mergePlannedFields(trip types.Trip, planned planTrip) types.Trip {
	if name := strings.TrimSpace(planned.Name); name != "" {
		trip.Name = name
	}
	if description := strings.TrimSpace(planned.Description); description != "" {
		trip.Description = description
	}

	start, end := trip.StartDate, trip.EndDate
	if parsed, err := types.ParseDate(planned.StartDate); err == nil {
		start = parsed
	}
	if parsed, err := types.ParseDate(planned.EndDate); err == nil {
		end = parsed
	}
	if !end.Before(start) {
		trip.StartDate, trip.EndDate = start, end
	}
	return trip
}

type planResponse struct {
	Success *bool     `json:"success"`
	Trip    *planTrip `json:"trip"`
}

type planTrip struct {
	Name        string     `json:"name"`
	StartDate   string     `json:"startDate"`
	EndDate     string     `json:"endDate"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Stops       []planStop `json:"stops"`
}

type planStop struct {
	StopIndex   lenientNumber  `json:"stopIndex"`
	CityName    string         `json:"cityName"`
	StateName   string         `json:"stateName"`
	CountryName string         `json:"countryName"`
	Activities  []planActivity `json:"activities"`
}

type planActivity struct {
	Name            string        `json:"name"`
	Type            string        `json:"type"`
	Cost            lenientNumber `json:"cost"`
	DurationMinutes lenientNumber `json:"durationMinutes"`
	Description     string        `json:"description"`
}

// lenientNumber accepts JSON numbers and numeric strings; anything else
// decodes to zero.
type lenientNumber float64

func (n *lenientNumber) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimLeft(strings.TrimSpace(s), "$€£")
		value, err := strconv.ParseFloat(s, 64)
		if err != nil {
			*n = 0
			return nil
		}
		*n = lenientNumber(value)
		return nil
	}
	var value float64
	if err := json.Unmarshal(data, &value); err != nil {
		*n = 0
		return nil
	}
	*n = lenientNumber(value)
	return nil
}

// parsePlanResponse strips markdown fences from raw and decodes it. The
// result must report success and carry a trip with a stops array.
func parsePlanResponse(raw string) (planResponse, error) {
	cleaned := stripCodeFences(raw)
	var resp planResponse
	if err := json.Unmarshal([]byte(cleaned), &resp); err != nil {
		return planResponse{}, fmt.Errorf("decode plan: %w", err)
	}
	if resp.Success == nil || !*resp.Success {
		return planResponse{}, errors.New("plan does not report success")
	}
	if resp.Trip == nil {
		return planResponse{}, errors.New("plan has no trip")
	}
	if resp.Trip.Stops == nil {
		return planResponse{}, errors.New("plan trip has no stops")
	}
	return resp, nil
}

func stripCodeFences(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```") {
		if newline := strings.IndexByte(text, '\n'); newline >= 0 {
			text = text[newline+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
		text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	}
	text = strings.TrimSpace(text)
	// Some completions wrap the object in prose; keep the outermost braces.
	if start, end := strings.IndexByte(text, '{'), strings.LastIndexByte(text, '}'); start >= 0 && end > start {
		text = text[start : end+1]
	}
	return text
}

func buildPlanPrompt(user types.User, pastTrips []types.Trip, trip types.Trip, userPrompt string) string {
	var b strings.Builder
	b.WriteString("You are a travel planner. Plan a trip for the traveller below.\n\n")

	fmt.Fprintf(&b, "Traveller: %s %s, age %d, %s, from %s, %s.\n",
		user.FirstName, user.LastName, user.Age, user.Gender, user.City, user.Country)
	if user.Description != "" {
		fmt.Fprintf(&b, "About them: %s\n", user.Description)
	}

	if len(pastTrips) > 0 {
		b.WriteString("\nRecent trips:\n")
		for _, past := range pastTrips {
			fmt.Fprintf(&b, "- %s (%s to %s)", past.Name, past.StartDate, past.EndDate)
			if past.Description != "" {
				fmt.Fprintf(&b, ": %s", past.Description)
			}
			b.WriteString("\n")
		}
	}

	fmt.Fprintf(&b, "\nCurrent trip: %q from %s to %s.", trip.Name, trip.StartDate, trip.EndDate)
	if trip.Description != "" {
		fmt.Fprintf(&b, " Notes: %s", trip.Description)
	}
	fmt.Fprintf(&b, "\n\nRequest: %s\n\n", userPrompt)

	b.WriteString(`Respond with JSON only, no markdown and no commentary, matching exactly:
{
  "success": true,
  "trip": {
    "name": "string",
    "startDate": "YYYY-MM-DD",
    "endDate": "YYYY-MM-DD",
    "description": "string",
    "status": "UPCOMING",
    "stops": [
      {
        "stopIndex": 0,
        "cityName": "string",
        "stateName": "string",
        "countryName": "string",
        "activities": [
          {"name": "string", "type": "string", "cost": 0, "durationMinutes": 60, "description": "string"}
        ]
      }
    ]
  }
}
`)
	return b.String()
}

func joinNonEmpty(sep string, parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, sep)
}

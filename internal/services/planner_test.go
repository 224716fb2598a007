package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const romePlan = "```json\n" + `{
  "success": true,
  "trip": {
    "name": "Roman Holiday",
    "startDate": "2030-06-02",
    "endDate": "2030-06-08",
    "description": "Ancient sites",
    "status": "COMPLETED",
    "stops": [
      {
        "stopIndex": "0",
        "cityName": "Rome",
        "stateName": "",
        "countryName": "Italy",
        "activities": [
          {"name": "Colosseum", "type": "culture", "cost": "$18", "durationMinutes": 120, "description": "Arena"},
          {"name": "", "type": "food"},
          {"name": "Trastevere", "cost": -5, "durationMinutes": "a while"}
        ]
      },
      {"cityName": "  ", "countryName": "Italy"},
      {"cityName": "Florence", "countryName": "Italy", "activities": []}
    ]
  }
}` + "\n```"

type plannerFixture struct {
	tripFixture
	users     *fakeUsers
	model     *fakeModel
	geocoder  *fakeGeocoder
	publisher *fakePublisher
	planner   *PlannerService
}

func newPlannerFixture(t *testing.T, response string) plannerFixture {
	t.Helper()
	f := newTripFixture(
		types.Trip{ID: 3, UserID: 1, Name: "Italy", StartDate: mustDate(t, "2030-06-01"), EndDate: mustDate(t, "2030-06-10")},
		types.Trip{ID: 2, UserID: 1, Name: "Paris", StartDate: mustDate(t, "2029-03-01"), EndDate: mustDate(t, "2029-03-04")},
	)
	users := newFakeUsers(types.User{ID: 1, FirstName: "Ada", Email: "ada@example.com"})
	model := &fakeModel{response: response}
	geocoder := &fakeGeocoder{coords: map[string]types.Coordinates{
		"Rome, Italy": {Lat: 41.9, Lon: 12.5},
	}}
	publisher := &fakePublisher{}
	planner := NewPlannerService(users, f.trips, f.itinerary, f.service, model, geocoder, publisher)
	planner.now = func() time.Time { return fixedNow }
	return plannerFixture{
		tripFixture: f,
		users:       users,
		model:       model,
		geocoder:    geocoder,
		publisher:   publisher,
		planner:     planner,
	}
}

func TestPlanWithAIReplacesItinerary(t *testing.T) {
	f := newPlannerFixture(t, romePlan)
	f.itinerary.items[3] = []types.StopActivity{{ID: 99, TripID: 3}}

	trip, err := f.planner.PlanWithAI(context.Background(), 1, 3, "ancient history please")
	require.NoError(t, err)

	assert.Equal(t, "Roman Holiday", trip.Name)
	assert.Equal(t, "2030-06-02", trip.StartDate.String())
	assert.Equal(t, types.TripUpcoming, trip.Status)
	require.Len(t, trip.Stops, 2)
	assert.Equal(t, "Rome", trip.Stops[0].City.Name)
	assert.Equal(t, "Florence", trip.Stops[1].City.Name)

	require.Len(t, f.itinerary.replaced, 2)
	rome := f.itinerary.replaced[0]
	assert.Equal(t, types.Coordinates{Lat: 41.9, Lon: 12.5}, rome.Coordinates)
	require.Len(t, rome.Activities, 2)
	assert.Equal(t, 18.0, rome.Activities[0].Cost)
	assert.Equal(t, 120, rome.Activities[0].DurationMinutes)
	assert.Equal(t, "Trastevere", rome.Activities[1].Name)
	assert.Equal(t, defaultActivityType, rome.Activities[1].Type)
	assert.Equal(t, 0.0, rome.Activities[1].Cost)
	assert.Equal(t, defaultDuration, rome.Activities[1].DurationMinutes)
	assert.Equal(t, types.Coordinates{}, f.itinerary.replaced[1].Coordinates)

	require.Len(t, trip.StopActivities, 2)
	assert.NotEqual(t, 99, trip.StopActivities[0].ID)

	require.Len(t, f.model.prompts, 1)
	assert.Contains(t, f.model.prompts[0], "ancient history please")
	assert.Contains(t, f.model.prompts[0], "Paris")

	require.Equal(t, []string{types.ChannelTripPlanned}, f.publisher.channels())
	var event types.TripPlannedEvent
	require.NoError(t, json.Unmarshal(f.publisher.events[0].data, &event))
	assert.Equal(t, []string{"Rome", "Florence"}, event.Cities)
	assert.Equal(t, "ada@example.com", event.Email)
}

func TestPlanWithAIErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("empty prompt", func(t *testing.T) {
		f := newPlannerFixture(t, romePlan)
		_, err := f.planner.PlanWithAI(ctx, 1, 3, "  ")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("no model configured", func(t *testing.T) {
		f := newPlannerFixture(t, romePlan)
		f.planner.model = nil
		_, err := f.planner.PlanWithAI(ctx, 1, 3, "go")
		assert.ErrorIs(t, err, ErrUnavailable)
	})

	t.Run("foreign trip", func(t *testing.T) {
		f := newPlannerFixture(t, romePlan)
		_, err := f.planner.PlanWithAI(ctx, 2, 3, "go")
		assert.ErrorIs(t, err, store.ErrNotFound)
		assert.Empty(t, f.model.prompts)
	})

	t.Run("model failure", func(t *testing.T) {
		f := newPlannerFixture(t, "")
		f.model.err = errors.New("quota exceeded")
		_, err := f.planner.PlanWithAI(ctx, 1, 3, "go")
		assert.ErrorIs(t, err, ErrUpstream)
	})

	t.Run("unparseable output", func(t *testing.T) {
		f := newPlannerFixture(t, "Sorry, I cannot help with that.")
		_, err := f.planner.PlanWithAI(ctx, 1, 3, "go")
		assert.ErrorIs(t, err, ErrUpstream)
		assert.Nil(t, f.itinerary.replaced)
	})

	t.Run("no usable stops", func(t *testing.T) {
		f := newPlannerFixture(t, `{"success": true, "trip": {"stops": [{"cityName": ""}]}}`)
		_, err := f.planner.PlanWithAI(ctx, 1, 3, "go")
		assert.ErrorIs(t, err, ErrUpstream)
	})
}

func TestPlanWithAIToleratesGeocoderFailure(t *testing.T) {
	f := newPlannerFixture(t, romePlan)
	f.geocoder.err = errors.New("timeout")

	_, err := f.planner.PlanWithAI(context.Background(), 1, 3, "go")
	require.NoError(t, err)
	for _, stop := range f.itinerary.replaced {
		assert.Equal(t, types.Coordinates{}, stop.Coordinates)
	}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"```json\n{\"a\":1}\n```":             `{"a":1}`,
		"```\n{\"a\":1}```":                   `{"a":1}`,
		"  {\"a\":1}  ":                       `{"a":1}`,
		"Here is your plan: {\"a\":1} Enjoy!": `{"a":1}`,
	}
	for in, want := range cases {
		assert.Equal(t, want, stripCodeFences(in), in)
	}

	trailing := "{\"success\":true,\"trip\":{}}\nHope this helps!"
	assert.Equal(t, `{"success":true,"trip":{}}`, stripCodeFences(trailing))
}

func TestLenientNumber(t *testing.T) {
	var got struct {
		A lenientNumber `json:"a"`
		B lenientNumber `json:"b"`
		C lenientNumber `json:"c"`
		D lenientNumber `json:"d"`
		E lenientNumber `json:"e"`
	}
	err := json.Unmarshal([]byte(`{"a": 12.5, "b": "40", "c": "€7.25", "d": "free", "e": null}`), &got)
	require.NoError(t, err)
	assert.Equal(t, lenientNumber(12.5), got.A)
	assert.Equal(t, lenientNumber(40), got.B)
	assert.Equal(t, lenientNumber(7.25), got.C)
	assert.Equal(t, lenientNumber(0), got.D)
	assert.Equal(t, lenientNumber(0), got.E)
}

func TestParsePlanResponse(t *testing.T) {
	_, err := parsePlanResponse(`{"success": false, "trip": {"stops": []}}`)
	assert.Error(t, err)

	_, err = parsePlanResponse(`{"trip": {"stops": []}}`)
	assert.Error(t, err)

	_, err = parsePlanResponse(`{"success": true}`)
	assert.Error(t, err)

	_, err = parsePlanResponse(`{"success": true, "trip": {"name": "x"}}`)
	assert.Error(t, err)

	resp, err := parsePlanResponse(romePlan)
	require.NoError(t, err)
	assert.Len(t, resp.Trip.Stops, 3)
}

func TestMergePlannedFields(t *testing.T) {
	trip := types.Trip{
		Name:        "Italy",
		Description: "keep",
		StartDate:   mustDate(t, "2030-06-01"),
		EndDate:     mustDate(t, "2030-06-10"),
	}

	merged := mergePlannedFields(trip, planTrip{Name: " ", StartDate: "June 2nd", EndDate: "2030-06-12"})
	assert.Equal(t, "Italy", merged.Name)
	assert.Equal(t, "keep", merged.Description)
	assert.Equal(t, "2030-06-01", merged.StartDate.String())
	assert.Equal(t, "2030-06-12", merged.EndDate.String())

	merged = mergePlannedFields(trip, planTrip{StartDate: "2030-07-01", EndDate: "2030-06-02"})
	assert.Equal(t, "2030-06-01", merged.StartDate.String())
	assert.Equal(t, "2030-06-10", merged.EndDate.String())
}

package services

import (
	"bytes"
	"context"
	"io"
	"sort"
	"sync"

	"github.com/globaltrotters/apiserver/internal/storage"
	"github.com/globaltrotters/apiserver/internal/store"
	"github.com/globaltrotters/apiserver/types"
)

type fakeUsers struct {
	byID      map[int]types.User
	nextID    int
	createErr error
	lastLimit int
}

func newFakeUsers(users ...types.User) *fakeUsers {
	f := &fakeUsers{byID: map[int]types.User{}, nextID: 1}
	for _, user := range users {
		f.byID[user.ID] = user
		if user.ID >= f.nextID {
			f.nextID = user.ID + 1
		}
	}
	return f
}

func (f *fakeUsers) GetByID(_ context.Context, id int) (types.User, error) {
	user, ok := f.byID[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (types.User, error) {
	for _, user := range f.byID {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (f *fakeUsers) Create(_ context.Context, user types.User) (types.User, error) {
	if f.createErr != nil {
		return types.User{}, f.createErr
	}
	user.ID = f.nextID
	f.nextID++
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) UpdateProfile(_ context.Context, user types.User) (types.User, error) {
	if _, ok := f.byID[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	f.byID[user.ID] = user
	return user, nil
}

func (f *fakeUsers) SetPhotoKey(_ context.Context, id int, key *string) error {
	user, ok := f.byID[id]
	if !ok {
		return store.ErrNotFound
	}
	user.PhotoKey = key
	f.byID[id] = user
	return nil
}

func (f *fakeUsers) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	f.lastLimit = limit
	ids := make([]int, 0, len(f.byID))
	for id := range f.byID {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	users := []types.User{}
	for i := offset; i < len(ids) && len(users) < limit; i++ {
		users = append(users, f.byID[ids[i]])
	}
	return users, len(ids), nil
}

type fakeTrips struct {
	byID   map[int]types.Trip
	nextID int
}

func newFakeTrips(trips ...types.Trip) *fakeTrips {
	f := &fakeTrips{byID: map[int]types.Trip{}, nextID: 1}
	for _, trip := range trips {
		f.byID[trip.ID] = trip
		if trip.ID >= f.nextID {
			f.nextID = trip.ID + 1
		}
	}
	return f
}

func (f *fakeTrips) Create(_ context.Context, trip types.Trip) (types.Trip, error) {
	trip.ID = f.nextID
	f.nextID++
	f.byID[trip.ID] = trip
	return trip, nil
}

func (f *fakeTrips) GetForUser(_ context.Context, id, userID int) (types.Trip, error) {
	trip, ok := f.byID[id]
	if !ok || trip.UserID != userID {
		return types.Trip{}, store.ErrNotFound
	}
	return trip, nil
}

func (f *fakeTrips) ListByUser(_ context.Context, userID int) ([]types.Trip, error) {
	trips := []types.Trip{}
	for _, trip := range f.byID {
		if trip.UserID == userID {
			trips = append(trips, trip)
		}
	}
	sort.Slice(trips, func(i, j int) bool { return trips[i].ID > trips[j].ID })
	return trips, nil
}

func (f *fakeTrips) ListRecentByUser(ctx context.Context, userID, excludeID, limit int) ([]types.Trip, error) {
	all, _ := f.ListByUser(ctx, userID)
	trips := []types.Trip{}
	for _, trip := range all {
		if trip.ID != excludeID && len(trips) < limit {
			trips = append(trips, trip)
		}
	}
	return trips, nil
}

func (f *fakeTrips) Update(_ context.Context, trip types.Trip) (types.Trip, error) {
	existing, ok := f.byID[trip.ID]
	if !ok || existing.UserID != trip.UserID {
		return types.Trip{}, store.ErrNotFound
	}
	f.byID[trip.ID] = trip
	return trip, nil
}

func (f *fakeTrips) Delete(_ context.Context, id, userID int) error {
	trip, ok := f.byID[id]
	if !ok || trip.UserID != userID {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeItinerary struct {
	trips    *fakeTrips
	items    map[int][]types.StopActivity
	stops    map[int][]types.Stop
	replaced []types.PlannedStop
	added    []types.Activity
}

func newFakeItinerary(trips *fakeTrips) *fakeItinerary {
	return &fakeItinerary{
		trips: trips,
		items: map[int][]types.StopActivity{},
		stops: map[int][]types.Stop{},
	}
}

func (f *fakeItinerary) StopsByTrips(_ context.Context, tripIDs []int) (map[int][]types.Stop, error) {
	result := map[int][]types.Stop{}
	for _, id := range tripIDs {
		if stops, ok := f.stops[id]; ok {
			result[id] = stops
		}
	}
	return result, nil
}

func (f *fakeItinerary) StopActivitiesByTrips(_ context.Context, tripIDs []int) (map[int][]types.StopActivity, error) {
	result := map[int][]types.StopActivity{}
	for _, id := range tripIDs {
		if items, ok := f.items[id]; ok {
			result[id] = append([]types.StopActivity(nil), items...)
		}
	}
	return result, nil
}

func (f *fakeItinerary) DeleteStopActivity(_ context.Context, tripID, id int) error {
	items := f.items[tripID]
	for i, item := range items {
		if item.ID == id {
			f.items[tripID] = append(items[:i:i], items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (f *fakeItinerary) AddCityWithActivities(_ context.Context, _ int, city types.City, activities []types.Activity) (types.City, []types.Activity, error) {
	city.ID = 1
	for i := range activities {
		activities[i].ID = i + 1
		activities[i].CityID = city.ID
	}
	f.added = activities
	return city, activities, nil
}

func (f *fakeItinerary) ReplacePlan(_ context.Context, trip types.Trip, plan []types.PlannedStop) error {
	existing, ok := f.trips.byID[trip.ID]
	if !ok || existing.UserID != trip.UserID {
		return store.ErrNotFound
	}
	f.trips.byID[trip.ID] = trip
	f.replaced = plan

	stops := make([]types.Stop, 0, len(plan))
	items := []types.StopActivity{}
	for i, stop := range plan {
		cityID := i + 1
		stops = append(stops, types.Stop{TripID: trip.ID, CityID: cityID, StopIndex: i, City: types.City{ID: cityID, Name: stop.City.Name}})
		for _, activity := range stop.Activities {
			items = append(items, types.StopActivity{
				ID:        len(items) + 1,
				TripID:    trip.ID,
				CityID:    cityID,
				StopIndex: i,
				Activity:  types.Activity{Name: activity.Name, Cost: activity.Cost},
			})
		}
	}
	f.stops[trip.ID] = stops
	f.items[trip.ID] = items
	return nil
}

type fakeBudgets struct {
	trips  *fakeTrips
	byID   map[int]types.Budget
	nextID int
}

func newFakeBudgets(trips *fakeTrips) *fakeBudgets {
	return &fakeBudgets{trips: trips, byID: map[int]types.Budget{}, nextID: 1}
}

func (f *fakeBudgets) BudgetsByTrips(_ context.Context, tripIDs []int) (map[int][]types.Budget, error) {
	result := map[int][]types.Budget{}
	for _, budget := range f.byID {
		for _, id := range tripIDs {
			if budget.TripID == id {
				result[id] = append(result[id], budget)
			}
		}
	}
	return result, nil
}

func (f *fakeBudgets) SuggestionsByTrips(context.Context, []int) (map[int][]types.Suggestion, error) {
	return map[int][]types.Suggestion{}, nil
}

func (f *fakeBudgets) GetForUser(_ context.Context, id, userID int) (types.Budget, error) {
	budget, ok := f.byID[id]
	if !ok {
		return types.Budget{}, store.ErrNotFound
	}
	trip, ok := f.trips.byID[budget.TripID]
	if !ok || trip.UserID != userID {
		return types.Budget{}, store.ErrNotFound
	}
	return budget, nil
}

func (f *fakeBudgets) Create(_ context.Context, budget types.Budget) (types.Budget, error) {
	budget.ID = f.nextID
	f.nextID++
	f.byID[budget.ID] = budget
	return budget, nil
}

func (f *fakeBudgets) Update(_ context.Context, budget types.Budget) (types.Budget, error) {
	if _, ok := f.byID[budget.ID]; !ok {
		return types.Budget{}, store.ErrNotFound
	}
	f.byID[budget.ID] = budget
	return budget, nil
}

func (f *fakeBudgets) Delete(_ context.Context, id int) error {
	if _, ok := f.byID[id]; !ok {
		return store.ErrNotFound
	}
	delete(f.byID, id)
	return nil
}

type fakeCities struct {
	activities map[int]types.Activity
	// linked maps activity id to the users whose trips include it.
	linked map[int][]int
}

func (f *fakeCities) SearchCities(context.Context, string, int) ([]types.City, error) {
	return []types.City{}, nil
}

func (f *fakeCities) SearchActivities(context.Context, string, int) ([]types.Activity, error) {
	return []types.Activity{}, nil
}

func (f *fakeCities) GetActivity(_ context.Context, id int) (types.Activity, error) {
	activity, ok := f.activities[id]
	if !ok {
		return types.Activity{}, store.ErrNotFound
	}
	return activity, nil
}

func (f *fakeCities) ActivityLinkedToUser(_ context.Context, activityID, userID int) (bool, error) {
	for _, id := range f.linked[activityID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCities) UpdateActivityCost(_ context.Context, id int, cost float64) (types.Activity, error) {
	activity, ok := f.activities[id]
	if !ok {
		return types.Activity{}, store.ErrNotFound
	}
	activity.Cost = cost
	f.activities[id] = activity
	return activity, nil
}

type fakePosts struct {
	posts []types.CommunityPost
}

func (f *fakePosts) Create(_ context.Context, post types.CommunityPost) (types.CommunityPost, error) {
	post.ID = len(f.posts) + 1
	f.posts = append(f.posts, post)
	return post, nil
}

func (f *fakePosts) List(context.Context) ([]types.CommunityPost, error) {
	return f.posts, nil
}

type publishedEvent struct {
	channel string
	data    []byte
}

type fakePublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, channel string, data []byte, _ map[string]string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.events = append(f.events, publishedEvent{channel: channel, data: data})
	return "1", nil
}

func (f *fakePublisher) channels() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	channels := make([]string, 0, len(f.events))
	for _, event := range f.events {
		channels = append(channels, event.channel)
	}
	return channels
}

type fakeModel struct {
	response string
	err      error
	prompts  []string
}

func (f *fakeModel) Generate(_ context.Context, prompt string) (string, error) {
	f.prompts = append(f.prompts, prompt)
	return f.response, f.err
}

type fakeGeocoder struct {
	coords map[string]types.Coordinates
	err    error
}

func (f *fakeGeocoder) Geocode(_ context.Context, text string) (types.Coordinates, error) {
	if f.err != nil {
		return types.Coordinates{}, f.err
	}
	return f.coords[text], nil
}

type fakePlaces struct {
	center    types.Coordinates
	geoErr    error
	places    []types.Place
	placesErr error
}

func (f *fakePlaces) Geocode(context.Context, string) (types.Coordinates, error) {
	return f.center, f.geoErr
}

func (f *fakePlaces) Places(context.Context, types.Coordinates, []string) ([]types.Place, error) {
	return f.places, f.placesErr
}

type memPhotos struct {
	objects      map[string][]byte
	contentTypes map[string]string
}

func newMemPhotos() *memPhotos {
	return &memPhotos{objects: map[string][]byte{}, contentTypes: map[string]string{}}
}

func (m *memPhotos) Put(_ context.Context, key string, r io.Reader, _ int64, contentType string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.objects[key] = data
	m.contentTypes[key] = contentType
	return nil
}

func (m *memPhotos) Get(_ context.Context, key string) (io.ReadCloser, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, storage.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (m *memPhotos) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	delete(m.contentTypes, key)
	return nil
}

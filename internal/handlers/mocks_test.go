package handlers

import (
	"context"
	"io"

	"github.com/globaltrotters/apiserver/internal/services"
	"github.com/globaltrotters/apiserver/types"
	"github.com/stretchr/testify/mock"
)

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Signup(ctx context.Context, in services.SignupInput) (types.User, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockAuthService) SignupAdmin(ctx context.Context, in services.AdminSignupInput) (types.User, string, error) {
	args := m.Called(ctx, in)
	return args.Get(0).(types.User), args.String(1), args.Error(2)
}

func (m *MockAuthService) Login(ctx context.Context, email, password string) (types.User, string, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(types.User), args.String(1), args.Error(2)
}

func (m *MockAuthService) LoginAdmin(ctx context.Context, email, password string) (types.User, string, error) {
	args := m.Called(ctx, email, password)
	return args.Get(0).(types.User), args.String(1), args.Error(2)
}

type MockTokenParser struct {
	mock.Mock
}

func (m *MockTokenParser) ParseToken(token string) (services.Claims, error) {
	args := m.Called(token)
	return args.Get(0).(services.Claims), args.Error(1)
}

type MockUserLookup struct {
	mock.Mock
}

func (m *MockUserLookup) GetByID(ctx context.Context, id int) (types.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(types.User), args.Error(1)
}

type MockTripService struct {
	mock.Mock
}

func (m *MockTripService) Create(ctx context.Context, ownerID int, in services.TripInput) (types.Trip, error) {
	args := m.Called(ctx, ownerID, in)
	return args.Get(0).(types.Trip), args.Error(1)
}

func (m *MockTripService) List(ctx context.Context, ownerID int) ([]types.Trip, error) {
	args := m.Called(ctx, ownerID)
	return args.Get(0).([]types.Trip), args.Error(1)
}

func (m *MockTripService) Get(ctx context.Context, ownerID, tripID int) (types.Trip, error) {
	args := m.Called(ctx, ownerID, tripID)
	return args.Get(0).(types.Trip), args.Error(1)
}

func (m *MockTripService) Update(ctx context.Context, ownerID, tripID int, in services.TripUpdate) (types.Trip, error) {
	args := m.Called(ctx, ownerID, tripID, in)
	return args.Get(0).(types.Trip), args.Error(1)
}

func (m *MockTripService) Delete(ctx context.Context, ownerID, tripID int) error {
	args := m.Called(ctx, ownerID, tripID)
	return args.Error(0)
}

func (m *MockTripService) Itinerary(ctx context.Context, ownerID, tripID int) ([]types.StopActivity, error) {
	args := m.Called(ctx, ownerID, tripID)
	return args.Get(0).([]types.StopActivity), args.Error(1)
}

func (m *MockTripService) DeleteItineraryItem(ctx context.Context, ownerID, tripID int, ref services.ItemRef) (types.StopActivity, error) {
	args := m.Called(ctx, ownerID, tripID, ref)
	return args.Get(0).(types.StopActivity), args.Error(1)
}

type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) PlanWithAI(ctx context.Context, ownerID, tripID int, userPrompt string) (types.Trip, error) {
	args := m.Called(ctx, ownerID, tripID, userPrompt)
	return args.Get(0).(types.Trip), args.Error(1)
}

type MockBudgetService struct {
	mock.Mock
}

func (m *MockBudgetService) UpdateActivityCost(ctx context.Context, callerID, activityID int, cost float64) (types.Activity, error) {
	args := m.Called(ctx, callerID, activityID, cost)
	return args.Get(0).(types.Activity), args.Error(1)
}

func (m *MockBudgetService) ListBudgets(ctx context.Context, ownerID, tripID int) ([]types.Budget, error) {
	args := m.Called(ctx, ownerID, tripID)
	return args.Get(0).([]types.Budget), args.Error(1)
}

func (m *MockBudgetService) CreateBudget(ctx context.Context, ownerID, tripID int, in services.BudgetInput) (types.Budget, error) {
	args := m.Called(ctx, ownerID, tripID, in)
	return args.Get(0).(types.Budget), args.Error(1)
}

func (m *MockBudgetService) UpdateBudget(ctx context.Context, ownerID, budgetID int, in services.BudgetInput) (types.Budget, error) {
	args := m.Called(ctx, ownerID, budgetID, in)
	return args.Get(0).(types.Budget), args.Error(1)
}

func (m *MockBudgetService) DeleteBudget(ctx context.Context, ownerID, budgetID int) error {
	args := m.Called(ctx, ownerID, budgetID)
	return args.Error(0)
}

type MockProfileService struct {
	mock.Mock
}

func (m *MockProfileService) GetProfile(ctx context.Context, userID int) (types.User, []types.Trip, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Get(1).([]types.Trip), args.Error(2)
}

func (m *MockProfileService) UpdateProfile(ctx context.Context, userID int, in services.ProfileUpdate) (types.User, error) {
	args := m.Called(ctx, userID, in)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockProfileService) UploadPhoto(ctx context.Context, userID int, r io.Reader, contentType string) (types.User, error) {
	args := m.Called(ctx, userID, r, contentType)
	return args.Get(0).(types.User), args.Error(1)
}

func (m *MockProfileService) Photo(ctx context.Context, userID int) (io.ReadCloser, string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.String(1), args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.String(1), args.Error(2)
}

func (m *MockProfileService) DeletePhoto(ctx context.Context, userID int) (types.User, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(types.User), args.Error(1)
}

type MockCommunityService struct {
	mock.Mock
}

func (m *MockCommunityService) CreatePost(ctx context.Context, authorID int, in services.PostInput) (types.CommunityPost, error) {
	args := m.Called(ctx, authorID, in)
	return args.Get(0).(types.CommunityPost), args.Error(1)
}

func (m *MockCommunityService) ListPosts(ctx context.Context) ([]types.CommunityPost, error) {
	args := m.Called(ctx)
	return args.Get(0).([]types.CommunityPost), args.Error(1)
}

type MockAdminService struct {
	mock.Mock
}

func (m *MockAdminService) ListUsers(ctx context.Context, offset, limit int) ([]types.User, int, error) {
	args := m.Called(ctx, offset, limit)
	return args.Get(0).([]types.User), args.Int(1), args.Error(2)
}

func (m *MockAdminService) Stats(ctx context.Context) (types.AdminStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(types.AdminStats), args.Error(1)
}

type MockSearcher struct {
	mock.Mock
}

func (m *MockSearcher) SearchCities(ctx context.Context, query string) ([]types.City, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]types.City), args.Error(1)
}

func (m *MockSearcher) SearchActivities(ctx context.Context, query string) ([]types.Activity, error) {
	args := m.Called(ctx, query)
	return args.Get(0).([]types.Activity), args.Error(1)
}

func (m *MockSearcher) FetchLiveActivities(ctx context.Context, cityName string, categories []string) (services.LiveActivities, error) {
	args := m.Called(ctx, cityName, categories)
	return args.Get(0).(services.LiveActivities), args.Error(1)
}

func (m *MockSearcher) SaveSelectedActivities(ctx context.Context, ownerID, tripID int, in services.SaveSelectionInput) (types.City, []types.Activity, error) {
	args := m.Called(ctx, ownerID, tripID, in)
	return args.Get(0).(types.City), args.Get(1).([]types.Activity), args.Error(2)
}

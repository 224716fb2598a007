package types

import "time"

// TripStatus is the lifecycle phase of a trip relative to today.
type TripStatus string

const (
	TripUpcoming  TripStatus = "UPCOMING"
	TripOngoing   TripStatus = "ONGOING"
	TripCompleted TripStatus = "COMPLETED"
)

// DeriveStatus computes a trip's status from the current time and its dates.
// Dates are compared as calendar days: a trip is ongoing on both its first and
// its last day.
func DeriveStatus(now time.Time, start, end Date) TripStatus {
	today := NewDate(now)
	switch {
	case !start.IsZero() && today.Before(start):
		return TripUpcoming
	case !end.IsZero() && today.After(end):
		return TripCompleted
	default:
		return TripOngoing
	}
}

// Trip is the root aggregate for a user's travel plan.
type Trip struct {
	ID          int       `json:"id" db:"id"`
	UserID      int       `json:"userId" db:"user_id"`
	Name        string    `json:"name" db:"name"`
	StartDate   Date      `json:"startDate" db:"start_date"`
	EndDate     Date      `json:"endDate" db:"end_date"`
	Description string    `json:"description" db:"description"`
	CoverPhoto  string    `json:"coverPhoto" db:"cover_photo"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`

	// Status is derived on every read and never stored.
	Status TripStatus `json:"status" db:"-"`

	Stops          []Stop         `json:"stops" db:"-"`
	StopActivities []StopActivity `json:"stopActivities" db:"-"`
	Budgets        []Budget       `json:"budgets" db:"-"`
	Suggestions    []Suggestion   `json:"suggestions" db:"-"`
}

// Stop places a city on a trip at a given position.
type Stop struct {
	ID        int  `json:"id" db:"id"`
	TripID    int  `json:"tripId" db:"trip_id"`
	CityID    int  `json:"cityId" db:"city_id"`
	StopIndex int  `json:"stopIndex" db:"stop_index"`
	City      City `json:"city" db:"-"`
}

// StopActivity links an activity in a city to a trip. It is the unit of the
// itinerary.
type StopActivity struct {
	ID         int      `json:"id" db:"id"`
	TripID     int      `json:"tripId" db:"trip_id"`
	CityID     int      `json:"cityId" db:"city_id"`
	ActivityID int      `json:"activityId" db:"activity_id"`
	Date       *Date    `json:"date,omitempty" db:"date"`
	Time       *string  `json:"time,omitempty" db:"time"`
	Notes      string   `json:"notes" db:"notes"`
	// StopIndex is the position of the owning stop, used to order the itinerary.
	StopIndex int      `json:"stopIndex" db:"stop_index"`
	City      City     `json:"city" db:"-"`
	Activity  Activity `json:"activity" db:"-"`
}

// Budget is a planned spend on a trip.
type Budget struct {
	ID          int       `json:"id" db:"id"`
	TripID      int       `json:"tripId" db:"trip_id"`
	Amount      float64   `json:"amount" db:"amount"`
	Category    string    `json:"category" db:"category"`
	Description string    `json:"description" db:"description"`
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}

type Suggestion struct {
	ID        int       `json:"id" db:"id"`
	TripID    int       `json:"tripId" db:"trip_id"`
	Content   string    `json:"content" db:"content"`
	Type      string    `json:"type" db:"type"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// TripSummary is the trip excerpt attached to community posts.
type TripSummary struct {
	ID        int    `json:"id" db:"id"`
	Name      string `json:"name" db:"name"`
	StartDate Date   `json:"startDate" db:"start_date"`
	EndDate   Date   `json:"endDate" db:"end_date"`
}

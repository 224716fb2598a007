package types

import "time"

// Channels on which domain events are published.
const (
	ChannelUserRegistered = "user.registered"
	ChannelTripPlanned    = "trip.planned"
	ChannelPostCreated    = "community.post.created"
)

type UserRegisteredEvent struct {
	UserID     int       `json:"userId"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	Role       string    `json:"role"`
	OccurredAt time.Time `json:"occurredAt"`
}

type TripPlannedEvent struct {
	TripID     int       `json:"tripId"`
	UserID     int       `json:"userId"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	TripName   string    `json:"tripName"`
	StartDate  string    `json:"startDate"`
	EndDate    string    `json:"endDate"`
	Cities     []string  `json:"cities"`
	OccurredAt time.Time `json:"occurredAt"`
}

type PostCreatedEvent struct {
	PostID     int       `json:"postId"`
	AuthorID   int       `json:"authorId"`
	Email      string    `json:"email"`
	FirstName  string    `json:"firstName"`
	TripID     *int      `json:"tripId,omitempty"`
	Title      string    `json:"title"`
	OccurredAt time.Time `json:"occurredAt"`
}

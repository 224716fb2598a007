package types

import "time"

// CommunityPost is a user's public post, optionally sharing one of their trips.
type CommunityPost struct {
	ID        int          `json:"id" db:"id"`
	AuthorID  int          `json:"authorId" db:"author_id"`
	Title     string       `json:"title" db:"title"`
	Content   string       `json:"content" db:"content"`
	TripID    *int         `json:"tripId" db:"trip_id"`
	CreatedAt time.Time    `json:"createdAt" db:"created_at"`
	User      PublicAuthor `json:"user" db:"-"`
	Trip      *TripSummary `json:"trip,omitempty" db:"-"`
}

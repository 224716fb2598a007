package types

import "time"

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User represents an account in the system.
// Admins are users whose Role is RoleAdmin; there is no separate admin identity.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	Age       int    `json:"age" db:"age"`
	Gender    string `json:"gender" db:"gender"`
	City      string `json:"city" db:"city"`
	Country   string `json:"country" db:"country"`

	// Email is the user's login and is unique across accounts.
	Email string `json:"email" db:"email"`

	// Role indicates the user's authorization level ("user" or "admin").
	Role string `json:"role" db:"role"`

	// PasswordHash stores the bcrypt hash of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// Description is free text the user writes about themselves.
	Description string `json:"description" db:"description"`

	// PhotoKey is the object storage key of the profile photo, if any.
	PhotoKey *string `json:"-" db:"profile_photo_key"`

	// PhotoURL is the public path serving the profile photo. It is derived
	// from PhotoKey and not stored.
	PhotoURL string `json:"profilePic,omitempty" db:"-"`

	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// IsAdmin reports whether the user holds the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// PublicAuthor is the subset of a user shown next to community posts.
type PublicAuthor struct {
	ID        int    `json:"id" db:"id"`
	FirstName string `json:"firstName" db:"first_name"`
	LastName  string `json:"lastName" db:"last_name"`
	City      string `json:"city" db:"city"`
	Country   string `json:"country" db:"country"`
}

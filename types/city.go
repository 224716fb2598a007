package types

import "time"

// City is a destination. Cities are deduplicated on (Name, State, Country).
type City struct {
	ID              int        `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	State           string     `json:"state" db:"state"`
	Country         string     `json:"country" db:"country"`
	CostIndex       float64    `json:"costIndex" db:"cost_index"`
	PopularityScore float64    `json:"popularityScore" db:"popularity_score"`
	ImageURL        string     `json:"imageUrl" db:"image_url"`
	Latitude        float64    `json:"latitude" db:"latitude"`
	Longitude       float64    `json:"longitude" db:"longitude"`
	CreatedAt       time.Time  `json:"createdAt" db:"created_at"`
	Activities      []Activity `json:"activities,omitempty" db:"-"`
}

// Activity is something to do in a city. Activities are deduplicated on
// (CityID, Name).
type Activity struct {
	ID              int       `json:"id" db:"id"`
	CityID          int       `json:"cityId" db:"city_id"`
	Name            string    `json:"name" db:"name"`
	Type            string    `json:"type" db:"type"`
	Cost            float64   `json:"cost" db:"cost"`
	DurationMinutes int       `json:"durationMinutes" db:"duration_minutes"`
	Description     string    `json:"description" db:"description"`
	ImageURL        string    `json:"imageUrl" db:"image_url"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	City            *City     `json:"city,omitempty" db:"-"`
}

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Place is a live point of interest returned by the places provider.
type Place struct {
	Name     string   `json:"name"`
	Category []string `json:"category"`
	Address  string   `json:"address"`
	// Coordinates is [lon, lat], the provider's GeoJSON order.
	Coordinates [2]float64 `json:"coordinates"`
	Image       string     `json:"image"`
}

// CityRef identifies a city by its natural key.
type CityRef struct {
	Name    string `json:"name"`
	State   string `json:"state"`
	Country string `json:"country"`
}

package types

// AdminStats aggregates platform-wide counters for the admin dashboard.
type AdminStats struct {
	Users      int         `json:"users" db:"users"`
	Trips      int         `json:"trips" db:"trips"`
	Posts      int         `json:"posts" db:"posts"`
	Cities     int         `json:"cities" db:"cities"`
	Activities int         `json:"activities" db:"activities"`
	TopCities  []CityCount `json:"topCities" db:"-"`
}

// CityCount is a city with the number of trips that stop there.
type CityCount struct {
	CityID  int    `json:"cityId" db:"city_id"`
	Name    string `json:"name" db:"name"`
	Country string `json:"country" db:"country"`
	Stops   int    `json:"stops" db:"stops"`
}

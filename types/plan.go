package types

// PlannedStop is one stop of a generated itinerary. A generated plan replaces
// a trip's stops wholesale.
type PlannedStop struct {
	City        CityRef
	Coordinates Coordinates
	Activities  []PlannedActivity
}

type PlannedActivity struct {
	Name            string
	Type            string
	Cost            float64
	DurationMinutes int
	Description     string
	ImageURL        string
}

package domain

// Facility is a bookable amenity (floodlights, changing rooms, parking and
// the like) that an organization request references by id.
type Facility struct {
	ID   int32  `json:"id"`
	Name string `json:"name"`
}

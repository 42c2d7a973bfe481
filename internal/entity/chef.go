package entity

// Chef is staff metadata attached to a station.
type Chef struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

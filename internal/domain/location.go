package domain

import "time"

const (
	LocationTypeDepot    = "depot"
	LocationTypeHome     = "home"
	LocationTypeOther    = "other"
	LocationTypeCustomer = "customer"
)

// A named place with optional coordinates: depots, vehicle homes and customer service addresses.
type Location struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	AddressLine1 string     `json:"address_line1,omitempty"`
	City         string     `json:"city,omitempty"`
	State        string     `json:"state,omitempty"`
	LocationType string     `json:"location_type,omitempty"`
	Latitude     *float64   `json:"latitude,omitempty"`
	Longitude    *float64   `json:"longitude,omitempty"`
	DeletedAt    *time.Time `json:"deleted_at,omitempty"`
}

// Coordinates returns the location's coordinates when both components are present and valid.
func (l *Location) Coordinates() (Coordinates, bool) {
	if l == nil {
		return Coordinates{}, false
	}
	return CoordinatesFrom(l.Latitude, l.Longitude)
}

// IsBase reports whether a vehicle may start or end a route here.
func (l *Location) IsBase() bool {
	switch l.LocationType {
	case LocationTypeDepot, LocationTypeHome, LocationTypeOther:
		return l.DeletedAt == nil
	}
	return false
}

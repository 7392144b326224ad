package domain

// A provisional group of bookings sent to the routing oracle in one call.
// Batches live only for the duration of one planning invocation.
type Batch struct {
	VehicleID string
	ServiceID string
	Bookings  []*Booking
}

// Caller-supplied or generated share of bookings for one vehicle.
type VehicleAllocation struct {
	VehicleID       string `json:"vehicle_id"`
	BookingCount    int    `json:"booking_count"`
	StartLocationID string `json:"start_location_id,omitempty"`
	EndLocationID   string `json:"end_location_id,omitempty"`
}

// Geographic stop passed to the routing oracle.
// Either Coordinates or PlaceID is set.
type Waypoint struct {
	Coordinates *Coordinates `json:"coordinates,omitempty"`
	PlaceID     string       `json:"place_id,omitempty"`
}

func WaypointAt(c Coordinates) Waypoint {
	return Waypoint{Coordinates: &c}
}

package services

import "route-planning-service/internal/domain"

// Resolve a usable position for a booking.
//
// The linked service location wins over coordinates stored on the booking.
// Each source is used only when both components are present and in range;
// nothing is clamped or defaulted.
func ResolveCoordinates(b *domain.Booking) (domain.Coordinates, bool) {
	if b == nil {
		return domain.Coordinates{}, false
	}
	if c, ok := b.Location.Coordinates(); ok {
		return c, true
	}
	return domain.CoordinatesFrom(b.Latitude, b.Longitude)
}

package services

import "route-planning-service/internal/domain"

type CompatibilityResult struct {
	Compatible   []*domain.Booking
	Incompatible []*domain.Booking
	// Union of service types across available vehicles.
	Supported map[string]struct{}
}

// Split bookings by whether any available vehicle offers their service.
// When serviceFilter is set, a booking must also require exactly that service.
func MatchCompatibility(bookings []*domain.Booking, vehicles []*domain.Vehicle, serviceFilter string) CompatibilityResult {
	res := CompatibilityResult{Supported: make(map[string]struct{})}
	for _, v := range vehicles {
		if !v.IsAvailable() {
			continue
		}
		for _, s := range v.ServiceTypes {
			res.Supported[s] = struct{}{}
		}
	}

	for _, b := range bookings {
		_, ok := res.Supported[b.ServiceID]
		if ok && (serviceFilter == "" || b.ServiceID == serviceFilter) {
			res.Compatible = append(res.Compatible, b)
			continue
		}
		res.Incompatible = append(res.Incompatible, b)
	}
	return res
}

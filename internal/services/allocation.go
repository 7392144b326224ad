package services

import (
	"route-planning-service/internal/domain"

	"go.uber.org/zap"
)

// Even default split of compatible bookings across the vehicles that can serve them.
//
// Only available vehicles offering at least one required service take part.
// min(len(bookings), vehicles*maxStops) bookings are split by floor division and the
// remainder goes one each to the first vehicles in list order.
func DefaultAllocation(bookings []*domain.Booking, vehicles []*domain.Vehicle, maxStops int) []domain.VehicleAllocation {
	required := make(map[string]struct{})
	for _, b := range bookings {
		required[b.ServiceID] = struct{}{}
	}

	eligible := make([]*domain.Vehicle, 0, len(vehicles))
	for _, v := range vehicles {
		if !v.IsAvailable() {
			continue
		}
		for _, s := range v.ServiceTypes {
			if _, ok := required[s]; ok {
				eligible = append(eligible, v)
				break
			}
		}
	}

	if len(eligible) == 0 || len(bookings) == 0 || maxStops <= 0 {
		return []domain.VehicleAllocation{}
	}

	total := min(len(bookings), len(eligible)*maxStops)
	share := total / len(eligible)
	extra := total % len(eligible)

	out := make([]domain.VehicleAllocation, 0, len(eligible))
	for i, v := range eligible {
		n := share
		if i < extra {
			n++
		}
		out = append(out, domain.VehicleAllocation{
			VehicleID:    v.ID,
			BookingCount: min(n, maxStops),
		})
	}
	return out
}

// Log, at debug level, when a caller-supplied allocation does not add up to the booking count.
// Mismatches are tolerated; the allocation is used as given.
func CheckAllocation(allocs []domain.VehicleAllocation, totalBookings int, logger *zap.Logger) bool {
	sum := 0
	for _, a := range allocs {
		sum += a.BookingCount
	}
	if sum != totalBookings {
		logger.Debug("vehicle allocation does not match booking count",
			zap.Int("allocated", sum),
			zap.Int("bookings", totalBookings),
		)
		return false
	}
	return true
}

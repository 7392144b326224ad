package services

import (
	"math"
	"route-planning-service/internal/domain"
)

// Great-circle distance between two points in kilometres.
func HaversineKm(a, b domain.Coordinates) float64 {
	return domain.DistanceKm(a, b)
}

// Split bookings into batches of at most maxPerBatch using greedy centroid growth.
//
// Inputs that already fit are returned as one batch in their original order.
// Otherwise each batch is seeded with the first remaining booking and grown by
// repeatedly taking the remaining booking closest to the batch centroid.
// The result is a heuristic grouping, not an optimal partition.
// Bookings without coordinates never win a distance comparison and fill the last slots.
func ClusterBookings(bookings []*domain.Booking, maxPerBatch int) [][]*domain.Booking {
	if len(bookings) == 0 {
		return nil
	}
	if maxPerBatch <= 0 || len(bookings) <= maxPerBatch {
		return [][]*domain.Booking{append([]*domain.Booking(nil), bookings...)}
	}

	remaining := append([]*domain.Booking(nil), bookings...)
	batches := make([][]*domain.Booking, 0, (len(bookings)+maxPerBatch-1)/maxPerBatch)

	for len(remaining) > 0 {
		batch := []*domain.Booking{remaining[0]}
		remaining = remaining[1:]

		for len(batch) < maxPerBatch && len(remaining) > 0 {
			center, ok := centroid(batch)

			best := 0
			bestDist := math.Inf(1)
			if ok {
				for i, b := range remaining {
					c, has := ResolveCoordinates(b)
					if !has {
						continue
					}
					// Strict comparison keeps the earliest booking on ties.
					if d := HaversineKm(center, c); d < bestDist {
						best = i
						bestDist = d
					}
				}
			}

			batch = append(batch, remaining[best])
			remaining = append(remaining[:best], remaining[best+1:]...)
		}

		batches = append(batches, batch)
	}

	return batches
}

// Mean latitude/longitude of the bookings that resolve to coordinates.
func centroid(bookings []*domain.Booking) (domain.Coordinates, bool) {
	var sumLat, sumLon float64
	n := 0
	for _, b := range bookings {
		c, ok := ResolveCoordinates(b)
		if !ok {
			continue
		}
		sumLat += c.Lat
		sumLon += c.Lon
		n++
	}
	if n == 0 {
		return domain.Coordinates{}, false
	}
	return domain.Coordinates{Lat: sumLat / float64(n), Lon: sumLon / float64(n)}, true
}

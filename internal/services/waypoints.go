package services

import (
	"fmt"
	"route-planning-service/internal/domain"
)

// Inputs that decide how a batch maps onto origin, destination and intermediates.
type WaypointOptions struct {
	// Explicit departure point. Nil means the first booking is the origin.
	Departure *domain.Coordinates
	// Explicit end point distinct from the origin. Forces ReturnToStart off.
	Destination   *domain.Coordinates
	ReturnToStart bool
}

// Forward mapping of a batch plus the bookkeeping needed to invert the oracle's order.
type WaypointPlan struct {
	Origin        domain.Waypoint
	Destination   domain.Waypoint
	Intermediates []domain.Waypoint

	HasCustomDeparture bool
	ReturnToStart      bool

	// Batch positions used as fixed endpoints; -1 when the endpoint is not a booking.
	OriginIndex      int
	DestinationIndex int
	// Batch position of each intermediate, in request order.
	IntermediateIndex []int
}

// Build the oracle waypoints for a batch.
//
// With a custom departure the origin is that point; otherwise the first booking is.
// Returning to start makes the destination equal to the origin. A destination
// override turns every booking not used as origin into an intermediate.
func BuildWaypoints(bookings []*domain.Booking, opts WaypointOptions) (*WaypointPlan, error) {
	if len(bookings) == 0 {
		return nil, fmt.Errorf("build waypoints: batch is empty")
	}

	coords := make([]domain.Coordinates, len(bookings))
	for i, b := range bookings {
		c, ok := ResolveCoordinates(b)
		if !ok {
			return nil, fmt.Errorf("build waypoints: booking %s has no valid coordinates", b.ID)
		}
		coords[i] = c
	}

	plan := &WaypointPlan{
		HasCustomDeparture: opts.Departure != nil,
		ReturnToStart:      opts.ReturnToStart && opts.Destination == nil,
		OriginIndex:        -1,
		DestinationIndex:   -1,
	}

	first := 0
	if plan.HasCustomDeparture {
		plan.Origin = domain.WaypointAt(*opts.Departure)
	} else {
		plan.Origin = domain.WaypointAt(coords[0])
		plan.OriginIndex = 0
		first = 1
	}

	last := len(bookings) // exclusive end of the intermediates range
	switch {
	case opts.Destination != nil:
		plan.Destination = domain.WaypointAt(*opts.Destination)
	case plan.ReturnToStart:
		plan.Destination = plan.Origin
		plan.DestinationIndex = plan.OriginIndex
	default:
		lastIdx := len(bookings) - 1
		plan.Destination = domain.WaypointAt(coords[lastIdx])
		plan.DestinationIndex = lastIdx
		if lastIdx >= first {
			last = lastIdx
		}
	}

	for i := first; i < last; i++ {
		plan.Intermediates = append(plan.Intermediates, domain.WaypointAt(coords[i]))
		plan.IntermediateIndex = append(plan.IntermediateIndex, i)
	}

	return plan, nil
}

// Reconstruct the visiting order of a batch from the oracle's optimized intermediate order.
//
// Fixed origin and destination bookings keep their places around the reordered
// intermediates. Out-of-range or repeated indices are ignored, an empty order keeps
// the request order, and any booking still missing is appended in batch order so
// a short oracle response never drops a stop.
func (p *WaypointPlan) VisitOrder(bookings []*domain.Booking, optimized []int) []*domain.Booking {
	out := make([]*domain.Booking, 0, len(bookings))
	seen := make([]bool, len(bookings))

	add := func(batchIdx int) {
		if batchIdx < 0 || batchIdx >= len(bookings) || seen[batchIdx] {
			return
		}
		seen[batchIdx] = true
		out = append(out, bookings[batchIdx])
	}

	add(p.OriginIndex)

	order := optimized
	if len(order) == 0 {
		order = make([]int, len(p.IntermediateIndex))
		for i := range order {
			order[i] = i
		}
	}
	for _, idx := range order {
		if idx < 0 || idx >= len(p.IntermediateIndex) {
			continue
		}
		add(p.IntermediateIndex[idx])
	}

	add(p.DestinationIndex)

	for i := range bookings {
		add(i)
	}

	return out
}

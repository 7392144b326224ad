package services

import (
	"context"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/obs"

	"go.uber.org/zap"
)

type LocationOption struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	City      string `json:"city,omitempty"`
	State     string `json:"state,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}

// Default allocation entry enriched for display.
type AllocationPreview struct {
	VehicleID          string           `json:"vehicle_id"`
	VehicleName        string           `json:"vehicle_name"`
	BookingCount       int              `json:"booking_count"`
	HomeLocationID     string           `json:"home_location_id,omitempty"`
	HomeLocationName   string           `json:"home_location_name,omitempty"`
	AvailableLocations []LocationOption `json:"available_locations"`
}

type PreviewResult struct {
	Bookings               []*domain.Booking   `json:"bookings"`
	Vehicles               []*domain.Vehicle   `json:"vehicles"`
	DefaultAllocation      []AllocationPreview `json:"default_allocation"`
	UnassignableBookings   []UnassignedBooking `json:"unassignable_bookings"`
	Warnings               []string            `json:"warnings"`
	AvailableBaseLocations []*domain.Location  `json:"available_base_locations"`
}

// Dry run of PlanRoutes: shows the default allocation without calling the oracle or writing anything.
func (p *Planner) PreviewRoutePlan(ctx context.Context, in PlanRoutesInput) (_ *PreviewResult, err error) {
	defer obs.Time(ctx, "planner.PreviewRoutePlan")(&err)

	if err := p.normalizePlanInput(&in); err != nil {
		return nil, err
	}

	pool, err := p.gatherCandidates(ctx, in)
	if err != nil {
		return nil, err
	}

	res := &PreviewResult{
		Bookings:               pool.routable,
		Vehicles:               pool.vehicles,
		DefaultAllocation:      []AllocationPreview{},
		UnassignableBookings:   pool.unassignable,
		Warnings:               pool.warnings,
		AvailableBaseLocations: []*domain.Location{},
	}
	if res.Bookings == nil {
		res.Bookings = []*domain.Booking{}
	}
	if res.Vehicles == nil {
		res.Vehicles = []*domain.Vehicle{}
	}
	if res.UnassignableBookings == nil {
		res.UnassignableBookings = []UnassignedBooking{}
	}
	if res.Warnings == nil {
		res.Warnings = []string{}
	}

	byID := make(map[string]*domain.Vehicle, len(pool.vehicles))
	for _, v := range pool.vehicles {
		byID[v.ID] = v
	}
	for _, a := range DefaultAllocation(pool.routable, pool.vehicles, in.MaxStopsPerRoute) {
		res.DefaultAllocation = append(res.DefaultAllocation, p.describeAllocation(ctx, byID[a.VehicleID], a))
	}

	bases, err := p.locations.FetchBaseLocations(ctx)
	if err != nil {
		p.logger.Warn("failed to fetch base locations", zap.Error(err))
	} else {
		for _, l := range bases {
			if l.IsBase() {
				res.AvailableBaseLocations = append(res.AvailableBaseLocations, l)
			}
		}
	}

	return res, nil
}

func (p *Planner) describeAllocation(ctx context.Context, v *domain.Vehicle, a domain.VehicleAllocation) AllocationPreview {
	out := AllocationPreview{
		VehicleID:          v.ID,
		VehicleName:        v.Name,
		BookingCount:       a.BookingCount,
		AvailableLocations: []LocationOption{},
	}

	out.HomeLocationID = v.PrimaryLocationID()
	if out.HomeLocationID == "" {
		out.HomeLocationID = v.HomeLocationID
	}

	for _, vl := range v.Locations {
		loc := vl.Location
		if loc == nil {
			_, loc = p.locationCoordinates(ctx, vl.LocationID)
		}
		opt := LocationOption{ID: vl.LocationID, IsPrimary: vl.IsPrimary}
		if loc != nil {
			opt.Name, opt.City, opt.State = loc.Name, loc.City, loc.State
		}
		out.AvailableLocations = append(out.AvailableLocations, opt)
		if vl.LocationID == out.HomeLocationID {
			out.HomeLocationName = opt.Name
		}
	}

	if out.HomeLocationID != "" && out.HomeLocationName == "" {
		if _, loc := p.locationCoordinates(ctx, out.HomeLocationID); loc != nil {
			out.HomeLocationName = loc.Name
		}
	}
	return out
}

package repositories

import (
	"context"
	"route-planning-service/internal/domain"
	"route-planning-service/internal/platform/apperr"
	"route-planning-service/internal/ports"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore keeps bookings, vehicles, locations and routes in process memory.
// It implements every store port and is used for local runs and tests.
type MemoryStore struct {
	mu        sync.Mutex
	bookings  map[string]*domain.Booking
	order     []string // booking ids in insertion order
	vehicles  []*domain.Vehicle
	locations map[string]*domain.Location
	routes    map[string]*domain.Route
	now       func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		bookings:  map[string]*domain.Booking{},
		locations: map[string]*domain.Location{},
		routes:    map[string]*domain.Route{},
		now:       time.Now,
	}
}

// AddBookings inserts or replaces bookings, keeping first-insertion order.
func (m *MemoryStore) AddBookings(bookings ...*domain.Booking) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range bookings {
		if _, ok := m.bookings[b.ID]; !ok {
			m.order = append(m.order, b.ID)
		}
		m.bookings[b.ID] = cloneBooking(b)
	}
}

func (m *MemoryStore) AddVehicles(vehicles ...*domain.Vehicle) {
	m.mu.Lock()
	defer m.mu.Unlock()
next:
	for _, v := range vehicles {
		cp := *v
		for i, existing := range m.vehicles {
			if existing.ID == v.ID {
				m.vehicles[i] = &cp
				continue next
			}
		}
		m.vehicles = append(m.vehicles, &cp)
	}
}

func (m *MemoryStore) AddLocations(locations ...*domain.Location) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, l := range locations {
		cp := *l
		m.locations[l.ID] = &cp
	}
}

func cloneBooking(b *domain.Booking) *domain.Booking {
	cp := *b
	if b.StopOrder != nil {
		n := *b.StopOrder
		cp.StopOrder = &n
	}
	return &cp
}

func cloneRoute(r *domain.Route) *domain.Route {
	cp := *r
	cp.StopSequence = append([]string(nil), r.StopSequence...)
	cp.Geometry.Legs = append([]domain.RouteLeg(nil), r.Geometry.Legs...)
	return &cp
}

// withLocation attaches the linked location, mirroring the SQL join.
func (m *MemoryStore) withLocation(b *domain.Booking) *domain.Booking {
	cp := cloneBooking(b)
	if loc, ok := m.locations[b.LocationID]; ok && cp.Location == nil {
		l := *loc
		cp.Location = &l
	}
	return cp
}

func matchesBooking(b *domain.Booking, f ports.BookingFilter, ids map[string]struct{}) bool {
	if b.DeletedAt != nil {
		return false
	}
	if ids != nil {
		if _, ok := ids[b.ID]; !ok {
			return false
		}
	}
	if f.ScheduledDateFrom != "" && b.ScheduledDate < f.ScheduledDateFrom {
		return false
	}
	if f.ScheduledDateTo != "" && b.ScheduledDate > f.ScheduledDateTo {
		return false
	}
	if f.Status != "" && b.Status != f.Status {
		return false
	}
	if f.ServiceID != "" && b.ServiceID != f.ServiceID {
		return false
	}
	return true
}

func (m *MemoryStore) FetchBookings(ctx context.Context, f ports.BookingFilter) (ports.BookingPage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var ids map[string]struct{}
	if f.IDs != nil {
		ids = make(map[string]struct{}, len(f.IDs))
		for _, id := range f.IDs {
			ids[id] = struct{}{}
		}
	}

	matched := make([]*domain.Booking, 0)
	for _, id := range m.order {
		if b := m.bookings[id]; matchesBooking(b, f, ids) {
			matched = append(matched, b)
		}
	}

	page := ports.BookingPage{Total: len(matched)}
	start := min(f.Offset, len(matched))
	end := len(matched)
	if f.Limit > 0 {
		end = min(start+f.Limit, len(matched))
	}
	for _, b := range matched[start:end] {
		page.Bookings = append(page.Bookings, m.withLocation(b))
	}
	return page, nil
}

func (m *MemoryStore) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok || b.DeletedAt != nil {
		return nil, apperr.Newf(apperr.KindNotFound, "booking %s not found", id)
	}
	return m.withLocation(b), nil
}

func (m *MemoryStore) UpdateBooking(ctx context.Context, u ports.BookingUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[u.ID]
	if !ok || b.DeletedAt != nil {
		return apperr.Newf(apperr.KindNotFound, "booking %s not found", u.ID)
	}
	if u.VehicleID != nil {
		b.VehicleID = *u.VehicleID
	}
	if u.RouteID != nil {
		b.RouteID = *u.RouteID
	}
	if u.Status != nil {
		b.Status = *u.Status
	}
	if u.StopOrder != nil {
		n := *u.StopOrder
		b.StopOrder = &n
	}
	if u.ClearStopOrder {
		b.StopOrder = nil
	}
	if u.ScheduledStartTime != nil {
		b.ScheduledStartTime = *u.ScheduledStartTime
	}
	if u.ScheduledEndTime != nil {
		b.ScheduledEndTime = *u.ScheduledEndTime
	}
	return nil
}

func resetBooking(b *domain.Booking) {
	b.VehicleID = ""
	b.RouteID = ""
	b.StopOrder = nil
	b.Status = domain.BookingConfirmed
}

func (m *MemoryStore) ResetBookings(ctx context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if b, ok := m.bookings[id]; ok && b.DeletedAt == nil {
			resetBooking(b)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ResetBookingsForVehicleDate(ctx context.Context, vehicleID, date string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range m.order {
		b := m.bookings[id]
		if b.DeletedAt == nil && b.VehicleID == vehicleID && b.ScheduledDate == date {
			resetBooking(b)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) RenumberRouteStops(ctx context.Context, routeID string, removed int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bookings {
		if b.DeletedAt == nil && b.RouteID == routeID && b.StopOrder != nil && *b.StopOrder > removed {
			n := *b.StopOrder - 1
			b.StopOrder = &n
		}
	}
	return nil
}

func (m *MemoryStore) FetchVehicles(ctx context.Context, f ports.VehicleFilter) ([]*domain.Vehicle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Vehicle, 0, len(m.vehicles))
	for _, v := range m.vehicles {
		if f.Status != "" && v.Status != f.Status {
			continue
		}
		cp := *v
		out = append(out, &cp)
	}
	return out, nil
}

func (m *MemoryStore) FetchLocationByID(ctx context.Context, id string) (*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.locations[id]
	if !ok || l.DeletedAt != nil {
		return nil, apperr.Newf(apperr.KindNotFound, "location %s not found", id)
	}
	cp := *l
	return &cp, nil
}

func (m *MemoryStore) FetchBaseLocations(ctx context.Context) ([]*domain.Location, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Location, 0)
	for _, l := range m.locations {
		if l.IsBase() {
			cp := *l
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) InsertRoute(ctx context.Context, r *domain.Route) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.routes[r.ID]; ok {
		return nil, apperr.Newf(apperr.KindPersistFailed, "route %s already exists", r.ID)
	}
	if r.RouteCode != "" {
		for _, existing := range m.routes {
			if existing.RouteCode == r.RouteCode {
				return nil, apperr.Newf(apperr.KindPersistFailed, "route code %s already used", r.RouteCode)
			}
		}
	}
	m.routes[r.ID] = cloneRoute(r)
	return cloneRoute(r), nil
}

func (m *MemoryStore) GetRoute(ctx context.Context, id string) (*domain.Route, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok || r.DeletedAt != nil {
		return nil, apperr.Newf(apperr.KindNotFound, "route %s not found", id)
	}
	return cloneRoute(r), nil
}

func (m *MemoryStore) TombstoneRoute(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok || r.DeletedAt != nil {
		return apperr.Newf(apperr.KindNotFound, "route %s not found", id)
	}
	now := m.now().UTC()
	r.DeletedAt = &now
	return nil
}

func (m *MemoryStore) ListRouteCodes(ctx context.Context, prefix string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0)
	for _, r := range m.routes {
		if strings.HasPrefix(r.RouteCode, prefix) {
			out = append(out, r.RouteCode)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemoryStore) MarkStopRemoved(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.routes[id]
	if !ok || r.DeletedAt != nil {
		return apperr.Newf(apperr.KindNotFound, "route %s not found", id)
	}
	r.NeedsRecalculation = true
	if r.TotalStops > 0 {
		r.TotalStops--
	}
	return nil
}

// Seed loads demo data, replacing records with the same ids.
func (m *MemoryStore) Seed(ctx context.Context, data SeedData) error {
	m.AddLocations(data.Locations...)
	m.AddVehicles(data.Vehicles...)
	m.AddBookings(data.Bookings...)
	return nil
}

package domain

import "time"

type BookingStatus string

const (
	BookingPending    BookingStatus = "pending"
	BookingConfirmed  BookingStatus = "confirmed"
	BookingScheduled  BookingStatus = "scheduled"
	BookingInProgress BookingStatus = "in_progress"
	BookingCompleted  BookingStatus = "completed"
	BookingCancelled  BookingStatus = "cancelled"
	BookingNoShow     BookingStatus = "no_show"
)

// Represents a customer service request that can be placed on a vehicle route.
//
// Coordinates come either from the linked service location or from the booking itself.
// ScheduledStartTime is a wall-clock "HH:MM:SS" string; empty means no fixed appointment.
type Booking struct {
	ID                       string        `json:"id"`
	CustomerID               string        `json:"customer_id,omitempty"`
	ServiceID                string        `json:"service_id"`
	VehicleID                string        `json:"vehicle_id,omitempty"`
	RouteID                  string        `json:"route_id,omitempty"`
	StopOrder                *int          `json:"stop_order,omitempty"`
	Status                   BookingStatus `json:"status"`
	ScheduledDate            string        `json:"scheduled_date"`
	ScheduledStartTime       string        `json:"scheduled_start_time,omitempty"`
	ScheduledEndTime         string        `json:"scheduled_end_time,omitempty"`
	EstimatedDurationMinutes *int          `json:"estimated_duration_minutes,omitempty"`
	Latitude                 *float64      `json:"latitude,omitempty"`
	Longitude                *float64      `json:"longitude,omitempty"`
	LocationID               string        `json:"location_id,omitempty"`
	Location                 *Location     `json:"location,omitempty"`
	DeletedAt                *time.Time    `json:"deleted_at,omitempty"`
}

// IsAssigned reports whether the booking already belongs to a vehicle or a route.
func (b *Booking) IsAssigned() bool {
	return b.VehicleID != "" || b.RouteID != ""
}

// ServiceMinutes returns the estimated service duration, or fallback when none is recorded.
func (b *Booking) ServiceMinutes(fallback int) int {
	if b.EstimatedDurationMinutes == nil || *b.EstimatedDurationMinutes <= 0 {
		return fallback
	}
	return *b.EstimatedDurationMinutes
}

// BookingIDs returns the ids of bookings in order.
func BookingIDs(bookings []*Booking) []string {
	ids := make([]string, 0, len(bookings))
	for _, b := range bookings {
		ids = append(ids, b.ID)
	}
	return ids
}

package domain

type VehicleStatus string

const (
	VehicleAvailable   VehicleStatus = "available"
	VehicleInUse       VehicleStatus = "in_use"
	VehicleMaintenance VehicleStatus = "maintenance"
	VehicleRetired     VehicleStatus = "retired"
)

// Links a vehicle to a base location it may start from.
type VehicleLocation struct {
	LocationID string    `json:"location_id"`
	IsPrimary  bool      `json:"is_primary"`
	Location   *Location `json:"location,omitempty"`
}

// Service vehicle with a declared capability set.
// Vehicles are read-only to the planning pipeline.
type Vehicle struct {
	ID             string            `json:"id"`
	Name           string            `json:"name"`
	ServiceTypes   []string          `json:"service_types"`
	Status         VehicleStatus     `json:"status"`
	HomeLocationID string            `json:"home_location_id,omitempty"`
	Locations      []VehicleLocation `json:"locations,omitempty"`
}

func (v *Vehicle) IsAvailable() bool { return v.Status == VehicleAvailable }

// Supports reports whether the vehicle can perform the given service.
func (v *Vehicle) Supports(serviceID string) bool {
	for _, s := range v.ServiceTypes {
		if s == serviceID {
			return true
		}
	}
	return false
}

// PrimaryLocationID returns the vehicle's primary base location, if one is linked.
func (v *Vehicle) PrimaryLocationID() string {
	for _, l := range v.Locations {
		if l.IsPrimary {
			return l.LocationID
		}
	}
	return ""
}

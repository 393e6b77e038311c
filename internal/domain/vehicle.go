package domain

import "time"

// VehicleStatus represents the operational status of a fleet vehicle.
type VehicleStatus string

// Vehicle statuses.
const (
	VehicleStatusActive      VehicleStatus = "ACTIVE"
	VehicleStatusMaintenance VehicleStatus = "MAINTENANCE"
	VehicleStatusRetired     VehicleStatus = "RETIRED"
)

// IsValid checks if the vehicle status is valid.
func (s VehicleStatus) IsValid() bool {
	switch s {
	case VehicleStatusActive, VehicleStatusMaintenance, VehicleStatusRetired:
		return true
	}
	return false
}

// Vehicle is reference data owned by the fleet registry. Incidents consume
// its identity and display fields (make, model, license plate).
type Vehicle struct {
	ID           int64         `json:"id"`
	Make         string        `json:"make"`
	Model        string        `json:"model"`
	Year         int           `json:"year"`
	LicensePlate string        `json:"licensePlate"`
	VIN          string        `json:"vin"`
	Color        string        `json:"color"`
	Status       VehicleStatus `json:"status"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

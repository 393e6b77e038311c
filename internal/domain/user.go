package domain

import "time"

// Role represents a user's role in the fleet organization.
type Role string

// User roles.
const (
	RoleDriver       Role = "DRIVER"
	RoleFleetManager Role = "FLEET_MANAGER"
	RoleAdmin        Role = "ADMIN"
)

// User is reference data owned by the identity system. Only identity and
// display fields are consumed here.
type User struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt,omitzero"`
}

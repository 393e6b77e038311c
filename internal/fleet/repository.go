// Package fleet provides read access to the vehicle and user registries.
package fleet

import (
	"context"
	"errors"

	"github.com/fleetops/fleetwatch/internal/domain"
)

// Sentinel errors for the fleet module.
var (
	ErrVehicleNotFound = errors.New("Car not found")
	ErrUserNotFound    = errors.New("User not found")
)

// Repository defines the interface for fleet storage.
type Repository interface {
	// ListActiveVehicles returns vehicles in ACTIVE status ordered by license plate.
	ListActiveVehicles(ctx context.Context) ([]*domain.Vehicle, error)
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

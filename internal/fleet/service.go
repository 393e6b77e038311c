package fleet

import (
	"context"

	"github.com/fleetops/fleetwatch/internal/domain"
)

// Service handles fleet registry business logic.
type Service struct {
	repo Repository
}

// NewService creates a new fleet service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// ListActiveVehicles returns the vehicles available for incident reporting.
func (s *Service) ListActiveVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	return s.repo.ListActiveVehicles(ctx)
}

// GetVehicle returns a vehicle by ID.
func (s *Service) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	return s.repo.GetVehicle(ctx, id)
}

// GetUser returns a user by ID.
func (s *Service) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.repo.GetUser(ctx, id)
}

// Package postgres provides PostgreSQL implementation of fleet repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/fleet"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements fleet.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// ListActiveVehicles retrieves ACTIVE vehicles ordered by license plate.
func (r *Repository) ListActiveVehicles(ctx context.Context) ([]*domain.Vehicle, error) {
	query := `
		SELECT id, make, model, year, license_plate, vin, color, status, created_at, updated_at
		FROM cars
		WHERE status = $1
		ORDER BY license_plate ASC
	`
	rows, err := r.db.Query(ctx, query, domain.VehicleStatusActive)
	if err != nil {
		return nil, fmt.Errorf("list active vehicles: %w", err)
	}
	defer rows.Close()

	vehicles := make([]*domain.Vehicle, 0)
	for rows.Next() {
		var v domain.Vehicle
		err := rows.Scan(
			&v.ID,
			&v.Make,
			&v.Model,
			&v.Year,
			&v.LicensePlate,
			&v.VIN,
			&v.Color,
			&v.Status,
			&v.CreatedAt,
			&v.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan vehicle: %w", err)
		}
		vehicles = append(vehicles, &v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vehicles: %w", err)
	}

	return vehicles, nil
}

// GetVehicle retrieves a vehicle by ID.
func (r *Repository) GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error) {
	query := `
		SELECT id, make, model, year, license_plate, vin, color, status, created_at, updated_at
		FROM cars
		WHERE id = $1
	`
	var v domain.Vehicle
	err := r.db.QueryRow(ctx, query, id).Scan(
		&v.ID,
		&v.Make,
		&v.Model,
		&v.Year,
		&v.LicensePlate,
		&v.VIN,
		&v.Color,
		&v.Status,
		&v.CreatedAt,
		&v.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fleet.ErrVehicleNotFound
		}
		return nil, fmt.Errorf("get vehicle: %w", err)
	}
	return &v, nil
}

// GetUser retrieves a user by ID.
func (r *Repository) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, name, email, role, created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.Role,
		&u.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fleet.ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

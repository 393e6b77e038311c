package incidents

import (
	"context"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident storage.
type Repository interface {
	CreateIncident(ctx context.Context, incident *domain.Incident) error
	// GetIncident returns the incident with car/reporter/assignee hydrated.
	GetIncident(ctx context.Context, id int64) (*domain.Incident, error)
	// GetIncidentWithUpdates additionally hydrates the update log, newest first.
	GetIncidentWithUpdates(ctx context.Context, id int64) (*domain.Incident, error)
	// ListIncidents returns a page of hydrated incidents, newest created first.
	ListIncidents(ctx context.Context, filters Filters, limit, offset int) ([]*domain.Incident, error)
	CountIncidents(ctx context.Context, filters Filters) (int, error)
	// ExportIncidents returns all matching incidents, most recently reported first.
	ExportIncidents(ctx context.Context, filters Filters) ([]*domain.Incident, error)

	// CreateUpdate appends an update entry and hydrates its author.
	CreateUpdate(ctx context.Context, update *domain.IncidentUpdate) error
	ListUpdates(ctx context.Context, incidentID int64) ([]*domain.IncidentUpdate, error)

	// Stats queries.
	TotalIncidents(ctx context.Context) (int, error)
	CountByStatus(ctx context.Context) (map[domain.IncidentStatus]int, error)
	CountBySeverity(ctx context.Context) (map[domain.IncidentSeverity]int, error)
	CountOpenIncidents(ctx context.Context) (int, error)
	// ResolutionSpans returns (reportedAt, resolvedAt) pairs for incidents
	// currently RESOLVED with a non-null resolution timestamp.
	ResolutionSpans(ctx context.Context) ([]ResolutionSpan, error)

	// Transaction support.
	BeginTx(ctx context.Context) (pgx.Tx, error)
	UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	CreateUpdateTx(ctx context.Context, tx pgx.Tx, update *domain.IncidentUpdate) error
}

// Filters holds the filter options shared by listing and export.
// Query matches title OR description OR location, case-insensitively.
// Date bounds are inclusive and apply to occurredAt.
type Filters struct {
	Status       *domain.IncidentStatus
	Severity     *domain.IncidentSeverity
	CarID        *int64
	AssignedToID *int64
	Query        string
	StartDate    *time.Time
	EndDate      *time.Time
}

// ResolutionSpan is the reported/resolved timestamp pair of a resolved incident.
type ResolutionSpan struct {
	ReportedAt time.Time
	ResolvedAt time.Time
}

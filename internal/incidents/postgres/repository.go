// Package postgres provides PostgreSQL implementation of incidents repository.
package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is an interface for database operations that both *pgxpool.Pool and pgx.Tx implement.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements incidents.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// selectIncident is the joined projection used by every incident read.
// The assignee join is LEFT so unassigned incidents still match.
const selectIncident = `
	SELECT
		i.id, i.car_id, i.reported_by_id, i.assigned_to_id,
		i.title, i.description, i.type, i.severity, i.status,
		i.location, i.latitude, i.longitude,
		i.occurred_at, i.reported_at, i.resolved_at,
		i.estimated_cost, i.actual_cost, i.images, i.resolution_notes,
		i.created_at, i.updated_at,
		c.make, c.model, c.year, c.license_plate,
		rb.name, rb.email,
		a.name, a.email
	FROM incidents i
	JOIN cars c ON c.id = i.car_id
	JOIN users rb ON rb.id = i.reported_by_id
	LEFT JOIN users a ON a.id = i.assigned_to_id
`

// CreateIncident creates a new incident in the database.
func (r *Repository) CreateIncident(ctx context.Context, incident *domain.Incident) error {
	query := `
		INSERT INTO incidents (
			car_id, reported_by_id, title, description, type, severity, status,
			location, latitude, longitude, occurred_at,
			estimated_cost, images
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, reported_at, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		incident.CarID,
		incident.ReportedByID,
		incident.Title,
		incident.Description,
		incident.Type,
		incident.Severity,
		incident.Status,
		incident.Location,
		incident.Latitude,
		incident.Longitude,
		incident.OccurredAt,
		incident.EstimatedCost,
		incident.Images,
	).Scan(&incident.ID, &incident.ReportedAt, &incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// GetIncident retrieves a hydrated incident by ID.
func (r *Repository) GetIncident(ctx context.Context, id int64) (*domain.Incident, error) {
	row := r.db.QueryRow(ctx, selectIncident+" WHERE i.id = $1", id)

	incident, err := scanIncident(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return incident, nil
}

// GetIncidentWithUpdates retrieves a hydrated incident including its update log.
func (r *Repository) GetIncidentWithUpdates(ctx context.Context, id int64) (*domain.Incident, error) {
	incident, err := r.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	updates, err := r.ListUpdates(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident updates: %w", err)
	}
	incident.Updates = updates

	return incident, nil
}

// ListIncidents retrieves a page of hydrated incidents matching the filters,
// newest created first.
func (r *Repository) ListIncidents(ctx context.Context, filters incidents.Filters, limit, offset int) ([]*domain.Incident, error) {
	query := selectIncident + " WHERE 1=1"
	query, args := appendFilters(query, nil, filters)
	argNum := len(args) + 1

	query += " ORDER BY i.created_at DESC"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, limit, offset)

	return r.queryIncidents(ctx, query, args)
}

// CountIncidents counts incidents matching the filters.
func (r *Repository) CountIncidents(ctx context.Context, filters incidents.Filters) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM incidents i
		WHERE 1=1
	`
	query, args := appendFilters(query, nil, filters)

	var count int
	if err := r.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count incidents: %w", err)
	}
	return count, nil
}

// ExportIncidents retrieves all incidents matching the filters, most recently
// reported first.
func (r *Repository) ExportIncidents(ctx context.Context, filters incidents.Filters) ([]*domain.Incident, error) {
	query := selectIncident + " WHERE 1=1"
	query, args := appendFilters(query, nil, filters)
	query += " ORDER BY i.reported_at DESC"

	return r.queryIncidents(ctx, query, args)
}

// appendFilters adds the shared filter clauses to a query that already ends
// in a WHERE condition.
func appendFilters(query string, args []interface{}, filters incidents.Filters) (string, []interface{}) {
	argNum := len(args) + 1

	if filters.Status != nil {
		query += fmt.Sprintf(" AND i.status = $%d", argNum)
		args = append(args, *filters.Status)
		argNum++
	}

	if filters.Severity != nil {
		query += fmt.Sprintf(" AND i.severity = $%d", argNum)
		args = append(args, *filters.Severity)
		argNum++
	}

	if filters.CarID != nil {
		query += fmt.Sprintf(" AND i.car_id = $%d", argNum)
		args = append(args, *filters.CarID)
		argNum++
	}

	if filters.AssignedToID != nil {
		query += fmt.Sprintf(" AND i.assigned_to_id = $%d", argNum)
		args = append(args, *filters.AssignedToID)
		argNum++
	}

	if filters.Query != "" {
		query += fmt.Sprintf(
			" AND (i.title ILIKE $%d OR i.description ILIKE $%d OR i.location ILIKE $%d)",
			argNum, argNum, argNum,
		)
		args = append(args, "%"+filters.Query+"%")
		argNum++
	}

	if filters.StartDate != nil {
		query += fmt.Sprintf(" AND i.occurred_at >= $%d", argNum)
		args = append(args, *filters.StartDate)
		argNum++
	}

	if filters.EndDate != nil {
		query += fmt.Sprintf(" AND i.occurred_at <= $%d", argNum)
		args = append(args, *filters.EndDate)
	}

	return query, args
}

func (r *Repository) queryIncidents(ctx context.Context, query string, args []interface{}) ([]*domain.Incident, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query incidents: %w", err)
	}
	defer rows.Close()

	incidentList := make([]*domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		incidentList = append(incidentList, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}

	return incidentList, nil
}

// scanIncident scans one row of the selectIncident projection.
func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	var car domain.Vehicle
	var reporter domain.User
	var assigneeName, assigneeEmail *string

	err := row.Scan(
		&incident.ID,
		&incident.CarID,
		&incident.ReportedByID,
		&incident.AssignedToID,
		&incident.Title,
		&incident.Description,
		&incident.Type,
		&incident.Severity,
		&incident.Status,
		&incident.Location,
		&incident.Latitude,
		&incident.Longitude,
		&incident.OccurredAt,
		&incident.ReportedAt,
		&incident.ResolvedAt,
		&incident.EstimatedCost,
		&incident.ActualCost,
		&incident.Images,
		&incident.ResolutionNotes,
		&incident.CreatedAt,
		&incident.UpdatedAt,
		&car.Make,
		&car.Model,
		&car.Year,
		&car.LicensePlate,
		&reporter.Name,
		&reporter.Email,
		&assigneeName,
		&assigneeEmail,
	)
	if err != nil {
		return nil, err
	}

	car.ID = incident.CarID
	incident.Car = &car

	reporter.ID = incident.ReportedByID
	incident.ReportedBy = &reporter

	if incident.AssignedToID != nil {
		incident.AssignedTo = &domain.User{
			ID:    *incident.AssignedToID,
			Name:  *assigneeName,
			Email: *assigneeEmail,
		}
	}

	return &incident, nil
}

// CreateUpdate appends an update entry and hydrates its author.
func (r *Repository) CreateUpdate(ctx context.Context, update *domain.IncidentUpdate) error {
	return createUpdate(ctx, r.db, update)
}

// CreateUpdateTx appends an update entry within a transaction.
func (r *Repository) CreateUpdateTx(ctx context.Context, tx pgx.Tx, update *domain.IncidentUpdate) error {
	return createUpdate(ctx, tx, update)
}

func createUpdate(ctx context.Context, q querier, update *domain.IncidentUpdate) error {
	query := `
		WITH inserted AS (
			INSERT INTO incident_updates (incident_id, user_id, message, update_type)
			VALUES ($1, $2, $3, $4)
			RETURNING id, created_at, user_id
		)
		SELECT inserted.id, inserted.created_at, u.name, u.email
		FROM inserted
		JOIN users u ON u.id = inserted.user_id
	`
	var author domain.User
	err := q.QueryRow(ctx, query,
		update.IncidentID,
		update.UserID,
		update.Message,
		update.UpdateType,
	).Scan(&update.ID, &update.CreatedAt, &author.Name, &author.Email)

	if err != nil {
		return fmt.Errorf("create incident update: %w", err)
	}

	author.ID = update.UserID
	update.User = &author
	return nil
}

// ListUpdates retrieves the update log of an incident, newest first.
func (r *Repository) ListUpdates(ctx context.Context, incidentID int64) ([]*domain.IncidentUpdate, error) {
	query := `
		SELECT iu.id, iu.incident_id, iu.user_id, iu.message, iu.update_type, iu.created_at,
		       u.name, u.email
		FROM incident_updates iu
		JOIN users u ON u.id = iu.user_id
		WHERE iu.incident_id = $1
		ORDER BY iu.created_at DESC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list incident updates: %w", err)
	}
	defer rows.Close()

	updates := make([]*domain.IncidentUpdate, 0)
	for rows.Next() {
		var update domain.IncidentUpdate
		var author domain.User
		err := rows.Scan(
			&update.ID,
			&update.IncidentID,
			&update.UserID,
			&update.Message,
			&update.UpdateType,
			&update.CreatedAt,
			&author.Name,
			&author.Email,
		)
		if err != nil {
			return nil, fmt.Errorf("scan incident update: %w", err)
		}
		author.ID = update.UserID
		update.User = &author
		updates = append(updates, &update)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incident updates: %w", err)
	}

	return updates, nil
}

// TotalIncidents counts all incidents.
func (r *Repository) TotalIncidents(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("total incidents: %w", err)
	}
	return count, nil
}

// CountByStatus groups incident counts by status. Statuses with no
// incidents are absent from the map.
func (r *Repository) CountByStatus(ctx context.Context) (map[domain.IncidentStatus]int, error) {
	query := `SELECT status, COUNT(*) FROM incidents GROUP BY status`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IncidentStatus]int)
	for rows.Next() {
		var status domain.IncidentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[status] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	return counts, nil
}

// CountBySeverity groups incident counts by severity. Severities with no
// incidents are absent from the map.
func (r *Repository) CountBySeverity(ctx context.Context) (map[domain.IncidentSeverity]int, error) {
	query := `SELECT severity, COUNT(*) FROM incidents GROUP BY severity`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by severity: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.IncidentSeverity]int)
	for rows.Next() {
		var severity domain.IncidentSeverity
		var count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		counts[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}

	return counts, nil
}

// CountOpenIncidents counts incidents in PENDING or IN_PROGRESS status.
func (r *Repository) CountOpenIncidents(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM incidents WHERE status IN ($1, $2)`
	var count int
	err := r.db.QueryRow(ctx, query,
		domain.IncidentStatusPending,
		domain.IncidentStatusInProgress,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count open incidents: %w", err)
	}
	return count, nil
}

// ResolutionSpans returns the reported/resolved timestamp pairs of
// incidents currently in RESOLVED status.
func (r *Repository) ResolutionSpans(ctx context.Context) ([]incidents.ResolutionSpan, error) {
	query := `
		SELECT reported_at, resolved_at
		FROM incidents
		WHERE status = $1 AND resolved_at IS NOT NULL
	`
	rows, err := r.db.Query(ctx, query, domain.IncidentStatusResolved)
	if err != nil {
		return nil, fmt.Errorf("resolution spans: %w", err)
	}
	defer rows.Close()

	spans := make([]incidents.ResolutionSpan, 0)
	for rows.Next() {
		var span incidents.ResolutionSpan
		if err := rows.Scan(&span.ReportedAt, &span.ResolvedAt); err != nil {
			return nil, fmt.Errorf("scan resolution span: %w", err)
		}
		spans = append(spans, span)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate resolution spans: %w", err)
	}

	return spans, nil
}

// BeginTx starts a new database transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	return tx, nil
}

// UpdateIncidentTx persists the mutable incident fields within a transaction.
func (r *Repository) UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET title = $2, description = $3, severity = $4, status = $5,
		    assigned_to_id = $6, resolved_at = $7, resolution_notes = $8,
		    estimated_cost = $9, actual_cost = $10, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Status,
		incident.AssignedToID,
		incident.ResolvedAt,
		incident.ResolutionNotes,
		incident.EstimatedCost,
		incident.ActualCost,
	).Scan(&incident.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// Package incidents implements the incident lifecycle: creation, partial
// updates with status-change audit logging, filtered listing, CSV export
// and aggregate statistics.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/pkg/metrics"
	"github.com/jackc/pgx/v5"
)

// FleetReader resolves vehicle and user reference data.
type FleetReader interface {
	GetVehicle(ctx context.Context, id int64) (*domain.Vehicle, error)
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

// Service implements incident business logic.
type Service struct {
	repo  Repository
	fleet FleetReader
}

// NewService creates a new incident service.
func NewService(repo Repository, fleet FleetReader) *Service {
	return &Service{repo: repo, fleet: fleet}
}

// CreateInput holds data for reporting a new incident.
type CreateInput struct {
	CarID         int64
	ReportedByID  int64
	Title         string
	Description   string
	Severity      domain.IncidentSeverity
	Type          domain.IncidentType
	Location      *string
	Latitude      *float64
	Longitude     *float64
	OccurredAt    time.Time
	Images        []string
	EstimatedCost *float64
}

// UpdateInput holds a partial incident update. Nil fields are left
// unchanged. AssignedToSet distinguishes "unassign" (true, nil id) from
// "leave as is" (false).
type UpdateInput struct {
	Title           *string
	Description     *string
	Severity        *domain.IncidentSeverity
	Status          *domain.IncidentStatus
	AssignedToID    *int64
	AssignedToSet   bool
	ResolutionNotes *string
	EstimatedCost   *float64
	ActualCost      *float64
}

// UpdateEntryInput holds data for appending a comment/audit entry.
type UpdateEntryInput struct {
	Message    string
	UpdateType domain.UpdateType
	UserID     int64
}

// Create reports a new incident. The incident starts PENDING with
// reportedAt assigned by the store and no resolution timestamp. No audit
// entry is written for the initial report.
func (s *Service) Create(ctx context.Context, input CreateInput) (*domain.Incident, error) {
	if !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, input.Severity)
	}
	if !input.Type.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidType, input.Type)
	}

	if _, err := s.fleet.GetVehicle(ctx, input.CarID); err != nil {
		return nil, fmt.Errorf("resolve vehicle %d: %w", input.CarID, err)
	}
	if _, err := s.fleet.GetUser(ctx, input.ReportedByID); err != nil {
		return nil, fmt.Errorf("resolve reporter %d: %w", input.ReportedByID, err)
	}

	images := input.Images
	if images == nil {
		images = []string{}
	}

	incident := &domain.Incident{
		CarID:         input.CarID,
		ReportedByID:  input.ReportedByID,
		Title:         input.Title,
		Description:   input.Description,
		Severity:      input.Severity,
		Type:          input.Type,
		Status:        domain.IncidentStatusPending,
		Location:      input.Location,
		Latitude:      input.Latitude,
		Longitude:     input.Longitude,
		OccurredAt:    input.OccurredAt,
		Images:        images,
		EstimatedCost: input.EstimatedCost,
	}

	if err := s.repo.CreateIncident(ctx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	metrics.IncidentsCreated.WithLabelValues(string(incident.Severity), string(incident.Type)).Inc()

	return s.repo.GetIncident(ctx, incident.ID)
}

// Get retrieves an incident with its relations and update log (newest first).
func (s *Service) Get(ctx context.Context, id int64) (*domain.Incident, error) {
	return s.repo.GetIncidentWithUpdates(ctx, id)
}

// Update applies a partial update to an incident. When the update changes
// the status, a STATUS_CHANGE audit entry authored by updatedBy is
// appended; entering RESOLVED stamps resolvedAt. Both writes share one
// transaction so an incident row can never change without its audit entry.
func (s *Service) Update(ctx context.Context, id int64, input UpdateInput, updatedBy int64) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	if input.Status != nil && !input.Status.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidStatus, *input.Status)
	}
	if input.Severity != nil && !input.Severity.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidSeverity, *input.Severity)
	}
	if input.AssignedToSet && input.AssignedToID != nil {
		if _, err := s.fleet.GetUser(ctx, *input.AssignedToID); err != nil {
			return nil, fmt.Errorf("resolve assignee %d: %w", *input.AssignedToID, err)
		}
	}

	oldStatus := incident.Status

	if input.Title != nil {
		incident.Title = *input.Title
	}
	if input.Description != nil {
		incident.Description = *input.Description
	}
	if input.Severity != nil {
		incident.Severity = *input.Severity
	}
	if input.AssignedToSet {
		incident.AssignedToID = input.AssignedToID
	}
	if input.ResolutionNotes != nil {
		incident.ResolutionNotes = input.ResolutionNotes
	}
	if input.EstimatedCost != nil {
		incident.EstimatedCost = input.EstimatedCost
	}
	if input.ActualCost != nil {
		incident.ActualCost = input.ActualCost
	}

	statusChanged := input.Status != nil && *input.Status != oldStatus
	if statusChanged {
		incident.Status = *input.Status
		// One-way stamp: set on entering RESOLVED, never cleared afterwards.
		if incident.Status == domain.IncidentStatusResolved {
			now := time.Now()
			incident.ResolvedAt = &now
		}
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.UpdateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("update incident: %w", err)
	}

	if statusChanged {
		entry := &domain.IncidentUpdate{
			IncidentID: incident.ID,
			UserID:     updatedBy,
			Message:    fmt.Sprintf("Status changed from %s to %s", oldStatus, incident.Status),
			UpdateType: domain.UpdateTypeStatusChange,
		}
		if err := s.repo.CreateUpdateTx(ctx, tx, entry); err != nil {
			return nil, fmt.Errorf("create status change entry: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	if statusChanged {
		metrics.StatusTransitions.WithLabelValues(string(oldStatus), string(incident.Status)).Inc()
	}

	return s.repo.GetIncident(ctx, incident.ID)
}

// AddUpdate appends a comment/audit entry to an existing incident. The
// incident row itself is never mutated by this operation.
func (s *Service) AddUpdate(ctx context.Context, incidentID int64, input UpdateEntryInput) (*domain.IncidentUpdate, error) {
	if input.Message == "" {
		return nil, ErrEmptyMessage
	}

	updateType := input.UpdateType
	if updateType == "" {
		updateType = domain.UpdateTypeComment
	}
	if !updateType.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidUpdateType, updateType)
	}

	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, fmt.Errorf("get incident: %w", err)
	}

	update := &domain.IncidentUpdate{
		IncidentID: incidentID,
		UserID:     input.UserID,
		Message:    input.Message,
		UpdateType: updateType,
	}

	if err := s.repo.CreateUpdate(ctx, update); err != nil {
		return nil, fmt.Errorf("create update: %w", err)
	}

	return update, nil
}

// Page is one page of a filtered incident listing.
type Page struct {
	Incidents  []*domain.Incident
	Total      int
	Page       int
	Limit      int
	TotalPages int
}

// List returns a filtered, paginated incident listing, most recently
// created first. The total always covers the full filtered set; an empty
// page is a valid result.
func (s *Service) List(ctx context.Context, filters Filters, page, limit int) (*Page, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	items, err := s.repo.ListIncidents(ctx, filters, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}

	total, err := s.repo.CountIncidents(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("count incidents: %w", err)
	}

	return &Page{
		Incidents:  items,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: int(math.Ceil(float64(total) / float64(limit))),
	}, nil
}

// Export renders all incidents matching the filters as CSV, most recently
// reported first.
func (s *Service) Export(ctx context.Context, filters Filters) (string, error) {
	items, err := s.repo.ExportIncidents(ctx, filters)
	if err != nil {
		return "", fmt.Errorf("export incidents: %w", err)
	}
	return RenderCSV(items), nil
}

// Stats holds aggregate incident statistics. The byStatus/bySeverity maps
// only contain values present in the store; zero counts are omitted.
type Stats struct {
	Total             int                             `json:"total"`
	ByStatus          map[domain.IncidentStatus]int   `json:"byStatus"`
	BySeverity        map[domain.IncidentSeverity]int `json:"bySeverity"`
	AvgResolutionTime int                             `json:"avgResolutionTime"`
	OpenIncidents     int                             `json:"openIncidents"`
}

// ComputeStats aggregates incident counts and the mean resolution time in
// whole hours over currently-resolved incidents (0 when there are none).
func (s *Service) ComputeStats(ctx context.Context) (*Stats, error) {
	total, err := s.repo.TotalIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count incidents: %w", err)
	}

	byStatus, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}

	bySeverity, err := s.repo.CountBySeverity(ctx)
	if err != nil {
		return nil, fmt.Errorf("count by severity: %w", err)
	}

	open, err := s.repo.CountOpenIncidents(ctx)
	if err != nil {
		return nil, fmt.Errorf("count open incidents: %w", err)
	}

	spans, err := s.repo.ResolutionSpans(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolution spans: %w", err)
	}

	avgHours := 0
	if len(spans) > 0 {
		var sum time.Duration
		for _, span := range spans {
			sum += span.ResolvedAt.Sub(span.ReportedAt)
		}
		avgHours = int(math.Round(sum.Hours() / float64(len(spans))))
	}

	return &Stats{
		Total:             total,
		ByStatus:          byStatus,
		BySeverity:        bySeverity,
		AvgResolutionTime: avgHours,
		OpenIncidents:     open,
	}, nil
}

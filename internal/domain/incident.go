package domain

import "time"

// IncidentStatus represents the lifecycle stage of an incident.
type IncidentStatus string

// Incident statuses.
const (
	IncidentStatusPending    IncidentStatus = "PENDING"
	IncidentStatusInProgress IncidentStatus = "IN_PROGRESS"
	IncidentStatusResolved   IncidentStatus = "RESOLVED"
	IncidentStatusClosed     IncidentStatus = "CLOSED"
	IncidentStatusCancelled  IncidentStatus = "CANCELLED"
)

// IsValid checks if the incident status is valid.
func (s IncidentStatus) IsValid() bool {
	switch s {
	case IncidentStatusPending, IncidentStatusInProgress,
		IncidentStatusResolved, IncidentStatusClosed, IncidentStatusCancelled:
		return true
	}
	return false
}

// IsOpen returns true for statuses that count as open incidents.
func (s IncidentStatus) IsOpen() bool {
	return s == IncidentStatusPending || s == IncidentStatusInProgress
}

// IncidentSeverity represents the urgency classification of an incident.
type IncidentSeverity string

// Incident severities.
const (
	IncidentSeverityLow      IncidentSeverity = "LOW"
	IncidentSeverityMedium   IncidentSeverity = "MEDIUM"
	IncidentSeverityHigh     IncidentSeverity = "HIGH"
	IncidentSeverityCritical IncidentSeverity = "CRITICAL"
)

// IsValid checks if the incident severity is valid.
func (s IncidentSeverity) IsValid() bool {
	switch s {
	case IncidentSeverityLow, IncidentSeverityMedium,
		IncidentSeverityHigh, IncidentSeverityCritical:
		return true
	}
	return false
}

// IncidentType classifies what happened to the vehicle.
type IncidentType string

// Incident types.
const (
	IncidentTypeAccident         IncidentType = "ACCIDENT"
	IncidentTypeBreakdown        IncidentType = "BREAKDOWN"
	IncidentTypeTheft            IncidentType = "THEFT"
	IncidentTypeVandalism        IncidentType = "VANDALISM"
	IncidentTypeMaintenanceIssue IncidentType = "MAINTENANCE_ISSUE"
	IncidentTypeTrafficViolation IncidentType = "TRAFFIC_VIOLATION"
	IncidentTypeFuelIssue        IncidentType = "FUEL_ISSUE"
	IncidentTypeOther            IncidentType = "OTHER"
)

// IsValid checks if the incident type is valid.
func (t IncidentType) IsValid() bool {
	switch t {
	case IncidentTypeAccident, IncidentTypeBreakdown, IncidentTypeTheft,
		IncidentTypeVandalism, IncidentTypeMaintenanceIssue,
		IncidentTypeTrafficViolation, IncidentTypeFuelIssue, IncidentTypeOther:
		return true
	}
	return false
}

// UpdateType classifies an incident update entry.
type UpdateType string

// Update types.
const (
	UpdateTypeStatusChange UpdateType = "STATUS_CHANGE"
	UpdateTypeAssignment   UpdateType = "ASSIGNMENT"
	UpdateTypeComment      UpdateType = "COMMENT"
	UpdateTypeCostUpdate   UpdateType = "COST_UPDATE"
	UpdateTypeResolution   UpdateType = "RESOLUTION"
)

// IsValid checks if the update type is valid.
func (t UpdateType) IsValid() bool {
	switch t {
	case UpdateTypeStatusChange, UpdateTypeAssignment, UpdateTypeComment,
		UpdateTypeCostUpdate, UpdateTypeResolution:
		return true
	}
	return false
}

// Incident represents a recorded event affecting a fleet vehicle.
//
// CarID, ReportedByID and OccurredAt are fixed at creation and never
// mutated afterwards. ResolvedAt is stamped when the status first
// transitions to RESOLVED and is never cleared.
type Incident struct {
	ID              int64            `json:"id"`
	CarID           int64            `json:"carId"`
	ReportedByID    int64            `json:"reportedById"`
	AssignedToID    *int64           `json:"assignedToId"`
	Title           string           `json:"title"`
	Description     string           `json:"description"`
	Type            IncidentType     `json:"type"`
	Severity        IncidentSeverity `json:"severity"`
	Status          IncidentStatus   `json:"status"`
	Location        *string          `json:"location"`
	Latitude        *float64         `json:"latitude"`
	Longitude       *float64         `json:"longitude"`
	OccurredAt      time.Time        `json:"occurredAt"`
	ReportedAt      time.Time        `json:"reportedAt"`
	ResolvedAt      *time.Time       `json:"resolvedAt"`
	EstimatedCost   *float64         `json:"estimatedCost"`
	ActualCost      *float64         `json:"actualCost"`
	Images          []string         `json:"images"`
	ResolutionNotes *string          `json:"resolutionNotes"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`

	// Hydrated relations.
	Car        *Vehicle          `json:"car,omitempty"`
	ReportedBy *User             `json:"reportedBy,omitempty"`
	AssignedTo *User             `json:"assignedTo,omitempty"`
	Updates    []*IncidentUpdate `json:"updates,omitempty"`
}

// IncidentUpdate is an append-only audit/comment entry attached to an
// incident. Entries are never mutated or deleted once created.
type IncidentUpdate struct {
	ID         int64      `json:"id"`
	IncidentID int64      `json:"incidentId"`
	UserID     int64      `json:"userId"`
	Message    string     `json:"message"`
	UpdateType UpdateType `json:"updateType"`
	CreatedAt  time.Time  `json:"createdAt"`

	User *User `json:"user,omitempty"`
}

package incidents

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/fleetops/fleetwatch/internal/domain"
	"github.com/fleetops/fleetwatch/internal/fleet"
	"github.com/fleetops/fleetwatch/internal/identity"
	"github.com/fleetops/fleetwatch/internal/pkg/ctxlog"
	"github.com/fleetops/fleetwatch/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Pagination defaults.
const (
	DefaultPageSize = 10
	MaxPageSize     = 100
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate

	// defaultUserID is the audit author for mutating requests without an
	// actor token. Zero means a token is required.
	defaultUserID int64
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service, defaultUserID int64) *Handler {
	return &Handler{
		service:       service,
		validator:     validator.New(),
		defaultUserID: defaultUserID,
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/incidents", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/export", h.Export)
		r.Get("/stats", h.Stats)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Post("/updates", h.AddUpdate)
		})
	})
}

// CreateIncidentRequest represents the request body for reporting an incident.
type CreateIncidentRequest struct {
	CarID         int64    `json:"carId" validate:"required"`
	ReportedByID  int64    `json:"reportedById" validate:"required"`
	Title         string   `json:"title" validate:"required,min=1"`
	Description   string   `json:"description" validate:"required,min=1"`
	Severity      string   `json:"severity" validate:"required,oneof=LOW MEDIUM HIGH CRITICAL"`
	Type          string   `json:"type" validate:"required,oneof=ACCIDENT BREAKDOWN THEFT VANDALISM MAINTENANCE_ISSUE TRAFFIC_VIOLATION FUEL_ISSUE OTHER"`
	Location      *string  `json:"location"`
	Latitude      *float64 `json:"latitude"`
	Longitude     *float64 `json:"longitude"`
	OccurredAt    string   `json:"occurredAt" validate:"required"`
	Images        []string `json:"images"`
	EstimatedCost *float64 `json:"estimatedCost"`
}

// UpdateIncidentRequest represents the request body for a partial update.
// assignedToId presence is detected separately so that an explicit null
// unassigns while an absent field leaves the assignment unchanged.
type UpdateIncidentRequest struct {
	Title           *string  `json:"title" validate:"omitempty,min=1"`
	Description     *string  `json:"description" validate:"omitempty,min=1"`
	Severity        *string  `json:"severity" validate:"omitempty,oneof=LOW MEDIUM HIGH CRITICAL"`
	Status          *string  `json:"status" validate:"omitempty,oneof=PENDING IN_PROGRESS RESOLVED CLOSED CANCELLED"`
	AssignedToID    *int64   `json:"assignedToId"`
	ResolutionNotes *string  `json:"resolutionNotes"`
	EstimatedCost   *float64 `json:"estimatedCost"`
	ActualCost      *float64 `json:"actualCost"`
}

// CreateUpdateRequest represents the request body for appending an update entry.
type CreateUpdateRequest struct {
	Message    string `json:"message" validate:"required,min=1"`
	UpdateType string `json:"updateType" validate:"required,oneof=STATUS_CHANGE ASSIGNMENT COMMENT COST_UPDATE RESOLUTION"`
	UserID     *int64 `json:"userId"`
}

// Create handles POST /incidents.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	occurredAt, err := parseTimestamp(req.OccurredAt)
	if err != nil {
		httputil.ValidationError(w, fmt.Errorf("occurredAt: %w", err))
		return
	}

	incident, err := h.service.Create(r.Context(), CreateInput{
		CarID:         req.CarID,
		ReportedByID:  req.ReportedByID,
		Title:         req.Title,
		Description:   req.Description,
		Severity:      domain.IncidentSeverity(req.Severity),
		Type:          domain.IncidentType(req.Type),
		Location:      req.Location,
		Latitude:      req.Latitude,
		Longitude:     req.Longitude,
		OccurredAt:    occurredAt,
		Images:        req.Images,
		EstimatedCost: req.EstimatedCost,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, incident)
}

// Get handles GET /incidents/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.incidentID(w, r)
	if !ok {
		return
	}

	incident, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// Update handles PUT /incidents/{id}.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.incidentID(w, r)
	if !ok {
		return
	}

	var raw map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&raw); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	var req UpdateIncidentRequest
	if err := decodeFields(raw, &req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	_, assignedToSet := raw["assignedToId"]

	input := UpdateInput{
		Title:           req.Title,
		Description:     req.Description,
		AssignedToID:    req.AssignedToID,
		AssignedToSet:   assignedToSet,
		ResolutionNotes: req.ResolutionNotes,
		EstimatedCost:   req.EstimatedCost,
		ActualCost:      req.ActualCost,
	}
	if req.Severity != nil {
		sev := domain.IncidentSeverity(*req.Severity)
		input.Severity = &sev
	}
	if req.Status != nil {
		st := domain.IncidentStatus(*req.Status)
		input.Status = &st
	}

	incident, err := h.service.Update(r.Context(), id, input, h.actor(r))
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, incident)
}

// AddUpdate handles POST /incidents/{id}/updates.
func (h *Handler) AddUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := h.incidentID(w, r)
	if !ok {
		return
	}

	var req CreateUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	userID := h.actor(r)
	if req.UserID != nil {
		userID = *req.UserID
	}

	update, err := h.service.AddUpdate(r.Context(), id, UpdateEntryInput{
		Message:    req.Message,
		UpdateType: domain.UpdateType(req.UpdateType),
		UserID:     userID,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusCreated, update)
}

// List handles GET /incidents.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httputil.ValidationError(w, err)
		return
	}

	page := 1
	limit := DefaultPageSize

	if p := r.URL.Query().Get("page"); p != "" {
		parsed, err := strconv.Atoi(p)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "page must be a positive integer")
			return
		}
		page = parsed
	}

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxPageSize {
			parsed = MaxPageSize
		}
		limit = parsed
	}

	result, err := h.service.List(r.Context(), filters, page, limit)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, map[string]interface{}{
		"incidents": result.Incidents,
		"pagination": map[string]int{
			"total":      result.Total,
			"page":       result.Page,
			"limit":      result.Limit,
			"totalPages": result.TotalPages,
		},
	})
}

// Export handles GET /incidents/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	filters, err := parseFilters(r)
	if err != nil {
		httputil.ValidationError(w, err)
		return
	}

	csv, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	filename := fmt.Sprintf("incidents-%s.csv", time.Now().UTC().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(csv)); err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to write csv response", "error", err)
	}
}

// Stats handles GET /incidents/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.ComputeStats(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}

func (h *Handler) incidentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid incident id")
		return 0, false
	}
	return id, true
}

// actor returns the audit author for a mutating request: the verified
// bearer-token subject when present, the configured default otherwise.
func (h *Handler) actor(r *http.Request) int64 {
	if id, ok := identity.ActorFromContext(r.Context()); ok {
		return id
	}
	return h.defaultUserID
}

// validationErrors are service failures reported with the field-detail body.
var validationErrors = []error{
	ErrInvalidStatus,
	ErrInvalidSeverity,
	ErrInvalidType,
	ErrInvalidUpdateType,
	ErrEmptyMessage,
	fleet.ErrVehicleNotFound,
	fleet.ErrUserNotFound,
}

func (h *Handler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	for _, verr := range validationErrors {
		if errors.Is(err, verr) {
			httputil.ValidationError(w, err)
			return
		}
	}

	httputil.HandleError(r.Context(), w, err, []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: ErrIncidentNotFound.Error()},
	})
}

// decodeFields re-decodes a pre-parsed JSON object into dst.
func decodeFields(raw map[string]json.RawMessage, dst interface{}) error {
	buf, err := json.Marshal(raw)
	if err != nil {
		return err
	}
	return json.Unmarshal(buf, dst)
}

// parseFilters extracts the shared list/export filters from query params.
func parseFilters(r *http.Request) (Filters, error) {
	q := r.URL.Query()
	var filters Filters

	if v := q.Get("status"); v != "" {
		status := domain.IncidentStatus(v)
		if !status.IsValid() {
			return filters, fmt.Errorf("%w: %s", ErrInvalidStatus, v)
		}
		filters.Status = &status
	}

	if v := q.Get("severity"); v != "" {
		severity := domain.IncidentSeverity(v)
		if !severity.IsValid() {
			return filters, fmt.Errorf("%w: %s", ErrInvalidSeverity, v)
		}
		filters.Severity = &severity
	}

	if v := q.Get("carId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, fmt.Errorf("carId must be an integer")
		}
		filters.CarID = &id
	}

	if v := q.Get("assignedToId"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return filters, fmt.Errorf("assignedToId must be an integer")
		}
		filters.AssignedToID = &id
	}

	filters.Query = q.Get("query")

	if v := q.Get("startDate"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			return filters, fmt.Errorf("startDate: %w", err)
		}
		filters.StartDate = &t
	}

	if v := q.Get("endDate"); v != "" {
		t, err := parseTimestamp(v)
		if err != nil {
			return filters, fmt.Errorf("endDate: %w", err)
		}
		filters.EndDate = &t
	}

	return filters, nil
}

// parseTimestamp accepts RFC 3339 timestamps and bare dates.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	return time.Time{}, fmt.Errorf("not a valid timestamp: %q", s)
}

package fleet

import (
	"net/http"

	"github.com/fleetops/fleetwatch/internal/pkg/ctxlog"
	"github.com/fleetops/fleetwatch/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
)

// Handler handles HTTP requests for the fleet module.
type Handler struct {
	service *Service
}

// NewHandler creates a new fleet handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers all HTTP routes for the fleet module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/cars", h.ListCars)
}

// ListCars handles GET /cars. Only ACTIVE vehicles are returned.
func (h *Handler) ListCars(w http.ResponseWriter, r *http.Request) {
	vehicles, err := h.service.ListActiveVehicles(r.Context())
	if err != nil {
		ctxlog.FromContext(r.Context()).Error("failed to list cars", "error", err)
		httputil.Error(w, http.StatusInternalServerError, "Internal Server Error")
		return
	}

	httputil.JSON(w, http.StatusOK, vehicles)
}

// Package uploads proxies incident image uploads to the storage provider.
package uploads

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/fleetops/fleetwatch/internal/pkg/ctxlog"
	"github.com/fleetops/fleetwatch/internal/pkg/httputil"
	"github.com/fleetops/fleetwatch/internal/pkg/metrics"
	"github.com/fleetops/fleetwatch/internal/uploads/cloudinary"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// MaxFileSize is the upload size cap in bytes.
const MaxFileSize = 5 * 1024 * 1024

// allowedTypes are the accepted image content types.
var allowedTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

// Provider stores an image and returns its public reference.
type Provider interface {
	Configured() bool
	Upload(ctx context.Context, filename string, content io.Reader) (*cloudinary.UploadResult, error)
}

// Handler handles HTTP requests for the uploads module.
type Handler struct {
	provider Provider
}

// NewHandler creates a new uploads handler.
func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

// RegisterRoutes registers all HTTP routes for the uploads module.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/upload", h.Upload)
}

// Upload handles POST /upload. It accepts a single multipart image under
// the "file" field and forwards it to the storage provider.
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	log := ctxlog.FromContext(r.Context()).With("upload_id", uuid.NewString())

	if !h.provider.Configured() {
		metrics.ImageUploads.WithLabelValues("unconfigured").Inc()
		httputil.Error(w, http.StatusInternalServerError, "Cloudinary is not configured. Please add environment variables.")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, MaxFileSize+4096)
	if err := r.ParseMultipartForm(MaxFileSize); err != nil {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		httputil.Error(w, http.StatusBadRequest, "File too large. Please upload an image smaller than 5MB.")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		httputil.Error(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !allowedTypes[header.Header.Get("Content-Type")] {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		httputil.Error(w, http.StatusBadRequest, "Invalid file type. Please upload an image.")
		return
	}

	if header.Size > MaxFileSize {
		metrics.ImageUploads.WithLabelValues("rejected").Inc()
		httputil.Error(w, http.StatusBadRequest, "File too large. Please upload an image smaller than 5MB.")
		return
	}

	result, err := h.provider.Upload(r.Context(), header.Filename, file)
	if err != nil {
		metrics.ImageUploads.WithLabelValues("failed").Inc()
		log.Error("image upload failed", "filename", header.Filename, "error", err)
		if errors.Is(err, cloudinary.ErrNotConfigured) {
			httputil.Error(w, http.StatusInternalServerError, "Cloudinary is not configured. Please add environment variables.")
			return
		}
		httputil.Error(w, http.StatusInternalServerError, "Failed to upload file")
		return
	}

	metrics.ImageUploads.WithLabelValues("ok").Inc()
	log.Info("image uploaded", "filename", header.Filename, "public_id", result.PublicID)
	httputil.JSON(w, http.StatusOK, result)
}

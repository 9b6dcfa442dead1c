// Package handlers wires the service's HTTP boundary: statistics and raw
// data endpoints, the enrollment-sheet lookup, manual login, cache and
// status operations, and the liveness probes.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/cache"
	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
	"github.com/edwingoed13/c3pr3-2025-2/internal/constants"
	"github.com/edwingoed13/c3pr3-2025-2/internal/lookup"
	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
	"github.com/edwingoed13/c3pr3-2025-2/internal/portal"
	"github.com/edwingoed13/c3pr3-2025-2/internal/stats"
)

const internalServerError = "Internal server error"

// debugSampleSize is how many raw records the debug endpoint echoes back.
const debugSampleSize = 3

// dniPattern validates the Peruvian national ID shape: exactly 8 digits.
var dniPattern = regexp.MustCompile(`^\d{8}$`)

// errNoRecords signals that the portal returned an empty list; the
// statistics endpoints answer it with an empty-shape payload and leave the
// cache untouched.
var errNoRecords = errors.New("no records returned by the portal")

// APIHandler serves the dashboard API backed by the cache, retry, and
// portal layers.
type APIHandler struct {
	cfg      *config.Config
	sessions *portal.SessionManager
	fetcher  *portal.Fetcher
	retrier  *portal.Retrier
	store    *cache.Store
	sheets   *lookup.Service
	metrics  *Metrics
	logger   *logrus.Logger
}

// NewAPIHandler creates the API handler.
func NewAPIHandler(
	cfg *config.Config,
	sessions *portal.SessionManager,
	fetcher *portal.Fetcher,
	retrier *portal.Retrier,
	store *cache.Store,
	sheets *lookup.Service,
	metrics *Metrics,
	logger *logrus.Logger,
) *APIHandler {
	return &APIHandler{
		cfg:      cfg,
		sessions: sessions,
		fetcher:  fetcher,
		retrier:  retrier,
		store:    store,
		sheets:   sheets,
		metrics:  metrics,
		logger:   logger,
	}
}

// RegisterRoutes registers the API endpoints on the router.
func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api", h.Root).Methods(http.MethodGet)
	router.HandleFunc("/api/estudiantes/estadisticas", h.StudentStatistics).Methods(http.MethodGet)
	router.HandleFunc("/api/vacantes/estadisticas", h.SeatStatistics).Methods(http.MethodGet)
	router.HandleFunc("/api/estudiantes/completos", h.CompleteStudents).Methods(http.MethodGet)
	router.HandleFunc("/api/vacantes/completos", h.CompleteSeats).Methods(http.MethodGet)
	router.HandleFunc("/api/debug/vacantes", h.DebugSeats).Methods(http.MethodGet)
	router.HandleFunc("/api/estudiantes/ficha", h.EnrollmentSheet).Methods(http.MethodPost)
	router.HandleFunc("/api/auth/login", h.ManualLogin).Methods(http.MethodPost)
	router.HandleFunc("/api/cache", h.ClearCache).Methods(http.MethodDelete)
	router.HandleFunc("/api/status", h.Status).Methods(http.MethodGet)
}

// Root answers the API banner endpoint.
func (h *APIHandler) Root(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, map[string]string{"message": "CEPREUNA API is running"})
}

// StudentStatistics serves cache-backed enrolled-student statistics.
func (h *APIHandler) StudentStatistics(w http.ResponseWriter, r *http.Request) {
	h.serveStatistics(w, r, cache.Students, func(ctx context.Context) (*models.AggregatedStats, error) {
		records, err := h.fetchStudents(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errNoRecords
		}
		return stats.AggregateStudents(records, h.logger), nil
	})
}

// SeatStatistics serves cache-backed available-seat statistics.
func (h *APIHandler) SeatStatistics(w http.ResponseWriter, r *http.Request) {
	h.serveStatistics(w, r, cache.Seats, func(ctx context.Context) (*models.AggregatedStats, error) {
		records, err := h.fetchSeats(ctx)
		if err != nil {
			return nil, err
		}
		if len(records) == 0 {
			return nil, errNoRecords
		}
		return stats.AggregateSeats(records, h.logger), nil
	})
}

// serveStatistics runs the shared cache-or-compute path for one statistics
// kind. A portal response with zero records is answered with an empty
// payload without populating the cache.
func (h *APIHandler) serveStatistics(w http.ResponseWriter, r *http.Request, kind cache.Kind, compute cache.ComputeFunc) {
	payload, hit, err := h.store.GetOrCompute(r.Context(), kind, compute)
	if err != nil {
		if errors.Is(err, errNoRecords) {
			h.logger.WithField("kind", string(kind)).Warn("Portal returned no records, serving empty statistics")
			h.writeJSON(w, models.NewEmptyStats())
			return
		}
		h.writeDomainError(w, err)
		return
	}

	h.metrics.CacheLookupsTotal.WithLabelValues(string(kind), cacheResult(hit)).Inc()
	h.writeJSON(w, payload)
}

// CompleteStudents serves the uncached raw student list.
func (h *APIHandler) CompleteStudents(w http.ResponseWriter, r *http.Request) {
	records, err := h.fetchStudents(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, &models.RawListResponse{
		Total:     len(records),
		Data:      records,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// CompleteSeats serves the uncached raw seat list.
func (h *APIHandler) CompleteSeats(w http.ResponseWriter, r *http.Request) {
	records, err := h.fetchSeats(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.writeJSON(w, &models.RawListResponse{
		Total:     len(records),
		Data:      records,
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

// DebugSeats echoes a raw sample of the seat list next to a fresh
// aggregation so the upstream data shape can be inspected.
func (h *APIHandler) DebugSeats(w http.ResponseWriter, r *http.Request) {
	records, err := h.fetchSeats(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	sample := records
	if len(sample) > debugSampleSize {
		sample = sample[:debugSampleSize]
	}

	h.writeJSON(w, map[string]any{
		"raw_count":       len(records),
		"sample_raw_data": sample,
		"processed_stats": stats.AggregateSeats(records, h.logger),
		"timestamp":       time.Now().Format(time.RFC3339),
	})
}

// EnrollmentSheet validates the DNI, finds the matching student, and
// resolves the one-time enrollment-sheet download URL. Malformed input is
// rejected before any upstream call happens.
func (h *APIHandler) EnrollmentSheet(w http.ResponseWriter, r *http.Request) {
	var req models.DocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	dni := strings.TrimSpace(req.DNI)
	if dni == "" {
		h.writeError(w, "DNI is required", http.StatusBadRequest)
		return
	}
	if !dniPattern.MatchString(dni) {
		h.writeError(w, "DNI must be exactly 8 digits", http.StatusBadRequest)
		return
	}

	h.logger.WithField("dni", dni).Info("Looking up student enrollment sheet")

	records, err := h.fetchStudents(r.Context())
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if len(records) == 0 {
		h.writeError(w, "No student data available", http.StatusNotFound)
		return
	}

	student := lookup.FindByDocument(records, dni)
	if student == nil {
		h.writeError(w, "Student not found", http.StatusNotFound)
		return
	}

	sheet, err := h.sheets.ResolveDownload(r.Context(), student)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.logger.WithField("download_url", sheet.DownloadURL).Info("Enrollment sheet resolved")
	h.writeJSON(w, sheet)
}

// ManualLogin overwrites the standing credential pair and forces a fresh
// portal login.
func (h *APIHandler) ManualLogin(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, "Invalid JSON format", http.StatusBadRequest)
		return
	}

	h.logger.Info("Processing manual login request")

	h.sessions.SetCredentials(req.Email, req.Password)

	if err := h.sessions.Login(r.Context()); err != nil {
		h.metrics.PortalLoginsTotal.WithLabelValues("failure").Inc()
		h.logger.WithError(err).Warn("Manual login failed")
		h.writeError(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.metrics.PortalLoginsTotal.WithLabelValues("success").Inc()

	_, _, establishedAt := h.sessions.Snapshot()
	h.writeJSON(w, &models.LoginResponse{
		Message:   "Login successful",
		Timestamp: establishedAt.Format(time.RFC3339),
	})
}

// ClearCache empties both statistics slots and drops the portal session.
// It always answers 200: clearing nothing is still cleared.
func (h *APIHandler) ClearCache(w http.ResponseWriter, _ *http.Request) {
	h.store.ClearAll()
	h.writeJSON(w, map[string]string{"message": "Cache and session cleared"})
}

// Status serves a diagnostic snapshot of cache and session validity.
func (h *APIHandler) Status(w http.ResponseWriter, _ *http.Request) {
	cookies, csrfToken, establishedAt := h.sessions.Snapshot()
	studentsValid, studentsAt := h.store.Snapshot(cache.Students)
	seatsValid, seatsAt := h.store.Snapshot(cache.Seats)

	response := &models.StatusResponse{
		Status:                 "online",
		CacheValid:             studentsValid,
		SeatsCacheValid:        seatsValid,
		Authenticated:          cookies != "",
		SessionExpired:         h.sessions.IsExpired(),
		HasCSRFToken:           csrfToken != "",
		CacheDurationSeconds:   int(h.cfg.Cache.Duration.Seconds()),
		SessionDurationSeconds: int(h.cfg.Portal.SessionDuration.Seconds()),
		Environment: map[string]any{
			"has_email":    h.sessions.HasEmail(),
			"has_password": h.sessions.HasPassword(),
			"base_url":     h.cfg.Portal.BaseURL,
			"vacantes_url": h.cfg.Portal.SeatListURL(),
		},
	}

	if !studentsAt.IsZero() {
		response.CacheTimestamp = studentsAt.Format(time.RFC3339)
	}
	if !seatsAt.IsZero() {
		response.SeatsCacheTimestamp = seatsAt.Format(time.RFC3339)
	}
	if !establishedAt.IsZero() {
		response.SessionTimestamp = establishedAt.Format(time.RFC3339)
	}

	h.writeJSON(w, response)
}

// fetchStudents runs the retry-wrapped student list fetch and records the
// outcome metric.
func (h *APIHandler) fetchStudents(ctx context.Context) ([]models.Record, error) {
	records, err := h.retrier.Do(ctx, "students", h.fetcher.FetchStudents)
	h.metrics.PortalFetchesTotal.WithLabelValues("students", fetchOutcome(err)).Inc()
	return records, err
}

// fetchSeats runs the retry-wrapped seat list fetch and records the
// outcome metric.
func (h *APIHandler) fetchSeats(ctx context.Context) ([]models.Record, error) {
	records, err := h.retrier.Do(ctx, "seats", h.fetcher.FetchSeats)
	h.metrics.PortalFetchesTotal.WithLabelValues("seats", fetchOutcome(err)).Inc()
	return records, err
}

// writeDomainError maps domain failures onto HTTP responses: portal errors
// carry their own status, caller-input failures map to 400/404, anything
// else is an internal error.
func (h *APIHandler) writeDomainError(w http.ResponseWriter, err error) {
	var portalErr *models.PortalError
	if errors.As(err, &portalErr) {
		message := portalErr.Message
		if portalErr.StatusCode >= http.StatusInternalServerError {
			message = internalServerError
		}
		h.writeError(w, message, portalErr.StatusCode)
		return
	}

	var validationErr *models.ValidationError
	if errors.As(err, &validationErr) {
		h.writeError(w, validationErr.Error(), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, models.ErrNotFound):
		h.writeError(w, "Record not found", http.StatusNotFound)
	case errors.Is(err, models.ErrMissingIdentifier):
		h.writeError(w, "Could not determine the student record identifier", http.StatusBadRequest)
	default:
		h.logger.WithError(err).Error("Unhandled error in API handler")
		h.writeError(w, internalServerError, http.StatusInternalServerError)
	}
}

func (h *APIHandler) writeJSON(w http.ResponseWriter, data any) {
	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.WithError(err).Error("Failed to encode JSON response")
	}
}

func (h *APIHandler) writeError(w http.ResponseWriter, message string, statusCode int) {
	errorResponse := map[string]any{
		"error":             http.StatusText(statusCode),
		"error_description": message,
	}

	w.Header().Set(constants.HeaderContentType, constants.ContentTypeJSON)
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(errorResponse); err != nil {
		h.logger.WithError(err).Error("Failed to encode error response")
	}

	h.logger.WithFields(logrus.Fields{
		"status_code": statusCode,
		"error":       message,
	}).Warn("Error response sent")
}

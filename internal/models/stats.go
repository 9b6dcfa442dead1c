package models

import "time"

// AggregatedStats is the cross-tabulated count breakdown produced by the
// aggregator. JSON field names match the original dashboard API so existing
// frontends keep working.
type AggregatedStats struct {
	// Total is the record count for student stats or the summed seat
	// quantity for seat stats.
	Total int `json:"total"`
	// ByArea maps area name to count.
	ByArea map[string]int `json:"por_area"`
	// BySite maps site name to count.
	BySite map[string]int `json:"por_sede"`
	// ByShift maps shift name to count.
	ByShift map[string]int `json:"por_turno"`
	// BySiteShift maps "site - shift" to count.
	BySiteShift map[string]int `json:"por_sede_turno"`
	// Detail is the three-level area -> site -> shift -> count breakdown.
	Detail map[string]map[string]map[string]int `json:"detalle_completo"`
	// LastUpdated is when the aggregation ran.
	LastUpdated string `json:"ultimo_update"`
}

// NewEmptyStats returns a zero-valued stats payload with allocated maps,
// served when the portal returns no records.
func NewEmptyStats() *AggregatedStats {
	return &AggregatedStats{
		ByArea:      map[string]int{},
		BySite:      map[string]int{},
		ByShift:     map[string]int{},
		BySiteShift: map[string]int{},
		Detail:      map[string]map[string]map[string]int{},
		LastUpdated: time.Now().Format(time.RFC3339),
	}
}

// RawListResponse is the uncached passthrough payload for the
// "completos" endpoints.
type RawListResponse struct {
	Total     int      `json:"total"`
	Data      []Record `json:"data"`
	Timestamp string   `json:"timestamp"`
}

// LoginRequest is the manual-login request body. The credential pair
// replaces the standing global pair before a fresh portal login runs.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is returned after a successful manual login.
type LoginResponse struct {
	Message   string `json:"message"`
	Timestamp string `json:"timestamp,omitempty"`
}

// DocumentRequest is the enrollment-sheet request body.
type DocumentRequest struct {
	DNI string `json:"dni"`
}

// EnrollmentSheetResponse carries the one-time download URL for a student's
// enrollment sheet, the matched raw record, and the resolved token.
type EnrollmentSheetResponse struct {
	DownloadURL string `json:"download_url"`
	Student     Record `json:"estudiante"`
	Token       string `json:"token"`
}

// StatusResponse is the diagnostic snapshot served by /api/status.
// It reports state without mutating it.
type StatusResponse struct {
	Status                 string         `json:"status"`
	CacheValid             bool           `json:"cache_valid"`
	SeatsCacheValid        bool           `json:"vacantes_cache_valid"`
	Authenticated          bool           `json:"authenticated"`
	SessionExpired         bool           `json:"session_expired"`
	HasCSRFToken           bool           `json:"has_csrf_token"`
	CacheTimestamp         string         `json:"cache_timestamp,omitempty"`
	SeatsCacheTimestamp    string         `json:"vacantes_cache_timestamp,omitempty"`
	SessionTimestamp       string         `json:"session_timestamp,omitempty"`
	CacheDurationSeconds   int            `json:"cache_duration_seconds"`
	SessionDurationSeconds int            `json:"session_duration_seconds"`
	Environment            map[string]any `json:"environment_vars"`
}

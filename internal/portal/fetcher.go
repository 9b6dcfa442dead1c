package portal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
	"github.com/edwingoed13/c3pr3-2025-2/internal/constants"
	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
)

// errBodySnippetLen caps how much of an upstream error body is logged and
// carried in the error message.
const errBodySnippetLen = 200

// Fetcher performs authenticated requests against the portal's list and
// token endpoints. Every operation ensures a valid session first and
// translates auth-rejection statuses into the error kinds the retry layer
// dispatches on.
type Fetcher struct {
	cfg      *config.PortalConfig
	sessions *SessionManager
	logger   *logrus.Logger

	// listClient carries the longer list-fetch timeout, tokenClient the
	// shorter login/token timeout.
	listClient  *http.Client
	tokenClient *http.Client
}

// NewFetcher creates a Fetcher bound to the given session manager.
func NewFetcher(cfg *config.PortalConfig, sessions *SessionManager, logger *logrus.Logger) *Fetcher {
	return &Fetcher{
		cfg:         cfg,
		sessions:    sessions,
		logger:      logger,
		listClient:  &http.Client{Timeout: cfg.ListTimeout},
		tokenClient: &http.Client{Timeout: cfg.LoginTimeout},
	}
}

// listParams returns the standard query parameters the portal's Vue table
// backend expects.
func listParams(limit int) url.Values {
	params := url.Values{}
	params.Set("query", "{}")
	params.Set("limit", strconv.Itoa(limit))
	params.Set("ascending", "1")
	params.Set("page", "1")
	params.Set("byColumn", "1")
	return params
}

// FetchStudents retrieves the enrolled-student list.
func (f *Fetcher) FetchStudents(ctx context.Context) ([]models.Record, error) {
	return f.fetchList(ctx, f.cfg.StudentListURL(), f.cfg.StudentListReferer(), f.cfg.StudentListLimit, true)
}

// FetchSeats retrieves the available-seat list.
func (f *Fetcher) FetchSeats(ctx context.Context) ([]models.Record, error) {
	return f.fetchList(ctx, f.cfg.SeatListURL(), f.cfg.SeatListReferer(), f.cfg.SeatListLimit, false)
}

// fetchList performs an authenticated list GET and unwraps the response
// envelope into a flat record list. studentsKey enables the legacy
// "students" envelope only used by the student endpoint.
func (f *Fetcher) fetchList(
	ctx context.Context,
	endpoint, referer string,
	limit int,
	studentsKey bool,
) ([]models.Record, error) {
	if err := f.sessions.Ensure(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create list request: %w", err)
	}
	req.URL.RawQuery = listParams(limit).Encode()
	f.setAuthHeaders(req, referer)

	f.logger.WithField("endpoint", endpoint).Debug("Fetching portal list")

	resp, err := f.listClient.Do(req)
	if err != nil {
		return nil, f.classifyTransport(err, endpoint)
	}
	defer resp.Body.Close()

	if err := f.checkStatus(resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, models.NewBadResponse("failed to read portal response: " + err.Error())
	}

	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		f.logger.WithError(err).Error("Portal list response is not valid JSON")
		return nil, models.NewBadResponse("portal returned a non-JSON body")
	}

	records := f.unwrapEnvelope(payload, studentsKey)
	f.logger.WithFields(logrus.Fields{
		"endpoint": endpoint,
		"records":  len(records),
	}).Info("Portal list fetched")

	return records, nil
}

// unwrapEnvelope normalizes the portal's heterogeneous list envelopes into
// a flat record slice: a "data" key, the legacy "students" key, a bare
// array, or (with a warning) nothing.
func (f *Fetcher) unwrapEnvelope(payload any, studentsKey bool) []models.Record {
	switch v := payload.(type) {
	case map[string]any:
		if items, ok := v["data"].([]any); ok {
			return toRecords(items)
		}
		if studentsKey {
			if items, ok := v["students"].([]any); ok {
				return toRecords(items)
			}
		}
	case []any:
		return toRecords(v)
	}

	f.logger.WithField("type", fmt.Sprintf("%T", payload)).Warn("Unexpected portal list envelope, treating as empty")
	return []models.Record{}
}

// toRecords converts decoded JSON items into records. Non-object items are
// kept as empty records so counts still line up; their fields all read as
// placeholders downstream.
func toRecords(items []any) []models.Record {
	records := make([]models.Record, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			records = append(records, models.Record(m))
		} else {
			records = append(records, models.Record(nil))
		}
	}
	return records
}

// FetchDownloadToken resolves the one-time download token for a record via
// the portal's encrypt endpoint. The token arrives as a JSON object with a
// "token" field, a bare JSON string, or a raw text body depending on the
// portal version.
func (f *Fetcher) FetchDownloadToken(ctx context.Context, recordID string) (string, error) {
	if err := f.sessions.Ensure(ctx); err != nil {
		return "", err
	}

	endpoint := f.cfg.EncryptURL(recordID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	f.setAuthHeaders(req, f.cfg.StudentListReferer())

	f.logger.WithField("record_id", recordID).Debug("Resolving download token")

	resp, err := f.tokenClient.Do(req)
	if err != nil {
		return "", f.classifyTransport(err, endpoint)
	}
	defer resp.Body.Close()

	if err := f.checkStatus(resp); err != nil {
		return "", err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewBadResponse("failed to read token response: " + err.Error())
	}

	token := parseToken(body)
	if token == "" {
		return "", models.NewBadResponse("portal returned an empty token")
	}

	return token, nil
}

// parseToken extracts the download token from the supported body shapes.
func parseToken(body []byte) string {
	var payload any
	if err := json.Unmarshal(body, &payload); err != nil {
		// Not JSON: the raw trimmed body is the token.
		return strings.TrimSpace(string(body))
	}

	switch v := payload.(type) {
	case map[string]any:
		if token, ok := v["token"].(string); ok {
			return token
		}
		return ""
	case string:
		return v
	default:
		return strings.TrimSpace(string(body))
	}
}

// setAuthHeaders attaches the session cookie header, the browser-like
// headers the portal expects, and the CSRF/XHR markers when a token is
// held.
func (f *Fetcher) setAuthHeaders(req *http.Request, referer string) {
	cookies, csrfToken, _ := f.sessions.Snapshot()

	req.Header.Set(constants.HeaderUserAgent, constants.BrowserUserAgent)
	req.Header.Set(constants.HeaderAccept, constants.AcceptJSON)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set(constants.HeaderReferer, referer)
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set(constants.HeaderCookie, cookies)

	if csrfToken != "" {
		req.Header.Set(constants.HeaderXCSRFToken, csrfToken)
		req.Header.Set(constants.HeaderXRequestedWith, constants.XMLHTTPRequest)
	}
}

// checkStatus translates error statuses: 401/403/419 mark the session
// expired and raise an auth error so the retry layer re-authenticates;
// any other >= 400 raises a generic upstream error.
func (f *Fetcher) checkStatus(resp *http.Response) error {
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden, statusPageExpired:
		f.logger.WithField("status", resp.StatusCode).Warn("Portal rejected the session")
		f.sessions.MarkExpired()
		return models.NewAuthExpired(resp.StatusCode)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		snippet := readSnippet(resp.Body, errBodySnippetLen)
		f.logger.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"body":   snippet,
		}).Error("Portal returned an error status")
		return models.NewUpstreamHTTP(resp.StatusCode, snippet)
	}

	return nil
}

// statusPageExpired is Laravel's 419 "Page Expired" status for stale CSRF
// tokens. net/http has no constant for it.
const statusPageExpired = 419

// classifyTransport distinguishes timeouts from other transport failures.
func (f *Fetcher) classifyTransport(err error, endpoint string) error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		f.logger.WithField("endpoint", endpoint).Error("Portal request timed out")
		return models.NewTimeout(err)
	}

	f.logger.WithError(err).WithField("endpoint", endpoint).Error("Portal request failed")
	return fmt.Errorf("portal request failed: %w", err)
}

// readSnippet reads at most n bytes from r for error reporting.
func readSnippet(r io.Reader, n int) string {
	buf := make([]byte, n)
	read, _ := io.ReadFull(r, buf)
	return string(buf[:read])
}

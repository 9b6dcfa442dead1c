// Package portal implements the authenticated client for the CEPREUNA
// intranet: session establishment and expiry, list and token fetches, and
// the retry orchestration that re-authenticates on session loss.
package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edwingoed13/c3pr3-2025-2/internal/config"
	"github.com/edwingoed13/c3pr3-2025-2/internal/constants"
	"github.com/edwingoed13/c3pr3-2025-2/internal/models"
)

// sessionCookieName is the cookie the Laravel portal issues for an
// authenticated session. Its absence after login is suspicious but not
// fatal: the portal has renamed it before.
const sessionCookieName = "laravel_session"

// csrfPatterns are tried in order against the login page HTML; the first
// match wins. The portal has served the token as a meta tag, a hidden form
// field, and inline JSON at different times.
var csrfPatterns = []*regexp.Regexp{
	regexp.MustCompile(`<meta name="csrf-token" content="([^"]+)"`),
	regexp.MustCompile(`name="_token" value="([^"]+)"`),
	regexp.MustCompile(`"_token":"([^"]+)"`),
}

// extractCSRFToken returns the first CSRF token found in the login page
// HTML, or an empty string when none of the known shapes match.
func extractCSRFToken(html string) string {
	for _, pattern := range csrfPatterns {
		if m := pattern.FindStringSubmatch(html); m != nil {
			return m[1]
		}
	}
	return ""
}

// session is the authenticated cookie/token bundle plus its establishment
// time. A session is either fully absent or fully populated; partial states
// are never stored.
type session struct {
	// cookies is the merged cookie set flattened into a single
	// "k=v; k2=v2" header value.
	cookies string
	// csrfToken is the token extracted from the login page, if any.
	csrfToken string
	// establishedAt is when the login completed.
	establishedAt time.Time
}

// SessionManager owns the portal session and the standing credential pair.
// It performs logins, judges session validity, and hands out the headers
// the fetch paths need. All state is guarded by a single mutex; concurrent
// requests observe the same session and the last writer wins.
type SessionManager struct {
	mu       sync.Mutex
	cfg      *config.PortalConfig
	email    string
	password string
	current  session
	logger   *logrus.Logger

	// newClient builds the short-lived login HTTP client. Overridable so
	// tests can point the manager at an httptest server.
	newClient func(jar http.CookieJar) *http.Client
}

// NewSessionManager creates a SessionManager seeded with the configured
// credential pair.
func NewSessionManager(cfg *config.PortalConfig, logger *logrus.Logger) *SessionManager {
	m := &SessionManager{
		cfg:      cfg,
		email:    cfg.Email,
		password: cfg.Password,
		logger:   logger,
	}
	m.newClient = func(jar http.CookieJar) *http.Client {
		return &http.Client{
			Jar:     jar,
			Timeout: cfg.LoginTimeout,
		}
	}
	return m
}

// SetCredentials overwrites the standing credential pair and fully clears
// the session so the next operation logs in fresh.
func (m *SessionManager) SetCredentials(email, password string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.email = email
	m.password = password
	m.current = session{}
}

// HasCredentials reports whether a credential pair is configured.
func (m *SessionManager) HasCredentials() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.email != "" && m.password != ""
}

// HasEmail reports whether an email is currently held, counting manual
// overrides.
func (m *SessionManager) HasEmail() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.email != ""
}

// HasPassword reports whether a password is currently held, counting manual
// overrides.
func (m *SessionManager) HasPassword() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.password != ""
}

// IsExpired reports whether the session is past its validity window. A
// session without a timestamp is always expired.
func (m *SessionManager) IsExpired() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.expiredLocked()
}

func (m *SessionManager) expiredLocked() bool {
	if m.current.establishedAt.IsZero() {
		return true
	}
	return time.Since(m.current.establishedAt) > m.cfg.SessionDuration
}

// MarkExpired resets only the session timestamp, forcing the next validity
// check to fail while leaving the cookie bundle in place. This mirrors the
// weaker invalidation performed when a fetch observes an auth-rejection
// status; the full clear happens in the retry path.
func (m *SessionManager) MarkExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current.establishedAt = time.Time{}
}

// Invalidate clears the whole session: cookies, CSRF token, and timestamp.
func (m *SessionManager) Invalidate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.current = session{}
}

// Snapshot returns the current cookie header, CSRF token, and establishment
// time without mutating anything.
func (m *SessionManager) Snapshot() (cookies, csrfToken string, establishedAt time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.current.cookies, m.current.csrfToken, m.current.establishedAt
}

// Ensure guarantees a usable session, logging in when the session is absent
// or expired. It returns an auth-classified error when login fails so the
// retry layer handles it like any other session loss.
func (m *SessionManager) Ensure(ctx context.Context) error {
	m.mu.Lock()
	needsLogin := m.current.cookies == "" || m.expiredLocked()
	m.mu.Unlock()

	if !needsLogin {
		return nil
	}

	m.logger.Info("Session absent or expired, logging in to portal")
	return m.Login(ctx)
}

// Login performs the two-step portal login: fetch the login page to collect
// the CSRF token and initial cookies, then POST the credentials. On success
// the merged cookie set, the token, and the establishment time are stored
// atomically. Credential rejection and transport failure both surface as an
// auth-classified error; the previous session is cleared either way.
func (m *SessionManager) Login(ctx context.Context) error {
	m.mu.Lock()
	email, password := m.email, m.password
	// Clear any previous session before attempting a new login.
	m.current = session{}
	m.mu.Unlock()

	m.logger.Info("Starting portal login")

	jar, err := cookiejar.New(nil)
	if err != nil {
		return models.NewLoginFailed(fmt.Errorf("failed to create cookie jar: %w", err))
	}
	client := m.newClient(jar)

	csrfToken, err := m.fetchLoginPage(ctx, client)
	if err != nil {
		return err
	}

	status, err := m.postCredentials(ctx, client, email, password, csrfToken)
	if err != nil {
		return err
	}

	if status != http.StatusOK && status != http.StatusMovedPermanently && status != http.StatusFound {
		m.logger.WithField("status", status).Error("Portal login rejected")
		return models.NewLoginFailed(fmt.Errorf("login returned status %d", status))
	}

	cookieHeader, names := flattenCookies(jar, m.cfg.BaseURL)
	if cookieHeader == "" {
		m.logger.Error("Portal login produced no cookies")
		return models.NewLoginFailed(fmt.Errorf("no cookies received from login"))
	}

	hasSessionCookie := false
	for _, name := range names {
		if name == sessionCookieName {
			hasSessionCookie = true
			break
		}
	}
	if !hasSessionCookie {
		m.logger.WithField("cookies", names).Warn("Well-known session cookie missing from login response")
	}

	m.mu.Lock()
	m.current = session{
		cookies:       cookieHeader,
		csrfToken:     csrfToken,
		establishedAt: time.Now(),
	}
	m.mu.Unlock()

	m.logger.WithFields(logrus.Fields{
		"cookies":    names,
		"csrf_token": csrfToken != "",
	}).Info("Portal login succeeded")

	return nil
}

// fetchLoginPage loads the portal login page and extracts the CSRF token.
// Token absence is tolerated; the login proceeds without it.
func (m *SessionManager) fetchLoginPage(ctx context.Context, client *http.Client) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.LoginURL(), nil)
	if err != nil {
		return "", models.NewLoginFailed(fmt.Errorf("failed to create login page request: %w", err))
	}

	req.Header.Set(constants.HeaderUserAgent, constants.BrowserUserAgent)
	req.Header.Set(constants.HeaderAccept, constants.AcceptHTML)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := client.Do(req)
	if err != nil {
		m.logger.WithError(err).Error("Failed to load portal login page")
		return "", models.NewLoginFailed(fmt.Errorf("failed to load login page: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return "", models.NewLoginFailed(fmt.Errorf("login page returned status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", models.NewLoginFailed(fmt.Errorf("failed to read login page: %w", err))
	}

	token := extractCSRFToken(string(body))
	if token == "" {
		m.logger.Warn("No CSRF token found in login page HTML")
	} else {
		m.logger.Debug("CSRF token extracted from login page")
	}

	return token, nil
}

// postCredentials submits the form-encoded login request with the collected
// cookies attached (via the shared jar) and returns the final status code.
func (m *SessionManager) postCredentials(
	ctx context.Context,
	client *http.Client,
	email, password, csrfToken string,
) (int, error) {
	form := url.Values{}
	form.Set("email", email)
	form.Set("password", password)
	if csrfToken != "" {
		form.Set("_token", csrfToken)
	}

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		m.cfg.LoginURL(),
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return 0, models.NewLoginFailed(fmt.Errorf("failed to create login request: %w", err))
	}

	req.Header.Set(constants.HeaderUserAgent, constants.BrowserUserAgent)
	req.Header.Set(constants.HeaderAccept, constants.AcceptHTML)
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
	req.Header.Set(constants.HeaderContentType, constants.ContentTypeFormURLEncoded)
	req.Header.Set(constants.HeaderOrigin, m.cfg.BaseURL)
	req.Header.Set(constants.HeaderReferer, m.cfg.LoginURL())
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	if csrfToken != "" {
		req.Header.Set(constants.HeaderXCSRFToken, csrfToken)
	}

	resp, err := client.Do(req)
	if err != nil {
		m.logger.WithError(err).Error("Portal login request failed")
		return 0, models.NewLoginFailed(fmt.Errorf("login request failed: %w", err))
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, resp.Body)

	m.logger.WithField("status", resp.StatusCode).Debug("Portal login response received")

	return resp.StatusCode, nil
}

// flattenCookies renders the jar's cookies for the portal base URL into a
// single "k=v; k2=v2" header value, returning the cookie names alongside.
// The jar already merged the login-page and login-response cookies, with
// the response values overriding the initial ones.
func flattenCookies(jar http.CookieJar, baseURL string) (header string, names []string) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", nil
	}

	pairs := make([]string, 0, 4)
	for _, c := range jar.Cookies(u) {
		pairs = append(pairs, c.Name+"="+c.Value)
		names = append(names, c.Name)
	}

	return strings.Join(pairs, "; "), names
}

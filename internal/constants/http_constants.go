// Package constants contains shared HTTP header names and
// common content type strings used across the service.
package constants

// Header names commonly used across the application.
const (
	// HeaderAccept is the HTTP "Accept" header name.
	HeaderAccept = "Accept"

	// HeaderContentType is the HTTP "Content-Type" header name.
	HeaderContentType = "Content-Type"

	// HeaderCookie is the HTTP "Cookie" header name.
	HeaderCookie = "Cookie"

	// HeaderOrigin is the HTTP "Origin" header name.
	HeaderOrigin = "Origin"

	// HeaderReferer is the HTTP "Referer" header name.
	HeaderReferer = "Referer"

	// HeaderUserAgent is the HTTP "User-Agent" header name.
	HeaderUserAgent = "User-Agent"

	// HeaderXRequestID is the custom request ID header name.
	HeaderXRequestID = "X-Request-ID"

	// HeaderXCSRFToken carries the portal CSRF token on authenticated requests.
	HeaderXCSRFToken = "X-CSRF-TOKEN"

	// HeaderXRequestedWith marks requests as XHR for the portal backend.
	HeaderXRequestedWith = "X-Requested-With"
)

// Common media / content types used in requests and responses.
const (
	// ContentTypeJSON represents "application/json".
	ContentTypeJSON = "application/json"

	// ContentTypeFormURLEncoded represents
	// "application/x-www-form-urlencoded".
	ContentTypeFormURLEncoded = "application/x-www-form-urlencoded"
)

// Browser-like header values sent to the upstream portal. The portal serves
// a Laravel application that rejects requests without them.
const (
	// BrowserUserAgent is the User-Agent presented to the portal.
	BrowserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// AcceptHTML is the Accept value for the login page request.
	AcceptHTML = "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8"

	// AcceptJSON is the Accept value for portal data requests.
	AcceptJSON = "application/json, text/plain, */*"

	// XMLHTTPRequest is the X-Requested-With value marking XHR calls.
	XMLHTTPRequest = "XMLHttpRequest"
)

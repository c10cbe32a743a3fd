package constants

import (
	"time"
)

// Application identity
const (
	// AppName - binary and config directory name
	AppName = "proofback"

	// DefaultPlatformURL - production Proofback platform
	DefaultPlatformURL = "https://app.proofback.io"

	// APIBasePath - versioned base path for all API calls
	APIBasePath = "/api/v1"

	// TokenEnvVar - environment variable checked as the lowest-priority token source
	TokenEnvVar = "PROOFBACK_API_TOKEN"
)

// Upload limits (enforced locally, before any network call)
const (
	// MaxUploadSize - hard cap on backup file size (100 MiB)
	MaxUploadSize = 100 * 1024 * 1024
)

// AllowedUploadExtensions - backup file extensions accepted for submission.
// Lowercase, compared case-insensitively.
var AllowedUploadExtensions = []string{".sql", ".dump", ".backup"}

// Pagination
const (
	// TestRunPageSize - fixed page size for test-run history queries
	TestRunPageSize = 10
)

// Per-entity status settle windows
const (
	// StatusClearDelay - how long success/error tags stay on a setting key or
	// user row before auto-clearing. A newer action on the same entity cancels
	// the pending clear.
	StatusClearDelay = 3 * time.Second
)

// Retry configuration for the API client
const (
	// APIRetryMax - retry attempts for transient transport failures
	APIRetryMax = 4

	// APIRetryWaitMin - initial retry backoff
	APIRetryWaitMin = 1 * time.Second

	// APIRetryWaitMax - backoff cap
	APIRetryWaitMax = 15 * time.Second
)

// API and context timeouts
const (
	// APIContextTimeout - default timeout for API operations (30 seconds)
	APIContextTimeout = 30 * time.Second

	// APIConnectionTestTimeout - timeout for validating a stored token on startup
	APIConnectionTestTimeout = 10 * time.Second
)

// HTTP client timeouts
const (
	// HTTPIdleConnTimeout - how long to keep idle connections open (90 seconds)
	HTTPIdleConnTimeout = 90 * time.Second

	// HTTPTLSHandshakeTimeout - timeout for TLS handshake (60 seconds)
	HTTPTLSHandshakeTimeout = 60 * time.Second

	// HTTPExpectContinueTimeout - timeout for 100-continue response (1 second)
	HTTPExpectContinueTimeout = 1 * time.Second

	// HTTPDialTimeout - timeout for establishing connection (30 seconds)
	HTTPDialTimeout = 30 * time.Second

	// HTTPDialKeepAlive - keep-alive period for dialer (30 seconds)
	HTTPDialKeepAlive = 30 * time.Second
)

// Event system
const (
	// EventBusDefaultBuffer - default buffer size for event channels
	EventBusDefaultBuffer = 1000

	// EventBusMaxBuffer - maximum buffer size for high-throughput scenarios
	EventBusMaxBuffer = 5000
)

// UI updates
const (
	// ProgressUpdateInterval - refresh rate for progress bars
	ProgressUpdateInterval = 250 * time.Millisecond
)

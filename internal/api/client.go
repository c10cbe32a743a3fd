package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	nethttp "net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"

	"github.com/proofback/proofback-cli/internal/config"
	"github.com/proofback/proofback-cli/internal/constants"
	"github.com/proofback/proofback-cli/internal/http"
	"github.com/proofback/proofback-cli/internal/logging"
	"github.com/proofback/proofback-cli/internal/session"
)

// retryLogger adapts zerolog to the retryablehttp.LeveledLogger interface.
// Info and Debug are suppressed; retries are only interesting when they fail.
type retryLogger struct {
	log zerolog.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(fieldMap(keysAndValues)).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{})  {}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {}

func fieldMap(keysAndValues []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		if k, ok := keysAndValues[i].(string); ok {
			m[k] = keysAndValues[i+1]
		}
	}
	return m
}

// Client talks to the Proofback platform API. All methods take a context and
// return typed models; HTTP details never leak past this package.
//
// Reads go through a retrying client; mutations use the plain client so a
// flaky network can never double-submit an upload or a roster action.
type Client struct {
	readClient   *nethttp.Client
	mutateClient *nethttp.Client
	baseURL      string
	session      *session.Session
	log          zerolog.Logger
}

// NewClient builds a client from the resolved configuration and session.
// Transient transport failures on read requests are retried with backoff;
// mutations are never replayed automatically.
func NewClient(cfg *config.Config, sess *session.Session) (*Client, error) {
	if strings.TrimSpace(cfg.PlatformURL) == "" {
		return nil, fmt.Errorf("cannot create API client: platform URL is empty (check config)")
	}

	httpClient, err := http.ConfigureHTTPClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to configure HTTP client: %w", err)
	}

	logger := logging.NewDefaultLogger().With().Str("component", "api").Logger()

	retryClient := retryablehttp.NewClient()
	retryClient.HTTPClient = httpClient
	retryClient.RetryMax = constants.APIRetryMax
	retryClient.RetryWaitMin = constants.APIRetryWaitMin
	retryClient.RetryWaitMax = constants.APIRetryWaitMax
	retryClient.Logger = &retryLogger{log: logger}

	return &Client{
		readClient:   retryClient.StandardClient(),
		mutateClient: httpClient,
		baseURL:      strings.TrimSuffix(cfg.PlatformURL, "/") + constants.APIBasePath,
		session:      sess,
		log:          logger,
	}, nil
}

// doRequest performs an authenticated request. A 401 response invalidates the
// session before the error is returned, so no later call can reuse the stale
// token; once that happens every call fails here without touching the network.
func (c *Client) doRequest(ctx context.Context, method, path string, body interface{}) (*nethttp.Response, error) {
	if c.session.Expired() {
		return nil, newAPIError(nethttp.StatusUnauthorized, "session expired or token revoked")
	}

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := nethttp.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	httpClient := c.mutateClient
	switch method {
	case nethttp.MethodGet, nethttp.MethodHead:
		httpClient = c.readClient
	}

	start := time.Now()
	resp, err := httpClient.Do(req)
	if err != nil {
		c.log.Error().Str("method", method).Str("path", path).Err(err).Msg("API call failed")
		return nil, fmt.Errorf("request failed: %w", err)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("API call")

	if resp.StatusCode == nethttp.StatusUnauthorized {
		resp.Body.Close()
		c.session.Invalidate()
		return nil, newAPIError(resp.StatusCode, "session expired or token revoked")
	}

	return resp, nil
}

// decodeResponse consumes resp, mapping non-2xx statuses to the error
// taxonomy and decoding the body into out (which may be nil for mutations
// whose response body is ignored).
func decodeResponse(resp *nethttp.Response, out interface{}) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, readErrorMessage(resp.Body))
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// readErrorMessage extracts the server's error detail. The API wraps errors
// as {"error": "..."} or {"detail": "..."}; fall back to the raw body.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(data) == 0 {
		return ""
	}
	var wrapper struct {
		Error  string `json:"error"`
		Detail string `json:"detail"`
	}
	if json.Unmarshal(data, &wrapper) == nil {
		if wrapper.Error != "" {
			return wrapper.Error
		}
		if wrapper.Detail != "" {
			return wrapper.Detail
		}
	}
	return strings.TrimSpace(string(data))
}

// get is the common GET-and-decode path.
func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	resp, err := c.doRequest(ctx, nethttp.MethodGet, path, nil)
	if err != nil {
		return err
	}
	return decodeResponse(resp, out)
}

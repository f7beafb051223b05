// Package crm is the typed HTTP client for the CRM backend API.
//
// Every service in this package goes through Client.do, which attaches the
// session's bearer token, maps backend failures onto domain error codes and
// records per-operation metrics. Handlers never touch net/http responses
// directly.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"crmweb/internal/auth"
	"crmweb/internal/domain"
	"crmweb/internal/metrics"
)

// Client wraps the backend API base URL and shared HTTP transport.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a backend API client.
//
// Parameters:
// - baseURL: Absolute base URL of the backend API (no trailing slash)
// - timeout: Per-request timeout applied on top of the request context
// - logger: Structured logger for request logging
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// apiError is the error body shape returned by the backend.
type apiError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do performs a single backend request.
//
// op names the logical operation ("contact.list") and doubles as the
// metrics label after splitting on the dot. body is JSON-encoded when
// non-nil; out is JSON-decoded from the response when non-nil.
//
// Error mapping:
// - network failure or context cancellation: EUNAVAILABLE
// - 401: EUNAUTHORIZED (session token no longer accepted)
// - 404: ENOTFOUND
// - 400/422: EINVALID with the backend's message when present
// - any other non-2xx: EUNAVAILABLE
func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	service, operation, _ := strings.Cut(op, ".")
	start := time.Now()

	var reqBody io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return domain.Internal(err, op, "Failed to encode request")
		}
		reqBody = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return domain.Internal(err, op, "Failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := auth.Token(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.APIRequestsTotal.WithLabelValues(service, operation, "error").Inc()
		c.logger.Error("backend request failed", "op", op, "method", method, "path", path, "error", err)
		return domain.Unavailable(err, op, "The CRM service is currently unavailable")
	}
	defer resp.Body.Close()

	metrics.APIRequestsTotal.WithLabelValues(service, operation, fmt.Sprintf("%d", resp.StatusCode)).Inc()
	metrics.APIRequestDuration.WithLabelValues(service, operation).Observe(time.Since(start).Seconds())

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return domain.Internal(err, op, "Failed to decode response")
		}
		return nil
	}

	// Read a bounded amount of the error body; backends are not trusted
	// to keep error payloads small.
	var backendMsg string
	if raw, err := io.ReadAll(io.LimitReader(resp.Body, 4096)); err == nil {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil {
			if apiErr.Message != "" {
				backendMsg = apiErr.Message
			} else {
				backendMsg = apiErr.Error
			}
		}
	}

	c.logger.Warn("backend request rejected",
		"op", op, "method", method, "path", path, "status", resp.StatusCode)

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.Unauthorized(op, "Your session has expired. Please log in again.")
	case http.StatusNotFound:
		return &domain.Error{Code: domain.ENOTFOUND, Op: op, Message: "The requested record was not found"}
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if backendMsg == "" {
			backendMsg = "The request was rejected by the CRM service"
		}
		return domain.Invalid(op, backendMsg)
	default:
		return domain.Unavailable(
			fmt.Errorf("unexpected status %d", resp.StatusCode),
			op, "The CRM service is currently unavailable")
	}
}

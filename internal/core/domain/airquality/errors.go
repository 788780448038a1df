package airquality

import (
	"fmt"
	"net/http"
)

// FailureKind classifies why an upstream lookup could not produce a report.
type FailureKind string

const (
	FailureTimeout        FailureKind = "timeout"
	FailureUnreachable    FailureKind = "unreachable"
	FailureNotFound       FailureKind = "not_found"
	FailureInvalidToken   FailureKind = "invalid_token"
	FailureUpstreamStatus FailureKind = "upstream_status"
	FailureRejected       FailureKind = "rejected"
	FailureMalformed      FailureKind = "malformed"
)

// ProviderError describes a failed upstream lookup. Detail is safe to show to
// API consumers; Err keeps the underlying cause for logs.
type ProviderError struct {
	Kind       FailureKind
	StatusCode int // upstream HTTP status, set for FailureUpstreamStatus
	Detail     string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("air quality lookup failed (%s): %s: %v", e.Kind, e.Detail, e.Err)
	}
	return fmt.Sprintf("air quality lookup failed (%s): %s", e.Kind, e.Detail)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// HTTPStatus maps the failure onto the status code served to API consumers.
// Upstream error statuses pass through unchanged; anything outside the error
// range degrades to 502 rather than serving a success code with an error body.
func (e *ProviderError) HTTPStatus() int {
	switch e.Kind {
	case FailureTimeout:
		return http.StatusGatewayTimeout
	case FailureUnreachable:
		return http.StatusServiceUnavailable
	case FailureNotFound:
		return http.StatusNotFound
	case FailureInvalidToken:
		return http.StatusForbidden
	case FailureUpstreamStatus:
		if e.StatusCode >= 400 && e.StatusCode <= 599 {
			return e.StatusCode
		}
		return http.StatusBadGateway
	case FailureRejected, FailureMalformed:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

package waqi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
	"github.com/aerolens/air-quality-api/internal/core/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the public WAQI feed endpoint.
const DefaultBaseURL = "https://api.waqi.info/feed/"

// DefaultTimeout bounds every upstream call. Calls are single-shot; there are
// no retries.
const DefaultTimeout = 10 * time.Second

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "aqi_upstream_requests_total",
		Help: "Upstream feed requests by outcome",
	}, []string{"outcome"})
	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "aqi_upstream_request_duration_seconds",
		Help:    "Upstream feed request duration in seconds",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	})
)

// Config holds WAQI client configuration.
type Config struct {
	APIToken string
	BaseURL  string
	Timeout  time.Duration
}

// Client implements ports.AirQualityProvider against the WAQI feed API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
	logger     *logrus.Logger
}

// NewClient creates a WAQI feed client. The API token is mandatory.
func NewClient(config Config, logger *logrus.Logger) (*Client, error) {
	if config.APIToken == "" {
		return nil, fmt.Errorf("waqi: API token is required")
	}
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("waqi: invalid base URL: %w", err)
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		token:      config.APIToken,
		logger:     logger,
	}, nil
}

// FetchByCity implements AirQualityProvider.FetchByCity.
func (c *Client) FetchByCity(ctx context.Context, city string) (json.RawMessage, error) {
	return c.fetch(ctx, url.PathEscape(city))
}

// FetchByCoords implements AirQualityProvider.FetchByCoords.
func (c *Client) FetchByCoords(ctx context.Context, lat, lon float64) (json.RawMessage, error) {
	target := fmt.Sprintf("geo:%s;%s", airquality.FormatCoord(lat), airquality.FormatCoord(lon))
	return c.fetch(ctx, target)
}

// feedResponse is the envelope every feed reply uses.
type feedResponse struct {
	Status string          `json:"status"`
	Data   json.RawMessage `json:"data"`
}

func (c *Client) fetch(ctx context.Context, target string) (json.RawMessage, error) {
	reqURL := fmt.Sprintf("%s%s/?token=%s", c.baseURL, target, url.QueryEscape(c.token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return nil, fmt.Errorf("waqi: build request for %q: %w", target, err)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	upstreamDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, c.fail(target, classifyTransportError(err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, c.fail(target, &airquality.ProviderError{
			Kind:   airquality.FailureNotFound,
			Detail: "city or location not found",
		})
	case resp.StatusCode == http.StatusForbidden:
		return nil, c.fail(target, &airquality.ProviderError{
			Kind:   airquality.FailureInvalidToken,
			Detail: "invalid or unauthorized API token",
		})
	case resp.StatusCode != http.StatusOK:
		return nil, c.fail(target, &airquality.ProviderError{
			Kind:       airquality.FailureUpstreamStatus,
			StatusCode: resp.StatusCode,
			Detail:     fmt.Sprintf("failed to fetch air quality data (upstream status %d)", resp.StatusCode),
		})
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, c.fail(target, classifyTransportError(err))
	}

	var feed feedResponse
	if err := json.Unmarshal(body, &feed); err != nil {
		return nil, c.fail(target, &airquality.ProviderError{
			Kind:   airquality.FailureMalformed,
			Detail: "invalid response from WAQI API",
			Err:    err,
		})
	}

	switch feed.Status {
	case "ok":
		upstreamRequests.WithLabelValues("ok").Inc()
		if c.logger != nil {
			c.logger.WithFields(logrus.Fields{"target": target}).Debug("upstream fetch succeeded")
		}
		if len(feed.Data) == 0 || string(feed.Data) == "null" {
			return json.RawMessage("{}"), nil
		}
		return feed.Data, nil
	case "error":
		return nil, c.fail(target, &airquality.ProviderError{
			Kind:   airquality.FailureRejected,
			Detail: rejectionDetail(feed.Data),
		})
	default:
		return nil, c.fail(target, &airquality.ProviderError{
			Kind:   airquality.FailureMalformed,
			Detail: "invalid response from WAQI API",
		})
	}
}

// fail records the outcome metric, logs the failure and hands the error back.
func (c *Client) fail(target string, perr *airquality.ProviderError) error {
	upstreamRequests.WithLabelValues(string(perr.Kind)).Inc()
	if c.logger != nil {
		c.logger.WithFields(logrus.Fields{
			"target": target,
			"kind":   string(perr.Kind),
		}).WithError(perr).Warn("upstream fetch failed")
	}
	return perr
}

// classifyTransportError separates timeouts from other transport failures.
// The *url.Error the HTTP client returns embeds the full request URL, token
// included, so only its cause is kept on the ProviderError.
func classifyTransportError(err error) *airquality.ProviderError {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		err = uerr.Err
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return &airquality.ProviderError{
			Kind:   airquality.FailureTimeout,
			Detail: "upstream request timeout",
			Err:    err,
		}
	}
	return &airquality.ProviderError{
		Kind:   airquality.FailureUnreachable,
		Detail: "connection to upstream failed",
		Err:    err,
	}
}

// rejectionDetail extracts the message the feed places in the data field of a
// status:"error" reply. The feed usually sends a bare string there.
func rejectionDetail(data json.RawMessage) string {
	var msg string
	if err := json.Unmarshal(data, &msg); err == nil && msg != "" {
		return msg
	}
	var obj struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Msg != "" {
		return obj.Msg
	}
	return "request rejected by WAQI API"
}

var _ ports.AirQualityProvider = (*Client)(nil)

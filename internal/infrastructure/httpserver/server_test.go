package httpserver_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/aerolens/air-quality-api/internal/application/services"
	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
	"github.com/aerolens/air-quality-api/internal/core/ports"
	"github.com/aerolens/air-quality-api/internal/infrastructure/httpserver"
	"github.com/aerolens/air-quality-api/internal/infrastructure/memory"
	"github.com/aerolens/air-quality-api/internal/infrastructure/waqi"
	"github.com/aerolens/air-quality-api/internal/testutil"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

type airQualityServiceMock struct {
	getByCityFn   func(ctx context.Context, city string) (*airquality.Report, error)
	getByCoordsFn func(ctx context.Context, lat, lon float64) (*airquality.Report, error)
}

func (m *airQualityServiceMock) GetByCity(ctx context.Context, city string) (*airquality.Report, error) {
	if m.getByCityFn != nil {
		return m.getByCityFn(ctx, city)
	}
	return &airquality.Report{Payload: json.RawMessage(`{"aqi": 10}`)}, nil
}

func (m *airQualityServiceMock) GetByCoords(ctx context.Context, lat, lon float64) (*airquality.Report, error) {
	if m.getByCoordsFn != nil {
		return m.getByCoordsFn(ctx, lat, lon)
	}
	return &airquality.Report{Payload: json.RawMessage(`{"aqi": 10}`)}, nil
}

func startServer(t *testing.T, config *httpserver.ServerConfig, deps httpserver.ServerDeps) *httptest.Server {
	t.Helper()
	if config == nil {
		config = &httpserver.ServerConfig{Host: "127.0.0.1", Port: "0", StaticDir: t.TempDir()}
	}
	srv := httpserver.NewServer(config, logrus.New(), deps)
	ts := httptest.NewServer(srv.Echo())
	t.Cleanup(ts.Close)
	return ts
}

func defaultDeps(svc ports.AirQualityService) httpserver.ServerDeps {
	stats := services.NewStatsService()
	return httpserver.ServerDeps{
		AirQualityService: svc,
		Stats:             stats,
		Cache:             memory.NewCache(time.Minute, stats),
	}
}

func getRaw(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func getJSON(t *testing.T, url string) (*http.Response, map[string]interface{}) {
	t.Helper()
	resp, body := getRaw(t, url)
	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(body, &decoded))
	return resp, decoded
}

func TestWelcomeEndpoint(t *testing.T) {
	ts := startServer(t, nil, defaultDeps(&airQualityServiceMock{}))

	resp, body := getJSON(t, ts.URL+"/api")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Welcome to the Air Quality Index API!", body["message"])
}

func TestHealthEndpointReportsCacheSize(t *testing.T) {
	stats := services.NewStatsService()
	cache := memory.NewCache(time.Minute, stats)
	cache.Set(airquality.CityKey("London"), json.RawMessage(`{"aqi": 1}`))
	ts := startServer(t, nil, httpserver.ServerDeps{
		AirQualityService: &airQualityServiceMock{},
		Stats:             stats,
		Cache:             cache,
	})

	resp, body := getJSON(t, ts.URL+"/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "healthy", body["status"])
	require.Equal(t, float64(1), body["cache_size"])

	stamp, ok := body["timestamp"].(string)
	require.True(t, ok)
	_, err := time.Parse(time.RFC3339, stamp)
	require.NoError(t, err)
}

func TestStatsEndpointReportsCountersAndHitRate(t *testing.T) {
	stats := services.NewStatsService()
	stats.RecordRequest()
	stats.RecordRequest()
	stats.RecordRequest()
	stats.RecordHit()
	stats.RecordMiss()
	stats.RecordMiss()
	stats.RecordError()
	ts := startServer(t, nil, httpserver.ServerDeps{
		AirQualityService: &airQualityServiceMock{},
		Stats:             stats,
		Cache:             memory.NewCache(time.Minute, stats),
	})

	resp, body := getJSON(t, ts.URL+"/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(3), body["total_requests"])
	require.Equal(t, float64(1), body["cache_hits"])
	require.Equal(t, float64(2), body["cache_misses"])
	require.Equal(t, float64(1), body["errors"])
	require.Equal(t, "33.3%", body["hit_rate"])
}

func TestCityEndpointReturnsPayloadVerbatim(t *testing.T) {
	var gotCity string
	svc := &airQualityServiceMock{
		getByCityFn: func(ctx context.Context, city string) (*airquality.Report, error) {
			gotCity = city
			return &airquality.Report{
				Payload: json.RawMessage(`{"aqi": 87, "city": {"name": "Los Angeles"}}`),
			}, nil
		},
	}
	ts := startServer(t, nil, defaultDeps(svc))

	resp, body := getRaw(t, ts.URL+"/api/air-quality/Los%20Angeles")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "miss", resp.Header.Get("X-Cache"))
	require.JSONEq(t, `{"aqi": 87, "city": {"name": "Los Angeles"}}`, string(body))
	require.Equal(t, "Los Angeles", gotCity)
}

func TestCityEndpointMarksCacheHits(t *testing.T) {
	svc := &airQualityServiceMock{
		getByCityFn: func(ctx context.Context, city string) (*airquality.Report, error) {
			return &airquality.Report{Payload: json.RawMessage(`{"aqi": 12}`), FromCache: true}, nil
		},
	}
	ts := startServer(t, nil, defaultDeps(svc))

	resp, _ := getRaw(t, ts.URL+"/api/air-quality/London")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hit", resp.Header.Get("X-Cache"))
}

func TestCityEndpointRejectsBlankName(t *testing.T) {
	ts := startServer(t, nil, defaultDeps(&airQualityServiceMock{}))

	resp, body := getJSON(t, ts.URL+"/api/air-quality/%20")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "city name must not be empty", body["detail"])
}

func TestCityEndpointMapsProviderFailures(t *testing.T) {
	tests := []struct {
		name       string
		err        *airquality.ProviderError
		wantStatus int
		wantDetail string
	}{
		{
			name:       "not found",
			err:        &airquality.ProviderError{Kind: airquality.FailureNotFound, Detail: "city or location not found"},
			wantStatus: http.StatusNotFound,
			wantDetail: "city or location not found",
		},
		{
			name:       "timeout",
			err:        &airquality.ProviderError{Kind: airquality.FailureTimeout, Detail: "upstream request timeout"},
			wantStatus: http.StatusGatewayTimeout,
			wantDetail: "upstream request timeout",
		},
		{
			name:       "unreachable",
			err:        &airquality.ProviderError{Kind: airquality.FailureUnreachable, Detail: "connection to upstream failed"},
			wantStatus: http.StatusServiceUnavailable,
			wantDetail: "connection to upstream failed",
		},
		{
			name:       "invalid token",
			err:        &airquality.ProviderError{Kind: airquality.FailureInvalidToken, Detail: "invalid or unauthorized API token"},
			wantStatus: http.StatusForbidden,
			wantDetail: "invalid or unauthorized API token",
		},
		{
			name:       "rejected by feed",
			err:        &airquality.ProviderError{Kind: airquality.FailureRejected, Detail: "Unknown station"},
			wantStatus: http.StatusBadRequest,
			wantDetail: "Unknown station",
		},
		{
			name:       "upstream status passes through",
			err:        &airquality.ProviderError{Kind: airquality.FailureUpstreamStatus, StatusCode: http.StatusBadGateway, Detail: "failed to fetch air quality data (upstream status 502)"},
			wantStatus: http.StatusBadGateway,
			wantDetail: "failed to fetch air quality data (upstream status 502)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &airQualityServiceMock{
				getByCityFn: func(ctx context.Context, city string) (*airquality.Report, error) {
					return nil, tt.err
				},
			}
			ts := startServer(t, nil, defaultDeps(svc))

			resp, body := getJSON(t, ts.URL+"/api/air-quality/London")
			require.Equal(t, tt.wantStatus, resp.StatusCode)
			require.Equal(t, tt.wantDetail, body["detail"])
		})
	}
}

func TestCoordsEndpointParsesCoordinates(t *testing.T) {
	var gotLat, gotLon float64
	svc := &airQualityServiceMock{
		getByCoordsFn: func(ctx context.Context, lat, lon float64) (*airquality.Report, error) {
			gotLat, gotLon = lat, lon
			return &airquality.Report{Payload: json.RawMessage(`{"aqi": 42}`)}, nil
		},
	}
	ts := startServer(t, nil, defaultDeps(svc))

	resp, body := getRaw(t, ts.URL+"/api/air-quality-coords/48.8577/2.3522")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.JSONEq(t, `{"aqi": 42}`, string(body))
	require.Equal(t, 48.8577, gotLat)
	require.Equal(t, 2.3522, gotLon)
}

func TestCoordsEndpointValidatesNumbers(t *testing.T) {
	ts := startServer(t, nil, defaultDeps(&airQualityServiceMock{}))

	resp, body := getJSON(t, ts.URL+"/api/air-quality-coords/north/2.3522")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "latitude must be a decimal number", body["detail"])

	resp, body = getJSON(t, ts.URL+"/api/air-quality-coords/48.8577/east")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "longitude must be a decimal number", body["detail"])

	// ParseFloat accepts these, yet they are not coordinates and must not
	// reach the upstream as geo targets.
	resp, body = getJSON(t, ts.URL+"/api/air-quality-coords/NaN/2.3522")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "latitude must be a decimal number", body["detail"])

	resp, body = getJSON(t, ts.URL+"/api/air-quality-coords/48.8577/Inf")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "longitude must be a decimal number", body["detail"])

	resp, body = getJSON(t, ts.URL+"/api/air-quality-coords/-Inf/2.3522")
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	require.Equal(t, "latitude must be a decimal number", body["detail"])
}

func TestUnknownRouteReturnsJSONDetail(t *testing.T) {
	ts := startServer(t, nil, defaultDeps(&airQualityServiceMock{}))

	resp, body := getJSON(t, ts.URL+"/api/no-such-route")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "Not Found", body["detail"])
}

func TestStaticFrontendServedAfterAPIRoutes(t *testing.T) {
	staticDir := t.TempDir()
	page := []byte("<html><body>Air Quality Index</body></html>")
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), page, 0o644))

	config := &httpserver.ServerConfig{Host: "127.0.0.1", Port: "0", StaticDir: staticDir}
	ts := startServer(t, config, defaultDeps(&airQualityServiceMock{}))

	resp, body := getRaw(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "Air Quality Index")

	resp, welcome := getJSON(t, ts.URL+"/api")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "Welcome to the Air Quality Index API!", welcome["message"])
}

func TestMetricsEndpointExposesHTTPCounters(t *testing.T) {
	ts := startServer(t, nil, defaultDeps(&airQualityServiceMock{}))

	resp, _ := getRaw(t, ts.URL+"/api")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := getRaw(t, ts.URL+"/metrics")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Contains(t, string(body), "http_requests_total")
}

func TestProxyFlowEndToEnd(t *testing.T) {
	feed := testutil.NewMockFeed()
	defer feed.Close()
	feed.SetResponse("London", testutil.NewOKResponse(`{"aqi": 58, "city": {"name": "London"}}`))
	feed.SetResponse("Atlantis", testutil.MockFeedResponse{StatusCode: http.StatusNotFound})

	logger := logrus.New()
	stats := services.NewStatsService()
	cache := memory.NewCache(time.Minute, stats)
	provider, err := waqi.NewClient(waqi.Config{APIToken: "tok", BaseURL: feed.BaseURL()}, logger)
	require.NoError(t, err)
	svc := services.NewAirQualityService(provider, cache, stats, logger)

	ts := startServer(t, nil, httpserver.ServerDeps{
		AirQualityService: svc,
		Stats:             stats,
		Cache:             cache,
	})

	resp, first := getRaw(t, ts.URL+"/api/air-quality/London")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "miss", resp.Header.Get("X-Cache"))

	resp, second := getRaw(t, ts.URL+"/api/air-quality/London")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "hit", resp.Header.Get("X-Cache"))
	require.JSONEq(t, string(first), string(second))
	require.Equal(t, 1, feed.GetRequestCount())

	resp, errBody := getJSON(t, ts.URL+"/api/air-quality/Atlantis")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	require.Equal(t, "city or location not found", errBody["detail"])

	resp, statsBody := getJSON(t, ts.URL+"/api/stats")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(3), statsBody["total_requests"])
	require.Equal(t, float64(1), statsBody["cache_hits"])
	require.Equal(t, float64(2), statsBody["cache_misses"])
	require.Equal(t, float64(1), statsBody["errors"])
	require.Equal(t, "33.3%", statsBody["hit_rate"])

	resp, health := getJSON(t, ts.URL+"/api/health")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, float64(1), health["cache_size"])
}

// Shutdown must close the listener Start opened, not just report success.
func TestShutdownStopsListener(t *testing.T) {
	config := &httpserver.ServerConfig{Host: "127.0.0.1", Port: "0", StaticDir: t.TempDir()}
	srv := httpserver.NewServer(config, logrus.New(), defaultDeps(&airQualityServiceMock{}))

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	var base string
	deadline := time.Now().Add(2 * time.Second)
	for {
		if addr := srv.Echo().ListenerAddr(); addr != nil && addr.String() != "" {
			base = "http://" + addr.String()
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("server never started listening")
		}
		time.Sleep(10 * time.Millisecond)
	}

	resp, err := http.Get(base + "/api/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Shutdown(ctx))

	http.DefaultClient.CloseIdleConnections()
	_, err = http.Get(base + "/api/health")
	require.Error(t, err)

	require.ErrorIs(t, <-errCh, http.ErrServerClosed)
}

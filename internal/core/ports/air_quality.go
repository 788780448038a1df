package ports

import (
	"context"
	"encoding/json"

	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
)

// AirQualityProvider defines the interface for fetching AQI readings from the
// upstream feed. Failed lookups return *airquality.ProviderError.
type AirQualityProvider interface {
	// FetchByCity fetches the reading for a city name.
	FetchByCity(ctx context.Context, city string) (json.RawMessage, error)
	// FetchByCoords fetches the reading for a latitude/longitude pair.
	FetchByCoords(ctx context.Context, lat, lon float64) (json.RawMessage, error)
}

// AirQualityService defines the interface the HTTP layer consumes: cache-aware
// lookups that fall back to the upstream provider on a miss.
type AirQualityService interface {
	GetByCity(ctx context.Context, city string) (*airquality.Report, error)
	GetByCoords(ctx context.Context, lat, lon float64) (*airquality.Report, error)
}

package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
	"github.com/aerolens/air-quality-api/internal/core/ports"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// AirQualityService answers AQI lookups from the response cache and falls back
// to the upstream provider on a miss. Concurrent misses for the same key are
// coalesced into a single upstream call.
type AirQualityService struct {
	provider ports.AirQualityProvider
	cache    ports.ResponseCache
	stats    ports.StatsRecorder
	logger   *logrus.Logger
	sf       singleflight.Group
}

func NewAirQualityService(provider ports.AirQualityProvider, cache ports.ResponseCache, stats ports.StatsRecorder, logger *logrus.Logger) *AirQualityService {
	return &AirQualityService{
		provider: provider,
		cache:    cache,
		stats:    stats,
		logger:   logger,
	}
}

func (s *AirQualityService) GetByCity(ctx context.Context, city string) (*airquality.Report, error) {
	return s.lookup(ctx, airquality.CityKey(city), func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.FetchByCity(ctx, city)
	})
}

func (s *AirQualityService) GetByCoords(ctx context.Context, lat, lon float64) (*airquality.Report, error) {
	return s.lookup(ctx, airquality.CoordsKey(lat, lon), func(ctx context.Context) (json.RawMessage, error) {
		return s.provider.FetchByCoords(ctx, lat, lon)
	})
}

// lookup runs the cache-first flow for one request: count it, consult the
// cache exactly once, and on a miss fetch upstream through the singleflight
// group. Only successful payloads are cached; failures propagate as-is.
func (s *AirQualityService) lookup(ctx context.Context, key string, fetch func(context.Context) (json.RawMessage, error)) (*airquality.Report, error) {
	s.stats.RecordRequest()

	if payload, ok := s.cache.Get(key); ok {
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).Debug("air quality served from cache")
		}
		return &airquality.Report{Payload: payload, FromCache: true}, nil
	}

	// The flight is detached from the winning caller's cancellation so a
	// disconnect cannot fail the waiters; the provider's own timeout bounds
	// the call.
	res, err, shared := s.sf.Do(key, func() (any, error) {
		data, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		s.cache.Set(key, data)
		return data, nil
	})
	if err != nil {
		s.stats.RecordError()
		if s.logger != nil {
			s.logger.WithFields(logrus.Fields{"key": key}).WithError(err).Warn("air quality lookup failed")
		}
		return nil, err
	}
	payload, ok := res.(json.RawMessage)
	if !ok {
		s.stats.RecordError()
		return nil, fmt.Errorf("unexpected type from singleflight result")
	}

	if s.logger != nil {
		s.logger.WithFields(logrus.Fields{"key": key, "shared": shared}).Debug("air quality fetched from upstream")
	}
	return &airquality.Report{Payload: payload, FromCache: false}, nil
}

var _ ports.AirQualityService = (*AirQualityService)(nil)

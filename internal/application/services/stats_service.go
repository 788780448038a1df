package services

import (
	"sync/atomic"

	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
	"github.com/aerolens/air-quality-api/internal/core/ports"
)

// StatsService keeps the process-wide request counters. All counters are
// monotonic and shared by every handler goroutine; a restart is the only reset.
type StatsService struct {
	totalRequests atomic.Int64
	cacheHits     atomic.Int64
	cacheMisses   atomic.Int64
	errors        atomic.Int64
}

func NewStatsService() *StatsService {
	return &StatsService{}
}

func (s *StatsService) RecordRequest() {
	s.totalRequests.Add(1)
}

func (s *StatsService) RecordHit() {
	s.cacheHits.Add(1)
}

func (s *StatsService) RecordMiss() {
	s.cacheMisses.Add(1)
}

func (s *StatsService) RecordError() {
	s.errors.Add(1)
}

func (s *StatsService) Snapshot() airquality.Stats {
	return airquality.Stats{
		TotalRequests: s.totalRequests.Load(),
		CacheHits:     s.cacheHits.Load(),
		CacheMisses:   s.cacheMisses.Load(),
		Errors:        s.errors.Load(),
	}
}

var _ ports.StatsRecorder = (*StatsService)(nil)

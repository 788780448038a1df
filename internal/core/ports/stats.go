package ports

import "github.com/aerolens/air-quality-api/internal/core/domain/airquality"

// StatsRecorder accumulates the process-wide request counters. Implementations
// must be safe for concurrent use by handler goroutines.
type StatsRecorder interface {
	// RecordRequest counts one request to a cacheable endpoint.
	RecordRequest()
	// RecordHit counts one cache lookup answered from memory.
	RecordHit()
	// RecordMiss counts one cache lookup that found nothing fresh.
	RecordMiss()
	// RecordError counts one failed upstream lookup.
	RecordError()
	// Snapshot returns the current counter values.
	Snapshot() airquality.Stats
}

package httpserver

import (
	"net/http"

	"github.com/aerolens/air-quality-api/internal/core/domain/airquality"
	"github.com/labstack/echo/v4"
)

// statsResponse adds the derived hit rate to the raw counter snapshot.
type statsResponse struct {
	airquality.Stats
	HitRate string `json:"hit_rate"`
}

// getStats reports the process-wide request counters.
func (s *Server) getStats(c echo.Context) error {
	snap := s.stats.Snapshot()
	return c.JSON(http.StatusOK, statsResponse{Stats: snap, HitRate: snap.HitRate()})
}

package httpserver

import (
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// welcome greets API consumers at the API root.
func (s *Server) welcome(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Welcome to the Air Quality Index API!",
	})
}

// getAirQualityByCity proxies an AQI lookup for a city name.
func (s *Server) getAirQualityByCity(c echo.Context) error {
	city := c.Param("city")
	if decoded, err := url.PathUnescape(city); err == nil {
		city = decoded
	}
	if strings.TrimSpace(city) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "city name must not be empty")
	}

	report, err := s.airQuality.GetByCity(c.Request().Context(), city)
	if err != nil {
		return err
	}

	c.Response().Header().Set("X-Cache", cacheStatus(report.FromCache))
	return c.JSONBlob(http.StatusOK, report.Payload)
}

// getAirQualityByCoords proxies an AQI lookup for a latitude/longitude pair.
func (s *Server) getAirQualityByCoords(c echo.Context) error {
	lat, err := parseCoord(c.Param("lat"), "latitude must be a decimal number")
	if err != nil {
		return err
	}
	lon, err := parseCoord(c.Param("lon"), "longitude must be a decimal number")
	if err != nil {
		return err
	}

	report, err := s.airQuality.GetByCoords(c.Request().Context(), lat, lon)
	if err != nil {
		return err
	}

	c.Response().Header().Set("X-Cache", cacheStatus(report.FromCache))
	return c.JSONBlob(http.StatusOK, report.Payload)
}

// parseCoord parses a coordinate path segment. NaN and the infinities parse
// as floats but are not coordinates.
func parseCoord(raw, detail string) (float64, error) {
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, echo.NewHTTPError(http.StatusBadRequest, detail)
	}
	return v, nil
}

func cacheStatus(fromCache bool) string {
	if fromCache {
		return "hit"
	}
	return "miss"
}

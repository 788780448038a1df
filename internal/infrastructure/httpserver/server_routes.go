package httpserver

func (s *Server) setupRoutes() {
	api := s.echo.Group("/api")
	api.GET("", s.welcome)
	api.GET("/health", s.healthCheck)
	api.GET("/stats", s.getStats)
	api.GET("/air-quality/:city", s.getAirQualityByCity)
	api.GET("/air-quality-coords/:lat/:lon", s.getAirQualityByCoords)

	s.echo.GET("/metrics", s.metricsEndpoint)

	// Static frontend last, API routes take precedence.
	s.echo.Static("/", s.config.StaticDir)
}

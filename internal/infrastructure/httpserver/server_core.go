package httpserver

import (
	"time"

	"github.com/aerolens/air-quality-api/internal/core/ports"
	customMiddleware "github.com/aerolens/air-quality-api/internal/infrastructure/httpserver/middleware"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"
)

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
	StaticDir    string
}

type ServerDeps struct {
	AirQualityService ports.AirQualityService
	Stats             ports.StatsRecorder
	Cache             ports.ResponseCache
}

type Server struct {
	echo       *echo.Echo
	config     *ServerConfig
	logger     *logrus.Logger
	airQuality ports.AirQualityService
	stats      ports.StatsRecorder
	cache      ports.ResponseCache
	middleware *customMiddleware.MiddlewareCollection
}

func NewServer(serverConfig *ServerConfig, logger *logrus.Logger, deps ServerDeps) *Server {
	e := echo.New()

	server := &Server{
		echo:       e,
		config:     serverConfig,
		logger:     logger,
		airQuality: deps.AirQualityService,
		stats:      deps.Stats,
		cache:      deps.Cache,
		middleware: customMiddleware.NewMiddlewareCollection(
			logger,
			GetRequestsTotal(),
			GetRequestDuration(),
		),
	}

	e.HTTPErrorHandler = server.handleHTTPError

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// routes.go - Route registration and server lifecycle
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/daemonp/webasto-monitor/internal/log"
)

// RegisterRoutes registers all API routes with the Echo instance
func RegisterRoutes(e *echo.Echo, h *Handler, metrics http.Handler) {
	api := e.Group("/api")
	api.GET("/health", h.HandleHealth)
	api.GET("/state", h.HandleState)
	api.GET("/stats", h.HandleStats)
	api.PUT("/filter", h.HandleSetFilter)

	messages := api.Group("/messages")
	messages.GET("", h.HandleMessages)
	messages.GET("/export", h.HandleExport)
	messages.GET("/msgpack", h.HandleMessagesMsgpack)

	commands := api.Group("/commands")
	commands.POST("/connect", h.HandleConnect)
	commands.POST("/disconnect", h.HandleDisconnect)
	commands.POST("/refresh", h.HandleRefresh)
	commands.POST("/start/:mode", h.HandleStartMode)
	commands.POST("/pump", h.HandlePump)
	commands.POST("/shutdown", h.HandleShutdown)
	commands.GET("/test", h.HandleTestableComponents)
	commands.POST("/test/:component", h.HandleTestComponent)
	commands.POST("/errors/clear", h.HandleClearErrors)
	commands.POST("/messages/clear", h.HandleClearMessages)

	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// SetupMiddleware configures common middleware
func SetupMiddleware(e *echo.Echo, logger *log.Logger) {
	e.HTTPErrorHandler = ErrorHandler

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		Skipper: func(c echo.Context) bool {
			path := c.Request().URL.Path
			return path == "/api/health" || path == "/metrics"
		},
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			logger.Debug("%s %s %d %s", v.Method, v.URI, v.Status, v.Latency)
			return nil
		},
	}))
	e.Use(middleware.Recover())
}

type Server struct {
	echo *echo.Echo
	log  *log.Logger
}

func NewServer(h *Handler, metrics http.Handler, logger *log.Logger) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	SetupMiddleware(e, logger)
	RegisterRoutes(e, h, metrics)

	return &Server{echo: e, log: logger}
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.log.Info("HTTP API listening on %s", addr)
	if err := s.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

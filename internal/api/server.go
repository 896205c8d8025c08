package api

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/tphakala/securitas/internal/conf"
	"github.com/tphakala/securitas/internal/errors"
	"github.com/tphakala/securitas/internal/logger"
)

const (
	defaultPort            = "8080"
	defaultShutdownTimeout = 10 * time.Second
	bodyLimit              = "1M"
)

// Server is the HTTP front of the detection pipeline.
type Server struct {
	echo            *echo.Echo
	addr            string
	shutdownTimeout time.Duration
	log             logger.Logger
}

// NewServer wires ctrl under settings.Prefix and serves /health and, when
// metricsHandler is non-nil, /metrics.
func NewServer(settings *conf.WebServerSettings, ctrl *Controller, metricsHandler http.Handler, log logger.Logger) *Server {
	if log == nil {
		log = GetLogger()
	}
	port := settings.Port
	if port == "" {
		port = defaultPort
	}
	timeout := settings.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(bodyLimit))
	e.Use(requestLogger(log.Module("request")))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	if metricsHandler != nil {
		e.GET("/metrics", echo.WrapHandler(metricsHandler))
	}

	prefix := "/" + strings.Trim(settings.Prefix, "/")
	if prefix == "/" {
		prefix = ""
	}
	ctrl.RegisterRoutes(e.Group(prefix))

	return &Server{
		echo:            e,
		addr:            ":" + port,
		shutdownTimeout: timeout,
		log:             log,
	}
}

// Handler returns the underlying router.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves until Shutdown is called. A clean shutdown returns nil.
func (s *Server) Start() error {
	s.log.Info("HTTP server starting", logger.String("addr", s.addr))
	if err := s.echo.Start(s.addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.New(err).
			Component(component).
			Category(errors.CategoryNetwork).
			Context("addr", s.addr).
			Build()
	}
	return nil
}

// Shutdown drains in-flight requests, bounded by the configured timeout.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.shutdownTimeout)
	defer cancel()
	s.log.Info("HTTP server shutting down")
	return s.echo.Shutdown(ctx)
}

func requestLogger(log logger.Logger) echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogMethod:    true,
		LogError:     true,
		HandleError:  true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []logger.Field{
				logger.String("remote_ip", v.RemoteIP),
				logger.String("method", v.Method),
				logger.String("uri", v.URI),
				logger.Int("status", v.Status),
				logger.Duration("latency", v.Latency),
			}
			if v.RequestID != "" {
				fields = append(fields, logger.String("request_id", v.RequestID))
			}
			if v.Error != nil {
				fields = append(fields, logger.Error(v.Error))
			}
			switch {
			case v.Status >= http.StatusInternalServerError:
				log.Error("request failed", fields...)
			case v.Status >= http.StatusBadRequest:
				log.Warn("request rejected", fields...)
			default:
				log.Debug("request", fields...)
			}
			return nil
		},
	})
}

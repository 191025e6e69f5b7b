package http

import (
	"context"
	"errors"
	"net/http"

	echoHTTP "github.com/ThreeDotsLabs/go-event-driven/common/http"
	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"
)

type Server struct {
	addr string
	e    *echo.Echo
}

// NewServer builds the HTTP boundary shared by all services: health and
// metrics endpoints, tracing, and the error handler that maps domain errors
// to status codes. Service routes are registered through the callback.
func NewServer(addr, serviceName string, registerRoutes func(e *echo.Echo)) *Server {
	e := echoHTTP.NewEcho()
	e.Use(otelecho.Middleware(serviceName))
	e.HTTPErrorHandler = handleError

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	registerRoutes(e)

	return &Server{addr: addr, e: e}
}

func (s *Server) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		err := s.e.Shutdown(ctx)
		if err != nil {
			log.FromContext(ctx).WithError(err).Error("failed to shutdown HTTP server")
		}
	}()
	log.FromContext(ctx).WithField("addr", s.addr).Info("[HTTP] server listening")
	if err := s.e.Start(s.addr); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Package api serves the read-only aggregation endpoints over HTTP. It
// never touches the capture or analysis pipeline directly; everything it
// returns comes from the datastore, and its single mutation endpoint
// adjusts the runtime tunables.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	gocache "github.com/patrickmn/go-cache"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magpi/listener/internal/conf"
	"github.com/magpi/listener/internal/datastore"
	"github.com/magpi/listener/internal/logging"
	"github.com/magpi/listener/internal/observability"
)

// Controller holds the HTTP server and its dependencies.
type Controller struct {
	Echo     *echo.Echo
	DS       datastore.Interface
	Settings *conf.Settings
	cache    *gocache.Cache
	metrics  *observability.Metrics
	log      *slog.Logger
}

// New builds the controller and registers all routes.
func New(settings *conf.Settings, ds datastore.Interface, metrics *observability.Metrics) *Controller {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	ttl := time.Duration(settings.API.CacheTTL) * time.Second
	c := &Controller{
		Echo:     e,
		DS:       ds,
		Settings: settings,
		cache:    gocache.New(ttl, 2*ttl),
		metrics:  metrics,
		log:      logging.ForService("api"),
	}

	e.Use(middleware.Recover())
	e.Use(c.requestLogger())

	c.initRoutes()
	return c
}

func (c *Controller) initRoutes() {
	api := c.Echo.Group("/api")
	api.GET("/detections", c.GetDetections)
	api.GET("/stats", c.GetStats)
	api.GET("/species", c.GetSpecies)
	api.GET("/heatmap", c.GetHeatmap)
	api.GET("/trends", c.GetTrends)
	api.GET("/config", c.GetConfig)
	api.POST("/config", c.UpdateConfig)

	c.Echo.GET("/health", c.Health)
	if c.metrics != nil {
		c.Echo.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(c.metrics.Registry(), promhttp.HandlerOpts{})))
	}
}

// requestLogger emits one structured line per request.
func (c *Controller) requestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogError:  true,
		LogValuesFunc: func(ctx echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"status", v.Status,
			}
			if v.Error != nil {
				attrs = append(attrs, "error", v.Error)
			}
			c.log.Info("request", attrs...)
			return nil
		},
	})
}

// Start begins serving on the configured address and blocks until the
// server stops.
func (c *Controller) Start() error {
	addr := fmt.Sprintf("%s:%d", c.Settings.API.Host, c.Settings.API.Port)
	c.log.Info("http server starting", "addr", addr)

	if err := c.Echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (c *Controller) Shutdown(ctx context.Context) error {
	return c.Echo.Shutdown(ctx)
}

// cached runs fetch through the response cache.
func (c *Controller) cached(key string, fetch func() (any, error)) (any, error) {
	if v, ok := c.cache.Get(key); ok {
		return v, nil
	}
	v, err := fetch()
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, v, gocache.DefaultExpiration)
	return v, nil
}

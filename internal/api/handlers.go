package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
)

const (
	defaultLimit = 20
	maxLimit     = 1000
	defaultDays  = 7
	maxDays      = 365
)

// envelope is the uniform JSON response wrapper.
type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Count   *int   `json:"count,omitempty"`
	Error   string `json:"error,omitempty"`
}

func respond(ctx echo.Context, data any) error {
	return ctx.JSON(http.StatusOK, envelope{Success: true, Data: data})
}

func respondList(ctx echo.Context, data any, count int) error {
	return ctx.JSON(http.StatusOK, envelope{Success: true, Data: data, Count: &count})
}

func respondError(ctx echo.Context, status int, err error) error {
	return ctx.JSON(status, envelope{Success: false, Error: err.Error()})
}

// intParam parses an optional integer query parameter within [min, max].
func intParam(ctx echo.Context, name string, def, min, max int) (int, error) {
	raw := ctx.QueryParam(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < min || v > max {
		return 0, fmt.Errorf("invalid %s: must be an integer between %d and %d", name, min, max)
	}
	return v, nil
}

// GetDetections returns recent detections, newest first.
func (c *Controller) GetDetections(ctx echo.Context) error {
	limit, err := intParam(ctx, "limit", defaultLimit, 1, maxLimit)
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	offset, err := intParam(ctx, "offset", 0, 0, 1<<30)
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}
	species := ctx.QueryParam("species")

	detections, err := c.DS.GetDetections(limit, offset, species)
	if err != nil {
		c.log.Error("detections query failed", "error", err)
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return respondList(ctx, detections, len(detections))
}

// GetStats returns aggregate counts for a trailing period.
func (c *Controller) GetStats(ctx echo.Context) error {
	days, err := intParam(ctx, "days", defaultDays, 1, maxDays)
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}

	stats, err := c.cached(fmt.Sprintf("stats:%d", days), func() (any, error) {
		return c.DS.GetStats(days)
	})
	if err != nil {
		c.log.Error("stats query failed", "error", err)
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return respond(ctx, stats)
}

// GetSpecies returns the species ranking for a trailing period.
func (c *Controller) GetSpecies(ctx echo.Context) error {
	days, err := intParam(ctx, "days", defaultDays, 1, maxDays)
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}

	counts, err := c.cached(fmt.Sprintf("species:%d", days), func() (any, error) {
		return c.DS.GetSpeciesCounts(days)
	})
	if err != nil {
		c.log.Error("species query failed", "error", err)
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return respond(ctx, counts)
}

// GetHeatmap returns average detections per hour of day.
func (c *Controller) GetHeatmap(ctx echo.Context) error {
	days, err := intParam(ctx, "days", defaultDays, 1, maxDays)
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}

	heatmap, err := c.cached(fmt.Sprintf("heatmap:%d", days), func() (any, error) {
		return c.DS.GetHourlyHeatmap(days)
	})
	if err != nil {
		c.log.Error("heatmap query failed", "error", err)
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return respond(ctx, heatmap)
}

// GetTrends returns per-day detection counts.
func (c *Controller) GetTrends(ctx echo.Context) error {
	days, err := intParam(ctx, "days", defaultDays, 1, maxDays)
	if err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}

	trends, err := c.cached(fmt.Sprintf("trends:%d", days), func() (any, error) {
		return c.DS.GetDailyTrends(days)
	})
	if err != nil {
		c.log.Error("trends query failed", "error", err)
		return respondError(ctx, http.StatusInternalServerError, err)
	}
	return respond(ctx, trends)
}

// runtimeConfig is the tunable subset exposed over the API.
type runtimeConfig struct {
	MinConfidence   *float64 `json:"min_confidence,omitempty"`
	DuplicateWindow *int     `json:"duplicate_window,omitempty"`
}

// GetConfig returns the current runtime tunables.
func (c *Controller) GetConfig(ctx echo.Context) error {
	rt := c.Settings.Runtime()
	minConf := rt.MinConfidence()
	window := int(rt.DuplicateWindow() / time.Second)
	return respond(ctx, runtimeConfig{MinConfidence: &minConf, DuplicateWindow: &window})
}

// UpdateConfig adjusts the runtime tunables. Absent fields are left
// unchanged; invalid values reject the whole request.
func (c *Controller) UpdateConfig(ctx echo.Context) error {
	var req runtimeConfig
	if err := ctx.Bind(&req); err != nil {
		return respondError(ctx, http.StatusBadRequest, fmt.Errorf("invalid request body"))
	}

	var window *time.Duration
	if req.DuplicateWindow != nil {
		d := time.Duration(*req.DuplicateWindow) * time.Second
		window = &d
	}

	// both fields are validated before either is applied, so a rejected
	// request leaves the runtime config untouched
	rt := c.Settings.Runtime()
	if err := rt.Update(req.MinConfidence, window); err != nil {
		return respondError(ctx, http.StatusBadRequest, err)
	}

	c.log.Info("runtime config updated",
		"min_confidence", rt.MinConfidence(),
		"duplicate_window", rt.DuplicateWindow())
	return c.GetConfig(ctx)
}

// Health reports liveness.
func (c *Controller) Health(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

package handlers

import (
	"errors"
	"net/http"

	"kiln_dashboard/internal/control"
	"kiln_dashboard/internal/format"
	"kiln_dashboard/internal/service"
	"kiln_dashboard/internal/view"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusSent    = "sent"
	statusExited  = "exited"
	statusUpdated = "updated"

	errInvalidBodyPref = "invalid body: "
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// statusFor maps a service error to the HTTP status the shell sees.
func statusFor(err error) int {
	switch {
	case errors.Is(err, view.ErrUnknownView):
		return http.StatusNotFound
	case errors.Is(err, service.ErrSensorRequired),
		errors.Is(err, control.ErrInvalidNumber),
		errors.Is(err, control.ErrInvalidMode),
		errors.Is(err, control.ErrUnknownControl),
		errors.Is(err, format.ErrUnknownUnit),
		service.IsInvalidFilter(err):
		return http.StatusBadRequest
	case errors.Is(err, service.ErrNotEntered),
		errors.Is(err, service.ErrNotSupported),
		errors.Is(err, control.ErrUnsupportedInteraction):
		return http.StatusConflict
	}
	// backend REST, breaker and realtime failures
	return http.StatusBadGateway
}

// fail logs err and answers with its mapped status.
func (h *Handler) fail(c *gin.Context, logKey string, err error, kv ...interface{}) {
	h.logAndJSONError(c, statusFor(err), err.Error(), logKey, err, kv...)
}

// EnterViewRequest is the optional payload of entering a screen.
type EnterViewRequest struct {
	// Sensor shown by the sensor screen (required there)
	Sensor string `json:"sensor" example:"Temp Forno"`
	// Chart window in hours; 0 uses the configured default
	Hours int `json:"hours,omitempty" example:"24"`
}

type refreshRequest struct {
	Hours int `json:"hours"`
}

type autoRefreshRequest struct {
	Enabled *bool `json:"enabled" binding:"required"`
}

type unitRequest struct {
	Unit string `json:"unit" binding:"required"` // psi | bar
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Enter a screen
// @Description  Builds a fresh instance of the screen; a previous instance is closed first.
// @Tags         views
// @Accept       json
// @Produce      json
// @Param        view  path  string            true   "Screen"  Enums(control,sensor,all-sensors,overview,readings)
// @Param        body  body  EnterViewRequest  false  "Enter payload"
// @Success      200   {object}  surface.Snapshot
// @Failure      400   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Router       /api/v1/views/{view} [post]
func (h *Handler) enterView(c *gin.Context) {
	var req EnterViewRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	name := c.Param("view")
	v, err := h.services.Enter(c.Request.Context(), name, service.EnterParams{Sensor: req.Sensor, Hours: req.Hours})
	if err != nil {
		h.fail(c, "view_enter_failed", err, "view", name)
		return
	}
	c.JSON(http.StatusOK, v.Page().Snapshot())
}

// @Summary      Screen snapshot
// @Tags         views
// @Produce      json
// @Param        view  path  string  true  "Screen"
// @Success      200   {object}  surface.Snapshot
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/views/{view} [get]
func (h *Handler) getView(c *gin.Context) {
	name := c.Param("view")
	v, ok := h.services.Get(name)
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrNotEntered.Error() + ": " + name})
		return
	}
	c.JSON(http.StatusOK, v.Page().Snapshot())
}

// @Summary      Leave a screen
// @Tags         views
// @Produce      json
// @Param        view  path  string  true  "Screen"
// @Success      200   {object}  map[string]interface{}
// @Router       /api/v1/views/{view} [delete]
func (h *Handler) exitView(c *gin.Context) {
	name := c.Param("view")
	c.JSON(http.StatusOK, gin.H{"status": statusExited, "view": name, "was_open": h.services.Exit(name)})
}

// @Summary      Refresh a screen
// @Tags         views
// @Accept       json
// @Produce      json
// @Param        view  path  string  true  "Screen"
// @Success      200   {object}  surface.Snapshot
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/views/{view}/refresh [post]
func (h *Handler) refreshView(c *gin.Context) {
	var req refreshRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	name := c.Param("view")
	if err := h.services.Refresh(c.Request.Context(), name, req.Hours); err != nil {
		h.fail(c, "view_refresh_failed", err, "view", name)
		return
	}
	h.respondWithSnapshot(c, name)
}

// @Summary      Toggle auto-refresh
// @Tags         views
// @Accept       json
// @Produce      json
// @Param        view  path  string  true  "Screen"  Enums(sensor,all-sensors)
// @Success      200   {object}  map[string]interface{}
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/views/{view}/auto-refresh [post]
func (h *Handler) setAutoRefresh(c *gin.Context) {
	var req autoRefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	name := c.Param("view")
	if err := h.services.SetAutoRefresh(name, *req.Enabled); err != nil {
		h.fail(c, "view_auto_refresh_failed", err, "view", name)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusUpdated, "enabled": *req.Enabled})
}

// @Summary      Change the session pressure unit
// @Tags         views
// @Accept       json
// @Produce      json
// @Param        view  path  string  true  "Screen"
// @Success      200   {object}  surface.Snapshot
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/views/{view}/unit [post]
func (h *Handler) setUnit(c *gin.Context) {
	var req unitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	name := c.Param("view")
	u, err := format.ParseUnit(req.Unit)
	if err == nil {
		err = h.services.SetUnit(name, u)
	}
	if err != nil {
		h.fail(c, "view_unit_failed", err, "view", name, "unit", req.Unit)
		return
	}
	h.respondWithSnapshot(c, name)
}

// respondWithSnapshot answers with the current tree of the named screen.
func (h *Handler) respondWithSnapshot(c *gin.Context, name string) {
	v, ok := h.services.Get(name)
	if !ok {
		c.JSON(http.StatusOK, gin.H{"status": statusUpdated})
		return
	}
	c.JSON(http.StatusOK, v.Page().Snapshot())
}

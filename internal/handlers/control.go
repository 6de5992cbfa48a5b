package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ControlRequest names one manual control.
type ControlRequest struct {
	// Allowed: fan, screw, heater, cooling_fan, drum_forward, drum_reverse
	Control string `json:"control" binding:"required" example:"drum_forward"`
}

// SettingRequest carries the raw text of a setpoint input.
type SettingRequest struct {
	Name string `json:"name" binding:"required" example:"temp_max"`
	// Raw input; a comma is accepted as decimal separator
	Value string `json:"value" example:"85,5"`
}

// ModeRequest selects automatic (0) or manual (1) operation.
type ModeRequest struct {
	Mode *int `json:"mode" binding:"required" example:"1"`
}

// @Summary      Click a latched control
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body  ControlRequest  true  "Control"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/views/control/click [post]
func (h *Handler) clickControl(c *gin.Context) {
	h.withControl(c, "control_click_failed", func(cp controlPanel, name string) error { return cp.Click(name) })
}

// @Summary      Press a momentary control
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body  ControlRequest  true  "Control"
// @Success      200   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/views/control/press [post]
func (h *Handler) pressControl(c *gin.Context) {
	h.withControl(c, "control_press_failed", func(cp controlPanel, name string) error { return cp.Press(name) })
}

// @Summary      Release a momentary control
// @Description  Sent on pointer-up, pointer-leave, touch-end and touch-cancel. Only the first release after a press emits.
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body  ControlRequest  true  "Control"
// @Success      200   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/views/control/release [post]
func (h *Handler) releaseControl(c *gin.Context) {
	h.withControl(c, "control_release_failed", func(cp controlPanel, name string) error { return cp.Release(name) })
}

type controlPanel interface {
	Click(string) error
	Press(string) error
	Release(string) error
}

func (h *Handler) withControl(c *gin.Context, logKey string, fn func(cp controlPanel, name string) error) {
	var req ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	cp, err := h.services.Control()
	if err == nil {
		err = fn(cp, req.Control)
	}
	if err != nil {
		h.fail(c, logKey, err, "control", req.Control)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSent, "control": req.Control})
}

// @Summary      Set a setpoint
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body  SettingRequest  true  "Setting"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/views/control/settings [post]
func (h *Handler) setSetting(c *gin.Context) {
	var req SettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	cp, err := h.services.Control()
	if err == nil {
		err = cp.SetSetting(req.Name, req.Value)
	}
	if err != nil {
		h.fail(c, "control_setting_failed", err, "name", req.Name, "value", req.Value)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSent, "name": req.Name})
}

// @Summary      Set the system mode
// @Tags         control
// @Accept       json
// @Produce      json
// @Param        body  body  ModeRequest  true  "Mode"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Router       /api/v1/views/control/mode [post]
func (h *Handler) setMode(c *gin.Context) {
	var req ModeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	cp, err := h.services.Control()
	if err == nil {
		err = cp.SetMode(*req.Mode)
	}
	if err != nil {
		h.fail(c, "control_mode_failed", err, "mode", *req.Mode)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSent, "mode": *req.Mode})
}

// @Summary      Toggle heating
// @Tags         control
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      409  {object}  map[string]string
// @Router       /api/v1/views/control/heating [post]
func (h *Handler) toggleHeating(c *gin.Context) {
	cp, err := h.services.Control()
	if err == nil {
		err = cp.ToggleHeating()
	}
	if err != nil {
		h.fail(c, "control_heating_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusSent})
}

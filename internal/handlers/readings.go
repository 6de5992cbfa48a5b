package handlers

import (
	"io"
	"net/http"

	"kiln_dashboard/internal/models"
	"kiln_dashboard/internal/view"

	"github.com/gin-gonic/gin"
)

// FilterRequest is the readings filter form.
type FilterRequest struct {
	Sensor string `json:"sensor" example:"Temp Forno"`
	Start  string `json:"start" example:"2025-03-14T08:00"`
	End    string `json:"end" example:"2025-03-14T18:00"`
}

type pageRequest struct {
	Page int `json:"page" binding:"required,min=1"`
}

// @Summary      Apply readings filters
// @Tags         readings
// @Accept       json
// @Produce      json
// @Param        body  body  FilterRequest  true  "Filters"
// @Success      200   {object}  surface.Snapshot
// @Failure      409   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/views/readings/filters [post]
func (h *Handler) applyFilters(c *gin.Context) {
	var req FilterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	rd, err := h.services.Readings()
	if err == nil {
		err = rd.ApplyFilters(c.Request.Context(), models.ReadingFilter{Sensor: req.Sensor, Start: req.Start, End: req.End})
	}
	if err != nil {
		h.fail(c, "readings_filter_failed", err, "sensor", req.Sensor)
		return
	}
	h.respondWithSnapshot(c, view.NameReadings)
}

// @Summary      Go to a readings page
// @Tags         readings
// @Accept       json
// @Produce      json
// @Success      200  {object}  surface.Snapshot
// @Failure      400  {object}  map[string]string
// @Router       /api/v1/views/readings/page [post]
func (h *Handler) goToPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	rd, err := h.services.Readings()
	if err == nil {
		err = rd.GoTo(c.Request.Context(), req.Page)
	}
	if err != nil {
		h.fail(c, "readings_page_failed", err, "page", req.Page)
		return
	}
	h.respondWithSnapshot(c, view.NameReadings)
}

// @Summary      Clear readings filters
// @Tags         readings
// @Produce      json
// @Success      200  {object}  surface.Snapshot
// @Router       /api/v1/views/readings/clear [post]
func (h *Handler) clearFilters(c *gin.Context) {
	rd, err := h.services.Readings()
	if err == nil {
		err = rd.Clear(c.Request.Context())
	}
	if err != nil {
		h.fail(c, "readings_clear_failed", err)
		return
	}
	h.respondWithSnapshot(c, view.NameReadings)
}

// @Summary      Export readings
// @Description  Streams the backend export for the current filters unchanged.
// @Tags         readings
// @Produce      octet-stream
// @Success      200
// @Failure      409  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/views/readings/export [get]
func (h *Handler) exportReadings(c *gin.Context) {
	rd, err := h.services.Readings()
	if err != nil {
		h.fail(c, "readings_export_failed", err)
		return
	}
	dl, err := rd.Export(c.Request.Context())
	if err != nil {
		h.fail(c, "readings_export_failed", err)
		return
	}
	defer dl.Body.Close()

	contentType := dl.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	c.Header("Content-Type", contentType)
	if dl.ContentDisposition != "" {
		c.Header("Content-Disposition", dl.ContentDisposition)
	}
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, dl.Body); err != nil && h.log != nil {
		h.log.Warnw("readings_export_stream_failed", "err", err)
	}
}

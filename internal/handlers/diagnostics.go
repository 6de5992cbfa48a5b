package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kiln_dashboard/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid  = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid    = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errLimitInvalid = "invalid 'limit'; use a positive integer"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List realtime channel messages
// @Description  Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' is end-of-day inclusive.
// @Tags         diagnostics
// @Produce      json
// @Param        from       query   string  false  "Start of range"  example(2025-08-01)
// @Param        to         query   string  false  "End of range"    example(2025-08-31)
// @Param        direction  query   string  false  "Direction"  Enums(IN,OUT)
// @Param        event      query   string  false  "Event name"  Enums(request_initial_data,control_event,update_from_dashboard)
// @Param        limit      query   int     false  "Newest rows kept"
// @Success      200   {object}  map[string]interface{}  "count, dropped, messages"
// @Failure      400   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/diagnostics/messages [get]
func (h *Handler) getMessages(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		f   service.MessageFilter
		err error
	)
	if qs := c.Query("from"); qs != "" {
		f.From, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	// If only a date is provided, make 'to' end-of-day inclusive.
	if qs := c.Query("to"); qs != "" {
		f.To, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			f.To = f.To.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if qs := c.Query("limit"); qs != "" {
		f.Limit, err = strconv.Atoi(qs)
		if err != nil || f.Limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
	}
	f.Direction = c.Query("direction")
	f.Event = c.Query("event")

	msgs, err := h.services.Diagnostics.List(ctx, f)
	if err != nil {
		if service.IsInvalidFilter(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, "failed to load messages", "diagnostics_list_failed", err,
			"from", f.From, "to", f.To, "direction", f.Direction)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(msgs),
		"dropped":  h.services.Dropped(),
		"messages": msgs,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}

// @Summary      Active notifications
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "notifications"
// @Router       /api/v1/notifications [get]
func (h *Handler) getNotifications(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": h.services.Active()})
}

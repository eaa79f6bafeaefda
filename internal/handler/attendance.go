package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"beaconattend/internal/apperr"
	"beaconattend/internal/attendance"
)

type markRequest struct {
	Devices []string `json:"devices"`
}

type manualRequest struct {
	Text *string `json:"text"`
}

// MarkAttendance is called by the scanning device with the beacon ids it saw.
func (h *Handler) MarkAttendance(c *gin.Context) {
	var req markRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badJSON(err))
		return
	}
	h.mark(c, req.Devices)
}

// MarkAttendanceManual accepts operator free text, one beacon id per line.
func (h *Handler) MarkAttendanceManual(c *gin.Context) {
	var req manualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.fail(c, badJSON(err))
		return
	}
	if req.Text == nil {
		h.fail(c, apperr.Validation("text is required", apperr.FieldError{Field: "text", Message: "is required"}))
		return
	}
	h.mark(c, attendance.ParseBeaconList(*req.Text))
}

func (h *Handler) mark(c *gin.Context, beaconIDs []string) {
	ctx := c.Request.Context()
	res, err := h.attendance.MarkAttendance(ctx, beaconIDs)
	if res.MatchedCount > 0 && h.dashboard != nil {
		h.dashboard.Invalidate(ctx)
	}
	if err != nil {
		if apperr.Status(err) == http.StatusInternalServerError && res.MatchedCount > 0 {
			// entries already committed stay; report them with the failure
			h.logger.Error().Err(err).Int("count", res.MatchedCount).Msg("attendance partially marked")
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{
				"status":   "error",
				"message":  "Attendance partially marked",
				"count":    res.MatchedCount,
				"students": res.Matched,
			})
			return
		}
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Attendance marked",
		"count":    res.MatchedCount,
		"students": res.Matched,
	})
}

// ListAttendance returns entries newest first. ?limit=n caps the result.
func (h *Handler) ListAttendance(c *gin.Context) {
	limit, err := limitParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	records, err := h.attendance.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

func limitParam(c *gin.Context) (int, error) {
	raw := c.Query("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation("limit must be a non-negative integer",
			apperr.FieldError{Field: "limit", Message: "must be a non-negative integer"})
	}
	return n, nil
}

package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"beaconattend/internal/apperr"
)

type startScanRequest struct {
	ScanTime *int `json:"scanTime"`
}

// StartAttendance asks the scanning device to scan and relays its reply.
// A missing body or scanTime uses the default duration.
func (h *Handler) StartAttendance(c *gin.Context) {
	var req startScanRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		h.fail(c, badJSON(err))
		return
	}
	seconds := h.scans.DefaultSeconds()
	if req.ScanTime != nil {
		seconds = *req.ScanTime
	}

	ack, err := h.scans.StartScan(c.Request.Context(), seconds)
	if err != nil {
		if errors.Is(err, apperr.ErrUpstreamUnavailable) {
			_ = c.Error(err)
			c.JSON(http.StatusBadGateway, gin.H{
				"status":  "error",
				"message": "Failed to contact scanner",
				"error":   err.Error(),
			})
			return
		}
		h.fail(c, err)
		return
	}
	c.Data(ack.StatusCode, "application/json", ack.Body)
}

// ListScans returns the scan log newest first.
func (h *Handler) ListScans(c *gin.Context) {
	limit, err := limitParam(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	records, err := h.scanLog.List(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, records)
}

// Dashboard returns aggregated stats.
func (h *Handler) Dashboard(c *gin.Context) {
	stats, hit, err := h.dashboard.Get(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	if hit {
		c.Header("X-Cache", "HIT")
	} else {
		c.Header("X-Cache", "MISS")
	}
	c.JSON(http.StatusOK, stats)
}

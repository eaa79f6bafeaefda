package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"beaconattend/internal/apperr"
	"beaconattend/internal/attendance"
	"beaconattend/internal/dashboard"
	"beaconattend/internal/directory"
	"beaconattend/internal/scanner"
)

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) bool

// Handler serves the attendance API.
type Handler struct {
	directory  *directory.Service
	attendance *attendance.Service
	scans      *scanner.Orchestrator
	scanLog    scanner.Log
	dashboard  *dashboard.Service
	health     map[string]HealthCheck
	logger     zerolog.Logger
}

// Deps groups the services a Handler needs.
type Deps struct {
	Directory  *directory.Service
	Attendance *attendance.Service
	Scans      *scanner.Orchestrator
	ScanLog    scanner.Log
	Dashboard  *dashboard.Service
	// Health is keyed by dependency name, e.g. "db" and "redis".
	Health map[string]HealthCheck
}

func New(deps Deps, logger zerolog.Logger) *Handler {
	return &Handler{
		directory:  deps.Directory,
		attendance: deps.Attendance,
		scans:      deps.Scans,
		scanLog:    deps.ScanLog,
		dashboard:  deps.Dashboard,
		health:     deps.Health,
		logger:     logger.With().Str("component", "handler").Logger(),
	}
}

// Register mounts every route on r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/healthz", h.Healthz)

	api := r.Group("/api")
	api.POST("/attendance", h.MarkAttendance)
	api.GET("/attendance", h.ListAttendance)
	api.POST("/attendance/manual", h.MarkAttendanceManual)
	api.POST("/start-attendance", h.StartAttendance)
	api.GET("/scans", h.ListScans)
	api.GET("/dashboard", h.Dashboard)

	h.registerDirectory(api.Group("/students"), directory.KindStudent)
	h.registerDirectory(api.Group("/teachers"), directory.KindTeacher)
}

// ---------- Health ----------

func (h *Handler) Healthz(c *gin.Context) {
	body := gin.H{}
	status := http.StatusOK
	for name, check := range h.health {
		ok := check(c.Request.Context())
		body[name] = ok
		if !ok {
			status = http.StatusServiceUnavailable
		}
	}
	body["status"] = "ok"
	if status != http.StatusOK {
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

// fail writes err using the shared error taxonomy. Internal details are
// logged and not returned for 500s.
func (h *Handler) fail(c *gin.Context, err error) {
	status := apperr.Status(err)
	body := gin.H{"status": "error", "message": err.Error()}

	var ve *apperr.ValidationError
	switch {
	case errors.As(err, &ve):
		body["message"] = ve.Message
		if len(ve.Fields) > 0 {
			body["fields"] = ve.Fields
		}
	case status >= http.StatusInternalServerError:
		h.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		body["message"] = "internal error"
	}
	_ = c.Error(err)
	c.JSON(status, body)
}

func badJSON(err error) error {
	return apperr.Validation("malformed JSON body: " + err.Error())
}

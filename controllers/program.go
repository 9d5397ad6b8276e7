package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"supplement-program-api/events"
	"supplement-program-api/middleware"
	"supplement-program-api/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	program *services.Program
	bus     *events.Bus
)

// Setup hands the controllers the services they call.
func Setup(p *services.Program, b *events.Bus) {
	program = p
	bus = b
}

func parseIDParam(c *gin.Context, name string) (uint, bool) {
	id64, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id64 == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid " + name})
		return 0, false
	}
	return uint(id64), true
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrInvalidInput),
		errors.Is(err, services.ErrInvalidComplianceStatus),
		errors.Is(err, events.ErrInvalidEvent):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrOrganizationNotFound),
		errors.Is(err, services.ErrEnrollmentNotFound),
		errors.Is(err, services.ErrSupplyNotFound),
		errors.Is(err, services.ErrUnknownJob):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrEnrollmentExists),
		errors.Is(err, services.ErrComplianceAlreadySubmitted),
		errors.Is(err, services.ErrSweepAlreadyRunning):
		status = http.StatusConflict
	case errors.Is(err, services.ErrOrganizationSuspended):
		status = http.StatusForbidden
	}

	if status == http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed", zap.String("route", c.FullPath()), zap.Error(err))
		c.JSON(status, gin.H{"success": false, "error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"success": false, "error": err.Error()})
}

package controllers

import (
	"net/http"

	"supplement-program-api/events"
	"supplement-program-api/middleware"

	"github.com/gin-gonic/gin"
)

// POST /api/v1/screening-events
// Same payload as the screening-events topic; applied synchronously through the bus.
func CreateScreeningEvent(c *gin.Context) {
	var ev events.ScreeningCompleted
	if err := c.ShouldBindJSON(&ev); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	if err := ev.Validate(); err != nil {
		respondError(c, err)
		return
	}

	if !middleware.CanAccessOrganization(c, ev.OrganizationID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return
	}

	if err := bus.Publish(c.Request.Context(), ev); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success":      true,
		"external_ref": ev.ExternalRef,
	})
}

package controllers

import (
	"net/http"
	"strings"
	"time"

	"supplement-program-api/middleware"
	"supplement-program-api/utils"

	"github.com/gin-gonic/gin"
)

type markDeliveredRequest struct {
	DeliveredOn string `json:"delivered_on"`
}

// POST /api/v1/supplies/:id/deliver
// Body is optional; delivered_on defaults to today.
func MarkSupplyDelivered(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req markDeliveredRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
	}

	var deliveredOn *time.Time
	if raw := strings.TrimSpace(req.DeliveredOn); raw != "" {
		d, err := utils.ParseDate(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
			return
		}
		deliveredOn = &d
	}

	orgID, err := program.Deliveries.SupplyOrganization(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !middleware.CanFulfilOrganization(c, orgID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return
	}

	supply, err := program.Deliveries.MarkDelivered(c.Request.Context(), id, deliveredOn, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":           true,
		"supply_id":         supply.ID,
		"month_index":       supply.MonthIndex,
		"delivered_on":      utils.FormatDate(supply.DeliveredOn),
		"compliance_due_at": supply.ComplianceDueAt,
	})
}

package controllers

import (
	"net/http"
	"strconv"

	"supplement-program-api/middleware"
	"supplement-program-api/utils"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/organizations/:id/enforcement
func GetOrganizationEnforcement(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if !middleware.CanAccessOrganization(c, orgID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return
	}

	org, err := program.Enforcement.GetOrganization(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"organization_id": org.ID,
		"suspended":       org.AssistanceSuspended,
		"suspended_at":    org.AssistanceSuspendedAt,
		"reason":          org.AssistanceSuspensionReason,
	})
}

// POST /api/v1/admin/organizations/:id/evaluate
func EvaluateOrganization(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	result, err := program.Enforcement.Evaluate(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "result": result})
}

// GET /api/v1/organizations/:id/shippable-supplies?month=N
func GetShippableSupplies(c *gin.Context) {
	orgID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	month, err := strconv.Atoi(c.DefaultQuery("month", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid month"})
		return
	}

	supplies, err := program.Enforcement.ShippableSupplies(c.Request.Context(), orgID, month)
	if err != nil {
		respondError(c, err)
		return
	}

	items := make([]gin.H, 0, len(supplies))
	for _, s := range supplies {
		items = append(items, gin.H{
			"supply_id":               s.ID,
			"enrollment_id":           s.EnrollmentID,
			"month_index":             s.MonthIndex,
			"scheduled_delivery_date": utils.FormatDate(s.ScheduledDeliveryDate),
		})
	}
	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"month":    month,
		"total":    len(items),
		"supplies": items,
	})
}

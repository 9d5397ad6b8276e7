package controllers

import (
	"net/http"
	"strconv"

	"supplement-program-api/middleware"

	"github.com/gin-gonic/gin"
)

// GET /api/v1/milestones
// Organization admins see their own organization; program admins pass ?organization_id=.
func GetMilestonesDashboard(c *gin.Context) {
	v, _ := c.Get("orgID")
	orgID, _ := v.(uint)
	if raw := c.Query("organization_id"); raw != "" {
		id64, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || id64 == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid organization_id"})
			return
		}
		orgID = uint(id64)
	}
	if orgID == 0 {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Organization context required"})
		return
	}
	if !middleware.CanAccessOrganization(c, orgID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return
	}

	dashboard, err := program.Dashboards.OrganizationMilestones(c.Request.Context(), orgID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"today":     dashboard.Today,
		"counts":    dashboard.Counts,
		"due_soon":  dashboard.DueSoon,
		"overdue":   dashboard.Overdue,
		"suspended": dashboard.Organization.AssistanceSuspended,
		"reason":    dashboard.Organization.AssistanceSuspensionReason,
	})
}

// GET /api/v1/admin/milestones/overview
func GetMilestonesOverview(c *gin.Context) {
	rows, err := program.Dashboards.Overview(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "organizations": rows})
}

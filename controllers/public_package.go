package controllers

import (
	"net/http"

	"supplement-program-api/models"
	"supplement-program-api/utils"

	"github.com/gin-gonic/gin"
)

type submitComplianceRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// GET /api/v1/public/packages/:token
// The token is the capability; no other authentication applies.
func GetPublicPackage(c *gin.Context) {
	supply, err := program.Compliance.LookupPackage(c.Request.Context(), c.Param("token"))
	if err != nil {
		respondError(c, err)
		return
	}

	status := models.ComplianceStatusNotSubmitted
	if supply.Compliance != nil {
		status = supply.Compliance.Status
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"package": gin.H{
			"month_index":       supply.MonthIndex,
			"delivered":         supply.IsDelivered(),
			"delivered_on":      utils.FormatDate(supply.DeliveredOn),
			"compliance_due_at": supply.ComplianceDueAt,
			"compliance_status": status,
		},
	})
}

// POST /api/v1/public/packages/:token/compliance
func SubmitPackageCompliance(c *gin.Context) {
	var req submitComplianceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	comp, err := program.Compliance.SubmitCompliance(c.Request.Context(), c.Param("token"), req.Status, req.Notes)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Thank you. Your response has been recorded.",
		"status":       comp.Status,
		"submitted_at": comp.SubmittedAt,
	})
}

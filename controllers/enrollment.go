package controllers

import (
	"net/http"

	"supplement-program-api/middleware"
	"supplement-program-api/services"

	"github.com/gin-gonic/gin"
)

type createEnrollmentRequest struct {
	DecisionID     uint `json:"decision_id" binding:"required"`
	OrganizationID uint `json:"organization_id" binding:"required"`
	BeneficiaryID  uint `json:"beneficiary_id" binding:"required"`
}

// POST /api/v1/enrollments
func CreateEnrollment(c *gin.Context) {
	var req createEnrollmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	enrollment, err := program.Enrollments.CreateEnrollment(c.Request.Context(), services.ApprovalDecision{
		DecisionID:     req.DecisionID,
		OrganizationID: req.OrganizationID,
		BeneficiaryID:  req.BeneficiaryID,
	}, middleware.CurrentUserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success":    true,
		"message":    "Enrollment created successfully",
		"enrollment": enrollment,
	})
}

// GET /api/v1/enrollments/:id
func GetEnrollment(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	enrollment, err := program.Enrollments.GetEnrollment(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	if !middleware.CanAccessOrganization(c, enrollment.OrganizationID) {
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": "Insufficient permissions"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "enrollment": enrollment})
}

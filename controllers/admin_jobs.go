package controllers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// POST /api/v1/admin/jobs/:name/run
func RunJob(c *gin.Context) {
	name := c.Param("name")
	result, err := program.Scheduler.RunNow(c.Request.Context(), name, "admin_api")
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "job": name, "summary": result})
}

// GET /api/v1/admin/jobs/runs?job=&limit=&offset=
func ListJobRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	runs, total, err := program.Runs.List(c.Request.Context(), c.Query("job"), limit, offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"jobs":    program.Scheduler.JobNames(),
		"total":   total,
		"runs":    runs,
	})
}

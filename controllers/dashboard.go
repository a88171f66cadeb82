package controllers

import (
	"net/http"
	"time"

	"paper-submission-api/services"

	"github.com/gin-gonic/gin"
)

type DashboardController struct {
	workflow *services.WorkflowService
}

func NewDashboardController(workflow *services.WorkflowService) *DashboardController {
	return &DashboardController{workflow: workflow}
}

// GetDashboardStats returns bucket counts scoped to the caller
func (dc *DashboardController) GetDashboardStats(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}

	counts, err := dc.workflow.BucketCounts(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}

	stats := gin.H{
		"buckets":      counts,
		"role":         p.Role,
		"current_date": time.Now().Format("2006-01-02"),
	}
	if p.IsAdmin() {
		if reviewers, err := dc.workflow.AssignableReviewers(c.Request.Context(), p); err == nil {
			stats["active_reviewers"] = len(reviewers)
		}
	}

	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

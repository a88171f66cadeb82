package controllers

import (
	"net/http"

	"paper-submission-api/services"

	"github.com/gin-gonic/gin"
)

// AdminController exposes the super_admin operations.
type AdminController struct {
	workflow      *services.WorkflowService
	reviewers     *services.ReviewerService
	notifications *services.NotificationService
}

func NewAdminController(workflow *services.WorkflowService, reviewers *services.ReviewerService, notifications *services.NotificationService) *AdminController {
	return &AdminController{workflow: workflow, reviewers: reviewers, notifications: notifications}
}

type assignRequest struct {
	ReviewerID string `json:"reviewer_id"`
}

// AssignReviewer links a submission to a reviewer.
func (ac *AdminController) AssignReviewer(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req assignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &services.ValidationError{Fields: map[string]string{"reviewer_id": "is required"}})
		return
	}

	res, err := ac.workflow.Assign(c.Request.Context(), p, c.Param("id"), req.ReviewerID)
	if err != nil {
		respondError(c, err)
		return
	}

	sub := res.Submission
	if fresh, err := ac.workflow.GetSubmission(c.Request.Context(), p, sub.ID); err == nil {
		sub = *fresh
	}
	c.JSON(http.StatusOK, withWarnings(gin.H{
		"success":       true,
		"message":       "Reviewer assigned",
		"submission":    sub,
		"notifications": res.Notifications,
	}, res.Warnings()))
}

func (ac *AdminController) ListReviewers(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	items, err := ac.workflow.ListReviewers(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviewers": items})
}

// ListAssignableReviewers returns active reviewers only.
func (ac *AdminController) ListAssignableReviewers(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	items, err := ac.workflow.AssignableReviewers(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviewers": items})
}

func (ac *AdminController) CreateReviewer(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var in services.ReviewerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON body"})
		return
	}

	created, err := ac.reviewers.Create(c.Request.Context(), p, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withWarnings(gin.H{
		"success":  true,
		"message":  "Reviewer created",
		"reviewer": created.Reviewer,
	}, created.Warnings()))
}

func (ac *AdminController) UpdateReviewer(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var upd services.ReviewerUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON body"})
		return
	}

	reviewer, err := ac.reviewers.Update(c.Request.Context(), p, c.Param("id"), upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviewer": reviewer})
}

// ToggleReviewerActive flips is_active and returns the reviewer.
func (ac *AdminController) ToggleReviewerActive(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	reviewer, err := ac.workflow.ToggleReviewerActive(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "reviewer": reviewer})
}

// ListNotifications pages through the dispatch log.
func (ac *AdminController) ListNotifications(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	page := parsePage(c)
	items, total, err := ac.notifications.History(c.Request.Context(), p, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":       true,
		"notifications": items,
		"pagination":    page.body(total),
	})
}

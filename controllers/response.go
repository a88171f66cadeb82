package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"paper-submission-api/middleware"
	"paper-submission-api/services"

	"github.com/gin-gonic/gin"
)

// respondError maps service errors to HTTP responses.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	var (
		ve *services.ValidationError
		ae *services.AuthorizationError
		se *services.StorageError
		ne *services.NotificationError
	)
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Validation failed", "fields": ve.Fields})
	case errors.As(err, &ae):
		c.JSON(http.StatusForbidden, gin.H{"success": false, "error": ae.Reason})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Invalid username or password"})
	case errors.Is(err, services.ErrSubmissionNotFound),
		errors.Is(err, services.ErrReviewerNotFound),
		errors.Is(err, services.ErrAdminNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": err.Error()})
	case errors.Is(err, services.ErrReviewerInactive),
		errors.Is(err, services.ErrUsernameTaken),
		errors.Is(err, services.ErrTransitionNotAllowed):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": err.Error()})
	case errors.As(err, &se):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Failed to store document"})
	case errors.As(err, &ne):
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "error": "Failed to send notification"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Internal server error"})
	}
}

// principalOrAbort fetches the caller set by AuthMiddleware.
func principalOrAbort(c *gin.Context) (services.Principal, bool) {
	p, ok := middleware.CurrentPrincipal(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "authentication context missing"})
		return services.Principal{}, false
	}
	return p, true
}

type pageParams struct {
	Page   int
	Limit  int
	Offset int
}

func parsePage(c *gin.Context) pageParams {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	return pageParams{Page: page, Limit: limit, Offset: (page - 1) * limit}
}

func (p pageParams) body(total int64) gin.H {
	totalPages := (total + int64(p.Limit) - 1) / int64(p.Limit)
	return gin.H{
		"current_page": p.Page,
		"per_page":     p.Limit,
		"total_count":  total,
		"total_pages":  totalPages,
		"has_next":     p.Page < int(totalPages),
		"has_prev":     p.Page > 1,
	}
}

// withWarnings adds a warnings list when any notification failed.
func withWarnings(body gin.H, warnings []string) gin.H {
	if len(warnings) > 0 {
		body["warnings"] = warnings
	}
	return body
}

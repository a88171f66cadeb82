package controllers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"paper-submission-api/models"
	"paper-submission-api/services"

	"github.com/gin-gonic/gin"
)

// SubmissionController serves the public form and the role-scoped listings.
type SubmissionController struct {
	intake         *services.SubmissionService
	workflow       *services.WorkflowService
	maxUploadBytes int64
}

func NewSubmissionController(intake *services.SubmissionService, workflow *services.WorkflowService, maxUploadBytes int64) *SubmissionController {
	return &SubmissionController{intake: intake, workflow: workflow, maxUploadBytes: maxUploadBytes}
}

type base64SubmissionRequest struct {
	services.SubmissionInput
	FileBase64 string `json:"file_base64"`
	FileName   string `json:"file_name"`
	MimeType   string `json:"mime_type"`
}

// CreateSubmission accepts a multipart form with a "file" part.
func (sc *SubmissionController) CreateSubmission(c *gin.Context) {
	if !limitBody(c, sc.uploadLimit()+multipartOverhead) {
		return
	}
	var in services.SubmissionInput
	if err := c.ShouldBind(&in); err != nil {
		if isBodyTooLarge(err) {
			respondTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid form data"})
		return
	}

	file, err := sc.readUpload(c)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := sc.intake.Submit(c.Request.Context(), in, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withWarnings(gin.H{
		"success":    true,
		"message":    "Submission received",
		"submission": res.Submission,
	}, res.Warnings()))
}

// CreateSubmissionBase64 accepts the same fields as JSON with a base64 file.
func (sc *SubmissionController) CreateSubmissionBase64(c *gin.Context) {
	// base64 grows the file by a third
	if !limitBody(c, (sc.uploadLimit()+2)/3*4+multipartOverhead) {
		return
	}
	var req base64SubmissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		if isBodyTooLarge(err) {
			respondTooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid JSON body"})
		return
	}

	file, err := services.DecodeBase64File(req.FileBase64, req.FileName, req.MimeType)
	if err != nil {
		respondError(c, err)
		return
	}

	res, err := sc.intake.Submit(c.Request.Context(), req.SubmissionInput, file)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, withWarnings(gin.H{
		"success":    true,
		"file_id":    res.Document.Key,
		"file_url":   res.Document.URL,
		"submission": res.Submission,
	}, res.Warnings()))
}

// multipartOverhead covers the form fields sent next to the document.
const multipartOverhead = 64 << 10

func (sc *SubmissionController) uploadLimit() int64 {
	if sc.maxUploadBytes <= 0 {
		return 10 << 20
	}
	return sc.maxUploadBytes
}

// limitBody caps the request body at limit bytes. A declared length over the
// cap is answered with 413 before anything is read.
func limitBody(c *gin.Context, limit int64) bool {
	if c.Request.ContentLength > limit {
		respondTooLarge(c)
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}

func isBodyTooLarge(err error) bool {
	var tooLarge *http.MaxBytesError
	return errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large")
}

func respondTooLarge(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge, gin.H{"success": false, "error": "Request body too large"})
}

// readUpload returns nil when no file part was sent so that intake reports
// it alongside the other field errors.
func (sc *SubmissionController) readUpload(c *gin.Context) (*services.UploadedFile, error) {
	header, err := c.FormFile("file")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, &services.ValidationError{Fields: map[string]string{"file": "could not read upload"}}
	}
	if sc.maxUploadBytes > 0 && header.Size > sc.maxUploadBytes {
		return nil, &services.ValidationError{Fields: map[string]string{"file": "file is too large"}}
	}

	f, err := header.Open()
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"file": "could not read upload"}}
	}
	defer f.Close()

	limit := sc.uploadLimit()
	data, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return nil, &services.ValidationError{Fields: map[string]string{"file": "could not read upload"}}
	}

	return &services.UploadedFile{
		Name:     header.Filename,
		MimeType: header.Header.Get("Content-Type"),
		Data:     data,
	}, nil
}

// ListSubmissions returns the caller's view of one bucket.
func (sc *SubmissionController) ListSubmissions(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	page := parsePage(c)
	bucket := c.Query("bucket")

	items, err := sc.workflow.ListSubmissions(c.Request.Context(), p, bucket, page.Limit, page.Offset)
	if err != nil {
		respondError(c, err)
		return
	}
	total, err := sc.workflow.CountSubmissions(c.Request.Context(), p, bucket)
	if err != nil {
		respondError(c, err)
		return
	}

	normalized, _ := services.NormalizeBucket(bucket)
	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"bucket":      normalized,
		"submissions": items,
		"pagination":  page.body(total),
	})
}

func (sc *SubmissionController) GetSubmission(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	sub, err := sc.workflow.GetSubmission(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "submission": sub})
}

func (sc *SubmissionController) GetSubmissionHistory(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	history, err := sc.workflow.SubmissionHistory(c.Request.Context(), p, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "history": history})
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateSubmissionStatus changes the status and re-reads the record.
func (sc *SubmissionController) UpdateSubmissionStatus(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, &services.ValidationError{Fields: map[string]string{"status": "is required"}})
		return
	}

	res, err := sc.workflow.SetStatus(c.Request.Context(), p, c.Param("id"), req.Status)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, withWarnings(gin.H{
		"success":       true,
		"message":       "Status updated",
		"submission":    sc.reload(c, p, res.Submission),
		"notifications": res.Notifications,
	}, res.Warnings()))
}

// reload re-queries a submission after a write and falls back to the
// committed state returned by the workflow when the read fails.
func (sc *SubmissionController) reload(c *gin.Context, p services.Principal, committed models.Submission) models.Submission {
	fresh, err := sc.workflow.GetSubmission(c.Request.Context(), p, committed.ID)
	if err != nil {
		return committed
	}
	return *fresh
}

package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"paper-submission-api/models"
	"paper-submission-api/monitor"

	"go.uber.org/zap"
)

// WorkflowOptions tunes a WorkflowService. Zero values select the defaults.
type WorkflowOptions struct {
	Policy       TransitionPolicy
	DashboardURL string
	Logger       *zap.Logger
	Now          func() time.Time
}

// WorkflowService owns submission status transitions and reviewer assignment.
// Each operation commits one partial update and then dispatches its
// notifications independently; a failed dispatch never undoes the update.
type WorkflowService struct {
	repo         Repository
	notifier     Notifier
	policy       TransitionPolicy
	dashboardURL string
	log          *zap.Logger
	now          func() time.Time
}

func NewWorkflowService(repo Repository, notifier Notifier, opts WorkflowOptions) *WorkflowService {
	s := &WorkflowService{
		repo:         repo,
		notifier:     notifier,
		policy:       opts.Policy,
		dashboardURL: opts.DashboardURL,
		log:          opts.Logger,
		now:          opts.Now,
	}
	if s.policy == nil {
		s.policy = PermissivePolicy{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// TransitionResult reports a committed transition and what happened to each
// notification it triggered.
type TransitionResult struct {
	Submission    models.Submission     `json:"submission"`
	Notifications []NotificationOutcome `json:"notifications"`
}

// Partial reports whether the transition committed but at least one
// notification failed.
func (r *TransitionResult) Partial() bool {
	return len(Warnings(r.Notifications)) > 0
}

func (r *TransitionResult) Warnings() []string {
	return Warnings(r.Notifications)
}

// Assign links a submission to an active reviewer and moves it to assigned.
func (s *WorkflowService) Assign(ctx context.Context, p Principal, submissionID, reviewerID string) (*TransitionResult, error) {
	if !p.IsAdmin() {
		return nil, forbidden("only administrators can assign reviewers")
	}
	reviewerID = strings.TrimSpace(reviewerID)
	if reviewerID == "" {
		return nil, newValidationError("reviewer_id", "reviewer is required")
	}

	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	reviewer, err := s.repo.GetReviewer(ctx, reviewerID)
	if err != nil {
		return nil, err
	}
	if !reviewer.IsActive {
		return nil, ErrReviewerInactive
	}

	now := s.now()
	if err := s.repo.UpdateSubmission(ctx, sub.ID, map[string]interface{}{
		"assigned_to": reviewer.ID,
		"status":      models.StatusAssigned,
		"updated_at":  now,
	}); err != nil {
		return nil, err
	}

	prevStatus, prevAssignee := sub.Status, sub.AssignedTo
	assignee := reviewer.ID
	sub.AssignedTo = &assignee
	sub.Status = models.StatusAssigned
	sub.UpdatedAt = now

	s.recordHistory(ctx, p, sub, prevStatus, prevAssignee)
	monitor.WorkflowTransitions.WithLabelValues("assign", models.StatusAssigned).Inc()
	s.log.Info("submission assigned",
		zap.String("submission_id", sub.ID),
		zap.String("reviewer_id", reviewer.ID),
		zap.String("actor", p.ID))

	mail := AssignmentEmail(AssignmentData{
		ReviewerName: reviewer.Name,
		PaperTitle:   sub.PaperTitle,
		AuthorName:   sub.AuthorName,
		DashboardURL: s.dashboardURL,
	})
	outcome := dispatch(ctx, s.notifier, Notification{
		Kind:          KindAssignment,
		To:            reviewer.Email,
		RecipientName: reviewer.Name,
		Subject:       mail.Subject,
		HTML:          mail.HTML,
		SubmissionID:  &sub.ID,
	})

	return &TransitionResult{Submission: *sub, Notifications: []NotificationOutcome{outcome}}, nil
}

// SetStatus moves a submission to newStatus. Admins may act on any
// submission; reviewers only on submissions assigned to them and never back to
// pending. Returning to pending clears the assignment.
func (s *WorkflowService) SetStatus(ctx context.Context, p Principal, submissionID, newStatus string) (*TransitionResult, error) {
	status := strings.ToLower(strings.TrimSpace(newStatus))
	if !IsValidStatus(status) {
		return nil, newValidationError("status", "must be one of pending, assigned, selected, rejected")
	}
	if !p.IsAdmin() && !p.IsReviewer() {
		return nil, forbidden("unknown role")
	}

	sub, err := s.repo.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	if p.IsReviewer() {
		if !sub.IsAssignedTo(p.ID) {
			return nil, forbidden("submission is not assigned to you")
		}
		if status == models.StatusPending {
			return nil, forbidden("only administrators can return a submission to pending")
		}
	}
	if !s.policy.Allowed(sub.Status, status) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, sub.Status, status)
	}

	now := s.now()
	fields := map[string]interface{}{
		"status":     status,
		"updated_at": now,
	}
	prevStatus, prevAssignee := sub.Status, sub.AssignedTo
	if status == models.StatusPending && sub.AssignedTo != nil {
		fields["assigned_to"] = nil
	}
	if err := s.repo.UpdateSubmission(ctx, sub.ID, fields); err != nil {
		return nil, err
	}

	sub.Status = status
	sub.UpdatedAt = now
	if _, cleared := fields["assigned_to"]; cleared {
		sub.AssignedTo = nil
	}

	s.recordHistory(ctx, p, sub, prevStatus, prevAssignee)
	monitor.WorkflowTransitions.WithLabelValues("set_status", status).Inc()
	s.log.Info("submission status updated",
		zap.String("submission_id", sub.ID),
		zap.String("from", prevStatus),
		zap.String("to", status),
		zap.String("actor", p.ID))

	var outcomes []NotificationOutcome
	if prevAssignee != nil {
		outcomes = append(outcomes, s.notifyReviewerOfStatus(ctx, sub, *prevAssignee, status))
	}
	if mail, kind, ok := DecisionEmail(status, DecisionData{AuthorName: sub.AuthorName, PaperTitle: sub.PaperTitle}); ok {
		outcomes = append(outcomes, dispatch(ctx, s.notifier, Notification{
			Kind:          kind,
			To:            sub.Email,
			RecipientName: sub.AuthorName,
			Subject:       mail.Subject,
			HTML:          mail.HTML,
			SubmissionID:  &sub.ID,
		}))
	}

	return &TransitionResult{Submission: *sub, Notifications: outcomes}, nil
}

func (s *WorkflowService) notifyReviewerOfStatus(ctx context.Context, sub *models.Submission, reviewerID, status string) NotificationOutcome {
	reviewer, err := s.repo.GetReviewer(persistentContext(ctx), reviewerID)
	if err != nil {
		s.log.Warn("load reviewer for status notification failed", zap.String("reviewer_id", reviewerID), zap.Error(err))
		return failedOutcome(KindStatusUpdate, reviewerID, err)
	}
	mail := StatusUpdateEmail(StatusUpdateData{
		ReviewerName: reviewer.Name,
		PaperTitle:   sub.PaperTitle,
		AuthorName:   sub.AuthorName,
		Status:       status,
	})
	return dispatch(ctx, s.notifier, Notification{
		Kind:          KindStatusUpdate,
		To:            reviewer.Email,
		RecipientName: reviewer.Name,
		Subject:       mail.Subject,
		HTML:          mail.HTML,
		SubmissionID:  &sub.ID,
	})
}

// ToggleReviewerActive flips a reviewer's is_active flag. Existing
// assignments are left alone.
func (s *WorkflowService) ToggleReviewerActive(ctx context.Context, p Principal, reviewerID string) (*models.Reviewer, error) {
	if !p.IsAdmin() {
		return nil, forbidden("only administrators can change reviewer status")
	}
	reviewer, err := s.repo.GetReviewer(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	next := !reviewer.IsActive
	now := s.now()
	if err := s.repo.UpdateReviewer(ctx, reviewer.ID, map[string]interface{}{
		"is_active":  next,
		"updated_at": now,
	}); err != nil {
		return nil, err
	}
	reviewer.IsActive = next
	reviewer.UpdatedAt = now

	s.log.Info("reviewer active flag toggled",
		zap.String("reviewer_id", reviewer.ID),
		zap.Bool("is_active", next),
		zap.String("actor", p.ID))
	return reviewer, nil
}

func (s *WorkflowService) recordHistory(ctx context.Context, p Principal, sub *models.Submission, prevStatus string, prevAssignee *string) {
	old := prevStatus
	entry := &models.SubmissionStatusHistory{
		SubmissionID:  sub.ID,
		OldStatus:     &old,
		NewStatus:     sub.Status,
		OldAssignee:   prevAssignee,
		NewAssignee:   sub.AssignedTo,
		ChangedBy:     p.ID,
		ChangedByRole: p.Role,
		CreatedAt:     sub.UpdatedAt,
	}
	if err := s.repo.InsertStatusHistory(persistentContext(ctx), entry); err != nil {
		s.log.Warn("record status history failed", zap.String("submission_id", sub.ID), zap.Error(err))
	}
}

func (s *WorkflowService) scope(p Principal) (*string, error) {
	switch {
	case p.IsAdmin():
		return nil, nil
	case p.IsReviewer():
		id := p.ID
		return &id, nil
	}
	return nil, forbidden("unknown role")
}

// ListSubmissions returns the submissions visible to p in bucket, newest first.
func (s *WorkflowService) ListSubmissions(ctx context.Context, p Principal, bucket string, limit, offset int) ([]models.Submission, error) {
	assignedTo, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	b, ok := NormalizeBucket(bucket)
	if !ok {
		return nil, newValidationError("bucket", "must be one of unassigned, assigned, selected, rejected, all")
	}
	return s.repo.QuerySubmissions(ctx, SubmissionFilter{
		AssignedTo: assignedTo,
		Bucket:     b,
		Limit:      limit,
		Offset:     offset,
	})
}

// GetSubmission returns one submission if p may see it.
func (s *WorkflowService) GetSubmission(ctx context.Context, p Principal, id string) (*models.Submission, error) {
	assignedTo, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	sub, err := s.repo.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if assignedTo != nil && !sub.IsAssignedTo(*assignedTo) {
		return nil, forbidden("submission is not assigned to you")
	}
	return sub, nil
}

// SubmissionHistory returns the status trail of a submission visible to p.
func (s *WorkflowService) SubmissionHistory(ctx context.Context, p Principal, id string) ([]models.SubmissionStatusHistory, error) {
	if _, err := s.GetSubmission(ctx, p, id); err != nil {
		return nil, err
	}
	return s.repo.ListStatusHistory(ctx, id)
}

// CountSubmissions counts the submissions visible to p in bucket.
func (s *WorkflowService) CountSubmissions(ctx context.Context, p Principal, bucket string) (int64, error) {
	assignedTo, err := s.scope(p)
	if err != nil {
		return 0, err
	}
	b, ok := NormalizeBucket(bucket)
	if !ok {
		return 0, newValidationError("bucket", "must be one of unassigned, assigned, selected, rejected, all")
	}
	return s.repo.CountSubmissions(ctx, SubmissionFilter{AssignedTo: assignedTo, Bucket: b})
}

// BucketCounts counts the submissions visible to p per bucket.
func (s *WorkflowService) BucketCounts(ctx context.Context, p Principal) (map[string]int64, error) {
	assignedTo, err := s.scope(p)
	if err != nil {
		return nil, err
	}
	return s.countBuckets(ctx, assignedTo)
}

// CountByBucket counts every submission per bucket, for metrics.
func (s *WorkflowService) CountByBucket(ctx context.Context) (map[string]int64, error) {
	return s.countBuckets(ctx, nil)
}

func (s *WorkflowService) countBuckets(ctx context.Context, assignedTo *string) (map[string]int64, error) {
	counts := make(map[string]int64, len(Buckets))
	for _, b := range Buckets {
		n, err := s.repo.CountSubmissions(ctx, SubmissionFilter{AssignedTo: assignedTo, Bucket: b})
		if err != nil {
			return nil, err
		}
		counts[b] = n
	}
	return counts, nil
}

// AssignableReviewers returns the active reviewers, newest first.
func (s *WorkflowService) AssignableReviewers(ctx context.Context, p Principal) ([]models.Reviewer, error) {
	if !p.IsAdmin() {
		return nil, forbidden("only administrators can assign reviewers")
	}
	return s.repo.QueryReviewers(ctx, ReviewerFilter{ActiveOnly: true})
}

// ListReviewers returns every reviewer, newest first.
func (s *WorkflowService) ListReviewers(ctx context.Context, p Principal) ([]models.Reviewer, error) {
	if !p.IsAdmin() {
		return nil, forbidden("only administrators can list reviewers")
	}
	return s.repo.QueryReviewers(ctx, ReviewerFilter{})
}

package services

import (
	"context"
	"errors"

	"paper-submission-api/config"
	"paper-submission-api/models"

	"gorm.io/gorm"
)

// SubmissionFilter selects submissions for a listing. Results are always
// ordered newest submitted_at first.
type SubmissionFilter struct {
	AssignedTo *string
	Bucket     string
	Limit      int
	Offset     int
}

// ReviewerFilter selects reviewers. Results are ordered newest created_at first.
type ReviewerFilter struct {
	ActiveOnly bool
}

// Repository is the durable record store for submissions, accounts, and the
// workflow's audit trail.
type Repository interface {
	InsertSubmission(ctx context.Context, s *models.Submission) error
	GetSubmission(ctx context.Context, id string) (*models.Submission, error)
	UpdateSubmission(ctx context.Context, id string, fields map[string]interface{}) error
	QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error)
	CountSubmissions(ctx context.Context, filter SubmissionFilter) (int64, error)

	InsertReviewer(ctx context.Context, r *models.Reviewer) error
	GetReviewer(ctx context.Context, id string) (*models.Reviewer, error)
	FindReviewerByUsername(ctx context.Context, username string) (*models.Reviewer, error)
	UpdateReviewer(ctx context.Context, id string, fields map[string]interface{}) error
	QueryReviewers(ctx context.Context, filter ReviewerFilter) ([]models.Reviewer, error)

	FindAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error)
	GetAdmin(ctx context.Context, id string) (*models.AdminUser, error)
	InsertAdmin(ctx context.Context, a *models.AdminUser) error

	InsertStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error
	ListStatusHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error)

	InsertNotificationLog(ctx context.Context, n *models.NotificationLog) error
	ListNotificationLogs(ctx context.Context, limit, offset int) ([]models.NotificationLog, int64, error)
}

// GormRepository implements Repository on a SQL database.
type GormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) *GormRepository {
	if db == nil {
		db = config.DB
	}
	return &GormRepository{db: db}
}

func (r *GormRepository) InsertSubmission(ctx context.Context, s *models.Submission) error {
	return repoErr("insert submission", r.db.WithContext(ctx).Create(s).Error)
}

func (r *GormRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	var s models.Submission
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubmissionNotFound
		}
		return nil, repoErr("get submission", err)
	}
	return &s, nil
}

// UpdateSubmission changes only the named columns.
func (r *GormRepository) UpdateSubmission(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Submission{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return repoErr("update submission", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrSubmissionNotFound
	}
	return nil
}

func (r *GormRepository) submissionScope(ctx context.Context, filter SubmissionFilter) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&models.Submission{})
	if filter.AssignedTo != nil {
		q = q.Where("assigned_to = ?", *filter.AssignedTo)
	}
	switch filter.Bucket {
	case BucketUnassigned:
		q = q.Where("(assigned_to IS NULL OR status = ?)", models.StatusPending)
	case BucketAssigned:
		q = q.Where("status = ? AND assigned_to IS NOT NULL", models.StatusAssigned)
	case BucketSelected:
		q = q.Where("status = ?", models.StatusSelected)
	case BucketRejected:
		q = q.Where("status = ?", models.StatusRejected)
	}
	return q
}

func (r *GormRepository) QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	q := r.submissionScope(ctx, filter).Order("submitted_at DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var items []models.Submission
	if err := q.Find(&items).Error; err != nil {
		return nil, repoErr("query submissions", err)
	}
	return items, nil
}

func (r *GormRepository) CountSubmissions(ctx context.Context, filter SubmissionFilter) (int64, error) {
	var total int64
	if err := r.submissionScope(ctx, filter).Count(&total).Error; err != nil {
		return 0, repoErr("count submissions", err)
	}
	return total, nil
}

func (r *GormRepository) InsertReviewer(ctx context.Context, rev *models.Reviewer) error {
	return repoErr("insert reviewer", r.db.WithContext(ctx).Create(rev).Error)
}

func (r *GormRepository) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	var rev models.Reviewer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&rev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewerNotFound
		}
		return nil, repoErr("get reviewer", err)
	}
	return &rev, nil
}

func (r *GormRepository) FindReviewerByUsername(ctx context.Context, username string) (*models.Reviewer, error) {
	var rev models.Reviewer
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&rev).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrReviewerNotFound
		}
		return nil, repoErr("find reviewer", err)
	}
	return &rev, nil
}

func (r *GormRepository) UpdateReviewer(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.Reviewer{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return repoErr("update reviewer", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrReviewerNotFound
	}
	return nil
}

func (r *GormRepository) QueryReviewers(ctx context.Context, filter ReviewerFilter) ([]models.Reviewer, error) {
	q := r.db.WithContext(ctx).Model(&models.Reviewer{})
	if filter.ActiveOnly {
		q = q.Where("is_active = ?", true)
	}
	var items []models.Reviewer
	if err := q.Order("created_at DESC").Find(&items).Error; err != nil {
		return nil, repoErr("query reviewers", err)
	}
	return items, nil
}

func (r *GormRepository) FindAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	var a models.AdminUser
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, repoErr("find admin", err)
	}
	return &a, nil
}

func (r *GormRepository) GetAdmin(ctx context.Context, id string) (*models.AdminUser, error) {
	var a models.AdminUser
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAdminNotFound
		}
		return nil, repoErr("get admin", err)
	}
	return &a, nil
}

func (r *GormRepository) InsertAdmin(ctx context.Context, a *models.AdminUser) error {
	return repoErr("insert admin", r.db.WithContext(ctx).Create(a).Error)
}

func (r *GormRepository) InsertStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error {
	return repoErr("insert status history", r.db.WithContext(ctx).Create(h).Error)
}

func (r *GormRepository) ListStatusHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error) {
	var rows []models.SubmissionStatusHistory
	err := r.db.WithContext(ctx).
		Where("submission_id = ?", submissionID).
		Order("created_at ASC, history_id ASC").
		Find(&rows).Error
	return rows, repoErr("list status history", err)
}

func (r *GormRepository) InsertNotificationLog(ctx context.Context, n *models.NotificationLog) error {
	return repoErr("insert notification log", r.db.WithContext(ctx).Create(n).Error)
}

func (r *GormRepository) ListNotificationLogs(ctx context.Context, limit, offset int) ([]models.NotificationLog, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.NotificationLog{}).Count(&total).Error; err != nil {
		return nil, 0, repoErr("count notification logs", err)
	}

	var items []models.NotificationLog
	if err := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, 0, repoErr("list notification logs", err)
	}
	return items, total, nil
}

package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"paper-submission-api/models"
)

// MemoryRepository keeps every record in process memory. It backs
// DB_DRIVER=memory for local development and the service tests.
type MemoryRepository struct {
	mu            sync.RWMutex
	submissions   map[string]models.Submission
	reviewers     map[string]models.Reviewer
	admins        map[string]models.AdminUser
	history       []models.SubmissionStatusHistory
	notifications []models.NotificationLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		submissions: make(map[string]models.Submission),
		reviewers:   make(map[string]models.Reviewer),
		admins:      make(map[string]models.AdminUser),
	}
}

func (m *MemoryRepository) InsertSubmission(ctx context.Context, s *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.submissions[s.ID]; exists {
		return repoErr("insert submission", fmt.Errorf("duplicate id %s", s.ID))
	}
	m.submissions[s.ID] = *s
	return nil
}

func (m *MemoryRepository) GetSubmission(ctx context.Context, id string) (*models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return nil, ErrSubmissionNotFound
	}
	return &s, nil
}

func (m *MemoryRepository) UpdateSubmission(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.submissions[id]
	if !ok {
		return ErrSubmissionNotFound
	}
	for column, value := range fields {
		switch column {
		case "status":
			s.Status = value.(string)
		case "assigned_to":
			s.AssignedTo = stringPtrValue(value)
		case "updated_at":
			s.UpdatedAt = value.(time.Time)
		default:
			return repoErr("update submission", fmt.Errorf("unsupported column %q", column))
		}
	}
	m.submissions[id] = s
	return nil
}

func (m *MemoryRepository) filterSubmissions(filter SubmissionFilter) []models.Submission {
	out := make([]models.Submission, 0)
	for _, s := range m.submissions {
		s := s
		if filter.AssignedTo != nil && !s.IsAssignedTo(*filter.AssignedTo) {
			continue
		}
		if !MatchesBucket(&s, filter.Bucket) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out
}

func (m *MemoryRepository) QuerySubmissions(ctx context.Context, filter SubmissionFilter) ([]models.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := m.filterSubmissions(filter)
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Submission{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *MemoryRepository) CountSubmissions(ctx context.Context, filter SubmissionFilter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(len(m.filterSubmissions(filter))), nil
}

func (m *MemoryRepository) InsertReviewer(ctx context.Context, r *models.Reviewer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.reviewers {
		if existing.Username == r.Username {
			return repoErr("insert reviewer", fmt.Errorf("duplicate username %s", r.Username))
		}
	}
	m.reviewers[r.ID] = *r
	return nil
}

func (m *MemoryRepository) GetReviewer(ctx context.Context, id string) (*models.Reviewer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.reviewers[id]
	if !ok {
		return nil, ErrReviewerNotFound
	}
	return &r, nil
}

func (m *MemoryRepository) FindReviewerByUsername(ctx context.Context, username string) (*models.Reviewer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, r := range m.reviewers {
		if r.Username == username {
			r := r
			return &r, nil
		}
	}
	return nil, ErrReviewerNotFound
}

func (m *MemoryRepository) UpdateReviewer(ctx context.Context, id string, fields map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.reviewers[id]
	if !ok {
		return ErrReviewerNotFound
	}
	for column, value := range fields {
		switch column {
		case "name":
			r.Name = value.(string)
		case "email":
			r.Email = value.(string)
		case "phone":
			r.Phone = value.(string)
		case "password":
			r.PasswordHash = value.(string)
		case "is_active":
			r.IsActive = value.(bool)
		case "updated_at":
			r.UpdatedAt = value.(time.Time)
		default:
			return repoErr("update reviewer", fmt.Errorf("unsupported column %q", column))
		}
	}
	m.reviewers[id] = r
	return nil
}

func (m *MemoryRepository) QueryReviewers(ctx context.Context, filter ReviewerFilter) ([]models.Reviewer, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Reviewer, 0, len(m.reviewers))
	for _, r := range m.reviewers {
		if filter.ActiveOnly && !r.IsActive {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (m *MemoryRepository) FindAdminByUsername(ctx context.Context, username string) (*models.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, a := range m.admins {
		if a.Username == username {
			a := a
			return &a, nil
		}
	}
	return nil, ErrAdminNotFound
}

func (m *MemoryRepository) GetAdmin(ctx context.Context, id string) (*models.AdminUser, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.admins[id]
	if !ok {
		return nil, ErrAdminNotFound
	}
	return &a, nil
}

func (m *MemoryRepository) InsertAdmin(ctx context.Context, a *models.AdminUser) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.admins[a.ID] = *a
	return nil
}

func (m *MemoryRepository) InsertStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	h.HistoryID = len(m.history) + 1
	m.history = append(m.history, *h)
	return nil
}

func (m *MemoryRepository) ListStatusHistory(ctx context.Context, submissionID string) ([]models.SubmissionStatusHistory, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.SubmissionStatusHistory, 0)
	for _, h := range m.history {
		if h.SubmissionID == submissionID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (m *MemoryRepository) InsertNotificationLog(ctx context.Context, n *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n.NotificationID = uint(len(m.notifications) + 1)
	m.notifications = append(m.notifications, *n)
	return nil
}

func (m *MemoryRepository) ListNotificationLogs(ctx context.Context, limit, offset int) ([]models.NotificationLog, int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	total := len(m.notifications)
	out := make([]models.NotificationLog, 0, limit)
	// newest first
	for i := total - 1 - offset; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.notifications[i])
	}
	return out, int64(total), nil
}

func stringPtrValue(v interface{}) *string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return &t
	case *string:
		if t == nil {
			return nil
		}
		c := *t
		return &c
	}
	return nil
}

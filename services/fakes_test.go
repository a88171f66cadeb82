package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"paper-submission-api/models"
	"paper-submission-api/storage"
)

var testNow = time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

var adminPrincipal = Principal{ID: "admin-1", Role: models.RoleSuperAdmin, Username: "admin"}

func reviewerPrincipal(id string) Principal {
	return Principal{ID: id, Role: models.RoleReviewer, Username: id}
}

type recordingNotifier struct {
	mu      sync.Mutex
	sent    []Notification
	failAll error
	fail    map[string]error
}

func (n *recordingNotifier) Send(ctx context.Context, note Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
	if n.failAll != nil {
		return n.failAll
	}
	return n.fail[note.Kind]
}

func (n *recordingNotifier) byKind(kind string) []Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []Notification
	for _, s := range n.sent {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type recordingStore struct {
	mu       sync.Mutex
	stored   []storage.DocumentRef
	deleted  []storage.DocumentRef
	storeErr error
}

func (s *recordingStore) Store(ctx context.Context, data []byte, fileName, mimeType string) (storage.DocumentRef, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.storeErr != nil {
		return storage.DocumentRef{}, s.storeErr
	}
	key := storage.BuildKey(testNow, fileName)
	ref := storage.DocumentRef{URL: "https://files.example.test/" + key, Name: fileName, Key: key}
	s.stored = append(s.stored, ref)
	return ref, nil
}

func (s *recordingStore) Delete(ctx context.Context, ref storage.DocumentRef) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deleted = append(s.deleted, ref)
	return nil
}

// failingInsertRepo rejects submission inserts and delegates everything else.
type failingInsertRepo struct {
	*MemoryRepository
	err error
}

func (r failingInsertRepo) InsertSubmission(ctx context.Context, s *models.Submission) error {
	return repoErr("insert submission", r.err)
}

// failingHistoryRepo rejects status history writes.
type failingHistoryRepo struct {
	*MemoryRepository
}

func (r failingHistoryRepo) InsertStatusHistory(ctx context.Context, h *models.SubmissionStatusHistory) error {
	return repoErr("insert status history", context.DeadlineExceeded)
}

func seedReviewer(t *testing.T, repo Repository, id, name string, active bool) *models.Reviewer {
	t.Helper()
	r := &models.Reviewer{
		ID:        id,
		Name:      name,
		Email:     id + "@reviewers.test",
		Username:  id,
		IsActive:  active,
		CreatedAt: testNow.Add(-time.Duration(len(id)) * time.Hour),
		UpdatedAt: testNow,
	}
	if err := repo.InsertReviewer(context.Background(), r); err != nil {
		t.Fatalf("seed reviewer %s: %v", id, err)
	}
	return r
}

func seedSubmission(t *testing.T, repo Repository, id, status string, assignedTo *string, submittedAt time.Time) *models.Submission {
	t.Helper()
	url := "https://files.example.test/" + id + ".pdf"
	name := id + ".pdf"
	s := &models.Submission{
		ID:                 id,
		AuthorName:         "Author " + id,
		Email:              id + "@authors.test",
		CountryCode:        "+1",
		Phone:              "5550100",
		PaperTitle:         "Paper " + id,
		Institution:        "Institute",
		Designation:        "Lecturer",
		Department:         "CS",
		PresentationMode:   models.PresentationOnline,
		JournalPublication: models.JournalYes,
		DocumentURL:        &url,
		DocumentName:       &name,
		Status:             status,
		AssignedTo:         assignedTo,
		SubmittedAt:        submittedAt,
		UpdatedAt:          submittedAt,
	}
	if err := repo.InsertSubmission(context.Background(), s); err != nil {
		t.Fatalf("seed submission %s: %v", id, err)
	}
	return s
}

func strPtr(s string) *string { return &s }

package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"paper-submission-api/models"
	"paper-submission-api/utils"
)

func seedAccounts(t *testing.T) *MemoryRepository {
	t.Helper()
	repo := NewMemoryRepository()
	adminHash, _ := utils.HashPassword("admin-pass-1")
	if err := repo.InsertAdmin(context.Background(), &models.AdminUser{ID: "admin-1", Name: "Chair", Username: "chair", PasswordHash: adminHash}); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	revHash, _ := utils.HashPassword("review-pass-1")
	for _, r := range []models.Reviewer{
		{ID: "rev-1", Name: "Dana", Username: "dana", PasswordHash: revHash, IsActive: true},
		{ID: "rev-2", Name: "Eli", Username: "eli", PasswordHash: revHash, IsActive: false},
	} {
		r := r
		if err := repo.InsertReviewer(context.Background(), &r); err != nil {
			t.Fatalf("seed reviewer: %v", err)
		}
	}
	return repo
}

func TestLoginResolvesRoles(t *testing.T) {
	svc := NewAuthService(seedAccounts(t), nil)

	admin, err := svc.Login(context.Background(), "Chair", "admin-pass-1")
	if err != nil || admin.Role != models.RoleSuperAdmin || admin.ID != "admin-1" {
		t.Fatalf("admin login = %+v, %v", admin, err)
	}

	rev, err := svc.Login(context.Background(), "dana", "review-pass-1")
	if err != nil || rev.Role != models.RoleReviewer || rev.Principal().ID != "rev-1" {
		t.Fatalf("reviewer login = %+v, %v", rev, err)
	}
}

func TestLoginFailures(t *testing.T) {
	svc := NewAuthService(seedAccounts(t), nil)

	cases := []struct {
		user, pass string
		want       error
	}{
		{"chair", "wrong", ErrInvalidCredentials},
		{"nobody", "whatever", ErrInvalidCredentials},
		{"", "", ErrInvalidCredentials},
		{"eli", "review-pass-1", ErrReviewerInactive},
		{"eli", "bad", ErrInvalidCredentials},
	}
	for _, tc := range cases {
		if _, err := svc.Login(context.Background(), tc.user, tc.pass); !errors.Is(err, tc.want) {
			t.Fatalf("Login(%q) = %v, want %v", tc.user, err, tc.want)
		}
	}
}

func TestResolveRejectsDeactivatedReviewer(t *testing.T) {
	svc := NewAuthService(seedAccounts(t), nil)

	if _, err := svc.Resolve(context.Background(), reviewerPrincipal("rev-2")); !errors.Is(err, ErrReviewerInactive) {
		t.Fatalf("expected ErrReviewerInactive, got %v", err)
	}
	if p, err := svc.Resolve(context.Background(), adminPrincipal); err != nil || p.Name != "Chair" {
		t.Fatalf("resolve admin = %+v, %v", p, err)
	}
	if _, err := svc.Resolve(context.Background(), Principal{ID: "x", Role: "guest"}); err == nil {
		t.Fatalf("unknown role resolved")
	}
}

func TestReviewerCreateSendsCredentials(t *testing.T) {
	repo := seedAccounts(t)
	notifier := &recordingNotifier{}
	svc := NewReviewerService(repo, notifier, "https://papers.example.test/login", nil)

	created, err := svc.Create(context.Background(), adminPrincipal, ReviewerInput{
		Name:     "Fay",
		Email:    "FAY@reviewers.test",
		Username: "Fay.R",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !created.Reviewer.IsActive || created.Reviewer.Username != "fay.r" || created.Reviewer.Email != "fay@reviewers.test" {
		t.Fatalf("created = %+v", created.Reviewer)
	}
	if !utils.IsBcryptHash(created.Reviewer.PasswordHash) {
		t.Fatalf("password not hashed")
	}

	creds := notifier.byKind(KindCredentials)
	if len(creds) != 1 || !strings.Contains(creds[0].HTML, "fay.r") {
		t.Fatalf("credentials mail = %+v", creds)
	}

	auth := NewAuthService(repo, nil)
	if _, err := auth.Login(context.Background(), "fay.r", "definitely-wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestReviewerCreateWithPasswordCanLogIn(t *testing.T) {
	repo := seedAccounts(t)
	svc := NewReviewerService(repo, &recordingNotifier{}, "", nil)

	if _, err := svc.Create(context.Background(), adminPrincipal, ReviewerInput{
		Name: "Gus", Email: "gus@reviewers.test", Username: "gus", Password: "gus-secret-9",
	}); err != nil {
		t.Fatalf("create: %v", err)
	}
	p, err := NewAuthService(repo, nil).Login(context.Background(), "gus", "gus-secret-9")
	if err != nil || p.Role != models.RoleReviewer {
		t.Fatalf("login = %+v, %v", p, err)
	}
}

func TestReviewerCreateRejections(t *testing.T) {
	repo := seedAccounts(t)
	svc := NewReviewerService(repo, &recordingNotifier{}, "", nil)

	if _, err := svc.Create(context.Background(), reviewerPrincipal("rev-1"), ReviewerInput{Name: "X", Email: "x@y.test", Username: "xyz"}); err == nil {
		t.Fatalf("reviewer created a reviewer")
	}
	if _, err := svc.Create(context.Background(), adminPrincipal, ReviewerInput{Name: "X", Email: "x@y.test", Username: "dana"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken for reviewer name, got %v", err)
	}
	if _, err := svc.Create(context.Background(), adminPrincipal, ReviewerInput{Name: "X", Email: "x@y.test", Username: "chair"}); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken for admin name, got %v", err)
	}

	_, err := svc.Create(context.Background(), adminPrincipal, ReviewerInput{Email: "bad", Username: "a b"})
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, f := range []string{"name", "email", "username"} {
		if ve.Fields[f] == "" {
			t.Fatalf("field %s not flagged: %v", f, ve.Fields)
		}
	}
}

func TestReviewerUpdate(t *testing.T) {
	repo := seedAccounts(t)
	svc := NewReviewerService(repo, &recordingNotifier{}, "", nil)

	name := " Dana Scully "
	pass := "new-password-1"
	updated, err := svc.Update(context.Background(), adminPrincipal, "rev-1", ReviewerUpdate{Name: &name, Password: &pass})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Name != "Dana Scully" || !updated.IsActive {
		t.Fatalf("updated = %+v", updated)
	}
	if _, err := NewAuthService(repo, nil).Login(context.Background(), "dana", pass); err != nil {
		t.Fatalf("login with new password: %v", err)
	}

	if _, err := svc.Update(context.Background(), adminPrincipal, "ghost", ReviewerUpdate{Name: &name}); !errors.Is(err, ErrReviewerNotFound) {
		t.Fatalf("expected ErrReviewerNotFound, got %v", err)
	}
	short := "short"
	var ve *ValidationError
	if _, err := svc.Update(context.Background(), adminPrincipal, "rev-1", ReviewerUpdate{Password: &short}); !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

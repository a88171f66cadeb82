package services

import (
	"context"
	"errors"
	"strings"
	"sync"

	"paper-submission-api/models"
	"paper-submission-api/utils"

	"go.uber.org/zap"
)

var (
	dummyHashOnce sync.Once
	dummyHash     string
)

// dummyPasswordHash is compared against when no account matches so that
// unknown usernames cost the same as wrong passwords.
func dummyPasswordHash() string {
	dummyHashOnce.Do(func() {
		h, err := utils.HashPassword("paper-submission-dummy-password")
		if err == nil {
			dummyHash = h
		}
	})
	return dummyHash
}

// Profile is the account behind a principal.
type Profile struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone,omitempty"`
	IsActive bool   `json:"is_active"`
}

// AuthService verifies credentials against the admin and reviewer tables.
type AuthService struct {
	repo Repository
	log  *zap.Logger
}

func NewAuthService(repo Repository, log *zap.Logger) *AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthService{repo: repo, log: log}
}

// Login resolves username against admins first, then reviewers. Inactive
// reviewers are refused with ErrReviewerInactive after a correct password.
func (s *AuthService) Login(ctx context.Context, username, password string) (*Profile, error) {
	username = strings.ToLower(utils.SanitizeInput(username))
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	admin, err := s.repo.FindAdminByUsername(ctx, username)
	switch {
	case err == nil:
		if !utils.CheckPasswordHash(password, admin.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		return adminProfile(admin), nil
	case !errors.Is(err, ErrAdminNotFound):
		return nil, err
	}

	reviewer, err := s.repo.FindReviewerByUsername(ctx, username)
	switch {
	case err == nil:
		if !utils.CheckPasswordHash(password, reviewer.PasswordHash) {
			return nil, ErrInvalidCredentials
		}
		if !reviewer.IsActive {
			return nil, ErrReviewerInactive
		}
		return reviewerProfile(reviewer), nil
	case !errors.Is(err, ErrReviewerNotFound):
		return nil, err
	}

	utils.CheckPasswordHash(password, dummyPasswordHash())
	return nil, ErrInvalidCredentials
}

// Resolve loads the account behind p and confirms it may still act.
func (s *AuthService) Resolve(ctx context.Context, p Principal) (*Profile, error) {
	switch p.Role {
	case models.RoleSuperAdmin:
		admin, err := s.repo.GetAdmin(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		return adminProfile(admin), nil
	case models.RoleReviewer:
		reviewer, err := s.repo.GetReviewer(ctx, p.ID)
		if err != nil {
			return nil, err
		}
		if !reviewer.IsActive {
			return nil, ErrReviewerInactive
		}
		return reviewerProfile(reviewer), nil
	}
	return nil, forbidden("unknown role")
}

func (p *Profile) Principal() Principal {
	return Principal{ID: p.ID, Role: p.Role, Username: p.Username}
}

func adminProfile(a *models.AdminUser) *Profile {
	return &Profile{
		ID:       a.ID,
		Role:     models.RoleSuperAdmin,
		Username: a.Username,
		Name:     a.Name,
		Email:    a.Email,
		IsActive: true,
	}
}

func reviewerProfile(r *models.Reviewer) *Profile {
	return &Profile{
		ID:       r.ID,
		Role:     models.RoleReviewer,
		Username: r.Username,
		Name:     r.Name,
		Email:    r.Email,
		Phone:    r.Phone,
		IsActive: r.IsActive,
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"paper-submission-api/models"
	"paper-submission-api/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReviewerInput creates a reviewer account. An empty password is generated.
type ReviewerInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Phone    string `json:"phone" validate:"max=30"`
	Username string `json:"username" validate:"required,min=3,max=100"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
}

// ReviewerUpdate changes profile fields of a reviewer. Nil fields are left alone.
type ReviewerUpdate struct {
	Name     *string `json:"name" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email" validate:"omitempty,email,max=255"`
	Phone    *string `json:"phone" validate:"omitempty,max=30"`
	Password *string `json:"password" validate:"omitempty,min=8,max=72"`
}

// ReviewerService manages reviewer accounts for administrators.
type ReviewerService struct {
	repo     Repository
	notifier Notifier
	loginURL string
	log      *zap.Logger
	now      func() time.Time
}

func NewReviewerService(repo Repository, notifier Notifier, loginURL string, log *zap.Logger) *ReviewerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReviewerService{repo: repo, notifier: notifier, loginURL: loginURL, log: log, now: time.Now}
}

// CreatedReviewer is a new account plus the outcome of the credentials email.
type CreatedReviewer struct {
	Reviewer      models.Reviewer       `json:"reviewer"`
	Notifications []NotificationOutcome `json:"notifications"`
}

func (c *CreatedReviewer) Warnings() []string { return Warnings(c.Notifications) }

// usernameTaken checks both account tables since login resolves either.
func (s *ReviewerService) usernameTaken(ctx context.Context, username string) (bool, error) {
	if _, err := s.repo.FindReviewerByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrReviewerNotFound) {
		return false, err
	}
	if _, err := s.repo.FindAdminByUsername(ctx, username); err == nil {
		return true, nil
	} else if !errors.Is(err, ErrAdminNotFound) {
		return false, err
	}
	return false, nil
}

// Create adds an active reviewer and emails the login credentials.
func (s *ReviewerService) Create(ctx context.Context, p Principal, in ReviewerInput) (*CreatedReviewer, error) {
	if !p.IsAdmin() {
		return nil, forbidden("only administrators can create reviewers")
	}

	in.Name = utils.SanitizeInput(in.Name)
	in.Email = strings.ToLower(utils.SanitizeInput(in.Email))
	in.Phone = utils.SanitizeInput(in.Phone)
	in.Username = strings.ToLower(utils.SanitizeInput(in.Username))

	fields := map[string]string{}
	if err := validate.Struct(in); err != nil {
		fields = validationFields(err)
	}
	if _, bad := fields["username"]; !bad && !utils.ValidateUsername(in.Username) {
		fields["username"] = "may only contain letters, digits, dots, dashes and underscores"
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	taken, err := s.usernameTaken(ctx, in.Username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	password := in.Password
	if password == "" {
		if password, err = utils.GeneratePassword(12); err != nil {
			return nil, err
		}
	}
	hash, err := utils.HashPassword(password)
	if err != nil {
		return nil, err
	}

	now := s.now()
	reviewer := &models.Reviewer{
		ID:           uuid.NewString(),
		Name:         in.Name,
		Email:        in.Email,
		Phone:        in.Phone,
		Username:     in.Username,
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.InsertReviewer(ctx, reviewer); err != nil {
		return nil, err
	}
	s.log.Info("reviewer created", zap.String("reviewer_id", reviewer.ID), zap.String("actor", p.ID))

	mail := CredentialsEmail(CredentialsData{
		ReviewerName: reviewer.Name,
		Username:     reviewer.Username,
		Password:     password,
		LoginURL:     s.loginURL,
	})
	outcome := dispatch(ctx, s.notifier, Notification{
		Kind:          KindCredentials,
		To:            reviewer.Email,
		RecipientName: reviewer.Name,
		Subject:       mail.Subject,
		HTML:          mail.HTML,
	})

	return &CreatedReviewer{Reviewer: *reviewer, Notifications: []NotificationOutcome{outcome}}, nil
}

// Update changes profile fields of a reviewer. The active flag is only
// changed through the workflow toggle.
func (s *ReviewerService) Update(ctx context.Context, p Principal, id string, upd ReviewerUpdate) (*models.Reviewer, error) {
	if !p.IsAdmin() {
		return nil, forbidden("only administrators can edit reviewers")
	}
	if err := validate.Struct(upd); err != nil {
		return nil, &ValidationError{Fields: validationFields(err)}
	}

	fields := map[string]interface{}{}
	if upd.Name != nil {
		name := utils.SanitizeInput(*upd.Name)
		if name == "" {
			return nil, newValidationError("name", "is required")
		}
		fields["name"] = name
	}
	if upd.Email != nil {
		fields["email"] = strings.ToLower(utils.SanitizeInput(*upd.Email))
	}
	if upd.Phone != nil {
		fields["phone"] = utils.SanitizeInput(*upd.Phone)
	}
	if upd.Password != nil {
		hash, err := utils.HashPassword(*upd.Password)
		if err != nil {
			return nil, err
		}
		fields["password"] = hash
	}

	if len(fields) == 0 {
		return s.repo.GetReviewer(ctx, id)
	}
	fields["updated_at"] = s.now()
	if err := s.repo.UpdateReviewer(ctx, id, fields); err != nil {
		return nil, err
	}
	s.log.Info("reviewer updated", zap.String("reviewer_id", id), zap.String("actor", p.ID))
	return s.repo.GetReviewer(ctx, id)
}

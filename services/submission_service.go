package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"paper-submission-api/models"
	"paper-submission-api/monitor"
	"paper-submission-api/storage"
	"paper-submission-api/utils"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SubmissionInput holds the form fields of a paper submission.
type SubmissionInput struct {
	AuthorName         string `json:"author_name" form:"author_name" validate:"required,max=255"`
	CoAuthorName       string `json:"co_author_name" form:"co_author_name" validate:"max=255"`
	Email              string `json:"email" form:"email" validate:"required,email,max=255"`
	CountryCode        string `json:"country_code" form:"country_code" validate:"required,max=10"`
	Phone              string `json:"phone" form:"phone" validate:"required,max=30"`
	WhatsApp           string `json:"whatsapp" form:"whatsapp" validate:"max=30"`
	PaperTitle         string `json:"paper_title" form:"paper_title" validate:"required,max=500"`
	Institution        string `json:"institution" form:"institution" validate:"required,max=255"`
	Designation        string `json:"designation" form:"designation" validate:"required,max=255"`
	Department         string `json:"department" form:"department" validate:"required,max=255"`
	PresentationMode   string `json:"presentation_mode" form:"presentation_mode" validate:"required,oneof=online offline hybrid"`
	JournalPublication string `json:"journal_publication" form:"journal_publication" validate:"required,oneof=yes no maybe"`
	Message            string `json:"message" form:"message" validate:"max=5000"`
}

func (in *SubmissionInput) normalize() {
	in.AuthorName = utils.SanitizeInput(in.AuthorName)
	in.CoAuthorName = utils.SanitizeInput(in.CoAuthorName)
	in.Email = strings.ToLower(utils.SanitizeInput(in.Email))
	in.CountryCode = utils.SanitizeInput(in.CountryCode)
	in.Phone = utils.SanitizeInput(in.Phone)
	in.WhatsApp = utils.SanitizeInput(in.WhatsApp)
	in.PaperTitle = utils.SanitizeInput(in.PaperTitle)
	in.Institution = utils.SanitizeInput(in.Institution)
	in.Designation = utils.SanitizeInput(in.Designation)
	in.Department = utils.SanitizeInput(in.Department)
	in.PresentationMode = strings.ToLower(utils.SanitizeInput(in.PresentationMode))
	in.JournalPublication = strings.ToLower(utils.SanitizeInput(in.JournalPublication))
	in.Message = utils.SanitizeInput(in.Message)
}

// UploadedFile is the paper document attached to a submission.
type UploadedFile struct {
	Name     string
	MimeType string
	Data     []byte
}

var allowedDocumentExts = map[string]bool{
	".pdf":  true,
	".doc":  true,
	".docx": true,
}

// DecodeBase64File decodes a base64 payload, with or without a data: URL prefix.
func DecodeBase64File(payload, fileName, mimeType string) (*UploadedFile, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return nil, newValidationError("file_base64", "file is required")
	}
	if strings.HasPrefix(payload, "data:") {
		comma := strings.Index(payload, ",")
		if comma < 0 {
			return nil, newValidationError("file_base64", "malformed data URL")
		}
		header := payload[len("data:"):comma]
		if mimeType == "" {
			mimeType = strings.TrimSuffix(header, ";base64")
		}
		payload = payload[comma+1:]
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, newValidationError("file_base64", "file is not valid base64")
	}
	return &UploadedFile{Name: fileName, MimeType: mimeType, Data: data}, nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// validationFields converts validator errors to field messages.
func validationFields(err error) map[string]string {
	fields := map[string]string{}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["_"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			fields[fe.Field()] = "is required"
		case "email":
			fields[fe.Field()] = "must be a valid email address"
		case "oneof":
			fields[fe.Field()] = "must be one of " + strings.ReplaceAll(fe.Param(), " ", ", ")
		case "max":
			fields[fe.Field()] = "must be at most " + fe.Param() + " characters"
		case "min":
			fields[fe.Field()] = "must be at least " + fe.Param() + " characters"
		default:
			fields[fe.Field()] = "is invalid"
		}
	}
	return fields
}

// SubmissionOptions configures intake.
type SubmissionOptions struct {
	MaxUploadBytes int64
	AdminEmail     string
	DashboardURL   string
	Logger         *zap.Logger
	Now            func() time.Time
}

// SubmissionService accepts public paper submissions.
type SubmissionService struct {
	repo     Repository
	store    storage.DocumentStore
	notifier Notifier
	opts     SubmissionOptions
	log      *zap.Logger
	now      func() time.Time
}

func NewSubmissionService(repo Repository, store storage.DocumentStore, notifier Notifier, opts SubmissionOptions) *SubmissionService {
	s := &SubmissionService{repo: repo, store: store, notifier: notifier, opts: opts, log: opts.Logger, now: opts.Now}
	if s.opts.MaxUploadBytes <= 0 {
		s.opts.MaxUploadBytes = 10 << 20
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// IntakeResult is a persisted submission plus its receipt notifications.
type IntakeResult struct {
	Submission    models.Submission     `json:"submission"`
	Document      storage.DocumentRef   `json:"document"`
	Notifications []NotificationOutcome `json:"notifications"`
}

func (r *IntakeResult) Warnings() []string { return Warnings(r.Notifications) }

func (s *SubmissionService) validateFile(file *UploadedFile, fields map[string]string) {
	if file == nil || len(file.Data) == 0 {
		fields["file"] = "a document is required"
		return
	}
	if int64(len(file.Data)) > s.opts.MaxUploadBytes {
		fields["file"] = fmt.Sprintf("must be at most %d MB", s.opts.MaxUploadBytes>>20)
		return
	}
	if !allowedDocumentExts[strings.ToLower(filepath.Ext(file.Name))] {
		fields["file"] = "must be a .pdf, .doc or .docx file"
	}
}

// Submit validates the form, stores the document once, and persists a
// pending submission referencing it. Nothing is stored or written when
// validation fails.
func (s *SubmissionService) Submit(ctx context.Context, in SubmissionInput, file *UploadedFile) (*IntakeResult, error) {
	in.normalize()

	fields := map[string]string{}
	if err := validate.Struct(in); err != nil {
		fields = validationFields(err)
	}
	s.validateFile(file, fields)
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	ref, err := s.store.Store(ctx, file.Data, file.Name, file.MimeType)
	if err != nil {
		monitor.DocumentUploads.WithLabelValues("failed").Inc()
		s.log.Error("document store failed", zap.String("file", file.Name), zap.Error(err))
		return nil, &StorageError{Op: "store", Err: err}
	}
	monitor.DocumentUploads.WithLabelValues("stored").Inc()

	now := s.now()
	docURL, docName, docKey := ref.URL, ref.Name, ref.Key
	sub := &models.Submission{
		ID:                 uuid.NewString(),
		AuthorName:         in.AuthorName,
		CoAuthorName:       utils.OptionalString(in.CoAuthorName),
		Email:              in.Email,
		CountryCode:        in.CountryCode,
		Phone:              in.Phone,
		WhatsApp:           utils.OptionalString(in.WhatsApp),
		PaperTitle:         in.PaperTitle,
		Institution:        in.Institution,
		Designation:        in.Designation,
		Department:         in.Department,
		PresentationMode:   in.PresentationMode,
		JournalPublication: in.JournalPublication,
		Message:            utils.OptionalString(in.Message),
		DocumentURL:        &docURL,
		DocumentName:       &docName,
		DocumentKey:        &docKey,
		Status:             models.StatusPending,
		SubmittedAt:        now,
		UpdatedAt:          now,
	}

	if err := s.repo.InsertSubmission(ctx, sub); err != nil {
		if delErr := s.store.Delete(persistentContext(ctx), ref); delErr != nil {
			s.log.Warn("cleanup of orphaned document failed", zap.String("key", ref.Key), zap.Error(delErr))
		}
		return nil, repoErr("insert submission", err)
	}

	monitor.SubmissionsCreated.Inc()
	s.log.Info("submission received",
		zap.String("submission_id", sub.ID),
		zap.String("email", sub.Email),
		zap.String("document_key", ref.Key))

	return &IntakeResult{
		Submission:    *sub,
		Document:      ref,
		Notifications: s.notifyReceipt(ctx, sub),
	}, nil
}

func (s *SubmissionService) notifyReceipt(ctx context.Context, sub *models.Submission) []NotificationOutcome {
	data := SubmissionReceivedData{
		AuthorName:   sub.AuthorName,
		PaperTitle:   sub.PaperTitle,
		Institution:  sub.Institution,
		SubmissionID: sub.ID,
	}

	receipt := SubmissionReceivedEmail(data)
	outcomes := []NotificationOutcome{dispatch(ctx, s.notifier, Notification{
		Kind:          KindSubmissionReceived,
		To:            sub.Email,
		RecipientName: sub.AuthorName,
		Subject:       receipt.Subject,
		HTML:          receipt.HTML,
		SubmissionID:  &sub.ID,
	})}

	if admin := strings.TrimSpace(s.opts.AdminEmail); admin != "" {
		alert := NewSubmissionAlertEmail(data, s.opts.DashboardURL)
		outcomes = append(outcomes, dispatch(ctx, s.notifier, Notification{
			Kind:         KindNewSubmission,
			To:           admin,
			Subject:      alert.Subject,
			HTML:         alert.HTML,
			SubmissionID: &sub.ID,
		}))
	}
	return outcomes
}

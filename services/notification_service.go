package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"paper-submission-api/models"
	"paper-submission-api/monitor"

	"go.uber.org/zap"
)

// Notification kinds.
const (
	KindAssignment         = "assignment"
	KindStatusUpdate       = "status_update"
	KindDecisionSelected   = "decision_selected"
	KindDecisionRejected   = "decision_rejected"
	KindCredentials        = "credentials"
	KindSubmissionReceived = "submission_received"
	KindNewSubmission      = "new_submission"
)

var errRecipientMissing = errors.New("recipient email missing")

// Notification is one rendered message ready for delivery.
type Notification struct {
	Kind          string
	To            string
	RecipientName string
	Subject       string
	HTML          string
	From          string
	SubmissionID  *string
}

// Notifier delivers notifications. Failures are returned as *NotificationError.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
}

// MailTransport is the email relay underneath the dispatcher.
type MailTransport interface {
	SendMail(from string, to []string, subject, html string) error
}

// NotificationService sends notifications over a MailTransport and records
// every attempt in the notification log.
type NotificationService struct {
	transport MailTransport
	repo      Repository
	log       *zap.Logger
	now       func() time.Time
}

func NewNotificationService(transport MailTransport, repo Repository, log *zap.Logger) *NotificationService {
	if log == nil {
		log = zap.NewNop()
	}
	return &NotificationService{
		transport: transport,
		repo:      repo,
		log:       log.Named("notify"),
		now:       time.Now,
	}
}

func (s *NotificationService) Send(ctx context.Context, n Notification) error {
	to := strings.TrimSpace(n.To)
	var sendErr error
	if to == "" {
		sendErr = errRecipientMissing
	} else {
		sendErr = s.transport.SendMail(n.From, []string{to}, n.Subject, n.HTML)
	}

	s.record(ctx, n, sendErr)

	if sendErr != nil {
		monitor.Notifications.WithLabelValues(n.Kind, "failed").Inc()
		s.log.Warn("notification email send failed",
			zap.String("kind", n.Kind),
			zap.String("to", to),
			zap.String("subject", n.Subject),
			zap.Error(sendErr))
		return &NotificationError{Kind: n.Kind, Recipient: to, Err: sendErr}
	}

	monitor.Notifications.WithLabelValues(n.Kind, "sent").Inc()
	s.log.Info("notification sent", zap.String("kind", n.Kind), zap.String("to", to))
	return nil
}

func (s *NotificationService) record(ctx context.Context, n Notification, sendErr error) {
	if s.repo == nil {
		return
	}
	entry := &models.NotificationLog{
		Kind:         n.Kind,
		Recipient:    strings.TrimSpace(n.To),
		Subject:      n.Subject,
		SubmissionID: n.SubmissionID,
		Success:      sendErr == nil,
		CreatedAt:    s.now(),
	}
	if sendErr != nil {
		msg := sendErr.Error()
		entry.Error = &msg
	}
	if err := s.repo.InsertNotificationLog(persistentContext(ctx), entry); err != nil {
		s.log.Warn("record notification log failed", zap.Error(err))
	}
}

// History lists logged dispatch attempts, newest first.
func (s *NotificationService) History(ctx context.Context, p Principal, limit, offset int) ([]models.NotificationLog, int64, error) {
	if !p.IsAdmin() {
		return nil, 0, forbidden("only administrators can read the notification log")
	}
	if s.repo == nil {
		return []models.NotificationLog{}, 0, nil
	}
	return s.repo.ListNotificationLogs(ctx, limit, offset)
}

// NotificationOutcome is the result of one dispatch triggered by a workflow operation.
type NotificationOutcome struct {
	Kind      string `json:"kind"`
	Recipient string `json:"recipient"`
	Sent      bool   `json:"sent"`
	Error     string `json:"error,omitempty"`
	err       error
}

// Err returns the dispatch error, if any.
func (o NotificationOutcome) Err() error { return o.err }

func dispatch(ctx context.Context, notifier Notifier, n Notification) NotificationOutcome {
	out := NotificationOutcome{Kind: n.Kind, Recipient: strings.TrimSpace(n.To)}
	if notifier == nil {
		out.err = &NotificationError{Kind: n.Kind, Recipient: out.Recipient, Err: errors.New("notifier not configured")}
		out.Error = out.err.Error()
		return out
	}
	if err := notifier.Send(persistentContext(ctx), n); err != nil {
		var ne *NotificationError
		if !errors.As(err, &ne) {
			err = &NotificationError{Kind: n.Kind, Recipient: out.Recipient, Err: err}
		}
		out.err = err
		out.Error = err.Error()
		return out
	}
	out.Sent = true
	return out
}

func failedOutcome(kind, recipient string, err error) NotificationOutcome {
	ne := &NotificationError{Kind: kind, Recipient: recipient, Err: err}
	return NotificationOutcome{Kind: kind, Recipient: recipient, Error: ne.Error(), err: ne}
}

// Warnings turns failed outcomes into user-facing messages.
func Warnings(outcomes []NotificationOutcome) []string {
	var out []string
	for _, o := range outcomes {
		if o.err != nil {
			out = append(out, o.Error)
		}
	}
	return out
}

package services

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSubmissionNotFound   = errors.New("submission not found")
	ErrReviewerNotFound     = errors.New("reviewer not found")
	ErrAdminNotFound        = errors.New("admin not found")
	ErrReviewerInactive     = errors.New("reviewer is inactive")
	ErrInvalidCredentials   = errors.New("invalid username or password")
	ErrUsernameTaken        = errors.New("username already exists")
	ErrTransitionNotAllowed = errors.New("status transition not allowed")
)

// ValidationError carries per-field messages for a rejected request.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+": "+e.Fields[k])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func newValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: message}}
}

// StorageError wraps a document store failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string { return fmt.Sprintf("document %s failed: %v", e.Op, e.Err) }
func (e *StorageError) Unwrap() error { return e.Err }

// RepositoryError wraps a failed read or write against the record store.
type RepositoryError struct {
	Op  string
	Err error
}

func (e *RepositoryError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }
func (e *RepositoryError) Unwrap() error { return e.Err }

// NotificationError is a best-effort send failure. It never reverses the
// transition that triggered it.
type NotificationError struct {
	Kind      string
	Recipient string
	Err       error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("%s notification to %s failed: %v", e.Kind, e.Recipient, e.Err)
}
func (e *NotificationError) Unwrap() error { return e.Err }

// AuthorizationError is returned when the principal may not perform an operation.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string { return "forbidden: " + e.Reason }

func forbidden(reason string) error { return &AuthorizationError{Reason: reason} }

func repoErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var re *RepositoryError
	if errors.As(err, &re) {
		return err
	}
	return &RepositoryError{Op: op, Err: err}
}

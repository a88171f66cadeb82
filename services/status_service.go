package services

import (
	"strings"

	"paper-submission-api/models"
)

// Status buckets used by the role-scoped listings.
const (
	BucketUnassigned = "unassigned"
	BucketAssigned   = "assigned"
	BucketSelected   = "selected"
	BucketRejected   = "rejected"
	BucketAll        = "all"
)

// Buckets lists every bucket in display order.
var Buckets = []string{BucketUnassigned, BucketAssigned, BucketSelected, BucketRejected, BucketAll}

var validStatuses = map[string]bool{
	models.StatusPending:  true,
	models.StatusAssigned: true,
	models.StatusSelected: true,
	models.StatusRejected: true,
}

// IsValidStatus reports whether status is one of the four workflow states.
func IsValidStatus(status string) bool {
	return validStatuses[status]
}

// IsDecisionStatus reports whether status triggers an author decision email.
func IsDecisionStatus(status string) bool {
	return status == models.StatusSelected || status == models.StatusRejected
}

// NormalizeBucket maps user input onto a known bucket, defaulting to all.
func NormalizeBucket(raw string) (string, bool) {
	b := strings.ToLower(strings.TrimSpace(raw))
	if b == "" {
		return BucketAll, true
	}
	for _, known := range Buckets {
		if b == known {
			return b, true
		}
	}
	return "", false
}

// MatchesBucket applies the bucket predicate to one submission. It mirrors the
// SQL used by the gorm repository.
func MatchesBucket(s *models.Submission, bucket string) bool {
	switch bucket {
	case BucketUnassigned:
		return s.AssignedTo == nil || s.Status == models.StatusPending
	case BucketAssigned:
		return s.Status == models.StatusAssigned && s.AssignedTo != nil
	case BucketSelected:
		return s.Status == models.StatusSelected
	case BucketRejected:
		return s.Status == models.StatusRejected
	default:
		return true
	}
}

// TransitionPolicy decides whether SetStatus may move from one status to another.
type TransitionPolicy interface {
	Allowed(from, to string) bool
}

// PermissivePolicy allows every transition.
type PermissivePolicy struct{}

func (PermissivePolicy) Allowed(from, to string) bool { return true }

// StrictPolicy only allows the transitions in its table. Re-setting the
// current status is always allowed. Leaving pending goes through Assign.
type StrictPolicy struct{}

var strictTransitions = map[string]map[string]bool{
	models.StatusPending:  {},
	models.StatusAssigned: {models.StatusPending: true, models.StatusSelected: true, models.StatusRejected: true},
	models.StatusSelected: {models.StatusAssigned: true},
	models.StatusRejected: {models.StatusAssigned: true},
}

func (StrictPolicy) Allowed(from, to string) bool {
	if from == to {
		return true
	}
	return strictTransitions[from][to]
}

package models

import "time"

// SubmissionStatusHistory tracks historical status and assignment changes for submissions.
type SubmissionStatusHistory struct {
	HistoryID     int       `gorm:"primaryKey;column:history_id" json:"history_id"`
	SubmissionID  string    `gorm:"column:submission_id;type:char(36);index" json:"submission_id"`
	OldStatus     *string   `gorm:"column:old_status" json:"old_status"`
	NewStatus     string    `gorm:"column:new_status" json:"new_status"`
	OldAssignee   *string   `gorm:"column:old_assignee" json:"old_assignee,omitempty"`
	NewAssignee   *string   `gorm:"column:new_assignee" json:"new_assignee,omitempty"`
	ChangedBy     string    `gorm:"column:changed_by" json:"changed_by"`
	ChangedByRole string    `gorm:"column:changed_by_role" json:"changed_by_role"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

// TableName specifies the table for SubmissionStatusHistory.
func (SubmissionStatusHistory) TableName() string {
	return "submission_status_history"
}

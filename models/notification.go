package models

import "time"

// NotificationLog records one email dispatch attempt.
type NotificationLog struct {
	NotificationID uint      `gorm:"primaryKey;column:notification_id" json:"notification_id"`
	Kind           string    `gorm:"column:kind;index" json:"kind"`
	Recipient      string    `gorm:"column:recipient" json:"recipient"`
	Subject        string    `gorm:"column:subject" json:"subject"`
	SubmissionID   *string   `gorm:"column:submission_id;type:char(36)" json:"submission_id,omitempty"`
	Success        bool      `gorm:"column:success" json:"success"`
	Error          *string   `gorm:"column:error" json:"error,omitempty"`
	CreatedAt      time.Time `gorm:"column:created_at" json:"created_at"`
}

func (NotificationLog) TableName() string { return "notification_logs" }

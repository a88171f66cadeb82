package models

import "gorm.io/gorm"

// AutoMigrate creates or updates the tables for every model the API persists.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&AdminUser{},
		&Reviewer{},
		&Submission{},
		&SubmissionStatusHistory{},
		&NotificationLog{},
	)
}

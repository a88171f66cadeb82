package models

import (
	"time"
)

// Roles carried by an authenticated principal.
const (
	RoleSuperAdmin = "super_admin"
	RoleReviewer   = "reviewer"
)

// AdminUser is a super_admin account.
type AdminUser struct {
	ID           string    `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	Name         string    `gorm:"column:name" json:"name"`
	Email        string    `gorm:"column:email" json:"email"`
	Username     string    `gorm:"column:username;uniqueIndex;size:100" json:"username"`
	PasswordHash string    `gorm:"column:password" json:"-"`
	CreatedAt    time.Time `gorm:"column:created_at" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// Reviewer is an account that decides on the submissions assigned to it.
type Reviewer struct {
	ID           string    `gorm:"primaryKey;column:id;type:char(36)" json:"id"`
	Name         string    `gorm:"column:name" json:"name"`
	Email        string    `gorm:"column:email" json:"email"`
	Phone        string    `gorm:"column:phone" json:"phone"`
	Username     string    `gorm:"column:username;uniqueIndex;size:100" json:"username"`
	PasswordHash string    `gorm:"column:password" json:"-"`
	IsActive     bool      `gorm:"column:is_active;default:true" json:"is_active"`
	CreatedAt    time.Time `gorm:"column:created_at;index" json:"created_at"`
	UpdatedAt    time.Time `gorm:"column:updated_at" json:"updated_at"`
}

// TableName overrides
func (AdminUser) TableName() string {
	return "admin_users"
}

func (Reviewer) TableName() string {
	return "reviewers"
}

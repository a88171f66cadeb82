package services

import "paper-submission-api/models"

// Principal is the authenticated caller of a workflow operation.
type Principal struct {
	ID       string `json:"id"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

func (p Principal) IsAdmin() bool    { return p.Role == models.RoleSuperAdmin }
func (p Principal) IsReviewer() bool { return p.Role == models.RoleReviewer }

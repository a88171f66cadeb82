package controllers

import (
	"net/http"
	"time"

	"paper-submission-api/middleware"
	"paper-submission-api/services"

	"github.com/gin-gonic/gin"
)

type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token   string            `json:"token"`
	User    *services.Profile `json:"user"`
	Message string            `json:"message"`
}

// AuthController issues session tokens.
type AuthController struct {
	auth     *services.AuthService
	secret   string
	tokenTTL time.Duration
}

func NewAuthController(auth *services.AuthService, secret string, tokenTTL time.Duration) *AuthController {
	return &AuthController{auth: auth, secret: secret, tokenTTL: tokenTTL}
}

// Login handles user authentication
func (ac *AuthController) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "username and password are required"})
		return
	}

	profile, err := ac.auth.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		respondError(c, err)
		return
	}

	token, err := middleware.IssueToken(ac.secret, profile.Principal(), ac.tokenTTL)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, LoginResponse{
		Token:   token,
		User:    profile,
		Message: "Login successful",
	})
}

// GetProfile returns current user profile
func (ac *AuthController) GetProfile(c *gin.Context) {
	p, ok := principalOrAbort(c)
	if !ok {
		return
	}
	profile, err := ac.auth.Resolve(c.Request.Context(), p)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

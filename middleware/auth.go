package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"paper-submission-api/services"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const principalKey = "principal"

type Claims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// PrincipalResolver confirms that the account behind a token may still act.
type PrincipalResolver func(ctx context.Context, p services.Principal) error

// IssueToken signs an HS256 session token for p.
func IssueToken(secret string, p services.Principal, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	claims := Claims{
		UserID:   p.ID,
		Username: p.Username,
		Role:     p.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// AuthMiddleware validates JWT token
func AuthMiddleware(secret string, resolve PrincipalResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header is required"})
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		claims := &Claims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired token"})
			return
		}

		p := services.Principal{ID: claims.UserID, Role: claims.Role, Username: claims.Username}
		if resolve != nil {
			if err := resolve(c.Request.Context(), p); err != nil {
				var authErr *services.AuthorizationError
				switch {
				case errors.Is(err, services.ErrReviewerInactive):
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account is disabled"})
				case errors.Is(err, services.ErrReviewerNotFound),
					errors.Is(err, services.ErrAdminNotFound),
					errors.As(err, &authErr):
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Account not found"})
				default:
					_ = c.Error(err)
					c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Unable to verify account"})
				}
				return
			}
		}

		c.Set(principalKey, p)
		c.Set("userID", p.ID)
		c.Set("role", p.Role)
		c.Next()
	}
}

// CurrentPrincipal returns the principal stored by AuthMiddleware.
func CurrentPrincipal(c *gin.Context) (services.Principal, bool) {
	v, ok := c.Get(principalKey)
	if !ok {
		return services.Principal{}, false
	}
	p, ok := v.(services.Principal)
	return p, ok
}

// RequireRole checks if user has specific role
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p, ok := CurrentPrincipal(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Role not found"})
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Insufficient permissions"})
	}
}

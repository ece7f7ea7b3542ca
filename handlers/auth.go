package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"catalog-server/database"
	"catalog-server/models"
	"catalog-server/services"

	"github.com/gin-gonic/gin"
)

const claimsKey = "claims"

type loginRequest struct {
	Email    *string `json:"email" form:"email" binding:"required,filled,email"`
	Password *string `json:"password" form:"password" binding:"required,filled"`
}

type loginResponse struct {
	Token     string       `json:"token"`
	TokenType string       `json:"token_type"`
	ExpiresAt time.Time    `json:"expires_at"`
	User      *models.User `json:"user"`
}

// Login exchanges email and password for a bearer token. Unknown emails
// and wrong passwords get the same answer.
func (h *Handler) Login(c *gin.Context) {
	ctx := c.Request.Context()

	var req loginRequest
	verr := bind(c, &req)
	normalizeEmail(req.Email)
	if err := verr.Err(); err != nil {
		h.fail(c, "Failed to log in", err)
		return
	}

	user, err := h.users.FindByEmail(ctx, *req.Email)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			unauthorized(c, "Invalid credentials")
			return
		}
		h.fail(c, "Failed to log in", err)
		return
	}
	if !services.CheckPassword(user.Password, *req.Password) {
		unauthorized(c, "Invalid credentials")
		return
	}
	if !user.IsActive() {
		unauthorized(c, "Account is not active")
		return
	}

	token, expires, err := h.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		h.fail(c, "Failed to log in", err)
		return
	}

	respond(c, http.StatusOK, "Login successful", loginResponse{
		Token:     token,
		TokenType: "Bearer",
		ExpiresAt: expires,
		User:      user,
	})
}

// AuthMiddleware requires a valid bearer token and stores its claims on
// the context.
func (h *Handler) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			unauthorized(c, "Authorization header required")
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			unauthorized(c, "Invalid authorization format")
			return
		}

		claims, err := h.tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			unauthorized(c, "Invalid token")
			return
		}

		c.Set(claimsKey, claims)
		c.Next()
	}
}

// RequireRole lets through tokens carrying one of roles. It must run after
// AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		value, _ := c.Get(claimsKey)
		claims, ok := value.(*services.Claims)
		if !ok {
			unauthorized(c, "Invalid token")
			return
		}

		for _, r := range roles {
			if claims.Role == r {
				c.Next()
				return
			}
		}
		c.AbortWithStatusJSON(http.StatusForbidden, Envelope{Message: "Insufficient permissions"})
	}
}

func unauthorized(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, Envelope{Message: message})
}

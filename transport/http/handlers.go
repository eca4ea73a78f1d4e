// Package http exposes the auth engine over a JSON HTTP API built on gin.
package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	naimatauth "github.com/amnashah110/naimat-auth"
)

// AuthHandlers contains HTTP handlers for the auth endpoints.
type AuthHandlers struct {
	engine *naimatauth.Engine
}

func NewAuthHandlers(engine *naimatauth.Engine) *AuthHandlers {
	return &AuthHandlers{engine: engine}
}

// SignupCode issues a one-time code for an email that is registering.
func (h *AuthHandlers) SignupCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	issued, err := h.engine.RequestSignupCode(requestContext(c), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, codeIssuedResponse(issued))
}

// LoginCode issues a one-time code for an existing account.
func (h *AuthHandlers) LoginCode(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	issued, err := h.engine.RequestLoginCode(requestContext(c), req.Email)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, codeIssuedResponse(issued))
}

// SignupVerify checks the code, creates the account, and returns its
// first token pair.
func (h *AuthHandlers) SignupVerify(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
		Name  string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	verified, err := h.engine.VerifySignupAndCreate(requestContext(c), req.Email, req.Code, naimatauth.Profile{Name: req.Name})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifiedResponse(verified))
}

// LoginVerify checks the code and returns a token pair for the existing
// account.
func (h *AuthHandlers) LoginVerify(c *gin.Context) {
	var req struct {
		Email string `json:"email" binding:"required"`
		Code  string `json:"code" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	verified, err := h.engine.VerifyLogin(requestContext(c), req.Email, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, verifiedResponse(verified))
}

// Refresh exchanges a refresh token for a new access token. The refresh
// token is returned unchanged: there is no rotation.
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request"})
		return
	}

	access, err := h.engine.Refresh(requestContext(c), req.RefreshToken)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  access,
		"refresh_token": req.RefreshToken,
		"token_type":    "Bearer",
	})
}

// Me returns the authenticated user's ID. The user ID is set by
// [AuthMiddleware].
func (h *AuthHandlers) Me(c *gin.Context) {
	userID, exists := c.Get(contextUserIDKey)
	if !exists {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "User not found in context"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user_id": userID})
}

func codeIssuedResponse(issued *naimatauth.CodeIssued) gin.H {
	return gin.H{
		"status":     "code_sent",
		"expires_at": issued.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func verifiedResponse(verified *naimatauth.VerifiedChallenge) gin.H {
	return gin.H{
		"access_token":  verified.Tokens.AccessToken,
		"refresh_token": verified.Tokens.RefreshToken,
		"token_type":    "Bearer",
		"user": gin.H{
			"id":    verified.User.ID,
			"email": verified.User.Email,
			"name":  verified.User.Name,
		},
	}
}

// writeError maps engine errors to HTTP statuses. Invalid-code failures
// stay a single opaque 401 regardless of which precondition failed.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, naimatauth.ErrInvalidIdentity):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid email"})
	case errors.Is(err, naimatauth.ErrUnknownIdentity):
		c.JSON(http.StatusNotFound, gin.H{"error": "Unknown email"})
	case errors.Is(err, naimatauth.ErrIdentityConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Email already registered"})
	case errors.Is(err, naimatauth.ErrInvalidCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid or expired code"})
	case errors.Is(err, naimatauth.ErrTokenInvalid):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
	case errors.Is(err, naimatauth.ErrCodeRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many attempts, try again later"})
	case errors.Is(err, naimatauth.ErrDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "Could not deliver code"})
	case errors.Is(err, naimatauth.ErrChallengeUnavailable),
		errors.Is(err, naimatauth.ErrDirectoryUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service temporarily unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
	}
}

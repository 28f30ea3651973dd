package handlers

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"storegate/internal/middleware"
	"storegate/internal/models"
	"storegate/internal/repositories"
	"storegate/internal/services"
)

type AuthHandler struct {
	login       *services.LoginService
	userService services.UserService

	jwtSecret []byte
	accessTTL time.Duration
}

func NewAuthHandler(login *services.LoginService, userService services.UserService, jwtSecret []byte, accessTTL time.Duration) *AuthHandler {
	return &AuthHandler{
		login:       login,
		userService: userService,
		jwtSecret:   jwtSecret,
		accessTTL:   accessTTL,
	}
}

// @Summary      Start sign-in
// @Description  Verifies captcha proof and credentials, then emails a one-time code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials and captcha proof"
// @Success      200    {object}  map[string]interface{}
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      429    {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	email := strings.TrimSpace(req.Email)
	log.Printf("[auth][login] attempt email=%q", email)

	if err := h.login.BeginLogin(c.Request.Context(), email, req.Password, req.CaptchaToken, c.ClientIP()); err != nil {
		h.writeLoginError(c, email, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"message":          "Verification code sent",
		"cooldown_seconds": int(h.login.CooldownRemaining(email).Seconds()),
	})
}

// @Summary      Verify sign-in code
// @Description  Checks the one-time code and establishes the authenticated session
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        verify  body      models.VerifyCodeRequest  true  "Identifier and code"
// @Success      200     {object}  map[string]interface{}
// @Failure      401     {object}  map[string]string
// @Failure      403     {object}  map[string]string
// @Router       /auth/verify-code [post]
func (h *AuthHandler) VerifyCode(c *gin.Context) {
	var req models.VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	res, err := h.login.CompleteLogin(c.Request.Context(), req.Email, req.Code)
	if err != nil {
		h.writeLoginError(c, req.Email, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":          true,
		"message":     "Login successful",
		"user":        res.User, // PasswordHash is json:"-", it never leaves
		"role_id":     res.RoleID,
		"destination": res.Destination,
		"session_id":  res.Session.ID,
		"tokens": gin.H{
			"access_token":  res.AccessToken,
			"refresh_token": res.RefreshToken,
		},
	})
}

// @Summary      Resend sign-in code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        resend  body      models.ResendCodeRequest  true  "Identifier"
// @Success      200     {object}  map[string]interface{}
// @Failure      429     {object}  map[string]string
// @Router       /auth/resend-code [post]
func (h *AuthHandler) ResendCode(c *gin.Context) {
	var req models.ResendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.login.ResendCode(c.Request.Context(), req.Email); err != nil {
		h.writeLoginError(c, req.Email, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"ok":               true,
		"message":          "Verification code sent",
		"cooldown_seconds": int(h.login.CooldownRemaining(req.Email).Seconds()),
	})
}

func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	old := strings.TrimSpace(req.RefreshToken)
	user, err := h.userService.RotateRefresh(old)
	if err != nil || user == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid refresh token"})
		return
	}

	accessClaims := &middleware.Claims{
		UserID: user.ID,
		RoleID: user.RoleID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(h.accessTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	accessToken := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims)
	accessTokenString, err := accessToken.SignedString(h.jwtSecret)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to generate access token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  accessTokenString,
		"refresh_token": *user.RefreshToken,
	})
}

// writeLoginError maps orchestrator errors to one user-facing message each.
// Identifier and error kind are logged; the password and the code never are.
func (h *AuthHandler) writeLoginError(c *gin.Context, email string, err error) {
	log.Printf("[auth][login] email=%q err=%v", email, err)

	switch {
	case errors.Is(err, services.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, services.ErrCaptchaRequired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "complete the verification"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid email or password"})
	case errors.Is(err, services.ErrInvalidCode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid code"})
	case errors.Is(err, services.ErrCodeExpired):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "code expired, request a new one"})
	case errors.Is(err, services.ErrNoPendingLogin):
		c.JSON(http.StatusBadRequest, gin.H{"error": "no sign-in in progress, start over"})
	case errors.Is(err, services.ErrTooManyAttempts):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many attempts, request a new code"})
	case errors.Is(err, services.ErrResendThrottled):
		c.JSON(http.StatusTooManyRequests, gin.H{
			"error":       "too many requests, try later",
			"retry_after": int(h.login.CooldownRemaining(email).Seconds()),
		})
	case errors.Is(err, repositories.ErrIssueRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "too many codes requested, try later"})
	case errors.Is(err, services.ErrRoleNotAssigned):
		c.JSON(http.StatusForbidden, gin.H{"error": "account pending approval, contact your administrator"})
	case errors.Is(err, services.ErrRoleLookup):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, try again"})
	case errors.Is(err, services.ErrChallengeDeliveryFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not send code, retry"})
	case errors.Is(err, repositories.ErrChallengeStoreUnavailable),
		errors.Is(err, repositories.ErrSessionStoreUnavailable),
		errors.Is(err, services.ErrCaptchaUnavailable):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "temporary failure, try again"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "sign-in failed"})
	}
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"greendrake/freight/internal/schema"
	"greendrake/freight/internal/services"
)

// RestAuthHandler handles the public account endpoints under /api/auth.
// Bodies are only shape-checked here; the user service normalizes the email
// before validating it.
type RestAuthHandler struct {
	userService services.IUserService
}

func NewRestAuthHandler(userService services.IUserService) *RestAuthHandler {
	return &RestAuthHandler{userService: userService}
}

// MessageResponse is the body of endpoints that only report an outcome.
type MessageResponse struct {
	Message string `json:"message"`
}

// Register handles POST /api/auth/register
func (h *RestAuthHandler) Register(c *gin.Context) {
	var req schema.RegisterRequest
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}

	_, err := h.userService.Register(c.Request.Context(), req)
	if errors.Is(err, services.ErrMailDelivery) {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: services.MsgVerificationMailFailed})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, MessageResponse{Message: services.MsgUserCreated})
}

// VerifyEmail handles POST /api/auth/verify-email
func (h *RestAuthHandler) VerifyEmail(c *gin.Context) {
	var req schema.VerifyEmailRequest
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.userService.VerifyEmail(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: services.MsgEmailVerified})
}

// Login handles POST /api/auth/login
func (h *RestAuthHandler) Login(c *gin.Context) {
	var req schema.LoginRequest
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	result, err := h.userService.Login(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	noCache(c)
	c.JSON(http.StatusOK, result)
}

// ForgotPassword handles POST /api/auth/forgot-password
func (h *RestAuthHandler) ForgotPassword(c *gin.Context) {
	var req schema.ForgotPasswordRequest
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.userService.ForgotPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: services.MsgResetRequested})
}

// ResetPassword handles POST /api/auth/reset-password
func (h *RestAuthHandler) ResetPassword(c *gin.Context) {
	var req schema.ResetPasswordRequest
	if err := schema.DecodeStrict(c.Request.Body, &req); err != nil {
		respondError(c, err)
		return
	}
	if err := h.userService.ResetPassword(c.Request.Context(), req); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, MessageResponse{Message: services.MsgPasswordReset})
}

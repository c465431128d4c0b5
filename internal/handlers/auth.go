package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/luckynumbers/api/internal/auth"
	"github.com/luckynumbers/api/internal/models"
	"github.com/luckynumbers/api/internal/services"
	pkghttp "github.com/luckynumbers/api/pkg/http"
)

// AuthServiceInterface defines the interface for admin auth business logic
type AuthServiceInterface interface {
	Login(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error)
	GetProfile(ctx context.Context, adminID string) (*models.AdminProfile, error)
	TwoFactorSetup(ctx context.Context, adminID string) (*auth.SetupResult, error)
	TwoFactorEnable(ctx context.Context, adminID, code string) error
	TwoFactorDisable(ctx context.Context, adminID, code string) error
	ChangePassword(ctx context.Context, adminID, currentPassword, newPassword string) error
	ChangeEmail(ctx context.Context, adminID, newEmail, currentPassword string) error
	RequestPasswordReset(ctx context.Context, email string) (string, error)
	CompletePasswordReset(ctx context.Context, rawToken, newPassword string) error
}

// AuthHandler handles admin authentication HTTP requests
type AuthHandler struct {
	service AuthServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AuthServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Request DTOs

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email         string `json:"email" validate:"required,email"`
	Password      string `json:"password" validate:"required"`
	TwoFactorCode string `json:"token"`
}

// TwoFactorCodeRequest carries a fresh TOTP code for enable/disable
type TwoFactorCodeRequest struct {
	Token string `json:"token" validate:"required"`
}

// ChangePasswordRequest represents the request body for a password change
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" validate:"required"`
	NewPassword     string `json:"newPassword" validate:"required,min=6"`
}

// ChangeEmailRequest represents the request body for an email change
type ChangeEmailRequest struct {
	NewEmail        string `json:"newEmail" validate:"required,email"`
	CurrentPassword string `json:"currentPassword" validate:"required"`
}

// ForgotPasswordRequest represents the request body for a reset request
type ForgotPasswordRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// ResetPasswordRequest represents the request body for redeeming a reset token
type ResetPasswordRequest struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

// Response DTOs

// LoginResponse is the login outcome envelope
type LoginResponse struct {
	Success     bool                 `json:"success"`
	Token       string               `json:"token,omitempty"`
	Admin       *models.AdminProfile `json:"admin,omitempty"`
	Requires2FA bool                 `json:"requires2FA,omitempty"`
	Message     string               `json:"message,omitempty"`
}

// TwoFactorSetupResponse is the one-time secret handoff
type TwoFactorSetupResponse struct {
	Secret     string `json:"secret"`
	OtpauthURL string `json:"otpauthUrl"`
	QRCode     string `json:"qrCode"`
}

// MeResponse is the authenticated admin profile
type MeResponse struct {
	Success          bool   `json:"success"`
	ID               string `json:"id"`
	Name             string `json:"name"`
	Email            string `json:"email"`
	Role             string `json:"role"`
	TwoFactorEnabled bool   `json:"twoFactorEnabled"`
}

func decodeAndValidate(w http.ResponseWriter, r *http.Request, req interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// Login authenticates an admin with email, password and an optional TOTP code
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	ip := pkghttp.ExtractClientIP(r)

	result, err := h.service.Login(r.Context(), req.Email, req.Password, req.TwoFactorCode, ip)
	if err != nil {
		// Every credential failure maps to the same response so the client
		// learns nothing about which field was wrong.
		if errors.Is(err, models.ErrUnauthorized) || errors.Is(err, models.ErrBadRequest) {
			pkghttp.WriteUnauthorized(w, "Invalid credentials")
			return
		}
		writeServiceError(w, err)
		return
	}

	if result.Requires2FA {
		pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
			Success:     true,
			Requires2FA: true,
			Message:     "Two-factor authentication code required",
		})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Success: true,
		Token:   result.Token,
		Admin:   result.Admin,
	})
}

// Me returns the authenticated admin's public profile
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAdminFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
		return
	}

	profile, err := h.service.GetProfile(r.Context(), claims.AdminID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, MeResponse{
		Success:          true,
		ID:               profile.ID,
		Name:             profile.Name,
		Email:            profile.Email,
		Role:             profile.Role,
		TwoFactorEnabled: profile.TwoFactorEnabled,
	})
}

// TwoFactorSetup generates a fresh TOTP secret and provisioning QR code
func (h *AuthHandler) TwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAdminFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
		return
	}

	setup, err := h.service.TwoFactorSetup(r.Context(), claims.AdminID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Scan the QR code with your authenticator app, then enable 2FA with a code", TwoFactorSetupResponse{
		Secret:     setup.Secret,
		OtpauthURL: setup.OtpauthURI,
		QRCode:     setup.QRDataURI,
	})
}

// TwoFactorEnable turns on 2FA after verifying a fresh code
func (h *AuthHandler) TwoFactorEnable(w http.ResponseWriter, r *http.Request) {
	h.twoFactorToggle(w, r, h.service.TwoFactorEnable, "Two-factor authentication enabled")
}

// TwoFactorDisable turns off 2FA after verifying a fresh code
func (h *AuthHandler) TwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	h.twoFactorToggle(w, r, h.service.TwoFactorDisable, "Two-factor authentication disabled")
}

func (h *AuthHandler) twoFactorToggle(w http.ResponseWriter, r *http.Request, toggle func(context.Context, string, string) error, message string) {
	claims := auth.GetAdminFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
		return
	}

	var req TwoFactorCodeRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := toggle(r.Context(), claims.AdminID, req.Token); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Invalid two-factor code")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, message, nil)
}

// ChangePassword updates the admin password after re-verifying the current one
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAdminFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
		return
	}

	var req ChangePasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ChangePassword(r.Context(), claims.AdminID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Current password is incorrect")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Password updated successfully", nil)
}

// ChangeEmail updates the admin email after re-verifying the password
func (h *AuthHandler) ChangeEmail(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetAdminFromContext(r)
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Not authorized to access this route")
		return
	}

	var req ChangeEmailRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.ChangeEmail(r.Context(), claims.AdminID, req.NewEmail, req.CurrentPassword); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Password is incorrect")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Email updated successfully", nil)
}

// ForgotPassword issues a reset token and emails the reset link. The response
// is identical whether or not the email is registered.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	message, err := h.service.RequestPasswordReset(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, models.ErrEmailSend) {
			pkghttp.WriteInternalError(w, "Email could not be sent")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, message, nil)
}

// ResetPassword redeems a raw reset token and sets a new password
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if err := h.service.CompletePasswordReset(r.Context(), req.Token, req.NewPassword); err != nil {
		if errors.Is(err, models.ErrInvalidResetToken) {
			pkghttp.WriteBadRequest(w, "Invalid or expired reset token")
			return
		}
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteSuccess(w, "Password has been reset. Please log in with your new password.", nil)
}

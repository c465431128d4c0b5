package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/luckynumbers/api/internal/auth"
	"github.com/luckynumbers/api/internal/models"
	pkgauth "github.com/luckynumbers/api/pkg/auth"
	pkglogger "github.com/luckynumbers/api/pkg/logger"
)

// AdminRepository is the account-persistence collaborator.
type AdminRepository interface {
	GetByEmail(ctx context.Context, email string) (*models.Admin, error)
	GetByID(ctx context.Context, id string) (*models.Admin, error)
	GetByResetToken(ctx context.Context, tokenDigest string) (*models.Admin, error)
	Create(ctx context.Context, admin *models.Admin) (*models.Admin, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateEmail(ctx context.Context, id, email string) error
	UpdateTwoFactor(ctx context.Context, id, secret string, enabled bool) error
	SetResetToken(ctx context.Context, id, tokenDigest string, expire *time.Time) error
}

// AuthService implements the admin login state machine, the 2FA lifecycle and
// the password-reset flow.
type AuthService struct {
	repo             AdminRepository
	tm               *auth.TokenManager
	totp             *auth.TOTPManager
	tracker          *AbuseTracker
	email            EmailSender
	clock            Clock
	logger           *slog.Logger
	auditLogger      *pkglogger.AuditLogger
	resetTokenExpiry time.Duration
	resetURLBase     string
}

func NewAuthService(
	repo AdminRepository,
	tm *auth.TokenManager,
	totp *auth.TOTPManager,
	tracker *AbuseTracker,
	email EmailSender,
	clock Clock,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	resetTokenExpiry time.Duration,
	resetURLBase string,
) *AuthService {
	return &AuthService{
		repo:             repo,
		tm:               tm,
		totp:             totp,
		tracker:          tracker,
		email:            email,
		clock:            clock,
		logger:           logger,
		auditLogger:      auditLogger,
		resetTokenExpiry: resetTokenExpiry,
		resetURLBase:     resetURLBase,
	}
}

// LoginResult is the outcome of a successful or 2FA-pending login.
type LoginResult struct {
	Token       string
	Admin       *models.AdminProfile
	Requires2FA bool
}

// Login walks the credential state machine. Every rejection path records a
// failure against ip so exceptions cannot bypass blocking; the missing-code
// probe on a 2FA account is the one deliberate exception.
func (s *AuthService) Login(ctx context.Context, email, password, code, ip string) (*LoginResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, models.ErrBadRequest
	}

	admin, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, s.rejectLogin(ip, "", "unknown_email")
		}
		s.logger.Error("failed to get admin by email", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := pkgauth.ComparePassword(admin.PasswordHash, password); err != nil {
		return nil, s.rejectLogin(ip, admin.ID, "invalid_password")
	}

	if admin.TwoFactorEnabled {
		if code == "" {
			// Not a hard failure: the client is prompted for a code. The
			// login rate window has already counted this request.
			return &LoginResult{Requires2FA: true}, nil
		}
		if !s.totp.Verify(admin.TwoFactorSecret, code) {
			return nil, s.rejectLogin(ip, admin.ID, "invalid_totp")
		}
	}

	s.tracker.RecordSuccess(ip)

	token, err := s.tm.Generate(admin.ID, admin.Email)
	if err != nil {
		s.logger.Error("failed to generate session token", slog.String("admin_id", admin.ID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "login_success",
		AdminID:   admin.ID,
		IPAddress: ip,
		Success:   true,
	})

	return &LoginResult{Token: token, Admin: admin.Profile()}, nil
}

// rejectLogin feeds the abuse tracker and returns the generic credential
// error; the reason only reaches the audit log, never the client.
func (s *AuthService) rejectLogin(ip, adminID, reason string) error {
	s.tracker.RecordFailure(ip)
	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType:     "login_failed",
		AdminID:       adminID,
		IPAddress:     ip,
		Success:       false,
		FailureReason: reason,
	})
	return models.ErrUnauthorized
}

// GetProfile returns the public view of the admin account.
func (s *AuthService) GetProfile(ctx context.Context, adminID string) (*models.AdminProfile, error) {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return admin.Profile(), nil
}

// TwoFactorSetup generates a fresh secret and stores it on the account with
// 2FA still disabled. The secret and QR are returned exactly once.
func (s *AuthService) TwoFactorSetup(ctx context.Context, adminID string) (*auth.SetupResult, error) {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return nil, err
	}

	setup, err := s.totp.GenerateSecret(admin.Email)
	if err != nil {
		s.logger.Error("failed to generate TOTP secret", slog.String("admin_id", adminID), slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	if err := s.repo.UpdateTwoFactor(ctx, adminID, setup.Secret, false); err != nil {
		return nil, err
	}

	return setup, nil
}

// TwoFactorEnable flips the flag on only after one successful verify of a
// freshly entered code, preventing lockout from an unsynced authenticator.
func (s *AuthService) TwoFactorEnable(ctx context.Context, adminID, code string) error {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}

	if admin.TwoFactorSecret == "" {
		return models.ErrBadRequest
	}

	if !s.totp.Verify(admin.TwoFactorSecret, code) {
		return models.ErrUnauthorized
	}

	if err := s.repo.UpdateTwoFactor(ctx, adminID, admin.TwoFactorSecret, true); err != nil {
		return err
	}

	s.auditLogger.LogAccountAction("2fa_enabled", adminID, "")
	return nil
}

// TwoFactorDisable requires a valid current code before removing the secret.
func (s *AuthService) TwoFactorDisable(ctx context.Context, adminID, code string) error {
	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}

	if !admin.TwoFactorEnabled {
		return models.ErrBadRequest
	}

	if !s.totp.Verify(admin.TwoFactorSecret, code) {
		return models.ErrUnauthorized
	}

	if err := s.repo.UpdateTwoFactor(ctx, adminID, "", false); err != nil {
		return err
	}

	s.auditLogger.LogAccountAction("2fa_disabled", adminID, "")
	return nil
}

// ChangePassword verifies the current password and re-hashes the new one.
func (s *AuthService) ChangePassword(ctx context.Context, adminID, currentPassword, newPassword string) error {
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}

	if err := pkgauth.ComparePassword(admin.PasswordHash, currentPassword); err != nil {
		return models.ErrUnauthorized
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		s.logger.Error("failed to hash new password", slog.Any("error", err))
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, adminID, hash); err != nil {
		return err
	}

	s.auditLogger.LogAccountAction("password_changed", adminID, "")
	return nil
}

// ChangeEmail requires the current password and rejects duplicate addresses.
func (s *AuthService) ChangeEmail(ctx context.Context, adminID, newEmail, currentPassword string) error {
	newEmail = strings.ToLower(strings.TrimSpace(newEmail))
	if newEmail == "" {
		return models.ErrBadRequest
	}

	admin, err := s.repo.GetByID(ctx, adminID)
	if err != nil {
		return err
	}

	if err := pkgauth.ComparePassword(admin.PasswordHash, currentPassword); err != nil {
		return models.ErrUnauthorized
	}

	if newEmail == admin.Email {
		return nil
	}

	if existing, err := s.repo.GetByEmail(ctx, newEmail); err == nil && existing.ID != adminID {
		return models.ErrConflict
	} else if err != nil && !errors.Is(err, models.ErrNotFound) {
		return err
	}

	if err := s.repo.UpdateEmail(ctx, adminID, newEmail); err != nil {
		return err
	}

	s.logger.Info("admin email changed", slog.String("admin_id", adminID),
		slog.String("email", pkglogger.SanitizedEmail(newEmail)))
	s.auditLogger.LogAccountAction("email_changed", adminID, "")
	return nil
}

// genericResetMessage is returned for existing and unknown emails alike.
const genericResetMessage = "If an account with that email exists, a password reset link has been sent"

// RequestPasswordReset issues a single-use reset token and mails the link.
// Unknown emails get the identical success outcome. If the email send fails
// the stored token is cleared so an undelivered token can never be redeemed.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	admin, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return genericResetMessage, nil
		}
		return "", models.ErrInternalServer
	}

	raw, digest, err := pkgauth.GenerateResetToken()
	if err != nil {
		s.logger.Error("failed to generate reset token", slog.Any("error", err))
		return "", models.ErrInternalServer
	}

	expire := s.clock.Now().Add(s.resetTokenExpiry)
	if err := s.repo.SetResetToken(ctx, admin.ID, digest, &expire); err != nil {
		return "", models.ErrInternalServer
	}

	resetLink := fmt.Sprintf("%s/admin/reset-password.html?token=%s", s.resetURLBase, raw)
	if err := s.email.Send(ctx, admin.Email, "Password Reset Request", resetEmailHTML(resetLink)); err != nil {
		// The token was never delivered; unset it so it cannot linger.
		if clearErr := s.repo.SetResetToken(ctx, admin.ID, "", nil); clearErr != nil {
			s.logger.Error("failed to clear reset token after send failure", slog.Any("error", clearErr))
		}
		return "", models.ErrEmailSend
	}

	s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
		EventType: "password_reset_requested",
		AdminID:   admin.ID,
		Success:   true,
	})

	return genericResetMessage, nil
}

// CompletePasswordReset redeems a raw reset token: single use, 10-minute
// expiry, new password re-hashed.
func (s *AuthService) CompletePasswordReset(ctx context.Context, rawToken, newPassword string) error {
	if rawToken == "" {
		return models.ErrBadRequest
	}
	if err := pkgauth.ValidatePassword(newPassword); err != nil {
		return fmt.Errorf("%w: %s", models.ErrBadRequest, err.Error())
	}

	admin, err := s.repo.GetByResetToken(ctx, pkgauth.HashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrInvalidResetToken
		}
		return models.ErrInternalServer
	}

	if admin.ResetPasswordExpire == nil || s.clock.Now().After(*admin.ResetPasswordExpire) {
		return models.ErrInvalidResetToken
	}

	hash, err := pkgauth.HashPassword(newPassword)
	if err != nil {
		return models.ErrInternalServer
	}

	if err := s.repo.UpdatePassword(ctx, admin.ID, hash); err != nil {
		return models.ErrInternalServer
	}
	if err := s.repo.SetResetToken(ctx, admin.ID, "", nil); err != nil {
		return models.ErrInternalServer
	}

	s.auditLogger.LogAccountAction("password_reset_completed", admin.ID, "")
	return nil
}

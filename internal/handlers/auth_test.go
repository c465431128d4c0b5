package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luckynumbers/api/internal/auth"
	"github.com/luckynumbers/api/internal/models"
	"github.com/luckynumbers/api/internal/services"
)

type mockAuthService struct {
	loginFn          func(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error)
	getProfileFn     func(ctx context.Context, adminID string) (*models.AdminProfile, error)
	setupFn          func(ctx context.Context, adminID string) (*auth.SetupResult, error)
	enableFn         func(ctx context.Context, adminID, code string) error
	disableFn        func(ctx context.Context, adminID, code string) error
	changePasswordFn func(ctx context.Context, adminID, current, next string) error
	changeEmailFn    func(ctx context.Context, adminID, email, password string) error
	requestResetFn   func(ctx context.Context, email string) (string, error)
	completeResetFn  func(ctx context.Context, token, password string) error
}

func (m *mockAuthService) Login(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error) {
	return m.loginFn(ctx, email, password, code, ip)
}

func (m *mockAuthService) GetProfile(ctx context.Context, adminID string) (*models.AdminProfile, error) {
	return m.getProfileFn(ctx, adminID)
}

func (m *mockAuthService) TwoFactorSetup(ctx context.Context, adminID string) (*auth.SetupResult, error) {
	return m.setupFn(ctx, adminID)
}

func (m *mockAuthService) TwoFactorEnable(ctx context.Context, adminID, code string) error {
	return m.enableFn(ctx, adminID, code)
}

func (m *mockAuthService) TwoFactorDisable(ctx context.Context, adminID, code string) error {
	return m.disableFn(ctx, adminID, code)
}

func (m *mockAuthService) ChangePassword(ctx context.Context, adminID, current, next string) error {
	return m.changePasswordFn(ctx, adminID, current, next)
}

func (m *mockAuthService) ChangeEmail(ctx context.Context, adminID, email, password string) error {
	return m.changeEmailFn(ctx, adminID, email, password)
}

func (m *mockAuthService) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	return m.requestResetFn(ctx, email)
}

func (m *mockAuthService) CompletePasswordReset(ctx context.Context, token, password string) error {
	return m.completeResetFn(ctx, token, password)
}

func postJSON(t *testing.T, body interface{}) *http.Request {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func asAdmin(r *http.Request, adminID string) *http.Request {
	claims := &models.TokenClaims{AdminID: adminID, Email: "admin@example.com"}
	return r.WithContext(context.WithValue(r.Context(), auth.AdminContextKey, claims))
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body
}

func TestLogin_Success(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error) {
			assert.Equal(t, "admin@example.com", email)
			return &services.LoginResult{
				Token: "signed.jwt.token",
				Admin: &models.AdminProfile{ID: "a1", Email: email, Role: "admin"},
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, LoginRequest{Email: "admin@example.com", Password: "hunter22"}))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "signed.jwt.token", body["token"])
	assert.NotNil(t, body["admin"])
}

func TestLogin_GenericRejection(t *testing.T) {
	// Unknown email, wrong password and wrong TOTP code must produce
	// byte-identical responses.
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error) {
			return nil, models.ErrUnauthorized
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, LoginRequest{Email: "nobody@example.com", Password: "wrong"}))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Invalid credentials", body["message"])
	assert.NotContains(t, rr.Body.String(), "token")
}

func TestLogin_Requires2FAProbe(t *testing.T) {
	svc := &mockAuthService{
		loginFn: func(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error) {
			return &services.LoginResult{Requires2FA: true}, nil
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, LoginRequest{Email: "admin@example.com", Password: "hunter22"}))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, true, body["requires2FA"])
	_, hasToken := body["token"]
	assert.False(t, hasToken)
}

func TestLogin_InvalidBody(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader([]byte("{not json")))
	rr := httptest.NewRecorder()
	h.Login(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLogin_MissingEmailFailsValidation(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	rr := httptest.NewRecorder()
	h.Login(rr, postJSON(t, LoginRequest{Password: "hunter22"}))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMe_WithoutClaims(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	rr := httptest.NewRecorder()
	h.Me(rr, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestMe_ReturnsProfile(t *testing.T) {
	svc := &mockAuthService{
		getProfileFn: func(ctx context.Context, adminID string) (*models.AdminProfile, error) {
			assert.Equal(t, "a1", adminID)
			return &models.AdminProfile{ID: "a1", Name: "Admin", Email: "admin@example.com", Role: "admin", TwoFactorEnabled: true}, nil
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.Me(rr, asAdmin(httptest.NewRequest(http.MethodGet, "/", nil), "a1"))

	require.Equal(t, http.StatusOK, rr.Code)
	body := decodeEnvelope(t, rr)
	assert.Equal(t, "admin@example.com", body["email"])
	assert.Equal(t, true, body["twoFactorEnabled"])
	// Internal fields must never appear in the response.
	assert.NotContains(t, rr.Body.String(), "password")
	assert.NotContains(t, rr.Body.String(), "secret")
}

func TestTwoFactorSetup_ReturnsProvisioningData(t *testing.T) {
	svc := &mockAuthService{
		setupFn: func(ctx context.Context, adminID string) (*auth.SetupResult, error) {
			return &auth.SetupResult{
				Secret:     "JBSWY3DPEHPK3PXP",
				OtpauthURI: "otpauth://totp/x",
				QRDataURI:  "data:image/png;base64,AAAA",
			}, nil
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.TwoFactorSetup(rr, asAdmin(httptest.NewRequest(http.MethodPost, "/", nil), "a1"))

	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "JBSWY3DPEHPK3PXP")
	assert.Contains(t, rr.Body.String(), "data:image/png;base64")
}

func TestTwoFactorEnable_RejectsBadCode(t *testing.T) {
	svc := &mockAuthService{
		enableFn: func(ctx context.Context, adminID, code string) error {
			return models.ErrUnauthorized
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.TwoFactorEnable(rr, asAdmin(postJSON(t, TwoFactorCodeRequest{Token: "000000"}), "a1"))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid two-factor code", decodeEnvelope(t, rr)["message"])
}

func TestTwoFactorDisable_Success(t *testing.T) {
	disabled := false
	svc := &mockAuthService{
		disableFn: func(ctx context.Context, adminID, code string) error {
			disabled = true
			return nil
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.TwoFactorDisable(rr, asAdmin(postJSON(t, TwoFactorCodeRequest{Token: "123456"}), "a1"))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, disabled)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	svc := &mockAuthService{
		changePasswordFn: func(ctx context.Context, adminID, current, next string) error {
			return models.ErrUnauthorized
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.ChangePassword(rr, asAdmin(postJSON(t, ChangePasswordRequest{CurrentPassword: "wrong", NewPassword: "newpass1"}), "a1"))

	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Current password is incorrect", decodeEnvelope(t, rr)["message"])
}

func TestChangePassword_ShortNewPasswordFailsValidation(t *testing.T) {
	h := NewAuthHandler(&mockAuthService{})

	rr := httptest.NewRecorder()
	h.ChangePassword(rr, asAdmin(postJSON(t, ChangePasswordRequest{CurrentPassword: "current", NewPassword: "abc"}), "a1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestChangeEmail_Duplicate(t *testing.T) {
	svc := &mockAuthService{
		changeEmailFn: func(ctx context.Context, adminID, email, password string) error {
			return models.ErrConflict
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.ChangeEmail(rr, asAdmin(postJSON(t, ChangeEmailRequest{NewEmail: "taken@example.com", CurrentPassword: "hunter22"}), "a1"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestForgotPassword_IdenticalResponseForUnknownEmail(t *testing.T) {
	message := "If an account with that email exists, a password reset link has been sent"
	svc := &mockAuthService{
		requestResetFn: func(ctx context.Context, email string) (string, error) {
			return message, nil
		},
	}
	h := NewAuthHandler(svc)

	known := httptest.NewRecorder()
	h.ForgotPassword(known, postJSON(t, ForgotPasswordRequest{Email: "admin@example.com"}))
	unknown := httptest.NewRecorder()
	h.ForgotPassword(unknown, postJSON(t, ForgotPasswordRequest{Email: "nobody@example.com"}))

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestForgotPassword_EmailSendFailure(t *testing.T) {
	svc := &mockAuthService{
		requestResetFn: func(ctx context.Context, email string) (string, error) {
			return "", models.ErrEmailSend
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.ForgotPassword(rr, postJSON(t, ForgotPasswordRequest{Email: "admin@example.com"}))

	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "Email could not be sent", decodeEnvelope(t, rr)["message"])
}

func TestResetPassword_InvalidToken(t *testing.T) {
	svc := &mockAuthService{
		completeResetFn: func(ctx context.Context, token, password string) error {
			return models.ErrInvalidResetToken
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.ResetPassword(rr, postJSON(t, ResetPasswordRequest{Token: "deadbeef", NewPassword: "newpass1"}))

	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "Invalid or expired reset token", decodeEnvelope(t, rr)["message"])
}

func TestResetPassword_Success(t *testing.T) {
	svc := &mockAuthService{
		completeResetFn: func(ctx context.Context, token, password string) error {
			assert.Equal(t, "rawtoken", token)
			return nil
		},
	}
	h := NewAuthHandler(svc)

	rr := httptest.NewRecorder()
	h.ResetPassword(rr, postJSON(t, ResetPasswordRequest{Token: "rawtoken", NewPassword: "newpass1"}))

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestRequestBodies_UseDocumentedKeys(t *testing.T) {
	// Raw JSON bodies with the published field names must reach the
	// service intact. Struct literals would not catch a renamed tag.
	t.Run("login TOTP field is token", func(t *testing.T) {
		svc := &mockAuthService{
			loginFn: func(ctx context.Context, email, password, code, ip string) (*services.LoginResult, error) {
				assert.Equal(t, "654321", code)
				return &services.LoginResult{Token: "jwt"}, nil
			},
		}
		h := NewAuthHandler(svc)

		rr := httptest.NewRecorder()
		h.Login(rr, postJSON(t, map[string]string{
			"email": "admin@example.com", "password": "hunter22", "token": "654321",
		}))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("two-factor enable reads token", func(t *testing.T) {
		svc := &mockAuthService{
			enableFn: func(ctx context.Context, adminID, code string) error {
				assert.Equal(t, "123456", code)
				return nil
			},
		}
		h := NewAuthHandler(svc)

		rr := httptest.NewRecorder()
		h.TwoFactorEnable(rr, asAdmin(postJSON(t, map[string]string{"token": "123456"}), "a1"))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("change email reads currentPassword", func(t *testing.T) {
		svc := &mockAuthService{
			changeEmailFn: func(ctx context.Context, adminID, email, password string) error {
				assert.Equal(t, "new@example.com", email)
				assert.Equal(t, "hunter22", password)
				return nil
			},
		}
		h := NewAuthHandler(svc)

		rr := httptest.NewRecorder()
		h.ChangeEmail(rr, asAdmin(postJSON(t, map[string]string{
			"newEmail": "new@example.com", "currentPassword": "hunter22",
		}), "a1"))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("reset password reads newPassword", func(t *testing.T) {
		svc := &mockAuthService{
			completeResetFn: func(ctx context.Context, token, password string) error {
				assert.Equal(t, "rawtoken", token)
				assert.Equal(t, "brandnew", password)
				return nil
			},
		}
		h := NewAuthHandler(svc)

		rr := httptest.NewRecorder()
		h.ResetPassword(rr, postJSON(t, map[string]string{
			"token": "rawtoken", "newPassword": "brandnew",
		}))
		assert.Equal(t, http.StatusOK, rr.Code)
	})
}

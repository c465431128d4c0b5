package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/luckynumbers/api/internal/auth"
	"github.com/luckynumbers/api/internal/config"
	"github.com/luckynumbers/api/internal/database"
	"github.com/luckynumbers/api/internal/handlers"
	"github.com/luckynumbers/api/internal/realtime"
	"github.com/luckynumbers/api/internal/routes"
	"github.com/luckynumbers/api/internal/services"
	pkglogger "github.com/luckynumbers/api/pkg/logger"
)

// SentEmail represents a captured email message
type SentEmail struct {
	To      string
	Subject string
	Body    string
}

// MockEmailSender captures sent emails for test assertions. Set FailAll to
// simulate SES delivery failures.
type MockEmailSender struct {
	SentEmails []SentEmail
	FailAll    bool
	mu         sync.Mutex
}

// Send records the email
func (m *MockEmailSender) Send(ctx context.Context, to, subject, html string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailAll {
		return io.ErrClosedPipe
	}

	m.SentEmails = append(m.SentEmails, SentEmail{To: to, Subject: subject, Body: html})
	return nil
}

// GetLastEmail returns the most recent email sent
func (m *MockEmailSender) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.SentEmails) == 0 {
		return nil
	}
	return &m.SentEmails[len(m.SentEmails)-1]
}

// TestServer wraps httptest.Server with database and all dependencies
type TestServer struct {
	Server      *httptest.Server
	Pool        *database.DB
	EmailSender *MockEmailSender
	Config      *config.Config

	// Dependency references for inspection in tests
	Tracker *services.AbuseTracker
	Limiter *services.RateLimitService
	Hub     *realtime.Hub
	logger  *slog.Logger
}

// NewTestServer initializes a complete HTTP server with real database + mocked email
func NewTestServer(db *database.DB) *TestServer {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg := &config.Config{
		Auth: config.AuthConfig{
			JWTSecret:         "test-secret-32-characters-long-for-testing",
			TokenExpiry:       7 * 24 * time.Hour,
			TOTPIssuer:        "Lucky Numbers Test",
			MaxFailedAttempts: 5,
			BlockDuration:     30 * time.Minute,
			LoginWindow:       15 * time.Minute,
			LoginMax:          3,
			AdminWindow:       10 * time.Minute,
			AdminMax:          50,
			PublicWindow:      15 * time.Minute,
			PublicMax:         100,
			ResetTokenExpiry:  10 * time.Minute,
			SweepInterval:     1 * time.Hour,
		},
		Email: config.EmailConfig{
			FromAddress:  "noreply@test.local",
			ResetURLBase: "http://localhost:3000",
		},
		Server: config.ServerConfig{
			Port: "0",
			Env:  "test",
		},
	}

	adminRepo, resultRepo := InitializeRepositories(db)

	mockEmail := &MockEmailSender{}

	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)
	totpManager := auth.NewTOTPManager(cfg.Auth.TOTPIssuer)
	auditLogger := pkglogger.NewAuditLogger(logger)
	clock := services.SystemClock()

	tracker := services.NewAbuseTracker(services.AbuseConfig{
		MaxFailedAttempts: cfg.Auth.MaxFailedAttempts,
		BlockDuration:     cfg.Auth.BlockDuration,
	}, clock, logger)

	limiter := services.NewRateLimitService(services.RateLimitConfig{
		Login:  services.WindowConfig{Window: cfg.Auth.LoginWindow, Max: cfg.Auth.LoginMax},
		Admin:  services.WindowConfig{Window: cfg.Auth.AdminWindow, Max: cfg.Auth.AdminMax},
		Public: services.WindowConfig{Window: cfg.Auth.PublicWindow, Max: cfg.Auth.PublicMax},
	}, clock, logger)

	hub := realtime.NewHub(logger)

	authService := services.NewAuthService(
		adminRepo,
		tokenManager,
		totpManager,
		tracker,
		mockEmail,
		clock,
		logger,
		auditLogger,
		cfg.Auth.ResetTokenExpiry,
		cfg.Email.ResetURLBase,
	)
	resultService := services.NewResultService(resultRepo, hub, clock, logger)

	authHandler := handlers.NewAuthHandler(authService)
	resultHandler := handlers.NewResultHandler(resultService)

	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(r, authHandler, resultHandler, tokenManager, limiter, tracker, auditLogger, hub)

	server := httptest.NewServer(r)

	return &TestServer{
		Server:      server,
		Pool:        db,
		EmailSender: mockEmail,
		Config:      cfg,
		Tracker:     tracker,
		Limiter:     limiter,
		Hub:         hub,
		logger:      logger,
	}
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	if ts.Server != nil {
		ts.Server.Close()
	}
}

// Request makes an HTTP request to the test server
func (ts *TestServer) Request(method, path string, body interface{}, headers map[string]string) (*http.Response, error) {
	url := ts.Server.URL + path

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Content-Type", "application/json")
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	return http.DefaultClient.Do(req)
}

// RequestWithAuth makes an authenticated HTTP request with a bearer token
func (ts *TestServer) RequestWithAuth(method, path, token string, body interface{}) (*http.Response, error) {
	headers := map[string]string{
		"Authorization": "Bearer " + token,
	}
	return ts.Request(method, path, body, headers)
}

// ParseJSONResponse parses JSON response body into target struct
func ParseJSONResponse(resp *http.Response, target interface{}) error {
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(target)
}

// ExtractLoginResponse extracts token and 2FA flag from a login response
func ExtractLoginResponse(resp *http.Response) (token string, requires2FA bool, err error) {
	defer resp.Body.Close()

	var loginResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&loginResp); err != nil {
		return "", false, err
	}

	if t, ok := loginResp["token"].(string); ok {
		token = t
	}
	if required, ok := loginResp["requires2FA"].(bool); ok {
		requires2FA = required
	}

	return token, requires2FA, nil
}

// GetErrorMessage extracts the message from an error response
func GetErrorMessage(resp *http.Response) (string, error) {
	defer resp.Body.Close()
	var errResp map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil {
		return "", err
	}
	if msg, ok := errResp["message"].(string); ok {
		return msg, nil
	}
	return "", nil
}

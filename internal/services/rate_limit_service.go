package services

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// RouteClass selects which fixed window applies to a request.
type RouteClass string

const (
	RouteLogin  RouteClass = "login"
	RouteAdmin  RouteClass = "admin"
	RoutePublic RouteClass = "public"
)

// WindowConfig is one fixed window: duration and maximum requests inside it.
type WindowConfig struct {
	Window time.Duration
	Max    int
}

// RateLimitConfig carries the three independent route-class windows.
type RateLimitConfig struct {
	Login  WindowConfig
	Admin  WindowConfig
	Public WindowConfig
}

// DefaultRateLimitConfig mirrors the production windows.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Login:  WindowConfig{Window: 15 * time.Minute, Max: 3},
		Admin:  WindowConfig{Window: 10 * time.Minute, Max: 50},
		Public: WindowConfig{Window: 15 * time.Minute, Max: 100},
	}
}

// RateLimitResult is the structured outcome of a check. Denials never escape
// as errors to the transport layer.
type RateLimitResult struct {
	Allowed    bool
	Message    string
	RetryAfter time.Duration
}

type fixedWindow struct {
	start time.Time
	count int
}

// RateLimitService maintains one fixed window per (clientKey, route class).
// Even successful logins count toward the login window, capping total login
// throughput per window regardless of outcome.
type RateLimitService struct {
	mu      sync.Mutex
	windows map[string]*fixedWindow
	config  RateLimitConfig
	clock   Clock
	logger  *slog.Logger
}

func NewRateLimitService(config RateLimitConfig, clock Clock, logger *slog.Logger) *RateLimitService {
	return &RateLimitService{
		windows: make(map[string]*fixedWindow),
		config:  config,
		clock:   clock,
		logger:  logger,
	}
}

func (s *RateLimitService) configFor(class RouteClass) WindowConfig {
	switch class {
	case RouteLogin:
		return s.config.Login
	case RouteAdmin:
		return s.config.Admin
	default:
		return s.config.Public
	}
}

func denialMessage(class RouteClass, retryAfter time.Duration) string {
	minutes := int(retryAfter.Minutes())
	if minutes < 1 {
		minutes = 1
	}
	if class == RouteLogin {
		return fmt.Sprintf("Too many login attempts, please try again after %d minutes", minutes)
	}
	return "Too many requests, please try again later"
}

// Check counts one request for (clientKey, class) and returns whether it is
// allowed, with a retry-after hint on denial.
func (s *RateLimitService) Check(clientKey string, class RouteClass) RateLimitResult {
	cfg := s.configFor(class)
	key := string(class) + "|" + clientKey
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.windows[key]
	if !ok || now.Sub(w.start) > cfg.Window {
		s.windows[key] = &fixedWindow{start: now, count: 1}
		return RateLimitResult{Allowed: true}
	}

	w.count++
	if w.count <= cfg.Max {
		return RateLimitResult{Allowed: true}
	}

	retryAfter := cfg.Window - now.Sub(w.start)
	s.logger.Warn("rate limit exceeded",
		slog.String("client_key", clientKey),
		slog.String("route_class", string(class)),
		slog.Int("count", w.count),
		slog.Duration("retry_after", retryAfter))

	return RateLimitResult{
		Allowed:    false,
		Message:    denialMessage(class, retryAfter),
		RetryAfter: retryAfter,
	}
}

// Sweep drops windows whose interval has fully elapsed.
func (s *RateLimitService) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	removed := 0
	for key, w := range s.windows {
		// Longest configured window bounds how stale an entry can be useful.
		if now.Sub(w.start) > s.config.Login.Window &&
			now.Sub(w.start) > s.config.Admin.Window &&
			now.Sub(w.start) > s.config.Public.Window {
			delete(s.windows, key)
			removed++
		}
	}
	return removed
}

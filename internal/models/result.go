package models

import (
	"regexp"
	"time"
)

// Result statuses.
const (
	StatusPending  = "pending"
	StatusPartial  = "partial"
	StatusDeclared = "declared"
)

// Default draw times (24h HH:MM).
const (
	DefaultFirstRoundTime  = "15:15"
	DefaultSecondRoundTime = "16:15"
)

var (
	dateRe = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	timeRe = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// Result is one day's draw: two rounds, each an integer 0-99 once declared.
type Result struct {
	ID        string     `json:"id"`
	Date      string     `json:"date"` // YYYY-MM-DD, unique
	FRResult  *int       `json:"fr_result"`
	SRResult  *int       `json:"sr_result"`
	FRTime    string     `json:"fr_time"`
	SRTime    string     `json:"sr_time"`
	Status    string     `json:"status"`
	Locked    bool       `json:"locked"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// IsComplete reports whether both rounds have been declared.
func (r *Result) IsComplete() bool {
	return r.FRResult != nil && r.SRResult != nil
}

// UpdateStatus derives the status from which rounds are set.
func (r *Result) UpdateStatus() {
	switch {
	case r.FRResult != nil && r.SRResult != nil:
		r.Status = StatusDeclared
	case r.FRResult != nil || r.SRResult != nil:
		r.Status = StatusPartial
	default:
		r.Status = StatusPending
	}
}

// IsValidResultNumber reports whether n is a declarable round value.
func IsValidResultNumber(n int) bool {
	return n >= 0 && n <= 99
}

// IsValidDate reports whether s is a YYYY-MM-DD date string.
func IsValidDate(s string) bool {
	if !dateRe.MatchString(s) {
		return false
	}
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

// IsValidTime reports whether s is a HH:MM time string.
func IsValidTime(s string) bool {
	return timeRe.MatchString(s)
}

package integration

import (
	"fmt"
	"strings"
	"time"
)

// TestAdmin generates unique test admin credentials using a timestamp
func TestAdmin(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("admin-%d-%s@example.com", ts, suffix)
	password = "TestPassword123!"
	return
}

// ExtractResetToken pulls the raw reset token out of the emailed reset link.
// The link has the form .../reset-password.html?token={64 hex chars}
func ExtractResetToken(emailBody string) string {
	marker := "token="
	idx := strings.Index(emailBody, marker)
	if idx < 0 {
		return ""
	}
	rest := emailBody[idx+len(marker):]
	if end := strings.IndexAny(rest, `"'& <`); end >= 0 {
		rest = rest[:end]
	}
	return rest
}

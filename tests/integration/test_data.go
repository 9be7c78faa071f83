package integration

import (
	"fmt"
	"strings"
	"time"
)

// TestCustomer generates unique test customer credentials using timestamp
func TestCustomer(suffix string) (email, password string) {
	ts := time.Now().UnixNano()
	email = fmt.Sprintf("test-%d-%s@example.com", ts, suffix)
	password = "SikkertPassord123"
	return
}

// ExtractPINFromEmail extracts the password change PIN from an email body.
// Email format: "PIN-kode: {pin}"
func ExtractPINFromEmail(emailBody string) string {
	const prefix = "PIN-kode: "
	if idx := strings.Index(emailBody, prefix); idx >= 0 {
		return emailBody[idx+len(prefix):]
	}
	return ""
}

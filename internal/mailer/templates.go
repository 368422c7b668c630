package mailer

import (
	"fmt"
	"time"
)

const (
	SubjectVerifyEmail = "Verify your BoRide email"
	SubjectLoginAlert  = "New login to your BoRide account"
)

// VerificationBody renders the OTP email. The window is spelled out so the
// recipient knows how long the code stays valid.
func VerificationBody(fullName, code string, ttl time.Duration) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:480px;margin:0 auto">
  <h2>Welcome to BoRide, %s!</h2>
  <p>Use the code below to verify your email address:</p>
  <p style="font-size:32px;letter-spacing:8px;font-weight:bold">%s</p>
  <p>This code expires in %d minutes. If you did not create a BoRide account, you can ignore this email.</p>
</div>`, fullName, code, int(ttl.Minutes()))
}

// LoginAlertBody renders the best-effort "new login" notice.
func LoginAlertBody(fullName string, when time.Time) string {
	return fmt.Sprintf(`<div style="font-family:Arial,sans-serif;max-width:480px;margin:0 auto">
  <h2>New login</h2>
  <p>Hi %s, your BoRide account was just used to log in at %s.</p>
  <p>If this was not you, change your password immediately.</p>
</div>`, fullName, when.UTC().Format(time.RFC1123))
}

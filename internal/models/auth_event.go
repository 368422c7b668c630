package models

import "time"

// Auth event types emitted on the audit pipeline.
const (
	EventStudentRegistered = "student_registered"
	EventDriverRegistered  = "driver_registered"
	EventOTPResent         = "otp_resent"
	EventEmailVerified     = "email_verified"
	EventStudentLogin      = "student_login"
	EventDriverLogin       = "driver_login"
)

// AuthEvent is a record of a completed auth operation. It is published to
// Kafka and written to ClickHouse best-effort; a failed write never fails
// the operation that produced it.
type AuthEvent struct {
	EventBucket   int       `db:"event_bucket" json:"event_bucket"`
	PrincipalType string    `db:"principal_type" json:"principal_type"`
	PrincipalID   string    `db:"principal_id" json:"principal_id"`
	EventType     string    `db:"event_type" json:"event_type"`
	EventTime     time.Time `db:"event_time" json:"event_time"`
	Details       string    `db:"details" json:"details,omitempty"`
}

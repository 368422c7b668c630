package models

import "time"

// Student is the stored form of a student principal. The OTP fields are only
// populated while the account is unverified; verification clears them in the
// same update that flips IsVerified.
type Student struct {
	Bucket         int        `db:"bucket" json:"-"`
	ID             string     `db:"student_id" json:"id"`
	FullName       string     `db:"full_name" json:"fullName"`
	MatricNo       string     `db:"matric_no" json:"matricNo"`
	Email          string     `db:"email" json:"email"`
	PhoneNo        string     `db:"-" json:"phoneNo,omitempty"`
	PhoneEncrypted []byte     `db:"phone_encrypted" json:"-"`
	PhoneKeyID     string     `db:"phone_key_id" json:"-"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	IsVerified     bool       `db:"is_verified" json:"isVerified"`
	EmailOTP       *string    `db:"email_otp" json:"-"`
	OTPExpiresAt   *time.Time `db:"otp_expires_at" json:"-"`
	CreatedAt      time.Time  `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updatedAt"`
}

// PublicStudent is the response shape: identity fields only, never the
// password hash or the OTP.
type PublicStudent struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	MatricNo string `json:"matricNo"`
	Email    string `json:"email"`
}

func (s *Student) Public() PublicStudent {
	return PublicStudent{
		ID:       s.ID,
		FullName: s.FullName,
		MatricNo: s.MatricNo,
		Email:    s.Email,
	}
}

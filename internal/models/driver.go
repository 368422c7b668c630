package models

import "time"

// Driver is the stored form of a driver principal. Drivers have no
// verification state: a registered driver can log in immediately.
type Driver struct {
	Bucket         int       `db:"bucket" json:"-"`
	ID             string    `db:"driver_id" json:"id"`
	FullName       string    `db:"full_name" json:"fullName"`
	Email          string    `db:"email" json:"email"`
	PhoneNo        string    `db:"-" json:"phoneNo"`
	PhoneEncrypted []byte    `db:"phone_encrypted" json:"-"`
	PhoneKeyID     string    `db:"phone_key_id" json:"-"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

type PublicDriver struct {
	ID       string `json:"id"`
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	PhoneNo  string `json:"phoneNo"`
}

func (d *Driver) Public() PublicDriver {
	return PublicDriver{
		ID:       d.ID,
		FullName: d.FullName,
		Email:    d.Email,
		PhoneNo:  d.PhoneNo,
	}
}

package service

import (
	"net/mail"
	"regexp"
)

// matricPattern is the campus format: two-digit entry year, slash, four-digit
// serial (e.g. 21/1234). Validated after uppercasing.
var matricPattern = regexp.MustCompile(`^\d{2}/\d{4}$`)

func isValidEmail(email string) bool {
	if email == "" {
		return false
	}
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}

func isValidMatricNumber(matricNo string) bool {
	return matricPattern.MatchString(matricNo)
}

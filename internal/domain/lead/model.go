package lead

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

// Domain errors
var (
	ErrInvalidEmail = errors.New("email is not a valid address")
)

// Lead is a visitor who asked to hear about the follow-up product. Email is
// optional: a click without an address is still recorded.
type Lead struct {
	ID        string
	Email     string
	Lang      string
	CreatedAt time.Time
}

// Normalize trims and lower-cases the email.
func (l *Lead) Normalize() {
	l.Email = strings.ToLower(strings.TrimSpace(l.Email))
}

// Validate checks the email when one is given.
// PRE: Normalize has been called
// POST: Returns nil if valid, ErrInvalidEmail otherwise
func (l *Lead) Validate() error {
	if l.Email == "" {
		return nil
	}
	addr, err := mail.ParseAddress(l.Email)
	if err != nil || addr.Address != l.Email {
		return ErrInvalidEmail
	}
	return nil
}

// HasEmail reports whether the lead left an address.
func (l *Lead) HasEmail() bool {
	return l.Email != ""
}

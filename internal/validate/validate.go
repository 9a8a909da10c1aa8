// Package validate holds the input checks shared by the auth and todo services.
//
// Checks run in order and the first failure is returned as *Error, whose
// message is safe to show to API clients.
package validate

import (
	"errors"
	"net/mail"
	"strings"
	"unicode/utf8"
)

// Error describes the first input rule a request violated
type Error struct {
	Field   string
	Message string
}

func (e *Error) Error() string {
	return e.Message
}

// New returns a validation error for field
func New(field, message string) *Error {
	return &Error{Field: field, Message: message}
}

// As reports whether err is a validation error and returns it
func As(err error) (*Error, bool) {
	var verr *Error
	if errors.As(err, &verr) {
		return verr, true
	}
	return nil, false
}

// Length checks that s has between minLen and maxLen runes.
// A maxLen of zero means no upper bound.
func Length(s string, minLen, maxLen int, field, tooShort, tooLong string) error {
	n := utf8.RuneCountInString(s)
	if n < minLen {
		return New(field, tooShort)
	}
	if maxLen > 0 && n > maxLen {
		return New(field, tooLong)
	}
	return nil
}

// maxEmailLen follows RFC 5321
const maxEmailLen = 254

// Email checks that s is a single bare address, not a display-name form
func Email(s, field, message string) error {
	if s == "" || len(s) > maxEmailLen {
		return New(field, message)
	}
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s || !strings.Contains(addr.Address, "@") {
		return New(field, message)
	}
	return nil
}

// First returns the first non-nil error
func First(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

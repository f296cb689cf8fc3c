package validation

import (
	"errors"
	"unicode"
)

// Ошибки проверки пароля.
var (
	ErrPasswordTooShort = errors.New("password must be at least 4 characters long")
	ErrPasswordTooLong  = errors.New("password must be at most 20 characters long")
	ErrPasswordNoDigit  = errors.New("password must contain at least one digit")
	ErrPasswordNoLetter = errors.New("password must contain at least one letter")
)

// ValidatePassword проверяет длину пароля и наличие цифры и латинской буквы.
func ValidatePassword(password string) error {
	n := len([]rune(password))
	if n < 4 {
		return ErrPasswordTooShort
	}
	if n > 20 {
		return ErrPasswordTooLong
	}

	var hasDigit, hasLetter bool
	for _, ch := range password {
		switch {
		case unicode.IsDigit(ch):
			hasDigit = true
		case ch <= unicode.MaxASCII && unicode.IsLetter(ch):
			hasLetter = true
		}
	}
	if !hasDigit {
		return ErrPasswordNoDigit
	}
	if !hasLetter {
		return ErrPasswordNoLetter
	}
	return nil
}

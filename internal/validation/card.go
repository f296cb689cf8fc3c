package validation

import (
	"errors"
	"regexp"
	"strconv"
	"time"
)

var (
	// ErrCardExpired возвращается для карты с истёкшим сроком действия.
	ErrCardExpired = errors.New("the card has expired")
	// ErrInvalidExpiry возвращается для срока действия не в формате MM/YY.
	ErrInvalidExpiry = errors.New("expiration date must be in MM/YY format")
)

var (
	expiryPattern = regexp.MustCompile(`^(0[1-9]|1[0-2])/(\d{2})$`)
	cvvPattern    = regexp.MustCompile(`^\d{3}$`)
)

// ValidateExpiry проверяет, что срок действия MM/YY не истёк относительно now.
// Карта действует до конца указанного месяца.
func ValidateExpiry(expiry string, now time.Time) error {
	m := expiryPattern.FindStringSubmatch(expiry)
	if m == nil {
		return ErrInvalidExpiry
	}
	month, _ := strconv.Atoi(m[1])
	year, _ := strconv.Atoi(m[2])

	end := time.Date(2000+year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	if !now.UTC().Before(end) {
		return ErrCardExpired
	}
	return nil
}

// IsValidCVV проверяет, что CVV состоит ровно из трёх цифр.
func IsValidCVV(cvv string) bool {
	return cvvPattern.MatchString(cvv)
}

// LastDigits возвращает последние четыре цифры номера карты.
func LastDigits(number string) string {
	digits := digitsOnly(number)
	if len(digits) <= 4 {
		return digits
	}
	return digits[len(digits)-4:]
}

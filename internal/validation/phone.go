package validation

import (
	"errors"
	"regexp"
	"strings"
)

// ErrInvalidPhone возвращается для номера, не соответствующего формату мобильных номеров Узбекистана.
var ErrInvalidPhone = errors.New("phone number must look like +998 XX XXX XX XX")

// PhoneCountryCode задаёт код страны в нормализованном номере.
const PhoneCountryCode = "998"

var phonePattern = regexp.MustCompile(`^998(20|33|50|55|77|88|90|91|93|94|95|97|98|99)\d{7}$`)

// NormalizePhone удаляет из номера все символы, кроме цифр.
func NormalizePhone(raw string) string {
	return digitsOnly(raw)
}

func digitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, ch := range s {
		if ch >= '0' && ch <= '9' {
			b.WriteRune(ch)
		}
	}
	return b.String()
}

// ParsePhone нормализует номер и проверяет код страны и код оператора.
func ParsePhone(raw string) (string, error) {
	phone := NormalizePhone(raw)
	if !phonePattern.MatchString(phone) {
		return "", ErrInvalidPhone
	}
	return phone, nil
}

// IsValidPhone сообщает, является ли номер корректным после нормализации.
func IsValidPhone(raw string) bool {
	_, err := ParsePhone(raw)
	return err == nil
}

// FormatPhone возвращает нормализованный номер с ведущим плюсом.
func FormatPhone(phone string) string {
	return "+" + phone
}

// Package validation содержит функции валидации входных данных.
package validation

import "unicode"

// IsValidCardNumber проверяет номер банковской карты по алгоритму Луна.
// Пробелы и дефисы между группами цифр допускаются.
func IsValidCardNumber(number string) bool {
	digits := make([]rune, 0, len(number))
	for _, ch := range number {
		if ch == ' ' || ch == '-' {
			continue
		}
		if !unicode.IsDigit(ch) {
			return false
		}
		digits = append(digits, ch)
	}

	if len(digits) < 12 || len(digits) > 19 {
		return false
	}

	sum := 0
	double := false

	for i := len(digits) - 1; i >= 0; i-- {
		digit := int(digits[i] - '0')
		if double {
			digit *= 2
			if digit > 9 {
				digit -= 9
			}
		}
		sum += digit
		double = !double
	}

	return sum%10 == 0
}

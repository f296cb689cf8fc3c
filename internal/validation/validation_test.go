package validation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePhone(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		want  string
		valid bool
	}{
		{name: "formatted", raw: "+998 90-123-45-67", want: "998901234567", valid: true},
		{name: "digits only", raw: "998901234567", want: "998901234567", valid: true},
		{name: "parentheses", raw: "+998 (33) 123 45 67", want: "998331234567", valid: true},
		{name: "too short", raw: "12345", valid: false},
		{name: "unknown operator", raw: "998111234567", valid: false},
		{name: "foreign prefix", raw: "+7 901 123 45 67", valid: false},
		{name: "extra digit", raw: "9989012345678", valid: false},
		{name: "empty", raw: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParsePhone(tt.raw)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidPhone)
				assert.False(t, IsValidPhone(tt.raw))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizePhone_SameResultForEquivalentInputs(t *testing.T) {
	assert.Equal(t, NormalizePhone("+998 90-123-45-67"), NormalizePhone("998901234567"))
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		raw   string
		valid bool
	}{
		{raw: "08:09:2025", valid: true},
		{raw: "29:02:2024", valid: true},
		{raw: "31:02:2025", valid: false},
		{raw: "29:02:2025", valid: false},
		{raw: "8:9:2025", valid: false},
		{raw: "2025-09-08", valid: false},
		{raw: "08.09.2025", valid: false},
		{raw: "", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			d, err := ParseDate(tt.raw)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidDate)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.raw, FormatDate(d))
		})
	}
}

func TestParseClock(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		valid bool
	}{
		{raw: "08:15", want: "08:15", valid: true},
		{raw: "23:59", want: "23:59", valid: true},
		{raw: "00:00", want: "00:00", valid: true},
		{raw: "24:00", valid: false},
		{raw: "8:15", valid: false},
		{raw: "12:60", valid: false},
		{raw: "noon", valid: false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			c, err := ParseClock(tt.raw)
			if !tt.valid {
				assert.ErrorIs(t, err, ErrInvalidTime)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, c.String())
		})
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		password string
		want     error
	}{
		{password: "abc1", want: nil},
		{password: "a1", want: ErrPasswordTooShort},
		{password: "abcdefghij1234567890x", want: ErrPasswordTooLong},
		{password: "abcdef", want: ErrPasswordNoDigit},
		{password: "123456", want: ErrPasswordNoLetter},
	}

	for _, tt := range tests {
		t.Run(tt.password, func(t *testing.T) {
			err := ValidatePassword(tt.password)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestValidateExpiry(t *testing.T) {
	now := time.Date(2026, time.October, 16, 12, 0, 0, 0, time.UTC)

	assert.NoError(t, ValidateExpiry("10/26", now))
	assert.NoError(t, ValidateExpiry("01/30", now))
	assert.ErrorIs(t, ValidateExpiry("09/26", now), ErrCardExpired)
	assert.ErrorIs(t, ValidateExpiry("13/26", now), ErrInvalidExpiry)
	assert.ErrorIs(t, ValidateExpiry("1/26", now), ErrInvalidExpiry)
}

func TestIsValidCVV(t *testing.T) {
	assert.True(t, IsValidCVV("123"))
	assert.False(t, IsValidCVV("12"))
	assert.False(t, IsValidCVV("1234"))
	assert.False(t, IsValidCVV("12a"))
}

func TestLastDigits(t *testing.T) {
	assert.Equal(t, "1486", LastDigits("4539 5787 6362 1486"))
	assert.Equal(t, "12", LastDigits("12"))
}

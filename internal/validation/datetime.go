package validation

import (
	"errors"
	"regexp"
	"time"

	"github.com/mmeshcher/car-rental/internal/model"
)

var (
	// ErrInvalidDate возвращается для даты не в формате DD:MM:YYYY или несуществующей даты.
	ErrInvalidDate = errors.New("date must be a real date in DD:MM:YYYY format")
	// ErrInvalidTime возвращается для времени не в формате HH:MM.
	ErrInvalidTime = errors.New("time must be in HH:MM format")
)

// DateLayout задаёт формат даты, который вводит пользователь бота.
const DateLayout = "02:01:2006"

var (
	datePattern  = regexp.MustCompile(`^\d{2}:\d{2}:\d{4}$`)
	clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):([0-5]\d)$`)
)

// ParseDate разбирает дату в формате DD:MM:YYYY с проверкой календаря.
func ParseDate(raw string) (model.Date, error) {
	if !datePattern.MatchString(raw) {
		return model.Date{}, ErrInvalidDate
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		return model.Date{}, ErrInvalidDate
	}
	return model.Date{Time: t}, nil
}

// FormatDate форматирует дату как DD:MM:YYYY.
func FormatDate(d model.Date) string {
	return d.Format(DateLayout)
}

// ParseClock разбирает время в формате HH:MM.
func ParseClock(raw string) (model.Clock, error) {
	m := clockPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, ErrInvalidTime
	}
	hour := int(m[1][0]-'0')*10 + int(m[1][1]-'0')
	minute := int(m[2][0]-'0')*10 + int(m[2][1]-'0')
	return model.NewClock(hour, minute), nil
}

// Package service реализует бизнес-логику сервиса аренды автомобилей.
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

var (
	// ErrInvalidCredentials возвращается при неверном идентификаторе или пароле.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrForbidden возвращается, если у пользователя нет прав на операцию.
	ErrForbidden = errors.New("forbidden")
	// ErrInvalidCode возвращается при неверном или просроченном коде подтверждения.
	ErrInvalidCode = errors.New("invalid or expired verification code")
)

// ValidationError содержит сообщения об ошибках по полям запроса.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Fields: map[string]string{field: msg}}
}

// Actor описывает пользователя, выполняющего запрос.
type Actor struct {
	UserID  int64
	IsAdmin bool
}

// owns сообщает, может ли пользователь изменять запись владельца ownerID.
func (a Actor) owns(ownerID int64) bool {
	return a.IsAdmin || a.UserID == ownerID
}

// Cache хранит временные значения с ограниченным сроком жизни.
type Cache interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	Delete(ctx context.Context, key string) error
}

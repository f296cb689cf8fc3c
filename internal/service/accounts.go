package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/validation"
)

// UserRepository описывает хранилище пользователей.
type UserRepository interface {
	CreateUser(ctx context.Context, u *model.User) error
	GetUserByID(ctx context.Context, id int64) (*model.User, error)
	GetUserByIdentifier(ctx context.Context, identifier string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)
	UpdateUser(ctx context.Context, u *model.User) error
	UpdatePassword(ctx context.Context, userID int64, hash []byte) error
	DeleteUser(ctx context.Context, id int64) error
}

// CodeSender доставляет код подтверждения регистрации.
type CodeSender interface {
	SendCode(ctx context.Context, identifier, code string) error
}

// LogCodeSender записывает код подтверждения в журнал вместо отправки.
type LogCodeSender struct {
	Logger *zap.Logger
}

// SendCode записывает код в журнал.
func (s LogCodeSender) SendCode(_ context.Context, identifier, code string) error {
	s.Logger.Info("verification code issued", zap.String("identifier", identifier), zap.String("code", code))
	return nil
}

// Registration содержит данные для регистрации пользователя.
type Registration struct {
	FirstName   string
	LastName    string
	PhoneNumber string
	Email       string
	Password    string
}

// pendingUser хранит регистрацию до подтверждения кодом.
type pendingUser struct {
	FirstName    string  `json:"first_name"`
	LastName     string  `json:"last_name"`
	PhoneNumber  *string `json:"phone_number,omitempty"`
	Email        *string `json:"email,omitempty"`
	PasswordHash []byte  `json:"password_hash"`
}

const (
	codeDigits   = 6
	codeAttempts = 5
	codeKey      = "verify:"
)

// Accounts реализует регистрацию, вход и управление профилем.
type Accounts struct {
	repo    UserRepository
	cache   Cache
	sender  CodeSender
	codeTTL time.Duration
	cost    int
	newCode func() (string, error)
}

// NewAccounts создаёт сервис учётных записей.
func NewAccounts(repo UserRepository, cache Cache, sender CodeSender, codeTTL time.Duration) *Accounts {
	return &Accounts{
		repo:    repo,
		cache:   cache,
		sender:  sender,
		codeTTL: codeTTL,
		cost:    bcrypt.DefaultCost,
		newCode: randomCode,
	}
}

func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}
	return fmt.Sprintf("%0*d", codeDigits, n.Int64()), nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// normalizeIdentifier приводит телефон к виду из одних цифр. Почта возвращается без изменений.
func normalizeIdentifier(identifier string) string {
	identifier = strings.TrimSpace(identifier)
	if strings.Contains(identifier, "@") {
		return strings.ToLower(identifier)
	}
	return validation.NormalizePhone(identifier)
}

func (a *Accounts) hash(password string) ([]byte, error) {
	if err := validation.ValidatePassword(password); err != nil {
		return nil, invalid("password", err.Error())
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return hash, nil
}

// Register сохраняет регистрацию до подтверждения и отправляет код.
// Пользователь создаётся только после VerifyCode.
func (a *Accounts) Register(ctx context.Context, reg Registration) error {
	p := pendingUser{
		FirstName: strings.TrimSpace(reg.FirstName),
		LastName:  strings.TrimSpace(reg.LastName),
		Email:     optional(strings.ToLower(reg.Email)),
	}
	if phone := strings.TrimSpace(reg.PhoneNumber); phone != "" {
		normalized, err := validation.ParsePhone(phone)
		if err != nil {
			return invalid("phone_number", err.Error())
		}
		p.PhoneNumber = &normalized
	}
	if p.PhoneNumber == nil && p.Email == nil {
		return invalid("phone_number", "phone number or email is required")
	}

	ident := (&model.User{PhoneNumber: p.PhoneNumber, Email: p.Email}).Identifier()
	for _, id := range []*string{p.PhoneNumber, p.Email} {
		if id == nil {
			continue
		}
		_, err := a.repo.GetUserByIdentifier(ctx, *id)
		if err == nil {
			return fmt.Errorf("%w: %s", repository.ErrUserExists, *id)
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
	}

	hash, err := a.hash(reg.Password)
	if err != nil {
		return err
	}
	p.PasswordHash = hash

	code, err := a.reserveCode(ctx)
	if err != nil {
		return err
	}
	if err := a.cache.SetJSON(ctx, codeKey+code, p, a.codeTTL); err != nil {
		return fmt.Errorf("store pending registration: %w", err)
	}

	if err := a.sender.SendCode(ctx, ident, code); err != nil {
		_ = a.cache.Delete(ctx, codeKey+code)
		return fmt.Errorf("send code: %w", err)
	}
	return nil
}

// reserveCode подбирает код, не занятый другой незавершённой регистрацией.
func (a *Accounts) reserveCode(ctx context.Context) (string, error) {
	for i := 0; i < codeAttempts; i++ {
		code, err := a.newCode()
		if err != nil {
			return "", err
		}
		var existing pendingUser
		taken, err := a.cache.GetJSON(ctx, codeKey+code, &existing)
		if err != nil {
			return "", fmt.Errorf("check code: %w", err)
		}
		if !taken {
			return code, nil
		}
	}
	return "", errors.New("no free verification code")
}

// VerifyCode подтверждает регистрацию и создаёт пользователя.
func (a *Accounts) VerifyCode(ctx context.Context, code string) (*model.User, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil, ErrInvalidCode
	}

	var p pendingUser
	found, err := a.cache.GetJSON(ctx, codeKey+code, &p)
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	if !found {
		return nil, ErrInvalidCode
	}

	u := &model.User{
		FirstName:    p.FirstName,
		LastName:     p.LastName,
		PhoneNumber:  p.PhoneNumber,
		Email:        p.Email,
		PasswordHash: p.PasswordHash,
	}
	if err := a.repo.CreateUser(ctx, u); err != nil {
		return nil, err
	}

	if err := a.cache.Delete(ctx, codeKey+code); err != nil {
		return u, fmt.Errorf("drop verification code: %w", err)
	}
	return u, nil
}

// Authenticate проверяет идентификатор и пароль.
func (a *Accounts) Authenticate(ctx context.Context, identifier, password string) (*model.User, error) {
	u, err := a.repo.GetUserByIdentifier(ctx, normalizeIdentifier(identifier))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// GetUser возвращает пользователя.
func (a *Accounts) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return a.repo.GetUserByID(ctx, id)
}

// ListUsers возвращает всех пользователей. Доступно администратору.
func (a *Accounts) ListUsers(ctx context.Context, actor Actor) ([]model.User, error) {
	if !actor.IsAdmin {
		return nil, ErrForbidden
	}
	return a.repo.ListUsers(ctx)
}

// ProfileUpdate содержит изменяемые поля профиля. Пустые указатели не меняют поле.
type ProfileUpdate struct {
	FirstName   *string
	LastName    *string
	PhoneNumber *string
	Email       *string
}

// UpdateProfile обновляет профиль пользователя. Изменять можно свой профиль или любой для администратора.
func (a *Accounts) UpdateProfile(ctx context.Context, actor Actor, userID int64, upd ProfileUpdate) (*model.User, error) {
	if !actor.owns(userID) {
		return nil, ErrForbidden
	}

	u, err := a.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if upd.FirstName != nil {
		u.FirstName = strings.TrimSpace(*upd.FirstName)
	}
	if upd.LastName != nil {
		u.LastName = strings.TrimSpace(*upd.LastName)
	}
	if upd.PhoneNumber != nil {
		if strings.TrimSpace(*upd.PhoneNumber) == "" {
			u.PhoneNumber = nil
		} else {
			phone, err := validation.ParsePhone(*upd.PhoneNumber)
			if err != nil {
				return nil, invalid("phone_number", err.Error())
			}
			u.PhoneNumber = &phone
		}
	}
	if upd.Email != nil {
		u.Email = optional(strings.ToLower(*upd.Email))
	}
	if u.PhoneNumber == nil && u.Email == nil {
		return nil, invalid("phone_number", "phone number or email is required")
	}

	if err := a.repo.UpdateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// ChangePassword меняет пароль пользователя после проверки старого.
func (a *Accounts) ChangePassword(ctx context.Context, actor Actor, userID int64, oldPassword, newPassword, confirm string) error {
	if !actor.owns(userID) {
		return ErrForbidden
	}
	if newPassword != confirm {
		return invalid("confirm_password", "passwords do not match")
	}

	u, err := a.repo.GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(oldPassword)); err != nil {
		return invalid("old_password", "old password is incorrect")
	}

	hash, err := a.hash(newPassword)
	if err != nil {
		return err
	}
	return a.repo.UpdatePassword(ctx, userID, hash)
}

// DeleteUser удаляет пользователя.
func (a *Accounts) DeleteUser(ctx context.Context, actor Actor, userID int64) error {
	if !actor.owns(userID) {
		return ErrForbidden
	}
	return a.repo.DeleteUser(ctx, userID)
}

package service

import (
	"context"
	"strings"
	"time"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/validation"
)

// RentalRepository описывает хранилище заказов аренды.
type RentalRepository interface {
	CreateBillingInfo(ctx context.Context, b *model.BillingInfo) error
	ListBillingInfos(ctx context.Context, userID int64) ([]model.BillingInfo, error)
	CreateRentalInfo(ctx context.Context, ri *model.RentalInfo) error
	GetRentalInfo(ctx context.Context, id int64) (*model.RentalInfo, error)
	CreatePayment(ctx context.Context, p *model.Payment) error
	ListPayments(ctx context.Context, userID int64) ([]model.Payment, error)
	DeletePayment(ctx context.Context, userID, id int64) error
	CreateRentalOrder(ctx context.Context, o *model.RentalOrder) error
	ListRentalOrders(ctx context.Context, userID int64) ([]model.RentalOrder, error)
}

// Rentals реализует оформление аренды через веб.
type Rentals struct {
	repo RentalRepository
	now  func() time.Time
}

// NewRentals создаёт сервис аренды.
func NewRentals(repo RentalRepository) *Rentals {
	return &Rentals{repo: repo, now: time.Now}
}

func normalizeBilling(b *model.BillingInfo) error {
	b.FullName = strings.Join(strings.Fields(b.FullName), " ")
	if b.FullName == "" {
		return invalid("full_name", "full name is required")
	}
	phone, err := validation.ParsePhone(b.Phone)
	if err != nil {
		return invalid("phone", err.Error())
	}
	b.Phone = phone
	return nil
}

func validateRentalInfo(ri *model.RentalInfo) error {
	switch {
	case !ri.PickupLocation.Valid():
		return invalid("pickup_location", "unknown location")
	case !ri.DropoffLocation.Valid():
		return invalid("dropoff_location", "unknown location")
	case ri.PickupDate.IsZero():
		return invalid("pickup_date", "pick up date is required")
	case ri.DropoffDate.IsZero():
		return invalid("dropoff_date", "drop off date is required")
	}

	pickup := ri.PickupDate.Add(time.Duration(ri.PickupTime) * time.Minute)
	dropoff := ri.DropoffDate.Add(time.Duration(ri.DropoffTime) * time.Minute)
	if dropoff.Before(pickup) {
		return invalid("dropoff_date", "drop off must not be earlier than pick up")
	}
	return nil
}

// CreateBillingInfo сохраняет данные плательщика пользователя.
func (s *Rentals) CreateBillingInfo(ctx context.Context, actor Actor, b *model.BillingInfo) error {
	if err := normalizeBilling(b); err != nil {
		return err
	}
	b.UserID = &actor.UserID
	return s.repo.CreateBillingInfo(ctx, b)
}

// ListBillingInfos возвращает данные плательщика пользователя.
func (s *Rentals) ListBillingInfos(ctx context.Context, actor Actor) ([]model.BillingInfo, error) {
	return s.repo.ListBillingInfos(ctx, actor.UserID)
}

// CreateRentalInfo сохраняет параметры аренды.
func (s *Rentals) CreateRentalInfo(ctx context.Context, ri *model.RentalInfo) error {
	if err := validateRentalInfo(ri); err != nil {
		return err
	}
	return s.repo.CreateRentalInfo(ctx, ri)
}

// GetRentalInfo возвращает параметры аренды.
func (s *Rentals) GetRentalInfo(ctx context.Context, id int64) (*model.RentalInfo, error) {
	return s.repo.GetRentalInfo(ctx, id)
}

// PaymentInput содержит данные карты, введённые пользователем.
type PaymentInput struct {
	CardType       string
	CardHolder     string
	CardNumber     string
	ExpirationDate string
	CVV            string
}

// CreatePayment проверяет и сохраняет платёжные данные. Номер карты и CVV не сохраняются.
func (s *Rentals) CreatePayment(ctx context.Context, actor Actor, in PaymentInput) (*model.Payment, error) {
	if !validation.IsValidCardNumber(in.CardNumber) {
		return nil, invalid("card_number", "invalid card number")
	}
	if err := validation.ValidateExpiry(in.ExpirationDate, s.now()); err != nil {
		return nil, invalid("expiration_date", err.Error())
	}
	if !validation.IsValidCVV(in.CVV) {
		return nil, invalid("cvv", "CVV must contain exactly 3 digits")
	}
	if strings.TrimSpace(in.CardHolder) == "" {
		return nil, invalid("card_holder", "card holder is required")
	}

	p := &model.Payment{
		UserID:         actor.UserID,
		CardType:       strings.TrimSpace(in.CardType),
		CardHolder:     strings.TrimSpace(in.CardHolder),
		CardLast4:      validation.LastDigits(in.CardNumber),
		ExpirationDate: strings.TrimSpace(in.ExpirationDate),
	}
	if err := s.repo.CreatePayment(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// ListPayments возвращает платёжные данные пользователя.
func (s *Rentals) ListPayments(ctx context.Context, actor Actor) ([]model.Payment, error) {
	return s.repo.ListPayments(ctx, actor.UserID)
}

// DeletePayment удаляет платёжные данные пользователя.
func (s *Rentals) DeletePayment(ctx context.Context, actor Actor, id int64) error {
	return s.repo.DeletePayment(ctx, actor.UserID, id)
}

// CreateRentalOrder проверяет заказ и создаёт его вместе с данными плательщика и параметрами аренды.
func (s *Rentals) CreateRentalOrder(ctx context.Context, actor Actor, o *model.RentalOrder) error {
	if err := normalizeBilling(&o.Billing); err != nil {
		return err
	}
	if err := validateRentalInfo(&o.Rental); err != nil {
		return err
	}
	o.UserID = actor.UserID
	return s.repo.CreateRentalOrder(ctx, o)
}

// ListRentalOrders возвращает заказы пользователя.
func (s *Rentals) ListRentalOrders(ctx context.Context, actor Actor) ([]model.RentalOrder, error) {
	return s.repo.ListRentalOrders(ctx, actor.UserID)
}

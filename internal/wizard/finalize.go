package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/session"
	"github.com/mmeshcher/car-rental/internal/validation"
)

// outcome описывает результат оплаты, с которым завершается аренда.
type outcome struct {
	method           model.PaymentMethod
	paid             bool
	amount           int64
	currency         string
	telegramChargeID string
	providerChargeID string
}

// finalize создаёт запись аренды из собранного диалога, очищает диалог и возвращает сводку.
// При ошибке сохранения диалог не очищается, чтобы пользователь мог повторить без повторного ввода.
func (w *Wizard) finalize(ctx context.Context, key string, bag session.Bag, out outcome) ([]Reply, error) {
	rental, err := rentalFromBag(bag)
	if err != nil {
		return []Reply{{Text: failureText}}, err
	}

	car, err := w.rentals.GetCar(ctx, rental.Rental.CarID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{{Text: failureText}}, fmt.Errorf("%w: car %d", ErrReferenceGone, rental.Rental.CarID)
		}
		return []Reply{{Text: failureText}}, fmt.Errorf("get car %d: %w", rental.Rental.CarID, err)
	}

	rental.PaymentMethod = out.method
	rental.Paid = out.paid
	rental.Currency = out.currency
	rental.Amount = out.amount
	if out.method == model.PaymentCash {
		rental.Amount = car.Price * 100
	}
	rental.TelegramChargeID = out.telegramChargeID
	rental.ProviderChargeID = out.providerChargeID

	if err := w.rentals.CreateBotRental(ctx, rental); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{{Text: failureText}}, fmt.Errorf("%w: %v", ErrReferenceGone, err)
		}
		return []Reply{{Text: failureText}}, fmt.Errorf("create bot rental: %w", err)
	}

	w.metrics.RentalsFinalized.WithLabelValues(string(model.OriginBot), string(out.method)).Inc()
	w.metrics.WizardTransitions.WithLabelValues(string(StateFinalized)).Inc()

	replies := []Reply{{Text: summary(rental, car)}}
	if err := w.store.Clear(ctx, key); err != nil {
		return replies, fmt.Errorf("clear session: %w", err)
	}
	return replies, nil
}

// rentalFromBag собирает запись аренды из полей диалога.
func rentalFromBag(bag session.Bag) (*model.BotRental, error) {
	missing := func(field string) error {
		return fmt.Errorf("%w: %s", ErrIncompleteSession, field)
	}

	carID, err := strconv.ParseInt(bag[FieldCarID], 10, 64)
	if err != nil {
		return nil, missing(FieldCarID)
	}
	chatID, err := strconv.ParseInt(bag[FieldChatID], 10, 64)
	if err != nil {
		return nil, missing(FieldChatID)
	}
	userID, _ := strconv.ParseInt(bag[FieldUserID], 10, 64)

	name := bag[FieldName]
	if name == "" {
		return nil, missing(FieldName)
	}
	phone := bag[FieldPhone]
	if phone == "" {
		return nil, missing(FieldPhone)
	}

	pickupLoc := model.Location(bag[FieldPickupLocation])
	if !pickupLoc.Valid() {
		return nil, missing(FieldPickupLocation)
	}
	dropoffLoc := model.Location(bag[FieldDropoffLocation])
	if !dropoffLoc.Valid() {
		return nil, missing(FieldDropoffLocation)
	}

	pickupDate, err := validation.ParseDate(bag[FieldPickupDate])
	if err != nil {
		return nil, missing(FieldPickupDate)
	}
	pickupTime, err := validation.ParseClock(bag[FieldPickupTime])
	if err != nil {
		return nil, missing(FieldPickupTime)
	}
	dropoffDate, err := validation.ParseDate(bag[FieldDropoffDate])
	if err != nil {
		return nil, missing(FieldDropoffDate)
	}
	dropoffTime, err := validation.ParseClock(bag[FieldDropoffTime])
	if err != nil {
		return nil, missing(FieldDropoffTime)
	}

	return &model.BotRental{
		ChatID:         chatID,
		TelegramUserID: userID,
		Billing: model.BillingInfo{
			FullName: name,
			Phone:    phone,
		},
		Rental: model.RentalInfo{
			CarID:           carID,
			PickupLocation:  pickupLoc,
			PickupDate:      pickupDate,
			PickupTime:      pickupTime,
			DropoffLocation: dropoffLoc,
			DropoffDate:     dropoffDate,
			DropoffTime:     dropoffTime,
		},
	}, nil
}

package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/session"
)

// choosePayment обрабатывает выбор способа оплаты. Наличные завершают аренду сразу,
// карта выставляет счёт и переводит диалог в ожидание подтверждения.
func (w *Wizard) choosePayment(ctx context.Context, ev Event) ([]Reply, error) {
	if ev.Kind != EventCallback || !strings.HasPrefix(ev.Data, CallbackPayment) {
		return w.reject(StateAwaitingPaymentMethod, "Please use the buttons below."), nil
	}

	method, err := parsePaymentMethod(strings.TrimPrefix(ev.Data, CallbackPayment))
	if err != nil {
		return w.reject(StateAwaitingPaymentMethod, err.Error()), nil
	}

	if err := w.store.Update(ctx, ev.Key, session.Bag{FieldPaymentMethod: string(method)}); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}

	if method == model.PaymentCash {
		bag, err := w.store.Get(ctx, ev.Key)
		if err != nil {
			return nil, fmt.Errorf("get session: %w", err)
		}
		return w.finalize(ctx, ev.Key, bag, outcome{method: model.PaymentCash, currency: w.currency})
	}

	return w.issueInvoice(ctx, ev.Key)
}

func (w *Wizard) issueInvoice(ctx context.Context, key string) ([]Reply, error) {
	bag, err := w.store.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}

	carID, err := strconv.ParseInt(bag[FieldCarID], 10, 64)
	if err != nil {
		return []Reply{{Text: failureText}}, fmt.Errorf("%w: car id %q", ErrIncompleteSession, bag[FieldCarID])
	}

	car, err := w.rentals.GetCar(ctx, carID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{{Text: failureText}}, fmt.Errorf("%w: car %d", ErrReferenceGone, carID)
		}
		return []Reply{{Text: failureText}}, fmt.Errorf("get car %d: %w", carID, err)
	}

	ref := w.newReference()
	amount := car.Price * 100

	if err := w.refs.PutReference(ctx, ref, key); err != nil {
		return nil, fmt.Errorf("put reference: %w", err)
	}
	err = w.store.Update(ctx, key, session.Bag{
		FieldInvoiceRef:    ref,
		FieldInvoiceAmount: strconv.FormatInt(amount, 10),
	})
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if err := w.store.SetStep(ctx, key, string(StateAwaitingPaymentConfirmation)); err != nil {
		return nil, fmt.Errorf("set step: %w", err)
	}

	w.metrics.WizardTransitions.WithLabelValues(string(StateAwaitingPaymentConfirmation)).Inc()
	return []Reply{
		{Text: invoiceText},
		{Invoice: &Invoice{
			Title:       "Car Rental",
			Description: "Payment for renting " + car.Name,
			Label:       "Car Rental - " + car.Name,
			Payload:     ref,
			Currency:    w.currency,
			Amount:      amount,
		}},
	}, nil
}

// pending возвращает ключ диалога, ожидающего оплату по ссылке.
func (w *Wizard) pending(ctx context.Context, ref string) (string, session.Bag, bool, error) {
	key, ok, err := w.refs.LookupReference(ctx, ref)
	if err != nil {
		return "", nil, false, fmt.Errorf("lookup reference: %w", err)
	}
	if !ok {
		return "", nil, false, nil
	}

	state, err := w.State(ctx, key)
	if err != nil {
		return "", nil, false, err
	}
	if state != StateAwaitingPaymentConfirmation {
		return "", nil, false, nil
	}

	bag, err := w.store.Get(ctx, key)
	if err != nil {
		return "", nil, false, fmt.Errorf("get session: %w", err)
	}
	if bag[FieldInvoiceRef] != ref {
		return "", nil, false, nil
	}
	return key, bag, true, nil
}

// CheckReference сообщает, можно ли принять оплату по ссылке на указанную сумму.
// Используется для ответа на предварительный запрос провайдера перед списанием.
func (w *Wizard) CheckReference(ctx context.Context, ref string, amount int64, currency string) (bool, error) {
	_, bag, ok, err := w.pending(ctx, ref)
	if err != nil || !ok {
		return false, err
	}
	if currency != w.currency {
		return false, nil
	}
	return bag[FieldInvoiceAmount] == strconv.FormatInt(amount, 10), nil
}

// Confirm завершает аренду по подтверждению оплаты от провайдера.
// Подтверждение без ожидающего заказа учитывается в метриках и возвращает ErrUnknownReference
// вместе с нейтральным ответом плательщику.
func (w *Wizard) Confirm(ctx context.Context, c Confirmation) ([]Reply, error) {
	key, bag, ok, err := w.pending(ctx, c.Reference)
	if err != nil {
		return nil, err
	}
	if !ok {
		w.metrics.UncorrelatedPayments.Inc()
		return []Reply{{Text: paymentReceivedText}}, fmt.Errorf("%w: %s", ErrUnknownReference, c.Reference)
	}

	replies, err := w.finalize(ctx, key, bag, outcome{
		method:           model.PaymentCard,
		paid:             true,
		amount:           c.Amount,
		currency:         c.Currency,
		telegramChargeID: c.TelegramChargeID,
		providerChargeID: c.ProviderChargeID,
	})
	if err != nil {
		return replies, err
	}

	if err := w.refs.DeleteReference(ctx, c.Reference); err != nil {
		return replies, fmt.Errorf("delete reference: %w", err)
	}
	return replies, nil
}

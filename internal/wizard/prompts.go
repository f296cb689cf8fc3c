package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/validation"
)

const (
	idleText            = "Open a car from our channel or send /start <car id> to rent it."
	cancelledText       = "❌ Rental cancelled. You can start again any time."
	carUnavailableText  = "🚫 This car is no longer available."
	awaitingPaymentText = "💳 Waiting for the payment confirmation. Pay the invoice above or send /cancel."
	failureText         = "😔 Something went wrong while saving your rental. Please try again a bit later."
	paymentReceivedText = "✅ Payment received. Thank you!"
	invoiceText         = "💳 Please pay the invoice below. Your rental is confirmed once the payment goes through."
)

// Сетка времени: с 08:00 до 19:45 с шагом 15 минут.
const (
	firstSlot   = 8 * 60
	lastSlot    = 19*60 + 45
	slotStep    = 15
	slotsPerRow = 4
	datesPerRow = 3
)

// prompt возвращает вопрос, соответствующий шагу.
func (w *Wizard) prompt(state State) Reply {
	switch state {
	case StateAwaitingName:
		return Reply{Text: "📝 Please enter your full name:"}
	case StateAwaitingPhone:
		return Reply{Text: "📞 Enter your phone number, for example +998 90 123 45 67:"}
	case StateAwaitingPickupLocation:
		return Reply{Text: "📍 Select pick up location:", Buttons: locationButtons()}
	case StateAwaitingPickupDate:
		return Reply{Text: "📅 Select pick up date or type it as DD:MM:YYYY:", Buttons: w.dateButtons()}
	case StateAwaitingPickupTime:
		return Reply{Text: "⏰ Select pick up time or type it as HH:MM:", Buttons: timeButtons()}
	case StateAwaitingDropoffLocation:
		return Reply{Text: "📍 Select drop off location:", Buttons: locationButtons()}
	case StateAwaitingDropoffDate:
		return Reply{Text: "📅 Select drop off date or type it as DD:MM:YYYY:", Buttons: w.dateButtons()}
	case StateAwaitingDropoffTime:
		return Reply{Text: "⏰ Select drop off time or type it as HH:MM:", Buttons: timeButtons()}
	case StateAwaitingPaymentMethod:
		return Reply{Text: "💰 Choose a payment method:", Buttons: paymentButtons()}
	case StateAwaitingPaymentConfirmation:
		return Reply{Text: awaitingPaymentText}
	}
	return Reply{Text: idleText}
}

func locationButtons() [][]Button {
	locs := model.Locations()
	rows := make([][]Button, 0, len(locs))
	for _, l := range locs {
		rows = append(rows, []Button{{Text: l.Title(), Data: CallbackLocation + string(l)}})
	}
	return rows
}

func (w *Wizard) dateButtons() [][]Button {
	now := w.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	var rows [][]Button
	var row []Button
	for i := 0; i < w.dateChoices; i++ {
		label := today.AddDate(0, 0, i).Format(validation.DateLayout)
		row = append(row, Button{Text: label, Data: CallbackDate + label})
		if len(row) == datesPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func timeButtons() [][]Button {
	var rows [][]Button
	var row []Button
	for m := firstSlot; m <= lastSlot; m += slotStep {
		label := model.Clock(m).String()
		row = append(row, Button{Text: label, Data: CallbackTime + label})
		if len(row) == slotsPerRow {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return rows
}

func paymentButtons() [][]Button {
	return [][]Button{
		{{Text: "💵 Cash", Data: CallbackPayment + string(model.PaymentCash)}},
		{{Text: "💳 Card", Data: CallbackPayment + string(model.PaymentCard)}},
	}
}

// formatAmount форматирует сумму в минимальных единицах валюты.
func formatAmount(minor int64, currency string) string {
	return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, currency)
}

func summary(r *model.BotRental, car *model.Car) string {
	var b strings.Builder
	b.WriteString("✅ Your rental is confirmed!\n\n")
	fmt.Fprintf(&b, "👤 Name: %s\n", r.Billing.FullName)
	fmt.Fprintf(&b, "📞 Phone: %s\n", validation.FormatPhone(r.Billing.Phone))
	fmt.Fprintf(&b, "🚗 Car: %s\n", car.Name)
	fmt.Fprintf(&b, "📍 Pick up: %s, %s %s\n",
		r.Rental.PickupLocation.Title(), validation.FormatDate(r.Rental.PickupDate), r.Rental.PickupTime)
	fmt.Fprintf(&b, "📍 Drop off: %s, %s %s\n",
		r.Rental.DropoffLocation.Title(), validation.FormatDate(r.Rental.DropoffDate), r.Rental.DropoffTime)
	if r.PaymentMethod == model.PaymentCard {
		fmt.Fprintf(&b, "💳 Payment: card, %s paid", formatAmount(r.Amount, r.Currency))
	} else {
		fmt.Fprintf(&b, "💵 Payment: cash, %s due at pick up", formatAmount(r.Amount, r.Currency))
	}
	return b.String()
}

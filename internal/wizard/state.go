package wizard

import (
	"errors"
	"strings"

	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/validation"
)

// State описывает шаг мастера аренды. Значение хранится как маркер шага диалога.
type State string

const (
	StateIdle                        State = ""
	StateAwaitingName                State = "awaiting_name"
	StateAwaitingPhone               State = "awaiting_phone"
	StateAwaitingPickupLocation      State = "awaiting_pickup_location"
	StateAwaitingPickupDate          State = "awaiting_pickup_date"
	StateAwaitingPickupTime          State = "awaiting_pickup_time"
	StateAwaitingDropoffLocation     State = "awaiting_dropoff_location"
	StateAwaitingDropoffDate         State = "awaiting_dropoff_date"
	StateAwaitingDropoffTime         State = "awaiting_dropoff_time"
	StateAwaitingPaymentMethod       State = "awaiting_payment_method"
	StateAwaitingPaymentConfirmation State = "awaiting_payment_confirmation"
	StateFinalized                   State = "finalized"
)

// Поля, накапливаемые в диалоге.
const (
	FieldCarID           = "car_id"
	FieldChatID          = "chat_id"
	FieldUserID          = "user_id"
	FieldName            = "name"
	FieldPhone           = "phone"
	FieldPickupLocation  = "pickup_location"
	FieldPickupDate      = "pickup_date"
	FieldPickupTime      = "pickup_time"
	FieldDropoffLocation = "dropoff_location"
	FieldDropoffDate     = "dropoff_date"
	FieldDropoffTime     = "dropoff_time"
	FieldPaymentMethod   = "payment_method"
	FieldInvoiceRef      = "invoice_ref"
	FieldInvoiceAmount   = "invoice_amount"
)

// Префиксы данных inline-кнопок.
const (
	CallbackRent     = "rent_"
	CallbackLocation = "loc_"
	CallbackDate     = "date_"
	CallbackTime     = "time_"
	CallbackPayment  = "payment_"
)

// Ошибки проверки ответов.
var (
	ErrEmptyName       = errors.New("name cannot be empty")
	ErrNameTooLong     = errors.New("name must be at most 100 characters")
	ErrUnknownLocation = errors.New("please choose one of the offered locations")
	ErrUnknownPayment  = errors.New("please choose cash or card")
)

// step описывает поле, которое собирает один шаг мастера.
type step struct {
	field    string
	text     bool
	callback string
	parse    func(raw string) (string, error)
	next     State
}

// steps задаёт линейную часть мастера. Выбор способа оплаты ветвится и обрабатывается отдельно.
var steps = map[State]step{
	StateAwaitingName: {
		field: FieldName, text: true, parse: parseName, next: StateAwaitingPhone,
	},
	StateAwaitingPhone: {
		field: FieldPhone, text: true, parse: validation.ParsePhone, next: StateAwaitingPickupLocation,
	},
	StateAwaitingPickupLocation: {
		field: FieldPickupLocation, callback: CallbackLocation, parse: parseLocation, next: StateAwaitingPickupDate,
	},
	StateAwaitingPickupDate: {
		field: FieldPickupDate, text: true, callback: CallbackDate, parse: parseDate, next: StateAwaitingPickupTime,
	},
	StateAwaitingPickupTime: {
		field: FieldPickupTime, text: true, callback: CallbackTime, parse: parseClock, next: StateAwaitingDropoffLocation,
	},
	StateAwaitingDropoffLocation: {
		field: FieldDropoffLocation, callback: CallbackLocation, parse: parseLocation, next: StateAwaitingDropoffDate,
	},
	StateAwaitingDropoffDate: {
		field: FieldDropoffDate, text: true, callback: CallbackDate, parse: parseDate, next: StateAwaitingDropoffTime,
	},
	StateAwaitingDropoffTime: {
		field: FieldDropoffTime, text: true, callback: CallbackTime, parse: parseClock, next: StateAwaitingPaymentMethod,
	},
}

// input извлекает ответ из события, если событие предназначено этому шагу.
func (s step) input(ev Event) (string, bool) {
	switch ev.Kind {
	case EventText:
		if !s.text {
			return "", false
		}
		return strings.TrimSpace(ev.Data), true
	case EventCallback:
		if s.callback == "" || !strings.HasPrefix(ev.Data, s.callback) {
			return "", false
		}
		return strings.TrimPrefix(ev.Data, s.callback), true
	}
	return "", false
}

func parseName(raw string) (string, error) {
	name := strings.Join(strings.Fields(raw), " ")
	if name == "" {
		return "", ErrEmptyName
	}
	if len([]rune(name)) > 100 {
		return "", ErrNameTooLong
	}
	return name, nil
}

func parseLocation(raw string) (string, error) {
	loc := model.Location(raw)
	if !loc.Valid() {
		return "", ErrUnknownLocation
	}
	return string(loc), nil
}

func parseDate(raw string) (string, error) {
	d, err := validation.ParseDate(raw)
	if err != nil {
		return "", err
	}
	return validation.FormatDate(d), nil
}

func parseClock(raw string) (string, error) {
	c, err := validation.ParseClock(raw)
	if err != nil {
		return "", err
	}
	return c.String(), nil
}

func parsePaymentMethod(raw string) (model.PaymentMethod, error) {
	switch m := model.PaymentMethod(raw); m {
	case model.PaymentCash, model.PaymentCard:
		return m, nil
	}
	return "", ErrUnknownPayment
}

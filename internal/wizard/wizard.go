// Package wizard реализует пошаговый мастер аренды автомобиля в боте.
//
// Мастер не зависит от транспорта: события приходят как Event, ответы возвращаются как Reply.
// Всё промежуточное состояние хранится в session.Store; доменные записи создаются только
// после того, как собраны все поля.
package wizard

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/session"
)

var (
	// ErrUnknownReference возвращается, если подтверждение оплаты не относится ни к одному ожидающему заказу.
	ErrUnknownReference = errors.New("unknown payment reference")
	// ErrReferenceGone возвращается, если автомобиль или другая связанная запись исчезла до завершения.
	ErrReferenceGone = errors.New("referenced record no longer exists")
	// ErrIncompleteSession возвращается, если в диалоге не хватает полей для завершения.
	ErrIncompleteSession = errors.New("session is incomplete")
	// ErrUnknownState возвращается для неизвестного маркера шага.
	ErrUnknownState = errors.New("unknown wizard state")
)

// EventKind различает текстовые сообщения и нажатия кнопок.
type EventKind int

const (
	EventText EventKind = iota
	EventCallback
)

// Event описывает входящее событие пользователя.
type Event struct {
	Key    string
	ChatID int64
	Kind   EventKind
	Data   string
}

// Button описывает inline-кнопку.
type Button struct {
	Text string
	Data string
}

// Invoice описывает счёт, который транспорт выставляет через платёжного провайдера.
type Invoice struct {
	Title       string
	Description string
	Label       string
	Payload     string
	Currency    string
	Amount      int64
}

// Reply описывает исходящее сообщение мастера.
type Reply struct {
	Text    string
	Buttons [][]Button
	Invoice *Invoice
}

// Confirmation описывает подтверждение оплаты от провайдера.
type Confirmation struct {
	Reference        string
	Amount           int64
	Currency         string
	TelegramChargeID string
	ProviderChargeID string
}

// Rentals описывает доступ к данным, нужный мастеру.
type Rentals interface {
	GetCar(ctx context.Context, id int64) (*model.Car, error)
	CreateBotRental(ctx context.Context, rental *model.BotRental) error
}

// Config содержит параметры мастера.
type Config struct {
	Currency     string
	DateChoices  int
	Now          func() time.Time
	NewReference func() string
}

// Wizard ведёт диалог аренды по шагам.
type Wizard struct {
	store   session.Store
	refs    session.References
	rentals Rentals
	metrics *metrics.Metrics

	currency     string
	dateChoices  int
	now          func() time.Time
	newReference func() string
}

// New создаёт мастер аренды.
func New(store session.Store, refs session.References, rentals Rentals, m *metrics.Metrics, cfg Config) *Wizard {
	w := &Wizard{
		store:        store,
		refs:         refs,
		rentals:      rentals,
		metrics:      m,
		currency:     cfg.Currency,
		dateChoices:  cfg.DateChoices,
		now:          cfg.Now,
		newReference: cfg.NewReference,
	}
	if w.currency == "" {
		w.currency = "UZS"
	}
	if w.dateChoices <= 0 {
		w.dateChoices = 6
	}
	if w.now == nil {
		w.now = time.Now
	}
	if w.newReference == nil {
		w.newReference = uuid.NewString
	}
	return w
}

// State возвращает текущий шаг диалога.
func (w *Wizard) State(ctx context.Context, key string) (State, error) {
	step, err := w.store.GetStep(ctx, key)
	if err != nil {
		return StateIdle, fmt.Errorf("get step: %w", err)
	}
	return State(step), nil
}

// Start начинает аренду выбранного автомобиля. Незавершённый диалог пользователя сбрасывается.
func (w *Wizard) Start(ctx context.Context, key string, chatID, carID int64) ([]Reply, error) {
	if _, err := w.rentals.GetCar(ctx, carID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return []Reply{{Text: carUnavailableText}}, nil
		}
		return nil, fmt.Errorf("get car %d: %w", carID, err)
	}

	if err := w.reset(ctx, key); err != nil {
		return nil, err
	}

	err := w.store.Update(ctx, key, session.Bag{
		FieldCarID:  strconv.FormatInt(carID, 10),
		FieldChatID: strconv.FormatInt(chatID, 10),
		FieldUserID: key,
	})
	if err != nil {
		return nil, fmt.Errorf("seed session: %w", err)
	}
	if err := w.store.SetStep(ctx, key, string(StateAwaitingName)); err != nil {
		return nil, fmt.Errorf("set step: %w", err)
	}

	w.metrics.WizardTransitions.WithLabelValues(string(StateAwaitingName)).Inc()
	return []Reply{w.prompt(StateAwaitingName)}, nil
}

// Cancel прерывает диалог пользователя.
func (w *Wizard) Cancel(ctx context.Context, key string) ([]Reply, error) {
	state, err := w.State(ctx, key)
	if err != nil {
		return nil, err
	}
	if state == StateIdle {
		return []Reply{{Text: idleText}}, nil
	}
	if err := w.reset(ctx, key); err != nil {
		return nil, err
	}
	return []Reply{{Text: cancelledText}}, nil
}

// reset удаляет диалог вместе с выставленной по нему ссылкой на оплату.
func (w *Wizard) reset(ctx context.Context, key string) error {
	bag, err := w.store.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("get session: %w", err)
	}
	if ref := bag[FieldInvoiceRef]; ref != "" {
		if err := w.refs.DeleteReference(ctx, ref); err != nil {
			return fmt.Errorf("delete reference: %w", err)
		}
	}
	if err := w.store.Clear(ctx, key); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Handle обрабатывает ответ пользователя на текущий вопрос мастера.
func (w *Wizard) Handle(ctx context.Context, ev Event) ([]Reply, error) {
	state, err := w.State(ctx, ev.Key)
	if err != nil {
		return nil, err
	}

	switch state {
	case StateIdle:
		return []Reply{{Text: idleText}}, nil
	case StateAwaitingName,
		StateAwaitingPhone,
		StateAwaitingPickupLocation,
		StateAwaitingPickupDate,
		StateAwaitingPickupTime,
		StateAwaitingDropoffLocation,
		StateAwaitingDropoffDate,
		StateAwaitingDropoffTime:
		return w.collect(ctx, ev, state, steps[state])
	case StateAwaitingPaymentMethod:
		return w.choosePayment(ctx, ev)
	case StateAwaitingPaymentConfirmation:
		return []Reply{{Text: awaitingPaymentText}}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownState, state)
}

// collect проверяет ответ на линейном шаге. При ошибке шаг не меняется и вопрос повторяется.
func (w *Wizard) collect(ctx context.Context, ev Event, state State, s step) ([]Reply, error) {
	raw, ok := s.input(ev)
	if !ok {
		return w.reject(state, wrongInputNote(s)), nil
	}

	value, err := s.parse(raw)
	if err != nil {
		return w.reject(state, err.Error()), nil
	}

	if err := w.store.Update(ctx, ev.Key, session.Bag{s.field: value}); err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	if err := w.store.SetStep(ctx, ev.Key, string(s.next)); err != nil {
		return nil, fmt.Errorf("set step: %w", err)
	}

	w.metrics.WizardTransitions.WithLabelValues(string(s.next)).Inc()
	return []Reply{w.prompt(s.next)}, nil
}

func (w *Wizard) reject(state State, note string) []Reply {
	w.metrics.WizardRejections.WithLabelValues(string(state)).Inc()

	r := w.prompt(state)
	r.Text = "⚠️ " + note + "\n\n" + r.Text
	return []Reply{r}
}

func wrongInputNote(s step) string {
	if s.text {
		return "Please type your answer."
	}
	return "Please use the buttons below."
}

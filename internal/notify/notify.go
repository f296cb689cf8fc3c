// Package notify публикует автомобили каталога в канале бота и оповещает заинтересованных пользователей.
package notify

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/model"
)

// Channel описывает канал публикации.
type Channel interface {
	// PublishCar публикует пост об автомобиле и возвращает идентификатор поста.
	PublishCar(ctx context.Context, car model.Car) (int64, error)
	// EditCar обновляет ранее опубликованный пост.
	EditCar(ctx context.Context, postID int64, car model.Car) error
	// SendMessage отправляет личное сообщение в чат.
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Store описывает данные, которые нужны оповещению.
type Store interface {
	SetCarPostID(ctx context.Context, carID, postID int64) error
	ListInterestedChats(ctx context.Context, carID int64, carName string) ([]int64, error)
}

// CarNotifier публикует и обновляет посты об автомобилях.
// Ошибки доставки журналируются и учитываются в метриках, но не возвращаются.
type CarNotifier struct {
	channel Channel
	store   Store
	logger  *zap.Logger
	metrics *metrics.Metrics
	// deepLink строит ссылку на начало аренды в боте.
	deepLink func(carID int64) string
}

// NewCarNotifier создаёт CarNotifier. deepLink может быть nil, тогда ссылка в сообщение не добавляется.
func NewCarNotifier(channel Channel, store Store, logger *zap.Logger, m *metrics.Metrics, deepLink func(carID int64) string) *CarNotifier {
	return &CarNotifier{
		channel:  channel,
		store:    store,
		logger:   logger,
		metrics:  m,
		deepLink: deepLink,
	}
}

// CarSaved реагирует на сохранение автомобиля.
// Новый автомобиль публикуется, и идентификатор поста сохраняется; изменённый автомобиль
// обновляет уже опубликованный пост.
func (n *CarNotifier) CarSaved(ctx context.Context, car model.Car, created bool) {
	if created {
		n.publish(ctx, car)
		n.notifyInterested(ctx, car)
		return
	}
	if car.TelegramMessageID != nil {
		n.edit(ctx, car)
	}
}

func (n *CarNotifier) publish(ctx context.Context, car model.Car) {
	postID, err := n.channel.PublishCar(ctx, car)
	if err != nil {
		n.failed("publish", err, zap.Int64("carID", car.ID))
		return
	}
	// Меняется только идентификатор поста, поэтому хуки сохранения не срабатывают повторно.
	if err := n.store.SetCarPostID(ctx, car.ID, postID); err != nil {
		n.failed("record_post", err, zap.Int64("carID", car.ID), zap.Int64("postID", postID))
		return
	}
	n.logger.Info("car published", zap.Int64("carID", car.ID), zap.Int64("postID", postID))
}

func (n *CarNotifier) edit(ctx context.Context, car model.Car) {
	if err := n.channel.EditCar(ctx, *car.TelegramMessageID, car); err != nil {
		n.failed("edit", err, zap.Int64("carID", car.ID), zap.Int64("postID", *car.TelegramMessageID))
	}
}

func (n *CarNotifier) notifyInterested(ctx context.Context, car model.Car) {
	chats, err := n.store.ListInterestedChats(ctx, car.ID, car.Name)
	if err != nil {
		n.failed("interested", err, zap.Int64("carID", car.ID))
		return
	}

	text := fmt.Sprintf("🚗 A new car you may like is available: %s, %d UZS per day.", car.Name, car.Price)
	if n.deepLink != nil {
		text += "\nRent it here: " + n.deepLink(car.ID)
	}

	for _, chatID := range chats {
		if err := n.channel.SendMessage(ctx, chatID, text); err != nil {
			n.failed("direct_message", err, zap.Int64("carID", car.ID), zap.Int64("chatID", chatID))
		}
	}
}

func (n *CarNotifier) failed(action string, err error, fields ...zap.Field) {
	n.metrics.NotifierFailures.WithLabelValues(action).Inc()
	n.logger.Warn("car notification failed", append(fields, zap.String("action", action), zap.Error(err))...)
}

// Dispatcher запускает обработчик сохранения автомобиля в фоне, чтобы запрос не ждал внешний канал.
type Dispatcher struct {
	fn      func(ctx context.Context, car model.Car, created bool)
	timeout time.Duration
	wg      sync.WaitGroup
}

// NewDispatcher создаёт Dispatcher с ограничением времени на одну доставку.
func NewDispatcher(fn func(ctx context.Context, car model.Car, created bool), timeout time.Duration) *Dispatcher {
	return &Dispatcher{fn: fn, timeout: timeout}
}

// CarSaved запускает доставку и сразу возвращается. Отмена контекста запроса доставку не прерывает.
func (d *Dispatcher) CarSaved(ctx context.Context, car model.Car, created bool) {
	ctx = context.WithoutCancel(ctx)
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, d.timeout)
		defer cancel()
		d.fn(ctx, car, created)
	}()
}

// Wait ждёт завершения запущенных доставок.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

// Package events передаёт события сохранения автомобилей через Kafka,
// чтобы публикацией в канале занимался отдельный процесс.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/model"
)

// CarSavedType задаёт тип события сохранения автомобиля.
const CarSavedType = "car.saved"

// CarSaved описывает событие сохранения автомобиля.
type CarSaved struct {
	Type    string    `json:"type"`
	Car     model.Car `json:"car"`
	Created bool      `json:"created"`
	SavedAt time.Time `json:"saved_at"`
}

// Producer публикует события в Kafka.
type Producer struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewProducer создаёт Producer для темы topic.
func NewProducer(brokers []string, topic string, logger *zap.Logger) *Producer {
	return &Producer{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		logger: logger,
	}
}

// Publish отправляет событие. Ключом служит идентификатор автомобиля,
// поэтому события одного автомобиля читаются по порядку.
func (p *Producer) Publish(ctx context.Context, ev CarSaved) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(strconv.FormatInt(ev.Car.ID, 10)),
		Value: data,
		Time:  ev.SavedAt,
	})
	if err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	return nil
}

// CarSaved публикует событие сохранения автомобиля. Ошибка журналируется и не возвращается.
func (p *Producer) CarSaved(ctx context.Context, car model.Car, created bool) {
	ev := CarSaved{Type: CarSavedType, Car: car, Created: created, SavedAt: time.Now().UTC()}
	if err := p.Publish(ctx, ev); err != nil {
		p.logger.Warn("publish car event failed", zap.Int64("carID", car.ID), zap.Error(err))
	}
}

// Close закрывает соединения с брокерами.
func (p *Producer) Close() error {
	return p.writer.Close()
}

// Consumer читает события из Kafka в составе группы.
type Consumer struct {
	reader *kafka.Reader
	logger *zap.Logger
}

// NewConsumer создаёт Consumer группы groupID для темы topic.
func NewConsumer(brokers []string, groupID, topic string, logger *zap.Logger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		logger: logger,
	}
}

// Consume передаёт события в handler до отмены контекста.
// Нераспознанные сообщения пропускаются, чтобы не блокировать раздел.
func (c *Consumer) Consume(ctx context.Context, handler func(ctx context.Context, ev CarSaved)) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return fmt.Errorf("read message: %w", err)
		}

		ev, err := Decode(msg.Value)
		if err != nil {
			c.logger.Warn("skip malformed event", zap.Int64("offset", msg.Offset), zap.Error(err))
			continue
		}
		handler(ctx, ev)
	}
}

// Close выходит из группы и закрывает соединения.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// Decode разбирает событие и проверяет его тип.
func Decode(data []byte) (CarSaved, error) {
	var ev CarSaved
	if err := json.Unmarshal(data, &ev); err != nil {
		return CarSaved{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if ev.Type != CarSavedType {
		return CarSaved{}, fmt.Errorf("unexpected event type %q", ev.Type)
	}
	if ev.Car.ID <= 0 {
		return CarSaved{}, errors.New("event without car id")
	}
	return ev, nil
}

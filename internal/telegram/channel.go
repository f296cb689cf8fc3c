package telegram

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/mmeshcher/car-rental/internal/model"
)

// PublishCar публикует пост об автомобиле в канале и возвращает идентификатор сообщения.
func (b *Bot) PublishCar(ctx context.Context, car model.Car) (int64, error) {
	msg, err := b.postCard(ctx, b.cfg.ChannelID, &car, b.linkKeyboard(car.ID))
	if err != nil {
		return 0, fmt.Errorf("publish car %d: %w", car.ID, err)
	}
	return int64(msg.ID), nil
}

// EditCar обновляет пост об автомобиле. Пост с фотографией меняет подпись, текстовый пост меняет текст.
func (b *Bot) EditCar(ctx context.Context, postID int64, car model.Car) error {
	var err error
	if car.MainImage != "" {
		_, err = b.api.EditMessageCaption(ctx, &bot.EditMessageCaptionParams{
			ChatID:      b.cfg.ChannelID,
			MessageID:   int(postID),
			Caption:     carCaption(&car),
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: b.linkKeyboard(car.ID),
		})
	} else {
		_, err = b.api.EditMessageText(ctx, &bot.EditMessageTextParams{
			ChatID:      b.cfg.ChannelID,
			MessageID:   int(postID),
			Text:        carCaption(&car),
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: b.linkKeyboard(car.ID),
		})
	}
	if err != nil {
		return fmt.Errorf("edit car %d post %d: %w", car.ID, postID, err)
	}
	return nil
}

// SendMessage отправляет личное сообщение пользователю.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string) error {
	if _, err := b.api.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		return fmt.Errorf("send message to %d: %w", chatID, err)
	}
	return nil
}

func (b *Bot) linkKeyboard(carID int64) *models.InlineKeyboardMarkup {
	return &models.InlineKeyboardMarkup{InlineKeyboard: [][]models.InlineKeyboardButton{
		{{Text: "🚗 Rent", URL: b.DeepLink(carID)}},
	}}
}

func (b *Bot) sendCard(ctx context.Context, chatID int64, car *model.Car, markup models.ReplyMarkup) error {
	_, err := b.postCard(ctx, chatID, car, markup)
	return err
}

// postCard отправляет карточку автомобиля: фотографию с подписью или текст, если фотографии нет.
func (b *Bot) postCard(ctx context.Context, chatID any, car *model.Car, markup models.ReplyMarkup) (*models.Message, error) {
	if car.MainImage != "" {
		return b.api.SendPhoto(ctx, &bot.SendPhotoParams{
			ChatID:      chatID,
			Photo:       &models.InputFileString{Data: car.MainImage},
			Caption:     carCaption(car),
			ParseMode:   models.ParseModeHTML,
			ReplyMarkup: markup,
		})
	}
	return b.api.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:      chatID,
		Text:        carCaption(car),
		ParseMode:   models.ParseModeHTML,
		ReplyMarkup: markup,
	})
}

func carCaption(car *model.Car) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "🚗 <b>%s</b>\n", html.EscapeString(car.Name))
	if car.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n\n", html.EscapeString(car.Description))
	}
	fmt.Fprintf(&sb, "👥 Capacity: %s\n", html.EscapeString(string(car.Capacity)))
	fmt.Fprintf(&sb, "🛞 Steering: %s\n", html.EscapeString(string(car.Steering)))
	if car.Gasoline != "" {
		fmt.Fprintf(&sb, "⛽ Fuel tank: %s\n", html.EscapeString(car.Gasoline))
	}
	fmt.Fprintf(&sb, "💰 Price: %d UZS per day", car.Price)
	return sb.String()
}

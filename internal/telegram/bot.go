// Package telegram связывает мастер аренды и оповещения каталога с Telegram Bot API.
package telegram

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/wizard"
)

// API описывает методы Bot API, которые использует адаптер. Реализуется *bot.Bot.
type API interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
	SendPhoto(ctx context.Context, params *bot.SendPhotoParams) (*models.Message, error)
	EditMessageText(ctx context.Context, params *bot.EditMessageTextParams) (*models.Message, error)
	EditMessageCaption(ctx context.Context, params *bot.EditMessageCaptionParams) (*models.Message, error)
	SendInvoice(ctx context.Context, params *bot.SendInvoiceParams) (*models.Message, error)
	AnswerCallbackQuery(ctx context.Context, params *bot.AnswerCallbackQueryParams) (bool, error)
	AnswerPreCheckoutQuery(ctx context.Context, params *bot.AnswerPreCheckoutQueryParams) (bool, error)
}

// Wizard описывает мастер аренды.
type Wizard interface {
	Start(ctx context.Context, key string, chatID, carID int64) ([]wizard.Reply, error)
	Handle(ctx context.Context, ev wizard.Event) ([]wizard.Reply, error)
	Cancel(ctx context.Context, key string) ([]wizard.Reply, error)
	CheckReference(ctx context.Context, ref string, amount int64, currency string) (bool, error)
	Confirm(ctx context.Context, c wizard.Confirmation) ([]wizard.Reply, error)
}

// Cars возвращает автомобили каталога.
type Cars interface {
	GetCar(ctx context.Context, id int64) (*model.Car, error)
}

// Config содержит параметры бота.
type Config struct {
	Token         string
	Username      string
	ChannelID     string
	ProviderToken string
}

const (
	welcomeText     = "👋 Welcome! Open a car from our channel and press Rent, or send /start <car id>."
	carNotFoundText = "🚫 Car not found."
	errorText       = "😔 Something went wrong. Please try again a bit later."
	preCheckoutFail = "This invoice is no longer valid. Please start the rental again."
)

// Bot обрабатывает обновления Telegram и публикует посты в канале.
type Bot struct {
	api     API
	client  *bot.Bot
	wizard  Wizard
	cars    Cars
	logger  *zap.Logger
	metrics *metrics.Metrics
	cfg     Config
}

// New создаёт бота. Обновления обрабатываются последовательно, поэтому сообщения
// одного пользователя не обгоняют друг друга.
func New(cfg Config, w Wizard, cars Cars, logger *zap.Logger, m *metrics.Metrics) (*Bot, error) {
	a := newBot(nil, cfg, w, cars, logger, m)

	client, err := bot.New(cfg.Token,
		bot.WithDefaultHandler(func(ctx context.Context, _ *bot.Bot, update *models.Update) {
			a.HandleUpdate(ctx, update)
		}),
		bot.WithWorkers(1),
		bot.WithNotAsyncHandlers(),
	)
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	a.api = client
	a.client = client
	return a, nil
}

func newBot(api API, cfg Config, w Wizard, cars Cars, logger *zap.Logger, m *metrics.Metrics) *Bot {
	return &Bot{
		api:     api,
		wizard:  w,
		cars:    cars,
		logger:  logger,
		metrics: m,
		cfg:     cfg,
	}
}

// Run получает обновления до отмены контекста.
func (b *Bot) Run(ctx context.Context) {
	b.client.Start(ctx)
}

// DeepLink возвращает ссылку, открывающую бота на карточке автомобиля.
func (b *Bot) DeepLink(carID int64) string {
	return fmt.Sprintf("https://t.me/%s?start=car_%d", b.cfg.Username, carID)
}

// HandleUpdate разбирает обновление и передаёт его мастеру аренды.
func (b *Bot) HandleUpdate(ctx context.Context, update *models.Update) {
	switch {
	case update.PreCheckoutQuery != nil:
		b.count("pre_checkout")
		b.preCheckout(ctx, update.PreCheckoutQuery)
	case update.CallbackQuery != nil:
		b.count("callback")
		b.callback(ctx, update.CallbackQuery)
	case update.Message != nil && update.Message.SuccessfulPayment != nil:
		b.count("payment")
		b.payment(ctx, update.Message)
	case update.Message != nil && update.Message.From != nil:
		b.message(ctx, update.Message)
	}
}

func (b *Bot) count(kind string) {
	b.metrics.BotUpdates.WithLabelValues(kind).Inc()
}

func sessionKey(userID int64) string {
	return strconv.FormatInt(userID, 10)
}

func (b *Bot) message(ctx context.Context, msg *models.Message) {
	text := strings.TrimSpace(msg.Text)
	key := sessionKey(msg.From.ID)
	chatID := msg.Chat.ID

	command, args, isCommand := parseCommand(text)
	switch {
	case isCommand && command == "start":
		b.count("command")
		b.start(ctx, chatID, args)
	case isCommand && command == "cancel":
		b.count("command")
		replies, err := b.wizard.Cancel(ctx, key)
		b.deliver(ctx, chatID, replies, err, "cancel")
	default:
		b.count("message")
		replies, err := b.wizard.Handle(ctx, wizard.Event{Key: key, ChatID: chatID, Kind: wizard.EventText, Data: text})
		b.deliver(ctx, chatID, replies, err, "text")
	}
}

// parseCommand выделяет команду вида /start@bot args.
func parseCommand(text string) (string, string, bool) {
	if !strings.HasPrefix(text, "/") {
		return "", "", false
	}
	head, args, _ := strings.Cut(text[1:], " ")
	command, _, _ := strings.Cut(head, "@")
	return strings.ToLower(command), strings.TrimSpace(args), true
}

// parseCarRef разбирает параметр /start: car_<id> или <id>.
func parseCarRef(arg string) (int64, bool) {
	arg = strings.TrimPrefix(arg, "car_")
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// start показывает карточку автомобиля с кнопкой аренды.
func (b *Bot) start(ctx context.Context, chatID int64, args string) {
	if args == "" {
		b.send(ctx, chatID, wizard.Reply{Text: welcomeText})
		return
	}
	carID, ok := parseCarRef(args)
	if !ok {
		b.send(ctx, chatID, wizard.Reply{Text: carNotFoundText})
		return
	}

	car, err := b.cars.GetCar(ctx, carID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			b.logger.Error("get car error", zap.Int64("carID", carID), zap.Error(err))
		}
		b.send(ctx, chatID, wizard.Reply{Text: carNotFoundText})
		return
	}

	if err := b.sendCard(ctx, chatID, car, rentKeyboard(car.ID)); err != nil {
		b.logger.Warn("send car card failed", zap.Int64("carID", carID), zap.Error(err))
	}
}

func (b *Bot) callback(ctx context.Context, q *models.CallbackQuery) {
	if _, err := b.api.AnswerCallbackQuery(ctx, &bot.AnswerCallbackQueryParams{CallbackQueryID: q.ID}); err != nil {
		b.logger.Debug("answer callback failed", zap.Error(err))
	}

	key := sessionKey(q.From.ID)
	chatID := q.From.ID
	if q.Message.Message != nil {
		chatID = q.Message.Message.Chat.ID
	}

	if rest, ok := strings.CutPrefix(q.Data, wizard.CallbackRent); ok {
		carID, err := strconv.ParseInt(rest, 10, 64)
		if err != nil {
			b.send(ctx, chatID, wizard.Reply{Text: carNotFoundText})
			return
		}
		replies, err := b.wizard.Start(ctx, key, chatID, carID)
		b.deliver(ctx, chatID, replies, err, "start")
		return
	}

	replies, err := b.wizard.Handle(ctx, wizard.Event{Key: key, ChatID: chatID, Kind: wizard.EventCallback, Data: q.Data})
	b.deliver(ctx, chatID, replies, err, "callback")
}

// preCheckout подтверждает списание, только если счёт ещё ожидает оплату на ту же сумму.
func (b *Bot) preCheckout(ctx context.Context, q *models.PreCheckoutQuery) {
	ok, err := b.wizard.CheckReference(ctx, q.InvoicePayload, int64(q.TotalAmount), q.Currency)
	if err != nil {
		b.logger.Error("check payment reference error", zap.String("reference", q.InvoicePayload), zap.Error(err))
	}

	params := &bot.AnswerPreCheckoutQueryParams{PreCheckoutQueryID: q.ID, OK: ok}
	if !ok {
		params.ErrorMessage = preCheckoutFail
	}
	if _, err := b.api.AnswerPreCheckoutQuery(ctx, params); err != nil {
		b.logger.Error("answer pre-checkout error", zap.String("reference", q.InvoicePayload), zap.Error(err))
	}
}

func (b *Bot) payment(ctx context.Context, msg *models.Message) {
	p := msg.SuccessfulPayment
	replies, err := b.wizard.Confirm(ctx, wizard.Confirmation{
		Reference:        p.InvoicePayload,
		Amount:           int64(p.TotalAmount),
		Currency:         p.Currency,
		TelegramChargeID: p.TelegramPaymentChargeID,
		ProviderChargeID: p.ProviderPaymentChargeID,
	})
	b.deliver(ctx, msg.Chat.ID, replies, err, "payment")
}

// deliver отправляет ответы мастера и журналирует его ошибку.
func (b *Bot) deliver(ctx context.Context, chatID int64, replies []wizard.Reply, err error, op string) {
	switch {
	case err == nil:
	case errors.Is(err, wizard.ErrUnknownReference):
		b.logger.Warn("uncorrelated payment confirmation", zap.Int64("chatID", chatID), zap.Error(err))
	default:
		b.metrics.Errors.WithLabelValues("bot").Inc()
		b.logger.Error("wizard "+op+" error", zap.Int64("chatID", chatID), zap.Error(err))
		if len(replies) == 0 {
			replies = []wizard.Reply{{Text: errorText}}
		}
	}

	for _, r := range replies {
		b.send(ctx, chatID, r)
	}
}

func (b *Bot) send(ctx context.Context, chatID int64, r wizard.Reply) {
	if r.Invoice != nil {
		b.sendInvoice(ctx, chatID, r.Invoice)
		return
	}

	params := &bot.SendMessageParams{ChatID: chatID, Text: r.Text}
	if len(r.Buttons) > 0 {
		params.ReplyMarkup = keyboard(r.Buttons)
	}
	if _, err := b.api.SendMessage(ctx, params); err != nil {
		b.logger.Warn("send message failed", zap.Int64("chatID", chatID), zap.Error(err))
	}
}

func (b *Bot) sendInvoice(ctx context.Context, chatID int64, inv *wizard.Invoice) {
	_, err := b.api.SendInvoice(ctx, &bot.SendInvoiceParams{
		ChatID:        chatID,
		Title:         inv.Title,
		Description:   inv.Description,
		Payload:       inv.Payload,
		ProviderToken: b.cfg.ProviderToken,
		Currency:      inv.Currency,
		Prices:        []models.LabeledPrice{{Label: inv.Label, Amount: int(inv.Amount)}},
	})
	if err != nil {
		b.metrics.Errors.WithLabelValues("bot").Inc()
		b.logger.Error("send invoice error", zap.Int64("chatID", chatID), zap.String("reference", inv.Payload), zap.Error(err))
	}
}

func keyboard(rows [][]wizard.Button) *models.InlineKeyboardMarkup {
	kb := make([][]models.InlineKeyboardButton, 0, len(rows))
	for _, row := range rows {
		buttons := make([]models.InlineKeyboardButton, 0, len(row))
		for _, btn := range row {
			buttons = append(buttons, models.InlineKeyboardButton{Text: btn.Text, CallbackData: btn.Data})
		}
		kb = append(kb, buttons)
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: kb}
}

func rentKeyboard(carID int64) *models.InlineKeyboardMarkup {
	return keyboard([][]wizard.Button{{{Text: "🚗 Rent", Data: wizard.CallbackRent + strconv.FormatInt(carID, 10)}}})
}

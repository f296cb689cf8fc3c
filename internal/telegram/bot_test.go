package telegram

import (
	"context"
	"errors"
	"testing"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/model"
	"github.com/mmeshcher/car-rental/internal/repository"
	"github.com/mmeshcher/car-rental/internal/wizard"
)

type fakeAPI struct {
	messages    []*bot.SendMessageParams
	photos      []*bot.SendPhotoParams
	textEdits   []*bot.EditMessageTextParams
	captions    []*bot.EditMessageCaptionParams
	invoices    []*bot.SendInvoiceParams
	callbacks   []*bot.AnswerCallbackQueryParams
	preCheckout []*bot.AnswerPreCheckoutQueryParams
	nextID      int
	err         error
}

func (f *fakeAPI) message() (*models.Message, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.nextID++
	return &models.Message{ID: f.nextID}, nil
}

func (f *fakeAPI) SendMessage(_ context.Context, p *bot.SendMessageParams) (*models.Message, error) {
	f.messages = append(f.messages, p)
	return f.message()
}

func (f *fakeAPI) SendPhoto(_ context.Context, p *bot.SendPhotoParams) (*models.Message, error) {
	f.photos = append(f.photos, p)
	return f.message()
}

func (f *fakeAPI) EditMessageText(_ context.Context, p *bot.EditMessageTextParams) (*models.Message, error) {
	f.textEdits = append(f.textEdits, p)
	return f.message()
}

func (f *fakeAPI) EditMessageCaption(_ context.Context, p *bot.EditMessageCaptionParams) (*models.Message, error) {
	f.captions = append(f.captions, p)
	return f.message()
}

func (f *fakeAPI) SendInvoice(_ context.Context, p *bot.SendInvoiceParams) (*models.Message, error) {
	f.invoices = append(f.invoices, p)
	return f.message()
}

func (f *fakeAPI) AnswerCallbackQuery(_ context.Context, p *bot.AnswerCallbackQueryParams) (bool, error) {
	f.callbacks = append(f.callbacks, p)
	return true, nil
}

func (f *fakeAPI) AnswerPreCheckoutQuery(_ context.Context, p *bot.AnswerPreCheckoutQueryParams) (bool, error) {
	f.preCheckout = append(f.preCheckout, p)
	return true, nil
}

type fakeWizard struct {
	Wizard
	events       []wizard.Event
	started      []int64
	cancelled    []string
	confirmed    []wizard.Confirmation
	replies      []wizard.Reply
	err          error
	referenceOK  bool
	referenceErr error
}

func (f *fakeWizard) Start(_ context.Context, key string, _, carID int64) ([]wizard.Reply, error) {
	f.started = append(f.started, carID)
	return f.replies, f.err
}

func (f *fakeWizard) Handle(_ context.Context, ev wizard.Event) ([]wizard.Reply, error) {
	f.events = append(f.events, ev)
	return f.replies, f.err
}

func (f *fakeWizard) Cancel(_ context.Context, key string) ([]wizard.Reply, error) {
	f.cancelled = append(f.cancelled, key)
	return f.replies, f.err
}

func (f *fakeWizard) CheckReference(context.Context, string, int64, string) (bool, error) {
	return f.referenceOK, f.referenceErr
}

func (f *fakeWizard) Confirm(_ context.Context, c wizard.Confirmation) ([]wizard.Reply, error) {
	f.confirmed = append(f.confirmed, c)
	return f.replies, f.err
}

type fakeCars map[int64]*model.Car

func (f fakeCars) GetCar(_ context.Context, id int64) (*model.Car, error) {
	car, ok := f[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return car, nil
}

func newTestBot(api *fakeAPI, w *fakeWizard, cars fakeCars) *Bot {
	cfg := Config{Username: "rent_bot", ChannelID: "@cars", ProviderToken: "provider"}
	return newBot(api, cfg, w, cars, zap.NewNop(), metrics.Registry("carrental_test"))
}

func textUpdate(userID int64, text string) *models.Update {
	return &models.Update{Message: &models.Message{
		From: &models.User{ID: userID},
		Chat: models.Chat{ID: userID},
		Text: text,
	}}
}

func callbackUpdate(userID int64, data string) *models.Update {
	return &models.Update{CallbackQuery: &models.CallbackQuery{
		ID:      "cb-1",
		From:    models.User{ID: userID},
		Data:    data,
		Message: models.MaybeInaccessibleMessage{Message: &models.Message{Chat: models.Chat{ID: userID}}},
	}}
}

func TestParseCarRef(t *testing.T) {
	tests := []struct {
		arg    string
		wantID int64
		wantOK bool
	}{
		{arg: "car_12", wantID: 12, wantOK: true},
		{arg: "7", wantID: 7, wantOK: true},
		{arg: "car_", wantOK: false},
		{arg: "car_-1", wantOK: false},
		{arg: "malibu", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.arg, func(t *testing.T) {
			id, ok := parseCarRef(tt.arg)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestParseCommand(t *testing.T) {
	command, args, ok := parseCommand("/start@rent_bot car_3")
	require.True(t, ok)
	assert.Equal(t, "start", command)
	assert.Equal(t, "car_3", args)

	_, _, ok = parseCommand("Tashkent")
	assert.False(t, ok)
}

func TestStart_ShowsCarCardWithRentButton(t *testing.T) {
	api := &fakeAPI{}
	cars := fakeCars{3: {ID: 3, Name: "Chevrolet Malibu", Price: 450000, MainImage: "https://cdn.example.com/malibu.jpg"}}
	b := newTestBot(api, &fakeWizard{}, cars)

	b.HandleUpdate(context.Background(), textUpdate(7, "/start car_3"))

	require.Len(t, api.photos, 1)
	photo := api.photos[0]
	assert.Equal(t, int64(7), photo.ChatID)
	assert.Contains(t, photo.Caption, "Chevrolet Malibu")
	markup, ok := photo.ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "rent_3", markup.InlineKeyboard[0][0].CallbackData)
}

func TestStart_UnknownCar(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, &fakeWizard{}, fakeCars{})

	b.HandleUpdate(context.Background(), textUpdate(7, "/start car_99"))

	require.Len(t, api.messages, 1)
	assert.Equal(t, carNotFoundText, api.messages[0].Text)
	assert.Empty(t, api.photos)
}

func TestStart_WithoutArgumentGreets(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, &fakeWizard{}, fakeCars{})

	b.HandleUpdate(context.Background(), textUpdate(7, "/start"))

	require.Len(t, api.messages, 1)
	assert.Equal(t, welcomeText, api.messages[0].Text)
}

func TestCancelCommand(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{replies: []wizard.Reply{{Text: "Rental cancelled."}}}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), textUpdate(7, "/cancel"))

	assert.Equal(t, []string{"7"}, w.cancelled)
	require.Len(t, api.messages, 1)
	assert.Equal(t, "Rental cancelled.", api.messages[0].Text)
}

func TestTextGoesToWizardWithButtons(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{replies: []wizard.Reply{{
		Text:    "Choose the pick-up location:",
		Buttons: [][]wizard.Button{{{Text: "Tashkent", Data: "loc_tashkent"}}},
	}}}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), textUpdate(7, "  Alisher  "))

	require.Len(t, w.events, 1)
	assert.Equal(t, wizard.Event{Key: "7", ChatID: 7, Kind: wizard.EventText, Data: "Alisher"}, w.events[0])
	require.Len(t, api.messages, 1)
	markup, ok := api.messages[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "loc_tashkent", markup.InlineKeyboard[0][0].CallbackData)
}

func TestCallbacks(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), callbackUpdate(7, "rent_3"))
	b.HandleUpdate(context.Background(), callbackUpdate(7, "date_2025-09-08"))

	assert.Len(t, api.callbacks, 2)
	assert.Equal(t, []int64{3}, w.started)
	require.Len(t, w.events, 1)
	assert.Equal(t, wizard.EventCallback, w.events[0].Kind)
	assert.Equal(t, "date_2025-09-08", w.events[0].Data)
}

func TestWizardErrorWithoutRepliesSendsGenericText(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{err: errors.New("redis unavailable")}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), textUpdate(7, "Alisher"))

	require.Len(t, api.messages, 1)
	assert.Equal(t, errorText, api.messages[0].Text)
}

func TestInvoiceReply(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{replies: []wizard.Reply{
		{Text: "Please pay the invoice below."},
		{Invoice: &wizard.Invoice{Title: "Chevrolet Malibu", Label: "Rent", Payload: "ref-1", Currency: "UZS", Amount: 45000000}},
	}}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), callbackUpdate(7, "payment_card"))

	require.Len(t, api.messages, 1)
	require.Len(t, api.invoices, 1)
	inv := api.invoices[0]
	assert.Equal(t, "ref-1", inv.Payload)
	assert.Equal(t, "provider", inv.ProviderToken)
	assert.Equal(t, []models.LabeledPrice{{Label: "Rent", Amount: 45000000}}, inv.Prices)
}

func TestPreCheckout(t *testing.T) {
	tests := []struct {
		name   string
		ok     bool
		err    error
		wantOK bool
	}{
		{name: "pending reference", ok: true, wantOK: true},
		{name: "unknown reference", ok: false, wantOK: false},
		{name: "store error", ok: false, err: errors.New("timeout"), wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{}
			b := newTestBot(api, &fakeWizard{referenceOK: tt.ok, referenceErr: tt.err}, fakeCars{})

			b.HandleUpdate(context.Background(), &models.Update{PreCheckoutQuery: &models.PreCheckoutQuery{
				ID:             "pc-1",
				Currency:       "UZS",
				TotalAmount:    45000000,
				InvoicePayload: "ref-1",
			}})

			require.Len(t, api.preCheckout, 1)
			assert.Equal(t, tt.wantOK, api.preCheckout[0].OK)
			if !tt.wantOK {
				assert.NotEmpty(t, api.preCheckout[0].ErrorMessage)
			}
		})
	}
}

func TestSuccessfulPaymentConfirms(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{replies: []wizard.Reply{{Text: "Payment received."}}}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), &models.Update{Message: &models.Message{
		From: &models.User{ID: 7},
		Chat: models.Chat{ID: 7},
		SuccessfulPayment: &models.SuccessfulPayment{
			Currency:                "UZS",
			TotalAmount:             45000000,
			InvoicePayload:          "ref-1",
			TelegramPaymentChargeID: "tg-1",
			ProviderPaymentChargeID: "pr-1",
		},
	}})

	require.Len(t, w.confirmed, 1)
	assert.Equal(t, wizard.Confirmation{
		Reference:        "ref-1",
		Amount:           45000000,
		Currency:         "UZS",
		TelegramChargeID: "tg-1",
		ProviderChargeID: "pr-1",
	}, w.confirmed[0])
	assert.Empty(t, w.events)
	require.Len(t, api.messages, 1)
}

func TestUncorrelatedPaymentKeepsWizardReply(t *testing.T) {
	api := &fakeAPI{}
	w := &fakeWizard{
		replies: []wizard.Reply{{Text: "We could not match this payment."}},
		err:     wizard.ErrUnknownReference,
	}
	b := newTestBot(api, w, fakeCars{})

	b.HandleUpdate(context.Background(), &models.Update{Message: &models.Message{
		From:              &models.User{ID: 7},
		Chat:              models.Chat{ID: 7},
		SuccessfulPayment: &models.SuccessfulPayment{InvoicePayload: "stale"},
	}})

	require.Len(t, api.messages, 1)
	assert.Equal(t, "We could not match this payment.", api.messages[0].Text)
}

func TestChannel(t *testing.T) {
	api := &fakeAPI{}
	b := newTestBot(api, &fakeWizard{}, fakeCars{})

	postID, err := b.PublishCar(context.Background(), model.Car{ID: 5, Name: "Kia <K5>", Price: 500000})
	require.NoError(t, err)
	assert.Equal(t, int64(1), postID)
	require.Len(t, api.messages, 1)
	assert.Equal(t, "@cars", api.messages[0].ChatID)
	assert.Contains(t, api.messages[0].Text, "Kia &lt;K5&gt;")
	markup, ok := api.messages[0].ReplyMarkup.(*models.InlineKeyboardMarkup)
	require.True(t, ok)
	assert.Equal(t, "https://t.me/rent_bot?start=car_5", markup.InlineKeyboard[0][0].URL)

	require.NoError(t, b.EditCar(context.Background(), 1, model.Car{ID: 5, Name: "Kia K5"}))
	require.NoError(t, b.EditCar(context.Background(), 2, model.Car{ID: 6, Name: "BYD Song", MainImage: "https://cdn.example.com/song.jpg"}))
	require.Len(t, api.textEdits, 1)
	require.Len(t, api.captions, 1)
	assert.Equal(t, 2, api.captions[0].MessageID)

	api.err = errors.New("chat not found")
	_, err = b.PublishCar(context.Background(), model.Car{ID: 7})
	assert.Error(t, err)
	assert.Error(t, b.SendMessage(context.Background(), 10, "hello"))
}

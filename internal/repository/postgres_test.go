package repository

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/car-rental/internal/model"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "no rows", err: pgx.ErrNoRows, want: ErrNotFound},
		{name: "unique", err: &pgconn.PgError{Code: pgerrcode.UniqueViolation}, want: ErrConflict},
		{
			name: "dangling reference",
			err:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Message: `insert or update on table "cars" violates foreign key constraint`},
			want: ErrNotFound,
		},
		{
			name: "referenced row",
			err:  &pgconn.PgError{Code: pgerrcode.ForeignKeyViolation, Message: `update or delete on table "categories" violates foreign key constraint`},
			want: ErrInUse,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, mapError(fmt.Errorf("wrapped: %w", tt.err), "op"), tt.want)
		})
	}

	assert.NoError(t, mapError(nil, "op"))

	other := errors.New("boom")
	assert.ErrorIs(t, mapError(other, "op"), other)
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, isRetryable(&pgconn.PgError{Code: pgerrcode.SerializationFailure}))
	assert.True(t, isRetryable(&pgconn.PgError{Code: pgerrcode.DeadlockDetected}))
	assert.False(t, isRetryable(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.True(t, isRetryable(errors.New("dial tcp: connection refused")))
	assert.False(t, isRetryable(errors.New("syntax error")))
}

func TestWithRetry_StopsOnPermanentError(t *testing.T) {
	r := &PostgresRepository{}
	calls := 0
	err := r.withRetry(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_HonoursCancelledContext(t *testing.T) {
	r := &PostgresRepository{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := 0
	err := r.withRetry(ctx, func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.SerializationFailure}
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, calls)
}

func TestClockConversion(t *testing.T) {
	c := model.NewClock(19, 45)
	assert.Equal(t, c, clockFromPG(clockToPG(c)))
	assert.Equal(t, int64(71100000000), clockToPG(c).Microseconds)
}

func TestLikeEscape(t *testing.T) {
	assert.Equal(t, `100\%\_off\\`, likeEscape(`100%_off\`))
	assert.Equal(t, "Chevrolet", likeEscape("Chevrolet"))
}

// openTestRepository подключается к базе из TEST_DATABASE_URI или пропускает тест.
func openTestRepository(t *testing.T) *PostgresRepository {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URI")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URI is not set")
	}

	r, err := NewPostgresRepository(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = r.Close() })
	return r
}

func seedCar(t *testing.T, r *PostgresRepository, name string) *model.Car {
	t.Helper()
	ctx := context.Background()

	cat := &model.Category{Name: fmt.Sprintf("%s-%s", t.Name(), name)}
	require.NoError(t, r.CreateCategory(ctx, cat))

	car := &model.Car{
		Name:       name,
		CategoryID: cat.ID,
		Capacity:   model.CapacityFour,
		Steering:   model.SteeringPower,
		Gasoline:   "AI-92",
		Price:      450000,
		MainImage:  "main.jpg",
		Images:     []model.CarImage{{Image: "side.jpg"}, {Image: "back.jpg"}},
	}
	require.NoError(t, r.CreateCar(ctx, car))
	t.Cleanup(func() {
		_ = r.DeleteCar(context.Background(), car.ID)
		_ = r.DeleteCategory(context.Background(), cat.ID)
	})
	return car
}

func TestPostgres_CarRoundTrip(t *testing.T) {
	r := openTestRepository(t)
	ctx := context.Background()

	car := seedCar(t, r, "Chevrolet Malibu")

	got, err := r.GetCar(ctx, car.ID)
	require.NoError(t, err)
	assert.Equal(t, "main.jpg", got.MainImage)
	require.Len(t, got.Images, 2)
	assert.Equal(t, "side.jpg", got.Images[0].Image)
	assert.Nil(t, got.TelegramMessageID)

	require.NoError(t, r.SetCarPostID(ctx, car.ID, 555))
	got, err = r.GetCar(ctx, car.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TelegramMessageID)
	assert.Equal(t, int64(555), *got.TelegramMessageID)

	_, err = r.GetCar(ctx, -1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_BotRentalIsAtomic(t *testing.T) {
	r := openTestRepository(t)
	ctx := context.Background()

	car := seedCar(t, r, "Chevrolet Cobalt")

	rental := &model.BotRental{
		ChatID:         100,
		TelegramUserID: 100,
		Billing:        model.BillingInfo{FullName: "Ali Valiyev", Phone: "998901234567"},
		Rental: model.RentalInfo{
			CarID:           car.ID,
			PickupLocation:  model.LocationTashkentAirport,
			PickupDate:      model.NewDate(2025, 9, 8),
			PickupTime:      model.NewClock(10, 0),
			DropoffLocation: model.LocationBukharaDowntown,
			DropoffDate:     model.NewDate(2025, 9, 10),
			DropoffTime:     model.NewClock(18, 30),
		},
		PaymentMethod: model.PaymentCash,
		Amount:        45000000,
		Currency:      "UZS",
	}
	require.NoError(t, r.CreateBotRental(ctx, rental))
	assert.NotZero(t, rental.ID)
	assert.NotZero(t, rental.Billing.ID)
	assert.NotZero(t, rental.Rental.ID)

	stored, err := r.ListBotRentalsByChat(ctx, 100)
	require.NoError(t, err)
	require.NotEmpty(t, stored)
	assert.Equal(t, model.NewClock(18, 30), stored[0].Rental.DropoffTime)

	// Ссылка на несуществующий автомобиль откатывает всю транзакцию.
	broken := *rental
	broken.Rental.CarID = -1
	err = r.CreateBotRental(ctx, &broken)
	assert.ErrorIs(t, err, ErrNotFound)

	after, err := r.ListBotRentalsByChat(ctx, 100)
	require.NoError(t, err)
	assert.Len(t, after, len(stored))

	other := seedCar(t, r, "chevrolet Tracker")
	chats, err := r.ListInterestedChats(ctx, other.ID, other.Name)
	require.NoError(t, err)
	assert.Contains(t, chats, int64(100))
}

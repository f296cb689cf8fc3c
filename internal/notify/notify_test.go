package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mmeshcher/car-rental/internal/metrics"
	"github.com/mmeshcher/car-rental/internal/model"
)

type mockChannel struct {
	mock.Mock
}

func (m *mockChannel) PublishCar(ctx context.Context, car model.Car) (int64, error) {
	args := m.Called(ctx, car)
	return args.Get(0).(int64), args.Error(1)
}

func (m *mockChannel) EditCar(ctx context.Context, postID int64, car model.Car) error {
	return m.Called(ctx, postID, car).Error(0)
}

func (m *mockChannel) SendMessage(ctx context.Context, chatID int64, text string) error {
	return m.Called(ctx, chatID, text).Error(0)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) SetCarPostID(ctx context.Context, carID, postID int64) error {
	return m.Called(ctx, carID, postID).Error(0)
}

func (m *mockStore) ListInterestedChats(ctx context.Context, carID int64, carName string) ([]int64, error) {
	args := m.Called(ctx, carID, carName)
	chats, _ := args.Get(0).([]int64)
	return chats, args.Error(1)
}

func newNotifier(ch Channel, st Store) *CarNotifier {
	return NewCarNotifier(ch, st, zap.NewNop(), metrics.Registry("carrental_test"), func(id int64) string {
		return "https://t.me/rent_bot?start=car_1"
	})
}

func TestCarSaved_CreatedPublishesAndNotifies(t *testing.T) {
	ch := &mockChannel{}
	st := &mockStore{}
	car := model.Car{ID: 1, Name: "Chevrolet Malibu", Price: 450000}

	ch.On("PublishCar", mock.Anything, car).Return(int64(77), nil)
	st.On("SetCarPostID", mock.Anything, int64(1), int64(77)).Return(nil)
	st.On("ListInterestedChats", mock.Anything, int64(1), "Chevrolet Malibu").Return([]int64{10, 20}, nil)
	ch.On("SendMessage", mock.Anything, int64(10), mock.AnythingOfType("string")).Return(errors.New("blocked by user"))
	ch.On("SendMessage", mock.Anything, int64(20), mock.AnythingOfType("string")).Return(nil)

	newNotifier(ch, st).CarSaved(context.Background(), car, true)

	ch.AssertExpectations(t)
	st.AssertExpectations(t)
	ch.AssertNotCalled(t, "EditCar", mock.Anything, mock.Anything, mock.Anything)
}

func TestCarSaved_PublishFailureSkipsPostID(t *testing.T) {
	ch := &mockChannel{}
	st := &mockStore{}
	car := model.Car{ID: 2, Name: "Kia K5"}

	ch.On("PublishCar", mock.Anything, car).Return(int64(0), errors.New("channel unavailable"))
	st.On("ListInterestedChats", mock.Anything, int64(2), "Kia K5").Return(nil, nil)

	newNotifier(ch, st).CarSaved(context.Background(), car, true)

	st.AssertNotCalled(t, "SetCarPostID", mock.Anything, mock.Anything, mock.Anything)
}

func TestCarSaved_UpdateEditsExistingPost(t *testing.T) {
	ch := &mockChannel{}
	st := &mockStore{}
	postID := int64(55)
	car := model.Car{ID: 3, Name: "BYD Song", TelegramMessageID: &postID}

	ch.On("EditCar", mock.Anything, int64(55), car).Return(nil)

	newNotifier(ch, st).CarSaved(context.Background(), car, false)

	ch.AssertExpectations(t)
	ch.AssertNotCalled(t, "PublishCar", mock.Anything, mock.Anything)
	st.AssertNotCalled(t, "ListInterestedChats", mock.Anything, mock.Anything, mock.Anything)
}

func TestCarSaved_UpdateWithoutPostDoesNothing(t *testing.T) {
	ch := &mockChannel{}
	st := &mockStore{}

	newNotifier(ch, st).CarSaved(context.Background(), model.Car{ID: 4}, false)

	assert.Empty(t, ch.Calls)
	assert.Empty(t, st.Calls)
}

func TestDispatcher_RunsDetachedFromRequest(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []int64
	)
	d := NewDispatcher(func(ctx context.Context, car model.Car, created bool) {
		require.NoError(t, ctx.Err())
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline)
		mu.Lock()
		seen = append(seen, car.ID)
		mu.Unlock()
	}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	d.CarSaved(ctx, model.Car{ID: 1}, true)
	cancel()
	d.CarSaved(ctx, model.Car{ID: 2}, false)
	d.Wait()

	assert.ElementsMatch(t, []int64{1, 2}, seen)
}

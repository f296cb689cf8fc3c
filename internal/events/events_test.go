package events

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/car-rental/internal/model"
)

func TestDecode(t *testing.T) {
	postID := int64(9)
	valid, err := json.Marshal(CarSaved{
		Type:    CarSavedType,
		Car:     model.Car{ID: 3, Name: "Chevrolet Malibu", TelegramMessageID: &postID},
		Created: false,
		SavedAt: time.Date(2025, 9, 8, 9, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		data    []byte
		wantErr bool
	}{
		{name: "valid", data: valid},
		{name: "not json", data: []byte("car"), wantErr: true},
		{name: "other type", data: []byte(`{"type":"booking.created","car":{"id":3}}`), wantErr: true},
		{name: "no car id", data: []byte(`{"type":"car.saved","car":{}}`), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode(tt.data)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, int64(3), ev.Car.ID)
			require.NotNil(t, ev.Car.TelegramMessageID)
			assert.Equal(t, int64(9), *ev.Car.TelegramMessageID)
			assert.False(t, ev.Created)
		})
	}
}

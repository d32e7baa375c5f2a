package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hardqode/losb-back/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct{}

var errStoreDown = errors.New("store down")

func (f *failingStore) Put(ctx context.Context, pv *models.PendingVerification) error {
	return errStoreDown
}

func (f *failingStore) Consume(ctx context.Context, telegramID int64, otp string, phone models.Phone) (*models.PendingVerification, error) {
	return nil, errStoreDown
}

func (f *failingStore) Clear(ctx context.Context, telegramID int64) error {
	return errStoreDown
}

func TestFailoverFallsBackToMemory(t *testing.T) {
	logger := zerolog.Nop()
	fallback := NewMemoryVerificationStore(time.Hour)
	store := NewFailoverVerificationStore(&failingStore{}, fallback, &logger)

	ctx := context.Background()
	phone := models.Phone{Code: 7, Number: 9991234567}

	pv := &models.PendingVerification{TelegramID: 1, OTP: "1234", Phone: phone}
	require.NoError(t, store.Put(ctx, pv))

	got, err := store.Consume(ctx, 1, "1234", phone)
	require.NoError(t, err)
	assert.Equal(t, "1234", got.OTP)
}

func TestFailoverKeepsBusinessErrors(t *testing.T) {
	logger := zerolog.Nop()
	primary := NewMemoryVerificationStore(time.Hour)
	fallback := NewMemoryVerificationStore(time.Hour)
	store := NewFailoverVerificationStore(primary, fallback, &logger)

	ctx := context.Background()
	phone := models.Phone{Code: 7, Number: 9991234567}

	require.NoError(t, store.Put(ctx, &models.PendingVerification{TelegramID: 2, OTP: "5678", Phone: phone}))

	// Бизнес-ошибка основного хранилища не должна уводить на резервное:
	// иначе заявка "потерялась" бы при неверном коде
	_, err := store.Consume(ctx, 2, "0000", phone)
	assert.ErrorIs(t, err, ErrCodeMismatch)

	got, err := store.Consume(ctx, 2, "5678", phone)
	require.NoError(t, err)
	assert.Equal(t, "5678", got.OTP)
}

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/hardqode/losb-back/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedisStore(t *testing.T, ttl time.Duration) (*RedisVerificationStore, *miniredis.Miniredis) {
	t.Helper()
	s, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(s.Close)

	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewRedisVerificationStore(client, ttl), s
}

func TestRedisVerificationStore(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	phone := models.Phone{Code: 7, Number: 9991234567}

	t.Run("PutAndConsume", func(t *testing.T) {
		pv := &models.PendingVerification{
			TelegramID: 123,
			OTP:        "4567",
			Phone:      phone,
			IssuedAt:   time.Now().UTC(),
		}
		require.NoError(t, store.Put(ctx, pv))

		got, err := store.Consume(ctx, 123, "4567", phone)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, pv.OTP, got.OTP)
		assert.Equal(t, pv.Phone, got.Phone)

		// Код одноразовый: повторное подтверждение не проходит
		_, err = store.Consume(ctx, 123, "4567", phone)
		assert.ErrorIs(t, err, ErrNoPending)
	})

	t.Run("ConsumeAbsent", func(t *testing.T) {
		_, err := store.Consume(ctx, 999, "1111", phone)
		assert.ErrorIs(t, err, ErrNoPending)
	})

	t.Run("ConsumeWrongOTP", func(t *testing.T) {
		pv := &models.PendingVerification{TelegramID: 5, OTP: "8821", Phone: phone}
		require.NoError(t, store.Put(ctx, pv))

		_, err := store.Consume(ctx, 5, "1234", phone)
		assert.ErrorIs(t, err, ErrCodeMismatch)

		// Неудачная попытка не сжигает заявку
		got, err := store.Consume(ctx, 5, "8821", phone)
		require.NoError(t, err)
		assert.Equal(t, "8821", got.OTP)
	})

	t.Run("ConsumeWrongPhone", func(t *testing.T) {
		pv := &models.PendingVerification{TelegramID: 6, OTP: "3333", Phone: phone}
		require.NoError(t, store.Put(ctx, pv))

		// Верный код против другого номера не проходит
		_, err := store.Consume(ctx, 6, "3333", models.Phone{Code: 7, Number: 1112223344})
		assert.ErrorIs(t, err, ErrCodeMismatch)
	})

	t.Run("PutSupersedes", func(t *testing.T) {
		first := &models.PendingVerification{TelegramID: 7, OTP: "1111", Phone: phone}
		second := &models.PendingVerification{TelegramID: 7, OTP: "2222", Phone: phone}
		require.NoError(t, store.Put(ctx, first))
		require.NoError(t, store.Put(ctx, second))

		// Первый код вытеснен вторым
		_, err := store.Consume(ctx, 7, "1111", phone)
		assert.ErrorIs(t, err, ErrCodeMismatch)

		got, err := store.Consume(ctx, 7, "2222", phone)
		require.NoError(t, err)
		assert.Equal(t, "2222", got.OTP)
	})

	t.Run("Clear", func(t *testing.T) {
		pv := &models.PendingVerification{TelegramID: 8, OTP: "7777", Phone: phone}
		require.NoError(t, store.Put(ctx, pv))
		require.NoError(t, store.Clear(ctx, 8))

		_, err := store.Consume(ctx, 8, "7777", phone)
		assert.ErrorIs(t, err, ErrNoPending)
	})
}

func TestRedisVerificationStoreLongNumber(t *testing.T) {
	store, _ := newTestRedisStore(t, time.Hour)
	ctx := context.Background()

	// 15 цифр, верхняя граница E.164: сравнение в Lua не должно терять
	// точность
	phone := models.Phone{Code: 999, Number: 999_999_999_999_999}
	pv := &models.PendingVerification{TelegramID: 77, OTP: "6162", Phone: phone}
	require.NoError(t, store.Put(ctx, pv))

	got, err := store.Consume(ctx, 77, "6162", phone)
	require.NoError(t, err)
	assert.Equal(t, phone, got.Phone)
}

func TestRedisVerificationStoreTTL(t *testing.T) {
	store, s := newTestRedisStore(t, time.Minute)
	ctx := context.Background()

	phone := models.Phone{Code: 7, Number: 9991234567}
	pv := &models.PendingVerification{TelegramID: 42, OTP: "5544", Phone: phone}
	require.NoError(t, store.Put(ctx, pv))

	// Проматываем время за пределы TTL
	s.FastForward(2 * time.Minute)

	_, err := store.Consume(ctx, 42, "5544", phone)
	assert.ErrorIs(t, err, ErrNoPending)
}

package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/database"
	"github.com/hardqode/losb-back/internal/events"
	"github.com/hardqode/losb-back/internal/models"
	"github.com/hardqode/losb-back/internal/repository"
	"github.com/hardqode/losb-back/internal/sms"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSMSSender записывает отправленные сообщения и по желанию
// имитирует отказ шлюза.
type fakeSMSSender struct {
	sent []string
	fail bool
}

func (f *fakeSMSSender) Send(_ context.Context, phone, text string) error {
	if f.fail {
		return &sms.DeliveryError{Cause: "gateway rejected message"}
	}
	f.sent = append(f.sent, phone+": "+text)
	return nil
}

func setupVerification(t *testing.T) (*VerificationService, *database.DB, *fakeSMSSender) {
	t.Helper()

	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sender := &fakeSMSSender{}
	store := repository.NewMemoryVerificationStore(5 * time.Minute)
	cfg := config.VerificationConfig{CodeDigits: 4, TTLSeconds: 300}

	svc := NewVerificationService(db, store, sender, events.NewEventBus(), cfg, &logger)
	return svc, db, sender
}

func createTestUser(t *testing.T, db *database.DB, telegramID int64) {
	t.Helper()
	require.NoError(t, db.CreateOrUpdateUser(context.Background(), &models.User{
		TelegramID: telegramID,
		Name:       "Иван",
		Nickname:   "ivan",
	}))
}

func TestRequestAndVerify(t *testing.T) {
	svc, db, sender := setupVerification(t)
	ctx := context.Background()
	createTestUser(t, db, 100)

	phone := models.Phone{Code: 7, Number: 9161234567}
	code, err := svc.RequestVerification(ctx, 100, phone)
	require.NoError(t, err)
	assert.Len(t, code, 4)
	assert.Len(t, sender.sent, 1)
	assert.Contains(t, sender.sent[0], "+79161234567")
	assert.Contains(t, sender.sent[0], code)

	user, err := svc.VerifyCode(ctx, 100, code, phone)
	require.NoError(t, err)
	require.NotNil(t, user.Phone)
	assert.Equal(t, 7, user.Phone.Code)
	assert.Equal(t, int64(9161234567), user.Phone.Number)
}

func TestVerifyCodeSingleUse(t *testing.T) {
	svc, db, _ := setupVerification(t)
	ctx := context.Background()
	createTestUser(t, db, 101)

	phone := models.Phone{Code: 7, Number: 9160000001}
	code, err := svc.RequestVerification(ctx, 101, phone)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, 101, code, phone)
	require.NoError(t, err)

	// Повторное использование того же кода отклоняется
	_, err = svc.VerifyCode(ctx, 101, code, phone)
	assert.ErrorIs(t, err, ErrNoPendingVerification)
}

func TestRequestSupersedesPrevious(t *testing.T) {
	svc, db, _ := setupVerification(t)
	ctx := context.Background()
	createTestUser(t, db, 102)

	phone := models.Phone{Code: 7, Number: 9160000002}
	first, err := svc.RequestVerification(ctx, 102, phone)
	require.NoError(t, err)

	second, err := svc.RequestVerification(ctx, 102, phone)
	require.NoError(t, err)

	if first != second {
		// Старый код больше не действует
		_, err = svc.VerifyCode(ctx, 102, first, phone)
		assert.ErrorIs(t, err, ErrCodeMismatch)
	}

	_, err = svc.VerifyCode(ctx, 102, second, phone)
	assert.NoError(t, err)
}

func TestVerifyWrongCode(t *testing.T) {
	svc, db, _ := setupVerification(t)
	ctx := context.Background()
	createTestUser(t, db, 103)

	phone := models.Phone{Code: 7, Number: 9160000003}
	code, err := svc.RequestVerification(ctx, 103, phone)
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, 103, "0000", phone)
	assert.ErrorIs(t, err, ErrCodeMismatch)

	// Неверная попытка не сжигает заявку
	user, err := svc.VerifyCode(ctx, 103, code, phone)
	require.NoError(t, err)
	assert.NotNil(t, user.Phone)
}

func TestVerifyWrongPhone(t *testing.T) {
	svc, db, _ := setupVerification(t)
	ctx := context.Background()
	createTestUser(t, db, 104)

	code, err := svc.RequestVerification(ctx, 104, models.Phone{Code: 7, Number: 9160000004})
	require.NoError(t, err)

	_, err = svc.VerifyCode(ctx, 104, code, models.Phone{Code: 7, Number: 9169999999})
	assert.ErrorIs(t, err, ErrCodeMismatch)
}

func TestVerifyWithoutRequest(t *testing.T) {
	svc, db, _ := setupVerification(t)
	createTestUser(t, db, 105)

	_, err := svc.VerifyCode(context.Background(), 105, "1234", models.Phone{Code: 7, Number: 9160000005})
	assert.ErrorIs(t, err, ErrNoPendingVerification)
}

func TestRequestDeliveryFailure(t *testing.T) {
	svc, db, sender := setupVerification(t)
	ctx := context.Background()
	createTestUser(t, db, 106)
	sender.fail = true

	phone := models.Phone{Code: 7, Number: 9160000006}
	_, err := svc.RequestVerification(ctx, 106, phone)
	require.Error(t, err)

	var deliveryErr *sms.DeliveryError
	assert.True(t, errors.As(err, &deliveryErr))

	// Недоставленная заявка не сохраняется: подтверждать нечего
	_, err = svc.VerifyCode(ctx, 106, "1234", phone)
	assert.ErrorIs(t, err, ErrNoPendingVerification)
}

func TestRequestInvalidPhone(t *testing.T) {
	svc, _, _ := setupVerification(t)
	ctx := context.Background()

	var validationErr *ValidationError

	_, err := svc.RequestVerification(ctx, 107, models.Phone{Code: 0, Number: 9160000007})
	require.Error(t, err)
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "code", validationErr.Field)

	_, err = svc.RequestVerification(ctx, 107, models.Phone{Code: 7, Number: 0})
	require.Error(t, err)
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "number", validationErr.Field)

	// Длиннее 15 цифр номер не бывает, и такой номер не переживет
	// сравнение в consume-скрипте
	_, err = svc.RequestVerification(ctx, 107, models.Phone{Code: 7, Number: 1_000_000_000_000_000})
	require.Error(t, err)
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "number", validationErr.Field)

	_, err = svc.VerifyCode(ctx, 107, "1234", models.Phone{Code: 7, Number: 1_000_000_000_000_000})
	require.Error(t, err)
	assert.True(t, errors.As(err, &validationErr))
	assert.Equal(t, "number", validationErr.Field)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/events"
	"github.com/hardqode/losb-back/internal/metrics"
	"github.com/hardqode/losb-back/internal/models"
	"github.com/hardqode/losb-back/internal/otp"
	"github.com/hardqode/losb-back/internal/repository"

	"github.com/rs/zerolog"
)

// VerificationService владеет процедурой смены номера: выдача кода,
// доставка по SMS и подтверждение с фиксацией телефона.
type VerificationService struct {
	repo   domain.Repository
	store  domain.VerificationStore
	sender domain.SMSSender
	events domain.EventPublisher
	cfg    config.VerificationConfig
	logger *zerolog.Logger
}

func NewVerificationService(
	repo domain.Repository,
	store domain.VerificationStore,
	sender domain.SMSSender,
	eventBus domain.EventPublisher,
	cfg config.VerificationConfig,
	logger *zerolog.Logger,
) *VerificationService {
	return &VerificationService{
		repo:   repo,
		store:  store,
		sender: sender,
		events: eventBus,
		cfg:    cfg,
		logger: logger,
	}
}

// maxPhoneNumber ограничивает номер 15 цифрами (E.164). Заодно номер
// гарантированно переживает cjson-декодирование в Lua double при
// атомарном consume в Redis.
const maxPhoneNumber = 999_999_999_999_999

func validatePhone(phone models.Phone) error {
	if phone.Code < 1 || phone.Code > 999 {
		return &ValidationError{Field: "code", Message: "country code must be between 1 and 999"}
	}
	if phone.Number < 1 {
		return &ValidationError{Field: "number", Message: "number must be positive"}
	}
	if phone.Number > maxPhoneNumber {
		return &ValidationError{Field: "number", Message: "number must not exceed 15 digits"}
	}
	return nil
}

// RequestVerification выдает код на кандидатный номер. Заявка фиксируется
// только после того, как шлюз принял SMS: недоставленный код не должен
// проходить подтверждение. Новая заявка вытесняет предыдущую.
func (s *VerificationService) RequestVerification(ctx context.Context, telegramID int64, phone models.Phone) (string, error) {
	if err := validatePhone(phone); err != nil {
		return "", err
	}

	code, err := otp.Generate(s.cfg.CodeDigits)
	if err != nil {
		return "", fmt.Errorf("failed to generate otp: %w", err)
	}

	destination := fmt.Sprintf("+%d%d", phone.Code, phone.Number)
	text := fmt.Sprintf("Ваш код подтверждения: %s", code)

	if err := s.sender.Send(ctx, destination, text); err != nil {
		metrics.IncSMS("error")
		s.logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("SMS delivery failed")
		return "", err
	}
	metrics.IncSMS("ok")

	pv := &models.PendingVerification{
		TelegramID: telegramID,
		OTP:        code,
		Phone:      phone,
		IssuedAt:   time.Now().UTC(),
	}
	if err := s.store.Put(ctx, pv); err != nil {
		return "", fmt.Errorf("failed to store pending verification: %w", err)
	}

	s.logger.Info().Int64("telegram_id", telegramID).Msg("verification code issued")
	return code, nil
}

// VerifyCode подтверждает код и привязывает номер к пользователю. Код
// одноразовый: заявка атомарно изымается из хранилища, повторная попытка
// вернет ErrNoPendingVerification.
func (s *VerificationService) VerifyCode(ctx context.Context, telegramID int64, submittedOTP string, phone models.Phone) (*models.User, error) {
	if err := validatePhone(phone); err != nil {
		return nil, err
	}

	_, err := s.store.Consume(ctx, telegramID, submittedOTP, phone)
	if errors.Is(err, repository.ErrNoPending) {
		metrics.IncVerification("no_pending")
		return nil, ErrNoPendingVerification
	}
	if errors.Is(err, repository.ErrCodeMismatch) {
		metrics.IncVerification("mismatch")
		return nil, ErrCodeMismatch
	}
	if err != nil {
		return nil, fmt.Errorf("failed to consume pending verification: %w", err)
	}

	if err := s.repo.SetUserPhone(ctx, telegramID, phone); err != nil {
		return nil, fmt.Errorf("failed to persist verified phone: %w", err)
	}

	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if err != nil {
		return nil, err
	}

	metrics.IncVerification("success")
	_ = s.events.PublishJSON(events.EventPhoneVerified, events.PhoneVerifiedPayload{
		TelegramID: telegramID,
		PhoneCode:  phone.Code,
		Phone:      phone.Number,
		VerifiedAt: time.Now().UTC(),
	})
	s.logger.Info().Int64("telegram_id", telegramID).Msg("phone verified")

	return user, nil
}

// ExposeOTP сообщает, включен ли отладочный возврат кода в ответе API.
func (s *VerificationService) ExposeOTP() bool {
	return s.cfg.DebugExposeOTP
}

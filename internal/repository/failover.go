package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/models"

	"github.com/rs/zerolog"
)

// FailoverVerificationStore переключается на резервное хранилище, когда
// основное недоступно, и периодически пробует вернуться на основное.
type FailoverVerificationStore struct {
	primary   domain.VerificationStore
	fallback  domain.VerificationStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverVerificationStore(primary, fallback domain.VerificationStore, logger *zerolog.Logger) *FailoverVerificationStore {
	return &FailoverVerificationStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

// isBusinessErr отличает ошибки протокола верификации от ошибок хранилища.
func isBusinessErr(err error) bool {
	return errors.Is(err, ErrNoPending) || errors.Is(err, ErrCodeMismatch)
}

func (r *FailoverVerificationStore) markDown(err error) {
	r.logger.Error().Err(err).Msg("Primary verification store failed, falling back to memory")
	r.isDown.Store(true)
	r.lastCheck.Store(time.Now().UnixNano())
}

func (r *FailoverVerificationStore) shouldRetryPrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	// Пробуем восстановиться раз в минуту
	last := time.Unix(0, r.lastCheck.Load())
	if time.Since(last) > time.Minute {
		r.lastCheck.Store(time.Now().UnixNano())
		return true
	}
	return false
}

func (r *FailoverVerificationStore) Put(ctx context.Context, pv *models.PendingVerification) error {
	if r.shouldRetryPrimary() {
		err := r.primary.Put(ctx, pv)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Put(ctx, pv)
}

func (r *FailoverVerificationStore) Consume(ctx context.Context, telegramID int64, otp string, phone models.Phone) (*models.PendingVerification, error) {
	if r.shouldRetryPrimary() {
		pv, err := r.primary.Consume(ctx, telegramID, otp, phone)
		if err == nil || isBusinessErr(err) {
			r.isDown.Store(false)
			return pv, err
		}
		r.markDown(err)
	}
	return r.fallback.Consume(ctx, telegramID, otp, phone)
}

func (r *FailoverVerificationStore) Clear(ctx context.Context, telegramID int64) error {
	if r.shouldRetryPrimary() {
		err := r.primary.Clear(ctx, telegramID)
		if err == nil {
			r.isDown.Store(false)
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Clear(ctx, telegramID)
}

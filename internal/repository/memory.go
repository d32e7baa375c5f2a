package repository

import (
	"context"
	"sync"
	"time"

	"github.com/hardqode/losb-back/internal/models"
)

type memoryEntry struct {
	pv        *models.PendingVerification
	expiresAt time.Time
}

// MemoryVerificationStore хранит заявки в памяти процесса.
// Используется в тестах и как fallback при недоступном Redis.
type MemoryVerificationStore struct {
	mu      sync.Mutex
	entries map[int64]memoryEntry
	ttl     time.Duration
}

func NewMemoryVerificationStore(ttl time.Duration) *MemoryVerificationStore {
	return &MemoryVerificationStore{
		entries: make(map[int64]memoryEntry),
		ttl:     ttl,
	}
}

func (r *MemoryVerificationStore) Put(ctx context.Context, pv *models.PendingVerification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[pv.TelegramID] = memoryEntry{
		pv:        pv,
		expiresAt: time.Now().Add(r.ttl),
	}
	return nil
}

func (r *MemoryVerificationStore) Consume(ctx context.Context, telegramID int64, otp string, phone models.Phone) (*models.PendingVerification, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[telegramID]
	if !ok {
		return nil, ErrNoPending
	}
	if time.Now().After(entry.expiresAt) {
		delete(r.entries, telegramID)
		return nil, ErrNoPending
	}

	if entry.pv.OTP != otp || entry.pv.Phone != phone {
		return nil, ErrCodeMismatch
	}

	delete(r.entries, telegramID)
	return entry.pv, nil
}

func (r *MemoryVerificationStore) Clear(ctx context.Context, telegramID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, telegramID)
	return nil
}

package domain

import (
	"context"
	"time"

	"github.com/hardqode/losb-back/internal/models"
)

type Repository interface {
	CreateOrUpdateUser(ctx context.Context, user *models.User) error
	GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error)
	GetAllUsers(ctx context.Context) ([]*models.User, error)
	UpdateUserName(ctx context.Context, telegramID int64, name string) error
	UpdateUserCity(ctx context.Context, telegramID int64, cityID int64) error
	UpdateUserAvatar(ctx context.Context, telegramID int64, avatarURL string) error
	SetUserBirthday(ctx context.Context, telegramID int64, bday time.Time) error
	SetUserPhone(ctx context.Context, telegramID int64, phone models.Phone) error
	ListCities(ctx context.Context, nameFilter string, limit, offset int) ([]*models.City, int, error)
	GetCityByID(ctx context.Context, id int64) (*models.City, error)
	UpsertMessageLog(ctx context.Context, entry *models.MessageLog) error
	GetMessageLog(ctx context.Context, chatID int64) (*models.MessageLog, error)
}

// VerificationStore хранит ожидающие подтверждения телефона с TTL.
type VerificationStore interface {
	// Put записывает заявку, вытесняя предыдущую заявку пользователя.
	Put(ctx context.Context, pv *models.PendingVerification) error
	// Consume атомарно удаляет и возвращает заявку, если otp и номер
	// совпали. Одновременно выиграть может только один вызов.
	Consume(ctx context.Context, telegramID int64, otp string, phone models.Phone) (*models.PendingVerification, error)
	Clear(ctx context.Context, telegramID int64) error
}

type SMSSender interface {
	Send(ctx context.Context, phone string, text string) error
}

// AvatarResolver возвращает URL аватара пользователя в Telegram.
type AvatarResolver interface {
	AvatarURL(ctx context.Context, telegramID int64) (string, error)
}

type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// Package telegram оборачивает Bot API для получения аватара пользователя.
package telegram

import (
	"context"
	"fmt"

	"github.com/hardqode/losb-back/internal/config"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// PhotoAPI покрывает минимальную поверхность Bot API, нужную для аватаров.
type PhotoAPI interface {
	GetUserProfilePhotos(config tgbotapi.UserProfilePhotosConfig) (tgbotapi.UserProfilePhotos, error)
	GetFileDirectURL(fileID string) (string, error)
}

type AvatarClient struct {
	api    PhotoAPI
	logger *zerolog.Logger
}

// NewBot создает клиент Bot API по конфигурации.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot api client: %w", err)
	}
	bot.Debug = cfg.Debug
	return bot, nil
}

func NewAvatarClient(api PhotoAPI, logger *zerolog.Logger) *AvatarClient {
	return &AvatarClient{api: api, logger: logger}
}

// AvatarURL возвращает прямую ссылку на самое большое фото профиля.
// Пустая строка без ошибки значит, что у пользователя нет фото.
func (c *AvatarClient) AvatarURL(ctx context.Context, telegramID int64) (string, error) {
	photosConfig := tgbotapi.NewUserProfilePhotos(telegramID)
	photosConfig.Limit = 1

	photos, err := c.api.GetUserProfilePhotos(photosConfig)
	if err != nil {
		return "", fmt.Errorf("failed to get profile photos: %w", err)
	}

	if photos.TotalCount == 0 || len(photos.Photos) == 0 || len(photos.Photos[0]) == 0 {
		c.logger.Debug().Int64("telegram_id", telegramID).Msg("user has no profile photo")
		return "", nil
	}

	// Размеры отсортированы по возрастанию, берем последний
	sizes := photos.Photos[0]
	best := sizes[len(sizes)-1]

	url, err := c.api.GetFileDirectURL(best.FileID)
	if err != nil {
		return "", fmt.Errorf("failed to resolve photo file url: %w", err)
	}
	return url, nil
}

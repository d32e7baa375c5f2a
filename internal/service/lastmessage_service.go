package service

import (
	"context"
	"fmt"

	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/models"

	"github.com/rs/zerolog"
)

// LastMessage собирает последнее сообщение пользователя боту вместе с его аватаром
// из Telegram.
type LastMessage struct {
	Entry     *models.MessageLog
	AvatarURL string
}

type LastMessageService struct {
	repo    domain.Repository
	avatars domain.AvatarResolver
	logger  *zerolog.Logger
}

func NewLastMessageService(repo domain.Repository, avatars domain.AvatarResolver, logger *zerolog.Logger) *LastMessageService {
	return &LastMessageService{
		repo:    repo,
		avatars: avatars,
		logger:  logger,
	}
}

// Get возвращает последнее сообщение чата. Отсутствие записи не ошибка,
// Entry будет nil. Ошибка получения аватара поднимается наверх: клиент
// должен увидеть её, а не частичный ответ.
func (s *LastMessageService) Get(ctx context.Context, telegramID int64) (*LastMessage, error) {
	entry, err := s.repo.GetMessageLog(ctx, telegramID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message log: %w", err)
	}

	avatarURL, err := s.avatars.AvatarURL(ctx, telegramID)
	if err != nil {
		s.logger.Warn().Err(err).Int64("telegram_id", telegramID).Msg("failed to resolve avatar")
		return nil, fmt.Errorf("failed to resolve avatar: %w", err)
	}

	return &LastMessage{Entry: entry, AvatarURL: avatarURL}, nil
}

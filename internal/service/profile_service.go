package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/database"
	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/events"
	"github.com/hardqode/losb-back/internal/models"

	"github.com/rs/zerolog"
)

// ProfileService выполняет операции над профилем пользователя. Телефон намеренно
// отсутствует: он меняется только через VerificationService.
type ProfileService struct {
	repo   domain.Repository
	events domain.EventPublisher
	cfg    *config.Config
	logger *zerolog.Logger
}

func NewProfileService(repo domain.Repository, eventBus domain.EventPublisher, cfg *config.Config, logger *zerolog.Logger) *ProfileService {
	return &ProfileService{
		repo:   repo,
		events: eventBus,
		cfg:    cfg,
		logger: logger,
	}
}

func (s *ProfileService) GetProfile(ctx context.Context, telegramID int64) (*models.User, error) {
	user, err := s.repo.GetUserByTelegramID(ctx, telegramID)
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// EnsureUser создает профиль при первом обращении аутентифицированного
// пользователя.
func (s *ProfileService) EnsureUser(ctx context.Context, telegramID int64, name, nickname string) (*models.User, error) {
	if err := s.repo.CreateOrUpdateUser(ctx, &models.User{
		TelegramID: telegramID,
		Name:       name,
		Nickname:   nickname,
	}); err != nil {
		return nil, err
	}
	return s.GetProfile(ctx, telegramID)
}

func (s *ProfileService) UpdateName(ctx context.Context, telegramID int64, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &ValidationError{Field: "name", Message: "name must not be empty"}
	}
	if err := s.repo.UpdateUserName(ctx, telegramID, name); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.GetProfile(ctx, telegramID)
}

func (s *ProfileService) UpdateCity(ctx context.Context, telegramID int64, cityID int64) (*models.User, error) {
	// Город должен существовать в справочнике
	if _, err := s.repo.GetCityByID(ctx, cityID); err != nil {
		if errors.Is(err, database.ErrCityNotFound) {
			return nil, ErrCityNotFound
		}
		return nil, err
	}

	if err := s.repo.UpdateUserCity(ctx, telegramID, cityID); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.GetProfile(ctx, telegramID)
}

// SetBirthday записывает дату рождения один раз. Повторная попытка
// возвращает ErrBirthdayAlreadyRegistered, сохраненное значение не меняется.
func (s *ProfileService) SetBirthday(ctx context.Context, telegramID int64, bday time.Time) (*models.User, error) {
	err := s.repo.SetUserBirthday(ctx, telegramID, bday)
	if errors.Is(err, database.ErrBirthdayAlreadySet) {
		return nil, ErrBirthdayAlreadyRegistered
	}
	if errors.Is(err, database.ErrUserNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	_ = s.events.PublishJSON(events.EventBirthdaySet, map[string]any{
		"telegram_id": telegramID,
		"birthday":    bday.Format("2006-01-02"),
	})
	return s.GetProfile(ctx, telegramID)
}

// SaveAvatar сохраняет загруженный файл в медиа-каталог и записывает URL
// в профиль.
func (s *ProfileService) SaveAvatar(ctx context.Context, telegramID int64, filename string, content io.Reader) (*models.User, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
	default:
		return nil, &ValidationError{Field: "avatar", Message: fmt.Sprintf("unsupported file type %q", ext)}
	}

	dir := filepath.Join(s.cfg.Media.Path, "user", "avatar")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create media directory: %w", err)
	}

	name := fmt.Sprintf("%d_%d%s", telegramID, time.Now().UnixNano(), ext)
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("failed to create avatar file: %w", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, content); err != nil {
		return nil, fmt.Errorf("failed to write avatar file: %w", err)
	}

	avatarURL := path.Join(s.cfg.Media.BaseURL, "user", "avatar", name)
	if err := s.repo.UpdateUserAvatar(ctx, telegramID, avatarURL); err != nil {
		if errors.Is(err, database.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	s.logger.Info().Int64("telegram_id", telegramID).Str("avatar_url", avatarURL).Msg("avatar updated")
	return s.GetProfile(ctx, telegramID)
}

func (s *ProfileService) ListCities(ctx context.Context, nameFilter string, limit, offset int) ([]*models.City, int, error) {
	if limit < 1 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListCities(ctx, nameFilter, limit, offset)
}

// TechSupportURL возвращает настроенную ссылку на бота поддержки.
func (s *ProfileService) TechSupportURL() string {
	return s.cfg.Telegram.TechSupportBotURL
}

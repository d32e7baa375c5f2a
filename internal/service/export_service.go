package service

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/domain"
	"github.com/hardqode/losb-back/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const usersSheet = "Пользователи"

// ExportService выгружает данные пользователей в Excel для менеджеров.
type ExportService struct {
	repo   domain.Repository
	cfg    *config.Config
	logger *zerolog.Logger
}

func NewExportService(repo domain.Repository, cfg *config.Config, logger *zerolog.Logger) *ExportService {
	return &ExportService{
		repo:   repo,
		cfg:    cfg,
		logger: logger,
	}
}

// ExportUsers создает Excel файл со всеми пользователями и возвращает путь к нему.
func (s *ExportService) ExportUsers(ctx context.Context) (string, error) {
	// Создаем папку для экспорта, если не существует
	if err := os.MkdirAll(s.cfg.Exports.Path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %v", err)
	}

	users, err := s.repo.GetAllUsers(ctx)
	if err != nil {
		return "", fmt.Errorf("error getting users: %v", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(usersSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	// Заголовки
	headers := []string{
		"ID", "Telegram ID", "Никнейм", "Имя", "Город", "Телефон",
		"Дата рождения", "Дата регистрации",
	}
	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(usersSheet, cell, header)
		_ = f.SetCellStyle(usersSheet, cell, cell, headerStyle)
	}

	// Данные пользователей
	for i, user := range users {
		row := i + 2
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("A%d", row), user.ID)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("B%d", row), user.TelegramID)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("C%d", row), user.Nickname)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("D%d", row), user.Name)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("E%d", row), user.CityName)
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("F%d", row), formatPhone(user.Phone))
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("G%d", row), formatBirthday(user))
		_ = f.SetCellValue(usersSheet, fmt.Sprintf("H%d", row), user.CreatedAt.Format("02.01.2006 15:04"))
	}

	// Настраиваем ширину колонок
	_ = f.SetColWidth(usersSheet, "A", "A", 10)
	_ = f.SetColWidth(usersSheet, "B", "B", 15)
	_ = f.SetColWidth(usersSheet, "C", "C", 20)
	_ = f.SetColWidth(usersSheet, "D", "D", 20)
	_ = f.SetColWidth(usersSheet, "E", "E", 18)
	_ = f.SetColWidth(usersSheet, "F", "F", 18)
	_ = f.SetColWidth(usersSheet, "G", "G", 15)
	_ = f.SetColWidth(usersSheet, "H", "H", 20)

	// Удаляем стандартный лист
	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("users_export_%s.xlsx", time.Now().Format("2006-01-02_15-04-05"))
	filePath := filepath.Join(s.cfg.Exports.Path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	s.logger.Info().Str("file_path", filePath).Int("users", len(users)).Msg("users export created")
	return filePath, nil
}

func formatPhone(p *models.Phone) string {
	if p == nil {
		return ""
	}
	return fmt.Sprintf("+%d%d", p.Code, p.Number)
}

func formatBirthday(u *models.User) string {
	if !u.Birthday.Valid {
		return ""
	}
	return u.Birthday.Time.Format("02.01.2006")
}

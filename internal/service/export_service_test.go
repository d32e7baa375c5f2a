package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/hardqode/losb-back/internal/config"
	"github.com/hardqode/losb-back/internal/database"
	"github.com/hardqode/losb-back/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestExportUsers(t *testing.T) {
	logger := zerolog.Nop()
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.CreateOrUpdateUser(ctx, &models.User{TelegramID: 400, Name: "Анна", Nickname: "anna"}))
	require.NoError(t, db.CreateOrUpdateUser(ctx, &models.User{TelegramID: 401, Name: "Борис", Nickname: "boris"}))
	require.NoError(t, db.SetUserPhone(ctx, 401, models.Phone{Code: 7, Number: 9161234567}))

	cfg := &config.Config{}
	cfg.Exports.Path = filepath.Join(t.TempDir(), "exports")

	svc := NewExportService(db, cfg, &logger)
	path, err := svc.ExportUsers(ctx)
	require.NoError(t, err)

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(usersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3) // заголовок + два пользователя

	assert.Equal(t, "Telegram ID", rows[0][1])
	assert.Equal(t, "anna", rows[1][2])
	assert.Equal(t, "+79161234567", rows[2][5])
}

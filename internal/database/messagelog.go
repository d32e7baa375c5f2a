package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hardqode/losb-back/internal/models"
)

// UpsertMessageLog перезаписывает последнее сообщение чата. Одна строка на
// chat_id, при конкурентной записи побеждает последний коммит.
func (db *DB) UpsertMessageLog(ctx context.Context, entry *models.MessageLog) error {
	query := `INSERT INTO message_log (chat_id, text, sent_at)
              VALUES (?, ?, ?)
              ON CONFLICT(chat_id) DO UPDATE SET
                text = excluded.text,
                sent_at = excluded.sent_at`
	_, err := db.ExecContext(ctx, query, entry.ChatID, entry.Text, entry.SentAt)
	if err != nil {
		return fmt.Errorf("failed to upsert message log: %w", err)
	}
	return nil
}

// GetMessageLog возвращает запись чата, nil без ошибки если записи нет.
func (db *DB) GetMessageLog(ctx context.Context, chatID int64) (*models.MessageLog, error) {
	var entry models.MessageLog
	query := `SELECT chat_id, text, sent_at FROM message_log WHERE chat_id = ?`
	err := db.QueryRowContext(ctx, query, chatID).Scan(&entry.ChatID, &entry.Text, &entry.SentAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message log: %w", err)
	}
	entry.SentAt = entry.SentAt.UTC()
	return &entry, nil
}

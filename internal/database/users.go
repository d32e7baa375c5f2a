package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/hardqode/losb-back/internal/models"
)

const userColumns = `u.id, u.telegram_id, u.name, u.nickname, u.avatar_url, u.bday,
	                 u.city_id, c.name, p.code, p.number, u.created_at, u.updated_at`

const userJoins = `FROM users u
	               LEFT JOIN cities c ON c.id = u.city_id
	               LEFT JOIN phones p ON p.id = u.phone_id`

// CreateOrUpdateUser создает пользователя при первом обращении или обновляет
// имя и никнейм из Telegram. Телефон и дата рождения здесь не трогаются.
func (db *DB) CreateOrUpdateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (telegram_id, name, nickname, created_at, updated_at)
              VALUES (?, ?, ?, ?, ?)
              ON CONFLICT(telegram_id) DO UPDATE SET
                nickname = excluded.nickname,
                updated_at = excluded.updated_at`
	now := time.Now()
	_, err := db.ExecContext(ctx, query,
		user.TelegramID,
		user.Name,
		user.Nickname,
		now,
		now,
	)
	if err != nil {
		return fmt.Errorf("failed to create or update user: %w", err)
	}
	return nil
}

func (db *DB) GetUserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` ` + userJoins + ` WHERE u.telegram_id = ?`
	return db.queryUser(ctx, query, telegramID)
}

func (db *DB) queryUser(ctx context.Context, query string, args ...any) (*models.User, error) {
	var (
		user      models.User
		cityName  sql.NullString
		phoneCode sql.NullInt64
		phoneNum  sql.NullInt64
	)
	err := db.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.TelegramID,
		&user.Name,
		&user.Nickname,
		&user.AvatarURL,
		&user.Birthday,
		&user.CityID,
		&cityName,
		&phoneCode,
		&phoneNum,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	user.CityName = cityName.String
	if phoneCode.Valid && phoneNum.Valid {
		user.Phone = &models.Phone{Code: int(phoneCode.Int64), Number: phoneNum.Int64}
	}
	return &user, nil
}

func (db *DB) UpdateUserName(ctx context.Context, telegramID int64, name string) error {
	query := `UPDATE users SET name = ?, updated_at = ? WHERE telegram_id = ?`
	res, err := db.ExecContext(ctx, query, name, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to update user name: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

func (db *DB) UpdateUserCity(ctx context.Context, telegramID int64, cityID int64) error {
	query := `UPDATE users SET city_id = ?, updated_at = ? WHERE telegram_id = ?`
	res, err := db.ExecContext(ctx, query, cityID, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to update user city: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

func (db *DB) UpdateUserAvatar(ctx context.Context, telegramID int64, avatarURL string) error {
	query := `UPDATE users SET avatar_url = ?, updated_at = ? WHERE telegram_id = ?`
	res, err := db.ExecContext(ctx, query, avatarURL, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to update user avatar: %w", err)
	}
	return requireRow(res, ErrUserNotFound)
}

// SetUserBirthday записывает дату рождения только если она еще не установлена.
// Повторная попытка возвращает ErrBirthdayAlreadySet.
func (db *DB) SetUserBirthday(ctx context.Context, telegramID int64, bday time.Time) error {
	query := `UPDATE users SET bday = ?, updated_at = ? WHERE telegram_id = ? AND bday IS NULL`
	res, err := db.ExecContext(ctx, query, bday, time.Now(), telegramID)
	if err != nil {
		return fmt.Errorf("failed to set user birthday: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		// Либо пользователя нет, либо дата уже записана
		if _, err := db.GetUserByTelegramID(ctx, telegramID); err != nil {
			return err
		}
		return ErrBirthdayAlreadySet
	}
	return nil
}

// SetUserPhone привязывает подтвержденный номер к пользователю, заменяя
// предыдущий. Вызывается только после успешной верификации кода.
func (db *DB) SetUserPhone(ctx context.Context, telegramID int64, phone models.Phone) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	var phoneID sql.NullInt64
	err = tx.QueryRowContext(ctx, `SELECT phone_id FROM users WHERE telegram_id = ?`, telegramID).Scan(&phoneID)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to query user phone: %w", err)
	}

	if phoneID.Valid {
		_, err = tx.ExecContext(ctx, `UPDATE phones SET code = ?, number = ? WHERE id = ?`,
			phone.Code, phone.Number, phoneID.Int64)
		if err != nil {
			return fmt.Errorf("failed to update phone: %w", err)
		}
	} else {
		result, err := tx.ExecContext(ctx, `INSERT INTO phones (code, number) VALUES (?, ?)`,
			phone.Code, phone.Number)
		if err != nil {
			return fmt.Errorf("failed to insert phone: %w", err)
		}
		newID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		_, err = tx.ExecContext(ctx, `UPDATE users SET phone_id = ?, updated_at = ? WHERE telegram_id = ?`,
			newID, time.Now(), telegramID)
		if err != nil {
			return fmt.Errorf("failed to link phone to user: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit phone update: %w", err)
	}
	return nil
}

// GetAllUsers возвращает всех пользователей для административного экспорта.
func (db *DB) GetAllUsers(ctx context.Context) ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` ` + userJoins + ` ORDER BY u.created_at DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get all users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var (
			user      models.User
			cityName  sql.NullString
			phoneCode sql.NullInt64
			phoneNum  sql.NullInt64
		)
		err := rows.Scan(
			&user.ID,
			&user.TelegramID,
			&user.Name,
			&user.Nickname,
			&user.AvatarURL,
			&user.Birthday,
			&user.CityID,
			&cityName,
			&phoneCode,
			&phoneNum,
			&user.CreatedAt,
			&user.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		user.CityName = cityName.String
		if phoneCode.Valid && phoneNum.Valid {
			user.Phone = &models.Phone{Code: int(phoneCode.Int64), Number: phoneNum.Int64}
		}
		users = append(users, &user)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}
	return users, nil
}

func requireRow(res sql.Result, notFound error) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return notFound
	}
	return nil
}

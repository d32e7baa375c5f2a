package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hardqode/losb-back/internal/models"
)

// SeedCities добавляет города из конфига, уже существующие не трогает.
func (db *DB) SeedCities(ctx context.Context, names []string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, name := range names {
		if _, err := tx.ExecContext(ctx, `INSERT OR IGNORE INTO cities (name) VALUES (?)`, name); err != nil {
			return fmt.Errorf("failed to seed city %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit city seed: %w", err)
	}
	return nil
}

// ListCities возвращает страницу городов и общее число строк под фильтром.
func (db *DB) ListCities(ctx context.Context, nameFilter string, limit, offset int) ([]*models.City, int, error) {
	where := ``
	args := []any{}
	if nameFilter != "" {
		where = `WHERE name LIKE ?`
		args = append(args, "%"+nameFilter+"%")
	}

	var total int
	countQuery := `SELECT COUNT(*) FROM cities ` + where
	if err := db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count cities: %w", err)
	}

	query := `SELECT id, name FROM cities ` + where + ` ORDER BY name LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list cities: %w", err)
	}
	defer rows.Close()

	var cities []*models.City
	for rows.Next() {
		var city models.City
		if err := rows.Scan(&city.ID, &city.Name); err != nil {
			return nil, 0, fmt.Errorf("failed to scan city: %w", err)
		}
		cities = append(cities, &city)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate cities: %w", err)
	}
	return cities, total, nil
}

func (db *DB) GetCityByID(ctx context.Context, id int64) (*models.City, error) {
	var city models.City
	err := db.QueryRowContext(ctx, `SELECT id, name FROM cities WHERE id = ?`, id).Scan(&city.ID, &city.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCityNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get city: %w", err)
	}
	return &city, nil
}

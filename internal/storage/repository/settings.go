package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

// GetRegistrationSetting возвращает сохранённый флаг открытой регистрации
// или models.ErrNotFound, если строки ещё нет.
func (s *Storage) GetRegistrationSetting(ctx context.Context) (*models.RegistrationSetting, error) {
	const op = "storage.GetRegistrationSetting"

	var (
		value   string
		setting models.RegistrationSetting
	)
	err := s.DB.QueryRowContext(ctx,
		`SELECT value, updated_at FROM settings WHERE key = $1`,
		models.SettingRegistrationEnabled,
	).Scan(&value, &setting.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	setting.Enabled, err = strconv.ParseBool(value)
	if err != nil {
		return nil, fmt.Errorf("%s: corrupt value %q: %w", op, value, err)
	}
	return &setting, nil
}

// SetRegistrationEnabled сохраняет флаг. Запись безусловная (upsert),
// предыдущее значение не сравнивается.
func (s *Storage) SetRegistrationEnabled(ctx context.Context, enabled bool) error {
	const op = "storage.SetRegistrationEnabled"

	query := `INSERT INTO settings (key, value, updated_at)
			  VALUES ($1, $2, now())
			  ON CONFLICT (key) DO UPDATE
			  SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`
	if _, err := s.DB.ExecContext(ctx, query,
		models.SettingRegistrationEnabled, strconv.FormatBool(enabled)); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

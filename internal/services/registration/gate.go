// Package registration хранит флаг открытой самостоятельной регистрации.
//
// Сохранённое значение авторитетно. Если строки нет, используется значение
// по умолчанию из окружения (REGISTRATION_ENABLED), а без него — false.
package registration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/services/audit"
)

// SettingReader читает сохранённый флаг.
type SettingReader interface {
	GetRegistrationSetting(ctx context.Context) (*models.RegistrationSetting, error)
}

// SettingStore хранилище флага.
type SettingStore interface {
	SettingReader
	SetRegistrationEnabled(ctx context.Context, enabled bool) error
}

// Auditor пишет запись аудита.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Gate решает, открыта ли регистрация.
type Gate struct {
	store          SettingStore
	audit          Auditor
	log            *slog.Logger
	defaultEnabled bool
}

// New создаёт Gate. defaultEnabled используется, пока флаг не сохранён.
func New(store SettingStore, auditor Auditor, log *slog.Logger, defaultEnabled bool) *Gate {
	return &Gate{
		store:          store,
		audit:          auditor,
		log:            log,
		defaultEnabled: defaultEnabled,
	}
}

// IsOpen возвращает текущее значение флага.
func (g *Gate) IsOpen(ctx context.Context) (bool, error) {
	return g.IsOpenIn(ctx, g.store)
}

// IsOpenIn читает флаг через store, например внутри уже открытой транзакции,
// применяя то же значение по умолчанию.
func (g *Gate) IsOpenIn(ctx context.Context, store SettingReader) (bool, error) {
	const op = "registration.IsOpen"

	setting, err := store.GetRegistrationSetting(ctx)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return g.defaultEnabled, nil
		}
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return setting.Enabled, nil
}

// SetOpen сохраняет флаг безусловно и пишет запись аудита.
func (g *Gate) SetOpen(ctx context.Context, enabled bool, actor *models.Actor, client *models.ClientMeta) error {
	const op = "registration.SetOpen"
	log := g.log.With(sl.Op(op))

	// прежнее значение нужно только для снимка в журнале
	before, err := g.IsOpen(ctx)
	if err != nil {
		log.Warn("failed to read previous registration flag", sl.Err(err))
	}

	if err := g.store.SetRegistrationEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("registration flag updated", slog.Bool("enabled", enabled))
	g.audit.Record(ctx, audit.Event{
		Actor:       actor,
		Action:      models.ActionRegistrationToggle,
		Description: fmt.Sprintf("%s set to %t", models.SettingRegistrationEnabled, enabled),
		Before:      map[string]bool{"enabled": before},
		After:       map[string]bool{"enabled": enabled},
		Client:      client,
	})
	return nil
}

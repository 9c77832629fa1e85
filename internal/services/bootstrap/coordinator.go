// Package bootstrap реализует самостоятельную регистрацию, при которой первый
// зарегистрировавшийся становится super_admin, а регистрация сразу закрывается.
//
// Решение «сколько пользователей уже есть» принимается под advisory-блокировкой
// в базе, поэтому два разных пользователя не могут одновременно увидеть пустую
// таблицу, даже если запросы обрабатывают разные процессы.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/metrics"
	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/services/audit"
	"github.com/magabrotheeeer/jam-admin/internal/services/registration"
)

// Tx операции, выполняемые под блокировкой в одной транзакции.
type Tx interface {
	registration.SettingReader
	UserExists(ctx context.Context, username, email string) (bool, error)
	CountUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	SetRegistrationEnabled(ctx context.Context, enabled bool) error
}

// Store хранилище пользователей с общей блокировкой.
type Store interface {
	UserExists(ctx context.Context, username, email string) (bool, error)
	// InBootstrapLock выполняет fn под блокировкой. Блокировка снимается
	// при любом исходе fn.
	InBootstrapLock(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Gate флаг открытой регистрации.
type Gate interface {
	IsOpen(ctx context.Context) (bool, error)
	IsOpenIn(ctx context.Context, store registration.SettingReader) (bool, error)
}

// Hasher хеширует пароль текущим алгоритмом.
type Hasher interface {
	Hash(plain string) (string, error)
}

// Validator проверяет силу пароля.
type Validator interface {
	Validate(password string) error
}

// Auditor пишет запись аудита.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Request данные регистрации.
type Request struct {
	Username string
	Email    string
	Password string
	Client   *models.ClientMeta
}

// Coordinator выполняет протокол регистрации.
type Coordinator struct {
	store  Store
	gate   Gate
	policy Validator
	hasher Hasher
	audit  Auditor
	log    *slog.Logger
}

// New создаёт Coordinator.
func New(store Store, gate Gate, policy Validator, hasher Hasher, auditor Auditor, log *slog.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		gate:   gate,
		policy: policy,
		hasher: hasher,
		audit:  auditor,
		log:    log,
	}
}

// Register регистрирует пользователя.
//
// Ошибки: models.ErrRegistrationClosed и *password.PolicyError — ошибки клиента,
// models.ErrConflict — имя или email заняты. Остальное — ошибки сервера.
func (c *Coordinator) Register(ctx context.Context, req Request) (*models.User, error) {
	const op = "bootstrap.Register"
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	log := c.log.With(sl.Op(op), slog.String("username", req.Username))

	open, err := c.gate.IsOpen(ctx)
	if err != nil {
		metrics.ObserveRegistration("error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !open {
		metrics.ObserveRegistration("closed")
		return nil, fmt.Errorf("%s: %w", op, models.ErrRegistrationClosed)
	}

	exists, err := c.store.UserExists(ctx, req.Username, req.Email)
	if err != nil {
		metrics.ObserveRegistration("error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if exists {
		metrics.ObserveRegistration("conflict")
		return nil, fmt.Errorf("%s: %w", op, models.ErrConflict)
	}

	if err := c.policy.Validate(req.Password); err != nil {
		metrics.ObserveRegistration("weak_password")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// хеширование вне блокировки, чтобы критическая секция была короткой
	digest, err := c.hasher.Hash(req.Password)
	if err != nil {
		metrics.ObserveRegistration("error")
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var created *models.User
	err = c.store.InBootstrapLock(ctx, func(ctx context.Context, tx Tx) error {
		n, err := tx.CountUsers(ctx)
		if err != nil {
			return err
		}

		role := models.RoleUser
		if n == 0 {
			role = models.RoleSuperAdmin
		} else {
			// регистрация могла закрыться, пока запрос ждал блокировку
			open, err := c.gate.IsOpenIn(ctx, tx)
			if err != nil {
				return err
			}
			if !open {
				// имя или email уже занял победивший запрос
				taken, err := tx.UserExists(ctx, req.Username, req.Email)
				if err != nil {
					return err
				}
				if taken {
					return models.ErrConflict
				}
				return models.ErrRegistrationClosed
			}
		}

		created, err = tx.CreateUser(ctx, &models.User{
			Username:     req.Username,
			Email:        req.Email,
			PasswordHash: digest,
			Role:         role,
			IsActive:     true,
		})
		if err != nil {
			return err
		}

		if role == models.RoleSuperAdmin {
			return tx.SetRegistrationEnabled(ctx, false)
		}
		return nil
	})
	if err != nil {
		created = nil
		switch {
		case errors.Is(err, models.ErrConflict):
			metrics.ObserveRegistration("conflict")
			log.Info("registration conflict detected at creation")
		case errors.Is(err, models.ErrRegistrationClosed):
			metrics.ObserveRegistration("closed")
		default:
			metrics.ObserveRegistration("error")
			log.Error("registration failed", sl.Err(err))
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c.recordCreated(ctx, created, req.Client)
	return created, nil
}

func (c *Coordinator) recordCreated(ctx context.Context, u *models.User, client *models.ClientMeta) {
	actor := &models.Actor{UserID: u.ID, Username: u.Username}
	target := &models.Target{Table: "users", RecordID: u.ID}

	if u.Role != models.RoleSuperAdmin {
		metrics.ObserveRegistration("created")
		c.audit.Record(ctx, audit.Event{
			Actor:       actor,
			Action:      models.ActionRegister,
			Target:      target,
			Description: fmt.Sprintf("user %s registered", u.Username),
			After:       u,
			Client:      client,
		})
		return
	}

	metrics.ObserveRegistration("bootstrap")
	c.log.Warn("first user registered as super_admin, registration closed",
		slog.String("username", u.Username), slog.Int64("user_id", u.ID))
	c.audit.Record(ctx, audit.Event{
		Actor:       actor,
		Action:      models.ActionBootstrapSuperAdmin,
		Target:      target,
		Description: fmt.Sprintf("first user %s registered as super_admin", u.Username),
		After:       u,
		Client:      client,
	})
	c.audit.Record(ctx, audit.Event{
		Action:      models.ActionRegistrationAutoLock,
		Description: "registration closed after the first super_admin was created",
		Before:      map[string]bool{"enabled": true},
		After:       map[string]bool{"enabled": false},
		Client:      client,
	})
}

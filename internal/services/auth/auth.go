// Package auth содержит вход по паролю и административные действия над
// учётными записями: смену пароля, роли и признака активности.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/jam-admin/internal/lib/password"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/metrics"
	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/services/audit"
)

// UserRepository описывает контракт для работы с пользователями в базе данных.
type UserRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int64) (*models.User, error)
	UpdatePassword(ctx context.Context, id int64, digest string) error
	UpdateRole(ctx context.Context, id int64, role models.Role) error
	SetActive(ctx context.Context, id int64, active bool) error
}

// Hasher хеширует и проверяет пароли.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, digest string) (password.Result, error)
}

// Validator проверяет силу пароля.
type Validator interface {
	Validate(password string) error
}

// SessionIssuer создаёт и удаляет сессии.
type SessionIssuer interface {
	Create(ctx context.Context, u *models.User) (*models.Session, error)
	Destroy(ctx context.Context, id string) error
}

// Auditor пишет запись аудита.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Service отвечает за вход по паролю и управление учётными записями.
type Service struct {
	users    UserRepository
	hasher   Hasher
	policy   Validator
	sessions SessionIssuer
	audit    Auditor
	log      *slog.Logger
}

// NewService создает новый экземпляр Service.
func NewService(users UserRepository, hasher Hasher, policy Validator, sessions SessionIssuer, auditor Auditor, log *slog.Logger) *Service {
	return &Service{
		users:    users,
		hasher:   hasher,
		policy:   policy,
		sessions: sessions,
		audit:    auditor,
		log:      log,
	}
}

// Login проверяет пароль и выдаёт сессию.
//
// Неизвестное имя, пустой хеш и неверный пароль неразличимы для клиента
// (models.ErrInvalidCredentials). Пароль, совпавший с хешем устаревшего
// алгоритма, перехешируется текущим; сбой перехеширования вход не прерывает.
func (s *Service) Login(ctx context.Context, username, plain string, client *models.ClientMeta) (*models.User, *models.Session, error) {
	const op = "auth.Login"
	log := s.log.With(sl.Op(op), slog.String("username", username))

	user, err := s.users.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			metrics.ObserveLogin("local", "invalid")
			return nil, nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
		}
		metrics.ObserveLogin("local", "error")
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.hasher.Verify(plain, user.PasswordHash)
	if err != nil {
		log.Warn("stored digest could not be verified", sl.Err(err), slog.Int64("user_id", user.ID))
	}
	if err != nil || !res.Matches {
		metrics.ObserveLogin("local", "invalid")
		s.audit.Record(ctx, audit.Event{
			Actor:       &models.Actor{UserID: user.ID, Username: user.Username},
			Action:      models.ActionLoginFailed,
			Target:      &models.Target{Table: "users", RecordID: user.ID},
			Description: "password login rejected",
			Client:      client,
		})
		return nil, nil, fmt.Errorf("%s: %w", op, models.ErrInvalidCredentials)
	}

	if !user.IsActive {
		metrics.ObserveLogin("local", "disabled")
		return nil, nil, fmt.Errorf("%s: %w", op, models.ErrAccountDisabled)
	}

	if res.NeedsUpgrade {
		s.upgradeDigest(ctx, log, user, plain, client)
	}

	sess, err := s.sessions.Create(ctx, user)
	if err != nil {
		metrics.ObserveLogin("local", "error")
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}

	metrics.ObserveLogin("local", "success")
	s.audit.Record(ctx, audit.Event{
		Actor:       &models.Actor{UserID: user.ID, Username: user.Username},
		Action:      models.ActionLogin,
		Target:      &models.Target{Table: "users", RecordID: user.ID},
		Description: fmt.Sprintf("password login as %s", user.Role),
		Client:      client,
	})
	return user, sess, nil
}

func (s *Service) upgradeDigest(ctx context.Context, log *slog.Logger, user *models.User, plain string, client *models.ClientMeta) {
	digest, err := s.hasher.Hash(plain)
	if err != nil {
		log.Error("failed to rehash password", sl.Err(err))
		return
	}
	if err := s.users.UpdatePassword(ctx, user.ID, digest); err != nil {
		log.Error("failed to persist upgraded digest", sl.Err(err))
		return
	}
	user.PasswordHash = digest

	metrics.ObservePasswordRehash()
	log.Info("password digest upgraded")
	s.audit.Record(ctx, audit.Event{
		Actor:       &models.Actor{UserID: user.ID, Username: user.Username},
		Action:      models.ActionPasswordRehash,
		Target:      &models.Target{Table: "users", RecordID: user.ID},
		Description: "password digest upgraded to current algorithm",
		Client:      client,
	})
}

// Logout удаляет сессию.
func (s *Service) Logout(ctx context.Context, sess *models.Session, client *models.ClientMeta) error {
	const op = "auth.Logout"
	if err := s.sessions.Destroy(ctx, sess.ID); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	s.audit.Record(ctx, audit.Event{
		Actor:       actorOf(sess),
		Action:      models.ActionLogout,
		Description: "session destroyed",
		Client:      client,
	})
	return nil
}

// ChangePassword устанавливает новый пароль пользователю targetID.
// admin не может менять пароль чужого super_admin.
func (s *Service) ChangePassword(ctx context.Context, actor *models.Session, targetID int64, plain string, client *models.ClientMeta) error {
	const op = "auth.ChangePassword"

	if err := s.policy.Validate(plain); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if target.Role == models.RoleSuperAdmin && actor.Role != models.RoleSuperAdmin && actor.UserID != target.ID {
		return fmt.Errorf("%s: %w", op, models.ErrForbidden)
	}

	digest, err := s.hasher.Hash(plain)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := s.users.UpdatePassword(ctx, target.ID, digest); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.audit.Record(ctx, audit.Event{
		Actor:       actorOf(actor),
		Action:      models.ActionPasswordChange,
		Target:      &models.Target{Table: "users", RecordID: target.ID},
		Description: fmt.Sprintf("password changed for %s", target.Username),
		Client:      client,
	})
	return nil
}

// SetRole меняет роль пользователя. Снять с себя super_admin нельзя.
func (s *Service) SetRole(ctx context.Context, actor *models.Session, targetID int64, role models.Role, client *models.ClientMeta) (*models.User, error) {
	const op = "auth.SetRole"

	if !role.Valid() {
		return nil, fmt.Errorf("%s: %w", op, models.ErrInvalidRole)
	}
	if actor.UserID == targetID && role != actor.Role {
		return nil, fmt.Errorf("%s: cannot change own role: %w", op, models.ErrForbidden)
	}

	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	before := target.Role
	if before == role {
		return target, nil
	}
	if err := s.users.UpdateRole(ctx, target.ID, role); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	target.Role = role

	s.audit.Record(ctx, audit.Event{
		Actor:       actorOf(actor),
		Action:      models.ActionRoleChange,
		Target:      &models.Target{Table: "users", RecordID: target.ID},
		Description: fmt.Sprintf("role of %s changed from %s to %s", target.Username, before, role),
		Before:      map[string]models.Role{"role": before},
		After:       map[string]models.Role{"role": role},
		Client:      client,
	})
	return target, nil
}

// SetActive включает или деактивирует учётную запись. Деактивировать себя нельзя.
func (s *Service) SetActive(ctx context.Context, actor *models.Session, targetID int64, active bool, client *models.ClientMeta) (*models.User, error) {
	const op = "auth.SetActive"

	if actor.UserID == targetID && !active {
		return nil, fmt.Errorf("%s: cannot deactivate own account: %w", op, models.ErrForbidden)
	}

	target, err := s.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	before := target.IsActive
	if before == active {
		return target, nil
	}
	if err := s.users.SetActive(ctx, target.ID, active); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	target.IsActive = active

	s.audit.Record(ctx, audit.Event{
		Actor:       actorOf(actor),
		Action:      models.ActionActiveChange,
		Target:      &models.Target{Table: "users", RecordID: target.ID},
		Description: fmt.Sprintf("is_active of %s set to %t", target.Username, active),
		Before:      map[string]bool{"is_active": before},
		After:       map[string]bool{"is_active": active},
		Client:      client,
	})
	return target, nil
}

func actorOf(sess *models.Session) *models.Actor {
	if sess == nil {
		return nil
	}
	return &models.Actor{UserID: sess.UserID, Username: sess.Username}
}

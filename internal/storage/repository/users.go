package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

const userColumns = `id, username, email, password_hash, role, is_active, created_at, updated_at`

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	var role string
	if err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role,
		&u.IsActive, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return nil, err
	}
	u.Role = models.Role(role)
	return u, nil
}

// UserExists сообщает, занят ли username или email. Это быстрая
// предварительная проверка, окончательно уникальность проверяет CreateUser.
func (s *Storage) UserExists(ctx context.Context, username, email string) (bool, error) {
	const op = "storage.UserExists"
	if err := checkCtx(ctx, op); err != nil {
		return false, err
	}

	query := `SELECT EXISTS (
			      SELECT 1 FROM users
			      WHERE lower(username) = lower($1) OR lower(email) = lower($2)
			  )`
	var exists bool
	if err := s.DB.QueryRowContext(ctx, query, username, email).Scan(&exists); err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	return exists, nil
}

// CountUsers возвращает число учётных записей.
func (s *Storage) CountUsers(ctx context.Context) (int, error) {
	const op = "storage.CountUsers"

	var n int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

// CreateUser сохраняет пользователя и заполняет id и отметки времени.
// При нарушении уникальности возвращает models.ErrConflict.
func (s *Storage) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	const op = "storage.CreateUser"
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}

	query := `INSERT INTO users (username, email, password_hash, role, is_active)
			  VALUES ($1, $2, $3, $4, $5)
			  RETURNING id, created_at, updated_at`
	err := s.DB.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, string(user.Role), user.IsActive,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrConflict)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetUserByUsername возвращает пользователя по username.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getUser(ctx, "storage.GetUserByUsername",
		`SELECT `+userColumns+` FROM users WHERE lower(username) = lower($1)`, username)
}

// GetUserByEmail возвращает пользователя по email.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "storage.GetUserByEmail",
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
}

// GetUserByID возвращает пользователя по id.
func (s *Storage) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "storage.GetUserByID",
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id)
}

func (s *Storage) getUser(ctx context.Context, op, query string, arg any) (*models.User, error) {
	if err := checkCtx(ctx, op); err != nil {
		return nil, err
	}
	u, err := scanUser(s.DB.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%s: %w", op, models.ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return u, nil
}

// UpdatePassword заменяет хеш пароля пользователя.
func (s *Storage) UpdatePassword(ctx context.Context, id int64, digest string) error {
	const op = "storage.UpdatePassword"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2`, digest, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected(res, op)
}

// UpdateRole меняет роль пользователя.
func (s *Storage) UpdateRole(ctx context.Context, id int64, role models.Role) error {
	const op = "storage.UpdateRole"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET role = $1, updated_at = now() WHERE id = $2`, string(role), id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected(res, op)
}

// SetActive включает или деактивирует учётную запись. Записи не удаляются.
func (s *Storage) SetActive(ctx context.Context, id int64, active bool) error {
	const op = "storage.SetActive"

	res, err := s.DB.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = now() WHERE id = $2`, active, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return rowsAffected(res, op)
}

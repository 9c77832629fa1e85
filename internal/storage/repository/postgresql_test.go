package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

func newRepoWithMock(t *testing.T) (*Storage, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return New(db), mock
}

var userRowColumns = []string{"id", "username", "email", "password_hash", "role", "is_active", "created_at", "updated_at"}

func TestStorage_CreateUser(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		setup   func(m sqlmock.Sqlmock)
		wantErr error
	}{
		{
			name: "created",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WithArgs("alice", "alice@example.com", "digest", "super_admin", true).
					WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(7, now, now))
			},
		},
		{
			name: "unique violation becomes conflict",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "users_username_key"})
			},
			wantErr: models.ErrConflict,
		},
		{
			name: "other failure is not a conflict",
			setup: func(m sqlmock.Sqlmock) {
				m.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users`)).
					WillReturnError(errors.New("connection reset"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			tt.setup(mock)

			user, err := repo.CreateUser(context.Background(), &models.User{
				Username: "alice", Email: "alice@example.com", PasswordHash: "digest",
				Role: models.RoleSuperAdmin, IsActive: true,
			})
			switch {
			case tt.wantErr != nil:
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, user)
			case tt.name == "other failure is not a conflict":
				require.Error(t, err)
				assert.False(t, errors.Is(err, models.ErrConflict))
			default:
				require.NoError(t, err)
				assert.Equal(t, int64(7), user.ID)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestStorage_GetUserByUsername(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(username) = lower($1)`)).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows(userRowColumns).
			AddRow(1, "alice", "alice@example.com", "$2a$10$x", "admin", true, now, now))
	mock.ExpectQuery(regexp.QuoteMeta(`FROM users WHERE lower(username) = lower($1)`)).
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	u, err := repo.GetUserByUsername(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, u.Role)
	assert.True(t, u.IsActive)

	_, err = repo.GetUserByUsername(context.Background(), "ghost")
	assert.ErrorIs(t, err, models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UserExists(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT EXISTS`)).
		WithArgs("alice", "alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.UserExists(context.Background(), "alice", "alice@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_UpdatePassword(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1`)).
		WithArgs("$argon2id$new", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`UPDATE users SET password_hash = $1`)).
		WithArgs("$argon2id$new", int64(404)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, repo.UpdatePassword(context.Background(), 3, "$argon2id$new"))
	assert.ErrorIs(t, repo.UpdatePassword(context.Background(), 404, "$argon2id$new"), models.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_RegistrationSetting(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, updated_at FROM settings`)).
		WithArgs(models.SettingRegistrationEnabled).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO settings`)).
		WithArgs(models.SettingRegistrationEnabled, "false").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT value, updated_at FROM settings`)).
		WithArgs(models.SettingRegistrationEnabled).
		WillReturnRows(sqlmock.NewRows([]string{"value", "updated_at"}).AddRow("false", now))

	_, err := repo.GetRegistrationSetting(context.Background())
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, repo.SetRegistrationEnabled(context.Background(), false))

	setting, err := repo.GetRegistrationSetting(context.Background())
	require.NoError(t, err)
	assert.False(t, setting.Enabled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_InsertAuditEntry(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO audit_logs`)).
		WithArgs(nil, nil, models.ActionRegistrationAutoLock, "settings", int64(1), "closed",
			nil, []byte(`{"enabled":false}`), nil, nil).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(11, now))

	entry := &models.AuditEntry{
		Action:      models.ActionRegistrationAutoLock,
		Target:      &models.Target{Table: "settings", RecordID: 1},
		Description: "closed",
		After:       []byte(`{"enabled":false}`),
	}
	err := repo.InsertAuditEntry(context.Background(), entry)
	require.NoError(t, err)
	assert.Equal(t, int64(11), entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStorage_WithAdvisoryLock(t *testing.T) {
	t.Run("lock taken inside transaction and committed", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
			WithArgs(BootstrapLockKey).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta(`SELECT COUNT(*) FROM users`)).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
		mock.ExpectCommit()

		var count int
		err := repo.WithAdvisoryLock(context.Background(), BootstrapLockKey, func(ctx context.Context, tx *Storage) error {
			var err error
			count, err = tx.CountUsers(ctx)
			return err
		})
		require.NoError(t, err)
		assert.Equal(t, 0, count)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failure inside rolls back and releases lock", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		boom := errors.New("boom")
		err := repo.WithAdvisoryLock(context.Background(), BootstrapLockKey, func(_ context.Context, _ *Storage) error {
			return boom
		})
		assert.ErrorIs(t, err, boom)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("nested lock is refused", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta(`SELECT pg_advisory_xact_lock($1)`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := repo.WithAdvisoryLock(context.Background(), BootstrapLockKey, func(ctx context.Context, tx *Storage) error {
			return tx.WithAdvisoryLock(ctx, BootstrapLockKey, func(context.Context, *Storage) error { return nil })
		})
		assert.ErrorIs(t, err, ErrNestedLock)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

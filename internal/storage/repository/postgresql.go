// Package repository реализует хранилище учётных записей, настроек и
// журнала аудита поверх PostgreSQL.
//
// Хранилище — окончательный арбитр уникальности username и email:
// нарушение уникального индекса при вставке превращается в models.ErrConflict.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/storage"
)

// BootstrapLockKey ключ advisory-блокировки, под которой принимается решение
// о первом super_admin.
const BootstrapLockKey int64 = 0x6a616d626f6f74 // "jamboot"

// ErrNestedLock попытка взять блокировку внутри уже открытой транзакции.
var ErrNestedLock = errors.New("advisory lock requested inside a transaction")

// Storage выполняет запросы через DBTX: пул соединений или транзакцию.
type Storage struct {
	DB   storage.DBTX
	conn *sql.DB
}

// New создаёт Storage поверх пула соединений.
func New(db *sql.DB) *Storage {
	return &Storage{DB: db, conn: db}
}

// WithAdvisoryLock открывает транзакцию, берёт в ней pg_advisory_xact_lock(key)
// и выполняет fn с хранилищем, привязанным к этой транзакции.
//
// Блокировка живёт ровно столько, сколько транзакция, и снимается базой при
// COMMIT или ROLLBACK, поэтому не утекает ни при ошибке, ни при панике.
// Блокировка общая для всех процессов, работающих с этой базой.
func (s *Storage) WithAdvisoryLock(ctx context.Context, key int64, fn func(ctx context.Context, tx *Storage) error) error {
	const op = "storage.WithAdvisoryLock"
	if s.conn == nil {
		return fmt.Errorf("%s: %w", op, ErrNestedLock)
	}

	err := storage.WithTx(ctx, s.conn, nil, func(ctx context.Context, tx storage.DBTX) error {
		if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, key); err != nil {
			return fmt.Errorf("acquire lock: %w", err)
		}
		return fn(ctx, &Storage{DB: tx})
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

func checkCtx(ctx context.Context, op string) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}
	return nil
}

func rowsAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, models.ErrNotFound)
	}
	return nil
}

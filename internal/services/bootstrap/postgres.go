package bootstrap

import (
	"context"

	"github.com/magabrotheeeer/jam-admin/internal/storage/repository"
)

// PostgresStore реализует Store поверх repository.Storage.
type PostgresStore struct {
	*repository.Storage
}

// NewPostgresStore создаёт PostgresStore.
func NewPostgresStore(s *repository.Storage) PostgresStore {
	return PostgresStore{Storage: s}
}

// InBootstrapLock берёт pg_advisory_xact_lock(repository.BootstrapLockKey).
func (p PostgresStore) InBootstrapLock(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	return p.WithAdvisoryLock(ctx, repository.BootstrapLockKey, func(ctx context.Context, tx *repository.Storage) error {
		return fn(ctx, tx)
	})
}

package oidc

import (
	"context"
	"fmt"
	"time"
)

const stateKeyPrefix = "oidc_state:"

// Cache хранилище значений с истечением. Take читает и удаляет значение.
type Cache interface {
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Take(ctx context.Context, key string, result any) (bool, error)
}

// StateStore хранит выпущенный state, привязанный к cookie браузера.
type StateStore struct {
	cache Cache
}

// NewStateStore создаёт StateStore.
func NewStateStore(c Cache) *StateStore {
	return &StateStore{cache: c}
}

// Save сохраняет state для loginID.
func (s *StateStore) Save(ctx context.Context, loginID, state string, ttl time.Duration) error {
	const op = "oidc.StateStore.Save"
	if err := s.cache.Set(ctx, stateKeyPrefix+loginID, state, ttl); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Take возвращает и удаляет state. Каждое значение можно использовать один раз.
func (s *StateStore) Take(ctx context.Context, loginID string) (string, bool, error) {
	const op = "oidc.StateStore.Take"
	if loginID == "" {
		return "", false, nil
	}
	var state string
	found, err := s.cache.Take(ctx, stateKeyPrefix+loginID, &state)
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}
	return state, found, nil
}

// Package session выдаёт серверные сессии. Запись хранится в redis под ключом
// session:<id>; клиент получает только непрозрачный id.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/magabrotheeeer/jam-admin/internal/models"
)

const (
	keyPrefix = "session:"
	idBytes   = 32
)

// Store хранилище сессий с истечением по времени.
type Store interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Invalidate(ctx context.Context, key string) error
}

// Issuer создаёт, читает и удаляет сессии. Сессию после создания не меняет никто.
type Issuer struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewIssuer создаёт Issuer с фиксированным временем жизни сессии ttl.
func NewIssuer(store Store, ttl time.Duration) *Issuer {
	return &Issuer{store: store, ttl: ttl, now: time.Now}
}

// TTL возвращает время жизни сессии.
func (i *Issuer) TTL() time.Duration {
	return i.ttl
}

// Create сохраняет новую сессию для пользователя u.
func (i *Issuer) Create(ctx context.Context, u *models.User) (*models.Session, error) {
	const op = "session.Create"

	id, err := newID()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	now := i.now().UTC()
	s := &models.Session{
		ID:        id,
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Email:     u.Email,
		CreatedAt: now,
		ExpiresAt: now.Add(i.ttl),
	}
	if err := i.store.Set(ctx, keyPrefix+id, s, i.ttl); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return s, nil
}

// Get возвращает сессию по id. Истёкшая сессия неотличима от отсутствующей:
// в обоих случаях возвращается models.ErrSessionNotFound.
func (i *Issuer) Get(ctx context.Context, id string) (*models.Session, error) {
	const op = "session.Get"
	if !validID(id) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSessionNotFound)
	}

	var s models.Session
	found, err := i.store.Get(ctx, keyPrefix+id, &s)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !found || s.Expired(i.now()) {
		return nil, fmt.Errorf("%s: %w", op, models.ErrSessionNotFound)
	}
	s.ID = id
	return &s, nil
}

// Destroy удаляет сессию. Удаление отсутствующей сессии не ошибка.
func (i *Issuer) Destroy(ctx context.Context, id string) error {
	const op = "session.Destroy"
	if !validID(id) {
		return nil
	}
	if err := i.store.Invalidate(ctx, keyPrefix+id); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func newID() (string, error) {
	b := make([]byte, idBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func validID(id string) bool {
	if len(id) != base64.RawURLEncoding.EncodedLen(idBytes) {
		return false
	}
	_, err := base64.RawURLEncoding.DecodeString(id)
	return err == nil
}

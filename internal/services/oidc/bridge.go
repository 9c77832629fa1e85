// Package oidc реализует вход через внешнего OpenID Connect провайдера.
//
// Попытка входа проходит шаги: выпуск state, переход к провайдеру, обратный
// вызов, обмен кода, разбор claims, сверка с локальным пользователем и выдача
// сессии. Ошибка на любом шаге завершает попытку без сессии.
package oidc

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/magabrotheeeer/jam-admin/internal/lib/jwt"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/metrics"
	"github.com/magabrotheeeer/jam-admin/internal/models"
	"github.com/magabrotheeeer/jam-admin/internal/services/audit"
)

// Шаги, на которых может сломаться вход.
const (
	StageState     = "state"
	StageExchange  = "exchange"
	StageClaims    = "claims"
	StageReconcile = "reconcile"
	StageSession   = "session"
)

var (
	// ErrStateMissing провайдер не вернул state.
	ErrStateMissing = errors.New("state is missing")
	// ErrStateMismatch state не совпадает с выпущенным.
	ErrStateMismatch = errors.New("state does not match")
	// ErrStateNotStored сохранённая копия state не найдена, а допуск отключён.
	ErrStateNotStored = errors.New("state was not found in store")
	// ErrEmailMissing в claims нет email.
	ErrEmailMissing = errors.New("email claim is missing")
	// ErrEmailUnverified провайдер не подтвердил email.
	ErrEmailUnverified = errors.New("email is not verified")
)

// ProviderError сбой при взаимодействии с провайдером. Stage помогает
// отличить ошибку конфигурации от сетевой.
type ProviderError struct {
	Stage string
	Err   error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("oidc %s: %v", e.Stage, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Provider внешний провайдер.
type Provider interface {
	AuthCodeURL(state, nonce string) string
	// Exchange меняет код на токены, проверяет id_token и nonce и
	// возвращает claims.
	Exchange(ctx context.Context, code, nonce string) (*ClaimSources, error)
}

// UserRepository локальные учётные записи.
type UserRepository interface {
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	UpdateRole(ctx context.Context, id int64, role models.Role) error
}

// SessionIssuer создаёт сессии.
type SessionIssuer interface {
	Create(ctx context.Context, u *models.User) (*models.Session, error)
}

// StateRepository хранит выпущенные state.
type StateRepository interface {
	Save(ctx context.Context, loginID, state string, ttl time.Duration) error
	Take(ctx context.Context, loginID string) (string, bool, error)
}

// Auditor пишет запись аудита.
type Auditor interface {
	Record(ctx context.Context, ev audit.Event)
}

// Options настройки Bridge.
type Options struct {
	Roles           RoleConfig
	StateTTL        time.Duration
	StrictState     bool // не допускать вход без сохранённой копии state
	ExchangeTimeout time.Duration
	Strategies      []GroupStrategy // nil — DefaultGroupStrategies
}

// Bridge проводит попытку входа через провайдера.
type Bridge struct {
	provider Provider
	states   StateRepository
	maker    jwt.Maker
	users    UserRepository
	sessions SessionIssuer
	audit    Auditor
	log      *slog.Logger
	opts     Options
}

// NewBridge создаёт Bridge.
func NewBridge(provider Provider, states StateRepository, maker jwt.Maker, users UserRepository,
	sessions SessionIssuer, auditor Auditor, log *slog.Logger, opts Options,
) *Bridge {
	if opts.Strategies == nil {
		opts.Strategies = DefaultGroupStrategies
	}
	if opts.ExchangeTimeout <= 0 {
		opts.ExchangeTimeout = 10 * time.Second
	}
	return &Bridge{
		provider: provider,
		states:   states,
		maker:    maker,
		users:    users,
		sessions: sessions,
		audit:    auditor,
		log:      log,
		opts:     opts,
	}
}

// Begin выпускает state, сохраняет его под новым loginID и возвращает адрес
// провайдера. loginID кладётся в cookie браузера.
func (b *Bridge) Begin(ctx context.Context) (loginID, redirectURL string, err error) {
	const op = "oidc.Begin"

	state, claims, err := b.maker.GenerateState()
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	loginID = uuid.NewString()
	if err := b.states.Save(ctx, loginID, state, b.opts.StateTTL); err != nil {
		return "", "", fmt.Errorf("%s: %w", op, err)
	}
	return loginID, b.provider.AuthCodeURL(state, claims.Nonce), nil
}

// Callback данные обратного вызова провайдера.
type Callback struct {
	LoginID string // из cookie браузера, может быть пустым
	State   string
	Code    string
	Client  *models.ClientMeta
}

// Complete завершает вход. Ошибки провайдера возвращаются как *ProviderError;
// models.ErrAccountDisabled и models.ErrAccessDenied означают, что
// пользователь известен, но сессия ему не положена.
func (b *Bridge) Complete(ctx context.Context, cb Callback) (*models.User, *models.Session, error) {
	const op = "oidc.Complete"
	log := b.log.With(sl.Op(op))

	user, sess, err := b.complete(ctx, log, cb)
	if err != nil {
		outcome := "error"
		switch {
		case errors.Is(err, models.ErrAccountDisabled):
			outcome = "disabled"
		case errors.Is(err, models.ErrAccessDenied):
			outcome = "denied"
		}
		metrics.ObserveLogin("oidc", outcome)
		return nil, nil, fmt.Errorf("%s: %w", op, err)
	}
	metrics.ObserveLogin("oidc", "success")
	return user, sess, nil
}

func (b *Bridge) complete(ctx context.Context, log *slog.Logger, cb Callback) (*models.User, *models.Session, error) {
	nonce, err := b.checkState(ctx, log, cb)
	if err != nil {
		return nil, nil, &ProviderError{Stage: StageState, Err: err}
	}

	exCtx, cancel := context.WithTimeout(ctx, b.opts.ExchangeTimeout)
	sources, err := b.provider.Exchange(exCtx, cb.Code, nonce)
	cancel()
	if err != nil {
		var pe *ProviderError
		if errors.As(err, &pe) {
			return nil, nil, err
		}
		return nil, nil, &ProviderError{Stage: StageExchange, Err: err}
	}

	id := ResolveIdentity(*sources, b.opts.Strategies)
	if id.Email == "" {
		return nil, nil, &ProviderError{Stage: StageClaims, Err: ErrEmailMissing}
	}
	if !id.EmailVerified {
		return nil, nil, &ProviderError{Stage: StageClaims, Err: ErrEmailUnverified}
	}
	role := ComputeRole(id.Groups, id.Email, b.opts.Roles)
	log.Info("claims resolved",
		slog.String("email", id.Email),
		slog.String("group_source", id.GroupSource),
		slog.Any("groups", id.Groups),
		slog.String("role", string(role)),
	)

	user, err := b.reconcile(ctx, id.Email, role, cb.Client)
	if err != nil {
		return nil, nil, err
	}

	if !user.Role.AtLeast(models.RoleAdmin) {
		log.Info("federated login denied for role", slog.String("role", string(user.Role)))
		return nil, nil, models.ErrAccessDenied
	}

	sess, err := b.sessions.Create(ctx, user)
	if err != nil {
		return nil, nil, &ProviderError{Stage: StageSession, Err: err}
	}

	b.audit.Record(ctx, audit.Event{
		Actor:       &models.Actor{UserID: user.ID, Username: user.Username},
		Action:      models.ActionLoginOIDC,
		Target:      &models.Target{Table: "users", RecordID: user.ID},
		Description: fmt.Sprintf("federated login as %s", user.Role),
		Client:      cb.Client,
	})
	return user, sess, nil
}

// checkState сверяет state с сохранённой копией и возвращает nonce.
//
// Если копии нет, но подпись и срок state верны, вход продолжается с
// предупреждением в логе. Это ослабляет защиту от повтора ради устойчивости
// к задержкам хранилища; StrictState отключает допуск.
func (b *Bridge) checkState(ctx context.Context, log *slog.Logger, cb Callback) (string, error) {
	if cb.State == "" {
		return "", ErrStateMissing
	}

	claims, err := b.maker.ParseState(cb.State)
	if err != nil {
		return "", err
	}

	stored, found, err := b.states.Take(ctx, cb.LoginID)
	if err != nil {
		log.Warn("state store unavailable", sl.Err(err))
		found = false
	}

	switch {
	case found:
		if subtle.ConstantTimeCompare([]byte(stored), []byte(cb.State)) != 1 {
			return "", ErrStateMismatch
		}
	case b.opts.StrictState:
		return "", ErrStateNotStored
	default:
		log.Warn("stored state missing, accepting signed state",
			slog.String("state_id", claims.ID))
	}
	return claims.Nonce, nil
}

func (b *Bridge) reconcile(ctx context.Context, email string, role models.Role, client *models.ClientMeta) (*models.User, error) {
	user, err := b.users.GetUserByEmail(ctx, email)
	if errors.Is(err, models.ErrNotFound) {
		created, err := b.users.CreateUser(ctx, &models.User{
			Username: email,
			Email:    email,
			Role:     role,
			IsActive: true,
		})
		if err != nil {
			return nil, &ProviderError{Stage: StageReconcile, Err: err}
		}
		b.audit.Record(ctx, audit.Event{
			Actor:       &models.Actor{UserID: created.ID, Username: created.Username},
			Action:      models.ActionRegister,
			Target:      &models.Target{Table: "users", RecordID: created.ID},
			Description: fmt.Sprintf("federated user %s created as %s", email, role),
			After:       created,
			Client:      client,
		})
		return created, nil
	}
	if err != nil {
		return nil, &ProviderError{Stage: StageReconcile, Err: err}
	}

	if !user.IsActive {
		return nil, models.ErrAccountDisabled
	}

	if user.Role != role {
		before := user.Role
		if err := b.users.UpdateRole(ctx, user.ID, role); err != nil {
			return nil, &ProviderError{Stage: StageReconcile, Err: err}
		}
		user.Role = role
		b.audit.Record(ctx, audit.Event{
			Action:      models.ActionRoleChange,
			Target:      &models.Target{Table: "users", RecordID: user.ID},
			Description: fmt.Sprintf("role of %s recomputed from provider groups", user.Username),
			Before:      map[string]models.Role{"role": before},
			After:       map[string]models.Role{"role": role},
			Client:      client,
		})
	}
	return user, nil
}

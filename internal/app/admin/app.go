// Package admin собирает сервис административной идентичности: хранилища,
// сервисы, маршруты и HTTP-сервер.
package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/jam-admin/internal/cache"
	"github.com/magabrotheeeer/jam-admin/internal/config"
	"github.com/magabrotheeeer/jam-admin/internal/lib/jwt"
	"github.com/magabrotheeeer/jam-admin/internal/lib/password"
	"github.com/magabrotheeeer/jam-admin/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/jam-admin/internal/lib/sl"
	"github.com/magabrotheeeer/jam-admin/internal/migrations"
	"github.com/magabrotheeeer/jam-admin/internal/services/audit"
	"github.com/magabrotheeeer/jam-admin/internal/services/auth"
	"github.com/magabrotheeeer/jam-admin/internal/services/bootstrap"
	"github.com/magabrotheeeer/jam-admin/internal/services/oidc"
	"github.com/magabrotheeeer/jam-admin/internal/services/registration"
	"github.com/magabrotheeeer/jam-admin/internal/services/session"
	"github.com/magabrotheeeer/jam-admin/internal/storage"
	"github.com/magabrotheeeer/jam-admin/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// Services сервисы, которые обслуживают маршруты.
type Services struct {
	Gate      *registration.Gate
	Bootstrap *bootstrap.Coordinator
	Auth      *auth.Service
	Sessions  *session.Issuer
	OIDC      *oidc.Bridge // nil, если провайдер не настроен
}

// App HTTP-сервер и ресурсы, которые нужно закрыть при остановке.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *storage.Storage
	cache  *cache.Cache
	amqp   *amqp.Connection
	pub    *rabbitmq.Publisher
}

// New подключается к зависимостям, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.admin.New"

	db, err := storage.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	app := &App{logger: logger, db: db, cache: cacheRedis}

	svcs, err := app.buildServices(ctx, cfg)
	if err != nil {
		app.close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	router := chi.NewRouter()
	RegisterRoutes(router, cfg, logger, svcs, map[string]Pinger{
		"postgres": db,
		"redis":    cacheRedis,
	})

	app.server = &http.Server{
		Addr:         cfg.AddressHTTP,
		Handler:      router,
		ReadTimeout:  cfg.TimeoutHTTP,
		WriteTimeout: cfg.TimeoutHTTP,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return app, nil
}

func (a *App) buildServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	repo := repository.New(a.db.DB)

	var opts []audit.Option
	if cfg.AMQPURL != "" {
		conn, err := rabbitmq.Connect(cfg.AMQPURL, 5, 2*time.Second)
		if err != nil {
			return nil, err
		}
		ch, err := rabbitmq.SetupExchange(conn, cfg.Exchange)
		if err != nil {
			_ = conn.Close()
			return nil, err
		}
		a.amqp = conn
		a.pub = rabbitmq.NewPublisher(ch, cfg.Exchange, cfg.RoutingKey)
		opts = append(opts, audit.WithPublisher(a.pub))
		a.logger.Info("audit events are published", slog.String("exchange", cfg.Exchange))
	}
	recorder := audit.NewRecorder(repo, a.logger, opts...)

	hasher, err := password.NewHasher(password.Options{
		Algorithm:  cfg.Algorithm,
		BcryptCost: cfg.BcryptCost,
	})
	if err != nil {
		return nil, err
	}
	policy := password.Policy{MinLength: cfg.MinLength, MinClasses: cfg.MinClasses}

	sessions := session.NewIssuer(a.cache, cfg.Session.TTL)
	gate := registration.New(repo, recorder, a.logger, cfg.DefaultEnabled)

	svcs := &Services{
		Gate:      gate,
		Bootstrap: bootstrap.New(bootstrap.NewPostgresStore(repo), gate, policy, hasher, recorder, a.logger),
		Auth:      auth.NewService(repo, hasher, policy, sessions, recorder, a.logger),
		Sessions:  sessions,
	}

	if !cfg.OIDC.Enabled() {
		a.logger.Info("oidc login disabled")
		return svcs, nil
	}
	provider, err := oidc.NewOIDCProvider(ctx, cfg.OIDC)
	if err != nil {
		return nil, err
	}
	svcs.OIDC = oidc.NewBridge(
		provider,
		oidc.NewStateStore(a.cache),
		jwt.NewStateMaker(cfg.StateSecret, cfg.StateTTL),
		repo,
		sessions,
		recorder,
		a.logger,
		oidc.Options{
			Roles: oidc.RoleConfig{
				AdminGroup:   cfg.AdminGroup,
				MemberGroups: cfg.MemberGroups,
				AdminEmail:   cfg.AdminEmail,
			},
			StateTTL:        cfg.StateTTL,
			StrictState:     cfg.StrictState,
			ExchangeTimeout: cfg.ExchangeTimeout,
		},
	)
	a.logger.Info("oidc login enabled", slog.String("issuer", cfg.IssuerURL))
	return svcs, nil
}

// Run обслуживает запросы до отмены ctx, затем плавно останавливает сервер.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		a.close()
		return err
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err := a.server.Shutdown(timeoutCtx)
		a.close()
		return err
	}
}

func (a *App) close() {
	if a.pub != nil {
		if err := a.pub.Close(); err != nil {
			a.logger.Warn("failed to close audit channel", sl.Err(err))
		}
	}
	if a.amqp != nil {
		if err := a.amqp.Close(); err != nil {
			a.logger.Warn("failed to close amqp connection", sl.Err(err))
		}
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("failed to close redis", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn("failed to close postgres", sl.Err(err))
	}
}

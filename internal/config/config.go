// Package config описывает настройки сервиса и загружает их из YAML-файла
// с переопределением через переменные окружения.
package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Окружения запуска.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Config общая структура настроек.
type Config struct {
	Env                     string `yaml:"env" env:"APP_ENV" env-default:"local"`
	StorageConnectionString string `yaml:"storage_connection_string" env:"STORAGE_CONNECTION_STRING"`
	MigrationsPath          string `yaml:"migrations_path" env-default:"./migrations"`
	RedisConnection         `yaml:"redis_connection"`
	HTTPServer              `yaml:"http_server"`
	Session                 `yaml:"session"`
	CSRF                    `yaml:"csrf"`
	Registration            `yaml:"registration"`
	Password                `yaml:"password"`
	OIDC                    `yaml:"oidc"`
	Auth                    `yaml:"auth"`
	RateLimit               `yaml:"rate_limit"`
	Audit                   `yaml:"audit"`
}

// HTTPServer настройки HTTP-сервера.
type HTTPServer struct {
	AddressHTTP string        `yaml:"addresshttp" env-default:":8080"`
	TimeoutHTTP time.Duration `yaml:"timeouthttp" env-default:"10s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

// RedisConnection настройки подключения к redis, общему хранилищу сессий.
type RedisConnection struct {
	AddressRedis string        `yaml:"addressredis" env:"REDIS_ADDRESS"`
	Password     string        `yaml:"password" env:"REDIS_PASSWORD"`
	User         string        `yaml:"user"`
	DB           int           `yaml:"db"`
	MaxRetries   int           `yaml:"max_retries"`
	DialTimeout  time.Duration `yaml:"dial_timeout"`
	TimeoutRedis time.Duration `yaml:"timeoutredis"`
}

// Session настройки серверных сессий.
type Session struct {
	CookieName   string        `yaml:"cookie_name" env-default:"jam_admin_session"`
	TTL          time.Duration `yaml:"ttl" env-default:"24h"`
	SecureCookie bool          `yaml:"secure_cookie" env:"SESSION_SECURE_COOKIE"`
}

// CSRF настройки защиты от подделки запросов.
type CSRF struct {
	AuthKey string `yaml:"auth_key" env:"CSRF_AUTH_KEY"`
	Secure  bool   `yaml:"secure" env:"CSRF_SECURE"`
	// ExemptPrefixes пути, на которых проверка пропускается. Действует только вне prod.
	ExemptPrefixes []string `yaml:"exempt_prefixes"`
}

// Registration настройки открытой регистрации.
type Registration struct {
	// DefaultEnabled используется, пока в базе нет сохранённого значения.
	DefaultEnabled bool `yaml:"default_enabled" env:"REGISTRATION_ENABLED"`
}

// Password настройки хеширования и политики паролей.
type Password struct {
	Algorithm  string `yaml:"algorithm" env-default:"argon2id"`
	MinLength  int    `yaml:"min_length" env-default:"8"`
	MinClasses int    `yaml:"min_classes" env-default:"3"`
	BcryptCost int    `yaml:"bcrypt_cost"`
}

// OIDC настройки входа через внешнего провайдера.
type OIDC struct {
	IssuerURL       string        `yaml:"issuer_url" env:"OIDC_ISSUER_URL"`
	ClientID        string        `yaml:"client_id" env:"OIDC_CLIENT_ID"`
	ClientSecret    string        `yaml:"client_secret" env:"OIDC_CLIENT_SECRET"`
	RedirectURL     string        `yaml:"redirect_url" env:"OIDC_REDIRECT_URL"`
	Scopes          []string      `yaml:"scopes" env-default:"openid,email,profile"`
	AdminGroup      string        `yaml:"admin_group" env-default:"admin"`
	MemberGroups    []string      `yaml:"member_groups" env-default:"admin,organizer"`
	AdminEmail      string        `yaml:"admin_email" env:"OIDC_ADMIN_EMAIL"`
	StateSecret     string        `yaml:"state_secret" env:"OIDC_STATE_SECRET"`
	StateTTL        time.Duration `yaml:"state_ttl" env-default:"10m"`
	StrictState     bool          `yaml:"strict_state"`
	SuccessRedirect string        `yaml:"success_redirect" env-default:"/admin"`
	ExchangeTimeout time.Duration `yaml:"exchange_timeout" env-default:"10s"`
}

// Enabled сообщает, настроен ли внешний провайдер.
func (o OIDC) Enabled() bool {
	return o.IssuerURL != "" && o.ClientID != ""
}

// Auth настройки проверки прав.
type Auth struct {
	// UnsafeDevAuthBypass подменяет любую проверку прав сессией super_admin.
	// Только для локальной разработки.
	UnsafeDevAuthBypass bool `yaml:"unsafe_dev_auth_bypass" env:"UNSAFE_DEV_AUTH_BYPASS"`
}

// RateLimit ограничение частоты запросов на вход и регистрацию.
type RateLimit struct {
	RPS   float64 `yaml:"rps" env-default:"5"`
	Burst int     `yaml:"burst" env-default:"10"`
}

// Audit настройки публикации событий аудита в брокер.
type Audit struct {
	AMQPURL    string `yaml:"amqp_url" env:"AUDIT_AMQP_URL"`
	Exchange   string `yaml:"exchange" env-default:"audit"`
	RoutingKey string `yaml:"routing_key" env-default:"admin.audit"`
}

// MustLoad загружает конфиг из файла CONFIG_PATH и завершает процесс при ошибке.
func MustLoad() *Config {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		log.Fatal("CONFIG_PATH is not set")
	}
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("file: %s - does not exist", configPath)
	}
	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		log.Fatalf("cannot read config: %s", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %s", err)
	}
	return &cfg
}

// Validate проверяет сочетания настроек, опасные для продакшна.
func (c *Config) Validate() error {
	var errs []error
	if c.Env == EnvProd {
		if c.UnsafeDevAuthBypass {
			errs = append(errs, errors.New("unsafe_dev_auth_bypass must not be set in prod"))
		}
		if len(c.ExemptPrefixes) > 0 {
			errs = append(errs, errors.New("csrf exempt_prefixes must be empty in prod"))
		}
		if !c.SecureCookie || !c.CSRF.Secure {
			errs = append(errs, errors.New("secure cookies are required in prod"))
		}
	}
	if len(c.AuthKey) != 32 {
		errs = append(errs, fmt.Errorf("csrf auth_key must be 32 bytes, got %d", len(c.AuthKey)))
	}
	if c.OIDC.Enabled() && len(c.StateSecret) < 32 {
		errs = append(errs, errors.New("oidc state_secret must be at least 32 bytes"))
	}
	return errors.Join(errs...)
}

// Production сообщает, запущен ли сервис в prod.
func (c *Config) Production() bool {
	return c.Env == EnvProd
}

func (c *Config) String() string {
	return fmt.Sprintf(
		"Env: %s\n"+
			"RedisConnection:\n"+
			"  Addr: %s\n"+
			"  DB: %d\n"+
			"HTTPServer:\n"+
			"  Address: %s\n"+
			"  Timeout: %s\n"+
			"  IdleTimeout: %s\n"+
			"Session:\n"+
			"  TTL: %s\n"+
			"Registration:\n"+
			"  DefaultEnabled: %t\n"+
			"OIDC:\n"+
			"  Issuer: %s\n"+
			"Auth:\n"+
			"  UnsafeDevAuthBypass: %t\n",
		c.Env,
		c.AddressRedis,
		c.DB,
		c.AddressHTTP,
		c.TimeoutHTTP,
		c.IdleTimeout,
		c.Session.TTL,
		c.DefaultEnabled,
		c.IssuerURL,
		c.UnsafeDevAuthBypass,
	)
}

package models

import (
	"encoding/json"
	"time"
)

// Действия, которые пишутся в журнал аудита.
const (
	ActionRegister             = "user.register"
	ActionBootstrapSuperAdmin  = "user.bootstrap_super_admin"
	ActionRegistrationToggle   = "registration.toggle"
	ActionRegistrationAutoLock = "registration.auto_close"
	ActionLogin                = "auth.login"
	ActionLoginFailed          = "auth.login_failed"
	ActionLoginOIDC            = "auth.login_oidc"
	ActionLogout               = "auth.logout"
	ActionPasswordRehash       = "user.password_rehash"
	ActionPasswordChange       = "user.password_change"
	ActionRoleChange           = "user.role_change"
	ActionActiveChange         = "user.active_change"
)

// Actor — кто совершил действие. Nil означает системное событие.
type Actor struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
}

// Target — на какую запись направлено действие.
type Target struct {
	Table    string `json:"table"`
	RecordID int64  `json:"record_id"`
}

// ClientMeta — сетевые данные запроса.
type ClientMeta struct {
	IP        string `json:"ip"`
	UserAgent string `json:"user_agent"`
}

// AuditEntry запись журнала аудита. Записи только добавляются.
type AuditEntry struct {
	ID          int64           `json:"id"`
	Actor       *Actor          `json:"actor,omitempty"`
	Action      string          `json:"action"`
	Target      *Target         `json:"target,omitempty"`
	Description string          `json:"description"`
	Before      json.RawMessage `json:"before,omitempty"`
	After       json.RawMessage `json:"after,omitempty"`
	Client      *ClientMeta     `json:"client,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

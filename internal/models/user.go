// Package models содержит доменные модели подсистемы администрирования:
// пользователей и их роли, серверные сессии, записи аудита и
// настройку открытой регистрации, а также общие ошибки.
package models

import "time"

// Role роль пользователя. Набор значений фиксирован.
type Role string

const (
	// RoleUser — обычный пользователь без доступа к админке.
	RoleUser Role = "user"
	// RoleAdmin — администратор контента.
	RoleAdmin Role = "admin"
	// RoleSuperAdmin — администратор, управляющий регистрацией и пользователями.
	RoleSuperAdmin Role = "super_admin"
)

// Valid сообщает, является ли значение одной из известных ролей.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// Level возвращает уровень роли для сравнения. Неизвестная роль имеет уровень 0.
func (r Role) Level() int {
	switch r {
	case RoleUser:
		return 1
	case RoleAdmin:
		return 2
	case RoleSuperAdmin:
		return 3
	}
	return 0
}

// AtLeast сообщает, не ниже ли роль r требуемой роли required.
func (r Role) AtLeast(required Role) bool {
	return r.Level() > 0 && r.Level() >= required.Level()
}

// User представляет учётную запись пользователя.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // пустой для пользователей, пришедших через внешнего провайдера
	Role         Role      `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Federated сообщает, создана ли учётная запись только через внешнего провайдера.
func (u *User) Federated() bool {
	return u.PasswordHash == ""
}

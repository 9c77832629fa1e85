package models

import "errors"

var (
	// ErrNotFound запись не найдена.
	ErrNotFound = errors.New("not found")
	// ErrConflict нарушена уникальность username или email.
	ErrConflict = errors.New("username or email already taken")
	// ErrRegistrationClosed открытая регистрация закрыта.
	ErrRegistrationClosed = errors.New("registration is closed")
	// ErrInvalidCredentials неверное имя пользователя или пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountDisabled учётная запись деактивирована.
	ErrAccountDisabled = errors.New("account is disabled")
	// ErrAccessDenied роль не позволяет войти в админку.
	ErrAccessDenied = errors.New("access denied")
	// ErrUnauthenticated нет действующей сессии.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrForbidden роль ниже требуемой.
	ErrForbidden = errors.New("insufficient role")
	// ErrSessionNotFound сессия отсутствует или истекла.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidRole неизвестное значение роли.
	ErrInvalidRole = errors.New("invalid role")
)

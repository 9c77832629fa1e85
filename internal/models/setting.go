package models

import "time"

// SettingRegistrationEnabled ключ настройки открытой регистрации.
const SettingRegistrationEnabled = "registration_enabled"

// RegistrationSetting сохранённое значение флага открытой регистрации.
type RegistrationSetting struct {
	Enabled   bool
	UpdatedAt time.Time
}

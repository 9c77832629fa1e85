package password

import (
	"fmt"
	"unicode"
	"unicode/utf8"
)

// DefaultMinLength минимальная длина пароля по умолчанию.
const DefaultMinLength = 8

// MaxLength верхняя граница длины пароля в байтах. bcrypt не принимает больше 72 байт.
const MaxLength = 72

// PolicyError описывает, почему пароль отклонён.
type PolicyError struct {
	Reason string
}

func (e *PolicyError) Error() string {
	return "weak password: " + e.Reason
}

// Policy требования к паролю.
type Policy struct {
	MinLength  int // минимальная длина в символах
	MinClasses int // сколько классов символов из четырёх (строчные, прописные, цифры, прочие) должно встретиться
}

// DefaultPolicy возвращает политику: не короче 8 символов, минимум три класса символов.
func DefaultPolicy() Policy {
	return Policy{MinLength: DefaultMinLength, MinClasses: 3}
}

// Validate проверяет пароль. Возвращает *PolicyError, если пароль слишком слабый.
// Функция чистая и не обращается к хранилищу.
func (p Policy) Validate(password string) error {
	minLength := p.MinLength
	if minLength <= 0 {
		minLength = DefaultMinLength
	}
	if n := utf8.RuneCountInString(password); n < minLength {
		return &PolicyError{Reason: fmt.Sprintf("must be at least %d characters long", minLength)}
	}
	if len(password) > MaxLength {
		return &PolicyError{Reason: fmt.Sprintf("must be at most %d bytes long", MaxLength)}
	}

	var lower, upper, digit, other bool
	for _, r := range password {
		switch {
		case unicode.IsLower(r):
			lower = true
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsDigit(r):
			digit = true
		case unicode.IsSpace(r):
		default:
			other = true
		}
	}

	classes := 0
	for _, ok := range []bool{lower, upper, digit, other} {
		if ok {
			classes++
		}
	}
	if classes < p.MinClasses {
		return &PolicyError{Reason: fmt.Sprintf(
			"must contain at least %d of: lowercase letters, uppercase letters, digits, symbols", p.MinClasses)}
	}
	return nil
}

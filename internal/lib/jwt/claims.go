// Package jwt выпускает и проверяет подписанные значения state для входа
// через внешнего провайдера.
//
// Значение state — короткоживущий JWT с уникальным идентификатором (jti)
// и nonce. Подпись позволяет отличить правдоподобное значение, которое мы
// сами выпустили, от подделки, даже если сохранённая копия потерялась.
package jwt

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const stateIssuer = "jam-admin/oidc-state"

// StateClaims данные внутри state.
type StateClaims struct {
	Nonce string `json:"nonce"` // передаётся провайдеру и возвращается в id_token
	jwt.RegisteredClaims
}

// Maker описывает выпуск и разбор значений state.
type Maker interface {
	GenerateState() (string, *StateClaims, error)
	ParseState(tokenStr string) (*StateClaims, error)
}

// MakerImpl подписывает state секретным ключом по HS256.
type MakerImpl struct {
	secretKey string
	stateTTL  time.Duration
	now       func() time.Time
}

// NewStateMaker создаёт MakerImpl.
func NewStateMaker(secretKey string, ttl time.Duration) *MakerImpl {
	return &MakerImpl{
		secretKey: secretKey,
		stateTTL:  ttl,
		now:       time.Now,
	}
}

// Package password реализует политику паролей и хеширование с поддержкой
// нескольких алгоритмов.
//
// Хеш самоописывающий: алгоритм определяется по префиксу сохранённой строки.
// Текущий алгоритм — argon2id, устаревший — bcrypt. Пароль, совпавший со
// старым хешем, помечается флагом NeedsUpgrade, и вызывающий код может
// перехешировать его при входе.
package password

import (
	"errors"
	"fmt"
	"strings"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// Имена поддерживаемых алгоритмов.
const (
	AlgorithmArgon2id = "argon2id"
	AlgorithmBcrypt   = "bcrypt"
)

// ErrUnknownAlgorithm сохранённый хеш не распознан ни одним алгоритмом.
var ErrUnknownAlgorithm = errors.New("unknown password hash algorithm")

// Result результат проверки пароля.
type Result struct {
	Matches      bool
	NeedsUpgrade bool
}

type algorithm struct {
	name     string
	legacy   bool
	prefixes []string
	hash     func(plain string) (string, error)
	compare  func(plain, digest string) (bool, error)
}

// Hasher вычисляет и проверяет хеши. Не содержит изменяемого состояния
// и безопасен для конкурентного использования.
type Hasher struct {
	current    string
	algorithms []algorithm
}

// Options параметры хешера.
type Options struct {
	Algorithm  string           // текущий алгоритм, по умолчанию argon2id
	Argon2     *argon2id.Params // nil — argon2id.DefaultParams
	BcryptCost int              // 0 — bcrypt.DefaultCost
}

// NewHasher создаёт хешер. Возвращает ошибку, если текущий алгоритм неизвестен.
func NewHasher(opts Options) (*Hasher, error) {
	const op = "password.NewHasher"

	params := opts.Argon2
	if params == nil {
		params = argon2id.DefaultParams
	}
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	current := opts.Algorithm
	if current == "" {
		current = AlgorithmArgon2id
	}

	h := &Hasher{
		current: current,
		algorithms: []algorithm{
			{
				name:     AlgorithmArgon2id,
				prefixes: []string{"$argon2id$"},
				hash: func(plain string) (string, error) {
					return argon2id.CreateHash(plain, params)
				},
				compare: argon2id.ComparePasswordAndHash,
			},
			{
				name:     AlgorithmBcrypt,
				legacy:   true,
				prefixes: []string{"$2a$", "$2b$", "$2y$"},
				hash: func(plain string) (string, error) {
					b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
					return string(b), err
				},
				compare: func(plain, digest string) (bool, error) {
					err := bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain))
					if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
						return false, nil
					}
					return err == nil, err
				},
			},
		},
	}
	if h.lookup(current) == nil {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownAlgorithm, current)
	}
	return h, nil
}

// Current возвращает имя текущего алгоритма.
func (h *Hasher) Current() string {
	return h.current
}

// Hash возвращает хеш пароля текущим алгоритмом.
func (h *Hasher) Hash(plain string) (string, error) {
	const op = "password.Hash"
	digest, err := h.lookup(h.current).hash(plain)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return digest, nil
}

// Verify сверяет пароль с хешем алгоритмом, указанным в префиксе хеша.
// Пустой хеш (учётная запись без пароля) никогда не совпадает.
func (h *Hasher) Verify(plain, digest string) (Result, error) {
	const op = "password.Verify"
	if digest == "" {
		return Result{}, nil
	}

	alg := h.detect(digest)
	if alg == nil {
		return Result{}, fmt.Errorf("%s: %w", op, ErrUnknownAlgorithm)
	}

	ok, err := alg.compare(plain, digest)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return Result{}, nil
	}
	return Result{Matches: true, NeedsUpgrade: alg.legacy && !h.lookup(h.current).legacy}, nil
}

func (h *Hasher) detect(digest string) *algorithm {
	for i := range h.algorithms {
		for _, p := range h.algorithms[i].prefixes {
			if strings.HasPrefix(digest, p) {
				return &h.algorithms[i]
			}
		}
	}
	return nil
}

func (h *Hasher) lookup(name string) *algorithm {
	for i := range h.algorithms {
		if h.algorithms[i].name == name {
			return &h.algorithms[i]
		}
	}
	return nil
}

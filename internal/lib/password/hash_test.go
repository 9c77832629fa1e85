package password

import (
	"strings"
	"testing"

	"github.com/alexedwards/argon2id"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// лёгкие параметры, чтобы тесты не тормозили
var testArgon = &argon2id.Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func newTestHasher(t *testing.T, alg string) *Hasher {
	t.Helper()
	h, err := NewHasher(Options{Algorithm: alg, Argon2: testArgon, BcryptCost: bcrypt.MinCost})
	require.NoError(t, err)
	return h
}

func legacyDigest(t *testing.T, plain string) string {
	t.Helper()
	b, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.MinCost)
	require.NoError(t, err)
	return string(b)
}

func TestHasher_HashUsesCurrentAlgorithm(t *testing.T) {
	h := newTestHasher(t, "")
	assert.Equal(t, AlgorithmArgon2id, h.Current())

	digest, err := h.Hash("Correct-Horse-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$argon2id$"))

	res, err := h.Verify("Correct-Horse-1", digest)
	require.NoError(t, err)
	assert.Equal(t, Result{Matches: true, NeedsUpgrade: false}, res)
}

func TestHasher_Verify(t *testing.T) {
	h := newTestHasher(t, AlgorithmArgon2id)
	current, err := h.Hash("Correct-Horse-1")
	require.NoError(t, err)
	legacy := legacyDigest(t, "Correct-Horse-1")

	tests := []struct {
		name    string
		plain   string
		digest  string
		want    Result
		wantErr error
	}{
		{name: "current digest matches", plain: "Correct-Horse-1", digest: current, want: Result{Matches: true}},
		{name: "current digest mismatch", plain: "wrong", digest: current, want: Result{}},
		{name: "legacy digest matches and needs upgrade", plain: "Correct-Horse-1", digest: legacy, want: Result{Matches: true, NeedsUpgrade: true}},
		{name: "legacy digest mismatch", plain: "wrong", digest: legacy, want: Result{}},
		{name: "empty digest never matches", plain: "", digest: "", want: Result{}},
		{name: "unknown prefix", plain: "x", digest: "$md5$abc", wantErr: ErrUnknownAlgorithm},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Verify(tt.plain, tt.digest)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHasher_LegacyCurrentNeverUpgrades(t *testing.T) {
	h := newTestHasher(t, AlgorithmBcrypt)

	digest, err := h.Hash("Correct-Horse-1")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(digest, "$2a$"))

	res, err := h.Verify("Correct-Horse-1", digest)
	require.NoError(t, err)
	assert.True(t, res.Matches)
	assert.False(t, res.NeedsUpgrade)
}

func TestNewHasher_UnknownAlgorithm(t *testing.T) {
	h, err := NewHasher(Options{Algorithm: "md5"})
	assert.Nil(t, h)
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}

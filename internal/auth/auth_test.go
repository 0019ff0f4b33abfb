package auth

import (
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fastParams = HashParams{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}

func TestPasswordHash(t *testing.T) {
	hash, err := CreateHash("hunter2", fastParams)
	require.NoError(t, err)
	assert.Contains(t, hash, "$argon2id$")

	ok, err := VerifyPassword("hunter2", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("hunter3", hash)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := CreateHash("hunter2", fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, hash, other, "salt must differ")
}

func TestDecodeHashRejectsGarbage(t *testing.T) {
	for _, in := range []string{"", "plain", "$argon2i$v=19$m=1,t=1,p=1$c2FsdA$a2V5", "$argon2id$v=19$m=x$c2FsdA$a2V5"} {
		_, _, _, err := DecodeHash(in)
		assert.ErrorIs(t, err, ErrInvalidHash, in)
	}
	_, _, _, err := DecodeHash("$argon2id$v=1$m=1,t=1,p=1$c2FsdA$a2V5")
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestDefaultParallelism(t *testing.T) {
	assert.GreaterOrEqual(t, DefaultParams.Parallelism, uint8(1))
}

func TestIssueVerify(t *testing.T) {
	iss, err := NewIssuer(time.Hour)
	require.NoError(t, err)

	tok, err := iss.Issue("user-1", "Alice", "alice@example.com", false)
	require.NoError(t, err)

	claims, err := iss.Verify(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID())
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, "alice@example.com", claims.Email)
	assert.False(t, claims.Guest)
	require.NotNil(t, claims.ExpiresAt)
}

func TestVerifyExpired(t *testing.T) {
	iss, err := NewIssuer(time.Minute)
	require.NoError(t, err)
	base := time.Now()
	iss.now = func() time.Time { return base }

	tok, err := iss.Issue("user-1", "", "", true)
	require.NoError(t, err)

	iss.now = func() time.Time { return base.Add(2 * time.Minute) }
	_, err = iss.Verify(tok)
	assert.Error(t, err)
}

func TestVerifyWrongKey(t *testing.T) {
	a, err := NewIssuer(0)
	require.NoError(t, err)
	b, err := NewIssuer(0)
	require.NoError(t, err)

	tok, err := a.Issue("user-1", "", "", false)
	require.NoError(t, err)
	_, err = b.Verify(tok)
	assert.Error(t, err)

	claims, err := a.Verify(tok)
	require.NoError(t, err)
	assert.Nil(t, claims.ExpiresAt)
}

func TestLoadIssuer(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(nil)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "key")
	require.NoError(t, os.WriteFile(path, priv, 0o600))

	iss, err := LoadIssuer(path, 0)
	require.NoError(t, err)
	tok, err := iss.Issue("u", "", "", false)
	require.NoError(t, err)
	_, err = iss.Verify(tok)
	assert.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("short"), 0o600))
	_, err = LoadIssuer(path, 0)
	assert.Error(t, err)
}

func TestParseTTL(t *testing.T) {
	for _, s := range []string{"", "0", "never"} {
		d, err := ParseTTL(s)
		require.NoError(t, err)
		assert.Zero(t, d)
	}
	d, err := ParseTTL("72h")
	require.NoError(t, err)
	assert.Equal(t, 72*time.Hour, d)
	_, err = ParseTTL("soon")
	assert.Error(t, err)
}

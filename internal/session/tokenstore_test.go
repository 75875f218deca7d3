package session

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{Subject: "1", ExpiresAt: jwt.NewNumericDate(exp)}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return tok
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	assert.True(t, exp.Equal(TokenExpiry(signedToken(t, exp))))
	assert.True(t, TokenExpiry("not-a-jwt").IsZero())
}

func TestFileStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	s := NewFileStore(path)

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(ctx, "abc", time.Now().Add(time.Hour)))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	s.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Clear(ctx))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestFileStoreWithoutExpiry(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "token.json"))

	require.NoError(t, s.Save(ctx, "opaque", time.Time{}))
	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "opaque", tok)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)

	require.NoError(t, s.Save(ctx, "abc", time.Time{}))
	tok, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	// An already expired token is not stored.
	require.NoError(t, s.Clear(ctx))
	require.NoError(t, s.Save(ctx, "old", time.Now().Add(-time.Minute)))
	_, err = s.Load(ctx)
	assert.ErrorIs(t, err, ErrNoToken)
}

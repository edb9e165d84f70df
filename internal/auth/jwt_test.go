package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateParse(t *testing.T) {
	s := NewSigner("test-secret")

	token, err := s.Generate("alice", time.Hour)
	require.NoError(t, err)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Operator)
	assert.Equal(t, "linkwatch", claims.Issuer)
}

func TestParseRejects(t *testing.T) {
	s := NewSigner("test-secret")
	good, err := s.Generate("alice", time.Hour)
	require.NoError(t, err)

	t.Run("wrong secret", func(t *testing.T) {
		_, err := NewSigner("other").Parse(good)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewSigner("test-secret")
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		old, err := past.Generate("alice", time.Hour)
		require.NoError(t, err)

		_, err = s.Parse(old)
		assert.ErrorIs(t, err, ErrInvalid)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := s.Parse("not.a.token")
		assert.ErrorIs(t, err, ErrInvalid)
	})
}

func TestNoSecret(t *testing.T) {
	s := NewSigner("")
	_, err := s.Generate("alice", time.Hour)
	assert.ErrorIs(t, err, ErrNoSecret)
	_, err = s.Parse("x")
	assert.ErrorIs(t, err, ErrNoSecret)
}

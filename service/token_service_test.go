package application

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	apperrors "github.com/trak2026z/rezerwacjaNoclegowBE2/errors"
)

func TestTokenRoundTrip(t *testing.T) {
	tokens, err := NewTokenService("test-secret", 24*time.Hour)
	require.NoError(t, err)

	userID := primitive.NewObjectID()
	raw, err := tokens.Issue(userID)
	require.NoError(t, err)

	verified, err := tokens.Verify(raw)
	require.NoError(t, err)
	assert.Equal(t, userID, verified)
}

func TestTokenRejections(t *testing.T) {
	tokens, err := NewTokenService("test-secret", 24*time.Hour)
	require.NoError(t, err)
	other, err := NewTokenService("other-secret", 24*time.Hour)
	require.NoError(t, err)

	issued := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	tokens.now = func() time.Time { return issued }
	raw, err := tokens.Issue(primitive.NewObjectID())
	require.NoError(t, err)
	foreign, err := other.Issue(primitive.NewObjectID())
	require.NoError(t, err)

	t.Run("garbage", func(t *testing.T) {
		_, err := tokens.Verify("not-a-token")
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	})

	t.Run("wrong signature", func(t *testing.T) {
		_, err := tokens.Verify(foreign)
		assert.True(t, apperrors.IsKind(err, apperrors.KindUnauthorized))
	})

	t.Run("still valid before expiry", func(t *testing.T) {
		tokens.now = func() time.Time { return issued.Add(23 * time.Hour) }
		_, err := tokens.Verify(raw)
		assert.NoError(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		tokens.now = func() time.Time { return issued.Add(25 * time.Hour) }
		_, err := tokens.Verify(raw)
		require.Error(t, err)
		appErr, ok := apperrors.As(err)
		require.True(t, ok)
		assert.Equal(t, apperrors.InvalidTokenError, appErr.Message)
	})
}

func TestNewTokenServiceNeedsSecret(t *testing.T) {
	_, err := NewTokenService("", time.Hour)
	assert.Error(t, err)
}

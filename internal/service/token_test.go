package service

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenManager_RoundTrip(t *testing.T) {
	m := NewTokenManager("test-secret-test-secret-test-secret", time.Minute)
	userID := uuid.New()

	token, exp, err := m.GenerateAccess(userID, "client")
	require.NoError(t, err)
	assert.True(t, exp.After(time.Now()))

	gotID, role, err := m.ParseAccess(token)
	require.NoError(t, err)
	assert.Equal(t, userID, gotID)
	assert.Equal(t, "client", role)
}

func TestTokenManager_RejectsForeignSecret(t *testing.T) {
	issuer := NewTokenManager("secret-a-secret-a-secret-a-secret-a", time.Minute)
	verifier := NewTokenManager("secret-b-secret-b-secret-b-secret-b", time.Minute)

	token, _, err := issuer.GenerateAccess(uuid.New(), "client")
	require.NoError(t, err)

	_, _, err = verifier.ParseAccess(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenManager_RejectsGarbage(t *testing.T) {
	m := NewTokenManager("secret", time.Minute)
	_, _, err := m.ParseAccess("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

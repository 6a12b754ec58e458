package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestVerifier_RoundTrip(t *testing.T) {
	v := NewVerifier("secret")

	token, err := v.GenerateToken("alice", time.Minute)
	require.NoError(t, err)

	claims, err := v.ValidateToken(token)
	require.NoError(t, err)
	require.Equal(t, "alice", claims.UserID)
}

func TestVerifier_RejectsWrongSecret(t *testing.T) {
	token, err := NewVerifier("secret-a").GenerateToken("alice", time.Minute)
	require.NoError(t, err)

	_, err = NewVerifier("secret-b").ValidateToken(token)
	require.Error(t, err)
}

func TestVerifier_RejectsExpiredToken(t *testing.T) {
	v := NewVerifier("secret")

	token, err := v.GenerateToken("alice", -time.Minute)
	require.NoError(t, err)

	_, err = v.ValidateToken(token)
	require.Error(t, err)
}

func TestVerifier_RejectsGarbage(t *testing.T) {
	_, err := NewVerifier("secret").ValidateToken("not.a.token")
	require.Error(t, err)
}

package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	got, err := TokenExpiry(signedToken(t, exp))
	require.NoError(t, err)
	require.WithinDuration(t, exp, got, time.Second)
}

func TestTokenExpired(t *testing.T) {
	now := time.Now()

	require.False(t, TokenExpired(signedToken(t, now.Add(time.Hour)), now))
	require.True(t, TokenExpired(signedToken(t, now.Add(-time.Hour)), now))
	require.True(t, TokenExpired("not-a-jwt", now))
	require.True(t, TokenExpired("", now))
}

package oidc

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func insecureToken(payload string) string {
	return "eyJhbGciOiJub25lIn0." + base64.RawURLEncoding.EncodeToString([]byte(payload)) + ".sig"
}

func TestInsecureVerifierAcceptsParsableToken(t *testing.T) {
	v := NewInsecureVerifier()
	tok := insecureToken(`{"sub":"u1","aud":"quizhive","exp":4102444800}`)
	require.NoError(t, v.Verify(context.Background(), tok))
}

func TestInsecureVerifierRejectsGarbage(t *testing.T) {
	v := NewInsecureVerifier()
	ctx := context.Background()

	require.Error(t, v.Verify(ctx, ""))
	require.Error(t, v.Verify(ctx, "no-dots-here"))
	require.Error(t, v.Verify(ctx, "a.!!!not-base64!!!.c"))
	// valid base64, not a JSON object
	require.Error(t, v.Verify(ctx, insecureToken("plain text")))
}

package session

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestCookieRoundTrip(t *testing.T) {
	codec := NewCodec("", 0)
	s := &Session{
		UserID:      "u1",
		Username:    "alice",
		Email:       "alice@example.com",
		DisplayName: "Alice",
		Roles:       []string{"USER", "MODERATOR"},
		AccessToken: "at-1",
	}

	ck, err := codec.Encode(s)
	require.NoError(t, err)
	require.Equal(t, "quizhive_session", ck.Name)
	require.True(t, ck.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, ck.SameSite)
	require.Equal(t, int((7 * 24 * time.Hour).Seconds()), ck.MaxAge)

	got := codec.Decode(ck)
	require.Equal(t, s, got)
}

func TestDecodeMalformedCookie(t *testing.T) {
	codec := NewCodec("quizhive_session", time.Hour)

	require.Nil(t, codec.Decode(nil))
	require.Nil(t, codec.Decode(&http.Cookie{Name: "quizhive_session", Value: ""}))
	require.Nil(t, codec.Decode(&http.Cookie{Name: "quizhive_session", Value: "%%%not-base64%%%"}))
	// valid base64, not JSON
	require.Nil(t, codec.Decode(&http.Cookie{Name: "quizhive_session", Value: "bm90LWpzb24"}))
	// valid JSON with no identity
	require.Nil(t, codec.Decode(&http.Cookie{Name: "quizhive_session", Value: "e30"}))
}

func TestDecodeRequest(t *testing.T) {
	codec := NewCodec("quizhive_session", time.Hour)
	ck, err := codec.Encode(&Session{UserID: "u1", AccessToken: "at-1"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/home", nil)
	req.AddCookie(ck)
	got := codec.DecodeRequest(req)
	require.NotNil(t, got)
	require.Equal(t, "u1", got.UserID)

	bare := httptest.NewRequest(http.MethodGet, "/home", nil)
	require.Nil(t, codec.DecodeRequest(bare))
}

func TestClearExpiresCookie(t *testing.T) {
	codec := NewCodec("quizhive_session", time.Hour)
	ck := codec.Clear()
	require.Equal(t, -1, ck.MaxAge)
	require.Empty(t, ck.Value)
}

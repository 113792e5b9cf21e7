package session

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"
)

// Codec serializes the Session into a browser cookie so a restart of the
// companion (or a page reload of its UI) can restore identity without
// re-authenticating. The refresh token never appears here; it lives in the
// API's own httpOnly cookie.
type Codec struct {
	Name string
	TTL  time.Duration
}

func NewCodec(name string, ttl time.Duration) *Codec {
	if name == "" {
		name = "quizhive_session"
	}
	if ttl == 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Codec{Name: name, TTL: ttl}
}

// Encode returns a cookie holding the JSON-serialized session.
func (c *Codec) Encode(s *Session) (*http.Cookie, error) {
	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	return &http.Cookie{
		Name:     c.Name,
		Value:    base64.RawURLEncoding.EncodeToString(b),
		Path:     "/",
		MaxAge:   int(c.TTL.Seconds()),
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
	}, nil
}

// Decode parses a previously encoded cookie value. Returns nil for a missing
// or malformed cookie; a corrupt cookie is equivalent to no session.
func (c *Codec) Decode(ck *http.Cookie) *Session {
	if ck == nil || ck.Value == "" {
		return nil
	}
	b, err := base64.RawURLEncoding.DecodeString(ck.Value)
	if err != nil {
		return nil
	}
	var s Session
	if err := json.Unmarshal(b, &s); err != nil {
		return nil
	}
	if s.AccessToken == "" && s.UserID == "" {
		return nil
	}
	return &s
}

// DecodeRequest reads the session cookie off an incoming request.
func (c *Codec) DecodeRequest(r *http.Request) *Session {
	ck, err := r.Cookie(c.Name)
	if err != nil {
		return nil
	}
	return c.Decode(ck)
}

// Clear returns an expired cookie that removes the persisted session.
func (c *Codec) Clear() *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		SameSite: http.SameSiteStrictMode,
		HttpOnly: true,
	}
}

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
)

// Profile is the identity the API reports for the authenticated user.
type Profile struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl"`
	Roles       []string `json:"roles"`
}

// LoginResult is the payload of a successful credential exchange.
type LoginResult struct {
	AccessToken string  `json:"accessToken"`
	ExpiresIn   int     `json:"expiresIn"`
	User        Profile `json:"user"`
}

// Client talks to the remote QuizHive HTTP API. The underlying http.Client
// carries a cookie jar so the httpOnly refresh cookie set by the auth
// endpoints travels with later refresh calls, exactly as a browser would.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	jar, _ := cookiejar.New(nil)
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout, Jar: jar},
	}
}

// Login exchanges username/password for an access token and identity.
func (c *Client) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	body := map[string]string{"username": username, "password": password}
	var out LoginResult
	if err := c.postJSON(ctx, "/auth/login", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// LoginOAuth exchanges a third-party identity token for a platform session.
func (c *Client) LoginOAuth(ctx context.Context, externalToken string) (*LoginResult, error) {
	body := map[string]string{"token": externalToken}
	var out LoginResult
	if err := c.postJSON(ctx, "/auth/oauth", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and returns the resulting session.
func (c *Client) Register(ctx context.Context, name, username, email, password string) (*LoginResult, error) {
	body := map[string]string{
		"displayName": name,
		"username":    username,
		"email":       email,
		"password":    password,
	}
	var out LoginResult
	if err := c.postJSON(ctx, "/auth/register", "", body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshToken asks for a new access token. The refresh token itself is the
// httpOnly cookie in the jar; the client never sees its value.
func (c *Client) RefreshToken(ctx context.Context) (string, error) {
	var out struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.postJSON(ctx, "/auth/refresh-token", "", nil, &out); err != nil {
		return "", err
	}
	if out.AccessToken == "" {
		return "", &AuthError{StatusCode: http.StatusUnauthorized, Message: "refresh returned no token"}
	}
	return out.AccessToken, nil
}

// Logout revokes the refresh session server-side. Best effort only; callers
// clear local state regardless of the outcome.
func (c *Client) Logout(ctx context.Context, accessToken string) error {
	return c.postJSON(ctx, "/auth/logout", accessToken, nil, nil)
}

// Me fetches the current user's profile.
func (c *Client) Me(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/me", nil)
	if err != nil {
		return nil, err
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromResponse(resp)
	}
	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Do forwards an arbitrary request to the API with the given bearer token.
// Used by the passthrough proxy; the caller owns the response body.
func (c *Client) Do(ctx context.Context, method, path string, accessToken string, body io.Reader, contentType string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	return c.http.Do(req)
}

// BaseURL returns the configured API base.
func (c *Client) BaseURL() string { return c.baseURL }

func (c *Client) postJSON(ctx context.Context, path, accessToken string, body interface{}, out interface{}) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errorFromResponse(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// errorFromResponse maps an API error body onto the error taxonomy. Bodies
// look like {"error": "...", "fields": {"email": "..."}}.
func errorFromResponse(resp *http.Response) error {
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var payload struct {
		Error  string            `json:"error"`
		Fields map[string]string `json:"fields"`
	}
	if err := json.Unmarshal(b, &payload); err != nil {
		logger.Debugf("api: non-JSON error body (status %d): %.120s", resp.StatusCode, string(b))
	}
	switch resp.StatusCode {
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		if len(payload.Fields) > 0 {
			return &ValidationError{Message: payload.Error, Fields: payload.Fields}
		}
		return &ValidationError{Message: payload.Error}
	case http.StatusUnauthorized, http.StatusForbidden:
		return &AuthError{StatusCode: resp.StatusCode, Message: payload.Error}
	default:
		return fmt.Errorf("api returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
}

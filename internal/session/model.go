package session

import "github.com/quizhive/quizhive/companion/go-client/internal/api"

// Session is the in-memory representation of the authenticated user. It is
// owned by the Store; everyone else reads it as an immutable snapshot, and
// mutations replace the whole value (copy-on-write at the object level).
type Session struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	Roles       []string `json:"roles"`
	AccessToken string   `json:"accessToken"`
}

// FromLogin builds a Session from a successful credential exchange.
func FromLogin(res *api.LoginResult) *Session {
	s := fromProfile(&res.User)
	s.AccessToken = res.AccessToken
	return s
}

func fromProfile(p *api.Profile) *Session {
	return &Session{
		UserID:      p.UserID,
		Username:    p.Username,
		Email:       p.Email,
		DisplayName: p.DisplayName,
		AvatarURL:   p.AvatarURL,
		Roles:       append([]string(nil), p.Roles...),
	}
}

// HasRole reports whether the session carries the given role.
func (s *Session) HasRole(role string) bool {
	if s == nil {
		return false
	}
	for _, r := range s.Roles {
		if r == role {
			return true
		}
	}
	return false
}

package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizhive/quizhive/companion/go-client/internal/api"
	"github.com/quizhive/quizhive/companion/go-client/internal/profile"
	"github.com/quizhive/quizhive/companion/go-client/internal/session"
	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
)

// LoginRequest is the credential payload from the local UI.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type OAuthRequest struct {
	Token string `json:"token" binding:"required"`
}

type RegisterRequest struct {
	DisplayName string `json:"displayName" binding:"required"`
	Username    string `json:"username" binding:"required"`
	Email       string `json:"email" binding:"required"`
	Password    string `json:"password" binding:"required"`
}

// userView is the session as exposed to the UI; the access token stays
// inside the gateway.
type userView struct {
	UserID      string   `json:"userId"`
	Username    string   `json:"username"`
	Email       string   `json:"email"`
	DisplayName string   `json:"displayName"`
	AvatarURL   string   `json:"avatarUrl,omitempty"`
	Roles       []string `json:"roles"`
}

func viewOf(s *session.Session) userView {
	return userView{
		UserID:      s.UserID,
		Username:    s.Username,
		Email:       s.Email,
		DisplayName: s.DisplayName,
		AvatarURL:   s.AvatarURL,
		Roles:       s.Roles,
	}
}

// SessionHandler exposes the credential store and profile cache over the
// local gateway.
type SessionHandler struct {
	store *session.Store
	codec *session.Codec
	cache *profile.Cache
}

func NewSessionHandler(store *session.Store, codec *session.Codec, cache *profile.Cache) *SessionHandler {
	return &SessionHandler{store: store, codec: codec, cache: cache}
}

// Register routes under /session. limit, when non-nil, wraps the credential
// endpoints.
func (h *SessionHandler) Register(rg *gin.RouterGroup, limit gin.HandlerFunc) {
	g := rg.Group("/session")
	cred := func(fn gin.HandlerFunc) []gin.HandlerFunc {
		if limit != nil {
			return []gin.HandlerFunc{limit, fn}
		}
		return []gin.HandlerFunc{fn}
	}
	g.POST("/login", cred(h.Login)...)
	g.POST("/oauth", cred(h.LoginOAuth)...)
	g.POST("/register", cred(h.RegisterAccount)...)
	g.POST("/logout", h.Logout)
	g.GET("/me", h.Me)
	g.POST("/sync", h.Sync)
}

func (h *SessionHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.store.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	h.persist(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": viewOf(sess)})
}

func (h *SessionHandler) LoginOAuth(c *gin.Context) {
	var req OAuthRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.store.LoginWithOAuth(c.Request.Context(), req.Token)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	h.persist(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": viewOf(sess)})
}

func (h *SessionHandler) RegisterAccount(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.store.Register(c.Request.Context(), req.DisplayName, req.Username, req.Email, req.Password)
	if err != nil {
		h.writeAuthError(c, err)
		return
	}
	h.persist(c, sess)
	c.JSON(http.StatusOK, gin.H{"user": viewOf(sess)})
}

// Logout clears local state regardless of whether server-side revocation
// succeeded.
func (h *SessionHandler) Logout(c *gin.Context) {
	h.store.Logout(c.Request.Context())
	http.SetCookie(c.Writer, h.codec.Clear())
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

func (h *SessionHandler) Me(c *gin.Context) {
	sess, err := h.cache.Me(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "not authenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": viewOf(sess)})
}

// Sync is called by the UI on window focus / visibility transitions; it
// refetches the profile only when the cached copy has gone stale.
func (h *SessionHandler) Sync(c *gin.Context) {
	refreshed, err := h.cache.RefreshMeIfStale(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "profile sync failed"})
		return
	}
	if refreshed {
		if s := h.store.Session(); s != nil {
			h.persist(c, s)
		}
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": refreshed})
}

func (h *SessionHandler) persist(c *gin.Context, s *session.Session) {
	ck, err := h.codec.Encode(s)
	if err != nil {
		logger.Errorf("session cookie encode failed: %v", err)
		return
	}
	http.SetCookie(c.Writer, ck)
}

func (h *SessionHandler) writeAuthError(c *gin.Context, err error) {
	var ve *api.ValidationError
	if errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, gin.H{"error": ve.Error(), "fields": ve.Fields})
		return
	}
	var ae *api.AuthError
	if errors.As(err, &ae) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": ae.Error()})
		return
	}
	logger.Errorf("credential exchange failed: %v", err)
	c.JSON(http.StatusBadGateway, gin.H{"error": "service unavailable, try again"})
}

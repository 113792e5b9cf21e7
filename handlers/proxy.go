package handlers

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizhive/quizhive/companion/go-client/internal/api"
	"github.com/quizhive/quizhive/companion/go-client/internal/session"
	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
)

// ProxyHandler forwards UI requests for platform resources (quizzes,
// articles, friends, game sessions) to the remote API with the session's
// bearer token attached. The access token is assumed valid until a request
// fails: a 401 triggers one silent refresh and a single retry.
type ProxyHandler struct {
	api   *api.Client
	store *session.Store
	codec *session.Codec
}

func NewProxyHandler(c *api.Client, store *session.Store, codec *session.Codec) *ProxyHandler {
	return &ProxyHandler{api: c, store: store, codec: codec}
}

// Handle serves routes registered as /api/*path.
func (h *ProxyHandler) Handle(c *gin.Context) {
	path := c.Param("path")
	if q := c.Request.URL.RawQuery; q != "" {
		path += "?" + q
	}

	// buffer the body so the request can be replayed after a refresh
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 4<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read request body"})
		return
	}
	contentType := c.GetHeader("Content-Type")

	resp, err := h.api.Do(c.Request.Context(), c.Request.Method, path, h.store.AccessToken(), bytes.NewReader(body), contentType)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
		return
	}
	if resp.StatusCode == http.StatusUnauthorized {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		logger.Debugf("proxy: access token rejected, refreshing")
		if rerr := h.store.RefreshAccessToken(c.Request.Context()); rerr != nil {
			http.SetCookie(c.Writer, h.codec.Clear())
			c.JSON(http.StatusUnauthorized, gin.H{"error": "session expired"})
			return
		}
		if s := h.store.Session(); s != nil {
			if ck, cerr := h.codec.Encode(s); cerr == nil {
				http.SetCookie(c.Writer, ck)
			}
		}
		resp, err = h.api.Do(c.Request.Context(), c.Request.Method, path, h.store.AccessToken(), bytes.NewReader(body), contentType)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": "upstream unavailable"})
			return
		}
	}
	defer resp.Body.Close()

	c.Status(resp.StatusCode)
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		c.Header("Content-Type", ct)
	}
	_, _ = io.Copy(c.Writer, resp.Body)
}

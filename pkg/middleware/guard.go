package middleware

import (
	"context"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"github.com/quizhive/quizhive/companion/go-client/internal/session"
)

// Resolver yields the resolved auth state for a request, restoring a
// persisted session on the first evaluation. Satisfied by
// *session.Bootstrapper.
type Resolver interface {
	Resolve(ctx context.Context, restored *session.Session) session.State
}

// CookieDecoder reads the persisted session off an incoming request.
// Satisfied by *session.Codec.
type CookieDecoder interface {
	DecodeRequest(r *http.Request) *session.Session
}

// Protected gates routes that require authentication. Anonymous requests are
// redirected to the login view with the attempted location preserved in
// `from` for the post-login redirect.
func Protected(res Resolver, cookies CookieDecoder, loginPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := res.Resolve(c.Request.Context(), cookies.DecodeRequest(c.Request))
		if st != session.StateAuthenticated {
			loc := loginPath + "?from=" + url.QueryEscape(c.Request.URL.RequestURI())
			c.Redirect(http.StatusFound, loc)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Public keeps authenticated users out of login/register views by sending
// them to the default landing view instead.
func Public(res Resolver, cookies CookieDecoder, landingPath string) gin.HandlerFunc {
	return func(c *gin.Context) {
		st := res.Resolve(c.Request.Context(), cookies.DecodeRequest(c.Request))
		if st == session.StateAuthenticated {
			c.Redirect(http.StatusFound, landingPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

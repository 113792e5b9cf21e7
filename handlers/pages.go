package handlers

import (
	"fmt"
	"html"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizhive/quizhive/companion/go-client/internal/profile"
)

const loginPage = `<!doctype html>
<html>
<head><title>QuizHive — Sign in</title></head>
<body>
<h1>Sign in</h1>
<form id="login">
  <input name="username" placeholder="Username" autofocus>
  <input name="password" type="password" placeholder="Password">
  <button type="submit">Sign in</button>
  <p id="error" style="color:red"></p>
</form>
<script>
document.getElementById('login').addEventListener('submit', async (e) => {
  e.preventDefault();
  const f = new FormData(e.target);
  const res = await fetch('/session/login', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({username: f.get('username'), password: f.get('password')})
  });
  if (res.ok) {
    const from = new URLSearchParams(location.search).get('from');
    location.href = from || '/home';
  } else {
    const body = await res.json();
    document.getElementById('error').textContent = body.error || 'login failed';
  }
});
</script>
</body>
</html>`

const homePage = `<!doctype html>
<html>
<head><title>QuizHive</title></head>
<body>
<h1>Welcome back, %s</h1>
<p><a href="/notifications">Notifications</a></p>
<form method="post" action="/session/logout"><button>Sign out</button></form>
<script>
window.addEventListener('focus', () => fetch('/session/sync', {method: 'POST'}));
document.addEventListener('visibilitychange', () => {
  if (document.visibilityState === 'visible') fetch('/session/sync', {method: 'POST'});
});
</script>
</body>
</html>`

// Pages serves the minimal local views the guards gate.
type Pages struct {
	cache *profile.Cache
}

func NewPages(cache *profile.Cache) *Pages { return &Pages{cache: cache} }

func (p *Pages) Login(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(loginPage))
}

func (p *Pages) Home(c *gin.Context) {
	name := "quizzer"
	if s, err := p.cache.Me(c.Request.Context()); err == nil {
		if s.DisplayName != "" {
			name = s.DisplayName
		} else if s.Username != "" {
			name = s.Username
		}
	}
	body := fmt.Sprintf(homePage, html.EscapeString(name))
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(body))
}

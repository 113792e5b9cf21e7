package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/quizhive/quizhive/companion/go-client/handlers"
	"github.com/quizhive/quizhive/companion/go-client/internal/api"
	"github.com/quizhive/quizhive/companion/go-client/internal/config"
	"github.com/quizhive/quizhive/companion/go-client/internal/notify"
	"github.com/quizhive/quizhive/companion/go-client/internal/oidc"
	"github.com/quizhive/quizhive/companion/go-client/internal/profile"
	"github.com/quizhive/quizhive/companion/go-client/internal/session"
	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
	"github.com/quizhive/quizhive/companion/go-client/pkg/metrics"
	"github.com/quizhive/quizhive/companion/go-client/pkg/middleware"
)

var startTime = time.Now()

func main() {
	// logging level comes from LOG_LEVEL (debug|info|warn|error|fatal)
	logger.Init(os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Fatalf("failed to load config: %v", err)
	}
	logger.Infof("config loaded: api=%s realtime=%s redis=%v", cfg.API.BaseURL, cfg.Realtime.URL, cfg.Redis.Host != "")

	ctx := context.Background()

	// OAuth identity verification is optional; without it LoginWithOAuth
	// relies on the API's own verification. ALLOW_INSECURE_TOKEN=true falls
	// back to payload-only parsing when discovery is unavailable (local dev).
	var verifier session.TokenVerifier
	if cfg.OAuth.Issuer != "" && cfg.OAuth.ClientID != "" {
		v, err := oidc.NewVerifier(ctx, cfg.OAuth.Issuer, cfg.OAuth.ClientID)
		switch {
		case err == nil:
			verifier = v
		case strings.EqualFold(strings.TrimSpace(os.Getenv("ALLOW_INSECURE_TOKEN")), "true"):
			logger.Warnf("OIDC discovery failed (%v); ALLOW_INSECURE_TOKEN=true, using insecure token parsing", err)
			verifier = oidc.NewInsecureVerifier()
		default:
			logger.Warnf("failed to initialize OIDC verifier: %v", err)
		}
	}

	apiClient := api.NewClient(cfg.API.BaseURL, cfg.API.Timeout)
	store := session.NewStore(apiClient, verifier)
	codec := session.NewCodec(cfg.Session.CookieName, cfg.Session.CookieTTL)
	cache := profile.NewCache(store, apiClient, cfg.Session.ProfileTTL)
	boot := session.NewBootstrapper(store, cache)

	// realtime channel follows the store: login switches the per-user topic,
	// logout drops it
	emitter := notify.NewEmitter()
	channel := notify.NewChannel(cfg.Realtime.URL, "", cfg.Realtime.ReconnectDelay, store.AccessToken, emitter, notify.NewDesktopNotifier())
	store.OnChange(func(s *session.Session) {
		if s == nil {
			channel.SetUserID("")
			return
		}
		channel.SetUserID(s.UserID)
	})
	channel.Start()
	defer channel.Close()

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// optional Redis client for the shared rate limiter
	var rdb *redis.Client
	if cfg.Redis.Host != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Host + ":" + cfg.Redis.Port, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		if err := rdb.Ping(ctx).Err(); err != nil {
			logger.Warnf("failed to connect to Redis (%s:%s): %v", cfg.Redis.Host, cfg.Redis.Port, err)
			rdb = nil
		}
	}
	var credLimit gin.HandlerFunc
	if cfg.RateLimit.Enabled {
		if cfg.RateLimit.UseRedis && rdb != nil {
			win := time.Duration(cfg.RateLimit.WindowSeconds) * time.Second
			credLimit = middleware.RedisRateLimitMiddleware(rdb, cfg.RateLimit.RPS, cfg.RateLimit.Burst, win)
		} else {
			credLimit = middleware.RateLimitMiddleware(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		deps := gin.H{
			"realtime": string(channel.State()),
			"auth":     boot.State().String(),
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready", "deps": deps, "uptime": time.Since(startTime).String()})
	})

	sessionHandler := handlers.NewSessionHandler(store, codec, cache)
	sessionHandler.Register(r.Group("/"), credLimit)

	feed := handlers.NewFeed(emitter, 50)
	defer feed.Close()

	pages := handlers.NewPages(cache)
	protected := middleware.Protected(boot, codec, "/login")
	public := middleware.Public(boot, codec, "/home")

	r.GET("/login", public, pages.Login)
	r.GET("/home", protected, pages.Home)
	r.GET("/notifications", protected, feed.List)
	r.GET("/", func(c *gin.Context) { c.Redirect(http.StatusFound, "/home") })

	proxy := handlers.NewProxyHandler(apiClient, store, codec)
	r.Any("/api/*path", protected, proxy.Handle)

	metrics.RegisterCollectors(prometheus.DefaultRegisterer)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	logger.Infof("starting companion gateway on %s", addr)
	if err := srv.ListenAndServe(); err != nil {
		logger.Fatalf("server failed: %v", err)
	}
}

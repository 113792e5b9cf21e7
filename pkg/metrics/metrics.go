package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	TokenRefresh = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "token_refresh_total", Help: "Access token refresh attempts by result."},
		[]string{"result"},
	)
	ProfileFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "profile_fetch_total", Help: "Profile fetches by trigger (miss, forced, stale)."},
		[]string{"reason"},
	)
	NotificationsDelivered = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "notifications_delivered_total", Help: "Notification events fanned out to listeners."},
	)
	NotificationParseErrors = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "notification_parse_errors_total", Help: "Inbound realtime payloads that failed to parse."},
	)
	RealtimeReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "realtime_reconnects_total", Help: "Reconnect attempts made by the realtime channel."},
	)
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "quizhive", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(TokenRefresh)
	reg.MustRegister(ProfileFetches)
	reg.MustRegister(NotificationsDelivered)
	reg.MustRegister(NotificationParseErrors)
	reg.MustRegister(RealtimeReconnects)
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
}

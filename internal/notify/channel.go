package notify

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/quizhive/quizhive/companion/go-client/pkg/logger"
	"github.com/quizhive/quizhive/companion/go-client/pkg/metrics"
)

// ConnState is the transport connection state. Transitions are driven by the
// websocket lifecycle, not by application logic.
type ConnState string

const (
	StateDisconnected ConnState = "disconnected"
	StateConnecting   ConnState = "connecting"
	StateConnected    ConnState = "connected"
)

var errNotConnected = errors.New("realtime: not connected")

// frame is the wire format exchanged with the realtime endpoint.
type frame struct {
	Type    string          `json:"type"` // subscribe | unsubscribe | message
	Topic   string          `json:"topic,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// TopicForUser is the per-user notification address.
func TopicForUser(userID string) string {
	return "/topic/notifications/user/" + userID
}

// Channel maintains a duplex connection to the realtime endpoint, keeps at
// most one per-user topic subscription alive, and fans inbound notification
// events out through the emitter. Reconnection after a drop uses a fixed
// delay; the subscription is re-derived from the latest user id each time
// the connection comes up.
type Channel struct {
	url            string
	reconnectDelay time.Duration
	dialer         *websocket.Dialer
	tokenFn        func() string
	emitter        *Emitter
	notifier       Notifier

	mu         sync.Mutex
	wmu        sync.Mutex // serializes writes to the socket
	opMu       sync.Mutex // serializes unsubscribe-then-subscribe switches
	conn       *websocket.Conn
	state      ConnState
	userID     string
	subscribed string
	perm       Permission
	permAsked  bool
	closed     bool
	done       chan struct{}
}

// NewChannel prepares a channel for the given endpoint. userID may be empty
// (guest connection); tokenFn supplies the bearer token at dial time and may
// be nil. Call Start to begin connecting.
func NewChannel(url, userID string, reconnectDelay time.Duration, tokenFn func() string, emitter *Emitter, notifier Notifier) *Channel {
	if reconnectDelay == 0 {
		reconnectDelay = 5 * time.Second
	}
	if emitter == nil {
		emitter = NewEmitter()
	}
	return &Channel{
		url:            url,
		reconnectDelay: reconnectDelay,
		dialer:         &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		tokenFn:        tokenFn,
		emitter:        emitter,
		notifier:       notifier,
		state:          StateDisconnected,
		userID:         userID,
		done:           make(chan struct{}),
	}
}

// Start launches the connect/read/reconnect loop.
func (c *Channel) Start() {
	go c.run()
}

// Close tears the channel down permanently.
func (c *Channel) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	close(c.done)
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.subscribed = ""
	c.mu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
	return nil
}

// State returns the current connection state.
func (c *Channel) State() ConnState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Emitter exposes the fan-out emitter for listener registration.
func (c *Channel) Emitter() *Emitter { return c.emitter }

// SubscribedTopic reports the topic of the live subscription, "" when none.
func (c *Channel) SubscribedTopic() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed
}

// SetUserID switches the per-user subscription. The previous topic is
// unsubscribed before the new one is subscribed, so at most one is ever
// live. When not yet connected, the latest id simply wins once the
// connection comes up.
func (c *Channel) SetUserID(id string) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if id == c.userID {
		c.mu.Unlock()
		return
	}
	c.userID = id
	connected := c.state == StateConnected && c.conn != nil
	prev := c.subscribed
	c.mu.Unlock()

	if !connected {
		return
	}
	if prev != "" {
		c.unsubscribe(prev)
	}
	if id != "" {
		c.subscribe(TopicForUser(id))
	}
}

func (c *Channel) run() {
	for {
		select {
		case <-c.done:
			return
		default:
		}

		c.setState(StateConnecting)
		header := http.Header{}
		if c.tokenFn != nil {
			if tok := c.tokenFn(); tok != "" {
				header.Set("Authorization", "Bearer "+tok)
			}
		}
		conn, resp, err := c.dialer.Dial(wsURL(c.url), header)
		if resp != nil && resp.Body != nil {
			resp.Body.Close()
		}
		if err != nil {
			logger.Warnf("realtime: connect to %s failed: %v", c.url, err)
			c.setState(StateDisconnected)
			metrics.RealtimeReconnects.Inc()
			if !c.waitReconnect() {
				return
			}
			continue
		}

		c.mu.Lock()
		if c.closed {
			c.mu.Unlock()
			_ = conn.Close()
			return
		}
		c.conn = conn
		c.mu.Unlock()
		logger.Infof("realtime: connected")

		// becoming connected and placing the initial subscription is one
		// step under opMu, so a concurrent SetUserID either lands before
		// (latest id wins at subscribe time) or runs a full
		// unsubscribe-then-subscribe switch after
		c.opMu.Lock()
		c.mu.Lock()
		c.state = StateConnected
		c.subscribed = ""
		uid := c.userID
		c.mu.Unlock()
		if uid != "" {
			c.subscribe(TopicForUser(uid))
		}
		c.opMu.Unlock()

		c.readLoop(conn)

		c.mu.Lock()
		c.conn = nil
		c.state = StateDisconnected
		c.subscribed = ""
		closed := c.closed
		c.mu.Unlock()
		if closed {
			return
		}
		metrics.RealtimeReconnects.Inc()
		if !c.waitReconnect() {
			return
		}
	}
}

func (c *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			logger.Debugf("realtime: read loop ended: %v", err)
			_ = conn.Close()
			return
		}
		c.handleMessage(data)
	}
}

// handleMessage parses one inbound frame. A malformed payload is counted and
// dropped; it never tears down the connection or affects later messages.
func (c *Channel) handleMessage(data []byte) {
	var f frame
	if err := json.Unmarshal(data, &f); err != nil {
		metrics.NotificationParseErrors.Inc()
		logger.Warnf("realtime: malformed frame dropped: %v", err)
		return
	}
	if f.Type != "message" {
		return
	}
	var ev Event
	if err := json.Unmarshal(f.Payload, &ev); err != nil || ev.ID == "" {
		metrics.NotificationParseErrors.Inc()
		logger.Warnf("realtime: malformed notification payload dropped")
		return
	}
	metrics.NotificationsDelivered.Inc()
	c.emitter.Emit(ev)
	c.popup(ev)
}

func (c *Channel) popup(ev Event) {
	if c.notifier == nil {
		return
	}
	c.mu.Lock()
	if !c.permAsked {
		c.perm = c.notifier.RequestPermission()
		c.permAsked = true
	}
	perm := c.perm
	c.mu.Unlock()
	if perm != PermissionGranted {
		return
	}
	if err := c.notifier.Notify("QuizHive", ev.Message()); err != nil {
		logger.Debugf("realtime: desktop notification failed: %v", err)
	}
}

func (c *Channel) subscribe(topic string) {
	if err := c.send(frame{Type: "subscribe", Topic: topic}); err != nil {
		logger.Warnf("realtime: subscribe %s failed: %v", topic, err)
		return
	}
	c.mu.Lock()
	c.subscribed = topic
	c.mu.Unlock()
}

func (c *Channel) unsubscribe(topic string) {
	if err := c.send(frame{Type: "unsubscribe", Topic: topic}); err != nil {
		logger.Debugf("realtime: unsubscribe %s failed: %v", topic, err)
	}
	c.mu.Lock()
	if c.subscribed == topic {
		c.subscribed = ""
	}
	c.mu.Unlock()
}

func (c *Channel) send(f frame) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	c.wmu.Lock()
	defer c.wmu.Unlock()
	return conn.WriteJSON(f)
}

func (c *Channel) setState(st ConnState) {
	c.mu.Lock()
	c.state = st
	c.mu.Unlock()
}

func (c *Channel) waitReconnect() bool {
	select {
	case <-c.done:
		return false
	case <-time.After(c.reconnectDelay):
		return true
	}
}

func wsURL(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	default:
		return u
	}
}

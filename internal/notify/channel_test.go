package notify

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
)

// wsServer is a realtime endpoint stand-in that records every frame the
// channel writes and lets tests push frames down to the channel.
type wsServer struct {
	t   *testing.T
	srv *httptest.Server

	mu     sync.Mutex
	frames []frame
	conns  []*websocket.Conn
	auth   []string
}

func newWSServer(t *testing.T) *wsServer {
	ws := &wsServer{t: t}
	up := websocket.Upgrader{}
	ws.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		ws.mu.Lock()
		ws.conns = append(ws.conns, conn)
		ws.auth = append(ws.auth, r.Header.Get("Authorization"))
		ws.mu.Unlock()
		for {
			var f frame
			if err := conn.ReadJSON(&f); err != nil {
				return
			}
			ws.mu.Lock()
			ws.frames = append(ws.frames, f)
			ws.mu.Unlock()
		}
	}))
	t.Cleanup(ws.srv.Close)
	return ws
}

func (ws *wsServer) url() string { return ws.srv.URL }

func (ws *wsServer) received() []frame {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return append([]frame(nil), ws.frames...)
}

func (ws *wsServer) connCount() int {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	return len(ws.conns)
}

func (ws *wsServer) lastConn() *websocket.Conn {
	ws.mu.Lock()
	defer ws.mu.Unlock()
	if len(ws.conns) == 0 {
		return nil
	}
	return ws.conns[len(ws.conns)-1]
}

func (ws *wsServer) push(f frame) {
	conn := ws.lastConn()
	require.NotNil(ws.t, conn)
	require.NoError(ws.t, conn.WriteJSON(f))
}

func (ws *wsServer) pushRaw(data string) {
	conn := ws.lastConn()
	require.NotNil(ws.t, conn)
	require.NoError(ws.t, conn.WriteMessage(websocket.TextMessage, []byte(data)))
}

type fakeNotifier struct {
	mu       sync.Mutex
	perm     Permission
	asks     int
	messages []string
}

func (n *fakeNotifier) RequestPermission() Permission {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.asks++
	return n.perm
}

func (n *fakeNotifier) Notify(title, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, body)
	return nil
}

func (n *fakeNotifier) snapshot() (int, []string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.asks, append([]string(nil), n.messages...)
}

func eventPayload(t *testing.T, ev Event) json.RawMessage {
	t.Helper()
	b, err := json.Marshal(ev)
	require.NoError(t, err)
	return b
}

func TestConnectSubscribesCurrentUser(t *testing.T) {
	ws := newWSServer(t)
	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, func() string { return "at-1" }, NewEmitter(), nil)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool {
		fs := ws.received()
		return len(fs) == 1 && fs[0].Type == "subscribe" && fs[0].Topic == TopicForUser("u1")
	}, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, TopicForUser("u1"), ch.SubscribedTopic())
	require.Equal(t, StateConnected, ch.State())

	ws.mu.Lock()
	auth := ws.auth[0]
	ws.mu.Unlock()
	require.Equal(t, "Bearer at-1", auth)
}

func TestSetUserIDSwitchesSubscription(t *testing.T) {
	ws := newWSServer(t)
	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, NewEmitter(), nil)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool { return len(ws.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ch.SetUserID("u2")
	require.Eventually(t, func() bool { return len(ws.received()) == 3 }, 2*time.Second, 10*time.Millisecond)

	fs := ws.received()
	require.Equal(t, "subscribe", fs[0].Type)
	require.Equal(t, TopicForUser("u1"), fs[0].Topic)
	require.Equal(t, "unsubscribe", fs[1].Type)
	require.Equal(t, TopicForUser("u1"), fs[1].Topic)
	require.Equal(t, "subscribe", fs[2].Type)
	require.Equal(t, TopicForUser("u2"), fs[2].Topic)
	require.Equal(t, TopicForUser("u2"), ch.SubscribedTopic())

	// setting the same id again writes nothing
	ch.SetUserID("u2")
	time.Sleep(50 * time.Millisecond)
	require.Len(t, ws.received(), 3)
}

func TestConnectRacingUserSwitchKeepsOneSubscription(t *testing.T) {
	// a switch arriving around the moment the connection comes up (the store's
	// OnChange firing on login) must never leave two topics live
	for i := 0; i < 25; i++ {
		ws := newWSServer(t)
		ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, NewEmitter(), nil)
		ch.Start()
		ch.SetUserID("u2")

		require.Eventually(t, func() bool {
			live := map[string]bool{}
			for _, f := range ws.received() {
				switch f.Type {
				case "subscribe":
					live[f.Topic] = true
				case "unsubscribe":
					delete(live, f.Topic)
				}
			}
			return len(live) == 1 && live[TopicForUser("u2")]
		}, 2*time.Second, 5*time.Millisecond)
		require.Equal(t, TopicForUser("u2"), ch.SubscribedTopic())
		require.NoError(t, ch.Close())
	}
}

func TestSetUserIDEmptyDropsSubscription(t *testing.T) {
	ws := newWSServer(t)
	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, NewEmitter(), nil)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool { return len(ws.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ch.SetUserID("")
	require.Eventually(t, func() bool {
		fs := ws.received()
		return len(fs) == 2 && fs[1].Type == "unsubscribe" && fs[1].Topic == TopicForUser("u1")
	}, 2*time.Second, 10*time.Millisecond)
	require.Empty(t, ch.SubscribedTopic())
}

func TestMalformedPayloadDoesNotStopDelivery(t *testing.T) {
	ws := newWSServer(t)
	emitter := NewEmitter()
	var mu sync.Mutex
	var got []Event
	emitter.Subscribe(func(ev Event) {
		mu.Lock()
		got = append(got, ev)
		mu.Unlock()
	})

	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, emitter, nil)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool { return len(ws.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ws.pushRaw(`{not json`)
	ws.pushRaw(`{"type":"message","payload":{"id":""}}`)
	ws.push(frame{Type: "message", Payload: eventPayload(t, Event{ID: "n1", ActorName: "bob", Verb: "LIKE", TargetType: "QUIZ"})})
	ws.push(frame{Type: "message", Payload: eventPayload(t, Event{ID: "n2", ActorName: "eve", Verb: "FRIEND_REQUEST"})})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 2
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, "n1", got[0].ID)
	require.Equal(t, "n2", got[1].ID)
	require.Equal(t, StateConnected, ch.State())
}

func TestReconnectResubscribes(t *testing.T) {
	ws := newWSServer(t)
	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, NewEmitter(), nil)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool { return len(ws.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	// server drops the connection; the channel should come back on its own
	require.NoError(t, ws.lastConn().Close())

	require.Eventually(t, func() bool {
		return ws.connCount() == 2 && len(ws.received()) == 2
	}, 2*time.Second, 10*time.Millisecond)

	fs := ws.received()
	require.Equal(t, "subscribe", fs[1].Type)
	require.Equal(t, TopicForUser("u1"), fs[1].Topic)
}

func TestPopupAsksPermissionOnce(t *testing.T) {
	ws := newWSServer(t)
	notifier := &fakeNotifier{perm: PermissionGranted}
	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, NewEmitter(), notifier)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool { return len(ws.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ws.push(frame{Type: "message", Payload: eventPayload(t, Event{ID: "n1", ActorName: "bob", Verb: "FRIEND_REQUEST"})})
	ws.push(frame{Type: "message", Payload: eventPayload(t, Event{ID: "n2", ActorName: "bob", Verb: "FRIEND_ACCEPT"})})

	require.Eventually(t, func() bool {
		_, msgs := notifier.snapshot()
		return len(msgs) == 2
	}, 2*time.Second, 10*time.Millisecond)

	asks, msgs := notifier.snapshot()
	require.Equal(t, 1, asks)
	require.Equal(t, "bob sent you a friend request", msgs[0])
}

func TestPopupRespectsDeniedPermission(t *testing.T) {
	ws := newWSServer(t)
	emitter := NewEmitter()
	var mu sync.Mutex
	delivered := 0
	emitter.Subscribe(func(Event) {
		mu.Lock()
		delivered++
		mu.Unlock()
	})

	notifier := &fakeNotifier{perm: PermissionDenied}
	ch := NewChannel(ws.url(), "u1", 20*time.Millisecond, nil, emitter, notifier)
	ch.Start()
	defer ch.Close()

	require.Eventually(t, func() bool { return len(ws.received()) == 1 }, 2*time.Second, 10*time.Millisecond)

	ws.push(frame{Type: "message", Payload: eventPayload(t, Event{ID: "n1", Verb: "LIKE", TargetType: "QUIZ"})})

	// in-app delivery still happens when popups are denied
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return delivered == 1
	}, 2*time.Second, 10*time.Millisecond)

	_, msgs := notifier.snapshot()
	require.Empty(t, msgs)
}

package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/quizhive/quizhive/companion/go-client/internal/notify"
)

// feedItem is a notification rendered for the UI.
type feedItem struct {
	ID        string    `json:"id"`
	Message   string    `json:"message"`
	Avatar    string    `json:"avatar,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Feed keeps the most recent notifications in memory for the notifications
// view. Events are transient; nothing is persisted.
type Feed struct {
	mu    sync.Mutex
	items []feedItem
	max   int
	sub   *notify.Subscription
}

// NewFeed subscribes to the emitter and retains up to max items.
func NewFeed(e *notify.Emitter, max int) *Feed {
	if max <= 0 {
		max = 50
	}
	f := &Feed{max: max}
	f.sub = e.Subscribe(f.append)
	return f
}

// Close detaches the feed from the emitter.
func (f *Feed) Close() {
	f.sub.Unsubscribe()
}

func (f *Feed) append(ev notify.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = append(f.items, feedItem{
		ID:        ev.ID,
		Message:   ev.Message(),
		Avatar:    ev.ActorAvatar,
		CreatedAt: ev.CreatedAt,
	})
	if len(f.items) > f.max {
		f.items = f.items[len(f.items)-f.max:]
	}
}

// Items returns the retained notifications, newest first.
func (f *Feed) Items() []feedItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]feedItem, 0, len(f.items))
	for i := len(f.items) - 1; i >= 0; i-- {
		out = append(out, f.items[i])
	}
	return out
}

// List serves the retained notifications as JSON.
func (f *Feed) List(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"notifications": f.Items()})
}

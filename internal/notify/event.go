package notify

import (
	"fmt"
	"strings"
	"time"
)

// Event is a structured notification received over the realtime channel.
// Immutable once parsed; events are transient and live only as long as the
// listeners that receive them.
type Event struct {
	ID          string    `json:"id"`
	ActorName   string    `json:"actorName"`
	ActorAvatar string    `json:"actorAvatar,omitempty"`
	Verb        string    `json:"verb"`
	TargetType  string    `json:"targetType"`
	TargetID    string    `json:"targetId"`
	Content     string    `json:"content,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Message derives the human-readable line shown to the user from the
// actor/verb/target fields.
func (e *Event) Message() string {
	actor := e.ActorName
	if actor == "" {
		actor = "Someone"
	}
	target := targetNoun(e.TargetType)
	switch e.Verb {
	case "FRIEND_REQUEST":
		return actor + " sent you a friend request"
	case "FRIEND_ACCEPT":
		return actor + " accepted your friend request"
	case "COMMENT":
		return fmt.Sprintf("%s commented on your %s", actor, target)
	case "REPLY":
		return fmt.Sprintf("%s replied to your comment", actor)
	case "LIKE":
		return fmt.Sprintf("%s liked your %s", actor, target)
	case "GAME_INVITE":
		return actor + " invited you to a game session"
	case "GAME_START":
		return "Your game session is starting"
	default:
		if target != "" {
			return fmt.Sprintf("%s %s your %s", actor, strings.ToLower(strings.ReplaceAll(e.Verb, "_", " ")), target)
		}
		return fmt.Sprintf("%s %s", actor, strings.ToLower(strings.ReplaceAll(e.Verb, "_", " ")))
	}
}

func targetNoun(t string) string {
	switch t {
	case "QUIZ":
		return "quiz"
	case "ARTICLE":
		return "article"
	case "SERIES":
		return "series"
	case "GAME":
		return "game session"
	case "":
		return ""
	default:
		return strings.ToLower(t)
	}
}

package models

// Push event types emitted over websocket connections.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

// ChannelEvent is broadcast to every connection subscribed to the affected
// channel. Created and updated events carry the full message; deleted
// events carry only the ids.
type ChannelEvent struct {
	Type      string   `json:"type"`
	Message   *Message `json:"message,omitempty"`
	MessageID int      `json:"message_id,omitempty"`
	ChannelID int      `json:"channel_id,omitempty"`
}

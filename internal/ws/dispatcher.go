package ws

import (
	"context"
	"log"

	"go.opentelemetry.io/otel/trace"

	"channel-service/internal/models"
	"channel-service/internal/observability"
	"channel-service/internal/threads"
)

const messageEventsRoutingKey = "message_events.channels"

// Dispatcher turns a persisted message mutation into a push event for
// every connection subscribed to the affected channel. Callers invoke it
// only after the mutation has been stored, so persist happens-before
// broadcast for each mutation.
type Dispatcher struct {
	hub     *Hub
	replies threads.ReplyCounter
}

// NewDispatcher constructs a Dispatcher.
func NewDispatcher(hub *Hub, replies threads.ReplyCounter) *Dispatcher {
	return &Dispatcher{hub: hub, replies: replies}
}

// MessageCreated broadcasts a created event. A reply additionally bumps the
// parent's reply count; a failed bump is logged and does not block the
// broadcast, since the index can be rebuilt from the store at any time.
func (d *Dispatcher) MessageCreated(ctx context.Context, msg models.Message) {
	if msg.ParentMessageID != nil {
		if err := d.replies.Increment(ctx, *msg.ParentMessageID); err != nil {
			log.Printf("reply count increment failed parent=%d: %v", *msg.ParentMessageID, err)
		}
	}

	d.hub.Broadcast(msg.ChannelID, models.ChannelEvent{Type: models.EventCreated, Message: &msg})
	d.publish(ctx, models.EventCreated, msg.ChannelID, msg.ID)
}

// MessageUpdated broadcasts an updated event carrying the full message,
// used for both edits and reaction changes.
func (d *Dispatcher) MessageUpdated(ctx context.Context, msg models.Message) {
	d.hub.Broadcast(msg.ChannelID, models.ChannelEvent{Type: models.EventUpdated, Message: &msg})
	d.publish(ctx, models.EventUpdated, msg.ChannelID, msg.ID)
}

// MessageDeleted broadcasts a deleted event carrying only the ids.
func (d *Dispatcher) MessageDeleted(ctx context.Context, channelID, messageID int) {
	d.hub.Broadcast(channelID, models.ChannelEvent{Type: models.EventDeleted, MessageID: messageID, ChannelID: channelID})
	d.publish(ctx, models.EventDeleted, channelID, messageID)
}

func (d *Dispatcher) publish(ctx context.Context, name string, channelID, messageID int) {
	var traceID string
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		traceID = sc.TraceID().String()
	}

	_ = observability.PublishEvent(ctx, messageEventsRoutingKey, observability.EventEnvelope{
		EventType: "message_events",
		EventName: name,
		Payload: map[string]interface{}{
			"channel_id": channelID,
			"message_id": messageID,
		},
	}, observability.BuildHeaders("", traceID))
}

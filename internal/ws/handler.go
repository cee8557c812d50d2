package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"channel-service/internal/auth"
	"channel-service/internal/observability"
	"channel-service/internal/repositories"
)

const wsEventsRoutingKey = "ws_events.channels"

// WebSocketHandler upgrades connections on /ws and runs the subscription
// command loop for each.
type WebSocketHandler struct {
	hub         *Hub
	channelRepo repositories.ChannelRepository
	verifier    *auth.Verifier
}

// NewWebSocketHandler constructs a WebSocketHandler.
func NewWebSocketHandler(hub *Hub, channelRepo repositories.ChannelRepository, verifier *auth.Verifier) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, channelRepo: channelRepo, verifier: verifier}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// clientCommand is a subscription command from the client. Membership is
// per-session: after a reconnect the client must join again.
type clientCommand struct {
	Action    string `json:"action"`
	ChannelID int    `json:"channel_id"`
}

// Handle authenticates, upgrades and registers the connection.
func (h *WebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("channel-service/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := c.GetHeader("Authorization")
	if token == "" {
		token = c.Query("token")
		if token != "" {
			token = "Bearer " + token
		}
	}

	claims, err := h.validateToken(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}

	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      int(claims.UserID),
		Username:    claims.Username,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	client := newClient(conn, info)

	observability.IncWSActive()
	observability.IncWSEvent("ws_connect")
	publishConnEvent(ctx, "ws_connect", info, "")

	// The request context is canceled the moment Handle returns, but the
	// connection outlives it. Keep its values (trace, identity) without the
	// cancellation for the lifetime of the read loop.
	loopCtx := context.WithoutCancel(ctx)
	go client.writePump()
	go h.readLoop(loopCtx, client)
}

func (h *WebSocketHandler) readLoop(ctx context.Context, client *Client) {
	var closeReason string
	defer func() {
		h.hub.Unregister(client)
		observability.DecWSActive()
		observability.IncWSEvent("ws_disconnect")
		publishConnEvent(ctx, "ws_disconnect", client.info, closeReason)
		client.conn.Close()
	}()

	client.conn.SetReadLimit(maxCommandSize)
	_ = client.conn.SetReadDeadline(time.Now().Add(pongWait))
	client.conn.SetPongHandler(func(string) error {
		return client.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := client.conn.ReadMessage()
		if err != nil {
			closeReason = err.Error()
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				observability.IncWSEvent("ws_error")
				publishConnEvent(ctx, "ws_error", client.info, closeReason)
			}
			return
		}
		h.handleCommand(ctx, client, raw)
	}
}

// handleCommand acknowledges each join/leave so the issuing client gets a
// result for its own command, independent of the room broadcast path.
func (h *WebSocketHandler) handleCommand(ctx context.Context, client *Client, raw []byte) {
	var cmd clientCommand
	if err := json.Unmarshal(raw, &cmd); err != nil {
		client.sendError("malformed command")
		return
	}

	switch cmd.Action {
	case "join":
		exists, err := h.channelRepo.ChannelExists(ctx, cmd.ChannelID)
		if err != nil {
			client.sendError("channel lookup failed")
			return
		}
		if !exists {
			client.sendError("unknown channel")
			return
		}
		h.hub.Join(client, cmd.ChannelID)
		observability.IncWSEvent("join")
		client.sendAck("join", cmd.ChannelID)
	case "leave":
		h.hub.Leave(client, cmd.ChannelID)
		observability.IncWSEvent("leave")
		client.sendAck("leave", cmd.ChannelID)
	default:
		client.sendError("unknown action")
	}
}

func (h *WebSocketHandler) validateToken(header string) (*auth.Claims, error) {
	parts := strings.Split(header, " ")
	if len(parts) == 2 {
		return h.verifier.Verify(parts[1])
	}
	return nil, fmt.Errorf("invalid token")
}

func publishConnEvent(ctx context.Context, event string, info ConnInfo, reason string) {
	_ = observability.PublishEvent(ctx, wsEventsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload: map[string]interface{}{
			"ws": map[string]interface{}{
				"event":       event,
				"conn_id":     info.ConnID,
				"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
				"reason":      reason,
			},
			"identity": map[string]interface{}{
				"user_id":   info.UserID,
				"username":  info.Username,
				"device_id": info.DeviceID,
				"ip":        info.IP,
			},
		},
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}

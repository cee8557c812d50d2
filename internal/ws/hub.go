package ws

import (
	"encoding/json"
	"log"
	"sync"

	"channel-service/internal/models"
	"channel-service/internal/observability"
)

// Hub tracks which live connections are subscribed to which channels.
// Membership is in-memory only and rebuilt from explicit join commands; a
// reconnecting client must re-join its channels.
type Hub struct {
	mu            sync.RWMutex
	rooms         map[int]map[*Client]bool
	subscriptions map[*Client]map[int]bool
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:         make(map[int]map[*Client]bool),
		subscriptions: make(map[*Client]map[int]bool),
	}
}

// Join subscribes a client to a channel's push events.
func (h *Hub) Join(client *Client, channelID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.rooms[channelID]; !ok {
		h.rooms[channelID] = make(map[*Client]bool)
	}
	h.rooms[channelID][client] = true
	if _, ok := h.subscriptions[client]; !ok {
		h.subscriptions[client] = make(map[int]bool)
	}
	h.subscriptions[client][channelID] = true
}

// Leave removes a client from a channel room.
func (h *Hub) Leave(client *Client, channelID int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(client, channelID)
}

// MembersOf returns a snapshot of the clients subscribed to the channel.
func (h *Hub) MembersOf(channelID int) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()
	members := make([]*Client, 0, len(h.rooms[channelID]))
	for client := range h.rooms[channelID] {
		members = append(members, client)
	}
	return members
}

// Unregister removes the client from every room and closes its send
// channel. Called on disconnect and when a client is dropped mid-broadcast.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	for channelID := range h.subscriptions[client] {
		h.removeLocked(client, channelID)
	}
	h.mu.Unlock()
	client.closeSend()
}

// Broadcast pushes the event to every member of the affected channel.
// Delivery is at-least-once best effort: a client whose send buffer is full
// is dropped rather than allowed to stall the fan-out.
func (h *Hub) Broadcast(channelID int, event models.ChannelEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	var stale []*Client
	for _, client := range h.MembersOf(channelID) {
		if client.enqueue(payload) {
			observability.IncBroadcastDelivered(event.Type)
			continue
		}
		stale = append(stale, client)
	}

	for _, client := range stale {
		log.Printf("dropping slow websocket client conn_id=%s channel_id=%d", client.info.ConnID, channelID)
		h.Unregister(client)
		observability.IncBroadcastDropped()
	}
}

func (h *Hub) removeLocked(client *Client, channelID int) {
	if clients, ok := h.rooms[channelID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.rooms, channelID)
		}
	}
	if channels, ok := h.subscriptions[client]; ok {
		delete(channels, channelID)
		if len(channels) == 0 {
			delete(h.subscriptions, client)
		}
	}
}

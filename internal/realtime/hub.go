package realtime

import (
	"context"
	"log"
	"sync"
	"time"

	"habitlink/server/internal/auth"
	"habitlink/server/internal/models"
	"habitlink/server/internal/presence"
	"habitlink/server/internal/social"
)

// Fan-out scope of online/offline broadcasts.
const (
	FanoutAll     = "all"
	FanoutFriends = "friends"
)

// Hub owns every live websocket client and relays realtime events between
// them: message pushes, typing signals, and presence broadcasts. All relay
// delivery is fire-and-forget; a missed push is recovered on the next
// history fetch.
type Hub struct {
	mu    sync.RWMutex
	conns map[string]*Client // connection id -> client

	registry  *presence.Registry
	verifier  *auth.Verifier
	directory social.Directory
	fanout    string
}

func NewHub(registry *presence.Registry, verifier *auth.Verifier, directory social.Directory, fanout string) *Hub {
	if fanout == "" {
		fanout = FanoutAll
	}
	return &Hub{
		conns:     make(map[string]*Client),
		registry:  registry,
		verifier:  verifier,
		directory: directory,
		fanout:    fanout,
	}
}

// attach transitions a client to Authenticated: it becomes addressable and
// is counted by the presence registry.
func (h *Hub) attach(c *Client) {
	h.mu.Lock()
	h.conns[c.id] = c
	h.mu.Unlock()
	h.registry.Register(c.userID, c.id)
}

// detach is the single cleanup path for both explicit disconnects and
// dead connections detected on write. Safe to call more than once.
func (h *Hub) detach(c *Client) {
	h.mu.Lock()
	_, attached := h.conns[c.id]
	if attached {
		delete(h.conns, c.id)
	}
	h.mu.Unlock()

	if attached {
		// Closing the conn terminates both pumps; the send channel is
		// never closed so concurrent deliveries stay safe.
		if c.conn != nil {
			c.conn.Close()
		}
		h.registry.Unregister(c.id)
	}
}

func (h *Hub) handleEvent(c *Client, evt ClientEvent) {
	if c.userID == "" {
		// Connected but unauthenticated: only authenticate is legal.
		if evt.Event != EventAuthenticate {
			log.Printf("Ignoring %q from unauthenticated connection %s", evt.Event, c.id)
			return
		}
		claims, err := h.verifier.ValidateToken(evt.Token)
		if err != nil {
			log.Printf("Authentication failed on connection %s: %v", c.id, err)
			return
		}
		c.userID = claims.UserID
		h.attach(c)
		return
	}

	switch evt.Event {
	case EventAuthenticate:
		// Already authenticated; reconnect-and-reauthenticate from scratch
		// is the client's job.
	case EventJoinChat:
		c.peerID = evt.OtherUserID
	case EventTyping:
		h.relayTyping(c, evt.ReceiverID, EventUserTyping)
	case EventStopTyping:
		h.relayTyping(c, evt.ReceiverID, EventUserStopTyping)
	default:
		log.Printf("Unknown event %q from user %s", evt.Event, c.userID)
	}
}

// relayTyping forwards a typing signal to the receiver's connections.
// No persistence, no acknowledgement.
func (h *Hub) relayTyping(c *Client, receiverID, event string) {
	if receiverID == "" {
		receiverID = c.peerID
	}
	if receiverID == "" || receiverID == c.userID {
		return
	}
	payload, ok := marshalEvent(event, TypingData{UserID: c.userID})
	if !ok {
		return
	}
	h.sendToUser(receiverID, payload)
}

// PushMessage relays a freshly persisted message to the receiver's active
// connections. An offline receiver is a no-op: the message is already
// durable and will surface on the next history fetch.
func (h *Hub) PushMessage(msg *models.Message) {
	payload, ok := marshalEvent(EventReceiveMessage, msg)
	if !ok {
		return
	}
	h.sendToUser(msg.ReceiverID, payload)
}

// NotifyStatus implements presence.StatusNotifier. Depending on the
// configured fan-out it broadcasts to everyone (O(n) per connect) or only
// to the user's friends.
func (h *Hub) NotifyStatus(userID string, status presence.Status) {
	payload, ok := marshalEvent(EventUserStatus, StatusData{UserID: userID, Status: string(status)})
	if !ok {
		return
	}

	if h.fanout == FanoutFriends && h.directory != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		friends, err := h.directory.ListFriends(ctx, userID)
		if err != nil {
			log.Printf("Friend lookup for status fan-out of %s failed: %v", userID, err)
			return
		}
		for _, friendID := range friends {
			h.sendToUser(friendID, payload)
		}
		return
	}

	h.broadcast(userID, payload)
}

func (h *Hub) sendToUser(userID string, payload []byte) {
	for _, connID := range h.registry.ConnectionsFor(userID) {
		h.mu.RLock()
		c := h.conns[connID]
		h.mu.RUnlock()
		if c == nil {
			continue
		}
		h.deliver(c, payload)
	}
}

// broadcast sends to every connection except the subject's own.
func (h *Hub) broadcast(exceptUserID string, payload []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.conns))
	for _, c := range h.conns {
		if c.userID != exceptUserID {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.deliver(c, payload)
	}
}

// deliver hands the payload to the client's writer. A full send buffer
// means the consumer is dead or hopelessly slow; it gets the same cleanup
// as an explicit disconnect.
func (h *Hub) deliver(c *Client, payload []byte) {
	h.mu.RLock()
	_, attached := h.conns[c.id]
	h.mu.RUnlock()
	if !attached {
		return
	}

	select {
	case c.send <- payload:
	default:
		log.Printf("Dropping slow connection %s of user %s", c.id, c.userID)
		h.detach(c)
	}
}

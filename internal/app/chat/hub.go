/*
Package chat is the websocket transport of the pairing server.

It keeps one live connection per user (the Hub), pushes lifecycle events produced by the
matchmaking core to those connections, and relays TEXT and ATTACHMENTS frames between the two
members of a session without revealing who sent them.
*/
package chat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"anonchat/internal/app/matchmaking"
	"anonchat/internal/app/user"
	"anonchat/internal/pkg/logx"
)

// eventTypes maps lifecycle events onto the frames that announce them.
var eventTypes = map[matchmaking.EventKind]MessageType{
	matchmaking.EventPartnerFound: TypePartnerFound,
	matchmaking.EventPartnerLeft:  TypePartnerLeft,
}

// Hub tracks the live connection of every online user.
type Hub struct {
	// clients stores the current connection of each user, keyed by user ID.
	clients map[user.ID]*Client

	// mu protects access to the clients map.
	mu sync.RWMutex

	logger zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[user.ID]*Client),
		logger:  logx.Component("Hub"),
	}
}

// Register makes c the live connection of its user, kicking any older connection of the same
// user, and queues the INIT_DATA frame.
func (h *Hub) Register(c *Client, init InitDataPayload) error {
	h.mu.Lock()
	if existing, ok := h.clients[c.userID]; ok && existing != c {
		h.logger.Warn().
			Str("user_id", c.userID.String()).
			Msg("User already connected. Closing old connection for replacement.")

		existing.Kick("Session replaced by new connection. Check other tabs.")
	}
	h.clients[c.userID] = c
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().
		Str("user_id", c.userID.String()).
		Int("online", total).
		Msg("Client connected.")

	msg, err := NewMessage(TypeInitData, init)
	if err != nil {
		return err
	}
	return c.sendMessage(msg)
}

// Unregister removes c if it is still the live connection of its user. A stale connection that
// was already replaced leaves the newer one untouched.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	current, ok := h.clients[c.userID]
	if ok && current == c {
		delete(h.clients, c.userID)
	}
	total := len(h.clients)
	h.mu.Unlock()

	c.closeSend("")

	if ok && current == c {
		h.logger.Info().
			Str("user_id", c.userID.String()).
			Int("online", total).
			Msg("Client disconnected.")
	}
}

// Online reports whether the user currently has a live connection.
func (h *Hub) Online(id user.ID) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	_, ok := h.clients[id]
	return ok
}

// Deliver queues msg on the user's live connection. It returns ErrNotConnected when there is
// none and ErrSendQueueFull when the connection is not keeping up.
func (h *Hub) Deliver(id user.ID, msg Message) error {
	h.mu.RLock()
	c, ok := h.clients[id]
	h.mu.RUnlock()

	if !ok {
		return ErrNotConnected
	}
	return c.sendMessage(msg)
}

// Notify implements matchmaking.Notifier. An offline user is reported as unreachable so the
// dispatcher does not retry; a full queue is transient.
func (h *Hub) Notify(ctx context.Context, id user.ID, kind matchmaking.EventKind) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msgType, ok := eventTypes[kind]
	if !ok {
		return fmt.Errorf("%w: unknown event kind %q", matchmaking.ErrRecipientUnreachable, kind)
	}

	msg, err := NewMessage(msgType, nil)
	if err != nil {
		return err
	}

	err = h.Deliver(id, msg)
	if errors.Is(err, ErrNotConnected) {
		return fmt.Errorf("%w: %v", matchmaking.ErrRecipientUnreachable, err)
	}
	return err
}

// Shutdown closes every live connection.
func (h *Hub) Shutdown() {
	h.logger.Info().Msg("Shutting down Hub...")

	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[user.ID]*Client)
	h.mu.Unlock()

	for _, c := range clients {
		c.closeSend("")
	}

	h.logger.Info().Int("closed", len(clients)).Msg("Hub shutdown complete.")
}

// encode marshals a frame for the wire.
func encode(data any) ([]byte, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal frame: %w", err)
	}
	return b, nil
}

var _ matchmaking.Notifier = (*Hub)(nil)

package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"anonchat/internal/app/user"
	"anonchat/internal/pkg/auth/jwt"
	"anonchat/internal/pkg/errs"
	"anonchat/internal/pkg/logx"
)

const (
	// timeout duration for writing to the WebSocket connection.
	writeWait = 10 * time.Second

	// maximum time allowed for the server to wait for a Pong message from the client.
	pongWait = 60 * time.Second

	// frequency at which the server sends a Ping message.
	pingPeriod = (pongWait * 9) / 10

	// maximum allowed size (in bytes) of a message sent by the client.
	maxMessageSize = 8192

	// bounds one relay operation, including the directory lookup.
	relayTimeout = 5 * time.Second

	// MaxContentBytes is the maximum allowed size (in bytes) for text message content.
	MaxContentBytes = 5000

	// MaxAttachmentsCount defines the maximum number of attachments allowed per message.
	MaxAttachmentsCount = 3

	// WsCloseCodeSessionKicked is a custom WebSocket Close Code (4000-4999 range)
	// used to signal the client that the session was replaced by a new connection.
	WsCloseCodeSessionKicked = 4001

	// TokenRefreshWindow defines how much time before the token expires we should attempt to refresh it.
	TokenRefreshWindow = 2 * time.Minute

	sendQueueSize = 256
)

// Client represents the live WebSocket connection of one user.
type Client struct {
	hub   *Hub
	relay *Relay
	conn  *websocket.Conn

	userID   user.ID
	nickname string

	// secret signs refreshed tokens; tokenExpiry is the expiry of the last token the client holds.
	secret      string
	tokenExpiry time.Time

	// a buffered channel used to queue frames waiting to be written to the connection.
	send chan []byte

	// mu guards closed and kickReason; send is closed exactly once.
	mu         sync.Mutex
	closed     bool
	kickReason string

	logger zerolog.Logger
}

// NewClient constructs a Client for an upgraded connection authenticated by payload.
func NewClient(hub *Hub, relay *Relay, conn *websocket.Conn, payload *jwt.Payload, secret string) *Client {
	return &Client{
		hub:         hub,
		relay:       relay,
		conn:        conn,
		userID:      user.ID(payload.ID),
		nickname:    payload.Nickname,
		secret:      secret,
		tokenExpiry: payload.Expiry(),
		send:        make(chan []byte, sendQueueSize),
		logger:      logx.Logger().With().Str("user_id", payload.ID).Logger(),
	}
}

// UserID returns the id of the connected user.
func (c *Client) UserID() user.ID { return c.userID }

// ReadPump handles reading messages from the WebSocket connection.
// It handles heartbeats (Pong), message parsing, and performs cleanup upon connection closure.
func (c *Client) ReadPump() {
	defer c.cleanupOnDisconnect()

	c.conn.SetReadLimit(maxMessageSize)

	if err := c.conn.SetReadDeadline(time.Now().Add(pongWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set read deadline")
		return
	}

	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, messageBytes, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Info().Err(err).Msg("Error reading message (Client close/going away)")
			}
			break
		}

		c.processInboundMessage(messageBytes)
	}
}

// cleanupOnDisconnect handles the necessary cleanup steps when the client's ReadPump terminates.
// The user's directory state is left as it is: a user who reconnects finds the session intact.
func (c *Client) cleanupOnDisconnect() {
	c.logger.Info().Msg("Client connection cleanup starting.")

	c.hub.Unregister(c)

	if err := c.conn.Close(); err != nil {
		c.logger.Debug().Err(err).Msg("Client connection close error")
	}
}

// processInboundMessage handles raw byte messages received from the client.
func (c *Client) processInboundMessage(messageBytes []byte) {
	var inboundMsg struct {
		Type    MessageType     `json:"type"`
		Payload json.RawMessage `json:"payload,omitempty"`
		TempID  string          `json:"tempID,omitempty"`
	}

	if err := json.Unmarshal(messageBytes, &inboundMsg); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid JSON")
		c.SendError(errs.NewError(errs.ErrInvalidJSONFormat))
		return
	}

	var (
		msg Message
		err error
	)

	switch inboundMsg.Type {
	case TypeText:
		msg, err = c.buildText(inboundMsg.Payload)

	case TypeAttachments:
		msg, err = c.buildAttachments(inboundMsg.Payload)

	default:
		c.logger.Warn().Str("msg_type", string(inboundMsg.Type)).Msg("Client sent unsupported message type")
		return
	}

	if err != nil {
		c.SendError(err)
		return
	}

	c.forward(msg, inboundMsg.TempID)
}

// buildText validates a TEXT payload and wraps it for the partner.
func (c *Client) buildText(payloadBytes json.RawMessage) (Message, error) {
	var textPayload TextPayload
	if err := json.Unmarshal(payloadBytes, &textPayload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid TEXT payload")
		return Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	if textPayload.Content == "" {
		return Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	if len(textPayload.Content) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	return NewMessage(TypeText, textPayload)
}

// buildAttachments validates an ATTACHMENTS payload and wraps it for the partner. Every key must
// have been issued to the sender by the presign endpoint.
func (c *Client) buildAttachments(payloadBytes json.RawMessage) (Message, error) {
	var attachmentsPayload AttachmentsPayload
	if err := json.Unmarshal(payloadBytes, &attachmentsPayload); err != nil {
		c.logger.Warn().Err(err).Msg("Client sent invalid ATTACHMENTS payload")
		return Message{}, errs.NewError(errs.ErrInvalidParams)
	}

	if count := len(attachmentsPayload.Attachments); count == 0 || count > MaxAttachmentsCount {
		return Message{}, errs.NewError(errs.ErrAttachmentCountInvalid, MaxAttachmentsCount)
	}

	if len(attachmentsPayload.Description) > MaxContentBytes {
		return Message{}, errs.NewError(errs.ErrMessageContentTooLong)
	}

	owned := lo.EveryBy(attachmentsPayload.Attachments, func(a Attachment) bool {
		return OwnsKey(c.userID.String(), a.Key)
	})
	if !owned {
		return Message{}, errs.NewError(errs.ErrAttachmentKeyInvalid)
	}

	for i := range attachmentsPayload.Attachments {
		a := &attachmentsPayload.Attachments[i]

		if err := ValidateFileType(a.Name, a.MimeType); err != nil {
			return Message{}, err
		}

		a.Normalize()
	}

	return NewMessage(TypeAttachments, attachmentsPayload)
}

// forward relays msg to the partner and acknowledges it to the sender.
func (c *Client) forward(msg Message, tempID string) {
	ctx, cancel := context.WithTimeout(context.Background(), relayTimeout)
	defer cancel()

	if err := c.relay.Forward(ctx, c.userID, msg); err != nil {
		if !errors.Is(err, ErrNotInSession) {
			c.logger.Info().Err(err).Str("msg_type", string(msg.Type)).Msg("Relay failed")
		}
		c.SendError(err)
		return
	}

	c.sendConfirmation(tempID, msg)
}

// WritePump handles writing messages from the Client.send channel to the WebSocket connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()

		// ensure the connection is closed on exit
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Client connection close error in WritePump")
		}
	}()

	for {
		select {
		case message, ok := <-c.send:
			if !c.writeQueuedMessage(message, ok) {
				return
			}

		case <-ticker.C:
			if !c.writePingMessage() {
				return
			}

			c.checkAndRefreshToken()
		}
	}
}

// writeQueuedMessage handles messages pulled from the send channel, writing them to the WebSocket.
// Returns true if the WritePump loop should continue, false if it should terminate.
func (c *Client) writeQueuedMessage(message []byte, ok bool) bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline")
		return false
	}

	if !ok {
		if err := c.conn.WriteMessage(websocket.CloseMessage, c.closeFrame()); err != nil {
			c.logger.Debug().Err(err).Msg("Error writing close message")
		}
		return false
	}

	if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
		c.logger.Error().Err(err).Msg("Error writing message")
		return false
	}

	return true
}

// closeFrame is the payload of the final close message: code 4001 for a replaced session.
func (c *Client) closeFrame() []byte {
	c.mu.Lock()
	reason := c.kickReason
	c.mu.Unlock()

	if reason == "" {
		return []byte{}
	}
	return websocket.FormatCloseMessage(WsCloseCodeSessionKicked, reason)
}

// writePingMessage sends a periodic WebSocket Ping message to maintain the connection heartbeat.
// Returns false if the WritePump loop should terminate due to write failure.
func (c *Client) writePingMessage() bool {
	if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		c.logger.Error().Err(err).Msg("Failed to set write deadline on ping")
		return false
	}

	if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
		c.logger.Debug().Err(err).Msg("Error writing ping")
		return false
	}

	return true
}

// checkAndRefreshToken checks if the current JWT is close to expiry and generates a new one if necessary.
func (c *Client) checkAndRefreshToken() {
	if time.Now().Before(c.tokenExpiry.Add(-TokenRefreshWindow)) {
		return
	}

	c.logger.Info().
		Time("current_expiry", c.tokenExpiry).
		Dur("refresh_window", TokenRefreshWindow).
		Msg("JWT token is nearing expiry, attempting refresh.")

	payload := &jwt.Payload{
		ID:       c.userID.String(),
		Nickname: c.nickname,
	}

	tokenString, err := jwt.GenerateToken(payload, c.secret, jwt.IdentityExpiration)
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to generate new token. Aborting refresh.")
		return
	}

	updateMsg, err := NewMessage(TypeTokenUpdate, TokenUpdatePayload{Token: tokenString})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build TOKEN_UPDATE message.")
		return
	}

	if err := c.sendMessage(updateMsg); err != nil {
		c.logger.Error().Err(err).Msg("Failed to send token update to client.")
		return
	}

	c.tokenExpiry = payload.Expiry()
}

// sendMessage marshals the frame and attempts to queue it on the send channel.
func (c *Client) sendMessage(data any) error {
	messageBytes, err := encode(data)
	if err != nil {
		c.logger.Error().Err(err).Msg("Error marshaling data for client")
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrNotConnected
	}

	select {
	case c.send <- messageBytes:
		return nil
	default:
		c.logger.Warn().Int("queue_len", len(c.send)).Msg("Client send channel full, dropping message")
		return ErrSendQueueFull
	}
}

// closeSend closes the send channel once. WritePump then writes the close frame and exits.
func (c *Client) closeSend(kickReason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	c.kickReason = kickReason
	close(c.send)
}

// SendError reports err to the client as an ERROR frame.
func (c *Client) SendError(err error) {
	customErr := ToCustomError(err)

	errorMsg, msgErr := NewMessage(TypeError, ErrorPayload{
		Code:    customErr.Code,
		Message: customErr.Message,
	})
	if msgErr != nil {
		c.logger.Error().Err(msgErr).Msg("Failed to build error message in SendError")
		return
	}

	if err := c.sendMessage(errorMsg); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to queue error message")
	}
}

// sendConfirmation constructs and sends a TypeConfirm (ACK) message back to the sender.
func (c *Client) sendConfirmation(originalTempID string, relayed Message) {
	if originalTempID == "" {
		return
	}

	ackMsg, err := NewMessage(TypeConfirm, ConfirmPayload{
		TempID:    originalTempID,
		MessageID: relayed.ID,
		Timestamp: relayed.Timestamp,
	})
	if err != nil {
		c.logger.Error().Err(err).Msg("Failed to build ACK message in sendConfirmation")
		return
	}

	if err := c.sendMessage(ackMsg); err != nil {
		c.logger.Debug().Err(err).Msg("Failed to queue ACK message")
	}
}

// Kick closes the connection with a custom WebSocket Close Frame (Code 4001) indicating that the
// session was replaced. The frame is written by WritePump, the only writer of the connection.
func (c *Client) Kick(reason string) {
	c.logger.Warn().
		Int("close_code", WsCloseCodeSessionKicked).
		Str("reason", reason).
		Msg("Kicking connection.")

	c.closeSend(reason)
}
